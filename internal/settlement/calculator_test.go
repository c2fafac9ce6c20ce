package settlement

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/internal/commission"
	"github.com/marketbay/payouts-backend/internal/orders"
	"github.com/marketbay/payouts-backend/internal/sellers"
	"github.com/marketbay/payouts-backend/pkg/config"
	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
	"github.com/marketbay/payouts-backend/pkg/logger"
)

var testPolicy = config.SettlementConfig{
	PlatformFeeRate:       "0.01",
	TaxRate:               "0.18",
	DefaultCommissionRate: "0.05",
	HoldPeriodDays:        7,
	RuleCacheTTL:          time.Minute,
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newCalcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:settlement_calc_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{}, &models.OrderItem{},
		&models.SellerAccount{}, &models.CommissionRule{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newCalculator(t *testing.T, db *gorm.DB) *Calculator {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	resolver, err := commission.NewResolver(commission.NewRepository(db), nil, time.Minute, logg)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	accounts, err := sellers.NewResolver(sellers.NewRepository(db))
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	calc, err := NewCalculator(orders.NewRepository(db), resolver, accounts, testPolicy)
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	return calc
}

func seedSellerAccount(t *testing.T, db *gorm.DB, sellerID uuid.UUID) models.SellerAccount {
	t.Helper()
	account := models.SellerAccount{
		SellerID:       sellerID,
		AccountHolder:  "Acme Traders",
		BankAccountRef: "acc_" + uuid.NewString()[:8],
		IsActive:       true,
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("seed seller account: %v", err)
	}
	return account
}

type seededItem struct {
	price            string
	commissionRate   string
	commissionAmount string
}

func seedDeliveredOrder(t *testing.T, db *gorm.DB, sellerID uuid.UUID, deliveredAt time.Time, items ...seededItem) models.Order {
	t.Helper()
	order := models.Order{
		OrderNumber:   "ORD-" + uuid.NewString()[:8],
		Status:        enums.OrderStatusDelivered,
		PaymentStatus: enums.PaymentStatusPaid,
		Currency:      enums.CurrencyUSD,
		DeliveredAt:   &deliveredAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	for _, item := range items {
		row := models.OrderItem{
			OrderID:    order.ID,
			SellerID:   sellerID,
			ProductID:  uuid.New(),
			Quantity:   1,
			TotalPrice: dec(item.price),
		}
		if item.commissionRate != "" {
			row.CommissionRate = dec(item.commissionRate)
			row.CommissionAmount = dec(item.commissionAmount)
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}
	return order
}

func seedRefundedOrder(t *testing.T, db *gorm.DB, sellerID uuid.UUID, refundedAt time.Time, price string) models.Order {
	t.Helper()
	order := models.Order{
		OrderNumber:   "ORD-" + uuid.NewString()[:8],
		Status:        enums.OrderStatusRefunded,
		PaymentStatus: enums.PaymentStatusRefunded,
		Currency:      enums.CurrencyUSD,
		RefundedAt:    &refundedAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed refunded order: %v", err)
	}
	item := models.OrderItem{
		OrderID:    order.ID,
		SellerID:   sellerID,
		ProductID:  uuid.New(),
		Quantity:   1,
		TotalPrice: dec(price),
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed refunded item: %v", err)
	}
	return order
}

func testPeriod() (time.Time, time.Time) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func TestCalculateDefaultCommission(t *testing.T) {
	t.Parallel()
	db := newCalcDB(t)
	calc := newCalculator(t, db)
	ctx := context.Background()
	sellerID := uuid.New()
	seedSellerAccount(t, db, sellerID)
	start, end := testPeriod()

	seedDeliveredOrder(t, db, sellerID, start.Add(24*time.Hour), seededItem{price: "1000.00"})

	result, err := calc.Calculate(ctx, CalculateInput{SellerID: sellerID, PeriodStart: start, PeriodEnd: end, Currency: enums.CurrencyUSD})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	// 5% commission, 1% fee, 18% tax on commission
	if !result.GrossAmount.Equal(dec("1000.00")) {
		t.Fatalf("gross: %s", result.GrossAmount)
	}
	if !result.CommissionAmount.Equal(dec("50.00")) {
		t.Fatalf("commission: %s", result.CommissionAmount)
	}
	if !result.PlatformFee.Equal(dec("10.00")) {
		t.Fatalf("fee: %s", result.PlatformFee)
	}
	if !result.TaxAmount.Equal(dec("9.00")) {
		t.Fatalf("tax: %s", result.TaxAmount)
	}
	if !result.NetAmount.Equal(dec("931.00")) {
		t.Fatalf("net: %s", result.NetAmount)
	}
	if result.OrderCount != 1 || len(result.Breakdown) != 1 {
		t.Fatalf("expected 1 order / 1 item, got %d / %d", result.OrderCount, len(result.Breakdown))
	}
}

func TestCalculateStoredCommissionWins(t *testing.T) {
	t.Parallel()
	db := newCalcDB(t)
	calc := newCalculator(t, db)
	ctx := context.Background()
	sellerID := uuid.New()
	seedSellerAccount(t, db, sellerID)
	start, end := testPeriod()

	seedDeliveredOrder(t, db, sellerID, start.Add(24*time.Hour),
		seededItem{price: "1000.00", commissionRate: "0.10", commissionAmount: "100.00"})

	result, err := calc.Calculate(ctx, CalculateInput{SellerID: sellerID, PeriodStart: start, PeriodEnd: end})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !result.CommissionAmount.Equal(dec("100.00")) {
		t.Fatalf("stored commission should win, got %s", result.CommissionAmount)
	}
	if !result.NetAmount.Equal(dec("872.00")) {
		t.Fatalf("net: %s", result.NetAmount)
	}
	if !result.Breakdown[0].CommissionRate.Equal(dec("0.10")) {
		t.Fatalf("stored rate should be reported, got %s", result.Breakdown[0].CommissionRate)
	}
}

func TestCalculateTieredRule(t *testing.T) {
	t.Parallel()
	db := newCalcDB(t)
	calc := newCalculator(t, db)
	ctx := context.Background()
	sellerID := uuid.New()
	seedSellerAccount(t, db, sellerID)
	start, end := testPeriod()

	rule := models.CommissionRule{
		Type:       enums.CommissionRuleTypeTiered,
		EntityType: enums.CommissionEntityTypeGlobal,
		Tiers: []models.CommissionTier{
			{Threshold: dec("0"), Rate: dec("0.05")},
			{Threshold: dec("1000"), Rate: dec("0.08")},
		},
		IsActive: true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	seedDeliveredOrder(t, db, sellerID, start.Add(24*time.Hour), seededItem{price: "1500.00"})

	result, err := calc.Calculate(ctx, CalculateInput{SellerID: sellerID, PeriodStart: start, PeriodEnd: end})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !result.CommissionAmount.Equal(dec("90.00")) {
		t.Fatalf("tiered commission should be 90.00, got %s", result.CommissionAmount)
	}
}

func TestCalculateRefundAdjustment(t *testing.T) {
	t.Parallel()
	db := newCalcDB(t)
	calc := newCalculator(t, db)
	ctx := context.Background()
	sellerID := uuid.New()
	seedSellerAccount(t, db, sellerID)
	start, end := testPeriod()

	seedDeliveredOrder(t, db, sellerID, start.Add(24*time.Hour), seededItem{price: "1000.00"})
	seedRefundedOrder(t, db, sellerID, start.Add(48*time.Hour), "200.00")

	result, err := calc.Calculate(ctx, CalculateInput{SellerID: sellerID, PeriodStart: start, PeriodEnd: end})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	// refund hands back gross minus its 5% commission: 200 - 10 = 190
	if !result.Adjustment.Equal(dec("-190.00")) {
		t.Fatalf("adjustment: %s", result.Adjustment)
	}
	if !result.NetAmount.Equal(dec("741.00")) {
		t.Fatalf("net after adjustment: %s", result.NetAmount)
	}
}

func TestCalculateZeroOrders(t *testing.T) {
	t.Parallel()
	db := newCalcDB(t)
	calc := newCalculator(t, db)
	ctx := context.Background()
	sellerID := uuid.New()
	seedSellerAccount(t, db, sellerID)
	start, end := testPeriod()

	result, err := calc.Calculate(ctx, CalculateInput{SellerID: sellerID, PeriodStart: start, PeriodEnd: end})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !result.GrossAmount.IsZero() || !result.NetAmount.IsZero() {
		t.Fatalf("expected all-zero result, got %+v", result)
	}
	if result.OrderCount != 0 || len(result.Breakdown) != 0 {
		t.Fatalf("expected empty breakdown, got %d orders", result.OrderCount)
	}
}

func TestCalculateMissingSellerAccount(t *testing.T) {
	t.Parallel()
	db := newCalcDB(t)
	calc := newCalculator(t, db)
	start, end := testPeriod()

	_, err := calc.Calculate(context.Background(), CalculateInput{SellerID: uuid.New(), PeriodStart: start, PeriodEnd: end})
	if err == nil {
		t.Fatal("expected missing seller account error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestCalculateRejectsInvertedPeriod(t *testing.T) {
	t.Parallel()
	db := newCalcDB(t)
	calc := newCalculator(t, db)
	start, end := testPeriod()

	_, err := calc.Calculate(context.Background(), CalculateInput{SellerID: uuid.New(), PeriodStart: end, PeriodEnd: start})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}
