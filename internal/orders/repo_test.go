package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, sellerID uuid.UUID, status enums.OrderStatus, payment enums.PaymentStatus, deliveredAt, refundedAt *time.Time, price string) models.Order {
	t.Helper()
	order := models.Order{
		OrderNumber:   "ORD-" + uuid.NewString()[:8],
		Status:        status,
		PaymentStatus: payment,
		Currency:      enums.CurrencyUSD,
		DeliveredAt:   deliveredAt,
		RefundedAt:    refundedAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	item := models.OrderItem{
		OrderID:    order.ID,
		SellerID:   sellerID,
		ProductID:  uuid.New(),
		Quantity:   1,
		TotalPrice: decimal.RequireFromString(price),
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return order
}

func TestListSettleable(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	sellerID := uuid.New()

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inWindow := start.Add(48 * time.Hour)
	outside := end.Add(time.Hour)

	seedOrder(t, db, sellerID, enums.OrderStatusDelivered, enums.PaymentStatusPaid, &inWindow, nil, "100.00")
	// wrong payment status
	seedOrder(t, db, sellerID, enums.OrderStatusDelivered, enums.PaymentStatusPending, &inWindow, nil, "50.00")
	// not delivered
	seedOrder(t, db, sellerID, enums.OrderStatusShipped, enums.PaymentStatusPaid, nil, nil, "70.00")
	// outside the window
	seedOrder(t, db, sellerID, enums.OrderStatusDelivered, enums.PaymentStatusPaid, &outside, nil, "90.00")
	// someone else's order
	seedOrder(t, db, uuid.New(), enums.OrderStatusDelivered, enums.PaymentStatusPaid, &inWindow, nil, "80.00")

	got, err := repo.ListSettleable(ctx, sellerID, start, end)
	if err != nil {
		t.Fatalf("list settleable: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 order, got %d", len(got))
	}
	if len(got[0].Items) != 1 || got[0].Items[0].SellerID != sellerID {
		t.Fatalf("expected only the seller's items preloaded, got %+v", got[0].Items)
	}
}

func TestListRefunded(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	sellerID := uuid.New()

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	refundedAt := start.Add(24 * time.Hour)
	deliveredAt := start.Add(12 * time.Hour)

	seedOrder(t, db, sellerID, enums.OrderStatusRefunded, enums.PaymentStatusRefunded, &deliveredAt, &refundedAt, "60.00")
	seedOrder(t, db, sellerID, enums.OrderStatusDelivered, enums.PaymentStatusPaid, &deliveredAt, nil, "40.00")

	got, err := repo.ListRefunded(ctx, sellerID, start, end)
	if err != nil {
		t.Fatalf("list refunded: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 refunded order, got %d", len(got))
	}
}
