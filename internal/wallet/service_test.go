package wallet

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/internal/audit"
	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
	"github.com/marketbay/payouts-backend/pkg/logger"
	"github.com/marketbay/payouts-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:wallet_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Wallet{}, &models.WalletTransaction{}, &models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	auditor, err := audit.NewService(audit.NewRepository(db), logg)
	if err != nil {
		t.Fatalf("audit service: %v", err)
	}
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, auditor, nil)
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	return svc
}

func mustCreateWallet(t *testing.T, svc Service) *models.Wallet {
	t.Helper()
	w, err := svc.CreateWallet(context.Background(), uuid.New(), enums.CurrencyUSD)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

func amt(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func assertBucketInvariant(t *testing.T, w *models.Wallet) {
	t.Helper()
	sum := w.AvailableBalance.Add(w.PendingBalance).Add(w.ReservedBalance)
	if !sum.Equal(w.TotalBalance()) {
		t.Fatalf("bucket sum %s != total %s", sum, w.TotalBalance())
	}
	for name, b := range map[string]decimal.Decimal{
		"available": w.AvailableBalance,
		"pending":   w.PendingBalance,
		"reserved":  w.ReservedBalance,
	} {
		if b.IsNegative() {
			t.Fatalf("%s balance went negative: %s", name, b)
		}
	}
}

func TestCreateWallet(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	sellerID := uuid.New()
	w, err := svc.CreateWallet(ctx, sellerID, enums.CurrencyUSD)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if w.ID == uuid.Nil || w.SellerID != sellerID {
		t.Fatalf("unexpected wallet: %+v", w)
	}
	if !w.TotalBalance().IsZero() {
		t.Fatalf("new wallet should be empty, got %s", w.TotalBalance())
	}

	if _, err := svc.CreateWallet(ctx, sellerID, enums.CurrencyUSD); err == nil {
		t.Fatal("expected duplicate wallet to be rejected")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := svc.CreateWallet(ctx, uuid.Nil, enums.CurrencyUSD); err == nil {
		t.Fatal("expected validation error for nil seller id")
	}
}

func TestCreditSaleGoesToPending(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	w := mustCreateWallet(t, svc)

	res, err := svc.Credit(ctx, w.ID, amt("150.555"), enums.TransactionCategorySale, MutationContext{
		ReferenceType: enums.ReferenceTypeOrder,
		ReferenceID:   "ORD_1",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	// half-up rounding at the boundary
	if !res.Wallet.PendingBalance.Equal(amt("150.56")) {
		t.Fatalf("expected pending 150.56, got %s", res.Wallet.PendingBalance)
	}
	if !res.Wallet.AvailableBalance.IsZero() {
		t.Fatalf("sale credit must not touch available, got %s", res.Wallet.AvailableBalance)
	}
	if res.Transaction.Type != enums.TransactionTypeCredit || !res.Transaction.BalanceAfter.Equal(amt("150.56")) {
		t.Fatalf("unexpected ledger row: %+v", res.Transaction)
	}
	if !strings.HasPrefix(res.Transaction.TransactionID, "TXN_") {
		t.Fatalf("unexpected transaction id %q", res.Transaction.TransactionID)
	}
	assertBucketInvariant(t, res.Wallet)

	res, err = svc.Credit(ctx, w.ID, amt("25.00"), enums.TransactionCategoryAdjustment, MutationContext{})
	if err != nil {
		t.Fatalf("adjustment credit: %v", err)
	}
	if !res.Wallet.AvailableBalance.Equal(amt("25.00")) {
		t.Fatalf("expected available 25.00, got %s", res.Wallet.AvailableBalance)
	}
	assertBucketInvariant(t, res.Wallet)
}

func TestDebitBoundary(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	w := mustCreateWallet(t, svc)

	if _, err := svc.Credit(ctx, w.ID, amt("100.00"), enums.TransactionCategoryAdjustment, MutationContext{}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	// one cent over must fail with no partial effect
	if _, err := svc.Debit(ctx, w.ID, amt("100.01"), enums.TransactionCategoryFee, MutationContext{}); err == nil {
		t.Fatal("expected insufficient balance")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected INSUFFICIENT_BALANCE, got %v", err)
	}
	snap, err := svc.BalanceSnapshot(ctx, w.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.AvailableBalance.Equal(amt("100.00")) {
		t.Fatalf("failed debit must not change balances, got %s", snap.AvailableBalance)
	}

	// exactly-available succeeds and empties the bucket
	res, err := svc.Debit(ctx, w.ID, amt("100.00"), enums.TransactionCategoryFee, MutationContext{})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !res.Wallet.AvailableBalance.IsZero() {
		t.Fatalf("expected available 0, got %s", res.Wallet.AvailableBalance)
	}
	assertBucketInvariant(t, res.Wallet)
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	w := mustCreateWallet(t, svc)

	if _, err := svc.Credit(ctx, w.ID, amt("300.00"), enums.TransactionCategoryAdjustment, MutationContext{}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	res, err := svc.Reserve(ctx, w.ID, amt("120.00"), MutationContext{ReferenceType: enums.ReferenceTypeSettlement, ReferenceID: "STL_1"})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !res.Wallet.AvailableBalance.Equal(amt("180.00")) || !res.Wallet.ReservedBalance.Equal(amt("120.00")) {
		t.Fatalf("unexpected buckets after reserve: %+v", res.Wallet)
	}
	if !res.Transaction.BalanceAfter.Equal(amt("120.00")) {
		t.Fatalf("reserve balance_after should be new reserved, got %s", res.Transaction.BalanceAfter)
	}
	assertBucketInvariant(t, res.Wallet)

	res, err = svc.Release(ctx, w.ID, amt("120.00"), MutationContext{ReferenceType: enums.ReferenceTypeSettlement, ReferenceID: "STL_1"})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !res.Wallet.AvailableBalance.Equal(amt("300.00")) || !res.Wallet.ReservedBalance.IsZero() {
		t.Fatalf("round trip did not restore balances: %+v", res.Wallet)
	}
	assertBucketInvariant(t, res.Wallet)

	// over-release fails with the reserve-specific code
	if _, err := svc.Release(ctx, w.ID, amt("0.01"), MutationContext{}); err == nil {
		t.Fatal("expected insufficient reserve")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientReserve {
		t.Fatalf("expected INSUFFICIENT_RESERVE, got %v", err)
	}
}

func TestDebitSettlementDrawsFromReserved(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	w := mustCreateWallet(t, svc)

	if _, err := svc.Credit(ctx, w.ID, amt("500.00"), enums.TransactionCategoryAdjustment, MutationContext{}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	if _, err := svc.Reserve(ctx, w.ID, amt("200.00"), MutationContext{}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	res, err := svc.Debit(ctx, w.ID, amt("200.00"), enums.TransactionCategorySettlement, MutationContext{
		ReferenceType: enums.ReferenceTypeSettlement,
		ReferenceID:   "STL_9",
	})
	if err != nil {
		t.Fatalf("settlement debit: %v", err)
	}
	if !res.Wallet.ReservedBalance.IsZero() {
		t.Fatalf("settlement debit should drain reserved, got %s", res.Wallet.ReservedBalance)
	}
	if !res.Wallet.AvailableBalance.Equal(amt("300.00")) {
		t.Fatalf("available must be untouched, got %s", res.Wallet.AvailableBalance)
	}
	assertBucketInvariant(t, res.Wallet)

	// a second settlement debit has nothing reserved to draw from
	if _, err := svc.Debit(ctx, w.ID, amt("1.00"), enums.TransactionCategorySettlement, MutationContext{}); err == nil {
		t.Fatal("expected insufficient reserved balance")
	}
}

func TestMovePendingToAvailable(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	w := mustCreateWallet(t, svc)

	if _, err := svc.Credit(ctx, w.ID, amt("80.00"), enums.TransactionCategorySale, MutationContext{}); err != nil {
		t.Fatalf("seed sale credit: %v", err)
	}

	res, err := svc.MovePendingToAvailable(ctx, w.ID, amt("50.00"), MutationContext{})
	if err != nil {
		t.Fatalf("move pending: %v", err)
	}
	if !res.Wallet.PendingBalance.Equal(amt("30.00")) || !res.Wallet.AvailableBalance.Equal(amt("50.00")) {
		t.Fatalf("unexpected buckets after move: %+v", res.Wallet)
	}
	if res.Transaction.Type != enums.TransactionTypeMovePending {
		t.Fatalf("unexpected ledger type %s", res.Transaction.Type)
	}
	assertBucketInvariant(t, res.Wallet)

	if _, err := svc.MovePendingToAvailable(ctx, w.ID, amt("30.01"), MutationContext{}); err == nil {
		t.Fatal("expected insufficient pending balance")
	}
}

func TestMutationRejectsBadAmounts(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	w := mustCreateWallet(t, svc)

	for _, value := range []string{"0", "-5.00"} {
		if _, err := svc.Credit(ctx, w.ID, amt(value), enums.TransactionCategorySale, MutationContext{}); err == nil {
			t.Fatalf("expected invalid amount for %s", value)
		} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidAmount {
			t.Fatalf("expected INVALID_AMOUNT, got %v", err)
		}
	}

	if _, err := svc.Credit(ctx, uuid.New(), amt("10.00"), enums.TransactionCategorySale, MutationContext{}); err == nil {
		t.Fatal("expected not found for unknown wallet")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSettlableAmount(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	w := mustCreateWallet(t, svc)

	if _, err := svc.Credit(ctx, w.ID, amt("40.00"), enums.TransactionCategorySale, MutationContext{}); err != nil {
		t.Fatalf("sale credit: %v", err)
	}
	if _, err := svc.Credit(ctx, w.ID, amt("60.00"), enums.TransactionCategoryAdjustment, MutationContext{}); err != nil {
		t.Fatalf("adjustment credit: %v", err)
	}

	settlable, err := svc.SettlableAmount(ctx, w.ID)
	if err != nil {
		t.Fatalf("settlable: %v", err)
	}
	// pending funds are not settlable until moved
	if !settlable.Equal(amt("60.00")) {
		t.Fatalf("expected settlable 60.00, got %s", settlable)
	}
}

func TestListTransactionsPagination(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	w := mustCreateWallet(t, svc)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		txn := models.WalletTransaction{
			TransactionID: "TXN_SEED_" + uuid.NewString(),
			WalletID:      w.ID,
			Type:          enums.TransactionTypeCredit,
			Category:      enums.TransactionCategorySale,
			Amount:        amt("10.00"),
			BalanceAfter:  amt("10.00"),
			ReferenceType: enums.ReferenceTypeOrder,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&txn).Error; err != nil {
			t.Fatalf("seed txn: %v", err)
		}
	}

	page, err := svc.ListTransactions(ctx, w.ID, pagination.Params{Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Transactions) != 3 || page.NextCursor == "" {
		t.Fatalf("expected full first page with cursor, got %d rows", len(page.Transactions))
	}
	// newest first
	if page.Transactions[0].CreatedAt.Before(page.Transactions[2].CreatedAt) {
		t.Fatal("expected descending order")
	}

	next, err := svc.ListTransactions(ctx, w.ID, pagination.Params{Limit: 3, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(next.Transactions) != 2 || next.NextCursor != "" {
		t.Fatalf("expected final page of 2, got %d rows cursor=%q", len(next.Transactions), next.NextCursor)
	}

	seen := map[uuid.UUID]bool{}
	for _, txn := range append(page.Transactions, next.Transactions...) {
		if seen[txn.ID] {
			t.Fatalf("transaction %s returned twice", txn.ID)
		}
		seen[txn.ID] = true
	}
}

func TestMutationWritesAuditEntry(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	w := mustCreateWallet(t, svc)

	if _, err := svc.Credit(ctx, w.ID, amt("10.00"), enums.TransactionCategorySale, MutationContext{ActorID: "system"}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	var entries []models.AuditLog
	if err := db.Where("entity_type = ? AND entity_id = ?", "wallet", w.ID.String()).Find(&entries).Error; err != nil {
		t.Fatalf("load audit entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Action != enums.AuditActionWalletCredited {
		t.Fatalf("unexpected audit action %s", entries[0].Action)
	}
}
