package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/internal/audit"
	"github.com/marketbay/payouts-backend/pkg/db"
	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
	"github.com/marketbay/payouts-backend/pkg/keys"
	"github.com/marketbay/payouts-backend/pkg/metrics"
	"github.com/marketbay/payouts-backend/pkg/money"
	"github.com/marketbay/payouts-backend/pkg/pagination"
	"github.com/marketbay/payouts-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the wallet ledger operations. Every mutation moves exactly
// one balance bucket pair and appends exactly one ledger row.
type Service interface {
	WithTx(tx *gorm.DB) Service
	CreateWallet(ctx context.Context, sellerID uuid.UUID, currency enums.Currency) (*models.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	GetWalletBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error)
	BalanceSnapshot(ctx context.Context, walletID uuid.UUID) (*Snapshot, error)
	SettlableAmount(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
	Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, category enums.TransactionCategory, mctx MutationContext) (*MutationResult, error)
	Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, category enums.TransactionCategory, mctx MutationContext) (*MutationResult, error)
	SettleDebit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx MutationContext) (*MutationResult, error)
	Reserve(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx MutationContext) (*MutationResult, error)
	Release(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx MutationContext) (*MutationResult, error)
	MovePendingToAvailable(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx MutationContext) (*MutationResult, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*TransactionPage, error)
}

// MutationContext carries the ledger metadata a caller attaches to a mutation.
type MutationContext struct {
	TransactionID string
	ReferenceType enums.ReferenceType
	ReferenceID   string
	Description   string
	ActorID       string
	Metadata      types.JSONMap
}

// MutationResult is the committed outcome of one wallet mutation.
type MutationResult struct {
	Wallet      *models.Wallet
	Transaction *models.WalletTransaction
}

// Snapshot is a point-in-time read of all wallet buckets.
type Snapshot struct {
	WalletID         uuid.UUID       `json:"wallet_id"`
	SellerID         uuid.UUID       `json:"seller_id"`
	Currency         enums.Currency  `json:"currency"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PendingBalance   decimal.Decimal `json:"pending_balance"`
	ReservedBalance  decimal.Decimal `json:"reserved_balance"`
	TotalBalance     decimal.Decimal `json:"total_balance"`
	AsOf             time.Time       `json:"as_of"`
}

// TransactionPage is one page of ledger rows plus the cursor for the next.
type TransactionPage struct {
	Transactions []models.WalletTransaction `json:"transactions"`
	NextCursor   string                     `json:"next_cursor,omitempty"`
}

type service struct {
	repo    Repository
	tx      txRunner
	auditor audit.Service
	metrics *metrics.PayoutMetrics
}

// NewService wires a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner, auditor audit.Service, m *metrics.PayoutMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit service required")
	}
	return &service{repo: repo, tx: tx, auditor: auditor, metrics: m}, nil
}

// passthroughRunner executes fn against an already-open transaction so a
// caller can fold wallet mutations into its own atomic unit.
type passthroughRunner struct {
	tx *gorm.DB
}

func (r passthroughRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(r.tx)
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{
		repo:    s.repo.WithTx(tx),
		tx:      passthroughRunner{tx: tx},
		auditor: s.auditor,
		metrics: s.metrics,
	}
}

func (s *service) CreateWallet(ctx context.Context, sellerID uuid.UUID, currency enums.Currency) (*models.Wallet, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", currency))
	}

	wallet := &models.Wallet{
		SellerID:         sellerID,
		Currency:         currency,
		AvailableBalance: money.Zero(),
		PendingBalance:   money.Zero(),
		ReservedBalance:  money.Zero(),
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		if isDuplicate(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "wallet already exists for seller")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return wallet, nil
}

func (s *service) GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	if walletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id required")
	}
	wallet, err := s.repo.FindByID(ctx, walletID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) GetWalletBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	wallet, err := s.repo.FindBySellerID(ctx, sellerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) BalanceSnapshot(ctx context.Context, walletID uuid.UUID) (*Snapshot, error) {
	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		WalletID:         wallet.ID,
		SellerID:         wallet.SellerID,
		Currency:         wallet.Currency,
		AvailableBalance: wallet.AvailableBalance,
		PendingBalance:   wallet.PendingBalance,
		ReservedBalance:  wallet.ReservedBalance,
		TotalBalance:     wallet.TotalBalance(),
		AsOf:             time.Now().UTC(),
	}, nil
}

func (s *service) SettlableAmount(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return wallet.AvailableBalance, nil
}

func (s *service) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, category enums.TransactionCategory, mctx MutationContext) (*MutationResult, error) {
	if !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction category %q", category))
	}
	return s.mutate(ctx, walletID, amount, mctx, mutation{
		txType:   enums.TransactionTypeCredit,
		category: category,
		action:   enums.AuditActionWalletCredited,
		apply: func(w *models.Wallet, amt decimal.Decimal) (decimal.Decimal, error) {
			// sale proceeds stay pending until the hold clears
			if category == enums.TransactionCategorySale {
				w.PendingBalance = money.Round2(w.PendingBalance.Add(amt))
				return w.PendingBalance, nil
			}
			w.AvailableBalance = money.Round2(w.AvailableBalance.Add(amt))
			return w.AvailableBalance, nil
		},
	})
}

func (s *service) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, category enums.TransactionCategory, mctx MutationContext) (*MutationResult, error) {
	if !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction category %q", category))
	}
	return s.mutate(ctx, walletID, amount, mctx, mutation{
		txType:   enums.TransactionTypeDebit,
		category: category,
		action:   enums.AuditActionWalletDebited,
		apply: func(w *models.Wallet, amt decimal.Decimal) (decimal.Decimal, error) {
			// settlement debits drain the reservation made at creation
			if category == enums.TransactionCategorySettlement {
				if !money.GTE(w.ReservedBalance, amt) {
					return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient reserved balance")
				}
				w.ReservedBalance = money.Round2(w.ReservedBalance.Sub(amt))
				return w.ReservedBalance, nil
			}
			if !money.GTE(w.AvailableBalance, amt) {
				return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient available balance")
			}
			w.AvailableBalance = money.Round2(w.AvailableBalance.Sub(amt))
			return w.AvailableBalance, nil
		},
	})
}

// SettleDebit drains a completed settlement's reservation and stamps the
// wallet's last-settlement markers in the same mutation.
func (s *service) SettleDebit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx MutationContext) (*MutationResult, error) {
	return s.mutate(ctx, walletID, amount, mctx, mutation{
		txType:   enums.TransactionTypeDebit,
		category: enums.TransactionCategorySettlement,
		action:   enums.AuditActionWalletDebited,
		apply: func(w *models.Wallet, amt decimal.Decimal) (decimal.Decimal, error) {
			if !money.GTE(w.ReservedBalance, amt) {
				return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient reserved balance")
			}
			w.ReservedBalance = money.Round2(w.ReservedBalance.Sub(amt))
			now := time.Now().UTC()
			w.LastSettlementAt = &now
			settled := amt
			w.LastSettlementAmount = &settled
			return w.ReservedBalance, nil
		},
	})
}

func (s *service) Reserve(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx MutationContext) (*MutationResult, error) {
	return s.mutate(ctx, walletID, amount, mctx, mutation{
		txType:   enums.TransactionTypeReserve,
		category: enums.TransactionCategorySettlement,
		action:   enums.AuditActionWalletReserved,
		apply: func(w *models.Wallet, amt decimal.Decimal) (decimal.Decimal, error) {
			if !money.GTE(w.AvailableBalance, amt) {
				return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient available balance")
			}
			w.AvailableBalance = money.Round2(w.AvailableBalance.Sub(amt))
			w.ReservedBalance = money.Round2(w.ReservedBalance.Add(amt))
			return w.ReservedBalance, nil
		},
	})
}

func (s *service) Release(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx MutationContext) (*MutationResult, error) {
	return s.mutate(ctx, walletID, amount, mctx, mutation{
		txType:   enums.TransactionTypeRelease,
		category: enums.TransactionCategorySettlement,
		action:   enums.AuditActionWalletReleased,
		apply: func(w *models.Wallet, amt decimal.Decimal) (decimal.Decimal, error) {
			if !money.GTE(w.ReservedBalance, amt) {
				return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeInsufficientReserve, "insufficient reserved balance")
			}
			w.ReservedBalance = money.Round2(w.ReservedBalance.Sub(amt))
			w.AvailableBalance = money.Round2(w.AvailableBalance.Add(amt))
			return w.AvailableBalance, nil
		},
	})
}

func (s *service) MovePendingToAvailable(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx MutationContext) (*MutationResult, error) {
	return s.mutate(ctx, walletID, amount, mctx, mutation{
		txType:   enums.TransactionTypeMovePending,
		category: enums.TransactionCategorySale,
		action:   enums.AuditActionWalletPendingCleared,
		apply: func(w *models.Wallet, amt decimal.Decimal) (decimal.Decimal, error) {
			if !money.GTE(w.PendingBalance, amt) {
				return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient pending balance")
			}
			w.PendingBalance = money.Round2(w.PendingBalance.Sub(amt))
			w.AvailableBalance = money.Round2(w.AvailableBalance.Add(amt))
			return w.AvailableBalance, nil
		},
	})
}

func (s *service) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*TransactionPage, error) {
	if walletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	txns, err := s.repo.ListTransactions(ctx, walletID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	page := &TransactionPage{Transactions: txns}
	if len(txns) > limit {
		page.Transactions = txns[:limit]
		last := page.Transactions[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// mutation describes one bucket movement. apply mutates the wallet in place
// and returns the post-mutation value of the affected bucket.
type mutation struct {
	txType   enums.TransactionType
	category enums.TransactionCategory
	action   enums.AuditAction
	apply    func(w *models.Wallet, amount decimal.Decimal) (decimal.Decimal, error)
}

func (s *service) mutate(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx MutationContext, m mutation) (*MutationResult, error) {
	if walletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id required")
	}
	amount = money.Round2(amount)
	if !money.IsPositive(amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	if mctx.TransactionID == "" {
		mctx.TransactionID = keys.Generate("TXN")
	}
	if mctx.ReferenceType == "" {
		mctx.ReferenceType = enums.ReferenceTypeManual
	}
	if !mctx.ReferenceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid reference type %q", mctx.ReferenceType))
	}

	var (
		result *MutationResult
		before types.JSONMap
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		wallet, err := repo.FindByIDForUpdate(ctx, walletID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}
		before = balanceMap(wallet)

		balanceAfter, err := m.apply(wallet, amount)
		if err != nil {
			return err
		}
		if err := repo.Save(ctx, wallet); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wallet")
		}

		txn := &models.WalletTransaction{
			TransactionID: mctx.TransactionID,
			WalletID:      wallet.ID,
			Type:          m.txType,
			Category:      m.category,
			Amount:        amount,
			BalanceAfter:  balanceAfter,
			ReferenceType: mctx.ReferenceType,
			ReferenceID:   mctx.ReferenceID,
			Description:   mctx.Description,
			Metadata:      mctx.Metadata,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger row")
		}

		result = &MutationResult{Wallet: wallet, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncLedgerMutation(string(m.txType), string(m.category))
	s.auditor.Record(ctx, audit.RecordEntryInput{
		EntityType: "wallet",
		EntityID:   walletID.String(),
		Action:     m.action,
		ActorID:    mctx.ActorID,
		Before:     before,
		After:      balanceMap(result.Wallet),
		Metadata: types.JSONMap{
			"transaction_id": mctx.TransactionID,
			"amount":         amount.StringFixed(2),
			"reference_type": string(mctx.ReferenceType),
			"reference_id":   mctx.ReferenceID,
		},
	})
	return result, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite wording
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}
	return db.IsUniqueViolation(err, "")
}

func balanceMap(w *models.Wallet) types.JSONMap {
	return types.JSONMap{
		"available_balance": w.AvailableBalance.StringFixed(2),
		"pending_balance":   w.PendingBalance.StringFixed(2),
		"reserved_balance":  w.ReservedBalance.StringFixed(2),
	}
}
