package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/internal/audit"
	"github.com/marketbay/payouts-backend/internal/notifications"
	"github.com/marketbay/payouts-backend/internal/wallet"
	"github.com/marketbay/payouts-backend/pkg/config"
	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
	"github.com/marketbay/payouts-backend/pkg/keys"
	"github.com/marketbay/payouts-backend/pkg/metrics"
	"github.com/marketbay/payouts-backend/pkg/money"
	"github.com/marketbay/payouts-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives a settlement through its lifecycle, coordinating the wallet
// ledger on every transition that moves money.
type Service interface {
	Create(ctx context.Context, input CalculateInput) (*models.Settlement, error)
	Calculate(ctx context.Context, input CalculateInput) (*CalculationResult, error)
	ValidatePeriod(ctx context.Context, sellerID uuid.UUID, start, end time.Time) (*ValidationResult, error)
	Get(ctx context.Context, settlementID string) (*models.Settlement, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Settlement, error)
	StartProcessing(ctx context.Context, settlementID, payoutID, processedBy string) (*models.Settlement, error)
	Complete(ctx context.Context, settlementID string, gatewayResponse types.JSONMap) (*models.Settlement, error)
	Fail(ctx context.Context, settlementID, reason, code string) (*models.Settlement, error)
	Cancel(ctx context.Context, settlementID string) (*models.Settlement, error)
}

type service struct {
	repo     Repository
	calc     *Calculator
	wallets  wallet.Service
	tx       txRunner
	auditor  audit.Service
	notifier notifications.Publisher
	metrics  *metrics.PayoutMetrics
	policy   config.SettlementConfig
}

// NewService wires the settlement service with its collaborators.
func NewService(
	repo Repository,
	calc *Calculator,
	wallets wallet.Service,
	tx txRunner,
	auditor audit.Service,
	notifier notifications.Publisher,
	m *metrics.PayoutMetrics,
	policy config.SettlementConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if calc == nil {
		return nil, fmt.Errorf("calculator required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification publisher required")
	}
	return &service{
		repo:     repo,
		calc:     calc,
		wallets:  wallets,
		tx:       tx,
		auditor:  auditor,
		notifier: notifier,
		metrics:  m,
		policy:   policy,
	}, nil
}

func (s *service) Calculate(ctx context.Context, input CalculateInput) (*CalculationResult, error) {
	return s.calc.Calculate(ctx, input)
}

// Create computes the period, persists the settlement, and reserves the net
// amount in one transaction. A wallet that cannot cover the net leaves
// nothing behind.
func (s *service) Create(ctx context.Context, input CalculateInput) (*models.Settlement, error) {
	result, err := s.calc.Calculate(ctx, input)
	if err != nil {
		return nil, err
	}
	if !result.NetAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement net amount must be positive")
	}

	w, err := s.wallets.GetWalletBySellerID(ctx, input.SellerID)
	if err != nil {
		return nil, err
	}

	settlement := &models.Settlement{
		SettlementID:      keys.Generate("STL"),
		SellerID:          result.SellerID,
		SellerAccountID:   result.SellerAccountID,
		PeriodStart:       result.PeriodStart,
		PeriodEnd:         result.PeriodEnd,
		GrossAmount:       result.GrossAmount,
		CommissionAmount:  result.CommissionAmount,
		PlatformFeeAmount: result.PlatformFee,
		TaxAmount:         result.TaxAmount,
		AdjustmentAmount:  result.Adjustment,
		NetAmount:         result.NetAmount,
		OrderCount:        result.OrderCount,
		Currency:          result.Currency,
		Status:            enums.SettlementStatusCreated,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, settlement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist settlement")
		}
		if _, err := s.wallets.WithTx(tx).Reserve(ctx, w.ID, settlement.NetAmount, wallet.MutationContext{
			ReferenceType: enums.ReferenceTypeSettlement,
			ReferenceID:   settlement.SettlementID,
			Description:   "settlement reservation",
		}); err != nil {
			return err
		}
		settlement.Status = enums.SettlementStatusReserved
		if err := repo.Save(ctx, settlement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark settlement reserved")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSettlementTransition(string(enums.SettlementStatusCreated), string(enums.SettlementStatusReserved))
	s.auditor.Record(ctx, audit.RecordEntryInput{
		EntityType: "settlement",
		EntityID:   settlement.SettlementID,
		Action:     enums.AuditActionSettlementCreated,
		After: types.JSONMap{
			"status":     string(settlement.Status),
			"net_amount": settlement.NetAmount.StringFixed(2),
		},
	})
	s.notifier.SettlementChanged(ctx, notifications.SettlementEvent{
		Type:         "settlement.created",
		SettlementID: settlement.SettlementID,
		SellerID:     settlement.SellerID,
		NetAmount:    settlement.NetAmount.StringFixed(2),
		Status:       string(settlement.Status),
	})
	return settlement, nil
}

func (s *service) Get(ctx context.Context, settlementID string) (*models.Settlement, error) {
	if settlementID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id required")
	}
	settlement, err := s.repo.FindBySettlementID(ctx, settlementID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement")
	}
	return settlement, nil
}

func (s *service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Settlement, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	settlements, err := s.repo.ListBySellerID(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlements")
	}
	return settlements, nil
}

func (s *service) StartProcessing(ctx context.Context, settlementID, payoutID, processedBy string) (*models.Settlement, error) {
	if payoutID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	return s.transition(ctx, settlementID, enums.SettlementStatusProcessing, enums.AuditActionSettlementProcessing,
		func(tx *gorm.DB, settlement *models.Settlement) error {
			settlement.PayoutID = &payoutID
			if processedBy != "" {
				settlement.ProcessedBy = &processedBy
			}
			return nil
		})
}

func (s *service) Complete(ctx context.Context, settlementID string, gatewayResponse types.JSONMap) (*models.Settlement, error) {
	settlement, err := s.transition(ctx, settlementID, enums.SettlementStatusCompleted, enums.AuditActionSettlementCompleted,
		func(tx *gorm.DB, settlement *models.Settlement) error {
			w, err := s.wallets.WithTx(tx).GetWalletBySellerID(ctx, settlement.SellerID)
			if err != nil {
				return err
			}
			if _, err := s.wallets.WithTx(tx).SettleDebit(ctx, w.ID, settlement.NetAmount, wallet.MutationContext{
				ReferenceType: enums.ReferenceTypeSettlement,
				ReferenceID:   settlement.SettlementID,
				Description:   "settlement payout",
			}); err != nil {
				return err
			}
			now := time.Now().UTC()
			settlement.CompletedAt = &now
			if gatewayResponse != nil {
				settlement.GatewayResponse = gatewayResponse
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *service) Fail(ctx context.Context, settlementID, reason, code string) (*models.Settlement, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failure reason required")
	}
	return s.transition(ctx, settlementID, enums.SettlementStatusFailed, enums.AuditActionSettlementFailed,
		func(tx *gorm.DB, settlement *models.Settlement) error {
			w, err := s.wallets.WithTx(tx).GetWalletBySellerID(ctx, settlement.SellerID)
			if err != nil {
				return err
			}
			if _, err := s.wallets.WithTx(tx).Release(ctx, w.ID, settlement.NetAmount, wallet.MutationContext{
				ReferenceType: enums.ReferenceTypeSettlement,
				ReferenceID:   settlement.SettlementID,
				Description:   "settlement reservation released after failure",
			}); err != nil {
				return err
			}
			now := time.Now().UTC()
			settlement.FailedAt = &now
			settlement.FailureReason = &reason
			if code != "" {
				settlement.FailureCode = &code
			}
			return nil
		})
}

func (s *service) Cancel(ctx context.Context, settlementID string) (*models.Settlement, error) {
	return s.transition(ctx, settlementID, enums.SettlementStatusCancelled, enums.AuditActionSettlementCancelled,
		func(tx *gorm.DB, settlement *models.Settlement) error {
			// only a reserved settlement holds funds
			if settlement.Status != enums.SettlementStatusReserved {
				return nil
			}
			w, err := s.wallets.WithTx(tx).GetWalletBySellerID(ctx, settlement.SellerID)
			if err != nil {
				return err
			}
			_, err = s.wallets.WithTx(tx).Release(ctx, w.ID, settlement.NetAmount, wallet.MutationContext{
				ReferenceType: enums.ReferenceTypeSettlement,
				ReferenceID:   settlement.SettlementID,
				Description:   "settlement cancelled",
			})
			return err
		})
}

// transition loads the settlement, applies the movement inside one
// transaction, and emits metrics, audit, and notification afterward.
// Re-triggering a transition the settlement already made is a no-op success.
func (s *service) transition(
	ctx context.Context,
	settlementID string,
	target enums.SettlementStatus,
	action enums.AuditAction,
	mutate func(tx *gorm.DB, settlement *models.Settlement) error,
) (*models.Settlement, error) {
	if settlementID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id required")
	}

	var (
		settlement *models.Settlement
		from       enums.SettlementStatus
		applied    bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindBySettlementID(ctx, settlementID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement")
		}
		settlement = loaded
		from = loaded.Status

		if from == target {
			return nil
		}
		if !from.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition settlement from %s to %s", from, target))
		}

		if err := mutate(tx, settlement); err != nil {
			return err
		}
		settlement.Status = target
		if err := repo.Save(ctx, settlement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settlement")
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return settlement, nil
	}

	s.metrics.IncSettlementTransition(string(from), string(target))
	if target.IsTerminal() {
		s.metrics.ObserveSettlementDuration(string(target), time.Since(settlement.CreatedAt))
	}
	s.auditor.Record(ctx, audit.RecordEntryInput{
		EntityType: "settlement",
		EntityID:   settlement.SettlementID,
		Action:     action,
		Before:     types.JSONMap{"status": string(from)},
		After:      types.JSONMap{"status": string(target)},
	})
	s.notifier.SettlementChanged(ctx, notifications.SettlementEvent{
		Type:         "settlement." + statusEventSuffix(target),
		SettlementID: settlement.SettlementID,
		SellerID:     settlement.SellerID,
		NetAmount:    money.Round2(settlement.NetAmount).StringFixed(2),
		Status:       string(target),
	})
	return settlement, nil
}

func statusEventSuffix(status enums.SettlementStatus) string {
	switch status {
	case enums.SettlementStatusProcessing:
		return "processing"
	case enums.SettlementStatusCompleted:
		return "completed"
	case enums.SettlementStatusFailed:
		return "failed"
	case enums.SettlementStatusCancelled:
		return "cancelled"
	default:
		return "updated"
	}
}
