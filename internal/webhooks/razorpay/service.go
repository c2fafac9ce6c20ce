package razorpaywebhook

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/internal/audit"
	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
	"github.com/marketbay/payouts-backend/pkg/logger"
	"github.com/marketbay/payouts-backend/pkg/metrics"
	"github.com/marketbay/payouts-backend/pkg/types"
)

// Outcome classifies how an event was handled. Every outcome is acknowledged
// to the provider; only transport-level failures surface as errors.
type Outcome string

const (
	OutcomeProcessed          Outcome = "processed"
	OutcomeIgnored            Outcome = "ignored"
	OutcomeSettlementNotFound Outcome = "settlement_not_found"
)

type settlementLookup interface {
	FindByProviderRef(ctx context.Context, ref string) (*models.Settlement, error)
}

type settlementService interface {
	Complete(ctx context.Context, settlementID string, gatewayResponse types.JSONMap) (*models.Settlement, error)
	Fail(ctx context.Context, settlementID, reason, code string) (*models.Settlement, error)
	Cancel(ctx context.Context, settlementID string) (*models.Settlement, error)
}

type ServiceParams struct {
	Settlements settlementService
	Lookup      settlementLookup
	Auditor     audit.Service
	Metrics     *metrics.PayoutMetrics
	Logger      *logger.Logger
}

// Service reconciles provider payout events against settlements.
type Service struct {
	settlements settlementService
	lookup      settlementLookup
	auditor     audit.Service
	metrics     *metrics.PayoutMetrics
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Settlements == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	if params.Lookup == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement lookup required")
	}
	if params.Auditor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		settlements: params.Settlements,
		lookup:      params.Lookup,
		auditor:     params.Auditor,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// HandleEvent maps a provider event onto a settlement transition. Unknown
// events and events for unknown settlements are acknowledged without
// mutation; transition failures propagate so the caller can let the
// provider retry.
func (s *Service) HandleEvent(ctx context.Context, event *Event) (Outcome, error) {
	if event == nil || event.Event == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}

	action := event.Action()
	switch action {
	case "processed", "failed", "reversed", "cancelled":
	default:
		s.metrics.IncWebhookEvent(event.Event, string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}

	entity := event.Entity()
	if entity == nil || entity.ID == "" {
		s.metrics.IncWebhookEvent(event.Event, "error")
		return "", pkgerrors.New(pkgerrors.CodeValidation, "webhook payload entity missing")
	}

	settlement, err := s.lookup.FindByProviderRef(ctx, entity.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.logg.Warn(ctx, fmt.Sprintf("no settlement for provider ref %s", entity.ID))
			s.metrics.IncWebhookEvent(event.Event, string(OutcomeSettlementNotFound))
			return OutcomeSettlementNotFound, nil
		}
		s.metrics.IncWebhookEvent(event.Event, "error")
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up settlement")
	}

	before := settlement.Status
	ctx = s.logg.WithSettlementID(ctx, settlement.SettlementID)

	var updated *models.Settlement
	switch action {
	case "processed":
		updated, err = s.settlements.Complete(ctx, settlement.SettlementID, gatewayResponse(entity))
	case "failed":
		updated, err = s.settlements.Fail(ctx, settlement.SettlementID, failureReason(entity, "payout failed at provider"), "PAYOUT_FAILED")
	case "reversed":
		updated, err = s.settlements.Fail(ctx, settlement.SettlementID, failureReason(entity, "payout reversed at provider"), "PAYOUT_REVERSED")
	case "cancelled":
		updated, err = s.settlements.Cancel(ctx, settlement.SettlementID)
	}
	if err != nil {
		s.metrics.IncWebhookEvent(event.Event, "error")
		return "", err
	}

	s.metrics.IncWebhookEvent(event.Event, string(OutcomeProcessed))
	s.auditor.Record(ctx, audit.RecordEntryInput{
		EntityType: "settlement",
		EntityID:   settlement.SettlementID,
		Action:     enums.AuditActionWebhookProcessed,
		Before:     types.JSONMap{"status": string(before)},
		After:      types.JSONMap{"status": string(updated.Status)},
		Metadata: types.JSONMap{
			"event":        event.Event,
			"provider_ref": entity.ID,
			"utr":          entity.UTR,
		},
	})
	s.logg.Info(ctx, fmt.Sprintf("webhook %s reconciled settlement %s to %s", event.Event, settlement.SettlementID, updated.Status))
	return OutcomeProcessed, nil
}

func gatewayResponse(entity *Entity) types.JSONMap {
	response := types.JSONMap{
		"provider_ref": entity.ID,
		"status":       entity.Status,
	}
	if entity.UTR != "" {
		response["utr"] = entity.UTR
	}
	if entity.Amount > 0 {
		response["amount"] = entity.Amount
	}
	if entity.ProcessedAt > 0 {
		response["processed_at"] = time.Unix(entity.ProcessedAt, 0).UTC().Format(time.RFC3339)
	}
	return response
}

func failureReason(entity *Entity, fallback string) string {
	if entity.FailureReason != "" {
		return entity.FailureReason
	}
	return fallback
}
