package audit

import (
	"context"
	"fmt"

	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
	"github.com/marketbay/payouts-backend/pkg/logger"
	"github.com/marketbay/payouts-backend/pkg/types"
)

// Service records append-only audit entries. Failures are logged and
// swallowed so auditing never blocks the mutation it describes.
type Service interface {
	Record(ctx context.Context, input RecordEntryInput)
	ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditLog, error)
}

// RecordEntryInput captures one state change snapshot.
type RecordEntryInput struct {
	EntityType string
	EntityID   string
	Action     enums.AuditAction
	ActorID    string
	Before     types.JSONMap
	After      types.JSONMap
	Metadata   types.JSONMap
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, input RecordEntryInput) {
	if input.EntityType == "" || input.EntityID == "" || !input.Action.IsValid() {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"entity_type": input.EntityType,
			"entity_id":   input.EntityID,
			"action":      string(input.Action),
		}), "audit entry skipped: incomplete input")
		return
	}

	entry := &models.AuditLog{
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		Action:     input.Action,
		ActorID:    input.ActorID,
		Before:     input.Before,
		After:      input.After,
		Metadata:   input.Metadata,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"entity_type": input.EntityType,
			"entity_id":   input.EntityID,
			"action":      string(input.Action),
		}), "audit entry write failed", err)
	}
}

func (s *service) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditLog, error) {
	if entityType == "" || entityID == "" {
		return nil, fmt.Errorf("entity type and id are required")
	}
	return s.repo.ListByEntity(ctx, entityType, entityID)
}
