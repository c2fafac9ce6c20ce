package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/enums"
	"github.com/marketbay/payouts-backend/pkg/types"
)

// AuditLog records an immutable before/after snapshot of a state change.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	EntityType string            `gorm:"column:entity_type;type:text;not null;index:idx_audit_entity"`
	EntityID   string            `gorm:"column:entity_id;type:text;not null;index:idx_audit_entity"`
	Action     enums.AuditAction `gorm:"column:action;type:text;not null"`
	ActorID    string            `gorm:"column:actor_id;type:text"`
	Before     types.JSONMap     `gorm:"column:before;type:jsonb;serializer:json"`
	After      types.JSONMap     `gorm:"column:after;type:jsonb;serializer:json"`
	Metadata   types.JSONMap     `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key so the model works on every dialect.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
