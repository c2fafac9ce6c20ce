package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/enums"
)

// CommissionTier is one slice of a tiered commission schedule. Threshold is
// the inclusive lower bound of the slice the rate applies to.
type CommissionTier struct {
	Threshold decimal.Decimal `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
}

// CommissionRule configures how commission is computed for a scope. Rules are
// managed elsewhere; the calculator only reads them.
type CommissionRule struct {
	ID          uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	Type        enums.CommissionRuleType   `gorm:"column:type;type:text;not null"`
	EntityType  enums.CommissionEntityType `gorm:"column:entity_type;type:text;not null"`
	EntityID    *uuid.UUID                 `gorm:"column:entity_id;type:uuid;index"`
	Rate        decimal.Decimal            `gorm:"column:rate;type:numeric(8,6);not null;default:0"`
	FixedAmount decimal.Decimal            `gorm:"column:fixed_amount;type:numeric(14,2);not null;default:0"`
	Tiers       []CommissionTier           `gorm:"column:tiers;type:jsonb;serializer:json"`
	MinAmount   *decimal.Decimal           `gorm:"column:min_amount;type:numeric(14,2)"`
	MaxAmount   *decimal.Decimal           `gorm:"column:max_amount;type:numeric(14,2)"`
	Priority    int                        `gorm:"column:priority;not null;default:0"`
	ValidFrom   *time.Time                 `gorm:"column:valid_from"`
	ValidTo     *time.Time                 `gorm:"column:valid_to"`
	IsActive    bool                       `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key so the model works on every dialect.
func (r *CommissionRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// InEffect reports whether the rule is active at the given instant.
func (r *CommissionRule) InEffect(at time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ValidFrom != nil && at.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && at.After(*r.ValidTo) {
		return false
	}
	return true
}
