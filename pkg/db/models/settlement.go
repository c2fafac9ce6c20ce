package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/enums"
	"github.com/marketbay/payouts-backend/pkg/types"
)

// Settlement is one seller/period payout computed by the calculator and
// driven through its lifecycle by the settlement service.
type Settlement struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	SettlementID      string                 `gorm:"column:settlement_id;type:text;not null;uniqueIndex"`
	SellerID          uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;index"`
	SellerAccountID   uuid.UUID              `gorm:"column:seller_account_id;type:uuid;not null"`
	PeriodStart       time.Time              `gorm:"column:period_start;not null"`
	PeriodEnd         time.Time              `gorm:"column:period_end;not null"`
	GrossAmount       decimal.Decimal        `gorm:"column:gross_amount;type:numeric(14,2);not null"`
	CommissionAmount  decimal.Decimal        `gorm:"column:commission_amount;type:numeric(14,2);not null"`
	PlatformFeeAmount decimal.Decimal        `gorm:"column:platform_fee_amount;type:numeric(14,2);not null"`
	TaxAmount         decimal.Decimal        `gorm:"column:tax_amount;type:numeric(14,2);not null"`
	AdjustmentAmount  decimal.Decimal        `gorm:"column:adjustment_amount;type:numeric(14,2);not null"`
	NetAmount         decimal.Decimal        `gorm:"column:net_amount;type:numeric(14,2);not null"`
	OrderCount        int                    `gorm:"column:order_count;not null;default:0"`
	Currency          enums.Currency         `gorm:"column:currency;type:text;not null"`
	Status            enums.SettlementStatus `gorm:"column:status;type:text;not null;default:'CREATED'"`
	PayoutID          *string                `gorm:"column:payout_id;type:text;index"`
	TransferID        *string                `gorm:"column:transfer_id;type:text;index"`
	ProcessedBy       *string                `gorm:"column:processed_by;type:text"`
	CompletedAt       *time.Time             `gorm:"column:completed_at"`
	FailedAt          *time.Time             `gorm:"column:failed_at"`
	FailureReason     *string                `gorm:"column:failure_reason;type:text"`
	FailureCode       *string                `gorm:"column:failure_code;type:text"`
	GatewayResponse   types.JSONMap          `gorm:"column:gateway_response;type:jsonb;serializer:json"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key so the model works on every dialect.
func (s *Settlement) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
