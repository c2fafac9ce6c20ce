package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/enums"
	"github.com/marketbay/payouts-backend/pkg/types"
)

// WalletTransaction is the append-only ledger entry created exactly once per
// wallet mutation. BalanceAfter snapshots the mutated bucket, not the total.
type WalletTransaction struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID string                    `gorm:"column:transaction_id;type:text;not null;uniqueIndex"`
	WalletID      uuid.UUID                 `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type          enums.TransactionType     `gorm:"column:type;type:text;not null"`
	Category      enums.TransactionCategory `gorm:"column:category;type:text;not null"`
	Amount        decimal.Decimal           `gorm:"column:amount;type:numeric(14,2);not null"`
	BalanceAfter  decimal.Decimal           `gorm:"column:balance_after;type:numeric(14,2);not null"`
	ReferenceType enums.ReferenceType       `gorm:"column:reference_type;type:text;not null"`
	ReferenceID   string                    `gorm:"column:reference_id;type:text"`
	Description   string                    `gorm:"column:description;type:text"`
	Metadata      types.JSONMap             `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key so the model works on every dialect.
func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
