package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/enums"
	"github.com/marketbay/payouts-backend/pkg/types"
)

// Wallet holds a seller's funds split across three buckets. The buckets are
// the only persisted balances; the total is always derived from their sum.
type Wallet struct {
	ID                   uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SellerID             uuid.UUID        `gorm:"column:seller_id;type:uuid;not null;uniqueIndex"`
	Currency             enums.Currency   `gorm:"column:currency;type:text;not null;default:'USD'"`
	AvailableBalance     decimal.Decimal  `gorm:"column:available_balance;type:numeric(14,2);not null;default:0"`
	PendingBalance       decimal.Decimal  `gorm:"column:pending_balance;type:numeric(14,2);not null;default:0"`
	ReservedBalance      decimal.Decimal  `gorm:"column:reserved_balance;type:numeric(14,2);not null;default:0"`
	LastSettlementAt     *time.Time       `gorm:"column:last_settlement_at"`
	LastSettlementAmount *decimal.Decimal `gorm:"column:last_settlement_amount;type:numeric(14,2)"`
	Metadata             types.JSONMap    `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt            time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key so the model works on every dialect.
func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// TotalBalance is the derived sum of the three buckets.
func (w *Wallet) TotalBalance() decimal.Decimal {
	return w.AvailableBalance.Add(w.PendingBalance).Add(w.ReservedBalance)
}
