package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SellerAccount links a seller to its payout destination. Managed by seller
// onboarding; this service only resolves it.
type SellerAccount struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID       uuid.UUID `gorm:"column:seller_id;type:uuid;not null;uniqueIndex"`
	AccountHolder  string    `gorm:"column:account_holder;type:text;not null"`
	BankAccountRef string    `gorm:"column:bank_account_ref;type:text;not null"`
	IFSC           string    `gorm:"column:ifsc;type:text"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key so the model works on every dialect.
func (a *SellerAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
