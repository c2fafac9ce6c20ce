package sellers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/db/models"
)

// Repository reads seller payout accounts. Onboarding owns the rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.SellerAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a seller account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.SellerAccount, error) {
	var account models.SellerAccount
	if err := r.db.WithContext(ctx).First(&account, "seller_id = ?", sellerID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}
