package commission

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/db/models"
)

// Repository reads commission rules. Rules are managed by another surface;
// this service never writes them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context, at time.Time) ([]models.CommissionRule, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commission rule repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListActive(ctx context.Context, at time.Time) ([]models.CommissionRule, error) {
	var rules []models.CommissionRule
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("valid_from IS NULL OR valid_from <= ?", at).
		Where("valid_to IS NULL OR valid_to >= ?", at).
		Order("priority DESC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
