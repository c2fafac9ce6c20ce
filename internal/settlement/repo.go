package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/db/models"
)

// Repository manages persistence for settlements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, settlement *models.Settlement) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	FindBySettlementID(ctx context.Context, settlementID string) (*models.Settlement, error)
	FindByProviderRef(ctx context.Context, ref string) (*models.Settlement, error)
	Save(ctx context.Context, settlement *models.Settlement) error
	ListOverlapping(ctx context.Context, sellerID uuid.UUID, start, end time.Time) ([]models.Settlement, error)
	ListBySellerID(ctx context.Context, sellerID uuid.UUID) ([]models.Settlement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, settlement *models.Settlement) error {
	return r.db.WithContext(ctx).Create(settlement).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	var settlement models.Settlement
	if err := r.db.WithContext(ctx).First(&settlement, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (r *repository) FindBySettlementID(ctx context.Context, settlementID string) (*models.Settlement, error) {
	var settlement models.Settlement
	if err := r.db.WithContext(ctx).First(&settlement, "settlement_id = ?", settlementID).Error; err != nil {
		return nil, err
	}
	return &settlement, nil
}

// FindByProviderRef matches the payout or transfer id a webhook carries.
func (r *repository) FindByProviderRef(ctx context.Context, ref string) (*models.Settlement, error) {
	var settlement models.Settlement
	if err := r.db.WithContext(ctx).
		Where("payout_id = ? OR transfer_id = ?", ref, ref).
		First(&settlement).Error; err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (r *repository) Save(ctx context.Context, settlement *models.Settlement) error {
	return r.db.WithContext(ctx).Save(settlement).Error
}

func (r *repository) ListOverlapping(ctx context.Context, sellerID uuid.UUID, start, end time.Time) ([]models.Settlement, error) {
	var settlements []models.Settlement
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Where("period_start < ? AND period_end > ?", end, start).
		Find(&settlements).Error; err != nil {
		return nil, err
	}
	return settlements, nil
}

func (r *repository) ListBySellerID(ctx context.Context, sellerID uuid.UUID) ([]models.Settlement, error) {
	var settlements []models.Settlement
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&settlements).Error; err != nil {
		return nil, err
	}
	return settlements, nil
}
