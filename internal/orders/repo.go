package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
)

// Repository reads the order store the settlement calculator settles against.
// The order pipeline owns these rows; this service never writes them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListSettleable(ctx context.Context, sellerID uuid.UUID, start, end time.Time) ([]models.Order, error)
	ListRefunded(ctx context.Context, sellerID uuid.UUID, start, end time.Time) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order read repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListSettleable returns DELIVERED and PAID orders delivered in the window,
// with only the given seller's items preloaded.
func (r *repository) ListSettleable(ctx context.Context, sellerID uuid.UUID, start, end time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status = ?", enums.OrderStatusDelivered, enums.PaymentStatusPaid).
		Where("delivered_at >= ? AND delivered_at < ?", start, end).
		Where("EXISTS (SELECT 1 FROM order_items WHERE order_items.order_id = orders.id AND order_items.seller_id = ?)", sellerID).
		Preload("Items", "seller_id = ?", sellerID).
		Order("delivered_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListRefunded returns orders refunded in the window for the seller.
func (r *repository) ListRefunded(ctx context.Context, sellerID uuid.UUID, start, end time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? OR payment_status = ?", enums.OrderStatusRefunded, enums.PaymentStatusRefunded).
		Where("refunded_at >= ? AND refunded_at < ?", start, end).
		Where("EXISTS (SELECT 1 FROM order_items WHERE order_items.order_id = orders.id AND order_items.seller_id = ?)", sellerID).
		Preload("Items", "seller_id = ?", sellerID).
		Order("refunded_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
