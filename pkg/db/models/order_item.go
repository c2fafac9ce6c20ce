package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem is a seller-attributed line of an order. When the order pipeline
// has already priced commission, CommissionRate/CommissionAmount are nonzero
// and the calculator uses them as-is.
type OrderItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	SellerID         uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	CategoryID       *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	Quantity         int             `gorm:"column:quantity;not null;default:1"`
	TotalPrice       decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null"`
	CommissionRate   decimal.Decimal `gorm:"column:commission_rate;type:numeric(8,6);not null;default:0"`
	CommissionAmount decimal.Decimal `gorm:"column:commission_amount;type:numeric(14,2);not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key so the model works on every dialect.
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
