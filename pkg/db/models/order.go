package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/enums"
)

// Order is the read model of a marketplace order this service settles
// against. The order pipeline owns these rows; the calculator only queries.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber   string              `gorm:"column:order_number;type:text;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	Currency      enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	DeliveredAt   *time.Time          `gorm:"column:delivered_at"`
	RefundedAt    *time.Time          `gorm:"column:refunded_at"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key so the model works on every dialect.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
