package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketbay/payouts-backend/pkg/enums"
)

// CalculateInput selects the seller and period a settlement covers.
type CalculateInput struct {
	SellerID    uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Currency    enums.Currency
}

// ItemBreakdown is the per-item detail behind a calculation.
type ItemBreakdown struct {
	OrderID          uuid.UUID       `json:"order_id"`
	OrderItemID      uuid.UUID       `json:"order_item_id"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	NetAmount        decimal.Decimal `json:"net_amount"`
}

// CalculationResult aggregates one seller/period settlement computation.
type CalculationResult struct {
	SellerID         uuid.UUID       `json:"seller_id"`
	SellerAccountID  uuid.UUID       `json:"seller_account_id"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	Currency         enums.Currency  `json:"currency"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	Adjustment       decimal.Decimal `json:"adjustment"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	OrderCount       int             `json:"order_count"`
	Breakdown        []ItemBreakdown `json:"breakdown"`
}

// ValidationResult reports whether a settlement period is acceptable.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
