package settlement

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/marketbay/payouts-backend/internal/commission"
	"github.com/marketbay/payouts-backend/internal/orders"
	"github.com/marketbay/payouts-backend/internal/sellers"
	"github.com/marketbay/payouts-backend/pkg/config"
	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
	"github.com/marketbay/payouts-backend/pkg/money"
)

// Calculator computes the settlement amounts for a seller and period.
type Calculator struct {
	orders   orders.Repository
	rules    *commission.Resolver
	accounts *sellers.Resolver
	policy   config.SettlementConfig
}

// NewCalculator wires a settlement calculator with its read stores.
func NewCalculator(ordersRepo orders.Repository, rules *commission.Resolver, accounts *sellers.Resolver, policy config.SettlementConfig) (*Calculator, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if rules == nil {
		return nil, fmt.Errorf("commission resolver required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("seller account resolver required")
	}
	return &Calculator{orders: ordersRepo, rules: rules, accounts: accounts, policy: policy}, nil
}

// Calculate runs the full money math for the period. A period with no
// settleable orders yields an all-zero result, not an error.
func (c *Calculator) Calculate(ctx context.Context, input CalculateInput) (*CalculationResult, error) {
	if !input.PeriodStart.Before(input.PeriodEnd) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period start must precede period end")
	}
	if input.Currency == "" {
		input.Currency = enums.CurrencyUSD
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}

	account, err := c.accounts.Resolve(ctx, input.SellerID)
	if err != nil {
		return nil, err
	}

	settleable, err := c.orders.ListSettleable(ctx, input.SellerID, input.PeriodStart, input.PeriodEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settleable orders")
	}

	activeRules, err := c.rules.ActiveRules(ctx, input.PeriodEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission rules")
	}

	result := &CalculationResult{
		SellerID:         input.SellerID,
		SellerAccountID:  account.ID,
		PeriodStart:      input.PeriodStart,
		PeriodEnd:        input.PeriodEnd,
		Currency:         input.Currency,
		GrossAmount:      money.Zero(),
		CommissionAmount: money.Zero(),
		PlatformFee:      money.Zero(),
		TaxAmount:        money.Zero(),
		Adjustment:       money.Zero(),
		NetAmount:        money.Zero(),
	}

	feeRate := c.policy.PlatformFee()
	taxRate := c.policy.Tax()
	defaultRate := c.policy.DefaultCommission()

	for _, order := range settleable {
		counted := false
		for _, item := range order.Items {
			gross := money.Round2(item.TotalPrice)
			if !gross.IsPositive() {
				continue
			}
			counted = true

			rate, amount := c.commissionFor(item, activeRules, input, gross, defaultRate)
			fee := money.Round2(gross.Mul(feeRate))
			// tax is levied on the commission, not the gross
			tax := money.Round2(amount.Mul(taxRate))
			net := gross.Sub(amount).Sub(fee).Sub(tax)

			result.GrossAmount = result.GrossAmount.Add(gross)
			result.CommissionAmount = result.CommissionAmount.Add(amount)
			result.PlatformFee = result.PlatformFee.Add(fee)
			result.TaxAmount = result.TaxAmount.Add(tax)
			result.Breakdown = append(result.Breakdown, ItemBreakdown{
				OrderID:          order.ID,
				OrderItemID:      item.ID,
				GrossAmount:      gross,
				CommissionRate:   rate,
				CommissionAmount: amount,
				PlatformFee:      fee,
				TaxAmount:        tax,
				NetAmount:        money.Round2(net),
			})
		}
		if counted {
			result.OrderCount++
		}
	}

	refunded, err := c.orders.ListRefunded(ctx, input.SellerID, input.PeriodStart, input.PeriodEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refunded orders")
	}
	for _, order := range refunded {
		for _, item := range order.Items {
			gross := money.Round2(item.TotalPrice)
			if !gross.IsPositive() {
				continue
			}
			_, amount := c.commissionFor(item, activeRules, input, gross, defaultRate)
			// the seller hands back the net proceeds of the refunded item once
			result.Adjustment = result.Adjustment.Sub(gross.Sub(amount))
		}
	}
	result.Adjustment = money.Round2(result.Adjustment)

	result.NetAmount = money.Round2(
		result.GrossAmount.
			Sub(result.CommissionAmount).
			Sub(result.PlatformFee).
			Sub(result.TaxAmount).
			Add(result.Adjustment),
	)
	return result, nil
}

// commissionFor prefers the commission the order pipeline already priced on
// the item; otherwise it resolves and applies the active rule.
func (c *Calculator) commissionFor(item models.OrderItem, activeRules []models.CommissionRule, input CalculateInput, gross, defaultRate decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if item.CommissionRate.IsPositive() && item.CommissionAmount.IsPositive() {
		return item.CommissionRate, money.Round2(item.CommissionAmount)
	}
	rule := c.rules.ResolveForItem(activeRules, commission.ItemScope{
		SellerID:   item.SellerID,
		CategoryID: item.CategoryID,
		ProductID:  item.ProductID,
	}, input.PeriodEnd)
	applied := commission.Apply(rule, gross, defaultRate)
	return applied.Rate, applied.Amount
}
