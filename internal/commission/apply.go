package commission

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
	"github.com/marketbay/payouts-backend/pkg/money"
)

// Applied is the outcome of commission math for one item.
type Applied struct {
	Amount decimal.Decimal
	// Rate is the effective rate recomputed from the final (clamped) amount.
	Rate decimal.Decimal
}

// Apply computes the commission for a gross amount under the given rule.
// A nil rule applies the default rate. The amount is clamped to the rule's
// min/max bounds and the effective rate recomputed from the clamped value.
func Apply(rule *models.CommissionRule, gross decimal.Decimal, defaultRate decimal.Decimal) Applied {
	gross = money.Round2(gross)
	if !gross.IsPositive() {
		return Applied{Amount: money.Zero(), Rate: money.Zero()}
	}

	var amount decimal.Decimal
	switch {
	case rule == nil:
		amount = money.Round2(gross.Mul(defaultRate))
	case rule.Type == enums.CommissionRuleTypePercentage:
		amount = money.Round2(gross.Mul(rule.Rate))
	case rule.Type == enums.CommissionRuleTypeFixed:
		amount = money.Round2(rule.FixedAmount)
	case rule.Type == enums.CommissionRuleTypeTiered:
		amount = applyTiers(rule.Tiers, gross)
	default:
		amount = money.Round2(gross.Mul(defaultRate))
	}

	if rule != nil {
		if rule.MinAmount != nil && amount.LessThan(*rule.MinAmount) {
			amount = money.Round2(*rule.MinAmount)
		}
		if rule.MaxAmount != nil && amount.GreaterThan(*rule.MaxAmount) {
			amount = money.Round2(*rule.MaxAmount)
		}
	}

	return Applied{
		Amount: amount,
		Rate:   amount.Div(gross).Round(6),
	}
}

// applyTiers charges each slice of the gross at its own rate: the portion of
// gross between one threshold and the next is billed at that tier's rate.
func applyTiers(tiers []models.CommissionTier, gross decimal.Decimal) decimal.Decimal {
	if len(tiers) == 0 {
		return money.Zero()
	}

	sorted := make([]models.CommissionTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Threshold.LessThan(sorted[j].Threshold)
	})

	total := money.Zero()
	for i, tier := range sorted {
		if gross.LessThanOrEqual(tier.Threshold) {
			break
		}
		upper := gross
		if i+1 < len(sorted) && sorted[i+1].Threshold.LessThan(gross) {
			upper = sorted[i+1].Threshold
		}
		slice := upper.Sub(tier.Threshold)
		total = total.Add(slice.Mul(tier.Rate))
	}
	return money.Round2(total)
}
