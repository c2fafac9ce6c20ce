package enums

import "fmt"

// CommissionRuleType identifies how a commission rule computes its amount.
type CommissionRuleType string

const (
	CommissionRuleTypePercentage CommissionRuleType = "PERCENTAGE"
	CommissionRuleTypeFixed      CommissionRuleType = "FIXED"
	CommissionRuleTypeTiered     CommissionRuleType = "TIERED"
)

var validCommissionRuleTypes = []CommissionRuleType{
	CommissionRuleTypePercentage,
	CommissionRuleTypeFixed,
	CommissionRuleTypeTiered,
}

// String implements fmt.Stringer.
func (t CommissionRuleType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known CommissionRuleType.
func (t CommissionRuleType) IsValid() bool {
	for _, candidate := range validCommissionRuleTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCommissionRuleType converts raw input into a CommissionRuleType.
func ParseCommissionRuleType(value string) (CommissionRuleType, error) {
	for _, candidate := range validCommissionRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission rule type %q", value)
}
