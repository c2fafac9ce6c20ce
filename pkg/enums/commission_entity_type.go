package enums

import "fmt"

// CommissionEntityType scopes a commission rule to a marketplace entity.
type CommissionEntityType string

const (
	CommissionEntityTypeGlobal   CommissionEntityType = "GLOBAL"
	CommissionEntityTypeSeller   CommissionEntityType = "SELLER"
	CommissionEntityTypeCategory CommissionEntityType = "CATEGORY"
	CommissionEntityTypeProduct  CommissionEntityType = "PRODUCT"
)

var validCommissionEntityTypes = []CommissionEntityType{
	CommissionEntityTypeGlobal,
	CommissionEntityTypeSeller,
	CommissionEntityTypeCategory,
	CommissionEntityTypeProduct,
}

// String implements fmt.Stringer.
func (t CommissionEntityType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known CommissionEntityType.
func (t CommissionEntityType) IsValid() bool {
	for _, candidate := range validCommissionEntityTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCommissionEntityType converts raw input into a CommissionEntityType.
func ParseCommissionEntityType(value string) (CommissionEntityType, error) {
	for _, candidate := range validCommissionEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission entity type %q", value)
}
