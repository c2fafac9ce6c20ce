package enums

import "fmt"

// ReferenceType discriminates what a wallet transaction's reference id points at.
type ReferenceType string

const (
	ReferenceTypeOrder      ReferenceType = "ORDER"
	ReferenceTypeSettlement ReferenceType = "SETTLEMENT"
	ReferenceTypeRefund     ReferenceType = "REFUND"
	ReferenceTypeManual     ReferenceType = "MANUAL"
)

var validReferenceTypes = []ReferenceType{
	ReferenceTypeOrder,
	ReferenceTypeSettlement,
	ReferenceTypeRefund,
	ReferenceTypeManual,
}

// String implements fmt.Stringer.
func (r ReferenceType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReferenceType.
func (r ReferenceType) IsValid() bool {
	for _, candidate := range validReferenceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReferenceType converts raw input into a ReferenceType.
func ParseReferenceType(value string) (ReferenceType, error) {
	for _, candidate := range validReferenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reference type %q", value)
}
