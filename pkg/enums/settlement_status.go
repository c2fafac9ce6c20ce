package enums

import "fmt"

// SettlementStatus tracks the lifecycle of a seller settlement.
type SettlementStatus string

const (
	SettlementStatusCreated    SettlementStatus = "CREATED"
	SettlementStatusReserved   SettlementStatus = "RESERVED"
	SettlementStatusProcessing SettlementStatus = "PROCESSING"
	SettlementStatusCompleted  SettlementStatus = "COMPLETED"
	SettlementStatusFailed     SettlementStatus = "FAILED"
	SettlementStatusCancelled  SettlementStatus = "CANCELLED"
)

var validSettlementStatuses = []SettlementStatus{
	SettlementStatusCreated,
	SettlementStatusReserved,
	SettlementStatusProcessing,
	SettlementStatusCompleted,
	SettlementStatusFailed,
	SettlementStatusCancelled,
}

// allowedSettlementTransitions lists the forward-only edges of the lifecycle.
var allowedSettlementTransitions = map[SettlementStatus][]SettlementStatus{
	SettlementStatusCreated:    {SettlementStatusReserved, SettlementStatusCancelled},
	SettlementStatusReserved:   {SettlementStatusProcessing, SettlementStatusCancelled},
	SettlementStatusProcessing: {SettlementStatusCompleted, SettlementStatusFailed},
}

// String implements fmt.Stringer.
func (s SettlementStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementStatus.
func (s SettlementStatus) IsValid() bool {
	for _, candidate := range validSettlementStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status accepts no further transitions.
func (s SettlementStatus) IsTerminal() bool {
	switch s {
	case SettlementStatusCompleted, SettlementStatusFailed, SettlementStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s SettlementStatus) CanTransitionTo(target SettlementStatus) bool {
	for _, candidate := range allowedSettlementTransitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseSettlementStatus converts raw input into a SettlementStatus.
func ParseSettlementStatus(value string) (SettlementStatus, error) {
	for _, candidate := range validSettlementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement status %q", value)
}
