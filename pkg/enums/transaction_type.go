package enums

import "fmt"

// TransactionType labels the balance movement a wallet transaction records.
type TransactionType string

const (
	TransactionTypeCredit      TransactionType = "CREDIT"
	TransactionTypeDebit       TransactionType = "DEBIT"
	TransactionTypeReserve     TransactionType = "RESERVE"
	TransactionTypeRelease     TransactionType = "RELEASE"
	TransactionTypeMovePending TransactionType = "MOVE_PENDING"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeCredit,
	TransactionTypeDebit,
	TransactionTypeReserve,
	TransactionTypeRelease,
	TransactionTypeMovePending,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
