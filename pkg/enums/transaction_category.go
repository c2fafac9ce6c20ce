package enums

import "fmt"

// TransactionCategory tags the business reason behind a wallet transaction.
type TransactionCategory string

const (
	TransactionCategorySale       TransactionCategory = "SALE"
	TransactionCategoryRefund     TransactionCategory = "REFUND"
	TransactionCategoryAdjustment TransactionCategory = "ADJUSTMENT"
	TransactionCategorySettlement TransactionCategory = "SETTLEMENT"
	TransactionCategoryFee        TransactionCategory = "FEE"
)

var validTransactionCategories = []TransactionCategory{
	TransactionCategorySale,
	TransactionCategoryRefund,
	TransactionCategoryAdjustment,
	TransactionCategorySettlement,
	TransactionCategoryFee,
}

// String implements fmt.Stringer.
func (c TransactionCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known TransactionCategory.
func (c TransactionCategory) IsValid() bool {
	for _, candidate := range validTransactionCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseTransactionCategory converts raw input into a TransactionCategory.
func ParseTransactionCategory(value string) (TransactionCategory, error) {
	for _, candidate := range validTransactionCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction category %q", value)
}
