package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marketbay/payouts-backend/pkg/enums"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
)

// ValidatePeriod checks a proposed settlement window. Errors block creation;
// warnings are advisory.
func (s *service) ValidatePeriod(ctx context.Context, sellerID uuid.UUID, start, end time.Time) (*ValidationResult, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}

	result := &ValidationResult{IsValid: true}
	now := time.Now().UTC()

	if !start.Before(end) {
		result.IsValid = false
		result.Errors = append(result.Errors, "period start must precede period end")
	}
	if end.After(now) {
		result.IsValid = false
		result.Errors = append(result.Errors, "period end cannot be in the future")
	}
	if !result.IsValid {
		return result, nil
	}

	overlapping, err := s.repo.ListOverlapping(ctx, sellerID, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check overlapping settlements")
	}
	for _, existing := range overlapping {
		if existing.Status == enums.SettlementStatusCancelled {
			continue
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("period overlaps settlement %s (%s)", existing.SettlementID, existing.Status))
	}

	holdUntil := end.Add(s.policy.HoldPeriod())
	if now.Before(holdUntil) {
		remaining := int(holdUntil.Sub(now).Hours()/24) + 1
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("period is inside the hold window; %d day(s) remaining", remaining))
	}

	return result, nil
}
