package sellers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/db/models"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
)

// Resolver looks up the payout account a settlement pays into.
type Resolver struct {
	repo Repository
}

// NewResolver wires a seller account resolver.
func NewResolver(repo Repository) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("seller account repository required")
	}
	return &Resolver{repo: repo}, nil
}

// Resolve returns the active payout account for a seller.
func (r *Resolver) Resolve(ctx context.Context, sellerID uuid.UUID) (*models.SellerAccount, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	account, err := r.repo.FindBySellerID(ctx, sellerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller account")
	}
	if !account.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller account is inactive")
	}
	return account, nil
}
