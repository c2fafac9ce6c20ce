package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketbay/payouts-backend/api/responses"
	"github.com/marketbay/payouts-backend/api/validators"
	"github.com/marketbay/payouts-backend/internal/wallet"
	"github.com/marketbay/payouts-backend/pkg/enums"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
	"github.com/marketbay/payouts-backend/pkg/logger"
	"github.com/marketbay/payouts-backend/pkg/pagination"
	"github.com/marketbay/payouts-backend/pkg/types"
)

type walletCreateRequest struct {
	SellerID string `json:"seller_id" validate:"required"`
	Currency string `json:"currency,omitempty"`
}

// WalletCreate opens a ledger wallet for a seller.
func WalletCreate(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		var payload walletCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID, err := uuid.Parse(payload.SellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
			return
		}

		currency := enums.Currency(strings.ToUpper(strings.TrimSpace(payload.Currency)))
		created, err := svc.CreateWallet(r.Context(), sellerID, currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// WalletBalance returns the point-in-time bucket snapshot.
func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		walletID, err := walletIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.BalanceSnapshot(r.Context(), walletID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

// WalletSettlable returns the amount a settlement could reserve right now.
func WalletSettlable(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		walletID, err := walletIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := svc.SettlableAmount(r.Context(), walletID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"settlable_amount": amount.StringFixed(2)})
	}
}

// WalletTransactions pages through the wallet ledger, newest first.
func WalletTransactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		walletID, err := walletIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListTransactions(r.Context(), walletID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

type walletMutationRequest struct {
	Amount        string        `json:"amount" validate:"required"`
	Category      string        `json:"category,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`
	ReferenceType string        `json:"reference_type,omitempty"`
	ReferenceID   string        `json:"reference_id,omitempty"`
	Description   string        `json:"description,omitempty"`
	ActorID       string        `json:"actor_id,omitempty"`
	Metadata      types.JSONMap `json:"metadata,omitempty"`
}

func (req walletMutationRequest) amount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}
	return amount, nil
}

func (req walletMutationRequest) category() (enums.TransactionCategory, error) {
	if strings.TrimSpace(req.Category) == "" {
		return enums.TransactionCategoryAdjustment, nil
	}
	category, err := enums.ParseTransactionCategory(strings.ToUpper(strings.TrimSpace(req.Category)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	return category, nil
}

func (req walletMutationRequest) mutationContext() (wallet.MutationContext, error) {
	mctx := wallet.MutationContext{
		TransactionID: strings.TrimSpace(req.TransactionID),
		ReferenceID:   strings.TrimSpace(req.ReferenceID),
		Description:   strings.TrimSpace(req.Description),
		ActorID:       strings.TrimSpace(req.ActorID),
		Metadata:      req.Metadata,
	}
	if strings.TrimSpace(req.ReferenceType) != "" {
		refType, err := enums.ParseReferenceType(strings.ToUpper(strings.TrimSpace(req.ReferenceType)))
		if err != nil {
			return wallet.MutationContext{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reference type")
		}
		mctx.ReferenceType = refType
	}
	return mctx, nil
}

type categoryMutationFunc func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, category enums.TransactionCategory, mctx wallet.MutationContext) (*wallet.MutationResult, error)

type plainMutationFunc func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx wallet.MutationContext) (*wallet.MutationResult, error)

// WalletCredit adds funds to the wallet; SALE credits land in pending.
func WalletCredit(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return categoryMutationHandler(svc, logg, func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, category enums.TransactionCategory, mctx wallet.MutationContext) (*wallet.MutationResult, error) {
		return svc.Credit(ctx, walletID, amount, category, mctx)
	})
}

// WalletDebit removes funds; SETTLEMENT debits draw from the reserved bucket.
func WalletDebit(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return categoryMutationHandler(svc, logg, func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, category enums.TransactionCategory, mctx wallet.MutationContext) (*wallet.MutationResult, error) {
		return svc.Debit(ctx, walletID, amount, category, mctx)
	})
}

// WalletReserve moves funds from available to reserved.
func WalletReserve(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return plainMutationHandler(svc, logg, func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx wallet.MutationContext) (*wallet.MutationResult, error) {
		return svc.Reserve(ctx, walletID, amount, mctx)
	})
}

// WalletRelease moves funds from reserved back to available.
func WalletRelease(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return plainMutationHandler(svc, logg, func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx wallet.MutationContext) (*wallet.MutationResult, error) {
		return svc.Release(ctx, walletID, amount, mctx)
	})
}

// WalletMovePending clears matured pending funds into available.
func WalletMovePending(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return plainMutationHandler(svc, logg, func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, mctx wallet.MutationContext) (*wallet.MutationResult, error) {
		return svc.MovePendingToAvailable(ctx, walletID, amount, mctx)
	})
}

func categoryMutationHandler(svc wallet.Service, logg *logger.Logger, mutate categoryMutationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		walletID, payload, err := decodeMutation(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := payload.amount()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := payload.category()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mctx, err := payload.mutationContext()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := mutate(r.Context(), walletID, amount, category, mctx)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func plainMutationHandler(svc wallet.Service, logg *logger.Logger, mutate plainMutationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		walletID, payload, err := decodeMutation(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := payload.amount()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mctx, err := payload.mutationContext()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := mutate(r.Context(), walletID, amount, mctx)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func decodeMutation(r *http.Request) (uuid.UUID, walletMutationRequest, error) {
	walletID, err := walletIDParam(r)
	if err != nil {
		return uuid.Nil, walletMutationRequest{}, err
	}
	var payload walletMutationRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return uuid.Nil, walletMutationRequest{}, err
	}
	return walletID, payload, nil
}

func walletIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "walletId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id is required")
	}
	walletID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet id")
	}
	return walletID, nil
}
