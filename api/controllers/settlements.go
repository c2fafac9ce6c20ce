package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marketbay/payouts-backend/api/responses"
	"github.com/marketbay/payouts-backend/api/validators"
	"github.com/marketbay/payouts-backend/internal/settlement"
	"github.com/marketbay/payouts-backend/pkg/enums"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
	"github.com/marketbay/payouts-backend/pkg/logger"
	"github.com/marketbay/payouts-backend/pkg/types"
)

type settlementPeriodRequest struct {
	SellerID    string `json:"seller_id" validate:"required"`
	PeriodStart string `json:"period_start" validate:"required"`
	PeriodEnd   string `json:"period_end" validate:"required"`
	Currency    string `json:"currency,omitempty"`
}

func (req settlementPeriodRequest) toInput() (settlement.CalculateInput, error) {
	sellerID, err := uuid.Parse(strings.TrimSpace(req.SellerID))
	if err != nil {
		return settlement.CalculateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id")
	}
	start, err := time.Parse(time.RFC3339, req.PeriodStart)
	if err != nil {
		return settlement.CalculateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid period start")
	}
	end, err := time.Parse(time.RFC3339, req.PeriodEnd)
	if err != nil {
		return settlement.CalculateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid period end")
	}
	return settlement.CalculateInput{
		SellerID:    sellerID,
		PeriodStart: start.UTC(),
		PeriodEnd:   end.UTC(),
		Currency:    enums.Currency(strings.ToUpper(strings.TrimSpace(req.Currency))),
	}, nil
}

// SettlementCreate calculates the period and reserves the net amount.
func SettlementCreate(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var payload settlementPeriodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// SettlementCalculate runs the money math without persisting anything.
func SettlementCalculate(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var payload settlementPeriodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Calculate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// SettlementValidate checks a proposed period for overlap and hold issues.
func SettlementValidate(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var payload settlementPeriodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ValidatePeriod(r.Context(), input.SellerID, input.PeriodStart, input.PeriodEnd)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// SettlementGet returns one settlement by its display ID.
func SettlementGet(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		settlementID, err := settlementIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, err := svc.Get(r.Context(), settlementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, found)
	}
}

// SettlementsBySeller lists a seller's settlements, newest first.
func SettlementsBySeller(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		sellerID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "sellerId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
			return
		}

		settlements, err := svc.ListBySeller(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, settlements)
	}
}

type settlementProcessRequest struct {
	PayoutID    string `json:"payout_id" validate:"required"`
	ProcessedBy string `json:"processed_by,omitempty"`
}

// SettlementProcess moves a reserved settlement into processing.
func SettlementProcess(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		settlementID, err := settlementIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload settlementProcessRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.StartProcessing(r.Context(), settlementID, strings.TrimSpace(payload.PayoutID), strings.TrimSpace(payload.ProcessedBy))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

type settlementCompleteRequest struct {
	GatewayResponse types.JSONMap `json:"gateway_response,omitempty"`
}

// SettlementComplete finishes a processing settlement and pays out the reserve.
func SettlementComplete(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		settlementID, err := settlementIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload settlementCompleteRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		updated, err := svc.Complete(r.Context(), settlementID, payload.GatewayResponse)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

type settlementFailRequest struct {
	Reason string `json:"reason" validate:"required"`
	Code   string `json:"code,omitempty"`
}

// SettlementFail fails a processing settlement and releases its reserve.
func SettlementFail(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		settlementID, err := settlementIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload settlementFailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Fail(r.Context(), settlementID, strings.TrimSpace(payload.Reason), strings.TrimSpace(payload.Code))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// SettlementCancel cancels a settlement and releases any reservation.
func SettlementCancel(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		settlementID, err := settlementIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Cancel(r.Context(), settlementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

func settlementIDParam(r *http.Request) (string, error) {
	settlementID := strings.TrimSpace(chi.URLParam(r, "settlementId"))
	if settlementID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "settlement id is required")
	}
	return settlementID, nil
}
