package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/marketbay/payouts-backend/api/responses"
	razorpaywebhook "github.com/marketbay/payouts-backend/internal/webhooks/razorpay"
	pkgerrors "github.com/marketbay/payouts-backend/pkg/errors"
	"github.com/marketbay/payouts-backend/pkg/logger"
)

const razorpaySignatureHeader = "X-Razorpay-Signature"

type RazorpayWebhookService interface {
	HandleEvent(ctx context.Context, event *razorpaywebhook.Event) (razorpaywebhook.Outcome, error)
}

type razorpayWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// RazorpayWebhook reconciles payout lifecycle events. The signature check is
// the only non-200 path; everything after it is acknowledged so the provider
// does not retry forever.
func RazorpayWebhook(svc RazorpayWebhookService, webhookSecret string, guard razorpayWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !validateRazorpaySignature(payload, webhookSecret, r.Header.Get(razorpaySignatureHeader)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "invalid webhook signature"))
			return
		}

		var event razorpaywebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			acknowledge(w, "error", "malformed event payload")
			return
		}

		eventID := strings.TrimSpace(event.ID)
		if eventID == "" {
			if entity := event.Entity(); entity != nil {
				eventID = entity.ID + ":" + event.Event
			}
		}
		if eventID == "" {
			acknowledge(w, "error", "event id missing")
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			acknowledge(w, "duplicate", "")
			return
		}

		outcome, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			// drop the mark so the provider's retry can get through
			_ = guard.Delete(ctx, eventID)
			if logg != nil {
				logg.Error(ctx, fmt.Sprintf("razorpay event %s failed", eventID), err)
			}
			acknowledge(w, "error", err.Error())
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("razorpay event %s handled: %s", eventID, outcome))
		}
		acknowledge(w, string(outcome), "")
	}
}

func acknowledge(w http.ResponseWriter, status, message string) {
	body := map[string]string{"status": status}
	if message != "" {
		body["message"] = message
	}
	responses.WriteSuccess(w, body)
}

func validateRazorpaySignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
