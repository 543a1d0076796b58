package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/app"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

const (
	signatureHeader     = "Stripe-Signature"
	maxWebhookBodyBytes = 512 << 10
)

type EventParser interface {
	ParseEvent(payload []byte, signature string) (domain.PaymentEvent, error)
}

type PaymentEventHandler interface {
	HandleEvent(ctx context.Context, ev domain.PaymentEvent) (app.HandleResult, error)
}

// HandleStripeWebhook verifies and applies a payment provider event. Events
// that are skipped or duplicated are still acknowledged with 200 so the
// provider stops retrying; storage failures return 500 so it retries.
func HandleStripeWebhook(parser EventParser, svc PaymentEventHandler, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				// The provider keeps retrying this event until the limit is raised.
				log.WithField("limit_bytes", tooLarge.Limit).Error("webhook body exceeds size limit")
				writeError(w, http.StatusRequestEntityTooLarge, codeInvalidRequestBody, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		ev, err := parser.ParseEvent(payload, r.Header.Get(signatureHeader))
		if err != nil {
			if errors.Is(err, domain.ErrInvalidSignature) {
				writeError(w, http.StatusBadRequest, codeInvalidSignature, "Webhook Error: "+err.Error())
				return
			}
			log.WithError(err).Warn("webhook payload could not be decoded")
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "Webhook Error: "+err.Error())
			return
		}

		res, err := svc.HandleEvent(r.Context(), ev)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"event_id": ev.ID, "order_id": ev.OrderID}).Error("webhook handling failed")
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, webhookResponse{Received: true, Outcome: string(res.Outcome)})
	}
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
}
