package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/app"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

type CheckoutCreator interface {
	CreateSession(ctx context.Context, in app.CreateSessionInput) (domain.CheckoutSession, error)
}

// HandleCreateCheckoutSession opens a hosted checkout for an existing order.
// It never writes to the stores.
func HandleCreateCheckoutSession(svc CheckoutCreator, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createCheckoutRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeErrorDetails(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body", err.Error())
			return
		}

		session, err := svc.CreateSession(r.Context(), app.CreateSessionInput{
			PackageName:        req.PackageName,
			PackageDescription: req.PackageDescription,
			Amount:             req.Amount,
			OrderID:            req.OrderID,
			Origin:             r.Header.Get("Origin"),
		})
		if err != nil {
			if isDomainError(err) {
				writeDomainError(w, log, err)
				return
			}
			log.WithError(err).WithField("order_id", req.OrderID).Error("create checkout session failed")
			writeErrorDetails(w, http.StatusBadGateway, codeCheckoutUnavailable, domain.ErrCheckoutUnavailable.Error(), err.Error())
			return
		}

		writeJSON(w, http.StatusOK, createCheckoutResponse{SessionID: session.ID, URL: session.URL})
	}
}

type createCheckoutRequest struct {
	PackageName        string `json:"packageName"`
	PackageDescription string `json:"packageDescription"`
	Amount             any    `json:"amount"`
	OrderID            string `json:"orderId"`
}

type createCheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// isDomainError reports whether err came from validation or lookups rather
// than from the payment provider.
func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidAmount, domain.ErrInvalidID, domain.ErrPackageNameRequired,
		domain.ErrOrderNotFound, domain.ErrOrderNotPending, domain.ErrAmountMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
