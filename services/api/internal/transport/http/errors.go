package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidTime         = "invalid_time"
	codeValidation          = "validation_failed"
	codeInvalidAmount       = "invalid_amount"
	codeAmountMismatch      = "amount_mismatch"
	codeSlotNotFound        = "slot_not_found"
	codeSlotUnavailable     = "slot_unavailable"
	codeSlotExists          = "slot_already_exists"
	codeSlotHasBooking      = "slot_has_active_booking"
	codePackageNotFound     = "package_not_found"
	codeOrderNotFound       = "order_not_found"
	codeOrderNotPending     = "order_not_pending"
	codeIdempotencyConflict = "idempotency_conflict"
	codeInvalidSignature    = "invalid_signature"
	codeUnauthorized        = "unauthorized"
	codeForbidden           = "forbidden"
	codeCheckoutUnavailable = "checkout_unavailable"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorDetails(w, status, code, msg, "")
}

func writeErrorDetails(w http.ResponseWriter, status int, code, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:   msg,
		Code:    code,
		Details: details,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps service errors to the HTTP envelope. Anything it
// does not recognise is logged and reported as a 500 without detail.
func writeDomainError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrClientNameRequired),
		errors.Is(err, domain.ErrClientEmailRequired),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrPackageNameRequired),
		errors.Is(err, domain.ErrInvalidSlotWindow),
		errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case errors.Is(err, domain.ErrAmountMismatch):
		writeError(w, http.StatusBadRequest, codeAmountMismatch, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, codeSlotNotFound, err.Error())
	case errors.Is(err, domain.ErrPackageNotFound):
		writeError(w, http.StatusNotFound, codePackageNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, domain.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, codeSlotUnavailable, err.Error())
	case errors.Is(err, domain.ErrSlotAlreadyExists):
		writeError(w, http.StatusConflict, codeSlotExists, err.Error())
	case errors.Is(err, domain.ErrSlotHasActiveBooking):
		writeError(w, http.StatusConflict, codeSlotHasBooking, err.Error())
	case errors.Is(err, domain.ErrOrderNotPending):
		writeError(w, http.StatusConflict, codeOrderNotPending, err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	case errors.Is(err, domain.ErrCheckoutUnavailable):
		log.WithError(err).Error("checkout provider failed")
		writeError(w, http.StatusBadGateway, codeCheckoutUnavailable, domain.ErrCheckoutUnavailable.Error())
	default:
		log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

const maxBodyBytes = 1 << 20
