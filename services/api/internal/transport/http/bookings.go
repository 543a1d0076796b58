package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/app"
)

const idempotencyHeader = "Idempotency-Key"

type BookingStarter interface {
	StartBooking(ctx context.Context, in app.StartBookingInput) (app.StartBookingResult, error)
}

type OrderStatusReader interface {
	GetOrderStatus(ctx context.Context, orderID string) (app.OrderStatus, error)
}

// HandleCreateBooking reserves a slot and opens checkout for it.
func HandleCreateBooking(svc BookingStarter, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createBookingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.StartBooking(r.Context(), app.StartBookingInput{
			SlotID:         req.SlotID,
			PackageID:      req.PackageID,
			ClientName:     req.ClientName,
			ClientEmail:    req.ClientEmail,
			ClientPhone:    req.ClientPhone,
			Notes:          req.Notes,
			Language:       req.Language,
			IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyHeader)),
			Origin:         r.Header.Get("Origin"),
		})
		if err != nil {
			writeDomainError(w, log, err)
			return
		}

		status := http.StatusCreated
		if !res.Created {
			status = http.StatusOK
		}
		writeJSON(w, status, createBookingResponse{
			OrderID:       res.Order.ID,
			BookingID:     res.Booking.ID,
			PaymentStatus: string(res.Order.PaymentStatus),
			BookingStatus: string(res.Booking.Status),
			SessionID:     res.Order.StripeSessionID,
			CheckoutURL:   res.Order.CheckoutURL,
			ExpiresAt:     res.Order.ExpiresAt,
		})
	}
}

type createBookingRequest struct {
	SlotID      string `json:"slot_id"`
	PackageID   string `json:"package_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone"`
	Notes       string `json:"notes"`
	Language    string `json:"language"`
}

type createBookingResponse struct {
	OrderID       string    `json:"order_id"`
	BookingID     string    `json:"booking_id"`
	PaymentStatus string    `json:"payment_status"`
	BookingStatus string    `json:"booking_status"`
	SessionID     string    `json:"session_id,omitempty"`
	CheckoutURL   string    `json:"checkout_url,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// HandleGetOrder serves GET /orders/{id}, the endpoint the success page polls.
func HandleGetOrder(svc OrderStatusReader, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		orderID, ok := parseOrderPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		st, err := svc.GetOrderStatus(r.Context(), orderID)
		if err != nil {
			writeDomainError(w, log, err)
			return
		}

		resp := orderStatusResponse{
			OrderID:       st.Order.ID,
			PaymentStatus: string(st.Order.PaymentStatus),
			BookingStatus: string(st.Booking.Status),
			PackageName:   st.Order.PackageName,
			AmountMinor:   st.Order.AmountMinor,
			Currency:      st.Order.Currency,
			UpdatedAt:     st.Order.UpdatedAt,
		}
		if !st.Slot.StartTime.IsZero() {
			start, end := st.Slot.StartTime, st.Slot.EndTime
			resp.SlotStart, resp.SlotEnd = &start, &end
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type orderStatusResponse struct {
	OrderID       string     `json:"order_id"`
	PaymentStatus string     `json:"payment_status"`
	BookingStatus string     `json:"booking_status,omitempty"`
	PackageName   string     `json:"package_name"`
	AmountMinor   int64      `json:"amount_minor"`
	Currency      string     `json:"currency"`
	SlotStart     *time.Time `json:"slot_start,omitempty"`
	SlotEnd       *time.Time `json:"slot_end,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func parseOrderPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "orders" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
