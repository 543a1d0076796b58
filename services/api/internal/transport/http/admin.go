package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/app"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/auth"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

type AdminLogin interface {
	Login(email, password string) (auth.Token, error)
}

// AdminService is the back office surface used by the admin endpoints.
type AdminService interface {
	CreateSlots(ctx context.Context, windows []domain.SlotWindow) ([]domain.Slot, error)
	ListSlots(ctx context.Context) ([]domain.Slot, error)
	DeleteSlot(ctx context.Context, id string) error
	ReleaseSlot(ctx context.Context, id string) (domain.Slot, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	ListBookings(ctx context.Context, limit int) ([]domain.BookingDetails, error)
	UpsertPackage(ctx context.Context, pkg domain.Package) (domain.Package, error)
	ListPackages(ctx context.Context) ([]domain.Package, error)
}

type Reconciler interface {
	ReconcileOnce(ctx context.Context) (app.ReconcileResult, error)
}

func HandleAdminLogin(a AdminLogin, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if a == nil {
			writeError(w, http.StatusServiceUnavailable, codeUnauthorized, "admin access is not configured")
			return
		}
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		tok, err := a.Login(req.Email, req.Password)
		if err != nil {
			log.WithField("email", req.Email).Warn("admin login rejected")
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, tok)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAdminSlots lists slots or creates them, either from explicit windows
// or from a day plus "HH:MM-HH:MM" ranges.
func HandleAdminSlots(svc AdminService, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			slots, err := svc.ListSlots(r.Context())
			if err != nil {
				writeDomainError(w, log, err)
				return
			}
			writeJSON(w, http.StatusOK, toSlotResponses(slots))
		case http.MethodPost:
			var req createSlotsRequest
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			windows, err := req.windows()
			if err != nil {
				writeDomainError(w, log, err)
				return
			}
			slots, err := svc.CreateSlots(r.Context(), windows)
			if err != nil {
				writeDomainError(w, log, err)
				return
			}
			writeJSON(w, http.StatusCreated, toSlotResponses(slots))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type createSlotsRequest struct {
	Slots []struct {
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	} `json:"slots"`
	Date     string   `json:"date"`
	Times    []string `json:"times"`
	Timezone string   `json:"timezone"`
}

func (r createSlotsRequest) windows() ([]domain.SlotWindow, error) {
	if r.Date != "" {
		loc := time.UTC
		if r.Timezone != "" {
			l, err := time.LoadLocation(r.Timezone)
			if err != nil {
				return nil, domain.ErrInvalidSlotWindow
			}
			loc = l
		}
		return app.ExpandDaySlots(r.Date, r.Times, loc)
	}
	out := make([]domain.SlotWindow, 0, len(r.Slots))
	for _, s := range r.Slots {
		out = append(out, domain.SlotWindow{Start: s.StartTime, End: s.EndTime})
	}
	return out, nil
}

// HandleAdminSlot serves DELETE /admin/slots/{id} and POST /admin/slots/{id}/release.
func HandleAdminSlot(svc AdminService, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, action, ok := parseAdminSlotPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodDelete:
			if err := svc.DeleteSlot(r.Context(), id); err != nil {
				writeDomainError(w, log, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case action == "release" && r.Method == http.MethodPost:
			slot, err := svc.ReleaseSlot(r.Context(), id)
			if err != nil {
				writeDomainError(w, log, err)
				return
			}
			writeJSON(w, http.StatusOK, toSlotResponses([]domain.Slot{slot})[0])
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func parseAdminSlotPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || len(parts) > 4 || parts[0] != "admin" || parts[1] != "slots" || parts[2] == "" {
		return "", "", false
	}
	if len(parts) == 4 {
		if parts[3] != "release" {
			return "", "", false
		}
		return parts[2], parts[3], true
	}
	return parts[2], "", true
}

func HandleAdminOrders(svc AdminService, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		q := r.URL.Query()
		orders, err := svc.ListOrders(r.Context(), domain.OrderFilter{
			Status:        domain.PaymentStatus(q.Get("status")),
			EmailContains: q.Get("email"),
			Limit:         queryInt(q.Get("limit")),
		})
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		resp := make([]adminOrderResponse, 0, len(orders))
		for _, o := range orders {
			resp = append(resp, toAdminOrder(o))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type adminOrderResponse struct {
	ID                    string    `json:"id"`
	PackageID             string    `json:"package_id,omitempty"`
	PackageName           string    `json:"package_name"`
	AmountMinor           int64     `json:"amount_minor"`
	Currency              string    `json:"currency"`
	PaymentStatus         string    `json:"payment_status"`
	StripeSessionID       string    `json:"stripe_session_id,omitempty"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id,omitempty"`
	CustomerEmail         string    `json:"customer_email"`
	CustomerName          string    `json:"customer_name"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	ExpiresAt             time.Time `json:"expires_at"`
}

func toAdminOrder(o domain.Order) adminOrderResponse {
	return adminOrderResponse{
		ID:                    o.ID,
		PackageID:             o.PackageID,
		PackageName:           o.PackageName,
		AmountMinor:           o.AmountMinor,
		Currency:              o.Currency,
		PaymentStatus:         string(o.PaymentStatus),
		StripeSessionID:       o.StripeSessionID,
		StripePaymentIntentID: o.StripePaymentIntentID,
		CustomerEmail:         o.CustomerEmail,
		CustomerName:          o.CustomerName,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
		ExpiresAt:             o.ExpiresAt,
	}
}

func HandleAdminBookings(svc AdminService, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		details, err := svc.ListBookings(r.Context(), queryInt(r.URL.Query().Get("limit")))
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		resp := make([]adminBookingResponse, 0, len(details))
		for _, d := range details {
			b := adminBookingResponse{
				ID:          d.Booking.ID,
				OrderID:     d.Booking.OrderID,
				SlotID:      d.Booking.SlotID,
				ClientName:  d.Booking.ClientName,
				ClientEmail: d.Booking.ClientEmail,
				ClientPhone: d.Booking.ClientPhone,
				Notes:       d.Booking.Notes,
				Language:    d.Booking.Language,
				Status:      string(d.Booking.Status),
				CreatedAt:   d.Booking.CreatedAt,
				Order:       toAdminOrder(d.Order),
			}
			if !d.Slot.StartTime.IsZero() {
				start, end := d.Slot.StartTime, d.Slot.EndTime
				b.SlotStart, b.SlotEnd = &start, &end
			}
			resp = append(resp, b)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type adminBookingResponse struct {
	ID          string             `json:"id"`
	OrderID     string             `json:"order_id"`
	SlotID      string             `json:"slot_id,omitempty"`
	ClientName  string             `json:"client_name"`
	ClientEmail string             `json:"client_email"`
	ClientPhone string             `json:"client_phone,omitempty"`
	Notes       string             `json:"notes,omitempty"`
	Language    string             `json:"language"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	SlotStart   *time.Time         `json:"slot_start,omitempty"`
	SlotEnd     *time.Time         `json:"slot_end,omitempty"`
	Order       adminOrderResponse `json:"order"`
}

func HandleAdminPackages(svc AdminService, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			pkgs, err := svc.ListPackages(r.Context())
			if err != nil {
				writeDomainError(w, log, err)
				return
			}
			resp := make([]adminPackage, 0, len(pkgs))
			for _, p := range pkgs {
				resp = append(resp, fromDomainPackage(p))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			var req adminPackage
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			pkg, err := svc.UpsertPackage(r.Context(), req.toDomain())
			if err != nil {
				writeDomainError(w, log, err)
				return
			}
			writeJSON(w, http.StatusOK, fromDomainPackage(pkg))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type adminPackage struct {
	ID              string                        `json:"id,omitempty"`
	Translations    map[string]domain.PackageText `json:"translations"`
	PriceMinor      int64                         `json:"price_minor"`
	Currency        string                        `json:"currency,omitempty"`
	DurationMinutes int                           `json:"duration_minutes"`
	IsPopular       bool                          `json:"is_popular"`
	OrderIndex      int                           `json:"order_index"`
	Active          bool                          `json:"active"`
}

func (p adminPackage) toDomain() domain.Package {
	return domain.Package{
		ID:              p.ID,
		Translations:    p.Translations,
		PriceMinor:      p.PriceMinor,
		Currency:        p.Currency,
		DurationMinutes: p.DurationMinutes,
		IsPopular:       p.IsPopular,
		OrderIndex:      p.OrderIndex,
		Active:          p.Active,
	}
}

func fromDomainPackage(p domain.Package) adminPackage {
	return adminPackage{
		ID:              p.ID,
		Translations:    p.Translations,
		PriceMinor:      p.PriceMinor,
		Currency:        p.Currency,
		DurationMinutes: p.DurationMinutes,
		IsPopular:       p.IsPopular,
		OrderIndex:      p.OrderIndex,
		Active:          p.Active,
	}
}

func HandleAdminReconcile(svc Reconciler, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		res, err := svc.ReconcileOnce(r.Context())
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func queryInt(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
