package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/app"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/auth"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

type stubAdmin struct {
	windows []domain.SlotWindow
	filter  domain.OrderFilter
	pkg     domain.Package
	deleted string
	err     error
}

func (s *stubAdmin) CreateSlots(_ context.Context, windows []domain.SlotWindow) ([]domain.Slot, error) {
	s.windows = windows
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Slot, 0, len(windows))
	for i, w := range windows {
		out = append(out, domain.Slot{ID: string(rune('a' + i)), StartTime: w.Start, EndTime: w.End})
	}
	return out, nil
}

func (s *stubAdmin) ListSlots(context.Context) ([]domain.Slot, error) {
	return []domain.Slot{{ID: "s1", StartTime: testNow, EndTime: testNow.Add(time.Hour), IsBooked: true}}, s.err
}

func (s *stubAdmin) DeleteSlot(_ context.Context, id string) error {
	s.deleted = id
	return s.err
}

func (s *stubAdmin) ReleaseSlot(_ context.Context, id string) (domain.Slot, error) {
	return domain.Slot{ID: id, StartTime: testNow, EndTime: testNow.Add(time.Hour)}, s.err
}

func (s *stubAdmin) ListOrders(_ context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	s.filter = f
	return []domain.Order{{ID: "order-1", PaymentStatus: domain.PaymentStatusPaid, CustomerEmail: "maria@example.com"}}, s.err
}

func (s *stubAdmin) ListBookings(context.Context, int) ([]domain.BookingDetails, error) {
	return []domain.BookingDetails{{
		Booking: domain.Booking{ID: "booking-1", OrderID: "order-1", Status: domain.BookingStatusConfirmed},
		Order:   domain.Order{ID: "order-1"},
	}}, s.err
}

func (s *stubAdmin) UpsertPackage(_ context.Context, p domain.Package) (domain.Package, error) {
	s.pkg = p
	if p.ID == "" {
		p.ID = "pkg-new"
	}
	return p, s.err
}

func (s *stubAdmin) ListPackages(context.Context) ([]domain.Package, error) {
	return nil, s.err
}

type stubLogin struct{ err error }

func (s stubLogin) Login(string, string) (auth.Token, error) {
	if s.err != nil {
		return auth.Token{}, s.err
	}
	return auth.Token{Value: "tok", ExpiresAt: testNow.Add(time.Hour)}, nil
}

type stubReconciler struct{}

func (stubReconciler) ReconcileOnce(context.Context) (app.ReconcileResult, error) {
	return app.ReconcileResult{Expired: 2, Reconciled: 1}, nil
}

func TestHandleAdminLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		login  AdminLogin
		body   string
		status int
	}{
		{name: "success", login: stubLogin{}, body: `{"email":"marina@example.com","password":"secret123"}`, status: http.StatusOK},
		{name: "bad credentials", login: stubLogin{err: domain.ErrInvalidCredentials}, body: `{"email":"x@example.com","password":"nope"}`, status: http.StatusUnauthorized},
		{name: "bad body", login: stubLogin{}, body: `[]`, status: http.StatusBadRequest},
		{name: "not configured", login: nil, body: `{}`, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString(tt.body))
			HandleAdminLogin(tt.login, quietLogger()).ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusOK && !strings.Contains(rec.Body.String(), `"token":"tok"`) {
				t.Fatalf("unexpected body %s", rec.Body.String())
			}
		})
	}
}

func TestHandleAdminSlots_CreateFromDay(t *testing.T) {
	t.Parallel()
	svc := &stubAdmin{}
	body := `{"date":"2025-03-12","times":["09:00-10:00","14:30-15:30"],"timezone":"UTC"}`
	rec := httptest.NewRecorder()
	HandleAdminSlots(svc, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/slots", bytes.NewBufferString(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(svc.windows))
	}
	want := time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)
	if !svc.windows[1].Start.Equal(want) {
		t.Fatalf("expected second start %v, got %v", want, svc.windows[1].Start)
	}
}

func TestHandleAdminSlots_CreateExplicit(t *testing.T) {
	t.Parallel()
	svc := &stubAdmin{}
	body := `{"slots":[{"start_time":"2025-03-12T09:00:00Z","end_time":"2025-03-12T10:00:00Z"}]}`
	rec := httptest.NewRecorder()
	HandleAdminSlots(svc, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/slots", bytes.NewBufferString(body)))
	if rec.Code != http.StatusCreated || len(svc.windows) != 1 {
		t.Fatalf("unexpected result %d %+v", rec.Code, svc.windows)
	}
}

func TestHandleAdminSlots_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "bad range", body: `{"date":"2025-03-12","times":["nine"]}`, status: http.StatusBadRequest},
		{name: "unknown timezone", body: `{"date":"2025-03-12","times":["09:00-10:00"],"timezone":"Mars/Base"}`, status: http.StatusBadRequest},
		{name: "duplicate", body: `{"date":"2025-03-12","times":["09:00-10:00"]}`, err: domain.ErrSlotAlreadyExists, status: http.StatusConflict},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			HandleAdminSlots(&stubAdmin{err: tt.err}, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/slots", bytes.NewBufferString(tt.body)))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleAdminSlot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		path   string
		err    error
		status int
	}{
		{name: "delete", method: http.MethodDelete, path: "/admin/slots/s1", status: http.StatusNoContent},
		{name: "delete booked", method: http.MethodDelete, path: "/admin/slots/s1", err: domain.ErrSlotHasActiveBooking, status: http.StatusConflict},
		{name: "release", method: http.MethodPost, path: "/admin/slots/s1/release", status: http.StatusOK},
		{name: "release blocked", method: http.MethodPost, path: "/admin/slots/s1/release", err: domain.ErrSlotHasActiveBooking, status: http.StatusConflict},
		{name: "unknown action", method: http.MethodPost, path: "/admin/slots/s1/book", status: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, path: "/admin/slots/s1", status: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubAdmin{err: tt.err}
			rec := httptest.NewRecorder()
			HandleAdminSlot(svc, quietLogger()).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleAdminOrders_Filter(t *testing.T) {
	t.Parallel()
	svc := &stubAdmin{}
	rec := httptest.NewRecorder()
	HandleAdminOrders(svc, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders?status=paid&email=maria&limit=20", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.filter.Status != domain.PaymentStatusPaid || svc.filter.EmailContains != "maria" || svc.filter.Limit != 20 {
		t.Fatalf("unexpected filter %+v", svc.filter)
	}
	var resp []adminOrderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].PaymentStatus != "paid" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHandleAdminBookings(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	HandleAdminBookings(&stubAdmin{}, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/bookings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "slot_start") {
		t.Fatalf("expected no slot times for a booking without slot, got %s", rec.Body.String())
	}
}

func TestHandleAdminPackages_Upsert(t *testing.T) {
	t.Parallel()
	svc := &stubAdmin{}
	body := `{"translations":{"ro":{"name":"Consultație","description":"60 min","features":["video"]}},"price_minor":4500,"duration_minutes":60,"active":true}`
	rec := httptest.NewRecorder()
	HandleAdminPackages(svc, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/packages", bytes.NewBufferString(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.pkg.PriceMinor != 4500 || svc.pkg.Translations["ro"].Name != "Consultație" || !svc.pkg.Active {
		t.Fatalf("unexpected package %+v", svc.pkg)
	}
	if !strings.Contains(rec.Body.String(), `"id":"pkg-new"`) {
		t.Fatalf("expected assigned id, got %s", rec.Body.String())
	}
}

func TestHandleAdminReconcile(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	HandleAdminReconcile(stubReconciler{}, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"expired":2`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
