package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/events"
)

type reconcileFixture struct {
	store    *fakeStore
	sessions *fakeSessions
	pub      *recordingPublisher
	clk      *clock.Manual
	svc      *ReconcileService
}

func newReconcileFixture(sessionID string) reconcileFixture {
	store := newFakeStore()
	store.addSlot(domain.Slot{ID: "slot-1", StartTime: testNow.Add(24 * time.Hour), EndTime: testNow.Add(25 * time.Hour), IsBooked: true})
	store.addOrder(domain.Order{
		ID:              "order-1",
		AmountMinor:     4500,
		Currency:        "gbp",
		PaymentStatus:   domain.PaymentStatusPending,
		StripeSessionID: sessionID,
		CreatedAt:       testNow,
		ExpiresAt:       testNow.Add(30 * time.Minute),
	})
	store.addBooking(domain.Booking{ID: "booking-1", OrderID: "order-1", SlotID: "slot-1", Status: domain.BookingStatusPending})

	clk := clock.NewManual(testNow)
	pub := &recordingPublisher{}
	sessions := &fakeSessions{states: map[string]domain.SessionState{}}
	payments := NewPaymentService(store, clk, WithPaymentLogger(quietLogger()))
	svc := NewReconcileService(store, sessions, payments, clk,
		WithExpiryGrace(5*time.Minute),
		WithReconcileEvents(pub),
		WithReconcileLogger(quietLogger()),
	)
	return reconcileFixture{store: store, sessions: sessions, pub: pub, clk: clk, svc: svc}
}

func TestReconcileService_ReconcileOnce(t *testing.T) {
	t.Parallel()

	t.Run("leaves orders inside ttl and grace alone", func(t *testing.T) {
		t.Parallel()
		f := newReconcileFixture("")
		f.clk.Advance(34 * time.Minute)

		res, err := f.svc.ReconcileOnce(context.Background())
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if res != (ReconcileResult{}) {
			t.Fatalf("expected nothing to do, got %+v", res)
		}
		if !f.store.slot("slot-1").IsBooked {
			t.Fatalf("expected slot still held")
		}
	})

	t.Run("expires stale order and frees slot", func(t *testing.T) {
		t.Parallel()
		f := newReconcileFixture("")
		f.clk.Advance(36 * time.Minute)

		res, err := f.svc.ReconcileOnce(context.Background())
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if res.Expired != 1 {
			t.Fatalf("expected one expired, got %+v", res)
		}
		if got := f.store.order("order-1").PaymentStatus; got != domain.PaymentStatusFailed {
			t.Fatalf("expected failed, got %s", got)
		}
		if f.store.slot("slot-1").IsBooked {
			t.Fatalf("expected slot released")
		}
		got := f.pub.published()
		if len(got) != 2 || got[1] != events.RKBookingExpired {
			t.Fatalf("expected booking.expired, got %v", got)
		}

		again, err := f.svc.ReconcileOnce(context.Background())
		if err != nil || again != (ReconcileResult{}) {
			t.Fatalf("expected second run to be empty, got %+v %v", again, err)
		}
	})

	t.Run("recovers paid session whose webhook was lost", func(t *testing.T) {
		t.Parallel()
		f := newReconcileFixture("cs_test_1")
		f.sessions.states["cs_test_1"] = domain.SessionState{
			ID:            "cs_test_1",
			Status:        domain.SessionStatusComplete,
			PaymentStatus: domain.SessionPaymentPaid,
			Payment:       domain.PaymentDetails{SessionID: "cs_test_1", PaymentIntentID: "pi_9"},
		}
		f.clk.Advance(time.Hour)

		res, err := f.svc.ReconcileOnce(context.Background())
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if res.Reconciled != 1 || res.Expired != 0 {
			t.Fatalf("expected one reconciled, got %+v", res)
		}
		order := f.store.order("order-1")
		if order.PaymentStatus != domain.PaymentStatusPaid || order.StripePaymentIntentID != "pi_9" {
			t.Fatalf("expected paid order, got %+v", order)
		}
		if b := f.store.bookingFor("order-1"); b.Status != domain.BookingStatusConfirmed {
			t.Fatalf("expected confirmed booking, got %s", b.Status)
		}
	})

	t.Run("expires open session before failing order", func(t *testing.T) {
		t.Parallel()
		f := newReconcileFixture("cs_test_2")
		f.sessions.states["cs_test_2"] = domain.SessionState{ID: "cs_test_2", Status: domain.SessionStatusOpen}
		f.clk.Advance(time.Hour)

		res, err := f.svc.ReconcileOnce(context.Background())
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if res.Expired != 1 {
			t.Fatalf("expected one expired, got %+v", res)
		}
		if len(f.sessions.expired) != 1 || f.sessions.expired[0] != "cs_test_2" {
			t.Fatalf("expected provider session expired, got %v", f.sessions.expired)
		}
	})

	t.Run("provider errors leave the order for the next run", func(t *testing.T) {
		t.Parallel()
		f := newReconcileFixture("cs_test_3")
		f.sessions.getErr = errors.New("stripe: timeout")
		f.clk.Advance(time.Hour)

		res, err := f.svc.ReconcileOnce(context.Background())
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if res.Skipped != 1 {
			t.Fatalf("expected one skipped, got %+v", res)
		}
		if got := f.store.order("order-1").PaymentStatus; got != domain.PaymentStatusPending {
			t.Fatalf("expected pending, got %s", got)
		}
	})
}

func TestReconcileService_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	f := newReconcileFixture("")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return after cancel")
	}
}
