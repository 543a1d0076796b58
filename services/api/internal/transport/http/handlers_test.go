package http

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/app"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type stubBookings struct {
	in     app.StartBookingInput
	result app.StartBookingResult
	status app.OrderStatus
	err    error
}

func (s *stubBookings) StartBooking(_ context.Context, in app.StartBookingInput) (app.StartBookingResult, error) {
	s.in = in
	return s.result, s.err
}

func (s *stubBookings) GetOrderStatus(_ context.Context, orderID string) (app.OrderStatus, error) {
	if s.err != nil {
		return app.OrderStatus{}, s.err
	}
	st := s.status
	st.Order.ID = orderID
	return st, nil
}

type stubCheckout struct {
	in      app.CreateSessionInput
	session domain.CheckoutSession
	err     error
}

func (s *stubCheckout) CreateSession(_ context.Context, in app.CreateSessionInput) (domain.CheckoutSession, error) {
	s.in = in
	return s.session, s.err
}

type stubParser struct {
	ev  domain.PaymentEvent
	err error
}

func (s stubParser) ParseEvent([]byte, string) (domain.PaymentEvent, error) { return s.ev, s.err }

type stubPayments struct {
	calls int
	res   app.HandleResult
	err   error
}

func (s *stubPayments) HandleEvent(context.Context, domain.PaymentEvent) (app.HandleResult, error) {
	s.calls++
	return s.res, s.err
}

type stubCatalog struct {
	lang     string
	from, to time.Time
	pkgs     []app.PackageView
	slots    []domain.Slot
	err      error
}

func (s *stubCatalog) ListPackages(_ context.Context, lang string) ([]app.PackageView, error) {
	s.lang = lang
	return s.pkgs, s.err
}

func (s *stubCatalog) ListAvailableSlots(_ context.Context, from, to time.Time) ([]domain.Slot, error) {
	s.from, s.to = from, to
	return s.slots, s.err
}
