package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/events"
)

type ReconcileRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListExpiredPendingOrders(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.PaymentStatus, at time.Time) (bool, error)
	GetBookingByOrderID(ctx context.Context, orderID string) (domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, to domain.BookingStatus, at time.Time, from ...domain.BookingStatus) (bool, error)
	ReleaseSlot(ctx context.Context, slotID string) (bool, error)
}

// SessionInspector asks the payment provider about a checkout session.
type SessionInspector interface {
	GetSession(ctx context.Context, id string) (domain.SessionState, error)
	ExpireSession(ctx context.Context, id string) error
}

type PaymentApplier interface {
	HandleEvent(ctx context.Context, ev domain.PaymentEvent) (HandleResult, error)
}

// ReconcileService expires pending orders whose reservation ran out and
// recovers payments whose webhook never arrived.
type ReconcileService struct {
	repo     ReconcileRepository
	sessions SessionInspector
	payments PaymentApplier
	clock    clock.Clock
	grace    time.Duration
	batch    int
	events   EventPublisher
	log      logrus.FieldLogger
}

const (
	defaultExpiryGrace    = 5 * time.Minute
	defaultReconcileBatch = 50
)

type ReconcileServiceOption func(*ReconcileService)

// WithExpiryGrace delays expiry past the reservation TTL so late webhooks win.
func WithExpiryGrace(d time.Duration) ReconcileServiceOption {
	return func(s *ReconcileService) {
		if d >= 0 {
			s.grace = d
		}
	}
}

func WithReconcileBatch(n int) ReconcileServiceOption {
	return func(s *ReconcileService) {
		if n > 0 {
			s.batch = n
		}
	}
}

func WithReconcileEvents(p EventPublisher) ReconcileServiceOption {
	return func(s *ReconcileService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithReconcileLogger(l logrus.FieldLogger) ReconcileServiceOption {
	return func(s *ReconcileService) {
		if l != nil {
			s.log = l
		}
	}
}

// NewReconcileService builds the job. sessions may be nil, in which case
// stale orders are expired without asking the provider.
func NewReconcileService(repo ReconcileRepository, sessions SessionInspector, payments PaymentApplier, clk clock.Clock, opts ...ReconcileServiceOption) *ReconcileService {
	svc := &ReconcileService{
		repo:     repo,
		sessions: sessions,
		payments: payments,
		clock:    clk,
		grace:    defaultExpiryGrace,
		batch:    defaultReconcileBatch,
		events:   noopPublisher{},
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReconcileResult struct {
	Expired    int `json:"expired"`
	Reconciled int `json:"reconciled"`
	Skipped    int `json:"skipped"`
}

func (s *ReconcileService) ReconcileOnce(ctx context.Context) (ReconcileResult, error) {
	ctx, span := tracer.Start(ctx, "ReconcileService.ReconcileOnce")
	defer span.End()

	cutoff := s.clock.Now().Add(-s.grace)
	orders, err := s.repo.ListExpiredPendingOrders(ctx, cutoff, s.batch)
	if err != nil {
		return ReconcileResult{}, err
	}

	var res ReconcileResult
	for _, order := range orders {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		log := s.log.WithFields(logrus.Fields{"order_id": order.ID, "session_id": order.StripeSessionID})

		if order.StripeSessionID != "" && s.sessions != nil {
			recovered, stop := s.checkSession(ctx, order, log)
			if recovered {
				res.Reconciled++
				continue
			}
			if stop {
				res.Skipped++
				continue
			}
		}

		expired, err := s.expire(ctx, order)
		if err != nil {
			log.WithError(err).Warn("expire order failed")
			res.Skipped++
			continue
		}
		if expired {
			log.Info("reservation expired, slot released")
			res.Expired++
		} else {
			res.Skipped++
		}
	}

	span.SetAttributes(
		attribute.Int("reconcile.expired", res.Expired),
		attribute.Int("reconcile.reconciled", res.Reconciled),
		attribute.Int("reconcile.skipped", res.Skipped),
	)
	return res, nil
}

// checkSession reports whether a lost payment was recovered, or whether the
// order must be left alone for now.
func (s *ReconcileService) checkSession(ctx context.Context, order domain.Order, log logrus.FieldLogger) (recovered, stop bool) {
	state, err := s.sessions.GetSession(ctx, order.StripeSessionID)
	if err != nil {
		log.WithError(err).Warn("lookup checkout session failed, retrying next run")
		return false, true
	}

	switch state.Status {
	case domain.SessionStatusComplete:
		if state.PaymentStatus == domain.SessionPaymentUnpaid {
			// Delayed payment method still settling.
			return false, true
		}
		res, err := s.payments.HandleEvent(ctx, domain.PaymentEvent{
			ID:           "reconcile:" + state.ID,
			Type:         domain.EventCheckoutCompleted,
			ProviderType: "reconcile",
			OrderID:      order.ID,
			Payment:      state.Payment,
			OccurredAt:   s.clock.Now(),
		})
		if err != nil {
			log.WithError(err).Warn("apply recovered payment failed")
			return false, true
		}
		log.WithField("outcome", res.Outcome).Warn("payment recovered without webhook")
		return true, false
	case domain.SessionStatusOpen:
		if err := s.sessions.ExpireSession(ctx, state.ID); err != nil {
			log.WithError(err).Warn("expire checkout session failed, retrying next run")
			return false, true
		}
	}
	return false, false
}

func (s *ReconcileService) expire(ctx context.Context, order domain.Order) (bool, error) {
	now := s.clock.Now()
	var closed bool
	var booking domain.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		closed, booking, err = closeOrder(txCtx, s.repo, order, domain.PaymentStatusFailed, now)
		return err
	})
	if err != nil || !closed {
		return false, err
	}
	msgs := []events.Message{{
		Key: events.RKPaymentFailed,
		Payload: events.Payment{
			OrderID:     order.ID,
			PackageName: order.PackageName,
			AmountMinor: order.AmountMinor,
			Currency:    order.Currency,
			Reason:      "reservation_expired",
			OccurredAt:  now,
		},
	}}
	if booking.ID != "" {
		msgs = append(msgs, events.Message{
			Key:     events.RKBookingExpired,
			Payload: bookingEvent(booking, domain.Slot{ID: booking.SlotID}, "reservation_expired", now),
		})
	}
	publishAll(ctx, s.events, s.log, msgs)
	return true, nil
}

// Run reconciles on every tick until ctx is done.
func (s *ReconcileService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.WithField("interval", interval.String()).Info("reconcile job started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("reconcile job stopped")
			return
		case <-ticker.C:
			res, err := s.ReconcileOnce(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.WithError(err).Error("reconcile run failed")
				}
				continue
			}
			if res.Expired+res.Reconciled+res.Skipped > 0 {
				s.log.WithFields(logrus.Fields{
					"expired":    res.Expired,
					"reconciled": res.Reconciled,
					"skipped":    res.Skipped,
				}).Info("reconcile run finished")
			}
		}
	}
}
