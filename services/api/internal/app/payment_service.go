package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/events"
)

type PaymentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	FindOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Order, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType, orderID string, at time.Time) (bool, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.PaymentStatus, at time.Time) (bool, error)
	RecordPayment(ctx context.Context, orderID string, details domain.PaymentDetails, at time.Time) error
	GetBookingByOrderID(ctx context.Context, orderID string) (domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, to domain.BookingStatus, at time.Time, from ...domain.BookingStatus) (bool, error)
	ReleaseSlot(ctx context.Context, slotID string) (bool, error)
}

type HandleOutcome string

const (
	OutcomeApplied   HandleOutcome = "applied"
	OutcomeNoop      HandleOutcome = "noop"
	OutcomeDuplicate HandleOutcome = "duplicate"
	OutcomeSkipped   HandleOutcome = "skipped"
	OutcomeIgnored   HandleOutcome = "ignored"
	OutcomeRejected  HandleOutcome = "rejected"
)

type HandleResult struct {
	Outcome HandleOutcome
	OrderID string
}

// PaymentService applies verified payment-provider events to orders. It is
// the only writer of paid/refunded status and confirms bookings itself.
type PaymentService struct {
	repo   PaymentRepository
	clock  clock.Clock
	events EventPublisher
	log    logrus.FieldLogger
}

type PaymentServiceOption func(*PaymentService)

func WithPaymentEvents(p EventPublisher) PaymentServiceOption {
	return func(s *PaymentService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithPaymentLogger(l logrus.FieldLogger) PaymentServiceOption {
	return func(s *PaymentService) {
		if l != nil {
			s.log = l
		}
	}
}

func NewPaymentService(repo PaymentRepository, clk clock.Clock, opts ...PaymentServiceOption) *PaymentService {
	svc := &PaymentService{
		repo:   repo,
		clock:  clk,
		events: noopPublisher{},
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// HandleEvent applies one event. Redelivered events and events for orders we
// do not know are acknowledged without touching state; only storage failures
// are returned as errors so the provider retries.
func (s *PaymentService) HandleEvent(ctx context.Context, ev domain.PaymentEvent) (HandleResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.HandleEvent", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("event.type", string(ev.Type)),
		attribute.String("order.id", ev.OrderID),
	)

	log := s.log.WithFields(logrus.Fields{
		"event_id":   ev.ID,
		"event_type": ev.ProviderType,
		"order_id":   ev.OrderID,
	})

	var (
		res HandleResult
		err error
	)
	switch ev.Type {
	case domain.EventUnhandled:
		log.Debug("payment event ignored")
		return HandleResult{Outcome: OutcomeIgnored}, nil
	case domain.EventChargeRefunded:
		res, err = s.handleRefund(ctx, ev, log)
	default:
		res, err = s.handleCheckout(ctx, ev, log)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("payment event failed")
		return HandleResult{}, err
	}
	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
	return res, nil
}

func (s *PaymentService) handleCheckout(ctx context.Context, ev domain.PaymentEvent, log logrus.FieldLogger) (HandleResult, error) {
	if ev.OrderID == "" {
		log.Warn("payment event has no order id in metadata, skipping")
		return HandleResult{Outcome: OutcomeSkipped}, nil
	}

	now := s.clock.Now()
	res := HandleResult{OrderID: ev.OrderID}
	var msgs []events.Message

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		msgs = nil
		order, err := s.repo.GetOrder(txCtx, ev.OrderID)
		if errors.Is(err, domain.ErrOrderNotFound) || errors.Is(err, domain.ErrInvalidID) {
			log.Warn("payment event for unknown order, skipping")
			res.Outcome = OutcomeSkipped
			return nil
		}
		if err != nil {
			return err
		}

		first, err := s.repo.MarkEventProcessed(txCtx, ev.ID, string(ev.Type), order.ID, now)
		if err != nil {
			return err
		}
		if !first {
			log.Info("payment event already processed")
			res.Outcome = OutcomeDuplicate
			return nil
		}

		switch ev.Type {
		case domain.EventCheckoutCompleted:
			res.Outcome, msgs, err = s.markPaid(txCtx, order, ev, now, log)
		case domain.EventCheckoutPending:
			res.Outcome = OutcomeApplied
			err = s.repo.RecordPayment(txCtx, order.ID, domain.PaymentDetails{SessionID: ev.Payment.SessionID}, now)
		case domain.EventCheckoutFailed, domain.EventCheckoutExpired:
			res.Outcome, msgs, err = s.markFailed(txCtx, order, ev, now, log)
		default:
			res.Outcome = OutcomeIgnored
		}
		return err
	})
	if err != nil {
		return HandleResult{}, err
	}

	publishAll(ctx, s.events, s.log, msgs)
	return res, nil
}

func (s *PaymentService) markPaid(ctx context.Context, order domain.Order, ev domain.PaymentEvent, now time.Time, log logrus.FieldLogger) (HandleOutcome, []events.Message, error) {
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return OutcomeNoop, nil, nil
	}
	if !order.PaymentStatus.CanTransitionTo(domain.PaymentStatusPaid) {
		log.WithField("payment_status", order.PaymentStatus).
			Error("payment completed for an order that is no longer pending, manual refund required")
		return OutcomeRejected, nil, nil
	}

	ok, err := s.repo.UpdateOrderStatus(ctx, order.ID, order.PaymentStatus, domain.PaymentStatusPaid, now)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return OutcomeNoop, nil, nil
	}
	if err := s.repo.RecordPayment(ctx, order.ID, ev.Payment, now); err != nil {
		return "", nil, err
	}

	msgs := []events.Message{{
		Key: events.RKPaymentPaid,
		Payload: events.Payment{
			OrderID:         order.ID,
			PackageName:     order.PackageName,
			AmountMinor:     order.AmountMinor,
			Currency:        order.Currency,
			PaymentIntentID: ev.Payment.PaymentIntentID,
			CustomerEmail:   firstNonEmpty(ev.Payment.CustomerEmail, order.CustomerEmail),
			OccurredAt:      now,
		},
	}}

	booking, err := s.repo.GetBookingByOrderID(ctx, order.ID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		log.Warn("paid order has no booking")
		return OutcomeApplied, msgs, nil
	}
	if err != nil {
		return "", nil, err
	}
	confirmed, err := s.repo.UpdateBookingStatus(ctx, booking.ID, domain.BookingStatusConfirmed, now, domain.BookingStatusPending)
	if err != nil {
		return "", nil, err
	}
	if confirmed {
		booking.Status = domain.BookingStatusConfirmed
		msgs = append(msgs, events.Message{
			Key:     events.RKBookingConfirmed,
			Payload: bookingEvent(booking, domain.Slot{ID: booking.SlotID}, "", now),
		})
	}
	log.WithField("booking_id", booking.ID).Info("order paid, booking confirmed")
	return OutcomeApplied, msgs, nil
}

func (s *PaymentService) markFailed(ctx context.Context, order domain.Order, ev domain.PaymentEvent, now time.Time, log logrus.FieldLogger) (HandleOutcome, []events.Message, error) {
	if order.PaymentStatus != domain.PaymentStatusPending {
		return OutcomeNoop, nil, nil
	}
	closed, booking, err := closeOrder(ctx, s.repo, order, domain.PaymentStatusFailed, now)
	if err != nil {
		return "", nil, err
	}
	if !closed {
		return OutcomeNoop, nil, nil
	}

	reason := string(ev.Type)
	msgs := []events.Message{{
		Key: events.RKPaymentFailed,
		Payload: events.Payment{
			OrderID:     order.ID,
			PackageName: order.PackageName,
			AmountMinor: order.AmountMinor,
			Currency:    order.Currency,
			Reason:      reason,
			OccurredAt:  now,
		},
	}}
	if booking.ID != "" {
		msgs = append(msgs, events.Message{
			Key:     events.RKBookingCancelled,
			Payload: bookingEvent(booking, domain.Slot{ID: booking.SlotID}, reason, now),
		})
	}
	log.Info("checkout did not complete, slot released")
	return OutcomeApplied, msgs, nil
}

func (s *PaymentService) handleRefund(ctx context.Context, ev domain.PaymentEvent, log logrus.FieldLogger) (HandleResult, error) {
	pi := ev.Payment.PaymentIntentID
	if pi == "" {
		log.Warn("refund event has no payment intent, skipping")
		return HandleResult{Outcome: OutcomeSkipped}, nil
	}
	log = log.WithField("payment_intent_id", pi)

	now := s.clock.Now()
	var res HandleResult
	var msgs []events.Message

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		msgs = nil
		order, err := s.repo.FindOrderByPaymentIntent(txCtx, pi)
		if err != nil {
			return err
		}
		if order == nil {
			log.Warn("refund for unknown payment intent, skipping")
			res = HandleResult{Outcome: OutcomeSkipped}
			return nil
		}
		res.OrderID = order.ID

		first, err := s.repo.MarkEventProcessed(txCtx, ev.ID, string(ev.Type), order.ID, now)
		if err != nil {
			return err
		}
		if !first {
			res.Outcome = OutcomeDuplicate
			return nil
		}
		if order.PaymentStatus == domain.PaymentStatusRefunded {
			res.Outcome = OutcomeNoop
			return nil
		}
		if !order.PaymentStatus.CanTransitionTo(domain.PaymentStatusRefunded) {
			log.WithField("payment_status", order.PaymentStatus).Error("refund for an order that cannot be refunded")
			res.Outcome = OutcomeRejected
			return nil
		}

		closed, booking, err := closeOrder(txCtx, s.repo, *order, domain.PaymentStatusRefunded, now)
		if err != nil {
			return err
		}
		if !closed {
			res.Outcome = OutcomeNoop
			return nil
		}
		res.Outcome = OutcomeApplied
		msgs = append(msgs, events.Message{
			Key: events.RKPaymentRefunded,
			Payload: events.Payment{
				OrderID:         order.ID,
				PackageName:     order.PackageName,
				AmountMinor:     order.AmountMinor,
				Currency:        order.Currency,
				PaymentIntentID: pi,
				CustomerEmail:   order.CustomerEmail,
				OccurredAt:      now,
			},
		})
		if booking.ID != "" {
			msgs = append(msgs, events.Message{
				Key:     events.RKBookingCancelled,
				Payload: bookingEvent(booking, domain.Slot{ID: booking.SlotID}, "refunded", now),
			})
		}
		return nil
	})
	if err != nil {
		return HandleResult{}, err
	}

	if res.Outcome == OutcomeApplied {
		log.WithField("order_id", res.OrderID).Info("order refunded, slot released")
	}
	publishAll(ctx, s.events, s.log, msgs)
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
