package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/events"
)

var errDecode = errors.New("undecodable payload")

type DeliverySource interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

type Worker struct {
	source   DeliverySource
	notifier Notifier
	log      logrus.FieldLogger
	loc      *time.Location
}

type WorkerOption func(*Worker)

// WithLocation sets the zone slot times are rendered in. Defaults to UTC.
func WithLocation(loc *time.Location) WorkerOption {
	return func(w *Worker) {
		if loc != nil {
			w.loc = loc
		}
	}
}

func NewWorker(source DeliverySource, n Notifier, log logrus.FieldLogger, opts ...WorkerOption) *Worker {
	w := &Worker{source: source, notifier: n, log: log, loc: time.UTC}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.source.Deliveries(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.process(ctx, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, d amqp.Delivery) {
	log := w.log.WithField("key", d.RoutingKey)
	err := w.handle(ctx, d.RoutingKey, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errDecode):
		log.WithError(err).Error("dropping undecodable event")
		_ = d.Nack(false, false)
	default:
		log.WithError(err).Warn("notification failed, requeueing")
		_ = d.Nack(false, true)
	}
}

func (w *Worker) handle(ctx context.Context, key string, body []byte) error {
	n, ok, err := w.render(key, body)
	if err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	if !ok {
		w.log.WithField("key", key).Info("skipping unknown event key")
		return nil
	}
	return w.notifier.Notify(ctx, n)
}

func (w *Worker) render(key string, body []byte) (Notification, bool, error) {
	switch key {
	case events.RKBookingCreated, events.RKBookingConfirmed, events.RKBookingCancelled, events.RKBookingExpired:
		ev, err := events.Decode[events.Booking](body)
		if err != nil {
			return Notification{}, false, err
		}
		return w.bookingNotification(key, ev), true, nil

	case events.RKPaymentPaid, events.RKPaymentFailed, events.RKPaymentRefunded:
		ev, err := events.Decode[events.Payment](body)
		if err != nil {
			return Notification{}, false, err
		}
		return paymentNotification(key, ev), true, nil
	}
	return Notification{}, false, nil
}

func (w *Worker) bookingNotification(key string, ev events.Booking) Notification {
	when := humanTimeRange(ev.SlotStart, ev.SlotEnd, w.loc)
	n := Notification{Key: key, Recipient: ev.ClientEmail}
	switch key {
	case events.RKBookingCreated:
		n.Subject = "Booking received"
		n.Body = fmt.Sprintf("Booking %s for %s is waiting for payment.", ev.BookingID, when)
	case events.RKBookingConfirmed:
		n.Subject = "Booking confirmed"
		n.Body = fmt.Sprintf("Booking %s for %s is confirmed.", ev.BookingID, when)
	case events.RKBookingCancelled:
		n.Subject = "Booking cancelled"
		n.Body = fmt.Sprintf("Booking %s for %s was cancelled.", ev.BookingID, when)
	case events.RKBookingExpired:
		n.Subject = "Reservation expired"
		n.Body = fmt.Sprintf("Booking %s for %s expired before payment.", ev.BookingID, when)
	}
	if ev.Reason != "" {
		n.Body += " Reason: " + ev.Reason + "."
	}
	return n
}

func paymentNotification(key string, ev events.Payment) Notification {
	amount := domain.FormatAmount(ev.AmountMinor, ev.Currency)
	n := Notification{Key: key, Recipient: ev.CustomerEmail}
	switch key {
	case events.RKPaymentPaid:
		n.Subject = "Payment received"
		n.Body = fmt.Sprintf("Order %s (%s) paid %s.", ev.OrderID, ev.PackageName, amount)
	case events.RKPaymentFailed:
		n.Subject = "Payment failed"
		n.Body = fmt.Sprintf("Payment for order %s (%s) did not complete.", ev.OrderID, amount)
	case events.RKPaymentRefunded:
		n.Subject = "Payment refunded"
		n.Body = fmt.Sprintf("Order %s was refunded %s.", ev.OrderID, amount)
	}
	if ev.Reason != "" {
		n.Body += " Reason: " + ev.Reason + "."
	}
	return n
}
