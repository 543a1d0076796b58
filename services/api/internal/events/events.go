// Package events defines the domain events published on the booking exchange.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	RKBookingCreated   = "booking.created"
	RKBookingConfirmed = "booking.confirmed"
	RKBookingCancelled = "booking.cancelled"
	RKBookingExpired   = "booking.expired"

	RKPaymentPaid     = "payment.paid"
	RKPaymentFailed   = "payment.failed"
	RKPaymentRefunded = "payment.refunded"
)

// Bindings are the routing keys the notification worker listens on.
var Bindings = []string{"booking.*", "payment.*"}

type Booking struct {
	BookingID   string    `json:"booking_id"`
	OrderID     string    `json:"order_id"`
	SlotID      string    `json:"slot_id,omitempty"`
	ClientName  string    `json:"client_name,omitempty"`
	ClientEmail string    `json:"client_email,omitempty"`
	SlotStart   time.Time `json:"slot_start,omitempty"`
	SlotEnd     time.Time `json:"slot_end,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Payment struct {
	OrderID         string    `json:"order_id"`
	PackageName     string    `json:"package_name,omitempty"`
	AmountMinor     int64     `json:"amount_minor"`
	Currency        string    `json:"currency"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	CustomerEmail   string    `json:"customer_email,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Message is one event waiting to be published.
type Message struct {
	Key     string
	Payload any
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
