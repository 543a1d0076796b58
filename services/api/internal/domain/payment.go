package domain

import "time"

const DefaultLineItemDescription = "Consultație lactație"

// CheckoutRequest is everything the payment provider needs to open a hosted checkout.
type CheckoutRequest struct {
	OrderID            string
	PackageName        string
	PackageDescription string
	AmountMinor        int64
	Currency           string
	CustomerEmail      string
	SuccessURL         string
	CancelURL          string
	ExpiresAt          time.Time
}

type CheckoutSession struct {
	ID  string
	URL string
}

// SessionState is the provider's current view of a checkout session.
type SessionState struct {
	ID            string
	Status        string
	PaymentStatus string
	Payment       PaymentDetails
}

const (
	SessionStatusOpen     = "open"
	SessionStatusComplete = "complete"
	SessionStatusExpired  = "expired"

	SessionPaymentPaid   = "paid"
	SessionPaymentUnpaid = "unpaid"
)

type PaymentEventType string

const (
	EventCheckoutCompleted PaymentEventType = "checkout_completed"
	EventCheckoutPending   PaymentEventType = "checkout_pending"
	EventCheckoutFailed    PaymentEventType = "checkout_failed"
	EventCheckoutExpired   PaymentEventType = "checkout_expired"
	EventChargeRefunded    PaymentEventType = "charge_refunded"
	EventUnhandled         PaymentEventType = "unhandled"
)

// PaymentEvent is a verified provider notification reduced to what the
// order state machine needs.
type PaymentEvent struct {
	ID           string
	Type         PaymentEventType
	ProviderType string
	OrderID      string
	Payment      PaymentDetails
	OccurredAt   time.Time
}
