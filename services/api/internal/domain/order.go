package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusFailed},
	PaymentStatusPaid:    {PaymentStatusRefunded},
}

// CanTransitionTo reports whether an order may move from s to next.
// Terminal states (refunded, failed) accept nothing.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

// Order is one purchase attempt for a package.
type Order struct {
	ID                    string
	PackageID             string
	PackageName           string
	AmountMinor           int64
	Currency              string
	PaymentStatus         PaymentStatus
	StripeSessionID       string
	StripePaymentIntentID string
	CheckoutURL           string
	CustomerEmail         string
	CustomerName          string
	IdempotencyKey        string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	ExpiresAt             time.Time
}

// PaymentDetails is what the provider tells us about the payer once money moved.
type PaymentDetails struct {
	SessionID       string
	PaymentIntentID string
	CustomerEmail   string
	CustomerName    string
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status        PaymentStatus
	EmailContains string
	Limit         int
}
