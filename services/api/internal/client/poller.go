package client

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

var (
	ErrConfirmationTimeout = errors.New("payment confirmation timed out")
	ErrPaymentFailed       = errors.New("payment failed")
)

type StatusGetter interface {
	GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error)
}

// Poller waits for the webhook to settle an order. It only reads; a timeout
// leaves the order as it is and the reconcile job finishes it.
type Poller struct {
	Source      StatusGetter
	Interval    time.Duration
	MaxAttempts int
	// Sleep defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnAttempt is called after every poll when set.
	OnAttempt func(attempt int, st OrderStatus)
}

func NewPoller(source StatusGetter) *Poller {
	return &Poller{Source: source, Interval: DefaultInterval, MaxAttempts: DefaultMaxAttempts}
}

// WaitForConfirmation returns the paid order, ErrPaymentFailed for a failed
// or refunded one, or ErrConfirmationTimeout once the attempts run out.
// Transient lookup errors count as attempts.
func (p *Poller) WaitForConfirmation(ctx context.Context, orderID string) (OrderStatus, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var last OrderStatus
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		st, err := p.Source.GetOrderStatus(ctx, orderID)
		switch {
		case err != nil:
			if IsCode(err, "order_not_found") || IsCode(err, "invalid_id") {
				return OrderStatus{}, err
			}
			lastErr = err
		default:
			last, lastErr = st, nil
			if p.OnAttempt != nil {
				p.OnAttempt(attempt, st)
			}
			switch st.PaymentStatus {
			case "paid":
				return st, nil
			case "failed", "refunded":
				return st, fmt.Errorf("%w: order %s is %s", ErrPaymentFailed, orderID, st.PaymentStatus)
			}
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return last, err
		}
	}
	if lastErr != nil {
		return last, fmt.Errorf("%w after %d attempts: %v", ErrConfirmationTimeout, attempts, lastErr)
	}
	return last, fmt.Errorf("%w after %d attempts", ErrConfirmationTimeout, attempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
