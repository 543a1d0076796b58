package app

import (
	"context"
	"errors"
	"time"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

type orderTransitioner interface {
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.PaymentStatus, at time.Time) (bool, error)
	GetBookingByOrderID(ctx context.Context, orderID string) (domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, to domain.BookingStatus, at time.Time, from ...domain.BookingStatus) (bool, error)
	ReleaseSlot(ctx context.Context, slotID string) (bool, error)
}

// closeOrder moves an order to a terminal status, cancels its booking and
// frees the slot. It must run inside WithTx. closed is false when the order
// had already left its status, which makes racing writers harmless.
func closeOrder(ctx context.Context, repo orderTransitioner, order domain.Order, to domain.PaymentStatus, at time.Time) (closed bool, booking domain.Booking, err error) {
	if !order.PaymentStatus.CanTransitionTo(to) {
		return false, domain.Booking{}, domain.ErrInvalidTransition
	}
	ok, err := repo.UpdateOrderStatus(ctx, order.ID, order.PaymentStatus, to, at)
	if err != nil || !ok {
		return false, domain.Booking{}, err
	}

	booking, err = repo.GetBookingByOrderID(ctx, order.ID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return true, domain.Booking{}, nil
	}
	if err != nil {
		return false, domain.Booking{}, err
	}
	if _, err := repo.UpdateBookingStatus(ctx, booking.ID, domain.BookingStatusCancelled, at,
		domain.BookingStatusPending, domain.BookingStatusConfirmed); err != nil {
		return false, domain.Booking{}, err
	}
	booking.Status = domain.BookingStatusCancelled
	booking.UpdatedAt = at

	if booking.SlotID != "" {
		if _, err := repo.ReleaseSlot(ctx, booking.SlotID); err != nil {
			return false, domain.Booking{}, err
		}
	}
	return true, booking, nil
}
