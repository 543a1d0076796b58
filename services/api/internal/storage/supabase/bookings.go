package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

func (s *Store) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, _, err := s.db.From(tableBookings).Insert(newBookingRow(b), false, "", "minimal", "").Execute()
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "bookings_active_slot_idx") {
				return domain.ErrSlotUnavailable
			}
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create booking: %w", err)
	}
	onUndo(ctx, "delete booking", func() error {
		_, _, err := s.db.From(tableBookings).Delete("minimal", "").Eq("id", b.ID).Execute()
		return err
	})
	return nil
}

func (s *Store) GetBookingByOrderID(ctx context.Context, orderID string) (domain.Booking, error) {
	return s.getBooking("order_id", orderID)
}

func (s *Store) getBooking(column, value string) (domain.Booking, error) {
	var rows []bookingRow
	_, err := s.db.From(tableBookings).Select("*", "", false).Eq(column, value).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if len(rows) == 0 {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return rows[0].toDomain(), nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id string, to domain.BookingStatus, at time.Time, from ...domain.BookingStatus) (bool, error) {
	current, err := s.getBooking("id", id)
	if err == domain.ErrBookingNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	q := s.db.From(tableBookings).
		Update(map[string]any{"status": string(to), "updated_at": ts(at)}, "representation", "").
		Eq("id", id)
	if len(from) > 0 {
		allowed := make([]string, 0, len(from))
		for _, f := range from {
			allowed = append(allowed, string(f))
		}
		q = q.In("status", allowed)
	}
	var rows []bookingRow
	if _, err := q.ExecuteTo(&rows); err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	onUndo(ctx, "revert booking status", func() error {
		_, _, err := s.db.From(tableBookings).
			Update(map[string]any{"status": string(current.Status)}, "minimal", "").
			Eq("id", id).
			Execute()
		return err
	})
	return true, nil
}

func (s *Store) ListBookings(ctx context.Context, limit int) ([]domain.BookingDetails, error) {
	var rows []bookingDetailRow
	_, err := s.db.From(tableBookings).
		Select("*,orders(*),availability_slots(*)", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]domain.BookingDetails, 0, len(rows))
	for _, r := range rows {
		d := domain.BookingDetails{Booking: r.toDomain()}
		if r.Order != nil {
			d.Order = r.Order.toDomain()
		}
		if r.Slot != nil {
			d.Slot = r.Slot.toDomain()
		}
		out = append(out, d)
	}
	return out, nil
}
