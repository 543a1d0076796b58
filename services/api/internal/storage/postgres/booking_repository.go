package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

const bookingColumns = `
	id, order_id, COALESCE(slot_id::text, ''), client_name, client_email, client_phone,
	notes, language, status, created_at, updated_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	var status string
	err := row.Scan(
		&b.ID, &b.OrderID, &b.SlotID, &b.ClientName, &b.ClientEmail, &b.ClientPhone,
		&b.Notes, &b.Language, &status, &b.CreatedAt, &b.UpdatedAt,
	)
	b.Status = domain.BookingStatus(status)
	return b, err
}

func (s *Store) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (
	id, order_id, slot_id, client_name, client_email, client_phone,
	notes, language, status, created_at, updated_at
) VALUES ($1, $2, $3::uuid, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.exec(ctx, stmt,
		b.ID, b.OrderID, nullable(b.SlotID), b.ClientName, b.ClientEmail, b.ClientPhone,
		b.Notes, b.Language, b.Status, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if violatesConstraint(err, "bookings_active_slot_idx") {
			return domain.ErrSlotUnavailable
		}
		if violatesConstraint(err, "bookings_order_id_key") {
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (s *Store) GetBookingByOrderID(ctx context.Context, orderID string) (domain.Booking, error) {
	b, err := scanBooking(s.queryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE order_id = $1`, orderID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// UpdateBookingStatus sets the status when the booking is in one of from,
// or unconditionally when from is empty.
func (s *Store) UpdateBookingStatus(ctx context.Context, id string, to domain.BookingStatus, at time.Time, from ...domain.BookingStatus) (bool, error) {
	const stmt = `
UPDATE bookings
SET status = $2, updated_at = $3
WHERE id = $1 AND (cardinality($4::text[]) = 0 OR status = ANY($4::text[]))`

	allowed := make([]string, 0, len(from))
	for _, f := range from {
		allowed = append(allowed, string(f))
	}
	tag, err := s.exec(ctx, stmt, id, to, at, allowed)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
