package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

// CreateSlots inserts all slots or none.
func (s *Store) CreateSlots(ctx context.Context, slots []domain.Slot) error {
	const stmt = `
INSERT INTO availability_slots (id, start_time, end_time, is_booked, created_at)
VALUES ($1, $2, $3, FALSE, $4)`

	return s.WithTx(ctx, func(txCtx context.Context) error {
		batch := &pgx.Batch{}
		for _, slot := range slots {
			batch.Queue(stmt, slot.ID, slot.StartTime, slot.EndTime, slot.CreatedAt)
		}
		results := txFromContext(txCtx).SendBatch(txCtx, batch)
		defer results.Close()

		for range slots {
			if _, err := results.Exec(); err != nil {
				if violatesConstraint(err, "availability_slots_start_time_key") {
					return domain.ErrSlotAlreadyExists
				}
				if violatesConstraint(err, "availability_slots_window_check") {
					return domain.ErrInvalidSlotWindow
				}
				return fmt.Errorf("create slot: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) ListSlots(ctx context.Context) ([]domain.Slot, error) {
	return s.listSlots(ctx, `SELECT `+slotColumns+` FROM availability_slots ORDER BY start_time ASC`)
}

// DeleteSlot removes a slot nobody holds. Cancelled bookings keep their row
// and lose the slot reference.
func (s *Store) DeleteSlot(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(txCtx context.Context) error {
		var locked string
		err := s.queryRow(txCtx, `SELECT id FROM availability_slots WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrSlotNotFound
			}
			return fmt.Errorf("lock slot: %w", err)
		}

		var active bool
		if err := s.queryRow(txCtx,
			`SELECT EXISTS (SELECT 1 FROM bookings WHERE slot_id = $1 AND status <> 'cancelled')`, id,
		).Scan(&active); err != nil {
			return fmt.Errorf("check slot bookings: %w", err)
		}
		if active {
			return domain.ErrSlotHasActiveBooking
		}

		if _, err := s.exec(txCtx, `DELETE FROM availability_slots WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		return nil
	})
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	const query = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text = '' OR payment_status = $1::text)
  AND ($2::text = '' OR customer_email ILIKE '%' || $2::text || '%')
ORDER BY created_at DESC
LIMIT $3`
	return s.listOrders(ctx, query, string(filter.Status), filter.EmailContains, filter.Limit)
}

func (s *Store) ListBookings(ctx context.Context, limit int) ([]domain.BookingDetails, error) {
	const query = `
SELECT
	b.id, b.order_id, COALESCE(b.slot_id::text, ''), b.client_name, b.client_email, b.client_phone,
	b.notes, b.language, b.status, b.created_at, b.updated_at,
	s.start_time, s.end_time,
	o.package_name, o.amount_minor, o.currency, o.payment_status
FROM bookings b
JOIN orders o ON o.id = b.order_id
LEFT JOIN availability_slots s ON s.id = b.slot_id
ORDER BY b.created_at DESC
LIMIT $1`

	rows, err := s.query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []domain.BookingDetails{}
	for rows.Next() {
		var d domain.BookingDetails
		var bookingStatus, paymentStatus string
		var start, end *time.Time
		if err := rows.Scan(
			&d.Booking.ID, &d.Booking.OrderID, &d.Booking.SlotID, &d.Booking.ClientName, &d.Booking.ClientEmail, &d.Booking.ClientPhone,
			&d.Booking.Notes, &d.Booking.Language, &bookingStatus, &d.Booking.CreatedAt, &d.Booking.UpdatedAt,
			&start, &end,
			&d.Order.PackageName, &d.Order.AmountMinor, &d.Order.Currency, &paymentStatus,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		d.Booking.Status = domain.BookingStatus(bookingStatus)
		if start != nil && end != nil {
			d.Slot = domain.Slot{ID: d.Booking.SlotID, StartTime: *start, EndTime: *end}
		}
		d.Order.ID = d.Booking.OrderID
		d.Order.PaymentStatus = domain.PaymentStatus(paymentStatus)
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate bookings: %w", rows.Err())
	}
	return out, nil
}

func (s *Store) UpsertPackage(ctx context.Context, pkg domain.Package) error {
	const stmt = `
INSERT INTO consultation_packages (id, translations, price_minor, currency, duration_minutes, is_popular, order_index, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	translations = EXCLUDED.translations,
	price_minor = EXCLUDED.price_minor,
	currency = EXCLUDED.currency,
	duration_minutes = EXCLUDED.duration_minutes,
	is_popular = EXCLUDED.is_popular,
	order_index = EXCLUDED.order_index,
	active = EXCLUDED.active`

	translations, err := json.Marshal(pkg.Translations)
	if err != nil {
		return fmt.Errorf("encode translations: %w", err)
	}
	_, err = s.exec(ctx, stmt, pkg.ID, translations, pkg.PriceMinor, pkg.Currency,
		pkg.DurationMinutes, pkg.IsPopular, pkg.OrderIndex, pkg.Active)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("upsert package: %w", err)
	}
	return nil
}
