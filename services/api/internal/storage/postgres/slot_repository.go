package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

const slotColumns = `id, start_time, end_time, is_booked, created_at`

func scanSlot(row pgx.Row) (domain.Slot, error) {
	var s domain.Slot
	err := row.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.IsBooked, &s.CreatedAt)
	return s, err
}

func (s *Store) GetSlot(ctx context.Context, id string) (domain.Slot, error) {
	slot, err := scanSlot(s.queryRow(ctx, `SELECT `+slotColumns+` FROM availability_slots WHERE id = $1`, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Slot{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Slot{}, domain.ErrSlotNotFound
		}
		return domain.Slot{}, fmt.Errorf("get slot: %w", err)
	}
	return slot, nil
}

// ReserveSlot flips is_booked in a single conditional update, so of two
// concurrent callers exactly one gets the slot.
func (s *Store) ReserveSlot(ctx context.Context, slotID string, now time.Time) (domain.Slot, error) {
	const stmt = `
UPDATE availability_slots
SET is_booked = TRUE
WHERE id = $1 AND is_booked = FALSE AND start_time > $2
RETURNING ` + slotColumns

	slot, err := scanSlot(s.queryRow(ctx, stmt, slotID, now))
	if err == nil {
		return slot, nil
	}
	if isInvalidUUID(err) {
		return domain.Slot{}, domain.ErrInvalidID
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Slot{}, fmt.Errorf("reserve slot: %w", err)
	}

	var exists bool
	if err := s.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM availability_slots WHERE id = $1)`, slotID).Scan(&exists); err != nil {
		return domain.Slot{}, fmt.Errorf("check slot: %w", err)
	}
	if !exists {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	return domain.Slot{}, domain.ErrSlotUnavailable
}

// ReleaseSlot frees a slot unless a live booking still points at it.
func (s *Store) ReleaseSlot(ctx context.Context, slotID string) (bool, error) {
	const stmt = `
UPDATE availability_slots AS s
SET is_booked = FALSE
WHERE s.id = $1
  AND NOT EXISTS (
	SELECT 1 FROM bookings b
	WHERE b.slot_id = s.id AND b.status <> 'cancelled'
  )`

	tag, err := s.exec(ctx, stmt, slotID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("release slot: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListAvailableSlots returns free slots from from onwards; a zero to means
// no upper bound.
func (s *Store) ListAvailableSlots(ctx context.Context, from, to time.Time) ([]domain.Slot, error) {
	const query = `
SELECT ` + slotColumns + `
FROM availability_slots
WHERE is_booked = FALSE
  AND start_time >= $1
  AND ($2::timestamptz IS NULL OR start_time < $2)
ORDER BY start_time ASC`

	var upper *time.Time
	if !to.IsZero() {
		upper = &to
	}
	return s.listSlots(ctx, query, from, upper)
}

func (s *Store) listSlots(ctx context.Context, query string, args ...any) ([]domain.Slot, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	slots := []domain.Slot{}
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate slots: %w", rows.Err())
	}
	return slots, nil
}
