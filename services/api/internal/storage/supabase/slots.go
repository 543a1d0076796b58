package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

func (s *Store) GetSlot(ctx context.Context, id string) (domain.Slot, error) {
	var rows []slotRow
	_, err := s.db.From(tableSlots).Select("*", "", false).Eq("id", id).ExecuteTo(&rows)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Slot{}, domain.ErrInvalidID
		}
		return domain.Slot{}, fmt.Errorf("get slot: %w", err)
	}
	if len(rows) == 0 {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	return rows[0].toDomain(), nil
}

// ReserveSlot is one conditional PATCH; PostgREST returns the updated rows,
// so an empty list means somebody else holds the slot.
func (s *Store) ReserveSlot(ctx context.Context, slotID string, now time.Time) (domain.Slot, error) {
	var rows []slotRow
	_, err := s.db.From(tableSlots).
		Update(map[string]any{"is_booked": true}, "representation", "").
		Eq("id", slotID).
		Eq("is_booked", "false").
		Gt("start_time", ts(now)).
		ExecuteTo(&rows)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Slot{}, domain.ErrInvalidID
		}
		return domain.Slot{}, fmt.Errorf("reserve slot: %w", err)
	}
	if len(rows) == 0 {
		if _, err := s.GetSlot(ctx, slotID); err != nil {
			return domain.Slot{}, err
		}
		return domain.Slot{}, domain.ErrSlotUnavailable
	}

	onUndo(ctx, "unreserve slot", func() error {
		_, _, err := s.db.From(tableSlots).
			Update(map[string]any{"is_booked": false}, "minimal", "").
			Eq("id", slotID).
			Execute()
		return err
	})
	return rows[0].toDomain(), nil
}

func (s *Store) ReleaseSlot(ctx context.Context, slotID string) (bool, error) {
	active, err := s.hasActiveBooking(slotID)
	if err != nil {
		return false, err
	}
	if active {
		return false, nil
	}

	slot, err := s.GetSlot(ctx, slotID)
	if err == domain.ErrSlotNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !slot.IsBooked {
		return true, nil
	}

	var rows []slotRow
	_, err = s.db.From(tableSlots).
		Update(map[string]any{"is_booked": false}, "representation", "").
		Eq("id", slotID).
		Eq("is_booked", "true").
		ExecuteTo(&rows)
	if err != nil {
		return false, fmt.Errorf("release slot: %w", err)
	}
	if len(rows) == 0 {
		return true, nil
	}
	onUndo(ctx, "rebook slot", func() error {
		_, _, err := s.db.From(tableSlots).
			Update(map[string]any{"is_booked": true}, "minimal", "").
			Eq("id", slotID).
			Execute()
		return err
	})
	return true, nil
}

func (s *Store) hasActiveBooking(slotID string) (bool, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	_, err := s.db.From(tableBookings).
		Select("id", "", false).
		Eq("slot_id", slotID).
		Neq("status", string(domain.BookingStatusCancelled)).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check slot bookings: %w", err)
	}
	return len(rows) > 0, nil
}

// ListAvailableSlots filters the upper bound locally because postgrest-go
// keeps one filter per column.
func (s *Store) ListAvailableSlots(ctx context.Context, from, to time.Time) ([]domain.Slot, error) {
	var rows []slotRow
	_, err := s.db.From(tableSlots).
		Select("*", "", false).
		Eq("is_booked", "false").
		Gte("start_time", ts(from)).
		Order("start_time", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	slots := make([]domain.Slot, 0, len(rows))
	for _, r := range rows {
		if !to.IsZero() && !r.StartTime.Before(to) {
			break
		}
		slots = append(slots, r.toDomain())
	}
	return slots, nil
}

func (s *Store) ListSlots(ctx context.Context) ([]domain.Slot, error) {
	var rows []slotRow
	_, err := s.db.From(tableSlots).
		Select("*", "", false).
		Order("start_time", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	slots := make([]domain.Slot, 0, len(rows))
	for _, r := range rows {
		slots = append(slots, r.toDomain())
	}
	return slots, nil
}

// CreateSlots sends one bulk insert, which PostgREST applies atomically.
func (s *Store) CreateSlots(ctx context.Context, slots []domain.Slot) error {
	rows := make([]slotRow, 0, len(slots))
	for _, sl := range slots {
		rows = append(rows, slotRow{ID: sl.ID, StartTime: sl.StartTime, EndTime: sl.EndTime, CreatedAt: sl.CreatedAt})
	}
	_, _, err := s.db.From(tableSlots).Insert(rows, false, "", "minimal", "").Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlotAlreadyExists
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidSlotWindow
		}
		return fmt.Errorf("create slots: %w", err)
	}
	return nil
}

func (s *Store) DeleteSlot(ctx context.Context, id string) error {
	if _, err := s.GetSlot(ctx, id); err != nil {
		return err
	}
	active, err := s.hasActiveBooking(id)
	if err != nil {
		return err
	}
	if active {
		return domain.ErrSlotHasActiveBooking
	}
	if _, _, err := s.db.From(tableSlots).Delete("minimal", "").Eq("id", id).Execute(); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}
