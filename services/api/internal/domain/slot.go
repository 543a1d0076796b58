package domain

import "time"

// Slot is a bookable consultation window.
type Slot struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	IsBooked  bool
	CreatedAt time.Time
}

// SlotWindow is the start/end pair used when creating slots.
type SlotWindow struct {
	Start time.Time
	End   time.Time
}

func (w SlotWindow) Validate() error {
	if w.Start.IsZero() || !w.End.After(w.Start) {
		return ErrInvalidSlotWindow
	}
	return nil
}
