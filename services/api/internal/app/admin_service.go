package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

type AdminRepository interface {
	CreateSlots(ctx context.Context, slots []domain.Slot) error
	ListSlots(ctx context.Context) ([]domain.Slot, error)
	GetSlot(ctx context.Context, id string) (domain.Slot, error)
	DeleteSlot(ctx context.Context, id string) error
	ReleaseSlot(ctx context.Context, slotID string) (bool, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	ListBookings(ctx context.Context, limit int) ([]domain.BookingDetails, error)
	UpsertPackage(ctx context.Context, pkg domain.Package) error
	ListPackages(ctx context.Context, includeInactive bool) ([]domain.Package, error)
}

type AdminService struct {
	repo     AdminRepository
	clock    clock.Clock
	currency string
	log      logrus.FieldLogger
}

type AdminServiceOption func(*AdminService)

func WithAdminLogger(l logrus.FieldLogger) AdminServiceOption {
	return func(s *AdminService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAdminCurrency sets the currency given to packages saved without one.
func WithAdminCurrency(c string) AdminServiceOption {
	return func(s *AdminService) {
		if c != "" {
			s.currency = strings.ToLower(c)
		}
	}
}

func NewAdminService(repo AdminRepository, clk clock.Clock, opts ...AdminServiceOption) *AdminService {
	svc := &AdminService{
		repo:     repo,
		clock:    clk,
		currency: "gbp",
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateSlots validates every window before inserting any of them.
func (s *AdminService) CreateSlots(ctx context.Context, windows []domain.SlotWindow) ([]domain.Slot, error) {
	if len(windows) == 0 {
		return nil, domain.ErrInvalidSlotWindow
	}
	now := s.clock.Now()
	seen := make(map[int64]bool, len(windows))
	slots := make([]domain.Slot, 0, len(windows))
	for _, w := range windows {
		if err := w.Validate(); err != nil {
			return nil, err
		}
		key := w.Start.UTC().UnixNano()
		if seen[key] {
			return nil, domain.ErrSlotAlreadyExists
		}
		seen[key] = true
		slots = append(slots, domain.Slot{
			ID:        newUUID(),
			StartTime: w.Start.UTC(),
			EndTime:   w.End.UTC(),
			CreatedAt: now,
		})
	}

	if err := s.repo.CreateSlots(ctx, slots); err != nil {
		return nil, err
	}
	s.log.WithField("count", len(slots)).Info("slots created")
	return slots, nil
}

func (s *AdminService) ListSlots(ctx context.Context) ([]domain.Slot, error) {
	return s.repo.ListSlots(ctx)
}

func (s *AdminService) DeleteSlot(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrInvalidID
	}
	if err := s.repo.DeleteSlot(ctx, id); err != nil {
		return err
	}
	s.log.WithField("slot_id", id).Info("slot deleted")
	return nil
}

// ReleaseSlot frees a slot left booked by an abandoned checkout. A slot
// still held by a live booking is refused.
func (s *AdminService) ReleaseSlot(ctx context.Context, id string) (domain.Slot, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Slot{}, domain.ErrInvalidID
	}
	slot, err := s.repo.GetSlot(ctx, id)
	if err != nil {
		return domain.Slot{}, err
	}
	if !slot.IsBooked {
		return slot, nil
	}
	released, err := s.repo.ReleaseSlot(ctx, id)
	if err != nil {
		return domain.Slot{}, err
	}
	if !released {
		return domain.Slot{}, domain.ErrSlotHasActiveBooking
	}
	slot.IsBooked = false
	s.log.WithField("slot_id", id).Warn("slot released manually")
	return slot, nil
}

func (s *AdminService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	filter.EmailContains = strings.TrimSpace(filter.EmailContains)
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListOrders(ctx, filter)
}

func (s *AdminService) ListBookings(ctx context.Context, limit int) ([]domain.BookingDetails, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListBookings(ctx, limit)
}

func (s *AdminService) UpsertPackage(ctx context.Context, pkg domain.Package) (domain.Package, error) {
	if len(pkg.Translations) == 0 || strings.TrimSpace(pkg.Text(domain.DefaultLanguage).Name) == "" {
		return domain.Package{}, domain.ErrPackageNameRequired
	}
	if pkg.PriceMinor < 1 || pkg.PriceMinor > domain.MaxAmountMinor {
		return domain.Package{}, domain.ErrInvalidAmount
	}
	if pkg.ID == "" {
		pkg.ID = newUUID()
	}
	pkg.Currency = strings.ToLower(strings.TrimSpace(pkg.Currency))
	if pkg.Currency == "" {
		pkg.Currency = s.currency
	}
	if err := s.repo.UpsertPackage(ctx, pkg); err != nil {
		return domain.Package{}, err
	}
	return pkg, nil
}

func (s *AdminService) ListPackages(ctx context.Context) ([]domain.Package, error) {
	return s.repo.ListPackages(ctx, true)
}

// ExpandDaySlots turns "HH:MM-HH:MM" ranges on one calendar day into slot
// windows in loc.
func ExpandDaySlots(date string, ranges []string, loc *time.Location) ([]domain.SlotWindow, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", domain.ErrInvalidSlotWindow, date)
	}

	windows := make([]domain.SlotWindow, 0, len(ranges))
	for _, r := range ranges {
		from, to, ok := strings.Cut(strings.TrimSpace(r), "-")
		if !ok {
			return nil, fmt.Errorf("%w: bad range %q", domain.ErrInvalidSlotWindow, r)
		}
		start, err := atClock(day, from)
		if err != nil {
			return nil, err
		}
		end, err := atClock(day, to)
		if err != nil {
			return nil, err
		}
		w := domain.SlotWindow{Start: start, End: end}
		if err := w.Validate(); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func atClock(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad time %q", domain.ErrInvalidSlotWindow, hhmm)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
