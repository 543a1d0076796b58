package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

// fakeStore is an in-memory implementation of every repository the services
// use. Transactions are serialized and rolled back from a snapshot unless
// interleaveTx is set, in which case they run concurrently without rollback
// and only the conditional writes guard shared rows.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	interleaveTx bool

	slots     map[string]domain.Slot
	orders    map[string]domain.Order
	bookings  map[string]domain.Booking
	packages  map[string]domain.Package
	processed map[string]bool

	createBookingErr error
	markEventErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		slots:     map[string]domain.Slot{},
		orders:    map[string]domain.Order{},
		bookings:  map[string]domain.Booking{},
		packages:  map[string]domain.Package{},
		processed: map[string]bool{},
	}
}

type fakeSnapshot struct {
	slots     map[string]domain.Slot
	orders    map[string]domain.Order
	bookings  map[string]domain.Booking
	packages  map[string]domain.Package
	processed map[string]bool
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.interleaveTx {
		return fn(ctx)
	}
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snap := fakeSnapshot{
		slots:     cloneMap(f.slots),
		orders:    cloneMap(f.orders),
		bookings:  cloneMap(f.bookings),
		packages:  cloneMap(f.packages),
		processed: cloneMap(f.processed),
	}
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.slots, f.orders, f.bookings = snap.slots, snap.orders, snap.bookings
		f.packages, f.processed = snap.packages, snap.processed
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) addSlot(s domain.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[s.ID] = s
}

func (f *fakeStore) addPackage(p domain.Package) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packages[p.ID] = p
}

func (f *fakeStore) addOrder(o domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
}

func (f *fakeStore) addBooking(b domain.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID] = b
}

func (f *fakeStore) slot(id string) domain.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slots[id]
}

func (f *fakeStore) order(id string) domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

func (f *fakeStore) bookingFor(orderID string) domain.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.OrderID == orderID {
			return b
		}
	}
	return domain.Booking{}
}

func (f *fakeStore) counts() (orders, bookings int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders), len(f.bookings)
}

func (f *fakeStore) GetPackage(_ context.Context, id string) (domain.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packages[id]
	if !ok {
		return domain.Package{}, domain.ErrPackageNotFound
	}
	return p, nil
}

func (f *fakeStore) GetSlot(_ context.Context, id string) (domain.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	return s, nil
}

func (f *fakeStore) ReserveSlot(_ context.Context, slotID string, now time.Time) (domain.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotID]
	if !ok {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	if s.IsBooked || !s.StartTime.After(now) {
		return domain.Slot{}, domain.ErrSlotUnavailable
	}
	s.IsBooked = true
	f.slots[slotID] = s
	return s, nil
}

func (f *fakeStore) ReleaseSlot(_ context.Context, slotID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotID]
	if !ok {
		return false, nil
	}
	for _, b := range f.bookings {
		if b.SlotID == slotID && b.Status != domain.BookingStatusCancelled {
			return false, nil
		}
	}
	s.IsBooked = false
	f.slots[slotID] = s
	return true, nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order.IdempotencyKey != "" {
		for _, o := range f.orders {
			if o.IdempotencyKey == order.IdempotencyKey {
				return domain.ErrIdempotencyConflict
			}
		}
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeStore) GetOrder(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) FindOrderByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.IdempotencyKey == key {
			found := o
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindOrderByPaymentIntent(_ context.Context, pi string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.StripePaymentIntentID == pi {
			found := o
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SetOrderCheckout(_ context.Context, orderID string, session domain.CheckoutSession, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.StripeSessionID = session.ID
	o.CheckoutURL = session.URL
	o.UpdatedAt = at
	f.orders[orderID] = o
	return nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, id string, from, to domain.PaymentStatus, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.PaymentStatus != from {
		return false, nil
	}
	o.PaymentStatus = to
	o.UpdatedAt = at
	f.orders[id] = o
	return true, nil
}

func (f *fakeStore) RecordPayment(_ context.Context, orderID string, d domain.PaymentDetails, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if d.SessionID != "" {
		o.StripeSessionID = d.SessionID
	}
	if d.PaymentIntentID != "" {
		o.StripePaymentIntentID = d.PaymentIntentID
	}
	if d.CustomerEmail != "" {
		o.CustomerEmail = d.CustomerEmail
	}
	if d.CustomerName != "" {
		o.CustomerName = d.CustomerName
	}
	o.UpdatedAt = at
	f.orders[orderID] = o
	return nil
}

func (f *fakeStore) MarkEventProcessed(_ context.Context, eventID, _, _ string, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markEventErr != nil {
		return false, f.markEventErr
	}
	if f.processed[eventID] {
		return false, nil
	}
	f.processed[eventID] = true
	return true, nil
}

func (f *fakeStore) CreateBooking(_ context.Context, booking domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createBookingErr != nil {
		return f.createBookingErr
	}
	for _, b := range f.bookings {
		if b.SlotID == booking.SlotID && b.Status != domain.BookingStatusCancelled {
			return domain.ErrSlotUnavailable
		}
	}
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeStore) GetBookingByOrderID(_ context.Context, orderID string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.OrderID == orderID {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrBookingNotFound
}

func (f *fakeStore) UpdateBookingStatus(_ context.Context, id string, to domain.BookingStatus, at time.Time, from ...domain.BookingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return false, nil
	}
	if len(from) > 0 {
		match := false
		for _, s := range from {
			if b.Status == s {
				match = true
			}
		}
		if !match {
			return false, nil
		}
	}
	b.Status = to
	b.UpdatedAt = at
	f.bookings[id] = b
	return true, nil
}

func (f *fakeStore) ListExpiredPendingOrders(_ context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.PaymentStatus == domain.PaymentStatusPending && !o.ExpiresAt.IsZero() && o.ExpiresAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CreateSlots(_ context.Context, slots []domain.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range slots {
		for _, existing := range f.slots {
			if existing.StartTime.Equal(s.StartTime) {
				return domain.ErrSlotAlreadyExists
			}
		}
	}
	for _, s := range slots {
		f.slots[s.ID] = s
	}
	return nil
}

func (f *fakeStore) ListSlots(_ context.Context) ([]domain.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Slot, 0, len(f.slots))
	for _, s := range f.slots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeStore) ListAvailableSlots(_ context.Context, from, to time.Time) ([]domain.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Slot{}
	for _, s := range f.slots {
		if s.IsBooked || s.StartTime.Before(from) {
			continue
		}
		if !to.IsZero() && !s.StartTime.Before(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeStore) DeleteSlot(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.slots[id]; !ok {
		return domain.ErrSlotNotFound
	}
	for _, b := range f.bookings {
		if b.SlotID == id && b.Status != domain.BookingStatusCancelled {
			return domain.ErrSlotHasActiveBooking
		}
	}
	for bid, b := range f.bookings {
		if b.SlotID == id {
			b.SlotID = ""
			f.bookings[bid] = b
		}
	}
	delete(f.slots, id)
	return nil
}

func (f *fakeStore) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if filter.Status != "" && o.PaymentStatus != filter.Status {
			continue
		}
		if filter.EmailContains != "" && !strings.Contains(strings.ToLower(o.CustomerEmail), strings.ToLower(filter.EmailContains)) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) ListBookings(_ context.Context, limit int) ([]domain.BookingDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BookingDetails
	for _, b := range f.bookings {
		out = append(out, domain.BookingDetails{Booking: b, Slot: f.slots[b.SlotID], Order: f.orders[b.OrderID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Booking.CreatedAt.After(out[j].Booking.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpsertPackage(_ context.Context, pkg domain.Package) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packages[pkg.ID] = pkg
	return nil
}

func (f *fakeStore) ListPackages(_ context.Context, includeInactive bool) ([]domain.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Package
	for _, p := range f.packages {
		if p.Active || includeInactive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

// fakeProvider stands in for the hosted checkout.
type fakeProvider struct {
	mu       sync.Mutex
	requests []domain.CheckoutRequest
	err      error
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return domain.CheckoutSession{}, p.err
	}
	return domain.CheckoutSession{ID: "cs_test_" + req.OrderID, URL: "https://checkout.stripe.test/c/pay/" + req.OrderID}, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type fakeSessions struct {
	states    map[string]domain.SessionState
	getErr    error
	expired   []string
	expireErr error
}

func (s *fakeSessions) GetSession(_ context.Context, id string) (domain.SessionState, error) {
	if s.getErr != nil {
		return domain.SessionState{}, s.getErr
	}
	st, ok := s.states[id]
	if !ok {
		return domain.SessionState{}, errors.New("no such checkout session")
	}
	return st, nil
}

func (s *fakeSessions) ExpireSession(_ context.Context, id string) error {
	if s.expireErr != nil {
		return s.expireErr
	}
	s.expired = append(s.expired, id)
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}
