package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/events"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetPackage(ctx context.Context, id string) (domain.Package, error)
	GetSlot(ctx context.Context, id string) (domain.Slot, error)
	ReserveSlot(ctx context.Context, slotID string, now time.Time) (domain.Slot, error)
	ReleaseSlot(ctx context.Context, slotID string) (bool, error)
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	FindOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	SetOrderCheckout(ctx context.Context, orderID string, session domain.CheckoutSession, at time.Time) error
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.PaymentStatus, at time.Time) (bool, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	GetBookingByOrderID(ctx context.Context, orderID string) (domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, to domain.BookingStatus, at time.Time, from ...domain.BookingStatus) (bool, error)
}

// SessionStarter opens the hosted checkout for a freshly created order.
type SessionStarter interface {
	StartSession(ctx context.Context, in StartSessionInput) (domain.CheckoutSession, error)
}

type BookingService struct {
	repo            BookingRepository
	checkout        SessionStarter
	clock           clock.Clock
	reservationTTL  time.Duration
	defaultLanguage string
	events          EventPublisher
	log             logrus.FieldLogger
}

// Stripe refuses checkout sessions that expire sooner than 30 minutes.
const defaultReservationTTL = 30 * time.Minute

func NewBookingService(repo BookingRepository, checkout SessionStarter, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:            repo,
		checkout:        checkout,
		clock:           clk,
		reservationTTL:  defaultReservationTTL,
		defaultLanguage: domain.DefaultLanguage,
		events:          noopPublisher{},
		log:             logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithReservationTTL overrides how long a pending order holds its slot.
func WithReservationTTL(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.reservationTTL = d
		}
	}
}

func WithDefaultLanguage(lang string) BookingServiceOption {
	return func(s *BookingService) {
		if lang != "" {
			s.defaultLanguage = lang
		}
	}
}

func WithBookingEvents(p EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithBookingLogger(l logrus.FieldLogger) BookingServiceOption {
	return func(s *BookingService) {
		if l != nil {
			s.log = l
		}
	}
}

type StartBookingInput struct {
	SlotID         string
	PackageID      string
	ClientName     string
	ClientEmail    string
	ClientPhone    string
	Notes          string
	Language       string
	IdempotencyKey string
	Origin         string
}

func (in StartBookingInput) normalized() StartBookingInput {
	in.SlotID = strings.TrimSpace(in.SlotID)
	in.PackageID = strings.TrimSpace(in.PackageID)
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.ClientEmail = strings.TrimSpace(in.ClientEmail)
	in.ClientPhone = strings.TrimSpace(in.ClientPhone)
	in.Notes = strings.TrimSpace(in.Notes)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	return in
}

func (in StartBookingInput) validate() error {
	if in.SlotID == "" || in.PackageID == "" {
		return domain.ErrInvalidID
	}
	if in.ClientName == "" {
		return domain.ErrClientNameRequired
	}
	if in.ClientEmail == "" {
		return domain.ErrClientEmailRequired
	}
	addr, err := mail.ParseAddress(in.ClientEmail)
	if err != nil || addr.Address != in.ClientEmail {
		return domain.ErrInvalidEmail
	}
	return nil
}

type StartBookingResult struct {
	Order   domain.Order
	Booking domain.Booking
	Slot    domain.Slot
	Created bool
}

// StartBooking reserves the slot, records a pending order and booking in one
// transaction and then opens the hosted checkout. When the checkout cannot
// be opened the reservation is undone.
func (s *BookingService) StartBooking(ctx context.Context, in StartBookingInput) (StartBookingResult, error) {
	ctx, span := tracer.Start(ctx, "BookingService.StartBooking")
	defer span.End()

	in = in.normalized()
	if err := in.validate(); err != nil {
		return StartBookingResult{}, err
	}
	span.SetAttributes(attribute.String("slot.id", in.SlotID), attribute.String("package.id", in.PackageID))

	if in.IdempotencyKey != "" {
		if res, found, err := s.replay(ctx, in); err != nil || found {
			return res, err
		}
	}

	lang := in.Language
	if lang == "" {
		lang = s.defaultLanguage
	}

	now := s.clock.Now()
	var (
		order   domain.Order
		booking domain.Booking
		slot    domain.Slot
		text    domain.PackageText
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		pkg, err := s.repo.GetPackage(txCtx, in.PackageID)
		if err != nil {
			return err
		}
		if !pkg.Active {
			return domain.ErrPackageNotFound
		}

		slot, err = s.repo.ReserveSlot(txCtx, in.SlotID, now)
		if err != nil {
			return err
		}

		text = pkg.Text(lang)
		order = domain.Order{
			ID:             newUUID(),
			PackageID:      pkg.ID,
			PackageName:    text.Name,
			AmountMinor:    pkg.PriceMinor,
			Currency:       pkg.Currency,
			PaymentStatus:  domain.PaymentStatusPending,
			CustomerEmail:  in.ClientEmail,
			CustomerName:   in.ClientName,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
			ExpiresAt:      now.Add(s.reservationTTL),
		}
		if err := s.repo.CreateOrder(txCtx, order); err != nil {
			return err
		}

		booking = domain.Booking{
			ID:          newUUID(),
			OrderID:     order.ID,
			SlotID:      slot.ID,
			ClientName:  in.ClientName,
			ClientEmail: in.ClientEmail,
			ClientPhone: in.ClientPhone,
			Notes:       in.Notes,
			Language:    lang,
			Status:      domain.BookingStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.repo.CreateBooking(txCtx, booking)
	})
	if err != nil {
		// A concurrent request with the same key may have won the slot.
		if in.IdempotencyKey != "" && (errors.Is(err, domain.ErrIdempotencyConflict) || errors.Is(err, domain.ErrSlotUnavailable)) {
			if res, found, rerr := s.replay(ctx, in); rerr != nil {
				return StartBookingResult{}, rerr
			} else if found {
				return res, nil
			}
		}
		span.SetStatus(codes.Error, err.Error())
		return StartBookingResult{}, err
	}

	log := s.log.WithFields(logrus.Fields{"order_id": order.ID, "booking_id": booking.ID, "slot_id": slot.ID})
	log.Info("slot reserved, order pending")
	publishAll(ctx, s.events, s.log, []events.Message{{
		Key:     events.RKBookingCreated,
		Payload: bookingEvent(booking, slot, "", now),
	}})

	session, err := s.checkout.StartSession(ctx, StartSessionInput{
		Order:       order,
		Description: text.Description,
		Origin:      in.Origin,
	})
	if err != nil {
		log.WithError(err).Error("checkout session failed, releasing reservation")
		if cerr := s.compensate(ctx, order); cerr != nil {
			log.WithError(cerr).Error("compensation failed, reconcile job will release the slot")
		}
		span.SetStatus(codes.Error, err.Error())
		return StartBookingResult{}, fmt.Errorf("%w: %v", domain.ErrCheckoutUnavailable, err)
	}

	if err := s.repo.SetOrderCheckout(ctx, order.ID, session, s.clock.Now()); err != nil {
		// The webhook correlates by order id, so the session stays usable.
		log.WithError(err).Warn("store checkout session on order failed")
	}
	order.StripeSessionID = session.ID
	order.CheckoutURL = session.URL

	return StartBookingResult{Order: order, Booking: booking, Slot: slot, Created: true}, nil
}

func (s *BookingService) replay(ctx context.Context, in StartBookingInput) (StartBookingResult, bool, error) {
	existing, err := s.repo.FindOrderByIdempotencyKey(ctx, in.IdempotencyKey)
	if err != nil || existing == nil {
		return StartBookingResult{}, false, err
	}
	booking, err := s.repo.GetBookingByOrderID(ctx, existing.ID)
	if err != nil {
		return StartBookingResult{}, false, err
	}
	if booking.SlotID != in.SlotID || existing.PackageID != in.PackageID {
		return StartBookingResult{}, false, domain.ErrIdempotencyConflict
	}
	// A failed attempt released its slot; the key cannot be reused.
	if existing.PaymentStatus == domain.PaymentStatusFailed {
		return StartBookingResult{}, false, fmt.Errorf("%w: order %s failed, retry with a new key", domain.ErrIdempotencyConflict, existing.ID)
	}
	slot, err := s.repo.GetSlot(ctx, booking.SlotID)
	if err != nil {
		return StartBookingResult{}, false, err
	}
	return StartBookingResult{Order: *existing, Booking: booking, Slot: slot, Created: false}, true, nil
}

func (s *BookingService) compensate(ctx context.Context, order domain.Order) error {
	now := s.clock.Now()
	var booking domain.Booking
	var closed bool
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		closed, booking, err = closeOrder(txCtx, s.repo, order, domain.PaymentStatusFailed, now)
		return err
	})
	if err != nil || !closed {
		return err
	}
	publishAll(ctx, s.events, s.log, []events.Message{{
		Key:     events.RKBookingCancelled,
		Payload: bookingEvent(booking, domain.Slot{ID: booking.SlotID}, "checkout_unavailable", now),
	}})
	return nil
}

// OrderStatus is what the success page polls for.
type OrderStatus struct {
	Order   domain.Order
	Booking domain.Booking
	Slot    domain.Slot
}

func (s *BookingService) GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	if strings.TrimSpace(orderID) == "" {
		return OrderStatus{}, domain.ErrInvalidID
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return OrderStatus{}, err
	}
	out := OrderStatus{Order: order}

	booking, err := s.repo.GetBookingByOrderID(ctx, orderID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return out, nil
	}
	if err != nil {
		return OrderStatus{}, err
	}
	out.Booking = booking

	if booking.SlotID != "" {
		slot, err := s.repo.GetSlot(ctx, booking.SlotID)
		if err != nil && !errors.Is(err, domain.ErrSlotNotFound) {
			return OrderStatus{}, err
		}
		out.Slot = slot
	}
	return out, nil
}

func bookingEvent(b domain.Booking, slot domain.Slot, reason string, at time.Time) events.Booking {
	return events.Booking{
		BookingID:   b.ID,
		OrderID:     b.OrderID,
		SlotID:      b.SlotID,
		ClientName:  b.ClientName,
		ClientEmail: b.ClientEmail,
		SlotStart:   slot.StartTime,
		SlotEnd:     slot.EndTime,
		Reason:      reason,
		OccurredAt:  at,
	}
}
