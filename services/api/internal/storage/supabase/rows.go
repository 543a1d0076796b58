package supabase

import (
	"time"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

type slotRow struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
	CreatedAt time.Time `json:"created_at"`
}

func (r slotRow) toDomain() domain.Slot {
	return domain.Slot{ID: r.ID, StartTime: r.StartTime, EndTime: r.EndTime, IsBooked: r.IsBooked, CreatedAt: r.CreatedAt}
}

type orderRow struct {
	ID                    string    `json:"id"`
	PackageID             *string   `json:"package_id"`
	PackageName           string    `json:"package_name"`
	AmountMinor           int64     `json:"amount_minor"`
	Currency              string    `json:"currency"`
	PaymentStatus         string    `json:"payment_status"`
	StripeSessionID       *string   `json:"stripe_session_id"`
	StripePaymentIntentID *string   `json:"stripe_payment_intent_id"`
	CheckoutURL           *string   `json:"checkout_url"`
	CustomerEmail         string    `json:"customer_email"`
	CustomerName          string    `json:"customer_name"`
	IdempotencyKey        *string   `json:"idempotency_key"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	ExpiresAt             time.Time `json:"expires_at"`
}

func newOrderRow(o domain.Order) orderRow {
	return orderRow{
		ID:                    o.ID,
		PackageID:             nullable(o.PackageID),
		PackageName:           o.PackageName,
		AmountMinor:           o.AmountMinor,
		Currency:              o.Currency,
		PaymentStatus:         string(o.PaymentStatus),
		StripeSessionID:       nullable(o.StripeSessionID),
		StripePaymentIntentID: nullable(o.StripePaymentIntentID),
		CheckoutURL:           nullable(o.CheckoutURL),
		CustomerEmail:         o.CustomerEmail,
		CustomerName:          o.CustomerName,
		IdempotencyKey:        nullable(o.IdempotencyKey),
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
		ExpiresAt:             o.ExpiresAt,
	}
}

func (r orderRow) toDomain() domain.Order {
	return domain.Order{
		ID:                    r.ID,
		PackageID:             deref(r.PackageID),
		PackageName:           r.PackageName,
		AmountMinor:           r.AmountMinor,
		Currency:              r.Currency,
		PaymentStatus:         domain.PaymentStatus(r.PaymentStatus),
		StripeSessionID:       deref(r.StripeSessionID),
		StripePaymentIntentID: deref(r.StripePaymentIntentID),
		CheckoutURL:           deref(r.CheckoutURL),
		CustomerEmail:         r.CustomerEmail,
		CustomerName:          r.CustomerName,
		IdempotencyKey:        deref(r.IdempotencyKey),
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
		ExpiresAt:             r.ExpiresAt,
	}
}

type bookingRow struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	SlotID      *string   `json:"slot_id"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	ClientPhone string    `json:"client_phone"`
	Notes       string    `json:"notes"`
	Language    string    `json:"language"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newBookingRow(b domain.Booking) bookingRow {
	return bookingRow{
		ID:          b.ID,
		OrderID:     b.OrderID,
		SlotID:      nullable(b.SlotID),
		ClientName:  b.ClientName,
		ClientEmail: b.ClientEmail,
		ClientPhone: b.ClientPhone,
		Notes:       b.Notes,
		Language:    b.Language,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func (r bookingRow) toDomain() domain.Booking {
	return domain.Booking{
		ID:          r.ID,
		OrderID:     r.OrderID,
		SlotID:      deref(r.SlotID),
		ClientName:  r.ClientName,
		ClientEmail: r.ClientEmail,
		ClientPhone: r.ClientPhone,
		Notes:       r.Notes,
		Language:    r.Language,
		Status:      domain.BookingStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// bookingDetailRow is a booking with its order and slot embedded by PostgREST.
type bookingDetailRow struct {
	bookingRow
	Order *orderRow `json:"orders"`
	Slot  *slotRow  `json:"availability_slots"`
}

type packageRow struct {
	ID              string                        `json:"id"`
	Translations    map[string]domain.PackageText `json:"translations"`
	PriceMinor      int64                         `json:"price_minor"`
	Currency        string                        `json:"currency"`
	DurationMinutes int                           `json:"duration_minutes"`
	IsPopular       bool                          `json:"is_popular"`
	OrderIndex      int                           `json:"order_index"`
	Active          bool                          `json:"active"`
}

func newPackageRow(p domain.Package) packageRow {
	return packageRow{
		ID:              p.ID,
		Translations:    p.Translations,
		PriceMinor:      p.PriceMinor,
		Currency:        p.Currency,
		DurationMinutes: p.DurationMinutes,
		IsPopular:       p.IsPopular,
		OrderIndex:      p.OrderIndex,
		Active:          p.Active,
	}
}

func (r packageRow) toDomain() domain.Package {
	return domain.Package{
		ID:              r.ID,
		Translations:    r.Translations,
		PriceMinor:      r.PriceMinor,
		Currency:        r.Currency,
		DurationMinutes: r.DurationMinutes,
		IsPopular:       r.IsPopular,
		OrderIndex:      r.OrderIndex,
		Active:          r.Active,
	}
}

type eventRow struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	OrderID     *string   `json:"order_id"`
	ProcessedAt time.Time `json:"processed_at"`
}
