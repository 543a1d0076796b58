package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking links a client's contact details to one slot and one order.
type Booking struct {
	ID          string
	OrderID     string
	SlotID      string
	ClientName  string
	ClientEmail string
	ClientPhone string
	Notes       string
	Language    string
	Status      BookingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BookingDetails is a booking joined with its slot and order for the back office.
type BookingDetails struct {
	Booking Booking
	Slot    Slot
	Order   Order
}
