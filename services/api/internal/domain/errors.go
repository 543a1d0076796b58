package domain

import "errors"

var (
	ErrInvalidID            = errors.New("invalid id")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrSlotUnavailable      = errors.New("slot unavailable")
	ErrSlotAlreadyExists    = errors.New("slot already exists")
	ErrSlotHasActiveBooking = errors.New("slot has an active booking")
	ErrInvalidSlotWindow    = errors.New("slot end must be after start")
	ErrPackageNotFound      = errors.New("package not found")
	ErrPackageNameRequired  = errors.New("package name required")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotPending      = errors.New("order is not pending")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrClientNameRequired   = errors.New("client name required")
	ErrClientEmailRequired  = errors.New("client email required")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrAmountMismatch       = errors.New("amount does not match order")
	ErrIdempotencyConflict  = errors.New("idempotency conflict")
	ErrInvalidTransition    = errors.New("invalid payment status transition")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrCheckoutUnavailable  = errors.New("checkout session could not be created")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUnauthorized         = errors.New("unauthorized")
)
