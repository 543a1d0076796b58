// Package client talks to the booking API the way the site does: it starts a
// booking, lists slots and polls an order until the webhook settles it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response decoded from the API error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error %d", e.Status)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// BookingRequest mirrors the POST /bookings body.
type BookingRequest struct {
	SlotID      string `json:"slot_id"`
	PackageID   string `json:"package_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Language    string `json:"language,omitempty"`
}

type Booking struct {
	OrderID       string    `json:"order_id"`
	BookingID     string    `json:"booking_id"`
	PaymentStatus string    `json:"payment_status"`
	BookingStatus string    `json:"booking_status"`
	SessionID     string    `json:"session_id"`
	CheckoutURL   string    `json:"checkout_url"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type Slot struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
}

type OrderStatus struct {
	OrderID       string     `json:"order_id"`
	PaymentStatus string     `json:"payment_status"`
	BookingStatus string     `json:"booking_status"`
	PackageName   string     `json:"package_name"`
	AmountMinor   int64      `json:"amount_minor"`
	Currency      string     `json:"currency"`
	SlotStart     *time.Time `json:"slot_start"`
	SlotEnd       *time.Time `json:"slot_end"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Client is a thin JSON client for the public booking endpoints.
type Client struct {
	baseURL string
	origin  string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithOrigin sets the Origin header, which the API uses to build the
// checkout redirect URLs.
func WithOrigin(origin string) Option {
	return func(c *Client) { c.origin = origin }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartBooking posts a booking. An empty idempotencyKey omits the header.
func (c *Client) StartBooking(ctx context.Context, req BookingRequest, idempotencyKey string) (Booking, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Booking{}, fmt.Errorf("marshal booking: %w", err)
	}
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	var out Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", bytes.NewReader(body), headers, &out); err != nil {
		return Booking{}, err
	}
	return out, nil
}

// ListSlots returns free future slots. Zero bounds are omitted.
func (c *Client) ListSlots(ctx context.Context, from, to time.Time) ([]Slot, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("from", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		q.Set("to", to.UTC().Format(time.RFC3339))
	}
	path := "/slots"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []Slot
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	var out OrderStatus
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil, &out); err != nil {
		return OrderStatus{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	var env struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Details string `json:"details"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(raw, &env); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Code, apiErr.Message, apiErr.Details = env.Code, env.Error, env.Details
	return apiErr
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
