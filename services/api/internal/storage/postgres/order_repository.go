package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

const orderColumns = `
	id, COALESCE(package_id::text, ''), package_name, amount_minor, currency, payment_status,
	COALESCE(stripe_session_id, ''), COALESCE(stripe_payment_intent_id, ''), COALESCE(checkout_url, ''),
	customer_email, customer_name, COALESCE(idempotency_key, ''),
	created_at, updated_at, expires_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var status string
	err := row.Scan(
		&o.ID, &o.PackageID, &o.PackageName, &o.AmountMinor, &o.Currency, &status,
		&o.StripeSessionID, &o.StripePaymentIntentID, &o.CheckoutURL,
		&o.CustomerEmail, &o.CustomerName, &o.IdempotencyKey,
		&o.CreatedAt, &o.UpdatedAt, &o.ExpiresAt,
	)
	o.PaymentStatus = domain.PaymentStatus(status)
	return o, err
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (
	id, package_id, package_name, amount_minor, currency, payment_status,
	customer_email, customer_name, idempotency_key, created_at, updated_at, expires_at
) VALUES ($1, $2::uuid, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.exec(ctx, stmt,
		order.ID, nullable(order.PackageID), order.PackageName, order.AmountMinor, order.Currency, order.PaymentStatus,
		order.CustomerEmail, order.CustomerName, nullable(order.IdempotencyKey), order.CreatedAt, order.UpdatedAt, order.ExpiresAt,
	)
	if err != nil {
		if violatesConstraint(err, "orders_idempotency_key_idx") {
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrPackageNotFound
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	order, err := scanOrder(s.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (s *Store) FindOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return s.findOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
}

func (s *Store) FindOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	return s.findOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE stripe_payment_intent_id = $1`, paymentIntentID)
}

func (s *Store) findOrder(ctx context.Context, query, arg string) (*domain.Order, error) {
	order, err := scanOrder(s.queryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

func (s *Store) SetOrderCheckout(ctx context.Context, orderID string, session domain.CheckoutSession, at time.Time) error {
	const stmt = `
UPDATE orders
SET stripe_session_id = $2, checkout_url = $3, updated_at = $4
WHERE id = $1`

	tag, err := s.exec(ctx, stmt, orderID, session.ID, session.URL, at)
	if err != nil {
		return fmt.Errorf("set order checkout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// UpdateOrderStatus moves the order only if it is still in from.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from, to domain.PaymentStatus, at time.Time) (bool, error) {
	const stmt = `
UPDATE orders
SET payment_status = $3, updated_at = $4
WHERE id = $1 AND payment_status = $2`

	tag, err := s.exec(ctx, stmt, id, from, to, at)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordPayment stores what the provider reported; empty fields keep the
// current value.
func (s *Store) RecordPayment(ctx context.Context, orderID string, d domain.PaymentDetails, at time.Time) error {
	const stmt = `
UPDATE orders
SET stripe_session_id = COALESCE($2, stripe_session_id),
	stripe_payment_intent_id = COALESCE($3, stripe_payment_intent_id),
	customer_email = COALESCE($4, customer_email),
	customer_name = COALESCE($5, customer_name),
	updated_at = $6
WHERE id = $1`

	tag, err := s.exec(ctx, stmt, orderID,
		nullable(d.SessionID), nullable(d.PaymentIntentID), nullable(d.CustomerEmail), nullable(d.CustomerName), at)
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (s *Store) ListExpiredPendingOrders(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	const query = `
SELECT ` + orderColumns + `
FROM orders
WHERE payment_status = 'pending' AND expires_at < $1
ORDER BY expires_at ASC
LIMIT $2`
	return s.listOrders(ctx, query, cutoff, limit)
}

func (s *Store) listOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate orders: %w", rows.Err())
	}
	return orders, nil
}
