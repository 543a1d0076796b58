package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) error {
	_, _, err := s.db.From(tableOrders).Insert(newOrderRow(order), false, "", "minimal", "").Execute()
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrIdempotencyConflict
		case isForeignKeyViolation(err):
			return domain.ErrPackageNotFound
		case isInvalidUUID(err):
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create order: %w", err)
	}
	onUndo(ctx, "delete order", func() error {
		_, _, err := s.db.From(tableOrders).Delete("minimal", "").Eq("id", order.ID).Execute()
		return err
	})
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.findOrder("id", id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return *order, nil
}

func (s *Store) FindOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return s.findOrder("idempotency_key", key)
}

func (s *Store) FindOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	return s.findOrder("stripe_payment_intent_id", paymentIntentID)
}

func (s *Store) findOrder(column, value string) (*domain.Order, error) {
	var rows []orderRow
	_, err := s.db.From(tableOrders).Select("*", "", false).Eq(column, value).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	order := rows[0].toDomain()
	return &order, nil
}

func (s *Store) SetOrderCheckout(ctx context.Context, orderID string, session domain.CheckoutSession, at time.Time) error {
	var rows []orderRow
	_, err := s.db.From(tableOrders).
		Update(map[string]any{
			"stripe_session_id": session.ID,
			"checkout_url":      session.URL,
			"updated_at":        ts(at),
		}, "representation", "").
		Eq("id", orderID).
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("set order checkout: %w", err)
	}
	if len(rows) == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from, to domain.PaymentStatus, at time.Time) (bool, error) {
	var rows []orderRow
	_, err := s.db.From(tableOrders).
		Update(map[string]any{"payment_status": string(to), "updated_at": ts(at)}, "representation", "").
		Eq("id", id).
		Eq("payment_status", string(from)).
		ExecuteTo(&rows)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("update order status: %w", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	onUndo(ctx, "revert order status", func() error {
		_, _, err := s.db.From(tableOrders).
			Update(map[string]any{"payment_status": string(from)}, "minimal", "").
			Eq("id", id).
			Eq("payment_status", string(to)).
			Execute()
		return err
	})
	return true, nil
}

func (s *Store) RecordPayment(ctx context.Context, orderID string, d domain.PaymentDetails, at time.Time) error {
	before, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	patch := map[string]any{"updated_at": ts(at)}
	restore := map[string]any{}
	set := func(column, value, previous string) {
		if value == "" {
			return
		}
		patch[column] = value
		restore[column] = nullable(previous)
	}
	set("stripe_session_id", d.SessionID, before.StripeSessionID)
	set("stripe_payment_intent_id", d.PaymentIntentID, before.StripePaymentIntentID)
	set("customer_email", d.CustomerEmail, before.CustomerEmail)
	set("customer_name", d.CustomerName, before.CustomerName)

	if _, _, err := s.db.From(tableOrders).Update(patch, "minimal", "").Eq("id", orderID).Execute(); err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	if len(restore) > 0 {
		onUndo(ctx, "restore payment details", func() error {
			_, _, err := s.db.From(tableOrders).Update(restore, "minimal", "").Eq("id", orderID).Execute()
			return err
		})
	}
	return nil
}

func (s *Store) ListExpiredPendingOrders(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	var rows []orderRow
	_, err := s.db.From(tableOrders).
		Select("*", "", false).
		Eq("payment_status", string(domain.PaymentStatusPending)).
		Lt("expires_at", ts(cutoff)).
		Order("expires_at", &postgrest.OrderOpts{Ascending: true}).
		Limit(limit, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list expired orders: %w", err)
	}
	return toOrders(rows), nil
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	q := s.db.From(tableOrders).Select("*", "", false)
	if filter.Status != "" {
		q = q.Eq("payment_status", string(filter.Status))
	}
	if filter.EmailContains != "" {
		q = q.Ilike("customer_email", "*"+strings.ReplaceAll(filter.EmailContains, "*", "")+"*")
	}
	var rows []orderRow
	_, err := q.Order("created_at", &postgrest.OrderOpts{Ascending: false}).Limit(filter.Limit, "").ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return toOrders(rows), nil
}

func toOrders(rows []orderRow) []domain.Order {
	orders := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.toDomain())
	}
	return orders
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType, orderID string, at time.Time) (bool, error) {
	row := eventRow{EventID: eventID, EventType: eventType, OrderID: nullable(orderID), ProcessedAt: at}
	_, _, err := s.db.From(tableEvents).Insert(row, false, "", "minimal", "").Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	onUndo(ctx, "forget event", func() error {
		_, _, err := s.db.From(tableEvents).Delete("minimal", "").Eq("event_id", eventID).Execute()
		return err
	})
	return true, nil
}
