package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/testutil"
)

func TestOrderRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	store := NewStore(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("CreateOrder and GetOrder round trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC().Truncate(time.Microsecond)
		pkgID := testutil.InsertPackage(t, ctx, pool, "Consultație", 4500)
		order, _ := newOrderAndBooking(pkgID, "", now)
		order.IdempotencyKey = "idem-1"

		if err := store.CreateOrder(ctx, order); err != nil {
			t.Fatalf("create order: %v", err)
		}
		got, err := store.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if got.PackageID != pkgID || got.AmountMinor != 4500 || got.PaymentStatus != domain.PaymentStatusPending {
			t.Fatalf("unexpected order: %+v", got)
		}
		if !got.ExpiresAt.Equal(order.ExpiresAt) {
			t.Fatalf("expected expires_at %v, got %v", order.ExpiresAt, got.ExpiresAt)
		}

		found, err := store.FindOrderByIdempotencyKey(ctx, "idem-1")
		if err != nil || found == nil || found.ID != order.ID {
			t.Fatalf("expected order by key, got %+v %v", found, err)
		}
		missing, err := store.FindOrderByIdempotencyKey(ctx, "nope")
		if err != nil || missing != nil {
			t.Fatalf("expected nil, got %+v %v", missing, err)
		}

		dup, _ := newOrderAndBooking(pkgID, "", now)
		dup.IdempotencyKey = "idem-1"
		if err := store.CreateOrder(ctx, dup); err != domain.ErrIdempotencyConflict {
			t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
		}

		if _, err := store.GetOrder(ctx, "00000000-0000-0000-0000-000000000001"); err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
		if _, err := store.GetOrder(ctx, "abc"); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("UpdateOrderStatus is conditional", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()
		order, _ := newOrderAndBooking("", "", now)
		if err := store.CreateOrder(ctx, order); err != nil {
			t.Fatalf("create order: %v", err)
		}

		ok, err := store.UpdateOrderStatus(ctx, order.ID, domain.PaymentStatusPending, domain.PaymentStatusPaid, now)
		if err != nil || !ok {
			t.Fatalf("expected first update, got %v %v", ok, err)
		}
		ok, err = store.UpdateOrderStatus(ctx, order.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed, now)
		if err != nil || ok {
			t.Fatalf("expected stale update refused, got %v %v", ok, err)
		}
		got, _ := store.GetOrder(ctx, order.ID)
		if got.PaymentStatus != domain.PaymentStatusPaid {
			t.Fatalf("expected paid, got %s", got.PaymentStatus)
		}
	})

	t.Run("RecordPayment keeps existing values for empty fields", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()
		order, _ := newOrderAndBooking("", "", now)
		if err := store.CreateOrder(ctx, order); err != nil {
			t.Fatalf("create order: %v", err)
		}
		if err := store.SetOrderCheckout(ctx, order.ID, domain.CheckoutSession{ID: "cs_1", URL: "https://checkout.test/cs_1"}, now); err != nil {
			t.Fatalf("set checkout: %v", err)
		}
		if err := store.RecordPayment(ctx, order.ID, domain.PaymentDetails{PaymentIntentID: "pi_1"}, now); err != nil {
			t.Fatalf("record payment: %v", err)
		}

		got, _ := store.GetOrder(ctx, order.ID)
		if got.StripeSessionID != "cs_1" || got.StripePaymentIntentID != "pi_1" || got.CustomerEmail != "ana@example.com" {
			t.Fatalf("unexpected order: %+v", got)
		}
		byPI, err := store.FindOrderByPaymentIntent(ctx, "pi_1")
		if err != nil || byPI == nil || byPI.ID != order.ID {
			t.Fatalf("expected order by payment intent, got %+v %v", byPI, err)
		}
	})

	t.Run("ListExpiredPendingOrders", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		stale, _ := newOrderAndBooking("", "", now.Add(-time.Hour))
		fresh, _ := newOrderAndBooking("", "", now)
		paid, _ := newOrderAndBooking("", "", now.Add(-time.Hour))
		paid.PaymentStatus = domain.PaymentStatusPaid
		for _, o := range []domain.Order{stale, fresh, paid} {
			if err := store.CreateOrder(ctx, o); err != nil {
				t.Fatalf("create order: %v", err)
			}
		}

		orders, err := store.ListExpiredPendingOrders(ctx, now.Add(-5*time.Minute), 10)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(orders) != 1 || orders[0].ID != stale.ID {
			t.Fatalf("expected only the stale pending order, got %+v", orders)
		}
	})

	t.Run("MarkEventProcessed detects redelivery", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		first, err := store.MarkEventProcessed(ctx, "evt_1", "checkout_completed", "", now)
		if err != nil || !first {
			t.Fatalf("expected first delivery, got %v %v", first, err)
		}
		again, err := store.MarkEventProcessed(ctx, "evt_1", "checkout_completed", "", now)
		if err != nil || again {
			t.Fatalf("expected duplicate, got %v %v", again, err)
		}
	})

	t.Run("WithTx rolls back on error", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()
		order, _ := newOrderAndBooking("", "", now)

		err := store.WithTx(ctx, func(txCtx context.Context) error {
			if err := store.CreateOrder(txCtx, order); err != nil {
				return err
			}
			return domain.ErrSlotUnavailable
		})
		if err != domain.ErrSlotUnavailable {
			t.Fatalf("expected tx error, got %v", err)
		}
		if _, err := store.GetOrder(ctx, order.ID); err != domain.ErrOrderNotFound {
			t.Fatalf("expected order rolled back, got %v", err)
		}
	})
}
