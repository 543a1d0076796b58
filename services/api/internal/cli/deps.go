package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/app"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/auth"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/config"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/mq"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/payment/stripepay"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/storage/postgres"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/storage/supabase"
	transporthttp "github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/transport/http"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/migrations"
)

const eventSource = "marina-api"

// store is everything the services need from a backend. Both the Postgres and
// the Supabase stores satisfy it.
type store interface {
	app.BookingRepository
	app.PaymentRepository
	app.ReconcileRepository
	app.AdminRepository
	app.CatalogRepository
	Ping(ctx context.Context) error
}

// openStore connects the configured backend. With migrate set, Postgres
// migrations are applied before returning.
func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger, migrate bool) (store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		st, err := supabase.NewFromConfig(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, cfg.Supabase.Schema, log)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	default:
		pool, err := openPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			applied, err := migrations.Apply(ctx, pool)
			if err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("apply migrations: %w", err)
			}
			if len(applied) > 0 {
				log.WithField("migrations", applied).Info("applied migrations")
			}
		}
		return postgres.NewStore(pool), pool.Close, nil
	}
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

// openPublisher returns a nil publisher when no broker is configured so the
// services keep their no-op default.
func openPublisher(cfg config.Config) (app.EventPublisher, func(), error) {
	if cfg.Events.RabbitURL == "" {
		return nil, func() {}, nil
	}
	pub, err := mq.NewPublisher(cfg.Events.RabbitURL, cfg.Events.Exchange, eventSource)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}
	return pub, func() { _ = pub.Close() }, nil
}

type services struct {
	provider  *stripepay.Provider
	catalog   *app.CatalogService
	checkout  *app.CheckoutService
	bookings  *app.BookingService
	payments  *app.PaymentService
	reconcile *app.ReconcileService
	admin     *app.AdminService
	auth      *auth.Authenticator
}

func buildServices(cfg config.Config, log logrus.FieldLogger, st store, pub app.EventPublisher, clk clock.Clock) (*services, error) {
	provider := stripepay.New(stripepay.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		APIURL:        cfg.Stripe.APIURL,
	}, clk, log)

	checkout := app.NewCheckoutService(st, provider, app.Redirects{
		BaseURL:        cfg.PublicBaseURL,
		SuccessPath:    cfg.Stripe.SuccessPath,
		CancelPath:     cfg.Stripe.CancelPath,
		AllowedOrigins: cfg.CORSOrigins,
	}, app.WithCheckoutLogger(log), app.WithCurrency(cfg.Stripe.Currency))

	payments := app.NewPaymentService(st, clk,
		app.WithPaymentEvents(pub),
		app.WithPaymentLogger(log),
	)

	s := &services{
		provider: provider,
		catalog:  app.NewCatalogService(st, clk, cfg.DefaultLanguage),
		checkout: checkout,
		bookings: app.NewBookingService(st, checkout, clk,
			app.WithReservationTTL(cfg.Booking.ReservationTTL),
			app.WithDefaultLanguage(cfg.DefaultLanguage),
			app.WithBookingEvents(pub),
			app.WithBookingLogger(log),
		),
		payments: payments,
		reconcile: app.NewReconcileService(st, provider, payments, clk,
			app.WithExpiryGrace(cfg.Booking.ExpiryGrace),
			app.WithReconcileBatch(cfg.Booking.ReconcileBatch),
			app.WithReconcileEvents(pub),
			app.WithReconcileLogger(log),
		),
		admin: app.NewAdminService(st, clk,
			app.WithAdminLogger(log),
			app.WithAdminCurrency(cfg.Stripe.Currency),
		),
	}

	if cfg.Admin.JWTSecret != "" && cfg.Admin.PasswordHash != "" {
		a, err := auth.NewAuthenticator(cfg.Admin.Email, cfg.Admin.PasswordHash, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL, clk)
		if err != nil {
			return nil, fmt.Errorf("admin auth: %w", err)
		}
		s.auth = a
	}
	return s, nil
}

func (s *services) router(st store) transporthttp.Services {
	out := transporthttp.Services{
		Store:     st,
		Catalog:   s.catalog,
		Bookings:  s.bookings,
		Checkout:  s.checkout,
		Webhooks:  s.provider,
		Payments:  s.payments,
		Admin:     s.admin,
		Reconcile: s.reconcile,
	}
	// Left as untyped nil when unconfigured so the admin routes answer 503.
	if s.auth != nil {
		out.Login = s.auth
		out.Tokens = s.auth
	}
	return out
}
