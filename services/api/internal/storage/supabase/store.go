// Package supabase stores slots, orders and bookings through the Supabase
// REST API (PostgREST). It is the backend the original site ran on and is
// selected with STORE_BACKEND=supabase.
//
// PostgREST has no multi-statement transactions. WithTx runs the callback
// with an undo log and, when the callback fails, replays the compensating
// writes in reverse. Single-row conditional updates are still atomic, so
// slot reservation keeps its one-winner guarantee.
package supabase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

const (
	tableSlots    = "availability_slots"
	tableOrders   = "orders"
	tableBookings = "bookings"
	tablePackages = "consultation_packages"
	tableEvents   = "processed_webhook_events"
)

// Querier is satisfied by both *supabase.Client and *postgrest.Client.
type Querier interface {
	From(table string) *postgrest.QueryBuilder
}

type Store struct {
	db  Querier
	log logrus.FieldLogger
}

func New(db Querier, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{db: db, log: log}
}

// NewFromConfig connects with the service-role key, which bypasses row level security.
func NewFromConfig(url, serviceRoleKey, schema string, log logrus.FieldLogger) (*Store, error) {
	client, err := supa.NewClient(url, serviceRoleKey, &supa.ClientOptions{Schema: schema})
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return New(client, log), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.db.From(tablePackages).Select("id", "", false).Limit(1, "").Execute()
	if err != nil {
		return fmt.Errorf("supabase ping: %w", err)
	}
	return nil
}

type undoKey struct{}

type undoStep struct {
	name string
	fn   func() error
}

type undoLog struct {
	mu    sync.Mutex
	steps []undoStep
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	log := &undoLog{}
	err := fn(context.WithValue(ctx, undoKey{}, log))
	if err != nil {
		s.rollback(log)
	}
	return err
}

// onUndo registers a compensating write; it is a no-op outside WithTx.
func onUndo(ctx context.Context, name string, fn func() error) {
	log, ok := ctx.Value(undoKey{}).(*undoLog)
	if !ok {
		return
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	log.steps = append(log.steps, undoStep{name: name, fn: fn})
}

func (s *Store) rollback(log *undoLog) {
	log.mu.Lock()
	steps := log.steps
	log.steps = nil
	log.mu.Unlock()

	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i].fn(); err != nil {
			s.log.WithError(err).WithField("step", steps[i].name).Error("supabase rollback step failed")
		}
	}
}

// hasCode matches the "(code) message" errors postgrest-go returns.
func hasCode(err error, code string) bool {
	return err != nil && strings.Contains(err.Error(), "("+code+")")
}

func isUniqueViolation(err error) bool     { return hasCode(err, "23505") }
func isCheckViolation(err error) bool      { return hasCode(err, "23514") }
func isForeignKeyViolation(err error) bool { return hasCode(err, "23503") }
func isInvalidUUID(err error) bool         { return hasCode(err, "22P02") }

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
