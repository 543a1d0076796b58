package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/config"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/events"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/mq"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/notify"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/migrations"
)

func newMigrateCmd(e *env) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.StoreBackend != config.BackendPostgres {
				return fmt.Errorf("migrate only runs against the postgres backend, apply the SQL files through the Supabase dashboard instead")
			}
			pool, err := openPool(cmd.Context(), e.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			out := cmd.OutOrStdout()
			if dryRun {
				pending, err := migrations.Pending(cmd.Context(), pool)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(out, "schema is up to date")
				}
				for _, name := range pending {
					fmt.Fprintln(out, "pending", name)
				}
				return nil
			}

			applied, err := migrations.Apply(cmd.Context(), pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema is up to date")
			}
			for _, name := range applied {
				fmt.Fprintln(out, "applied", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending migrations without applying them")
	return cmd
}

func newReconcileCmd(e *env) *cobra.Command {
	var loop bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Expire stale reservations and settle orders the webhook missed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, closeStore, err := openStore(ctx, e.cfg, e.log, false)
			if err != nil {
				return err
			}
			defer closeStore()
			pub, closePub, err := openPublisher(e.cfg)
			if err != nil {
				return err
			}
			defer closePub()

			svcs, err := buildServices(e.cfg, e.log, st, pub, clock.NewSystem())
			if err != nil {
				return err
			}
			if loop {
				svcs.reconcile.Run(ctx, e.cfg.Booking.ReconcileInterval)
				return nil
			}

			res, err := svcs.reconcile.ReconcileOnce(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&loop, "loop", false, "keep running every RECONCILE_INTERVAL until interrupted")
	return cmd
}

func newNotifyCmd(e *env) *cobra.Command {
	var tz string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Consume booking and payment events and send notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.Events.RabbitURL == "" {
				return fmt.Errorf("RABBIT_URL is required for the notification worker")
			}
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("load timezone %q: %w", tz, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			consumer, err := mq.NewConsumer(mq.ConsumerConfig{
				URL:      e.cfg.Events.RabbitURL,
				Exchange: e.cfg.Events.Exchange,
				Queue:    e.cfg.Events.Queue,
				Bindings: events.Bindings,
				Prefetch: e.cfg.Events.Prefetch,
				Tag:      "marina-notify",
			})
			if err != nil {
				return err
			}
			defer consumer.Close()

			worker := notify.NewWorker(consumer, notify.NewLogNotifier(e.log), e.log, notify.WithLocation(loc))
			e.log.WithField("queue", e.cfg.Events.Queue).Info("notification worker started")
			return worker.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&tz, "tz", "Europe/London", "timezone used to render appointment times")
	return cmd
}
