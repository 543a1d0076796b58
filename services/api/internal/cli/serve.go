package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/obs"
	transporthttp "github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/transport/http"
)

func newServeCmd(e *env) *cobra.Command {
	var (
		port        string
		noReconcile bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reconcile loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				e.cfg.Port = port
			}
			return runServe(cmd.Context(), e, !noReconcile)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&noReconcile, "no-reconcile", false, "do not run the reconcile loop in this process")
	return cmd
}

func runServe(parent context.Context, e *env, reconcile bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log := e.cfg, e.log
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracerConfig{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer closeStore()

	pub, closePub, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePub()

	svcs, err := buildServices(cfg, log, st, pub, clock.NewSystem())
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           transporthttp.NewRouter(svcs.router(st), cfg.CORSOrigins, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	if reconcile {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svcs.reconcile.Run(ctx, cfg.Booking.ReconcileInterval)
		}()
	}

	log.WithField("port", cfg.Port).WithField("backend", cfg.StoreBackend).Info("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server error")
			runErr = err
		}
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping server")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("server shutdown error")
	}
	wg.Wait()
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracer shutdown error")
	}
	log.Info("server stopped")
	return runErr
}
