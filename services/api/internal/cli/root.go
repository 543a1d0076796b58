// Package cli is the marina-api command tree: the HTTP server, the background
// jobs and a few operator helpers.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/config"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/obs"
)

var version = "dev"

// env is filled in by the root command before any subcommand runs.
type env struct {
	cfg config.Config
	log *logrus.Logger
	// logOut is where the logger writes; tests point it at a buffer.
	logOut io.Writer
}

// Execute runs the command tree against os.Args.
func Execute() error {
	root := newRootCmd(&env{logOut: os.Stderr})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "marina-api",
		Short: "Booking and payment backend for the consultation site",
		Long: `marina-api serves the booking API, receives Stripe webhooks and runs the
reservation reconcile job. Without a subcommand it starts the server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
	}
	serve := newServeCmd(e)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newMigrateCmd(e),
		newReconcileCmd(e),
		newNotifyCmd(e),
		newSeedPackagesCmd(e),
		newHashPasswordCmd(),
		newStatusCmd(e),
		newBookCmd(e),
	)
	return root
}

func (e *env) load() error {
	envPath, envErr := config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	e.cfg = cfg
	e.log = obs.NewLogger(cfg.Log.Level, cfg.Log.Format, e.logOut)

	switch {
	case envErr != nil:
		e.log.WithError(envErr).Warn("failed to load .env")
	case envPath != "":
		e.log.WithField("path", envPath).Debug("loaded env file")
	}
	return nil
}
