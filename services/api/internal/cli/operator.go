package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/auth"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/catalog"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

func newSeedPackagesCmd(e *env) *cobra.Command {
	var (
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "seed-packages",
		Short: "Upsert the consultation packages from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs, err := catalog.LoadFile(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				for _, p := range pkgs {
					printPackage(out, p)
				}
				return nil
			}

			st, closeStore, err := openStore(cmd.Context(), e.cfg, e.log, false)
			if err != nil {
				return err
			}
			defer closeStore()
			svcs, err := buildServices(e.cfg, e.log, st, nil, clock.NewSystem())
			if err != nil {
				return err
			}

			saved, err := catalog.Seed(cmd.Context(), svcs.admin, pkgs)
			for _, p := range saved {
				printPackage(out, p)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "seeded %d packages\n", len(saved))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "seed/packages.yaml", "seed file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and print without writing")
	return cmd
}

func printPackage(w io.Writer, p domain.Package) {
	fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, domain.FormatAmount(p.PriceMinor, p.Currency), p.Text(domain.DefaultLanguage).Name)
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long:  "Reads the password from the argument or, when omitted, from the first line of stdin.",
		Args:  cobra.MaximumNArgs(1),
		// Needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
