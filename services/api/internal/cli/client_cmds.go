package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/client"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

func (e *env) apiClient(apiURL string) *client.Client {
	if apiURL == "" {
		apiURL = "http://localhost:" + e.cfg.Port
	}
	return client.New(apiURL, client.WithOrigin(e.cfg.PublicBaseURL))
}

func newStatusCmd(e *env) *cobra.Command {
	var (
		apiURL string
		wait   bool
	)
	cmd := &cobra.Command{
		Use:   "status <order-id>",
		Short: "Show an order's payment and booking status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := e.apiClient(apiURL)
			out := cmd.OutOrStdout()
			if !wait {
				st, err := c.GetOrderStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printStatus(out, st)
				return nil
			}
			return waitAndPrint(cmd.Context(), out, client.NewPoller(c), args[0])
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "", "API base URL (default http://localhost:$PORT)")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the payment is confirmed or fails")
	return cmd
}

func newBookCmd(e *env) *cobra.Command {
	var (
		apiURL string
		req    client.BookingRequest
		key    string
		noWait bool
	)
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Reserve a slot, print the checkout URL and wait for payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = uuid.NewString()
			}
			c := e.apiClient(apiURL)
			b, err := c.StartBooking(cmd.Context(), req, key)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "order %s reserved until %s\n", b.OrderID, b.ExpiresAt.Format("2006-01-02 15:04 MST"))
			fmt.Fprintf(out, "pay at: %s\n", b.CheckoutURL)
			if noWait {
				return nil
			}
			return waitAndPrint(cmd.Context(), out, client.NewPoller(c), b.OrderID)
		},
	}
	f := cmd.Flags()
	f.StringVar(&apiURL, "api", "", "API base URL (default http://localhost:$PORT)")
	f.StringVar(&req.SlotID, "slot", "", "slot id")
	f.StringVar(&req.PackageID, "package", "", "package id")
	f.StringVar(&req.ClientName, "name", "", "client name")
	f.StringVar(&req.ClientEmail, "email", "", "client email")
	f.StringVar(&req.ClientPhone, "phone", "", "client phone")
	f.StringVar(&req.Notes, "notes", "", "notes for the consultant")
	f.StringVar(&req.Language, "lang", "", "language for texts (ro, en, ru)")
	f.StringVar(&key, "idempotency-key", "", "reuse to retry safely (default random)")
	f.BoolVar(&noWait, "no-wait", false, "exit after printing the checkout URL")
	for _, name := range []string{"slot", "package", "name", "email"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func waitAndPrint(ctx context.Context, out io.Writer, p *client.Poller, orderID string) error {
	p.OnAttempt = func(attempt int, st client.OrderStatus) {
		if st.PaymentStatus == "pending" {
			fmt.Fprintf(out, "waiting for payment (%d/%d)\n", attempt, p.MaxAttempts)
		}
	}
	st, err := p.WaitForConfirmation(ctx, orderID)
	switch {
	case err == nil:
		printStatus(out, st)
		return nil
	case errors.Is(err, client.ErrConfirmationTimeout):
		fmt.Fprintln(out, "payment not confirmed yet, the booking is confirmed as soon as Stripe notifies us")
		return err
	case errors.Is(err, client.ErrPaymentFailed):
		printStatus(out, st)
		return err
	default:
		return err
	}
}

func printStatus(w io.Writer, st client.OrderStatus) {
	fmt.Fprintf(w, "order:   %s\n", st.OrderID)
	fmt.Fprintf(w, "payment: %s\n", st.PaymentStatus)
	if st.BookingStatus != "" {
		fmt.Fprintf(w, "booking: %s\n", st.BookingStatus)
	}
	if st.PackageName != "" {
		fmt.Fprintf(w, "package: %s (%s)\n", st.PackageName, domain.FormatAmount(st.AmountMinor, st.Currency))
	}
	if st.SlotStart != nil {
		line := st.SlotStart.Format("2006-01-02 15:04 MST")
		if st.SlotEnd != nil {
			line += " - " + st.SlotEnd.Format("15:04")
		}
		fmt.Fprintf(w, "slot:    %s\n", strings.TrimSpace(line))
	}
}
