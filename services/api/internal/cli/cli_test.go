package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&env{logOut: io.Discard})
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	err := root.Execute()
	return out.String(), err
}

func TestHashPassword_FromStdin(t *testing.T) {
	out, err := runCLI(t, "correct horse\n", "hash-password")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")); err != nil {
		t.Fatalf("hash does not match: %v", err)
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	if _, err := runCLI(t, "", "hash-password", "short"); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestSeedPackages_DryRun(t *testing.T) {
	out, err := runCLI(t, "", "seed-packages", "--dry-run", "--file", "../../seed/packages.yaml")
	if err != nil {
		t.Fatalf("seed-packages: %v", err)
	}
	if !strings.Contains(out, "45.00 GBP") || !strings.Contains(out, "Consultație online") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/order-1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"order not found","code":"order_not_found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"order_id":"order-1","payment_status":"paid","booking_status":"confirmed","package_name":"Online consultation","amount_minor":4500,"currency":"gbp","slot_start":"2025-03-11T09:00:00Z","slot_end":"2025-03-11T10:00:00Z"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "", "status", "order-1", "--api", srv.URL, "--wait")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"payment: paid", "booking: confirmed", "45.00 GBP", "2025-03-11 09:00 UTC - 10:00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}

	if _, err := runCLI(t, "", "status", "missing", "--api", srv.URL); err == nil || !strings.Contains(err.Error(), "order_not_found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestBook_NoWait(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_id":"order-1","checkout_url":"https://checkout.stripe.com/c/pay/cs_1","expires_at":"2025-03-10T09:30:00Z"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "", "book", "--api", srv.URL, "--slot", "s1", "--package", "p1", "--name", "Maria Popescu", "--email", "maria@example.com", "--idempotency-key", "k1", "--no-wait")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if gotKey != "k1" || !strings.Contains(out, "pay at: https://checkout.stripe.com/c/pay/cs_1") {
		t.Fatalf("unexpected key %q output %q", gotKey, out)
	}
}

func TestBook_RequiresFlags(t *testing.T) {
	if _, err := runCLI(t, "", "book", "--slot", "s1"); err == nil {
		t.Fatal("expected missing flag error")
	}
}
