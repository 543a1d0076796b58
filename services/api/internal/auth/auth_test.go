package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

func newTestAuthenticator(t *testing.T, clk clock.Clock) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewAuthenticator("Marina@Example.com", string(hash), "jwt-secret", time.Hour, clk)
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	return a
}

func TestLogin(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	a := newTestAuthenticator(t, clock.NewFixed(now))

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "ok", email: " marina@example.com ", password: "s3cret-pass"},
		{name: "wrong password", email: "marina@example.com", password: "nope", wantErr: domain.ErrInvalidCredentials},
		{name: "wrong email", email: "eve@example.com", password: "s3cret-pass", wantErr: domain.ErrInvalidCredentials},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tok, err := a.Login(tc.email, tc.password)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr != nil {
				return
			}
			if !tok.ExpiresAt.Equal(now.Add(time.Hour)) {
				t.Fatalf("expires at %v", tok.ExpiresAt)
			}
			claims, err := a.Verify(tok.Value)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if claims.Email != "marina@example.com" || claims.Role != RoleAdmin {
				t.Fatalf("unexpected claims %+v", claims)
			}
		})
	}
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()
	clk := clock.NewManual(time.Now())
	a := newTestAuthenticator(t, clk)
	tok, err := a.Login("marina@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := newTestAuthenticator(t, clk)
	other.secret = []byte("different")
	if _, err := other.Verify(tok.Value); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong secret: expected ErrUnauthorized, got %v", err)
	}
	if _, err := a.Verify("not-a-token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("garbage: expected ErrUnauthorized, got %v", err)
	}

	clk.Advance(2 * time.Hour)
	if _, err := a.Verify(tok.Value); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expired: expected ErrUnauthorized, got %v", err)
	}
}

func TestNewAuthenticator_Validates(t *testing.T) {
	t.Parallel()
	if _, err := NewAuthenticator("a@b.c", "", "secret", 0, nil); err == nil {
		t.Fatal("expected error for missing hash")
	}
	if _, err := NewAuthenticator("a@b.c", "plain-text", "secret", 0, nil); err == nil {
		t.Fatal("expected error for a non-bcrypt hash")
	}
}

func TestHashPassword(t *testing.T) {
	t.Parallel()
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected error for short password")
	}
	hash, err := HashPassword("long-enough")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("long-enough")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}
