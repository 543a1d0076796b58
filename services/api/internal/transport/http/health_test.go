package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		store  Pinger
		status int
		body   string
	}{
		{name: "no store", store: nil, status: 200, body: "ok"},
		{name: "store up", store: stubPinger{}, status: 200, body: "ok"},
		{name: "store down", store: stubPinger{err: errors.New("refused")}, status: 503, body: "store unavailable"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest("GET", "/health", nil)
			rec := httptest.NewRecorder()

			HealthHandler(tt.store)(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if body := rec.Body.String(); body != tt.body {
				t.Fatalf("expected body %q, got %q", tt.body, body)
			}
		})
	}
}
