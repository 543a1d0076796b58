package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/app"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

func TestHandleStripeWebhook(t *testing.T) {
	t.Parallel()

	ev := domain.PaymentEvent{ID: "evt_1", Type: domain.EventCheckoutCompleted, OrderID: "order-1"}
	tests := []struct {
		name      string
		parserErr error
		res       app.HandleResult
		handleErr error
		status    int
		substr    string
		handled   int
	}{
		{name: "applied", res: app.HandleResult{Outcome: app.OutcomeApplied}, status: http.StatusOK, substr: `"received":true`, handled: 1},
		{name: "skipped unknown order", res: app.HandleResult{Outcome: app.OutcomeSkipped}, status: http.StatusOK, substr: `"outcome":"skipped"`, handled: 1},
		{name: "bad signature", parserErr: domain.ErrInvalidSignature, status: http.StatusBadRequest, substr: "Webhook Error"},
		{name: "bad payload", parserErr: fmt.Errorf("decode checkout session: unexpected EOF"), status: http.StatusBadRequest},
		{name: "storage failure", handleErr: errors.New("db down"), status: http.StatusInternalServerError, handled: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			payments := &stubPayments{res: tt.res, err: tt.handleErr}
			req := httptest.NewRequest(http.MethodPost, "/stripe-webhook", bytes.NewBufferString(`{"id":"evt_1"}`))
			req.Header.Set(signatureHeader, "t=1,v1=abc")
			rec := httptest.NewRecorder()

			HandleStripeWebhook(stubParser{ev: ev, err: tt.parserErr}, payments, quietLogger()).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
			if tt.substr != "" && !strings.Contains(rec.Body.String(), tt.substr) {
				t.Fatalf("expected %q in %q", tt.substr, rec.Body.String())
			}
			if payments.calls != tt.handled {
				t.Fatalf("expected %d HandleEvent calls, got %d", tt.handled, payments.calls)
			}
		})
	}
}

func TestHandleStripeWebhook_BodySize(t *testing.T) {
	t.Parallel()

	ev := domain.PaymentEvent{ID: "evt_big", Type: domain.EventCheckoutCompleted, OrderID: "order-1"}

	t.Run("large event within limit is applied", func(t *testing.T) {
		t.Parallel()
		payments := &stubPayments{res: app.HandleResult{Outcome: app.OutcomeApplied}}
		body := `{"id":"evt_big","metadata":"` + strings.Repeat("x", 200<<10) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/stripe-webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()

		HandleStripeWebhook(stubParser{ev: ev}, payments, quietLogger()).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || payments.calls != 1 {
			t.Fatalf("expected 200 and one call, got %d and %d", rec.Code, payments.calls)
		}
	})

	t.Run("oversized event is rejected and logged", func(t *testing.T) {
		t.Parallel()
		log, hook := test.NewNullLogger()
		payments := &stubPayments{}
		body := strings.Repeat("x", maxWebhookBodyBytes+1)
		req := httptest.NewRequest(http.MethodPost, "/stripe-webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()

		HandleStripeWebhook(stubParser{ev: ev}, payments, log).ServeHTTP(rec, req)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", rec.Code)
		}
		if payments.calls != 0 {
			t.Fatalf("expected no HandleEvent call")
		}
		entry := hook.LastEntry()
		if entry == nil || entry.Level != logrus.ErrorLevel || entry.Data["limit_bytes"] != int64(maxWebhookBodyBytes) {
			t.Fatalf("expected error entry with limit, got %+v", entry)
		}
	})
}
