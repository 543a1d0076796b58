// Package stripepay adapts Stripe Checkout to the booking domain: it creates
// and inspects checkout sessions and turns signed webhook payloads into
// domain.PaymentEvent values.
package stripepay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/clock"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

const (
	// Stripe refuses expires_at less than 30 minutes after creation.
	minSessionLifetime = 31 * time.Minute
	maxSessionLifetime = 24 * time.Hour

	signatureTolerance = 5 * time.Minute

	metadataOrderID = "order_id"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	// APIURL overrides the Stripe API base, used against stripe-mock and in tests.
	APIURL     string
	HTTPClient *http.Client
}

type Provider struct {
	sessions      session.Client
	webhookSecret string
	clock         clock.Clock
	log           logrus.FieldLogger
}

func New(cfg Config, clk clock.Clock, log logrus.FieldLogger) *Provider {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	backendCfg := &stripe.BackendConfig{
		LeveledLogger:     log,
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	if cfg.HTTPClient != nil {
		backendCfg.HTTPClient = cfg.HTTPClient
	}
	return &Provider{
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		clock:         clk,
		log:           log,
	}
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(req.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(req.PackageName),
					Description: stripe.String(req.PackageDescription),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		Metadata:          map[string]string{metadataOrderID: req.OrderID},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{metadataOrderID: req.OrderID},
		},
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if exp := p.sessionExpiry(req.ExpiresAt); !exp.IsZero() {
		params.ExpiresAt = stripe.Int64(exp.Unix())
	}

	s, err := p.sessions.New(params)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("stripe create session: %w", err)
	}
	return domain.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// sessionExpiry keeps the requested expiry inside the window Stripe accepts.
// A zero time leaves Stripe's 24h default in place.
func (p *Provider) sessionExpiry(want time.Time) time.Time {
	if want.IsZero() {
		return time.Time{}
	}
	now := p.clock.Now()
	if earliest := now.Add(minSessionLifetime); want.Before(earliest) {
		return earliest
	}
	if latest := now.Add(maxSessionLifetime); want.After(latest) {
		return latest
	}
	return want
}

func (p *Provider) GetSession(ctx context.Context, id string) (domain.SessionState, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.sessions.Get(id, params)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("stripe get session: %w", err)
	}
	return domain.SessionState{
		ID:            s.ID,
		Status:        string(s.Status),
		PaymentStatus: sessionPaymentStatus(s.PaymentStatus),
		Payment:       paymentDetails(s),
	}, nil
}

func (p *Provider) ExpireSession(ctx context.Context, id string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := p.sessions.Expire(id, params); err != nil {
		return fmt.Errorf("stripe expire session: %w", err)
	}
	return nil
}

// ParseEvent verifies the Stripe-Signature header and maps the event.
func (p *Provider) ParseEvent(payload []byte, signature string) (domain.PaymentEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                signatureTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		p.log.WithError(err).Warn("stripe webhook signature rejected")
		return domain.PaymentEvent{}, domain.ErrInvalidSignature
	}
	return mapEvent(ev)
}

func mapEvent(ev stripe.Event) (domain.PaymentEvent, error) {
	out := domain.PaymentEvent{
		ID:           ev.ID,
		Type:         domain.EventUnhandled,
		ProviderType: string(ev.Type),
		OccurredAt:   time.Unix(ev.Created, 0).UTC(),
	}
	if ev.Data == nil {
		return out, nil
	}

	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return domain.PaymentEvent{}, fmt.Errorf("decode checkout session: %w", err)
		}
		out.OrderID = s.Metadata[metadataOrderID]
		out.Payment = paymentDetails(&s)
		out.Type = checkoutEventType(ev.Type, s.PaymentStatus)

	case stripe.EventTypeChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
			return domain.PaymentEvent{}, fmt.Errorf("decode charge: %w", err)
		}
		if !ch.Refunded {
			return out, nil
		}
		out.Type = domain.EventChargeRefunded
		out.OrderID = ch.Metadata[metadataOrderID]
		if ch.PaymentIntent != nil {
			out.Payment.PaymentIntentID = ch.PaymentIntent.ID
		}
	}
	return out, nil
}

func checkoutEventType(t stripe.EventType, ps stripe.CheckoutSessionPaymentStatus) domain.PaymentEventType {
	switch t {
	case stripe.EventTypeCheckoutSessionCompleted:
		if ps == stripe.CheckoutSessionPaymentStatusUnpaid {
			return domain.EventCheckoutPending
		}
		return domain.EventCheckoutCompleted
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return domain.EventCheckoutCompleted
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		return domain.EventCheckoutFailed
	case stripe.EventTypeCheckoutSessionExpired:
		return domain.EventCheckoutExpired
	}
	return domain.EventUnhandled
}

func sessionPaymentStatus(ps stripe.CheckoutSessionPaymentStatus) string {
	if ps == stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
		return domain.SessionPaymentPaid
	}
	return string(ps)
}

func paymentDetails(s *stripe.CheckoutSession) domain.PaymentDetails {
	d := domain.PaymentDetails{SessionID: s.ID, CustomerEmail: s.CustomerEmail}
	if s.PaymentIntent != nil {
		d.PaymentIntentID = s.PaymentIntent.ID
	}
	if s.CustomerDetails != nil {
		if s.CustomerDetails.Email != "" {
			d.CustomerEmail = s.CustomerDetails.Email
		}
		d.CustomerName = s.CustomerDetails.Name
	}
	return d
}
