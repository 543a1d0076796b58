package app

import (
	"context"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/domain"
)

// CheckoutProvider opens hosted checkout sessions with the payment provider.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error)
}

type OrderReader interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
}

// Redirects builds the URLs the provider sends the browser back to.
type Redirects struct {
	BaseURL        string
	SuccessPath    string
	CancelPath     string
	AllowedOrigins []string
}

// URLs returns the success and cancel URLs for an order. The request origin
// is only used when it is listed explicitly; a "*" entry never widens
// redirects.
func (r Redirects) URLs(origin, orderID string) (success, cancel string) {
	base := r.BaseURL
	if origin != "" && r.allowed(origin) {
		base = origin
	}
	base = strings.TrimRight(base, "/")

	successPath := r.SuccessPath
	if successPath == "" {
		successPath = "/booking"
	}
	q := url.Values{"order_id": {orderID}}
	success = base + successPath + "?" + q.Encode()
	cancel = base + r.CancelPath
	return success, cancel
}

func (r Redirects) allowed(origin string) bool {
	for _, o := range r.AllowedOrigins {
		if o != "*" && o == origin {
			return true
		}
	}
	return false
}

type CheckoutService struct {
	orders    OrderReader
	provider  CheckoutProvider
	redirects Redirects
	currency  string
	log       logrus.FieldLogger
}

type CheckoutServiceOption func(*CheckoutService)

func WithCheckoutLogger(l logrus.FieldLogger) CheckoutServiceOption {
	return func(s *CheckoutService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCurrency sets the fallback currency for orders that carry none.
func WithCurrency(c string) CheckoutServiceOption {
	return func(s *CheckoutService) {
		if c != "" {
			s.currency = strings.ToLower(c)
		}
	}
}

func NewCheckoutService(orders OrderReader, provider CheckoutProvider, redirects Redirects, opts ...CheckoutServiceOption) *CheckoutService {
	svc := &CheckoutService{
		orders:    orders,
		provider:  provider,
		redirects: redirects,
		currency:  "gbp",
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreateSessionInput struct {
	PackageName        string
	PackageDescription string
	Amount             any
	OrderID            string
	Origin             string
}

// CreateSession opens a checkout session for an existing pending order. The
// amount is validated before anything else, so a bad amount never reaches
// the provider.
func (s *CheckoutService) CreateSession(ctx context.Context, in CreateSessionInput) (domain.CheckoutSession, error) {
	amount, err := domain.ParseAmount(in.Amount)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return domain.CheckoutSession{}, domain.ErrInvalidID
	}
	if strings.TrimSpace(in.PackageName) == "" {
		return domain.CheckoutSession{}, domain.ErrPackageNameRequired
	}

	order, err := s.orders.GetOrder(ctx, in.OrderID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if order.PaymentStatus != domain.PaymentStatusPending {
		return domain.CheckoutSession{}, domain.ErrOrderNotPending
	}
	if order.AmountMinor != amount {
		s.log.WithFields(logrus.Fields{
			"order_id":  order.ID,
			"requested": amount,
			"expected":  order.AmountMinor,
		}).Warn("checkout amount does not match order")
		return domain.CheckoutSession{}, domain.ErrAmountMismatch
	}

	return s.open(ctx, order, in.PackageName, in.PackageDescription, in.Origin)
}

type StartSessionInput struct {
	Order       domain.Order
	Description string
	Origin      string
}

// StartSession opens a checkout session for an order created by the booking flow.
func (s *CheckoutService) StartSession(ctx context.Context, in StartSessionInput) (domain.CheckoutSession, error) {
	return s.open(ctx, in.Order, in.Order.PackageName, in.Description, in.Origin)
}

func (s *CheckoutService) open(ctx context.Context, order domain.Order, name, description, origin string) (domain.CheckoutSession, error) {
	if strings.TrimSpace(description) == "" {
		description = domain.DefaultLineItemDescription
	}
	currency := order.Currency
	if currency == "" {
		currency = s.currency
	}
	success, cancel := s.redirects.URLs(origin, order.ID)

	session, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		OrderID:            order.ID,
		PackageName:        name,
		PackageDescription: description,
		AmountMinor:        order.AmountMinor,
		Currency:           currency,
		CustomerEmail:      order.CustomerEmail,
		SuccessURL:         success,
		CancelURL:          cancel,
		ExpiresAt:          order.ExpiresAt,
	})
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"session_id": session.ID,
	}).Info("checkout session created")
	return session, nil
}
