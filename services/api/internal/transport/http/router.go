package http

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Services groups what the router dispatches to. Admin and Auth may be nil,
// in which case the admin routes answer 503.
type Services struct {
	Store    Pinger
	Catalog  Catalog
	Bookings interface {
		BookingStarter
		OrderStatusReader
	}
	Checkout  CheckoutCreator
	Webhooks  EventParser
	Payments  PaymentEventHandler
	Admin     AdminService
	Reconcile Reconciler
	Login     AdminLogin
	Tokens    TokenVerifier
}

// NewRouter wires every route and wraps them in CORS, panic recovery and
// request logging.
func NewRouter(s Services, corsOrigins []string, log logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", HealthHandler(s.Store))
	mux.Handle("/packages", HandlePackages(s.Catalog, log))
	mux.Handle("/slots", HandleSlots(s.Catalog, log))
	mux.Handle("/bookings", HandleCreateBooking(s.Bookings, log))
	mux.Handle("/orders/", HandleGetOrder(s.Bookings, log))
	mux.Handle("/create-checkout-session", HandleCreateCheckoutSession(s.Checkout, log))
	mux.Handle("/stripe-webhook", HandleStripeWebhook(s.Webhooks, s.Payments, log))

	mux.Handle("/admin/login", HandleAdminLogin(s.Login, log))
	admin := func(h http.Handler) http.Handler { return RequireAdmin(s.Tokens, h) }
	mux.Handle("/admin/slots", admin(HandleAdminSlots(s.Admin, log)))
	mux.Handle("/admin/slots/", admin(HandleAdminSlot(s.Admin, log)))
	mux.Handle("/admin/orders", admin(HandleAdminOrders(s.Admin, log)))
	mux.Handle("/admin/bookings", admin(HandleAdminBookings(s.Admin, log)))
	mux.Handle("/admin/packages", admin(HandleAdminPackages(s.Admin, log)))
	mux.Handle("/admin/reconcile", admin(HandleAdminReconcile(s.Reconcile, log)))
	mux.Handle("/", NotFoundHandler())

	return RequestLogger(Recoverer(CORS(corsOrigins, mux), log), log)
}
