package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/corray333/backend-labs/checkout/docs" // swagger document
	"github.com/corray333/backend-labs/checkout/internal/config"
	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"github.com/corray333/backend-labs/checkout/internal/service/models/payment"
	"github.com/corray333/backend-labs/checkout/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/checkout/internal/service/services/paysession"
	"github.com/corray333/backend-labs/checkout/internal/service/services/pricing"
	"github.com/corray333/backend-labs/checkout/internal/service/services/reconciler"
	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	adminorders "github.com/corray333/backend-labs/checkout/internal/transport/http/admin_orders"
	createorder "github.com/corray333/backend-labs/checkout/internal/transport/http/create_order"
	getorder "github.com/corray333/backend-labs/checkout/internal/transport/http/get_order"
	listorders "github.com/corray333/backend-labs/checkout/internal/transport/http/list_orders"
	paymentquote "github.com/corray333/backend-labs/checkout/internal/transport/http/payment_quote"
	paymentsession "github.com/corray333/backend-labs/checkout/internal/transport/http/payment_session"
	paymentsignature "github.com/corray333/backend-labs/checkout/internal/transport/http/payment_signature"
	paymentwebhook "github.com/corray333/backend-labs/checkout/internal/transport/http/payment_webhook"
	"github.com/corray333/backend-labs/checkout/pkg/http/middleware/adminauth"
	"github.com/corray333/backend-labs/checkout/pkg/http/middleware/metrics"
	"github.com/corray333/backend-labs/checkout/pkg/http/middleware/ratelimit"
	"github.com/corray333/backend-labs/checkout/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/checkout/pkg/http/response"
	"github.com/corray333/backend-labs/checkout/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type orderService interface {
	Quote(subtotal, shipping int64) pricing.FeeBreakdown
	CreateOrder(ctx context.Context, in ordersvc.CreateOrderInput) (order.Order, error)
	GetOrder(ctx context.Context, number string) (order.Order, error)
	ListOrders(ctx context.Context, query order.QueryOrdersModel) ([]order.Order, error)
	SetFulfillment(ctx context.Context, number string, status order.FulfillmentStatus) (order.Order, error)
	StartPaymentSession(ctx context.Context, number string) (paysession.Session, error)
	ListFailedSideEffects(ctx context.Context, limit int) ([]outbox.OutboxMessage, error)
}

type paymentService interface {
	Reconcile(ctx context.Context, in reconciler.Input) (reconciler.Result, error)
	MarkPaid(ctx context.Context, number, method string) (order.Order, error)
	Unpay(ctx context.Context, number string) (order.Order, error)
	Verify(ctx context.Context, number string) (order.Order, error)
}

type signer interface {
	Sign(ctx context.Context, req signing.Request) (signing.Result, error)
}

type verifier interface {
	Verify(raw []byte, checksum string) error
	Parse(raw []byte) (payment.Event, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the routes dispatch to.
type Services struct {
	Orders   orderService
	Payments paymentService
	Signer   signer
	Verifier verifier
	// Health is pinged by /healthz. Nil reports healthy.
	Health pinger
}

// HTTPTransport serves the checkout API.
type HTTPTransport struct {
	server   *http.Server
	router   *chi.Mux
	services Services
	limiter  *ratelimit.Limiter
	cfg      *config.Config
}

// NewHTTPTransport creates the transport. RegisterRoutes must be called before Run.
func NewHTTPTransport(cfg *config.Config, services Services) *HTTPTransport {
	router := newRouter(cfg)
	server := newServer(cfg.HTTP, router)

	return &HTTPTransport{
		server:   server,
		router:   router,
		services: services,
		limiter:  ratelimit.New(cfg.Webhook.RateLimit, cfg.Webhook.RateBurst),
		cfg:      cfg,
	}
}

// Handler returns the router, for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// Limiter returns the webhook rate limiter so the caller can run its cleanup loop.
func (h *HTTPTransport) Limiter() *ratelimit.Limiter {
	return h.limiter
}

// Run starts the HTTP server. It returns nil after Shutdown.
func (h *HTTPTransport) Run() error {
	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/healthz", h.healthz)
	h.router.Handle("/metrics", promhttp.Handler())
	h.router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	h.router.Route("/api", func(r chi.Router) {
		r.Post("/payments/signature", h.sign)
		r.Post("/payments/quote", h.quote)

		r.Post("/orders", h.createOrder)
		r.Get("/orders/{number}", h.getOrder)
		r.Post("/orders/{number}/payment-session", h.startPaymentSession)

		r.With(h.limiter.Middleware).Post("/webhooks/payments", h.webhook)

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminauth.NewAdminAuthMiddleware(h.cfg.Admin.JWTSecret))

			r.Get("/orders", h.listOrders)
			r.Post("/orders/{number}/mark-paid", h.markPaid)
			r.Post("/orders/{number}/unpay", h.unpay)
			r.Post("/orders/{number}/verify", h.verify)
			r.Put("/orders/{number}/fulfillment", h.setFulfillment)
			r.Get("/side-effects/failed", h.failedSideEffects)
		})
	})
}

func (h *HTTPTransport) sign(w http.ResponseWriter, r *http.Request) {
	paymentsignature.Sign(w, r, h.services.Signer)
}

func (h *HTTPTransport) quote(w http.ResponseWriter, r *http.Request) {
	paymentquote.Quote(w, r, h.services.Orders)
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.services.Orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.services.Orders)
}

func (h *HTTPTransport) startPaymentSession(w http.ResponseWriter, r *http.Request) {
	paymentsession.StartSession(w, r, h.services.Orders)
}

func (h *HTTPTransport) webhook(w http.ResponseWriter, r *http.Request) {
	paymentwebhook.Handle(w, r, h.services.Verifier, h.services.Payments)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.services.Orders)
}

func (h *HTTPTransport) markPaid(w http.ResponseWriter, r *http.Request) {
	adminorders.MarkPaid(w, r, h.services.Payments)
}

func (h *HTTPTransport) unpay(w http.ResponseWriter, r *http.Request) {
	adminorders.Unpay(w, r, h.services.Payments)
}

func (h *HTTPTransport) verify(w http.ResponseWriter, r *http.Request) {
	adminorders.Verify(w, r, h.services.Payments)
}

func (h *HTTPTransport) setFulfillment(w http.ResponseWriter, r *http.Request) {
	adminorders.SetFulfillment(w, r, h.services.Orders)
}

func (h *HTTPTransport) failedSideEffects(w http.ResponseWriter, r *http.Request) {
	adminorders.FailedSideEffects(w, r, h.services.Orders)
}

func (h *HTTPTransport) healthz(w http.ResponseWriter, r *http.Request) {
	if h.services.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.services.Health.Ping(ctx); err != nil {
			slog.Warn("Health check failed", "error", err)
			response.Error(w, http.StatusServiceUnavailable, "database unavailable")

			return
		}
	}

	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func newRouter(cfg *config.Config) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware(cfg.Tracing.ServiceName))
	router.Use(metrics.NewMetricsMiddleware)

	// The processor posts webhooks server to server; browsers only reach the other routes.
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "X-Event-Checksum"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	router.Use(c.Handler)

	return router
}

func newServer(cfg config.HTTPConfig, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
