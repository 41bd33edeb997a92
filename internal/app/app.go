package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/corray333/backend-labs/checkout/internal/config"
	"github.com/corray333/backend-labs/checkout/internal/dal/kafka"
	"github.com/corray333/backend-labs/checkout/internal/dal/postgres"
	"github.com/corray333/backend-labs/checkout/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/checkout/internal/dal/redis"
	redisrepo "github.com/corray333/backend-labs/checkout/internal/dal/repositories/dedup/redis"
	outboxrepo "github.com/corray333/backend-labs/checkout/internal/dal/repositories/outbox/postgres"
	"github.com/corray333/backend-labs/checkout/internal/dal/signer"
	"github.com/corray333/backend-labs/checkout/internal/dal/uow"
	"github.com/corray333/backend-labs/checkout/internal/otel"
	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"github.com/corray333/backend-labs/checkout/internal/service/services/notifier"
	"github.com/corray333/backend-labs/checkout/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/checkout/internal/service/services/paysession"
	"github.com/corray333/backend-labs/checkout/internal/service/services/pricing"
	"github.com/corray333/backend-labs/checkout/internal/service/services/reconciler"
	"github.com/corray333/backend-labs/checkout/internal/service/services/signing"
	"github.com/corray333/backend-labs/checkout/internal/service/services/stock"
	"github.com/corray333/backend-labs/checkout/internal/service/services/webhook"
	httptransport "github.com/corray333/backend-labs/checkout/internal/transport/http"
	outboxworker "github.com/corray333/backend-labs/checkout/internal/worker/outbox"
)

type paymentSigner interface {
	Sign(ctx context.Context, req signing.Request) (signing.Result, error)
}

type dedupStore interface {
	Recall(ctx context.Context, key string) (string, bool, error)
	Remember(ctx context.Context, key, value string) error
}

// App represents the application.
type App struct {
	cfg            *config.Config
	transport      *httptransport.HTTPTransport
	outboxWorker   *outboxworker.Worker
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	kafkaClient    *kafka.Client
	redisClient    *redis.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	cfg := config.MustLoad()

	otelController := otel.MustInitOtel(cfg.Tracing)

	postgresClient := postgres.MustNewClient(cfg.Postgres)
	uowFactory := uow.NewFactory(postgresClient.DB())

	rabbitClient := rabbitmq.MustNewClient(cfg.RabbitMQ)
	if _, err := rabbitClient.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    cfg.RabbitMQ.NotificationQueue,
		Durable: true,
	}); err != nil {
		panic("failed to declare notification queue: " + err.Error())
	}

	kafkaClient := kafka.MustNewClient(cfg.Kafka)

	localSigner := paysession.NewLocalSigner(signing.NewSigner(cfg.Payment.PrivateKey))
	if cfg.Payment.PrivateKey == "" {
		slog.Warn("PAYMENT_PRIVATE_KEY is not set, signing requests will fail")
	}
	if cfg.Payment.WebhookSecret == "" {
		slog.Warn("PAYMENT_WEBHOOK_SECRET is not set, webhooks will be refused")
	}

	var sessionSigner paymentSigner = localSigner
	if cfg.Payment.SigningURL != "" {
		sessionSigner = signer.NewClient(cfg.Payment.SigningURL, cfg.Payment.SigningTimeout)
	}

	initiator := paysession.NewInitiator(sessionSigner, paysession.Config{
		PublicKey:      cfg.Payment.PublicKey,
		CheckoutURL:    cfg.Payment.CheckoutURL,
		RedirectURL:    cfg.Payment.RedirectURL,
		CancelURL:      cfg.Payment.CancelURL,
		PaymentMethods: cfg.Payment.PaymentMethods,
	})

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithUnitOfWorkFactory(uowFactory),
		ordersvc.WithCalculator(pricing.NewCalculator(cfg.Payment.FeePercentage, cfg.Payment.FixedFee)),
		ordersvc.WithInitiator(initiator),
	)

	var dedup dedupStore
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.MustNewClient(cfg.Redis)
		dedup = redisrepo.NewDedupStore(redisClient.RDB(), cfg.Webhook.DedupTTL)
	}

	rec := reconciler.MustNewReconciler(
		reconciler.WithUnitOfWorkFactory(uowFactory),
		reconciler.WithDedupStore(dedup),
		reconciler.WithAutoVerifiedMethods(cfg.Payment.AutoVerifiedMethods),
		reconciler.WithOutboxMaxRetries(cfg.Outbox.MaxRetries),
	)

	transport := httptransport.NewHTTPTransport(cfg, httptransport.Services{
		Orders:   orderSvc,
		Payments: rec,
		Signer:   localSigner,
		Verifier: webhook.NewVerifier(cfg.Payment.WebhookSecret),
		Health:   postgresClient,
	})
	transport.RegisterRoutes()

	worker := outboxworker.NewWorker(
		outboxrepo.NewOutboxRepository(postgresClient.DB()),
		outboxworker.Dispatchers{
			outbox.KindOrderConfirmation: notifier.NewNotifier(rabbitClient, cfg.RabbitMQ.NotificationQueue),
			outbox.KindStockDecrement:    stock.NewPublisher(kafkaClient, cfg.Kafka.StockTopic),
		},
		cfg.Outbox,
	)

	return &App{
		cfg:            cfg,
		transport:      transport,
		outboxWorker:   worker,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		kafkaClient:    kafkaClient,
		redisClient:    redisClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server", "addr", a.cfg.HTTP.Addr)
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	go a.outboxWorker.Start(ctx)
	go a.transport.Limiter().Cleanup(ctx)

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := a.transport.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.outboxWorker.Stop()

	if err := a.kafkaClient.Close(); err != nil {
		slog.Error("Kafka producer close error", "error", err)
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			slog.Error("Redis connection close error", "error", err)
		}
	}

	if err := a.postgresClient.Close(); err != nil {
		slog.Error("Database connection close error", "error", err)
	} else {
		slog.Info("Database connection closed gracefully")
	}

	if err := a.otelController.Shutdown(shutdownCtx); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
