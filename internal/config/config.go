package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/corray333/backend-labs/checkout/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Payment environments.
const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

// ErrInvalidEnvironment is returned when payment.environment is neither sandbox nor production.
var ErrInvalidEnvironment = errors.New("invalid payment environment")

// MustInit loads .env (when present) and config.yaml, then installs the default logger.
func MustInit() {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/checkout-svc")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic("error while reading config file: " + err.Error())
		}
	}
	SetupLogger()
}

// SetupLogger installs the JSON slog handler as the default logger.
func SetupLogger() {
	handler := logger.NewHandler(&logger.Options{
		Level:      viper.GetString("log.level"),
		File:       viper.GetString("log.file"),
		MaxSizeMB:  viper.GetInt("log.max_size_mb"),
		MaxBackups: viper.GetInt("log.max_backups"),
		MaxAgeDays: viper.GetInt("log.max_age_days"),
	})
	log := slog.New(handler)
	slog.SetDefault(log)
}

// Config is the typed application configuration. It is built once at boot and passed
// to the components that need it.
type Config struct {
	HTTP     HTTPConfig
	Payment  PaymentConfig
	Admin    AdminConfig
	Postgres PostgresConfig
	RabbitMQ RabbitMQConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Outbox   OutboxConfig
	Webhook  WebhookConfig
	Tracing  TracingConfig
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type PaymentConfig struct {
	// PrivateKey signs checkout sessions. Signing requests fail while it is empty.
	PrivateKey string
	PublicKey  string
	// Environment selects CheckoutURL.
	Environment string
	CheckoutURL string
	// WebhookSecret verifies webhook checksums. Webhooks are refused while it is empty.
	WebhookSecret       string
	RedirectURL         string
	CancelURL           string
	PaymentMethods      []string
	FeePercentage       decimal.Decimal
	FixedFee            int64
	AutoVerifiedMethods []string
	// SigningURL points at a remote signing endpoint. Empty means sign in process.
	SigningURL     string
	SigningTimeout time.Duration
}

type AdminConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DB       string
	SSLMode  string
	MaxConns int32
}

// DSN returns the libpq style connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode,
	)
}

type RabbitMQConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	NotificationQueue string
}

// URL returns the AMQP connection URL.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Password, c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers    []string
	StockTopic string
}

type RedisConfig struct {
	// Addr empty disables the webhook dedup cache.
	Addr     string
	Password string
	DB       int
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	RetryBase    time.Duration
	Concurrency  int
}

type WebhookConfig struct {
	DedupTTL  time.Duration
	RateLimit float64
	RateBurst int
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// MustLoad is Load that panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic("error while loading config: " + err.Error())
	}

	return cfg
}

// Load builds Config from viper, filling defaults for unset values.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP = HTTPConfig{
		Addr:            viper.GetString("http.addr"),
		ReadTimeout:     viper.GetDuration("http.read_timeout"),
		WriteTimeout:    viper.GetDuration("http.write_timeout"),
		ShutdownTimeout: viper.GetDuration("http.shutdown_timeout"),
		AllowedOrigins:  stringList("http.cors.allowed_origins"),
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}

	payment, err := loadPayment()
	if err != nil {
		return nil, err
	}
	cfg.Payment = payment

	cfg.Admin = AdminConfig{
		JWTSecret: viper.GetString("admin.jwt_secret"),
		TokenTTL:  viper.GetDuration("admin.token_ttl"),
	}
	if cfg.Admin.TokenTTL == 0 {
		cfg.Admin.TokenTTL = 12 * time.Hour
	}

	cfg.Postgres = PostgresConfig{
		Host:     viper.GetString("postgres.host"),
		Port:     viper.GetInt("postgres.port"),
		User:     viper.GetString("postgres.user"),
		Password: viper.GetString("postgres.password"),
		DB:       viper.GetString("postgres.db"),
		SSLMode:  viper.GetString("postgres.sslmode"),
		MaxConns: viper.GetInt32("postgres.max_conns"),
	}
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = "localhost"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}

	cfg.RabbitMQ = RabbitMQConfig{
		Host:              viper.GetString("rabbitmq.host"),
		Port:              viper.GetInt("rabbitmq.port"),
		User:              viper.GetString("rabbitmq.user"),
		Password:          viper.GetString("rabbitmq.password"),
		NotificationQueue: viper.GetString("rabbitmq.notification_queue"),
	}
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "rabbitmq"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}
	if cfg.RabbitMQ.NotificationQueue == "" {
		cfg.RabbitMQ.NotificationQueue = "order.notifications"
	}

	cfg.Kafka = KafkaConfig{
		Brokers:    stringList("kafka.brokers"),
		StockTopic: viper.GetString("kafka.stock_topic"),
	}
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.StockTopic == "" {
		cfg.Kafka.StockTopic = "inventory.stock-decrements"
	}

	cfg.Redis = RedisConfig{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}

	cfg.Outbox = OutboxConfig{
		PollInterval: viper.GetDuration("outbox.poll_interval"),
		BatchSize:    viper.GetInt("outbox.batch_size"),
		MaxRetries:   viper.GetInt("outbox.max_retries"),
		RetryBase:    viper.GetDuration("outbox.retry_base"),
		Concurrency:  viper.GetInt("outbox.concurrency"),
	}
	if cfg.Outbox.PollInterval == 0 {
		cfg.Outbox.PollInterval = 10 * time.Second
	}
	if cfg.Outbox.BatchSize == 0 {
		cfg.Outbox.BatchSize = 100
	}
	if cfg.Outbox.MaxRetries == 0 {
		cfg.Outbox.MaxRetries = 5
	}
	if cfg.Outbox.RetryBase == 0 {
		cfg.Outbox.RetryBase = 30 * time.Second
	}
	if cfg.Outbox.Concurrency == 0 {
		cfg.Outbox.Concurrency = 4
	}

	cfg.Webhook = WebhookConfig{
		DedupTTL:  viper.GetDuration("webhook.dedup_ttl"),
		RateLimit: viper.GetFloat64("webhook.rate_limit"),
		RateBurst: viper.GetInt("webhook.rate_burst"),
	}
	if cfg.Webhook.DedupTTL == 0 {
		cfg.Webhook.DedupTTL = 24 * time.Hour
	}
	if cfg.Webhook.RateLimit == 0 {
		cfg.Webhook.RateLimit = 20
	}
	if cfg.Webhook.RateBurst == 0 {
		cfg.Webhook.RateBurst = 40
	}

	cfg.Tracing = TracingConfig{
		Enabled:     viper.GetBool("tracing.enabled"),
		Endpoint:    viper.GetString("tracing.endpoint"),
		ServiceName: viper.GetString("tracing.service_name"),
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = "http://jaeger:14268/api/traces"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "checkout-svc"
	}

	return cfg, nil
}

func loadPayment() (PaymentConfig, error) {
	p := PaymentConfig{
		PrivateKey:          viper.GetString("payment.private_key"),
		PublicKey:           viper.GetString("payment.public_key"),
		Environment:         strings.ToLower(viper.GetString("payment.environment")),
		WebhookSecret:       viper.GetString("payment.webhook_secret"),
		RedirectURL:         viper.GetString("payment.redirect_url"),
		CancelURL:           viper.GetString("payment.cancel_url"),
		PaymentMethods:      stringList("payment.payment_methods"),
		FixedFee:            viper.GetInt64("payment.fees.fixed"),
		AutoVerifiedMethods: stringList("payment.auto_verified_methods"),
		SigningURL:          viper.GetString("payment.signing.url"),
		SigningTimeout:      viper.GetDuration("payment.signing.timeout"),
	}

	if p.Environment == "" {
		p.Environment = EnvironmentSandbox
	}
	if p.Environment != EnvironmentSandbox && p.Environment != EnvironmentProduction {
		return PaymentConfig{}, fmt.Errorf("%w: %q", ErrInvalidEnvironment, p.Environment)
	}

	p.CheckoutURL = viper.GetString("payment.environments." + p.Environment + ".checkout_url")
	if p.CheckoutURL == "" {
		p.CheckoutURL = "https://checkout.example.com/p/"
		if p.Environment == EnvironmentSandbox {
			p.CheckoutURL = "https://sandbox.checkout.example.com/p/"
		}
	}

	feeStr := viper.GetString("payment.fees.percentage")
	if feeStr == "" {
		p.FeePercentage = decimal.RequireFromString("0.0295")
	} else {
		fee, err := decimal.NewFromString(feeStr)
		if err != nil {
			return PaymentConfig{}, fmt.Errorf("failed to parse payment.fees.percentage: %w", err)
		}
		if fee.IsNegative() {
			return PaymentConfig{}, fmt.Errorf("payment.fees.percentage must not be negative, got %s", feeStr)
		}
		p.FeePercentage = fee
	}
	if !viper.IsSet("payment.fees.fixed") {
		p.FixedFee = 1000
	}
	if p.FixedFee < 0 {
		return PaymentConfig{}, fmt.Errorf("payment.fees.fixed must not be negative, got %d", p.FixedFee)
	}

	if len(p.AutoVerifiedMethods) == 0 {
		p.AutoVerifiedMethods = []string{"CARD", "NEQUI", "PSE", "BANCOLOMBIA_TRANSFER"}
	}
	if p.SigningTimeout == 0 {
		p.SigningTimeout = 10 * time.Second
	}

	return p, nil
}

// stringList reads a list that may come from YAML or a comma separated env variable.
func stringList(key string) []string {
	var out []string
	for _, v := range viper.GetStringSlice(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
