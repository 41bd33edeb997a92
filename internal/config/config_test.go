package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, EnvironmentSandbox, cfg.Payment.Environment)
	assert.Equal(t, "https://sandbox.checkout.example.com/p/", cfg.Payment.CheckoutURL)
	assert.True(t, decimal.RequireFromString("0.0295").Equal(cfg.Payment.FeePercentage))
	assert.EqualValues(t, 1000, cfg.Payment.FixedFee)
	assert.Equal(t, []string{"CARD", "NEQUI", "PSE", "BANCOLOMBIA_TRANSFER"}, cfg.Payment.AutoVerifiedMethods)
	assert.Equal(t, 10*time.Second, cfg.Payment.SigningTimeout)
	assert.Empty(t, cfg.Payment.PrivateKey)
	assert.Empty(t, cfg.Payment.WebhookSecret)
	assert.Equal(t, 5, cfg.Outbox.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Outbox.RetryBase)
	assert.Equal(t, 24*time.Hour, cfg.Webhook.DedupTTL)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("payment.environment", "PRODUCTION")
	viper.Set("payment.environments.production.checkout_url", "https://pay.example.org/")
	viper.Set("payment.fees.percentage", "0.03")
	viper.Set("payment.fees.fixed", 0)
	viper.Set("payment.auto_verified_methods", "CARD, NEQUI")
	viper.Set("payment.private_key", "prv_test")
	viper.Set("kafka.brokers", []string{"k1:9092", "k2:9092"})
	viper.Set("outbox.retry_base", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvironmentProduction, cfg.Payment.Environment)
	assert.Equal(t, "https://pay.example.org/", cfg.Payment.CheckoutURL)
	assert.True(t, decimal.RequireFromString("0.03").Equal(cfg.Payment.FeePercentage))
	assert.Zero(t, cfg.Payment.FixedFee)
	assert.Equal(t, []string{"CARD", "NEQUI"}, cfg.Payment.AutoVerifiedMethods)
	assert.Equal(t, "prv_test", cfg.Payment.PrivateKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Outbox.RetryBase)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]func(){
		"environment": func() { viper.Set("payment.environment", "staging") },
		"percentage":  func() { viper.Set("payment.fees.percentage", "abc") },
		"negative":    func() { viper.Set("payment.fees.percentage", "-0.01") },
		"fixed":       func() { viper.Set("payment.fees.fixed", -1) },
	}

	for name, set := range cases {
		t.Run(name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			set()

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestPostgresConfig_DSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", DB: "checkout", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=checkout sslmode=disable", c.DSN())
}
