package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "k")
	t.Setenv("PAYMENT_SANDBOX", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, 8, cfg.DBMaxConns)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.PaymentTimeout)
	assert.Equal(t, 5*time.Minute, cfg.OrderCacheTTL)
	assert.Equal(t, 20, cfg.OrderRateLimit)
	assert.True(t, cfg.Migrate)
	assert.True(t, cfg.PaymentSandbox)
	assert.Equal(t, "sandbox", cfg.BraintreeEnvironment)
	assert.Empty(t, cfg.PaymentGatewayURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "k")
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	t.Setenv("PAYMENT_TIMEOUT", "2500ms")
	t.Setenv("DB_MAX_CONNS", "16")
	t.Setenv("BRAINTREE_MERCHANT_ID", "m")
	t.Setenv("BRAINTREE_PUBLIC_KEY", "pub")
	t.Setenv("BRAINTREE_PRIVATE_KEY", "priv")
	t.Setenv("BRAINTREE_ENVIRONMENT", "Production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2500*time.Millisecond, cfg.PaymentTimeout)
	assert.Equal(t, 16, cfg.DBMaxConns)
	assert.False(t, cfg.PaymentSandbox)
	assert.Equal(t, "production", cfg.BraintreeEnvironment)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":     {"PAYMENT_SANDBOX": "true"},
		"bad int":            {"SECRET_KEY": "k", "PAYMENT_SANDBOX": "true", "DB_MAX_CONNS": "many"},
		"bad duration":       {"SECRET_KEY": "k", "PAYMENT_SANDBOX": "true", "PAYMENT_TIMEOUT": "30"},
		"zero timeout":       {"SECRET_KEY": "k", "PAYMENT_SANDBOX": "true", "PAYMENT_TIMEOUT": "0s"},
		"bad bool":           {"SECRET_KEY": "k", "PAYMENT_SANDBOX": "sometimes"},
		"no gateway keys":    {"SECRET_KEY": "k"},
		"non-positive limit": {"SECRET_KEY": "k", "PAYMENT_SANDBOX": "true", "ORDER_RATE_LIMIT": "0"},
		"negative threshold": {"SECRET_KEY": "k", "PAYMENT_SANDBOX": "true", "LOW_STOCK_THRESHOLD": "-1"},
		"unknown env":        {"SECRET_KEY": "k", "PAYMENT_SANDBOX": "true", "BRAINTREE_ENVIRONMENT": "staging"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("SECRET_KEY", "")
			t.Setenv("PAYMENT_SANDBOX", "")
			t.Setenv("BRAINTREE_MERCHANT_ID", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
