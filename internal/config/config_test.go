package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 168*time.Hour, cfg.GuestCartTTL)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 14, cfg.OrderCutoffHour)
	assert.False(t, cfg.KafkaEnabled())
	assert.True(t, cfg.ShouldSeedTestUsers())
	assert.Equal(t, "America/Los_Angeles", cfg.Location().String())
}

func TestLoad_KafkaBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled())
	assert.Len(t, cfg.KafkaBrokers, 2)
}

func TestLoad_SeedTestUsersOverride(t *testing.T) {
	t.Setenv("SEED_TEST_USERS", "false")

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.ShouldSeedTestUsers())
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY must be set")

	t.Setenv("STRIPE_SECRET_KEY", "sk_live_123")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET is required")

	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET must be explicitly set")

	t.Setenv("JWT_SECRET", "short")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.ShouldSeedTestUsers())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"port", "HTTP_PORT", "0", "invalid HTTP port"},
		{"cutoff", "ORDER_CUTOFF_HOUR", "24", "ORDER_CUTOFF_HOUR"},
		{"sample rate", "OTEL_SAMPLE_RATE", "2", "OTEL_SAMPLE_RATE"},
		{"timezone", "STORE_TIMEZONE", "Mars/Olympus", "invalid STORE_TIMEZONE"},
		{"email provider", "EMAIL_PROVIDER", "carrier-pigeon", "unknown EMAIL_PROVIDER"},
		{"resend key", "EMAIL_PROVIDER", "resend", "EMAIL_API_KEY is required"},
		{"trusted proxies", "TRUSTED_PROXIES", "10.0.0.0/8,load-balancer", "invalid TRUSTED_PROXIES"},
		{"stripe webhook secret", "STRIPE_SECRET_KEY", "sk_test_123", "STRIPE_WEBHOOK_SECRET is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
