package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8080/datn", cfg.BackendBaseURL)
	assert.Equal(t, 0, cfg.BackendMaxRetries)
	assert.Equal(t, StorageRedis, cfg.StorageDriver)
	assert.Equal(t, 300*time.Millisecond, cfg.SuggestDelay)
	assert.Equal(t, 8, cfg.SuggestLimit)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Timezone)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 30, cfg.RateLimitBurst)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"BACKEND_BASE_URL":     "https://api.gearvn.test/datn",
		"SESSION_IDLE_TTL":     "5m",
		"SUGGEST_DELAY":        "150ms",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"CORS_ALLOWED_ORIGINS": "https://gearvn.test,https://admin.gearvn.test",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://api.gearvn.test/datn", cfg.BackendBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, 150*time.Millisecond, cfg.SuggestDelay)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Len(t, cfg.CORSAllowedOrigins, 2)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"port", map[string]string{"HTTP_PORT": "0"}, "invalid HTTP port"},
		{"backend url", map[string]string{"BACKEND_BASE_URL": "localhost:8080"}, "BACKEND_BASE_URL"},
		{"retries", map[string]string{"BACKEND_MAX_RETRIES": "-1"}, "BACKEND_MAX_RETRIES"},
		{"driver", map[string]string{"STORAGE_DRIVER": "postgres"}, "STORAGE_DRIVER"},
		{"idle ttl", map[string]string{"SESSION_IDLE_TTL": "0s"}, "SESSION_IDLE_TTL"},
		{"suggest limit", map[string]string{"SUGGEST_LIMIT": "0"}, "SUGGEST_LIMIT"},
		{"timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}, "invalid TIMEZONE"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "2.0"}, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0"},
		{"negative rate", map[string]string{"RATE_LIMIT_RPS": "-1"}, "RATE_LIMIT_RPS"},
		{"zero burst", map[string]string{"RATE_LIMIT_BURST": "0"}, "RATE_LIMIT_BURST"},
		{"duration syntax", map[string]string{"CATALOG_TTL": "soon"}, "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(tt.vars)
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"TIMEZONE": "UTC"})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.Location())
}
