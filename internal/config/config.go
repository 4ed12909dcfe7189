// Package config loads the storefront service configuration from the
// environment.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	pkgconfig "github.com/gearvn/storefront/pkg/config"
)

// Storage drivers.
const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8090"`

	// Backend REST API
	BackendBaseURL    string        `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8080/datn"`
	BackendTimeout    time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`
	BackendMaxRetries int           `env:"BACKEND_MAX_RETRIES" envDefault:"0"`

	// Session storage
	StorageDriver  string        `env:"STORAGE_DRIVER" envDefault:"redis"`
	RedisAddr      string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass      string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`

	// Catalog and suggestions
	CatalogTTL   time.Duration `env:"CATALOG_TTL" envDefault:"1m"`
	SuggestDelay time.Duration `env:"SUGGEST_DELAY" envDefault:"300ms"`
	SuggestLimit int           `env:"SUGGEST_LIMIT" envDefault:"8"`

	// Date windows of discount codes are read in this zone.
	Timezone string `env:"TIMEZONE" envDefault:"Asia/Ho_Chi_Minh"`

	// Per-session request budget. A zero rate disables limiting.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"30"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// Kafka
	KafkaEnabled          bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers          []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaTopicOrderPlaced string   `env:"KAFKA_TOPIC_ORDER_PLACED" envDefault:"storefront.order.placed"`
	KafkaTopicCartCleared string   `env:"KAFKA_TOPIC_CART_CLEARED" envDefault:"storefront.cart.cleared"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from vars; used by tests.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, vars); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location returns the configured time zone. validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !strings.HasPrefix(c.BackendBaseURL, "http://") && !strings.HasPrefix(c.BackendBaseURL, "https://") {
		return fmt.Errorf("BACKEND_BASE_URL must be an http(s) URL, got %q", c.BackendBaseURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.BackendMaxRetries < 0 {
		return fmt.Errorf("BACKEND_MAX_RETRIES must not be negative")
	}
	switch c.StorageDriver {
	case StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageRedis, StorageMemory, c.StorageDriver)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be positive")
	}
	if c.CatalogTTL <= 0 {
		return fmt.Errorf("CATALOG_TTL must be positive")
	}
	if c.SuggestDelay < 0 {
		return fmt.Errorf("SUGGEST_DELAY must not be negative")
	}
	if c.SuggestLimit < 1 {
		return fmt.Errorf("SUGGEST_LIMIT must be at least 1")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1 when rate limiting is on")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}
