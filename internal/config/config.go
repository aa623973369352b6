package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/godfreymatagaro/eduability/internal/heuristic"
	"github.com/godfreymatagaro/eduability/internal/service"
	pkgconfig "github.com/godfreymatagaro/eduability/pkg/config"
	"github.com/godfreymatagaro/eduability/pkg/database"
	"github.com/godfreymatagaro/eduability/pkg/tracing"
)

// Store backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort              int `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeoutSeconds int `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
	ListingMaxAgeSeconds  int `env:"HTTP_LISTING_MAX_AGE_SECONDS" envDefault:"0"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Store
	StoreBackend string `env:"STORE_BACKEND" envDefault:"mongo"`
	Mongo        database.MongoConfig
	Postgres     database.PostgresConfig

	// Cache
	Redis           database.RedisConfig
	CacheEnabled    bool `env:"CACHE_ENABLED" envDefault:"true"`
	CacheTTLSeconds int  `env:"CACHE_TTL_SECONDS" envDefault:"3600"`

	// Kafka
	KafkaEnabled    bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	AggregationMode string   `env:"AGGREGATION_MODE" envDefault:"inline"`

	// External search
	SearXNGURL                   string  `env:"SEARXNG_URL"`
	ExternalSearchTimeoutSeconds int     `env:"EXTERNAL_SEARCH_TIMEOUT_SECONDS" envDefault:"10"`
	ExternalSearchRateLimit      float64 `env:"EXTERNAL_SEARCH_RATE_LIMIT" envDefault:"5"`

	// Ranking
	TagBonusMode string `env:"TAG_BONUS_MODE" envDefault:"query"`

	// OpenTelemetry
	Tracing tracing.Config

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	return cfg, nil
}

// Validate runs after the environment has been parsed.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StoreBackend {
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required")
		}
	case BackendPostgres:
		if c.Postgres.Host == "" {
			return errors.New("POSTGRES_HOST is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of mongo, postgres, memory, got %q", c.StoreBackend)
	}
	if c.CacheTTLSeconds < 1 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive, got %d", c.CacheTTLSeconds)
	}
	switch service.AggregationMode(c.AggregationMode) {
	case service.AggregationInline:
	case service.AggregationEvents:
		if !c.KafkaEnabled {
			return errors.New("AGGREGATION_MODE=events requires KAFKA_ENABLED")
		}
	default:
		return fmt.Errorf("AGGREGATION_MODE must be inline or events, got %q", c.AggregationMode)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED")
	}
	if _, ok := heuristic.ParseTagBonus(c.TagBonusMode); !ok {
		return fmt.Errorf("TAG_BONUS_MODE must be query or legacy, got %q", c.TagBonusMode)
	}
	if c.ExternalSearchTimeoutSeconds < 1 {
		return fmt.Errorf("EXTERNAL_SEARCH_TIMEOUT_SECONDS must be positive, got %d", c.ExternalSearchTimeoutSeconds)
	}
	if c.ExternalSearchRateLimit < 0 {
		return fmt.Errorf("EXTERNAL_SEARCH_RATE_LIMIT must not be negative, got %g", c.ExternalSearchRateLimit)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate)
	}
	return nil
}

// CacheTTL is the lifetime of cached listings.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ExternalSearchTimeout bounds one call to the web search provider.
func (c *Config) ExternalSearchTimeout() time.Duration {
	return time.Duration(c.ExternalSearchTimeoutSeconds) * time.Second
}

// RequestTimeout bounds one HTTP request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SlowQueryThreshold is the store latency above which queries are logged.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}

// TagBonus is the parsed TAG_BONUS_MODE.
func (c *Config) TagBonus() heuristic.TagBonus {
	mode, _ := heuristic.ParseTagBonus(c.TagBonusMode)
	return mode
}
