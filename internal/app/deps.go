package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/godfreymatagaro/eduability/internal/cache"
	"github.com/godfreymatagaro/eduability/internal/config"
	"github.com/godfreymatagaro/eduability/internal/external/searxng"
	"github.com/godfreymatagaro/eduability/internal/repository"
	"github.com/godfreymatagaro/eduability/internal/repository/memory"
	"github.com/godfreymatagaro/eduability/internal/repository/mongo"
	"github.com/godfreymatagaro/eduability/internal/repository/postgres"
	"github.com/godfreymatagaro/eduability/internal/service"
	"github.com/godfreymatagaro/eduability/pkg/database"
	"github.com/godfreymatagaro/eduability/pkg/httpclient"
	pkgkafka "github.com/godfreymatagaro/eduability/pkg/kafka"
)

// OpenStore connects the configured store backend and prepares its schema:
// indexes for MongoDB, migrations for PostgreSQL.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, db, err := database.NewMongoClient(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		store := mongo.NewStore(client, db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		logger.Info("connected to MongoDB", slog.String("database", cfg.Mongo.Database))
		return store, nil

	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.Postgres.Host),
			slog.Int("port", cfg.Postgres.Port),
			slog.String("database", cfg.Postgres.DBName),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		store := postgres.NewStore(pool)
		if err := store.Migrate(ctx, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
		return store, nil

	case config.BackendMemory:
		logger.Warn("using the in-memory store; data is lost on restart")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// OpenCache returns the listing cache and the Redis client behind it, if
// any. A Redis that cannot be reached at startup is kept: the cache is
// best-effort and recovers on its own.
func OpenCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, *redis.Client) {
	if !cfg.CacheEnabled {
		logger.Info("listing cache disabled")
		return cache.Nop{}, nil
	}

	client, err := database.NewRedisClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unreachable, continuing with degraded cache",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr))
	}
	return cache.NewRedis(client, cfg.CacheTTL()), client
}

// openExternalSearch builds the SearXNG client behind a retrying HTTP
// client and a circuit breaker. It returns nil when no instance is
// configured.
func openExternalSearch(cfg *config.Config, logger *slog.Logger) service.ExternalSearcher {
	if cfg.SearXNGURL == "" {
		logger.Info("external search disabled: SEARXNG_URL not set")
		return nil
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.ExternalSearchTimeout()
	httpCfg.MaxRetries = 1
	httpCfg.RateLimit = cfg.ExternalSearchRateLimit

	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("searxng"),
		logger,
	)
	return searxng.New(cfg.SearXNGURL, breaker, logger)
}

// idempotencyStore keeps processed event ids in Redis when it is available
// so restarts and replicas share them.
func idempotencyStore(client *redis.Client) pkgkafka.IdempotencyStore {
	const ttl = 24 * time.Hour
	if client == nil {
		return pkgkafka.NewMemoryIdempotencyStore(ttl)
	}
	return pkgkafka.NewRedisIdempotencyStore(client, "catalog:processed", ttl)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with +/-25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
