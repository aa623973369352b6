package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/godfreymatagaro/eduability/internal/config"
	"github.com/godfreymatagaro/eduability/internal/event"
	handler "github.com/godfreymatagaro/eduability/internal/handler/http"
	"github.com/godfreymatagaro/eduability/internal/repository"
	"github.com/godfreymatagaro/eduability/internal/service"
	"github.com/godfreymatagaro/eduability/pkg/database"
	"github.com/godfreymatagaro/eduability/pkg/health"
	pkgkafka "github.com/godfreymatagaro/eduability/pkg/kafka"
	"github.com/godfreymatagaro/eduability/pkg/middleware"
	"github.com/godfreymatagaro/eduability/pkg/tracing"
)

const serviceName = "catalog-service"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          repository.Store
	redis          *redis.Client
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracingCfg := cfg.Tracing
	tracingCfg.ServiceName = serviceName
	tracingCfg.Environment = cfg.Environment
	tracerShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	listingCache, redisClient := OpenCache(ctx, cfg, logger)

	a := &App{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		redis:          redisClient,
		tracerShutdown: tracerShutdown,
	}

	var publisher event.Publisher = event.NopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = a.producer
	}

	// Build the dependency graph.
	producer := event.NewProducer(publisher, logger)
	mode := service.AggregationMode(cfg.AggregationMode)

	technologies := service.NewTechnologyService(store, listingCache, producer, logger, cfg.TagBonus())
	reviews := service.NewReviewService(store, listingCache, producer, technologies, mode, logger)
	searches := service.NewSearchService(store, openExternalSearch(cfg, logger), logger)

	// Review events drive the aggregates when they are not refreshed inline.
	if mode == service.AggregationEvents {
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  event.ConsumerGroup,
			Topics:   event.ReviewTopics(),
			MinBytes: 1,
			MaxBytes: 10e6,
		}, event.NewConsumer(technologies, logger).Handler(idempotencyStore(redisClient)), logger).WithDLQ(a.dlq)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("store", store.Ping)
	if cfg.CacheEnabled {
		healthHandler.RegisterOptional("cache", listingCache.Ping)
	}
	if a.producer != nil {
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
	}

	// HTTP router.
	router := handler.NewRouter(handler.Services{
		Technologies: technologies,
		Reviews:      reviews,
		Search:       searches,
	}, healthHandler, handler.RouterConfig{
		CORSOrigins:    middleware.ParseOrigins(cfg.CORSAllowedOrigins),
		RequestTimeout: cfg.RequestTimeout(),
		ListingMaxAge:  cfg.ListingMaxAgeSeconds,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and the aggregation consumer, then blocks until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.httpServer.Addr, err)
	}
	return a.serve(ctx, listener)
}

func (a *App) serve(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", listener.Addr().String()))
		if err := a.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("review event consumer: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer and DLQ producer
// 4. Kafka producer
// 5. Redis and the store
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("review event consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	storeCtx, storeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer storeCancel()
	if err := a.store.Close(storeCtx); err != nil {
		a.logger.Error("store close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
