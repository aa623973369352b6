package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/godfreymatagaro/eduability/internal/service"
	"github.com/godfreymatagaro/eduability/pkg/health"
	"github.com/godfreymatagaro/eduability/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "catalog"

// RouterConfig holds the HTTP-level settings of the router.
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	// ListingMaxAge is the Cache-Control max-age of public catalog reads.
	ListingMaxAge int
	PprofCIDRs    []string
}

// Services groups the services the handlers call into.
type Services struct {
	Technologies *service.TechnologyService
	Reviews      *service.ReviewService
	Search       *service.SearchService
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.TrustedIdentity())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	technologyHandler := NewTechnologyHandler(svc.Technologies, logger)
	reviewHandler := NewReviewHandler(svc.Reviews, logger)
	searchHandler := NewSearchHandler(svc.Search, logger)

	r.Route("/api/v1/technologies", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.ListingMaxAge))
			r.Get("/", technologyHandler.ListTechnologies)
			r.Get("/quick-search", technologyHandler.QuickSearch)
			r.Get("/{id}", technologyHandler.GetTechnology)
		})
		// Review lists and summaries change with every review write.
		r.With(middleware.NoStore).Get("/{id}/summary", technologyHandler.GetSummary)
		r.With(middleware.NoStore).Get("/{id}/reviews", reviewHandler.ListReviews)
		r.Post("/compare", technologyHandler.Compare)

		r.With(middleware.NoStore, middleware.RequireUser()).Post("/{id}/reviews", reviewHandler.CreateReview)
	})

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.RequireUser())

		r.Put("/{reviewId}", reviewHandler.UpdateReview)
		r.Delete("/{reviewId}", reviewHandler.DeleteReview)
	})

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)
		r.Get("/external", searchHandler.SearchExternal)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.RequireRole(middleware.RoleAdmin))

		r.Post("/technologies", technologyHandler.CreateTechnology)
		r.Delete("/technologies/{id}", technologyHandler.DeleteTechnology)
		r.Get("/reviews", reviewHandler.ListAllReviews)
		r.Delete("/reviews/{reviewId}", reviewHandler.AdminDeleteReview)
	})

	return r
}
