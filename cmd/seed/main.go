// Command seed fills the configured store with a small assistive-technology
// catalog and a few reviews per listing. It goes through the services, so
// public ids, aggregates and cache invalidation behave as in production.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/godfreymatagaro/eduability/internal/app"
	"github.com/godfreymatagaro/eduability/internal/config"
	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/event"
	"github.com/godfreymatagaro/eduability/internal/repository"
	"github.com/godfreymatagaro/eduability/internal/service"
	pkgconfig "github.com/godfreymatagaro/eduability/pkg/config"
	"github.com/godfreymatagaro/eduability/pkg/logger"
)

// options are read from SEED_* variables.
type options struct {
	Force       bool `env:"FORCE" envDefault:"false"`
	WithReviews bool `env:"WITH_REVIEWS" envDefault:"true"`
}

type result struct {
	Technologies int
	Reviews      int
	Skipped      bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var opts options
	if err := pkgconfig.LoadWithPrefix(&opts, "SEED_"); err != nil {
		slog.Error("failed to load seed options", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("catalog-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = store.Close(context.Background()) }()

	listingCache, redisClient := app.OpenCache(ctx, cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	producer := event.NewProducer(event.NopPublisher{}, log)
	technologies := service.NewTechnologyService(store, listingCache, producer, log, cfg.TagBonus())
	reviews := service.NewReviewService(store, listingCache, producer, technologies, service.AggregationInline, log)

	res, err := seed(ctx, store, technologies, reviews, opts, log)
	if err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if res.Skipped {
		log.Info("catalog already populated, nothing to do (set SEED_FORCE=true to seed anyway)")
		return
	}
	log.Info("seeding complete",
		slog.Int("technologies", res.Technologies),
		slog.Int("reviews", res.Reviews),
	)
}

func seed(
	ctx context.Context,
	store repository.Store,
	technologies *service.TechnologyService,
	reviews *service.ReviewService,
	opts options,
	log *slog.Logger,
) (result, error) {
	if !opts.Force {
		existing, err := store.Technologies().List(ctx, domain.Category(""))
		if err != nil {
			return result{}, fmt.Errorf("check existing catalog: %w", err)
		}
		if len(existing) > 0 {
			return result{Skipped: true}, nil
		}
	}

	var res result
	for _, f := range fixtures() {
		tech, err := technologies.CreateTechnology(ctx, f.Technology)
		if err != nil {
			return res, fmt.Errorf("create %s: %w", f.Technology.Name, err)
		}
		res.Technologies++
		log.Debug("seeded technology", slog.String("name", tech.Name), slog.String("public_id", tech.PublicID))

		if !opts.WithReviews {
			continue
		}
		for _, r := range f.Reviews {
			_, err := reviews.CreateReview(ctx, tech.ID, r.UserID, service.ReviewInput{
				Rating:   r.Rating,
				Feedback: r.Feedback,
				Tags:     r.Tags,
			})
			if err != nil {
				return res, fmt.Errorf("review %s: %w", f.Technology.Name, err)
			}
			res.Reviews++
		}
	}
	return res, nil
}
