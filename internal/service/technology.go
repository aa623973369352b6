package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/godfreymatagaro/eduability/internal/cache"
	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/event"
	"github.com/godfreymatagaro/eduability/internal/heuristic"
	"github.com/godfreymatagaro/eduability/internal/repository"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
	"github.com/godfreymatagaro/eduability/pkg/slug"
)

// MaxCompare caps how many technologies one comparison may include.
const MaxCompare = 10

// CreateTechnologyInput carries the fields an admin supplies for a new listing.
type CreateTechnologyInput struct {
	Name               string
	Category           string
	Description        string
	KeyFeatures        string
	SystemRequirements string
	Cost               string
	CoreVitals         domain.CoreVitals
	FeatureComparison  domain.FeatureComparison
}

// Listing is a technology listing as stored in the cache: the JSON array
// is returned verbatim on a hit.
type Listing struct {
	Payload  json.RawMessage
	CacheHit bool
}

// Comparison is one technology ranked by its fit score.
type Comparison struct {
	Technology domain.Technology `json:"technology"`
	FitScore   float64           `json:"fit_score"`
}

// TechnologyService implements the business logic for the technology catalog.
type TechnologyService struct {
	technologies repository.TechnologyRepository
	reviews      repository.ReviewRepository
	cache        cache.Cache
	producer     *event.Producer
	logger       *slog.Logger
	tagBonus     heuristic.TagBonus
}

// NewTechnologyService creates a new technology service.
func NewTechnologyService(
	store repository.Store,
	c cache.Cache,
	producer *event.Producer,
	logger *slog.Logger,
	tagBonus heuristic.TagBonus,
) *TechnologyService {
	return &TechnologyService{
		technologies: store.Technologies(),
		reviews:      store.Reviews(),
		cache:        c,
		producer:     producer,
		logger:       logger,
		tagBonus:     tagBonus,
	}
}

// CreateTechnology validates and stores a new listing, then invalidates the
// listings it appears in.
func (s *TechnologyService) CreateTechnology(ctx context.Context, in CreateTechnologyInput) (*domain.Technology, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if !domain.IsValidCategory(in.Category) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid category %q", in.Category))
	}
	if !domain.IsValidCost(in.Cost) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid cost %q", in.Cost))
	}
	if !in.CoreVitals.Valid() {
		return nil, apperrors.InvalidInput("core vitals must be between 0 and 5")
	}

	id := uuid.NewString()
	tech := &domain.Technology{
		ID:                 id,
		PublicID:           slug.WithSuffix(name, uuid.NewString()[:8]),
		Name:               name,
		Category:           domain.Category(in.Category),
		Description:        strings.TrimSpace(in.Description),
		KeyFeatures:        strings.TrimSpace(in.KeyFeatures),
		SystemRequirements: strings.TrimSpace(in.SystemRequirements),
		Cost:               domain.Cost(in.Cost),
		CoreVitals:         in.CoreVitals,
		FeatureComparison:  in.FeatureComparison,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.technologies.Create(ctx, tech); err != nil {
		return nil, fmt.Errorf("create technology: %w", err)
	}

	invalidate(ctx, s.cache, s.logger, cache.TechnologiesKey(string(tech.Category)), cache.TechnologiesKey(""))

	if err := s.producer.PublishTechnologyCreated(ctx, tech); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish technology.created event",
			slog.String("technology_id", tech.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "technology created",
		slog.String("technology_id", tech.ID),
		slog.String("public_id", tech.PublicID),
		slog.String("category", string(tech.Category)),
	)
	return tech, nil
}

// GetTechnology looks a technology up by internal id, then by public id.
func (s *TechnologyService) GetTechnology(ctx context.Context, idOrPublicID string) (*domain.Technology, error) {
	tech, err := s.technologies.GetByID(ctx, idOrPublicID)
	if apperrors.Is(err, apperrors.KindNotFound) {
		tech, err = s.technologies.GetByPublicID(ctx, idOrPublicID)
	}
	if err != nil {
		return nil, fmt.Errorf("get technology: %w", err)
	}
	return tech, nil
}

// ListTechnologies returns the listing of category (all when empty) ordered
// by rating, read through the cache.
func (s *TechnologyService) ListTechnologies(ctx context.Context, category string) (*Listing, error) {
	if category != "" && !domain.IsValidCategory(category) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid category %q", category))
	}
	key := cache.TechnologiesKey(category)

	payload, err := s.cache.Get(ctx, key)
	if err == nil {
		return &Listing{Payload: payload, CacheHit: true}, nil
	}
	logCacheFailure(ctx, s.logger, "read", key, err)
	stamp, fillable := stampForFill(ctx, s.cache, s.logger, key)

	techs, err := s.technologies.List(ctx, domain.Category(category))
	if err != nil {
		return nil, fmt.Errorf("list technologies: %w", err)
	}

	payload, err = json.Marshal(techs)
	if err != nil {
		return nil, fmt.Errorf("encode technologies: %w", err)
	}
	if fillable {
		stored, err := s.cache.Fill(ctx, key, payload, stamp)
		logFill(ctx, s.logger, key, stored, err)
	}
	return &Listing{Payload: payload}, nil
}

// DeleteTechnology removes a technology together with its reviews and
// returns how many reviews went with it.
func (s *TechnologyService) DeleteTechnology(ctx context.Context, id string) (int, error) {
	tech, err := s.technologies.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("get technology: %w", err)
	}

	removed, err := s.technologies.DeleteCascade(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete technology: %w", err)
	}

	invalidate(ctx, s.cache, s.logger,
		cache.TechnologiesKey(string(tech.Category)),
		cache.TechnologiesKey(""),
		cache.ReviewsKey(id),
		cache.SummaryKey(id),
	)

	if err := s.producer.PublishTechnologyDeleted(ctx, tech, removed); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish technology.deleted event",
			slog.String("technology_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "technology deleted",
		slog.String("technology_id", id),
		slog.Int("reviews_removed", removed),
	)
	return removed, nil
}

// GetSummary returns a technology with its review statistics, read through
// the cache.
func (s *TechnologyService) GetSummary(ctx context.Context, id string) (*domain.TechnologySummary, error) {
	key := cache.SummaryKey(id)

	var summary domain.TechnologySummary
	err := cache.GetJSON(ctx, s.cache, key, &summary)
	if err == nil {
		return &summary, nil
	}
	logCacheFailure(ctx, s.logger, "read", key, err)
	stamp, fillable := stampForFill(ctx, s.cache, s.logger, key)

	tech, err := s.technologies.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get technology: %w", err)
	}
	reviews, err := s.reviews.Summary(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("summarize reviews: %w", err)
	}

	summary = domain.TechnologySummary{Technology: *tech, Reviews: reviews}
	if fillable {
		stored, err := cache.FillJSON(ctx, s.cache, key, summary, stamp)
		logFill(ctx, s.logger, key, stored, err)
	}
	return &summary, nil
}

// RefreshAggregates recomputes rating and reviews_count from the reviews.
func (s *TechnologyService) RefreshAggregates(ctx context.Context, id string) error {
	tech, err := s.technologies.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get technology: %w", err)
	}

	agg, err := s.technologies.RecomputeAggregates(ctx, id)
	if err != nil {
		return fmt.Errorf("recompute aggregates: %w", err)
	}

	invalidate(ctx, s.cache, s.logger,
		cache.TechnologiesKey(string(tech.Category)),
		cache.TechnologiesKey(""),
		cache.SummaryKey(id),
	)

	s.logger.DebugContext(ctx, "aggregates refreshed",
		slog.String("technology_id", id),
		slog.Float64("rating", agg.Rating),
		slog.Int("reviews_count", agg.ReviewsCount),
	)
	return nil
}

// QuickSearch ranks the full listing against query with the relevance
// heuristic.
func (s *TechnologyService) QuickSearch(ctx context.Context, query string) ([]heuristic.Scored, error) {
	listing, err := s.ListTechnologies(ctx, "")
	if err != nil {
		return nil, err
	}

	var techs []domain.Technology
	if err := json.Unmarshal(listing.Payload, &techs); err != nil {
		return nil, fmt.Errorf("decode technology listing: %w", err)
	}

	opts := heuristic.DefaultOptions()
	opts.TagBonus = s.tagBonus
	return heuristic.Rank(query, techs, opts), nil
}

// Compare ranks the given technologies by how well they fit prefs, best
// first.
func (s *TechnologyService) Compare(ctx context.Context, ids []string, prefs heuristic.Preferences) ([]Comparison, error) {
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" && !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}
	switch {
	case len(unique) == 0:
		return nil, apperrors.InvalidInput("at least one technology id is required")
	case len(unique) > MaxCompare:
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d technologies can be compared", MaxCompare))
	case prefs.Category != "" && !domain.IsValidCategory(string(prefs.Category)):
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid category %q", prefs.Category))
	case prefs.Budget < 0:
		return nil, apperrors.InvalidInput("budget must not be negative")
	}

	techs, err := s.technologies.ListByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("load technologies: %w", err)
	}
	if len(techs) != len(unique) {
		for _, id := range unique {
			if !slices.ContainsFunc(techs, func(t domain.Technology) bool { return t.ID == id }) {
				return nil, apperrors.NotFound("technology", id)
			}
		}
	}

	out := make([]Comparison, 0, len(techs))
	for i := range techs {
		out = append(out, Comparison{
			Technology: techs[i],
			FitScore:   heuristic.FitScore(heuristic.FitInputFor(&techs[i]), prefs),
		})
	}
	slices.SortStableFunc(out, func(a, b Comparison) int {
		if c := cmp.Compare(b.FitScore, a.FitScore); c != 0 {
			return c
		}
		return cmp.Compare(a.Technology.ID, b.Technology.ID)
	})
	return out, nil
}
