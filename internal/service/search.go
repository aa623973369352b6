package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/heuristic"
	"github.com/godfreymatagaro/eduability/internal/repository"
	"github.com/godfreymatagaro/eduability/internal/search"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
)

// ExternalSearcher fetches web results; *searxng.Client satisfies it.
type ExternalSearcher interface {
	Search(ctx context.Context, query string) ([]heuristic.ExternalResult, error)
}

// SearchService answers catalog and web searches.
type SearchService struct {
	technologies repository.TechnologyRepository
	external     ExternalSearcher
	logger       *slog.Logger
}

// NewSearchService creates a search service. external may be nil when no
// provider is configured.
func NewSearchService(store repository.Store, external ExternalSearcher, logger *slog.Logger) *SearchService {
	return &SearchService{
		technologies: store.Technologies(),
		external:     external,
		logger:       logger,
	}
}

// Search runs the catalog query with the single filter chosen by
// precedence. Invalid filter values are InvalidInput errors.
func (s *SearchService) Search(ctx context.Context, query string, filter search.Filter) ([]domain.Technology, error) {
	plan, err := search.BuildPlan(query, filter)
	if err != nil {
		return nil, err
	}

	results, err := s.technologies.Search(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("search technologies: %w", err)
	}

	s.logger.DebugContext(ctx, "catalog search",
		slog.String("query", plan.Query),
		slog.String("rule", plan.Rule),
		slog.Int("results", len(results)),
	)
	return results, nil
}

// SearchExternal queries the web search provider and ranks the results by
// assistive-technology relevance.
func (s *SearchService) SearchExternal(ctx context.Context, query string) ([]heuristic.ScoredExternal, error) {
	if strings.TrimSpace(query) == "" {
		return []heuristic.ScoredExternal{}, nil
	}
	if s.external == nil {
		return nil, apperrors.DependencyUnavailable("external search", errors.New("no provider configured"))
	}

	results, err := s.external.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("external search: %w", err)
	}
	return heuristic.RankExternal(query, results), nil
}
