// Package memory is an in-process Store used for local development and
// service tests. It is safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/repository"
	"github.com/godfreymatagaro/eduability/internal/search"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
	"github.com/godfreymatagaro/eduability/pkg/pagination"
)

// Store keeps technologies and reviews in maps guarded by one RWMutex, so a
// cascade delete is atomic.
type Store struct {
	mu           sync.RWMutex
	technologies map[string]domain.Technology
	reviews      map[string]domain.Review
}

var _ repository.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		technologies: make(map[string]domain.Technology),
		reviews:      make(map[string]domain.Review),
	}
}

// Technologies returns the technology repository.
func (s *Store) Technologies() repository.TechnologyRepository { return &technologyRepo{s: s} }

// Reviews returns the review repository.
func (s *Store) Reviews() repository.ReviewRepository { return &reviewRepo{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

type technologyRepo struct {
	s *Store
}

func (r *technologyRepo) Create(_ context.Context, t *domain.Technology) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.technologies[t.ID]; ok {
		return fmt.Errorf("insert technology: id %s already exists", t.ID)
	}
	for _, existing := range r.s.technologies {
		if existing.PublicID == t.PublicID {
			return fmt.Errorf("insert technology: public id %s already exists", t.PublicID)
		}
	}
	r.s.technologies[t.ID] = *t
	return nil
}

func (r *technologyRepo) GetByID(_ context.Context, id string) (*domain.Technology, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.technologies[id]
	if !ok {
		return nil, apperrors.NotFound("technology", id)
	}
	return &t, nil
}

func (r *technologyRepo) GetByPublicID(_ context.Context, publicID string) (*domain.Technology, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.technologies {
		if t.PublicID == publicID {
			return &t, nil
		}
	}
	return nil, apperrors.NotFound("technology", publicID)
}

func (r *technologyRepo) List(_ context.Context, category domain.Category) ([]domain.Technology, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Technology, 0, len(r.s.technologies))
	for _, t := range r.s.technologies {
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	search.SortTechnologies(out, search.SortRating)
	return out, nil
}

func (r *technologyRepo) ListByIDs(_ context.Context, ids []string) ([]domain.Technology, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Technology, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if t, ok := r.s.technologies[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *technologyRepo) Search(_ context.Context, plan search.Plan) ([]domain.Technology, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tagged := r.s.taggedIDs(plan.Query)

	candidates := make([]domain.Technology, 0, len(r.s.technologies))
	for _, t := range r.s.technologies {
		candidates = append(candidates, t)
	}
	return plan.Apply(candidates, tagged), nil
}

// RecomputeAggregates reads the reviews and writes the aggregates under
// the write lock, so concurrent refreshes cannot interleave.
func (r *technologyRepo) RecomputeAggregates(_ context.Context, id string) (domain.Aggregates, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.technologies[id]
	if !ok {
		return domain.Aggregates{}, apperrors.NotFound("technology", id)
	}
	reviews := (&reviewRepo{s: r.s}).byTechnology(id)
	agg := domain.SummarizeReviews(reviews).Aggregates()
	t.Rating = agg.Rating
	t.ReviewsCount = agg.ReviewsCount
	r.s.technologies[id] = t
	return agg, nil
}

func (r *technologyRepo) DeleteCascade(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.technologies[id]; !ok {
		return 0, apperrors.NotFound("technology", id)
	}
	delete(r.s.technologies, id)

	removed := 0
	for rid, rv := range r.s.reviews {
		if rv.TechnologyID == id {
			delete(r.s.reviews, rid)
			removed++
		}
	}
	return removed, nil
}

type reviewRepo struct {
	s *Store
}

func cloneReview(rv domain.Review) domain.Review {
	rv.Tags = append([]string(nil), rv.Tags...)
	return rv
}

func (r *reviewRepo) Create(_ context.Context, rv *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[rv.ID]; ok {
		return fmt.Errorf("insert review: id %s already exists", rv.ID)
	}
	r.s.reviews[rv.ID] = cloneReview(*rv)
	return nil
}

func (r *reviewRepo) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	rv = cloneReview(rv)
	return &rv, nil
}

func (r *reviewRepo) Update(_ context.Context, rv *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.reviews[rv.ID]
	if !ok {
		return apperrors.NotFound("review", rv.ID)
	}
	existing.Rating = rv.Rating
	existing.Feedback = rv.Feedback
	existing.Tags = append([]string(nil), rv.Tags...)
	existing.UpdatedAt = rv.UpdatedAt
	r.s.reviews[rv.ID] = existing
	return nil
}

func (r *reviewRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[id]; !ok {
		return apperrors.NotFound("review", id)
	}
	delete(r.s.reviews, id)
	return nil
}

// sortNewestFirst orders by created_at descending, ties by id.
func sortNewestFirst(reviews []domain.Review) {
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
		}
		return reviews[i].ID < reviews[j].ID
	})
}

func (r *reviewRepo) byTechnology(technologyID string) []domain.Review {
	out := make([]domain.Review, 0)
	for _, rv := range r.s.reviews {
		if rv.TechnologyID == technologyID {
			out = append(out, cloneReview(rv))
		}
	}
	sortNewestFirst(out)
	return out
}

func (r *reviewRepo) ListByTechnology(_ context.Context, technologyID string) ([]domain.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.byTechnology(technologyID), nil
}

func (r *reviewRepo) ListAll(_ context.Context, page pagination.Params) ([]domain.Review, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]domain.Review, 0, len(r.s.reviews))
	for _, rv := range r.s.reviews {
		all = append(all, cloneReview(rv))
	}
	sortNewestFirst(all)

	total := len(all)
	start := min(page.Offset(), total)
	end := min(start+page.Limit(), total)
	return all[start:end], total, nil
}

func (r *reviewRepo) Summary(_ context.Context, technologyID string) (domain.ReviewSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return domain.SummarizeReviews(r.byTechnology(technologyID)), nil
}

func (r *reviewRepo) TechnologyIDsByTag(_ context.Context, query string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tagged := r.s.taggedIDs(strings.ToLower(strings.TrimSpace(query)))
	ids := make([]string, 0, len(tagged))
	for id := range tagged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// taggedIDs collects the technologies having a review tag containing q.
// Callers hold s.mu.
func (s *Store) taggedIDs(q string) map[string]struct{} {
	tagged := make(map[string]struct{})
	if q == "" {
		return tagged
	}
	for _, rv := range s.reviews {
		for _, tag := range rv.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				tagged[rv.TechnologyID] = struct{}{}
				break
			}
		}
	}
	return tagged
}
