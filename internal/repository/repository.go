package repository

import (
	"context"

	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/search"
	"github.com/godfreymatagaro/eduability/pkg/pagination"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// TechnologyRepository defines the persistence operations for technologies.
// Lookups of missing records return an apperrors.NotFound error.
type TechnologyRepository interface {
	// Create inserts a new technology.
	Create(ctx context.Context, t *domain.Technology) error

	// GetByID retrieves a technology by its internal id.
	GetByID(ctx context.Context, id string) (*domain.Technology, error)

	// GetByPublicID retrieves a technology by its public id.
	GetByPublicID(ctx context.Context, publicID string) (*domain.Technology, error)

	// List returns every technology of category (all when empty) ordered by
	// rating descending, ties by id.
	List(ctx context.Context, category domain.Category) ([]domain.Technology, error)

	// ListByIDs returns the technologies whose ids are given, in no
	// particular order. Unknown ids are skipped.
	ListByIDs(ctx context.Context, ids []string) ([]domain.Technology, error)

	// Search evaluates a search plan, including the review tag match.
	Search(ctx context.Context, plan search.Plan) ([]domain.Technology, error)

	// RecomputeAggregates recomputes the denormalized rating and reviews
	// count from the technology's current reviews and stores them. The read
	// and the write are one atomic step: of two concurrent calls, the one
	// that stores last has seen every review committed before it started.
	RecomputeAggregates(ctx context.Context, id string) (domain.Aggregates, error)

	// DeleteCascade removes a technology and all of its reviews atomically and
	// returns the number of reviews removed.
	DeleteCascade(ctx context.Context, id string) (int, error)
}

// ReviewRepository defines the persistence operations for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	// Update persists rating, feedback, tags and updated_at.
	Update(ctx context.Context, r *domain.Review) error
	Delete(ctx context.Context, id string) error

	// ListByTechnology returns a technology's reviews, newest first.
	ListByTechnology(ctx context.Context, technologyID string) ([]domain.Review, error)

	// ListAll returns one page of all reviews, newest first, and the total count.
	ListAll(ctx context.Context, page pagination.Params) ([]domain.Review, int, error)

	// Summary aggregates a technology's reviews.
	Summary(ctx context.Context, technologyID string) (domain.ReviewSummary, error)

	// TechnologyIDsByTag returns the distinct technology ids having a review
	// with a tag containing query (case-insensitive).
	TechnologyIDsByTag(ctx context.Context, query string) ([]string, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	Technologies() TechnologyRepository
	Reviews() ReviewRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
