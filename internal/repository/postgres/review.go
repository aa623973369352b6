package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/pkg/database"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
	"github.com/godfreymatagaro/eduability/pkg/pagination"
)

const reviewColumns = `id, technology_id, user_id, rating, feedback, tags, created_at, updated_at`

const maxSummaryTags = 5

// ReviewRepository implements review persistence operations using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "CreateReview", "INSERT INTO reviews")
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		review.ID,
		review.TechnologyID,
		review.UserID,
		review.Rating,
		review.Feedback,
		tagsOrEmpty(review.Tags),
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by id.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (rv *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "GetReview", "SELECT reviews BY id")
	defer func() { end(err) }()

	rv, err = scanReview(r.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return rv, nil
}

// Update persists the mutable fields of a review.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) (err error) {
	query := `
		UPDATE reviews
		SET rating = $1, feedback = $2, tags = $3, updated_at = $4
		WHERE id = $5`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "UpdateReview", "UPDATE reviews")
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query,
		review.Rating,
		review.Feedback,
		tagsOrEmpty(review.Tags),
		review.UpdatedAt,
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}
	return nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "DeleteReview", "DELETE FROM reviews")
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

// ListByTechnology returns the reviews of a technology, newest first.
func (r *ReviewRepository) ListByTechnology(ctx context.Context, technologyID string) (out []domain.Review, err error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE technology_id = $1
		ORDER BY created_at DESC, id ASC`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "ListReviewsByTechnology", "SELECT reviews BY technology_id")
	defer func() { end(err) }()

	return r.scanMany(ctx, query, technologyID)
}

// ListAll returns one page of all reviews and the total count.
func (r *ReviewRepository) ListAll(ctx context.Context, page pagination.Params) (out []domain.Review, total int, err error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		ORDER BY created_at DESC, id ASC
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "ListAllReviews", "SELECT reviews LIMIT OFFSET")
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	out, err = r.scanMany(ctx, query, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Summary aggregates rating statistics and the most used tags.
func (r *ReviewRepository) Summary(ctx context.Context, technologyID string) (summary domain.ReviewSummary, err error) {
	statsQuery := `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*),
		       COUNT(*) FILTER (WHERE rating = 1),
		       COUNT(*) FILTER (WHERE rating = 2),
		       COUNT(*) FILTER (WHERE rating = 3),
		       COUNT(*) FILTER (WHERE rating = 4),
		       COUNT(*) FILTER (WHERE rating = 5)
		FROM reviews
		WHERE technology_id = $1`

	tagsQuery := `
		SELECT lower(tag) AS tag, COUNT(DISTINCT rv.id) AS uses
		FROM reviews rv, unnest(rv.tags) AS tag
		WHERE rv.technology_id = $1
		GROUP BY lower(tag)
		ORDER BY uses DESC, tag ASC
		LIMIT $2`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "SummarizeReviews", "SELECT AVG(rating), COUNT(*) FROM reviews")
	defer func() { end(err) }()

	var (
		avg                       float64
		count, r1, r2, r3, r4, r5 int
	)
	if err = r.pool.QueryRow(ctx, statsQuery, technologyID).Scan(&avg, &count, &r1, &r2, &r3, &r4, &r5); err != nil {
		return domain.ReviewSummary{}, fmt.Errorf("get review summary: %w", err)
	}

	summary = domain.ReviewSummary{
		AverageRating:   domain.RoundRating(avg),
		TotalCount:      count,
		RatingBreakdown: map[int]int{1: r1, 2: r2, 3: r3, 4: r4, 5: r5},
		TopTags:         []domain.TagCount{},
	}

	rows, err := r.pool.Query(ctx, tagsQuery, technologyID, maxSummaryTags)
	if err != nil {
		return domain.ReviewSummary{}, fmt.Errorf("query review tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tc domain.TagCount
		if err = rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return domain.ReviewSummary{}, fmt.Errorf("scan review tag: %w", err)
		}
		summary.TopTags = append(summary.TopTags, tc)
	}
	if err = rows.Err(); err != nil {
		return domain.ReviewSummary{}, fmt.Errorf("iterate review tags: %w", err)
	}
	return summary, nil
}

// TechnologyIDsByTag returns the technologies with a review tag containing query.
func (r *ReviewRepository) TechnologyIDsByTag(ctx context.Context, query string) (ids []string, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}

	stmt := `
		SELECT DISTINCT rv.technology_id
		FROM reviews rv, unnest(rv.tags) AS tag
		WHERE tag ILIKE $1
		ORDER BY rv.technology_id`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "TechnologyIDsByTag", "SELECT DISTINCT technology_id FROM reviews, unnest(tags)")
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, stmt, containsPattern(query))
	if err != nil {
		return nil, fmt.Errorf("query tagged technologies: %w", err)
	}
	defer rows.Close()

	ids = []string{}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan technology id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tagged technologies: %w", err)
	}
	return ids, nil
}

func (r *ReviewRepository) scanMany(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		out = append(out, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return out, nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(
		&rv.ID,
		&rv.TechnologyID,
		&rv.UserID,
		&rv.Rating,
		&rv.Feedback,
		&rv.Tags,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rv.Tags == nil {
		rv.Tags = []string{}
	}
	return &rv, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
