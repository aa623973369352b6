package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/search"
	"github.com/godfreymatagaro/eduability/pkg/database"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
)

const technologyColumns = `id, public_id, name, category, description, key_features, system_requirements, cost,
		ease_of_use, features_rating, value_for_money, customer_support, feature_comparison,
		rating, reviews_count, created_at`

// TechnologyRepository implements technology persistence using PostgreSQL.
type TechnologyRepository struct {
	pool database.DBTX
}

// NewTechnologyRepository creates a new PostgreSQL-backed technology repository.
func NewTechnologyRepository(pool database.DBTX) *TechnologyRepository {
	return &TechnologyRepository{pool: pool}
}

// Create inserts a new technology.
func (r *TechnologyRepository) Create(ctx context.Context, t *domain.Technology) (err error) {
	query := `
		INSERT INTO technologies (` + technologyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "CreateTechnology", "INSERT INTO technologies")
	defer func() { end(err) }()

	features, err := json.Marshal(t.FeatureComparison)
	if err != nil {
		return fmt.Errorf("marshal feature comparison: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		t.ID,
		t.PublicID,
		t.Name,
		string(t.Category),
		t.Description,
		t.KeyFeatures,
		t.SystemRequirements,
		string(t.Cost),
		t.CoreVitals.EaseOfUse,
		t.CoreVitals.FeaturesRating,
		t.CoreVitals.ValueForMoney,
		t.CoreVitals.CustomerSupport,
		features,
		t.Rating,
		t.ReviewsCount,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert technology: %w", err)
	}
	return nil
}

// GetByID retrieves a technology by its internal id.
func (r *TechnologyRepository) GetByID(ctx context.Context, id string) (t *domain.Technology, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "GetTechnology", "SELECT technologies BY id")
	defer func() { end(err) }()

	t, err = r.scanOne(ctx, `SELECT `+technologyColumns+` FROM technologies WHERE id = $1`, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("technology", id)
	}
	return t, err
}

// GetByPublicID retrieves a technology by its public id.
func (r *TechnologyRepository) GetByPublicID(ctx context.Context, publicID string) (t *domain.Technology, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "GetTechnologyByPublicID", "SELECT technologies BY public_id")
	defer func() { end(err) }()

	t, err = r.scanOne(ctx, `SELECT `+technologyColumns+` FROM technologies WHERE public_id = $1`, publicID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("technology", publicID)
	}
	return t, err
}

// List returns technologies of category, or all when category is empty,
// ordered by rating.
func (r *TechnologyRepository) List(ctx context.Context, category domain.Category) (out []domain.Technology, err error) {
	query := `
		SELECT ` + technologyColumns + `
		FROM technologies
		WHERE ($1 = '' OR category = $1)
		ORDER BY rating DESC, id ASC`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "ListTechnologies", "SELECT technologies BY category")
	defer func() { end(err) }()

	return r.scanMany(ctx, query, string(category))
}

// ListByIDs returns the technologies with the given ids.
func (r *TechnologyRepository) ListByIDs(ctx context.Context, ids []string) (out []domain.Technology, err error) {
	if len(ids) == 0 {
		return []domain.Technology{}, nil
	}

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "ListTechnologiesByIDs", "SELECT technologies BY id = ANY")
	defer func() { end(err) }()

	return r.scanMany(ctx, `SELECT `+technologyColumns+` FROM technologies WHERE id = ANY($1) ORDER BY id ASC`, ids)
}

// Search evaluates plan in a single statement; the review tag match is an
// EXISTS over the unnested tags.
func (r *TechnologyRepository) Search(ctx context.Context, plan search.Plan) (out []domain.Technology, err error) {
	query := `
		SELECT ` + technologyColumns + `
		FROM technologies t
		WHERE ($1 = ''
		       OR t.name ILIKE $2 OR t.description ILIKE $2 OR t.key_features ILIKE $2 OR t.category ILIKE $2
		       OR EXISTS (
		           SELECT 1 FROM reviews rv, unnest(rv.tags) AS tag
		           WHERE rv.technology_id = t.id AND tag ILIKE $2))
		  AND ($3 = false OR t.rating >= $4)
		  AND ($5 = '' OR t.cost = $5)
		  AND ($6 = '' OR t.category = $6)
		ORDER BY ` + orderBy(plan.Sort) + `
		LIMIT $7`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "SearchTechnologies", "SELECT technologies WHERE text OR tag")
	defer func() { end(err) }()

	var minRating float64
	hasMinRating := plan.Restriction.MinRating != nil
	if hasMinRating {
		minRating = *plan.Restriction.MinRating
	}
	limit := plan.Limit
	if limit <= 0 {
		limit = search.Limit
	}

	return r.scanMany(ctx, query,
		plan.Query,
		containsPattern(plan.Query),
		hasMinRating,
		minRating,
		string(plan.Restriction.Cost),
		string(plan.Restriction.Category),
		limit,
	)
}

// orderBy maps a sort field to a fixed ORDER BY clause.
func orderBy(field search.SortField) string {
	switch field {
	case search.SortReviewsCount:
		return "t.reviews_count DESC, t.id ASC"
	case search.SortCreatedAt:
		return "t.created_at DESC, t.id ASC"
	default:
		return "t.rating DESC, t.id ASC"
	}
}

// RecomputeAggregates folds the technology's reviews into rating and
// reviews_count. The row lock serializes concurrent recomputes, and under
// READ COMMITTED the UPDATE runs on a snapshot taken after the lock was
// granted, so it counts every review committed before then.
func (r *TechnologyRepository) RecomputeAggregates(ctx context.Context, id string) (agg domain.Aggregates, err error) {
	lock := `SELECT id FROM technologies WHERE id = $1 FOR UPDATE`
	update := `
		UPDATE technologies SET
			rating = COALESCE((SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews WHERE technology_id = $1), 0)::float8,
			reviews_count = (SELECT COUNT(*) FROM reviews WHERE technology_id = $1)
		WHERE id = $1
		RETURNING rating, reviews_count`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "RecomputeTechnologyAggregates", "SELECT FOR UPDATE, UPDATE technologies SET rating, reviews_count")
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, lock, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("technology", id)
			}
			return fmt.Errorf("lock technology: %w", err)
		}
		if err := tx.QueryRow(ctx, update, id).Scan(&agg.Rating, &agg.ReviewsCount); err != nil {
			return fmt.Errorf("update technology aggregates: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Aggregates{}, err
	}
	return agg, nil
}

// DeleteCascade removes the technology and its reviews in one transaction.
func (r *TechnologyRepository) DeleteCascade(ctx context.Context, id string) (removed int, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "DeleteTechnologyCascade", "DELETE reviews, technologies")
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `DELETE FROM reviews WHERE technology_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete reviews: %w", err)
		}
		removed = int(ct.RowsAffected())

		ct, err = tx.Exec(ctx, `DELETE FROM technologies WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete technology: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("technology", id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *TechnologyRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.Technology, error) {
	t, err := scanTechnology(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan technology: %w", err)
	}
	return t, nil
}

func (r *TechnologyRepository) scanMany(ctx context.Context, query string, args ...any) ([]domain.Technology, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query technologies: %w", err)
	}
	defer rows.Close()

	out := []domain.Technology{}
	for rows.Next() {
		t, err := scanTechnology(rows)
		if err != nil {
			return nil, fmt.Errorf("scan technology row: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate technology rows: %w", err)
	}
	return out, nil
}

func scanTechnology(row pgx.Row) (*domain.Technology, error) {
	var (
		t        domain.Technology
		category string
		cost     string
		features []byte
	)
	err := row.Scan(
		&t.ID,
		&t.PublicID,
		&t.Name,
		&category,
		&t.Description,
		&t.KeyFeatures,
		&t.SystemRequirements,
		&cost,
		&t.CoreVitals.EaseOfUse,
		&t.CoreVitals.FeaturesRating,
		&t.CoreVitals.ValueForMoney,
		&t.CoreVitals.CustomerSupport,
		&features,
		&t.Rating,
		&t.ReviewsCount,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Category = domain.Category(category)
	t.Cost = domain.Cost(cost)
	if len(features) > 0 {
		if err := json.Unmarshal(features, &t.FeatureComparison); err != nil {
			return nil, fmt.Errorf("unmarshal feature comparison: %w", err)
		}
	}
	return &t, nil
}
