package mongo

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/search"
	"github.com/godfreymatagaro/eduability/pkg/database"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
)

// TechnologyRepository implements technology persistence on MongoDB.
type TechnologyRepository struct {
	client       *mongo.Client
	technologies *mongo.Collection
	reviews      *mongo.Collection
}

// Create inserts a new technology.
func (r *TechnologyRepository) Create(ctx context.Context, t *domain.Technology) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "CreateTechnology", "technologies.insertOne")
	defer func() { end(err) }()

	if _, err = r.technologies.InsertOne(ctx, toTechnologyDocument(t)); err != nil {
		return fmt.Errorf("insert technology: %w", err)
	}
	return nil
}

// GetByID retrieves a technology by its internal id.
func (r *TechnologyRepository) GetByID(ctx context.Context, id string) (t *domain.Technology, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "GetTechnology", "technologies.findOne _id")
	defer func() { end(err) }()

	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}}, id)
}

// GetByPublicID retrieves a technology by its public id.
func (r *TechnologyRepository) GetByPublicID(ctx context.Context, publicID string) (t *domain.Technology, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "GetTechnologyByPublicID", "technologies.findOne public_id")
	defer func() { end(err) }()

	return r.findOne(ctx, bson.D{{Key: "public_id", Value: publicID}}, publicID)
}

func (r *TechnologyRepository) findOne(ctx context.Context, filter bson.D, key string) (*domain.Technology, error) {
	var doc technologyDocument
	err := r.technologies.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("technology", key)
	}
	if err != nil {
		return nil, fmt.Errorf("find technology: %w", err)
	}
	t := doc.toDomain()
	return &t, nil
}

// List returns technologies of category, or all when category is empty.
func (r *TechnologyRepository) List(ctx context.Context, category domain.Category) (out []domain.Technology, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "ListTechnologies", "technologies.find category")
	defer func() { end(err) }()

	filter := bson.D{}
	if category != "" {
		filter = append(filter, bson.E{Key: "category", Value: string(category)})
	}
	return r.find(ctx, filter, options.Find().SetSort(sortFor(search.SortRating)))
}

// ListByIDs returns the technologies with the given ids.
func (r *TechnologyRepository) ListByIDs(ctx context.Context, ids []string) (out []domain.Technology, err error) {
	if len(ids) == 0 {
		return []domain.Technology{}, nil
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "ListTechnologiesByIDs", "technologies.find _id $in")
	defer func() { end(err) }()

	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// Search resolves the review tag match with a distinct query first, then
// runs a single find with the plan's restriction, sort and limit.
func (r *TechnologyRepository) Search(ctx context.Context, plan search.Plan) (out []domain.Technology, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "SearchTechnologies", "reviews.distinct + technologies.find")
	defer func() { end(err) }()

	var tagged []string
	if plan.Query != "" {
		tagged, err = distinctTaggedIDs(ctx, r.reviews, plan.Query)
		if err != nil {
			return nil, err
		}
	}

	limit := plan.Limit
	if limit <= 0 {
		limit = search.Limit
	}
	opts := options.Find().SetSort(sortFor(plan.Sort)).SetLimit(int64(limit))
	return r.find(ctx, searchFilter(plan, tagged), opts)
}

func (r *TechnologyRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]domain.Technology, error) {
	cursor, err := r.technologies.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find technologies: %w", err)
	}

	var docs []technologyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode technologies: %w", err)
	}

	out := make([]domain.Technology, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// RecomputeAggregates folds the technology's reviews into rating and
// reviews_count inside a session transaction. Two concurrent recomputes both
// write the technology document, so the one holding the older snapshot hits a
// write conflict and WithTransaction reruns it.
func (r *TechnologyRepository) RecomputeAggregates(ctx context.Context, id string) (agg domain.Aggregates, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "RecomputeTechnologyAggregates", "reviews.aggregate $group rating + technologies.updateOne $set")
	defer func() { end(err) }()

	session, err := r.client.StartSession()
	if err != nil {
		return domain.Aggregates{}, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		cursor, err := r.reviews.Aggregate(ctx, ratingPipeline(id))
		if err != nil {
			return nil, fmt.Errorf("aggregate reviews: %w", err)
		}
		var ratings []ratingBucket
		if err := cursor.All(ctx, &ratings); err != nil {
			return nil, fmt.Errorf("decode review aggregate: %w", err)
		}
		agg := buildSummary(ratings, nil).Aggregates()

		res, err := r.technologies.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: id}},
			bson.D{{Key: "$set", Value: bson.D{
				{Key: "rating", Value: agg.Rating},
				{Key: "reviews_count", Value: agg.ReviewsCount},
			}}},
		)
		if err != nil {
			return nil, fmt.Errorf("update technology aggregates: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, apperrors.NotFound("technology", id)
		}
		return agg, nil
	})
	if err != nil {
		return domain.Aggregates{}, err
	}
	return result.(domain.Aggregates), nil
}

// DeleteCascade removes the technology and its reviews in one session
// transaction.
func (r *TechnologyRepository) DeleteCascade(ctx context.Context, id string) (removed int, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "DeleteTechnologyCascade", "reviews.deleteMany + technologies.deleteOne")
	defer func() { end(err) }()

	session, err := r.client.StartSession()
	if err != nil {
		return 0, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		res, err := r.reviews.DeleteMany(ctx, bson.D{{Key: "technology_id", Value: id}})
		if err != nil {
			return 0, fmt.Errorf("delete reviews: %w", err)
		}

		techRes, err := r.technologies.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
		if err != nil {
			return 0, fmt.Errorf("delete technology: %w", err)
		}
		if techRes.DeletedCount == 0 {
			return 0, apperrors.NotFound("technology", id)
		}
		return int(res.DeletedCount), nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func distinctTaggedIDs(ctx context.Context, reviews *mongo.Collection, query string) ([]string, error) {
	res := reviews.Distinct(ctx, "technology_id", bson.D{{Key: "tags", Value: containsRegex(query)}})
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("distinct tagged technologies: %w", err)
	}

	ids := []string{}
	if err := res.Decode(&ids); err != nil {
		return nil, fmt.Errorf("decode tagged technologies: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}
