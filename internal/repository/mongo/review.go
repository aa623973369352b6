package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/pkg/database"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
	"github.com/godfreymatagaro/eduability/pkg/pagination"
)

const maxSummaryTags = 5

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}

// ReviewRepository implements review persistence on MongoDB.
type ReviewRepository struct {
	reviews *mongo.Collection
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "CreateReview", "reviews.insertOne")
	defer func() { end(err) }()

	if _, err = r.reviews.InsertOne(ctx, toReviewDocument(review)); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by id.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (rv *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "GetReview", "reviews.findOne _id")
	defer func() { end(err) }()

	var doc reviewDocument
	err = r.reviews.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("review", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	out := doc.toDomain()
	return &out, nil
}

// Update persists rating, feedback, tags and updated_at.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "UpdateReview", "reviews.updateOne $set")
	defer func() { end(err) }()

	doc := toReviewDocument(review)
	res, err := r.reviews.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: review.ID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "rating", Value: doc.Rating},
			{Key: "feedback", Value: doc.Feedback},
			{Key: "tags", Value: doc.Tags},
			{Key: "updated_at", Value: doc.UpdatedAt},
		}}},
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("review", review.ID)
	}
	return nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "DeleteReview", "reviews.deleteOne")
	defer func() { end(err) }()

	res, err := r.reviews.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

// ListByTechnology returns a technology's reviews, newest first.
func (r *ReviewRepository) ListByTechnology(ctx context.Context, technologyID string) (out []domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "ListReviewsByTechnology", "reviews.find technology_id")
	defer func() { end(err) }()

	return r.find(ctx, bson.D{{Key: "technology_id", Value: technologyID}}, options.Find().SetSort(newestFirst))
}

// ListAll returns one page of all reviews and the total count.
func (r *ReviewRepository) ListAll(ctx context.Context, page pagination.Params) (out []domain.Review, total int, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "ListAllReviews", "reviews.countDocuments + reviews.find skip limit")
	defer func() { end(err) }()

	count, err := r.reviews.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Limit()))
	out, err = r.find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return out, int(count), nil
}

func (r *ReviewRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]domain.Review, error) {
	cursor, err := r.reviews.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}

	var docs []reviewDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}

	out := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

type ratingBucket struct {
	Rating int `bson:"_id"`
	Count  int `bson:"count"`
}

type tagBucket struct {
	Tag   string `bson:"_id"`
	Count int    `bson:"count"`
}

// ratingPipeline groups a technology's reviews by rating.
func ratingPipeline(technologyID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "technology_id", Value: technologyID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$rating"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

// tagPipeline counts tag usage across a technology's reviews and keeps the
// most used ones.
func tagPipeline(technologyID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "technology_id", Value: technologyID}}}},
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$toLower", Value: "$tags"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: maxSummaryTags}},
	}
}

// Summary aggregates rating statistics and the most used tags.
func (r *ReviewRepository) Summary(ctx context.Context, technologyID string) (summary domain.ReviewSummary, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "SummarizeReviews", "reviews.aggregate $group rating, $unwind tags")
	defer func() { end(err) }()

	var ratings []ratingBucket
	if err = r.aggregate(ctx, ratingPipeline(technologyID), &ratings); err != nil {
		return domain.ReviewSummary{}, err
	}
	var tags []tagBucket
	if err = r.aggregate(ctx, tagPipeline(technologyID), &tags); err != nil {
		return domain.ReviewSummary{}, err
	}
	return buildSummary(ratings, tags), nil
}

func (r *ReviewRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := r.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate reviews: %w", err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode review aggregate: %w", err)
	}
	return nil
}

func buildSummary(ratings []ratingBucket, tags []tagBucket) domain.ReviewSummary {
	summary := domain.ReviewSummary{
		RatingBreakdown: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		TopTags:         make([]domain.TagCount, 0, len(tags)),
	}

	sum := 0
	for _, b := range ratings {
		summary.RatingBreakdown[b.Rating] += b.Count
		summary.TotalCount += b.Count
		sum += b.Rating * b.Count
	}
	if summary.TotalCount > 0 {
		summary.AverageRating = domain.RoundRating(float64(sum) / float64(summary.TotalCount))
	}

	for _, t := range tags {
		summary.TopTags = append(summary.TopTags, domain.TagCount{Tag: t.Tag, Count: t.Count})
	}
	return summary
}

// TechnologyIDsByTag returns the technologies with a review tag containing query.
func (r *ReviewRepository) TechnologyIDsByTag(ctx context.Context, query string) (ids []string, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "TechnologyIDsByTag", "reviews.distinct technology_id")
	defer func() { end(err) }()

	return distinctTaggedIDs(ctx, r.reviews, query)
}
