package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/godfreymatagaro/eduability/internal/cache"
	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/event"
	"github.com/godfreymatagaro/eduability/internal/repository"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
	"github.com/godfreymatagaro/eduability/pkg/pagination"
)

// ReviewInput is a new review.
type ReviewInput struct {
	Rating   int
	Feedback string
	Tags     []string
}

// ReviewPatch is a partial review update; nil fields stay unchanged.
type ReviewPatch struct {
	Rating   *int
	Feedback *string
	Tags     []string
	SetTags  bool
}

// Actor is the caller of a review operation.
type Actor struct {
	UserID string
	Admin  bool
}

// ReviewService implements the business logic for reviews.
type ReviewService struct {
	technologies repository.TechnologyRepository
	reviews      repository.ReviewRepository
	cache        cache.Cache
	producer     *event.Producer
	aggregates   event.AggregateRefresher
	mode         AggregationMode
	logger       *slog.Logger
}

// NewReviewService creates a new review service. aggregates is called after
// every change unless mode is AggregationEvents.
func NewReviewService(
	store repository.Store,
	c cache.Cache,
	producer *event.Producer,
	aggregates event.AggregateRefresher,
	mode AggregationMode,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		technologies: store.Technologies(),
		reviews:      store.Reviews(),
		cache:        c,
		producer:     producer,
		aggregates:   aggregates,
		mode:         mode,
		logger:       logger,
	}
}

func validateRating(rating int) error {
	if rating < domain.MinReviewRating || rating > domain.MaxReviewRating {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinReviewRating, domain.MaxReviewRating))
	}
	return nil
}

// CreateReview stores a review by userID on technologyID.
func (s *ReviewService) CreateReview(ctx context.Context, technologyID, userID string, in ReviewInput) (*domain.Review, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("user identity is required")
	}
	if err := validateRating(in.Rating); err != nil {
		return nil, err
	}
	if _, err := s.technologies.GetByID(ctx, technologyID); err != nil {
		return nil, fmt.Errorf("get technology: %w", err)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:           uuid.NewString(),
		TechnologyID: technologyID,
		UserID:       userID,
		Rating:       in.Rating,
		Feedback:     strings.TrimSpace(in.Feedback),
		Tags:         domain.NormalizeTags(in.Tags),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.afterChange(ctx, review, s.producer.PublishReviewCreated)
	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("technology_id", technologyID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}

// UpdateReview applies patch to a review owned by userID.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID, userID string, patch ReviewPatch) (*domain.Review, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("user identity is required")
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if !review.IsOwnedBy(userID) {
		return nil, apperrors.Forbidden("only the author can edit a review")
	}

	if patch.Rating != nil {
		if err := validateRating(*patch.Rating); err != nil {
			return nil, err
		}
		review.Rating = *patch.Rating
	}
	if patch.Feedback != nil {
		review.Feedback = strings.TrimSpace(*patch.Feedback)
	}
	if patch.SetTags {
		review.Tags = domain.NormalizeTags(patch.Tags)
	}
	review.UpdatedAt = time.Now().UTC()

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.afterChange(ctx, review, s.producer.PublishReviewUpdated)
	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("technology_id", review.TechnologyID),
	)
	return review, nil
}

// DeleteReview removes a review. Only its author or an admin may do so.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID string, actor Actor) error {
	if actor.UserID == "" && !actor.Admin {
		return apperrors.Unauthorized("user identity is required")
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if !actor.Admin && !review.IsOwnedBy(actor.UserID) {
		return apperrors.Forbidden("only the author or an admin can delete a review")
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.afterChange(ctx, review, s.producer.PublishReviewDeleted)
	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("technology_id", review.TechnologyID),
		slog.Bool("moderated", actor.Admin && !review.IsOwnedBy(actor.UserID)),
	)
	return nil
}

// ListReviews returns a technology's reviews, newest first, read through
// the cache.
func (s *ReviewService) ListReviews(ctx context.Context, technologyID string) ([]domain.Review, error) {
	key := cache.ReviewsKey(technologyID)

	var reviews []domain.Review
	err := cache.GetJSON(ctx, s.cache, key, &reviews)
	if err == nil {
		return reviews, nil
	}
	logCacheFailure(ctx, s.logger, "read", key, err)
	stamp, fillable := stampForFill(ctx, s.cache, s.logger, key)

	if _, err := s.technologies.GetByID(ctx, technologyID); err != nil {
		return nil, fmt.Errorf("get technology: %w", err)
	}
	reviews, err = s.reviews.ListByTechnology(ctx, technologyID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	if fillable {
		stored, err := cache.FillJSON(ctx, s.cache, key, reviews, stamp)
		logFill(ctx, s.logger, key, stored, err)
	}
	return reviews, nil
}

// ListAllReviews returns one page of every review for moderation.
func (s *ReviewService) ListAllReviews(ctx context.Context, page pagination.Params) (pagination.Result[domain.Review], error) {
	reviews, total, err := s.reviews.ListAll(ctx, page)
	if err != nil {
		return pagination.Result[domain.Review]{}, fmt.Errorf("list all reviews: %w", err)
	}
	return pagination.NewResult(reviews, total, page), nil
}

// afterChange drops the cached views of the review's technology, refreshes
// its aggregates when running inline and publishes the change. Failures
// here are logged: the review itself is already stored.
func (s *ReviewService) afterChange(ctx context.Context, review *domain.Review, publish func(context.Context, *domain.Review) error) {
	invalidate(ctx, s.cache, s.logger, cache.ReviewsKey(review.TechnologyID), cache.SummaryKey(review.TechnologyID))

	if s.mode != AggregationEvents {
		if err := s.aggregates.RefreshAggregates(ctx, review.TechnologyID); err != nil {
			s.logger.ErrorContext(ctx, "failed to refresh technology aggregates",
				slog.String("technology_id", review.TechnologyID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := publish(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
}
