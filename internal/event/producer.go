package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godfreymatagaro/eduability/internal/domain"
	pkgkafka "github.com/godfreymatagaro/eduability/pkg/kafka"
	"github.com/godfreymatagaro/eduability/pkg/logger"
)

const (
	AggregateTypeTechnology = "technology"
	AggregateTypeReview     = "review"
)

// Kafka topics for catalog domain events.
var (
	TopicTechnologyCreated = pkgkafka.Topic(AggregateTypeTechnology, "created")
	TopicTechnologyDeleted = pkgkafka.Topic(AggregateTypeTechnology, "deleted")
	TopicReviewCreated     = pkgkafka.Topic(AggregateTypeReview, "created")
	TopicReviewUpdated     = pkgkafka.Topic(AggregateTypeReview, "updated")
	TopicReviewDeleted     = pkgkafka.Topic(AggregateTypeReview, "deleted")
)

// SourceCatalogService identifies events published by this service.
const SourceCatalogService = "catalog-service"

// TechnologyEventData is the payload of technology events.
type TechnologyEventData struct {
	TechnologyID   string `json:"technology_id"`
	PublicID       string `json:"public_id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	ReviewsRemoved int    `json:"reviews_removed,omitempty"`
}

// ReviewEventData is the payload of review events.
type ReviewEventData struct {
	ReviewID     string `json:"review_id"`
	TechnologyID string `json:"technology_id"`
	UserID       string `json:"user_id"`
	Rating       int    `json:"rating"`
}

// Publisher is satisfied by *pkgkafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// Producer publishes catalog domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishTechnologyCreated publishes a technology.created event.
func (p *Producer) PublishTechnologyCreated(ctx context.Context, t *domain.Technology) error {
	return p.publish(ctx, TopicTechnologyCreated, t.ID, AggregateTypeTechnology, technologyData(t, 0))
}

// PublishTechnologyDeleted publishes a technology.deleted event.
func (p *Producer) PublishTechnologyDeleted(ctx context.Context, t *domain.Technology, reviewsRemoved int) error {
	return p.publish(ctx, TopicTechnologyDeleted, t.ID, AggregateTypeTechnology, technologyData(t, reviewsRemoved))
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, r.TechnologyID, AggregateTypeReview, reviewData(r))
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, r.TechnologyID, AggregateTypeReview, reviewData(r))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewDeleted, r.TechnologyID, AggregateTypeReview, reviewData(r))
}

// publish keys review events by technology ID so the events of one
// technology stay ordered on a partition.
func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

func technologyData(t *domain.Technology, reviewsRemoved int) TechnologyEventData {
	return TechnologyEventData{
		TechnologyID:   t.ID,
		PublicID:       t.PublicID,
		Name:           t.Name,
		Category:       string(t.Category),
		ReviewsRemoved: reviewsRemoved,
	}
}

func reviewData(r *domain.Review) ReviewEventData {
	return ReviewEventData{
		ReviewID:     r.ID,
		TechnologyID: r.TechnologyID,
		UserID:       r.UserID,
		Rating:       r.Rating,
	}
}
