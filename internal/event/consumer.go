// Package event publishes catalog domain events and consumes review events
// to keep technology aggregates current.
package event

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
	pkgkafka "github.com/godfreymatagaro/eduability/pkg/kafka"
)

// ConsumerGroup is the group ID of the aggregation consumer.
const ConsumerGroup = "catalog-aggregates"

// ReviewTopics are the topics the aggregation consumer subscribes to.
func ReviewTopics() []string {
	return []string{TopicReviewCreated, TopicReviewUpdated, TopicReviewDeleted}
}

// AggregateRefresher recomputes a technology's rating and review count.
type AggregateRefresher interface {
	RefreshAggregates(ctx context.Context, technologyID string) error
}

// Consumer processes review events.
type Consumer struct {
	refresher AggregateRefresher
	logger    *slog.Logger
}

// NewConsumer creates a new review event consumer.
func NewConsumer(refresher AggregateRefresher, logger *slog.Logger) *Consumer {
	return &Consumer{refresher: refresher, logger: logger}
}

// HandleReviewEvent refreshes the aggregates of the reviewed technology.
// Events for a technology that no longer exists are dropped.
func (c *Consumer) HandleReviewEvent(ctx context.Context, event *pkgkafka.Event) error {
	var data ReviewEventData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if data.TechnologyID == "" {
		c.logger.WarnContext(ctx, "review event without technology id",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	err := c.refresher.RefreshAggregates(ctx, data.TechnologyID)
	if apperrors.Is(err, apperrors.KindNotFound) {
		c.logger.InfoContext(ctx, "technology gone, skipping aggregate refresh",
			slog.String("technology_id", data.TechnologyID),
			slog.String("event_type", event.EventType),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("refresh aggregates for technology %s: %w", data.TechnologyID, err)
	}

	c.logger.InfoContext(ctx, "technology aggregates refreshed",
		slog.String("technology_id", data.TechnologyID),
		slog.String("event_type", event.EventType),
	)
	return nil
}

// Handler returns HandleReviewEvent guarded against redelivered events.
func (c *Consumer) Handler(store pkgkafka.IdempotencyStore) pkgkafka.Handler {
	return pkgkafka.IdempotentHandler(store, c.HandleReviewEvent, c.logger)
}
