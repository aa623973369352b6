// Package service holds the catalog business logic: technologies, reviews
// and search.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/godfreymatagaro/eduability/internal/cache"
)

// AggregationMode selects who recomputes technology aggregates after a
// review changes.
type AggregationMode string

const (
	// AggregationInline recomputes within the request.
	AggregationInline AggregationMode = "inline"
	// AggregationEvents leaves it to the review event consumer.
	AggregationEvents AggregationMode = "events"
)

func invalidate(ctx context.Context, c cache.Cache, logger *slog.Logger, keys ...string) {
	if err := c.Invalidate(ctx, keys...); err != nil {
		logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}

// stampForFill takes the invalidation stamp of key before the store is
// read. ok is false when the cache cannot provide one; the caller then
// serves from the store and skips the refill.
func stampForFill(ctx context.Context, c cache.Cache, logger *slog.Logger, key string) (cache.Stamp, bool) {
	stamp, err := c.Stamp(ctx, key)
	if err != nil {
		logCacheFailure(ctx, logger, "stamp", key, err)
		return 0, false
	}
	return stamp, true
}

// logFill reports the outcome of a refill. A discarded fill means a write
// invalidated key while the store was being read.
func logFill(ctx context.Context, logger *slog.Logger, key string, stored bool, err error) {
	if err != nil {
		logCacheFailure(ctx, logger, "write", key, err)
		return
	}
	if !stored {
		logger.DebugContext(ctx, "cache fill discarded, key invalidated during read",
			slog.String("key", key),
		)
	}
}

// logCacheFailure logs cache errors other than a plain miss.
func logCacheFailure(ctx context.Context, logger *slog.Logger, op, key string, err error) {
	if err == nil || errors.Is(err, cache.ErrMiss) {
		return
	}
	logger.WarnContext(ctx, "cache "+op+" failed, using store",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}
