// Package cache is the read-through cache in front of the catalog store.
// It is best-effort: callers treat every error as a miss and fall back to
// the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
)

// DefaultTTL is how long cached payloads live.
const DefaultTTL = time.Hour

// ErrMiss is returned when a key is absent or its payload is unusable.
var ErrMiss = errors.New("cache miss")

// TechnologiesKey is the listing key of category, or of the full listing
// when category is empty.
func TechnologiesKey(category string) string {
	if category == "" {
		return "technologies:all"
	}
	return "technologies:" + category
}

func ReviewsKey(technologyID string) string { return "reviews:" + technologyID }
func SummaryKey(technologyID string) string { return "summary:" + technologyID }

// Stamp is the invalidation generation of a key, taken before a store read
// that will refill the key.
type Stamp int64

// Cache stores raw payloads by key.
//
// Read-through callers take a Stamp before reading the store and refill
// with Fill. Invalidate advances the generation of every key it drops, so a
// fill computed from a snapshot older than the last invalidation is
// discarded instead of overwriting fresher state.
type Cache interface {
	// Get returns the payload stored at key, ErrMiss when absent, or a
	// DependencyUnavailable error when the backend fails.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Stamp(ctx context.Context, key string) (Stamp, error)
	// Fill stores value unless key was invalidated after stamp was taken.
	// It reports whether the value was stored.
	Fill(ctx context.Context, key string, value []byte, stamp Stamp) (bool, error)
	Invalidate(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// generationKey shares the hash slot of key.
func generationKey(key string) string {
	return "gen:{" + key + "}"
}

// generationTTL is how long an idle generation counter lives. It must
// exceed the longest store read behind a fill.
const generationTTL = 24 * time.Hour

var requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_cache_requests_total",
		Help: "Cache operations by cache name and result (hit, miss, stale, error).",
	},
	[]string{"cache", "result"},
)

func init() {
	prometheus.MustRegister(requests)
}

// cacheName is the metric label for key: its prefix up to the first colon.
func cacheName(key string) string {
	name, _, _ := strings.Cut(key, ":")
	return name
}

func record(key, result string) {
	requests.WithLabelValues(cacheName(key), result).Inc()
}

// Redis is a Cache backed by go-redis.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis creates a Redis cache. A non-positive ttl uses DefaultTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		record(key, "miss")
		return nil, ErrMiss
	case err != nil:
		record(key, "error")
		return nil, apperrors.DependencyUnavailable("cache", fmt.Errorf("redis get %s: %w", key, err))
	}
	record(key, "hit")
	return data, nil
}

func (c *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		record(key, "error")
		return apperrors.DependencyUnavailable("cache", fmt.Errorf("redis set %s: %w", key, err))
	}
	return nil
}

// fillScript sets KEYS[1] only while the generation at KEYS[2] still
// equals ARGV[2].
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if (gen or '0') ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

func (c *Redis) Stamp(ctx context.Context, key string) (Stamp, error) {
	gen, err := c.client.Get(ctx, generationKey(key)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		record(key, "error")
		return 0, apperrors.DependencyUnavailable("cache", fmt.Errorf("redis get generation %s: %w", key, err))
	}
	return Stamp(gen), nil
}

func (c *Redis) Fill(ctx context.Context, key string, value []byte, stamp Stamp) (bool, error) {
	stored, err := fillScript.Run(ctx, c.client,
		[]string{key, generationKey(key)},
		value, strconv.FormatInt(int64(stamp), 10), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		record(key, "error")
		return false, apperrors.DependencyUnavailable("cache", fmt.Errorf("redis fill %s: %w", key, err))
	}
	if stored == 0 {
		record(key, "stale")
		return false, nil
	}
	return true, nil
}

func (c *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Incr(ctx, generationKey(k))
			pipe.Expire(ctx, generationKey(k), generationTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		for _, k := range keys {
			record(k, "error")
		}
		return apperrors.DependencyUnavailable("cache", fmt.Errorf("redis del: %w", err))
	}
	return nil
}

func (c *Redis) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return apperrors.DependencyUnavailable("cache", err)
	}
	return nil
}

// Nop is the Cache used when caching is disabled. Every Get misses.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, error)  { return nil, ErrMiss }
func (Nop) Set(context.Context, string, []byte) error    { return nil }
func (Nop) Stamp(context.Context, string) (Stamp, error) { return 0, nil }
func (Nop) Invalidate(context.Context, ...string) error  { return nil }
func (Nop) Ping(context.Context) error                   { return nil }

// Fill accepts and drops the value.
func (Nop) Fill(context.Context, string, []byte, Stamp) (bool, error) { return true, nil }

// GetJSON decodes the payload at key into dst. A payload that no longer
// decodes is reported as ErrMiss so the caller refills it.
func GetJSON(ctx context.Context, c Cache, key string, dst any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, ErrMiss)
	}
	return nil
}

// FillJSON encodes v and fills key with it under stamp.
func FillJSON(ctx context.Context, c Cache, key string, v any, stamp Stamp) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encode %s for cache: %w", key, err)
	}
	return c.Fill(ctx, key, data, stamp)
}
