package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, ttl), mr
}

func counter(cache, result string) float64 {
	return testutil.ToFloat64(requests.WithLabelValues(cache, result))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "technologies:all", TechnologiesKey(""))
	assert.Equal(t, "technologies:visual", TechnologiesKey("visual"))
	assert.Equal(t, "reviews:t-1", ReviewsKey("t-1"))
	assert.Equal(t, "summary:t-1", SummaryKey("t-1"))
	assert.Equal(t, "technologies", cacheName("technologies:all"))
}

func TestRedis_SetGetWithTTL(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "technologies:all", []byte(`[{"id":"t-1"}]`)))
	assert.Equal(t, DefaultTTL, mr.TTL("technologies:all"))

	hits := counter("technologies", "hit")
	got, err := c.Get(ctx, "technologies:all")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"t-1"}]`, string(got))
	assert.Equal(t, hits+1, counter("technologies", "hit"))
}

func TestRedis_MissAfterExpiry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "reviews:t-1", []byte(`[]`)))
	mr.FastForward(2 * time.Minute)

	misses := counter("reviews", "miss")
	_, err := c.Get(ctx, "reviews:t-1")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, misses+1, counter("reviews", "miss"))
}

func TestRedis_Invalidate(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "technologies:visual", []byte(`[]`)))
	require.NoError(t, c.Set(ctx, "technologies:all", []byte(`[]`)))
	require.NoError(t, c.Set(ctx, "technologies:physical", []byte(`[]`)))

	require.NoError(t, c.Invalidate(ctx, "technologies:visual", "technologies:all"))
	require.NoError(t, c.Invalidate(ctx))

	assert.False(t, mr.Exists("technologies:visual"))
	assert.False(t, mr.Exists("technologies:all"))
	assert.True(t, mr.Exists("technologies:physical"))
}

func TestRedis_FillUnderCurrentStamp(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	stamp, err := c.Stamp(ctx, "technologies:all")
	require.NoError(t, err)
	assert.Zero(t, stamp)

	stored, err := c.Fill(ctx, "technologies:all", []byte(`[{"id":"t-1"}]`), stamp)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, time.Minute, mr.TTL("technologies:all"))

	got, err := c.Get(ctx, "technologies:all")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"t-1"}]`, string(got))
}

func TestRedis_FillDiscardedAfterInvalidate(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()

	stamp, err := c.Stamp(ctx, "technologies:visual")
	require.NoError(t, err)

	// A write lands between the store read and the refill.
	require.NoError(t, c.Invalidate(ctx, "technologies:visual", "technologies:all"))

	stale := counter("technologies", "stale")
	stored, err := c.Fill(ctx, "technologies:visual", []byte(`["old"]`), stamp)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("technologies:visual"))
	assert.Equal(t, stale+1, counter("technologies", "stale"))

	fresh, err := c.Stamp(ctx, "technologies:visual")
	require.NoError(t, err)
	assert.Greater(t, fresh, stamp)
	stored, err = c.Fill(ctx, "technologies:visual", []byte(`["new"]`), fresh)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Positive(t, mr.TTL(generationKey("technologies:visual")))
}

func TestRedis_BackendFailureIsDependencyUnavailable(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()
	mr.SetError("ERR backend unavailable")

	errs := counter("summary", "error")
	_, err := c.Get(ctx, "summary:t-1")
	assert.True(t, apperrors.Is(err, apperrors.KindDependencyUnavailable))
	assert.False(t, errors.Is(err, ErrMiss))
	assert.Equal(t, errs+1, counter("summary", "error"))

	err = c.Set(ctx, "summary:t-1", []byte(`{}`))
	assert.True(t, apperrors.Is(err, apperrors.KindDependencyUnavailable))

	err = c.Invalidate(ctx, "summary:t-1")
	assert.True(t, apperrors.Is(err, apperrors.KindDependencyUnavailable))

	_, err = c.Stamp(ctx, "summary:t-1")
	assert.True(t, apperrors.Is(err, apperrors.KindDependencyUnavailable))

	stored, err := c.Fill(ctx, "summary:t-1", []byte(`{}`), 0)
	assert.False(t, stored)
	assert.True(t, apperrors.Is(err, apperrors.KindDependencyUnavailable))

	assert.True(t, apperrors.Is(c.Ping(ctx), apperrors.KindDependencyUnavailable))
}

func TestJSONHelpers(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	stored, err := FillJSON(ctx, c, "summary:t-1", payload{Name: "NVDA"}, 0)
	require.NoError(t, err)
	require.True(t, stored)

	var got payload
	require.NoError(t, GetJSON(ctx, c, "summary:t-1", &got))
	assert.Equal(t, "NVDA", got.Name)

	require.NoError(t, mr.Set("summary:t-2", "not json"))
	err = GetJSON(ctx, c, "summary:t-2", &got)
	assert.ErrorIs(t, err, ErrMiss)

	err = GetJSON(ctx, c, "summary:absent", &got)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "technologies:all", []byte(`[]`)))
	_, err := c.Get(ctx, "technologies:all")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, c.Invalidate(ctx, "technologies:all"))
	assert.NoError(t, c.Ping(ctx))

	stamp, err := c.Stamp(ctx, "technologies:all")
	require.NoError(t, err)
	stored, err := c.Fill(ctx, "technologies:all", []byte(`[]`), stamp)
	require.NoError(t, err)
	assert.True(t, stored)
	_, err = c.Get(ctx, "technologies:all")
	assert.ErrorIs(t, err, ErrMiss)
}
