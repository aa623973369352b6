package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godfreymatagaro/eduability/internal/config"
	"github.com/godfreymatagaro/eduability/internal/repository/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("SEARXNG_URL", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func get(t *testing.T, h http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := memoryConfig(t)

	store, err := OpenStore(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.StoreBackend = "sqlite"

	_, err := OpenStore(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func TestNewApp_MemoryBackend(t *testing.T) {
	cfg := memoryConfig(t)

	a, err := NewApp(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	assert.Nil(t, a.consumer)
	assert.Nil(t, a.producer)

	rec := get(t, a.Handler(), "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, a.Handler(), "/api/v1/technologies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	// Without a provider, external search reports the dependency as unavailable.
	rec = get(t, a.Handler(), "/api/v1/search/external?q=braille", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewApp_RedisCacheAndExternalSearch(t *testing.T) {
	mr := miniredis.RunT(t)
	searx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"title":"Braille display guide","url":"https://example.org/braille","content":"assistive technology"}]}`))
	}))
	t.Cleanup(searx.Close)

	cfg := memoryConfig(t)
	cfg.CacheEnabled = true
	cfg.Redis.Addr = mr.Addr()
	cfg.SearXNGURL = searx.URL

	a, err := NewApp(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })
	require.NotNil(t, a.redis)

	first := get(t, a.Handler(), "/api/v1/technologies", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.True(t, mr.Exists("technologies:all"))

	second := get(t, a.Handler(), "/api/v1/technologies", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))

	rec := get(t, a.Handler(), "/api/v1/search/external?q=braille", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []struct {
			URL   string  `json:"url"`
			Score float64 `json:"score"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "https://example.org/braille", body.Data[0].URL)
}

func TestNewApp_UnreachableRedisDegrades(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.CacheEnabled = true
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, client := OpenCache(ctx, cfg, quietLogger())
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	assert.Error(t, c.Ping(context.Background()))
}

func TestApp_ServeUntilCanceled(t *testing.T) {
	cfg := memoryConfig(t)

	a, err := NewApp(cfg, quietLogger())
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, listener) }()

	url := "http://" + listener.Addr().String() + "/health/live"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && strings.Contains(string(body), "up")
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
