// Package searxng queries a SearXNG metasearch instance for web results
// about assistive technologies.
package searxng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/godfreymatagaro/eduability/internal/heuristic"
	apperrors "github.com/godfreymatagaro/eduability/pkg/errors"
	"github.com/godfreymatagaro/eduability/pkg/httpclient"
)

const dependency = "searxng"

// HTTPDoer is satisfied by httpclient.Client and httpclient.CircuitBreakerClient.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls the SearXNG JSON API.
type Client struct {
	baseURL string
	http    HTTPDoer
	logger  *slog.Logger
}

// New creates a client for the instance at baseURL.
func New(baseURL string, doer HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		logger:  logger,
	}
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search returns the raw results for query. Every failure of the instance,
// including an open circuit, is a DependencyUnavailable error.
func (c *Client) Search(ctx context.Context, query string) ([]heuristic.ExternalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []heuristic.ExternalResult{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create searxng request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "external search skipped, circuit open")
		}
		return nil, apperrors.DependencyUnavailable(dependency, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.DependencyUnavailable(dependency, httpclient.ParseResponseError(resp, dependency))
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&body); err != nil {
		return nil, apperrors.DependencyUnavailable(dependency, fmt.Errorf("decode searxng response: %w", err))
	}

	out := make([]heuristic.ExternalResult, 0, len(body.Results))
	for _, r := range body.Results {
		out = append(out, heuristic.ExternalResult{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	return out, nil
}
