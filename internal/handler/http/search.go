package http

import (
	"log/slog"
	"net/http"

	"github.com/godfreymatagaro/eduability/internal/search"
	"github.com/godfreymatagaro/eduability/internal/service"
	"github.com/godfreymatagaro/eduability/pkg/httputil"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// Search handles GET /api/v1/search?q=&rating=&popularity=&recency=&highestRatings=&cost=&category=
// Only the highest-precedence filter present is applied.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := search.Filter{
		Rating:         q.Get("rating"),
		Popularity:     q.Get("popularity"),
		Recency:        q.Get("recency"),
		HighestRatings: q.Get("highestRatings"),
		Cost:           q.Get("cost"),
		Category:       q.Get("category"),
	}

	results, err := h.service.Search(r.Context(), q.Get("q"), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: results})
}

// SearchExternal handles GET /api/v1/search/external?q=
func (h *SearchHandler) SearchExternal(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.SearchExternal(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: results})
}
