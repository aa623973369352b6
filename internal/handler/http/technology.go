package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/godfreymatagaro/eduability/internal/domain"
	"github.com/godfreymatagaro/eduability/internal/heuristic"
	"github.com/godfreymatagaro/eduability/internal/service"
	"github.com/godfreymatagaro/eduability/pkg/httputil"
	"github.com/godfreymatagaro/eduability/pkg/validator"
)

// HeaderCache reports whether a listing was served from the cache.
const HeaderCache = "X-Cache"

func init() {
	if err := validator.RegisterStringRule("category", domain.IsValidCategory); err != nil {
		panic(err)
	}
	if err := validator.RegisterStringRule("cost", domain.IsValidCost); err != nil {
		panic(err)
	}
}

// TechnologyHandler handles HTTP requests for technology endpoints.
type TechnologyHandler struct {
	service *service.TechnologyService
	logger  *slog.Logger
}

// NewTechnologyHandler creates a new technology HTTP handler.
func NewTechnologyHandler(svc *service.TechnologyService, logger *slog.Logger) *TechnologyHandler {
	return &TechnologyHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CoreVitalsRequest carries the four 0-5 vitals of a listing.
type CoreVitalsRequest struct {
	EaseOfUse       float64 `json:"ease_of_use" validate:"gte=0,lte=5"`
	FeaturesRating  float64 `json:"features_rating" validate:"gte=0,lte=5"`
	ValueForMoney   float64 `json:"value_for_money" validate:"gte=0,lte=5"`
	CustomerSupport float64 `json:"customer_support" validate:"gte=0,lte=5"`
}

// CreateTechnologyRequest is the JSON request body for creating a listing.
type CreateTechnologyRequest struct {
	Name               string                   `json:"name" validate:"required,max=200"`
	Category           string                   `json:"category" validate:"required,category"`
	Description        string                   `json:"description" validate:"max=5000"`
	KeyFeatures        string                   `json:"key_features" validate:"max=2000"`
	SystemRequirements string                   `json:"system_requirements" validate:"max=2000"`
	Cost               string                   `json:"cost" validate:"required,cost"`
	CoreVitals         CoreVitalsRequest        `json:"core_vitals"`
	FeatureComparison  domain.FeatureComparison `json:"feature_comparison"`
}

// PreferencesRequest describes what the user is looking for in a comparison.
type PreferencesRequest struct {
	Category            string   `json:"category" validate:"omitempty,category"`
	Budget              float64  `json:"budget" validate:"gte=0"`
	PrioritizedFeatures []string `json:"prioritized_features" validate:"max=7,dive,required"`
}

// CompareRequest is the JSON request body for comparing technologies.
type CompareRequest struct {
	IDs         []string           `json:"ids" validate:"required,min=1,max=10,dive,required"`
	Preferences PreferencesRequest `json:"preferences"`
}

// --- Handlers ---

// ListTechnologies handles GET /api/v1/technologies?category=
// The cached JSON array is written as-is; X-Cache says whether it came from
// the cache.
func (h *TechnologyHandler) ListTechnologies(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.ListTechnologies(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if listing.CacheHit {
		w.Header().Set(HeaderCache, "HIT")
	} else {
		w.Header().Set(HeaderCache, "MISS")
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: listing.Payload})
}

// QuickSearch handles GET /api/v1/technologies/quick-search?q=
func (h *TechnologyHandler) QuickSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.QuickSearch(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: results})
}

// GetTechnology handles GET /api/v1/technologies/{id}. The path segment may
// be an internal id or a public id.
func (h *TechnologyHandler) GetTechnology(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeMissingParam(w, "technology id")
		return
	}

	tech, err := h.service.GetTechnology(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tech})
}

// GetSummary handles GET /api/v1/technologies/{id}/summary
func (h *TechnologyHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}

// Compare handles POST /api/v1/technologies/compare
func (h *TechnologyHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	prefs := heuristic.Preferences{
		Category:            domain.Category(req.Preferences.Category),
		Budget:              req.Preferences.Budget,
		PrioritizedFeatures: req.Preferences.PrioritizedFeatures,
	}

	ranked, err := h.service.Compare(r.Context(), req.IDs, prefs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ranked})
}

// CreateTechnology handles POST /api/v1/admin/technologies
func (h *TechnologyHandler) CreateTechnology(w http.ResponseWriter, r *http.Request) {
	var req CreateTechnologyRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	tech, err := h.service.CreateTechnology(r.Context(), service.CreateTechnologyInput{
		Name:               req.Name,
		Category:           req.Category,
		Description:        req.Description,
		KeyFeatures:        req.KeyFeatures,
		SystemRequirements: req.SystemRequirements,
		Cost:               req.Cost,
		CoreVitals: domain.CoreVitals{
			EaseOfUse:       req.CoreVitals.EaseOfUse,
			FeaturesRating:  req.CoreVitals.FeaturesRating,
			ValueForMoney:   req.CoreVitals.ValueForMoney,
			CustomerSupport: req.CoreVitals.CustomerSupport,
		},
		FeatureComparison: req.FeatureComparison,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: tech})
}

type deleteTechnologyResponse struct {
	ID             string `json:"id"`
	ReviewsRemoved int    `json:"reviews_removed"`
}

// DeleteTechnology handles DELETE /api/v1/admin/technologies/{id}. The
// technology's reviews are removed with it.
func (h *TechnologyHandler) DeleteTechnology(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := h.service.DeleteTechnology(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: deleteTechnologyResponse{ID: id, ReviewsRemoved: removed},
	})
}

func writeMissingParam(w http.ResponseWriter, name string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: name + " is required"},
	})
}
