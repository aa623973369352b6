package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/godfreymatagaro/eduability/internal/service"
	"github.com/godfreymatagaro/eduability/pkg/httputil"
	"github.com/godfreymatagaro/eduability/pkg/middleware"
	"github.com/godfreymatagaro/eduability/pkg/pagination"
	"github.com/godfreymatagaro/eduability/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for creating a review.
type CreateReviewRequest struct {
	Rating   int      `json:"rating" validate:"required,min=1,max=5"`
	Feedback string   `json:"feedback" validate:"max=5000"`
	Tags     []string `json:"tags" validate:"max=20,dive,max=50"`
}

// UpdateReviewRequest is the JSON request body for updating a review.
// Omitted fields are left unchanged.
type UpdateReviewRequest struct {
	Rating   *int      `json:"rating" validate:"omitempty,min=1,max=5"`
	Feedback *string   `json:"feedback" validate:"omitempty,max=5000"`
	Tags     *[]string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/technologies/{id}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: reviews})
}

// CreateReview handles POST /api/v1/technologies/{id}/reviews. Requires
// X-User-ID.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.CreateReview(r.Context(),
		chi.URLParam(r, "id"),
		middleware.UserIDFromContext(r.Context()),
		service.ReviewInput{Rating: req.Rating, Feedback: req.Feedback, Tags: req.Tags},
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// UpdateReview handles PUT /api/v1/reviews/{reviewId}. Only the review's
// author may update it.
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	var req UpdateReviewRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	patch := service.ReviewPatch{Rating: req.Rating, Feedback: req.Feedback}
	if req.Tags != nil {
		patch.Tags = *req.Tags
		patch.SetTags = true
	}

	review, err := h.service.UpdateReview(r.Context(),
		chi.URLParam(r, "reviewId"),
		middleware.UserIDFromContext(r.Context()),
		patch,
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/reviews/{reviewId}. The author or an
// admin may delete a review.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	h.deleteReview(w, r, service.Actor{
		UserID: middleware.UserIDFromContext(r.Context()),
		Admin:  middleware.IsAdmin(r.Context()),
	})
}

// AdminDeleteReview handles DELETE /api/v1/admin/reviews/{reviewId}.
func (h *ReviewHandler) AdminDeleteReview(w http.ResponseWriter, r *http.Request) {
	h.deleteReview(w, r, service.Actor{
		UserID: middleware.UserIDFromContext(r.Context()),
		Admin:  true,
	})
}

func (h *ReviewHandler) deleteReview(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	if err := h.service.DeleteReview(r.Context(), chi.URLParam(r, "reviewId"), actor); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAllReviews handles GET /api/v1/admin/reviews?page=&per_page=
func (h *ReviewHandler) ListAllReviews(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.ListAllReviews(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
