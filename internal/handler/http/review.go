package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
	"github.com/FeliksML/web-cellar-sub000/pkg/middleware"
	"github.com/FeliksML/web-cellar-sub000/pkg/pagination"
)

const defaultReviewsPerPage = 10

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for posting a review.
type CreateReviewRequest struct {
	Rating  int     `json:"rating" validate:"required,gte=1,lte=5"`
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Content *string `json:"content"`
}

// UpdateReviewRequest is the JSON request body for editing a review.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Content *string `json:"content"`
}

// ApprovalRequest publishes or hides a review.
type ApprovalRequest struct {
	IsApproved *bool `json:"is_approved" validate:"required"`
}

// FeaturedRequest pins or unpins a review.
type FeaturedRequest struct {
	IsFeatured *bool `json:"is_featured" validate:"required"`
}

// ResponseRequest is the bakery's public reply to a review.
type ResponseRequest struct {
	Response string `json:"response" validate:"required,max=2000"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/products/{slug}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequestWithDefault(r, defaultReviewsPerPage)
	reviews, total, err := h.service.ListForProduct(r.Context(), chi.URLParam(r, "slug"), p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writePage(w, reviews, total, p)
}

// Summary handles GET /api/v1/products/{slug}/reviews/summary
func (h *ReviewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, summary)
}

// CreateReview handles POST /api/v1/products/{slug}/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	review, err := h.service.Create(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "slug"), &service.ReviewInput{
		Rating:  &req.Rating,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, review)
}

// UpdateReview handles PUT /api/v1/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req UpdateReviewRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	review, err := h.service.Update(r.Context(), middleware.UserIDFromContext(r.Context()), id.String(), &service.ReviewInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteNoContent(w)
}

// MarkHelpful handles POST /api/v1/reviews/{id}/helpful
func (h *ReviewHandler) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	result, err := h.service.MarkHelpful(r.Context(), middleware.UserIDFromContext(r.Context()), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// --- Moderation ---

// AdminListReviews handles GET /api/v1/admin/reviews
func (h *ReviewHandler) AdminListReviews(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	filter := repository.ReviewFilter{Page: p.Page, PerPage: p.PerPage}
	if !boolFilters(w, r, map[string]**bool{
		"is_approved":  &filter.IsApproved,
		"is_featured":  &filter.IsFeatured,
		"has_response": &filter.HasResponse,
	}) {
		return
	}
	var err error
	if filter.MinRating, err = httputil.QueryIntPtr(r, "min_rating"); err != nil {
		writeInvalidParam(w, err)
		return
	}
	if filter.MaxRating, err = httputil.QueryIntPtr(r, "max_rating"); err != nil {
		writeInvalidParam(w, err)
		return
	}
	if id := r.URL.Query().Get("product_id"); id != "" {
		filter.ProductID = &id
	}

	reviews, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writePage(w, reviews, total, p)
}

// SetApproval handles PUT /api/v1/admin/reviews/{id}/approval
func (h *ReviewHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req ApprovalRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	review, err := h.service.SetApproval(r.Context(), id.String(), *req.IsApproved)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// SetFeatured handles PUT /api/v1/admin/reviews/{id}/featured
func (h *ReviewHandler) SetFeatured(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req FeaturedRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	review, err := h.service.SetFeatured(r.Context(), id.String(), *req.IsFeatured)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// Respond handles POST /api/v1/admin/reviews/{id}/response
func (h *ReviewHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req ResponseRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	review, err := h.service.Respond(r.Context(), id.String(), req.Response)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// RemoveResponse handles DELETE /api/v1/admin/reviews/{id}/response
func (h *ReviewHandler) RemoveResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	review, err := h.service.RemoveResponse(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}
