package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
	"github.com/FeliksML/web-cellar-sub000/pkg/pagination"
)

// PromoHandler handles promo code administration.
type PromoHandler struct {
	service *service.PromoService
	logger  *slog.Logger
}

// NewPromoHandler creates a new promo code HTTP handler.
func NewPromoHandler(svc *service.PromoService, logger *slog.Logger) *PromoHandler {
	return &PromoHandler{service: svc, logger: logger}
}

// PromoCodeRequest is the JSON body for creating or updating a promo code.
// Zero limits clear them.
type PromoCodeRequest struct {
	Code              *string    `json:"code" validate:"omitempty,min=3,max=50"`
	Description       *string    `json:"description" validate:"omitempty,max=255"`
	DiscountType      *string    `json:"discount_type" validate:"omitempty,oneof=percentage fixed_amount"`
	DiscountValue     *int64     `json:"discount_value" validate:"omitempty,gt=0"`
	MinimumOrderValue *int64     `json:"minimum_order_value" validate:"omitempty,gte=0"`
	MaximumDiscount   *int64     `json:"maximum_discount" validate:"omitempty,gte=0"`
	UsageLimit        *int       `json:"usage_limit" validate:"omitempty,gte=0"`
	ValidFrom         *time.Time `json:"valid_from"`
	ValidUntil        *time.Time `json:"valid_until"`
	IsActive          *bool      `json:"is_active"`
}

func (req *PromoCodeRequest) input() *service.PromoCodeInput {
	return &service.PromoCodeInput{
		Code:              req.Code,
		Description:       req.Description,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MinimumOrderValue: req.MinimumOrderValue,
		MaximumDiscount:   req.MaximumDiscount,
		UsageLimit:        req.UsageLimit,
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
		IsActive:          req.IsActive,
	}
}

// ListPromoCodes handles GET /api/v1/admin/promo-codes
func (h *PromoHandler) ListPromoCodes(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	filter := repository.PromoCodeFilter{
		Search:  queryString(r, "search"),
		Page:    p.Page,
		PerPage: p.PerPage,
	}
	if !boolFilters(w, r, map[string]**bool{"is_active": &filter.IsActive}) {
		return
	}
	promos, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writePage(w, promos, total, p)
}

// GetPromoCode handles GET /api/v1/admin/promo-codes/{id}
func (h *PromoHandler) GetPromoCode(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	promo, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, promo)
}

// CreatePromoCode handles POST /api/v1/admin/promo-codes
func (h *PromoHandler) CreatePromoCode(w http.ResponseWriter, r *http.Request) {
	var req PromoCodeRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	promo, err := h.service.Create(r.Context(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, promo)
}

// UpdatePromoCode handles PUT /api/v1/admin/promo-codes/{id}
func (h *PromoHandler) UpdatePromoCode(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req PromoCodeRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	promo, err := h.service.Update(r.Context(), id.String(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, promo)
}

// DeletePromoCode handles DELETE /api/v1/admin/promo-codes/{id}
func (h *PromoHandler) DeletePromoCode(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteNoContent(w)
}
