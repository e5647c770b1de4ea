package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
)

// CartHandler handles HTTP requests for cart endpoints. Requests address
// the signed-in user's cart, or the guest cart of the session.
type CartHandler struct {
	service *service.CartService
	loc     *time.Location
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler. Delivery dates are read
// in loc, the store time zone.
func NewCartHandler(svc *service.CartService, loc *time.Location, logger *slog.Logger) *CartHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CartHandler{service: svc, loc: loc, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product.
type AddItemRequest struct {
	ProductID           string `json:"product_id" validate:"required,uuid"`
	Quantity            *int   `json:"quantity" validate:"omitempty,gte=1,lte=100"`
	SpecialInstructions string `json:"special_instructions" validate:"max=500"`
}

// UpdateItemRequest is the JSON request body for changing a cart line.
type UpdateItemRequest struct {
	Quantity            *int    `json:"quantity" validate:"omitempty,gte=1,lte=100"`
	SpecialInstructions *string `json:"special_instructions" validate:"omitempty,max=500"`
}

// UpdateDeliveryRequest sets the cart's delivery preferences.
type UpdateDeliveryRequest struct {
	RequestedDeliveryDate *string `json:"requested_delivery_date" validate:"omitempty,isodate"`
	DeliveryTimeSlot      *string `json:"delivery_time_slot" validate:"omitempty,oneof=morning afternoon evening"`
}

// ApplyPromoRequest attaches a promo code.
type ApplyPromoRequest struct {
	Code string `json:"code" validate:"required,max=50"`
}

// MergeCartRequest names the guest cart to fold into the user's cart.
type MergeCartRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Get(r.Context(), ownerFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.service.AddItem(r.Context(), ownerFromRequest(r), &service.AddItemInput{
		ProductID:           req.ProductID,
		Quantity:            quantity,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, cart)
}

// UpdateItem handles PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	cart, err := h.service.UpdateItem(r.Context(), ownerFromRequest(r), chi.URLParam(r, "id"), &service.UpdateItemInput{
		Quantity:            req.Quantity,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveItem(r.Context(), ownerFromRequest(r), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteNoContent(w)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), ownerFromRequest(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteNoContent(w)
}

// UpdateDelivery handles PUT /api/v1/cart/delivery
func (h *CartHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	var req UpdateDeliveryRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	input := &service.DeliveryInput{DeliveryTimeSlot: req.DeliveryTimeSlot}
	if req.RequestedDeliveryDate != nil {
		date, err := time.ParseInLocation(httputil.DateLayout, *req.RequestedDeliveryDate, h.loc)
		if err != nil {
			httputil.WriteBadRequest(w, "INVALID_INPUT", "Invalid date format, expected YYYY-MM-DD")
			return
		}
		input.RequestedDeliveryDate = &date
	}

	cart, err := h.service.UpdateDelivery(r.Context(), ownerFromRequest(r), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// ApplyPromo handles POST /api/v1/cart/promo
func (h *CartHandler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req ApplyPromoRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	cart, err := h.service.ApplyPromo(r.Context(), ownerFromRequest(r), req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// RemovePromo handles DELETE /api/v1/cart/promo
func (h *CartHandler) RemovePromo(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemovePromo(r.Context(), ownerFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// MergeCart handles POST /api/v1/cart/merge. Requires a signed-in user.
func (h *CartHandler) MergeCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req MergeCartRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	cart, err := h.service.Merge(r.Context(), userID, req.SessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}
