package http

import (
	"log/slog"
	"net/http"

	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
)

// DeliveryHandler serves delivery scheduling, pricing and promo code
// checks for the checkout page.
type DeliveryHandler struct {
	delivery *service.DeliveryService
	promos   *service.PromoService
	logger   *slog.Logger
}

// NewDeliveryHandler creates a new delivery HTTP handler.
func NewDeliveryHandler(delivery *service.DeliveryService, promos *service.PromoService, logger *slog.Logger) *DeliveryHandler {
	return &DeliveryHandler{delivery: delivery, promos: promos, logger: logger}
}

// QuoteRequest asks for the shipping cost of a subtotal.
type QuoteRequest struct {
	Subtotal        int64  `json:"subtotal" validate:"gte=0"`
	FulfillmentType string `json:"fulfillment_type" validate:"omitempty,oneof=delivery pickup"`
}

// ValidatePromoRequest checks a promo code against an order total.
type ValidatePromoRequest struct {
	Code       string `json:"code" validate:"required,max=50"`
	OrderTotal int64  `json:"order_total" validate:"gte=0"`
}

// Dates handles GET /api/v1/delivery/dates
func (h *DeliveryHandler) Dates(w http.ResponseWriter, r *http.Request) {
	var (
		q   service.DatesQuery
		err error
	)
	if q.LeadTimeHours, err = httputil.QueryIntPtr(r, "lead_time_hours"); err != nil {
		writeInvalidParam(w, err)
		return
	}
	if q.DaysAhead, err = httputil.QueryInt(r, "days_ahead", 0); err != nil {
		writeInvalidParam(w, err)
		return
	}
	if id := r.URL.Query().Get("product_id"); id != "" {
		if _, ok := httputil.ParseUUID(w, id); !ok {
			return
		}
		q.ProductID = &id
	}

	dates, err := h.delivery.Dates(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string][]string{"dates": dates})
}

// Slots handles GET /api/v1/delivery/slots
func (h *DeliveryHandler) Slots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		httputil.WriteBadRequest(w, "INVALID_PARAMETER", "date is required")
		return
	}
	slots, err := h.delivery.Slots(date)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, slots)
}

// Quote handles POST /api/v1/delivery/quote
func (h *DeliveryHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	quote, err := h.delivery.Quote(r.Context(), req.Subtotal, req.FulfillmentType)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, quote)
}

// ValidatePromo handles POST /api/v1/promo-codes/validate
func (h *DeliveryHandler) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	var req ValidatePromoRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.promos.Validate(r.Context(), req.Code, req.OrderTotal)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}
