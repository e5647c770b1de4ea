package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
	"github.com/FeliksML/web-cellar-sub000/pkg/middleware"
	"github.com/FeliksML/web-cellar-sub000/pkg/pagination"
)

// OrderHandler handles HTTP requests for checkout, order history and
// order administration.
type OrderHandler struct {
	service *service.OrderService
	loc     *time.Location
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler. Requested dates are
// read in loc, the store time zone.
func NewOrderHandler(svc *service.OrderService, loc *time.Location, logger *slog.Logger) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{service: svc, loc: loc, logger: logger}
}

// --- Request DTOs ---

// AddressRequest is an inline postal address.
type AddressRequest struct {
	FirstName            string `json:"first_name" validate:"required,max=100"`
	LastName             string `json:"last_name" validate:"required,max=100"`
	Phone                string `json:"phone" validate:"max=20"`
	AddressLine1         string `json:"address_line1" validate:"required,max=255"`
	AddressLine2         string `json:"address_line2" validate:"max=255"`
	City                 string `json:"city" validate:"required,max=100"`
	State                string `json:"state" validate:"required,max=100"`
	PostalCode           string `json:"postal_code" validate:"required,max=20"`
	Country              string `json:"country" validate:"omitempty,len=2"`
	DeliveryInstructions string `json:"delivery_instructions" validate:"max=500"`
}

func (a *AddressRequest) snapshot() *domain.AddressSnapshot {
	if a == nil {
		return nil
	}
	country := a.Country
	if country == "" {
		country = "US"
	}
	return &domain.AddressSnapshot{
		FirstName:            a.FirstName,
		LastName:             a.LastName,
		Phone:                a.Phone,
		AddressLine1:         a.AddressLine1,
		AddressLine2:         a.AddressLine2,
		City:                 a.City,
		State:                a.State,
		PostalCode:           a.PostalCode,
		Country:              country,
		DeliveryInstructions: a.DeliveryInstructions,
	}
}

// CreateOrderRequest is the JSON request body for checkout.
type CreateOrderRequest struct {
	FulfillmentType       string          `json:"fulfillment_type" validate:"required,oneof=delivery pickup"`
	RequestedDate         *string         `json:"requested_date" validate:"omitempty,isodate"`
	RequestedTimeSlot     string          `json:"requested_time_slot" validate:"omitempty,oneof=morning afternoon evening"`
	ContactEmail          string          `json:"contact_email" validate:"omitempty,email"`
	ContactPhone          string          `json:"contact_phone" validate:"max=20"`
	CustomerNotes         string          `json:"customer_notes" validate:"max=1000"`
	ShippingAddressID     *string         `json:"shipping_address_id" validate:"omitempty,uuid"`
	ShippingAddress       *AddressRequest `json:"shipping_address"`
	BillingSameAsShipping *bool           `json:"billing_same_as_shipping"`
	BillingAddressID      *string         `json:"billing_address_id" validate:"omitempty,uuid"`
	BillingAddress        *AddressRequest `json:"billing_address"`
	PromoCode             string          `json:"promo_code" validate:"max=50"`
	PaymentMethod         string          `json:"payment_method" validate:"omitempty,oneof=card cash"`
}

// CancelOrderRequest is the optional body of a customer cancellation.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// UpdateStatusRequest moves an order to a new status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// UpdateNotesRequest replaces an order's internal notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// BulkStatusRequest applies one status to several orders.
type BulkStatusRequest struct {
	OrderNumbers []string `json:"order_numbers" validate:"required,min=1,max=100,dive,required"`
	Status       string   `json:"status" validate:"required"`
	Notes        string   `json:"notes" validate:"max=2000"`
}

// --- Customer handlers ---

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	input := &service.CreateOrderInput{
		FulfillmentType:       req.FulfillmentType,
		RequestedTimeSlot:     req.RequestedTimeSlot,
		ContactEmail:          req.ContactEmail,
		ContactPhone:          req.ContactPhone,
		CustomerNotes:         req.CustomerNotes,
		ShippingAddressID:     req.ShippingAddressID,
		ShippingAddress:       req.ShippingAddress.snapshot(),
		BillingSameAsShipping: req.BillingSameAsShipping == nil || *req.BillingSameAsShipping,
		BillingAddressID:      req.BillingAddressID,
		BillingAddress:        req.BillingAddress.snapshot(),
		PromoCode:             req.PromoCode,
		PaymentMethod:         req.PaymentMethod,
	}
	if req.RequestedDate != nil {
		date, err := time.ParseInLocation(httputil.DateLayout, *req.RequestedDate, h.loc)
		if err != nil {
			httputil.WriteBadRequest(w, "INVALID_INPUT", "Invalid date format, expected YYYY-MM-DD")
			return
		}
		input.RequestedDate = &date
	}

	order, err := h.service.Create(r.Context(), middleware.UserIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	orders, total, err := h.service.ListForUser(r.Context(), middleware.UserIDFromContext(r.Context()), p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writePage(w, orders, total, p)
}

// GetOrder handles GET /api/v1/orders/{orderNumber}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetForUser(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "orderNumber"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// CancelOrder handles POST /api/v1/orders/{orderNumber}/cancel. The body
// is optional.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if r.ContentLength != 0 && !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.service.Cancel(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "orderNumber"), req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// --- Admin handlers ---

// AdminListOrders handles GET /api/v1/admin/orders
func (h *OrderHandler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	filter := repository.OrderFilter{
		Status:          queryString(r, "status"),
		PaymentStatus:   queryString(r, "payment_status"),
		FulfillmentType: queryString(r, "fulfillment_type"),
		Search:          queryString(r, "search"),
		Page:            p.Page,
		PerPage:         p.PerPage,
	}
	if filter.Status != nil && !domain.IsValidOrderStatus(*filter.Status) {
		httputil.WriteBadRequest(w, "INVALID_PARAMETER", "status is not a valid order status")
		return
	}
	if filter.PaymentStatus != nil && !domain.IsValidPaymentStatus(*filter.PaymentStatus) {
		httputil.WriteBadRequest(w, "INVALID_PARAMETER", "payment_status is not a valid payment status")
		return
	}
	var err error
	if filter.DateFrom, err = httputil.QueryDate(r, "date_from"); err != nil {
		writeInvalidParam(w, err)
		return
	}
	if filter.DateTo, err = httputil.QueryDate(r, "date_to"); err != nil {
		writeInvalidParam(w, err)
		return
	}

	orders, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writePage(w, orders, total, p)
}

// AdminGetOrder handles GET /api/v1/admin/orders/{orderNumber}
func (h *OrderHandler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Get(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/v1/admin/orders/{orderNumber}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "orderNumber"), req.Status, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// UpdateNotes handles PUT /api/v1/admin/orders/{orderNumber}/notes
func (h *OrderHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req UpdateNotesRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.service.UpdateNotes(r.Context(), chi.URLParam(r, "orderNumber"), req.Notes)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// BulkUpdateStatus handles POST /api/v1/admin/orders/bulk-status
func (h *OrderHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req BulkStatusRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.service.BulkUpdateStatus(r.Context(), req.OrderNumbers, req.Status, req.Notes)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}
