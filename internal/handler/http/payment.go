package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
	"github.com/FeliksML/web-cellar-sub000/pkg/middleware"
)

// maxWebhookBytes bounds provider webhook payloads.
const maxWebhookBytes = 64 << 10

// PaymentHandler handles payment intents, provider webhooks and manual
// payment administration.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{service: svc, logger: logger}
}

// CreateIntentRequest names the order to pay.
type CreateIntentRequest struct {
	OrderNumber string `json:"order_number" validate:"required,max=50"`
}

// ConfirmPaymentRequest records a payment taken outside the provider.
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"max=255"`
}

// CreateIntent handles POST /api/v1/payments/intent
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.service.CreateIntent(r.Context(), middleware.UserIDFromContext(r.Context()), req.OrderNumber)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// Webhook handles POST /api/v1/payments/webhook. The raw body is needed
// for signature verification, so it is not decoded here.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteBadRequest(w, "PAYLOAD_TOO_LARGE", "Webhook payload too large")
			return
		}
		httputil.WriteBadRequest(w, "INVALID_INPUT", "Could not read webhook payload")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// ConfirmPayment handles POST /api/v1/admin/orders/{orderNumber}/confirm-payment
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if r.ContentLength != 0 && !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.service.ConfirmPayment(r.Context(), chi.URLParam(r, "orderNumber"), req.PaymentIntentID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// Refund handles POST /api/v1/admin/orders/{orderNumber}/refund
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	refund, err := h.service.Refund(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, refund)
}
