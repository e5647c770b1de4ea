package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
	"github.com/FeliksML/web-cellar-sub000/pkg/middleware"
)

// AddressHandler handles a customer's saved addresses.
type AddressHandler struct {
	service *service.AddressService
	logger  *slog.Logger
}

// NewAddressHandler creates a new address HTTP handler.
func NewAddressHandler(svc *service.AddressService, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{service: svc, logger: logger}
}

// SavedAddressRequest is the JSON body for creating or updating a saved
// address. Required fields are enforced by the service on create.
type SavedAddressRequest struct {
	AddressType          *string `json:"address_type" validate:"omitempty,oneof=shipping billing"`
	IsDefault            *bool   `json:"is_default"`
	FirstName            *string `json:"first_name" validate:"omitempty,max=100"`
	LastName             *string `json:"last_name" validate:"omitempty,max=100"`
	Phone                *string `json:"phone" validate:"omitempty,max=20"`
	AddressLine1         *string `json:"address_line1" validate:"omitempty,max=255"`
	AddressLine2         *string `json:"address_line2" validate:"omitempty,max=255"`
	City                 *string `json:"city" validate:"omitempty,max=100"`
	State                *string `json:"state" validate:"omitempty,max=100"`
	PostalCode           *string `json:"postal_code" validate:"omitempty,max=20"`
	Country              *string `json:"country" validate:"omitempty,len=2"`
	Label                *string `json:"label" validate:"omitempty,max=50"`
	DeliveryInstructions *string `json:"delivery_instructions" validate:"omitempty,max=500"`
}

func (req *SavedAddressRequest) input() *service.AddressInput {
	return &service.AddressInput{
		AddressType:          req.AddressType,
		IsDefault:            req.IsDefault,
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Phone:                req.Phone,
		AddressLine1:         req.AddressLine1,
		AddressLine2:         req.AddressLine2,
		City:                 req.City,
		State:                req.State,
		PostalCode:           req.PostalCode,
		Country:              req.Country,
		Label:                req.Label,
		DeliveryInstructions: req.DeliveryInstructions,
	}
}

// ListAddresses handles GET /api/v1/addresses
func (h *AddressHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.service.List(r.Context(), middleware.UserIDFromContext(r.Context()), r.URL.Query().Get("type"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, addresses)
}

// GetAddress handles GET /api/v1/addresses/{id}
func (h *AddressHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	address, err := h.service.Get(r.Context(), middleware.UserIDFromContext(r.Context()), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, address)
}

// CreateAddress handles POST /api/v1/addresses
func (h *AddressHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req SavedAddressRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	address, err := h.service.Create(r.Context(), middleware.UserIDFromContext(r.Context()), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, address)
}

// UpdateAddress handles PUT /api/v1/addresses/{id}
func (h *AddressHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req SavedAddressRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	address, err := h.service.Update(r.Context(), middleware.UserIDFromContext(r.Context()), id.String(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, address)
}

// DeleteAddress handles DELETE /api/v1/addresses/{id}
func (h *AddressHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
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

// SetDefault handles POST /api/v1/addresses/{id}/default
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	address, err := h.service.SetDefault(r.Context(), middleware.UserIDFromContext(r.Context()), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, address)
}
