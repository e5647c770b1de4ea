package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
	"github.com/FeliksML/web-cellar-sub000/pkg/pagination"
)

const (
	defaultLowStockLimit    = 20
	maxLowStockLimit        = 50
	defaultTopProductsLimit = 5
	maxTopProductsLimit     = 50
	defaultTopProductsDays  = 30
	maxTopProductsDays      = 365
)

// DashboardHandler serves the back office dashboard, inventory and
// customer views.
type DashboardHandler struct {
	dashboard *service.DashboardService
	customers *service.CustomerService
	logger    *slog.Logger
}

// NewDashboardHandler creates a new dashboard HTTP handler.
func NewDashboardHandler(dashboard *service.DashboardService, customers *service.CustomerService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, customers: customers, logger: logger}
}

// BulkStockRequest sets the stock of several products at once.
type BulkStockRequest struct {
	Updates []domain.StockUpdate `json:"updates" validate:"required,min=1,max=500,dive"`
}

// Stats handles GET /api/v1/admin/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, stats)
}

// Widgets handles GET /api/v1/admin/dashboard/widgets
func (h *DashboardHandler) Widgets(w http.ResponseWriter, r *http.Request) {
	widgets, err := h.dashboard.Widgets(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, widgets)
}

// Analytics handles GET /api/v1/admin/dashboard/analytics
func (h *DashboardHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	start, err := httputil.QueryDate(r, "start_date")
	if err != nil {
		writeInvalidParam(w, err)
		return
	}
	end, err := httputil.QueryDate(r, "end_date")
	if err != nil {
		writeInvalidParam(w, err)
		return
	}
	analytics, err := h.dashboard.Analytics(r.Context(), start, end)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, analytics)
}

// LowStock handles GET /api/v1/admin/dashboard/low-stock
func (h *DashboardHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.dashboard.LowStock(r.Context(), httputil.ClampLimit(r, defaultLowStockLimit, maxLowStockLimit))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// TopProducts handles GET /api/v1/admin/dashboard/top-products
func (h *DashboardHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	days, err := httputil.QueryInt(r, "days", defaultTopProductsDays)
	if err != nil {
		writeInvalidParam(w, err)
		return
	}
	if days < 1 || days > maxTopProductsDays {
		httputil.WriteBadRequest(w, "INVALID_PARAMETER", "days must be between 1 and 365")
		return
	}
	limit := httputil.ClampLimit(r, defaultTopProductsLimit, maxTopProductsLimit)

	products, err := h.dashboard.TopProducts(r.Context(), limit, days)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// BulkUpdateStock handles POST /api/v1/admin/dashboard/inventory/bulk-update
func (h *DashboardHandler) BulkUpdateStock(w http.ResponseWriter, r *http.Request) {
	var req BulkStockRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	httputil.WriteData(w, http.StatusOK, h.dashboard.BulkUpdateStock(r.Context(), req.Updates))
}

// ListCustomers handles GET /api/v1/admin/customers
func (h *DashboardHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	filter := repository.CustomerFilter{
		Search:  queryString(r, "search"),
		Page:    p.Page,
		PerPage: p.PerPage,
	}
	if !boolFilters(w, r, map[string]**bool{"has_orders": &filter.HasOrders}) {
		return
	}
	customers, total, err := h.customers.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writePage(w, customers, total, p)
}

// GetCustomer handles GET /api/v1/admin/customers/{id}
func (h *DashboardHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	customer, err := h.customers.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, customer)
}
