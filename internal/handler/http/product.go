package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/internal/search"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
	"github.com/FeliksML/web-cellar-sub000/pkg/pagination"
)

// ProductHandler handles HTTP requests for product endpoints, both the
// storefront catalog and the back office.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// ProductRequest is the JSON body for creating or updating a product.
// Prices are in cents. On update, omitted fields are left unchanged.
type ProductRequest struct {
	CategoryID        *string    `json:"category_id" validate:"omitempty,uuid"`
	SKU               *string    `json:"sku" validate:"omitempty,min=1,max=50"`
	Name              *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Slug              *string    `json:"slug" validate:"omitempty,slug,max=255"`
	Description       *string    `json:"description"`
	ShortDescription  *string    `json:"short_description" validate:"omitempty,max=500"`
	Price             *int64     `json:"price" validate:"omitempty,gte=0"`
	CompareAtPrice    *int64     `json:"compare_at_price" validate:"omitempty,gte=0"`
	StockQuantity     *int       `json:"stock_quantity" validate:"omitempty,gte=0"`
	LowStockThreshold *int       `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	TrackInventory    *bool      `json:"track_inventory"`
	AllowBackorder    *bool      `json:"allow_backorder"`
	GradientFrom      *string    `json:"gradient_from" validate:"omitempty,max=50"`
	GradientTo        *string    `json:"gradient_to" validate:"omitempty,max=50"`
	IsFeatured        *bool      `json:"is_featured"`
	IsBestseller      *bool      `json:"is_bestseller"`
	DisplayOrder      *int       `json:"display_order"`
	ProteinGrams      *int       `json:"protein_grams" validate:"omitempty,gte=0"`
	Calories          *int       `json:"calories" validate:"omitempty,gte=0"`
	IsGlutenFree      *bool      `json:"is_gluten_free"`
	IsDairyFree       *bool      `json:"is_dairy_free"`
	IsVegan           *bool      `json:"is_vegan"`
	IsKetoFriendly    *bool      `json:"is_keto_friendly"`
	LeadTimeHours     *int       `json:"lead_time_hours" validate:"omitempty,gte=0"`
	MinimumQuantity   *int       `json:"minimum_quantity" validate:"omitempty,gte=1"`
	QuantityIncrement *int       `json:"quantity_increment" validate:"omitempty,gte=1"`
	Allergens         []string   `json:"allergens"`
	IsSeasonal        *bool      `json:"is_seasonal"`
	AvailableFrom     *time.Time `json:"available_from"`
	AvailableUntil    *time.Time `json:"available_until"`
	AvailableDays     []int      `json:"available_days" validate:"omitempty,dive,gte=0,lte=6"`
	IsActive          *bool      `json:"is_active"`
	MetaTitle         *string    `json:"meta_title" validate:"omitempty,max=255"`
	MetaDescription   *string    `json:"meta_description" validate:"omitempty,max=500"`
}

func (req *ProductRequest) input() *service.ProductInput {
	return &service.ProductInput{
		CategoryID:        req.CategoryID,
		SKU:               req.SKU,
		Name:              req.Name,
		Slug:              req.Slug,
		Description:       req.Description,
		ShortDescription:  req.ShortDescription,
		Price:             req.Price,
		CompareAtPrice:    req.CompareAtPrice,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
		TrackInventory:    req.TrackInventory,
		AllowBackorder:    req.AllowBackorder,
		GradientFrom:      req.GradientFrom,
		GradientTo:        req.GradientTo,
		IsFeatured:        req.IsFeatured,
		IsBestseller:      req.IsBestseller,
		DisplayOrder:      req.DisplayOrder,
		ProteinGrams:      req.ProteinGrams,
		Calories:          req.Calories,
		IsGlutenFree:      req.IsGlutenFree,
		IsDairyFree:       req.IsDairyFree,
		IsVegan:           req.IsVegan,
		IsKetoFriendly:    req.IsKetoFriendly,
		LeadTimeHours:     req.LeadTimeHours,
		MinimumQuantity:   req.MinimumQuantity,
		QuantityIncrement: req.QuantityIncrement,
		Allergens:         req.Allergens,
		IsSeasonal:        req.IsSeasonal,
		AvailableFrom:     req.AvailableFrom,
		AvailableUntil:    req.AvailableUntil,
		AvailableDays:     req.AvailableDays,
		IsActive:          req.IsActive,
		MetaTitle:         req.MetaTitle,
		MetaDescription:   req.MetaDescription,
	}
}

// AddImageRequest attaches an image by URL.
type AddImageRequest struct {
	URL          string `json:"url" validate:"required,url"`
	AltText      string `json:"alt_text" validate:"max=255"`
	DisplayOrder int    `json:"display_order"`
	IsPrimary    bool   `json:"is_primary"`
}

// SetStockRequest overwrites a product's stock level.
type SetStockRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// --- Storefront handlers ---

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, ok := productFilter(w, r)
	if !ok {
		return
	}
	active := true
	filter.IsActive = &active
	h.list(w, r, filter)
}

// Featured handles GET /api/v1/products/featured
func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		writeInvalidParam(w, err)
		return
	}
	products, err := h.service.Featured(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// Bestsellers handles GET /api/v1/products/bestsellers
func (h *ProductHandler) Bestsellers(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		writeInvalidParam(w, err)
		return
	}
	products, err := h.service.Bestsellers(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// Search handles GET /api/v1/products/search
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	query := &search.Query{
		Text:         r.URL.Query().Get("q"),
		CategorySlug: queryString(r, "category"),
		SortBy:       r.URL.Query().Get("sort_by"),
		Page:         p.Page,
		PerPage:      p.PerPage,
	}
	if query.SortBy == "" {
		query.SortBy = search.SortRelevance
	}
	switch query.SortBy {
	case search.SortRelevance, search.SortPriceAsc, search.SortPriceDesc, search.SortNewest:
	default:
		httputil.WriteBadRequest(w, "INVALID_PARAMETER", "sort_by must be one of: relevance, price_asc, price_desc, newest")
		return
	}
	if !boolFilters(w, r, map[string]**bool{
		"is_gluten_free":   &query.IsGlutenFree,
		"is_dairy_free":    &query.IsDairyFree,
		"is_vegan":         &query.IsVegan,
		"is_keto_friendly": &query.IsKetoFriendly,
	}) {
		return
	}
	var err error
	if query.MinPrice, err = httputil.QueryInt64Ptr(r, "min_price"); err != nil {
		writeInvalidParam(w, err)
		return
	}
	if query.MaxPrice, err = httputil.QueryInt64Ptr(r, "max_price"); err != nil {
		writeInvalidParam(w, err)
		return
	}

	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writePage(w, result.Products, result.Total, p)
}

// GetProduct handles GET /api/v1/products/{slug}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// --- Admin handlers ---

// AdminListProducts handles GET /api/v1/admin/products
func (h *ProductHandler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	filter, ok := productFilter(w, r)
	if !ok {
		return
	}
	if !boolFilters(w, r, map[string]**bool{"is_active": &filter.IsActive}) {
		return
	}
	h.list(w, r, filter)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request, filter repository.ProductFilter) {
	products, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writePage(w, products, total, pagination.New(filter.Page, filter.PerPage))
}

// AdminGetProduct handles GET /api/v1/admin/products/{id}
func (h *ProductHandler) AdminGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	product, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// CreateProduct handles POST /api/v1/admin/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	product, err := h.service.Create(r.Context(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req ProductRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	product, err := h.service.Update(r.Context(), id.String(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
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

// AddImage handles POST /api/v1/admin/products/{id}/images
func (h *ProductHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req AddImageRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	img, err := h.service.AddImageURL(r.Context(), id.String(), &service.ImageInput{
		URL:          req.URL,
		AltText:      req.AltText,
		DisplayOrder: req.DisplayOrder,
		IsPrimary:    req.IsPrimary,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, img)
}

// UploadImage handles POST /api/v1/admin/products/{id}/images/upload as
// multipart/form-data with a "file" part.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxImageSize+httputil.MaxBodyBytes)
	if err := r.ParseMultipartForm(service.MaxImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteBadRequest(w, "INVALID_INPUT", "Image exceeds 5 MB")
			return
		}
		httputil.WriteBadRequest(w, "INVALID_INPUT", "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "INVALID_INPUT", "file is required")
		return
	}
	defer file.Close()

	displayOrder, _ := strconv.Atoi(r.FormValue("display_order"))
	isPrimary, _ := strconv.ParseBool(r.FormValue("is_primary"))

	img, err := h.service.UploadImage(r.Context(), id.String(), &service.UploadImageInput{
		Filename:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Data:         file,
		AltText:      r.FormValue("alt_text"),
		DisplayOrder: displayOrder,
		IsPrimary:    isPrimary,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, img)
}

// DeleteImage handles DELETE /api/v1/admin/products/{id}/images/{imageId}
func (h *ProductHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	imageID, ok := httputil.ParseUUID(w, chi.URLParam(r, "imageId"))
	if !ok {
		return
	}
	if err := h.service.DeleteImage(r.Context(), id.String(), imageID.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteNoContent(w)
}

// SetStock handles PUT /api/v1/admin/products/{id}/stock
func (h *ProductHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req SetStockRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}
	product, err := h.service.SetStock(r.Context(), id.String(), max(*req.Quantity, 0))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// Reindex handles POST /api/v1/admin/search/reindex
func (h *ProductHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Reindex(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]int{"indexed": n})
}

// productFilter reads the catalog filters shared by the storefront and
// back office listings.
func productFilter(w http.ResponseWriter, r *http.Request) (repository.ProductFilter, bool) {
	p := pagination.FromRequest(r)
	filter := repository.ProductFilter{
		CategorySlug: queryString(r, "category"),
		Search:       queryString(r, "search"),
		SortBy:       repository.SortByDisplayOrder,
		Page:         p.Page,
		PerPage:      p.PerPage,
	}

	if v := r.URL.Query().Get("sort_by"); v != "" {
		switch v {
		case repository.SortByName, repository.SortByPrice, repository.SortByCreatedAt, repository.SortByDisplayOrder:
			filter.SortBy = v
		default:
			httputil.WriteBadRequest(w, "INVALID_PARAMETER", "sort_by must be one of: name, price, created_at, display_order")
			return filter, false
		}
	}
	switch r.URL.Query().Get("sort_order") {
	case "", "asc":
	case "desc":
		filter.SortDesc = true
	default:
		httputil.WriteBadRequest(w, "INVALID_PARAMETER", "sort_order must be asc or desc")
		return filter, false
	}

	if !boolFilters(w, r, map[string]**bool{
		"is_featured":      &filter.IsFeatured,
		"is_bestseller":    &filter.IsBestseller,
		"is_gluten_free":   &filter.IsGlutenFree,
		"is_dairy_free":    &filter.IsDairyFree,
		"is_vegan":         &filter.IsVegan,
		"is_keto_friendly": &filter.IsKetoFriendly,
	}) {
		return filter, false
	}

	var err error
	if filter.MinPrice, err = httputil.QueryInt64Ptr(r, "min_price"); err != nil {
		writeInvalidParam(w, err)
		return filter, false
	}
	if filter.MaxPrice, err = httputil.QueryInt64Ptr(r, "max_price"); err != nil {
		writeInvalidParam(w, err)
		return filter, false
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		httputil.WriteBadRequest(w, "INVALID_PARAMETER", "min_price must not exceed max_price")
		return filter, false
	}
	return filter, true
}
