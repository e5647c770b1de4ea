package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/event"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/internal/search"
	"github.com/FeliksML/web-cellar-sub000/internal/storage"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
	"github.com/FeliksML/web-cellar-sub000/pkg/slug"
)

// MaxImageSize is the largest product image accepted for upload.
const MaxImageSize = 5 << 20

const (
	defaultShowcaseLimit = 4
	maxShowcaseLimit     = 20
	reindexPageSize      = 100
	maxSlugAttempts      = 50
)

// ProductService implements catalog browsing and product administration.
type ProductService struct {
	products repository.ProductRepository
	search   search.Engine
	storage  storage.Storage
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewProductService creates a new product service.
func NewProductService(
	products repository.ProductRepository,
	engine search.Engine,
	store storage.Storage,
	producer *event.Producer,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		products: products,
		search:   engine,
		storage:  store,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// ProductInput holds product fields; nil fields are left unchanged on
// update.
type ProductInput struct {
	CategoryID        *string
	SKU               *string
	Name              *string
	Slug              *string
	Description       *string
	ShortDescription  *string
	Price             *int64
	CompareAtPrice    *int64
	StockQuantity     *int
	LowStockThreshold *int
	TrackInventory    *bool
	AllowBackorder    *bool
	GradientFrom      *string
	GradientTo        *string
	IsFeatured        *bool
	IsBestseller      *bool
	DisplayOrder      *int
	ProteinGrams      *int
	Calories          *int
	IsGlutenFree      *bool
	IsDairyFree       *bool
	IsVegan           *bool
	IsKetoFriendly    *bool
	LeadTimeHours     *int
	MinimumQuantity   *int
	QuantityIncrement *int
	Allergens         []string
	IsSeasonal        *bool
	AvailableFrom     *time.Time
	AvailableUntil    *time.Time
	AvailableDays     []int
	IsActive          *bool
	MetaTitle         *string
	MetaDescription   *string
}

// ImageInput attaches an image by URL.
type ImageInput struct {
	URL          string
	AltText      string
	DisplayOrder int
	IsPrimary    bool
}

// UploadImageInput is an uploaded image file.
type UploadImageInput struct {
	Filename     string
	ContentType  string
	Size         int64
	Data         io.Reader
	AltText      string
	DisplayOrder int
	IsPrimary    bool
}

// List returns products matching filter. Storefront callers force
// IsActive.
func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// Featured returns active featured products in display order.
func (s *ProductService) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	active, featured := true, true
	products, _, err := s.products.List(ctx, repository.ProductFilter{
		IsActive:   &active,
		IsFeatured: &featured,
		SortBy:     repository.SortByDisplayOrder,
		Page:       1,
		PerPage:    showcaseLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	return products, nil
}

// Bestsellers returns active bestselling products in display order.
func (s *ProductService) Bestsellers(ctx context.Context, limit int) ([]domain.Product, error) {
	active, bestseller := true, true
	products, _, err := s.products.List(ctx, repository.ProductFilter{
		IsActive:     &active,
		IsBestseller: &bestseller,
		SortBy:       repository.SortByDisplayOrder,
		Page:         1,
		PerPage:      showcaseLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list bestsellers: %w", err)
	}
	return products, nil
}

func showcaseLimit(limit int) int {
	if limit <= 0 {
		return defaultShowcaseLimit
	}
	return min(limit, maxShowcaseLimit)
}

// Search runs a full text query through the configured engine.
func (s *ProductService) Search(ctx context.Context, query *search.Query) (*search.Result, error) {
	result, err := s.search.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return result, nil
}

// GetBySlug returns an active product for the storefront.
func (s *ProductService) GetBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	product, err := s.products.GetBySlug(ctx, productSlug)
	if err != nil {
		return nil, notFound(err, "Product")
	}
	if !product.IsActive {
		return nil, apperrors.NotFound("Product")
	}
	return product, nil
}

// Get returns a product by id, active or not.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Product")
	}
	return product, nil
}

// Create adds a product. A slug is derived from the name when none is
// given, suffixed until it is unique.
func (s *ProductService) Create(ctx context.Context, input *ProductInput) (*domain.Product, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.InvalidInput("Product name is required")
	}
	if input.SKU == nil || strings.TrimSpace(*input.SKU) == "" {
		return nil, apperrors.InvalidInput("SKU is required")
	}
	if input.Price == nil {
		return nil, apperrors.InvalidInput("Price is required")
	}

	now := s.now().UTC()
	product := domain.NewProduct()
	product.ID = uuid.New().String()
	product.CreatedAt = now
	product.UpdatedAt = now
	input.apply(product)
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if product.Slug == "" {
		generated, err := s.uniqueSlug(ctx, product.Name)
		if err != nil {
			return nil, err
		}
		product.Slug = generated
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	created, err := s.products.GetByID(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", created.ID),
		slog.String("sku", created.SKU),
	)
	if err := s.producer.PublishProductCreated(ctx, created); err != nil {
		s.logger.WarnContext(ctx, "failed to publish product created event", errAttr(err))
	}
	return created, nil
}

func (s *ProductService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Generate(name)
	if base == "" {
		return "", apperrors.InvalidInput("Product name must contain letters or digits")
	}
	candidate := base
	for n := 1; n <= maxSlugAttempts; n++ {
		_, err := s.products.GetBySlug(ctx, candidate)
		if errors.Is(err, apperrors.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		candidate = slug.WithSuffix(base, n+1)
	}
	return "", apperrors.Conflict("Could not generate a unique slug")
}

// Update changes a product and republishes it for indexing.
func (s *ProductService) Update(ctx context.Context, id string, input *ProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Product")
	}

	input.apply(product)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	product.UpdatedAt = s.now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, notFound(fmt.Errorf("update product: %w", err), "Product")
	}

	updated, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", id))
	if err := s.producer.PublishProductUpdated(ctx, updated); err != nil {
		s.logger.WarnContext(ctx, "failed to publish product updated event", errAttr(err))
	}
	return updated, nil
}

// Delete deactivates a product. Order history keeps referencing it.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.products.SoftDelete(ctx, id); err != nil {
		return notFound(fmt.Errorf("delete product: %w", err), "Product")
	}

	s.logger.InfoContext(ctx, "product deactivated", slog.String("product_id", id))
	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to publish product deleted event", errAttr(err))
	}
	return nil
}

// AddImageURL attaches an externally hosted image.
func (s *ProductService) AddImageURL(ctx context.Context, productID string, input *ImageInput) (*domain.ProductImage, error) {
	if strings.TrimSpace(input.URL) == "" {
		return nil, apperrors.InvalidInput("Image URL is required")
	}
	img := &domain.ProductImage{
		ID:           uuid.New().String(),
		ProductID:    productID,
		URL:          input.URL,
		AltText:      input.AltText,
		DisplayOrder: input.DisplayOrder,
		IsPrimary:    input.IsPrimary,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.products.AddImage(ctx, img); err != nil {
		return nil, notFound(fmt.Errorf("add product image: %w", err), "Product")
	}
	s.imagesChanged(ctx, productID)
	return img, nil
}

// UploadImage stores an image file and attaches it to the product.
func (s *ProductService) UploadImage(ctx context.Context, productID string, input *UploadImageInput) (*domain.ProductImage, error) {
	if !storage.AllowedImageType(input.ContentType) {
		return nil, apperrors.InvalidInputf("Unsupported image type %q", input.ContentType)
	}
	if input.Size > MaxImageSize {
		return nil, apperrors.InvalidInputf("Image exceeds %d MB", MaxImageSize>>20)
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, notFound(err, "Product")
	}

	uploaded, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         storage.ProductImageKey(productID, input.Filename, input.ContentType),
		ContentType: input.ContentType,
		Size:        input.Size,
		Data:        input.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("upload product image: %w", err)
	}

	img := &domain.ProductImage{
		ID:           uuid.New().String(),
		ProductID:    productID,
		URL:          uploaded.URL,
		AltText:      input.AltText,
		DisplayOrder: input.DisplayOrder,
		IsPrimary:    input.IsPrimary,
		StorageKey:   uploaded.Key,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.products.AddImage(ctx, img); err != nil {
		s.removeStored(ctx, uploaded.Key)
		return nil, notFound(fmt.Errorf("add product image: %w", err), "Product")
	}

	s.logger.InfoContext(ctx, "product image uploaded",
		slog.String("product_id", productID),
		slog.String("key", uploaded.Key),
	)
	s.imagesChanged(ctx, productID)
	return img, nil
}

// DeleteImage detaches an image and removes its stored file, if any.
func (s *ProductService) DeleteImage(ctx context.Context, productID, imageID string) error {
	img, err := s.products.DeleteImage(ctx, productID, imageID)
	if err != nil {
		return notFound(fmt.Errorf("delete product image: %w", err), "Image")
	}
	if img.StorageKey != "" {
		s.removeStored(ctx, img.StorageKey)
	}
	s.imagesChanged(ctx, productID)
	return nil
}

func (s *ProductService) removeStored(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete stored image",
			slog.String("key", key),
			errAttr(err),
		)
	}
}

// imagesChanged republishes the product so search cards pick up the
// primary image.
func (s *ProductService) imagesChanged(ctx context.Context, productID string) {
	if !s.producer.Enabled() {
		return
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to reload product after image change", errAttr(err))
		return
	}
	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.WarnContext(ctx, "failed to publish product updated event", errAttr(err))
	}
}

// SetStock overwrites the stock level. Quantities below zero are stored
// as zero.
func (s *ProductService) SetStock(ctx context.Context, id string, quantity int) (*domain.Product, error) {
	product, err := s.products.SetStock(ctx, id, quantity)
	if err != nil {
		return nil, notFound(fmt.Errorf("set stock: %w", err), "Product")
	}

	s.logger.InfoContext(ctx, "stock updated",
		slog.String("product_id", id),
		slog.Int("stock_quantity", product.StockQuantity),
	)
	if product.IsLowStock() {
		low := []domain.LowStockProduct{lowStockOf(product)}
		if err := s.producer.PublishLowStock(ctx, low); err != nil {
			s.logger.WarnContext(ctx, "failed to publish low stock event", errAttr(err))
		}
	}
	return product, nil
}

func lowStockOf(p *domain.Product) domain.LowStockProduct {
	return domain.LowStockProduct{
		ID:                p.ID,
		Name:              p.Name,
		SKU:               p.SKU,
		StockQuantity:     p.StockQuantity,
		LowStockThreshold: p.LowStockThreshold,
		ImageURL:          p.PrimaryImageURL(),
	}
}

// Reindex pushes every active product to the search engine and returns
// how many were indexed.
func (s *ProductService) Reindex(ctx context.Context) (int, error) {
	active := true
	indexed := 0
	for page := 1; ; page++ {
		products, total, err := s.products.List(ctx, repository.ProductFilter{
			IsActive: &active,
			SortBy:   repository.SortByCreatedAt,
			Page:     page,
			PerPage:  reindexPageSize,
		})
		if err != nil {
			return indexed, fmt.Errorf("list products for reindex: %w", err)
		}
		if len(products) == 0 {
			break
		}
		if err := s.search.BulkIndex(ctx, products); err != nil {
			return indexed, fmt.Errorf("bulk index products: %w", err)
		}
		indexed += len(products)
		if indexed >= total {
			break
		}
	}

	s.logger.InfoContext(ctx, "search index rebuilt", slog.Int("products", indexed))
	return indexed, nil
}

func validateProduct(p *domain.Product) error {
	switch {
	case p.Price < 0:
		return apperrors.InvalidInput("Price must not be negative")
	case p.CompareAtPrice != nil && *p.CompareAtPrice < 0:
		return apperrors.InvalidInput("Compare at price must not be negative")
	case p.MinimumQuantity < 1:
		return apperrors.InvalidInput("Minimum quantity must be at least 1")
	case p.QuantityIncrement < 1:
		return apperrors.InvalidInput("Quantity increment must be at least 1")
	case p.AvailableFrom != nil && p.AvailableUntil != nil && p.AvailableUntil.Before(*p.AvailableFrom):
		return apperrors.InvalidInput("Available until must not be before available from")
	}
	for _, d := range p.AvailableDays {
		if d < 0 || d > 6 {
			return apperrors.InvalidInput("Available days must be between 0 (Monday) and 6 (Sunday)")
		}
	}
	return nil
}

func (in *ProductInput) apply(p *domain.Product) {
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			p.CategoryID = nil
		} else {
			id := *in.CategoryID
			p.CategoryID = &id
		}
	}
	if in.SKU != nil {
		p.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		p.Slug = *in.Slug
	}
	setField(&p.Description, in.Description)
	setField(&p.ShortDescription, in.ShortDescription)
	setField(&p.Price, in.Price)
	if in.CompareAtPrice != nil {
		p.CompareAtPrice = optional(*in.CompareAtPrice, 0)
	}
	setField(&p.StockQuantity, in.StockQuantity)
	setField(&p.LowStockThreshold, in.LowStockThreshold)
	setField(&p.TrackInventory, in.TrackInventory)
	setField(&p.AllowBackorder, in.AllowBackorder)
	setField(&p.GradientFrom, in.GradientFrom)
	setField(&p.GradientTo, in.GradientTo)
	setField(&p.IsFeatured, in.IsFeatured)
	setField(&p.IsBestseller, in.IsBestseller)
	setField(&p.DisplayOrder, in.DisplayOrder)
	if in.ProteinGrams != nil {
		p.ProteinGrams = optional(*in.ProteinGrams, -1)
	}
	if in.Calories != nil {
		p.Calories = optional(*in.Calories, -1)
	}
	setField(&p.IsGlutenFree, in.IsGlutenFree)
	setField(&p.IsDairyFree, in.IsDairyFree)
	setField(&p.IsVegan, in.IsVegan)
	setField(&p.IsKetoFriendly, in.IsKetoFriendly)
	if in.LeadTimeHours != nil {
		p.LeadTimeHours = optional(*in.LeadTimeHours, -1)
	}
	setField(&p.MinimumQuantity, in.MinimumQuantity)
	setField(&p.QuantityIncrement, in.QuantityIncrement)
	if in.Allergens != nil {
		p.Allergens = in.Allergens
	}
	setField(&p.IsSeasonal, in.IsSeasonal)
	if in.AvailableFrom != nil {
		p.AvailableFrom = nonZeroTime(*in.AvailableFrom)
	}
	if in.AvailableUntil != nil {
		p.AvailableUntil = nonZeroTime(*in.AvailableUntil)
	}
	if in.AvailableDays != nil {
		p.AvailableDays = in.AvailableDays
	}
	setField(&p.IsActive, in.IsActive)
	setField(&p.MetaTitle, in.MetaTitle)
	setField(&p.MetaDescription, in.MetaDescription)
}

func setField[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// optional returns nil when v equals the clearing sentinel.
func optional[T comparable](v, unset T) *T {
	if v == unset {
		return nil
	}
	return &v
}

func nonZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
