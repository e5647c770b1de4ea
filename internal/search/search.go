package search

import (
	"context"
	"time"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
)

// Sort options.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

// Engine defines the interface for indexing and searching products.
// Implementations may use Elasticsearch or query PostgreSQL directly.
type Engine interface {
	// IndexProduct adds or updates a single product in the search index.
	IndexProduct(ctx context.Context, product *domain.Product) error

	// DeleteProduct removes a product from the search index by its ID.
	DeleteProduct(ctx context.Context, id string) error

	// BulkIndex adds or updates multiple products in the search index.
	BulkIndex(ctx context.Context, products []domain.Product) error

	// Search executes a search query and returns matching active products.
	Search(ctx context.Context, query *Query) (*Result, error)
}

// Query describes a storefront product search.
type Query struct {
	Text           string
	CategorySlug   *string
	IsGlutenFree   *bool
	IsDairyFree    *bool
	IsVegan        *bool
	IsKetoFriendly *bool
	MinPrice       *int64
	MaxPrice       *int64
	SortBy         string
	Page           int
	PerPage        int
}

// Result is one page of search hits.
type Result struct {
	Products []domain.Product
	Total    int
	Page     int
	PerPage  int
}

// Document is the indexed form of a product: what a product card needs
// plus the fields searched on.
type Document struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	SKU              string    `json:"sku"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description"`
	CategoryID       string    `json:"category_id,omitempty"`
	CategoryName     string    `json:"category_name,omitempty"`
	CategorySlug     string    `json:"category_slug,omitempty"`
	Price            int64     `json:"price"`
	CompareAtPrice   *int64    `json:"compare_at_price,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	GradientFrom     string    `json:"gradient_from,omitempty"`
	GradientTo       string    `json:"gradient_to,omitempty"`
	ProteinGrams     *int      `json:"protein_grams,omitempty"`
	IsGlutenFree     bool      `json:"is_gluten_free"`
	IsDairyFree      bool      `json:"is_dairy_free"`
	IsVegan          bool      `json:"is_vegan"`
	IsKetoFriendly   bool      `json:"is_keto_friendly"`
	IsFeatured       bool      `json:"is_featured"`
	IsBestseller     bool      `json:"is_bestseller"`
	IsActive         bool      `json:"is_active"`
	Allergens        []string  `json:"allergens"`
	AverageRating    float64   `json:"average_rating"`
	ReviewCount      int       `json:"review_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewDocument builds the index document of p.
func NewDocument(p *domain.Product) Document {
	d := Document{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		SKU:              p.SKU,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            p.Price,
		CompareAtPrice:   p.CompareAtPrice,
		ImageURL:         p.PrimaryImageURL(),
		GradientFrom:     p.GradientFrom,
		GradientTo:       p.GradientTo,
		ProteinGrams:     p.ProteinGrams,
		IsGlutenFree:     p.IsGlutenFree,
		IsDairyFree:      p.IsDairyFree,
		IsVegan:          p.IsVegan,
		IsKetoFriendly:   p.IsKetoFriendly,
		IsFeatured:       p.IsFeatured,
		IsBestseller:     p.IsBestseller,
		IsActive:         p.IsActive,
		Allergens:        p.Allergens,
		AverageRating:    p.AverageRating,
		ReviewCount:      p.ReviewCount,
		CreatedAt:        p.CreatedAt,
	}
	if p.CategoryID != nil {
		d.CategoryID = *p.CategoryID
	}
	if p.Category != nil {
		d.CategoryName = p.Category.Name
		d.CategorySlug = p.Category.Slug
	}
	return d
}

// Product converts the document back into a product card.
func (d *Document) Product() domain.Product {
	p := domain.Product{
		ID:               d.ID,
		Name:             d.Name,
		Slug:             d.Slug,
		SKU:              d.SKU,
		Description:      d.Description,
		ShortDescription: d.ShortDescription,
		Price:            d.Price,
		CompareAtPrice:   d.CompareAtPrice,
		GradientFrom:     d.GradientFrom,
		GradientTo:       d.GradientTo,
		ProteinGrams:     d.ProteinGrams,
		IsGlutenFree:     d.IsGlutenFree,
		IsDairyFree:      d.IsDairyFree,
		IsVegan:          d.IsVegan,
		IsKetoFriendly:   d.IsKetoFriendly,
		IsFeatured:       d.IsFeatured,
		IsBestseller:     d.IsBestseller,
		IsActive:         d.IsActive,
		Allergens:        d.Allergens,
		AverageRating:    d.AverageRating,
		ReviewCount:      d.ReviewCount,
		CreatedAt:        d.CreatedAt,
		Images:           []domain.ProductImage{},
	}
	if d.CategoryID != "" {
		id := d.CategoryID
		p.CategoryID = &id
		p.Category = &domain.Category{ID: d.CategoryID, Name: d.CategoryName, Slug: d.CategorySlug}
	}
	if d.ImageURL != "" {
		p.Images = []domain.ProductImage{{ProductID: d.ID, URL: d.ImageURL, IsPrimary: true}}
	}
	return p
}

// Normalize clamps paging to page >= 1 and 1..100 per page, default 20.
func (q *Query) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	if q.PerPage > 100 {
		q.PerPage = 100
	}
}
