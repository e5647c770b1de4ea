package domain

import (
	"time"

	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// Product is a bakery item in the catalog. Prices are in cents.
type Product struct {
	ID                string         `json:"id"`
	CategoryID        *string        `json:"category_id,omitempty"`
	Category          *Category      `json:"category,omitempty"`
	SKU               string         `json:"sku"`
	Name              string         `json:"name"`
	Slug              string         `json:"slug"`
	Description       string         `json:"description,omitempty"`
	ShortDescription  string         `json:"short_description,omitempty"`
	Price             int64          `json:"price"`
	CompareAtPrice    *int64         `json:"compare_at_price,omitempty"`
	StockQuantity     int            `json:"stock_quantity"`
	LowStockThreshold int            `json:"low_stock_threshold"`
	TrackInventory    bool           `json:"track_inventory"`
	AllowBackorder    bool           `json:"allow_backorder"`
	GradientFrom      string         `json:"gradient_from,omitempty"`
	GradientTo        string         `json:"gradient_to,omitempty"`
	IsFeatured        bool           `json:"is_featured"`
	IsBestseller      bool           `json:"is_bestseller"`
	DisplayOrder      int            `json:"display_order"`
	ProteinGrams      *int           `json:"protein_grams,omitempty"`
	Calories          *int           `json:"calories,omitempty"`
	IsGlutenFree      bool           `json:"is_gluten_free"`
	IsDairyFree       bool           `json:"is_dairy_free"`
	IsVegan           bool           `json:"is_vegan"`
	IsKetoFriendly    bool           `json:"is_keto_friendly"`
	LeadTimeHours     *int           `json:"lead_time_hours,omitempty"`
	MinimumQuantity   int            `json:"minimum_quantity"`
	QuantityIncrement int            `json:"quantity_increment"`
	Allergens         []string       `json:"allergens"`
	IsSeasonal        bool           `json:"is_seasonal"`
	AvailableFrom     *time.Time     `json:"available_from,omitempty"`
	AvailableUntil    *time.Time     `json:"available_until,omitempty"`
	AvailableDays     []int          `json:"available_days,omitempty"`
	AverageRating     float64        `json:"average_rating"`
	ReviewCount       int            `json:"review_count"`
	IsActive          bool           `json:"is_active"`
	MetaTitle         string         `json:"meta_title,omitempty"`
	MetaDescription   string         `json:"meta_description,omitempty"`
	Images            []ProductImage `json:"images"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ProductImage is an image attached to a product. StorageKey is set for
// uploaded files so they can be removed from object storage.
type ProductImage struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	URL          string    `json:"url"`
	AltText      string    `json:"alt_text,omitempty"`
	DisplayOrder int       `json:"display_order"`
	IsPrimary    bool      `json:"is_primary"`
	StorageKey   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewProduct returns a product with catalog defaults applied.
func NewProduct() *Product {
	return &Product{
		LowStockThreshold: 5,
		TrackInventory:    true,
		IsGlutenFree:      true,
		MinimumQuantity:   1,
		QuantityIncrement: 1,
		IsActive:          true,
		Allergens:         []string{},
		Images:            []ProductImage{},
	}
}

// PrimaryImageURL returns the primary image, else the first one by order.
func (p *Product) PrimaryImageURL() string {
	var first *ProductImage
	for i := range p.Images {
		img := &p.Images[i]
		if img.IsPrimary {
			return img.URL
		}
		if first == nil || img.DisplayOrder < first.DisplayOrder {
			first = img
		}
	}
	if first == nil {
		return ""
	}
	return first.URL
}

func (p *Product) IsOnSale() bool {
	return p.CompareAtPrice != nil && *p.CompareAtPrice > p.Price
}

func (p *Product) IsInStock() bool {
	return !p.TrackInventory || p.StockQuantity > 0 || p.AllowBackorder
}

// IsLowStock is true for tracked products that still have stock at or
// below their threshold. Sold out products are not low stock.
func (p *Product) IsLowStock() bool {
	return p.TrackInventory && p.StockQuantity > 0 && p.StockQuantity <= p.LowStockThreshold
}

// IsCurrentlyAvailable reports whether the product can be ordered at now.
// Seasonal windows are inclusive calendar dates.
func (p *Product) IsCurrentlyAvailable(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if !p.IsSeasonal {
		return true
	}
	today := DateOf(now)
	if p.AvailableFrom != nil && today.Before(DateOf(*p.AvailableFrom)) {
		return false
	}
	if p.AvailableUntil != nil && today.After(DateOf(*p.AvailableUntil)) {
		return false
	}
	return true
}

// CanFulfil reports whether quantity units can be sold from stock.
func (p *Product) CanFulfil(quantity int) bool {
	return !p.TrackInventory || p.AllowBackorder || p.StockQuantity >= quantity
}

// ValidateQuantity checks quantity against the minimum and the increment.
func (p *Product) ValidateQuantity(quantity int) error {
	if quantity < p.MinimumQuantity {
		return apperrors.InvalidInputf("Minimum order quantity is %d", p.MinimumQuantity)
	}
	if p.QuantityIncrement > 1 && quantity%p.QuantityIncrement != 0 {
		return apperrors.InvalidInputf("Quantity must be in increments of %d", p.QuantityIncrement)
	}
	return nil
}

// LeadTime returns the product lead time, or def when unset.
func (p *Product) LeadTime(def int) int {
	if p.LeadTimeHours != nil {
		return *p.LeadTimeHours
	}
	return def
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ISOWeekday maps time.Weekday to 0=Monday .. 6=Sunday.
func ISOWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
