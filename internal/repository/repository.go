package repository

import (
	"context"
	"time"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// ErrOrderNumberTaken is returned by OrderRepository.Create when the
// generated order number collides with an existing order.
var ErrOrderNumberTaken = apperrors.Conflict("Order number already in use")

// ErrOrderChanged is returned by guarded order updates when the order no
// longer has the status the update was computed from.
var ErrOrderChanged = apperrors.Conflict("Order was modified by another request, please retry")

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create inserts a user. A taken email returns ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail looks a user up by normalized email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update persists profile fields and the active flag.
	Update(ctx context.Context, user *domain.User) error

	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// RefreshTokenRepository stores hashed refresh tokens for rotation.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error

	// GetByHash returns the token with the given SHA-256 hash.
	GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)

	// Revoke marks an active token revoked. A token that is already revoked
	// or missing returns ErrNotFound, so only one caller can rotate it.
	Revoke(ctx context.Context, id string) error

	// RevokeAllForUser revokes every active token of a user.
	RevokeAllForUser(ctx context.Context, userID string) error
}

// AddressRepository manages saved addresses. All lookups are scoped to the
// owning user so foreign addresses read as not found.
type AddressRepository interface {
	// List returns the user's addresses, defaults first then newest.
	List(ctx context.Context, userID string, addressType string) ([]domain.Address, error)

	GetByID(ctx context.Context, userID, id string) (*domain.Address, error)

	// Create inserts an address. The first address of a type becomes the
	// default, and a new default clears the previous one.
	Create(ctx context.Context, address *domain.Address) error

	Update(ctx context.Context, address *domain.Address) error

	// Delete removes an address. When it was the default, the most recently
	// created remaining address of the same type is promoted.
	Delete(ctx context.Context, userID, id string) error

	SetDefault(ctx context.Context, userID, id string) (*domain.Address, error)
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	// List returns categories ordered by display order and name.
	List(ctx context.Context, activeOnly bool) ([]domain.Category, error)

	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
}

// Product sort keys.
const (
	SortByName         = "name"
	SortByPrice        = "price"
	SortByCreatedAt    = "created_at"
	SortByDisplayOrder = "display_order"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	CategorySlug   *string
	IsActive       *bool
	IsFeatured     *bool
	IsBestseller   *bool
	IsGlutenFree   *bool
	IsDairyFree    *bool
	IsVegan        *bool
	IsKetoFriendly *bool
	MinPrice       *int64
	MaxPrice       *int64
	Search         *string
	SortBy         string
	SortDesc       bool
	Page           int
	PerPage        int
}

// ProductRepository defines persistence operations for products and their
// images.
type ProductRepository interface {
	// Create inserts a product. Duplicate SKU or slug returns ErrAlreadyExists,
	// an unknown category returns ErrInvalidInput.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID loads a product with its category and images.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// GetByIDs loads several products keyed by id. Missing ids are absent
	// from the result.
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error)

	// List returns products matching filter along with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	Update(ctx context.Context, product *domain.Product) error

	// SoftDelete deactivates a product.
	SoftDelete(ctx context.Context, id string) error

	// SetStock overwrites the stock quantity, clamped at zero.
	SetStock(ctx context.Context, id string, quantity int) (*domain.Product, error)

	AddImage(ctx context.Context, image *domain.ProductImage) error

	// DeleteImage removes an image and returns it so stored files can be
	// cleaned up.
	DeleteImage(ctx context.Context, productID, imageID string) (*domain.ProductImage, error)
}

// OrderFilter defines filter criteria for the back office order list.
type OrderFilter struct {
	UserID          *string
	Status          *string
	PaymentStatus   *string
	FulfillmentType *string
	DateFrom        *time.Time
	DateTo          *time.Time
	Search          *string
	Page            int
	PerPage         int
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	// Create inserts an order with its items in one transaction. Stock for
	// tracked products is reserved and the promo code usage is incremented
	// atomically; insufficient stock or an exhausted code returns
	// ErrConflict. It returns the products that ended up low on stock.
	Create(ctx context.Context, order *domain.Order) ([]domain.LowStockProduct, error)

	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error)

	// List returns orders newest first along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus persists status, timestamps and cancellation reason,
	// provided the stored status is still fromStatus; otherwise it returns
	// ErrOrderChanged. When the new status is cancelled, the stock reserved
	// at checkout is returned.
	UpdateStatus(ctx context.Context, order *domain.Order, fromStatus string) error

	UpdateNotes(ctx context.Context, id, notes string) error

	// UpdatePayment persists payment status, intent id and, for auto
	// confirmed orders, status and confirmed_at. The write only applies while
	// the stored status and payment status still equal from; otherwise it
	// returns ErrOrderChanged.
	UpdatePayment(ctx context.Context, order *domain.Order, from domain.OrderState) error

	// FindCompletedItem returns the id of an order item for productID in a
	// delivered or picked up order of userID.
	FindCompletedItem(ctx context.Context, userID, productID string) (*string, error)
}

// PromoCodeFilter defines filter criteria for listing promo codes.
type PromoCodeFilter struct {
	IsActive *bool
	Search   *string
	Page     int
	PerPage  int
}

// PromoCodeRepository defines persistence operations for promo codes.
type PromoCodeRepository interface {
	Create(ctx context.Context, promo *domain.PromoCode) error
	GetByID(ctx context.Context, id string) (*domain.PromoCode, error)

	// GetByCode looks up an upper-cased code.
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)

	List(ctx context.Context, filter PromoCodeFilter) ([]domain.PromoCode, int, error)
	Update(ctx context.Context, promo *domain.PromoCode) error
	Delete(ctx context.Context, id string) error
}

// ReviewFilter defines filter criteria for listing reviews.
type ReviewFilter struct {
	ProductID   *string
	IsApproved  *bool
	IsFeatured  *bool
	HasResponse *bool
	MinRating   *int
	MaxRating   *int
	Page        int
	PerPage     int
}

// ReviewRepository defines persistence operations for reviews. Every write
// that changes what counts toward a product's rating refreshes the
// product's average_rating and review_count in the same transaction.
type ReviewRepository interface {
	// Create inserts a review. A second review by the same user returns
	// ErrAlreadyExists.
	Create(ctx context.Context, review *domain.Review) error

	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// List returns reviews, featured first then most helpful then newest.
	List(ctx context.Context, filter ReviewFilter) ([]domain.Review, int, error)

	Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error)

	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, review *domain.Review) error

	// MarkHelpful records one vote per user.
	MarkHelpful(ctx context.Context, reviewID, userID string) (*domain.HelpfulResult, error)
}

// SettingsRepository persists the single business settings document.
type SettingsRepository interface {
	// Get returns the stored settings, or defaults when none are stored.
	Get(ctx context.Context) (*domain.BusinessSettings, error)
	Save(ctx context.Context, settings *domain.BusinessSettings) error
}

// CustomerFilter defines filter criteria for the customer list.
type CustomerFilter struct {
	Search    *string
	HasOrders *bool
	Page      int
	PerPage   int
}

// CustomerRepository reads customer accounts with their order statistics.
type CustomerRepository interface {
	List(ctx context.Context, filter CustomerFilter) ([]domain.CustomerSummary, int, error)
	Get(ctx context.Context, id string, recentOrders int) (*domain.CustomerDetail, error)
}

// DashboardRepository runs the back office reporting queries. Revenue is
// summed over paid orders.
type DashboardRepository interface {
	// Stats computes the headline numbers. Day, week and month boundaries
	// are passed in so the store time zone applies.
	Stats(ctx context.Context, bounds StatsBounds) (*domain.DashboardStats, error)

	TopProducts(ctx context.Context, since time.Time, limit int) ([]domain.TopProduct, error)
	LowStock(ctx context.Context, limit int) ([]domain.LowStockProduct, error)
	RecentOrders(ctx context.Context, limit int) ([]domain.RecentOrder, error)

	// Analytics summarises orders created in [from, to).
	Analytics(ctx context.Context, from, to time.Time, loc *time.Location) (*domain.SalesAnalytics, error)
}

// StatsBounds are the period starts used by the dashboard.
type StatsBounds struct {
	TodayStart     time.Time
	TomorrowStart  time.Time
	WeekStart      time.Time
	MonthStart     time.Time
	PrevMonthStart time.Time
}

// CartRepository stores carts keyed by owner.
type CartRepository interface {
	// GetByUser returns the user's cart, or nil when none exists.
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)

	// GetBySession returns a guest cart, or nil when none exists.
	GetBySession(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Save writes the cart if its version still matches the stored one and
	// increments it. A concurrent write returns ErrConflict.
	Save(ctx context.Context, cart *domain.Cart) error

	Delete(ctx context.Context, cart *domain.Cart) error
}
