package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FeliksML/web-cellar-sub000/internal/delivery"
	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// cartRetries bounds how often a write is replayed after losing an
// optimistic concurrency race.
const cartRetries = 3

// CartOwner identifies whose cart a request addresses: a signed-in user
// or, failing that, a guest session.
type CartOwner struct {
	UserID    string
	SessionID string
}

func (o CartOwner) validate() error {
	if o.UserID == "" && o.SessionID == "" {
		return apperrors.InvalidInput("Session ID required for guest cart")
	}
	return nil
}

// CartView is a cart with its derived totals.
type CartView struct {
	*domain.Cart
	ItemCount      int    `json:"item_count"`
	Subtotal       int64  `json:"subtotal"`
	DiscountAmount int64  `json:"discount_amount"`
	Total          int64  `json:"total"`
	IsEmpty        bool   `json:"is_empty"`
	PromoError     string `json:"promo_error,omitempty"`
}

// AddItemInput is a product to put in the cart.
type AddItemInput struct {
	ProductID           string
	Quantity            int
	SpecialInstructions string
}

// UpdateItemInput changes a cart line; nil fields are left unchanged.
type UpdateItemInput struct {
	Quantity            *int
	SpecialInstructions *string
}

// DeliveryInput sets the cart's delivery preferences; nil fields are left
// unchanged.
type DeliveryInput struct {
	RequestedDeliveryDate *time.Time
	DeliveryTimeSlot      *string
}

// CartService implements the shopping cart stored in Redis.
type CartService struct {
	carts     repository.CartRepository
	products  repository.ProductRepository
	promos    repository.PromoCodeRepository
	scheduler *delivery.Scheduler
	logger    *slog.Logger
	now       func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	promos repository.PromoCodeRepository,
	scheduler *delivery.Scheduler,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		carts:     carts,
		products:  products,
		promos:    promos,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns the owner's cart. A missing cart reads as an empty one.
func (s *CartService) Get(ctx context.Context, owner CartOwner) (*CartView, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	cart, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

// Load returns the owner's stored cart, or nil when there is none.
func (s *CartService) Load(ctx context.Context, owner CartOwner) (*domain.Cart, error) {
	var (
		cart *domain.Cart
		err  error
	)
	if owner.UserID != "" {
		cart, err = s.carts.GetByUser(ctx, owner.UserID)
	} else {
		cart, err = s.carts.GetBySession(ctx, owner.SessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) load(ctx context.Context, owner CartOwner) (*domain.Cart, error) {
	cart, err := s.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = domain.NewCart(owner.UserID, sessionFor(owner), s.now().UTC())
	}
	return cart, nil
}

func sessionFor(owner CartOwner) string {
	if owner.UserID != "" {
		return ""
	}
	return owner.SessionID
}

// mutate loads the cart, applies fn and saves it, replaying fn when a
// concurrent writer got there first.
func (s *CartService) mutate(ctx context.Context, owner CartOwner, fn func(*domain.Cart) error) (*domain.Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := range cartRetries {
		cart, err := s.load(ctx, owner)
		if err != nil {
			return nil, err
		}
		if err := fn(cart); err != nil {
			return nil, err
		}
		err = s.carts.Save(ctx, cart)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		lastErr = err
		s.logger.DebugContext(ctx, "cart write conflict, retrying",
			slog.String("cart_id", cart.ID),
			slog.Int("attempt", attempt+1),
		)
	}
	return nil, lastErr
}

// AddItem adds a product to the cart at its current price. A line for the
// same product with the same instructions has its quantity increased.
func (s *CartService) AddItem(ctx context.Context, owner CartOwner, input *AddItemInput) (*CartView, error) {
	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, notFound(err, "Product")
	}
	now := s.now()
	if !product.IsCurrentlyAvailable(now) {
		return nil, apperrors.InvalidInput("Product is not available")
	}
	if !product.IsInStock() {
		return nil, apperrors.InvalidInput("Product is out of stock")
	}
	if err := product.ValidateQuantity(input.Quantity); err != nil {
		return nil, err
	}

	cart, err := s.mutate(ctx, owner, func(c *domain.Cart) error {
		line := c.AddItem(domain.CartItem{
			ProductID:           product.ID,
			ProductName:         product.Name,
			ProductSlug:         product.Slug,
			ProductSKU:          product.SKU,
			ImageURL:            product.PrimaryImageURL(),
			Quantity:            input.Quantity,
			UnitPrice:           product.Price,
			SpecialInstructions: strings.TrimSpace(input.SpecialInstructions),
		}, now.UTC())
		if !product.CanFulfil(line.Quantity) {
			return apperrors.InvalidInputf("Only %d of %s in stock", product.StockQuantity, product.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item added",
		slog.String("cart_id", cart.ID),
		slog.String("product_id", product.ID),
		slog.Int("quantity", input.Quantity),
	)
	return s.view(ctx, cart), nil
}

// UpdateItem changes the quantity or instructions of a line.
func (s *CartService) UpdateItem(ctx context.Context, owner CartOwner, itemID string, input *UpdateItemInput) (*CartView, error) {
	cart, err := s.mutate(ctx, owner, func(c *domain.Cart) error {
		item := c.FindItem(itemID)
		if item == nil {
			return apperrors.NotFound("Cart item")
		}
		if input.Quantity != nil {
			if err := s.checkQuantity(ctx, item.ProductID, *input.Quantity); err != nil {
				return err
			}
			item.Quantity = *input.Quantity
		}
		if input.SpecialInstructions != nil {
			item.SpecialInstructions = strings.TrimSpace(*input.SpecialInstructions)
		}
		c.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

// checkQuantity applies the product's quantity rules. Lines of deleted
// products only need a positive quantity.
func (s *CartService) checkQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return apperrors.InvalidInput("Quantity must be at least 1")
	}
	product, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if err := product.ValidateQuantity(quantity); err != nil {
		return err
	}
	if !product.CanFulfil(quantity) {
		return apperrors.InvalidInputf("Only %d of %s in stock", product.StockQuantity, product.Name)
	}
	return nil
}

// RemoveItem drops a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, owner CartOwner, itemID string) error {
	_, err := s.mutate(ctx, owner, func(c *domain.Cart) error {
		if !c.RemoveItem(itemID, s.now().UTC()) {
			return apperrors.NotFound("Cart item")
		}
		return nil
	})
	return err
}

// Clear empties the cart and drops its promo code.
func (s *CartService) Clear(ctx context.Context, owner CartOwner) error {
	_, err := s.mutate(ctx, owner, func(c *domain.Cart) error {
		c.Clear(s.now().UTC())
		return nil
	})
	return err
}

// UpdateDelivery stores the requested delivery date and time slot.
func (s *CartService) UpdateDelivery(ctx context.Context, owner CartOwner, input *DeliveryInput) (*CartView, error) {
	if input.DeliveryTimeSlot != nil && *input.DeliveryTimeSlot != "" && !delivery.IsValidTimeSlot(*input.DeliveryTimeSlot) {
		return nil, apperrors.InvalidInput("Invalid delivery time slot")
	}
	if input.RequestedDeliveryDate != nil && domain.DateOf(*input.RequestedDeliveryDate).Before(s.scheduler.Today()) {
		return nil, apperrors.InvalidInput("Delivery date cannot be in the past")
	}

	cart, err := s.mutate(ctx, owner, func(c *domain.Cart) error {
		if input.RequestedDeliveryDate != nil {
			d := domain.DateOf(*input.RequestedDeliveryDate)
			c.RequestedDeliveryDate = &d
		}
		if input.DeliveryTimeSlot != nil {
			c.DeliveryTimeSlot = *input.DeliveryTimeSlot
		}
		c.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

// ApplyPromo attaches a promo code after checking it against the current
// subtotal.
func (s *CartService) ApplyPromo(ctx context.Context, owner CartOwner, code string) (*CartView, error) {
	code = domain.NormalizePromoCode(code)
	if code == "" {
		return nil, apperrors.InvalidInput("Promo code is required")
	}

	promo, err := s.promos.GetByCode(ctx, code)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.InvalidInput("Invalid promo code")
	}
	if err != nil {
		return nil, fmt.Errorf("load promo code: %w", err)
	}

	cart, err := s.mutate(ctx, owner, func(c *domain.Cart) error {
		if result := promo.Validate(c.Subtotal(), s.now()); !result.Valid {
			return apperrors.InvalidInput(result.Error)
		}
		c.PromoCode = promo.Code
		c.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

// RemovePromo detaches the promo code.
func (s *CartService) RemovePromo(ctx context.Context, owner CartOwner) (*CartView, error) {
	cart, err := s.mutate(ctx, owner, func(c *domain.Cart) error {
		c.PromoCode = ""
		c.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

// Merge folds the guest cart of sessionID into the user's cart and deletes
// the guest cart.
func (s *CartService) Merge(ctx context.Context, userID, sessionID string) (*CartView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("Not authenticated")
	}
	guest, err := s.carts.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load guest cart: %w", err)
	}

	owner := CartOwner{UserID: userID}
	if guest == nil || guest.IsEmpty() {
		return s.Get(ctx, owner)
	}

	cart, err := s.mutate(ctx, owner, func(c *domain.Cart) error {
		c.Merge(guest, s.now().UTC())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.Delete(ctx, guest); err != nil {
		s.logger.WarnContext(ctx, "failed to delete merged guest cart",
			slog.String("cart_id", guest.ID),
			errAttr(err),
		)
	}

	s.logger.InfoContext(ctx, "guest cart merged",
		slog.String("cart_id", cart.ID),
		slog.Int("guest_items", len(guest.Items)),
	)
	return s.view(ctx, cart), nil
}

// Discard deletes a cart after checkout.
func (s *CartService) Discard(ctx context.Context, cart *domain.Cart) {
	if cart == nil {
		return
	}
	if err := s.carts.Delete(ctx, cart); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after checkout",
			slog.String("cart_id", cart.ID),
			errAttr(err),
		)
	}
}

// view computes the cart totals. A promo code that stopped applying is
// reported but kept so the customer sees why the discount vanished.
func (s *CartService) view(ctx context.Context, cart *domain.Cart) *CartView {
	v := &CartView{
		Cart:      cart,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal(),
		IsEmpty:   cart.IsEmpty(),
	}
	if cart.PromoCode != "" {
		promo, err := s.promos.GetByCode(ctx, cart.PromoCode)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			v.PromoError = "Invalid promo code"
		case err != nil:
			s.logger.WarnContext(ctx, "failed to load cart promo code", errAttr(err))
		default:
			result := promo.Validate(v.Subtotal, s.now())
			v.DiscountAmount = result.DiscountAmount
			v.PromoError = result.Error
		}
	}
	v.Total = max(v.Subtotal-v.DiscountAmount, 0)
	return v
}
