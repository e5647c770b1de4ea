package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FeliksML/web-cellar-sub000/internal/delivery"
	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/event"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
	"github.com/FeliksML/web-cellar-sub000/pkg/money"
)

// orderNumberAttempts bounds retries after an order number collision.
const orderNumberAttempts = 3

// OrderService implements checkout and the order lifecycle.
type OrderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	addresses repository.AddressRepository
	promos    repository.PromoCodeRepository
	settings  repository.SettingsRepository
	carts     *CartService
	delivery  *DeliveryService
	scheduler *delivery.Scheduler
	producer  *event.Producer
	logger    *slog.Logger
	now       func() time.Time
}

// OrderDeps groups the collaborators of an OrderService.
type OrderDeps struct {
	Orders    repository.OrderRepository
	Products  repository.ProductRepository
	Addresses repository.AddressRepository
	Promos    repository.PromoCodeRepository
	Settings  repository.SettingsRepository
	Carts     *CartService
	Delivery  *DeliveryService
	Scheduler *delivery.Scheduler
	Producer  *event.Producer
}

// NewOrderService creates a new order service.
func NewOrderService(deps OrderDeps, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:    deps.Orders,
		products:  deps.Products,
		addresses: deps.Addresses,
		promos:    deps.Promos,
		settings:  deps.Settings,
		carts:     deps.Carts,
		delivery:  deps.Delivery,
		scheduler: deps.Scheduler,
		producer:  deps.Producer,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrderInput is a checkout request. Delivery date, time slot and
// promo code fall back to the ones stored on the cart.
type CreateOrderInput struct {
	FulfillmentType       string
	RequestedDate         *time.Time
	RequestedTimeSlot     string
	ContactEmail          string
	ContactPhone          string
	CustomerNotes         string
	ShippingAddressID     *string
	ShippingAddress       *domain.AddressSnapshot
	BillingSameAsShipping bool
	BillingAddressID      *string
	BillingAddress        *domain.AddressSnapshot
	PromoCode             string
	PaymentMethod         string
}

// Create places an order from the user's cart. Stock is reserved and the
// promo code consumed in the same transaction as the insert; the cart is
// deleted afterwards.
func (s *OrderService) Create(ctx context.Context, userID string, input *CreateOrderInput) (*domain.Order, error) {
	cart, err := s.carts.Load(ctx, CartOwner{UserID: userID})
	if err != nil {
		return nil, err
	}
	if cart == nil || cart.IsEmpty() {
		return nil, apperrors.InvalidInput("Cart is empty")
	}

	settings := current(ctx, s.settings, s.logger)
	if err := checkFulfillment(&settings, input.FulfillmentType); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ContactEmail) == "" {
		return nil, apperrors.InvalidInput("Contact email is required")
	}

	products, err := s.checkProducts(ctx, cart)
	if err != nil {
		return nil, err
	}

	date, slot := input.RequestedDate, input.RequestedTimeSlot
	if date == nil {
		date = cart.RequestedDeliveryDate
	}
	if slot == "" {
		slot = cart.DeliveryTimeSlot
	}
	if err := s.checkSchedule(ctx, products, date, slot); err != nil {
		return nil, err
	}

	shipping, billing, err := s.resolveAddresses(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:                    uuid.New().String(),
		UserID:                &userID,
		Status:                domain.OrderStatusPending,
		PaymentStatus:         domain.PaymentStatusPending,
		PaymentMethod:         input.PaymentMethod,
		FulfillmentType:       input.FulfillmentType,
		RequestedDate:         date,
		RequestedTimeSlot:     slot,
		ContactEmail:          domain.NormalizeEmail(input.ContactEmail),
		ContactPhone:          input.ContactPhone,
		CustomerNotes:         input.CustomerNotes,
		ShippingAddress:       shipping,
		BillingAddress:        billing,
		BillingSameAsShipping: input.BillingSameAsShipping,
		Subtotal:              cart.Subtotal(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = "card"
	}
	if order.Items, err = buildItems(order.ID, cart, products); err != nil {
		return nil, err
	}

	if settings.MinimumOrderValue > 0 && order.Subtotal < settings.MinimumOrderValue {
		return nil, apperrors.InvalidInputf("Minimum order value is %s", money.Format(settings.MinimumOrderValue))
	}

	code := domain.NormalizePromoCode(input.PromoCode)
	if code == "" {
		code = cart.PromoCode
	}
	if code != "" {
		discount, err := s.applyPromo(ctx, code, order.Subtotal)
		if err != nil {
			return nil, err
		}
		order.PromoCode = code
		order.DiscountAmount = discount
	}
	order.ShippingCost = settings.ShippingCost(order.Subtotal, order.FulfillmentType)
	order.CalculateTotal()

	lowStock, err := s.insert(ctx, order)
	if err != nil {
		return nil, err
	}

	s.carts.Discard(ctx, cart)

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_number", order.OrderNumber),
		slog.Int64("total", order.Total),
		slog.Int("items", len(order.Items)),
	)
	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order created event", errAttr(err))
	}
	if len(lowStock) > 0 {
		if err := s.producer.PublishLowStock(ctx, lowStock); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish low stock event", errAttr(err))
		}
	}
	return order, nil
}

// insert stores the order, drawing a fresh order number on collision.
func (s *OrderService) insert(ctx context.Context, order *domain.Order) ([]domain.LowStockProduct, error) {
	for attempt := 1; ; attempt++ {
		order.OrderNumber = domain.GenerateOrderNumber(order.CreatedAt)
		lowStock, err := s.orders.Create(ctx, order)
		if err == nil {
			return lowStock, nil
		}
		if !errors.Is(err, repository.ErrOrderNumberTaken) || attempt == orderNumberAttempts {
			return nil, fmt.Errorf("create order: %w", err)
		}
	}
}

func checkFulfillment(settings *domain.BusinessSettings, fulfillmentType string) error {
	switch fulfillmentType {
	case domain.FulfillmentDelivery:
		if !settings.DeliveryAvailable {
			return apperrors.InvalidInput("Delivery is not available")
		}
	case domain.FulfillmentPickup:
		if !settings.PickupAvailable {
			return apperrors.InvalidInput("Pickup is not available")
		}
	default:
		return apperrors.InvalidInput("Fulfillment type must be delivery or pickup")
	}
	return nil
}

// checkProducts loads the products in the cart and rejects the checkout
// when one can no longer be sold in the requested quantity.
func (s *OrderService) checkProducts(ctx context.Context, cart *domain.Cart) (map[string]*domain.Product, error) {
	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}

	now := s.now()
	needed := make(map[string]int, len(products))
	for _, item := range cart.Items {
		p, ok := products[item.ProductID]
		if !ok || !p.IsCurrentlyAvailable(now) {
			return nil, apperrors.InvalidInputf("%s is no longer available", item.ProductName)
		}
		needed[p.ID] += item.Quantity
	}
	for id, qty := range needed {
		if p := products[id]; !p.CanFulfil(qty) {
			return nil, apperrors.InvalidInputf("Insufficient stock for %s", p.Name)
		}
	}
	return products, nil
}

// checkSchedule validates the requested date against the longest lead
// time and the weekdays every product can be made on.
func (s *OrderService) checkSchedule(ctx context.Context, products map[string]*domain.Product, date *time.Time, slot string) error {
	if slot != "" && !delivery.IsValidTimeSlot(slot) {
		return apperrors.InvalidInput("Invalid delivery time slot")
	}
	if date == nil {
		return nil
	}

	list := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		list = append(list, p)
	}
	lead, days := delivery.Requirements(list, s.delivery.DefaultLeadTime(ctx))
	if days != nil && len(days) == 0 {
		return apperrors.InvalidInput("The items in your cart have no delivery day in common")
	}
	if err := s.scheduler.ValidateDate(*date, lead, days); err != nil {
		return err
	}
	if slot != "" {
		return s.scheduler.ValidateTimeSlot(*date, slot)
	}
	return nil
}

func (s *OrderService) resolveAddresses(ctx context.Context, userID string, input *CreateOrderInput) (shipping, billing *domain.AddressSnapshot, err error) {
	switch {
	case input.ShippingAddressID != nil:
		addr, err := s.addresses.GetByID(ctx, userID, *input.ShippingAddressID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidInput("Shipping address not found")
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load shipping address: %w", err)
		}
		shipping = addr.Snapshot()
	case input.ShippingAddress != nil:
		shipping = input.ShippingAddress
	case input.FulfillmentType == domain.FulfillmentDelivery:
		return nil, nil, apperrors.InvalidInput("Shipping address required")
	}

	if input.BillingSameAsShipping {
		return shipping, nil, nil
	}
	switch {
	case input.BillingAddressID != nil:
		addr, err := s.addresses.GetByID(ctx, userID, *input.BillingAddressID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidInput("Billing address not found")
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load billing address: %w", err)
		}
		billing = addr.Snapshot()
	case input.BillingAddress != nil:
		billing = input.BillingAddress
	}
	return shipping, billing, nil
}

func (s *OrderService) applyPromo(ctx context.Context, code string, subtotal int64) (int64, error) {
	promo, err := s.promos.GetByCode(ctx, code)
	if errors.Is(err, apperrors.ErrNotFound) {
		return 0, apperrors.InvalidInput("Invalid promo code")
	}
	if err != nil {
		return 0, fmt.Errorf("load promo code: %w", err)
	}
	result := promo.Validate(subtotal, s.now())
	if !result.Valid {
		return 0, apperrors.InvalidInput(result.Error)
	}
	return result.DiscountAmount, nil
}

// buildItems turns cart lines into order items, keeping the price the
// customer saw when adding them.
func buildItems(orderID string, cart *domain.Cart, products map[string]*domain.Product) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		p := products[line.ProductID]
		snapshot, err := json.Marshal(domain.SnapshotOf(p))
		if err != nil {
			return nil, fmt.Errorf("marshal product snapshot: %w", err)
		}
		productID := p.ID
		items = append(items, domain.OrderItem{
			ID:                  uuid.New().String(),
			OrderID:             orderID,
			ProductID:           &productID,
			ProductName:         p.Name,
			ProductSKU:          p.SKU,
			ProductSnapshot:     snapshot,
			Quantity:            line.Quantity,
			UnitPrice:           line.UnitPrice,
			Subtotal:            line.LineTotal(),
			SpecialInstructions: line.SpecialInstructions,
		})
	}
	return items, nil
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string, page, perPage int) ([]domain.Order, int, error) {
	return s.List(ctx, repository.OrderFilter{UserID: &userID, Page: page, PerPage: perPage})
}

// List returns orders matching filter, newest first.
func (s *OrderService) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// GetForUser returns one of the user's orders. Other users' orders read
// as not found.
func (s *OrderService) GetForUser(ctx context.Context, userID, orderNumber string) (*domain.Order, error) {
	order, err := s.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, apperrors.NotFound("Order")
	}
	return order, nil
}

// Get returns an order by number.
func (s *OrderService) Get(ctx context.Context, orderNumber string) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, notFound(err, "Order")
	}
	return order, nil
}

// Cancel lets a customer cancel an order the bakery has not started on.
func (s *OrderService) Cancel(ctx context.Context, userID, orderNumber, reason string) (*domain.Order, error) {
	order, err := s.GetForUser(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}
	if !order.IsCancellable() {
		return nil, apperrors.InvalidInput("Order cannot be cancelled")
	}
	if reason == "" {
		reason = "Cancelled by customer"
	}
	return s.transition(ctx, order, domain.OrderStatusCancelled, reason)
}

// UpdateStatus moves an order along its lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, orderNumber, status, reason string) (*domain.Order, error) {
	if !domain.IsValidOrderStatus(status) {
		return nil, apperrors.InvalidInputf("Invalid order status %q", status)
	}
	order, err := s.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, status, reason)
}

func (s *OrderService) transition(ctx context.Context, order *domain.Order, status, reason string) (*domain.Order, error) {
	old := order.Status
	if !order.TransitionTo(status, reason, s.now().UTC()) {
		return nil, apperrors.InvalidInputf("Cannot transition from %s to %s", old, status)
	}
	if err := s.orders.UpdateStatus(ctx, order, old); err != nil {
		return nil, notFound(fmt.Errorf("update order status: %w", err), "Order")
	}

	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_number", order.OrderNumber),
		slog.String("from", old),
		slog.String("to", status),
	)
	if err := s.producer.PublishOrderStatusChanged(ctx, order, old); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order status event", errAttr(err))
	}
	if status == domain.OrderStatusCancelled {
		if err := s.producer.PublishOrderCancelled(ctx, order); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order cancelled event", errAttr(err))
		}
	}
	return order, nil
}

// UpdateNotes replaces the internal notes of an order.
func (s *OrderService) UpdateNotes(ctx context.Context, orderNumber, notes string) (*domain.Order, error) {
	order, err := s.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdateNotes(ctx, order.ID, notes); err != nil {
		return nil, notFound(fmt.Errorf("update order notes: %w", err), "Order")
	}
	order.InternalNotes = notes
	order.UpdatedAt = s.now().UTC()
	return order, nil
}

// BulkUpdateStatus applies one status to several orders. Failures are
// collected per order rather than aborting the batch.
func (s *OrderService) BulkUpdateStatus(ctx context.Context, orderNumbers []string, status, notes string) (*domain.BulkStatusResult, error) {
	if !domain.IsValidOrderStatus(status) {
		return nil, apperrors.InvalidInputf("Invalid order status %q", status)
	}

	result := &domain.BulkStatusResult{Errors: []string{}}
	for _, number := range orderNumbers {
		if _, err := s.UpdateStatus(ctx, number, status, ""); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Order %s: %s", number, clientMessage(err)))
			continue
		}
		if notes != "" {
			if _, err := s.UpdateNotes(ctx, number, notes); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Order %s: %s", number, clientMessage(err)))
			}
		}
		result.UpdatedCount++
	}
	return result, nil
}

// clientMessage is the message of an AppError, or a generic one for
// internal failures.
func clientMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
