package domain

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"slices"
	"time"
)

// Order statuses.
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPreparing      = "preparing"
	OrderStatusReady          = "ready"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusPickedUp       = "picked_up"
	OrderStatusCancelled      = "cancelled"
)

// Payment statuses.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
	PaymentStatusFailed   = "failed"
)

// Fulfillment types.
const (
	FulfillmentDelivery = "delivery"
	FulfillmentPickup   = "pickup"
)

// Order is a placed order. Amounts are in cents.
type Order struct {
	ID                    string           `json:"id"`
	OrderNumber           string           `json:"order_number"`
	UserID                *string          `json:"user_id,omitempty"`
	Status                string           `json:"status"`
	PaymentStatus         string           `json:"payment_status"`
	PaymentMethod         string           `json:"payment_method,omitempty"`
	PaymentIntentID       string           `json:"payment_intent_id,omitempty"`
	FulfillmentType       string           `json:"fulfillment_type"`
	RequestedDate         *time.Time       `json:"requested_date,omitempty"`
	RequestedTimeSlot     string           `json:"requested_time_slot,omitempty"`
	ContactEmail          string           `json:"contact_email"`
	ContactPhone          string           `json:"contact_phone,omitempty"`
	CustomerNotes         string           `json:"customer_notes,omitempty"`
	InternalNotes         string           `json:"internal_notes,omitempty"`
	ShippingAddress       *AddressSnapshot `json:"shipping_address,omitempty"`
	BillingAddress        *AddressSnapshot `json:"billing_address,omitempty"`
	BillingSameAsShipping bool             `json:"billing_same_as_shipping"`
	PromoCode             string           `json:"promo_code,omitempty"`
	Subtotal              int64            `json:"subtotal"`
	ShippingCost          int64            `json:"shipping_cost"`
	TaxAmount             int64            `json:"tax_amount"`
	DiscountAmount        int64            `json:"discount_amount"`
	Total                 int64            `json:"total"`
	ConfirmedAt           *time.Time       `json:"confirmed_at,omitempty"`
	PreparingAt           *time.Time       `json:"preparing_at,omitempty"`
	ReadyAt               *time.Time       `json:"ready_at,omitempty"`
	CompletedAt           *time.Time       `json:"completed_at,omitempty"`
	CancelledAt           *time.Time       `json:"cancelled_at,omitempty"`
	CancellationReason    string           `json:"cancellation_reason,omitempty"`
	Items                 []OrderItem      `json:"items"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// OrderItem is a line of an order with the product frozen at purchase time.
type OrderItem struct {
	ID                  string          `json:"id"`
	OrderID             string          `json:"order_id"`
	ProductID           *string         `json:"product_id,omitempty"`
	ProductName         string          `json:"product_name"`
	ProductSKU          string          `json:"product_sku"`
	ProductSnapshot     json.RawMessage `json:"product_snapshot,omitempty"`
	Quantity            int             `json:"quantity"`
	UnitPrice           int64           `json:"unit_price"`
	Subtotal            int64           `json:"subtotal"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
}

// ProductSnapshot is the product data stored on an order item.
type ProductSnapshot struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Price        int64  `json:"price"`
	Description  string `json:"description,omitempty"`
	IsGlutenFree bool   `json:"is_gluten_free"`
	IsDairyFree  bool   `json:"is_dairy_free"`
	IsVegan      bool   `json:"is_vegan"`
}

// SnapshotOf builds the order item snapshot of p.
func SnapshotOf(p *Product) ProductSnapshot {
	desc := p.ShortDescription
	if desc == "" {
		desc = p.Description
		if r := []rune(desc); len(r) > 200 {
			desc = string(r[:200])
		}
	}
	return ProductSnapshot{
		ID:           p.ID,
		Name:         p.Name,
		SKU:          p.SKU,
		Price:        p.Price,
		Description:  desc,
		IsGlutenFree: p.IsGlutenFree,
		IsDairyFree:  p.IsDairyFree,
		IsVegan:      p.IsVegan,
	}
}

var orderTransitions = map[string][]string{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusReady},
	OrderStatusReady:          {OrderStatusOutForDelivery, OrderStatusPickedUp},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
}

// ValidOrderStatuses returns all order statuses in lifecycle order.
func ValidOrderStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
		OrderStatusPickedUp,
		OrderStatusCancelled,
	}
}

func IsValidOrderStatus(status string) bool {
	return slices.Contains(ValidOrderStatuses(), status)
}

func IsValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

// AllowedTransitions returns the statuses reachable from status.
func AllowedTransitions(status string) []string {
	return slices.Clone(orderTransitions[status])
}

// CanTransitionTo checks if the order can move to target.
func (o *Order) CanTransitionTo(target string) bool {
	return slices.Contains(orderTransitions[o.Status], target)
}

// TransitionTo moves the order to target and stamps the matching timestamp.
// It reports false, leaving the order untouched, when the move is illegal.
func (o *Order) TransitionTo(target, reason string, now time.Time) bool {
	if !o.CanTransitionTo(target) {
		return false
	}
	o.Status = target
	o.UpdatedAt = now
	switch target {
	case OrderStatusConfirmed:
		o.ConfirmedAt = &now
	case OrderStatusPreparing:
		o.PreparingAt = &now
	case OrderStatusReady:
		o.ReadyAt = &now
	case OrderStatusDelivered, OrderStatusPickedUp:
		o.CompletedAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
		o.CancellationReason = reason
	}
	return true
}

// IsCancellable is true while the bakery has not started on the order.
func (o *Order) IsCancellable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

func (o *Order) IsModifiable() bool {
	return o.Status == OrderStatusPending
}

// IsCompleted is true for delivered or picked up orders.
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusPickedUp
}

// OrderState is the pair of statuses a guarded order update expects to
// find in storage.
type OrderState struct {
	Status        string
	PaymentStatus string
}

// State returns the current statuses of o.
func (o *Order) State() OrderState {
	return OrderState{Status: o.Status, PaymentStatus: o.PaymentStatus}
}

// CalculateTotal sets Total from its parts, never below zero.
func (o *Order) CalculateTotal() {
	total := o.Subtotal + o.ShippingCost + o.TaxAmount - o.DiscountAmount
	if total < 0 {
		total = 0
	}
	o.Total = total
}

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOrderNumber returns a number such as BB-261016-7KQ2.
func GenerateOrderNumber(now time.Time) string {
	suffix := make([]byte, 4)
	limit := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			n = big.NewInt((now.UnixNano() + int64(i)) % limit.Int64())
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}
	return "BB-" + now.UTC().Format("060102") + "-" + string(suffix)
}

// StatusMessage is the customer-facing headline for a status email.
func StatusMessage(status string) string {
	switch status {
	case OrderStatusConfirmed:
		return "Your order has been confirmed"
	case OrderStatusPreparing:
		return "We're preparing your order"
	case OrderStatusReady:
		return "Your order is ready"
	case OrderStatusOutForDelivery:
		return "Your order is on its way"
	case OrderStatusDelivered:
		return "Your order has been delivered"
	case OrderStatusPickedUp:
		return "Your order has been picked up"
	case OrderStatusCancelled:
		return "Your order has been cancelled"
	default:
		return "Order status: " + status
	}
}
