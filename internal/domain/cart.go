package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart is a shopping cart owned by a user or a guest session. It lives in
// Redis; Version guards concurrent writers.
type Cart struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id,omitempty"`
	SessionID             string     `json:"session_id,omitempty"`
	RequestedDeliveryDate *time.Time `json:"requested_delivery_date,omitempty"`
	DeliveryTimeSlot      string     `json:"delivery_time_slot,omitempty"`
	Items                 []CartItem `json:"items"`
	PromoCode             string     `json:"promo_code,omitempty"`
	Version               int64      `json:"version"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// CartItem is one line in a cart. UnitPrice is captured when the line is
// added so later price changes do not affect it.
type CartItem struct {
	ID                  string    `json:"id"`
	ProductID           string    `json:"product_id"`
	ProductName         string    `json:"product_name"`
	ProductSlug         string    `json:"product_slug"`
	ProductSKU          string    `json:"product_sku"`
	ImageURL            string    `json:"image_url,omitempty"`
	Quantity            int       `json:"quantity"`
	UnitPrice           int64     `json:"unit_price"`
	SpecialInstructions string    `json:"special_instructions,omitempty"`
	AddedAt             time.Time `json:"added_at"`
}

// NewCart creates an empty cart for a user or a guest session.
func NewCart(userID, sessionID string, now time.Time) *Cart {
	return &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LineTotal returns unit price times quantity.
func (i *CartItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Subtotal is the sum of line totals in cents.
func (c *Cart) Subtotal() int64 {
	var total int64
	for i := range c.Items {
		total += c.Items[i].LineTotal()
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// FindItem returns the line with the given id, or nil.
func (c *Cart) FindItem(itemID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// findLine returns the line for the same product with identical
// instructions; such lines are merged instead of duplicated.
func (c *Cart) findLine(productID, instructions string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].SpecialInstructions == instructions {
			return &c.Items[i]
		}
	}
	return nil
}

// AddItem merges item into a matching line or appends it, and returns the
// resulting line.
func (c *Cart) AddItem(item CartItem, now time.Time) *CartItem {
	c.UpdatedAt = now
	if line := c.findLine(item.ProductID, item.SpecialInstructions); line != nil {
		line.Quantity += item.Quantity
		return line
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = now
	}
	c.Items = append(c.Items, item)
	return &c.Items[len(c.Items)-1]
}

// RemoveItem drops a line and reports whether it existed.
func (c *Cart) RemoveItem(itemID string, now time.Time) bool {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = now
			return true
		}
	}
	return false
}

// Clear removes all lines and the promo code.
func (c *Cart) Clear(now time.Time) {
	c.Items = []CartItem{}
	c.PromoCode = ""
	c.UpdatedAt = now
}

// Merge folds a guest cart into c. Matching lines have their quantities
// summed, other lines are moved over with their original price, and the
// guest's delivery preferences and promo code fill in only what c lacks.
func (c *Cart) Merge(guest *Cart, now time.Time) {
	if guest == nil {
		return
	}
	for _, item := range guest.Items {
		if line := c.findLine(item.ProductID, item.SpecialInstructions); line != nil {
			line.Quantity += item.Quantity
			continue
		}
		item.ID = uuid.NewString()
		c.Items = append(c.Items, item)
	}
	if c.RequestedDeliveryDate == nil && guest.RequestedDeliveryDate != nil {
		d := *guest.RequestedDeliveryDate
		c.RequestedDeliveryDate = &d
	}
	if c.DeliveryTimeSlot == "" {
		c.DeliveryTimeSlot = guest.DeliveryTimeSlot
	}
	if c.PromoCode == "" {
		c.PromoCode = guest.PromoCode
	}
	c.UpdatedAt = now
}
