package domain

import (
	"strings"
	"time"

	"github.com/FeliksML/web-cellar-sub000/pkg/money"
)

// Discount types.
const (
	DiscountPercentage  = "percentage"
	DiscountFixedAmount = "fixed_amount"
)

// PromoCode is a discount code. DiscountValue is in basis points for
// percentage codes (1500 = 15%) and in cents for fixed amounts.
type PromoCode struct {
	ID                string     `json:"id"`
	Code              string     `json:"code"`
	Description       string     `json:"description,omitempty"`
	DiscountType      string     `json:"discount_type"`
	DiscountValue     int64      `json:"discount_value"`
	MinimumOrderValue *int64     `json:"minimum_order_value,omitempty"`
	MaximumDiscount   *int64     `json:"maximum_discount,omitempty"`
	UsageLimit        *int       `json:"usage_limit,omitempty"`
	UsageCount        int        `json:"usage_count"`
	ValidFrom         *time.Time `json:"valid_from,omitempty"`
	ValidUntil        *time.Time `json:"valid_until,omitempty"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NormalizePromoCode upper-cases and trims a code as entered by a customer.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsValidDiscountType(t string) bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

// IsValid reports whether the code is active, inside its window and below
// its usage limit at now.
func (p *PromoCode) IsValid(now time.Time) bool {
	return p.invalidReason(now) == ""
}

func (p *PromoCode) invalidReason(now time.Time) string {
	switch {
	case !p.IsActive:
		return "Promo code is not active"
	case p.ValidFrom != nil && now.Before(*p.ValidFrom):
		return "Promo code is not yet valid"
	case p.ValidUntil != nil && now.After(*p.ValidUntil):
		return "Promo code has expired"
	case p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit:
		return "Promo code usage limit reached"
	}
	return ""
}

// CalculateDiscount returns the discount on total in cents. It is zero
// below the minimum order value and never exceeds total.
func (p *PromoCode) CalculateDiscount(total int64) int64 {
	if p.MinimumOrderValue != nil && total < *p.MinimumOrderValue {
		return 0
	}

	var discount int64
	if p.DiscountType == DiscountPercentage {
		discount = money.Percent(total, p.DiscountValue)
	} else {
		discount = p.DiscountValue
	}
	if p.MaximumDiscount != nil && discount > *p.MaximumDiscount {
		discount = *p.MaximumDiscount
	}
	if discount > total {
		discount = total
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// PromoValidation is the result of checking a code against an order total.
type PromoValidation struct {
	Valid          bool       `json:"valid"`
	PromoCode      *PromoCode `json:"promo_code,omitempty"`
	DiscountAmount int64      `json:"discount_amount"`
	Error          string     `json:"error,omitempty"`
}

// Validate checks the code for an order of total cents at now.
func (p *PromoCode) Validate(total int64, now time.Time) PromoValidation {
	if reason := p.invalidReason(now); reason != "" {
		return PromoValidation{Error: reason}
	}
	if p.MinimumOrderValue != nil && total < *p.MinimumOrderValue {
		return PromoValidation{Error: "Minimum order value of " + money.Format(*p.MinimumOrderValue) + " required"}
	}
	return PromoValidation{Valid: true, PromoCode: p, DiscountAmount: p.CalculateDiscount(total)}
}
