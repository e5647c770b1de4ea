// Package money does arithmetic on integer cent amounts. Values are stored
// and transported as int64 cents; decimal is used only where a fraction
// appears (percentages, averages, formatting).
package money

import (
	"github.com/shopspring/decimal"
)

// BasisPoints per whole (100.00%).
const BasisPoints = 10000

var hundred = decimal.NewFromInt(100)

// Format renders cents as a dollar string such as "$12.50" or "-$3.00".
func Format(cents int64) string {
	d := decimal.New(cents, -2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// ToDecimal converts cents to a dollar amount.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FromDecimal converts a dollar amount to cents, rounding half away from zero.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// Percent returns amount*bp/10000 rounded half up to the nearest cent.
func Percent(amount int64, bp int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(bp)).
		Div(decimal.NewFromInt(BasisPoints)).
		Round(0).
		IntPart()
}

// Average returns total/count in cents, or 0 when count is zero.
func Average(total int64, count int64) int64 {
	if count == 0 {
		return 0
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(count)).Round(0).IntPart()
}

// Growth returns the percentage change from previous to current rounded to
// one decimal place. A zero baseline yields 100 when current is positive.
func Growth(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	g := decimal.NewFromInt(current - previous).
		Div(decimal.NewFromInt(previous)).
		Mul(hundred).
		Round(1)
	f, _ := g.Float64()
	return f
}

// RoundRating rounds an average rating to one decimal place.
func RoundRating(sum, count int64) float64 {
	if count == 0 {
		return 0
	}
	f, _ := decimal.NewFromInt(sum).Div(decimal.NewFromInt(count)).Round(1).Float64()
	return f
}
