// Package money holds the pricing arithmetic shared by checkout and the
// integrity check. Every function is pure and works on exact decimals.
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// TaxRate is the flat sales tax applied to orders from the taxable region.
var TaxRate = decimal.RequireFromString("0.085")

var taxableRegion = regexp.MustCompile(`(?i)^ca(lifornia)?$`)

// Item is one priced cart line.
type Item struct {
	Price    decimal.Decimal
	Discount decimal.Decimal
	Quantity int
}

// DiscountedUnitPrice returns price - price*discount rounded half-up to
// cents. A zero discount returns price untouched.
func DiscountedUnitPrice(price, discount decimal.Decimal) decimal.Decimal {
	if discount.IsZero() {
		return price
	}
	return price.Sub(price.Mul(discount)).Round(2)
}

// Subtotal sums the discounted line totals and rounds only the final sum.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		line := DiscountedUnitPrice(it.Price, it.Discount).Mul(decimal.NewFromInt(int64(it.Quantity)))
		sum = sum.Add(line)
	}
	return sum.Round(2)
}

// DiscountTotal is the amount taken off the undiscounted subtotal.
func DiscountTotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		off := it.Price.Sub(DiscountedUnitPrice(it.Price, it.Discount))
		sum = sum.Add(off.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.Round(2)
}

// Taxable reports whether region is the taxable jurisdiction (California,
// by full name or abbreviation, any case).
func Taxable(region string) bool {
	return taxableRegion.MatchString(strings.TrimSpace(region))
}

// Tax returns the sales tax owed on subtotal for region.
func Tax(subtotal decimal.Decimal, region string) decimal.Decimal {
	if !Taxable(region) {
		return decimal.Zero.Round(2)
	}
	return subtotal.Mul(TaxRate).Round(2)
}

// Total returns subtotal + tax + shipping rounded to cents.
func Total(subtotal decimal.Decimal, region string, shipping decimal.Decimal) decimal.Decimal {
	return subtotal.Add(Tax(subtotal, region)).Add(shipping).Round(2)
}

// Fixed renders d with exactly two fractional digits.
func Fixed(d decimal.Decimal) string { return d.StringFixed(2) }
