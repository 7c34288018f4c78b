package orders

import (
	"context"
	"fmt"

	"github.com/ariefcatur/widget-store/internal/money"
	"github.com/shopspring/decimal"
)

// Claim is the pricing a client submitted with its cart.
type Claim struct {
	Items    []LineItem
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Shipping decimal.Decimal
	Region   string
}

// Verifier recomputes an order's pricing from stored product data and
// rejects any claim that differs from it.
type Verifier struct {
	Products ProductReader
}

func (v Verifier) Verify(ctx context.Context, c Claim) (Pricing, error) {
	priced := make([]money.Item, 0, len(c.Items))
	for _, it := range c.Items {
		p, err := v.Products.GetProduct(ctx, it.ProductID)
		if err != nil {
			if KindOf(err) == KindNotFound {
				return Pricing{}, IntegrityError(fmt.Errorf("product %d does not exist", it.ProductID))
			}
			return Pricing{}, fmt.Errorf("load product %d: %w", it.ProductID, err)
		}
		if !p.IsActive {
			return Pricing{}, IntegrityError(fmt.Errorf("product %d is not for sale", it.ProductID))
		}
		if !p.Price.Equal(it.Price) || !p.Discount.Equal(it.Discount) {
			return Pricing{}, IntegrityError(fmt.Errorf("product %d: claimed price %s discount %s, stored %s discount %s",
				it.ProductID, it.Price, it.Discount, p.Price, p.Discount))
		}
		priced = append(priced, money.Item{Price: p.Price, Discount: p.Discount, Quantity: it.Quantity})
	}

	subtotal := money.Subtotal(priced)
	tax := money.Tax(subtotal, c.Region)
	total := money.Total(subtotal, c.Region, c.Shipping)
	if !subtotal.Equal(c.Subtotal) || !tax.Equal(c.Tax) || !total.Equal(c.Total) {
		return Pricing{}, IntegrityError(fmt.Errorf("claimed subtotal/tax/total %s/%s/%s, computed %s/%s/%s",
			c.Subtotal, c.Tax, c.Total, money.Fixed(subtotal), money.Fixed(tax), money.Fixed(total)))
	}

	return Pricing{
		Subtotal: subtotal,
		Discount: money.DiscountTotal(priced),
		Tax:      tax,
		Shipping: c.Shipping,
		Total:    total,
	}, nil
}
