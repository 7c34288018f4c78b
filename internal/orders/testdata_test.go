package orders

import (
	"github.com/ariefcatur/widget-store/internal/money"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	tv       = Product{ID: 1, Name: "TV", Price: dec("400.40"), Discount: dec("0.00"), Quantity: 10, IsActive: true}
	remote   = Product{ID: 2, Name: "Remote", Price: dec("40.20"), Discount: dec("0.15"), Quantity: 5, IsActive: true}
	widget   = Product{ID: 3, Name: "Widget", Price: dec("10.00"), Discount: dec("0.00"), Quantity: 2, IsActive: true}
	retired  = Product{ID: 4, Name: "Retired", Price: dec("5.00"), Discount: dec("0.00"), Quantity: 9, IsActive: false}
	catalogs = []Product{tv, remote, widget, retired}
)

func line(p Product, qty int) LineItem {
	return LineItem{ProductID: p.ID, Name: p.Name, Quantity: qty, Price: p.Price, Discount: p.Discount}
}

// honestCheckout builds a checkout whose claimed pricing is correct.
func honestCheckout(region, shipping string, items ...LineItem) Checkout {
	priced := make([]money.Item, 0, len(items))
	for _, it := range items {
		priced = append(priced, money.Item{Price: it.Price, Discount: it.Discount, Quantity: it.Quantity})
	}
	sub := money.Subtotal(priced)
	ship := dec(shipping)
	return Checkout{
		Items:          items,
		Subtotal:       sub,
		Tax:            money.Tax(sub, region),
		Total:          money.Total(sub, region, ship),
		ShippingCost:   ship,
		Region:         region,
		Nonce:          "fake-valid-nonce",
		CustomerInfo:   []byte(`{"state":"` + region + `"}`),
		ShippingMethod: []byte(`{"details":{"cost":"` + shipping + `"}}`),
	}
}
