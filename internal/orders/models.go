package orders

import (
	"encoding/json"
	"time"

	"github.com/ariefcatur/widget-store/internal/money"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
	Quantity  int             `json:"quantity"`
	IsActive  bool            `json:"is_active"`
	DateAdded time.Time       `json:"date_added"`
}

type Order struct {
	ID                   string          `json:"order_id"`
	Customer             *int64          `json:"customer"` // nil for guest checkout
	CustomerInfo         json.RawMessage `json:"customer_info,omitempty"`
	TotalItemsQuantity   int             `json:"total_items_quantity"`
	Subtotal             money.Amount    `json:"subtotal"`
	Discount             money.Amount    `json:"discount"`
	Tax                  money.Amount    `json:"tax"`
	ShippingCost         money.Amount    `json:"shipping_cost"`
	Total                money.Amount    `json:"total"`
	ShippingMethod       json.RawMessage `json:"shipping_method,omitempty"`
	ShippingAddress      json.RawMessage `json:"shipping_address,omitempty"`
	ProcessorTransaction json.RawMessage `json:"processor_transaction,omitempty"`
	Status               Status          `json:"status"`
	OrderDate            time.Time       `json:"order_date"`
	Items                []OrderItem     `json:"items"`
}

// OrderSummary is the row shape of the order listing.
type OrderSummary struct {
	ID        string       `json:"order_id"`
	Status    Status       `json:"status"`
	OrderDate time.Time    `json:"order_date"`
	Total     money.Amount `json:"total"`
}

type OrderItem struct {
	OrderID   string `json:"order_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// LineItem is a validated cart line. Price and Discount are what the client
// claims; they are only compared, never used for charging.
type LineItem struct {
	ProductID int64
	Name      string
	Quantity  int
	Price     decimal.Decimal
	Discount  decimal.Decimal
}

// Reservation is one applied stock decrement.
type Reservation struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Pricing is the server-side computation of an order's money fields.
type Pricing struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}
