package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// PlaceOrderRequest is the body of POST /orders.
type PlaceOrderRequest struct {
	Cart      *Cart      `json:"cart" validate:"required"`
	OrderData *OrderData `json:"orderData" validate:"required"`
	Nonce     string     `json:"nonce" validate:"required"`
}

type Cart struct {
	Items        map[string]CartItem `json:"items" validate:"required,min=1,dive"`
	Subtotal     decimal.Decimal     `json:"subtotal"`
	NumCartItems int                 `json:"numCartItems" validate:"gte=0"`
}

type CartItem struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0,lte=2147483647"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
	Name      string          `json:"name"`
}

type OrderData struct {
	Customer        Customer         `json:"customer"`
	Shipping        *Shipping        `json:"shipping" validate:"required"`
	Tax             decimal.Decimal  `json:"tax"`
	Total           decimal.Decimal  `json:"total"`
	ShippingAddress json.RawMessage  `json:"shippingAddress,omitempty"`
	Discount        *decimal.Decimal `json:"discount,omitempty"`
}

// Customer keeps the submitted customer object verbatim for storage and
// exposes the fields the service reads.
type Customer struct {
	UserID *int64 `json:"user_id,omitempty"`
	State  string `json:"state"`

	raw json.RawMessage
}

func (c *Customer) UnmarshalJSON(b []byte) error {
	type plain Customer
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = Customer(p)
	c.raw = append(json.RawMessage(nil), b...)
	return nil
}

// Shipping keeps the submitted shipping object verbatim; only the cost is read.
type Shipping struct {
	Details struct {
		Cost decimal.Decimal `json:"cost"`
	} `json:"details"`

	raw json.RawMessage
}

func (s *Shipping) UnmarshalJSON(b []byte) error {
	type plain Shipping
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = Shipping(p)
	s.raw = append(json.RawMessage(nil), b...)
	return nil
}

// Checkout is a validated order placement attempt.
type Checkout struct {
	Items           []LineItem
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	ShippingCost    decimal.Decimal
	Region          string
	Nonce           string
	Customer        *int64
	CustomerInfo    json.RawMessage
	ShippingMethod  json.RawMessage
	ShippingAddress json.RawMessage
	TraceID         string
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Checkout validates the request shape and converts it into a Checkout.
// Failures are validation errors; nothing here touches storage.
func (r *PlaceOrderRequest) Checkout(v *validatorv10.Validate) (Checkout, error) {
	if err := v.Struct(r); err != nil {
		return Checkout{}, validationFailure(err)
	}
	cost := r.OrderData.Shipping.Details.Cost
	if cost.IsNegative() {
		return Checkout{}, ValidationError("orderData.shipping.details.cost must not be negative")
	}
	items, err := r.Cart.LineItems()
	if err != nil {
		return Checkout{}, err
	}
	return Checkout{
		Items:           items,
		Subtotal:        r.Cart.Subtotal,
		Tax:             r.OrderData.Tax,
		Total:           r.OrderData.Total,
		ShippingCost:    cost,
		Region:          r.OrderData.Region(),
		Nonce:           r.Nonce,
		CustomerInfo:    r.OrderData.Customer.raw,
		ShippingMethod:  r.OrderData.Shipping.raw,
		ShippingAddress: r.OrderData.ShippingAddress,
	}, nil
}

// Region is the customer's state, falling back to the shipping address.
func (d *OrderData) Region() string {
	if d.Customer.State != "" {
		return d.Customer.State
	}
	if len(d.ShippingAddress) > 0 {
		var addr struct {
			State string `json:"state"`
		}
		if json.Unmarshal(d.ShippingAddress, &addr) == nil {
			return addr.State
		}
	}
	return ""
}

// LineItems returns the cart lines ordered by product id. Each map key must
// be the item's own product_id.
func (c *Cart) LineItems() ([]LineItem, error) {
	items := make([]LineItem, 0, len(c.Items))
	for key, it := range c.Items {
		if key != strconv.FormatInt(it.ProductID, 10) {
			return nil, ValidationError("cart.items[%s]: key does not match product_id %d", key, it.ProductID)
		}
		items = append(items, LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Discount:  it.Discount,
		})
	}
	slices.SortFunc(items, func(a, b LineItem) int {
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		}
		return 0
	})
	return items, nil
}

func validationFailure(err error) *Error {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, fe.Tag()))
	}
	return &Error{Kind: KindValidation, Message: strings.Join(msgs, "; "), Err: err}
}
