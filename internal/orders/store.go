package orders

import (
	"context"
	"errors"
)

// ErrStatusMismatch is returned by Store.UpdateOrderStatus when the order
// exists but is not in one of the expected statuses.
var ErrStatusMismatch = errors.New("status mismatch")

// ProductReader reads authoritative product data.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
}

// StockStore performs the atomic stock moves of a reservation. Decrement
// reports false when the product is missing, inactive or short on stock.
type StockStore interface {
	DecrementQuantity(ctx context.Context, productID int64, qty int) (bool, error)
	IncrementQuantity(ctx context.Context, productID int64, qty int) error
}

// Tx is one order placement transaction.
type Tx interface {
	StockStore
	InsertOrder(ctx context.Context, o *Order) error
	InsertOrderItems(ctx context.Context, orderID string, items []Reservation) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the relational store behind the order service.
type Store interface {
	ProductReader
	Begin(ctx context.Context) (Tx, error)
	ListProducts(ctx context.Context) ([]Product, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, limit int) ([]OrderSummary, error)
	UpdateOrderStatus(ctx context.Context, id string, from []Status, to Status) error
	DeleteOrder(ctx context.Context, id string) error
}
