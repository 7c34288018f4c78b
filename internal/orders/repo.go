package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the PostgreSQL Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &repoTx{tx: tx}, nil
}

const productColumns = `product_id, name, price, discount, quantity, is_active, date_added`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Discount, &p.Quantity, &p.IsActive, &p.DateAdded)
	return p, err
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE product_id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, NotFoundError("product %d not found", id)
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, NotFoundError("order %s not found", id)
	}

	var (
		o                                  Order
		status                             string
		info, method, address, transaction []byte
	)
	err := r.DB.QueryRow(ctx, `
		SELECT order_id, customer, customer_info, total_items_quantity,
		       subtotal, discount, tax, shipping_cost, total,
		       shipping_method, shipping_address, processor_transaction, status, order_date
		FROM orders WHERE order_id=$1`, id).Scan(
		&o.ID, &o.Customer, &info, &o.TotalItemsQuantity,
		&o.Subtotal, &o.Discount, &o.Tax, &o.ShippingCost, &o.Total,
		&method, &address, &transaction, &status, &o.OrderDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundError("order %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	o.Status = Status(status)
	o.CustomerInfo = json.RawMessage(info)
	o.ShippingMethod = json.RawMessage(method)
	o.ShippingAddress = json.RawMessage(address)
	o.ProcessorTransaction = json.RawMessage(transaction)

	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, quantity FROM orders_products
		WHERE order_id=$1 ORDER BY product_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	o.Items = []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) ListOrders(ctx context.Context, limit int) ([]OrderSummary, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, status, order_date, total FROM orders
		ORDER BY order_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []OrderSummary{}
	for rows.Next() {
		var (
			s      OrderSummary
			status string
		)
		if err := rows.Scan(&s.ID, &status, &s.OrderDate, &s.Total); err != nil {
			return nil, err
		}
		s.Status = Status(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateOrderStatus sets the status only while the order is in one of from.
func (r *Repo) UpdateOrderStatus(ctx context.Context, id string, from []Status, to Status) error {
	if _, err := uuid.Parse(id); err != nil {
		return NotFoundError("order %s not found", id)
	}
	prior := make([]string, 0, len(from))
	for _, s := range from {
		prior = append(prior, string(s))
	}
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2 WHERE order_id=$1 AND status = ANY($3)`,
		id, string(to), prior)
	if err != nil {
		return fmt.Errorf("update order %s: %w", id, err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE order_id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return NotFoundError("order %s not found", id)
	}
	return ErrStatusMismatch
}

func (r *Repo) DeleteOrder(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return NotFoundError("order %s not found", id)
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE order_id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError("order %s not found", id)
	}
	return nil
}

// jsonArg passes raw JSON to a JSONB parameter, NULL when empty.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
