package orders

import (
	"context"
	"fmt"

	"github.com/ariefcatur/widget-store/internal/money"
	"github.com/jackc/pgx/v5"
)

// repoTx is one placement transaction. Stock moves are single conditional
// statements, so the row lock is taken and the floor checked atomically.
type repoTx struct{ tx pgx.Tx }

func (t *repoTx) DecrementQuantity(ctx context.Context, productID int64, qty int) (bool, error) {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET quantity = quantity - $2
		WHERE product_id=$1 AND is_active AND quantity >= $2`, productID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (t *repoTx) IncrementQuantity(ctx context.Context, productID int64, qty int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET quantity = quantity + $2 WHERE product_id=$1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("product %d vanished", productID)
	}
	return nil
}

func (t *repoTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(order_id, customer, customer_info, total_items_quantity,
		                   subtotal, discount, tax, shipping_cost, total,
		                   shipping_method, shipping_address, processor_transaction, status, order_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.Customer, jsonArg(o.CustomerInfo), o.TotalItemsQuantity,
		money.Fixed(o.Subtotal.Decimal), money.Fixed(o.Discount.Decimal), money.Fixed(o.Tax.Decimal),
		money.Fixed(o.ShippingCost.Decimal), money.Fixed(o.Total.Decimal),
		jsonArg(o.ShippingMethod), jsonArg(o.ShippingAddress), jsonArg(o.ProcessorTransaction),
		string(o.Status), o.OrderDate,
	)
	return err
}

func (t *repoTx) InsertOrderItems(ctx context.Context, orderID string, items []Reservation) error {
	b := &pgx.Batch{}
	for _, it := range items {
		b.Queue(`INSERT INTO orders_products(order_id, product_id, quantity) VALUES ($1,$2,$3)`,
			orderID, it.ProductID, it.Quantity)
	}
	br := t.tx.SendBatch(ctx, b)
	for range items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

func (t *repoTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *repoTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
