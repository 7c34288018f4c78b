package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		product_id BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		price      NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		discount   NUMERIC(3,2) NOT NULL DEFAULT 0 CHECK (discount >= 0 AND discount < 1),
		quantity   INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		date_added TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id              UUID PRIMARY KEY,
		customer              BIGINT,
		customer_info         JSONB,
		total_items_quantity  INTEGER NOT NULL CHECK (total_items_quantity > 0),
		subtotal              NUMERIC(12,2) NOT NULL,
		discount              NUMERIC(12,2) NOT NULL DEFAULT 0,
		tax                   NUMERIC(12,2) NOT NULL,
		shipping_cost         NUMERIC(12,2) NOT NULL,
		total                 NUMERIC(12,2) NOT NULL,
		shipping_method       JSONB,
		shipping_address      JSONB,
		processor_transaction JSONB,
		status                TEXT NOT NULL DEFAULT 'placed',
		order_date            TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS orders_order_date_idx ON orders (order_date DESC)`,
	`CREATE INDEX IF NOT EXISTS orders_customer_idx ON orders (customer)`,
	`CREATE TABLE IF NOT EXISTS orders_products (
		order_id   UUID NOT NULL REFERENCES orders(order_id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(product_id),
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (order_id, product_id)
	)`,
}

// Migrate creates the store's tables when they do not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
