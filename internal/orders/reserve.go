package orders

import (
	"context"
	"errors"
	"fmt"
)

// Reserve decrements stock for each item in order. On the first item that
// cannot be decremented it stops, puts back every decrement it already made
// and returns an insufficient quantity error naming that item.
func Reserve(ctx context.Context, stock StockStore, items []LineItem) ([]Reservation, error) {
	applied := make([]Reservation, 0, len(items))
	for _, it := range items {
		ok, err := stock.DecrementQuantity(ctx, it.ProductID, it.Quantity)
		if err == nil && ok {
			applied = append(applied, Reservation{ProductID: it.ProductID, Quantity: it.Quantity})
			continue
		}

		relErr := release(context.WithoutCancel(ctx), stock, applied)
		if err != nil {
			err = fmt.Errorf("reserve product %d: %w", it.ProductID, err)
		} else {
			err = InsufficientQuantityError(displayName(it))
		}
		if relErr != nil {
			return nil, errors.Join(err, relErr)
		}
		return nil, err
	}
	return applied, nil
}

func release(ctx context.Context, stock StockStore, applied []Reservation) error {
	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		r := applied[i]
		if err := stock.IncrementQuantity(ctx, r.ProductID, r.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("release product %d: %w", r.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

func displayName(it LineItem) string {
	if it.Name != "" {
		return it.Name
	}
	return fmt.Sprintf("product %d", it.ProductID)
}
