package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Reserve decrements stock for every line and fills in line and order totals.
// It is not idempotent: each call takes the quantities again. A failed
// adjustment stops the loop; undoing earlier lines is the caller's
// transaction's job.
func Reserve(ctx context.Context, inv Inventory, o Order) (Order, error) {
	if len(o.Lines) == 0 {
		return o, ErrEmptyOrder
	}
	total := decimal.Zero
	items := 0
	lines := make([]OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		if err := inv.AdjustStock(ctx, l.ProductID, -l.Quantity); err != nil {
			return o, fmt.Errorf("reserve funko %d: %w", l.ProductID, err)
		}
		l.Total = l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		lines[i] = l
		total = total.Add(l.Total)
		items += l.Quantity
	}
	o.Lines = lines
	o.Total = total
	o.TotalItems = items
	return o, nil
}

// Reverse gives back the quantities a previous Reserve took. Lines whose
// product has left the catalog have nowhere to return to; they are skipped and
// their ids reported so the order itself can still be updated or removed.
func Reverse(ctx context.Context, inv Inventory, o Order) (skipped []int64, err error) {
	for _, l := range o.Lines {
		err = inv.AdjustStock(ctx, l.ProductID, l.Quantity)
		if errors.Is(err, ErrProductNotFound) {
			skipped = append(skipped, l.ProductID)
			continue
		}
		if err != nil {
			return skipped, fmt.Errorf("return stock funko %d: %w", l.ProductID, err)
		}
	}
	return skipped, nil
}
