package orders

import (
	"context"
	"errors"
	"fmt"
)

// Validate checks every line against current inventory without mutating it.
// The first failing line decides the error.
func Validate(ctx context.Context, inv Inventory, o Order) error {
	if len(o.Lines) == 0 {
		return ErrEmptyOrder
	}
	for _, l := range o.Lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("funko %d: %w", l.ProductID, ErrInvalidQuantity)
		}
		p, err := inv.GetProduct(ctx, l.ProductID)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return fmt.Errorf("funko %d: %w", l.ProductID, ErrProductNotFound)
			}
			return fmt.Errorf("get product %d: %w", l.ProductID, err)
		}
		if p.Stock < l.Quantity && l.Quantity > 0 {
			return fmt.Errorf("funko %d (stock %d, requested %d): %w", l.ProductID, p.Stock, l.Quantity, ErrInsufficientStock)
		}
		if !p.Price.Equal(l.Price) {
			return fmt.Errorf("funko %d (price %s, got %s): %w", l.ProductID, p.Price, l.Price, ErrPriceMismatch)
		}
	}
	return nil
}
