package orders

import "github.com/shopspring/decimal"

// ToOrder maps caller input to an unsaved order shape. Totals from the input
// are dropped; the reservation engine recomputes them.
func ToOrder(in OrderInput) Order {
	lines := make([]OrderLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
			Total:     decimal.Zero,
		})
	}
	return Order{
		ClientID:  in.ClientID,
		Client:    in.Client,
		Lines:     lines,
		Total:     decimal.Zero,
		IsDeleted: false,
	}
}
