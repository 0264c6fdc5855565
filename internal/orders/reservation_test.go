package orders_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/funkoshop/order-service/internal/memstore"
	"github.com/funkoshop/order-service/internal/orders"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func order(lines ...orders.LineInput) orders.Order {
	return orders.ToOrder(orders.OrderInput{Lines: lines})
}

func TestValidate_DoesNotMutate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	require.NoError(t, orders.Validate(ctx, f.store, order(line(1, 10, "5.00"), line(2, 4, "12.50"))))
	assert.Equal(t, 10, stockOf(t, f.store, 1))
	assert.Equal(t, 4, stockOf(t, f.store, 2))
}

func TestValidate_FirstFailingLineWins(t *testing.T) {
	f := setup(t)
	err := orders.Validate(context.Background(), f.store, order(line(1, 1, "9.99"), line(99, 1, "1")))
	assert.ErrorIs(t, err, orders.ErrPriceMismatch)
	assert.NotErrorIs(t, err, orders.ErrProductNotFound)
}

func TestValidate_PriceComparedByValue(t *testing.T) {
	f := setup(t)
	// 5 and 5.00 are the same amount
	assert.NoError(t, orders.Validate(context.Background(), f.store, order(line(1, 1, "5"))))
}

func TestReserve_ComputesTotals(t *testing.T) {
	f := setup(t)
	o, err := orders.Reserve(context.Background(), f.store, order(line(1, 3, "5.00"), line(2, 1, "12.50")))
	require.NoError(t, err)
	assert.Equal(t, 4, o.TotalItems)
	assert.True(t, o.Total.Equal(dec("27.50")))
	assert.True(t, o.Lines[1].Total.Equal(dec("12.50")))
	assert.Equal(t, 7, stockOf(t, f.store, 1))
	assert.Equal(t, 3, stockOf(t, f.store, 2))
}

func TestReserve_EmptyOrder(t *testing.T) {
	f := setup(t)
	_, err := orders.Reserve(context.Background(), f.store, order())
	assert.ErrorIs(t, err, orders.ErrEmptyOrder)
}

func TestReserve_StopsAtFailingLine(t *testing.T) {
	f := setup(t)
	_, err := orders.Reserve(context.Background(), f.store, order(line(1, 1, "5.00"), line(2, 5, "12.50"), line(1, 1, "5.00")))
	require.ErrorIs(t, err, orders.ErrInsufficientStock)
	// only the first line ran; the surrounding transaction owns the rollback
	assert.Equal(t, 9, stockOf(t, f.store, 1))
	assert.Equal(t, 4, stockOf(t, f.store, 2))
}

func TestReserve_RolledBackInsideTx(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	err := f.store.WithinTx(ctx, func(ctx context.Context) error {
		_, err := orders.Reserve(ctx, f.store, order(line(1, 1, "5.00"), line(2, 5, "12.50")))
		return err
	})
	require.ErrorIs(t, err, orders.ErrInsufficientStock)
	assert.Equal(t, 10, stockOf(t, f.store, 1))
}

func TestReverse_RestoresStock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o, err := orders.Reserve(ctx, f.store, order(line(1, 3, "5.00"), line(1, 2, "5.00")))
	require.NoError(t, err)
	assert.Equal(t, 5, stockOf(t, f.store, 1))
	skipped, err := orders.Reverse(ctx, f.store, o)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, 10, stockOf(t, f.store, 1))
}

func TestReverse_SkipsProductsGoneFromCatalog(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o, err := orders.Reserve(ctx, f.store, order(line(2, 1, "12.50"), line(1, 3, "5.00")))
	require.NoError(t, err)
	f.store.RemoveProduct(ctx, 2)

	skipped, err := orders.Reverse(ctx, f.store, o)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, skipped)
	assert.Equal(t, 10, stockOf(t, f.store, 1))
}

// Reserving then reversing any accepted order leaves the catalog untouched,
// and a create/remove pair through the service does the same.
func TestReserveReverse_InverseProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := memstore.New()
		nProducts := rapid.IntRange(1, 5).Draw(rt, "products")
		initial := make(map[int64]int, nProducts)
		for i := 1; i <= nProducts; i++ {
			stock := rapid.IntRange(0, 50).Draw(rt, fmt.Sprintf("stock%d", i))
			initial[int64(i)] = stock
			store.PutProduct(ctx, orders.Product{ID: int64(i), Price: dec("2.50"), Stock: stock})
		}
		svc := orders.NewService(orders.Deps{Inventory: store, Orders: store, Tx: store, Logger: zerolog.Nop()})

		nLines := rapid.IntRange(1, 6).Draw(rt, "lines")
		lines := make([]orders.LineInput, 0, nLines)
		for i := 0; i < nLines; i++ {
			id := int64(rapid.IntRange(1, nProducts).Draw(rt, "id"))
			qty := rapid.IntRange(1, 20).Draw(rt, "qty")
			lines = append(lines, line(id, qty, "2.50"))
		}

		o, err := svc.Create(ctx, orders.OrderInput{Lines: lines})
		if err != nil {
			if !orders.IsValidation(err) {
				rt.Fatalf("unexpected error: %v", err)
			}
		} else {
			want := 0
			for _, l := range lines {
				want += l.Quantity
			}
			if o.TotalItems != want {
				rt.Fatalf("total items %d, want %d", o.TotalItems, want)
			}
			if err := svc.Remove(ctx, o.ID); err != nil {
				rt.Fatalf("remove: %v", err)
			}
		}
		for id, stock := range initial {
			p, err := store.GetProduct(ctx, id)
			if err != nil {
				rt.Fatal(err)
			}
			if p.Stock != stock {
				rt.Fatalf("product %d stock %d, want %d", id, p.Stock, stock)
			}
		}
	})
}
