package postgres

import (
	"context"
	"errors"

	"github.com/funkoshop/order-service/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type InventoryRepo struct{ DB *pgxpool.Pool }

var _ orders.Inventory = (*InventoryRepo)(nil)

func (r *InventoryRepo) GetProduct(ctx context.Context, id int64) (orders.Product, error) {
	var (
		p     orders.Product
		price string
	)
	err := conn(ctx, r.DB).QueryRow(ctx, `SELECT id, name, price::text, stock FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &price, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Product{}, err
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return orders.Product{}, err
	}
	return p, nil
}

// AdjustStock is a single conditional UPDATE, so the stock check and the
// write cannot be split by another transaction.
func (r *InventoryRepo) AdjustStock(ctx context.Context, id int64, delta int) error {
	q := conn(ctx, r.DB)
	ct, err := q.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0`, id, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return orders.ErrProductNotFound
	}
	return orders.ErrInsufficientStock
}

// CreateProduct seeds the catalog; the catalog service owns products in production.
func (r *InventoryRepo) CreateProduct(ctx context.Context, p *orders.Product) error {
	return conn(ctx, r.DB).QueryRow(ctx,
		`INSERT INTO products(name, price, stock) VALUES ($1, $2::numeric, $3) RETURNING id`,
		p.Name, p.Price.String(), p.Stock,
	).Scan(&p.ID)
}

type ClientRepo struct{ DB *pgxpool.Pool }

var _ orders.ClientDirectory = (*ClientRepo)(nil)

func (r *ClientRepo) ClientExists(ctx context.Context, clientID string) (bool, error) {
	var ok bool
	err := conn(ctx, r.DB).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, clientID).Scan(&ok)
	return ok, err
}
