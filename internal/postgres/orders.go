package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/funkoshop/order-service/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OrderRepo stores each order as one row with its client and lines as JSONB documents.
type OrderRepo struct{ DB *pgxpool.Pool }

var _ orders.OrderRepository = (*OrderRepo)(nil)

const orderColumns = `id::text, client_id, client, order_lines, total_items, total::text, is_deleted, created_at, updated_at`

func scanOrder(row pgx.Row) (orders.Order, error) {
	var (
		o          orders.Order
		client, ls []byte
		total      string
	)
	if err := row.Scan(&o.ID, &o.ClientID, &client, &ls, &o.TotalItems, &total, &o.IsDeleted, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return orders.Order{}, err
	}
	if err := json.Unmarshal(client, &o.Client); err != nil {
		return orders.Order{}, fmt.Errorf("decode client: %w", err)
	}
	if err := json.Unmarshal(ls, &o.Lines); err != nil {
		return orders.Order{}, fmt.Errorf("decode order lines: %w", err)
	}
	var err error
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return orders.Order{}, err
	}
	return o, nil
}

// FindByID locks the order row when called inside a transaction so two
// writers of the same order run one after the other.
func (r *OrderRepo) FindByID(ctx context.Context, id string) (orders.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return orders.Order{}, fmt.Errorf("order %s: %w", id, orders.ErrOrderNotFound)
	}
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if _, ok := txFrom(ctx); ok {
		q += ` FOR UPDATE`
	}
	o, err := scanOrder(conn(ctx, r.DB).QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, fmt.Errorf("order %s: %w", id, orders.ErrOrderNotFound)
	}
	return o, err
}

func (r *OrderRepo) FindPage(ctx context.Context, q orders.PageQuery) (orders.Page, error) {
	q = q.Normalize()
	db := conn(ctx, r.DB)

	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE is_deleted=$1`, q.IsDeleted).Scan(&total); err != nil {
		return orders.Page{}, err
	}
	rows, err := db.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE is_deleted=$1 ORDER BY created_at, id LIMIT $2 OFFSET $3`, q.IsDeleted, q.Limit, q.Offset())
	if err != nil {
		return orders.Page{}, err
	}
	items, err := collect(rows)
	if err != nil {
		return orders.Page{}, err
	}
	return orders.NewPage(items, total, q), nil
}

func (r *OrderRepo) FindByClient(ctx context.Context, clientID string) ([]orders.Order, error) {
	rows, err := conn(ctx, r.DB).Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE client_id=$1 ORDER BY created_at, id`, clientID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]orders.Order, error) {
	defer rows.Close()
	out := make([]orders.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Save upserts by id.
func (r *OrderRepo) Save(ctx context.Context, o *orders.Order) error {
	client, err := json.Marshal(o.Client)
	if err != nil {
		return err
	}
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return err
	}
	_, err = conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO orders(id, client_id, client, order_lines, total_items, total, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			client_id   = EXCLUDED.client_id,
			client      = EXCLUDED.client,
			order_lines = EXCLUDED.order_lines,
			total_items = EXCLUDED.total_items,
			total       = EXCLUDED.total,
			is_deleted  = EXCLUDED.is_deleted,
			updated_at  = EXCLUDED.updated_at`,
		o.ID, o.ClientID, client, lines, o.TotalItems, o.Total.String(), o.IsDeleted, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	ct, err := conn(ctx, r.DB).Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, orders.ErrOrderNotFound)
	}
	return nil
}
