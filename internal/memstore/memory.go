// Package memstore keeps products and orders in process memory. It backs the
// tests and the API's in-memory mode.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/funkoshop/order-service/internal/orders"
)

// Store holds products and orders behind one RWMutex.
type Store struct {
	mu       sync.RWMutex
	products map[int64]orders.Product
	orders   map[string]orders.Order
	clients  map[string]struct{}
}

func New() *Store {
	return &Store{
		products: make(map[int64]orders.Product),
		orders:   make(map[string]orders.Order),
		clients:  make(map[string]struct{}),
	}
}

var (
	_ orders.Inventory       = (*Store)(nil)
	_ orders.OrderRepository = (*Store)(nil)
	_ orders.TxManager       = (*Store)(nil)
	_ orders.ClientDirectory = (*Store)(nil)
)

// transaction-aware locking: inside WithinTx the store lock is already held.
type txKey struct{}

func inTx(ctx context.Context) bool {
	v, ok := ctx.Value(txKey{}).(bool)
	return ok && v
}

func (s *Store) rlock(ctx context.Context) {
	if !inTx(ctx) {
		s.mu.RLock()
	}
}

func (s *Store) runlock(ctx context.Context) {
	if !inTx(ctx) {
		s.mu.RUnlock()
	}
}

func (s *Store) wlock(ctx context.Context) {
	if !inTx(ctx) {
		s.mu.Lock()
	}
}

func (s *Store) wunlock(ctx context.Context) {
	if !inTx(ctx) {
		s.mu.Unlock()
	}
}

// WithinTx holds the write lock for the whole of fn. Product and order
// changes made by a failing fn are rolled back from a snapshot.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(map[int64]orders.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	ords := make(map[string]orders.Order, len(s.orders))
	for k, v := range s.orders {
		ords[k] = v
	}

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.products = products
		s.orders = ords
		return err
	}
	return nil
}

// LockProducts is a no-op: the transaction already holds the store lock.
func (s *Store) LockProducts(context.Context, []int64) error { return nil }

// PutProduct inserts or replaces a catalog product.
func (s *Store) PutProduct(ctx context.Context, p orders.Product) {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	s.products[p.ID] = p
}

// RemoveProduct drops a product from the catalog. Orders referencing it are kept.
func (s *Store) RemoveProduct(ctx context.Context, id int64) {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	delete(s.products, id)
}

func (s *Store) AddClient(ctx context.Context, clientID string) {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	s.clients[clientID] = struct{}{}
}

func (s *Store) GetProduct(ctx context.Context, id int64) (orders.Product, error) {
	s.rlock(ctx)
	defer s.runlock(ctx)
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return p, nil
}

func (s *Store) AdjustStock(ctx context.Context, id int64, delta int) error {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	p, ok := s.products[id]
	if !ok {
		return orders.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return orders.ErrInsufficientStock
	}
	p.Stock += delta
	s.products[id] = p
	return nil
}

func (s *Store) ClientExists(ctx context.Context, clientID string) (bool, error) {
	s.rlock(ctx)
	defer s.runlock(ctx)
	_, ok := s.clients[clientID]
	return ok, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (orders.Order, error) {
	s.rlock(ctx)
	defer s.runlock(ctx)
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) FindPage(ctx context.Context, q orders.PageQuery) (orders.Page, error) {
	q = q.Normalize()
	s.rlock(ctx)
	defer s.runlock(ctx)

	matched := make([]orders.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if o.IsDeleted == q.IsDeleted {
			matched = append(matched, o)
		}
	}
	sortOrders(matched)

	from := q.Offset()
	if from > len(matched) {
		from = len(matched)
	}
	to := from + q.Limit
	if to > len(matched) {
		to = len(matched)
	}
	items := make([]orders.Order, 0, to-from)
	for _, o := range matched[from:to] {
		items = append(items, cloneOrder(o))
	}
	return orders.NewPage(items, len(matched), q), nil
}

func (s *Store) FindByClient(ctx context.Context, clientID string) ([]orders.Order, error) {
	s.rlock(ctx)
	defer s.runlock(ctx)
	out := make([]orders.Order, 0)
	for _, o := range s.orders {
		if o.ClientID == clientID {
			out = append(out, cloneOrder(o))
		}
	}
	sortOrders(out)
	return out, nil
}

func (s *Store) Save(ctx context.Context, o *orders.Order) error {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	if _, ok := s.orders[id]; !ok {
		return orders.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

func cloneOrder(o orders.Order) orders.Order {
	o.Lines = append([]orders.OrderLine(nil), o.Lines...)
	return o
}

// oldest first, id breaks ties
func sortOrders(list []orders.Order) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
