package orders

import (
	"context"
	"time"
)

// Inventory is the narrow view of the catalog the reservation protocol needs.
// AdjustStock must be atomic: a negative delta that would take stock below
// zero fails with ErrInsufficientStock and changes nothing.
type Inventory interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) error
}

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (Order, error)
	FindPage(ctx context.Context, q PageQuery) (Page, error)
	FindByClient(ctx context.Context, clientID string) ([]Order, error)
	Save(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) error
}

// TxManager scopes a lifecycle operation. Repositories called with the ctx
// handed to fn take part in the transaction. LockProducts must be called at
// most once per transaction and locks in ascending id order, so two orders
// sharing products cannot deadlock.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockProducts(ctx context.Context, ids []int64) error
}

type ClientDirectory interface {
	ClientExists(ctx context.Context, clientID string) (bool, error)
}

// Cache entries are scoped to a generation. Readers take the generation
// before touching the repository and store under it; Invalidate advances it,
// so a fill racing a write lands in a generation nobody reads any more.
type Cache interface {
	Generation(ctx context.Context) (int64, error)
	GetOrder(ctx context.Context, gen int64, id string) (Order, bool, error)
	SetOrder(ctx context.Context, gen int64, o Order) error
	GetPage(ctx context.Context, gen int64, q PageQuery) (Page, bool, error)
	SetPage(ctx context.Context, gen int64, q PageQuery, p Page) error
	Invalidate(ctx context.Context, prefix string) error
}

// CacheKeyOrders prefixes every cached order read; writes drop the whole prefix.
const CacheKeyOrders = "orders"

type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Notifiers fans an event out to every sink.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev Event) {
	for _, n := range ns {
		n.Notify(ctx, ev)
	}
}

type Observer interface {
	ObserveOperation(op string, d time.Duration, err error)
	ObserveStock(direction string, units int)
}

type noopObserver struct{}

func (noopObserver) ObserveOperation(string, time.Duration, error) {}
func (noopObserver) ObserveStock(string, int) {}

type noopCache struct{}

func (noopCache) Generation(context.Context) (int64, error) { return 0, nil }
func (noopCache) GetOrder(context.Context, int64, string) (Order, bool, error) {
	return Order{}, false, nil
}
func (noopCache) SetOrder(context.Context, int64, Order) error { return nil }
func (noopCache) GetPage(context.Context, int64, PageQuery) (Page, bool, error) {
	return Page{}, false, nil
}
func (noopCache) SetPage(context.Context, int64, PageQuery, Page) error { return nil }
func (noopCache) Invalidate(context.Context, string) error { return nil }
