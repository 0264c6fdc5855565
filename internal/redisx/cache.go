package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/funkoshop/order-service/internal/orders"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// OrderCache is a cache-aside store for order reads.
type OrderCache struct {
	Redis redis.UniversalClient
	TTL   time.Duration
}

var _ orders.Cache = (*OrderCache)(nil)

func NewOrderCache(rdb redis.UniversalClient, ttl time.Duration) *OrderCache {
	if ttl <= 0 {
		ttl = TTLOrderCache
	}
	return &OrderCache{Redis: rdb, TTL: ttl}
}

// Generation returns the current order cache generation, 0 before the first write.
func (c *OrderCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.Redis.Get(ctx, GenKey(orders.CacheKeyOrders)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *OrderCache) GetOrder(ctx context.Context, gen int64, id string) (orders.Order, bool, error) {
	var o orders.Order
	ok, err := c.get(ctx, OrderKey(gen, id), &o)
	return o, ok, err
}

func (c *OrderCache) SetOrder(ctx context.Context, gen int64, o orders.Order) error {
	return c.set(ctx, OrderKey(gen, o.ID), o)
}

func (c *OrderCache) GetPage(ctx context.Context, gen int64, q orders.PageQuery) (orders.Page, bool, error) {
	var p orders.Page
	ok, err := c.get(ctx, PageKey(gen, q), &p)
	return p, ok, err
}

func (c *OrderCache) SetPage(ctx context.Context, gen int64, q orders.PageQuery, p orders.Page) error {
	return c.set(ctx, PageKey(gen, q), p)
}

// Invalidate advances the prefix generation, which is what hides every entry
// filled before it, then deletes the old keys. Keys are found with SCAN so a
// large keyspace never blocks the server; a key filled after the scan is
// unreachable anyway and expires with its TTL.
func (c *OrderCache) Invalidate(ctx context.Context, prefix string) error {
	if err := c.Redis.Incr(ctx, GenKey(prefix)).Err(); err != nil {
		return err
	}

	var keys []string
	iter := c.Redis.Scan(ctx, 0, prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, k := range keys {
		g.Go(func() error {
			return c.Redis.Del(gctx, k).Err()
		})
	}
	return g.Wait()
}

func (c *OrderCache) get(ctx context.Context, key string, out any) (bool, error) {
	b, err := c.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		// stale shape; treat as a miss and let the next write replace it
		return false, nil
	}
	return true, nil
}

func (c *OrderCache) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, key, b, c.TTL).Err()
}
