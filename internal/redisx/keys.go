package redisx

import (
	"fmt"
	"time"

	"github.com/funkoshop/order-service/internal/orders"
)

const (
	// single order: orders:{gen}:id:{order_id}
	KeyOrder = orders.CacheKeyOrders + ":%d:id:%s"

	// paginated list: orders:{gen}:page:{page}:{limit}:{is_deleted}
	KeyOrderPage = orders.CacheKeyOrders + ":%d:page:%d:%d:%t"

	// generation counter per cache prefix; lives outside the prefix it guards
	KeyCacheGen = "cachegen:%s"

	// dedup of consumed events: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 60 * time.Second
	TTLDedup      = 48 * time.Hour
)

func OrderKey(gen int64, id string) string { return fmt.Sprintf(KeyOrder, gen, id) }

func PageKey(gen int64, q orders.PageQuery) string {
	return fmt.Sprintf(KeyOrderPage, gen, q.Page, q.Limit, q.IsDeleted)
}

func GenKey(prefix string) string { return fmt.Sprintf(KeyCacheGen, prefix) }

func DedupKey(consumer, eventID string) string { return fmt.Sprintf(KeyDedup, consumer, eventID) }
