package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	StockReserved = "reserved"
	StockReturned = "returned"
)

var tracer = otel.Tracer("github.com/funkoshop/order-service/internal/orders")

type Deps struct {
	Inventory Inventory
	Orders    OrderRepository
	Tx        TxManager
	Clients   ClientDirectory // optional; nil skips the client check
	Cache     Cache           // optional
	Notifier  Notifier        // optional
	Observer  Observer        // optional
	Logger    zerolog.Logger
	Now       func() time.Time
	NewID     func() string
}

// Service is the order lifecycle controller. Every write runs validation,
// reservation and persistence inside one transaction.
type Service struct {
	inv      Inventory
	repo     OrderRepository
	tx       TxManager
	clients  ClientDirectory
	cache    Cache
	notifier Notifier
	obs      Observer
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
}

func NewService(d Deps) *Service {
	s := &Service{
		inv:      d.Inventory,
		repo:     d.Orders,
		tx:       d.Tx,
		clients:  d.Clients,
		cache:    d.Cache,
		notifier: d.Notifier,
		obs:      d.Observer,
		log:      d.Logger.With().Str("component", "orders").Logger(),
		now:      d.Now,
		newID:    d.NewID,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.notifier == nil {
		s.notifier = Notifiers(nil)
	}
	if s.obs == nil {
		s.obs = noopObserver{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Service) FindAll(ctx context.Context, q PageQuery) (Page, error) {
	q = q.Normalize()
	ctx, span := tracer.Start(ctx, "orders.FindAll", trace.WithAttributes(
		attribute.Int("page", q.Page), attribute.Int("limit", q.Limit), attribute.Bool("is_deleted", q.IsDeleted)))
	defer span.End()

	gen, cached := s.generation(ctx)
	if cached {
		if p, ok, err := s.cache.GetPage(ctx, gen, q); err != nil {
			s.log.Warn().Err(err).Msg("page cache read failed")
		} else if ok {
			s.log.Debug().Int("page", q.Page).Msg("orders page from cache")
			return p, nil
		}
	}
	p, err := s.repo.FindPage(ctx, q)
	if err != nil {
		return Page{}, fail(span, fmt.Errorf("find orders page: %w", err))
	}
	if cached {
		if err := s.cache.SetPage(ctx, gen, q, p); err != nil {
			s.log.Warn().Err(err).Msg("page cache write failed")
		}
	}
	return p, nil
}

func (s *Service) FindOne(ctx context.Context, id string) (Order, error) {
	ctx, span := tracer.Start(ctx, "orders.FindOne", trace.WithAttributes(attribute.String("order_id", id)))
	defer span.End()
	s.log.Debug().Str("order_id", id).Msg("finding order")

	gen, cached := s.generation(ctx)
	if cached {
		if o, ok, err := s.cache.GetOrder(ctx, gen, id); err != nil {
			s.log.Warn().Err(err).Str("order_id", id).Msg("order cache read failed")
		} else if ok {
			return o, nil
		}
	}
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Order{}, fail(span, err)
	}
	if cached {
		if err := s.cache.SetOrder(ctx, gen, o); err != nil {
			s.log.Warn().Err(err).Str("order_id", id).Msg("order cache write failed")
		}
	}
	return o, nil
}

func (s *Service) FindByClient(ctx context.Context, clientID string) ([]Order, error) {
	ctx, span := tracer.Start(ctx, "orders.FindByClient", trace.WithAttributes(attribute.String("client_id", clientID)))
	defer span.End()
	s.log.Debug().Str("client_id", clientID).Msg("finding orders by client")

	list, err := s.repo.FindByClient(ctx, clientID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("find orders by client: %w", err))
	}
	return list, nil
}

func (s *Service) Create(ctx context.Context, in OrderInput) (Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Create", trace.WithAttributes(attribute.String("client_id", in.ClientID)))
	defer span.End()
	start := time.Now()
	s.log.Info().Str("client_id", in.ClientID).Int("lines", len(in.Lines)).Msg("creating order")

	if err := s.checkClient(ctx, in.ClientID); err != nil {
		s.obs.ObserveOperation("create", time.Since(start), err)
		return Order{}, fail(span, err)
	}

	o := ToOrder(in)
	var saved Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tx.LockProducts(ctx, o.ProductIDs()); err != nil {
			return err
		}
		if err := Validate(ctx, s.inv, o); err != nil {
			return err
		}
		reserved, err := Reserve(ctx, s.inv, o)
		if err != nil {
			return err
		}
		now := s.now()
		reserved.ID = s.newID()
		reserved.CreatedAt = now
		reserved.UpdatedAt = now
		if err := s.repo.Save(ctx, &reserved); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		saved = reserved
		return nil
	})
	s.obs.ObserveOperation("create", time.Since(start), err)
	if err != nil {
		s.log.Warn().Err(err).Str("reason", Reason(err)).Msg("order rejected")
		return Order{}, fail(span, err)
	}
	s.obs.ObserveStock(StockReserved, saved.TotalItems)
	span.SetAttributes(attribute.String("order_id", saved.ID))
	s.afterWrite(ctx, EventCreate, saved)
	return saved, nil
}

func (s *Service) Update(ctx context.Context, id string, in OrderInput) (Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Update", trace.WithAttributes(attribute.String("order_id", id)))
	defer span.End()
	start := time.Now()
	s.log.Info().Str("order_id", id).Msg("updating order")

	if err := s.checkClient(ctx, in.ClientID); err != nil {
		s.obs.ObserveOperation("update", time.Since(start), err)
		return Order{}, fail(span, err)
	}

	var (
		saved    Order
		returned int
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		next := ToOrder(in)
		if err := s.tx.LockProducts(ctx, unionIDs(current.ProductIDs(), next.ProductIDs())); err != nil {
			return err
		}
		if err := s.reverse(ctx, current); err != nil {
			return err
		}
		if err := Validate(ctx, s.inv, next); err != nil {
			return err
		}
		reserved, err := Reserve(ctx, s.inv, next)
		if err != nil {
			return err
		}
		reserved.ID = current.ID
		reserved.CreatedAt = current.CreatedAt
		reserved.UpdatedAt = s.now()
		if err := s.repo.Save(ctx, &reserved); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		saved = reserved
		returned = current.TotalItems
		return nil
	})
	s.obs.ObserveOperation("update", time.Since(start), err)
	if err != nil {
		s.log.Warn().Err(err).Str("order_id", id).Str("reason", Reason(err)).Msg("order update rejected")
		return Order{}, fail(span, err)
	}
	s.obs.ObserveStock(StockReturned, returned)
	s.obs.ObserveStock(StockReserved, saved.TotalItems)
	s.afterWrite(ctx, EventUpdate, saved)
	return saved, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "orders.Remove", trace.WithAttributes(attribute.String("order_id", id)))
	defer span.End()
	start := time.Now()
	s.log.Info().Str("order_id", id).Msg("removing order")

	var removed Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.tx.LockProducts(ctx, current.ProductIDs()); err != nil {
			return err
		}
		if err := s.reverse(ctx, current); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		removed = current
		return nil
	})
	s.obs.ObserveOperation("remove", time.Since(start), err)
	if err != nil {
		return fail(span, err)
	}
	s.obs.ObserveStock(StockReturned, removed.TotalItems)
	s.afterWrite(ctx, EventDelete, removed)
	return nil
}

func (s *Service) reverse(ctx context.Context, o Order) error {
	skipped, err := Reverse(ctx, s.inv, o)
	if len(skipped) > 0 {
		s.log.Warn().Str("order_id", o.ID).Ints64("funko_ids", skipped).Msg("products gone from catalog, stock not returned")
	}
	return err
}

// generation must be read before the repository so that a write committing
// in between invalidates what this read is about to store.
func (s *Service) generation(ctx context.Context) (int64, bool) {
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache generation unavailable, bypassing cache")
		return 0, false
	}
	return gen, true
}

func (s *Service) checkClient(ctx context.Context, clientID string) error {
	if s.clients == nil {
		return nil
	}
	if clientID == "" {
		return ErrClientNotFound
	}
	ok, err := s.clients.ClientExists(ctx, clientID)
	if err != nil {
		return fmt.Errorf("check client %s: %w", clientID, err)
	}
	if !ok {
		return fmt.Errorf("client %s: %w", clientID, ErrClientNotFound)
	}
	return nil
}

// afterWrite runs once the transaction committed. Cache and notification
// failures are logged only.
func (s *Service) afterWrite(ctx context.Context, t EventType, o Order) {
	if err := s.cache.Invalidate(ctx, CacheKeyOrders); err != nil {
		s.log.Warn().Err(err).Msg("cache invalidation failed")
	}
	s.notifier.Notify(ctx, Event{Type: t, Entity: EntityOrder, Order: o})
	s.log.Info().Str("order_id", o.ID).Str("event", string(t)).Msg("order committed")
}

func fail(span trace.Span, err error) error {
	if errors.Is(err, ErrOrderNotFound) || IsValidation(err) {
		span.SetAttributes(attribute.String("rejection", Reason(err)))
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func unionIDs(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, ids := range [][]int64{a, b} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
