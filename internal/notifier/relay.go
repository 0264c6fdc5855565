// Package notifier relays order events from the bus to WebSocket clients.
package notifier

import (
	"context"

	kafkax "github.com/funkoshop/order-service/internal/kafka"
	"github.com/funkoshop/order-service/internal/orders"
	"github.com/funkoshop/order-service/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type Relay struct {
	Sink  orders.Notifier
	Redis redis.UniversalClient // optional; nil disables dedup
	Name  string
	Log   zerolog.Logger
}

// HandleOrderEvent is installed as the consumer handler. Malformed messages
// are logged and committed so they do not block the partition.
func (r *Relay) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		r.Log.Warn().Err(err).Int64("offset", m.Offset).Msg("skipping malformed envelope")
		return nil
	}
	if env.EventVersion != orders.EnvelopeVersion {
		r.Log.Warn().Int("version", env.EventVersion).Str("event_id", env.EventID).Msg("skipping unknown envelope version")
		return nil
	}

	if r.Redis != nil && env.EventID != "" {
		first, err := redisx.FirstSeen(ctx, r.Redis, redisx.DedupKey(r.Name, env.EventID), redisx.TTLDedup)
		if err != nil {
			// redis down: prefer a duplicate push over a lost one
			r.Log.Warn().Err(err).Msg("dedup check failed")
		} else if !first {
			return nil
		}
	}

	ev, err := kafkax.UnwrapPayload[orders.Event](env.Payload)
	if err != nil {
		r.Log.Warn().Err(err).Str("event_id", env.EventID).Msg("skipping malformed payload")
		return nil
	}
	switch ev.Type {
	case orders.EventCreate, orders.EventUpdate, orders.EventDelete:
	default:
		return nil
	}
	r.Sink.Notify(ctx, ev)
	r.Log.Debug().Str("event", ev.Name()).Str("order_id", ev.Order.ID).Msg("relayed")
	return nil
}
