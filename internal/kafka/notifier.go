package kafka

import (
	"context"
	"strconv"

	"github.com/funkoshop/order-service/internal/orders"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
)

// Notifier publishes order events to the bus. Delivery is fire-and-forget.
type Notifier struct {
	Producer *Producer
	Service  string
}

var _ orders.Notifier = (*Notifier)(nil)

func (n *Notifier) Notify(ctx context.Context, ev orders.Event) {
	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	env := NewEnvelope(n.Service, traceID, ev)
	n.Producer.Publish(orders.PartitionKey(ev.Order.ID), MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}
