package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/funkoshop/order-service/internal/orders"
	"github.com/google/uuid"
)

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// NewEnvelope wraps an order event for the bus.
func NewEnvelope(producer, traceID string, ev orders.Event) orders.Envelope {
	return orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     ev.Name(),
		EventVersion:  orders.EnvelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: ev.Order.ID,
		Payload:       MustMarshal(ev),
	}
}

func UnmarshalEnvelope(b []byte) (orders.Envelope, error) {
	var env orders.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// UnwrapPayload decodes the payload of an envelope into T.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
