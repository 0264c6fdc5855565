package orders

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventCreate EventType = "CREATE"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

const EntityOrder = "ORDER"

// Event is what notifiers receive after a committed lifecycle operation.
type Event struct {
	Type   EventType `json:"type"`
	Entity string    `json:"entity"`
	Order  Order     `json:"order"`
}

// Name is the channel name the websocket gateway emits on, e.g. ORDER_CREATE.
func (e Event) Name() string { return e.Entity + "_" + string(e.Type) }

const EnvelopeVersion = 1

// Envelope wraps an event for the message bus.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"` // ORDER_CREATE | ORDER_UPDATE | ORDER_DELETE
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

const TopicOrderEvents = "orders.events"

// PartitionKey keeps every event of one order on the same partition.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
