package orders

import (
	"encoding/json"
	"time"

	kafkax "github.com/ariefcatur/widget-store/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventLowStock           = "ProductLowStock"
)

const eventVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id, or product id for stock events
	Payload       json.RawMessage `json:"payload"`
}

// Publisher is the fire-and-forget side of a topic producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrderPlacedPayload struct {
	OrderID  string        `json:"order_id"`
	Customer *int64        `json:"customer,omitempty"`
	Items    []Reservation `json:"items"`
	Total    string        `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
}

type LowStockPayload struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
	OrderID   string `json:"order_id,omitempty"`
}

// NewEnvelope wraps payload in a version 1 envelope.
func NewEnvelope(eventType, producer, correlationID, traceID string, payload any) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
}

// Kafka headers carried next to every envelope so consumers can route
// without decoding the body.
const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

// Emit publishes env on p keyed by key. A nil publisher drops the event.
func Emit(p Publisher, key string, env Envelope) {
	if p == nil {
		return
	}
	p.Publish(PartitionKey(key), kafkax.MustMarshal(env),
		kafkago.Header{Key: HeaderEventType, Value: []byte(env.EventType)},
		kafkago.Header{Key: HeaderEventVersion, Value: []byte("1")},
	)
}
