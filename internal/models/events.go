package models

import "time"

// Event types
const (
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypeStatusChanged   = "ORDER_STATUS_CHANGED"
	EventTypePaymentReceived = "ORDER_PAYMENT_RECEIVED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type; used to label the Kafka message.
func (e BaseEvent) Type() string {
	return e.EventType
}

// OrderEvent carries a snapshot of the order as it was committed, so the
// consumer can render notifications without reading the ledger again.
type OrderEvent struct {
	BaseEvent
	Order Order `json:"order"`
}
