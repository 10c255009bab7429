package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the action part of an event name
type EventType string

const (
	EventTypeRecorded EventType = "recorded"
	EventTypeSettled  EventType = "settled"
	EventTypeUpdated  EventType = "updated"
	EventTypeDeleted  EventType = "deleted"
)

// EntityType is the subject part of an event name
type EntityType string

const (
	EntityTypeFinancing        EntityType = "financing"
	EntityTypeFinancingPayment EntityType = "financing.payment"
	EntityTypeAccountBalance   EntityType = "account.balance"
)

// Event is the message broadcast to connected clients of a workspace.
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"` // e.g. "financing.payment.recorded"
	Entity    EntityType  `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FinancingPaymentRecorded creates a financing.payment.recorded event
func FinancingPaymentRecorded(payload interface{}) Event {
	return NewEvent(EventTypeRecorded, EntityTypeFinancingPayment, payload)
}

// FinancingSettled creates a financing.settled event
func FinancingSettled(payload interface{}) Event {
	return NewEvent(EventTypeSettled, EntityTypeFinancing, payload)
}

// AccountBalanceUpdated creates an account.balance.updated event
func AccountBalanceUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeAccountBalance, payload)
}
