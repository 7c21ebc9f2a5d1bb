package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeCreated  EventType = "created"
	EventTypeUpdated  EventType = "updated"
	EventTypeRecorded EventType = "recorded"
	EventTypeAttached EventType = "attached"
	EventTypeSnapshot EventType = "snapshot"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypePayment      EntityType = "payment"
	EntityTypeExtraFee     EntityType = "extra_fee"
	EntityTypeInstallments EntityType = "installments"
	EntityTypeProof        EntityType = "proof"
	EntityTypeLedger       EntityType = "ledger"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "payment.recorded"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "payment"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
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

// PaymentRecorded creates a payment.recorded event
func PaymentRecorded(payload interface{}) Event {
	return NewEvent(EventTypeRecorded, EntityTypePayment, payload)
}

// ExtraFeeCreated creates an extra_fee.created event
func ExtraFeeCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeExtraFee, payload)
}

// InstallmentsUpdated creates an installments.updated event
func InstallmentsUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeInstallments, payload)
}

// ProofAttached creates a proof.attached event
func ProofAttached(payload interface{}) Event {
	return NewEvent(EventTypeAttached, EntityTypeProof, payload)
}

// LedgerSnapshot creates the ledger.snapshot event a watcher receives on connect
func LedgerSnapshot(payload interface{}) Event {
	return NewEvent(EventTypeSnapshot, EntityTypeLedger, payload)
}
