package websocket

import "github.com/google/uuid"

// EventPublisher defines the interface for publishing events to WebSocket clients
type EventPublisher interface {
	// Publish sends an event to all clients watching the specified student
	Publish(studentID uuid.UUID, event Event)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the student's watchers
func (h *Hub) Publish(studentID uuid.UUID, event Event) {
	h.Broadcast(studentID, event)
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(studentID uuid.UUID, event Event) {}
