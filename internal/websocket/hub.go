package websocket

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxWatchersPerStudent bounds the open ledger views of one student
const MaxWatchersPerStudent = 8

var (
	// ErrClientClosed is returned when attempting to send to a closed client
	ErrClientClosed = errors.New("client is closed")
	// ErrClientSlow is returned when a client's send buffer is full
	ErrClientSlow = errors.New("client send buffer is full")
	// ErrTooManyWatchers is returned when a student already has MaxWatchersPerStudent clients
	ErrTooManyWatchers = errors.New("too many watchers for student")
)

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	StudentID() uuid.UUID
	Send(data []byte) error
	Close() error
}

// Hub fans ledger events out to the admin views watching each student.
// It is safe for concurrent use.
type Hub struct {
	// students maps student ID to a map of client ID to client
	students map[uuid.UUID]map[string]ClientInterface
	mu       sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		students: make(map[uuid.UUID]map[string]ClientInterface),
	}
}

// Register starts delivering a student's ledger events to client. It fails with
// ErrTooManyWatchers once the student has MaxWatchersPerStudent open views.
func (h *Hub) Register(client ClientInterface) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	studentID := client.StudentID()
	clientID := client.ID()

	watchers := h.students[studentID]
	if watchers == nil {
		watchers = make(map[string]ClientInterface)
		h.students[studentID] = watchers
	}
	if _, again := watchers[clientID]; !again && len(watchers) >= MaxWatchersPerStudent {
		log.Warn().
			Str("student_id", studentID.String()).
			Int("watchers", len(watchers)).
			Msg("WebSocket client rejected: watcher limit reached")
		return ErrTooManyWatchers
	}

	watchers[clientID] = client

	log.Debug().
		Str("student_id", studentID.String()).
		Str("client_id", clientID).
		Msg("WebSocket client registered")
	return nil
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	studentID := client.StudentID()
	clientID := client.ID()

	if clients, ok := h.students[studentID]; ok {
		if _, exists := clients[clientID]; exists {
			delete(clients, clientID)

			if len(clients) == 0 {
				delete(h.students, studentID)
			}

			log.Debug().
				Str("student_id", studentID.String()).
				Str("client_id", clientID).
				Msg("WebSocket client unregistered")
		}
	}
}

// Broadcast sends an event to all clients watching a student
func (h *Hub) Broadcast(studentID uuid.UUID, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("student_id", studentID.String()).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients, ok := h.students[studentID]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Sends happen outside the lock
	clientsCopy := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		clientsCopy = append(clientsCopy, client)
	}
	h.mu.RUnlock()

	for _, client := range clientsCopy {
		go func(c ClientInterface) {
			err := c.Send(data)
			if err == nil {
				return
			}
			log.Warn().
				Err(err).
				Str("student_id", studentID.String()).
				Str("client_id", c.ID()).
				Msg("Failed to send to client")
			// Slow views are dropped and resync from the snapshot sent on reconnect
			if errors.Is(err, ErrClientSlow) {
				h.Unregister(c)
				c.Close()
			}
		}(client)
	}

	log.Debug().
		Str("student_id", studentID.String()).
		Str("event_type", event.Type).
		Int("client_count", len(clientsCopy)).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients watching a student
func (h *Hub) ClientCount(studentID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.students[studentID]; ok {
		return len(clients)
	}
	return 0
}

// TotalClientCount returns the total number of connected clients
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.students {
		total += len(clients)
	}
	return total
}
