package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait = 10 * time.Second

	// A peer silent for longer than pongWait is disconnected
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Views only listen, so inbound frames are tiny
	maxMessageSize = 512

	// Queued ledger events per view before it counts as slow
	sendBufferSize = 64
)

// Client is one admin view watching a student's ledger over WebSocket
type Client struct {
	id        string
	studentID uuid.UUID
	conn      *websocket.Conn
	hub       *Hub
	send      chan []byte
	closed    bool
	mu        sync.RWMutex
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection watching studentID
func NewClient(conn *websocket.Conn, studentID uuid.UUID, hub *Hub) *Client {
	return &Client{
		id:        uuid.New().String(),
		studentID: studentID,
		conn:      conn,
		hub:       hub,
		send:      make(chan []byte, sendBufferSize),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() string {
	return c.id
}

// StudentID returns the student the client watches
func (c *Client) StudentID() uuid.UUID {
	return c.studentID
}

// Send queues a message for the write pump. A full buffer means the view fell
// behind and is reported as ErrClientSlow.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientSlow
	}
}

// Close stops the write pump and closes the connection. It may be called more than once.
func (c *Client) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		closeErr = c.conn.Close()
	})
	return closeErr
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ReadPump keeps the connection alive with pongs and unregisters the client when the
// peer goes away. Run it in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Str("student_id", c.studentID.String()).
					Msg("WebSocket unexpected close")
			}
			break
		}
		// Inbound messages are ignored; the connection is push-only
	}
}

// WritePump delivers queued ledger events and pings. Run it in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Closed by Close or by the hub dropping a slow view
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Str("student_id", c.studentID.String()).
					Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
