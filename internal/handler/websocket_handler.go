package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/websocket"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// LedgerReader loads the current ledger of a student
type LedgerReader interface {
	GetLedger(ctx context.Context, studentID uuid.UUID) (*domain.Ledger, error)
}

// WebSocketHandler subscribes admin views to a student's ledger events
type WebSocketHandler struct {
	hub            *websocket.Hub
	ledgers        LedgerReader
	allowedOrigins map[string]bool
	upgrader       ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, ledgers LedgerReader, allowedOrigins []string) *WebSocketHandler {
	// Build origin lookup map
	originMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		originMap[origin] = true
	}

	h := &WebSocketHandler{
		hub:            hub,
		ledgers:        ledgers,
		allowedOrigins: originMap,
	}

	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the request origin against allowed origins
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Allow requests with no Origin header (e.g., same-origin or non-browser clients)
		return true
	}

	if h.allowedOrigins[origin] {
		return true
	}

	log.Warn().
		Str("origin", origin).
		Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// HandleWS handles WebSocket connection requests at GET /ws?studentId=
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	raw := c.QueryParam("studentId")
	if raw == "" {
		log.Debug().Msg("WebSocket connection rejected: missing studentId")
		return echo.NewHTTPError(http.StatusBadRequest, "missing studentId")
	}

	studentID, err := uuid.Parse(raw)
	if err != nil {
		log.Debug().Str("student_id", raw).Msg("WebSocket connection rejected: invalid studentId")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid studentId")
	}

	// Only enrolled students can be watched; the ledger also seeds the view
	ledger, err := h.ledgers.GetLedger(c.Request().Context(), studentID)
	if err != nil {
		if errors.Is(err, domain.ErrEnrollmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "student enrollment not found")
		}
		log.Error().Err(err).Str("student_id", studentID.String()).Msg("Failed to load ledger for WebSocket")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load ledger")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClient(conn, studentID, h.hub)
	if err := h.hub.Register(client); err != nil {
		conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.ClosePolicyViolation, "too many open views for this student"),
			time.Now().Add(time.Second))
		client.Close()
		return nil
	}

	snapshot, err := websocket.LedgerSnapshot(ledger).ToJSON()
	if err == nil {
		err = client.Send(snapshot)
	}
	if err != nil {
		log.Warn().Err(err).Str("student_id", studentID.String()).Msg("Failed to queue ledger snapshot")
	}

	log.Info().
		Str("student_id", studentID.String()).
		Str("client_id", client.ID()).
		Msg("WebSocket client connected")

	go client.WritePump()
	go client.ReadPump()

	return nil
}
