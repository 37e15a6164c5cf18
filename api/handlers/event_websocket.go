package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// EventWebSocketHandler streams applied events to UI clients in real
// time. Each connection gets its own subscription on the event loop's
// fan-out; a slow client loses events rather than stalling the loop.
type EventWebSocketHandler struct {
	loop   *app.EventLoop
	logger *zap.Logger
}

// NewEventWebSocketHandler creates a new WebSocket handler
func NewEventWebSocketHandler(loop *app.EventLoop, logger *zap.Logger) *EventWebSocketHandler {
	return &EventWebSocketHandler{
		loop:   loop,
		logger: logger,
	}
}

// HandleWebSocket handles GET /api/v1/events/ws
func (h *EventWebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	subID, events := h.loop.Subscribe()
	defer h.loop.Unsubscribe(subID)

	h.logger.Info("WebSocket client connected",
		zap.String("remote_addr", c.Request.RemoteAddr))

	// Read messages from client (for ping/pong and close detection)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("Failed to marshal event", zap.Error(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			// Send ping to keep connection alive
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
