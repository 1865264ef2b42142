package tracing

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prasenjit/go-mocksim/internal/logging"
	"github.com/prasenjit/go-mocksim/internal/models"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
)

// WebSocketHandler streams live traces over a WebSocket
type WebSocketHandler struct {
	service  *Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(service *Service) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP upgrades the connection and streams traces until the client
// goes away. The endpointId, method, outcome and strategy query parameters
// narrow the stream.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.L.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	query := r.URL.Query()
	filter := &models.TraceFilter{
		EndpointID: query.Get("endpointId"),
		Method:     query.Get("method"),
		Outcome:    query.Get("outcome"),
		Strategy:   query.Get("strategy"),
	}

	subID, traceChan := h.service.Subscribe()
	defer h.service.Unsubscribe(subID)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader loop only notices the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case trace, ok := <-traceChan:
			if !ok {
				return
			}
			if !filter.Match(trace) {
				continue
			}

			data, err := json.Marshal(trace)
			if err != nil {
				logging.L.Warnw("failed to marshal trace", "traceId", trace.ID, "error", err)
				continue
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.L.Debugw("websocket client gone", "error", err)
				return
			}

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
