package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"passages/pkg/metrics"
	"passages/pkg/present"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamHandler pushes engine effects to websocket clients.
type StreamHandler struct {
	hub      *present.Hub
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(h *present.Hub) *StreamHandler {
	return &StreamHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Same-host front-end; the config endpoint is CORS-open as well.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		slog.Warn("Stream: upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sub := h.hub.Subscribe()
	metrics.StreamSubscribers.Inc()
	slog.Info("Stream: client connected", "id", sub.ID, "remote", r.RemoteAddr)

	defer func() {
		h.hub.Unsubscribe(sub.ID)
		metrics.StreamSubscribers.Dec()
		_ = conn.Close()
		slog.Info("Stream: client disconnected", "id", sub.ID)
	}()

	closed := make(chan struct{})
	go readPump(conn, closed)
	writePump(conn, sub, closed)
}

// readPump discards client messages and signals when the connection dies.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Stream: read error", "error", err)
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *present.Subscriber, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !sub.Accept(e) {
				continue
			}
			if err := conn.WriteJSON(e); err != nil {
				slog.Debug("Stream: write failed", "id", sub.ID, "error", err)
				return
			}
		case <-sub.Ready:
			for _, e := range sub.Latest() {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(e); err != nil {
					slog.Debug("Stream: write failed", "id", sub.ID, "error", err)
					return
				}
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
