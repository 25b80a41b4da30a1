package handlers

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/platformbuilds/alertdesk/internal/config"
	"github.com/platformbuilds/alertdesk/internal/services"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

const (
	streamWriteWait  = 10 * time.Second
	messageSnapshot  = "snapshot"
	messageHeartbeat = "heartbeat"
	messageClosed    = "closed"
)

// StreamMessage is one frame of a view stream.
type StreamMessage struct {
	Type      string      `json:"type"`
	ViewID    string      `json:"view_id"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ViewStreamHandler pushes every snapshot of a view over a WebSocket, plus a
// periodic heartbeat so idle proxies keep the connection open.
type ViewStreamHandler struct {
	registry  *services.ViewRegistry
	upgrader  websocket.Upgrader
	heartbeat time.Duration
	maxConns  int64
	active    atomic.Int64
	logger    logger.Logger
}

func NewViewStreamHandler(registry *services.ViewRegistry, cfg config.WebSocketConfig, logger logger.Logger) *ViewStreamHandler {
	heartbeat := time.Duration(cfg.PingInterval) * time.Second
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &ViewStreamHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		heartbeat: heartbeat,
		maxConns:  int64(cfg.MaxConnections),
		logger:    logger,
	}
}

// GET /api/v1/views/:id/stream
func (h *ViewStreamHandler) Stream(c *gin.Context) {
	view, err := h.registry.Get(c.Param("id"))
	if err != nil {
		fail(c, err, nil)
		return
	}
	if h.maxConns > 0 && h.active.Load() >= h.maxConns {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many view streams", "code": "too_many_streams"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "view_id", view.ID(), "error", err)
		return
	}
	defer conn.Close()
	h.active.Add(1)
	defer h.active.Add(-1)

	snapshots, unsubscribe := view.Subscribe()
	defer unsubscribe()

	// The read loop only drains control frames and notices the peer leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info("View stream connected", "view_id", view.ID(), "kind", view.Kind())
	defer h.logger.Info("View stream disconnected", "view_id", view.ID())

	if err := h.write(conn, messageSnapshot, view.ID(), view.Render()); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				_ = h.write(conn, messageClosed, view.ID(), nil)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "view unmounted"),
					time.Now().Add(streamWriteWait))
				return
			}
			if err := h.write(conn, messageSnapshot, view.ID(), snap); err != nil {
				h.logger.Warn("View stream write failed", "view_id", view.ID(), "error", err)
				return
			}

		case <-ticker.C:
			if err := h.write(conn, messageHeartbeat, view.ID(), nil); err != nil {
				return
			}

		case <-gone:
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *ViewStreamHandler) write(conn *websocket.Conn, kind, viewID string, data interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(StreamMessage{
		Type:      kind,
		ViewID:    viewID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Active reports the number of open streams.
func (h *ViewStreamHandler) Active() int64 {
	return h.active.Load()
}
