package inspect

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message is pushed to websocket clients when scene files change.
type Message struct {
	Type      string    `json:"type"`      // "checked" or "error"
	Timestamp int64     `json:"timestamp"` // Unix timestamp
	Files     []string  `json:"files,omitempty"`
	Reports   []*Report `json:"reports,omitempty"`
	Error     string    `json:"error,omitempty"`
}

const readTimeout = 60 * time.Second

// Hub manages the websocket connections of inspector clients.
type Hub struct {
	connections map[*websocket.Conn]bool
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
	closed      bool
}

// NewHub creates a hub accepting connections from localhost pages only.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		connections: make(map[*websocket.Conn]bool),
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "https://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1") ||
					strings.HasPrefix(origin, "https://127.0.0.1")
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWebSocket upgrades the request and registers the connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		conn.Close()
		return
	}
	h.connections[conn] = true
	count := len(h.connections)
	h.mutex.Unlock()
	h.logger.Debug("client connected", zap.Int("clients", count))

	go h.readMessages(conn)
}

// readMessages drains the client until it goes away. Clients only listen.
func (h *Hub) readMessages(conn *websocket.Conn) {
	defer h.remove(conn)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.connections[conn]; ok {
		delete(h.connections, conn)
		conn.Close()
		h.logger.Debug("client disconnected", zap.Int("clients", len(h.connections)))
	}
}

// Broadcast sends msg to every connected client. Clients that cannot be
// written to are dropped.
func (h *Hub) Broadcast(msg *Message) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("failed to marshal message", zap.Error(err))
		return
	}

	// Writes are serialized by the write lock; gorilla connections allow
	// a single concurrent writer.
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("dropping client", zap.Error(err))
			conn.Close()
			delete(h.connections, conn)
		}
	}
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.connections)
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn := range h.connections {
		conn.Close()
	}
	h.connections = make(map[*websocket.Conn]bool)
	h.closed = true
}
