package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is the JSON frame sent to live-reload clients.
type Message struct {
	Type    string `json:"type"`
	File    string `json:"file,omitempty"`
	Message string `json:"message,omitempty"`
}

// Hub keeps the live-reload websocket clients and broadcasts to them.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]struct{}
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewHub returns a Hub with no clients. A nil logger means slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

// Handler upgrades the request to a websocket and keeps the client
// registered until it disconnects.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Debug("HMR WebSocket upgrade failed", "error", err)
			return
		}

		h.register(conn)
		defer h.unregister(conn)

		h.send(conn, Message{Type: "connected", Message: "HMR connected"})

		h.readPump(conn)
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("HMR client connected", "total", total)
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	total := len(h.clients)
	h.mu.Unlock()
	conn.Close()
	h.logger.Debug("HMR client disconnected", "total", total)
}

// readPump drains the connection until the client goes away.
func (h *Hub) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("HMR read error", "error", err)
			}
			return
		}
	}
}

func (h *Hub) send(conn *websocket.Conn, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcast sends msg to every client. Writes happen under the write lock
// because a websocket connection allows a single concurrent writer.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal HMR message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return
	}

	h.logger.Debug("Broadcasting HMR message", "type", msg.Type, "clients", len(h.clients))

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("Failed to send HMR message", "error", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Reload tells every client to reload the page after file changed.
func (h *Hub) Reload(file string) {
	h.Broadcast(Message{
		Type:    "reload",
		File:    file,
		Message: "Configuration changed, reloading...",
	})
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}
