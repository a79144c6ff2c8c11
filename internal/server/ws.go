package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gestureguard/gestureguard/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local tool, same-origin enforcement is not useful here.
		return true
	},
}

// StreamHandler pushes notifications to connected websocket clients as
// they are dispatched.
type StreamHandler struct {
	dispatcher *notify.Dispatcher

	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	// writeMu serializes broadcasts. The callback runs on the dispatch
	// worker for queued notifications and on the producer's goroutine
	// for inline high-priority dispatch, and gorilla/websocket forbids
	// concurrent writes to one connection.
	writeMu sync.Mutex
}

// NewStreamHandler creates a handler that broadcasts every notification
// the dispatcher delivers.
func NewStreamHandler(d *notify.Dispatcher) *StreamHandler {
	h := &StreamHandler{
		dispatcher: d,
		clients:    make(map[*websocket.Conn]bool),
	}
	d.AddCallback(h.broadcast)
	return h
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Read loop only drains control frames and detects disconnect.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *StreamHandler) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// broadcast sends a notification to every connected client, dropping
// clients whose writes fail.
func (h *StreamHandler) broadcast(n notify.Notification) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		if err := conn.WriteJSON(n); err != nil {
			h.remove(conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *StreamHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
