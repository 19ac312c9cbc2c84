// Package ws pushes evaluations to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/pkg/logger"
)

// Message types
const (
	TypeConnection = "connection"
	TypeHeat       = "heat"
)

// Message is the envelope written to every client
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts messages to them
// ⭐ SSOT: 실시간 heat push 는 이 Hub 에서만
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu   sync.RWMutex
	last []byte // latest heat message, replayed to new clients
}

// NewHub creates a hub. Call Run before serving clients.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.Component("ws"),
	}
}

// Run serves register, unregister and broadcast until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("Hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			last := h.last
			h.mu.Unlock()

			h.logger.WithFields(map[string]interface{}{
				"clients": count,
				"remote":  c.remoteAddr,
			}).Debug("Client registered")

			if msg, err := encode(TypeConnection, map[string]string{"status": "connected"}); err == nil {
				c.trySend(msg)
			}
			if last != nil {
				c.trySend(last)
			}

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.WithField("clients", count).Debug("Client unregistered")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if !c.trySend(msg) {
					// slow client
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish implements refresh.Publisher. It never blocks the caller.
func (h *Hub) Publish(eval *contracts.Evaluation) {
	msg, err := encode(TypeHeat, eval)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode evaluation")
		return
	}

	h.mu.Lock()
	h.last = msg
	h.mu.Unlock()

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast buffer full, dropping message")
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the connection
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := newClient(h, conn)
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func encode(typ string, data interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: typ, Data: data, Timestamp: time.Now().UTC()})
}
