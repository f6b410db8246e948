// Package realtime pushes engine events to browsers over WebSocket and
// forwards their commands back.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub holds the clients watching one game session.
// Broadcast never blocks: a client whose buffer is full is dropped.
type Hub struct {
	mu      sync.Mutex
	name    string
	clients map[*Client]struct{}
	closed  bool
}

// NewHub creates an empty hub; name is used for logging only.
func NewHub(name string) *Hub {
	return &Hub{name: name, clients: make(map[*Client]struct{})}
}

// Register adds c. Registering on a closed hub closes c immediately.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.send)
		return
	}
	h.clients[c] = struct{}{}
	log.Debug().Str("session", h.name).Int("clients", len(h.clients)).Msg("ws client connected")
}

// Unregister removes c and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("session", h.name).Msg("ws client too slow, dropping")
			h.drop(c)
		}
	}
}

// Publish marshals v to JSON and broadcasts it.
func (h *Hub) Publish(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("session", h.name).Msg("marshal ws message")
		return
	}
	h.Broadcast(b)
}

// sendTo queues msg for a single client; false if c is gone or full.
func (h *Hub) sendTo(c *Client, msg []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		h.drop(c)
		return false
	}
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		log.Debug().Str("session", h.name).Int("clients", len(h.clients)).Msg("ws client disconnected")
	}
}
