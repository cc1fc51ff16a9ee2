package http

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"grateful.app/notifier/internal/metrics"
)

// Client represents a connected SSE view.
type Client struct {
	id   uuid.UUID
	send chan []byte
}

// Hub manages all active SSE view connections of this process.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
	metrics *metrics.Metrics
}

// NewHub creates a new SSE Hub.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		metrics: m,
	}
}

// Register adds a new SSE client.
func (h *Hub) Register(send chan []byte) *Client {
	c := &Client{id: uuid.New(), send: send}

	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetSSEClients(n)
	log.Debug().Str("client", c.id.String()).Msg("SSE client connected")
	return c
}

// Unregister removes an SSE client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetSSEClients(n)
	log.Debug().Str("client", c.id.String()).Msg("SSE client disconnected")
}

// Broadcast sends one event to every connected client. Slow clients miss it;
// the next snapshot carries the full state anyway.
func (h *Hub) Broadcast(event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}
	msg := buildSSEMessage(event, payload)

	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("client", c.id.String()).Str("event", event).Msg("SSE client send buffer full, skipping")
		}
	}
}

// ConnectedCount returns the number of connected SSE clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// buildSSEMessage formats a payload as an SSE frame.
func buildSSEMessage(event string, payload any) []byte {
	b, _ := json.Marshal(payload)
	return []byte("event: " + event + "\ndata: " + string(b) + "\n\n")
}
