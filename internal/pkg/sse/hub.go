package sse

import (
	"encoding/json"
	"sync"
)

// Event is one server-sent event
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one connected SSE observer. Topic restricts which events the
// client receives; an empty Topic subscribes to everything.
type Client struct {
	ID      string
	Channel chan Event
	Topic   string
}

// Hub tracks connected observers and fans events out to them.
// Delivery is best-effort: a client whose buffer is full misses the
// event rather than stalling the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client and closes its channel
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Channel)
	}
}

// Broadcast delivers an event to every client subscribed to the topic.
// Per-client ordering follows Broadcast call order; a slow client is
// skipped, never waited on.
func (h *Hub) Broadcast(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.Topic != "" && client.Topic != topic {
			continue
		}
		select {
		case client.Channel <- event:
		default:
			// buffer full, drop
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// FormatSSE renders the event in text/event-stream wire format
func (e Event) FormatSSE() string {
	data, _ := json.Marshal(e.Data)
	return "event: " + e.Type + "\ndata: " + string(data) + "\n\n"
}
