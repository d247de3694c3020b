package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/livecc/internal/events"
	"github.com/rs/zerolog/log"
)

const clientBuffer = 64

// Message is the JSON frame sent to websocket clients.
type Message struct {
	Type    string          `json:"type"` // "segment", "error" or "status"
	Segment *events.Segment `json:"segment,omitempty"`
	Message string          `json:"message,omitempty"`
}

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
}

// Hub broadcasts events to connected websocket clients. A client that falls
// clientBuffer frames behind is disconnected.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

var _ events.Emitter = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) EmitSegment(seg events.Segment) {
	h.broadcast(Message{Type: "segment", Segment: &seg})
}

func (h *Hub) EmitError(msg string) {
	h.broadcast(Message{Type: "error", Message: msg})
}

func (h *Hub) EmitStatus(msg string) {
	h.broadcast(Message{Type: "status", Message: msg})
}

// Attach subscribes h to every event kind of sink.
func (h *Hub) Attach(sink *events.Sink) {
	sink.OnSegment(h.EmitSegment)
	sink.OnError(h.EmitError)
	sink.OnStatus(h.EmitStatus)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Msg("server: failed to encode message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("remote", c.remote).Msg("server: client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}
