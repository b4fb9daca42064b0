package main

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"live-interview-service/internal/observability/logging"
)

// Event is one session event as read from Kafka. Payload carries the full
// event so the page can render any event type.
type Event struct {
	Topic     string          `json:"topic"`
	EventType string          `json:"eventType"`
	SessionID string          `json:"sessionId"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// parseEvent decodes the envelope fields of a Kafka message value.
func parseEvent(topic string, value []byte) (Event, error) {
	var env struct {
		EventType string `json:"eventType"`
		SessionID string `json:"sessionId"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(value, &env); err != nil {
		return Event{}, err
	}
	return Event{
		Topic:     topic,
		EventType: env.EventType,
		SessionID: env.SessionID,
		Timestamp: env.Timestamp,
		Payload:   json.RawMessage(value),
	}, nil
}

// client is one browser connection. An empty session receives every event.
type client struct {
	conn    *websocket.Conn
	session string
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	logger     zerolog.Logger
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 100),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logging.WithComponent("viewer-hub"),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Str("sessionId", c.session).Int("clients", n).Msg("Client connected")

		case c := <-h.unregister:
			h.remove(c)

		case event := <-h.broadcast:
			for _, c := range h.recipients(event.SessionID) {
				if err := c.conn.WriteJSON(event); err != nil {
					h.logger.Warn().Err(err).Msg("Write error")
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) recipients(sessionID string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.session == "" || c.session == sessionID {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
		h.logger.Info().Int("clients", n).Msg("Client disconnected")
	}
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
