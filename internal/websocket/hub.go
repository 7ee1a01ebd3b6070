// internal/websocket/hub.go
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"vroom-gateway/internal/entity"
)

// Message types sent to browsers.
const (
	TypeHistory  = "history"
	TypeEntities = "entities"
	TypeState    = "state"
)

const broadcastBuffer = 256

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatePayload is the payload of a TypeState message.
type StatePayload struct {
	Identity string `json:"identity"`
	Value    string `json:"value"`
}

// Hub maintains the set of active clients and broadcasts entity events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger.With("component", "websocket"),
	}
}

// Run serves registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "remote", client.RemoteAddr())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Debug("client unregistered", "remote", client.RemoteAddr())
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.logger.Warn("client send buffer full, removing", "remote", client.RemoteAddr())
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	close(h.done)
}

// RegisterClient adds a client to the hub.
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RegisterEntities implements entity.Sink.
func (h *Hub) RegisterEntities(batch []entity.Entity) {
	h.Broadcast(TypeEntities, batch)
}

// PublishValue implements entity.Sink.
func (h *Hub) PublishValue(identity, value string) {
	h.Broadcast(TypeState, StatePayload{Identity: identity, Value: value})
}

// Broadcast queues a message for all clients. It never blocks the caller: if
// the queue is full the message is dropped.
func (h *Hub) Broadcast(kind string, payload interface{}) {
	messageBytes, err := Encode(kind, payload)
	if err != nil {
		h.logger.Error("marshal broadcast", "type", kind, "error", err)
		return
	}
	select {
	case h.broadcast <- messageBytes:
	default:
		h.logger.Warn("broadcast queue full, message dropped", "type", kind)
	}
}

// Encode builds a frame.
func Encode(kind string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: kind, Payload: payload})
}
