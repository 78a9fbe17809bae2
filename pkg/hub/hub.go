// Package hub provides a thread-safe websocket broadcast hub using
// the idiomatic Go channel-based fan-out pattern. dronesim uses it to
// stream live drone state to any number of observers.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/airsimlabs/go-dronechat/internal/log"
)

// Hub maintains the set of active observers and broadcasts state
// updates to them.
type Hub struct {
	// Name for logging
	name string

	// Registered observers
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex
}

// New creates a new Hub.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("observer connected", "hub", h.name, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("observer disconnected", "hub", h.name, "remaining", count)

		case message := <-h.broadcast:
			// Full lock: the slow-observer path mutates the client set.
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Observer too slow; drop it
					close(client.send)
					delete(h.clients, client)
					log.Warn("dropped slow observer", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastJSON encodes v and broadcasts it to all observers.
// Messages are dropped rather than blocking when the hub is saturated.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warn("broadcast channel full, dropping message", "hub", h.name)
	}
	return nil
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
