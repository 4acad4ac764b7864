package hub

import (
	"context"
	"sync"

	"github.com/teslashibe/go-rover/internal/log"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	name string

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	// Guards count only; the client map itself is owned by Run.
	mu    sync.RWMutex
	count int

	done chan struct{}
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled, then disconnects everyone.
// Call it in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	logger := log.With("hub", h.name)
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))
			logger.Info("client connected", "clients", len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				logger.Info("client disconnected", "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow consumer: a stale steering command is worse than none.
					h.drop(client)
					logger.Warn("dropped slow client", "clients", len(h.clients))
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount(len(h.clients))
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Broadcast queues msg for every client. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		log.Warn("broadcast queue full, dropping message", "hub", h.name, "topic", msg.Topic)
		return false
	}
}

// Publish encodes v and broadcasts it.
func (h *Hub) Publish(topic string, v any) error {
	msg, err := NewMessage(topic, v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
