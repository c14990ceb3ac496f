package websocket

import (
	"context"
	"time"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/metrics"
)

const broadcastBuffer = 256

// Message is the envelope pushed to live subscribers.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// Hub fans reading and alert events out to connected websocket clients.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{}
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("WebSocket hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			h.log.Info("WebSocket hub shutting down...")
			return
		case client := <-h.register:
			h.clients[client] = true
			metrics.SetLiveSubscribers(len(h.clients))
			h.log.Debug("Live client connected. Total: %d", len(h.clients))
		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.log.Debug("Live client disconnected. Total: %d", len(h.clients))
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.log.Warn("Dropping slow live client")
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	metrics.SetLiveSubscribers(len(h.clients))
}

// Publish queues an event for every connected client. It never blocks; when
// the queue is full or the hub has stopped the event is dropped.
func (h *Hub) Publish(eventType string, payload interface{}) {
	msg := Message{
		Type:    eventType,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}

	select {
	case <-h.done:
	case h.broadcast <- msg:
	default:
		h.log.Warn("Live event queue full, dropping %s event", eventType)
	}
}

// ClientCount returns the number of connected clients, or 0 once the hub has stopped.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
