// Package stream fans newly archived trips out to fleet manager clients.
// With a Redis client every API instance relays through one pub/sub channel,
// so a trip archived on one instance reaches viewers connected to any other.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// Channel is the Redis pub/sub channel carrying archived trip events.
const Channel = "logbook:trips:archived"

// SendBuffer is the per-client queue length. A client that falls this far
// behind loses messages rather than stalling the hub.
const SendBuffer = 64

// EventTripArchived is the only event type published today.
const EventTripArchived = "trip_archived"

// Event is the JSON message written to feed clients.
type Event struct {
	Type string              `json:"type"`
	Trip domain.ArchivedTrip `json:"trip"`
}

// Client is one feed subscriber.
type Client struct {
	Send chan []byte
}

// Hub keeps the set of connected clients.
type Hub struct {
	redis   *redis.Client
	logger  *slog.Logger
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a hub. rdb may be nil, in which case messages only reach
// clients of this process.
func NewHub(rdb *redis.Client, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		redis:   rdb,
		logger:  logger,
		clients: map[*Client]struct{}{},
	}
}

// Subscribe registers a new client.
func (h *Hub) Subscribe() *Client {
	c := &Client{Send: make(chan []byte, SendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Unsubscribe removes c and closes its Send channel. Calling it twice is a no-op.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.Send)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishArchived announces a newly archived trip.
func (h *Hub) PublishArchived(ctx context.Context, trip domain.ArchivedTrip) error {
	payload, err := json.Marshal(Event{Type: EventTripArchived, Trip: trip})
	if err != nil {
		return fmt.Errorf("stream.Hub.PublishArchived: %w", err)
	}
	h.Publish(ctx, payload)
	return nil
}

// Publish sends payload to every client. With Redis the message goes through
// the channel and comes back via Run; if the publish fails it is delivered
// locally instead.
func (h *Hub) Publish(ctx context.Context, payload []byte) {
	if h.redis == nil {
		h.deliver(payload)
		return
	}
	if err := h.redis.Publish(ctx, Channel, payload).Err(); err != nil {
		h.logger.WarnContext(ctx, "redis publish failed, delivering locally", "error", err)
		h.deliver(payload)
	}
}

// Run relays Redis messages to local clients until ctx is cancelled.
// Without Redis it just waits for ctx.
func (h *Hub) Run(ctx context.Context) error {
	if h.redis == nil {
		<-ctx.Done()
		return nil
	}
	sub := h.redis.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("stream.Hub.Run: subscribe: %w", err)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.deliver([]byte(msg.Payload))
		}
	}
}

func (h *Hub) deliver(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.Send <- payload:
		default:
			h.logger.Warn("feed client is behind, dropping message")
		}
	}
}
