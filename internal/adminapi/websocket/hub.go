// Package websocket fans pool/worker/task events out to connected
// dashboard clients over a websocket, adapted from the teacher's
// internal/api/websocket package. The source of events is an
// events.Bus subscription rather than a Redis channel: the bus already
// multiplexes in-process, so there is nothing to subscribe to over the
// network when events originate in this same binary.
package websocket

import (
	"context"
	"sync"

	"github.com/mrivas/taskpool/internal/events"
	"github.com/mrivas/taskpool/internal/logger"
	"github.com/mrivas/taskpool/internal/metrics"
)

// Hub manages connected clients and fans out events published on bus.
type Hub struct {
	bus *events.Bus

	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewHub builds a Hub reading from bus.
func NewHub(bus *events.Bus) *Hub {
	return &Hub{
		bus:        bus,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopCh:     make(chan struct{}),
	}
}

// Run subscribes to the bus and services client (un)registration until ctx
// is cancelled or Stop is called.
func (h *Hub) Run(ctx context.Context) {
	eventCh, cancel := h.bus.Subscribe(256)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				h.closeAllClients()
				return
			case <-h.stopCh:
				h.closeAllClients()
				return
			case event, ok := <-eventCh:
				if !ok {
					return
				}
				h.broadcastEvent(event)
			case client := <-h.register:
				h.mu.Lock()
				h.clients[client] = true
				h.mu.Unlock()
				metrics.WebSocketConnections.Set(float64(h.ClientCount()))
				logger.Debug().Str("client_id", client.ID).Msg("dashboard client registered")
			case client := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					close(client.send)
				}
				h.mu.Unlock()
				metrics.WebSocketConnections.Set(float64(h.ClientCount()))
				logger.Debug().Str("client_id", client.ID).Msg("dashboard client unregistered")
			}
		}
	}()

	logger.Info().Msg("admin websocket hub started")
}

// Stop shuts the hub down and waits for its loop to exit.
func (h *Hub) Stop() {
	close(h.stopCh)
	h.wg.Wait()
	logger.Info().Msg("admin websocket hub stopped")
}

// Register enqueues client for registration.
func (h *Hub) Register(client *Client) { h.register <- client }

// Unregister enqueues client for removal.
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastEvent(event *events.Event) {
	data, err := event.ToJSON()
	if err != nil {
		logger.Error().Err(err).Msg("failed to serialize event for broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.IsSubscribed(event.Type) {
			continue
		}
		select {
		case client.send <- data:
		default:
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
