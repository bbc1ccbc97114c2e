// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"mealbox-service/internal/domain/delivery"

	"go.uber.org/zap"
)

// Hub fans delivery status events out to connected kitchen dashboards.
// Every connected client receives every event.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	events     chan delivery.StatusEvent

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan delivery.StatusEvent, 256),
		logger:     logger,
	}
}

// Broadcast queues a status event for delivery to every connected client.
// Never blocks; if the hub is saturated the event is dropped.
func (h *Hub) Broadcast(event delivery.StatusEvent) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("kitchen feed backlog full, dropping event",
			zap.Int64("delivery_id", event.DeliveryID))
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.events:
			h.fanOut(event)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("kitchen feed client connected",
		zap.Int64("identity_id", client.identityID),
		zap.Int("total", total),
	)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.close()

	h.logger.Info("kitchen feed client disconnected",
		zap.Int64("identity_id", client.identityID),
		zap.Int("total", len(h.clients)),
	)
}

func (h *Hub) fanOut(event delivery.StatusEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal status event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.enqueue(payload)
	}
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.close()
	}
	h.clients = make(map[*Client]bool)
}
