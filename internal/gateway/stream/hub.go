package stream

import (
	"context"
	"strings"
	"sync"

	gatewaymetrics "github.com/opsdeck/opsdeck-backend/internal/gateway/metrics"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

const roomPrefix = "account:"

// RoomForAccount names the room events for an account are broadcast to.
func RoomForAccount(accountID string) string {
	return roomPrefix + accountID
}

// validRoom reports whether a browser may subscribe to the given room.
func validRoom(room string) bool {
	return strings.HasPrefix(room, roomPrefix) && len(room) > len(roomPrefix)
}

// Hub maintains the set of connected browser clients and broadcasts stream
// frames to them.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Room subscriptions
	rooms map[string]map[*Client]bool

	// Frames to fan out
	broadcast chan *BroadcastMessage

	// Register requests from new connections
	register chan *Client

	// Unregister requests from closing connections
	unregister chan *Client

	// Subscription requests
	subscribe chan *Subscription

	// Unsubscription requests
	unsubscribe chan *Subscription

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex

	logger  logging.Logger
	metrics *gatewaymetrics.Metrics
}

// BroadcastMessage is a frame addressed to specific rooms; an empty room
// list addresses every client.
type BroadcastMessage struct {
	Message *Message
	Rooms   []string
}

// Subscription joins a client to a room.
type Subscription struct {
	Client *Client
	Room   string
}

// NewHub creates a stream hub. The metrics set may be nil.
func NewHub(logger logging.Logger, metrics *gatewaymetrics.Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		broadcast:   make(chan *BroadcastMessage, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *Subscription),
		unsubscribe: make(chan *Subscription),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	h.logger.Info("Starting stream hub")

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case subscription := <-h.subscribe:
			h.subscribeToRoom(subscription)

		case subscription := <-h.unsubscribe:
			h.unsubscribeFromRoom(subscription)

		case broadcastMsg := <-h.broadcast:
			h.broadcastToRooms(broadcastMsg)

		case <-h.ctx.Done():
			h.logger.Info("Stream hub shutting down")
			return
		}
	}
}

// Register queues a client for registration.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister queues a client for removal.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Subscribe queues a room join for the client.
func (h *Hub) Subscribe(client *Client, room string) {
	select {
	case h.subscribe <- &Subscription{Client: client, Room: room}:
	case <-h.ctx.Done():
	}
}

// Unsubscribe queues a room leave for the client.
func (h *Hub) Unsubscribe(client *Client, room string) {
	select {
	case h.unsubscribe <- &Subscription{Client: client, Room: room}:
	case <-h.ctx.Done():
	}
}

// Broadcast fans a frame out to the given rooms, or to every client when no
// room is given. The frame is dropped when the hub is saturated.
func (h *Hub) Broadcast(message *Message, rooms ...string) {
	select {
	case h.broadcast <- &BroadcastMessage{Message: message, Rooms: rooms}:
	default:
		h.logger.Warn("Stream broadcast channel is full, dropping frame")
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.setClientGauge()
	h.logger.Infof("Stream client %s connected. Total clients: %d", client.ID, len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.closeSend()

	for room, clients := range h.rooms {
		if clients[client] {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	h.setClientGauge()
	h.logger.Infof("Stream client %s disconnected. Total clients: %d", client.ID, len(h.clients))
}

func (h *Hub) subscribeToRoom(subscription *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client := subscription.Client
	room := subscription.Room

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	h.logger.Infof("Stream client %s joined room %s", client.ID, room)
}

func (h *Hub) unsubscribeFromRoom(subscription *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client := subscription.Client
	room := subscription.Room

	if clients, exists := h.rooms[room]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
		h.logger.Infof("Stream client %s left room %s", client.ID, room)
	}
}

func (h *Hub) broadcastToRooms(broadcastMsg *BroadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	message := broadcastMsg.Message
	rooms := broadcastMsg.Rooms

	if h.metrics != nil {
		h.metrics.StreamBroadcastsTotal.Inc()
	}

	if len(rooms) == 0 {
		for client := range h.clients {
			h.deliver(client, message, nil)
		}
		return
	}

	for _, room := range rooms {
		if clients, exists := h.rooms[room]; exists {
			for client := range clients {
				h.deliver(client, message, clients)
			}
		}
	}
}

// deliver sends to one client, evicting it when its send buffer is full.
// Callers hold h.mu.
func (h *Hub) deliver(client *Client, message *Message, room map[*Client]bool) {
	select {
	case client.Send <- message:
	default:
		h.logger.Warnf("Stream client %s is not draining its buffer, evicting", client.ID)
		client.closeSend()
		delete(h.clients, client)
		if room != nil {
			delete(room, client)
		}
		h.setClientGauge()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub statistics for diagnostics.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomStats := make(map[string]int)
	for room, clients := range h.rooms {
		roomStats[room] = len(clients)
	}

	return map[string]interface{}{
		"total_clients": len(h.clients),
		"total_rooms":   len(h.rooms),
		"rooms":         roomStats,
	}
}

// Shutdown stops the hub loop and closes every client connection.
func (h *Hub) Shutdown() {
	h.logger.Info("Shutting down stream hub")
	h.cancel()

	h.mu.Lock()
	for client := range h.clients {
		client.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) setClientGauge() {
	if h.metrics != nil {
		h.metrics.StreamClientsActive.Set(float64(len(h.clients)))
	}
}
