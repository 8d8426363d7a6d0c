package stream

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

const (
	// Time allowed to write a frame to the browser.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the browser.
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait.
	pingPeriod = 54 * time.Second

	// Browser frames are subscribe/ping control messages only.
	maxInboundSize = 512

	sendBufferSize = 256
)

// Client is one browser connection on the stream endpoint.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Hub  *Hub
	Send chan *Message

	mu     sync.Mutex
	closed bool

	logger logging.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient wraps an upgraded connection.
func NewClient(id string, conn *websocket.Conn, hub *Hub, logger logging.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		ID:     id,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan *Message, sendBufferSize),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// ReadPump consumes browser frames until the connection drops, then
// unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		if err := c.Conn.Close(); err != nil {
			c.logger.Debugf("Error closing stream connection for client %s: %v", c.ID, err)
		}
	}()

	c.Conn.SetReadLimit(maxInboundSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warnf("Failed to set read deadline for client %s: %v", c.ID, err)
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.logger.Warnf("Stream client %s read failed: %v", c.ID, err)
			} else {
				c.logger.Debugf("Stream client %s closed: %v", c.ID, err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// WritePump relays hub frames to the browser and keeps the connection alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			c.logger.Debugf("Error closing stream connection for client %s: %v", c.ID, err)
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warnf("Failed to set write deadline for client %s: %v", c.ID, err)
			}
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				c.logger.Warnf("Failed to write to stream client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warnf("Failed to set write deadline for client %s: %v", c.ID, err)
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.handleSubscription(msg, true)
	case MessageTypeUnsubscribe:
		c.handleSubscription(msg, false)
	case MessageTypePing:
		c.send(NewMessage(MessageTypePong, nil))
	default:
		c.send(NewErrorMessage("INVALID_MESSAGE_TYPE", "Unknown message type"))
	}
}

func (c *Client) handleSubscription(msg *Message, join bool) {
	data, ok := msg.Data.(map[string]interface{})
	if !ok {
		c.send(NewErrorMessage("INVALID_SUBSCRIPTION_DATA", "Invalid subscription data format"))
		return
	}

	room, ok := data["room"].(string)
	if !ok || room == "" {
		c.send(NewErrorMessage("INVALID_ROOM", "Room is required"))
		return
	}

	if !validRoom(room) {
		c.send(NewErrorMessage("INVALID_ROOM", "Rooms are named account:<id>"))
		return
	}

	if join {
		c.Hub.Subscribe(c, room)
		c.send(NewSuccessMessage("Subscribed to room", map[string]string{"room": room}))
	} else {
		c.Hub.Unsubscribe(c, room)
		c.send(NewSuccessMessage("Unsubscribed from room", map[string]string{"room": room}))
	}
}

// send queues a frame for the client, closing it when the buffer is full.
func (c *Client) send(msg *Message) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.Send <- msg:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.logger.Warnf("Stream client %s send buffer is full, closing", c.ID)
		c.Close()
	}
}

// closeSend closes the send channel once. Only the hub calls this.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Close stops both pumps; ReadPump unregisters the client from the hub.
func (c *Client) Close() {
	c.cancel()
}
