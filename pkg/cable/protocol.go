package cable

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

// channelName is the single server-side channel this client subscribes to.
const channelName = "RoomChannel"

const (
	frameTypeWelcome    = "welcome"
	frameTypeConfirm    = "confirm_subscription"
	frameTypePing       = "ping"
	frameTypeDisconnect = "disconnect"

	commandSubscribe = "subscribe"
)

// Event is a broadcast delivered on the subscribed channel.
type Event struct {
	Name string                 `json:"event"`
	Data map[string]interface{} `json:"data"`
}

// frame is any inbound message. Control frames carry a type; broadcast
// frames carry an identifier and a message payload instead.
type frame struct {
	Type       string          `json:"type"`
	Identifier string          `json:"identifier"`
	Message    json.RawMessage `json:"message"`
}

// subscribeCommand is the outbound subscription request. The identifier is a
// JSON document encoded as a string, as the wire protocol requires.
type subscribeCommand struct {
	Command    string `json:"command"`
	Identifier string `json:"identifier"`
}

type channelIdentifier struct {
	Channel     string `json:"channel"`
	PubsubToken string `json:"pubsub_token"`
	AccountID   string `json:"account_id"`
}

// buildIdentifier encodes the channel identifier from the configured
// credentials. Marshalling a flat string struct cannot fail.
func (c *Client) buildIdentifier() string {
	identifier, _ := json.Marshal(channelIdentifier{
		Channel:     channelName,
		PubsubToken: c.config.PubsubToken,
		AccountID:   c.config.AccountID,
	})
	return string(identifier)
}

// handleFrame decodes one inbound frame and advances the protocol. Anything
// undecodable or unknown is discarded without touching the connection state.
func (c *Client) handleFrame(conn *websocket.Conn, raw []byte) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		c.logger.Debugf("Discarding undecodable realtime frame: %v", err)
		return
	}

	switch f.Type {
	case frameTypeWelcome:
		c.sendSubscribe(conn)
	case frameTypeConfirm:
		c.mu.Lock()
		if c.conn == conn {
			c.setStatusLocked(StatusConnected)
		}
		c.mu.Unlock()
		c.logger.Infof("Realtime subscription confirmed for account %s", c.config.AccountID)
	case frameTypePing:
		// Liveness ticks carry no payload worth dispatching.
	case frameTypeDisconnect:
		c.logger.Warnf("Realtime server requested disconnect")
		// The read loop surfaces the close and schedules the reconnect.
		_ = conn.Close()
	case "":
		c.dispatch(f)
	default:
		c.logger.Debugf("Ignoring realtime frame with unknown type %q", f.Type)
	}
}

// dispatch forwards a broadcast frame to the current event callback. Frames
// without a payload, with a null payload or with an undecodable payload are
// dropped.
func (c *Client) dispatch(f frame) {
	if len(f.Message) == 0 || string(f.Message) == "null" {
		return
	}

	var event Event
	if err := json.Unmarshal(f.Message, &event); err != nil {
		c.logger.Debugf("Discarding undecodable realtime payload: %v", err)
		return
	}

	c.mu.Lock()
	handler := c.onEvent
	c.mu.Unlock()
	if handler == nil {
		return
	}
	handler(event)
}

// sendSubscribe answers the server welcome with the subscription command.
func (c *Client) sendSubscribe(conn *websocket.Conn) {
	c.mu.Lock()
	identifier := c.identifier
	c.mu.Unlock()

	payload, err := json.Marshal(subscribeCommand{
		Command:    commandSubscribe,
		Identifier: identifier,
	})
	if err != nil {
		c.logger.Errorf("Failed to encode subscribe command: %v", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.logger.Warnf("Failed to send subscribe command: %v", err)
	}
}
