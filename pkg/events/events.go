package events

import (
	"time"
)

type EventType string

const (
	ConversationCreated EventType = "CONVERSATION_CREATED"
	ConversationUpdated EventType = "CONVERSATION_UPDATED"
	ConversationRead    EventType = "CONVERSATION_READ"

	MessageCreated EventType = "MESSAGE_CREATED"
	MessageUpdated EventType = "MESSAGE_UPDATED"

	PresenceUpdated EventType = "PRESENCE_UPDATED"
	TypingOn        EventType = "TYPING_ON"
	TypingOff       EventType = "TYPING_OFF"

	StreamConnected    EventType = "STREAM_CONNECTED"
	StreamDisconnected EventType = "STREAM_DISCONNECTED"
)

// InboxEvent carries a realtime inbox payload through the bus. Data is kept
// schemaless because the upstream emits different shapes per event name.
type InboxEvent struct {
	Name       string                 `json:"event"`
	AccountID  string                 `json:"account_id"`
	Data       map[string]interface{} `json:"data"`
	ReceivedAt time.Time              `json:"received_at"`
}

// StreamStatusEvent reports a change of the upstream stream connection.
type StreamStatusEvent struct {
	Status string    `json:"status"`
	Since  time.Time `json:"since"`
}

// Event represents a generic event in the system
type Event struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// New builds an event stamped with the current time.
func New(eventType EventType, payload interface{}) Event {
	return Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
