package stream

import (
	"time"

	"github.com/opsdeck/opsdeck-backend/pkg/cable"
)

// MessageType represents the type of a stream frame.
type MessageType string

const (
	// Server to browser
	MessageTypeEvent   MessageType = "EVENT"
	MessageTypeStatus  MessageType = "STATUS"
	MessageTypeError   MessageType = "ERROR"
	MessageTypeSuccess MessageType = "SUCCESS"
	MessageTypePong    MessageType = "PONG"

	// Browser to server
	MessageTypeSubscribe   MessageType = "SUBSCRIBE"
	MessageTypeUnsubscribe MessageType = "UNSUBSCRIBE"
	MessageTypePing        MessageType = "PING"
)

// Message is one frame on the browser stream.
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventData is a relayed inbox event.
type EventData struct {
	Name      string                 `json:"event"`
	AccountID string                 `json:"account_id"`
	Data      map[string]interface{} `json:"data"`
}

// StatusData reports the upstream cable connection state.
type StatusData struct {
	CableStatus string `json:"cable_status"`
}

// SubscriptionData is the payload of subscribe and unsubscribe requests.
type SubscriptionData struct {
	Room string `json:"room"`
}

// ErrorData carries a protocol error to the browser.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessData acknowledges a browser request.
type SuccessData struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewMessage creates a stream frame stamped with the current time.
func NewMessage(msgType MessageType, data interface{}) *Message {
	return &Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewEventMessage wraps an inbox event for the browser stream.
func NewEventMessage(accountID string, event cable.Event) *Message {
	return NewMessage(MessageTypeEvent, &EventData{
		Name:      event.Name,
		AccountID: accountID,
		Data:      event.Data,
	})
}

// NewStatusMessage reports a cable connection state change.
func NewStatusMessage(status string) *Message {
	return NewMessage(MessageTypeStatus, &StatusData{CableStatus: status})
}

// NewErrorMessage creates an error frame.
func NewErrorMessage(code, message string) *Message {
	return NewMessage(MessageTypeError, &ErrorData{
		Code:    code,
		Message: message,
	})
}

// NewSuccessMessage creates an acknowledgement frame.
func NewSuccessMessage(message string, data interface{}) *Message {
	return NewMessage(MessageTypeSuccess, &SuccessData{
		Message: message,
		Data:    data,
	})
}
