package eventbus

import (
	"sync"

	"github.com/opsdeck/opsdeck-backend/pkg/events"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

// EventHandler is a function that handles an event
type EventHandler func(event events.Event)

// Subscription identifies a registered handler so it can be removed later.
type Subscription struct {
	id        uint64
	eventType events.EventType
}

// EventBus manages event subscriptions and publications
type EventBus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[events.EventType]map[uint64]EventHandler
	logger   logging.Logger
}

// New creates a new EventBus
func New(logger logging.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[events.EventType]map[uint64]EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a specific event type
func (eb *EventBus) Subscribe(eventType events.EventType, handler EventHandler) *Subscription {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	if eb.handlers[eventType] == nil {
		eb.handlers[eventType] = make(map[uint64]EventHandler)
	}
	eb.handlers[eventType][eb.nextID] = handler

	eb.logger.Debugf("Subscribed to event type: %s", eventType)
	return &Subscription{id: eb.nextID, eventType: eventType}
}

// Unsubscribe removes a previously registered handler
func (eb *EventBus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if handlers, exists := eb.handlers[sub.eventType]; exists {
		delete(handlers, sub.id)
	}
}

// Publish sends an event to all subscribed handlers. Each handler runs on its
// own goroutine; a panicking handler does not affect the others.
func (eb *EventBus) Publish(event events.Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	handlers, exists := eb.handlers[event.Type]
	if !exists || len(handlers) == 0 {
		return
	}

	for _, handler := range handlers {
		go func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Errorf("Recovered from panic in event handler for %s: %v", event.Type, r)
				}
			}()
			h(event)
		}(handler)
	}
	eb.logger.Debugf("Published event type: %s to %d handlers", event.Type, len(handlers))
}

// SubscriberCount returns the number of handlers registered for a type.
func (eb *EventBus) SubscriberCount(eventType events.EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}
