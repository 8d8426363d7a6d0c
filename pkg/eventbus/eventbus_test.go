package eventbus

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-backend/pkg/events"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

func TestEventBus_SubscribeAndPublish_DeliversEvent(t *testing.T) {
	bus := New(logging.NewNoOpLogger())
	received := make(chan events.Event, 1)

	bus.Subscribe(events.MessageCreated, func(event events.Event) {
		received <- event
	})

	published := events.New(events.MessageCreated, events.InboxEvent{Name: "message_created"})
	bus.Publish(published)

	select {
	case got := <-received:
		assert.Equal(t, events.MessageCreated, got.Type)
		payload, ok := got.Payload.(events.InboxEvent)
		require.True(t, ok)
		assert.Equal(t, "message_created", payload.Name)
		assert.False(t, got.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestEventBus_Publish_ReachesAllSubscribers(t *testing.T) {
	bus := New(logging.NewNoOpLogger())
	var delivered int32
	done := make(chan struct{}, 3)

	for i := 0; i < 3; i++ {
		bus.Subscribe(events.ConversationCreated, func(event events.Event) {
			atomic.AddInt32(&delivered, 1)
			done <- struct{}{}
		})
	}

	bus.Publish(events.New(events.ConversationCreated, nil))

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("not all handlers ran")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&delivered))
}

func TestEventBus_Publish_IgnoresOtherEventTypes(t *testing.T) {
	bus := New(logging.NewNoOpLogger())
	received := make(chan events.Event, 1)

	bus.Subscribe(events.MessageCreated, func(event events.Event) {
		received <- event
	})

	bus.Publish(events.New(events.PresenceUpdated, nil))

	select {
	case <-received:
		t.Fatal("handler ran for an unrelated event type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_Unsubscribe_StopsDelivery(t *testing.T) {
	bus := New(logging.NewNoOpLogger())
	received := make(chan events.Event, 1)

	sub := bus.Subscribe(events.MessageCreated, func(event events.Event) {
		received <- event
	})
	require.Equal(t, 1, bus.SubscriberCount(events.MessageCreated))

	bus.Unsubscribe(sub)
	assert.Equal(t, 0, bus.SubscriberCount(events.MessageCreated))

	bus.Publish(events.New(events.MessageCreated, nil))

	select {
	case <-received:
		t.Fatal("handler ran after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_Unsubscribe_NilSubscription_NoPanic(t *testing.T) {
	bus := New(logging.NewNoOpLogger())
	bus.Unsubscribe(nil)
}

func TestEventBus_Publish_PanickingHandler_DoesNotAffectOthers(t *testing.T) {
	bus := New(logging.NewNoOpLogger())
	received := make(chan events.Event, 1)

	bus.Subscribe(events.StreamDisconnected, func(event events.Event) {
		panic("handler failure")
	})
	bus.Subscribe(events.StreamDisconnected, func(event events.Event) {
		received <- event
	})

	bus.Publish(events.New(events.StreamDisconnected, events.StreamStatusEvent{Status: "disconnected"}))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("surviving handler did not run")
	}
}
