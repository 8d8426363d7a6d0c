package stream

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-backend/internal/gateway/inbox"
	"github.com/opsdeck/opsdeck-backend/pkg/cable"
	"github.com/opsdeck/opsdeck-backend/pkg/eventbus"
	"github.com/opsdeck/opsdeck-backend/pkg/events"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

type stubProfiles struct {
	profile *inbox.Profile
	err     error
	calls   atomic.Int32
}

func (s *stubProfiles) FetchProfile(ctx context.Context) (*inbox.Profile, error) {
	s.calls.Add(1)
	return s.profile, s.err
}

type stubCable struct {
	config      cable.Config
	connects    atomic.Int32
	disconnects atomic.Int32
}

func (s *stubCable) Connect()                            { s.connects.Add(1) }
func (s *stubCable) Disconnect()                         { s.disconnects.Add(1) }
func (s *stubCable) Status() cable.ConnectionStatus      { return cable.StatusConnected }
func (s *stubCable) SetOnEvent(handler cable.EventHandler) {}

// withStubCable swaps the cable constructor for the duration of the test and
// captures the config the bridge builds.
func withStubCable(t *testing.T) *stubCable {
	t.Helper()
	stub := &stubCable{}
	original := newCableClient
	newCableClient = func(config cable.Config) cable.ClientInterface {
		stub.config = config
		return stub
	}
	t.Cleanup(func() {
		newCableClient = original
	})
	return stub
}

func TestNewBridge_Validation(t *testing.T) {
	_, err := NewBridge(nil, BridgeConfig{CableURL: "ws://cable.test/cable"}, nil, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewBridge(logging.NewNoOpLogger(), BridgeConfig{}, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestBridge_StartFetchesProfileAndConnects(t *testing.T) {
	stub := withStubCable(t)
	profiles := &stubProfiles{profile: &inbox.Profile{
		ID:          1,
		Name:        "Ava",
		AccountID:   42,
		PubsubToken: "tok-1",
	}}

	bridge, err := NewBridge(logging.NewNoOpLogger(), BridgeConfig{
		CableURL: "ws://cable.test/cable",
	}, profiles, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, bridge.Start(context.Background()))

	assert.Equal(t, int32(1), profiles.calls.Load())
	assert.Equal(t, int32(1), stub.connects.Load())
	assert.Equal(t, "ws://cable.test/cable", stub.config.URL)
	assert.Equal(t, "tok-1", stub.config.PubsubToken)
	assert.Equal(t, "42", stub.config.AccountID)
	assert.True(t, stub.config.Enabled)
}

func TestBridge_StartUsesConfiguredCredentials(t *testing.T) {
	stub := withStubCable(t)
	profiles := &stubProfiles{}

	bridge, err := NewBridge(logging.NewNoOpLogger(), BridgeConfig{
		CableURL:    "ws://cable.test/cable",
		AccountID:   "9",
		PubsubToken: "tok-static",
	}, profiles, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, bridge.Start(context.Background()))

	assert.Equal(t, int32(0), profiles.calls.Load())
	assert.Equal(t, "tok-static", stub.config.PubsubToken)
	assert.Equal(t, "9", stub.config.AccountID)
}

func TestBridge_StaysDormantWithoutToken(t *testing.T) {
	stub := withStubCable(t)
	profiles := &stubProfiles{profile: &inbox.Profile{ID: 1, AccountID: 42}}

	bridge, err := NewBridge(logging.NewNoOpLogger(), BridgeConfig{
		CableURL: "ws://cable.test/cable",
	}, profiles, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, bridge.Start(context.Background()))

	assert.Equal(t, int32(0), stub.connects.Load())
	assert.Equal(t, "disconnected", bridge.Status().CableStatus)
}

func TestBridge_EventFanout(t *testing.T) {
	stub := withStubCable(t)
	hub := newRunningHub(t)
	bus := eventbus.New(logging.NewNoOpLogger())

	busEvents := make(chan events.Event, 4)
	bus.Subscribe(events.MessageCreated, func(event events.Event) {
		busEvents <- event
	})

	bridge, err := NewBridge(logging.NewNoOpLogger(), BridgeConfig{
		CableURL:    "ws://cable.test/cable",
		AccountID:   "42",
		PubsubToken: "tok-1",
	}, nil, hub, bus, nil)
	require.NoError(t, err)
	require.NoError(t, bridge.Start(context.Background()))

	viewer := newHubClient("viewer", hub)
	hub.Register(viewer)
	hub.Subscribe(viewer, "account:42")
	require.Eventually(t, func() bool {
		return roomCount(hub, "account:42") == 1
	}, 2*time.Second, 10*time.Millisecond)

	stub.config.OnEvent(cable.Event{
		Name: "message_created",
		Data: map[string]interface{}{"id": float64(7)},
	})

	frame := receive(t, viewer, 2*time.Second)
	require.Equal(t, MessageTypeEvent, frame.Type)
	eventData := frame.Data.(*EventData)
	assert.Equal(t, "message_created", eventData.Name)
	assert.Equal(t, "42", eventData.AccountID)
	assert.Equal(t, float64(7), eventData.Data["id"])

	select {
	case busEvent := <-busEvents:
		require.Equal(t, events.MessageCreated, busEvent.Type)
		payload := busEvent.Payload.(events.InboxEvent)
		assert.Equal(t, "message_created", payload.Name)
		assert.Equal(t, "42", payload.AccountID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the bus event")
	}

	assert.Equal(t, uint64(1), bridge.Status().EventsSeen)
}

func TestBridge_StatusFanout(t *testing.T) {
	stub := withStubCable(t)
	hub := newRunningHub(t)
	bus := eventbus.New(logging.NewNoOpLogger())

	busEvents := make(chan events.Event, 4)
	bus.Subscribe(events.StreamConnected, func(event events.Event) {
		busEvents <- event
	})

	bridge, err := NewBridge(logging.NewNoOpLogger(), BridgeConfig{
		CableURL:    "ws://cable.test/cable",
		AccountID:   "42",
		PubsubToken: "tok-1",
	}, nil, hub, bus, nil)
	require.NoError(t, err)
	require.NoError(t, bridge.Start(context.Background()))

	viewer := newHubClient("viewer", hub)
	hub.Register(viewer)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	stub.config.OnStatusChange(cable.StatusConnected)

	frame := receive(t, viewer, 2*time.Second)
	require.Equal(t, MessageTypeStatus, frame.Type)
	assert.Equal(t, "connected", frame.Data.(*StatusData).CableStatus)

	select {
	case busEvent := <-busEvents:
		assert.Equal(t, events.StreamConnected, busEvent.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the bus event")
	}

	assert.Equal(t, "connected", bridge.Status().CableStatus)
}

func TestBridge_StopDisconnects(t *testing.T) {
	stub := withStubCable(t)

	bridge, err := NewBridge(logging.NewNoOpLogger(), BridgeConfig{
		CableURL:    "ws://cable.test/cable",
		AccountID:   "42",
		PubsubToken: "tok-1",
	}, nil, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, bridge.Start(context.Background()))

	bridge.Stop()
	assert.Equal(t, int32(1), stub.disconnects.Load())
}

func TestBridge_StopBeforeStartIsNoOp(t *testing.T) {
	bridge, err := NewBridge(logging.NewNoOpLogger(), BridgeConfig{
		CableURL: "ws://cable.test/cable",
	}, nil, nil, nil, nil)
	require.NoError(t, err)

	bridge.Stop()
}

func TestEventTypeFor(t *testing.T) {
	assert.Equal(t, events.MessageCreated, eventTypeFor("message_created"))
	assert.Equal(t, events.ConversationRead, eventTypeFor("conversation_read"))
	assert.Equal(t, events.EventType("PRESENCE_UPDATE"), eventTypeFor("presence.update"))
}
