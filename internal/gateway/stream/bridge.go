package stream

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opsdeck/opsdeck-backend/internal/gateway/inbox"
	gatewaymetrics "github.com/opsdeck/opsdeck-backend/internal/gateway/metrics"
	"github.com/opsdeck/opsdeck-backend/pkg/cable"
	"github.com/opsdeck/opsdeck-backend/pkg/eventbus"
	"github.com/opsdeck/opsdeck-backend/pkg/events"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
	"github.com/opsdeck/opsdeck-backend/pkg/retry"
)

// ProfileFetcher resolves the agent profile the stream subscribes with.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context) (*inbox.Profile, error)
}

// newCableClient builds the upstream channel client; swapped in tests.
var newCableClient = func(config cable.Config) cable.ClientInterface {
	return cable.NewClient(config)
}

// BridgeConfig configures the inbox-to-browser event bridge.
type BridgeConfig struct {
	// CableURL is the ws(s) endpoint of the inbox cable.
	CableURL string
	// AccountID scopes the subscription; resolved from the profile when empty.
	AccountID string
	// PubsubToken authorizes the subscription; resolved from the profile when
	// empty.
	PubsubToken string
}

// Bridge subscribes to the inbox realtime channel and fans events out to the
// event bus and the browser stream hub.
type Bridge struct {
	logger   logging.Logger
	config   BridgeConfig
	profiles ProfileFetcher
	hub      *Hub
	bus      *eventbus.EventBus
	metrics  *gatewaymetrics.Metrics

	mu          sync.Mutex
	cable       cable.ClientInterface
	accountID   string
	cableStatus cable.ConnectionStatus
	statusSince time.Time

	eventsSeen atomic.Uint64
}

// StatusSnapshot is the bridge state reported on the status endpoint.
type StatusSnapshot struct {
	CableStatus string    `json:"cable_status"`
	EventsSeen  uint64    `json:"events_seen"`
	Since       time.Time `json:"since"`
}

// NewBridge creates the bridge. The hub, bus and metrics may each be nil when
// the corresponding sink is not wanted.
func NewBridge(logger logging.Logger, config BridgeConfig, profiles ProfileFetcher, hub *Hub, bus *eventbus.EventBus, metrics *gatewaymetrics.Metrics) (*Bridge, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if config.CableURL == "" {
		return nil, fmt.Errorf("cable URL cannot be empty")
	}

	return &Bridge{
		logger:      logger,
		config:      config,
		profiles:    profiles,
		hub:         hub,
		bus:         bus,
		metrics:     metrics,
		accountID:   config.AccountID,
		cableStatus: cable.StatusDisconnected,
		statusSince: time.Now(),
	}, nil
}

// Start resolves the subscription credentials and opens the upstream
// connection. It returns without error when the profile carries no pubsub
// token; the stream then stays dormant.
func (b *Bridge) Start(ctx context.Context) error {
	token := b.config.PubsubToken
	accountID := b.config.AccountID

	if token == "" {
		if b.profiles == nil {
			return fmt.Errorf("no pubsub token configured and no profile client to fetch one")
		}

		retryConfig := retry.DefaultRetryConfig()
		retryConfig.InitialDelay = 2 * time.Second

		profile, err := retry.Retry(ctx, func() (*inbox.Profile, error) {
			return b.profiles.FetchProfile(ctx)
		}, retryConfig, b.logger)
		if err != nil {
			return fmt.Errorf("failed to fetch profile for realtime stream: %w", err)
		}

		token = profile.PubsubToken
		if accountID == "" {
			accountID = strconv.Itoa(profile.AccountID)
		}
		b.logger.Infof("Resolved realtime credentials for %s (account %s)", profile.Name, accountID)
	}

	if token == "" {
		b.logger.Warn("Profile has no pubsub token, realtime stream stays dormant")
		return nil
	}

	b.mu.Lock()
	b.accountID = accountID
	b.cable = newCableClient(cable.Config{
		URL:            b.config.CableURL,
		PubsubToken:    token,
		AccountID:      accountID,
		Enabled:        true,
		OnEvent:        b.handleEvent,
		OnStatusChange: b.handleStatus,
		Logger:         b.logger,
	})
	client := b.cable
	b.mu.Unlock()

	client.Connect()
	return nil
}

// Stop tears down the upstream connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	client := b.cable
	b.mu.Unlock()

	if client != nil {
		client.Disconnect()
	}
}

// Status returns the current bridge state.
func (b *Bridge) Status() StatusSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return StatusSnapshot{
		CableStatus: string(b.cableStatus),
		EventsSeen:  b.eventsSeen.Load(),
		Since:       b.statusSince,
	}
}

func (b *Bridge) handleEvent(event cable.Event) {
	b.eventsSeen.Add(1)
	if b.metrics != nil {
		b.metrics.CableEventsTotal.Inc()
	}

	b.mu.Lock()
	accountID := b.accountID
	b.mu.Unlock()

	b.logger.Debugf("Inbox event %s for account %s", event.Name, accountID)

	if b.bus != nil {
		b.bus.Publish(events.New(eventTypeFor(event.Name), events.InboxEvent{
			Name:       event.Name,
			AccountID:  accountID,
			Data:       event.Data,
			ReceivedAt: time.Now().UTC(),
		}))
	}

	if b.hub != nil {
		b.hub.Broadcast(NewEventMessage(accountID, event), RoomForAccount(accountID))
	}
}

func (b *Bridge) handleStatus(status cable.ConnectionStatus) {
	b.mu.Lock()
	b.cableStatus = status
	b.statusSince = time.Now()
	b.mu.Unlock()

	b.logger.Infof("Realtime connection status: %s", status)
	if b.metrics != nil {
		b.metrics.SetCableState(string(status))
	}

	if b.bus != nil {
		switch status {
		case cable.StatusConnected:
			b.bus.Publish(events.New(events.StreamConnected, events.StreamStatusEvent{
				Status: string(status),
				Since:  time.Now().UTC(),
			}))
		case cable.StatusDisconnected:
			b.bus.Publish(events.New(events.StreamDisconnected, events.StreamStatusEvent{
				Status: string(status),
				Since:  time.Now().UTC(),
			}))
		}
	}

	if b.hub != nil {
		b.hub.Broadcast(NewStatusMessage(string(status)))
	}
}

// eventTypeFor maps a wire event name like "message_created" to its bus
// event type.
func eventTypeFor(name string) events.EventType {
	normalized := strings.ReplaceAll(name, ".", "_")
	return events.EventType(strings.ToUpper(normalized))
}
