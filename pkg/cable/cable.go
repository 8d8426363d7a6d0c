package cable

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

// ConnectionStatus describes the lifecycle state of the realtime connection.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

const (
	// reconnectBaseDelay doubles per consecutive failed attempt until it
	// reaches reconnectMaxDelay.
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second

	defaultHandshakeTimeout = 10 * time.Second
	maxMessageSize          = 512 * 1024
	closeWriteTimeout       = time.Second
	statusBufferSize        = 16
)

// EventHandler receives broadcast events from the subscribed channel.
type EventHandler func(Event)

// StatusHandler is notified on every connection status transition.
type StatusHandler func(ConnectionStatus)

// Config holds the parameters for a realtime channel client.
type Config struct {
	// URL is the websocket endpoint, e.g. wss://host/cable.
	URL string
	// PubsubToken authenticates the channel subscription.
	PubsubToken string
	// AccountID scopes the subscription to one account.
	AccountID string
	// Enabled gates the whole client; a disabled client never dials.
	Enabled bool
	// OnEvent is the initial event callback. It can be swapped at runtime
	// with SetOnEvent.
	OnEvent EventHandler
	// OnStatusChange, when set, is invoked on status transitions.
	OnStatusChange StatusHandler
	// Logger defaults to a no-op logger when nil.
	Logger logging.Logger
	// Dialer overrides the default websocket dialer.
	Dialer *websocket.Dialer
}

// Client maintains a single websocket subscription to the realtime channel.
// It dials, subscribes after the server welcome, dispatches broadcast events
// and reconnects with exponential backoff after any socket loss. All entry
// points are safe for concurrent use and never panic on protocol garbage.
type Client struct {
	config Config
	logger logging.Logger
	dialer *websocket.Dialer

	mu         sync.Mutex
	onEvent    EventHandler
	status     ConnectionStatus
	identifier string
	conn       *websocket.Conn
	timer      *time.Timer
	attempts   int
	dialing    bool
	// gen expires in-flight dials, read loops and pending timers from
	// before the last teardown.
	gen uint64

	// statusCh serializes status notifications so the handler observes
	// transitions in the order they happened.
	statusCh chan ConnectionStatus
}

// NewClient creates a client. It does not connect.
func NewClient(config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	dialer := config.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			HandshakeTimeout: defaultHandshakeTimeout,
			Proxy:            http.ProxyFromEnvironment,
		}
	}

	c := &Client{
		config:  config,
		logger:  logger,
		dialer:  dialer,
		onEvent: config.OnEvent,
		status:  StatusDisconnected,
	}
	if config.OnStatusChange != nil {
		c.statusCh = make(chan ConnectionStatus, statusBufferSize)
		go c.notifyLoop()
	}
	return c
}

func (c *Client) notifyLoop() {
	for status := range c.statusCh {
		c.config.OnStatusChange(status)
	}
}

// Connect starts the connection attempt. It is a no-op when the client is
// disabled, misconfigured, already connected or already dialing.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked()
}

func (c *Client) connectLocked() {
	if !c.config.Enabled {
		c.logger.Debugf("Realtime updates disabled, skipping connection")
		return
	}
	if c.config.URL == "" || c.config.PubsubToken == "" {
		c.logger.Debugf("Realtime connection skipped: missing URL or pubsub token")
		return
	}
	if c.conn != nil || c.dialing {
		return
	}

	c.setStatusLocked(StatusConnecting)
	c.identifier = c.buildIdentifier()
	c.dialing = true
	go c.dial(c.gen)
}

// dial runs off the lock. Its result is discarded when the client was torn
// down while the handshake was in flight.
func (c *Client) dial(gen uint64) {
	conn, resp, err := c.dialer.Dial(c.config.URL, nil)
	if err != nil && resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	c.dialing = false

	if err != nil {
		c.logger.Warnf("Failed to connect to realtime endpoint %s: %v", c.config.URL, err)
		c.setStatusLocked(StatusDisconnected)
		c.scheduleReconnectLocked()
		return
	}

	conn.SetReadLimit(maxMessageSize)
	c.conn = conn
	c.attempts = 0
	c.logger.Infof("Connected to realtime endpoint %s, awaiting welcome", c.config.URL)
	go c.readLoop(conn, gen)
}

func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleSocketClosed(conn, gen, err)
			return
		}
		c.handleFrame(conn, raw)
	}
}

func (c *Client) handleSocketClosed(conn *websocket.Conn, gen uint64, err error) {
	_ = conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Stale read loops from a torn-down or replaced socket must not
	// disturb the current connection.
	if gen != c.gen || c.conn != conn {
		return
	}

	c.conn = nil
	c.logger.Warnf("Realtime connection lost: %v", err)
	c.setStatusLocked(StatusDisconnected)
	c.scheduleReconnectLocked()
}

func (c *Client) scheduleReconnectLocked() {
	if !c.config.Enabled {
		return
	}
	if c.timer != nil {
		return
	}

	delay := reconnectDelay(c.attempts)
	c.attempts++
	gen := c.gen
	c.logger.Infof("Reconnecting to realtime endpoint in %v (attempt %d)", delay, c.attempts)

	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// A timer from before the last teardown must not clear the
		// handle of a newer pending timer.
		if gen != c.gen {
			return
		}
		c.timer = nil
		c.connectLocked()
	})
}

// reconnectDelay doubles the base delay per previous failed attempt, capped
// at the maximum.
func reconnectDelay(attempt int) time.Duration {
	delay := reconnectBaseDelay
	for i := 0; i < attempt && delay < reconnectMaxDelay; i++ {
		delay *= 2
	}
	if delay > reconnectMaxDelay {
		delay = reconnectMaxDelay
	}
	return delay
}

// Disconnect tears down the socket and any pending reconnect timer. Calling
// it repeatedly is harmless; a later Connect starts a fresh session.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	c.dialing = false
	c.attempts = 0
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.setStatusLocked(StatusDisconnected)
	c.mu.Unlock()

	if conn != nil {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(closeWriteTimeout))
		_ = conn.Close()
	}
}

// Status returns the current connection status.
func (c *Client) Status() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetOnEvent swaps the event callback. Events received afterwards go to the
// new handler; a nil handler drops them.
func (c *Client) SetOnEvent(handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = handler
}

func (c *Client) setStatusLocked(status ConnectionStatus) {
	if c.status == status {
		return
	}
	c.status = status
	if c.statusCh == nil {
		return
	}
	select {
	case c.statusCh <- status:
	default:
		c.logger.Debugf("Dropping status notification %s: handler is too slow", status)
	}
}
