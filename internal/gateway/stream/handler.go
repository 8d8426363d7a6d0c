package stream

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

// Handler serves the browser stream endpoint and the stream status endpoint.
type Handler struct {
	logger    logging.Logger
	hub       *Hub
	bridge    *Bridge
	accountID string
	upgrader  websocket.Upgrader
}

// NewHandler creates the stream handler. Connections are auto-joined to the
// account room when accountID is set.
func NewHandler(logger logging.Logger, hub *Hub, bridge *Bridge, accountID string, allowedOrigins []string) *Handler {
	return &Handler{
		logger:    logger,
		hub:       hub,
		bridge:    bridge,
		accountID: accountID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeStream upgrades the request and attaches the browser to the hub.
func (h *Handler) ServeStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warnf("Stream upgrade failed for %s: %v", c.ClientIP(), err)
		return
	}

	client := NewClient(uuid.New().String(), conn, h.hub, h.logger)
	h.hub.Register(client)
	if h.accountID != "" {
		h.hub.Subscribe(client, RoomForAccount(h.accountID))
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Infof("Stream client %s connected from %s", client.ID, c.ClientIP())
}

// Status reports the bridge connection state and hub occupancy.
func (h *Handler) Status(c *gin.Context) {
	cableStatus := "disabled"
	var eventsSeen uint64
	if h.bridge != nil {
		snapshot := h.bridge.Status()
		cableStatus = snapshot.CableStatus
		eventsSeen = snapshot.EventsSeen
	}

	c.JSON(http.StatusOK, gin.H{
		"cable_status": cableStatus,
		"events_seen":  eventsSeen,
		"clients":      h.hub.ClientCount(),
	})
}

// originChecker builds the upgrade origin policy from the allow list. An
// empty Origin header passes; non-browser clients do not send one.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowAll := false
	allowed := make(map[string]bool)
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[normalizeOrigin(origin)] = true
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return allowed[normalizeOrigin(origin)]
	}
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimSuffix(origin, "/"))
}
