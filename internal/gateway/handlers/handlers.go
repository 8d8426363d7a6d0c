package handlers

import (
	"github.com/opsdeck/opsdeck-backend/internal/gateway/health"
	"github.com/opsdeck/opsdeck-backend/internal/gateway/inbox"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

// Handler serves the gateway's own endpoints. The inbox client and prober
// may be nil when the corresponding feature is not configured.
type Handler struct {
	logger logging.Logger
	inbox  *inbox.Client
	prober *health.Prober
}

// NewHandler creates the handler set.
func NewHandler(logger logging.Logger, inboxClient *inbox.Client, prober *health.Prober) *Handler {
	return &Handler{
		logger: logger,
		inbox:  inboxClient,
		prober: prober,
	}
}
