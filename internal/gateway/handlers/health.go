package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsdeck/opsdeck-backend/internal/gateway/health"
)

// HandleHealth reports the gateway's own liveness plus the latest upstream
// probe results. The response is always 200; a down upstream degrades the
// body, not the gateway.
func (h *Handler) HandleHealth(c *gin.Context) {
	status := "healthy"
	upstreams := []health.Result{}

	if h.prober != nil {
		upstreams = h.prober.Results()
		if !h.prober.AllUp() {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"upstreams": upstreams,
	})
}
