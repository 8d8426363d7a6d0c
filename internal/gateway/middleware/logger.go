package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	gatewaymetrics "github.com/opsdeck/opsdeck-backend/internal/gateway/metrics"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

// AccessLog logs each request after it completes and records HTTP metrics.
func AccessLog(logger logging.Logger, m *gatewaymetrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Scrapes would drown the log otherwise.
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		if m != nil {
			statusCode := fmt.Sprintf("%d", status)
			m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
		}

		logger.Debug("HTTP Request",
			"method", method,
			"path", path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		)
	}
}
