package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	gatewaymetrics "github.com/opsdeck/opsdeck-backend/internal/gateway/metrics"
	"github.com/opsdeck/opsdeck-backend/internal/gateway/middleware"
	httppkg "github.com/opsdeck/opsdeck-backend/pkg/http"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

// passthroughHeaders are copied from the caller's request to the upstream
// request when present.
var passthroughHeaders = []string{"Accept", "Content-Type", "Accept-Language"}

// idempotentMethods may be retried on transport failure. Everything else
// gets exactly one attempt.
var idempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
}

// Forwarder relays dashboard requests to the upstreams in the routing table.
type Forwarder struct {
	logger   logging.Logger
	metrics  *gatewaymetrics.Metrics
	retrying *httppkg.HTTPClient
	single   *httppkg.HTTPClient
}

// NewForwarder creates a forwarder. The metrics set may be nil.
func NewForwarder(logger logging.Logger, metrics *gatewaymetrics.Metrics) (*Forwarder, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	retryingConfig := httppkg.DefaultHTTPRetryConfig()
	retryingConfig.Timeout = 30 * time.Second
	retryingConfig.RetryConfig.MaxRetries = 3
	retryingConfig.RetryConfig.InitialDelay = 200 * time.Millisecond
	retryingConfig.RetryConfig.MaxDelay = 2 * time.Second
	retryingConfig.RetryConfig.ShouldRetry = retryTransportErrorsOnly

	retrying, err := httppkg.NewHTTPClient(retryingConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create retrying HTTP client: %w", err)
	}

	singleConfig := httppkg.DefaultHTTPRetryConfig()
	singleConfig.Timeout = 30 * time.Second
	singleConfig.RetryConfig.MaxRetries = 1
	singleConfig.RetryConfig.ShouldRetry = retryTransportErrorsOnly

	single, err := httppkg.NewHTTPClient(singleConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create single-attempt HTTP client: %w", err)
	}

	return &Forwarder{
		logger:   logger,
		metrics:  metrics,
		retrying: retrying,
		single:   single,
	}, nil
}

// retryTransportErrorsOnly retries dial and timeout failures but never an
// upstream HTTP response; status codes are relayed to the caller as-is.
func retryTransportErrorsOnly(err error, attempt int) bool {
	var httpErr *httppkg.HTTPError
	return !errors.As(err, &httpErr)
}

// Mount registers a catch-all route per table entry on the router.
func (f *Forwarder) Mount(router gin.IRouter, table *Table) {
	for _, up := range table.Upstreams {
		upstream := up
		router.Any(upstream.Prefix+"/*path", func(c *gin.Context) {
			f.Forward(c, upstream, c.Param("path"))
		})
		f.logger.Infof("Proxying %s/* to %s (%s auth)", upstream.Prefix, upstream.BaseURL, upstream.Auth)
	}
}

// Forward relays the request on c to the upstream, appending path to its
// base URL, and streams the upstream response back.
func (f *Forwarder) Forward(c *gin.Context, up Upstream, path string) {
	start := time.Now()

	target := strings.TrimSuffix(up.BaseURL, "/") + path
	if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
		target += "?" + rawQuery
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), up.RequestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, c.Request.Method, target, c.Request.Body)
	if err != nil {
		f.logger.Errorf("Failed to build upstream request for %s: %v", up.Name, err)
		f.recordFailure(up.Name, "bad_request")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to build upstream request"})
		return
	}
	if c.Request.ContentLength >= 0 {
		req.ContentLength = c.Request.ContentLength
	}

	for _, header := range passthroughHeaders {
		if value := c.GetHeader(header); value != "" {
			req.Header.Set(header, value)
		}
	}
	f.applyAuth(c, up, req)
	if requestID := middleware.GetRequestID(c); requestID != "" {
		req.Header.Set(middleware.RequestIDHeader, requestID)
	}

	resp, err := f.clientFor(c.Request.Method).DoWithRetry(ctx, req)
	if err != nil {
		status, reason := classifyFailure(err)
		f.logger.Warnf("Proxy to %s failed (%s): %v", up.Name, reason, err)
		f.recordFailure(up.Name, reason)
		c.JSON(status, gin.H{"error": "upstream " + reason})
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	extraHeaders := make(map[string]string)
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		extraHeaders["Content-Disposition"] = disposition
	}
	contentType := resp.Header.Get("Content-Type")
	c.DataFromReader(resp.StatusCode, resp.ContentLength, contentType, resp.Body, extraHeaders)

	if f.metrics != nil {
		f.metrics.ProxyRequestsTotal.WithLabelValues(up.Name, c.Request.Method, strconv.Itoa(resp.StatusCode)).Inc()
		f.metrics.ProxyRequestDuration.WithLabelValues(up.Name, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Close releases both HTTP clients.
func (f *Forwarder) Close() {
	f.retrying.Close()
	f.single.Close()
}

func (f *Forwarder) clientFor(method string) *httppkg.HTTPClient {
	if idempotentMethods[method] {
		return f.retrying
	}
	return f.single
}

func (f *Forwarder) applyAuth(c *gin.Context, up Upstream, req *http.Request) {
	switch up.Auth {
	case AuthService:
		req.Header.Set("Authorization", "Bearer "+up.ServiceToken)
	default:
		if auth := c.GetHeader("Authorization"); auth != "" {
			req.Header.Set("Authorization", auth)
		}
	}
}

func (f *Forwarder) recordFailure(upstream, reason string) {
	if f.metrics != nil {
		f.metrics.ProxyFailuresTotal.WithLabelValues(upstream, reason).Inc()
	}
}

// classifyFailure maps a transport failure to the status the caller sees.
func classifyFailure(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusBadGateway, "unreachable"
}
