package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	metricspkg "github.com/opsdeck/opsdeck-backend/pkg/metrics"
)

const subsystem = "gateway"

// cableStates are the values the realtime connection state gauge cycles
// through; exactly one carries 1 at any time.
var cableStates = []string{"connecting", "connected", "disconnected"}

// Metrics holds the gateway's Prometheus instruments.
type Metrics struct {
	// HTTP surface
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Proxy traffic
	ProxyRequestsTotal   *prometheus.CounterVec
	ProxyRequestDuration *prometheus.HistogramVec
	ProxyFailuresTotal   *prometheus.CounterVec

	// Upstream health probes
	UpstreamUp *prometheus.GaugeVec

	// Realtime bridge
	CableConnectionState *prometheus.GaugeVec
	CableEventsTotal     prometheus.Counter

	// Browser stream hub
	StreamClientsActive   prometheus.Gauge
	StreamBroadcastsTotal prometheus.Counter
}

var _ metricspkg.ServiceMetrics = (*Metrics)(nil)

// New creates an empty metrics set; instruments are built when the set is
// registered with a collector.
func New() *Metrics {
	return &Metrics{}
}

// RegisterWith builds and registers all gateway instruments against the
// collector's registry.
func (m *Metrics) RegisterWith(collector *metricspkg.Collector) {
	builder := metricspkg.NewMetricBuilder(collector, subsystem)

	m.HTTPRequestsTotal = builder.CounterVec(
		"http_requests_total",
		"Total HTTP requests served by method, path and status code",
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = builder.HistogramVec(
		"http_request_duration_seconds",
		"HTTP request duration in seconds",
		[]string{"method", "path"},
		nil,
	)
	m.ProxyRequestsTotal = builder.CounterVec(
		"proxy_requests_total",
		"Total proxied requests by upstream, method and status code",
		[]string{"upstream", "method", "code"},
	)
	m.ProxyRequestDuration = builder.HistogramVec(
		"proxy_request_duration_seconds",
		"Proxied request duration in seconds",
		[]string{"upstream", "method"},
		nil,
	)
	m.ProxyFailuresTotal = builder.CounterVec(
		"proxy_failures_total",
		"Proxied requests that never produced an upstream response",
		[]string{"upstream", "reason"},
	)
	m.UpstreamUp = builder.GaugeVec(
		"upstream_up",
		"Whether the upstream answered its last health probe (1 up, 0 down)",
		[]string{"upstream"},
	)
	m.CableConnectionState = builder.GaugeVec(
		"cable_connection_state",
		"Current realtime channel connection state (1 on the active state)",
		[]string{"state"},
	)
	m.CableEventsTotal = builder.Counter(
		"cable_events_total",
		"Realtime events received on the channel",
	)
	m.StreamClientsActive = builder.Gauge(
		"stream_clients_active",
		"Browser stream clients currently connected",
	)
	m.StreamBroadcastsTotal = builder.Counter(
		"stream_broadcasts_total",
		"Events broadcast to browser stream clients",
	)
}

// SetCableState marks the given connection state as active and clears the
// others.
func (m *Metrics) SetCableState(state string) {
	for _, s := range cableStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		m.CableConnectionState.WithLabelValues(s).Set(value)
	}
}

// SetUpstreamUp records a health probe result.
func (m *Metrics) SetUpstreamUp(upstream string, up bool) {
	value := 0.0
	if up {
		value = 1.0
	}
	m.UpstreamUp.WithLabelValues(upstream).Set(value)
}
