package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricspkg "github.com/opsdeck/opsdeck-backend/pkg/metrics"
)

func newRegistered(t *testing.T) *Metrics {
	t.Helper()
	collector := metricspkg.NewCollector("gateway", metricspkg.WithCommonMetrics(false))
	m := New()
	m.RegisterWith(collector)
	return m
}

// TestMetrics_RegisterWith tests that all instruments register and are
// usable afterwards.
func TestMetrics_RegisterWith(t *testing.T) {
	m := newRegistered(t)

	require.NotNil(t, m.ProxyRequestsTotal)
	require.NotNil(t, m.UpstreamUp)
	require.NotNil(t, m.CableConnectionState)

	m.ProxyRequestsTotal.WithLabelValues("backend", "GET", "200").Inc()
	m.ProxyRequestsTotal.WithLabelValues("backend", "GET", "200").Inc()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ProxyRequestsTotal.WithLabelValues("backend", "GET", "200")))

	m.CableEventsTotal.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CableEventsTotal))

	m.StreamClientsActive.Inc()
	m.StreamClientsActive.Dec()
	assert.Equal(t, float64(0), testutil.ToFloat64(m.StreamClientsActive))
}

// TestMetrics_SetCableState tests that exactly one state gauge carries 1.
func TestMetrics_SetCableState(t *testing.T) {
	m := newRegistered(t)

	m.SetCableState("connected")
	assert.Equal(t, float64(0), testutil.ToFloat64(m.CableConnectionState.WithLabelValues("connecting")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CableConnectionState.WithLabelValues("connected")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.CableConnectionState.WithLabelValues("disconnected")))

	m.SetCableState("disconnected")
	assert.Equal(t, float64(0), testutil.ToFloat64(m.CableConnectionState.WithLabelValues("connected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CableConnectionState.WithLabelValues("disconnected")))
}

// TestMetrics_SetUpstreamUp tests probe result recording per upstream.
func TestMetrics_SetUpstreamUp(t *testing.T) {
	m := newRegistered(t)

	m.SetUpstreamUp("backend", true)
	m.SetUpstreamUp("inbox", false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpstreamUp.WithLabelValues("backend")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.UpstreamUp.WithLabelValues("inbox")))
}
