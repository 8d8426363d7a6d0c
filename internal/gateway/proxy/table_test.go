package proxy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upstreams.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTable_Valid(t *testing.T) {
	t.Setenv("BACKEND_SERVICE_TOKEN", "svc-secret")

	path := writeTable(t, `
upstreams:
  - name: backend
    base_url: http://backend.internal:3000
    prefix: api/backend
    auth: service
    service_token: ${BACKEND_SERVICE_TOKEN}
    health_path: /healthz
    timeout: 45s
  - name: files
    base_url: https://files.internal/
    prefix: /files/
`)

	table, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, table.Upstreams, 2)

	backend := table.Upstreams[0]
	assert.Equal(t, "/api/backend", backend.Prefix)
	assert.Equal(t, AuthService, backend.Auth)
	assert.Equal(t, "svc-secret", backend.ServiceToken)
	assert.Equal(t, 45*time.Second, backend.RequestTimeout())
	assert.Equal(t, "http://backend.internal:3000/healthz", backend.ProbeURL())

	files := table.Upstreams[1]
	assert.Equal(t, "/files", files.Prefix)
	assert.Equal(t, AuthPassthrough, files.Auth)
	assert.Equal(t, defaultRequestTimeout, files.RequestTimeout())
	assert.Equal(t, "https://files.internal/", files.ProbeURL())
}

func TestLoadTable_MissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadTable_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing name",
			content: `
upstreams:
  - base_url: http://backend.internal:3000
    prefix: /api/backend
`,
		},
		{
			name: "base url is not http",
			content: `
upstreams:
  - name: backend
    base_url: ftp://backend.internal
    prefix: /api/backend
`,
		},
		{
			name: "unknown auth mode",
			content: `
upstreams:
  - name: backend
    base_url: http://backend.internal:3000
    prefix: /api/backend
    auth: mtls
`,
		},
		{
			name: "service auth without token",
			content: `
upstreams:
  - name: backend
    base_url: http://backend.internal:3000
    prefix: /api/backend
    auth: service
`,
		},
		{
			name: "unparseable timeout",
			content: `
upstreams:
  - name: backend
    base_url: http://backend.internal:3000
    prefix: /api/backend
    timeout: soonish
`,
		},
		{
			name: "duplicate name",
			content: `
upstreams:
  - name: backend
    base_url: http://backend.internal:3000
    prefix: /api/backend
  - name: backend
    base_url: http://other.internal:3000
    prefix: /api/other
`,
		},
		{
			name: "duplicate prefix",
			content: `
upstreams:
  - name: backend
    base_url: http://backend.internal:3000
    prefix: /api/backend
  - name: other
    base_url: http://other.internal:3000
    prefix: /api/backend/
`,
		},
		{
			name:    "no upstreams",
			content: `upstreams: []`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable(writeTable(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestUpstream_RequestTimeout_Fallbacks(t *testing.T) {
	assert.Equal(t, defaultRequestTimeout, Upstream{}.RequestTimeout())
	assert.Equal(t, defaultRequestTimeout, Upstream{Timeout: "soonish"}.RequestTimeout())
	assert.Equal(t, defaultRequestTimeout, Upstream{Timeout: "-3s"}.RequestTimeout())
	assert.Equal(t, 250*time.Millisecond, Upstream{Timeout: "250ms"}.RequestTimeout())
}

func TestUpstream_ProbeURL(t *testing.T) {
	up := Upstream{BaseURL: "http://backend.internal:3000"}
	assert.Equal(t, "http://backend.internal:3000/", up.ProbeURL())

	up.HealthPath = "healthz"
	assert.Equal(t, "http://backend.internal:3000/healthz", up.ProbeURL())

	up.BaseURL = "http://backend.internal:3000/"
	up.HealthPath = "/api/health"
	assert.Equal(t, "http://backend.internal:3000/api/health", up.ProbeURL())
}
