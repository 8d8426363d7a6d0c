package proxy

import (
	"fmt"
	"os"
	"strings"
	"time"

	yamlpkg "github.com/opsdeck/opsdeck-backend/pkg/yaml"
)

// Auth modes an upstream entry can declare.
const (
	AuthPassthrough = "passthrough"
	AuthService     = "service"
)

const defaultRequestTimeout = 15 * time.Second

// Upstream is one routing table entry: requests under Prefix are forwarded
// to BaseURL with the path prefix stripped.
type Upstream struct {
	Name         string `yaml:"name" validate:"required"`
	BaseURL      string `yaml:"base_url" validate:"required,url"`
	Prefix       string `yaml:"prefix" validate:"required"`
	Auth         string `yaml:"auth" validate:"oneof=passthrough|service"`
	ServiceToken string `yaml:"service_token"`
	HealthPath   string `yaml:"health_path"`
	Timeout      string `yaml:"timeout" validate:"duration"`
}

// RequestTimeout returns the per-request deadline for this upstream.
func (u Upstream) RequestTimeout() time.Duration {
	if u.Timeout == "" {
		return defaultRequestTimeout
	}
	d, err := time.ParseDuration(u.Timeout)
	if err != nil || d <= 0 {
		return defaultRequestTimeout
	}
	return d
}

// ProbeURL is the absolute URL health probes hit for this upstream.
func (u Upstream) ProbeURL() string {
	path := u.HealthPath
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimSuffix(u.BaseURL, "/") + path
}

// Table is the full routing table loaded from the upstreams config file.
type Table struct {
	Upstreams []Upstream `yaml:"upstreams" validate:"required"`
}

// LoadTable reads and validates the routing table at path. Service tokens
// may reference environment variables with ${VAR} syntax.
func LoadTable(path string) (*Table, error) {
	var table Table
	if err := yamlpkg.LoadYAML(path, &table); err != nil {
		return nil, fmt.Errorf("failed to load upstream table: %w", err)
	}

	for i := range table.Upstreams {
		up := &table.Upstreams[i]
		if up.Auth == "" {
			up.Auth = AuthPassthrough
		}
		up.Prefix = normalizePrefix(up.Prefix)
		up.ServiceToken = os.ExpandEnv(up.ServiceToken)
	}

	if err := yamlpkg.NewValidator().ValidateConfig(&table); err != nil {
		return nil, fmt.Errorf("invalid upstream table: %w", err)
	}

	seenNames := make(map[string]bool)
	seenPrefixes := make(map[string]bool)
	for _, up := range table.Upstreams {
		if seenNames[up.Name] {
			return nil, fmt.Errorf("duplicate upstream name %q", up.Name)
		}
		seenNames[up.Name] = true
		if seenPrefixes[up.Prefix] {
			return nil, fmt.Errorf("duplicate upstream prefix %q", up.Prefix)
		}
		seenPrefixes[up.Prefix] = true
		if up.Auth == AuthService && up.ServiceToken == "" {
			return nil, fmt.Errorf("upstream %q uses service auth but has no service token", up.Name)
		}
	}

	return &table, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return prefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimSuffix(prefix, "/")
}
