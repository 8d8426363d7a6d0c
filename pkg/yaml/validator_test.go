package yaml

import (
	"strings"
	"testing"
)

type routeRule struct {
	Name    string `yaml:"name" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Auth    string `yaml:"auth" validate:"oneof=passthrough|service"`
	Timeout string `yaml:"timeout" validate:"duration"`
}

type routeTable struct {
	ListenPort string      `yaml:"listen_port" validate:"required,port"`
	BindIP     string      `yaml:"bind_ip" validate:"ip"`
	AdminEmail string      `yaml:"admin_email" validate:"email"`
	StreamURL  string      `yaml:"stream_url" validate:"ws_url"`
	MaxRoutes  int         `yaml:"max_routes" validate:"min=1,max=64"`
	Routes     []routeRule `yaml:"routes" validate:"required"`
}

func validTable() routeTable {
	return routeTable{
		ListenPort: "8420",
		BindIP:     "127.0.0.1",
		AdminEmail: "ops@example.com",
		StreamURL:  "wss://chat.example.com/cable",
		MaxRoutes:  8,
		Routes: []routeRule{
			{Name: "billing", BaseURL: "http://localhost:9000", Auth: "service", Timeout: "10s"},
			{Name: "inbox", BaseURL: "http://localhost:3000", Auth: "passthrough", Timeout: ""},
		},
	}
}

func TestValidateConfig_ValidConfig_ReturnsNoError(t *testing.T) {
	table := validTable()
	if err := NewValidator().ValidateConfig(&table); err != nil {
		t.Fatalf("ValidateConfig returned error: %v", err)
	}
}

func TestValidateConfig_InvalidConfigs_ReturnError(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*routeTable)
		errorHas string
	}{
		{
			name:     "missing port",
			mutate:   func(c *routeTable) { c.ListenPort = "" },
			errorHas: "ListenPort",
		},
		{
			name:     "port out of range",
			mutate:   func(c *routeTable) { c.ListenPort = "80" },
			errorHas: "invalid port number",
		},
		{
			name:     "bad ip",
			mutate:   func(c *routeTable) { c.BindIP = "999.0.0.1" },
			errorHas: "invalid IP address",
		},
		{
			name:     "bad email",
			mutate:   func(c *routeTable) { c.AdminEmail = "not-an-email" },
			errorHas: "invalid email address",
		},
		{
			name:     "http scheme for websocket field",
			mutate:   func(c *routeTable) { c.StreamURL = "http://chat.example.com/cable" },
			errorHas: "invalid websocket URL",
		},
		{
			name:     "max routes exceeded",
			mutate:   func(c *routeTable) { c.MaxRoutes = 100 },
			errorHas: "greater than maximum",
		},
		{
			name:     "empty routes slice",
			mutate:   func(c *routeTable) { c.Routes = nil },
			errorHas: "Routes",
		},
		{
			name:     "nested missing name",
			mutate:   func(c *routeTable) { c.Routes[0].Name = "" },
			errorHas: "Routes[0]",
		},
		{
			name:     "nested bad url",
			mutate:   func(c *routeTable) { c.Routes[1].BaseURL = "ftp://example.com" },
			errorHas: "invalid URL",
		},
		{
			name:     "nested bad auth mode",
			mutate:   func(c *routeTable) { c.Routes[0].Auth = "open" },
			errorHas: "not in allowed values",
		},
		{
			name:     "nested bad timeout",
			mutate:   func(c *routeTable) { c.Routes[0].Timeout = "ten seconds" },
			errorHas: "invalid duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := validTable()
			tt.mutate(&table)

			err := NewValidator().ValidateConfig(&table)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errorHas) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errorHas)
			}
		})
	}
}

func TestValidateConfig_NonStruct_ReturnsError(t *testing.T) {
	err := NewValidator().ValidateConfig("not a struct")
	if err == nil {
		t.Fatal("expected error for non-struct config")
	}
	if !strings.Contains(err.Error(), "must be a struct") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateConfig_UnknownRule_ReturnsError(t *testing.T) {
	type badTag struct {
		Field string `validate:"sparkles"`
	}
	err := NewValidator().ValidateConfig(&badTag{Field: "x"})
	if err == nil {
		t.Fatal("expected error for unknown rule")
	}
	if !strings.Contains(err.Error(), "unknown validation rule") {
		t.Errorf("unexpected error: %v", err)
	}
}
