package config

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/opsdeck/opsdeck-backend/internal/gateway/inbox"
	"github.com/opsdeck/opsdeck-backend/pkg/env"
)

type Config struct {
	devMode bool

	// Gateway HTTP port
	gatewayPort string

	// Backend API upstream
	backendAPIURL   string
	backendAPIToken string

	// Support inbox platform
	inboxBaseURL     string
	inboxAccessToken string
	inboxAccountID   string
	inboxCableURL    string

	// Realtime stream bridge
	streamEnabled bool

	// Proxy upstream table
	upstreamsConfigPath string

	// Upstream health probes
	probeSchedule string

	// Browser origins allowed through CORS
	allowedOrigins []string
}

var cfg Config

func Init() error {
	// The .env file is a dev convenience; deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg = Config{
		devMode:             env.GetEnvBool("DEV_MODE", false),
		gatewayPort:         env.GetEnvString("GATEWAY_PORT", "8420"),
		backendAPIURL:       env.GetEnvString("BACKEND_API_URL", "http://localhost:3000"),
		backendAPIToken:     env.GetEnvString("BACKEND_API_TOKEN", ""),
		inboxBaseURL:        env.GetEnvString("INBOX_BASE_URL", ""),
		inboxAccessToken:    env.GetEnvString("INBOX_ACCESS_TOKEN", ""),
		inboxAccountID:      env.GetEnvString("INBOX_ACCOUNT_ID", ""),
		inboxCableURL:       env.GetEnvString("INBOX_CABLE_URL", ""),
		streamEnabled:       env.GetEnvBool("STREAM_ENABLED", true),
		upstreamsConfigPath: env.GetEnvString("UPSTREAMS_CONFIG_PATH", "config/upstreams.yaml"),
		probeSchedule:       env.GetEnvString("PROBE_SCHEDULE", "@every 30s"),
		allowedOrigins:      splitOrigins(env.GetEnvString("ALLOWED_ORIGINS", "*")),
	}

	if cfg.inboxCableURL == "" {
		cfg.inboxCableURL = inbox.CableURL(cfg.inboxBaseURL)
	}

	if err := validateConfig(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !cfg.devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}

func validateConfig() error {
	if !env.IsValidPort(cfg.gatewayPort) {
		return fmt.Errorf("invalid gateway port: %s", cfg.gatewayPort)
	}
	if !env.IsValidURL(cfg.backendAPIURL) {
		return fmt.Errorf("invalid backend API URL: %s", cfg.backendAPIURL)
	}
	if !env.IsEmpty(cfg.inboxBaseURL) && !env.IsValidURL(cfg.inboxBaseURL) {
		return fmt.Errorf("invalid inbox base URL: %s", cfg.inboxBaseURL)
	}
	if !env.IsEmpty(cfg.inboxCableURL) && !env.IsValidWebSocketURL(cfg.inboxCableURL) {
		return fmt.Errorf("invalid inbox cable URL: %s", cfg.inboxCableURL)
	}
	return nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

func IsDevMode() bool {
	return cfg.devMode
}

func GetGatewayPort() string {
	return cfg.gatewayPort
}

func GetBackendAPIURL() string {
	return cfg.backendAPIURL
}

func GetBackendAPIToken() string {
	return cfg.backendAPIToken
}

func GetInboxBaseURL() string {
	return cfg.inboxBaseURL
}

func GetInboxAccessToken() string {
	return cfg.inboxAccessToken
}

func GetInboxAccountID() string {
	return cfg.inboxAccountID
}

func GetInboxCableURL() string {
	return cfg.inboxCableURL
}

func IsStreamEnabled() bool {
	return cfg.streamEnabled
}

func GetUpstreamsConfigPath() string {
	return cfg.upstreamsConfigPath
}

func GetProbeSchedule() string {
	return cfg.probeSchedule
}

func GetAllowedOrigins() []string {
	return cfg.allowedOrigins
}
