package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	httppkg "github.com/opsdeck/opsdeck-backend/pkg/http"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

// Config holds the connection settings for the support inbox platform.
type Config struct {
	BaseURL     string
	AccessToken string
	AccountID   string
}

// Client handles communication with the support inbox platform.
type Client struct {
	logger     logging.Logger
	config     Config
	httpClient httppkg.HTTPClientInterface
}

// NewClient creates a new inbox platform client.
func NewClient(logger logging.Logger, cfg Config) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("inbox base URL cannot be empty")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("inbox access token cannot be empty")
	}

	httpClient, err := httppkg.NewHTTPClient(httppkg.DefaultHTTPRetryConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{
		logger:     logger,
		config:     cfg,
		httpClient: httpClient,
	}, nil
}

// FetchProfile returns the authenticated agent profile, including the pub/sub
// token the realtime bridge subscribes with.
func (c *Client) FetchProfile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.getJSON(ctx, "/api/v1/profile", &profile); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if profile.PubsubToken == "" {
		c.logger.Warnf("Inbox profile %d has no pubsub token; realtime stream will stay dormant", profile.ID)
	}
	return &profile, nil
}

// ListConversations returns conversation summaries for the configured
// account, optionally filtered by status (open, resolved, pending).
func (c *Client) ListConversations(ctx context.Context, status string) ([]ConversationSummary, error) {
	path := fmt.Sprintf("/api/v1/accounts/%s/conversations", url.PathEscape(c.config.AccountID))
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var page conversationPage
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(page.Data.Payload) != 0 {
		c.logger.Debugf("Fetched %d conversations", len(page.Data.Payload))
	}
	return page.Data.Payload, nil
}

// ToggleConversationStatus flips a conversation between open and resolved.
func (c *Client) ToggleConversationStatus(ctx context.Context, conversationID int) (*ToggleResult, error) {
	path := fmt.Sprintf("/api/v1/accounts/%s/conversations/%d/toggle_status",
		url.PathEscape(c.config.AccountID), conversationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build toggle request: %w", err)
	}
	c.setHeaders(req)

	var envelope toggleEnvelope
	if err := c.doJSON(req, &envelope); err != nil {
		return nil, fmt.Errorf("failed to toggle conversation %d: %w", conversationID, err)
	}

	c.logger.Infof("Conversation %d is now %s", conversationID, envelope.Payload.CurrentStatus)
	return &envelope.Payload, nil
}

// Close releases the underlying HTTP client.
func (c *Client) Close() {
	c.httpClient.Close()
}

func (c *Client) getJSON(ctx context.Context, path string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req)
	return c.doJSON(req, target)
}

func (c *Client) doJSON(req *http.Request, target interface{}) error {
	resp, err := c.httpClient.DoWithRetry(req.Context(), req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httppkg.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to unmarshal response body: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Accept", "application/json")
}

// CableURL maps an inbox base URL to the platform's realtime websocket
// endpoint (https -> wss, http -> ws, path /cable). Returns "" when the
// base URL cannot carry a websocket endpoint.
func CableURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return ""
	}
	u.Path = "/cable"
	u.RawQuery = ""
	return u.String()
}
