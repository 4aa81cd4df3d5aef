// Package convai obtains signed conversation URLs for an ElevenLabs
// Conversational AI agent. A browser uses the URL to open a managed voice
// conversation without ever seeing the API key.
package convai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.elevenlabs.io"

// ErrNotConfigured is returned when the API key or agent id is missing.
var ErrNotConfigured = errors.New("convai: ElevenLabs API key or agent ID not configured; set XI_API_KEY and ELEVENLABS_AGENT_ID in your environment or .env file")

// Option configures a [Client].
type Option func(*Client)

// WithAPIBase overrides the REST root (default https://api.elevenlabs.io).
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client fetches signed URLs. A Client built without credentials is valid;
// its SignedURL always returns [ErrNotConfigured].
type Client struct {
	apiKey     string
	agentID    string
	apiBase    string
	httpClient *http.Client
}

// New returns a Client for the given agent.
func New(apiKey, agentID string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		agentID:    agentID,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether both the API key and the agent id are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.agentID != ""
}

// SignedURL requests a fresh signed conversation URL.
func (c *Client) SignedURL(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	q := url.Values{}
	q.Set("agent_id", c.agentID)
	endpoint := c.apiBase + "/v1/convai/conversation/get-signed-url?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("convai: signed url: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("convai: signed url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("convai: signed url: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		SignedURL string `json:"signed_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("convai: signed url decode: %w", err)
	}
	if body.SignedURL == "" {
		return "", errors.New("convai: signed url: empty signed_url in response")
	}
	return body.SignedURL, nil
}
