// ABOUTME: HTTP JSON client for the conversation service's /chat and /health.
// ABOUTME: Non-2xx replies become *StatusError; no streaming, no retries.

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/2389/wellness-client/internal/chat"
)

// ErrNoServiceURL is returned by New when no base URL is configured.
var ErrNoServiceURL = errors.New("service url is required")

// maxErrorBody caps how much of a failed reply is read for the error text.
const maxErrorBody = 64 << 10

// StatusError is returned when the service replies with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("service error (%d): %s", e.StatusCode, e.Message)
}

// Client talks to the conversation service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrNoServiceURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing service url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("service url must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "transport")
	return c, nil
}

// BaseURL returns the service base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send posts req to /chat and decodes the reply.
func (c *Client) Send(ctx context.Context, req *chat.Request) (*chat.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("sending turn",
		"message_len", len(req.Message),
		"current_agent", req.CurrentAgent,
		"suggested", req.IsSuggestedReply,
		"has_card", len(req.CardData) > 0,
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var out chat.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug("received reply",
		"agent", out.Agent,
		"cards", len(out.Cards),
		"suggestions", len(out.SuggestedReplies),
	)
	return &out, nil
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("checking health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding health: %w", err)
	}
	if body.Status != "healthy" {
		return fmt.Errorf("service reports status %q", body.Status)
	}
	return nil
}

// statusError extracts the service's error text from a failed reply.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Error  string `json:"error"`
		Detail any    `json:"detail"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Detail != nil:
			if s, ok := payload.Detail.(string); ok {
				msg = s
			} else if b, err := json.Marshal(payload.Detail); err == nil {
				msg = string(b)
			}
		}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
