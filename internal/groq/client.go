// Package groq is a minimal client for Groq's OpenAI-compatible chat
// completion API. Every call makes exactly one attempt; callers that can
// degrade gracefully are expected to fall back on their own rule-based
// path instead of retrying.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultTimeout = 30 * time.Second

	// DefaultModel is used when no model is configured.
	DefaultModel = "llama-3.3-70b-versatile"
)

// ErrNoAPIKey is returned by Chat when the client was built without a key.
var ErrNoAPIKey = errors.New("groq: api key not configured")

// Client talks to a Groq-compatible chat completion endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the public Groq API.
func NewClient(apiKey string) *Client {
	return NewClientWithBaseURL(apiKey, defaultBaseURL)
}

// NewClientWithBaseURL returns a client pointed at a custom endpoint.
// Used by tests and by deployments that front Groq with a proxy.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// SetTimeout overrides the per-request timeout. Zero or negative values
// are ignored.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// Configured reports whether the client has an API key to send.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Chat sends a chat completion request and decodes the response. The
// request is attempted once; any transport error, non-200 status or
// empty completion is returned to the caller as an error.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if !c.Configured() {
		return nil, ErrNoAPIKey
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("groq api status %d: %s", resp.StatusCode, detail)
	}

	var chat ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, errors.New("groq response contained no choices")
	}
	return &chat, nil
}

// Verify sends a one-token probe to confirm the key and endpoint work.
func (c *Client) Verify(ctx context.Context) error {
	_, err := c.Chat(ctx, &ChatRequest{
		Messages:  []Message{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	return err
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
