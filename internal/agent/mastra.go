package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const maxErrorBody = 4 * 1024

// HTTPClient streams from an agent over a POST endpoint.
type HTTPClient struct {
	settings Settings
	http     *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		h.http = c
	}
}

// NewHTTPClient creates a new agent client.
func NewHTTPClient(settings Settings, opts ...Option) (*HTTPClient, error) {
	if settings.Endpoint == "" {
		return nil, errors.New("agent endpoint is required")
	}
	u, err := url.Parse(settings.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid agent endpoint %q", settings.Endpoint)
	}

	c := &HTTPClient{
		settings: settings,
		// No client timeout: a stream lasts until the agent closes it or
		// the caller cancels.
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the agent name.
func (c *HTTPClient) Name() string {
	return c.settings.RunID
}

// NewRequest builds the request body for messages.
func (c *HTTPClient) NewRequest(messages []ChatMessage) *Request {
	return &Request{
		Messages:       messages,
		RunID:          c.settings.RunID,
		MaxRetries:     c.settings.MaxRetries,
		MaxSteps:       c.settings.MaxSteps,
		Temperature:    c.settings.Temperature,
		TopP:           c.settings.TopP,
		RuntimeContext: map[string]any{},
		ThreadID:       c.settings.ThreadID,
		ResourceID:     c.settings.ResourceID,
	}
}

// Open sends the conversation and returns the streaming response body.
func (c *HTTPClient) Open(ctx context.Context, messages []ChatMessage) (io.ReadCloser, error) {
	bodyBytes, err := json.Marshal(c.NewRequest(messages))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.Endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp.Body, nil
}
