// Package ragserve provides a small HTTP client for the ragserve API.
package ragserve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// ChatResult is the answer to one question.
type ChatResult struct {
	Answer    string   `json:"answer"`
	SessionID string   `json:"session_id"`
	Sources   []string `json:"sources"`
}

// Status reports which server components are loaded.
type Status struct {
	APIStatus         string `json:"api_status"`
	RAGInitialized    bool   `json:"rag_initialized"`
	ModelLoaded       bool   `json:"model_loaded"`
	VectorStoreLoaded bool   `json:"vector_store_loaded"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ragserve: server returned %d: %s", e.StatusCode, e.Message)
}

// Client is the ragserve API client entry point.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Ignored when WithHTTPClient is
// also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chat asks a question. An empty sessionID lets the server assign the
// default session.
func (c *Client) Chat(ctx context.Context, prompt, sessionID string) (ChatResult, error) {
	body := map[string]string{"prompt": prompt}
	if sessionID != "" {
		body["session_id"] = sessionID
	}

	var result ChatResult
	if err := c.do(ctx, http.MethodPost, "/api/chat", body, &result); err != nil {
		return ChatResult{}, err
	}
	return result, nil
}

// Status fetches the component readiness snapshot.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var status Status
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// Healthy reports whether the server considers itself fully operational.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("ragserve: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("ragserve: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ragserve: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ragserve: decode response: %w", err)
	}
	return nil
}

func errorMessage(body io.Reader) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&e); err != nil || e.Error == "" {
		return "unknown error"
	}
	return e.Error
}
