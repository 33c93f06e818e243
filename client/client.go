// Package client is the Go SDK for the NoteNest API.
//
// The Client carries session cookies in a jar and transparently renews an
// expired access token: a 401 triggers exactly one refresh exchange followed
// by one retry of the original request. A failed refresh ends the session
// and fires the OnSessionExpired hook.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

const refreshPath = "/api/v1/users/refresh-token"

// ErrSessionExpired is returned when the silent refresh exchange fails.
// The original call's response is discarded.
var ErrSessionExpired = errors.New("client: session expired")

// APIError is a non-2xx API response decoded from the server envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Client talks to a NoteNest server. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	onSessionExpired func()

	// refreshMu serializes refresh exchanges so concurrent 401s do not race
	// each other for the single refresh slot.
	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// when the given client has none.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithOnSessionExpired sets the hook invoked when a silent refresh fails.
// A browser app would redirect to the login page here.
func WithOnSessionExpired(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

// New builds a Client for the given server base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base URL required")
	}

	c := &Client{baseURL: baseURL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Do issues an authenticated API request and decodes the envelope data into
// out (which may be nil). On a 401 it performs one refresh exchange and one
// retry; if the refresh fails the original result is discarded, the
// OnSessionExpired hook fires, and ErrSessionExpired is returned.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)

		if err := c.refreshSession(ctx); err != nil {
			if c.onSessionExpired != nil {
				c.onSessionExpired()
			}
			return err
		}

		resp, err = c.send(ctx, method, path, body)
		if err != nil {
			return err
		}
	}

	return decodeEnvelope(resp, out)
}

// doNoRetry issues a request without the refresh-and-retry step. Used by the
// calls that establish a session, where a 401 means bad credentials rather
// than an expired access token.
func (c *Client) doNoRetry(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, out)
}

func (c *Client) refreshSession(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	resp, err := c.send(ctx, http.MethodPost, refreshPath, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ErrSessionExpired
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}

func decodeEnvelope(resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()

	var env struct {
		StatusCode int             `json:"statusCode"`
		Data       json.RawMessage `json:"data"`
		Message    string          `json:"message"`
		Success    bool            `json:"success"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("client: decode response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("client: decode data: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
