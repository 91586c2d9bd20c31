// Package client is an HTTP client for the digest API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/sse"
)

// DefaultBaseURL is used when no server address is given.
const DefaultBaseURL = "http://localhost:8080"

// ErrIncompleteStream is returned when a stream ends without a complete or
// error event.
var ErrIncompleteStream = errors.New("stream ended before completion")

// APIError is a non-2xx JSON response.
type APIError struct {
	StatusCode int
	Message    string           `json:"error"`
	Code       domain.ErrorCode `json:"code,omitempty"`
	Details    string           `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// StreamError is a terminal error event received on a digest stream.
type StreamError struct {
	PublicID string
	Message  string
	Code     domain.ErrorCode
}

func (e *StreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// DiagnosticsResponse is the body of the diagnostics endpoint.
type DiagnosticsResponse struct {
	Success        bool                       `json:"success"`
	Message        string                     `json:"message,omitempty"`
	Diagnostics    *domain.NetworkDiagnostics `json:"diagnostics,omitempty"`
	Report         string                     `json:"report,omitempty"`
	IsTimerRunning bool                       `json:"isTimerRunning"`
	LastRun        *time.Time                 `json:"lastRun"`
	Timestamp      string                     `json:"timestamp"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// Client talks to a running digest service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create generates a digest in a single request.
func (c *Client) Create(ctx context.Context, transcript string) (*domain.Digest, error) {
	resp, err := c.post(ctx, "/digests", transcript)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var d domain.Digest
	if err := decode(resp, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Stream generates a digest over server-sent events, calling fn for every
// event in order. It returns the persisted digest from the complete event, or
// a *StreamError for an error event.
func (c *Client) Stream(ctx context.Context, transcript string, fn func(domain.StreamEvent) error) (*domain.Digest, error) {
	resp, err := c.post(ctx, "/digests/stream", transcript)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var (
		result    *domain.Digest
		streamErr *StreamError
		publicID  string
	)
	err = sse.ReadAll(resp.Body, func(ev domain.StreamEvent) error {
		if fn != nil {
			if err := fn(ev); err != nil {
				return err
			}
		}
		switch ev.Type {
		case domain.EventStart:
			publicID = ev.PublicID
		case domain.EventComplete:
			result = ev.Digest
		case domain.EventError:
			streamErr = &StreamError{PublicID: publicID, Message: ev.Message, Code: ev.Code}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if streamErr != nil {
		return nil, streamErr
	}
	if result == nil {
		return nil, ErrIncompleteStream
	}
	return result, nil
}

// List returns digests newest first. A zero limit returns all of them.
func (c *Client) List(ctx context.Context, limit, offset int) ([]*domain.Digest, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	resp, err := c.get(ctx, "/digests", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var digests []*domain.Digest
	if err := decode(resp, &digests); err != nil {
		return nil, err
	}
	return digests, nil
}

// Get returns one digest by public id.
func (c *Client) Get(ctx context.Context, publicID string) (*domain.Digest, error) {
	resp, err := c.get(ctx, "/digests/"+url.PathEscape(publicID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var d domain.Digest
	if err := decode(resp, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Diagnostics performs a diagnostics action. An empty action runs one pass.
func (c *Client) Diagnostics(ctx context.Context, action string) (*DiagnosticsResponse, error) {
	q := url.Values{}
	if action != "" {
		q.Set("action", action)
	}
	resp, err := c.get(ctx, "/diagnostics", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out DiagnosticsResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path, transcript string) (*http.Response, error) {
	body, err := json.Marshal(map[string]string{"transcript": transcript})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func decode(resp *http.Response, v any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}
