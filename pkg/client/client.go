// Package client talks to the activation authority over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/audit"
)

// DefaultBaseURL is where a local authority serves its API.
const DefaultBaseURL = "http://localhost:3000/api/brain"

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

// StatusError is returned when the authority answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("authority returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("authority returned %d: %s", e.Code, e.Body)
}

// ActivateRequest is the body of POST /activate. NodeIDs are activated under
// their default names; Nodes carry explicit names.
type ActivateRequest struct {
	NodeIDs []string          `json:"nodeIds,omitempty"`
	Nodes   []activation.Node `json:"nodes,omitempty"`
	Append  bool              `json:"append"`
}

// Client is an authority API client. It satisfies reconcile.Fetcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the authority rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Status fetches the current activation set.
func (c *Client) Status(ctx context.Context) (activation.Snapshot, error) {
	return c.snapshot(ctx, http.MethodGet, "/status", nil)
}

// Activate replaces, or with req.Append extends, the activation set.
func (c *Client) Activate(ctx context.Context, req ActivateRequest) (activation.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/activate", req)
}

// Reset clears the activation set.
func (c *Client) Reset(ctx context.Context) (activation.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/reset", nil)
}

// AuditPage is one response of the audit endpoint.
type AuditPage struct {
	Events []audit.Event `json:"events"`
	Total  uint64        `json:"total"`
}

// Audit fetches up to limit recent writes, newest first. limit <= 0 uses
// the server default.
func (c *Client) Audit(ctx context.Context, limit int) (AuditPage, error) {
	path := "/audit"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var page AuditPage
	err := c.do(ctx, http.MethodGet, path, nil, &page)
	return page, err
}

func (c *Client) snapshot(ctx context.Context, method, path string, body any) (activation.Snapshot, error) {
	var snap activation.Snapshot
	if err := c.do(ctx, method, path, body, &snap); err != nil {
		return activation.Snapshot{}, err
	}
	return snap, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Missing returns the requested ids that are absent from snap.
func Missing(requested []string, snap activation.Snapshot) []string {
	active := snap.Set()
	var missing []string
	for _, id := range requested {
		if !active.Contains(id) {
			missing = append(missing, id)
		}
	}
	return missing
}

// ParseNodeArg parses a command-line "id" or "id:name" argument. Everything
// after the first colon is the name.
func ParseNodeArg(arg string) activation.Node {
	id, name, _ := strings.Cut(arg, ":")
	id = strings.TrimSpace(id)
	if name == "" {
		name = activation.DefaultName(id)
	}
	return activation.Node{ID: id, Name: name}
}
