// Package tracker provides a client for the issue tracker REST API.
package tracker

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
	"time"
)

// maxRedirects bounds redirects followed for cookie-authenticated requests.
const maxRedirects = 5

// authMode selects how a single outgoing request is authenticated.
type authMode int

const (
	// authBearer sends the cached bearer token and org id, never the cookie.
	authBearer authMode = iota
	// authCookie sends the raw session cookie.
	authCookie
)

// Client is a tracker REST API client. It is safe for concurrent use.
type Client struct {
	host       string
	cookie     string
	frontURL   string
	httpClient *http.Client
	tokens     *TokenCache
	logger     *slog.Logger
	nowFunc    func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithFrontURL overrides the built-in host-to-front table.
func WithFrontURL(front string) ClientOption {
	return func(c *Client) {
		c.frontURL = normalizeHost(front)
	}
}

// WithLogger sets the logger used for request and attachment diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNowFunc sets a custom time function for credential expiry (useful for testing).
func WithNowFunc(fn func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowFunc = fn
	}
}

// NewClient creates a new tracker API client for the given API host and
// browser session cookie.
func NewClient(host, cookie string, opts ...ClientOption) *Client {
	c := &Client{
		host:   normalizeHost(host),
		cookie: cookie,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tokens = NewTokenCache(c.refreshCredential, WithClock(c.nowFunc))
	return c
}

// Host returns the API host the client talks to.
func (c *Client) Host() string {
	return c.host
}

// Front returns the user-facing web host for the configured API host.
func (c *Client) Front() (string, error) {
	if c.frontURL != "" {
		return c.frontURL, nil
	}
	return FrontURL(c.host)
}

// BrowseURL returns the web URL for the given issue key, or "" if the host
// has no known front.
func (c *Client) BrowseURL(issueKey string) string {
	front, err := c.Front()
	if err != nil {
		return ""
	}
	return front + "/" + issueKey
}

// Tokens exposes the client's credential cache.
func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

// authorize sets the auth headers for one outgoing request. Nothing is
// stored on the shared client, so a concurrent token refresh never changes
// the headers of a request already in flight.
func (c *Client) authorize(ctx context.Context, req *http.Request, mode authMode) error {
	switch mode {
	case authCookie:
		req.Header.Set("Cookie", c.cookie)
	case authBearer:
		cred, err := c.tokens.Credential(ctx)
		if err != nil {
			return err
		}
		req.Header.Del("Cookie")
		req.Header.Set("Authorization", "Bearer "+cred.Token)
		req.Header.Set("X-Cloud-Org-Id", cred.OrgID)
	}
	return nil
}

// api executes a bearer-authenticated JSON call against {host}/v2. The
// response body is decoded into out when out is non-nil. Transport, status
// and decode failures are returned as *FetchError; credential failures are
// returned unchanged.
func (c *Client) api(ctx context.Context, op, method, path string, query url.Values, payload, out interface{}) (http.Header, error) {
	u := c.host + "/v2" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &FetchError{Op: op, Err: fmt.Errorf("marshaling request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &FetchError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, req, authBearer); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}
	c.logger.Debug("tracker request", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		fe := &FetchError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(string(data))}
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		return nil, fe
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, &FetchError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("parsing response: %w", err)}
		}
	}
	return resp.Header, nil
}

// Myself returns the currently authenticated user. It doubles as a
// lightweight credential validity probe.
func (c *Client) Myself(ctx context.Context) (*RawUser, error) {
	var user RawUser
	if _, err := c.api(ctx, "getting myself", http.MethodGet, "/myself", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// User returns the user with the given uid.
func (c *Client) User(ctx context.Context, uid int64) (*RawUser, error) {
	path := fmt.Sprintf("/users/%d", uid)
	var user RawUser
	if _, err := c.api(ctx, fmt.Sprintf("getting user %d", uid), http.MethodGet, path, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
