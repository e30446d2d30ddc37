package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CredentialTTL is how long a bearer token extracted from the front page is
// trusted. The front page carries no expiry, so this is an estimate.
const CredentialTTL = 10 * time.Minute

// preloadedStateMarker precedes the JSON state blob embedded in the front page.
const preloadedStateMarker = "window.__PRELOADED_STATE__"

// maxFrontPageSize bounds how much of the front page is read.
const maxFrontPageSize = 8 << 20

// RefreshFunc obtains a fresh credential. ExpiresAt is set by the cache.
type RefreshFunc func(ctx context.Context) (Credential, error)

// TokenCache holds one bearer credential and refreshes it lazily when it is
// missing or expired. Concurrent callers that find it stale share a single
// refresh and all observe its result.
type TokenCache struct {
	mu   sync.Mutex
	cred *Credential

	refresh RefreshFunc
	flight  singleflight.Group
	ttl     time.Duration
	nowFunc func() time.Time
}

// TokenCacheOption configures a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithClock sets a custom time function for testing.
func WithClock(fn func() time.Time) TokenCacheOption {
	return func(tc *TokenCache) {
		if fn != nil {
			tc.nowFunc = fn
		}
	}
}

// WithTTL overrides CredentialTTL.
func WithTTL(ttl time.Duration) TokenCacheOption {
	return func(tc *TokenCache) {
		tc.ttl = ttl
	}
}

// NewTokenCache creates a cache that calls refresh when it needs a credential.
func NewTokenCache(refresh RefreshFunc, opts ...TokenCacheOption) *TokenCache {
	tc := &TokenCache{
		refresh: refresh,
		ttl:     CredentialTTL,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Credential returns the cached credential, refreshing it first if it is
// absent or expired. ctx bounds only this caller's wait; a refresh already
// in flight keeps running for the other callers.
func (tc *TokenCache) Credential(ctx context.Context) (Credential, error) {
	if cred, ok := tc.cached(); ok {
		return cred, nil
	}

	ch := tc.flight.DoChan("credential", func() (interface{}, error) {
		// Another flight may have finished between the check above and here.
		if cred, ok := tc.cached(); ok {
			return cred, nil
		}
		cred, err := tc.refresh(context.WithoutCancel(ctx))
		if err != nil {
			return Credential{}, err
		}
		cred.ExpiresAt = tc.nowFunc().Add(tc.ttl)

		tc.mu.Lock()
		tc.cred = &cred
		tc.mu.Unlock()
		return cred, nil
	})

	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	}
}

// Invalidate drops the cached credential so the next call refreshes.
func (tc *TokenCache) Invalidate() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.cred = nil
}

// ExpiresAt returns the expiry of the cached credential, or the zero time.
func (tc *TokenCache) ExpiresAt() time.Time {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.cred == nil {
		return time.Time{}
	}
	return tc.cred.ExpiresAt
}

func (tc *TokenCache) cached() (Credential, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.cred == nil || tc.nowFunc().After(tc.cred.ExpiresAt) {
		return Credential{}, false
	}
	return *tc.cred, true
}

// preloadedState is the subset of the front page state blob we read.
type preloadedState struct {
	User *struct {
		IAMToken        string `json:"iamToken"`
		OrganizationIDs *struct {
			CloudOrgID string `json:"cloudOrgId"`
		} `json:"organizationIds"`
	} `json:"user"`
}

var errNoPreloadedState = errors.New("could not find " + preloadedStateMarker + " in response")

// parsePreloadedState extracts the IAM token and cloud org id from a front
// page HTML document.
func parsePreloadedState(html []byte) (Credential, error) {
	i := bytes.Index(html, []byte(preloadedStateMarker))
	if i < 0 {
		return Credential{}, errNoPreloadedState
	}
	rest := bytes.TrimLeft(html[i+len(preloadedStateMarker):], " \t\r\n")
	if len(rest) == 0 || rest[0] != '=' {
		return Credential{}, errNoPreloadedState
	}

	// The decoder stops at the end of the first JSON value, so the script
	// text after the object does not matter.
	var state preloadedState
	if err := json.NewDecoder(bytes.NewReader(rest[1:])).Decode(&state); err != nil {
		return Credential{}, fmt.Errorf("parsing preloaded state: %w", err)
	}
	if state.User == nil || state.User.IAMToken == "" {
		return Credential{}, errors.New("could not extract IAM token from cookies, please re-login to the tracker in a browser")
	}

	cred := Credential{Token: state.User.IAMToken}
	if state.User.OrganizationIDs != nil {
		cred.OrgID = state.User.OrganizationIDs.CloudOrgID
	}
	return cred, nil
}

// refreshCredential fetches the front page with the session cookie and
// extracts a bearer credential from it.
func (c *Client) refreshCredential(ctx context.Context) (Credential, error) {
	front, err := c.Front()
	if err != nil {
		return Credential{}, err
	}
	if c.cookie == "" {
		return Credential{}, &AuthError{Op: "refreshing credential", Err: errors.New("session cookie is not set")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, front, nil)
	if err != nil {
		return Credential{}, &AuthError{Op: "refreshing credential", Err: fmt.Errorf("creating request: %w", err)}
	}
	if err := c.authorize(ctx, req, authCookie); err != nil {
		return Credential{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credential{}, &AuthError{Op: "fetching front page", Err: err}
	}
	defer resp.Body.Close()

	html, err := io.ReadAll(io.LimitReader(resp.Body, maxFrontPageSize))
	if err != nil {
		return Credential{}, &AuthError{Op: "reading front page", Err: err}
	}
	if resp.StatusCode >= 400 {
		return Credential{}, &AuthError{Op: "fetching front page", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	cred, err := parsePreloadedState(html)
	if err != nil {
		return Credential{}, &AuthError{Op: "extracting token", Err: err}
	}
	c.logger.Debug("credential refreshed", "front", front, "org", cred.OrgID)
	return cred, nil
}
