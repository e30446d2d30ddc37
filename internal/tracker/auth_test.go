package tracker

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParsePreloadedState(t *testing.T) {
	cred, err := parsePreloadedState([]byte(frontPage(validState)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.Token != "iam-token-1" {
		t.Errorf("expected token iam-token-1, got %s", cred.Token)
	}
	if cred.OrgID != "org-42" {
		t.Errorf("expected org org-42, got %s", cred.OrgID)
	}
}

func TestParsePreloadedStateErrors(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no marker", "<html><body>login required</body></html>"},
		{"marker without assignment", "<script>window.__PRELOADED_STATE__;</script>"},
		{"malformed json", "<script>window.__PRELOADED_STATE__ = {user:</script>"},
		{"no user", frontPage(`{"config":{}}`)},
		{"empty token", frontPage(`{"user":{"iamToken":""}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parsePreloadedState([]byte(tt.html)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParsePreloadedStateWithoutOrg(t *testing.T) {
	cred, err := parsePreloadedState([]byte(frontPage(`{"user":{"iamToken":"t"}}`)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.OrgID != "" {
		t.Errorf("expected empty org, got %s", cred.OrgID)
	}
}

func TestTokenCacheCachesWithinTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var calls int
	tc := NewTokenCache(func(ctx context.Context) (Credential, error) {
		calls++
		return Credential{Token: "t", OrgID: "o"}, nil
	}, WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		if _, err := tc.Credential(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 refresh, got %d", calls)
	}
	if want := now.Add(CredentialTTL); !tc.ExpiresAt().Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, tc.ExpiresAt())
	}
}

func TestTokenCacheRefreshesAfterExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var calls int
	tc := NewTokenCache(func(ctx context.Context) (Credential, error) {
		calls++
		return Credential{Token: strings.Repeat("t", calls)}, nil
	}, WithClock(func() time.Time { return now }))

	first, _ := tc.Credential(context.Background())
	now = now.Add(CredentialTTL + time.Second)
	second, err := tc.Credential(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 refreshes, got %d", calls)
	}
	if first.Token == second.Token {
		t.Error("expected a new token after expiry")
	}
}

func TestTokenCacheInvalidate(t *testing.T) {
	var calls int
	tc := NewTokenCache(func(ctx context.Context) (Credential, error) {
		calls++
		return Credential{Token: "t"}, nil
	})
	tc.Credential(context.Background())
	tc.Invalidate()
	if !tc.ExpiresAt().IsZero() {
		t.Error("expected no credential after Invalidate")
	}
	tc.Credential(context.Background())
	if calls != 2 {
		t.Errorf("expected 2 refreshes, got %d", calls)
	}
}

func TestTokenCacheConcurrentCallersShareRefresh(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	tc := NewTokenCache(func(ctx context.Context) (Credential, error) {
		calls.Add(1)
		<-release
		return Credential{Token: "shared"}, nil
	})

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cred, err := tc.Credential(context.Background())
			tokens[i], errs[i] = cred.Token, err
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 refresh, got %d", got)
	}
	for i := range tokens {
		if errs[i] != nil {
			t.Errorf("caller %d: unexpected error: %v", i, errs[i])
		}
		if tokens[i] != "shared" {
			t.Errorf("caller %d: expected shared token, got %q", i, tokens[i])
		}
	}
}

func TestTokenCacheRefreshFailureIsNotCached(t *testing.T) {
	var calls int
	tc := NewTokenCache(func(ctx context.Context) (Credential, error) {
		calls++
		if calls == 1 {
			return Credential{}, errors.New("boom")
		}
		return Credential{Token: "t"}, nil
	})
	if _, err := tc.Credential(context.Background()); err == nil {
		t.Fatal("expected error from first refresh")
	}
	cred, err := tc.Credential(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.Token != "t" {
		t.Errorf("expected token t, got %s", cred.Token)
	}
}

func TestTokenCacheCallerCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	tc := NewTokenCache(func(ctx context.Context) (Credential, error) {
		<-release
		return Credential{Token: "t"}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tc.Credential(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRefreshCredentialFromFrontPage(t *testing.T) {
	f := newFakeTracker(t)
	var myselfCalls int
	f.handle("GET /v2/myself", func(w http.ResponseWriter, r *http.Request) {
		myselfCalls++
		writeJSON(w, RawUser{Login: "jdoe"})
	})

	c := f.client()
	for i := 0; i < 3; i++ {
		if _, err := c.Myself(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if myselfCalls != 3 {
		t.Errorf("expected 3 API calls, got %d", myselfCalls)
	}
	if hits := f.frontHits.Load(); hits != 1 {
		t.Errorf("expected 1 front page fetch, got %d", hits)
	}
}

func TestRefreshCredentialMissingCookie(t *testing.T) {
	c := NewClient("https://api.tracker.yandex.net", "")
	_, err := c.refreshCredential(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestRefreshCredentialFrontPageError(t *testing.T) {
	f := newFakeTracker(t)
	f.mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	c := NewClient(f.server.URL, testCookie, WithFrontURL(f.server.URL+"/login"))
	_, err := c.refreshCredential(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestRefreshCredentialNoToken(t *testing.T) {
	f := newFakeTracker(t)
	f.frontState = `{"user":{"login":"jdoe"}}`
	_, err := f.client().refreshCredential(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Op != "extracting token" {
		t.Errorf("unexpected op: %s", authErr.Op)
	}
}
