package tracker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

const testCookie = "Session_id=abc; sessionid2=def"

// frontPage returns a front page HTML document embedding the given state.
func frontPage(state string) string {
	return `<!DOCTYPE html><html><head><script>window.__PRELOADED_STATE__ = ` + state +
		`; window.__CONFIG__ = {};</script></head><body></body></html>`
}

const validState = `{"user":{"iamToken":"iam-token-1","organizationIds":{"cloudOrgId":"org-42"}}}`

// fakeTracker is an httptest server that serves the front page at / and
// the API under /v2. Handlers registered with handle take precedence.
type fakeTracker struct {
	t          *testing.T
	server     *httptest.Server
	mux        *http.ServeMux
	frontHits  atomic.Int32
	frontState string
}

func newFakeTracker(t *testing.T) *fakeTracker {
	t.Helper()
	f := &fakeTracker{t: t, mux: http.NewServeMux(), frontState: validState}
	f.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		f.frontHits.Add(1)
		if r.Header.Get("Cookie") != testCookie {
			t.Errorf("front page: expected session cookie, got %q", r.Header.Get("Cookie"))
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, frontPage(f.frontState))
	})
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)
	return f
}

// handle registers an API handler that also checks bearer auth.
func (f *fakeTracker) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer iam-token-1" {
			f.t.Errorf("%s: expected bearer auth, got %q", r.URL.Path, got)
		}
		if got := r.Header.Get("X-Cloud-Org-Id"); got != "org-42" {
			f.t.Errorf("%s: expected org header, got %q", r.URL.Path, got)
		}
		if r.Header.Get("Cookie") != "" {
			f.t.Errorf("%s: cookie must not be sent with bearer auth", r.URL.Path)
		}
		h(w, r)
	})
}

func (f *fakeTracker) client(opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithFrontURL(f.server.URL)}, opts...)
	return NewClient(f.server.URL, testCookie, opts...)
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// backlog returns n raw issues keyed PROJ-1..PROJ-n.
func backlog(n int) []RawIssue {
	issues := make([]RawIssue, n)
	for i := range issues {
		issues[i] = RawIssue{
			Key:      "PROJ-" + strconv.Itoa(i+1),
			Summary:  "Issue " + strconv.Itoa(i+1),
			Priority: &Ref{Key: "normal"},
			Status:   &Ref{Key: "open"},
		}
	}
	return issues
}
