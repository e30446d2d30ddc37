package tracker

import (
	"context"
	"net/http"
	"testing"
)

func TestIssueRaw(t *testing.T) {
	f := newFakeTracker(t)
	f.handle("GET /v2/issues/{key}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("key") != "PROJ-7" {
			t.Errorf("unexpected key: %s", r.PathValue("key"))
		}
		w.Write([]byte(`{"key":"PROJ-7","summary":"Crash on save","description":"See ![](/ajax/v2/attachments/1)","status":{"key":"open","display":"Open"},"followers":[{"id":"u1","display":"Ann"}]}`))
	})

	raw, err := f.client().Issue("PROJ-7").Raw(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Summary != "Crash on save" {
		t.Errorf("unexpected summary: %s", raw.Summary)
	}
	if raw.Status == nil || raw.Status.Display != "Open" {
		t.Errorf("unexpected status: %+v", raw.Status)
	}
	if len(raw.Followers) != 1 || raw.Followers[0].Display != "Ann" {
		t.Errorf("unexpected followers: %+v", raw.Followers)
	}
}

func TestIssueHandleMakesNoRequest(t *testing.T) {
	f := newFakeTracker(t)
	issue := f.client().Issue("PROJ-404")
	if issue.Key() != "PROJ-404" {
		t.Errorf("unexpected key: %s", issue.Key())
	}
	if hits := f.frontHits.Load(); hits != 0 {
		t.Errorf("expected no requests, got %d", hits)
	}
}

func TestIssueTitle(t *testing.T) {
	f := newFakeTracker(t)
	var calls int
	f.handle("GET /v2/issues/{key}", func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, RawIssue{Key: "PROJ-1", Summary: "Fetched"})
	})
	issue := f.client().Issue("PROJ-1")

	title, err := issue.Title(context.Background(), "Known")
	if err != nil || title != "Known" {
		t.Errorf("expected known title, got %q (%v)", title, err)
	}
	if calls != 0 {
		t.Errorf("expected no fetch for known title, got %d", calls)
	}

	title, err = issue.Title(context.Background(), "")
	if err != nil || title != "Fetched" {
		t.Errorf("expected fetched title, got %q (%v)", title, err)
	}
}

func TestIssueComments(t *testing.T) {
	f := newFakeTracker(t)
	f.handle("GET /v2/issues/{key}/comments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []RawComment{
			{ID: "c1", Text: "first"},
			{ID: "c2", Text: "second"},
		})
	})

	comments, err := f.client().Issue("PROJ-7").Comments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 2 || comments[0].Text != "first" || comments[1].Text != "second" {
		t.Errorf("unexpected comments: %+v", comments)
	}
}

func TestCommentRawCached(t *testing.T) {
	f := newFakeTracker(t)
	var calls int
	f.handle("GET /v2/issues/{key}/comments/{id}", func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, RawComment{ID: r.PathValue("id"), Text: "hello"})
	})

	comment := f.client().Issue("PROJ-7").Comment("c9")
	for i := 0; i < 2; i++ {
		raw, err := comment.Raw(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if raw.ID != "c9" || raw.Text != "hello" {
			t.Errorf("unexpected comment: %+v", raw)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch, got %d", calls)
	}
}
