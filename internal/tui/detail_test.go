package tui

import (
	"strings"
	"testing"

	"github.com/jbeckham/tracker-tui/internal/detail"
	"github.com/jbeckham/tracker-tui/internal/tracker"
)

func testSummary() tracker.IssueSummary {
	return tracker.IssueSummary{
		Key:         "PROJ-7",
		Title:       "Login page hangs",
		StatusKey:   "open",
		PriorityKey: "critical",
	}
}

func testDetail() *detail.IssueDetail {
	return &detail.IssueDetail{
		Issue: tracker.RawIssue{
			Key:         "PROJ-7",
			Summary:     "Login page hangs on submit",
			Description: "Steps below.\n\n![shot](/a/1.png)\n![missing](/a/2.png)",
			Type:        &tracker.Ref{Key: "bug", Display: "Bug"},
			Status:      &tracker.Ref{Key: "inProgress", Display: "In Progress"},
			Priority:    &tracker.Ref{Key: "critical", Display: "Critical"},
			Queue:       &tracker.Ref{Key: "PROJ", Display: "Project"},
			CreatedBy:   &tracker.Ref{ID: "1", Display: "Alice Smith"},
			Followers:   []tracker.Ref{{Display: "Bob"}, {Display: "Carol"}},
			CreatedAt:   "2024-01-15T10:30:00.000+0000",
			Votes:       3,
		},
		Front: "https://tracker.example.com",
		Comments: []tracker.RawComment{
			{ID: "10", Text: "Same here, see ![again](/a/1.png)", CreatedBy: &tracker.Ref{Display: "Dave"}},
		},
		Attachments: tracker.AttachmentMap{"/a/1.png": "data:image/png;base64,AAAA"},
	}
}

func loadedDetailView() *issueDetailView {
	v := newIssueDetailView(testSummary(), 100, 60)
	v.setDetail(testDetail())
	return &v
}

func TestDetailViewTitle(t *testing.T) {
	v := newIssueDetailView(testSummary(), 80, 24)
	if v.title() != "PROJ-7" {
		t.Errorf("expected title 'PROJ-7', got %q", v.title())
	}
}

func TestDetailViewLoading(t *testing.T) {
	v := newIssueDetailView(testSummary(), 80, 40)
	content := v.renderContent()
	if !strings.Contains(content, "PROJ-7") {
		t.Error("expected key while loading")
	}
	if !strings.Contains(content, "Login page hangs") {
		t.Error("expected list-time title while loading")
	}
	if !strings.Contains(content, "Loading") {
		t.Error("expected loading indicator")
	}
}

func TestDetailViewError(t *testing.T) {
	v := newIssueDetailView(testSummary(), 80, 40)
	v.setError("API error 404")
	content := v.renderContent()
	if !strings.Contains(content, "Could not load issue: API error 404") {
		t.Errorf("expected error message, got:\n%s", content)
	}
	if strings.Contains(content, "Loading") {
		t.Error("expected loading indicator to be gone")
	}
}

func TestDetailViewRendersFields(t *testing.T) {
	content := loadedDetailView().renderContent()

	for _, want := range []string{
		"Login page hangs on submit",
		"Bug",
		"In Progress",
		"Critical",
		"Project",
		"Alice Smith",
		"Bob, Carol",
		"Votes",
		"https://tracker.example.com/PROJ-7",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in content", want)
		}
	}
}

func TestDetailViewUnassigned(t *testing.T) {
	content := loadedDetailView().renderContent()
	if !strings.Contains(content, "Unassigned") {
		t.Error("expected 'Unassigned' for nil assignee")
	}
}

func TestDetailViewImageCount(t *testing.T) {
	content := loadedDetailView().renderContent()
	// Two distinct images, one resolved.
	if !strings.Contains(content, "1 of 2 loaded") {
		t.Errorf("expected image count, got:\n%s", content)
	}
}

func TestDetailViewRendersAttachmentLinks(t *testing.T) {
	content := loadedDetailView().renderContent()
	if !strings.Contains(content, "shot") {
		t.Error("expected resolved image name")
	}
	if !strings.Contains(content, "(unavailable)") {
		t.Error("expected unresolved image to be marked unavailable")
	}
	if strings.Contains(content, "base64") {
		t.Error("expected no data URI in terminal output")
	}
}

func TestDetailViewRendersComments(t *testing.T) {
	content := loadedDetailView().renderContent()
	if !strings.Contains(content, "Comments (1)") {
		t.Error("expected comments section")
	}
	if !strings.Contains(content, "Dave") {
		t.Error("expected comment author")
	}
	if !strings.Contains(content, "Same here") {
		t.Error("expected comment text")
	}
}

func TestDetailViewNoDescription(t *testing.T) {
	d := testDetail()
	d.Issue.Description = ""
	d.Comments = nil
	v := newIssueDetailView(testSummary(), 80, 40)
	v.setDetail(d)
	content := v.renderContent()
	if !strings.Contains(content, "No description") {
		t.Error("expected 'No description'")
	}
	if strings.Contains(content, "Comments") {
		t.Error("expected no comments section")
	}
}

func TestDetailViewSetSize(t *testing.T) {
	v := loadedDetailView()
	v.setSize(120, 50)
	if v.width != 120 || v.height != 50 {
		t.Errorf("expected 120x50, got %dx%d", v.width, v.height)
	}
	if v.viewport.Height != 47 {
		t.Errorf("expected viewport height 47, got %d", v.viewport.Height)
	}
}

func TestDetailViewViewOutput(t *testing.T) {
	v := loadedDetailView()
	if out := v.View(); !strings.Contains(out, "PROJ-7") {
		t.Error("expected key in view output")
	}
}

func TestFormatDetailDate(t *testing.T) {
	if got := formatDetailDate(""); got != "" {
		t.Errorf("formatDetailDate(\"\") = %q, want empty", got)
	}
	if got := formatDetailDate("not a date"); got != "not a date" {
		t.Errorf("formatDetailDate(bad) = %q, want input back", got)
	}
	if got := formatDetailDate("2024-01-15T10:30:00.000+0000"); !strings.HasPrefix(got, "2024-01-") {
		t.Errorf("formatDetailDate() = %q, want a 2024-01 date", got)
	}
}

func TestRefNameOr(t *testing.T) {
	tests := []struct {
		ref  *tracker.Ref
		want string
	}{
		{nil, "fallback"},
		{&tracker.Ref{Display: "Alice", Key: "alice"}, "Alice"},
		{&tracker.Ref{Key: "alice"}, "alice"},
		{&tracker.Ref{ID: "42"}, "42"},
	}
	for _, tt := range tests {
		if got := refNameOr(tt.ref, "fallback"); got != tt.want {
			t.Errorf("refNameOr(%+v) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestDetailViewImplementsViewInterface(t *testing.T) {
	var _ view = (*issueDetailView)(nil)
}
