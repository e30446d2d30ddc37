package tui

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/jbeckham/tracker-tui/internal/config"
	"github.com/jbeckham/tracker-tui/internal/issuetree"
	"github.com/jbeckham/tracker-tui/internal/tracker"
)

func init() {
	// Tests render markdown without terminal detection.
	markdownStyle = "notty"
}

// sliceCursor yields a fixed list of issues, failing after failAt if set.
type sliceCursor struct {
	issues []tracker.IssueSummary
	pos    int
	failAt int
}

func (c *sliceCursor) Next(context.Context) (tracker.IssueSummary, bool, error) {
	if c.failAt > 0 && c.pos == c.failAt {
		return tracker.IssueSummary{}, false, errors.New("page fetch failed")
	}
	if c.pos >= len(c.issues) {
		return tracker.IssueSummary{}, false, nil
	}
	s := c.issues[c.pos]
	c.pos++
	return s, true, nil
}

// sliceSource serves the same issues for every query.
func sliceSource(issues []tracker.IssueSummary) issuetree.Source {
	return issuetree.SourceFunc(func(string) issuetree.Cursor {
		return &sliceCursor{issues: issues}
	})
}

// numberedIssues returns n issues PROJ-1..PROJ-n created a minute apart.
func numberedIssues(n int) []tracker.IssueSummary {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issues := make([]tracker.IssueSummary, n)
	for i := range issues {
		issues[i] = tracker.IssueSummary{
			Key:         "PROJ-" + strconv.Itoa(i+1),
			Title:       "Issue " + strconv.Itoa(i+1),
			StatusKey:   "open",
			PriorityKey: "normal",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
	}
	return issues
}

var testView = config.ViewConfig{ID: "assignedToMe", Label: "Assigned to me", Query: "Assignee: me()"}

// loadedTab returns a sized tab whose tree has pulled the first batch.
func loadedTab(t *testing.T, issues []tracker.IssueSummary, columns []string) tab {
	t.Helper()
	tree := issuetree.New(testView.ID, testView.Query, sliceSource(issues), issuetree.NewMemoryStore())
	p, err := tree.LoadNext(context.Background(), batchSize)
	if err != nil {
		t.Fatalf("LoadNext() error: %v", err)
	}
	tb := newTab(testView, tree, columns)
	tb.setSize(100, 20)
	tb.setProjection(p)
	return tb
}
