package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/sahilm/fuzzy"

	"github.com/jbeckham/tracker-tui/internal/tracker"
)

// filterState tracks whether the filter bar is active and/or focused.
type filterState int

const (
	filterInactive filterState = iota // no filter bar visible
	filterFocused                     // filter bar visible, text input focused
	filterApplied                     // filter bar visible, text input blurred (confirmed)
)

// issueFilter manages client-side fuzzy filtering of the loaded issues.
type issueFilter struct {
	state   filterState
	input   textinput.Model
	query   string          // the confirmed or live query
	total   int             // total issues before filtering
	matched int             // issues after filtering
	keep    map[string]bool // keys of matching issues
}

// newIssueFilter creates an inactive filter.
func newIssueFilter() issueFilter {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = filterPromptStyle
	ti.CharLimit = 128
	return issueFilter{
		state: filterInactive,
		input: ti,
	}
}

// activate shows the filter bar and focuses the text input.
func (f *issueFilter) activate() {
	f.state = filterFocused
	f.input.Focus()
}

// apply confirms the filter and blurs the input.
// If the query is empty, the filter is cleared instead.
func (f *issueFilter) apply(all []tracker.IssueSummary, columns []string) {
	q := strings.TrimSpace(f.input.Value())
	if q == "" {
		f.clear()
		return
	}
	f.state = filterApplied
	f.input.Blur()
	f.match(all, columns, q)
}

// clear removes the filter entirely.
func (f *issueFilter) clear() {
	f.state = filterInactive
	f.query = ""
	f.input.SetValue("")
	f.input.Blur()
	f.keep = nil
	f.total = 0
	f.matched = 0
}

// updateQuery live-filters as the user types.
func (f *issueFilter) updateQuery(all []tracker.IssueSummary, columns []string) {
	f.match(all, columns, strings.TrimSpace(f.input.Value()))
}

// refresh re-applies the current query to a changed issue set.
func (f *issueFilter) refresh(all []tracker.IssueSummary, columns []string) {
	if f.isActive() {
		f.match(all, columns, f.query)
	}
}

func (f *issueFilter) match(all []tracker.IssueSummary, columns []string, q string) {
	f.query = q
	f.total = len(all)
	if q == "" {
		f.keep = nil
		f.matched = len(all)
		return
	}
	f.keep = make(map[string]bool)
	for _, s := range filterIssues(all, columns, q) {
		f.keep[s.Key] = true
	}
	f.matched = len(f.keep)
}

// isActive returns true if a filter is visible (focused or applied).
func (f *issueFilter) isActive() bool {
	return f.state != filterInactive
}

// isFocused returns true if the text input has focus.
func (f *issueFilter) isFocused() bool {
	return f.state == filterFocused
}

// visible reports whether the issue passes the filter.
func (f *issueFilter) visible(s tracker.IssueSummary) bool {
	if f.state == filterInactive || f.query == "" {
		return true
	}
	return f.keep[s.Key]
}

// filterIssues returns the issues whose visible columns fuzzy-match the
// query, in their original order.
func filterIssues(issues []tracker.IssueSummary, columns []string, query string) []tracker.IssueSummary {
	haystack := make([]string, len(issues))
	for i, s := range issues {
		parts := make([]string, 0, len(columns))
		for _, col := range columns {
			parts = append(parts, fieldValue(s, col))
		}
		haystack[i] = strings.Join(parts, " ")
	}

	matches := fuzzy.Find(query, haystack)
	idx := make([]int, len(matches))
	for i, m := range matches {
		idx[i] = m.Index
	}
	sort.Ints(idx)

	result := make([]tracker.IssueSummary, len(idx))
	for i, j := range idx {
		result[i] = issues[j]
	}
	return result
}
