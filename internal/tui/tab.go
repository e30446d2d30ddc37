package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"

	"github.com/jbeckham/tracker-tui/internal/config"
	"github.com/jbeckham/tracker-tui/internal/issuetree"
	"github.com/jbeckham/tracker-tui/internal/tracker"
)

// tabState represents the loading state of a tab.
type tabState int

const (
	tabLoading tabState = iota
	tabReady
	tabError
	tabEmpty
)

// tab holds the state for a single query-backed view.
type tab struct {
	config      config.ViewConfig
	tree        *issuetree.Tree
	table       table.Model
	projection  issuetree.Projection
	rows        []*tracker.IssueSummary // parallel to table rows; nil for group headers
	state       tabState
	loadingMore bool
	errMsg      string
	columns     []string    // column names from config
	width       int
	quickFilter issueFilter // client-side quick filter
}

// newTab creates a tab for a view. The table is initialized empty;
// columns and rows are set once data loads and the width is known.
func newTab(cfg config.ViewConfig, tree *issuetree.Tree, columns []string) tab {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(10), // will be resized
	)
	s := table.DefaultStyles()
	s.Header = tableHeaderStyle
	s.Selected = tableSelectedStyle
	s.Cell = tableCellStyle
	t.SetStyles(s)

	return tab{
		config:      cfg,
		tree:        tree,
		table:       t,
		state:       tabLoading,
		columns:     columns,
		quickFilter: newIssueFilter(),
	}
}

// setSize updates the table dimensions.
func (t *tab) setSize(width, height int) {
	t.width = width
	t.table.SetColumns(buildColumns(t.columns, width, t.sortKey()))
	t.table.SetWidth(width)
	t.table.SetHeight(height)

	// Re-render rows with new column widths if we have data
	if t.state == tabReady {
		t.rebuildRows(t.selectedKey())
	}
}

// setProjection shows a new projection of the tab's issues, keeping the
// cursor on the selected issue when it is still visible.
func (t *tab) setProjection(p issuetree.Projection) {
	selected := t.selectedKey()
	t.projection = p
	t.loadingMore = false
	t.quickFilter.refresh(p.Issues(), t.columns)
	if p.Len() == 0 {
		t.state = tabEmpty
		t.rows = nil
		t.table.SetRows(nil)
		return
	}
	t.state = tabReady
	if t.width > 0 {
		t.table.SetColumns(buildColumns(t.columns, t.width, t.sortKey()))
	}
	t.rebuildRows(selected)
}

// sortKey is the tree's current order, or the default without a tree.
func (t *tab) sortKey() issuetree.SortKey {
	if t.tree == nil {
		return issuetree.SortDefault
	}
	return t.tree.Sort()
}

// setError marks the tab as having an error. Issues already loaded stay
// visible.
func (t *tab) setError(msg string) {
	t.errMsg = msg
	t.loadingMore = false
	if t.projection.Len() == 0 {
		t.state = tabError
	}
}

// setLoading resets the tab to loading state.
func (t *tab) setLoading() {
	t.state = tabLoading
	t.errMsg = ""
	t.projection = issuetree.Projection{}
	t.rows = nil
	t.quickFilter.clear()
}

// grouped reports whether the projection has group header rows.
func (t *tab) grouped() bool {
	return t.tree != nil && t.tree.Group() != issuetree.GroupNone
}

// selectedIssue returns the issue at the cursor, or nil when the cursor is
// on a group header.
func (t *tab) selectedIssue() *tracker.IssueSummary {
	if t.state != tabReady {
		return nil
	}
	idx := t.table.Cursor()
	if idx >= 0 && idx < len(t.rows) {
		return t.rows[idx]
	}
	return nil
}

func (t *tab) selectedKey() string {
	if s := t.selectedIssue(); s != nil {
		return s.Key
	}
	return ""
}

// applyFilter updates the table rows based on the current quick filter.
func (t *tab) applyFilter() {
	t.rebuildRows("")
}

// clearFilter removes the quick filter and restores the full issue list.
func (t *tab) clearFilter() {
	t.quickFilter.clear()
	t.rebuildRows(t.selectedKey())
}

// rebuildRows renders the projection into table rows. The cursor lands on
// selectedKey if it is visible, otherwise on the first issue row.
func (t *tab) rebuildRows(selectedKey string) {
	grouped := t.grouped()
	var rows []table.Row
	t.rows = t.rows[:0]
	for _, g := range t.projection.Groups {
		var visible []*tracker.IssueSummary
		for i := range g.Issues {
			if t.quickFilter.visible(g.Issues[i]) {
				visible = append(visible, &g.Issues[i])
			}
		}
		if len(visible) == 0 {
			continue
		}
		if grouped {
			rows = append(rows, groupHeaderRow(g.Key, len(visible), len(t.columns)))
			t.rows = append(t.rows, nil)
		}
		for _, s := range visible {
			rows = append(rows, issueRow(*s, t.columns))
			t.rows = append(t.rows, s)
		}
	}
	t.table.SetRows(rows)

	cursor := -1
	for i, s := range t.rows {
		if s == nil {
			continue
		}
		if cursor < 0 {
			cursor = i
		}
		if s.Key == selectedKey {
			cursor = i
			break
		}
	}
	if cursor < 0 {
		cursor = 0
	}
	t.table.SetCursor(cursor)
}

// groupHeaderRow renders a group separator spanning the first column.
func groupHeaderRow(key string, count, width int) table.Row {
	row := make(table.Row, width)
	label := key
	if label == "" {
		label = "(none)"
	}
	if width > 0 {
		row[0] = groupHeaderStyle.Render(fmt.Sprintf("▾ %s (%d)", label, count))
	}
	return row
}

// issueRow converts an issue to a table row based on the configured columns.
// Priority columns display a colored icon instead of text.
func issueRow(s tracker.IssueSummary, columns []string) table.Row {
	row := make(table.Row, len(columns))
	for j, col := range columns {
		if col == "priority" && s.PriorityKey != "" {
			row[j] = priorityIcon(s.PriorityKey)
		} else {
			row[j] = fieldValue(s, col)
		}
	}
	return row
}

// fieldValue extracts a display string for a given column name from an issue.
func fieldValue(s tracker.IssueSummary, column string) string {
	switch column {
	case "key":
		return s.Key
	case "summary":
		return s.Title
	case "status":
		return s.StatusKey
	case "priority":
		return s.PriorityKey
	case "created":
		return formatDate(s.CreatedAt)
	case "updated":
		return formatDate(s.UpdatedAt)
	}
	return ""
}

// loadInfo describes how much of the view has been pulled.
func (t *tab) loadInfo() string {
	if t.tree == nil || t.state == tabLoading {
		return ""
	}
	n := t.tree.Len()
	switch {
	case t.loadingMore:
		return fmt.Sprintf("%d issues, loading more...", n)
	case t.tree.Exhausted():
		return fmt.Sprintf("%d issues", n)
	default:
		return fmt.Sprintf("%d issues, m: more", n)
	}
}
