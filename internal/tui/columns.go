package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/jbeckham/tracker-tui/internal/issuetree"
)

// sortMarker follows the title of the column the view is sorted by.
const sortMarker = " ▾"

// columnDef describes how a configured column is laid out.
type columnDef struct {
	title string
	width int
	// sortKey is the view order this column reflects, if any.
	sortKey issuetree.SortKey
	flex    bool
}

// statusVocabulary lists the status keys in the form the tracker returns them.
var statusVocabulary = []string{"open", "inProgress", "needInfo", "testing", "resolved", "closed"}

// dateLayout is the list-view date format, see formatDate.
const dateLayout = "2006-01-02"

// knownColumns maps config column names to their layout. Status and
// priority are sized by what their cells can hold: the longest status key,
// and the widest priority icon or the title.
var knownColumns = map[string]columnDef{
	"key":      {title: "Key", width: len("QUEUE-12345")},
	"summary":  {title: "Summary", width: 20, flex: true},
	"status":   {title: "Status", width: fitWidth("Status", statusVocabulary), sortKey: issuetree.SortStatus},
	"priority": {title: "Priority", width: fitWidth("Priority", priorityIcons()), sortKey: issuetree.SortPriority},
	"created":  {title: "Created", width: fitWidth("Created", []string{dateLayout}), sortKey: issuetree.SortCreatedAt},
	"updated":  {title: "Updated", width: fitWidth("Updated", []string{dateLayout}), sortKey: issuetree.SortUpdatedAt},
}

// fitWidth returns the cell width needed for the title and every value.
func fitWidth(title string, values []string) int {
	w := lipgloss.Width(title)
	for _, v := range values {
		if vw := lipgloss.Width(v); vw > w {
			w = vw
		}
	}
	return w
}

func priorityIcons() []string {
	icons := make([]string, 0, len(priorityMap))
	for _, def := range priorityMap {
		icons = append(icons, def.icon)
	}
	return icons
}

// buildColumns creates table columns for the configured names. Fixed
// columns keep their width; the summary column takes what is left. The
// column matching the current sort gets a marker.
func buildColumns(names []string, totalWidth int, sortBy issuetree.SortKey) []table.Column {
	cols := make([]table.Column, len(names))
	defs := make([]columnDef, len(names))
	fixed, flexCount := 0, 0

	for i, name := range names {
		def, ok := knownColumns[name]
		if !ok {
			def = columnDef{title: name, width: 12}
		}
		if def.sortKey != "" && def.sortKey == sortBy {
			def.title += sortMarker
			def.width = max(def.width, lipgloss.Width(def.title))
		}
		defs[i] = def
		cols[i] = table.Column{Title: def.title, Width: def.width}
		if def.flex {
			flexCount++
		} else {
			fixed += def.width
		}
	}
	if flexCount == 0 {
		return cols
	}

	// Two cells of padding per column.
	remaining := max(totalWidth-fixed-len(names)*2, 0)
	perFlex := max(remaining/flexCount, knownColumns["summary"].width)
	for i, def := range defs {
		if def.flex {
			cols[i].Width = perFlex
		}
	}
	return cols
}
