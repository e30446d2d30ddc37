package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// priorityDef holds the icon and color for a tracker priority.
type priorityDef struct {
	icon  string
	color lipgloss.Color
}

// priorityMap maps lowercase priority keys to their display definition.
var priorityMap = map[string]priorityDef{
	"blocker":  {icon: "⊘", color: lipgloss.Color("#FF4444")},
	"critical": {icon: "⏶⏶", color: lipgloss.Color("#FF8800")},
	"normal":   {icon: "≡", color: lipgloss.Color("#4488FF")},
	"minor":    {icon: "⏷", color: lipgloss.Color("#44AA44")},
	"trivial":  {icon: "⏷⏷", color: lipgloss.Color("#888888")},
}

// statusColors maps status keys to their color.
var statusColors = map[string]lipgloss.Color{
	"open":       lipgloss.Color("#4488FF"),
	"inprogress": lipgloss.Color("#FF8800"),
	"needinfo":   lipgloss.Color("#AA44FF"),
	"testing":    lipgloss.Color("#44AAAA"),
	"resolved":   lipgloss.Color("#44AA44"),
	"closed":     lipgloss.Color("#888888"),
}

// priorityIcon returns a colored icon string for the given priority key.
// Used in the issue list (table) view. Falls back to the raw key if unknown.
func priorityIcon(key string) string {
	if def, ok := priorityMap[strings.ToLower(key)]; ok {
		return lipgloss.NewStyle().Foreground(def.color).Render(def.icon)
	}
	return key
}

// priorityLabel returns a colored "icon name" string for the given priority.
// Used in the issue detail view. Falls back to the plain name if unknown.
func priorityLabel(key, name string) string {
	if name == "" {
		name = key
	}
	if def, ok := priorityMap[strings.ToLower(key)]; ok {
		style := lipgloss.NewStyle().Foreground(def.color)
		return style.Render(def.icon) + " " + name
	}
	return name
}

// statusLabel renders a status name in its status color.
func statusLabel(key, name string) string {
	if name == "" {
		name = key
	}
	s := lipgloss.NewStyle().Bold(true)
	if c, ok := statusColors[strings.ToLower(key)]; ok {
		s = s.Foreground(c)
	}
	return s.Render(name)
}
