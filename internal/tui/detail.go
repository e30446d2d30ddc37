package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jbeckham/tracker-tui/internal/detail"
	"github.com/jbeckham/tracker-tui/internal/tracker"
)

// Ensure issueDetailView implements the view interface.
var _ view = (*issueDetailView)(nil)

// markdownStyle is the glamour style used for descriptions and comments.
var markdownStyle = "dark"

// --- Styles for detail view ---

var (
	detailKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	detailTypeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	detailSectionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				MarginTop(1)

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Width(14)

	detailValueStyle = lipgloss.NewStyle()

	detailHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// issueDetailView is the full detail view for a single issue. It opens with
// the list-time summary and fills in once the assembled detail arrives.
type issueDetailView struct {
	summary  tracker.IssueSummary
	detail   *detail.IssueDetail
	viewport viewport.Model
	ready    bool
	loading  bool   // true while the detail fetch is in flight
	errMsg   string // set when the fetch failed
	width    int
	height   int
}

func newIssueDetailView(summary tracker.IssueSummary, width, height int) issueDetailView {
	v := issueDetailView{
		summary: summary,
		width:   width,
		height:  height,
		loading: true,
	}
	v.buildViewport()
	return v
}

func (v issueDetailView) title() string {
	return v.summary.Key
}

// key returns the key of the displayed issue.
func (v *issueDetailView) key() string {
	return v.summary.Key
}

// setDetail shows the assembled issue.
func (v *issueDetailView) setDetail(d *detail.IssueDetail) {
	v.detail = d
	v.loading = false
	v.errMsg = ""
	if d.Issue.Summary != "" {
		v.summary.Title = d.Issue.Summary
	}
	v.buildViewport()
}

// setError shows why the detail could not be loaded.
func (v *issueDetailView) setError(msg string) {
	v.loading = false
	v.errMsg = msg
	v.buildViewport()
}

// buildViewport creates the viewport with rendered content.
func (v *issueDetailView) buildViewport() {
	content := v.renderContent()

	// Height available for the viewport: total height minus tab bar (2) and status bar (1)
	vpHeight := v.height - 3
	if vpHeight < 3 {
		vpHeight = 3
	}

	vp := viewport.New(v.width, vpHeight)
	vp.SetContent(content)
	// Use j/k for scrolling
	vp.KeyMap.Up.SetKeys("up", "k")
	vp.KeyMap.Down.SetKeys("down", "j")
	v.viewport = vp
	v.ready = true
}

// renderContent builds the full detail text.
func (v *issueDetailView) renderContent() string {
	maxWidth := v.width - 2 // small margin
	if maxWidth < 20 {
		maxWidth = 20
	}

	var b strings.Builder

	b.WriteString(detailKeyStyle.Render(v.summary.Key) + detailHintStyle.Render("(y)"))
	b.WriteString("\n")

	d := v.detail
	statusKey, statusName := v.summary.StatusKey, ""
	priorityKey, priorityName := v.summary.PriorityKey, ""
	var issueType string
	if d != nil {
		statusKey, statusName = refParts(d.Issue.Status, statusKey)
		priorityKey, priorityName = refParts(d.Issue.Priority, priorityKey)
		_, issueType = refParts(d.Issue.Type, "")
	}

	var meta []string
	if issueType != "" {
		meta = append(meta, detailTypeStyle.Render(issueType))
	}
	if statusKey != "" {
		meta = append(meta, statusLabel(statusKey, statusName))
	}
	if priorityKey != "" {
		meta = append(meta, priorityLabel(priorityKey, priorityName))
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, detailTypeStyle.Render(" · ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(lipgloss.NewStyle().Bold(true).Render(v.summary.Title))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(renderSection("Description", maxWidth))
		b.WriteString(detailTypeStyle.Render("Loading…") + "\n")
	case v.errMsg != "":
		b.WriteString(errorStyle.Render("Could not load issue: "+v.errMsg) + "\n")
	case d != nil:
		v.renderDetail(&b, d, maxWidth)
	}

	b.WriteString("\n")
	b.WriteString(detailHintStyle.Render("y: copy key  u: copy url  esc: back") + "\n")

	return b.String()
}

func (v *issueDetailView) renderDetail(b *strings.Builder, d *detail.IssueDetail, maxWidth int) {
	b.WriteString(renderSection("Description", maxWidth))
	if strings.TrimSpace(d.Issue.Description) == "" {
		b.WriteString(detailTypeStyle.Render("No description") + "\n")
	} else {
		b.WriteString(renderMarkdown(detail.TerminalMarkdown(d.Issue.Description, d.Front, d.Attachments), maxWidth))
	}

	b.WriteString("\n")
	b.WriteString(renderSection("Fields", maxWidth))
	b.WriteString(renderField("Queue", refName(d.Issue.Queue)))
	b.WriteString(renderField("Assignee", refNameOr(d.Issue.Assignee, "Unassigned")))
	b.WriteString(renderField("Author", refName(d.Issue.CreatedBy)))
	b.WriteString(renderField("Followers", followersValue(d.Issue.Followers)))
	b.WriteString(renderField("Created", formatDetailDate(d.Issue.CreatedAt)))
	b.WriteString(renderField("Updated", formatDetailDate(d.Issue.UpdatedAt)))
	if d.Issue.Votes > 0 {
		b.WriteString(renderField("Votes", fmt.Sprintf("%d", d.Issue.Votes)))
	}
	if images := countImages(d); images > 0 {
		b.WriteString(renderField("Images", fmt.Sprintf("%d of %d loaded", len(d.Attachments), images)))
	}
	if url := d.BrowseURL(); url != "" {
		b.WriteString(renderField("Link", url))
	}

	if len(d.Comments) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(renderSection(fmt.Sprintf("Comments (%d)", len(d.Comments)), maxWidth))
	for i, c := range d.Comments {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			lipgloss.NewStyle().Bold(true).Render(refNameOr(c.CreatedBy, "Unknown")),
			detailTypeStyle.Render(formatDetailDate(c.CreatedAt)),
		))
		if body := strings.TrimSpace(c.Text); body != "" {
			b.WriteString(renderMarkdown(detail.TerminalMarkdown(body, d.Front, d.Attachments), maxWidth-2))
		}
		if i < len(d.Comments)-1 {
			b.WriteString("\n")
		}
	}
}

// Update processes key events for the detail view's viewport.
func (v *issueDetailView) Update(msg tea.Msg) tea.Cmd {
	if !v.ready {
		return nil
	}
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return cmd
}

// View renders the detail view viewport.
func (v *issueDetailView) View() string {
	if !v.ready {
		return loadingStyle.Render("Loading...")
	}
	return v.viewport.View()
}

// setSize updates the viewport dimensions.
func (v *issueDetailView) setSize(width, height int) {
	v.width = width
	v.height = height
	if v.ready {
		v.buildViewport()
	}
}

// --- Helpers ---

// renderMarkdown renders tracker markdown for the terminal, falling back to
// the raw text if glamour fails.
func renderMarkdown(text string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(markdownStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text + "\n"
	}
	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

func countImages(d *detail.IssueDetail) int {
	seen := make(map[string]bool)
	add := func(text string) {
		for _, u := range detail.ExtractImageURLs(text) {
			seen[u] = true
		}
	}
	add(d.Issue.Description)
	for _, c := range d.Comments {
		add(c.Text)
	}
	return len(seen)
}

func renderSection(label string, maxWidth int) string {
	// "─── Label ─────────"
	// prefix "─── " = 4 display cols, " " after label = 1
	remaining := maxWidth - 4 - len(label) - 1
	if remaining < 0 {
		remaining = 0
	}
	tail := strings.Repeat("─", remaining)
	return detailSectionStyle.Render(fmt.Sprintf("─── %s %s", label, tail)) + "\n"
}

func renderField(label, value string) string {
	if value == "" {
		return ""
	}
	return detailLabelStyle.Render(label) + detailValueStyle.Render(value) + "\n"
}

// refParts returns the key and display name of ref, or fallback and "".
func refParts(ref *tracker.Ref, fallback string) (string, string) {
	if ref == nil {
		return fallback, ""
	}
	return ref.Key, ref.Display
}

func refName(ref *tracker.Ref) string {
	return refNameOr(ref, "")
}

func refNameOr(ref *tracker.Ref, fallback string) string {
	if ref == nil {
		return fallback
	}
	if ref.Display != "" {
		return ref.Display
	}
	if ref.Key != "" {
		return ref.Key
	}
	return ref.ID
}

func followersValue(refs []tracker.Ref) string {
	names := make([]string, 0, len(refs))
	for i := range refs {
		names = append(names, refName(&refs[i]))
	}
	return strings.Join(names, ", ")
}

// formatDate renders a list-time timestamp as a local date.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(dateLayout)
}

// formatDetailDate renders a tracker timestamp as local "2006-01-02 15:04".
func formatDetailDate(s string) string {
	if s == "" {
		return ""
	}
	t := tracker.ParseTime(s)
	if t.IsZero() {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}
