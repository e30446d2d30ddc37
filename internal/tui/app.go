// Package tui implements the terminal interface: one tab per view, an issue
// detail view and selection overlays.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jbeckham/tracker-tui/internal/config"
	"github.com/jbeckham/tracker-tui/internal/detail"
	"github.com/jbeckham/tracker-tui/internal/issuetree"
	"github.com/jbeckham/tracker-tui/internal/tracker"
)

// batchSize is how many issues a tab pulls per load.
const batchSize = issuetree.DefaultBatchSize

// --- Messages ---

// connStatusMsg is sent when the startup auth check completes.
type connStatusMsg struct {
	user *tracker.RawUser
	err  error
}

// tabDataMsg delivers a tab's projection after a load (or an error).
type tabDataMsg struct {
	tabIndex   int
	projection issuetree.Projection
	err        error
}

// issueDetailMsg delivers a fully assembled issue for the detail view.
type issueDetailMsg struct {
	issueKey string
	detail   *detail.IssueDetail
	err      error
}

// flashMsg sets a temporary status message.
type flashMsg struct {
	text  string
	isErr bool
}

// ConfigChangedMsg tells the app that config.yaml changed on disk.
type ConfigChangedMsg struct{}

// --- View stack ---

// view is a stacked view that renders on top of the tab bar.
type view interface {
	// title returns a label for the view (e.g., issue key).
	title() string
}

// --- Clipboard ---

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// --- Options ---

// Option configures an App.
type Option func(*App)

// WithStore sets the store for per-view sort and group preferences.
func WithStore(s issuetree.Store) Option {
	return func(a *App) { a.store = s }
}

// WithLogger sets the logger for command failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithSource overrides where tab issues are loaded from.
func WithSource(src issuetree.Source) Option {
	return func(a *App) { a.source = src }
}

// WithAssembler overrides how issue details are fetched.
func WithAssembler(asm *detail.Assembler) Option {
	return func(a *App) { a.assembler = asm }
}

// --- App model ---

// App is the root bubbletea model for tracker-tui.
type App struct {
	width  int
	height int
	ready  bool

	client    *tracker.Client
	source    issuetree.Source
	assembler *detail.Assembler
	store     issuetree.Store
	logger    *slog.Logger

	user      *tracker.RawUser
	connErr   error
	checking  bool
	connected bool

	tabs      []tab
	activeTab int
	viewStack []view

	overlay       overlay       // active overlay (nil = none)
	overlayAction overlayAction // which action the overlay is for

	flash      string // transient status message
	flashIsErr bool   // true if the flash is an error

	configChanged bool
}

// NewApp creates a new App model with one tab per view.
// Pass nil client to run without a tracker connection (for testing); tabs
// then load from the WithSource source, if any, without a connection check.
func NewApp(client *tracker.Client, views []config.ViewConfig, columns []string, opts ...Option) App {
	a := App{
		client: client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if client != nil {
		a.source = issuetree.ClientSource(client)
		a.assembler = detail.NewAssembler(detail.ClientSource(client), client)
		a.checking = true
	}
	for _, opt := range opts {
		opt(&a)
	}
	if client == nil && a.source != nil {
		a.connected = true
	}

	if len(columns) == 0 {
		columns = config.DefaultColumns
	}
	a.tabs = make([]tab, len(views))
	for i, v := range views {
		var tree *issuetree.Tree
		if a.source != nil {
			tree = issuetree.New(v.ID, v.Query, a.source, a.store, issuetree.WithLogger(a.logger))
		}
		a.tabs[i] = newTab(v, tree, columns)
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	if a.client != nil {
		return a.checkConnection()
	}
	if a.connected {
		return a.loadAllTabs()
	}
	return nil
}

// checkConnection returns a Cmd that verifies the session cookie.
func (a App) checkConnection() tea.Cmd {
	client := a.client
	return func() tea.Msg {
		user, err := client.Myself(context.Background())
		return connStatusMsg{user: user, err: err}
	}
}

// loadTab returns a Cmd that pulls the next batch of issues for a tab.
func (a App) loadTab(index int) tea.Cmd {
	if index < 0 || index >= len(a.tabs) || a.tabs[index].tree == nil {
		return nil
	}
	tree := a.tabs[index].tree
	return func() tea.Msg {
		p, err := tree.LoadNext(context.Background(), batchSize)
		return tabDataMsg{tabIndex: index, projection: p, err: err}
	}
}

// loadAllTabs returns Cmds that load every tab in parallel.
func (a App) loadAllTabs() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(a.tabs))
	for i := range a.tabs {
		cmds = append(cmds, a.loadTab(i))
	}
	return tea.Batch(cmds...)
}

// cmdAssemble fetches the full issue for the detail view.
func (a App) cmdAssemble(issueKey string) tea.Cmd {
	if a.assembler == nil {
		return nil
	}
	asm := a.assembler
	return func() tea.Msg {
		d, err := asm.Assemble(context.Background(), issueKey)
		return issueDetailMsg{issueKey: issueKey, detail: d, err: err}
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		// Resize all tab tables
		tableH := a.tableHeight()
		for i := range a.tabs {
			a.tabs[i].setSize(a.width, tableH)
		}
		// Resize detail view if on stack
		if dv := a.topDetail(); dv != nil {
			dv.setSize(a.width, a.height)
		}

	case connStatusMsg:
		a.checking = false
		if msg.err != nil {
			a.connErr = msg.err
			a.logger.Error("connection check failed", "err", msg.err)
		} else {
			a.user = msg.user
			a.connected = true
			// Auth succeeded, load all tabs eagerly
			return a, a.loadAllTabs()
		}

	case tabDataMsg:
		if msg.tabIndex >= 0 && msg.tabIndex < len(a.tabs) {
			tab := &a.tabs[msg.tabIndex]
			// A refresh or a load still in flight makes this result stale.
			if tab.tree != nil && tab.tree.State() != issuetree.StateLoaded {
				return a, nil
			}
			tab.setProjection(msg.projection)
			if msg.err != nil {
				a.logger.Error("loading view", "view", tab.config.ID, "err", msg.err)
				tab.setError(msg.err.Error())
				if tab.state != tabError {
					a.flash = "Stopped loading " + tab.config.Label + ": " + msg.err.Error()
					a.flashIsErr = true
				}
			}
		}

	case issueDetailMsg:
		dv := a.topDetail()
		if dv == nil || dv.key() != msg.issueKey {
			return a, nil
		}
		if msg.err != nil {
			a.logger.Error("loading issue", "key", msg.issueKey, "err", msg.err)
			a.flash = fmt.Sprintf("Failed to load %s: %v", msg.issueKey, msg.err)
			a.flashIsErr = true
			dv.setError(msg.err.Error())
		} else {
			dv.setDetail(msg.detail)
		}

	case flashMsg:
		a.flash = msg.text
		a.flashIsErr = msg.isErr

	case ConfigChangedMsg:
		a.configChanged = true
		a.flash = "Configuration changed, restart to apply"
		a.flashIsErr = false

	case tea.KeyMsg:
		a.flash = "" // clear flash on any keypress
		return a.handleKey(msg)
	}
	return a, nil
}

// topDetail returns the detail view on top of the stack, or nil.
func (a App) topDetail() *issueDetailView {
	if len(a.viewStack) == 0 {
		return nil
	}
	dv, _ := a.viewStack[len(a.viewStack)-1].(*issueDetailView)
	return dv
}

// handleKey processes key input.
func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys always work
	switch key {
	case "ctrl+c":
		return a, tea.Quit
	}

	// If an overlay is active, route ALL keys to it
	if a.overlay != nil {
		var cmd tea.Cmd
		a.overlay, cmd = a.overlay.Update(msg)
		if isDone, result := a.overlay.done(); isDone {
			return a.handleOverlayResult(result)
		}
		return a, cmd
	}

	// If a view is on the stack, handle stack-specific keys
	if dv := a.topDetail(); dv != nil {
		switch key {
		case "q":
			return a, tea.Quit
		case "esc":
			a.viewStack = a.viewStack[:len(a.viewStack)-1]
			return a, nil
		case "y":
			return a.copyKey(dv.key()), nil
		case "u":
			return a.copyURL(dv.key()), nil
		}
		// Delegate remaining keys to viewport (j/k scrolling, etc.)
		cmd := dv.Update(msg)
		return a, cmd
	}

	// If filter input is focused, route keypresses to the text input
	if a.activeTab < len(a.tabs) && a.tabs[a.activeTab].quickFilter.isFocused() {
		return a.handleFilterKey(msg)
	}

	var t *tab
	if a.activeTab < len(a.tabs) {
		t = &a.tabs[a.activeTab]
	}

	// Tab-level keys (no stack views open, filter not focused)
	switch key {
	case "q":
		return a, tea.Quit

	case "esc":
		// If a filter is applied, clear it
		if t != nil && t.quickFilter.isActive() {
			t.clearFilter()
		}
		return a, nil

	case "/":
		// Activate filter input
		if t != nil && t.state == tabReady {
			t.quickFilter.activate()
			return a, t.quickFilter.input.Focus()
		}

	case "r":
		// Refresh active tab from the first page
		if a.connected && t != nil && t.tree != nil {
			t.tree.Refresh()
			t.setLoading()
			return a, a.loadTab(a.activeTab)
		}

	case "m":
		// Load the next batch of the active tab
		if a.connected && t != nil && t.tree != nil && t.state != tabLoading && !t.loadingMore {
			if t.tree.Exhausted() {
				a.flash = "All issues loaded"
				a.flashIsErr = false
				return a, nil
			}
			t.loadingMore = true
			return a, a.loadTab(a.activeTab)
		}

	case "o":
		if t != nil && t.tree != nil {
			items := make([]selectionItem, len(issuetree.SortKeys))
			for i, k := range issuetree.SortKeys {
				items[i] = selectionItem{ID: string(k), Label: k.Label()}
			}
			a.overlay = newSelectionOverlay("Sort By", items, string(t.tree.Sort()))
			a.overlayAction = overlayActionSort
			return a, nil
		}

	case "g":
		if t != nil && t.tree != nil {
			items := make([]selectionItem, len(issuetree.GroupKeys))
			for i, k := range issuetree.GroupKeys {
				items[i] = selectionItem{ID: string(k), Label: k.Label()}
			}
			a.overlay = newSelectionOverlay("Group By", items, string(t.tree.Group()))
			a.overlayAction = overlayActionGroup
			return a, nil
		}

	case ":":
		a.overlay = newTextInputOverlay("Open Issue", "QUEUE-123")
		a.overlayAction = overlayActionOpen
		return a, nil

	case "enter":
		// Push issue detail onto stack and assemble the full issue
		if t != nil {
			if issue := t.selectedIssue(); issue != nil {
				return a.openIssue(*issue)
			}
		}

	case "y":
		if t != nil {
			if issue := t.selectedIssue(); issue != nil {
				return a.copyKey(issue.Key), nil
			}
		}

	case "u":
		if t != nil {
			if issue := t.selectedIssue(); issue != nil {
				return a.copyURL(issue.Key), nil
			}
		}

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(key[0]-'0') - 1
		if idx < len(a.tabs) {
			// Clear filter when switching tabs
			if t != nil {
				t.clearFilter()
			}
			a.activeTab = idx
			return a, nil
		}

	default:
		// Delegate to table for j/k/up/down scrolling
		if t != nil && t.state == tabReady {
			var cmd tea.Cmd
			t.table, cmd = t.table.Update(msg)
			return a, cmd
		}
	}

	return a, nil
}

// openIssue pushes a detail view for the issue and starts assembling it.
func (a App) openIssue(summary tracker.IssueSummary) (tea.Model, tea.Cmd) {
	dv := newIssueDetailView(summary, a.width, a.height)
	a.viewStack = append(a.viewStack, &dv)
	if a.assembler == nil {
		dv.setError("not connected")
		return a, nil
	}
	return a, a.cmdAssemble(summary.Key)
}

// copyKey yanks an issue key to the clipboard.
func (a App) copyKey(issueKey string) App {
	if err := writeClipboard(issueKey); err != nil {
		a.flash = "Clipboard unavailable"
		a.flashIsErr = true
	} else {
		a.flash = "Copied " + issueKey
		a.flashIsErr = false
	}
	return a
}

// copyURL copies the issue's web URL to the clipboard.
func (a App) copyURL(issueKey string) App {
	if a.client == nil {
		a.flash = "Not connected to the tracker"
		a.flashIsErr = true
		return a
	}
	url := a.client.BrowseURL(issueKey)
	if url == "" {
		a.flash = "No web address known for " + a.client.Host()
		a.flashIsErr = true
		return a
	}
	if err := writeClipboard(url); err != nil {
		a.flash = "Clipboard unavailable"
		a.flashIsErr = true
	} else {
		a.flash = "Copied URL"
		a.flashIsErr = false
	}
	return a
}

// overlayAction identifies which action the overlay result maps to.
type overlayAction int

const (
	overlayActionNone overlayAction = iota
	overlayActionSort
	overlayActionGroup
	overlayActionOpen
)

// handleOverlayResult applies the result of a completed overlay.
// Called when overlay.done() returns true.
func (a App) handleOverlayResult(result interface{}) (tea.Model, tea.Cmd) {
	action := a.overlayAction
	a.overlay = nil
	a.overlayAction = overlayActionNone

	if result == nil {
		// User cancelled
		return a, nil
	}

	var t *tab
	if a.activeTab < len(a.tabs) {
		t = &a.tabs[a.activeTab]
	}

	switch action {
	case overlayActionSort:
		item := result.(*selectionItem)
		if t != nil && t.tree != nil {
			key, _ := issuetree.ParseSortKey(item.ID)
			t.setProjection(t.tree.SetSort(key))
		}

	case overlayActionGroup:
		item := result.(*selectionItem)
		if t != nil && t.tree != nil {
			key, _ := issuetree.ParseGroupKey(item.ID)
			t.setProjection(t.tree.SetGroup(key))
		}

	case overlayActionOpen:
		key := strings.ToUpper(result.(string))
		return a.openIssue(tracker.IssueSummary{Key: key})
	}

	return a, nil
}

// handleFilterKey routes keypresses when the filter input is focused.
func (a App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tab := &a.tabs[a.activeTab]
	key := msg.String()

	switch key {
	case "enter":
		// Confirm filter (or clear if empty)
		tab.quickFilter.apply(tab.projection.Issues(), tab.columns)
		tab.applyFilter()
		return a, nil

	case "esc":
		// Cancel filter entirely
		tab.clearFilter()
		return a, nil
	}

	// Forward to text input
	var cmd tea.Cmd
	tab.quickFilter.input, cmd = tab.quickFilter.input.Update(msg)

	// Live filter as user types
	tab.quickFilter.updateQuery(tab.projection.Issues(), tab.columns)
	tab.applyFilter()

	return a, cmd
}

// tableHeight returns the height available for the issue table.
func (a App) tableHeight() int {
	// Reserve: tab bar (1) + margin (1) + status/help line (1) + margin (1)
	h := a.height - 4
	// If the active tab has a filter bar visible, reserve 1 more line
	if a.activeTab < len(a.tabs) && a.tabs[a.activeTab].quickFilter.isActive() {
		h--
	}
	if h < 3 {
		h = 3
	}
	return h
}

// --- View ---

// View implements tea.Model.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var sections []string

	// Tab bar
	sections = append(sections, a.renderTabBar())

	// Main content area
	switch {
	case a.overlay != nil:
		sections = append(sections, a.overlay.View(a.width, a.height-2))
	case len(a.viewStack) > 0:
		sections = append(sections, a.renderStackView())
	case a.checking:
		sections = append(sections, loadingStyle.Render("Connecting to the tracker..."))
	case a.connErr != nil:
		sections = append(sections, errorStyle.Render(connErrorText(a.connErr)))
	case len(a.tabs) > 0:
		sections = append(sections, a.renderActiveTab())
	}

	// Status bar
	sections = append(sections, a.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// connErrorText explains a failed connection check, pointing at the
// set-cookie command when the session is the problem.
func connErrorText(err error) string {
	var authErr *tracker.AuthError
	var fetchErr *tracker.FetchError
	var cfgErr *tracker.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return fmt.Sprintf("Configuration error: %v\nSet tracker.front_url in config.yaml.", err)
	case errors.As(err, &authErr), errors.As(err, &fetchErr) && fetchErr.Unauthorized():
		return fmt.Sprintf("Not signed in: %v\nRun `tracker-tui set-cookie` with the Cookie header of a logged-in browser tab.", err)
	default:
		return fmt.Sprintf("Connection failed: %v", err)
	}
}

// renderTabBar draws the tab strip across the top.
func (a App) renderTabBar() string {
	if len(a.tabs) == 0 {
		return ""
	}

	var tabs []string
	for i, t := range a.tabs {
		label := fmt.Sprintf(" %d %s ", i+1, t.config.Label)
		if i == a.activeTab {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	return tabBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

// renderActiveTab draws the content of the currently active tab.
func (a App) renderActiveTab() string {
	if a.activeTab >= len(a.tabs) {
		return ""
	}
	t := &a.tabs[a.activeTab]

	var parts []string

	// Filter bar (if active)
	if t.quickFilter.isActive() {
		parts = append(parts, a.renderFilterBar(t))
	}

	switch t.state {
	case tabLoading:
		parts = append(parts, loadingStyle.Render("Loading issues..."))
	case tabError:
		parts = append(parts, errorStyle.Render(fmt.Sprintf("Error: %s", t.errMsg)))
	case tabEmpty:
		parts = append(parts, emptyStyle.Render("No issues found"))
	case tabReady:
		parts = append(parts, t.table.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderFilterBar draws the quick filter bar for a tab.
func (a App) renderFilterBar(t *tab) string {
	var bar string
	if t.quickFilter.isFocused() {
		bar = t.quickFilter.input.View()
	} else {
		// Show confirmed filter text dimmed
		bar = filterPromptStyle.Render("/ ") + helpStyle.Render(t.quickFilter.query)
	}

	// Append match count
	count := filterCountStyle.Render(
		fmt.Sprintf("  %d of %d issues", t.quickFilter.matched, t.quickFilter.total),
	)

	return filterBarStyle.Render(bar + count)
}

// renderStackView draws the top view on the stack.
func (a App) renderStackView() string {
	if dv := a.topDetail(); dv != nil {
		return dv.View()
	}
	return ""
}

// renderStatusBar draws the bottom help/status line.
func (a App) renderStatusBar() string {
	var parts []string

	if a.user != nil {
		parts = append(parts, successStyle.Render("Connected as "+a.user.Display))
	}

	if len(a.viewStack) == 0 && a.activeTab < len(a.tabs) {
		if info := a.tabs[a.activeTab].loadInfo(); info != "" {
			parts = append(parts, helpStyle.Render(info))
		}
	}

	// Flash message (transient feedback)
	if a.flash != "" {
		if a.flashIsErr {
			parts = append(parts, errorStyle.Render(a.flash))
		} else {
			parts = append(parts, successStyle.Render(a.flash))
		}
	} else if a.configChanged {
		parts = append(parts, loadingStyle.Render("config changed"))
	}

	if len(a.viewStack) > 0 {
		parts = append(parts, helpStyle.Render("j/k: scroll  y: key  u: url  esc: back  q: quit"))
	} else {
		parts = append(parts, helpStyle.Render("enter: open  /: filter  m: more  r: refresh  o: sort  g: group  :: go to  q: quit"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Join(parts, helpStyle.Render("  │  ")),
	)
}
