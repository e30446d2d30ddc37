// Package issuetree holds the paged issue collection behind one view and
// projects it into sorted, grouped lists.
package issuetree

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/jbeckham/tracker-tui/internal/tracker"
)

// DefaultBatchSize is used when LoadNext is called with a non-positive size.
const DefaultBatchSize = 50

// Cursor yields issue summaries in order.
type Cursor interface {
	Next(ctx context.Context) (tracker.IssueSummary, bool, error)
}

// Source opens a fresh cursor for a query.
type Source interface {
	Open(query string) Cursor
}

// SourceFunc adapts a function to Source.
type SourceFunc func(query string) Cursor

func (f SourceFunc) Open(query string) Cursor { return f(query) }

// ClientSource returns a Source backed by tracker search.
func ClientSource(c *tracker.Client) Source {
	return SourceFunc(func(query string) Cursor { return c.Search(query) })
}

// State is the load state of a Tree.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "empty"
	}
}

// Group is one partition of a projection. Key is empty when grouping is off.
type Group struct {
	Key    string
	Issues []tracker.IssueSummary
}

// Projection is the sorted, grouped view of a Tree's collection.
type Projection struct {
	Groups []Group
}

// Len returns the number of issues across all groups.
func (p Projection) Len() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Issues)
	}
	return n
}

// Issues returns every issue in projection order.
func (p Projection) Issues() []tracker.IssueSummary {
	out := make([]tracker.IssueSummary, 0, p.Len())
	for _, g := range p.Groups {
		out = append(out, g.Issues...)
	}
	return out
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger used to report store failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.logger = l
		}
	}
}

// Tree is the issue collection of one view: a query, a cursor over its
// results, the issues pulled so far and the view's sort and group
// preferences. It is safe for concurrent use.
type Tree struct {
	viewID string
	query  string
	src    Source
	store  Store
	logger *slog.Logger

	mu        sync.Mutex
	cursor    Cursor
	issues    []tracker.IssueSummary
	state     State
	exhausted bool
	loading   bool
	gen       int
	sortBy    SortKey
	groupBy   GroupKey
}

// New creates a tree for the view. Sort and group preferences are read
// from store; missing or unknown values fall back to SortDefault and
// GroupNone. No issues are fetched until LoadNext.
func New(viewID, query string, src Source, store Store, opts ...Option) *Tree {
	t := &Tree{
		viewID:  viewID,
		query:   query,
		src:     src,
		store:   store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		sortBy:  SortDefault,
		groupBy: GroupNone,
	}
	for _, opt := range opts {
		opt(t)
	}
	if v, ok := t.loadPref(sortPrefKey(viewID)); ok {
		t.sortBy, _ = ParseSortKey(v)
	}
	if v, ok := t.loadPref(groupPrefKey(viewID)); ok {
		t.groupBy, _ = ParseGroupKey(v)
	}
	return t
}

// ViewID returns the view identifier.
func (t *Tree) ViewID() string { return t.viewID }

// Query returns the view's search query.
func (t *Tree) Query() string { return t.query }

// LoadNext pulls up to batchSize more issues and returns the updated
// projection. It stops early when the results run out. Once the results
// are exhausted, and while another load is in flight, it returns the
// current projection without fetching. A pull error is returned along with
// the projection of everything accumulated, and no further pages are
// requested until Refresh.
func (t *Tree) LoadNext(ctx context.Context, batchSize int) (Projection, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	t.mu.Lock()
	if t.exhausted || t.loading {
		p := t.projectLocked()
		t.mu.Unlock()
		return p, nil
	}
	if t.cursor == nil {
		t.cursor = t.src.Open(t.query)
	}
	cursor, gen := t.cursor, t.gen
	t.loading = true
	t.state = StateLoading
	t.mu.Unlock()

	var batch []tracker.IssueSummary
	var pullErr error
	exhausted := false
	for len(batch) < batchSize {
		s, ok, err := cursor.Next(ctx)
		if err != nil {
			pullErr = err
			exhausted = true
			break
		}
		if !ok {
			exhausted = true
			break
		}
		batch = append(batch, s)
	}
	if d, ok := cursor.(interface{ Done() bool }); ok && d.Done() {
		exhausted = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		// Refreshed while loading: the batch belongs to the old cursor.
		return t.projectLocked(), nil
	}
	t.issues = append(t.issues, batch...)
	t.exhausted = exhausted
	t.loading = false
	t.state = StateLoaded
	return t.projectLocked(), pullErr
}

// Refresh discards the cursor and every pulled issue. The next LoadNext
// starts again from the first page. Results of a load in flight are
// dropped.
func (t *Tree) Refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.cursor = nil
	t.issues = nil
	t.exhausted = false
	t.loading = false
	t.state = StateEmpty
}

// SetSort changes and persists the sort key and returns the new projection.
func (t *Tree) SetSort(key SortKey) Projection {
	t.mu.Lock()
	t.sortBy = key
	p := t.projectLocked()
	t.mu.Unlock()
	t.savePref(sortPrefKey(t.viewID), string(key))
	return p
}

// SetGroup changes and persists the group key and returns the new projection.
func (t *Tree) SetGroup(key GroupKey) Projection {
	t.mu.Lock()
	t.groupBy = key
	p := t.projectLocked()
	t.mu.Unlock()
	t.savePref(groupPrefKey(t.viewID), string(key))
	return p
}

// Sort returns the current sort key.
func (t *Tree) Sort() SortKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sortBy
}

// Group returns the current group key.
func (t *Tree) Group() GroupKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.groupBy
}

// Projection returns the current projection.
func (t *Tree) Projection() Projection {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.projectLocked()
}

// State returns the load state.
func (t *Tree) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Len returns the number of issues pulled so far.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.issues)
}

// Exhausted reports whether every result of the query has been pulled.
func (t *Tree) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exhausted
}

func (t *Tree) projectLocked() Projection {
	groups := groupIssues(t.issues, t.groupBy)
	for i := range groups {
		groups[i].Issues = sortIssues(groups[i].Issues, t.sortBy)
	}
	return Projection{Groups: groups}
}

func (t *Tree) loadPref(key string) (string, bool) {
	if t.store == nil {
		return "", false
	}
	v, ok, err := t.store.Get(key)
	if err != nil {
		t.logger.Warn("reading view preference", "key", key, "err", err)
		return "", false
	}
	return v, ok
}

func (t *Tree) savePref(key, value string) {
	if t.store == nil {
		return
	}
	if err := t.store.Set(key, value); err != nil {
		t.logger.Warn("saving view preference", "key", key, "err", err)
	}
}
