package issuetree

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jbeckham/tracker-tui/internal/tracker"
)

// SortKey selects the order of issues within a group.
type SortKey string

const (
	SortDefault   SortKey = "default"
	SortPriority  SortKey = "priority"
	SortStatus    SortKey = "status"
	SortCreatedAt SortKey = "createdAt"
	SortUpdatedAt SortKey = "updatedAt"
)

// SortKeys lists every sort key in menu order.
var SortKeys = []SortKey{SortDefault, SortPriority, SortStatus, SortCreatedAt, SortUpdatedAt}

// GroupKey selects how issues are partitioned.
type GroupKey string

const (
	GroupNone     GroupKey = "none"
	GroupPriority GroupKey = "priority"
	GroupStatus   GroupKey = "status"
)

// GroupKeys lists every group key in menu order.
var GroupKeys = []GroupKey{GroupNone, GroupPriority, GroupStatus}

// ParseSortKey returns the sort key named by s. Unknown names yield
// SortDefault and false.
func ParseSortKey(s string) (SortKey, bool) {
	for _, k := range SortKeys {
		if string(k) == s {
			return k, true
		}
	}
	return SortDefault, false
}

// ParseGroupKey returns the group key named by s. Unknown names yield
// GroupNone and false.
func ParseGroupKey(s string) (GroupKey, bool) {
	for _, k := range GroupKeys {
		if string(k) == s {
			return k, true
		}
	}
	return GroupNone, false
}

// Label returns the menu label for the sort key.
func (k SortKey) Label() string {
	switch k {
	case SortPriority:
		return "Priority"
	case SortStatus:
		return "Status"
	case SortCreatedAt:
		return "Created (newest first)"
	case SortUpdatedAt:
		return "Updated (newest first)"
	default:
		return "Default"
	}
}

// Label returns the menu label for the group key.
func (k GroupKey) Label() string {
	switch k {
	case GroupPriority:
		return "Priority"
	case GroupStatus:
		return "Status"
	default:
		return "None"
	}
}

// StatusOrder is the rank order of known status keys.
var StatusOrder = []string{"open", "inProgress", "needInfo", "testing", "resolved", "closed"}

// PriorityOrder is the rank order of known priority keys.
var PriorityOrder = []string{"blocker", "critical", "normal", "minor", "trivial"}

var (
	statusRanks   = rankTable(StatusOrder)
	priorityRanks = rankTable(PriorityOrder)
)

func rankTable(order []string) map[string]int {
	m := make(map[string]int, len(order))
	for i, k := range order {
		m[normalizeKey(k)] = i
	}
	return m
}

// normalizeKey folds case and drops separators so that "in-progress",
// "in_progress" and "inProgress" compare equal.
func normalizeKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, strings.ToLower(k))
}

// rank returns the position of key in the table. Unknown keys rank after
// every known key, in sorting as well as grouping. Ranking an unknown
// priority as normal (or an unknown status as closed) would interleave
// unrecognized issues with known ones, so that rule is deliberately not used.
func rank(table map[string]int, key string) (int, bool) {
	if r, ok := table[normalizeKey(key)]; ok {
		return r, true
	}
	return len(table), false
}

// StatusRank returns the rank of a status key and whether it is known.
func StatusRank(key string) (int, bool) { return rank(statusRanks, key) }

// PriorityRank returns the rank of a priority key and whether it is known.
func PriorityRank(key string) (int, bool) { return rank(priorityRanks, key) }

// canonicalKey maps a known key to its spelling in order, so variants of
// the same key land in one group.
func canonicalKey(order []string, table map[string]int, key string) string {
	if r, ok := table[normalizeKey(key)]; ok {
		return order[r]
	}
	return key
}

// sortIssues returns a sorted copy of issues. The input is not modified.
func sortIssues(issues []tracker.IssueSummary, key SortKey) []tracker.IssueSummary {
	out := slices.Clone(issues)
	switch key {
	case SortPriority:
		slices.SortStableFunc(out, func(a, b tracker.IssueSummary) int {
			ra, _ := PriorityRank(a.PriorityKey)
			rb, _ := PriorityRank(b.PriorityKey)
			return cmp.Compare(ra, rb)
		})
	case SortStatus:
		slices.SortStableFunc(out, func(a, b tracker.IssueSummary) int {
			ra, _ := StatusRank(a.StatusKey)
			rb, _ := StatusRank(b.StatusKey)
			return cmp.Compare(ra, rb)
		})
	case SortCreatedAt:
		slices.SortStableFunc(out, func(a, b tracker.IssueSummary) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case SortUpdatedAt:
		slices.SortStableFunc(out, func(a, b tracker.IssueSummary) int {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		})
	}
	return out
}

// groupIssues partitions issues by key, preserving input order inside each
// group. Known keys come first in rank order, unknown keys follow sorted by
// name.
func groupIssues(issues []tracker.IssueSummary, key GroupKey) []Group {
	if key != GroupPriority && key != GroupStatus {
		return []Group{{Issues: issues}}
	}

	order, table, field := PriorityOrder, priorityRanks, func(s tracker.IssueSummary) string { return s.PriorityKey }
	if key == GroupStatus {
		order, table, field = StatusOrder, statusRanks, func(s tracker.IssueSummary) string { return s.StatusKey }
	}

	index := make(map[string]int)
	var groups []Group
	for _, s := range issues {
		k := canonicalKey(order, table, field(s))
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Issues = append(groups[i].Issues, s)
	}

	slices.SortFunc(groups, func(a, b Group) int {
		ra, _ := rank(table, a.Key)
		rb, _ := rank(table, b.Key)
		if c := cmp.Compare(ra, rb); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	return groups
}
