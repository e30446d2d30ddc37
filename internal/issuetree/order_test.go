package issuetree

import (
	"slices"
	"testing"
	"time"

	"github.com/jbeckham/tracker-tui/internal/tracker"
)

func TestSortByPriorityStable(t *testing.T) {
	issues := []tracker.IssueSummary{
		{Key: "A", PriorityKey: "normal"},
		{Key: "B", PriorityKey: "blocker"},
		{Key: "C", PriorityKey: "normal"},
		{Key: "D", PriorityKey: "weird"},
		{Key: "E", PriorityKey: "critical"},
		{Key: "F", PriorityKey: "blocker"},
	}
	got := keys(sortIssues(issues, SortPriority))
	want := []string{"B", "F", "E", "A", "C", "D"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if issues[0].Key != "A" {
		t.Error("input must not be modified")
	}
}

func TestSortByStatus(t *testing.T) {
	issues := []tracker.IssueSummary{
		{Key: "A", StatusKey: "closed"},
		{Key: "B", StatusKey: "in-progress"},
		{Key: "C", StatusKey: "open"},
		{Key: "D", StatusKey: ""},
		{Key: "E", StatusKey: "needInfo"},
	}
	got := keys(sortIssues(issues, SortStatus))
	want := []string{"C", "B", "E", "A", "D"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSortUnknownAfterLowestRank(t *testing.T) {
	prio := []tracker.IssueSummary{
		{Key: "A", PriorityKey: "weird"},
		{Key: "B", PriorityKey: "trivial"},
		{Key: "C", PriorityKey: "normal"},
		{Key: "D", PriorityKey: "minor"},
	}
	if got, want := keys(sortIssues(prio, SortPriority)), []string{"C", "D", "B", "A"}; !slices.Equal(got, want) {
		t.Errorf("priority: got %v, want %v", got, want)
	}

	status := []tracker.IssueSummary{
		{Key: "A", StatusKey: "weird"},
		{Key: "B", StatusKey: "closed"},
		{Key: "C", StatusKey: "resolved"},
	}
	if got, want := keys(sortIssues(status, SortStatus)), []string{"C", "B", "A"}; !slices.Equal(got, want) {
		t.Errorf("status: got %v, want %v", got, want)
	}
}

func TestSortByDateNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issues := []tracker.IssueSummary{
		{Key: "A", CreatedAt: base, UpdatedAt: base.Add(5 * time.Hour)},
		{Key: "B", CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(time.Hour)},
		{Key: "C", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(3 * time.Hour)},
	}
	if got, want := keys(sortIssues(issues, SortCreatedAt)), []string{"B", "C", "A"}; !slices.Equal(got, want) {
		t.Errorf("createdAt: got %v, want %v", got, want)
	}
	if got, want := keys(sortIssues(issues, SortUpdatedAt)), []string{"A", "C", "B"}; !slices.Equal(got, want) {
		t.Errorf("updatedAt: got %v, want %v", got, want)
	}
}

func TestSortDefaultKeepsArrivalOrder(t *testing.T) {
	issues := []tracker.IssueSummary{{Key: "Z"}, {Key: "A"}, {Key: "M"}}
	if got := keys(sortIssues(issues, SortDefault)); !slices.Equal(got, []string{"Z", "A", "M"}) {
		t.Errorf("got %v", got)
	}
}

func TestGroupByStatus(t *testing.T) {
	issues := []tracker.IssueSummary{
		{Key: "A", StatusKey: "closed"},
		{Key: "B", StatusKey: "open"},
		{Key: "C", StatusKey: "inProgress"},
		{Key: "D", StatusKey: "open"},
		{Key: "E", StatusKey: "zeta"},
		{Key: "F", StatusKey: "alpha"},
		{Key: "G", StatusKey: "in_progress"},
	}
	groups := groupIssues(issues, GroupStatus)

	var gotKeys []string
	total := 0
	seen := map[string]bool{}
	for _, g := range groups {
		gotKeys = append(gotKeys, g.Key)
		for _, s := range g.Issues {
			if seen[s.Key] {
				t.Errorf("issue %s in more than one group", s.Key)
			}
			seen[s.Key] = true
			total++
		}
	}
	if total != len(issues) {
		t.Errorf("expected %d issues across groups, got %d", len(issues), total)
	}
	want := []string{"open", "inProgress", "closed", "alpha", "zeta"}
	if !slices.Equal(gotKeys, want) {
		t.Errorf("group order: got %v, want %v", gotKeys, want)
	}
	if got := keys(groups[0].Issues); !slices.Equal(got, []string{"B", "D"}) {
		t.Errorf("open group: got %v", got)
	}
	if got := keys(groups[1].Issues); !slices.Equal(got, []string{"C", "G"}) {
		t.Errorf("in progress group: got %v", got)
	}
}

func TestGroupByPriority(t *testing.T) {
	issues := []tracker.IssueSummary{
		{Key: "A", PriorityKey: "minor"},
		{Key: "B", PriorityKey: "Blocker"},
		{Key: "C", PriorityKey: "minor"},
	}
	groups := groupIssues(issues, GroupPriority)
	if len(groups) != 2 || groups[0].Key != "blocker" || groups[1].Key != "minor" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
}

func TestGroupNone(t *testing.T) {
	issues := []tracker.IssueSummary{{Key: "A"}, {Key: "B"}}
	groups := groupIssues(issues, GroupNone)
	if len(groups) != 1 || groups[0].Key != "" || len(groups[0].Issues) != 2 {
		t.Errorf("unexpected groups: %+v", groups)
	}
}

func TestParseKeys(t *testing.T) {
	if k, ok := ParseSortKey("updatedAt"); !ok || k != SortUpdatedAt {
		t.Errorf("ParseSortKey(updatedAt) = %s, %v", k, ok)
	}
	if k, ok := ParseSortKey("nope"); ok || k != SortDefault {
		t.Errorf("ParseSortKey(nope) = %s, %v", k, ok)
	}
	if k, ok := ParseGroupKey("status"); !ok || k != GroupStatus {
		t.Errorf("ParseGroupKey(status) = %s, %v", k, ok)
	}
	if k, ok := ParseGroupKey(""); ok || k != GroupNone {
		t.Errorf("ParseGroupKey(\"\") = %s, %v", k, ok)
	}
}

func TestRanks(t *testing.T) {
	if r, ok := StatusRank("In Progress"); !ok || r != 1 {
		t.Errorf("StatusRank(In Progress) = %d, %v", r, ok)
	}
	if r, ok := PriorityRank("unknown"); ok || r != len(PriorityOrder) {
		t.Errorf("PriorityRank(unknown) = %d, %v", r, ok)
	}
}
