package tracker

import "time"

// Ref is a reference to another tracker entity (user, status, priority,
// queue, issue type) as embedded in issue and comment records.
type Ref struct {
	Self    string `json:"self,omitempty"`
	ID      string `json:"id,omitempty"`
	Key     string `json:"key,omitempty"`
	Display string `json:"display,omitempty"`
}

// RawIssue is a full issue record as returned by GET /issues/{key}.
// Optional nested objects are pointers and may be nil.
type RawIssue struct {
	Self                               string `json:"self"`
	ID                                 string `json:"id"`
	Key                                string `json:"key"`
	Version                            int    `json:"version,omitempty"`
	Summary                            string `json:"summary"`
	Description                        string `json:"description,omitempty"`
	Type                               *Ref   `json:"type,omitempty"`
	Priority                           *Ref   `json:"priority,omitempty"`
	Status                             *Ref   `json:"status,omitempty"`
	Queue                              *Ref   `json:"queue,omitempty"`
	CreatedBy                          *Ref   `json:"createdBy,omitempty"`
	UpdatedBy                          *Ref   `json:"updatedBy,omitempty"`
	Assignee                           *Ref   `json:"assignee,omitempty"`
	Followers                          []Ref  `json:"followers,omitempty"`
	CreatedAt                          string `json:"createdAt,omitempty"`
	UpdatedAt                          string `json:"updatedAt,omitempty"`
	StatusStartTime                    string `json:"statusStartTime,omitempty"`
	LastCommentUpdatedAt               string `json:"lastCommentUpdatedAt,omitempty"`
	ApprovmentStatus                   string `json:"approvmentStatus,omitempty"`
	CommentWithExternalMessageCount    int    `json:"commentWithExternalMessageCount,omitempty"`
	CommentWithoutExternalMessageCount int    `json:"commentWithoutExternalMessageCount,omitempty"`
	Favorite                           bool   `json:"favorite,omitempty"`
	Votes                              int    `json:"votes,omitempty"`
}

// RawComment is a comment record as returned by the comments endpoints.
type RawComment struct {
	Self      string `json:"self"`
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedBy *Ref   `json:"createdBy,omitempty"`
	UpdatedBy *Ref   `json:"updatedBy,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// RawUser is a user record as returned by /myself and /users/{uid}.
type RawUser struct {
	UID       int64  `json:"uid"`
	Login     string `json:"login"`
	Display   string `json:"display"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// IssueSummary is the lightweight, immutable view of an issue produced by
// search. Identity is Key. Title may be empty; see Issue.Title.
type IssueSummary struct {
	Key         string
	Title       string
	PriorityKey string
	StatusKey   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IssuePage is one page of search results.
type IssuePage struct {
	Issues  []IssueSummary
	HasNext bool
}

// Credential is a bearer token derived from the session cookie.
type Credential struct {
	Token     string
	OrgID     string
	ExpiresAt time.Time
}

// AttachmentMap maps a reference URL, exactly as written in markdown, to a
// data URI. Unresolved URLs have no entry.
type AttachmentMap map[string]string

// timeLayouts are the timestamp formats the tracker emits, most common first.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
}

// ParseTime parses a tracker timestamp. It returns the zero time if s is
// empty or in an unknown format.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// refKey returns r.Key, or "" if r is nil.
func refKey(r *Ref) string {
	if r == nil {
		return ""
	}
	return r.Key
}

// Summarize maps a raw issue to its summary form.
func Summarize(raw RawIssue) IssueSummary {
	return IssueSummary{
		Key:         raw.Key,
		Title:       raw.Summary,
		PriorityKey: refKey(raw.Priority),
		StatusKey:   refKey(raw.Status),
		CreatedAt:   ParseTime(raw.CreatedAt),
		UpdatedAt:   ParseTime(raw.UpdatedAt),
	}
}
