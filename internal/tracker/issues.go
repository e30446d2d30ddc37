package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Issue is a fetch-on-demand handle for a single issue. Creating one makes
// no request and does not check that the issue exists.
type Issue struct {
	client *Client
	key    string
}

// Issue returns a handle for the issue with the given key.
func (c *Client) Issue(key string) *Issue {
	return &Issue{client: c, key: key}
}

// Key returns the issue key.
func (i *Issue) Key() string {
	return i.key
}

// Raw fetches the full issue record.
func (i *Issue) Raw(ctx context.Context) (*RawIssue, error) {
	path := "/issues/" + url.PathEscape(i.key)
	var raw RawIssue
	if _, err := i.client.api(ctx, fmt.Sprintf("getting issue %s", i.key), http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// Title returns the issue summary, fetching the issue when the known title
// is empty.
func (i *Issue) Title(ctx context.Context, known string) (string, error) {
	if known != "" {
		return known, nil
	}
	raw, err := i.Raw(ctx)
	if err != nil {
		return "", err
	}
	return raw.Summary, nil
}

// Comments fetches every comment of the issue, oldest first.
func (i *Issue) Comments(ctx context.Context) ([]RawComment, error) {
	path := "/issues/" + url.PathEscape(i.key) + "/comments"
	var comments []RawComment
	if _, err := i.client.api(ctx, fmt.Sprintf("getting comments for %s", i.key), http.MethodGet, path, nil, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Comment returns a handle for one comment of the issue.
func (i *Issue) Comment(id string) *Comment {
	return &Comment{client: i.client, issueKey: i.key, id: id}
}

// Comment is a fetch-on-demand handle for a single comment.
type Comment struct {
	client   *Client
	issueKey string
	id       string
	raw      *RawComment
}

// Raw returns the comment record, fetching it on first use.
func (c *Comment) Raw(ctx context.Context) (*RawComment, error) {
	if c.raw != nil {
		return c.raw, nil
	}
	path := "/issues/" + url.PathEscape(c.issueKey) + "/comments/" + url.PathEscape(c.id)
	var raw RawComment
	op := fmt.Sprintf("getting comment %s of %s", c.id, c.issueKey)
	if _, err := c.client.api(ctx, op, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	c.raw = &raw
	return c.raw, nil
}
