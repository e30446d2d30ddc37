package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SearchPerPage is the page size requested from the search endpoint.
const SearchPerPage = 50

// searchRequest is the body of POST /issues/_search.
type searchRequest struct {
	Query string `json:"query"`
}

// Cursor is a pull-based iterator over the results of one search query.
// Pages are requested strictly in order, and only when the buffered items
// of the previous page are used up. A Cursor is not safe for concurrent use
// and never replays once exhausted.
type Cursor struct {
	client *Client
	query  string
	page   int
	buf    []IssueSummary
	done   bool
}

// Search starts a fresh cursor at page 1 for the given tracker query.
// No request is made until Next is called.
func (c *Client) Search(query string) *Cursor {
	return &Cursor{client: c, query: query, page: 1}
}

// Next returns the next issue summary. ok is false once the sequence is
// exhausted. A failed page fetch returns a *FetchError and exhausts the
// cursor; summaries returned before the failure remain valid.
func (cur *Cursor) Next(ctx context.Context) (IssueSummary, bool, error) {
	for len(cur.buf) == 0 {
		if cur.done {
			return IssueSummary{}, false, nil
		}
		page, err := cur.FetchPage(ctx)
		if err != nil {
			return IssueSummary{}, false, err
		}
		cur.buf = page.Issues
	}
	next := cur.buf[0]
	cur.buf = cur.buf[1:]
	return next, true, nil
}

// Done reports whether the cursor has no more items to yield.
func (cur *Cursor) Done() bool {
	return cur.done && len(cur.buf) == 0
}

// All drains the cursor and returns every remaining summary.
func (cur *Cursor) All(ctx context.Context) ([]IssueSummary, error) {
	var all []IssueSummary
	for {
		s, ok, err := cur.Next(ctx)
		if err != nil {
			return all, err
		}
		if !ok {
			return all, nil
		}
		all = append(all, s)
	}
}

// FetchPage requests the current page and advances the cursor. It does not
// consult the items buffered by Next, so callers should use one or the other.
// An exhausted cursor returns an empty page without a request.
func (cur *Cursor) FetchPage(ctx context.Context) (IssuePage, error) {
	if cur.done {
		return IssuePage{}, nil
	}
	query := url.Values{
		"page":    {strconv.Itoa(cur.page)},
		"perPage": {strconv.Itoa(SearchPerPage)},
	}
	var raw []RawIssue
	op := fmt.Sprintf("searching issues (page=%d)", cur.page)
	header, err := cur.client.api(ctx, op, http.MethodPost, "/issues/_search", query, searchRequest{Query: cur.query}, &raw)
	if err != nil {
		cur.done = true
		return IssuePage{}, err
	}

	page := IssuePage{
		Issues:  make([]IssueSummary, len(raw)),
		HasNext: hasNextLink(header),
	}
	for i, r := range raw {
		page.Issues[i] = Summarize(r)
	}
	if page.HasNext {
		cur.page++
	} else {
		cur.done = true
	}
	return page, nil
}

// hasNextLink reports whether any Link header advertises a rel="next" relation.
func hasNextLink(h http.Header) bool {
	for _, v := range h.Values("Link") {
		for _, link := range strings.Split(v, ",") {
			params := strings.Split(link, ";")
			for _, param := range params[1:] {
				name, value, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || !strings.EqualFold(strings.TrimSpace(name), "rel") {
					continue
				}
				for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
					if strings.EqualFold(rel, "next") {
						return true
					}
				}
			}
		}
	}
	return false
}
