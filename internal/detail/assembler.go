// Package detail assembles everything needed to display one issue: the
// issue record, its comments and the attachments they embed.
package detail

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jbeckham/tracker-tui/internal/tracker"
)

// IssueSource fetches issue records.
type IssueSource interface {
	Issue(ctx context.Context, key string) (*tracker.RawIssue, error)
	Comments(ctx context.Context, key string) ([]tracker.RawComment, error)
	Front() (string, error)
}

// Resolver turns attachment URLs into data URIs. Unresolved URLs are
// absent from the result.
type Resolver interface {
	ResolveAttachments(ctx context.Context, urls []string) tracker.AttachmentMap
}

type clientSource struct {
	c *tracker.Client
}

// ClientSource adapts a tracker client to IssueSource.
func ClientSource(c *tracker.Client) IssueSource {
	return clientSource{c: c}
}

func (s clientSource) Issue(ctx context.Context, key string) (*tracker.RawIssue, error) {
	return s.c.Issue(key).Raw(ctx)
}

func (s clientSource) Comments(ctx context.Context, key string) ([]tracker.RawComment, error) {
	return s.c.Issue(key).Comments(ctx)
}

func (s clientSource) Front() (string, error) {
	return s.c.Front()
}

// IssueDetail is a fully assembled issue.
type IssueDetail struct {
	Issue       tracker.RawIssue
	Front       string
	Comments    []tracker.RawComment
	Attachments tracker.AttachmentMap
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the assembler logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// Assembler builds IssueDetail values.
type Assembler struct {
	src      IssueSource
	resolver Resolver
	logger   *slog.Logger
}

// NewAssembler creates an assembler reading from src and resolving
// attachments with resolver.
func NewAssembler(src IssueSource, resolver Resolver, opts ...Option) *Assembler {
	a := &Assembler{
		src:      src,
		resolver: resolver,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble fetches the issue and its comments in parallel, then resolves
// every image they reference. If either fetch fails no detail is returned.
// Attachments that cannot be resolved are simply missing from the result.
func (a *Assembler) Assemble(ctx context.Context, key string) (*IssueDetail, error) {
	front, err := a.src.Front()
	if err != nil {
		return nil, err
	}

	var issue *tracker.RawIssue
	var comments []tracker.RawComment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		issue, err = a.src.Issue(gctx, key)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = a.src.Comments(gctx, key)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	texts := []string{issue.Description}
	for _, c := range comments {
		texts = append(texts, c.Text)
	}
	urls := collectImageURLs(texts...)

	attachments := tracker.AttachmentMap{}
	if len(urls) > 0 {
		attachments = a.resolver.ResolveAttachments(ctx, urls)
	}
	a.logger.Debug("issue assembled", "key", key, "comments", len(comments), "images", len(urls), "resolved", len(attachments))

	if comments == nil {
		comments = []tracker.RawComment{}
	}
	return &IssueDetail{
		Issue:       *issue,
		Front:       front,
		Comments:    comments,
		Attachments: attachments,
	}, nil
}

// BrowseURL returns the web URL of the issue.
func (d *IssueDetail) BrowseURL() string {
	if d.Front == "" {
		return ""
	}
	return d.Front + "/" + d.Issue.Key
}

// Payload is the message handed to a presentation layer.
type Payload struct {
	Command string      `json:"command"`
	Args    PayloadArgs `json:"args"`
}

// PayloadArgs carries the assembled issue.
type PayloadArgs struct {
	Issue       tracker.RawIssue      `json:"issue"`
	Front       string                `json:"front"`
	Comments    []tracker.RawComment  `json:"comments"`
	Attachments tracker.AttachmentMap `json:"attachments"`
}

// Payload returns the detail as an "issue" message.
func (d *IssueDetail) Payload() Payload {
	return Payload{
		Command: "issue",
		Args: PayloadArgs{
			Issue:       d.Issue,
			Front:       d.Front,
			Comments:    d.Comments,
			Attachments: d.Attachments,
		},
	}
}

// Inlined returns a copy of the detail whose description and comment
// bodies reference resolved images by data URI.
func (d *IssueDetail) Inlined() *IssueDetail {
	out := *d
	out.Issue.Description = ReplaceImageSources(d.Issue.Description, d.Attachments)
	out.Comments = make([]tracker.RawComment, len(d.Comments))
	for i, c := range d.Comments {
		c.Text = ReplaceImageSources(c.Text, d.Attachments)
		out.Comments[i] = c
	}
	return &out
}
