package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jbeckham/tracker-tui/internal/detail"
	"github.com/jbeckham/tracker-tui/internal/tracker"
)

func createShowCmd(v *viper.Viper) *cobra.Command {
	var asJSON, inlineImages bool

	cmd := &cobra.Command{
		Use:   "show KEY",
		Short: "Print one issue with its comments",
		Long: `Fetch an issue, its comments and the images they embed.

With --json the assembled issue is printed as an "issue" message. Add
--inline-images to replace resolved image references with data URIs.

Examples:
  tracker-tui show PROJ-7
  tracker-tui show PROJ-7 --json --inline-images`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(v)
			if err != nil {
				return err
			}
			defer s.Close()

			asm := detail.NewAssembler(detail.ClientSource(s.client), s.client, detail.WithLogger(s.logger))
			d, err := asm.Assemble(cmd.Context(), strings.ToUpper(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if inlineImages {
					d = d.Inlined()
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(d.Payload())
			}
			fillUserNames(cmd.Context(), s, d)
			printDetail(out, d)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the assembled issue as JSON")
	cmd.Flags().BoolVar(&inlineImages, "inline-images", false, "with --json, embed resolved images as data URIs")
	return cmd
}

// printDetail writes a plain-text rendering of an issue.
func printDetail(w io.Writer, d *detail.IssueDetail) {
	issue := d.Issue
	fmt.Fprintf(w, "%s  %s\n", issue.Key, issue.Summary)
	fmt.Fprintf(w, "Status:   %s\n", refText(issue.Status, "-"))
	fmt.Fprintf(w, "Priority: %s\n", refText(issue.Priority, "-"))
	fmt.Fprintf(w, "Assignee: %s\n", refText(issue.Assignee, "Unassigned"))
	if url := d.BrowseURL(); url != "" {
		fmt.Fprintf(w, "Link:     %s\n", url)
	}
	if images := len(detail.ExtractImageURLs(issue.Description)); images > 0 {
		fmt.Fprintf(w, "Images:   %d of %d loaded\n", countResolved(d.Attachments, issue.Description), images)
	}

	if desc := strings.TrimSpace(issue.Description); desc != "" {
		fmt.Fprintf(w, "\n%s\n", detail.TerminalMarkdown(desc, d.Front, d.Attachments))
	}

	for _, c := range d.Comments {
		fmt.Fprintf(w, "\n--- %s  %s\n", refText(c.CreatedBy, "Unknown"), c.CreatedAt)
		fmt.Fprintln(w, detail.TerminalMarkdown(strings.TrimSpace(c.Text), d.Front, d.Attachments))
	}
}

// fillUserNames looks up the display name of people referenced only by
// uid. Each uid is fetched once; lookups that fail leave the ref as is.
func fillUserNames(ctx context.Context, s *session, d *detail.IssueDetail) {
	refs := []*tracker.Ref{d.Issue.Assignee, d.Issue.CreatedBy}
	for i := range d.Comments {
		refs = append(refs, d.Comments[i].CreatedBy)
	}

	names := make(map[int64]string)
	for _, ref := range refs {
		if ref == nil || ref.Display != "" {
			continue
		}
		uid, err := strconv.ParseInt(ref.ID, 10, 64)
		if err != nil {
			continue
		}
		name, ok := names[uid]
		if !ok {
			user, err := s.client.User(ctx, uid)
			if err != nil {
				s.logger.Warn("looking up user", "uid", uid, "err", err)
			} else {
				name = user.Display
			}
			names[uid] = name
		}
		ref.Display = name
	}
}

func refText(ref *tracker.Ref, fallback string) string {
	switch {
	case ref == nil:
		return fallback
	case ref.Display != "":
		return ref.Display
	case ref.Key != "":
		return ref.Key
	default:
		return fallback
	}
}

func countResolved(attachments tracker.AttachmentMap, text string) int {
	n := 0
	for _, u := range detail.ExtractImageURLs(text) {
		if _, ok := attachments[u]; ok {
			n++
		}
	}
	return n
}
