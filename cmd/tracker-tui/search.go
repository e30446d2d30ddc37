package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jbeckham/tracker-tui/internal/tracker"
)

func createSearchCmd(v *viper.Viper) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "List issues matching a tracker query",
		Long: `Run a tracker query and print one issue per line.

Examples:
  tracker-tui search "Assignee: me() and Resolution: empty()"
  tracker-tui search "Queue: PROJ" --limit 200`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(v)
			if err != nil {
				return err
			}
			defer s.Close()

			issues, searchErr := collect(cmd.Context(), s.client.Search(args[0]), limit)
			if err := printIssues(cmd.Context(), cmd.OutOrStdout(), s, issues); err != nil {
				return err
			}
			if searchErr != nil {
				return searchErr
			}
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No issues found.")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many issues (0 for all)")
	return cmd
}

// collect pulls up to limit issues, or all of them when limit is not
// positive. Issues pulled before a failure are returned with the error.
func collect(ctx context.Context, cursor *tracker.Cursor, limit int) ([]tracker.IssueSummary, error) {
	if limit <= 0 {
		return cursor.All(ctx)
	}
	var issues []tracker.IssueSummary
	for len(issues) < limit {
		issue, ok, err := cursor.Next(ctx)
		if err != nil {
			return issues, err
		}
		if !ok {
			break
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// printIssues writes one line per issue. Search results without a summary
// get their title fetched from the issue itself.
func printIssues(ctx context.Context, w io.Writer, s *session, issues []tracker.IssueSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, issue := range issues {
		title, err := s.client.Issue(issue.Key).Title(ctx, issue.Title)
		if err != nil {
			s.logger.Warn("fetching issue title", "key", issue.Key, "err", err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", issue.Key, issue.StatusKey, issue.PriorityKey, title)
	}
	return tw.Flush()
}

func createWhoamiCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Check the session cookie and print the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(v)
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := s.client.Myself(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Display, user.Login)
			return nil
		},
	}
}
