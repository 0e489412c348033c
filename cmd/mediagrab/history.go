package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/mediagrab/internal/app"
	"github.com/five82/mediagrab/internal/history"
	"github.com/five82/mediagrab/internal/model"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		search string
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkChoice("status", status, []string{"all", model.HistoryCompleted, model.HistoryFailed}); err != nil {
				return err
			}
			return withSession(cmd, flags, func(_ context.Context, s *app.Session) error {
				st := s.History.Snapshot()
				if st.Error != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s (showing local copy)\n", st.Error)
				}
				items := history.Filter(st.Items, search, status)
				printHistory(cmd.OutOrStdout(), items, st.Stats, limit, time.Now())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show titles or URLs containing this text")
	cmd.Flags().StringVar(&status, "status", "", "Only show completed or failed downloads")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to print (0 for all)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "remove ID",
			Short: "Delete one history record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, flags, func(ctx context.Context, s *app.Session) error {
					if err := s.History.RemoveItem(ctx, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every history record",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSession(cmd, flags, func(ctx context.Context, s *app.Session) error {
					if err := s.History.ClearHistory(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
					return nil
				})
			},
		},
	)
	return cmd
}

func printHistory(w io.Writer, items []model.HistoryItem, stats model.DownloadStats, limit int, now time.Time) {
	fmt.Fprintf(w, "%d downloads, %d succeeded, %d failed, %s downloaded\n",
		stats.TotalDownloads, stats.SuccessfulDownloads, stats.FailedDownloads,
		humanize.IBytes(stats.TotalBytesDownloaded))
	if len(items) == 0 {
		fmt.Fprintln(w, "No downloads match.")
		return
	}

	shown := items
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	rows := make([][]string, 0, len(shown))
	for _, it := range shown {
		size := "-"
		if it.FileSize != nil {
			size = humanize.IBytes(*it.FileSize)
		}
		rows = append(rows, []string{
			it.ID,
			humanize.RelTime(time.Unix(it.DownloadedAt, 0), now, "ago", "from now"),
			it.Status,
			it.Format,
			size,
			clip(it.Title, 50),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"ID", "WHEN", "STATUS", "FORMAT", "SIZE", "TITLE"}, rows))
	if len(shown) < len(items) {
		fmt.Fprintf(w, "%d more not shown, use --limit 0 to list all\n", len(items)-len(shown))
	}
}
