package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/five82/mediagrab/internal/app"
	"github.com/five82/mediagrab/internal/model"
	"github.com/five82/mediagrab/internal/queue"
)

func newQueueCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show and manage the download queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, flags, func(_ context.Context, s *app.Session) error {
				printQueue(cmd.OutOrStdout(), s.Queue.Snapshot())
				return nil
			})
		},
	}

	byID := func(use, short, note string, op func(ctx context.Context, q *queue.Store, id int64) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseQueueID(args[0])
				if err != nil {
					return err
				}
				return withSession(cmd, flags, func(ctx context.Context, s *app.Session) error {
					if _, ok := s.Queue.Item(id); !ok {
						return fmt.Errorf("queue item #%d not found", id)
					}
					if err := op(ctx, s.Queue, id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s #%d\n", note, id)
					return nil
				})
			},
		}
	}
	simple := func(use, short, note string, op func(q *queue.Store) func(context.Context) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSession(cmd, flags, func(ctx context.Context, s *app.Session) error {
					if err := op(s.Queue)(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), note)
					return nil
				})
			},
		}
	}

	cmd.AddCommand(
		byID("cancel", "Cancel a queued or running download", "cancelled",
			func(ctx context.Context, q *queue.Store, id int64) error { return q.CancelItem(ctx, id) }),
		byID("remove", "Remove an item from the queue", "removed",
			func(ctx context.Context, q *queue.Store, id int64) error { return q.RemoveItem(ctx, id) }),
		simple("clear", "Remove completed, failed and cancelled items", "finished items cleared",
			func(q *queue.Store) func(context.Context) error { return q.ClearCompleted }),
		simple("pause", "Pause the whole queue", "queue paused",
			func(q *queue.Store) func(context.Context) error { return q.PauseAll }),
		simple("resume", "Resume the whole queue", "queue resumed",
			func(q *queue.Store) func(context.Context) error { return q.ResumeAll }),
	)
	return cmd
}

func parseQueueID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid queue id %q", arg)
	}
	return id, nil
}

func printQueue(w io.Writer, st queue.State) {
	if len(st.Items) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return
	}
	rows := make([][]string, 0, len(st.Items))
	for _, it := range st.Items {
		rows = append(rows, []string{
			strconv.FormatInt(it.ID, 10),
			string(it.Status),
			fmt.Sprintf("%.1f%%", it.Progress),
			it.ETAString(),
			queueDetail(it),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"ID", "STATUS", "PROGRESS", "ETA", "TITLE"}, rows))
	c := st.Counts
	fmt.Fprintf(w, "%d items: %d pending, %d active, %d completed, %d failed\n",
		len(st.Items), c.Pending, c.Active, c.Completed, c.Failed)
}

func queueDetail(it model.QueueItem) string {
	title := clip(it.DisplayTitle(), 60)
	if it.Status == model.QueueFailed && it.Error != "" {
		title += " (" + clip(it.Error, 40) + ")"
	}
	return title
}
