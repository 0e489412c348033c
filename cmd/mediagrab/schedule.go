package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/mediagrab/internal/app"
	"github.com/five82/mediagrab/internal/model"
)

func newScheduleCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage downloads deferred to a later time",
	}
	cmd.AddCommand(
		newScheduleAddCmd(flags),
		&cobra.Command{
			Use:   "list",
			Short: "List scheduled downloads",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSession(cmd, flags, func(_ context.Context, s *app.Session) error {
					printSchedule(cmd.OutOrStdout(), s.Preferences.Get().ScheduledDownloads, time.Now())
					return nil
				})
			},
		},
		scheduleByID(flags, "remove", "Delete a scheduled download", func(s *app.Session, id string) (string, error) {
			s.Preferences.RemoveScheduledDownload(id)
			return "removed", nil
		}),
		scheduleByID(flags, "toggle", "Enable or disable a scheduled download", func(s *app.Session, id string) (string, error) {
			s.Preferences.ToggleScheduledDownload(id)
			for _, sd := range s.Preferences.Get().ScheduledDownloads {
				if sd.ID == id && sd.Enabled {
					return "enabled", nil
				}
			}
			return "disabled", nil
		}),
		&cobra.Command{
			Use:   "run",
			Short: "Queue every scheduled download that is due now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSession(cmd, flags, func(ctx context.Context, s *app.Session) error {
					n := s.Scheduler.CheckNow(ctx)
					fmt.Fprintf(cmd.OutOrStdout(), "%d scheduled downloads queued\n", n)
					return nil
				})
			},
		},
	)
	return cmd
}

func newScheduleAddCmd(flags *globalFlags) *cobra.Command {
	form := &formFlags{}
	var at string
	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Schedule a download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := model.ValidateURL(args[0]); err != nil {
				return err
			}
			if err := form.validate(); err != nil {
				return err
			}
			when, err := parseWhen(at, time.Now())
			if err != nil {
				return err
			}
			return withSession(cmd, flags, func(_ context.Context, s *app.Session) error {
				cfg := s.Downloads.ResolveConfig(form.form(args[0]))
				sd := s.Preferences.AddScheduledDownload(cfg, when)
				fmt.Fprintf(cmd.OutOrStdout(), "scheduled %s %s at %s\n", shortID(sd.ID), cfg.URL, when.Local().Format("2006-01-02 15:04"))
				return nil
			})
		},
	}
	form.bind(cmd)
	cmd.Flags().StringVar(&at, "at", "", "When to start: 2h, 21:30, 2006-01-02 15:04 or RFC 3339")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func scheduleByID(flags *globalFlags, use, short string, op func(s *app.Session, id string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(_ context.Context, s *app.Session) error {
				id, err := resolveScheduledID(s.Preferences.Get().ScheduledDownloads, args[0])
				if err != nil {
					return err
				}
				note, err := op(s, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", note, shortID(id))
				return nil
			})
		},
	}
}

// resolveScheduledID finds the download whose id equals or uniquely starts
// with prefix.
func resolveScheduledID(list []model.ScheduledDownload, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("scheduled download id required")
	}
	var matches []string
	for _, sd := range list {
		if sd.ID == prefix {
			return sd.ID, nil
		}
		if strings.HasPrefix(sd.ID, prefix) {
			matches = append(matches, sd.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no scheduled download matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d scheduled downloads", prefix, len(matches))
	}
}

func printSchedule(w io.Writer, list []model.ScheduledDownload, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, "Nothing scheduled.")
		return
	}
	rows := make([][]string, 0, len(list))
	for _, sd := range list {
		at := time.UnixMilli(sd.ScheduledTime)
		state := "on"
		if !sd.Enabled {
			state = "off"
		}
		rows = append(rows, []string{
			shortID(sd.ID),
			state,
			at.Local().Format("2006-01-02 15:04"),
			humanize.RelTime(at, now, "ago", "from now"),
			sd.Config.Format,
			clip(sd.Config.URL, 60),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"ID", "STATE", "AT", "WHEN", "FORMAT", "URL"}, rows))
}
