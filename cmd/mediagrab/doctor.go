package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/mediagrab/internal/app"
	"github.com/five82/mediagrab/internal/toolchain"
)

func newDoctorCmd(flags *globalFlags) *cobra.Command {
	var (
		update      bool
		debug       bool
		backendLogs int
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the backend's yt-dlp and ffmpeg installation",
		Long: `Check that the backend can run yt-dlp, ffmpeg and ffprobe and whether a
newer yt-dlp is available. With --update the update is installed; with
--debug the backend's diagnostic report is printed for bug reports.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, flags, func(ctx context.Context, s *app.Session) error {
				return runDoctor(ctx, cmd, s.Toolchain, doctorOptions{update: update, debug: debug, backendLogs: backendLogs})
			})
		},
	}
	cmd.Flags().BoolVar(&update, "update", false, "Install a newer yt-dlp if one is available")
	cmd.Flags().BoolVar(&debug, "debug", false, "Print the backend's diagnostic report")
	cmd.Flags().IntVar(&backendLogs, "backend-logs", 0, "Print this many lines of the backend's own log")
	return cmd
}

type doctorOptions struct {
	update      bool
	debug       bool
	backendLogs int
}

func runDoctor(ctx context.Context, cmd *cobra.Command, tools *toolchain.Store, opts doctorOptions) error {
	out := cmd.OutOrStdout()

	check, err := tools.CheckExecutables(ctx)
	if err != nil {
		return err
	}
	version := check.YtdlpVersion
	if version == "" && check.YtdlpAvailable {
		if v, err := tools.Version(ctx); err == nil {
			version = v
		}
	}
	status := func(ok bool) string {
		if ok {
			return "found"
		}
		return "missing"
	}
	fmt.Fprintln(out, renderTable([]string{"TOOL", "STATUS", "VERSION"}, [][]string{
		{"yt-dlp", status(check.YtdlpAvailable), version},
		{"ffmpeg", status(check.FfmpegAvailable), check.FfmpegVersion},
		{"ffprobe", status(check.FfprobeAvailable), ""},
	}))
	if check.Error != "" {
		fmt.Fprintln(out, check.Error)
	}

	if check.YtdlpAvailable {
		upd, err := tools.CheckForUpdate(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "update check: %v\n", err)
		case upd.UpdateAvailable && opts.update:
			res, err := tools.Update(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, res.Message)
		case upd.UpdateAvailable:
			fmt.Fprintf(out, "yt-dlp %s is available (installed %s); run with --update\n", upd.LatestVersion, upd.CurrentVersion)
		default:
			fmt.Fprintf(out, "yt-dlp %s is up to date\n", upd.CurrentVersion)
		}
	}

	if opts.debug {
		info, err := tools.DebugInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, toolchain.Report(info))
	}
	if opts.backendLogs > 0 {
		logs, err := tools.RecentLogs(ctx, opts.backendLogs)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.TrimRight(logs, "\n"))
	}

	if missing := check.Missing(); len(missing) > 0 {
		return fmt.Errorf("missing tools: %s", strings.Join(missing, ", "))
	}
	return nil
}
