package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/mediagrab/internal/app"
	"github.com/five82/mediagrab/internal/lifecycle"
	"github.com/five82/mediagrab/internal/model"
)

var version = "dev"

var (
	formats   = []string{model.FormatVideoMP4, model.FormatAudioMP3, model.FormatAudioBest}
	qualities = []string{model.QualityBest, model.Quality1080p, model.Quality720p, model.Quality480p}
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	backend    string
	logLevel   string
}

func (f *globalFlags) options() app.Options {
	return app.Options{
		ConfigPath: f.configPath,
		BackendURL: strings.TrimSpace(f.backend),
		LogLevel:   strings.TrimSpace(f.logLevel),
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:     "mediagrab",
		Short:   "Queue, schedule and track media downloads",
		Version: version,
		Long: `mediagrab talks to a running MediaGrab backend. Without a subcommand it
opens the terminal UI; the subcommands run one operation and exit.

Examples:
  mediagrab
  mediagrab add https://example.com/watch?v=abc --format audio-mp3
  mediagrab batch downloads.yaml
  mediagrab schedule add https://example.com/live --at "2025-10-08 21:00"
  mediagrab logs --level warn --component queue
  mediagrab doctor --update`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), flags.options())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file path (default ~/.config/mediagrab/config.toml)")
	pf.StringVar(&flags.backend, "backend", "", "Backend address, overrides backend_url from the config")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newAddCmd(flags),
		newBatchCmd(flags),
		newQueueCmd(flags),
		newHistoryCmd(flags),
		newScheduleCmd(flags),
		newLogsCmd(flags),
		newDoctorCmd(flags),
	)
	return root
}

// withSession opens a session, loads every store without starting the event
// stream, and runs fn. Pending preference edits are flushed on the way out.
func withSession(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, s *app.Session) error) (err error) {
	s, err := app.Open(flags.options())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctx := cmd.Context()
	if err := s.Start(ctx, app.StartOptions{}); err != nil {
		return err
	}
	return fn(ctx, s)
}

// formFlags select the format, quality and folder of a download. Empty
// values fall back to preferences.
type formFlags struct {
	format  string
	quality string
	output  string
}

func (f *formFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: "+strings.Join(formats, ", "))
	cmd.Flags().StringVarP(&f.quality, "quality", "q", "", "Quality: "+strings.Join(qualities, ", "))
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output folder")
}

func (f *formFlags) validate() error {
	if err := checkChoice("format", f.format, formats); err != nil {
		return err
	}
	return checkChoice("quality", f.quality, qualities)
}

func (f *formFlags) form(url string) lifecycle.Form {
	return lifecycle.Form{
		URL:          url,
		Format:       f.format,
		Quality:      f.quality,
		OutputFolder: f.output,
	}
}

// checkChoice accepts an empty value or one of choices.
func checkChoice(name, value string, choices []string) error {
	if value == "" || slices.Contains(choices, value) {
		return nil
	}
	return fmt.Errorf("unknown %s %q (want one of %s)", name, value, strings.Join(choices, ", "))
}
