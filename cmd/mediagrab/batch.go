package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/five82/mediagrab/internal/app"
	"github.com/five82/mediagrab/internal/lifecycle"
	"github.com/five82/mediagrab/internal/model"
)

// batchEntry is one download of a batch file. Entries with At are
// scheduled instead of queued.
type batchEntry struct {
	URL          string `yaml:"url"`
	Format       string `yaml:"format,omitempty"`
	Quality      string `yaml:"quality,omitempty"`
	OutputFolder string `yaml:"output_folder,omitempty"`
	At           string `yaml:"at,omitempty"`
}

func (e batchEntry) form() lifecycle.Form {
	return lifecycle.Form{
		URL:          e.URL,
		Format:       e.Format,
		Quality:      e.Quality,
		OutputFolder: e.OutputFolder,
	}
}

// readBatchFile loads and validates a YAML list of batch entries.
func readBatchFile(path string) ([]batchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var entries []batchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("batch file has no entries")
	}
	for i, e := range entries {
		if err := model.ValidateURL(e.URL); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		if err := checkChoice("format", e.Format, formats); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		if err := checkChoice("quality", e.Quality, qualities); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
	}
	return entries, nil
}

// batchJob is a validated entry with its schedule time resolved.
type batchJob struct {
	entry batchEntry
	at    time.Time
}

func planBatch(entries []batchEntry, now time.Time) ([]batchJob, error) {
	jobs := make([]batchJob, 0, len(entries))
	for i, e := range entries {
		job := batchJob{entry: e}
		if e.At != "" {
			at, err := parseWhen(e.At, now)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i+1, err)
			}
			job.at = at
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func newBatchCmd(flags *globalFlags) *cobra.Command {
	var noPlaylist bool
	cmd := &cobra.Command{
		Use:   "batch FILE.yaml",
		Short: "Queue or schedule every download listed in a YAML file",
		Long: `Queue or schedule every download listed in a YAML file:

  - url: https://example.com/watch?v=abc
  - url: https://example.com/podcast/42
    format: audio-mp3
    output_folder: ~/Podcasts
  - url: https://example.com/live
    at: "2025-10-08 21:00"

Playlist URLs that are queued are expanded into one item per entry.
Scheduled entries are stored as given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readBatchFile(args[0])
			if err != nil {
				return err
			}
			jobs, err := planBatch(entries, time.Now())
			if err != nil {
				return err
			}
			return withSession(cmd, flags, func(ctx context.Context, s *app.Session) error {
				return runBatch(ctx, cmd, s, jobs, noPlaylist)
			})
		},
	}
	cmd.Flags().BoolVar(&noPlaylist, "no-playlist", false, "Queue playlist URLs as a single item")
	return cmd
}

func runBatch(ctx context.Context, cmd *cobra.Command, s *app.Session, jobs []batchJob, noPlaylist bool) error {
	out := cmd.OutOrStdout()
	queued, scheduled, failed := 0, 0, 0
	for _, job := range jobs {
		cfg := s.Downloads.ResolveConfig(job.entry.form())
		if !job.at.IsZero() {
			sd := s.Preferences.AddScheduledDownload(cfg, job.at)
			fmt.Fprintf(out, "scheduled %s %s at %s\n", shortID(sd.ID), cfg.URL, job.at.Local().Format("2006-01-02 15:04"))
			scheduled++
			continue
		}
		res, err := enqueue(ctx, cmd, s, cfg, noPlaylist)
		queued += len(res.Added)
		failed += res.Failed
		if err != nil && res.Failed == 0 {
			failed++
		}
	}
	fmt.Fprintf(out, "%d queued, %d scheduled, %d failed\n", queued, scheduled, failed)
	if failed > 0 {
		return fmt.Errorf("%d batch downloads could not be queued", failed)
	}
	return nil
}
