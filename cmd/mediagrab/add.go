package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/mediagrab/internal/app"
	"github.com/five82/mediagrab/internal/model"
	"github.com/five82/mediagrab/internal/playlist"
)

func newAddCmd(flags *globalFlags) *cobra.Command {
	form := &formFlags{}
	var noPlaylist bool
	cmd := &cobra.Command{
		Use:   "add URL...",
		Short: "Add URLs to the download queue",
		Long: `Add URLs to the download queue. A playlist URL is expanded and every
entry becomes its own queue item; pass --no-playlist to queue the URL as is.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := form.validate(); err != nil {
				return err
			}
			for _, raw := range args {
				if err := model.ValidateURL(raw); err != nil {
					return err
				}
			}
			return withSession(cmd, flags, func(ctx context.Context, s *app.Session) error {
				queued, failed := 0, 0
				for _, raw := range args {
					cfg := s.Downloads.ResolveConfig(form.form(raw))
					res, err := enqueue(ctx, cmd, s, cfg, noPlaylist)
					queued += len(res.Added)
					failed += res.Failed
					if err != nil && res.Failed == 0 {
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d downloads could not be queued", failed, queued+failed)
				}
				return nil
			})
		},
	}
	form.bind(cmd)
	cmd.Flags().BoolVar(&noPlaylist, "no-playlist", false, "Queue playlist URLs as a single item")
	return cmd
}

// enqueue queues cfg and prints one line per queued item. Unless single is
// set a playlist URL is expanded into its entries first. Errors are printed
// as well as returned.
func enqueue(ctx context.Context, cmd *cobra.Command, s *app.Session, cfg model.DownloadConfig, single bool) (playlist.Result, error) {
	var (
		res playlist.Result
		err error
	)
	if single {
		var item model.QueueItem
		item, err = s.Queue.AddToQueue(ctx, cfg)
		if err != nil {
			res.Failed = 1
		} else {
			res.Added = []model.QueueItem{item}
		}
	} else {
		res, err = s.Playlists.Enqueue(ctx, s.Queue, cfg)
	}

	out := cmd.OutOrStdout()
	if res.Playlist != nil {
		fmt.Fprintf(out, "playlist %q: %d entries\n", res.Playlist.Title, len(res.Added)+res.Failed)
	}
	for _, item := range res.Added {
		url := item.Config.URL
		if url == "" {
			url = cfg.URL
		}
		fmt.Fprintf(out, "queued #%d %s (%s, %s)\n", item.ID, url, cfg.Format, cfg.Quality)
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", cfg.URL, err)
	}
	return res, err
}
