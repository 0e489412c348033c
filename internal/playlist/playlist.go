// Package playlist turns a playlist URL into one download per entry.
//
// Detection uses the backend's check_is_playlist unless the URL already has a
// known playlist shape. A failed check is treated as "not a playlist" so a
// single URL is still queued when the backend cannot tell.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/mediagrab/internal/bridge"
	"github.com/five82/mediagrab/internal/model"
)

// ErrEmpty is returned when a playlist has no downloadable entries.
var ErrEmpty = errors.New("playlist has no downloadable entries")

// Queue accepts expanded downloads.
type Queue interface {
	AddToQueue(ctx context.Context, cfg model.DownloadConfig) (model.QueueItem, error)
}

// Expander resolves playlist URLs through the backend.
type Expander struct {
	bridge bridge.Invoker
	log    zerolog.Logger
}

// Option customises an Expander.
type Option func(*Expander)

// WithLogger sets the expander logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Expander) { e.log = log }
}

// New returns an Expander talking to inv.
func New(inv bridge.Invoker, opts ...Option) *Expander {
	e := &Expander{bridge: inv, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsPlaylist reports whether url names a playlist.
func (e *Expander) IsPlaylist(ctx context.Context, url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	if model.LooksLikePlaylist(url) {
		return true
	}
	ok, err := bridge.Call[bool](ctx, e.bridge, bridge.CmdCheckIsPlaylist, map[string]string{"url": url})
	if err != nil {
		e.log.Debug().Err(err).Str("url", url).Msg("playlist check failed, treating as single video")
		return false
	}
	return ok
}

// Fetch returns the playlist's metadata and entries.
func (e *Expander) Fetch(ctx context.Context, url string) (model.PlaylistInfo, error) {
	info, err := bridge.Call[model.PlaylistInfo](ctx, e.bridge, bridge.CmdFetchPlaylistInfo, map[string]string{"url": strings.TrimSpace(url)})
	if err != nil {
		return model.PlaylistInfo{}, fmt.Errorf("fetch playlist: %w", err)
	}
	return info, nil
}

// Expand returns the downloads cfg stands for: cfg itself for a single
// video, or one copy per entry for a playlist. The playlist is returned
// alongside when cfg.URL named one.
func (e *Expander) Expand(ctx context.Context, cfg model.DownloadConfig) ([]model.DownloadConfig, *model.PlaylistInfo, error) {
	if !e.IsPlaylist(ctx, cfg.URL) {
		return []model.DownloadConfig{cfg}, nil, nil
	}
	info, err := e.Fetch(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	configs := info.Configs(cfg)
	if len(configs) == 0 {
		return nil, &info, fmt.Errorf("%w: %s", ErrEmpty, cfg.URL)
	}
	e.log.Info().Str("playlist", info.Title).Int("entries", len(configs)).Msg("expanded playlist")
	return configs, &info, nil
}

// Result summarises an Enqueue call.
type Result struct {
	Playlist *model.PlaylistInfo
	Added    []model.QueueItem
	Failed   int
}

// Summary describes the result for a status line.
func (r Result) Summary() string {
	if r.Playlist == nil {
		if len(r.Added) == 1 {
			return "Added to queue"
		}
		return fmt.Sprintf("Added %d items to queue", len(r.Added))
	}
	return fmt.Sprintf("Queued %d of %d from %q", len(r.Added), len(r.Added)+r.Failed, r.Playlist.Title)
}

// Enqueue expands cfg and adds every resulting download to q. Entries that
// fail are counted and their errors joined; the rest are still queued.
func (e *Expander) Enqueue(ctx context.Context, q Queue, cfg model.DownloadConfig) (Result, error) {
	configs, info, err := e.Expand(ctx, cfg)
	res := Result{Playlist: info}
	if err != nil {
		return res, err
	}
	var errs []error
	for _, c := range configs {
		item, err := q.AddToQueue(ctx, c)
		if err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", c.URL, err))
			continue
		}
		res.Added = append(res.Added, item)
	}
	return res, errors.Join(errs...)
}
