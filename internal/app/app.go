package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/mediagrab/internal/backup"
	"github.com/five82/mediagrab/internal/bridge"
	"github.com/five82/mediagrab/internal/config"
	"github.com/five82/mediagrab/internal/history"
	"github.com/five82/mediagrab/internal/lifecycle"
	"github.com/five82/mediagrab/internal/logging"
	"github.com/five82/mediagrab/internal/playlist"
	"github.com/five82/mediagrab/internal/preferences"
	"github.com/five82/mediagrab/internal/queue"
	"github.com/five82/mediagrab/internal/schedule"
	"github.com/five82/mediagrab/internal/toolchain"
	"github.com/five82/mediagrab/internal/ui"
	"github.com/five82/mediagrab/internal/uistate"
)

// Options configure a MediaGrab session.
type Options struct {
	ConfigPath string
	// BackendURL overrides the configured backend when non-empty.
	BackendURL string
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
	// Console receives human-readable logs in addition to the log file.
	Console io.Writer
}

// StartOptions selects the background work a session runs.
type StartOptions struct {
	// Events starts the backend event stream.
	Events bool
	// Scheduler promotes due scheduled downloads into the queue.
	Scheduler bool
	// Checks looks for missing tools and, if the preference allows it, a
	// yt-dlp update. It runs in the background.
	Checks bool
}

// EventSource is a bridge that must be told to start streaming events.
type EventSource interface {
	StartEvents(ctx context.Context)
	Close() error
}

// Session owns every store and the resources they share.
type Session struct {
	Config      config.Config
	Log         zerolog.Logger
	Bridge      bridge.Bridge
	Queue       *queue.Store
	Preferences *preferences.Store
	History     *history.Store
	Downloads   *lifecycle.Coordinator
	Scheduler   *schedule.Scheduler
	Toolchain   *toolchain.Store
	Playlists   *playlist.Expander

	events  EventSource
	closers []io.Closer
	wg      sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// Open loads configuration, sets up logging and the local backup, and builds
// the stores against the HTTP bridge. Nothing talks to the backend until
// Start is called.
func Open(opts Options) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.BackendURL != "" {
		cfg.BackendURL = opts.BackendURL
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	logger, logCloser, err := logging.Setup(logging.Options{
		Path:    cfg.LogPath(),
		Level:   cfg.LogLevel,
		Console: opts.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	store, err := backup.Open(cfg.DataDir)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("open backup: %w", err)
	}

	client, err := bridge.NewClient(cfg.BackendURL, bridge.WithLogger(logging.Component(logger, "bridge")))
	if err != nil {
		_ = store.Close()
		_ = logCloser.Close()
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	s := NewSession(cfg, logger, client, store)
	s.events = client
	s.closers = append(s.closers, store, logCloser)
	logger.Info().Str("backend", cfg.BackendURL).Str("data_dir", cfg.DataDir).Msg("session opened")
	return s, nil
}

// NewSession wires the stores over an existing bridge and backup store.
// The caller keeps ownership of b and store.
func NewSession(cfg config.Config, logger zerolog.Logger, b bridge.Bridge, store backup.Store) *Session {
	b = bridge.WithTimeout(b, cfg.CommandTimeout)

	prefs := preferences.New(b,
		preferences.WithBackup(store),
		preferences.WithLogger(logging.Component(logger, "preferences")),
		preferences.WithSaveDelay(cfg.SaveDebounce, nil),
	)
	hist := history.New(b,
		history.WithBackup(store),
		history.WithLogger(logging.Component(logger, "history")),
	)
	q := queue.New(b,
		queue.WithBackup(store),
		queue.WithLogger(logging.Component(logger, "queue")),
	)
	downloads := lifecycle.New(b, hist, prefs,
		lifecycle.WithLogger(logging.Component(logger, "lifecycle")),
	)
	sched := schedule.New(q, prefs,
		schedule.WithLogger(logging.Component(logger, "schedule")),
		schedule.WithInterval(cfg.ScheduleInterval),
	)
	tools := toolchain.New(b, toolchain.WithLogger(logging.Component(logger, "toolchain")))
	playlists := playlist.New(b, playlist.WithLogger(logging.Component(logger, "playlist")))

	return &Session{
		Config:      cfg,
		Log:         logger,
		Bridge:      b,
		Queue:       q,
		Preferences: prefs,
		History:     hist,
		Downloads:   downloads,
		Scheduler:   sched,
		Toolchain:   tools,
		Playlists:   playlists,
	}
}

// Start loads every store from the backend and subscribes to pushed events.
// Load failures are logged and leave the stores on their local backup.
func (s *Session) Start(ctx context.Context, opts StartOptions) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session closed")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.Preferences.Initialize(ctx); err != nil {
		return fmt.Errorf("init preferences: %w", err)
	}
	if err := s.History.Initialize(ctx); err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	if err := s.Queue.Initialize(ctx); err != nil {
		return fmt.Errorf("init queue: %w", err)
	}
	if err := s.Downloads.Start(); err != nil {
		return fmt.Errorf("init downloads: %w", err)
	}

	if opts.Events && s.events != nil {
		s.events.StartEvents(runCtx)
	}
	if opts.Scheduler {
		s.Scheduler.Start(runCtx)
	}
	if opts.Checks {
		checkUpdates := s.Preferences.Get().CheckUpdatesOnStartup
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Toolchain.Startup(runCtx, checkUpdates)
		}()
	}
	s.Log.Debug().Bool("events", opts.Events).Bool("scheduler", opts.Scheduler).Bool("checks", opts.Checks).Msg("session started")
	return nil
}

// Close flushes pending preference changes, unsubscribes every store and
// releases the event stream, backup database and log file. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	var errs []error
	if err := s.Preferences.Close(); err != nil {
		errs = append(errs, fmt.Errorf("flush preferences: %w", err))
	}
	_ = s.Downloads.Close()
	_ = s.Queue.Close()
	if s.events != nil {
		_ = s.events.Close()
	}
	s.Log.Info().Msg("session closed")
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run boots the terminal UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	s, err := Open(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Start(ctx, StartOptions{Events: true, Scheduler: true, Checks: true}); err != nil {
		return err
	}

	return ui.Run(ui.Options{
		Context:     ctx,
		Queue:       s.Queue,
		Preferences: s.Preferences,
		History:     s.History,
		Downloads:   s.Downloads,
		Toolchain:   s.Toolchain,
		Playlists:   s.Playlists,
		ThemeName:   s.Config.Theme,
		LogPath:     s.Config.LogPath(),
		StatePath:   uistate.Path(s.Config.DataDir),
	})
}
