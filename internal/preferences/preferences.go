// Package preferences holds the single global preferences record and
// persists it to the backend with a debounced save.
//
// Setters update memory and the local backup at once. The backend write
// happens after a quiet period; another setter inside the window restarts
// it, so a burst of edits produces one save_preferences carrying the final
// value. Close flushes a pending save.
package preferences

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/five82/mediagrab/internal/backup"
	"github.com/five82/mediagrab/internal/bridge"
	"github.com/five82/mediagrab/internal/debounce"
	"github.com/five82/mediagrab/internal/model"
	"github.com/five82/mediagrab/internal/state"
)

// DefaultSaveDelay is the quiet period before a save is sent.
const DefaultSaveDelay = 500 * time.Millisecond

// State is a point-in-time copy of the store.
type State struct {
	Preferences model.Preferences
	Loaded      bool
	// Error is the last load or save failure, empty when the last attempt
	// succeeded.
	Error string
}

func cloneState(s State) State {
	s.Preferences = s.Preferences.Clone()
	return s
}

// Store owns the preferences record.
type Store struct {
	bridge bridge.Bridge
	backup backup.Store
	log    zerolog.Logger

	delay time.Duration
	after debounce.AfterFunc

	cell  *state.Cell[State]
	saver *debounce.Debouncer
	edits atomic.Uint64

	initMu      sync.Mutex
	initialized bool
	closed      atomic.Bool

	saveMu sync.Mutex
}

// Option customises a Store.
type Option func(*Store)

// WithBackup mirrors every change to b.
func WithBackup(b backup.Store) Option {
	return func(s *Store) { s.backup = backup.Or(b) }
}

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithSaveDelay overrides the quiet period. after may be nil for the runtime
// timer.
func WithSaveDelay(d time.Duration, after debounce.AfterFunc) Option {
	return func(s *Store) {
		if d > 0 {
			s.delay = d
		}
		s.after = after
	}
}

// New returns a Store holding model.DefaultPreferences.
func New(b bridge.Bridge, opts ...Option) *Store {
	s := &Store{
		bridge: b,
		backup: backup.Nop{},
		log:    zerolog.Nop(),
		delay:  DefaultSaveDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.saver = debounce.New(s.delay, s.after)
	s.cell = state.NewCell(State{Preferences: model.DefaultPreferences()}, state.Options[State]{
		Clone: cloneState,
	})
	return s
}

// Get returns a copy of the current preferences.
func (s *Store) Get() model.Preferences {
	return s.cell.Get().Preferences
}

// Snapshot returns a copy of the full store state.
func (s *Store) Snapshot() State {
	return s.cell.Get()
}

// OnChange registers fn to receive every new state.
func (s *Store) OnChange(fn func(State)) {
	s.cell.OnChange(fn)
}

// Initialize loads the record once. The local backup, if any, is shown
// while the backend answers. A load failure keeps the current values and is
// recorded in State.Error; it does not block use of the store.
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.closed.Load() {
		return state.ErrClosed
	}
	if s.initialized {
		return nil
	}
	s.initialized = true

	var cached model.Preferences
	if ok, err := s.backup.Load(backup.KeyPreferences, &cached); err != nil {
		s.log.Warn().Err(err).Msg("preferences backup unreadable")
	} else if ok {
		s.cell.Update(func(st State) State {
			st.Preferences = normalize(cached)
			return st
		})
	}

	before := s.edits.Load()
	prefs, err := bridge.Call[model.Preferences](ctx, s.bridge, bridge.CmdLoadPreferences, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("load preferences failed, using local values")
		s.cell.Update(func(st State) State {
			st.Error = fmt.Sprintf("load preferences: %v", err)
			return st
		})
		return nil
	}

	// An edit made while the load was in flight wins over the loaded record.
	if s.edits.Load() != before {
		s.log.Debug().Msg("preferences edited during load, keeping local values")
		s.cell.Update(func(st State) State {
			st.Loaded = true
			return st
		})
		return nil
	}

	st := s.cell.Update(func(st State) State {
		st.Preferences = normalize(prefs)
		st.Loaded = true
		st.Error = ""
		return st
	})
	s.writeBackup(st.Preferences)
	return nil
}

func normalize(p model.Preferences) model.Preferences {
	if p.ScheduledDownloads == nil {
		p.ScheduledDownloads = []model.ScheduledDownload{}
	}
	return p
}

// Update applies fn to the record and schedules a save.
func (s *Store) Update(fn func(p *model.Preferences)) model.Preferences {
	st := s.cell.Update(func(st State) State {
		fn(&st.Preferences)
		return st
	})
	s.edits.Add(1)
	s.writeBackup(st.Preferences)
	if s.closed.Load() {
		s.log.Debug().Msg("preferences changed after close, not saving")
		return st.Preferences
	}
	s.saver.Trigger(func() {
		_ = s.save(context.Background())
	})
	return st.Preferences
}

// SetOutputFolder sets the default output folder.
func (s *Store) SetOutputFolder(path string) {
	s.Update(func(p *model.Preferences) { p.OutputFolder = path })
}

// SetFormat sets the default output format.
func (s *Store) SetFormat(format string) {
	s.Update(func(p *model.Preferences) { p.Format = format })
}

// SetQuality sets the default quality preset.
func (s *Store) SetQuality(quality string) {
	s.Update(func(p *model.Preferences) { p.Quality = quality })
}

func (s *Store) SetEmbedSubtitles(on bool) {
	s.Update(func(p *model.Preferences) { p.EmbedSubtitles = on })
}

// SetCookiesFromBrowser names the browser whose cookies the backend imports.
// Empty disables cookie import.
func (s *Store) SetCookiesFromBrowser(browser string) {
	s.Update(func(p *model.Preferences) { p.CookiesFromBrowser = browser })
}

func (s *Store) SetCookiesFilePath(path string) {
	s.Update(func(p *model.Preferences) { p.CookiesFilePath = path })
}

func (s *Store) SetCheckUpdatesOnStartup(on bool) {
	s.Update(func(p *model.Preferences) { p.CheckUpdatesOnStartup = on })
}

func (s *Store) SetProxyEnabled(on bool) {
	s.Update(func(p *model.Preferences) { p.ProxyEnabled = on })
}

func (s *Store) SetProxyURL(url string) {
	s.Update(func(p *model.Preferences) { p.ProxyURL = url })
}

// SetBandwidthLimit stores a rate such as "5M". Empty means unlimited.
func (s *Store) SetBandwidthLimit(limit string) {
	s.Update(func(p *model.Preferences) { p.BandwidthLimit = limit })
}

func (s *Store) SetFilenameTemplate(tmpl string) {
	s.Update(func(p *model.Preferences) { p.FilenameTemplate = tmpl })
}

// AddScheduledDownload stores cfg for promotion into the queue at at.
func (s *Store) AddScheduledDownload(cfg model.DownloadConfig, at time.Time) model.ScheduledDownload {
	sd := model.ScheduledDownload{
		ID:            uuid.NewString(),
		Config:        cfg,
		ScheduledTime: at.UnixMilli(),
		Enabled:       true,
	}
	s.Update(func(p *model.Preferences) {
		p.ScheduledDownloads = append(p.ScheduledDownloads, sd)
	})
	return sd
}

// RemoveScheduledDownload deletes the scheduled download with id. It reports
// whether anything was removed; nothing is saved otherwise.
func (s *Store) RemoveScheduledDownload(id string) bool {
	if !s.hasScheduled(id) {
		return false
	}
	s.Update(func(p *model.Preferences) {
		kept := p.ScheduledDownloads[:0]
		for _, sd := range p.ScheduledDownloads {
			if sd.ID != id {
				kept = append(kept, sd)
			}
		}
		p.ScheduledDownloads = kept
	})
	return true
}

// ToggleScheduledDownload flips Enabled on the scheduled download with id.
func (s *Store) ToggleScheduledDownload(id string) bool {
	if !s.hasScheduled(id) {
		return false
	}
	s.Update(func(p *model.Preferences) {
		for i := range p.ScheduledDownloads {
			if p.ScheduledDownloads[i].ID == id {
				p.ScheduledDownloads[i].Enabled = !p.ScheduledDownloads[i].Enabled
			}
		}
	})
	return true
}

func (s *Store) hasScheduled(id string) bool {
	for _, sd := range s.Get().ScheduledDownloads {
		if sd.ID == id {
			return true
		}
	}
	return false
}

// ResetToDefaults replaces the record with model.DefaultPreferences.
func (s *Store) ResetToDefaults() {
	s.Update(func(p *model.Preferences) { *p = model.DefaultPreferences() })
}

// SavePending reports whether a change is waiting for the quiet period
// before it is sent to the backend.
func (s *Store) SavePending() bool {
	return s.saver.Pending()
}

// Flush sends a pending save immediately and returns its error. It does
// nothing when no save is pending.
func (s *Store) Flush(ctx context.Context) error {
	if !s.saver.Stop() {
		return nil
	}
	return s.save(ctx)
}

// Close stops the save timer and flushes any pending change.
func (s *Store) Close() error {
	s.closed.Store(true)
	return s.Flush(context.Background())
}

func (s *Store) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	prefs := s.Get()
	err := s.bridge.Invoke(ctx, bridge.CmdSavePreferences, map[string]any{"preferences": prefs}, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("save preferences failed")
		s.cell.Update(func(st State) State {
			st.Error = fmt.Sprintf("save preferences: %v", err)
			return st
		})
		return err
	}
	s.log.Debug().Msg("preferences saved")
	s.cell.Update(func(st State) State {
		st.Error = ""
		return st
	})
	return nil
}

func (s *Store) writeBackup(p model.Preferences) {
	if err := s.backup.Save(backup.KeyPreferences, p); err != nil {
		s.log.Warn().Err(err).Msg("preferences backup failed")
	}
}
