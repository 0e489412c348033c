// Package history keeps the client's copy of finished download attempts.
package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/five82/mediagrab/internal/backup"
	"github.com/five82/mediagrab/internal/bridge"
	"github.com/five82/mediagrab/internal/model"
	"github.com/five82/mediagrab/internal/state"
)

// BackupLimit is how many of the most recent items are kept locally.
const BackupLimit = 100

// State is a point-in-time copy of the store. Items are newest first.
type State struct {
	Items     []model.HistoryItem
	Stats     model.DownloadStats
	IsLoading bool
	Loaded    bool
	Error     string
}

func cloneState(s State) State {
	s.Items = append([]model.HistoryItem(nil), s.Items...)
	return s
}

// Store owns the history list and the backend's aggregate stats.
type Store struct {
	bridge bridge.Bridge
	backup backup.Store
	log    zerolog.Logger
	now    func() time.Time

	cell *state.Cell[State]

	initMu      sync.Mutex
	initialized bool

	persistMu sync.Mutex
}

// Option customises a Store.
type Option func(*Store)

// WithBackup mirrors the most recent items to b.
func WithBackup(b backup.Store) Option {
	return func(s *Store) { s.backup = backup.Or(b) }
}

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock replaces time.Now for record ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store.
func New(b bridge.Bridge, opts ...Option) *Store {
	s := &Store{
		bridge: b,
		backup: backup.Nop{},
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cell = state.NewCell(State{}, state.Options[State]{Clone: cloneState})
	s.cell.OnChange(s.persist)
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	return s.cell.Get()
}

// OnChange registers fn to receive every new state.
func (s *Store) OnChange(fn func(State)) {
	s.cell.OnChange(fn)
}

// Initialize loads history once. Later calls are no-ops.
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.initialized {
		return nil
	}
	s.initialized = true
	s.Load(ctx)
	return nil
}

// Load fetches items and stats. When the backend cannot be reached the local
// backup is shown instead and the error is recorded in State.Error.
func (s *Store) Load(ctx context.Context) {
	s.cell.Update(func(st State) State {
		st.IsLoading = true
		return st
	})

	items, err := bridge.Call[[]model.HistoryItem](ctx, s.bridge, bridge.CmdHistoryGetAll, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("load history failed")
		var cached []model.HistoryItem
		if ok, berr := s.backup.Load(backup.KeyHistory, &cached); berr != nil {
			s.log.Warn().Err(berr).Msg("history backup unreadable")
		} else if ok {
			s.log.Debug().Int("items", len(cached)).Msg("showing history backup")
		}
		s.cell.Update(func(st State) State {
			if len(st.Items) == 0 && len(cached) > 0 {
				st.Items = cached
			}
			st.IsLoading = false
			st.Error = fmt.Sprintf("load history: %v", err)
			return st
		})
		return
	}

	stats, statsErr := bridge.Call[model.DownloadStats](ctx, s.bridge, bridge.CmdHistoryGetStats, nil)
	if statsErr != nil {
		s.log.Warn().Err(statsErr).Msg("load history stats failed")
	}

	s.cell.Update(func(st State) State {
		st.Items = items
		if statsErr == nil {
			st.Stats = stats
		}
		st.IsLoading = false
		st.Loaded = true
		st.Error = ""
		return st
	})
}

// AddToHistory records a finished attempt. The id and DownloadedAt of entry
// are assigned here. The record is visible at once; if the backend rejects
// it, exactly that record is removed and the error returned.
func (s *Store) AddToHistory(ctx context.Context, entry model.HistoryItem) (model.HistoryItem, error) {
	now := s.now()
	entry.ID = newID(now)
	entry.DownloadedAt = now.Unix()
	if entry.Status == "" {
		entry.Status = model.HistoryCompleted
	}

	err := state.Perform(ctx, s.cell,
		func(st State) State {
			st.Items = append([]model.HistoryItem{entry}, st.Items...)
			return st
		},
		func(ctx context.Context) error {
			return s.bridge.Invoke(ctx, bridge.CmdHistoryAdd, map[string]any{"item": entry}, nil)
		},
		func(_, cur State) State {
			cur.Items = removeID(cur.Items, entry.ID)
			return cur
		},
	)
	if err != nil {
		s.log.Warn().Err(err).Str("url", entry.URL).Msg("history add failed")
		return model.HistoryItem{}, err
	}

	s.reloadStats(ctx)
	return entry, nil
}

func (s *Store) reloadStats(ctx context.Context) {
	stats, err := bridge.Call[model.DownloadStats](ctx, s.bridge, bridge.CmdHistoryGetStats, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("reload history stats failed")
		return
	}
	s.cell.Update(func(st State) State {
		st.Stats = stats
		return st
	})
}

// RemoveItem deletes one record.
func (s *Store) RemoveItem(ctx context.Context, id string) error {
	err := state.Perform(ctx, s.cell,
		func(st State) State {
			st.Items = removeID(st.Items, id)
			return st
		},
		func(ctx context.Context) error {
			return s.bridge.Invoke(ctx, bridge.CmdHistoryRemove, map[string]string{"id": id}, nil)
		},
		state.RestoreSnapshot[State](),
	)
	if err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("history remove failed")
	}
	return err
}

// ClearHistory deletes every record.
func (s *Store) ClearHistory(ctx context.Context) error {
	err := state.Perform(ctx, s.cell,
		func(st State) State {
			st.Items = nil
			return st
		},
		func(ctx context.Context) error {
			return s.bridge.Invoke(ctx, bridge.CmdHistoryClear, nil, nil)
		},
		state.RestoreSnapshot[State](),
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("history clear failed")
	}
	return err
}

func (s *Store) persist(st State) {
	items := st.Items
	if len(items) > BackupLimit {
		items = items[:BackupLimit]
	}
	if items == nil {
		items = []model.HistoryItem{}
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.backup.Save(backup.KeyHistory, items); err != nil {
		s.log.Warn().Err(err).Msg("history backup failed")
	}
}

// newID returns "<unix-ms>-<random>".
func newID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s", now.UnixMilli(), random[:9])
}

func removeID(items []model.HistoryItem, id string) []model.HistoryItem {
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// Filter returns the items whose title or URL contains query (case
// insensitive) and whose status matches. An empty query or status, or the
// status "all", matches everything.
func Filter(items []model.HistoryItem, query, status string) []model.HistoryItem {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.HistoryItem, 0, len(items))
	for _, it := range items {
		if status != "" && status != "all" && it.Status != status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(it.Title), q) && !strings.Contains(strings.ToLower(it.URL), q) {
			continue
		}
		out = append(out, it)
	}
	return out
}
