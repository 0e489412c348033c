package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/five82/mediagrab/internal/backup"
	"github.com/five82/mediagrab/internal/bridge"
	"github.com/five82/mediagrab/internal/model"
	"github.com/five82/mediagrab/internal/state"
)

// Counts are the derived tallies shown next to the queue.
type Counts struct {
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// RecalculateCounts derives Counts from items. Active covers downloading and
// merging; cancelled and cancelling items are not counted.
func RecalculateCounts(items []model.QueueItem) Counts {
	var c Counts
	for _, it := range items {
		switch {
		case it.Status == model.QueuePending:
			c.Pending++
		case it.Status.IsActive():
			c.Active++
		case it.Status == model.QueueCompleted:
			c.Completed++
		case it.Status == model.QueueFailed:
			c.Failed++
		}
	}
	return c
}

// State is a point-in-time copy of the queue.
type State struct {
	Items     []model.QueueItem
	Counts    Counts
	IsLoading bool
}

func cloneState(s State) State {
	s.Items = append([]model.QueueItem(nil), s.Items...)
	return s
}

func deriveState(s State) State {
	s.Counts = RecalculateCounts(s.Items)
	return s
}

// backedUp returns the items worth restoring after a restart: pending items
// the backend has acknowledged.
func backedUp(items []model.QueueItem) []model.QueueItem {
	out := make([]model.QueueItem, 0, len(items))
	for _, it := range items {
		if it.Status == model.QueuePending && !it.IsTemporary() {
			out = append(out, it)
		}
	}
	return out
}

// Store is the queue state container. The zero value is not usable; build
// one with New.
type Store struct {
	bridge bridge.Bridge
	backup backup.Store
	log    zerolog.Logger

	cell   *state.Cell[State]
	tempID atomic.Int64

	initMu   sync.Mutex
	phase    state.Phase
	unlisten bridge.Unlisten

	// pending is the backed-up subset as of the latest write. seq advances
	// whenever it changes; both are set under the cell lock.
	pendingMu sync.Mutex
	pending   []model.QueueItem
	seq       uint64

	persistMu sync.Mutex
	written   uint64
}

// Option customises a Store.
type Option func(*Store)

// WithBackup persists pending items to b after every change.
func WithBackup(b backup.Store) Option {
	return func(s *Store) { s.backup = backup.Or(b) }
}

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New returns an uninitialised Store talking to b.
func New(b bridge.Bridge, opts ...Option) *Store {
	s := &Store{
		bridge: b,
		backup: backup.Nop{},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cell = state.NewCell(State{}, state.Options[State]{
		Clone:  cloneState,
		Derive: s.derive,
	})
	s.cell.OnChange(s.persist)
	return s
}

// derive recomputes counts and records the pending subset for persist.
func (s *Store) derive(st State) State {
	st = deriveState(st)
	pending := backedUp(st.Items)
	s.pendingMu.Lock()
	if s.pending == nil || !reflect.DeepEqual(pending, s.pending) {
		if s.pending != nil {
			s.seq++
		}
		s.pending = pending
	}
	s.pendingMu.Unlock()
	return st
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	return s.cell.Get()
}

// OnChange registers fn to receive every new state.
func (s *Store) OnChange(fn func(State)) {
	s.cell.OnChange(fn)
}

// Item looks up an item by id.
func (s *Store) Item(id int64) (model.QueueItem, bool) {
	st := s.cell.Get()
	if i := indexOf(st.Items, id); i >= 0 {
		return st.Items[i], true
	}
	return model.QueueItem{}, false
}

// Phase reports the subscription lifecycle.
func (s *Store) Phase() state.Phase {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	return s.phase
}

// Initialize restores the pending-items backup, reloads from the backend and
// subscribes to queue-update. Only the first successful call does any work.
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	switch s.phase {
	case state.PhaseSubscribed:
		return nil
	case state.PhaseClosed:
		return state.ErrClosed
	}

	s.restoreBackup()
	s.Reload(ctx)

	unlisten, err := s.bridge.Listen(bridge.EventQueueUpdate, s.handlePayload)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", bridge.EventQueueUpdate, err)
	}
	s.unlisten = unlisten
	s.phase = state.PhaseSubscribed
	s.log.Debug().Msg("queue subscribed")
	return nil
}

// Close unsubscribes from pushed events. Later Initialize calls fail with
// state.ErrClosed.
func (s *Store) Close() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.unlisten != nil {
		s.unlisten()
		s.unlisten = nil
	}
	s.phase = state.PhaseClosed
	return nil
}

func (s *Store) restoreBackup() {
	var pending []model.QueueItem
	ok, err := s.backup.Load(backup.KeyQueue, &pending)
	if err != nil {
		s.log.Warn().Err(err).Msg("queue backup unreadable")
		return
	}
	pending = backedUp(pending)
	if !ok || len(pending) == 0 {
		return
	}
	s.cell.Update(func(st State) State {
		if len(st.Items) == 0 {
			st.Items = pending
		}
		return st
	})
	s.log.Debug().Int("items", len(pending)).Msg("queue backup restored")
}

// Reload replaces the queue with the backend's list. Failures are logged and
// leave the current items in place.
func (s *Store) Reload(ctx context.Context) {
	s.cell.Update(func(st State) State {
		st.IsLoading = true
		return st
	})

	items, err := bridge.Call[[]model.QueueItem](ctx, s.bridge, bridge.CmdQueueGetAll, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("queue reload failed")
		s.cell.Update(func(st State) State {
			st.IsLoading = false
			return st
		})
		return
	}

	s.cell.Update(func(st State) State {
		st.Items = items
		st.IsLoading = false
		return st
	})
}

// AddToQueue shows a pending item at once, then swaps it for the backend's
// item. On failure the placeholder is removed and the error returned.
func (s *Store) AddToQueue(ctx context.Context, cfg model.DownloadConfig) (model.QueueItem, error) {
	temp := model.QueueItem{
		Config: cfg,
		Status: model.QueuePending,
	}

	var added model.QueueItem
	err := state.Perform(ctx, s.cell,
		func(st State) State {
			temp.ID = s.nextTempID(st.Items)
			st.Items = append(st.Items, temp)
			return st
		},
		func(ctx context.Context) error {
			return s.bridge.Invoke(ctx, bridge.CmdQueueAdd, map[string]any{"config": cfg}, &added)
		},
		func(_, cur State) State {
			cur.Items = removeID(cur.Items, temp.ID)
			return cur
		},
	)
	if err != nil {
		s.log.Warn().Err(err).Str("url", cfg.URL).Msg("queue add failed")
		return model.QueueItem{}, err
	}

	s.cell.Update(func(st State) State {
		st.Items = replaceTemporary(st.Items, temp.ID, added)
		return st
	})
	s.log.Info().Int64("id", added.ID).Str("url", cfg.URL).Msg("queued download")
	return added, nil
}

// nextTempID returns a negative id no item in items is using.
func (s *Store) nextTempID(items []model.QueueItem) int64 {
	id := s.tempID.Add(-1)
	for indexOf(items, id) >= 0 {
		id = s.tempID.Add(-1)
	}
	return id
}

// replaceTemporary swaps the placeholder for the acknowledged item. If a push
// event already delivered the item, the placeholder is dropped instead.
func replaceTemporary(items []model.QueueItem, tempID int64, added model.QueueItem) []model.QueueItem {
	if indexOf(items, added.ID) >= 0 {
		return removeID(items, tempID)
	}
	if i := indexOf(items, tempID); i >= 0 {
		items[i] = added
		return items
	}
	return append(items, added)
}

// CancelItem marks the item cancelling and asks the backend to stop it. On
// failure the queue is reloaded rather than rolled back, since a pushed
// update may already have moved the item on.
func (s *Store) CancelItem(ctx context.Context, id int64) error {
	err := state.Perform(ctx, s.cell,
		func(st State) State {
			if i := indexOf(st.Items, id); i >= 0 {
				st.Items[i].Status = model.QueueCancelling
			}
			return st
		},
		s.command(bridge.CmdQueueCancel, map[string]int64{"id": id}),
		state.NoRollback[State](),
	)
	if err != nil {
		s.log.Warn().Err(err).Int64("id", id).Msg("queue cancel failed")
		s.Reload(ctx)
		return err
	}
	return nil
}

// RemoveItem drops the item locally and on the backend.
func (s *Store) RemoveItem(ctx context.Context, id int64) error {
	err := state.Perform(ctx, s.cell,
		func(st State) State {
			st.Items = removeID(st.Items, id)
			return st
		},
		s.command(bridge.CmdQueueRemove, map[string]int64{"id": id}),
		state.RestoreSnapshot[State](),
	)
	if err != nil {
		s.log.Warn().Err(err).Int64("id", id).Msg("queue remove failed")
	}
	return err
}

// ClearCompleted drops completed, failed and cancelled items.
func (s *Store) ClearCompleted(ctx context.Context) error {
	err := state.Perform(ctx, s.cell,
		func(st State) State {
			st.Items = keepNonTerminal(st.Items)
			return st
		},
		s.command(bridge.CmdQueueClearCompleted, nil),
		state.RestoreSnapshot[State](),
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("queue clear failed")
	}
	return err
}

// MoveUp swaps the item with its predecessor. Failures are logged and rolled
// back.
func (s *Store) MoveUp(ctx context.Context, id int64) {
	s.move(ctx, id, -1, bridge.CmdQueueMoveUp)
}

// MoveDown swaps the item with its successor. Failures are logged and rolled
// back.
func (s *Store) MoveDown(ctx context.Context, id int64) {
	s.move(ctx, id, 1, bridge.CmdQueueMoveDown)
}

func (s *Store) move(ctx context.Context, id int64, delta int, command string) {
	err := state.Perform(ctx, s.cell,
		func(st State) State {
			st.Items = swapWithNeighbour(st.Items, id, delta)
			return st
		},
		s.command(command, map[string]int64{"id": id}),
		state.RestoreSnapshot[State](),
	)
	if err != nil {
		s.log.Warn().Err(err).Int64("id", id).Str("command", command).Msg("queue move failed")
	}
}

// ReorderItems puts the named ids first, in order, followed by every other
// item in its existing relative order. Failures are logged and rolled back.
func (s *Store) ReorderItems(ctx context.Context, ids []int64) {
	err := state.Perform(ctx, s.cell,
		func(st State) State {
			st.Items = reorder(st.Items, ids)
			return st
		},
		s.command(bridge.CmdQueueReorder, map[string][]int64{"ids": ids}),
		state.RestoreSnapshot[State](),
	)
	if err != nil {
		s.log.Warn().Err(err).Ints64("ids", ids).Msg("queue reorder failed")
	}
}

// PauseAll asks the backend to hold pending downloads. State changes arrive
// as pushed events.
func (s *Store) PauseAll(ctx context.Context) error {
	if err := s.bridge.Invoke(ctx, bridge.CmdQueuePauseAll, nil, nil); err != nil {
		s.log.Warn().Err(err).Msg("queue pause failed")
		return err
	}
	return nil
}

// ResumeAll asks the backend to continue pending downloads.
func (s *Store) ResumeAll(ctx context.Context) error {
	if err := s.bridge.Invoke(ctx, bridge.CmdQueueResumeAll, nil, nil); err != nil {
		s.log.Warn().Err(err).Msg("queue resume failed")
		return err
	}
	return nil
}

func (s *Store) command(name string, args any) func(context.Context) error {
	return func(ctx context.Context) error {
		return s.bridge.Invoke(ctx, name, args, nil)
	}
}

func (s *Store) handlePayload(payload json.RawMessage) {
	ev, err := bridge.Decode[model.QueueEvent](bridge.EventQueueUpdate, payload)
	if err != nil {
		s.log.Warn().Err(err).Msg("ignoring malformed queue event")
		return
	}
	s.Apply(ev)
}

// Apply reconciles one pushed queue event.
func (s *Store) Apply(ev model.QueueEvent) {
	s.cell.Update(func(st State) State {
		st.Items = applyEvent(st.Items, ev)
		return st
	})
}

func applyEvent(items []model.QueueItem, ev model.QueueEvent) []model.QueueItem {
	switch ev.Type {
	case model.QueueItemAdded:
		if ev.Item != nil && indexOf(items, ev.Item.ID) < 0 {
			items = append(items, *ev.Item)
		}
	case model.QueueItemUpdated:
		if ev.Item != nil {
			if i := indexOf(items, ev.Item.ID); i >= 0 {
				items[i] = *ev.Item
			}
		}
	case model.QueueItemRemoved:
		items = removeID(items, ev.ID)
	case model.QueueCleared:
		items = keepNonTerminal(items)
	}
	return items
}

// persist writes the latest pending subset to the backup when it has changed
// since the last write. It is a recovery hint only, so failures are logged
// and otherwise ignored.
func (s *Store) persist(State) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.pendingMu.Lock()
	seq, pending := s.seq, s.pending
	s.pendingMu.Unlock()
	if seq == s.written {
		return
	}
	if err := s.backup.Save(backup.KeyQueue, pending); err != nil {
		s.log.Warn().Err(err).Msg("queue backup failed")
		return
	}
	s.written = seq
}

func indexOf(items []model.QueueItem, id int64) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func removeID(items []model.QueueItem, id int64) []model.QueueItem {
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func keepNonTerminal(items []model.QueueItem) []model.QueueItem {
	out := items[:0]
	for _, it := range items {
		if !it.Status.IsTerminal() {
			out = append(out, it)
		}
	}
	return out
}

func swapWithNeighbour(items []model.QueueItem, id int64, delta int) []model.QueueItem {
	i := indexOf(items, id)
	j := i + delta
	if i < 0 || j < 0 || j >= len(items) {
		return items
	}
	items[i], items[j] = items[j], items[i]
	return items
}

func reorder(items []model.QueueItem, ids []int64) []model.QueueItem {
	out := make([]model.QueueItem, 0, len(items))
	placed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if placed[id] {
			continue
		}
		if i := indexOf(items, id); i >= 0 {
			out = append(out, items[i])
			placed[id] = true
		}
	}
	for _, it := range items {
		if !placed[it.ID] {
			out = append(out, it)
		}
	}
	return out
}
