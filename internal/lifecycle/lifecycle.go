package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/five82/mediagrab/internal/bridge"
	"github.com/five82/mediagrab/internal/dlerror"
	"github.com/five82/mediagrab/internal/filename"
	"github.com/five82/mediagrab/internal/model"
	"github.com/five82/mediagrab/internal/state"
)

var (
	// ErrFolderInaccessible blocks a download whose output folder cannot be
	// written.
	ErrFolderInaccessible = errors.New("output folder not accessible")
	// ErrBusy is returned by HandleDownload while an attempt is running.
	ErrBusy = errors.New("download already in progress")
	// ErrNotActive is returned by HandleCancel when nothing is running.
	ErrNotActive = errors.New("no download in progress")
)

// HistoryWriter records finished attempts.
type HistoryWriter interface {
	AddToHistory(ctx context.Context, entry model.HistoryItem) (model.HistoryItem, error)
}

// PreferencesSource supplies the defaults a download is resolved against and
// keeps the cookies file the user picks.
type PreferencesSource interface {
	Get() model.Preferences
	SetCookiesFilePath(path string)
}

// Form is what the user entered. Empty Format, Quality and OutputFolder fall
// back to preferences.
type Form struct {
	URL          string
	Format       string
	Quality      string
	OutputFolder string
}

// State is a point-in-time copy of the coordinator.
type State struct {
	DownloadState model.DownloadState
	Progress      *model.ProgressEvent
	Error         string
	FilePath      string
	Warning       string
	RetryInfo     *model.RetryEvent
	MediaInfo     *model.MediaInfo
	Subtitles     *model.SubtitleInfo
	Form          Form

	// recorded is set once the current attempt has been written to history.
	recorded bool
}

func cloneState(s State) State {
	if s.Progress != nil {
		p := *s.Progress
		s.Progress = &p
	}
	if s.RetryInfo != nil {
		r := *s.RetryInfo
		s.RetryInfo = &r
	}
	if s.MediaInfo != nil {
		m := *s.MediaInfo
		s.MediaInfo = &m
	}
	if s.Subtitles != nil {
		sub := *s.Subtitles
		s.Subtitles = &sub
	}
	return s
}

// Coordinator owns the foreground download state.
type Coordinator struct {
	bridge  bridge.Bridge
	history HistoryWriter
	prefs   PreferencesSource
	log     zerolog.Logger

	cell *state.Cell[State]

	mu        sync.Mutex
	phase     state.Phase
	unlistens []bridge.Unlisten
	ctx       context.Context
	cancel    context.CancelFunc
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// New returns an idle Coordinator. Call Start to receive backend events.
func New(b bridge.Bridge, history HistoryWriter, prefs PreferencesSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		bridge:  b,
		history: history,
		prefs:   prefs,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.cell = state.NewCell(State{DownloadState: model.StateIdle}, state.Options[State]{Clone: cloneState})
	return c
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() State {
	return c.cell.Get()
}

// OnChange registers fn to receive every new state.
func (c *Coordinator) OnChange(fn func(State)) {
	c.cell.OnChange(fn)
}

func (c *Coordinator) update(fn func(st *State)) State {
	return c.cell.Update(func(st State) State {
		fn(&st)
		return st
	})
}

// Start subscribes to the download events. It is idempotent.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case state.PhaseSubscribed:
		return nil
	case state.PhaseClosed:
		return state.ErrClosed
	}

	handlers := []struct {
		event   string
		handler bridge.Handler
	}{
		{bridge.EventDownloadState, c.onStateChange},
		{bridge.EventDownloadProgress, c.onProgress},
		{bridge.EventDownloadError, c.onError},
		{bridge.EventDownloadComplete, c.onComplete},
		{bridge.EventDownloadRetry, c.onRetry},
	}
	for _, h := range handlers {
		unlisten, err := c.bridge.Listen(h.event, h.handler)
		if err != nil {
			c.unlistenLocked()
			return fmt.Errorf("subscribe %s: %w", h.event, err)
		}
		c.unlistens = append(c.unlistens, unlisten)
	}
	c.phase = state.PhaseSubscribed
	return nil
}

// Close unsubscribes from download events and abandons any history write
// still in flight.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unlistenLocked()
	c.phase = state.PhaseClosed
	c.cancel()
	return nil
}

func (c *Coordinator) unlistenLocked() {
	for _, u := range c.unlistens {
		u()
	}
	c.unlistens = nil
}

// SetURL changes the form URL. A different URL drops cached media info and
// subtitles.
func (c *Coordinator) SetURL(url string) {
	c.update(func(st *State) {
		if strings.TrimSpace(url) != strings.TrimSpace(st.Form.URL) {
			st.MediaInfo = nil
			st.Subtitles = nil
		}
		st.Form.URL = url
	})
}

func (c *Coordinator) SetFormat(format string) {
	c.update(func(st *State) { st.Form.Format = format })
}

func (c *Coordinator) SetQuality(quality string) {
	c.update(func(st *State) { st.Form.Quality = quality })
}

func (c *Coordinator) SetOutputFolder(path string) {
	c.update(func(st *State) { st.Form.OutputFolder = path })
}

// SetMediaInfo caches metadata for the current URL. Nil clears it.
func (c *Coordinator) SetMediaInfo(info *model.MediaInfo) {
	c.update(func(st *State) {
		if info == nil {
			st.MediaInfo = nil
			return
		}
		m := *info
		st.MediaInfo = &m
	})
}

// ResolveConfig merges the form over preferences.
func (c *Coordinator) ResolveConfig(form Form) model.DownloadConfig {
	cfg := c.prefs.Get().DownloadConfig(strings.TrimSpace(form.URL))
	if form.Format != "" {
		cfg.Format = form.Format
	}
	if form.Quality != "" {
		cfg.Quality = form.Quality
	}
	if form.OutputFolder != "" {
		cfg.OutputFolder = form.OutputFolder
	}
	return cfg
}

// FetchMediaInfo asks the backend for metadata about the form URL and caches
// it. The result is dropped if the URL changed while the request ran.
func (c *Coordinator) FetchMediaInfo(ctx context.Context) (model.MediaInfo, error) {
	url := strings.TrimSpace(c.cell.Get().Form.URL)
	if err := model.ValidateURL(url); err != nil {
		return model.MediaInfo{}, err
	}
	info, err := bridge.Call[model.MediaInfo](ctx, c.bridge, bridge.CmdFetchMediaInfo, map[string]string{"url": url})
	if err != nil {
		return model.MediaInfo{}, err
	}
	c.update(func(st *State) {
		if strings.TrimSpace(st.Form.URL) == url {
			st.MediaInfo = &info
		}
	})
	return info, nil
}

// FetchSubtitles lists the subtitle languages offered for the form URL. Like
// FetchMediaInfo, the result is only kept if the URL is unchanged.
func (c *Coordinator) FetchSubtitles(ctx context.Context) (model.SubtitleInfo, error) {
	url := strings.TrimSpace(c.cell.Get().Form.URL)
	if err := model.ValidateURL(url); err != nil {
		return model.SubtitleInfo{}, err
	}
	info, err := bridge.Call[model.SubtitleInfo](ctx, c.bridge, bridge.CmdFetchSubtitles, map[string]string{"url": url})
	if err != nil {
		return model.SubtitleInfo{}, fmt.Errorf("fetch subtitles: %w", err)
	}
	c.update(func(st *State) {
		if strings.TrimSpace(st.Form.URL) == url {
			st.Subtitles = &info
		}
	})
	return info, nil
}

// HandleDownload runs the pre-flight checks and starts the download. The
// returned error is also stored in State.Error.
func (c *Coordinator) HandleDownload(ctx context.Context) error {
	st := c.cell.Get()
	url := strings.TrimSpace(st.Form.URL)
	if err := model.ValidateURL(url); err != nil {
		c.update(func(st *State) { st.Error = err.Error() })
		return err
	}
	if st.DownloadState.IsActive() {
		return ErrBusy
	}

	if st.DownloadState.IsTerminal() {
		if err := c.bridge.Invoke(ctx, bridge.CmdResetDownload, nil, nil); err != nil {
			c.log.Warn().Err(err).Msg("reset before download failed")
		}
	}
	c.update(func(st *State) {
		st.DownloadState = model.StateIdle
		st.Progress = nil
		st.Error = ""
		st.FilePath = ""
		st.Warning = ""
		st.RetryInfo = nil
		st.recorded = false
	})

	cfg := c.ResolveConfig(st.Form)
	if cfg.OutputFolder != "" {
		if err := c.checkFolder(ctx, cfg.OutputFolder, st.MediaInfo); err != nil {
			c.update(func(st *State) { st.Error = err.Error() })
			return err
		}
	}

	if c.cell.Get().MediaInfo == nil {
		c.update(func(st *State) { st.DownloadState = model.StateAnalyzing })
		if _, err := c.FetchMediaInfo(ctx); err != nil {
			c.fail(err.Error())
			c.log.Warn().Err(err).Str("url", url).Msg("fetch media info failed")
			return err
		}
	}

	c.update(func(st *State) { st.DownloadState = model.StateStarting })
	var result model.DownloadResult
	if err := c.bridge.Invoke(ctx, bridge.CmdStartDownload, map[string]any{"config": cfg}, &result); err != nil {
		c.fail(err.Error())
		c.log.Warn().Err(err).Str("url", url).Msg("start download failed")
		return err
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "download failed to start"
		}
		c.fail(msg)
		return errors.New(msg)
	}
	c.log.Info().Str("url", url).Str("format", cfg.Format).Str("quality", cfg.Quality).Msg("download started")
	return nil
}

func (c *Coordinator) checkFolder(ctx context.Context, path string, info *model.MediaInfo) error {
	args := map[string]any{"path": path}
	if info != nil && info.FilesizeApprox != nil {
		args["estimatedSizeBytes"] = *info.FilesizeApprox
	}
	var v model.FolderValidation
	if err := c.bridge.Invoke(ctx, bridge.CmdValidateFolder, args, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrFolderInaccessible, err)
	}
	if !v.IsAccessible {
		return fmt.Errorf("%w: %s", ErrFolderInaccessible, path)
	}
	if warning := lowSpaceWarning(v); warning != "" {
		c.log.Warn().Str("folder", path).Msg(warning)
		c.update(func(st *State) { st.Warning = warning })
	}
	return nil
}

func lowSpaceWarning(v model.FolderValidation) string {
	if v.Warning != "" {
		return v.Warning
	}
	if v.DiskSpace.HasEnoughSpace {
		return ""
	}
	available := v.DiskSpace.AvailableFormatted
	if available == "" {
		available = humanize.IBytes(v.DiskSpace.AvailableBytes)
	}
	return fmt.Sprintf("Low disk space: only %s available", available)
}

func (c *Coordinator) fail(msg string) {
	c.update(func(st *State) {
		st.DownloadState = model.StateFailed
		st.Error = msg
	})
}

// HandleCancel asks the backend to stop the running download. If the command
// fails the local state is forced to cancelled. It is a no-op while already
// cancelling and returns ErrNotActive when no download is running.
func (c *Coordinator) HandleCancel(ctx context.Context) error {
	var already, idle bool
	c.update(func(st *State) {
		switch {
		case st.DownloadState == model.StateCancelling:
			already = true
		case !st.DownloadState.IsActive():
			idle = true
		default:
			st.DownloadState = model.StateCancelling
		}
	})
	if already {
		return nil
	}
	if idle {
		return ErrNotActive
	}
	if err := c.bridge.Invoke(ctx, bridge.CmdCancelDownload, nil, nil); err != nil {
		c.log.Warn().Err(err).Msg("cancel download failed")
		c.update(func(st *State) { st.DownloadState = model.StateCancelled })
		return err
	}
	return nil
}

// Reset returns the backend and the coordinator to idle. The form and cached
// media info are kept.
func (c *Coordinator) Reset(ctx context.Context) error {
	err := c.bridge.Invoke(ctx, bridge.CmdResetDownload, nil, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("reset download failed")
	}
	c.update(func(st *State) {
		st.DownloadState = model.StateIdle
		st.Progress = nil
		st.Error = ""
		st.FilePath = ""
		st.Warning = ""
		st.RetryInfo = nil
	})
	return err
}

// PickFolder opens the backend's folder picker and stores the choice in the
// form. An empty result means the user dismissed the dialog.
func (c *Coordinator) PickFolder(ctx context.Context) (string, error) {
	var picked *string
	if err := c.bridge.Invoke(ctx, bridge.CmdPickFolder, nil, &picked); err != nil {
		return "", err
	}
	if picked == nil || *picked == "" {
		return "", nil
	}
	c.SetOutputFolder(*picked)
	return *picked, nil
}

// PickCookiesFile opens the backend's file picker for a cookies.txt export
// and stores the choice in preferences. A dismissed dialog changes nothing.
func (c *Coordinator) PickCookiesFile(ctx context.Context) (string, error) {
	var picked *string
	if err := c.bridge.Invoke(ctx, bridge.CmdPickCookies, nil, &picked); err != nil {
		return "", err
	}
	if picked == nil || *picked == "" {
		return "", nil
	}
	c.prefs.SetCookiesFilePath(*picked)
	c.log.Info().Str("path", *picked).Msg("cookies file selected")
	return *picked, nil
}

// OpenFolder reveals path in the system file manager.
func (c *Coordinator) OpenFolder(ctx context.Context, path string) error {
	return c.bridge.Invoke(ctx, bridge.CmdOpenFolder, map[string]string{"path": path}, nil)
}

// OpenFile opens path with the default application.
func (c *Coordinator) OpenFile(ctx context.Context, path string) error {
	return c.bridge.Invoke(ctx, bridge.CmdOpenFile, map[string]string{"path": path}, nil)
}

func (c *Coordinator) onStateChange(payload json.RawMessage) {
	ev, err := bridge.Decode[model.StateChangeEvent](bridge.EventDownloadState, payload)
	if err != nil {
		c.log.Warn().Err(err).Msg("ignoring malformed state event")
		return
	}
	c.update(func(st *State) {
		if !st.DownloadState.CanTransitionTo(ev.State) && st.DownloadState != ev.State {
			c.log.Debug().Str("from", string(st.DownloadState)).Str("to", string(ev.State)).Msg("unexpected state transition")
		}
		st.DownloadState = ev.State
		if ev.FilePath != "" {
			st.FilePath = ev.FilePath
		}
	})
}

func (c *Coordinator) onProgress(payload json.RawMessage) {
	ev, err := bridge.Decode[model.ProgressEvent](bridge.EventDownloadProgress, payload)
	if err != nil {
		c.log.Warn().Err(err).Msg("ignoring malformed progress event")
		return
	}
	c.update(func(st *State) { st.Progress = &ev })
}

func (c *Coordinator) onError(payload json.RawMessage) {
	msg, err := bridge.Decode[string](bridge.EventDownloadError, payload)
	if err != nil {
		c.log.Warn().Err(err).Msg("ignoring malformed error event")
		return
	}
	c.update(func(st *State) { st.Error = msg })
}

func (c *Coordinator) onRetry(payload json.RawMessage) {
	ev, err := bridge.Decode[model.RetryEvent](bridge.EventDownloadRetry, payload)
	if err != nil {
		c.log.Warn().Err(err).Msg("ignoring malformed retry event")
		return
	}
	c.log.Info().Int("attempt", ev.Attempt).Int("max", ev.MaxRetries).Str("error", ev.Error).Msg("backend retrying download")
	c.update(func(st *State) { st.RetryInfo = &ev })
}

func (c *Coordinator) onComplete(payload json.RawMessage) {
	result, err := bridge.Decode[model.DownloadResult](bridge.EventDownloadComplete, payload)
	if err != nil {
		c.log.Warn().Err(err).Msg("ignoring malformed complete event")
		return
	}

	var write bool
	st := c.update(func(st *State) {
		if !st.recorded {
			st.recorded = true
			write = true
		}
		if result.FilePath != "" {
			st.FilePath = result.FilePath
		}
		if !result.Success && result.Error != "" {
			st.Error = result.Error
		}
		st.RetryInfo = nil
	})
	if !write {
		c.log.Debug().Msg("history already written for this attempt")
		return
	}

	entry := c.historyEntry(st, result)
	if _, err := c.history.AddToHistory(c.ctx, entry); err != nil {
		c.log.Warn().Err(err).Str("url", entry.URL).Msg("history write failed")
	}
}

// historyEntry builds the record from the values held now.
func (c *Coordinator) historyEntry(st State, result model.DownloadResult) model.HistoryItem {
	cfg := c.ResolveConfig(st.Form)
	entry := model.HistoryItem{
		URL:      cfg.URL,
		Format:   cfg.Format,
		Quality:  cfg.Quality,
		FilePath: st.FilePath,
		Status:   model.HistoryCompleted,
	}
	if !result.Success {
		entry.Status = model.HistoryFailed
		entry.Error = result.Error
		if entry.Error == "" {
			entry.Error = st.Error
		}
	}

	switch {
	case st.MediaInfo != nil && st.MediaInfo.Title != "":
		entry.Title = filename.Sanitize(st.MediaInfo.Title)
	case st.FilePath != "":
		base := filepath.Base(strings.ReplaceAll(st.FilePath, "\\", "/"))
		entry.Title = strings.TrimSuffix(base, filepath.Ext(base))
	default:
		entry.Title = cfg.URL
	}

	if st.MediaInfo != nil {
		entry.Thumbnail = st.MediaInfo.Thumbnail
		if st.MediaInfo.Duration != nil && *st.MediaInfo.Duration > 0 {
			d := uint64(math.Round(*st.MediaInfo.Duration))
			entry.Duration = &d
		}
		if st.MediaInfo.FilesizeApprox != nil {
			size := *st.MediaInfo.FilesizeApprox
			entry.FileSize = &size
		}
	}
	if st.Progress != nil && st.Progress.TotalBytes != nil {
		size := *st.Progress.TotalBytes
		entry.FileSize = &size
	}
	return entry
}

// StatusMessage describes the current state for a status line. Retry info
// takes precedence over the state.
func (c *Coordinator) StatusMessage() string {
	return StatusMessage(c.cell.Get())
}

// StatusMessage renders st as a one-line status.
func StatusMessage(st State) string {
	if r := st.RetryInfo; r != nil {
		msg := fmt.Sprintf("Retrying (%d/%d) in %s", r.Attempt, r.MaxRetries, humanizeDelay(r.DelayMs))
		if r.Error != "" {
			msg += ": " + r.Error
		}
		return msg
	}

	switch st.DownloadState {
	case model.StateAnalyzing:
		return "Analyzing media..."
	case model.StateStarting:
		return "Starting download..."
	case model.StateDownloading:
		if p := st.Progress; p != nil {
			msg := fmt.Sprintf("Downloading %.1f%%", p.Percentage)
			if p.Speed != "" {
				msg += " at " + p.Speed
			}
			return msg
		}
		return "Downloading..."
	case model.StateMerging:
		return "Merging formats..."
	case model.StateCancelling:
		return "Cancelling..."
	case model.StateCompleted:
		if st.FilePath != "" {
			return "Download complete: " + filepath.Base(st.FilePath)
		}
		return "Download complete"
	case model.StateCancelled:
		return "Download cancelled"
	case model.StateFailed:
		if st.Error == "" {
			return "Download failed"
		}
		msg := "Download failed: " + st.Error
		if hint := dlerror.Classify(st.Error).Suggestion(); hint != "" {
			msg += " (" + hint + ")"
		}
		return msg
	default:
		return "Ready"
	}
}

func humanizeDelay(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.0fs", float64(ms)/1000)
}
