// Package toolchain tracks the backend's external tools: whether yt-dlp,
// ffmpeg and ffprobe are installed, and whether yt-dlp has an update.
//
// Startup runs once per session. It checks the executables and, when the
// CheckUpdatesOnStartup preference is on, asks for the latest yt-dlp
// release. Failures are recorded in State and logged but never stop the
// session: a missing ffmpeg only matters once a download needs it.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/mediagrab/internal/bridge"
	"github.com/five82/mediagrab/internal/model"
	"github.com/five82/mediagrab/internal/state"
)

// ErrBusy is returned by Update while another update runs.
var ErrBusy = errors.New("yt-dlp update already running")

// DefaultLogLines is how many backend log lines RecentLogs asks for by
// default.
const DefaultLogLines = 50

// State is a point-in-time copy of the store.
type State struct {
	Executables *model.ExecutableCheck
	Update      *model.UpdateCheck
	Version     string
	Updating    bool
	Error       string
}

// Missing names the tools the last check could not find.
func (s State) Missing() []string {
	if s.Executables == nil {
		return nil
	}
	return s.Executables.Missing()
}

// UpdateAvailable reports the newer yt-dlp version, if any.
func (s State) UpdateAvailable() (string, bool) {
	if s.Update == nil || !s.Update.UpdateAvailable {
		return "", false
	}
	return s.Update.LatestVersion, true
}

func cloneState(s State) State {
	if s.Executables != nil {
		e := *s.Executables
		s.Executables = &e
	}
	if s.Update != nil {
		u := *s.Update
		s.Update = &u
	}
	return s
}

// Store holds the latest tool checks.
type Store struct {
	bridge bridge.Invoker
	log    zerolog.Logger
	cell   *state.Cell[State]
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New returns a Store with nothing checked yet.
func New(inv bridge.Invoker, opts ...Option) *Store {
	s := &Store{bridge: inv, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.cell = state.NewCell(State{}, state.Options[State]{Clone: cloneState})
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

func (s *Store) update(fn func(st *State)) State {
	return s.cell.Update(func(st State) State {
		fn(&st)
		return st
	})
}

// Startup checks the executables and, if checkUpdates is set, the yt-dlp
// release. Both outcomes are logged; errors stay in State.Error.
func (s *Store) Startup(ctx context.Context, checkUpdates bool) {
	check, err := s.CheckExecutables(ctx)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Msg("executable check failed")
	case !check.AllAvailable:
		s.log.Warn().Strs("missing", check.Missing()).Str("error", check.Error).Msg("required tools missing")
	default:
		s.log.Info().Str("ytdlp", check.YtdlpVersion).Str("ffmpeg", check.FfmpegVersion).Msg("tools available")
	}

	if !checkUpdates {
		s.log.Debug().Msg("update check disabled")
		return
	}
	upd, err := s.CheckForUpdate(ctx)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Msg("yt-dlp update check failed")
	case upd.UpdateAvailable:
		s.log.Info().Str("current", upd.CurrentVersion).Str("latest", upd.LatestVersion).Msg("yt-dlp update available")
	default:
		s.log.Debug().Str("version", upd.CurrentVersion).Msg("yt-dlp is up to date")
	}
}

// CheckExecutables asks the backend which tools it can run.
func (s *Store) CheckExecutables(ctx context.Context) (model.ExecutableCheck, error) {
	check, err := bridge.Call[model.ExecutableCheck](ctx, s.bridge, bridge.CmdCheckExecutables, nil)
	if err != nil {
		err = fmt.Errorf("check executables: %w", err)
		s.update(func(st *State) { st.Error = err.Error() })
		return model.ExecutableCheck{}, err
	}
	s.update(func(st *State) {
		st.Executables = &check
		if check.YtdlpVersion != "" {
			st.Version = check.YtdlpVersion
		}
	})
	return check, nil
}

// CheckForUpdate compares the installed yt-dlp with the latest release. A
// check the backend could not complete is returned as an error.
func (s *Store) CheckForUpdate(ctx context.Context) (model.UpdateCheck, error) {
	upd, err := bridge.Call[model.UpdateCheck](ctx, s.bridge, bridge.CmdCheckYtdlpUpdate, nil)
	if err == nil && upd.Error != "" {
		err = errors.New(upd.Error)
	}
	if err != nil {
		err = fmt.Errorf("check yt-dlp update: %w", err)
		s.update(func(st *State) { st.Error = err.Error() })
		return upd, err
	}
	s.update(func(st *State) {
		st.Update = &upd
		if upd.CurrentVersion != "" {
			st.Version = upd.CurrentVersion
		}
	})
	return upd, nil
}

// Update runs yt-dlp's self-update. On success the pending update notice is
// cleared and the new version recorded.
func (s *Store) Update(ctx context.Context) (model.UpdateResult, error) {
	var busy bool
	s.update(func(st *State) {
		busy = st.Updating
		st.Updating = true
	})
	if busy {
		return model.UpdateResult{}, ErrBusy
	}

	res, err := bridge.Call[model.UpdateResult](ctx, s.bridge, bridge.CmdUpdateYtdlp, nil)
	if err == nil && !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "update failed"
		}
		err = errors.New(msg)
	}
	if err != nil {
		err = fmt.Errorf("update yt-dlp: %w", err)
		s.log.Warn().Err(err).Msg("yt-dlp update failed")
		s.update(func(st *State) {
			st.Updating = false
			st.Error = err.Error()
		})
		return res, err
	}

	s.log.Info().Bool("updated", res.Updated).Str("version", res.Version).Msg(res.Message)
	s.update(func(st *State) {
		st.Updating = false
		st.Error = ""
		if res.Version != "" {
			st.Version = res.Version
		}
		if st.Update != nil {
			st.Update.UpdateAvailable = false
			st.Update.CurrentVersion = st.Version
		}
	})
	return res, nil
}

// Version asks the backend for the installed yt-dlp version.
func (s *Store) Version(ctx context.Context) (string, error) {
	v, err := bridge.Call[string](ctx, s.bridge, bridge.CmdYtdlpVersion, nil)
	if err != nil {
		return "", fmt.Errorf("yt-dlp version: %w", err)
	}
	v = strings.TrimSpace(v)
	s.update(func(st *State) { st.Version = v })
	return v, nil
}

// DebugInfo collects the backend's diagnostic report. The backend also
// copies it to its own clipboard.
func (s *Store) DebugInfo(ctx context.Context) (model.DebugInfo, error) {
	info, err := bridge.Call[model.DebugInfo](ctx, s.bridge, bridge.CmdCopyDebugInfo, nil)
	if err != nil {
		return model.DebugInfo{}, fmt.Errorf("copy debug info: %w", err)
	}
	return info, nil
}

// RecentLogs returns the last count lines of the backend's own log.
// Non-positive counts use DefaultLogLines.
func (s *Store) RecentLogs(ctx context.Context, count int) (string, error) {
	if count <= 0 {
		count = DefaultLogLines
	}
	logs, err := bridge.Call[string](ctx, s.bridge, bridge.CmdGetRecentLogs, map[string]int{"count": count})
	if err != nil {
		return "", fmt.Errorf("recent logs: %w", err)
	}
	return logs, nil
}

// Report renders info as the plain-text block users paste into bug reports.
func Report(info model.DebugInfo) string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			value = "unknown"
		}
		fmt.Fprintf(&b, "%-8s %s\n", label+":", value)
	}
	line("App", info.AppVersion)
	line("OS", info.OSInfo)
	if info.WindowsVersion != "" {
		line("Windows", info.WindowsVersion)
	}
	line("yt-dlp", info.YtdlpVersion)
	line("ffmpeg", info.FfmpegVersion)
	line("Memory", info.MemoryInfo)
	if logs := strings.TrimSpace(info.RecentLogs); logs != "" {
		b.WriteString("\nRecent logs:\n")
		b.WriteString(logs)
		b.WriteString("\n")
	}
	return b.String()
}
