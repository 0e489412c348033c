package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/mediagrab/internal/dlerror"
	"github.com/five82/mediagrab/internal/lifecycle"
	"github.com/five82/mediagrab/internal/model"
	"github.com/five82/mediagrab/internal/toolchain"
)

var (
	formatCycle  = []string{model.FormatVideoMP4, model.FormatAudioMP3, model.FormatAudioBest}
	qualityCycle = []string{model.QualityBest, model.Quality1080p, model.Quality720p, model.Quality480p}
	statusCycle  = []string{"", model.HistoryCompleted, model.HistoryFailed}
)

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.inputMode != inputNone {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		return m, m.cycleView(1)
	case key.Matches(msg, m.keys.ShiftTab):
		return m, m.cycleView(-1)
	case key.Matches(msg, m.keys.ViewDownload):
		return m, m.switchView(ViewDownload)
	case key.Matches(msg, m.keys.ViewQueue):
		return m, m.switchView(ViewQueue)
	case key.Matches(msg, m.keys.ViewHistory):
		return m, m.switchView(ViewHistory)
	case key.Matches(msg, m.keys.ViewSchedule):
		return m, m.switchView(ViewSchedule)
	case key.Matches(msg, m.keys.ViewLogs):
		return m, m.switchView(ViewLogs)
	case key.Matches(msg, m.keys.Escape):
		m.flash = ""
		return m, nil
	case key.Matches(msg, m.keys.UpdateTools):
		if m.toolchain == nil {
			return m, nil
		}
		if m.tools.Updating {
			m.setFlash(actionMsg{note: "yt-dlp update", err: toolchain.ErrBusy})
			return m, nil
		}
		return m, m.updateToolsCmd()
	}

	switch m.currentView {
	case ViewQueue:
		return m.handleQueueKey(msg)
	case ViewHistory:
		return m.handleHistoryKey(msg)
	case ViewSchedule:
		return m.handleScheduleKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleDownloadKey(msg)
	}
}

// handleInputKey feeds the text input until it is confirmed or dismissed.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		if m.inputMode == inputSearch {
			m.historyQuery = ""
			m.clampCursors()
		}
		m.closeInput()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		value := strings.TrimSpace(m.input.Value())
		mode := m.inputMode
		m.closeInput()
		return m.submitInput(mode, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.inputMode == inputSearch {
		m.historyQuery = m.input.Value()
		m.clampCursors()
	}
	return m, cmd
}

func (m Model) submitInput(mode inputMode, value string) (tea.Model, tea.Cmd) {
	switch mode {
	case inputURL:
		if err := model.ValidateURL(value); err != nil {
			m.setFlash(actionMsg{note: "URL", err: err})
			return m, nil
		}
		m.downloads.SetURL(value)
		m.refresh()
		downloads := m.downloads
		return m, m.action("Media info loaded", func(ctx context.Context) error {
			_, err := downloads.FetchMediaInfo(ctx)
			return err
		})

	case inputQueueURL:
		if err := model.ValidateURL(value); err != nil {
			m.setFlash(actionMsg{note: "URL", err: err})
			return m, nil
		}
		cfg := m.downloads.ResolveConfig(lifecycle.Form{
			URL:          value,
			Format:       m.download.Form.Format,
			Quality:      m.download.Form.Quality,
			OutputFolder: m.download.Form.OutputFolder,
		})
		return m, m.enqueueCmd(cfg, "Added to queue")

	case inputSearch:
		m.historyQuery = value
		m.clampCursors()
	}
	return m, nil
}

func (m Model) handleDownloadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	downloads := m.downloads
	st := m.download
	cfg := downloads.ResolveConfig(st.Form)

	switch {
	case key.Matches(msg, m.keys.EditURL):
		return m, m.openInput(inputURL, "https://...", st.Form.URL)
	case key.Matches(msg, m.keys.Add):
		return m, m.openInput(inputQueueURL, "URL to queue", st.Form.URL)
	case key.Matches(msg, m.keys.Start):
		if strings.TrimSpace(st.Form.URL) == "" {
			return m, m.openInput(inputURL, "https://...", "")
		}
		return m, m.action("Download started", downloads.HandleDownload)
	case key.Matches(msg, m.keys.Cancel):
		if !st.DownloadState.IsActive() {
			return m, nil
		}
		return m, m.action("Cancel requested", downloads.HandleCancel)
	case key.Matches(msg, m.keys.Reset):
		return m, m.action("Ready", downloads.Reset)
	case key.Matches(msg, m.keys.CycleFormat):
		downloads.SetFormat(nextValue(formatCycle, cfg.Format))
		m.refresh()
	case key.Matches(msg, m.keys.CycleQuality):
		downloads.SetQuality(nextValue(qualityCycle, cfg.Quality))
		m.refresh()
	case key.Matches(msg, m.keys.FetchInfo):
		return m, m.action("Media info loaded", func(ctx context.Context) error {
			_, err := downloads.FetchMediaInfo(ctx)
			return err
		})
	case key.Matches(msg, m.keys.EditFolder):
		return m, m.action("Output folder updated", func(ctx context.Context) error {
			_, err := downloads.PickFolder(ctx)
			return err
		})
	case key.Matches(msg, m.keys.FetchSubtitles):
		return m, m.actionNote(func(ctx context.Context) (string, error) {
			info, err := downloads.FetchSubtitles(ctx)
			if err != nil {
				return "Subtitles", err
			}
			return subtitleSummary(info), nil
		})
	case key.Matches(msg, m.keys.PickCookies):
		return m, m.actionNote(func(ctx context.Context) (string, error) {
			path, err := downloads.PickCookiesFile(ctx)
			if err != nil || path == "" {
				return "Cookies file", err
			}
			return "Cookies file set to " + path, nil
		})
	case key.Matches(msg, m.keys.OpenFolder):
		folder := cfg.OutputFolder
		if st.FilePath != "" {
			folder = parentDir(st.FilePath)
		}
		return m, m.openFolderCmd(folder)
	case key.Matches(msg, m.keys.OpenFile):
		if st.FilePath == "" {
			return m, nil
		}
		path := st.FilePath
		return m, m.action("Opened "+path, func(ctx context.Context) error {
			return downloads.OpenFile(ctx, path)
		})
	}
	return m, nil
}

func (m Model) handleQueueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.queue
	items := m.queueState.Items

	switch {
	case key.Matches(msg, m.keys.Add):
		return m, m.openInput(inputQueueURL, "URL to queue", "")
	case key.Matches(msg, m.keys.PauseAll):
		return m, m.action("Queue paused", q.PauseAll)
	case key.Matches(msg, m.keys.ResumeAll):
		return m, m.action("Queue resumed", q.ResumeAll)
	case key.Matches(msg, m.keys.ClearCompleted):
		return m, m.action("Finished items cleared", q.ClearCompleted)
	case key.Matches(msg, m.keys.Reload):
		return m, m.action("Queue reloaded", func(ctx context.Context) error {
			q.Reload(ctx)
			return nil
		})
	}

	if len(items) == 0 {
		return m, nil
	}
	if m.moveCursor(msg, ViewQueue, len(items)) {
		return m, nil
	}

	item := items[m.cursor[ViewQueue]]
	id := item.ID
	switch {
	case key.Matches(msg, m.keys.Cancel):
		return m, m.action("Cancelled "+item.DisplayTitle(), func(ctx context.Context) error {
			return q.CancelItem(ctx, id)
		})
	case key.Matches(msg, m.keys.Remove):
		return m, m.action("Removed "+item.DisplayTitle(), func(ctx context.Context) error {
			return q.RemoveItem(ctx, id)
		})
	case key.Matches(msg, m.keys.MoveUp):
		if m.cursor[ViewQueue] > 0 {
			m.cursor[ViewQueue]--
		}
		return m, m.action("", func(ctx context.Context) error {
			q.MoveUp(ctx, id)
			return nil
		})
	case key.Matches(msg, m.keys.MoveDown):
		if m.cursor[ViewQueue] < len(items)-1 {
			m.cursor[ViewQueue]++
		}
		return m, m.action("", func(ctx context.Context) error {
			q.MoveDown(ctx, id)
			return nil
		})
	case key.Matches(msg, m.keys.OpenFolder):
		folder := item.Config.OutputFolder
		if item.FilePath != "" {
			folder = parentDir(item.FilePath)
		}
		return m, m.openFolderCmd(folder)
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := m.history

	switch {
	case key.Matches(msg, m.keys.Search):
		return m, m.openInput(inputSearch, "Search title or URL", m.historyQuery)
	case key.Matches(msg, m.keys.CycleFilter):
		m.historyStatus = nextValue(statusCycle, m.historyStatus)
		m.clampCursors()
		return m, nil
	case key.Matches(msg, m.keys.ClearHistory):
		return m, m.action("History cleared", h.ClearHistory)
	case key.Matches(msg, m.keys.Reload):
		return m, m.action("History reloaded", func(ctx context.Context) error {
			h.Load(ctx)
			return nil
		})
	}

	items := m.filteredHistory()
	if len(items) == 0 {
		return m, nil
	}
	if m.moveCursor(msg, ViewHistory, len(items)) {
		return m, nil
	}

	item := items[m.cursor[ViewHistory]]
	switch {
	case key.Matches(msg, m.keys.Remove):
		id := item.ID
		return m, m.action("Removed "+item.Title, func(ctx context.Context) error {
			return h.RemoveItem(ctx, id)
		})
	case key.Matches(msg, m.keys.OpenFolder):
		if item.FilePath == "" {
			return m, nil
		}
		return m, m.openFolderCmd(parentDir(item.FilePath))
	case key.Matches(msg, m.keys.Add):
		cfg := m.downloads.ResolveConfig(lifecycle.Form{URL: item.URL, Format: item.Format, Quality: item.Quality})
		return m, m.enqueueCmd(cfg, "Re-queued "+item.Title)
	}
	return m, nil
}

func (m Model) handleScheduleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	scheduled := m.prefState.Preferences.ScheduledDownloads
	if len(scheduled) == 0 {
		return m, nil
	}
	if m.moveCursor(msg, ViewSchedule, len(scheduled)) {
		return m, nil
	}

	sd := scheduled[m.cursor[ViewSchedule]]
	switch {
	case key.Matches(msg, m.keys.Toggle):
		m.prefs.ToggleScheduledDownload(sd.ID)
		m.refresh()
	case key.Matches(msg, m.keys.Remove):
		m.prefs.RemoveScheduledDownload(sd.ID)
		m.refresh()
		m.setFlash(actionMsg{note: "Removed scheduled " + sd.Config.URL})
	}
	return m, nil
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Toggle):
		m.logFollow = !m.logFollow
		if m.logFollow {
			m.logViewport.GotoBottom()
		}
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m, m.readLogsCmd()
	case key.Matches(msg, m.keys.Top):
		m.logFollow = false
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	if !m.logViewport.AtBottom() {
		m.logFollow = false
	}
	return m, cmd
}

func (m Model) updateToolsCmd() tea.Cmd {
	tools := m.toolchain
	return m.actionNote(func(ctx context.Context) (string, error) {
		res, err := tools.Update(ctx)
		if err != nil {
			return "yt-dlp update", err
		}
		if !res.Updated {
			return "yt-dlp is already up to date", nil
		}
		return "yt-dlp updated to " + res.Version, nil
	})
}

func subtitleSummary(info model.SubtitleInfo) string {
	langs := info.Languages()
	switch {
	case len(langs) > 0:
		return "Subtitles: " + strings.Join(langs, ", ")
	case len(info.AutomaticCaptions) > 0:
		return fmt.Sprintf("No subtitles, %d automatic captions", len(info.AutomaticCaptions))
	default:
		return "No subtitles available"
	}
}

// moveCursor applies navigation keys to the selection of view.
func (m *Model) moveCursor(msg tea.KeyMsg, v View, count int) bool {
	c := m.cursor[v]
	switch {
	case key.Matches(msg, m.keys.Up):
		if c > 0 {
			c--
		}
	case key.Matches(msg, m.keys.Down):
		if c < count-1 {
			c++
		}
	case key.Matches(msg, m.keys.Top):
		c = 0
	case key.Matches(msg, m.keys.Bottom):
		c = count - 1
	default:
		return false
	}
	m.cursor[v] = c
	return true
}

func (m Model) openFolderCmd(folder string) tea.Cmd {
	if folder == "" {
		return nil
	}
	downloads := m.downloads
	return m.action("Opened "+folder, func(ctx context.Context) error {
		return downloads.OpenFolder(ctx, folder)
	})
}

// nextValue returns the entry after current in values, wrapping around.
func nextValue(values []string, current string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

// describeError renders err for the footer, adding a hint for known
// download failures.
func describeError(note string, err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, model.ErrInvalidURL):
		return msg
	case errors.Is(err, lifecycle.ErrBusy):
		return "A download is already running"
	}
	if note != "" {
		msg = fmt.Sprintf("%s failed: %s", strings.ToLower(note), msg)
	}
	if hint := dlerror.ClassifyError(err).Suggestion(); hint != "" {
		msg += " (" + hint + ")"
	}
	return msg
}
