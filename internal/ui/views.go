package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/mediagrab/internal/lifecycle"
	"github.com/five82/mediagrab/internal/model"
)

const defaultRefreshTick = time.Second

// renderHeader renders the logo, queue tallies and the download state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	counts := m.queueState.Counts

	parts := []string{
		styles.Logo.Render("mediagrab"),
		fmt.Sprintf("Queue %d", len(m.queueState.Items)),
		fmt.Sprintf("pending %d", counts.Pending),
		fmt.Sprintf("active %d", counts.Active),
		fmt.Sprintf("done %d", counts.Completed),
	}
	if counts.Failed > 0 {
		parts = append(parts, fmt.Sprintf("failed %d", counts.Failed))
	}
	if m.queueState.IsLoading || m.historyState.IsLoading {
		parts = append(parts, "loading...")
	}
	if m.prefs != nil && m.prefs.SavePending() {
		parts = append(parts, "saving...")
	}
	switch latest, ok := m.tools.UpdateAvailable(); {
	case m.tools.Updating:
		parts = append(parts, "updating yt-dlp...")
	case ok:
		parts = append(parts, styles.WarningText.Render(fmt.Sprintf("yt-dlp %s available (U)", latest)))
	}
	if missing := m.tools.Missing(); len(missing) > 0 {
		parts = append(parts, styles.DangerText.Render("missing: "+strings.Join(missing, ", ")))
	}
	parts = append(parts, string(m.download.DownloadState))

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

// renderTabs renders one tab per view.
func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	tabs := make([]string, 0, len(viewOrder))
	for i, v := range viewOrder {
		label := fmt.Sprintf("%d %s", i+1, v)
		if v == m.currentView {
			tabs = append(tabs, styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, styles.TabInactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderFooter shows the text input, the last action result or key hints.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.inputMode != inputNone {
		return styles.Footer.Width(m.width).Render(m.input.View())
	}
	if m.flash != "" {
		style := styles.SuccessText
		if m.flashErr {
			style = styles.DangerText
		}
		return styles.Footer.Width(m.width).Render(style.Render(m.flash))
	}

	type cmd struct{ key, desc string }
	var commands []cmd
	switch m.currentView {
	case ViewQueue:
		commands = []cmd{{"a", "Add"}, {"c", "Cancel"}, {"x", "Remove"}, {"K/J", "Move"}, {"C", "Clear"}, {"p/r", "Pause/Resume"}}
	case ViewHistory:
		filter := m.historyStatus
		if filter == "" {
			filter = "all"
		}
		commands = []cmd{{"/", "Search"}, {"f", filter}, {"a", "Re-queue"}, {"x", "Remove"}, {"X", "Clear"}, {"o", "Folder"}}
	case ViewSchedule:
		commands = []cmd{{"Space", "Toggle"}, {"x", "Remove"}}
	case ViewLogs:
		follow := "Pause"
		if !m.logFollow {
			follow = "Follow"
		}
		commands = []cmd{{"Space", follow}, {"R", "Reload"}, {"g/G", "Top/Bottom"}}
	default:
		commands = []cmd{{"u", "URL"}, {"enter", "Download"}, {"f", "Format"}, {"v", "Quality"}, {"c", "Cancel"}, {"a", "Queue"}, {"s", "Subtitles"}}
	}
	commands = append(commands, cmd{"?", "Help"}, cmd{"T", m.theme.Name})

	segments := make([]string, 0, len(commands))
	for _, c := range commands {
		segments = append(segments, styles.AccentText.Render(c.key)+":"+c.desc)
	}
	return styles.Footer.Width(m.width).Render(strings.Join(segments, "  "))
}

// renderDownload renders the single-download form and its progress.
func (m Model) renderDownload() string {
	styles := m.theme.Styles()
	st := m.download
	cfg := m.downloads.ResolveConfig(st.Form)

	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(styles.MutedText.Render(padRight(label, 10)))
		b.WriteString(styles.Text.Render(value))
		b.WriteString("\n")
	}

	url := cfg.URL
	if url == "" {
		url = styles.FaintText.Render("press u to enter a URL")
	}
	row("URL", truncate(url, m.contentWidth()-12))
	row("Format", cfg.Format)
	row("Quality", cfg.Quality)
	row("Folder", truncateMiddle(cfg.OutputFolder, m.contentWidth()-12))

	if info := st.MediaInfo; info != nil {
		b.WriteString("\n")
		row("Title", truncate(info.Title, m.contentWidth()-12))
		if info.Uploader != "" {
			row("Uploader", info.Uploader)
		}
		if info.Duration != nil {
			row("Duration", formatSeconds(uint64(*info.Duration)))
		}
		if info.FilesizeApprox != nil {
			row("Size", "~"+humanize.IBytes(*info.FilesizeApprox))
		}
	}
	if subs := st.Subtitles; subs != nil {
		langs := "none"
		if l := subs.Languages(); len(l) > 0 {
			langs = truncate(strings.Join(l, ", "), m.contentWidth()-12)
		}
		row("Subtitles", langs)
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusStyle(string(st.DownloadState)).Render(string(st.DownloadState)))
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(lifecycle.StatusMessage(st)))
	b.WriteString("\n")

	if p := st.Progress; p != nil && st.DownloadState.IsActive() {
		b.WriteString(progressBar(p.Percentage, m.contentWidth()-12, styles))
		b.WriteString(fmt.Sprintf(" %5.1f%%", p.Percentage))
		b.WriteString("\n")
		details := []string{humanize.IBytes(p.DownloadedBytes)}
		if p.TotalBytes != nil {
			details[0] += " / " + humanize.IBytes(*p.TotalBytes)
		}
		if p.Speed != "" {
			details = append(details, p.Speed)
		}
		if p.ETASeconds != nil {
			details = append(details, "ETA "+formatSeconds(*p.ETASeconds))
		}
		b.WriteString(styles.MutedText.Render(strings.Join(details, "  ")))
		b.WriteString("\n")
	}
	if st.Warning != "" {
		b.WriteString(styles.WarningText.Render(st.Warning))
		b.WriteString("\n")
	}
	if st.FilePath != "" {
		row("File", truncateMiddle(st.FilePath, m.contentWidth()-12))
	}

	return m.box(b.String())
}

// renderQueue renders the queue table.
func (m Model) renderQueue() string {
	styles := m.theme.Styles()
	items := m.queueState.Items
	if len(items) == 0 {
		return m.box(styles.FaintText.Render("Queue is empty. Press a to add a URL."))
	}

	width := m.contentWidth()
	titleWidth := width - 40
	if titleWidth < 10 {
		titleWidth = 10
	}

	lines := make([]string, 0, len(items)+1)
	lines = append(lines, styles.MutedText.Render(
		padRight("STATUS", 13)+padRight("TITLE", titleWidth+1)+padRight("PROGRESS", 9)+padRight("SPEED", 11)+"ETA"))
	for i, it := range items {
		status := styles.StatusStyle(string(it.Status)).Render(padRight(string(it.Status), 11))
		title := it.DisplayTitle()
		if it.IsTemporary() {
			title += " (sending)"
		}
		line := padRight(truncate(title, titleWidth), titleWidth+1) +
			padRight(fmt.Sprintf("%5.1f%%", it.Progress), 9) +
			padRight(truncate(it.Speed, 10), 11) +
			it.ETAString()
		if it.Error != "" && it.Status == model.QueueFailed {
			line += "  " + styles.DangerText.Render(truncate(it.Error, 30))
		}
		if i == m.cursor[ViewQueue] {
			line = styles.Selected.Render(line)
		}
		lines = append(lines, status+" "+line)
	}
	return m.box(m.window(lines, m.cursor[ViewQueue]+1))
}

// renderHistory renders the filtered history with its statistics.
func (m Model) renderHistory() string {
	styles := m.theme.Styles()
	st := m.historyState
	items := m.filteredHistory()

	stats := st.Stats
	summary := fmt.Sprintf("%d downloads  %d ok  %d failed  %s total",
		stats.TotalDownloads, stats.SuccessfulDownloads, stats.FailedDownloads,
		humanize.IBytes(stats.TotalBytesDownloaded))
	if m.historyQuery != "" {
		summary += "  search: " + m.historyQuery
	}
	if m.historyStatus != "" {
		summary += "  status: " + m.historyStatus
	}

	lines := []string{styles.MutedText.Render(summary)}
	if st.Error != "" {
		lines = append(lines, styles.WarningText.Render(st.Error))
	}
	if len(items) == 0 {
		lines = append(lines, styles.FaintText.Render("No downloads match."))
		return m.box(strings.Join(lines, "\n"))
	}

	titleWidth := m.contentWidth() - 44
	if titleWidth < 10 {
		titleWidth = 10
	}
	offset := len(lines)
	for i, it := range items {
		size := ""
		if it.FileSize != nil {
			size = humanize.IBytes(*it.FileSize)
		}
		when := humanize.Time(time.Unix(it.DownloadedAt, 0))
		status := styles.StatusStyle(it.Status).Render(padRight(it.Status, 9))
		line := padRight(truncate(it.Title, titleWidth), titleWidth+1) +
			padRight(it.Format, 11) +
			padRight(size, 10) +
			when
		if i == m.cursor[ViewHistory] {
			line = styles.Selected.Render(line)
		}
		lines = append(lines, status+" "+line)
	}
	return m.box(m.window(lines, m.cursor[ViewHistory]+offset))
}

// renderSchedule renders scheduled downloads from preferences.
func (m Model) renderSchedule() string {
	styles := m.theme.Styles()
	scheduled := m.prefState.Preferences.ScheduledDownloads
	if len(scheduled) == 0 {
		return m.box(styles.FaintText.Render("Nothing scheduled. Use `mediagrab schedule add` to schedule a download."))
	}

	lines := make([]string, 0, len(scheduled))
	for i, sd := range scheduled {
		at := time.UnixMilli(sd.ScheduledTime)
		state := "on "
		if !sd.Enabled {
			state = "off"
		}
		line := fmt.Sprintf("[%s] %s  %s  %s",
			state,
			at.Local().Format("2006-01-02 15:04"),
			padRight(humanize.Time(at), 16),
			truncate(sd.Config.URL, m.contentWidth()-45))
		if i == m.cursor[ViewSchedule] {
			line = styles.Selected.Render(line)
		} else if !sd.Enabled {
			line = styles.FaintText.Render(line)
		}
		lines = append(lines, line)
	}
	return m.box(m.window(lines, m.cursor[ViewSchedule]))
}

// box frames content in the theme border at the content size.
func (m Model) box(content string) string {
	return m.theme.Styles().Box.
		Width(m.contentWidth()).
		Height(m.contentHeight()).
		Render(content)
}

// window keeps the line at focus visible when lines exceed the content height.
func (m Model) window(lines []string, focus int) string {
	height := m.contentHeight()
	if len(lines) <= height {
		return strings.Join(lines, "\n")
	}
	start := focus - height + 1
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > len(lines) {
		end = len(lines)
		start = end - height
	}
	return strings.Join(lines[start:end], "\n")
}

// progressBar draws a bar width cells wide.
func progressBar(pct float64, width int, styles Styles) string {
	if width < 10 {
		width = 10
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	return styles.AccentText.Render(strings.Repeat("█", filled)) +
		styles.FaintText.Render(strings.Repeat("░", width-filled))
}

// formatSeconds renders a duration as m:ss or h:mm:ss.
func formatSeconds(total uint64) string {
	h := total / 3600
	mnt := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mnt, s)
	}
	return fmt.Sprintf("%d:%02d", mnt, s)
}
