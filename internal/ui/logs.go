package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/five82/mediagrab/internal/logtail"
)

// logTailLines is how many lines of the log file the view keeps.
const logTailLines = 500

type logsMsg struct {
	lines []string
	err   error
}

// readLogsCmd reads the tail of the log file off the UI goroutine.
func (m Model) readLogsCmd() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logTailLines)
		return logsMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogs(msg logsMsg) {
	m.logErr = msg.err
	if msg.err == nil {
		m.logLines = msg.lines
	}
	if !m.ready {
		return
	}
	m.logViewport.SetContent(m.renderLogContent())
	if m.logFollow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	return m.theme.Styles().Box.Width(m.contentWidth()).Render(m.logViewport.View())
}

// renderLogContent formats and colors every buffered log line.
func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	if m.logErr != nil {
		return styles.DangerText.Render(m.logErr.Error())
	}
	if len(m.logLines) == 0 {
		return styles.FaintText.Render("No log entries yet.")
	}

	entries := logtail.ParseLines(m.logLines)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, levelStyle(e.Level, styles).Render(logtail.Format(e)))
	}
	return strings.Join(out, "\n")
}

func levelStyle(level zerolog.Level, styles Styles) lipgloss.Style {
	switch level {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return styles.DangerText
	case zerolog.WarnLevel:
		return styles.WarningText
	case zerolog.DebugLevel, zerolog.TraceLevel:
		return styles.FaintText
	case zerolog.NoLevel:
		return styles.MutedText
	default:
		return styles.Text
	}
}
