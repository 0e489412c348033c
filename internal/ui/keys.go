package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding

	// View switching
	ViewDownload key.Binding
	ViewQueue    key.Binding
	ViewHistory  key.Binding
	ViewSchedule key.Binding
	ViewLogs     key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Download actions
	EditURL        key.Binding
	Start          key.Binding
	Cancel         key.Binding
	Reset          key.Binding
	CycleFormat    key.Binding
	CycleQuality   key.Binding
	OpenFolder     key.Binding
	OpenFile       key.Binding
	FetchInfo      key.Binding
	EditFolder     key.Binding
	FetchSubtitles key.Binding
	PickCookies    key.Binding

	// Queue actions
	Add            key.Binding
	Remove         key.Binding
	MoveUp         key.Binding
	MoveDown       key.Binding
	ClearCompleted key.Binding
	PauseAll       key.Binding
	ResumeAll      key.Binding
	Reload         key.Binding

	// History actions
	Search       key.Binding
	CycleFilter  key.Binding
	ClearHistory key.Binding

	// Schedule and logs
	Toggle key.Binding

	// Tools
	UpdateTools key.Binding

	// Input
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close input"),
		),

		ViewDownload: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Download view"),
		),
		ViewQueue: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Queue view"),
		),
		ViewHistory: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "History view"),
		),
		ViewSchedule: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Schedule view"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "Logs view"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		EditURL: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Enter URL"),
		),
		Start: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Start download"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Cancel"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reset download"),
		),
		CycleFormat: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle format"),
		),
		CycleQuality: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Cycle quality"),
		),
		OpenFolder: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Open folder"),
		),
		OpenFile: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "Open file"),
		),
		FetchInfo: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "Fetch media info"),
		),
		EditFolder: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "Pick output folder"),
		),
		FetchSubtitles: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "List subtitles"),
		),
		PickCookies: key.NewBinding(
			key.WithKeys("B"),
			key.WithHelp("B", "Pick cookies file"),
		),

		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add URL to queue"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "Move item up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "Move item down"),
		),
		ClearCompleted: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Clear finished"),
		),
		PauseAll: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Pause all"),
		),
		ResumeAll: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Resume all"),
		),
		Reload: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Reload"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search history"),
		),
		CycleFilter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle status filter"),
		),
		ClearHistory: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Clear history"),
		),

		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle"),
		),

		UpdateTools: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "Update yt-dlp"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewDownload, k.ViewQueue, k.ViewHistory, k.ViewSchedule, k.ViewLogs},
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.EditURL, k.Start, k.Cancel, k.Reset, k.CycleFormat, k.CycleQuality, k.FetchInfo, k.FetchSubtitles, k.EditFolder, k.PickCookies, k.OpenFolder, k.OpenFile},
		{k.Add, k.Remove, k.MoveUp, k.MoveDown, k.ClearCompleted, k.PauseAll, k.ResumeAll, k.Reload},
		{k.Search, k.CycleFilter, k.ClearHistory},
		{k.Toggle, k.UpdateTools, k.CycleTheme, k.Help, k.Quit},
	}
}
