package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/mediagrab/internal/history"
	"github.com/five82/mediagrab/internal/lifecycle"
	"github.com/five82/mediagrab/internal/model"
	"github.com/five82/mediagrab/internal/playlist"
	"github.com/five82/mediagrab/internal/preferences"
	"github.com/five82/mediagrab/internal/queue"
	"github.com/five82/mediagrab/internal/toolchain"
	"github.com/five82/mediagrab/internal/uistate"
)

// View represents the current active view.
type View int

const (
	ViewDownload View = iota
	ViewQueue
	ViewHistory
	ViewSchedule
	ViewLogs
)

var viewOrder = []View{ViewDownload, ViewQueue, ViewHistory, ViewSchedule, ViewLogs}

// viewNamed returns the view called name, or ViewDownload.
func viewNamed(name string) View {
	for _, v := range viewOrder {
		if v.String() == name {
			return v
		}
	}
	return ViewDownload
}

func (v View) String() string {
	switch v {
	case ViewQueue:
		return "Queue"
	case ViewHistory:
		return "History"
	case ViewSchedule:
		return "Schedule"
	case ViewLogs:
		return "Logs"
	default:
		return "Download"
	}
}

// inputMode is what the text input is currently collecting.
type inputMode int

const (
	inputNone inputMode = iota
	inputURL
	inputQueueURL
	inputSearch
)

// Options configures the UI.
type Options struct {
	Context     context.Context
	Queue       *queue.Store
	Preferences *preferences.Store
	History     *history.Store
	Downloads   *lifecycle.Coordinator
	Toolchain   *toolchain.Store
	// Playlists expands playlist URLs before they are queued. Nil queues
	// every URL as a single item.
	Playlists   *playlist.Expander
	ThemeName   string
	LogPath     string
	// StatePath is where the theme and last view are remembered between
	// runs. Empty disables it.
	StatePath   string
	RefreshTick time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	queue     *queue.Store
	prefs     *preferences.Store
	history   *history.Store
	downloads *lifecycle.Coordinator
	toolchain *toolchain.Store
	playlists *playlist.Expander
	logPath   string
	statePath string
	tick      time.Duration

	keys        keyMap
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Store snapshots, refreshed on every tick and change notification.
	queueState   queue.State
	historyState history.State
	prefState    preferences.State
	download     lifecycle.State
	tools        toolchain.State

	// Selection per view.
	cursor map[View]int

	input     textinput.Model
	inputMode inputMode

	historyQuery  string
	historyStatus string

	logViewport viewport.Model
	logLines    []string
	logFollow   bool
	logErr      error

	flash    string
	flashErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.RefreshTick
	if tick <= 0 {
		tick = defaultRefreshTick
	}

	ti := textinput.New()
	ti.CharLimit = 2048

	saved := uistate.Load(opts.StatePath)
	themeName := opts.ThemeName
	if saved.Theme != "" {
		themeName = saved.Theme
	}

	m := Model{
		ctx:         ctx,
		queue:       opts.Queue,
		prefs:       opts.Preferences,
		history:     opts.History,
		downloads:   opts.Downloads,
		toolchain:   opts.Toolchain,
		playlists:   opts.Playlists,
		logPath:     opts.LogPath,
		statePath:   opts.StatePath,
		tick:        tick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: viewNamed(saved.View),
		cursor:      make(map[View]int),
		input:       ti,
		logFollow:   true,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.tick), m.readLogsCmd())
}

// saveState remembers the theme and current view for the next run.
func (m Model) saveState() error {
	if m.statePath == "" {
		return nil
	}
	return uistate.Save(m.statePath, uistate.State{
		Theme: m.theme.Name,
		View:  m.currentView.String(),
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(m.contentWidth(), m.contentHeight())
		}
		m.ready = true
		m.resizeLogViewport()
		return m, nil

	case tickMsg:
		m.refresh()
		cmds := []tea.Cmd{tickCmd(m.tick)}
		if m.currentView == ViewLogs && m.logFollow {
			cmds = append(cmds, m.readLogsCmd())
		}
		return m, tea.Batch(cmds...)

	case refreshMsg:
		m.refresh()
		return m, nil

	case actionMsg:
		m.refresh()
		m.setFlash(msg)
		return m, nil

	case logsMsg:
		m.handleLogs(msg)
		return m, nil
	}

	if m.currentView == ViewLogs {
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// refresh copies every store snapshot into the model.
func (m *Model) refresh() {
	if m.queue != nil {
		m.queueState = m.queue.Snapshot()
	}
	if m.history != nil {
		m.historyState = m.history.Snapshot()
	}
	if m.prefs != nil {
		m.prefState = m.prefs.Snapshot()
	}
	if m.downloads != nil {
		m.download = m.downloads.Snapshot()
	}
	if m.toolchain != nil {
		m.tools = m.toolchain.Snapshot()
	}
	m.clampCursors()
}

func (m *Model) clampCursors() {
	counts := map[View]int{
		ViewQueue:    len(m.queueState.Items),
		ViewHistory:  len(m.filteredHistory()),
		ViewSchedule: len(m.prefState.Preferences.ScheduledDownloads),
	}
	for v, n := range counts {
		c := m.cursor[v]
		if c >= n {
			c = n - 1
		}
		if c < 0 {
			c = 0
		}
		m.cursor[v] = c
	}
}

func (m *Model) setFlash(msg actionMsg) {
	if msg.err != nil {
		m.flash = describeError(msg.note, msg.err)
		m.flashErr = true
		return
	}
	m.flash = msg.note
	m.flashErr = false
}

func (m Model) filteredHistory() []model.HistoryItem {
	return history.Filter(m.historyState.Items, m.historyQuery, m.historyStatus)
}

func (m *Model) switchView(v View) tea.Cmd {
	m.currentView = v
	if v == ViewLogs {
		return m.readLogsCmd()
	}
	return nil
}

func (m *Model) cycleView(delta int) tea.Cmd {
	idx := 0
	for i, v := range viewOrder {
		if v == m.currentView {
			idx = i
		}
	}
	idx = (idx + delta + len(viewOrder)) % len(viewOrder)
	return m.switchView(viewOrder[idx])
}

func (m *Model) openInput(mode inputMode, placeholder, value string) tea.Cmd {
	m.inputMode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.inputMode = inputNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m Model) contentWidth() int {
	if m.width < 10 {
		return 10
	}
	return m.width - 4
}

// contentHeight is the space between the header block and the footer.
func (m Model) contentHeight() int {
	h := m.height - 6
	if h < 3 {
		return 3
	}
	return h
}

func (m *Model) resizeLogViewport() {
	m.logViewport.Width = m.contentWidth()
	m.logViewport.Height = m.contentHeight()
	m.logViewport.SetContent(m.renderLogContent())
	if m.logFollow {
		m.logViewport.GotoBottom()
	}
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewQueue:
		return m.renderQueue()
	case ViewHistory:
		return m.renderHistory()
	case ViewSchedule:
		return m.renderSchedule()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderDownload()
	}
}

// Messages

type tickMsg time.Time

// refreshMsg is sent by store change notifications.
type refreshMsg struct{}

// actionMsg reports the outcome of a store operation.
type actionMsg struct {
	note string
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// action runs fn off the UI goroutine and reports note or the error.
func (m Model) action(note string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{note: note, err: fn(ctx)}
	}
}

// actionNote is action for operations that word their own result.
func (m Model) actionNote(fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		note, err := fn(ctx)
		return actionMsg{note: note, err: err}
	}
}

// enqueueCmd queues cfg, one item per entry when it names a playlist. note
// is shown when cfg turns out to be a single video.
func (m Model) enqueueCmd(cfg model.DownloadConfig, note string) tea.Cmd {
	q := m.queue
	if m.playlists == nil {
		return m.action(note, func(ctx context.Context) error {
			_, err := q.AddToQueue(ctx, cfg)
			return err
		})
	}
	playlists := m.playlists
	return m.actionNote(func(ctx context.Context) (string, error) {
		res, err := playlists.Enqueue(ctx, q, cfg)
		if err != nil {
			return "Queue", err
		}
		if res.Playlist == nil {
			return note, nil
		}
		return res.Summary(), nil
	})
}

// Run starts the Bubble Tea program. Store changes are pushed into the
// program as they happen; a slow tick covers anything missed.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))

	notify := func() { p.Send(refreshMsg{}) }
	if opts.Queue != nil {
		opts.Queue.OnChange(func(queue.State) { notify() })
	}
	if opts.History != nil {
		opts.History.OnChange(func(history.State) { notify() })
	}
	if opts.Preferences != nil {
		opts.Preferences.OnChange(func(preferences.State) { notify() })
	}
	if opts.Downloads != nil {
		opts.Downloads.OnChange(func(lifecycle.State) { notify() })
	}
	if opts.Toolchain != nil {
		opts.Toolchain.OnChange(func(toolchain.State) { notify() })
	}

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		if serr := fm.saveState(); serr != nil && err == nil {
			err = serr
		}
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
