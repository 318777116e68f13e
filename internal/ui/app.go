package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/logtail"
	"github.com/five82/belfry/internal/notify"
	"github.com/five82/belfry/internal/prefs"
	"github.com/five82/belfry/internal/state"
)

// Tab is one of the dashboard's content panes.
type Tab int

const (
	TabMelodies Tab = iota
	TabWeekly
	TabSpecial
	TabLog
)

var tabNames = [...]string{"melodies", "weekly", "special", "log"}
var tabTitles = [...]string{"Melodies", "Weekly", "Special", "Log"}

func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return tabNames[0]
	}
	return tabNames[t]
}

// ParseTab maps a saved tab name back to a Tab, defaulting to melodies.
func ParseTab(name string) Tab {
	for i, n := range tabNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return Tab(i)
		}
	}
	return TabMelodies
}

// Device is the direct control surface the dashboard drives.
type Device interface {
	StopMelody(ctx context.Context) error
	SetBells(ctx context.Context, enabled bool) (bool, error)
	EmergencyStop(ctx context.Context) error
	PlayMelody(ctx context.Context, id int) (device.Result, error)
}

// Collections is the entity cache as seen by the dashboard.
type Collections interface {
	Melodies() []device.Melody
	Weekly() []device.WeeklySchedule
	Special() []device.SpecialEvent
	MelodyLabel(index int) string
	LoadAll(ctx context.Context) error
	ToggleWeekly(ctx context.Context, id int) (bool, error)
	ToggleSpecial(ctx context.Context, id int) (bool, error)
}

// Refresher re-polls every status section once.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Device    Device
	Cache     Collections
	Store     *state.Store
	Poller    Refresher
	Feed      *notify.Feed
	Sink      notify.Sink // receives outcomes of direct device actions
	Logger    *log.Logger
	DeviceURL string
	LogPath   string
	Tick      time.Duration
	ThemeName string
	LastTab   string
	PrefsPath string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	device    Device
	cache     Collections
	store     *state.Store
	poller    Refresher
	feed      *notify.Feed
	sink      notify.Sink
	logger    *log.Logger
	deviceURL string
	logPath   string
	prefsPath string
	tick      time.Duration
	now       func() time.Time

	theme  Theme
	keys   keyMap
	help   help.Model
	table  table.Model
	logs   viewport.Model
	tab    Tab
	width  int
	height int
	ready  bool

	snapshot   state.Snapshot
	rowIDs     []int
	logMin     logtail.Level
	logEntries []logtail.Entry

	showHelp         bool
	confirmEmergency bool
	pending          int
}

// New creates the dashboard model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}
	sink := opts.Sink
	if sink == nil {
		sink = notify.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	theme := GetTheme(opts.ThemeName)
	tbl := table.New(table.WithFocused(true))
	tbl.SetStyles(theme.TableStyles())

	m := Model{
		ctx:       ctx,
		device:    opts.Device,
		cache:     opts.Cache,
		store:     opts.Store,
		poller:    opts.Poller,
		feed:      opts.Feed,
		sink:      sink,
		logger:    logger,
		deviceURL: opts.DeviceURL,
		logPath:   opts.LogPath,
		prefsPath: prefsPath,
		tick:      tick,
		now:       time.Now,
		theme:     theme,
		keys:      defaultKeyMap(),
		help:      help.New(),
		table:     tbl,
		logs:      viewport.New(0, 0),
		tab:       ParseTab(opts.LastTab),
		logMin:    logtail.LevelInfo,
	}
	m.rebuildTable()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.tab == TabLog {
		cmds = append(cmds, m.readLogCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.tick)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		if m.tab == TabLog {
			cmds = append(cmds, m.readLogCmd())
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case actionMsg:
		return m.handleAction(msg)

	case logMsg:
		if msg.err != nil {
			m.logger.Debug("read log tail failed", "err", msg.err)
			return m, nil
		}
		m.setLogLines(msg.lines)
		return m, nil
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
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	b.WriteString(m.renderToast())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.confirmEmergency {
		m.confirmEmergency = false
		if key.Matches(msg, m.keys.Confirm) {
			return m.startAction(m.emergencyStopCmd())
		}
		m.sink.Notify(notify.Info, "Emergency stop cancelled")
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.savePrefs()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.table.SetStyles(m.theme.TableStyles())
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab((m.tab + 1) % Tab(len(tabNames)))
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab((m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))
	case key.Matches(msg, m.keys.Melodies):
		return m.switchTab(TabMelodies)
	case key.Matches(msg, m.keys.Weekly):
		return m.switchTab(TabWeekly)
	case key.Matches(msg, m.keys.Special):
		return m.switchTab(TabSpecial)
	case key.Matches(msg, m.keys.Log):
		return m.switchTab(TabLog)

	case key.Matches(msg, m.keys.Stop):
		return m.startAction(m.stopCmd())
	case key.Matches(msg, m.keys.Bells):
		return m.startAction(m.bellsCmd(!m.snapshot.Status.BellsEnabled))
	case key.Matches(msg, m.keys.Emergency):
		m.confirmEmergency = true
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m.startAction(m.reloadCmd())
	}

	if m.tab == TabLog {
		if key.Matches(msg, m.keys.LogLevel) {
			m.logMin = nextLogLevel(m.logMin)
			return m, m.readLogCmd()
		}
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Play):
		if m.tab != TabMelodies {
			return m, nil
		}
		id, ok := m.selectedID()
		if !ok {
			return m, nil
		}
		return m.startAction(m.playCmd(id))
	case key.Matches(msg, m.keys.Toggle):
		id, ok := m.selectedID()
		if !ok || m.tab == TabMelodies {
			return m, nil
		}
		return m.startAction(m.toggleCmd(m.tab, id))
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) switchTab(tab Tab) (tea.Model, tea.Cmd) {
	m.tab = tab
	m.rebuildTable()
	if tab == TabLog {
		return m, m.readLogCmd()
	}
	return m, nil
}

func (m Model) startAction(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.pending++
	return m, cmd
}

func (m Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	if m.pending > 0 {
		m.pending--
	}
	if msg.err != nil {
		if !msg.notified {
			m.sink.Notify(notify.Error, msg.label+" failed: "+device.UserMessage(msg.err))
		}
	} else if msg.text != "" && !msg.notified {
		m.sink.Notify(notify.Success, msg.text)
	}
	if msg.bells != nil && m.store != nil {
		m.store.SetBellsEnabled(*msg.bells)
	}
	m.rebuildTable()
	if m.store != nil {
		return m, fetchSnapshotCmd(m.store)
	}
	return m, nil
}

func (m *Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, LastTab: m.tab.String()}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save preferences failed", "err", err)
	}
}

func (m *Model) resize() {
	body := m.bodyHeight()
	m.table.SetWidth(m.width)
	m.table.SetHeight(body)
	m.logs.Width = m.width
	m.logs.Height = body
	m.help.Width = m.width
	m.rebuildTable()
}

func (m Model) bodyHeight() int {
	h := m.height - chromeLines
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) selectedID() (int, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rowIDs) {
		return 0, false
	}
	return m.rowIDs[i], true
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type actionMsg struct {
	label    string
	text     string
	err      error
	bells    *bool
	notified bool // the cache already reported the outcome
}

type logMsg struct {
	lines []string
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
