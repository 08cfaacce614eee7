package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/notebook/internal/filesync"
	"github.com/five82/notebook/internal/logtail"
	"github.com/five82/notebook/internal/notes"
	"github.com/five82/notebook/internal/prefs"
	"github.com/five82/notebook/internal/state"
)

// Controller is the sync session as seen by the UI.
type Controller interface {
	Status() state.SyncStatus
	Capabilities() filesync.Capabilities
	Setup(ctx context.Context, opts filesync.SetupOptions) bool
	ManualSync(ctx context.Context) (filesync.PassResult, error)
	Pause() bool
	Resume(ctx context.Context) bool
	Disable()
	Reset()
	Export(ctx context.Context, picker filesync.DirectoryPicker) (int, error)
}

// NotesSource supplies the collections shown in the summary panel.
type NotesSource interface {
	Snapshot() notes.Snapshot
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	Controller  Controller
	Notes       NotesSource
	Prefs       prefs.KV
	Picker      *Picker
	LogPath     string
	SyncDir     string
	RefreshTick time.Duration
	ThemeName   string
}

const (
	defaultRefreshTick = time.Second
	logTailLines       = 200
)

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	notes   NotesSource
	prefs   prefs.KV
	picker  *Picker
	logPath string
	syncDir string
	tick    time.Duration

	theme  Theme
	width  int
	height int
	ready  bool

	status   state.SyncStatus
	caps     filesync.Capabilities
	snapshot notes.Snapshot
	logs     []logtail.Entry

	busy       bool
	message    string
	messageErr bool
	showHelp   bool

	picking *pickState
	logView viewport.Model
}

type pickState struct {
	purpose filesync.Purpose
	input   textinput.Model
	reply   chan pickReply
}

type (
	tickMsg    time.Time
	refreshMsg struct {
		status   state.SyncStatus
		caps     filesync.Capabilities
		snapshot notes.Snapshot
		logs     []logtail.Entry
	}
	actionMsg struct {
		text   string
		failed bool
	}
)

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
	themeName := opts.ThemeName
	if themeName == "" && opts.Prefs != nil {
		themeName = prefs.Theme(opts.Prefs)
	}
	return Model{
		ctx:     ctx,
		ctrl:    opts.Controller,
		notes:   opts.Notes,
		prefs:   opts.Prefs,
		picker:  opts.Picker,
		logPath: opts.LogPath,
		syncDir: opts.SyncDir,
		tick:    tick,
		theme:   GetTheme(themeName),
		logView: viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), tickCmd(m.tick))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layoutLogs()
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(), tickCmd(m.tick))

	case refreshMsg:
		m.status = msg.status
		m.caps = msg.caps
		m.snapshot = msg.snapshot
		follow := m.logView.AtBottom()
		m.logs = msg.logs
		m.logView.SetContent(m.renderLogLines())
		if follow {
			m.logView.GotoBottom()
		}
		return m, nil

	case actionMsg:
		m.busy = false
		m.message = msg.text
		m.messageErr = msg.failed
		return m, m.refreshCmd()

	case pickRequestMsg:
		return m.openPicker(msg)

	case tea.KeyMsg:
		if m.picking != nil {
			return m.handlePickerKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case m.showHelp && key.Matches(msg, keys.Cancel):
		m.showHelp = false
		return m, nil
	case key.Matches(msg, keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefs != nil {
			_ = m.prefs.Set(prefs.KeyTheme, m.theme.Name)
		}
		m.logView.SetContent(m.renderLogLines())
		return m, nil
	case key.Matches(msg, keys.Up):
		m.logView.LineUp(1)
		return m, nil
	case key.Matches(msg, keys.Down):
		m.logView.LineDown(1)
		return m, nil
	case key.Matches(msg, keys.PageUp):
		m.logView.HalfViewUp()
		return m, nil
	case key.Matches(msg, keys.PageDown):
		m.logView.HalfViewDown()
		return m, nil
	}

	if m.busy || m.ctrl == nil {
		return m, nil
	}
	var cmd tea.Cmd
	switch {
	case key.Matches(msg, keys.Setup):
		cmd = m.setupCmd(false)
	case key.Matches(msg, keys.SetupManual):
		cmd = m.setupCmd(true)
	case key.Matches(msg, keys.Sync):
		cmd = m.syncCmd()
	case key.Matches(msg, keys.TogglePause):
		cmd = m.togglePauseCmd()
	case key.Matches(msg, keys.Disable):
		cmd = m.simpleCmd(m.ctrl.Disable, "Sync disabled")
	case key.Matches(msg, keys.Reset):
		cmd = m.simpleCmd(m.ctrl.Reset, "Sync reset. Press a to set it up again")
	case key.Matches(msg, keys.Export):
		cmd = m.exportCmd()
	}
	if cmd != nil {
		m.busy = true
		m.message = ""
	}
	return m, cmd
}

func (m Model) openPicker(msg pickRequestMsg) (tea.Model, tea.Cmd) {
	if m.picking != nil {
		msg.reply <- pickReply{canceled: true}
		return m, nil
	}
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "~/Documents/notes"
	in.CharLimit = 4096
	in.Width = max(20, m.width/2)
	m.picking = &pickState{purpose: msg.purpose, input: in, reply: msg.reply}
	return m, m.picking.input.Focus()
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Confirm):
		m.picking.reply <- pickReply{path: m.picking.input.Value()}
		m.picking = nil
		return m, nil
	case key.Matches(msg, keys.Cancel), msg.Type == tea.KeyCtrlC:
		m.picking.reply <- pickReply{canceled: true}
		m.picking = nil
		return m, nil
	}
	var cmd tea.Cmd
	m.picking.input, cmd = m.picking.input.Update(msg)
	return m, cmd
}

func (m Model) setupCmd(forceManual bool) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		if ctrl.Setup(ctx, filesync.SetupOptions{ForceManual: forceManual}) {
			return actionMsg{text: "Sync directory ready"}
		}
		if st := ctrl.Status(); st.Error != "" {
			return actionMsg{text: st.Error, failed: true}
		}
		return actionMsg{text: "Setup canceled"}
	}
}

func (m Model) syncCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		res, err := ctrl.ManualSync(ctx)
		switch {
		case errors.Is(err, filesync.ErrNotSetup):
			return actionMsg{text: "Sync is not set up. Press a to set it up", failed: true}
		case err != nil:
			return actionMsg{text: err.Error(), failed: true}
		case res.Failed > 0:
			return actionMsg{text: fmt.Sprintf("Synced %d files, %d failed", res.Written, res.Failed), failed: true}
		default:
			return actionMsg{text: fmt.Sprintf("Synced %d files", res.Written)}
		}
	}
}

func (m Model) togglePauseCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	paused := m.status.State == state.StatePaused
	return func() tea.Msg {
		if paused {
			if ctrl.Resume(ctx) {
				return actionMsg{text: "Sync resumed"}
			}
			return actionMsg{text: "Could not resume sync", failed: true}
		}
		if ctrl.Pause() {
			return actionMsg{text: "Sync paused"}
		}
		return actionMsg{text: "Sync is not set up", failed: true}
	}
}

func (m Model) simpleCmd(fn func(), text string) tea.Cmd {
	return func() tea.Msg {
		fn()
		return actionMsg{text: text}
	}
}

func (m Model) exportCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	var picker filesync.DirectoryPicker
	if m.picker != nil {
		picker = m.picker
	}
	return func() tea.Msg {
		n, err := ctrl.Export(ctx, picker)
		switch {
		case errors.Is(err, filesync.ErrPickCanceled):
			return actionMsg{text: "Export canceled"}
		case errors.Is(err, filesync.ErrNotSandboxed):
			return actionMsg{text: "Export is only available for the private notes folder", failed: true}
		case err != nil:
			return actionMsg{text: fmt.Sprintf("Exported %d files: %v", n, err), failed: true}
		default:
			return actionMsg{text: fmt.Sprintf("Exported %d files", n)}
		}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctrl, src, logPath := m.ctrl, m.notes, m.logPath
	return func() tea.Msg {
		var msg refreshMsg
		if ctrl != nil {
			msg.status = ctrl.Status()
			msg.caps = ctrl.Capabilities()
		} else {
			msg.status = state.DefaultStatus()
		}
		if src != nil {
			msg.snapshot = src.Snapshot()
		}
		if logPath != "" {
			entries, err := logtail.ReadEntries(logPath, logTailLines)
			if err == nil {
				msg.logs = entries
			}
		}
		return msg
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) layoutLogs() {
	// header, status line, message line, summary block and command bar
	reserved := 6 + m.summaryHeight()
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	m.logView.Width = max(10, m.width-4)
	m.logView.Height = h
	m.logView.SetContent(m.renderLogLines())
}
