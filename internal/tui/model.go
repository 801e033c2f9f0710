// Package tui is a terminal front end for a voice session: space starts
// and stops a turn, r resets, n starts a new chat.
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-voiceloop/pkg/session"
)

// Controller is the session surface the terminal drives.
type Controller interface {
	Snapshot() session.Snapshot
	OnChange(fn func(session.Snapshot))
	Initialize(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reset() error
	NewChat() error
}

var _ Controller = (*session.Orchestrator)(nil)

// Model is the root bubbletea model.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	changed chan struct{}

	snap    session.Snapshot
	initing bool
	notice  string

	width  int
	height int
}

// New creates a model and subscribes it to session changes. ctx bounds
// the turns started from the keyboard.
func New(ctx context.Context, ctrl Controller) Model {
	changed := make(chan struct{}, 1)
	ctrl.OnChange(func(session.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		changed: changed,
		snap:    ctrl.Snapshot(),
	}
}

// Init starts initialization when needed and begins watching the session.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChange(m.ctrl, m.changed)}
	if !m.snap.Initialized {
		cmds = append(cmds, initializeCmd(m.ctx, m.ctrl))
	}
	return tea.Batch(cmds...)
}

// waitForChange blocks until the session publishes a change and then
// reads the latest snapshot. Bursts of changes collapse into one message.
func waitForChange(ctrl Controller, changed <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changed
		return SnapshotMsg{Snapshot: ctrl.Snapshot()}
	}
}

func initializeCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return InitializedMsg{Err: ctrl.Initialize(ctx)}
	}
}

func actionCmd(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return ActionMsg{Action: action, Err: fn()}
	}
}

// Update handles keys and session messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SnapshotMsg:
		m.snap = msg.Snapshot
		return m, waitForChange(m.ctrl, m.changed)

	case InitializedMsg:
		m.initing = false
		m.snap = m.ctrl.Snapshot()
		if msg.Err != nil {
			m.notice = "initialization failed, press r to retry"
		} else {
			m.notice = ""
		}
		return m, nil

	case ActionMsg:
		m.snap = m.ctrl.Snapshot()
		switch {
		case msg.Err != nil:
			m.notice = msg.Action + ": " + msg.Err.Error()
		case msg.Action == "reset" && !m.snap.Initialized:
			m.initing = true
			m.notice = ""
			return m, initializeCmd(m.ctx, m.ctrl)
		default:
			m.notice = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit

	case KeySpace:
		switch m.snap.State {
		case session.StateIdle:
			return m, actionCmd("start", func() error { return m.ctrl.Start(m.ctx) })
		case session.StateRecording:
			return m, actionCmd("stop", func() error { return m.ctrl.Stop(m.ctx) })
		}
		return m, nil

	case KeyReset:
		return m, actionCmd("reset", m.ctrl.Reset)

	case KeyNewChat:
		return m, actionCmd("new chat", m.ctrl.NewChat)
	}
	return m, nil
}

// View renders the session.
func (m Model) View() string {
	var b strings.Builder

	state := string(m.snap.State)
	b.WriteString(titleStyle.Render("VOICELOOP"))
	b.WriteString("  ")
	b.WriteString(stateStyle(state).Render("● " + strings.ToUpper(state)))
	if m.initing || !m.snap.Initialized {
		b.WriteString(dimStyle.Render("  initializing..."))
	}
	b.WriteString("\n\n")

	body := lipgloss.JoinVertical(lipgloss.Left,
		row("You", orDash(m.snap.Transcript), lipgloss.NewStyle()),
		row("Assistant", orDash(m.snap.Reply), replyStyle),
		row("Timings", m.timings(), dimStyle),
	)
	box := boxStyle
	if m.width > 4 {
		box = box.Width(m.width - 2)
	}
	b.WriteString(box.Render(body))
	b.WriteString("\n")

	if m.snap.Error != "" {
		b.WriteString(errorStyle.Render("error: " + m.snap.Error))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(dimStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(m.help()))
	return b.String()
}

func (m Model) timings() string {
	if m.snap.Times == nil {
		return "-"
	}
	return m.snap.Times.String()
}

func (m Model) help() string {
	switch m.snap.State {
	case session.StateRecording:
		return "space stop · r reset · q quit"
	case session.StateIdle:
		return "space talk · n new chat · q quit"
	default:
		return "r reset · q quit"
	}
}

func row(label, value string, style lipgloss.Style) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), style.Render(value))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
