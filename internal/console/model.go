// Package console is a terminal client for a running confirmscout server. It
// follows the websocket feed and sends click, scroll and cancel commands.
package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GriffinCanCode/confirmscout/internal/activity"
	"github.com/GriffinCanCode/confirmscout/internal/monitor"
	"github.com/GriffinCanCode/confirmscout/internal/server"
)

const (
	maxActivity  = 200
	sendTimeout  = 5 * time.Second
	fixedRows    = 16 // header, status panel, help bar
	minLogRows   = 3
	defaultWidth = 80
)

// serverMsg carries one decoded server message into Update.
type serverMsg struct{ msg any }

// disconnectedMsg ends the session.
type disconnectedMsg struct{ err error }

// sentMsg reports the outcome of a command write.
type sentMsg struct {
	cmd string
	err error
}

// Model is the bubbletea model of the console.
type Model struct {
	ctx  context.Context
	conn Conn

	status    monitor.Status
	detection *monitor.Detection
	scroll    *monitor.ScrollProgress
	activity  []activity.Entry
	notice    string
	lastErr   string

	connected bool
	width     int
	height    int
}

// NewModel creates a model reading from conn.
func NewModel(ctx context.Context, conn Conn) Model {
	return Model{ctx: ctx, conn: conn, connected: true, width: defaultWidth}
}

// Init starts listening.
func (m Model) Init() tea.Cmd {
	return m.listen()
}

func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		msg, err := m.conn.Next(m.ctx)
		if err != nil {
			return disconnectedMsg{err: err}
		}
		return serverMsg{msg: msg}
	}
}

func (m Model) send(cmd string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, sendTimeout)
		defer cancel()
		return sentMsg{cmd: cmd, err: m.conn.Send(ctx, cmd)}
	}
}

// Update handles keys and server messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case serverMsg:
		m.apply(msg.msg)
		return m, m.listen()

	case sentMsg:
		if msg.err != nil {
			m.lastErr = fmt.Sprintf("%s: %v", msg.cmd, msg.err)
		}
		return m, nil

	case disconnectedMsg:
		m.connected = false
		if msg.err != nil {
			m.lastErr = "disconnected: " + msg.err.Error()
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.connected {
		return m, tea.Quit
	}
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Click):
		return m, m.send(server.CmdClick)
	case key.Matches(msg, keys.Scroll):
		return m, m.send(server.CmdScroll)
	case key.Matches(msg, keys.Cancel):
		return m, m.send(server.CmdCancel)
	case key.Matches(msg, keys.Toggle):
		if m.status.Monitoring {
			return m, m.send(server.CmdStop)
		}
		return m, m.send(server.CmdStart)
	case key.Matches(msg, keys.Status):
		return m, m.send(server.CmdStatus)
	}
	return m, nil
}

func (m *Model) apply(msg any) {
	switch msg := msg.(type) {
	case *server.HelloMessage:
		m.setStatus(msg.Status)
		m.activity = append(m.activity[:0], msg.Activity...)
	case *server.StatusMessage:
		m.setStatus(msg.Status)
	case *server.ActivityMessage:
		m.activity = append(m.activity, msg.Entry)
		if len(m.activity) > maxActivity {
			m.activity = m.activity[len(m.activity)-maxActivity:]
		}
	case *server.ClickedMessage:
		m.notice = fmt.Sprintf("clicked %q at (%d, %d)", msg.Detection.Text, msg.Detection.ScreenX, msg.Detection.ScreenY)
		m.lastErr = ""
	case *server.AckMessage:
		m.notice = msg.Command + " ok"
		m.lastErr = ""
	case *server.ErrorMessage:
		m.lastErr = msg.Message
		if msg.Command != "" {
			m.lastErr = msg.Command + ": " + msg.Message
		}
	case *monitor.Event:
		switch msg.Type {
		case monitor.EventStable:
			m.detection = msg.Detection
		case monitor.EventScroll:
			m.scroll = msg.Scroll
		}
	}
}

func (m *Model) setStatus(s monitor.Status) {
	m.status = s
	m.detection = s.Detection
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder

	state := okStyle.Render("connected")
	if !m.connected {
		state = errorStyle.Render("disconnected")
	}
	b.WriteString(titleStyle.Render("ConfirmScout") + "  " + state + "\n\n")

	b.WriteString(panelStyle.Width(m.panelWidth()).Render(m.statusView()))
	b.WriteString("\n")

	if m.lastErr != "" {
		b.WriteString(errorStyle.Render(m.lastErr) + "\n")
	} else if m.notice != "" {
		b.WriteString(mutedStyle.Render(m.notice) + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("Activity") + "\n")
	for _, e := range m.visibleActivity() {
		b.WriteString(m.activityLine(e) + "\n")
	}

	b.WriteString(helpStyle.Render(keys.helpLine()))
	return b.String()
}

func (m Model) panelWidth() int {
	if m.width <= 4 {
		return defaultWidth - 4
	}
	return m.width - 4
}

func (m Model) statusView() string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
	}

	target := mutedStyle.Render("none")
	if !m.status.Target.Zero() {
		target = fmt.Sprintf("%s (pid %d)", m.status.Target.Title, m.status.Target.PID)
	}

	monitoring := mutedStyle.Render("stopped")
	if m.status.Monitoring {
		monitoring = okStyle.Render("running")
	}

	detection := mutedStyle.Render("none")
	if d := m.detection; d != nil {
		detection = okStyle.Render(fmt.Sprintf("%q at (%d, %d)  conf %.2f", d.Text, d.ScreenX, d.ScreenY, d.Confidence))
	}

	scroll := mutedStyle.Render("idle")
	if s := m.scroll; s != nil {
		scroll = fmt.Sprintf("%s %d/%d", s.State, s.Step, s.Max)
	} else if m.status.Scroll != "" {
		scroll = m.status.Scroll
	}

	rows := []string{
		row("Target", target),
		row("Monitoring", monitoring),
		row("Detection", detection),
		row("Tracked", fmt.Sprintf("%d", len(m.status.Tracked))),
		row("Scroll", scroll),
		row("Frames", fmt.Sprintf("%d (%d dropped)", m.status.Frames, m.status.FramesDropped)),
	}
	if m.status.Breaker != "" {
		breaker := m.status.Breaker
		if breaker != "closed" {
			breaker = warnStyle.Render(breaker)
		}
		rows = append(rows, row("Recognizer", breaker))
	}
	return strings.Join(rows, "\n")
}

func (m Model) visibleActivity() []activity.Entry {
	n := minLogRows
	if m.height > fixedRows+minLogRows {
		n = m.height - fixedRows
	}
	if n > len(m.activity) {
		n = len(m.activity)
	}
	return m.activity[len(m.activity)-n:]
}

func (m Model) activityLine(e activity.Entry) string {
	line := e.String()
	switch e.Level {
	case activity.Warn:
		return warnStyle.Render(line)
	case activity.Action:
		return okStyle.Render(line)
	}
	return line
}

// Run dials addr and runs the console until the user quits or the server
// goes away.
func Run(ctx context.Context, addr string) error {
	c, err := Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	p := tea.NewProgram(NewModel(ctx, c), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
