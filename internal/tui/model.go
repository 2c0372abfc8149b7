// Package tui is the interactive foreground: a bubbletea program that
// redraws the run status and the newest log records on a fixed tick.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xkilldash9x/courier-cli/internal/console"
	"github.com/xkilldash9x/courier-cli/internal/dispatch"
	"github.com/xkilldash9x/courier-cli/internal/relay"
)

// Runner is the subset of dispatch.Controller the model drives.
type Runner interface {
	Start(ctx context.Context, job dispatch.Job, rawCredentials string) error
	Stop() bool
	Running() bool
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	idleStyle   = lipgloss.NewStyle().Faint(true)
	helpStyle   = lipgloss.NewStyle().Faint(true)
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type tickMsg time.Time

// Options configures a Model.
type Options struct {
	Job            dispatch.Job
	RawCredentials string
	RedrawInterval time.Duration
	DisplaySize    int
	// AutoStart begins the run as soon as the program starts.
	AutoStart bool
}

// Model is the bubbletea model.
type Model struct {
	ctx     context.Context
	runner  Runner
	relay   *relay.Relay
	history *relay.History
	opts    Options

	viewport viewport.Model
	// active follows the run from a successful Start until the sentinel is
	// drained.
	active   bool
	quitting bool
	status   string
	width    int
	height   int
}

// New builds a model. ctx is handed to the worker on start.
func New(ctx context.Context, runner Runner, rl *relay.Relay, history *relay.History, opts Options) Model {
	if opts.RedrawInterval <= 0 {
		opts.RedrawInterval = time.Second
	}
	if opts.DisplaySize <= 0 {
		opts.DisplaySize = relay.DefaultDisplaySize
	}
	return Model{
		ctx:      ctx,
		runner:   runner,
		relay:    rl,
		history:  history,
		opts:     opts,
		viewport: viewport.New(80, 20),
		status:   "idle",
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.RedrawInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	if m.opts.AutoStart {
		return tea.Batch(m.tick(), func() tea.Msg { return startMsg{} })
	}
	return m.tick()
}

type startMsg struct{}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = max(msg.Width-4, 20)
		m.viewport.Height = max(msg.Height-8, 5)
		m.refresh()
		return m, nil

	case tickMsg:
		m.drain()
		if m.quitting && !m.active {
			return m, tea.Quit
		}
		return m, m.tick()

	case startMsg:
		m.start()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "r":
			m.start()
		case "s":
			if m.active && m.runner.Stop() {
				m.status = "stopping"
			}
		case "c":
			if !m.active {
				m.history.Clear()
				m.refresh()
			}
		case "q", "ctrl+c":
			m.quitting = true
			if !m.active {
				return m, tea.Quit
			}
			m.runner.Stop()
			m.status = "stopping"
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// start is only honored while no run is active.
func (m *Model) start() {
	if m.active {
		return
	}
	if err := m.runner.Start(m.ctx, m.opts.Job, m.opts.RawCredentials); err != nil {
		m.status = "error: " + err.Error()
		return
	}
	m.active = true
	m.status = "running"
}

// drain moves pending records into the history. The sentinel ends the run
// from the model's point of view even if the shared flag has not caught up.
func (m *Model) drain() {
	records := m.relay.Drain()
	if len(records) == 0 {
		return
	}
	m.history.Append(records...)
	for _, rec := range records {
		if rec.IsDone() {
			m.active = false
			m.status = "finished"
		}
	}
	m.refresh()
}

func (m *Model) refresh() {
	var b strings.Builder
	for _, rec := range m.history.Recent(m.opts.DisplaySize) {
		if rec.IsDone() {
			continue
		}
		b.WriteString(console.Render(rec))
		b.WriteByte('\n')
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
}

func (m Model) View() string {
	if m.quitting && !m.active {
		return ""
	}
	job := m.opts.Job
	header := titleStyle.Render("courier") + fmt.Sprintf("  thread %s · %d messages · delay %s",
		job.ThreadID, len(job.Messages), job.Delay)

	status := idleStyle.Render(m.status)
	if m.active {
		status = activeStyle.Render("● " + m.status)
	}

	help := "enter start · s stop · c clear · q quit"
	if m.active {
		help = "s stop · q stop and quit"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		status,
		frameStyle.Render(m.viewport.View()),
		helpStyle.Render(help),
	)
}

// Active reports whether the model considers a run in progress.
func (m Model) Active() bool { return m.active }

// Status returns the status line text.
func (m Model) Status() string { return m.status }
