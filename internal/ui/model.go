// Package ui provides the Bubbletea terminal dashboard for agc: it renders
// the live StatusSnapshot stream and turns keystrokes into loop.UserEvents.
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/agc/internal/loop"
)

// Dashboard bridges the core loop's StatusSink/UserInput interfaces to a
// running Bubbletea program. The loop publishes snapshots and reads events
// through this type; the Bubbletea Model reads/writes the same channels.
type Dashboard struct {
	snapshots chan loop.StatusSnapshot
	events    chan loop.UserEvent
}

// NewDashboard creates a Dashboard with buffered channels so Publish never
// blocks the core loop on a slow terminal.
func NewDashboard() *Dashboard {
	return &Dashboard{
		snapshots: make(chan loop.StatusSnapshot, 16),
		events:    make(chan loop.UserEvent, 8),
	}
}

// Publish implements loop.StatusSink.
func (d *Dashboard) Publish(s loop.StatusSnapshot) {
	select {
	case d.snapshots <- s:
	default:
		// Drop the oldest pending snapshot rather than block the loop.
		select {
		case <-d.snapshots:
		default:
		}
		d.snapshots <- s
	}
}

// Events implements loop.UserInput.
func (d *Dashboard) Events() <-chan loop.UserEvent { return d.events }

// Model is the Bubbletea model that renders snapshots from a Dashboard.
type Model struct {
	dashboard *Dashboard

	snapshot  loop.StatusSnapshot
	hasSnap   bool
	startTime time.Time
	quitting  bool
	loopErr   error

	width, height int
}

// NewModel creates the dashboard model bound to d.
func NewModel(d *Dashboard) Model {
	return Model{dashboard: d, startTime: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.dashboard.snapshots)
}

func waitForSnapshot(ch <-chan loop.StatusSnapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return LoopStoppedMsg{}
		}
		return SnapshotMsg(s)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			nonBlockingSend(m.dashboard.events, loop.Quit)
			return m, tea.Quit
		case "up", "k":
			nonBlockingSend(m.dashboard.events, loop.VolumeUp)
		case "down", "j":
			nonBlockingSend(m.dashboard.events, loop.VolumeDown)
		case "+", "=":
			nonBlockingSend(m.dashboard.events, loop.BaselineUp)
		case "-", "_":
			nonBlockingSend(m.dashboard.events, loop.BaselineDown)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case SnapshotMsg:
		m.snapshot = loop.StatusSnapshot(msg)
		m.hasSnap = true
		return m, waitForSnapshot(m.dashboard.snapshots)

	case LoopStoppedMsg:
		m.quitting = true
		m.loopErr = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func nonBlockingSend(ch chan<- loop.UserEvent, ev loop.UserEvent) {
	select {
	case ch <- ev:
	default:
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Starting agc...\n"
	}
	if !m.hasSnap {
		return renderWaiting(m)
	}
	return renderDashboard(m)
}

// Elapsed returns how long the dashboard has been running.
func (m Model) Elapsed() time.Duration { return time.Since(m.startTime) }

// Snapshot exposes the last received snapshot, for callers outside the
// Bubbletea loop (e.g. a final summary printed after p.Run returns).
func (m Model) Snapshot() (loop.StatusSnapshot, bool) { return m.snapshot, m.hasSnap }

func fmtSeconds(s float64) string {
	if s <= 0 {
		return "0s"
	}
	return fmt.Sprintf("%.0fs", s)
}
