// Package monitor implements the terminal dashboard using BubbleTea: current
// reading cards coloured by band, history sparklines and the alert line.
package monitor

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ntentasd/colmena-telemetry/internal/dashboard"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
)

const clockInterval = time.Second

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type stateMsg types.DashboardState

type closedMsg struct{}

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the hive monitor.
type Model struct {
	states    <-chan types.DashboardState
	label     string
	view      dashboard.View
	hasState  bool
	closed    bool
	paused    bool
	width     int
	height    int
	lastState time.Time
	now       time.Time
}

// New creates a monitor fed by states. label names where the states come
// from and is shown in the title bar.
func New(states <-chan types.DashboardState, label string) Model {
	return Model{
		states: states,
		label:  label,
		view:   dashboard.NewView(types.DashboardState{Loading: true}),
		now:    time.Now(),
	}
}

// ── Commands ─────────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForState(ch <-chan types.DashboardState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return stateMsg(st)
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.states), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()

	case stateMsg:
		// The channel is drained while paused so the feed never stalls.
		if !m.paused {
			m.view = dashboard.NewView(types.DashboardState(msg))
			m.hasState = true
			m.lastState = time.Now()
		}
		return m, waitForState(m.states)

	case closedMsg:
		m.closed = true
	}

	return m, nil
}
