// Package tui is the interactive terminal front end for the dashboard.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jaxxstorm/dnsdash/internal/dashboard"
	"github.com/jaxxstorm/dnsdash/internal/model"
	"github.com/jaxxstorm/dnsdash/internal/output"
)

// Controller is the part of the dashboard controller the UI drives.
type Controller interface {
	ToggleDNSSEC() error
	StartAttack() error
	StopAttack() error
	ClearCache() error
	LoadDig() error
	SetTab(tab model.Tab) error
	Refresh() error
}

var (
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const help = "d toggle dnssec · a start attack · s stop attack · c clear cache · g dig · 1-4 tabs · r refresh · q quit"

type Model struct {
	controller Controller
	updates    <-chan dashboard.State
	state      dashboard.State
	ready      bool
	err        error
	width      int
}

func New(controller Controller, updates <-chan dashboard.State) Model {
	return Model{controller: controller, updates: updates}
}

func (m Model) Init() tea.Cmd {
	return waitForState(m.updates)
}

func waitForState(updates <-chan dashboard.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return ClosedMsg{}
		}
		return StateMsg{State: s}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		m.state = msg.State
		m.ready = true
		return m, waitForState(m.updates)
	case ClosedMsg:
		return m, tea.Quit
	case ActionErrMsg:
		m.err = msg.Err
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var action func() error
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "d":
		action = m.controller.ToggleDNSSEC
	case "a":
		action = m.controller.StartAttack
	case "s":
		action = m.controller.StopAttack
	case "c":
		action = m.controller.ClearCache
	case "g":
		action = m.controller.LoadDig
	case "r":
		action = m.controller.Refresh
	case "1", "2", "3", "4":
		tab := model.Tabs[int(key[0]-'1')]
		action = func() error { return m.controller.SetTab(tab) }
	default:
		return m, nil
	}
	return m, func() tea.Msg {
		if err := action(); err != nil {
			return ActionErrMsg{Err: err}
		}
		return nil
	}
}

func (m Model) View() string {
	if !m.ready {
		return "connecting to lab backend...\n"
	}
	var b strings.Builder
	b.WriteString(output.RenderPretty(m.state))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	style := helpStyle
	if m.width > 0 {
		style = style.Width(m.width)
	}
	b.WriteString(style.Render(help))
	b.WriteString("\n")
	return b.String()
}
