// Package tui implements the interactive menu shown when the tool is
// started without arguments.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Action is one main-menu entry. On-screen numbering follows
// declaration order.
type Action int

const (
	ActionInstall Action = iota
	ActionPreflight
	ActionRuntimes
	ActionLaunch
	ActionBackups
	ActionResetConfig
	ActionQuit
)

// actionLabels in declaration order.
var actionLabels = []string{
	"Install the launcher (full provisioning)",
	"Check host preflight",
	"Manage runtimes",
	"Launch",
	"Backups",
	"Reset configuration",
	"Quit",
}

// Label returns the menu text for an action.
func (a Action) Label() string {
	if int(a) < 0 || int(a) >= len(actionLabels) {
		return "unknown"
	}
	return actionLabels[a]
}

// Menu is the main-menu model. It quits once an action is chosen.
type Menu struct {
	keys   *KeyMap
	cursor int
	choice Action
	chosen bool
	width  int
}

// NewMenu creates the main menu.
func NewMenu() Menu {
	return Menu{keys: NewKeyMap(""), choice: ActionQuit, width: 80}
}

// Choice returns the selected action; valid after the program exits.
func (m Menu) Choice() Action {
	return m.choice
}

// Chosen reports whether the operator picked an entry rather than
// quitting outright.
func (m Menu) Chosen() bool {
	return m.chosen
}

// Init implements tea.Model.
func (m Menu) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.keys.IsQuit(msg) || m.keys.IsCancel(msg):
			m.choice = ActionQuit
			m.chosen = false
			return m, tea.Quit

		case m.keys.IsUp(msg):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case m.keys.IsDown(msg):
			if m.cursor < len(actionLabels)-1 {
				m.cursor++
			}
			return m, nil

		case m.keys.IsConfirm(msg):
			m.choice = Action(m.cursor)
			m.chosen = m.choice != ActionQuit
			return m, tea.Quit
		}

		// Direct digit selection: 1-based, declaration order.
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && int(s[0]-'1') < len(actionLabels) {
			m.choice = Action(s[0] - '1')
			m.chosen = m.choice != ActionQuit
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Menu) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)
	itemStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)

	out := titleStyle.Render("azeroth-winebar") + "\n"
	for i, label := range actionLabels {
		line := fmt.Sprintf("  %d. %s", i+1, label)
		if i == m.cursor {
			line = selectedStyle.Render("> " + line[2:])
		} else {
			line = itemStyle.Render(line)
		}
		out += line + "\n"
	}
	return out + footerStyle.Render(m.keys.NavigationHelp())
}

// RunMenu shows the menu and returns the chosen action. A plain quit
// returns ActionQuit with chosen=false.
func RunMenu() (Action, bool, error) {
	p := tea.NewProgram(NewMenu())
	model, err := p.Run()
	if err != nil {
		return ActionQuit, false, err
	}
	m := model.(Menu)
	return m.Choice(), m.Chosen(), nil
}
