package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PathPrompt asks the operator for a filesystem path.
type PathPrompt struct {
	keys      *KeyMap
	input     textinput.Model
	title     string
	cancelled bool
}

// NewPathPrompt creates a prompt with a title line and a placeholder
// shown in the empty input.
func NewPathPrompt(title, placeholder string) PathPrompt {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()
	return PathPrompt{keys: NewKeyMap(""), input: ti, title: title}
}

// Value returns the entered path; empty when cancelled.
func (p PathPrompt) Value() string {
	if p.cancelled {
		return ""
	}
	return p.input.Value()
}

// Cancelled reports whether the operator backed out.
func (p PathPrompt) Cancelled() bool {
	return p.cancelled
}

// Init implements tea.Model.
func (p PathPrompt) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (p PathPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Type == tea.KeyCtrlC || p.keys.IsCancel(key):
			p.cancelled = true
			return p, tea.Quit
		case p.keys.IsConfirm(key):
			return p, tea.Quit
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

// View implements tea.Model.
func (p PathPrompt) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).MarginBottom(1)
	footerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	return titleStyle.Render(p.title) + "\n" +
		p.input.View() + "\n" +
		footerStyle.Render("enter: accept  esc: cancel")
}

// RunPathPrompt shows the prompt and returns the entered path.
// Cancelling returns ("", false).
func RunPathPrompt(title, placeholder string) (string, bool, error) {
	p := tea.NewProgram(NewPathPrompt(title, placeholder))
	model, err := p.Run()
	if err != nil {
		return "", false, err
	}
	prompt := model.(PathPrompt)
	if prompt.Cancelled() || prompt.Value() == "" {
		return "", false, nil
	}
	return prompt.Value(), true, nil
}
