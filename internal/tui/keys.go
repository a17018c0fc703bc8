package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap resolves navigation keys. Arrow keys always work; the vim
// mode adds j/k.
type KeyMap struct {
	mode string
}

// NewKeyMap creates a keymap; an empty mode defaults to vim.
func NewKeyMap(mode string) *KeyMap {
	if mode == "" {
		mode = "vim"
	}
	return &KeyMap{mode: mode}
}

// Mode returns the keybinding mode.
func (k *KeyMap) Mode() string {
	return k.mode
}

// IsUp reports an "up" navigation key.
func (k *KeyMap) IsUp(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyUp {
		return true
	}
	return k.mode == "vim" && msg.String() == "k"
}

// IsDown reports a "down" navigation key.
func (k *KeyMap) IsDown(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyDown {
		return true
	}
	return k.mode == "vim" && msg.String() == "j"
}

// IsConfirm reports a confirm/select key.
func (k *KeyMap) IsConfirm(msg tea.KeyMsg) bool {
	return msg.Type == tea.KeyEnter
}

// IsCancel reports a cancel/back key.
func (k *KeyMap) IsCancel(msg tea.KeyMsg) bool {
	return msg.Type == tea.KeyEsc
}

// IsQuit reports a quit key.
func (k *KeyMap) IsQuit(msg tea.KeyMsg) bool {
	return msg.String() == "q" || msg.Type == tea.KeyCtrlC
}

// NavigationHelp returns the one-line help for the footer.
func (k *KeyMap) NavigationHelp() string {
	if k.mode == "vim" {
		return "j/k: navigate  enter: select  q: quit"
	}
	return "↑/↓: navigate  enter: select  q: quit"
}
