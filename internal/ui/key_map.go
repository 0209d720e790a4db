package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	enter     key.Binding
	back      key.Binding
	yes       key.Binding
	no        key.Binding
	checksums key.Binding
	overwrite key.Binding
	restart   key.Binding
	cancel    key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "import")),
		no:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "cancel")),
		checksums: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "toggle checksums")),
		overwrite: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "toggle overwrite")),
		restart:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		cancel:    key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel import")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.enter, k.back},
		{k.yes, k.no, k.checksums, k.overwrite},
		{k.restart, k.cancel, k.quit},
	}
}
