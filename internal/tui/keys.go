package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines key bindings for the lookup screen
type keyMap struct {
	Find  key.Binding
	Reset key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Find, k.Reset, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Find, k.Reset, k.Quit},
	}
}

func newKeyMap() keyMap {
	keys := keyMap{
		Find: key.NewBinding(
			key.WithKeys("enter", "ctrl+f"),
			key.WithHelp("enter", "find"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reset"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
	// Reset is offered only while a model is shown
	keys.Reset.SetEnabled(false)
	return keys
}
