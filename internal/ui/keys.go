package ui

import "github.com/charmbracelet/bubbles/key"

// liveKeyMap defines key bindings for the live capture view
type liveKeyMap struct {
	Filter    key.Binding
	Highlight key.Binding
	Clear     key.Binding
	Pause     key.Binding
	Up        key.Binding
	Down      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k liveKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Filter, k.Highlight, k.Clear, k.Pause, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k liveKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Filter, k.Highlight, k.Clear, k.Pause},
		{k.Up, k.Down},
		{k.Help, k.Quit},
	}
}

func newLiveKeyMap() liveKeyMap {
	return liveKeyMap{
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "cycle filters"),
		),
		Highlight: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "highlight"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "pause/resume"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k", "pgup"),
			key.WithHelp("↑/pgup", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j", "pgdown"),
			key.WithHelp("↓/pgdn", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
