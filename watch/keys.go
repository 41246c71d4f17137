package watch

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	toggle  key.Binding
	focus   key.Binding
	sync    key.Binding
	refresh key.Binding
	quit    key.Binding
}

var defaultKeymap = keyMap{
	toggle: key.NewBinding(
		key.WithKeys("t", " "),
		key.WithHelp("t/space", "pause/resume"),
	),
	focus: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "toggle focus"),
	),
	sync: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sync now"),
	),
	refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.focus, k.sync, k.refresh, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
