package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the picker bindings.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Toggle   key.Binding
	Only     key.Binding
	Invert   key.Binding
	Search   key.Binding
	Apply    key.Binding
	Cancel   key.Binding
	Copy     key.Binding
	More     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Expand:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand")),
		Collapse: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Toggle:   key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		Only:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "only this")),
		Invert:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "invert")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Apply:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy output")),
		More:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "more rows")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// help lists the bindings shown in the footer.
func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Toggle, k.Only, k.Invert, k.Search, k.Apply, k.Cancel, k.Copy, k.Quit}
}
