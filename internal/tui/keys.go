package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit        key.Binding
	Left        key.Binding
	Right       key.Binding
	Up          key.Binding
	Down        key.Binding
	Select      key.Binding
	ClearSelect key.Binding
	MoveNext    key.Binding
	MovePrev    key.Binding
	Edit        key.Binding
	Filter      key.Binding
	ClearFilter key.Binding
	SortKey     key.Binding
	SortDir     key.Binding
	Refresh     key.Binding
	Delete      key.Binding
	Confirm     key.Binding
	Cancel      key.Binding
}

var keys = keyMap{
	Quit:        key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	Left:        key.NewBinding(key.WithKeys("h", "left")),
	Right:       key.NewBinding(key.WithKeys("l", "right")),
	Up:          key.NewBinding(key.WithKeys("k", "up")),
	Down:        key.NewBinding(key.WithKeys("j", "down")),
	Select:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	ClearSelect: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "unselect")),
	MoveNext:    key.NewBinding(key.WithKeys(">", "L"), key.WithHelp(">", "next status")),
	MovePrev:    key.NewBinding(key.WithKeys("<", "H"), key.WithHelp("<", "prev status")),
	Edit:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	ClearFilter: key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "clear filters")),
	SortKey:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort by")),
	SortDir:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "order")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Delete:      key.NewBinding(key.WithKeys("d", "D"), key.WithHelp("d", "del")),
	Confirm:     key.NewBinding(key.WithKeys("y", "Y")),
	Cancel:      key.NewBinding(key.WithKeys("n", "N", "esc", "q")),
}

// shortHelp is the key legend shown in the status bar.
func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{
		k.Select, k.MoveNext, k.Edit, k.Filter, k.SortKey, k.SortDir, k.Delete, k.Quit,
	}
}
