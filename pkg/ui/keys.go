package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the browser's key bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Toggle      key.Binding
	Child       key.Binding
	Parent      key.Binding
	JumpParent  key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding

	Scope        key.Binding
	DatasetNext  key.Binding
	DatasetPrev  key.Binding
	BlockNext    key.Binding
	BlockPrev    key.Binding
	FileNext     key.Binding
	FilePrev     key.Binding
	Refresh      key.Binding
	Copy         key.Binding
	Bookmark     key.Binding
	Export       key.Binding
	Focus        key.Binding
	ToggleDetail key.Binding
	Help         key.Binding
	Quit         key.Binding
	Cancel       key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		PageUp:      key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("^u", "half page up")),
		PageDown:    key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("^d", "half page down")),
		Top:         key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:      key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Toggle:      key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "expand/collapse")),
		Child:       key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "expand or child")),
		Parent:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "collapse or parent")),
		JumpParent:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "parent")),
		ExpandAll:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "expand all")),
		CollapseAll: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "collapse all")),

		Scope:        key.NewBinding(key.WithKeys("/", "s"), key.WithHelp("/", "dataset or block")),
		DatasetNext:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d/D", "dataset window")),
		DatasetPrev:  key.NewBinding(key.WithKeys("D")),
		BlockNext:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b/B", "block window")),
		BlockPrev:    key.NewBinding(key.WithKeys("B")),
		FileNext:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t/T", "file window")),
		FilePrev:     key.NewBinding(key.WithKeys("T")),
		Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refetch")),
		Copy:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy view")),
		Bookmark:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "bookmark")),
		Export:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export snapshot")),
		Focus:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		ToggleDetail: key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "detail pane")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Cancel:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scope, k.DatasetNext, k.BlockNext, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Toggle, k.Child, k.Parent, k.JumpParent, k.ExpandAll, k.CollapseAll},
		{k.Scope, k.DatasetNext, k.BlockNext, k.FileNext, k.Refresh},
		{k.Copy, k.Bookmark, k.Export, k.Focus, k.ToggleDetail, k.Quit},
	}
}
