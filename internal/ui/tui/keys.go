package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap - привязки клавиш главного экрана.
type KeyMap struct {
	Connect      key.Binding
	Disconnect   key.Binding
	Erase        key.Binding
	Program      key.Binding
	Trace        key.Binding
	SelectFile   key.Binding
	ClearFile    key.Binding
	StartConsole key.Binding
	StopConsole  key.Binding
	Reset        key.Binding
	Up           key.Binding
	Down         key.Binding
	Back         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

// DefaultKeyMap возвращает привязки по умолчанию.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Connect:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
		Disconnect:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disconnect")),
		Erase:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "erase flash")),
		Program:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "program")),
		Trace:        key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "trace")),
		SelectFile:   key.NewBinding(key.WithKeys("enter", "f"), key.WithHelp("f", "select file")),
		ClearFile:    key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "clear file")),
		StartConsole: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "console")),
		StopConsole:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop console")),
		Reset:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset chip")),
		Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp реализует help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Program, k.StartConsole, k.Help, k.Quit}
}

// FullHelp реализует help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Connect, k.Disconnect, k.Trace, k.Erase, k.Program},
		{k.Up, k.Down, k.SelectFile, k.ClearFile},
		{k.StartConsole, k.StopConsole, k.Reset},
		{k.Help, k.Quit},
	}
}
