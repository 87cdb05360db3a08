package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Up      key.Binding // k - move up
	Down    key.Binding // j - move down
	Top     key.Binding // g - jump to top
	Bottom  key.Binding // G - jump to bottom
	Select  key.Binding // Enter - details
	Use     key.Binding // s - make active
	Chat    key.Binding // c - open chat
	Add     key.Binding // a - add connection
	Edit    key.Binding // e - edit connection
	Delete  key.Binding // d - delete connection
	Model   key.Binding // m - fetch and pick model
	Send    key.Binding // Enter - send message (chat)
	Abort   key.Binding // ctrl+x - stop generation (chat)
	Clear   key.Binding // ctrl+l - clear history (chat)
	Help    key.Binding // ? - help
	Quit    key.Binding // q - quit
	Cancel  key.Binding // Esc - back
	Confirm key.Binding // Enter - confirm (in form)
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Top:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "top")),
		Bottom:  key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "bottom")),
		Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "details")),
		Use:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "make active")),
		Chat:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chat")),
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Model:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "models")),
		Send:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "send")),
		Abort:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "stop")),
		Clear:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear chat")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "back")),
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "confirm")),
	}
}

// ShortHelp returns short help text
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Use, k.Chat, k.Help, k.Quit}
}

// FullHelp returns full help text
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Select, k.Use, k.Add, k.Edit, k.Delete, k.Model},
		{k.Chat, k.Send, k.Abort, k.Clear},
		{k.Help, k.Quit, k.Cancel},
	}
}
