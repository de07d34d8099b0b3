package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all application key bindings
type KeyMap struct {
	// Navigation
	Down     key.Binding
	Up       key.Binding
	PageDown key.Binding
	PageUp   key.Binding
	Home     key.Binding
	End      key.Binding

	// Actions
	Enter  key.Binding
	Escape key.Binding
	Quit   key.Binding
	Help   key.Binding
	Search key.Binding
	Match  key.Binding

	// Reader specific
	NextChapter key.Binding
	PrevChapter key.Binding
	TOC         key.Binding
	ReadMode    key.Binding
	TextScale   key.Binding
	ReadAlong   key.Binding
	Bookmarks   key.Binding
}

// DefaultKeyMap returns the default vim-like key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down a line (a page when paged)"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up a line (a page when paged)"),
		),
		PageDown: key.NewBinding(
			key.WithKeys(" ", "pgdown", "ctrl+d", "right"),
			key.WithHelp("Space/→", "next page"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u", "left"),
			key.WithHelp("PgUp/←", "previous page"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "chapter start"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "chapter end"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "select"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit/back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search library or chapter"),
		),
		Match: key.NewBinding(
			key.WithKeys("n", "N"),
			key.WithHelp("n/N", "next/previous match"),
		),
		NextChapter: key.NewBinding(
			key.WithKeys("n", "l"),
			key.WithHelp("n/l", "next chapter"),
		),
		PrevChapter: key.NewBinding(
			key.WithKeys("p", "h"),
			key.WithHelp("p/h", "previous chapter"),
		),
		TOC: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "table of contents"),
		),
		ReadMode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "scroll/curl/collection"),
		),
		TextScale: key.NewBinding(
			key.WithKeys("+", "-", "0"),
			key.WithHelp("+/-/0", "text scale"),
		),
		ReadAlong: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "read along"),
		),
		Bookmarks: key.NewBinding(
			key.WithKeys("b", "B"),
			key.WithHelp("b/B", "list/add bookmarks"),
		),
	}
}

// helpSections groups bindings for the help overlay
func (k KeyMap) helpSections() []helpSection {
	return []helpSection{
		{"Reading", []key.Binding{k.Down, k.Up, k.PageDown, k.PageUp, k.Home, k.End}},
		{"Chapters", []key.Binding{k.NextChapter, k.PrevChapter, k.TOC}},
		{"Display", []key.Binding{k.ReadMode, k.TextScale, k.ReadAlong, k.Bookmarks}},
		{"General", []key.Binding{k.Search, k.Match, k.Enter, k.Escape, k.Quit, k.Help}},
	}
}

type helpSection struct {
	title    string
	bindings []key.Binding
}
