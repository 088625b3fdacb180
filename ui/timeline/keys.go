package timeline

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Clear    key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	OpenFeed key.Binding
	OpenKey  key.Binding
	CloseTab key.Binding
	Reply    key.Binding
	Like     key.Binding
	Repost   key.Binding
	Compose  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "newest")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "oldest")),
		Clear:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		NextTab:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next tab")),
		PrevTab:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev tab")),
		OpenFeed: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "author feed")),
		OpenKey:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open key")),
		CloseTab: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close tab")),
		Reply:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reply")),
		Like:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		Repost:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "repost")),
		Compose:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new note")),
	}
}

// ShortHelp lists the bindings shown in the status line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Top, k.Bottom, k.NextTab, k.PrevTab, k.OpenFeed, k.OpenKey, k.CloseTab, k.Reply, k.Like, k.Repost, k.Compose}
}
