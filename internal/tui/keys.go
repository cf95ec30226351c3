package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Play      key.Binding
	Back      key.Binding
	Forward   key.Binding
	Slower    key.Binding
	Faster    key.Binding
	PrevStem  key.Binding
	NextStem  key.Binding
	VolUp     key.Binding
	VolDown   key.Binding
	Mute      key.Binding
	Route     key.Binding
	Retry     key.Binding
	CancelJob key.Binding
	Logs      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Play:      key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
		Back:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-5s")),
		Forward:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+5s")),
		Slower:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "slower")),
		Faster:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "faster")),
		PrevStem:  key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "prev stem")),
		NextStem:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "next stem")),
		VolUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		VolDown:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "volume down")),
		Mute:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		Route:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "toggle device")),
		Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry job")),
		CancelJob: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel job")),
		Logs:      key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logs")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Back, k.Forward, k.NextStem, k.Mute, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Back, k.Forward, k.Slower, k.Faster},
		{k.PrevStem, k.NextStem, k.VolUp, k.VolDown, k.Mute, k.Route},
		{k.Retry, k.CancelJob, k.Logs, k.Help, k.Quit},
	}
}
