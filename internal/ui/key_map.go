package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the monitor.
type keyMap struct {
	toggle   key.Binding
	back     key.Binding
	forward  key.Binding
	next     key.Binding
	force    key.Binding
	loop     key.Binding
	quit     key.Binding
	showHelp key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		back:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-5s")),
		forward:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+5s")),
		next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next primary")),
		force:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "force sync")),
		loop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start/stop loop")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		showHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.next, k.showHelp, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.back, k.forward},
		{k.next, k.force, k.loop},
		{k.showHelp, k.quit},
	}
}
