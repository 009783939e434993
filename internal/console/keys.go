package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Click  key.Binding
	Scroll key.Binding
	Cancel key.Binding
	Toggle key.Binding
	Status key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Click:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "click")),
	Scroll: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scroll search")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Toggle: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "start/stop")),
	Status: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Click, k.Scroll, k.Cancel, k.Toggle, k.Status, k.Quit}
}

// helpLine renders "enter click · s scroll search · ...".
func (k keyMap) helpLine() string {
	parts := make([]string, 0, 6)
	for _, b := range k.bindings() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}
