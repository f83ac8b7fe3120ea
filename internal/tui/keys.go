package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Key layouts for up to two players sharing a keyboard. Each layout is read
// row by row, four keys per row, and maps onto slots in the same order.
var layouts = [][]string{
	{"1", "2", "3", "4", "q", "w", "e", "r", "a", "s", "d", "f", "z", "x", "c", "v"},
	{"7", "8", "9", "0", "u", "i", "o", "p", "j", "k", "l", ";", "m", ",", ".", "/"},
}

// KeyMap binds one human player's keys to slots.
type KeyMap struct {
	Slots []key.Binding
}

// NewKeyMap returns the bindings for the n-th human player, covering at most
// tableSize slots. It reports false when there is no layout left.
func NewKeyMap(n, tableSize int) (KeyMap, bool) {
	if n < 0 || n >= len(layouts) {
		return KeyMap{}, false
	}
	keys := layouts[n][:min(tableSize, len(layouts[n]))]
	km := KeyMap{Slots: make([]key.Binding, len(keys))}
	for slot, k := range keys {
		km.Slots[slot] = key.NewBinding(
			key.WithKeys(k),
			key.WithHelp(k, fmt.Sprintf("slot %d", slot)),
		)
	}
	return km, true
}

// Slot returns the slot bound to msg.
func (km KeyMap) Slot(msg tea.KeyMsg) (int, bool) {
	for slot, binding := range km.Slots {
		if key.Matches(msg, binding) {
			return slot, true
		}
	}
	return 0, false
}

// Quit ends the game.
var Quit = key.NewBinding(
	key.WithKeys("esc", "ctrl+c"),
	key.WithHelp("esc", "quit"),
)
