package tui

import (
	"slices"
	"sync"
	"time"

	"github.com/lox/setgame/internal/display"
)

const maxLogLines = 8

// TimerMode says which timer, if any, the header shows.
type TimerMode int

const (
	TimerNone TimerMode = iota
	TimerCountdown
	TimerElapsed
)

// State is a snapshot of everything the view renders.
type State struct {
	Slots     []int    // card per slot, -1 when empty
	Tokens    [][]bool // [player][slot]
	Scores    []int
	Frozen    []time.Duration
	Timer     TimerMode
	Countdown time.Duration
	Warn      bool
	Elapsed   time.Duration
	Winners   []int
	GameOver  bool
	Log       []string
}

// Bridge is the display sink behind the terminal view. Events are applied
// to a guarded State and picked up by the next render tick, so OnEvent never
// waits on the UI.
type Bridge struct {
	mu        sync.Mutex
	state     State
	formatter display.Formatter
}

var _ display.Sink = (*Bridge)(nil)

// NewBridge creates a bridge for a table of tableSize slots and the given
// number of players.
func NewBridge(tableSize, players int, formatter display.Formatter) *Bridge {
	state := State{
		Slots:  make([]int, tableSize),
		Tokens: make([][]bool, players),
		Scores: make([]int, players),
		Frozen: make([]time.Duration, players),
	}
	for i := range state.Slots {
		state.Slots[i] = -1
	}
	for i := range state.Tokens {
		state.Tokens[i] = make([]bool, tableSize)
	}
	return &Bridge{state: state, formatter: formatter}
}

// OnEvent implements display.Sink.
func (b *Bridge) OnEvent(event display.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &b.state
	switch e := event.(type) {
	case display.CardPlaced:
		if b.validSlot(e.Slot) {
			s.Slots[e.Slot] = e.Card
		}
	case display.CardRemoved:
		if b.validSlot(e.Slot) {
			s.Slots[e.Slot] = -1
		}
	case display.TokenPlaced:
		if b.validPlayer(e.Player) && b.validSlot(e.Slot) {
			s.Tokens[e.Player][e.Slot] = true
		}
	case display.TokenRemoved:
		if b.validPlayer(e.Player) && b.validSlot(e.Slot) {
			s.Tokens[e.Player][e.Slot] = false
		}
	case display.ScoreChanged:
		if b.validPlayer(e.Player) {
			s.Scores[e.Player] = e.Score
		}
		b.appendLog(event)
	case display.CountdownChanged:
		s.Timer = TimerCountdown
		s.Countdown = e.Remaining
		s.Warn = e.Warn
	case display.ElapsedChanged:
		s.Timer = TimerElapsed
		s.Elapsed = e.Elapsed
	case display.FreezeChanged:
		if b.validPlayer(e.Player) {
			s.Frozen[e.Player] = e.Remaining
		}
	case display.WinnersAnnounced:
		s.Winners = slices.Clone(e.Players)
		s.GameOver = true
		b.appendLog(event)
	}
}

// Snapshot returns a deep copy of the current state.
func (b *Bridge) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.state
	s.Slots = slices.Clone(s.Slots)
	s.Tokens = make([][]bool, len(b.state.Tokens))
	for i, marks := range b.state.Tokens {
		s.Tokens[i] = slices.Clone(marks)
	}
	s.Scores = slices.Clone(s.Scores)
	s.Frozen = slices.Clone(s.Frozen)
	s.Winners = slices.Clone(s.Winners)
	s.Log = slices.Clone(s.Log)
	return s
}

func (b *Bridge) appendLog(event display.Event) {
	b.state.Log = append(b.state.Log, b.formatter.Format(event))
	if over := len(b.state.Log) - maxLogLines; over > 0 {
		b.state.Log = b.state.Log[over:]
	}
}

func (b *Bridge) validSlot(slot int) bool { return slot >= 0 && slot < len(b.state.Slots) }

func (b *Bridge) validPlayer(player int) bool { return player >= 0 && player < len(b.state.Scores) }
