// Package display carries discrete board, score and timer updates from the
// game actors to whatever renders them.
package display

import (
	"sync"
	"time"
)

// EventType represents a display event type with type safety
type EventType string

const (
	EventTypeCardPlaced       EventType = "card_placed"
	EventTypeCardRemoved      EventType = "card_removed"
	EventTypeTokenPlaced      EventType = "token_placed"
	EventTypeTokenRemoved     EventType = "token_removed"
	EventTypeScoreChanged     EventType = "score_changed"
	EventTypeCountdownChanged EventType = "countdown_changed"
	EventTypeElapsedChanged   EventType = "elapsed_changed"
	EventTypeFreezeChanged    EventType = "freeze_changed"
	EventTypeWinnersAnnounced EventType = "winners_announced"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is one fire-and-forget display update.
type Event interface {
	EventType() EventType
}

// CardPlaced is published when a card lands in a slot.
type CardPlaced struct {
	Slot int
	Card int
}

func (CardPlaced) EventType() EventType { return EventTypeCardPlaced }

// CardRemoved is published when a slot is emptied.
type CardRemoved struct {
	Slot int
}

func (CardRemoved) EventType() EventType { return EventTypeCardRemoved }

// TokenPlaced is published when a player marks a slot.
type TokenPlaced struct {
	Player int
	Slot   int
}

func (TokenPlaced) EventType() EventType { return EventTypeTokenPlaced }

// TokenRemoved is published when a mark is lifted, either by its player or
// because the card under it was removed.
type TokenRemoved struct {
	Player int
	Slot   int
}

func (TokenRemoved) EventType() EventType { return EventTypeTokenRemoved }

// ScoreChanged carries a player's new score.
type ScoreChanged struct {
	Player int
	Score  int
}

func (ScoreChanged) EventType() EventType { return EventTypeScoreChanged }

// CountdownChanged carries the time left before the dealer reshuffles.
// Warn is set inside the warning window.
type CountdownChanged struct {
	Remaining time.Duration
	Warn      bool
}

func (CountdownChanged) EventType() EventType { return EventTypeCountdownChanged }

// ElapsedChanged carries the round's running time in untimed mode.
type ElapsedChanged struct {
	Elapsed time.Duration
}

func (ElapsedChanged) EventType() EventType { return EventTypeElapsedChanged }

// FreezeChanged carries the time left on a player's freeze. Zero means the
// player can act again.
type FreezeChanged struct {
	Player    int
	Remaining time.Duration
}

func (FreezeChanged) EventType() EventType { return EventTypeFreezeChanged }

// WinnersAnnounced lists every player sharing the top score.
type WinnersAnnounced struct {
	Players []int
}

func (WinnersAnnounced) EventType() EventType { return EventTypeWinnersAnnounced }

// Sink receives display events. Implementations must not block and must not
// call back into the game; events are often published from inside the
// board's critical section.
type Sink interface {
	OnEvent(event Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// OnEvent implements Sink.
func (f SinkFunc) OnEvent(event Event) { f(event) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Bus fans events out to every subscriber. It is itself a Sink and is safe
// for concurrent publishers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Sink
}

// NewBus creates a bus with the given initial subscribers.
func NewBus(subscribers ...Sink) *Bus {
	return &Bus{subscribers: subscribers}
}

// Subscribe adds a subscriber to receive events
func (b *Bus) Subscribe(subscriber Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, subscriber)
}

// OnEvent publishes the event to all subscribers.
func (b *Bus) OnEvent(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, subscriber := range b.subscribers {
		subscriber.OnEvent(event)
	}
}
