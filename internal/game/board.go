package game

import (
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/setgame/internal/display"
	"github.com/lox/setgame/internal/randutil"
)

// NoSlot is returned when no slot could be chosen.
const NoSlot = -1

// MaxTokens is how many tokens a player may hold at once.
const MaxTokens = 3

const empty = -1

// TokenAction describes what ToggleToken did.
type TokenAction int

const (
	TokenNotApplied TokenAction = iota
	TokenRemoved
	TokenRefused
	TokenPlaced
)

func (a TokenAction) String() string {
	switch a {
	case TokenNotApplied:
		return "not_applied"
	case TokenRemoved:
		return "removed"
	case TokenRefused:
		return "refused"
	case TokenPlaced:
		return "placed"
	default:
		return fmt.Sprintf("token_action(%d)", int(a))
	}
}

// TokenResult is the outcome of a toggle together with the player's token
// count after it.
type TokenResult struct {
	Action TokenAction
	Count  int
}

// BoardOptions holds the collaborators of a Board. Zero values are replaced
// with working defaults.
type BoardOptions struct {
	Sink   display.Sink
	Clock  quartz.Clock
	Delay  time.Duration
	Rand   *rand.Rand
	Logger *log.Logger
}

// Board is the shared table of slots and per-player tokens. Every exported
// method is one critical section.
type Board struct {
	mu sync.Mutex

	slotToCard  []int
	cardToSlot  []int
	tokens      [][]bool // [player][slot]
	tokenCounts []int

	rng    *rand.Rand // guarded by mu
	sink   display.Sink
	clock  quartz.Clock
	delay  time.Duration
	logger *log.Logger
}

// NewBoard creates an empty board with tableSize slots for cards 0..deckSize-1.
func NewBoard(tableSize, deckSize, players int, opts BoardOptions) *Board {
	if opts.Sink == nil {
		opts.Sink = display.Discard
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Rand == nil {
		opts.Rand = randutil.New(1)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	b := &Board{
		slotToCard:  make([]int, tableSize),
		cardToSlot:  make([]int, deckSize),
		tokens:      make([][]bool, players),
		tokenCounts: make([]int, players),
		rng:         opts.Rand,
		sink:        opts.Sink,
		clock:       opts.Clock,
		delay:       opts.Delay,
		logger:      opts.Logger.WithPrefix("board"),
	}
	for i := range b.slotToCard {
		b.slotToCard[i] = empty
	}
	for i := range b.cardToSlot {
		b.cardToSlot[i] = empty
	}
	for i := range b.tokens {
		b.tokens[i] = make([]bool, tableSize)
	}
	return b
}

// TableSize returns the number of slots.
func (b *Board) TableSize() int { return len(b.slotToCard) }

// CountOccupied returns how many slots hold a card.
func (b *Board) CountOccupied() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.countOccupiedLocked()
}

// CountEmpty returns how many slots are free.
func (b *Board) CountEmpty() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slotToCard) - b.countOccupiedLocked()
}

func (b *Board) countOccupiedLocked() int {
	n := 0
	for _, card := range b.slotToCard {
		if card != empty {
			n++
		}
	}
	return n
}

// Place puts card into an empty slot. It reports false, leaving the board
// untouched, when the slot is taken or the card is already on the table.
func (b *Board) Place(card, slot int) bool {
	b.pause()

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.placeLocked(card, slot)
}

func (b *Board) placeLocked(card, slot int) bool {
	if !b.validSlot(slot) || card < 0 || card >= len(b.cardToSlot) {
		b.logger.Warn("Rejected placement out of range", "card", card, "slot", slot)
		return false
	}
	if b.slotToCard[slot] != empty || b.cardToSlot[card] != empty {
		b.logger.Warn("Rejected placement", "card", card, "slot", slot,
			"occupant", b.slotToCard[slot], "card_slot", b.cardToSlot[card])
		return false
	}
	b.slotToCard[slot] = card
	b.cardToSlot[card] = slot
	b.sink.OnEvent(display.CardPlaced{Slot: slot, Card: card})
	return true
}

// PlaceAtRandomEmptySlot places card in a uniformly chosen empty slot and
// returns it, or NoSlot when the table is full.
func (b *Board) PlaceAtRandomEmptySlot(card int) int {
	b.pause()

	b.mu.Lock()
	defer b.mu.Unlock()
	var free []int
	for slot, occupant := range b.slotToCard {
		if occupant == empty {
			free = append(free, slot)
		}
	}
	if len(free) == 0 {
		return NoSlot
	}
	slot := free[b.rng.IntN(len(free))]
	if !b.placeLocked(card, slot) {
		return NoSlot
	}
	return slot
}

// Remove empties slot and clears every token on it.
func (b *Board) Remove(slot int) bool {
	b.pause()

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeLocked(slot)
}

func (b *Board) removeLocked(slot int) bool {
	if !b.validSlot(slot) || b.slotToCard[slot] == empty {
		b.logger.Warn("Rejected removal of empty slot", "slot", slot)
		return false
	}
	card := b.slotToCard[slot]
	b.slotToCard[slot] = empty
	b.cardToSlot[card] = empty
	b.sink.OnEvent(display.CardRemoved{Slot: slot})
	for player := range b.tokens {
		if b.tokens[player][slot] {
			b.tokens[player][slot] = false
			b.tokenCounts[player]--
			b.sink.OnEvent(display.TokenRemoved{Player: player, Slot: slot})
		}
	}
	return true
}

// RemoveCards takes the given cards off the table in one step and returns
// how many were actually on it.
func (b *Board) RemoveCards(cards ...int) int {
	for range cards {
		b.pause()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for _, card := range cards {
		if card < 0 || card >= len(b.cardToSlot) || b.cardToSlot[card] == empty {
			b.logger.Warn("Card is not on the table", "card", card)
			continue
		}
		if b.removeLocked(b.cardToSlot[card]) {
			removed++
		}
	}
	return removed
}

// RemoveAllCards clears the table in a random slot order.
func (b *Board) RemoveAllCards() {
	b.mu.Lock()
	defer b.mu.Unlock()
	slots := b.rng.Perm(len(b.slotToCard))
	for _, slot := range slots {
		if b.slotToCard[slot] == empty {
			continue
		}
		b.pause()
		b.removeLocked(slot)
	}
}

// ToggleToken flips player's token on slot.
func (b *Board) ToggleToken(player, slot int) TokenResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.validPlayer(player) {
		b.logger.Warn("Unknown player", "player", player)
		return TokenResult{Action: TokenNotApplied}
	}
	count := b.tokenCounts[player]
	if !b.validSlot(slot) || b.slotToCard[slot] == empty {
		return TokenResult{Action: TokenNotApplied, Count: count}
	}
	if b.tokens[player][slot] {
		b.tokens[player][slot] = false
		b.tokenCounts[player]--
		b.sink.OnEvent(display.TokenRemoved{Player: player, Slot: slot})
		return TokenResult{Action: TokenRemoved, Count: b.tokenCounts[player]}
	}
	if count >= MaxTokens {
		return TokenResult{Action: TokenRefused, Count: count}
	}
	b.tokens[player][slot] = true
	b.tokenCounts[player]++
	b.sink.OnEvent(display.TokenPlaced{Player: player, Slot: slot})
	return TokenResult{Action: TokenPlaced, Count: b.tokenCounts[player]}
}

// TokenCount returns how many tokens player holds.
func (b *Board) TokenCount(player int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.validPlayer(player) {
		return 0
	}
	return b.tokenCounts[player]
}

// TokensOf returns the cards player has marked, in slot order.
func (b *Board) TokensOf(player int) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.validPlayer(player) {
		return nil
	}
	cards := make([]int, 0, MaxTokens)
	for slot, marked := range b.tokens[player] {
		if marked {
			cards = append(cards, b.slotToCard[slot])
		}
	}
	return cards
}

// HasToken reports whether player marked slot.
func (b *Board) HasToken(player, slot int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.validPlayer(player) && b.validSlot(slot) && b.tokens[player][slot]
}

// CardAt returns the card in slot.
func (b *Board) CardAt(slot int) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.validSlot(slot) || b.slotToCard[slot] == empty {
		return 0, false
	}
	return b.slotToCard[slot], true
}

// SlotOf returns the slot holding card.
func (b *Board) SlotOf(card int) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if card < 0 || card >= len(b.cardToSlot) || b.cardToSlot[card] == empty {
		return NoSlot, false
	}
	return b.cardToSlot[card], true
}

// Cards returns the cards on the table in slot order.
func (b *Board) Cards() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	cards := make([]int, 0, len(b.slotToCard))
	for _, card := range b.slotToCard {
		if card != empty {
			cards = append(cards, card)
		}
	}
	return cards
}

// SlotsOf maps cards to their slots, skipping cards that are not on the table.
func (b *Board) SlotsOf(cards []int) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	slots := make([]int, 0, len(cards))
	for _, card := range cards {
		if card >= 0 && card < len(b.cardToSlot) && b.cardToSlot[card] != empty {
			slots = append(slots, b.cardToSlot[card])
		}
	}
	return slots
}

// CheckInvariants verifies the slot/card bijection and the token bounds.
func (b *Board) CheckInvariants() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for slot, card := range b.slotToCard {
		if card != empty && b.cardToSlot[card] != slot {
			errs = append(errs, fmt.Errorf("slot %d holds card %d but card maps to slot %d", slot, card, b.cardToSlot[card]))
		}
	}
	for card, slot := range b.cardToSlot {
		if slot != empty && b.slotToCard[slot] != card {
			errs = append(errs, fmt.Errorf("card %d maps to slot %d which holds %d", card, slot, b.slotToCard[slot]))
		}
	}
	for player, marks := range b.tokens {
		n := 0
		for slot, marked := range marks {
			if !marked {
				continue
			}
			n++
			if b.slotToCard[slot] == empty {
				errs = append(errs, fmt.Errorf("player %d has a token on empty slot %d", player, slot))
			}
		}
		if n != b.tokenCounts[player] {
			errs = append(errs, fmt.Errorf("player %d holds %d tokens but count is %d", player, n, b.tokenCounts[player]))
		}
		if n > MaxTokens {
			errs = append(errs, fmt.Errorf("player %d holds %d tokens", player, n))
		}
	}
	return errors.Join(errs...)
}

func (b *Board) validSlot(slot int) bool { return slot >= 0 && slot < len(b.slotToCard) }

func (b *Board) validPlayer(player int) bool { return player >= 0 && player < len(b.tokens) }

// pause simulates the latency of a table mutation.
func (b *Board) pause() {
	if b.delay <= 0 {
		return
	}
	t := b.clock.NewTimer(b.delay, "board", "delay")
	<-t.C
}
