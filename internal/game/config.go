package game

import (
	"errors"
	"fmt"
	"time"
)

// ReshufflePolicy decides what happens to an in-flight selection when a
// round ends.
type ReshufflePolicy string

const (
	// PolicyComplete judges the pending selection against the table as it is
	// before the cards are collected.
	PolicyComplete ReshufflePolicy = "complete"
	// PolicyDiscard resolves it as Discarded with no score or freeze.
	PolicyDiscard ReshufflePolicy = "discard"
)

// Config holds the dealer and player settings of one game.
type Config struct {
	TableSize int
	DeckSize  int

	// TurnTimeout > 0 runs a countdown, 0 shows elapsed time and < 0 runs
	// untimed rounds with no timer display.
	TurnTimeout        time.Duration
	TurnTimeoutWarning time.Duration

	PointFreeze   time.Duration
	PenaltyFreeze time.Duration
	TableDelay    time.Duration

	Tick       time.Duration
	FreezeTick time.Duration

	Hints           bool
	ReshufflePolicy ReshufflePolicy
}

// DefaultConfig returns the classic 12 card table over an 81 card deck.
func DefaultConfig() Config {
	return Config{
		TableSize:          12,
		DeckSize:           81,
		TurnTimeout:        60 * time.Second,
		TurnTimeoutWarning: 5 * time.Second,
		PointFreeze:        time.Second,
		PenaltyFreeze:      3 * time.Second,
		Tick:               100 * time.Millisecond,
		FreezeTick:         100 * time.Millisecond,
		ReshufflePolicy:    PolicyComplete,
	}
}

// Timed reports whether rounds end on a deadline.
func (c Config) Timed() bool { return c.TurnTimeout > 0 }

// Validate checks the configuration for values the game cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.TableSize < MaxTokens {
		errs = append(errs, fmt.Errorf("table size must be at least %d, got %d", MaxTokens, c.TableSize))
	}
	if c.DeckSize < 1 {
		errs = append(errs, fmt.Errorf("deck size must be positive, got %d", c.DeckSize))
	}
	if c.TurnTimeoutWarning < 0 {
		errs = append(errs, errors.New("turn timeout warning cannot be negative"))
	}
	if c.PointFreeze < 0 || c.PenaltyFreeze < 0 {
		errs = append(errs, errors.New("freeze durations cannot be negative"))
	}
	if c.TableDelay < 0 {
		errs = append(errs, errors.New("table delay cannot be negative"))
	}
	if c.Tick <= 0 {
		errs = append(errs, errors.New("dealer tick must be positive"))
	}
	if c.FreezeTick <= 0 {
		errs = append(errs, errors.New("freeze tick must be positive"))
	}
	switch c.ReshufflePolicy {
	case PolicyComplete, PolicyDiscard:
	default:
		errs = append(errs, fmt.Errorf("unknown reshuffle policy %q", c.ReshufflePolicy))
	}
	return errors.Join(errs...)
}

// RoundEndReason explains why a round stopped.
type RoundEndReason string

const (
	ReasonTerminated     RoundEndReason = "terminated"
	ReasonTimeout        RoundEndReason = "timeout"
	ReasonNoCombinations RoundEndReason = "no_combinations"
	ReasonBoardExhausted RoundEndReason = "board_exhausted"
)

// Recorder observes the dealer's round and selection lifecycle.
type Recorder interface {
	RoundStarted()
	RoundEnded(reason RoundEndReason)
	SelectionResolved(player int, outcome Outcome, wait time.Duration)
}

// NopRecorder ignores everything.
type NopRecorder struct{}

func (NopRecorder) RoundStarted() {}
func (NopRecorder) RoundEnded(RoundEndReason) {}
func (NopRecorder) SelectionResolved(int, Outcome, time.Duration) {}
