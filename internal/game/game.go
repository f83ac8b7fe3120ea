// Package game runs the concurrent set game: a shared Board, one Player
// goroutine per participant and a Dealer that serializes every selection
// check through a single-slot Rendezvous.
package game

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/setgame/internal/display"
	"github.com/lox/setgame/internal/randutil"
	"github.com/lox/setgame/internal/rules"
)

// Seat describes one participant.
type Seat struct {
	Name  string
	Human bool
}

// Options are the collaborators shared by every actor of a game.
type Options struct {
	Oracle   rules.Oracle
	Sink     display.Sink
	Clock    quartz.Clock
	Logger   *log.Logger
	Recorder Recorder
	Seed     int64
}

// Game bundles the wired actors of one game.
type Game struct {
	Board      *Board
	Rendezvous *Rendezvous
	Players    []*Player
	Dealer     *Dealer
}

// New wires a board, the players for seats and a dealer. Player ids are the
// seat indices.
func New(cfg Config, seats []Seat, opts Options) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	if opts.Oracle == nil {
		return nil, errors.New("game needs a rule oracle")
	}
	if opts.Sink == nil {
		opts.Sink = display.Discard
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	board := NewBoard(cfg.TableSize, cfg.DeckSize, len(seats), BoardOptions{
		Sink:   opts.Sink,
		Clock:  opts.Clock,
		Delay:  cfg.TableDelay,
		Rand:   randutil.Derive(opts.Seed, randutil.StreamBoard),
		Logger: opts.Logger,
	})
	rv := NewRendezvous(opts.Clock)

	players := make([]*Player, len(seats))
	for id, seat := range seats {
		players[id] = NewPlayer(id, seat.Name, seat.Human, PlayerDeps{
			Board:         board,
			Rendezvous:    rv,
			Sink:          opts.Sink,
			Clock:         opts.Clock,
			Logger:        opts.Logger,
			Rand:          randutil.Derive(opts.Seed, randutil.StreamPlayer+id),
			PointFreeze:   cfg.PointFreeze,
			PenaltyFreeze: cfg.PenaltyFreeze,
			FreezeTick:    cfg.FreezeTick,
		})
	}

	dealer := NewDealer(cfg, board, players, rv, DealerDeps{
		Oracle:   opts.Oracle,
		Sink:     opts.Sink,
		Clock:    opts.Clock,
		Logger:   opts.Logger,
		Rand:     randutil.Derive(opts.Seed, randutil.StreamDealer),
		Recorder: opts.Recorder,
	})

	return &Game{Board: board, Rendezvous: rv, Players: players, Dealer: dealer}, nil
}
