package game

import (
	"context"
	"errors"
	"io"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/setgame/internal/display"
	"github.com/lox/setgame/internal/randutil"
)

// PlayerDeps holds what a player needs from the rest of the game.
type PlayerDeps struct {
	Board      *Board
	Rendezvous *Rendezvous
	Sink       display.Sink
	Clock      quartz.Clock
	Logger     *log.Logger
	// Rand drives the generator of automated players.
	Rand *rand.Rand

	PointFreeze   time.Duration
	PenaltyFreeze time.Duration
	// FreezeTick is how often the remaining freeze is republished.
	FreezeTick time.Duration
}

// Player is one participant. Humans are fed through KeyPressed, automated
// players run a generator goroutine that feeds random slots.
type Player struct {
	id    int
	name  string
	human bool

	board  *Board
	rv     *Rendezvous
	sink   display.Sink
	clock  quartz.Clock
	logger *log.Logger
	rng    *rand.Rand

	pointFreeze   time.Duration
	penaltyFreeze time.Duration
	freezeTick    time.Duration

	actions chan int

	mu          sync.Mutex
	score       int
	frozenUntil time.Time
	cancel      context.CancelFunc

	startOnce sync.Once
	generator sync.WaitGroup
	done      chan struct{}
}

// NewPlayer creates a player that has not started yet.
func NewPlayer(id int, name string, human bool, deps PlayerDeps) *Player {
	if deps.Sink == nil {
		deps.Sink = display.Discard
	}
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Rand == nil {
		deps.Rand = randutil.New(int64(id))
	}
	if deps.FreezeTick <= 0 {
		deps.FreezeTick = 100 * time.Millisecond
	}
	return &Player{
		id:            id,
		name:          name,
		human:         human,
		board:         deps.Board,
		rv:            deps.Rendezvous,
		sink:          deps.Sink,
		clock:         deps.Clock,
		logger:        deps.Logger.WithPrefix("player").With("player", id),
		rng:           deps.Rand,
		pointFreeze:   deps.PointFreeze,
		penaltyFreeze: deps.PenaltyFreeze,
		freezeTick:    deps.FreezeTick,
		actions:       make(chan int, MaxTokens),
		done:          make(chan struct{}),
	}
}

// ID returns the player id, which is also its index on the board.
func (p *Player) ID() int { return p.id }

// Name returns the display name.
func (p *Player) Name() string { return p.name }

// Human reports whether the player is driven by key presses.
func (p *Player) Human() bool { return p.human }

// Start launches the player goroutine, and the generator for automated
// players. Later calls do nothing.
func (p *Player) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		p.mu.Lock()
		p.cancel = cancel
		p.mu.Unlock()

		if !p.human {
			p.generator.Add(1)
			go p.generate(ctx)
		}
		go p.run(ctx)
	})
}

// Terminate stops the player and waits until it and its generator have
// exited. It returns at once for a player that never started.
func (p *Player) Terminate() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-p.done
}

// Done is closed once a started player has fully stopped.
func (p *Player) Done() <-chan struct{} { return p.done }

// KeyPressed offers slot to the action queue without blocking. It reports
// false when the queue is full.
func (p *Player) KeyPressed(slot int) bool {
	select {
	case p.actions <- slot:
		return true
	default:
		p.logger.Warn("Action queue full, dropping key press", "slot", slot)
		return false
	}
}

// Point awards a point and starts the point freeze.
func (p *Player) Point() {
	p.mu.Lock()
	p.score++
	score := p.score
	p.frozenUntil = p.clock.Now().Add(p.pointFreeze)
	p.mu.Unlock()

	p.logger.Info("Point awarded", "score", score)
	p.sink.OnEvent(display.ScoreChanged{Player: p.id, Score: score})
}

// Penalty starts the penalty freeze.
func (p *Player) Penalty() {
	p.mu.Lock()
	p.frozenUntil = p.clock.Now().Add(p.penaltyFreeze)
	p.mu.Unlock()

	p.logger.Info("Penalty applied", "freeze", p.penaltyFreeze)
}

// Score returns the current score.
func (p *Player) Score() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.score
}

// FrozenUntil returns the end of the current or last freeze.
func (p *Player) FrozenUntil() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frozenUntil
}

// IsFrozen reports whether actions are currently ignored.
func (p *Player) IsFrozen() bool {
	return p.clock.Now().Before(p.FrozenUntil())
}

func (p *Player) run(ctx context.Context) {
	defer close(p.done)
	defer p.generator.Wait()

	p.logger.Info("Player started", "name", p.name, "human", p.human)
	defer func() { p.logger.Info("Player terminated", "score", p.Score()) }()

	for {
		if ctx.Err() != nil {
			return
		}
		if p.IsFrozen() {
			p.waitOutFreeze(ctx)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case slot := <-p.actions:
			p.act(ctx, slot)
		}
	}
}

func (p *Player) act(ctx context.Context, slot int) {
	if p.rv.Reshuffling() {
		p.logger.Debug("Ignoring action while the table is reshuffled", "slot", slot)
		return
	}
	if p.IsFrozen() {
		p.logger.Debug("Ignoring action while frozen", "slot", slot)
		return
	}

	result := p.board.ToggleToken(p.id, slot)
	p.logger.Debug("Toggled token", "slot", slot, "action", result.Action, "tokens", result.Count)
	if result.Action != TokenPlaced || result.Count != MaxTokens {
		return
	}

	req, err := p.rv.Submit(ctx, p.id)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, ErrRendezvousClosed) {
			p.logger.Warn("Failed to submit selection", "error", err)
		}
		return
	}
	outcome, err := req.Wait(ctx)
	if err != nil {
		return
	}
	p.logger.Debug("Selection resolved", "outcome", outcome)
}

// waitOutFreeze discards queued actions and publishes the remaining freeze
// until it is over.
func (p *Player) waitOutFreeze(ctx context.Context) {
	for {
		p.drain()
		remaining := p.clock.Until(p.FrozenUntil())
		if remaining <= 0 {
			break
		}
		p.sink.OnEvent(display.FreezeChanged{Player: p.id, Remaining: remaining})

		timer := p.clock.NewTimer(min(remaining, p.freezeTick), "player", "freeze")
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
	p.drain()
	p.sink.OnEvent(display.FreezeChanged{Player: p.id, Remaining: 0})
}

func (p *Player) drain() {
	for {
		select {
		case slot := <-p.actions:
			p.logger.Debug("Discarding action queued while frozen", "slot", slot)
		default:
			return
		}
	}
}

func (p *Player) generate(ctx context.Context) {
	defer p.generator.Done()
	tableSize := p.board.TableSize()
	for {
		slot := p.rng.IntN(tableSize)
		select {
		case <-ctx.Done():
			return
		case p.actions <- slot:
		}
	}
}
