package game

import (
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/setgame/internal/display"
	"github.com/lox/setgame/internal/rules"
)

// TestGameOption configures test game creation
type TestGameOption func(*testGameBuilder)

type testGameBuilder struct {
	cfg    Config
	seats  []Seat
	oracle rules.Oracle
	sink   display.Sink
	clock  quartz.Clock
	rec    Recorder
	seed   int64
}

func WithTableSize(size int) TestGameOption {
	return func(b *testGameBuilder) { b.cfg.TableSize = size }
}

func WithDeckSize(size int) TestGameOption {
	return func(b *testGameBuilder) { b.cfg.DeckSize = size }
}

func WithHumans(names ...string) TestGameOption {
	return func(b *testGameBuilder) {
		for _, name := range names {
			b.seats = append(b.seats, Seat{Name: name, Human: true})
		}
	}
}

func WithBots(names ...string) TestGameOption {
	return func(b *testGameBuilder) {
		for _, name := range names {
			b.seats = append(b.seats, Seat{Name: name})
		}
	}
}

func WithOracle(oracle rules.Oracle) TestGameOption {
	return func(b *testGameBuilder) { b.oracle = oracle }
}

func WithSink(sink display.Sink) TestGameOption {
	return func(b *testGameBuilder) { b.sink = sink }
}

func WithClock(clock quartz.Clock) TestGameOption {
	return func(b *testGameBuilder) { b.clock = clock }
}

func WithRecorder(rec Recorder) TestGameOption {
	return func(b *testGameBuilder) { b.rec = rec }
}

func WithTurnTimeout(timeout, warning time.Duration) TestGameOption {
	return func(b *testGameBuilder) {
		b.cfg.TurnTimeout = timeout
		b.cfg.TurnTimeoutWarning = warning
	}
}

func WithFreezes(point, penalty time.Duration) TestGameOption {
	return func(b *testGameBuilder) {
		b.cfg.PointFreeze = point
		b.cfg.PenaltyFreeze = penalty
	}
}

func WithPolicy(policy ReshufflePolicy) TestGameOption {
	return func(b *testGameBuilder) { b.cfg.ReshufflePolicy = policy }
}

func WithSeed(seed int64) TestGameOption {
	return func(b *testGameBuilder) { b.seed = seed }
}

// newTestGame wires a game for testing with a three card table, a three card
// deck where {0,1,2} is the only set, and fast ticks.
func newTestGame(t *testing.T, opts ...TestGameOption) *Game {
	t.Helper()
	builder := &testGameBuilder{
		cfg: Config{
			TableSize:          3,
			DeckSize:           3,
			TurnTimeout:        time.Minute,
			TurnTimeoutWarning: 5 * time.Second,
			Tick:               2 * time.Millisecond,
			FreezeTick:         2 * time.Millisecond,
			ReshufflePolicy:    PolicyComplete,
		},
		oracle: rules.NewStatic([]int{0, 1, 2}),
		sink:   display.Discard,
		clock:  quartz.NewReal(),
		seed:   42,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if len(builder.seats) == 0 {
		builder.seats = []Seat{{Name: "Alice", Human: true}}
	}

	g, err := New(builder.cfg, builder.seats, Options{
		Oracle:   builder.oracle,
		Sink:     builder.sink,
		Clock:    builder.clock,
		Logger:   log.New(io.Discard),
		Recorder: builder.rec,
		Seed:     builder.seed,
	})
	require.NoError(t, err)
	return g
}

func classicRule(t *testing.T) *rules.SetRule {
	t.Helper()
	rule, err := rules.NewSetRule(3, 4)
	require.NoError(t, err)
	return rule
}

// requireConserved checks that every card is in exactly one of the deck, the
// table or the claimed pile.
func requireConserved(t *testing.T, g *Game, deckSize int) {
	t.Helper()
	all := append(append(g.Dealer.Deck(), g.Board.Cards()...), g.Dealer.Claimed()...)
	slices.Sort(all)
	want := make([]int, deckSize)
	for i := range want {
		want[i] = i
	}
	require.Equal(t, want, all)
}

func waitClosed(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal(msg)
	}
}

type roundRecorder struct {
	mu         sync.Mutex
	started    int
	reasons    []RoundEndReason
	selections []Outcome
}

func (r *roundRecorder) RoundStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *roundRecorder) RoundEnded(reason RoundEndReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *roundRecorder) SelectionResolved(_ int, outcome Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selections = append(r.selections, outcome)
}

func (r *roundRecorder) Reasons() []RoundEndReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.reasons)
}

func (r *roundRecorder) Selections() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.selections)
}
