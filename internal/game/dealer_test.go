package game

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/setgame/internal/display"
	"github.com/lox/setgame/internal/rules"
)

func markAll(t *testing.T, b *Board, player int, slots ...int) {
	t.Helper()
	for _, slot := range slots {
		require.Equal(t, TokenPlaced, b.ToggleToken(player, slot).Action)
	}
}

func TestValidSelectionScoresAndClearsCards(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, WithClock(quartz.NewMock(t)))
	d := g.Dealer

	require.Equal(t, 3, d.placeCardsOnTable())
	markAll(t, g.Board, 0, 0, 1, 2)
	req, err := g.Rendezvous.Submit(ctx, 0)
	require.NoError(t, err)

	d.checkPendingSelection()

	assert.Equal(t, Accepted, req.Outcome())
	assert.Equal(t, 1, g.Players[0].Score())
	for slot := range 3 {
		_, ok := g.Board.CardAt(slot)
		assert.False(t, ok, "slot %d still holds a card", slot)
	}
	assert.Equal(t, 0, g.Board.TokenCount(0))
	assert.True(t, d.recheck)
	assert.ElementsMatch(t, []int{0, 1, 2}, d.Claimed())
	_, pending := g.Rendezvous.Pending()
	assert.False(t, pending)
	requireConserved(t, g, 3)
}

func TestInvalidSelectionPenalizes(t *testing.T) {
	ctx := context.Background()
	mockClock := quartz.NewMock(t)
	g := newTestGame(t,
		WithClock(mockClock),
		WithOracle(rules.NewStatic()),
		WithFreezes(time.Second, 3*time.Second),
	)
	d := g.Dealer
	p := g.Players[0]

	d.placeCardsOnTable()
	markAll(t, g.Board, 0, 0, 1, 2)
	req, err := g.Rendezvous.Submit(ctx, 0)
	require.NoError(t, err)

	d.checkPendingSelection()

	assert.Equal(t, Rejected, req.Outcome())
	assert.Equal(t, 0, p.Score())
	assert.True(t, p.IsFrozen())
	assert.Equal(t, 3*time.Second, mockClock.Until(p.FrozenUntil()))
	assert.Equal(t, 3, g.Board.CountOccupied())
	assert.Equal(t, 3, g.Board.TokenCount(0))
	assert.False(t, d.recheck)
	requireConserved(t, g, 3)
}

func TestStaleSelectionHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, WithClock(quartz.NewMock(t)), WithFreezes(time.Second, time.Second))
	d := g.Dealer
	p := g.Players[0]

	d.placeCardsOnTable()
	markAll(t, g.Board, 0, 0, 1, 2)
	req, err := g.Rendezvous.Submit(ctx, 0)
	require.NoError(t, err)
	g.Board.ToggleToken(0, 1)

	d.checkPendingSelection()

	assert.Equal(t, Stale, req.Outcome())
	assert.Equal(t, 0, p.Score())
	assert.False(t, p.IsFrozen())
	assert.Equal(t, 3, g.Board.CountOccupied())
}

func TestCheckPendingSelectionWithoutRequest(t *testing.T) {
	rec := &roundRecorder{}
	g := newTestGame(t, WithClock(quartz.NewMock(t)), WithRecorder(rec))
	g.Dealer.checkPendingSelection()
	assert.Empty(t, rec.Selections())
}

func TestShouldFinish(t *testing.T) {
	g := newTestGame(t, WithClock(quartz.NewMock(t)))
	assert.False(t, g.Dealer.shouldFinish(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, g.Dealer.shouldFinish(ctx))

	hopeless := newTestGame(t,
		WithClock(quartz.NewMock(t)),
		WithDeckSize(6),
		WithOracle(rules.NewStatic()),
		WithHumans("Alice", "Bob"),
	)
	assert.True(t, hopeless.Dealer.shouldFinish(context.Background()))
}

func TestRunEndsWhenNoCombinationRemains(t *testing.T) {
	recorder := display.NewRecorder()
	g := newTestGame(t,
		WithDeckSize(6),
		WithOracle(rules.NewStatic()),
		WithHumans("Alice", "Bob"),
		WithSink(recorder),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, g.Dealer.Run(context.Background()))
	}()
	waitClosed(t, done, "dealer did not finish on its own")

	assert.Equal(t, []int{0, 1}, g.Dealer.Winners())
	assert.True(t, recorder.Contains(display.WinnersAnnounced{Players: []int{0, 1}}))
	for _, p := range g.Players {
		waitClosed(t, p.Done(), "player still running after the dealer stopped")
	}
}

func TestExhausted(t *testing.T) {
	g := newTestGame(t, WithClock(quartz.NewMock(t)), WithDeckSize(6))
	d := g.Dealer
	for slot, card := range []int{3, 4, 5} {
		require.True(t, g.Board.Place(card, slot))
	}

	d.deck = []int{0, 1, 2}
	reason, exhausted := d.exhausted()
	assert.True(t, exhausted)
	assert.Equal(t, ReasonBoardExhausted, reason)

	d.deck = nil
	reason, exhausted = d.exhausted()
	assert.True(t, exhausted)
	assert.Equal(t, ReasonNoCombinations, reason)

	g.Board.RemoveAllCards()
	for slot, card := range []int{0, 1, 2} {
		require.True(t, g.Board.Place(card, slot))
	}
	_, exhausted = d.exhausted()
	assert.False(t, exhausted)
}

func TestUntimedTimerLoopExitsWithoutSleeping(t *testing.T) {
	g := newTestGame(t, WithClock(quartz.NewMock(t)), WithDeckSize(6), WithTurnTimeout(-1, 0))
	d := g.Dealer
	for slot, card := range []int{3, 4, 5} {
		require.True(t, g.Board.Place(card, slot))
	}
	d.deck = []int{0, 1, 2}

	assert.Equal(t, ReasonBoardExhausted, d.timerLoop(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, ReasonTerminated, d.timerLoop(ctx))
}

func TestCountdownDisplay(t *testing.T) {
	ctx := context.Background()
	mockClock := quartz.NewMock(t)
	recorder := display.NewRecorder()
	g := newTestGame(t, WithClock(mockClock), WithSink(recorder), WithTurnTimeout(10*time.Second, 5*time.Second))
	d := g.Dealer

	d.resetTimer()
	assert.True(t, recorder.Contains(display.CountdownChanged{Remaining: 10 * time.Second}))

	mockClock.Advance(6 * time.Second).MustWait(ctx)
	d.updateTimerDisplay()
	assert.True(t, recorder.Contains(display.CountdownChanged{Remaining: 4 * time.Second, Warn: true}))

	mockClock.Advance(5 * time.Second).MustWait(ctx)
	d.updateTimerDisplay()
	assert.True(t, recorder.Contains(display.CountdownChanged{Remaining: 0, Warn: true}))
	assert.Zero(t, recorder.Count(display.EventTypeElapsedChanged))
}

func TestElapsedDisplay(t *testing.T) {
	ctx := context.Background()
	mockClock := quartz.NewMock(t)
	recorder := display.NewRecorder()
	g := newTestGame(t, WithClock(mockClock), WithSink(recorder), WithTurnTimeout(0, 0))
	d := g.Dealer

	d.resetTimer()
	mockClock.Advance(2 * time.Second).MustWait(ctx)
	d.updateTimerDisplay()

	assert.True(t, recorder.Contains(display.ElapsedChanged{Elapsed: 0}))
	assert.True(t, recorder.Contains(display.ElapsedChanged{Elapsed: 2 * time.Second}))
	assert.Zero(t, recorder.Count(display.EventTypeCountdownChanged))
}

func TestUntimedWithoutDisplay(t *testing.T) {
	recorder := display.NewRecorder()
	g := newTestGame(t, WithClock(quartz.NewMock(t)), WithSink(recorder), WithTurnTimeout(-1, 0))
	g.Dealer.resetTimer()
	g.Dealer.updateTimerDisplay()
	assert.Zero(t, recorder.Count(display.EventTypeCountdownChanged))
	assert.Zero(t, recorder.Count(display.EventTypeElapsedChanged))
}

func TestRefillResetsCountdown(t *testing.T) {
	ctx := context.Background()
	mockClock := quartz.NewMock(t)
	g := newTestGame(t, WithClock(mockClock), WithDeckSize(6), WithTurnTimeout(10*time.Second, time.Second))
	d := g.Dealer

	require.Equal(t, 3, d.placeCardsOnTable())
	mockClock.Advance(6 * time.Second).MustWait(ctx)
	assert.Equal(t, 4*time.Second, mockClock.Until(d.deadline))

	require.True(t, g.Board.Remove(0))
	require.Equal(t, 1, d.placeCardsOnTable())
	assert.Equal(t, 10*time.Second, mockClock.Until(d.deadline))

	assert.Zero(t, d.placeCardsOnTable(), "a full table deals nothing")
	assert.Equal(t, 10*time.Second, mockClock.Until(d.deadline))
}

func TestEndRoundCollectsCards(t *testing.T) {
	rec := &roundRecorder{}
	g := newTestGame(t, WithClock(quartz.NewMock(t)), WithDeckSize(6), WithRecorder(rec))
	d := g.Dealer

	d.placeCardsOnTable()
	markAll(t, g.Board, 0, 0)
	d.endRound(ReasonTimeout)

	assert.True(t, g.Rendezvous.Reshuffling())
	assert.Zero(t, g.Board.CountOccupied())
	assert.Zero(t, g.Board.TokenCount(0))
	assert.Len(t, d.Deck(), 6)
	assert.Equal(t, []RoundEndReason{ReasonTimeout}, rec.Reasons())
	requireConserved(t, g, 6)
}

func TestHintsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.TableSize, cfg.DeckSize, cfg.Hints = 3, 3, true
	g, err := New(cfg, []Seat{{Name: "Alice", Human: true}}, Options{
		Oracle: rules.NewStatic([]int{0, 1, 2}),
		Clock:  quartz.NewMock(t),
		Logger: log.New(&buf),
	})
	require.NoError(t, err)

	g.Dealer.placeCardsOnTable()
	assert.Contains(t, buf.String(), "Hint")
	assert.Contains(t, buf.String(), "slots")
}

// A player awaiting a verdict when the game stops must be woken before the
// dealer finishes shutting down.
func TestShutdownWakesAwaitingPlayer(t *testing.T) {
	tests := []struct {
		name      string
		policy    ReshufflePolicy
		outcome   Outcome
		score     int
		deckAfter int
	}{
		{name: "complete", policy: PolicyComplete, outcome: Accepted, score: 1, deckAfter: 0},
		{name: "discard", policy: PolicyDiscard, outcome: Discarded, score: 0, deckAfter: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &roundRecorder{}
			g := newTestGame(t, WithPolicy(tt.policy), WithRecorder(rec))
			d := g.Dealer
			p := g.Players[0]

			d.placeCardsOnTable()
			p.Start(context.Background())
			for slot := range 3 {
				require.True(t, p.KeyPressed(slot))
			}
			require.Eventually(t, func() bool {
				_, ok := g.Rendezvous.Pending()
				return ok
			}, time.Second, time.Millisecond)
			req, _ := g.Rendezvous.Pending()

			d.endRound(ReasonTerminated)
			d.shutdown()

			assert.Equal(t, tt.outcome, req.Outcome())
			assert.Equal(t, tt.score, p.Score())
			assert.Len(t, d.Deck(), tt.deckAfter)
			assert.Equal(t, []Outcome{tt.outcome}, rec.Selections())
			waitClosed(t, p.Done(), "player was left blocked")
			requireConserved(t, g, 3)
		})
	}
}

func TestShutdownDiscardsRequestLeftInRendezvous(t *testing.T) {
	g := newTestGame(t)
	d := g.Dealer
	p := g.Players[0]

	d.placeCardsOnTable()
	p.Start(context.Background())
	for slot := range 3 {
		require.True(t, p.KeyPressed(slot))
	}
	require.Eventually(t, func() bool {
		_, ok := g.Rendezvous.Pending()
		return ok
	}, time.Second, time.Millisecond)
	req, _ := g.Rendezvous.Pending()

	d.shutdown()

	assert.Equal(t, Discarded, req.Outcome())
	waitClosed(t, p.Done(), "player was left blocked")
}

func TestRunSingleBotClearsTheDeck(t *testing.T) {
	rec := &roundRecorder{}
	g := newTestGame(t, WithBots("Bot"), WithTurnTimeout(-1, 0), WithRecorder(rec))

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, g.Dealer.Run(context.Background()))
	}()
	waitClosed(t, done, "game did not end once the deck was cleared")

	assert.Equal(t, 1, g.Players[0].Score())
	assert.Equal(t, []int{0}, g.Dealer.Winners())
	assert.Equal(t, []RoundEndReason{ReasonNoCombinations}, rec.Reasons())
	assert.Equal(t, []Outcome{Accepted}, rec.Selections())
	requireConserved(t, g, 3)
}

func TestRunWithBotsUntilTerminated(t *testing.T) {
	rec := &roundRecorder{}
	g := newTestGame(t,
		WithTableSize(12),
		WithDeckSize(81),
		WithOracle(classicRule(t)),
		WithBots("Ada", "Bea", "Cal", "Dot"),
		WithTurnTimeout(40*time.Millisecond, 10*time.Millisecond),
		WithFreezes(time.Millisecond, 2*time.Millisecond),
		WithRecorder(rec),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, g.Dealer.Run(context.Background()))
	}()
	require.Eventually(t, func() bool { return len(rec.Reasons()) >= 2 }, 5*time.Second, 5*time.Millisecond)
	g.Dealer.Terminate()
	g.Dealer.Terminate()
	waitClosed(t, done, "dealer did not stop after Terminate")

	require.NoError(t, g.Board.CheckInvariants())
	assert.Zero(t, g.Board.CountOccupied(), "table is collected at the end of every round")
	requireConserved(t, g, 81)

	total := 0
	for _, p := range g.Players {
		total += p.Score()
		waitClosed(t, p.Done(), "player still running")
	}
	assert.Equal(t, total*MaxTokens, len(g.Dealer.Claimed()))
	assert.NotEmpty(t, g.Dealer.Winners())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	rec := &roundRecorder{}
	g := newTestGame(t, WithHumans("Bob"), WithRecorder(rec))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, g.Dealer.Run(ctx))
	}()
	require.Eventually(t, func() bool { return g.Board.CountOccupied() == 3 }, time.Second, time.Millisecond)
	cancel()
	waitClosed(t, done, "dealer ignored cancellation")

	reasons := rec.Reasons()
	require.NotEmpty(t, reasons)
	assert.Equal(t, ReasonTerminated, reasons[len(reasons)-1])
	requireConserved(t, g, 3)
}
