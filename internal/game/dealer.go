package game

import (
	"context"
	"io"
	rand "math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/samber/lo"

	"github.com/lox/setgame/internal/display"
	"github.com/lox/setgame/internal/randutil"
	"github.com/lox/setgame/internal/rules"
)

// DealerDeps holds the dealer's collaborators.
type DealerDeps struct {
	Oracle   rules.Oracle
	Sink     display.Sink
	Clock    quartz.Clock
	Logger   *log.Logger
	Rand     *rand.Rand
	Recorder Recorder
}

// Dealer owns the deck and the round timer, and is the only actor that
// removes cards or judges selections.
type Dealer struct {
	cfg      Config
	board    *Board
	players  []*Player
	byID     map[int]*Player
	rv       *Rendezvous
	oracle   rules.Oracle
	sink     display.Sink
	clock    quartz.Clock
	logger   *log.Logger
	rng      *rand.Rand
	recorder Recorder

	mu      sync.Mutex
	deck    []int
	claimed []int
	winners []int

	stop     chan struct{}
	stopOnce sync.Once

	// Owned by the Run goroutine.
	deadline   time.Time
	roundStart time.Time
	recheck    bool
}

// NewDealer creates a dealer holding the full deck 0..cfg.DeckSize-1.
func NewDealer(cfg Config, board *Board, players []*Player, rv *Rendezvous, deps DealerDeps) *Dealer {
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
		deps.Rand = randutil.New(2)
	}
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}

	deck := make([]int, cfg.DeckSize)
	for i := range deck {
		deck[i] = i
	}
	return &Dealer{
		cfg:      cfg,
		board:    board,
		players:  players,
		byID:     lo.KeyBy(players, func(p *Player) int { return p.ID() }),
		rv:       rv,
		oracle:   deps.Oracle,
		sink:     deps.Sink,
		clock:    deps.Clock,
		logger:   deps.Logger.WithPrefix("dealer"),
		rng:      deps.Rand,
		recorder: deps.Recorder,
		deck:     deck,
		stop:     make(chan struct{}),
	}
}

// Run plays rounds until no combination is left or the game is terminated,
// then stops every player and announces the winners. Termination is not an
// error.
func (d *Dealer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-d.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	d.rv.SetReshuffling(true)
	// Players are stopped one by one during shutdown, not by ctx.
	playerCtx := context.WithoutCancel(ctx)
	for _, p := range d.players {
		p.Start(playerCtx)
	}
	d.logger.Info("Dealer started", "players", len(d.players), "deck", len(d.Deck()))

	for !d.shouldFinish(ctx) {
		d.recorder.RoundStarted()
		d.placeCardsOnTable()
		d.rv.SetReshuffling(false)
		reason := d.timerLoop(ctx)
		d.endRound(reason)
	}

	d.shutdown()
	return nil
}

// Terminate asks a running dealer to stop. It is safe to call more than once.
func (d *Dealer) Terminate() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// Deck returns a snapshot of the undealt cards.
func (d *Dealer) Deck() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.deck)
}

// Claimed returns the cards removed by accepted selections.
func (d *Dealer) Claimed() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.claimed)
}

// Winners returns the announced winners, empty until the game ends.
func (d *Dealer) Winners() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.winners)
}

// Players returns the seated players in creation order.
func (d *Dealer) Players() []*Player { return d.players }

func (d *Dealer) shouldFinish(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	remaining := append(d.Deck(), d.board.Cards()...)
	return len(d.oracle.FindCombinations(remaining, 1)) == 0
}

func (d *Dealer) timerLoop(ctx context.Context) RoundEndReason {
	d.resetTimer()
	d.recheck = true
	for {
		if ctx.Err() != nil {
			return ReasonTerminated
		}
		if d.cfg.Timed() && !d.clock.Now().Before(d.deadline) {
			return ReasonTimeout
		}
		if !d.cfg.Timed() && d.recheck {
			d.recheck = false
			if reason, exhausted := d.exhausted(); exhausted {
				return reason
			}
		}

		d.sleepUntilWokenOrTimeout(ctx)
		d.updateTimerDisplay()
		d.checkPendingSelection()
		d.placeCardsOnTable()
	}
}

// exhausted decides whether an untimed round can go on.
func (d *Dealer) exhausted() (RoundEndReason, bool) {
	onTable := d.board.Cards()
	if len(d.oracle.FindCombinations(append(d.Deck(), onTable...), 1)) == 0 {
		return ReasonNoCombinations, true
	}
	if len(d.oracle.FindCombinations(onTable, 1)) == 0 {
		return ReasonBoardExhausted, true
	}
	return "", false
}

func (d *Dealer) sleepUntilWokenOrTimeout(ctx context.Context) {
	wait := d.cfg.Tick
	if d.cfg.Timed() {
		wait = min(wait, d.clock.Until(d.deadline))
	}
	if wait <= 0 {
		return
	}
	timer := d.clock.NewTimer(wait, "dealer", "tick")
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-d.rv.Wake():
	case <-timer.C:
	}
}

// placeCardsOnTable fills empty slots from a freshly shuffled deck and
// returns how many cards were dealt.
func (d *Dealer) placeCardsOnTable() int {
	free := d.board.CountEmpty()
	if free == 0 {
		return 0
	}

	d.mu.Lock()
	d.rng.Shuffle(len(d.deck), func(i, j int) { d.deck[i], d.deck[j] = d.deck[j], d.deck[i] })
	drawn := slices.Clone(d.deck[:min(free, len(d.deck))])
	d.mu.Unlock()

	placed := 0
	for _, card := range drawn {
		if d.board.PlaceAtRandomEmptySlot(card) == NoSlot {
			break
		}
		d.mu.Lock()
		d.deck = lo.Without(d.deck, card)
		d.mu.Unlock()
		placed++
	}
	if placed == 0 {
		return 0
	}

	d.logger.Debug("Dealt cards", "count", placed, "deck", len(d.Deck()))
	d.resetTimer()
	if d.cfg.Hints {
		d.logHints()
	}
	return placed
}

func (d *Dealer) logHints() {
	combinations := d.oracle.FindCombinations(d.board.Cards(), rules.Unbounded)
	if len(combinations) == 0 {
		d.logger.Info("Hint: no set on the table")
		return
	}
	for _, combination := range combinations {
		slots := d.board.SlotsOf(combination)
		slices.Sort(slots)
		d.logger.Info("Hint", "slots", slots, "cards", combination)
	}
}

func (d *Dealer) checkPendingSelection() {
	req, ok := d.rv.Pending()
	if !ok {
		return
	}
	d.resolve(req)
}

// resolve judges req against the current table. Score and freeze are
// applied before the waiting player is woken.
func (d *Dealer) resolve(req *Request) Outcome {
	id := req.PlayerID()
	player := d.byID[id]
	cards := d.board.TokensOf(id)

	outcome := Stale
	switch {
	case player == nil:
		d.logger.Warn("Selection from unknown player", "player", id)
	case len(cards) != MaxTokens:
		d.logger.Warn("Discarding stale selection", "player", id, "tokens", len(cards))
	case d.oracle.IsValidCombination(cards):
		removed := d.board.RemoveCards(cards...)
		d.mu.Lock()
		d.claimed = append(d.claimed, cards...)
		d.mu.Unlock()
		d.recheck = true
		player.Point()
		outcome = Accepted
		d.logger.Info("Set of player is valid", "player", id, "cards", cards, "removed", removed)
	default:
		player.Penalty()
		outcome = Rejected
		d.logger.Info("Set of player is invalid", "player", id, "cards", cards)
	}

	d.rv.Resolve(req, outcome)
	d.recorder.SelectionResolved(id, outcome, d.clock.Since(req.Submitted()))
	return outcome
}

// settleInFlight applies the reshuffle policy to a selection still pending
// when the round ends.
func (d *Dealer) settleInFlight() {
	req, ok := d.rv.Pending()
	if !ok {
		return
	}
	if d.cfg.ReshufflePolicy == PolicyDiscard {
		d.rv.Resolve(req, Discarded)
		d.recorder.SelectionResolved(req.PlayerID(), Discarded, d.clock.Since(req.Submitted()))
		d.logger.Info("Discarded selection at reshuffle", "player", req.PlayerID())
		return
	}
	d.resolve(req)
}

func (d *Dealer) endRound(reason RoundEndReason) {
	d.rv.SetReshuffling(true)
	d.settleInFlight()
	d.updateTimerDisplay()
	d.removeAllCardsFromTable()
	d.recorder.RoundEnded(reason)
	d.logger.Info("Round ended", "reason", reason, "deck", len(d.Deck()))
}

func (d *Dealer) removeAllCardsFromTable() {
	onTable := d.board.Cards()
	d.board.RemoveAllCards()
	d.mu.Lock()
	d.deck = append(d.deck, onTable...)
	d.mu.Unlock()
}

func (d *Dealer) resetTimer() {
	now := d.clock.Now()
	d.roundStart = now
	d.deadline = now.Add(d.cfg.TurnTimeout)
	d.updateTimerDisplay()
}

func (d *Dealer) updateTimerDisplay() {
	switch {
	case d.cfg.TurnTimeout > 0:
		remaining := max(d.clock.Until(d.deadline), 0)
		d.sink.OnEvent(display.CountdownChanged{
			Remaining: remaining,
			Warn:      remaining < d.cfg.TurnTimeoutWarning,
		})
	case d.cfg.TurnTimeout == 0:
		d.sink.OnEvent(display.ElapsedChanged{Elapsed: d.clock.Since(d.roundStart)})
	}
}

func (d *Dealer) announceWinners() {
	top := lo.Max(lo.Map(d.players, func(p *Player, _ int) int { return p.Score() }))
	winners := lo.FilterMap(d.players, func(p *Player, _ int) (int, bool) {
		return p.ID(), p.Score() == top
	})

	d.mu.Lock()
	d.winners = winners
	d.mu.Unlock()

	d.logger.Info("Game over", "winners", winners, "score", top)
	d.sink.OnEvent(display.WinnersAnnounced{Players: slices.Clone(winners)})
}

func (d *Dealer) shutdown() {
	d.announceWinners()
	d.rv.Close()
	for i := len(d.players) - 1; i >= 0; i-- {
		d.players[i].Terminate()
	}
	d.logger.Info("Dealer terminated")
}
