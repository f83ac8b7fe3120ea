// Package metrics exposes game activity as prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/setgame/internal/display"
	"github.com/lox/setgame/internal/game"
)

// Collector records dealer lifecycle hooks and display events on its own
// registry. It implements game.Recorder and display.Sink.
type Collector struct {
	registry *prometheus.Registry
	names    []string

	Selections    *prometheus.CounterVec
	SelectionWait prometheus.Histogram
	Rounds        *prometheus.CounterVec
	RoundsStarted prometheus.Counter
	PlayerScore   *prometheus.GaugeVec
	CardsOnBoard  prometheus.Gauge
}

var (
	_ game.Recorder = (*Collector)(nil)
	_ display.Sink  = (*Collector)(nil)
)

// NewCollector creates a collector. Player ids index names for the score
// label; ids without a name are labelled by number.
func NewCollector(namespace string, names []string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		names:    names,
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Selections resolved by the dealer, by outcome",
		}, []string{"outcome"}),
		SelectionWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "selection_wait_seconds",
			Help:      "Time from submitting a selection to its verdict",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Finished rounds, by reason",
		}, []string{"reason"}),
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Rounds dealt",
		}),
		PlayerScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "player_score",
			Help:      "Current score of each player",
		}, []string{"player"}),
		CardsOnBoard: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cards_on_board",
			Help:      "Cards currently on the table",
		}),
	}

	c.registry.MustRegister(
		c.Selections,
		c.SelectionWait,
		c.Rounds,
		c.RoundsStarted,
		c.PlayerScore,
		c.CardsOnBoard,
	)
	for id := range names {
		c.PlayerScore.WithLabelValues(c.playerLabel(id)).Set(0)
	}
	return c
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RoundStarted implements game.Recorder.
func (c *Collector) RoundStarted() {
	c.RoundsStarted.Inc()
}

// RoundEnded implements game.Recorder.
func (c *Collector) RoundEnded(reason game.RoundEndReason) {
	c.Rounds.WithLabelValues(string(reason)).Inc()
}

// SelectionResolved implements game.Recorder.
func (c *Collector) SelectionResolved(_ int, outcome game.Outcome, wait time.Duration) {
	c.Selections.WithLabelValues(outcome.String()).Inc()
	c.SelectionWait.Observe(wait.Seconds())
}

// OnEvent implements display.Sink.
func (c *Collector) OnEvent(event display.Event) {
	switch e := event.(type) {
	case display.CardPlaced:
		c.CardsOnBoard.Inc()
	case display.CardRemoved:
		c.CardsOnBoard.Dec()
	case display.ScoreChanged:
		c.PlayerScore.WithLabelValues(c.playerLabel(e.Player)).Set(float64(e.Score))
	}
}

func (c *Collector) playerLabel(id int) string {
	if id >= 0 && id < len(c.names) && c.names[id] != "" {
		return c.names[id]
	}
	return strconv.Itoa(id)
}
