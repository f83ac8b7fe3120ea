// Package config loads game settings from HCL files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/setgame/internal/game"
	"github.com/lox/setgame/internal/rules"
)

// Config represents a complete game file
type Config struct {
	Game    *GameSettings   `hcl:"game,block"`
	Timing  *TimingSettings `hcl:"timing,block"`
	Players []PlayerConfig  `hcl:"player,block"`
}

// GameSettings describes the table, the deck and the rules
type GameSettings struct {
	TableSize       int    `hcl:"table_size,optional"`
	FeatureSize     int    `hcl:"feature_size,optional"`
	FeatureCount    int    `hcl:"feature_count,optional"`
	DeckSize        int    `hcl:"deck_size,optional"`
	Hints           bool   `hcl:"hints,optional"`
	ReshufflePolicy string `hcl:"reshuffle_policy,optional"`
	Seed            int64  `hcl:"seed,optional"`
}

// TimingSettings holds durations in time.ParseDuration syntax
type TimingSettings struct {
	TurnTimeout        string `hcl:"turn_timeout,optional"`
	TurnTimeoutWarning string `hcl:"turn_timeout_warning,optional"`
	PointFreeze        string `hcl:"point_freeze,optional"`
	PenaltyFreeze      string `hcl:"penalty_freeze,optional"`
	TableDelay         string `hcl:"table_delay,optional"`
	DealerTick         string `hcl:"dealer_tick,optional"`
	FreezeTick         string `hcl:"freeze_tick,optional"`
}

// PlayerConfig defines one seat
type PlayerConfig struct {
	Name  string `hcl:"name,label"`
	Human bool   `hcl:"human,optional"`
}

// Default returns the classic game: a 12 card table, 81 cards with four
// features, one human and one computer player.
func Default() *Config {
	return &Config{
		Game:   defaultGame(),
		Timing: defaultTiming(),
		Players: []PlayerConfig{
			{Name: "Player 1", Human: true},
			{Name: "Computer 1"},
		},
	}
}

func defaultGame() *GameSettings {
	return &GameSettings{
		TableSize:       12,
		FeatureSize:     3,
		FeatureCount:    4,
		DeckSize:        81,
		ReshufflePolicy: string(game.PolicyComplete),
	}
}

func defaultTiming() *TimingSettings {
	return &TimingSettings{
		TurnTimeout:        "60s",
		TurnTimeoutWarning: "5s",
		PointFreeze:        "1s",
		PenaltyFreeze:      "3s",
		TableDelay:         "100ms",
		DealerTick:         "100ms",
		FreezeTick:         "100ms",
	}
}

// Load reads a game file. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := defaultGame()
	if c.Game == nil {
		c.Game = defaults
	}
	if c.Game.TableSize == 0 {
		c.Game.TableSize = defaults.TableSize
	}
	if c.Game.FeatureSize == 0 {
		c.Game.FeatureSize = defaults.FeatureSize
	}
	if c.Game.FeatureCount == 0 {
		c.Game.FeatureCount = defaults.FeatureCount
	}
	if c.Game.DeckSize == 0 {
		c.Game.DeckSize = fullDeck(c.Game.FeatureSize, c.Game.FeatureCount)
	}
	if c.Game.ReshufflePolicy == "" {
		c.Game.ReshufflePolicy = defaults.ReshufflePolicy
	}

	timing := defaultTiming()
	if c.Timing == nil {
		c.Timing = timing
	}
	fill := func(value *string, fallback string) {
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Timing.TurnTimeout, timing.TurnTimeout)
	fill(&c.Timing.TurnTimeoutWarning, timing.TurnTimeoutWarning)
	fill(&c.Timing.PointFreeze, timing.PointFreeze)
	fill(&c.Timing.PenaltyFreeze, timing.PenaltyFreeze)
	fill(&c.Timing.TableDelay, timing.TableDelay)
	fill(&c.Timing.DealerTick, timing.DealerTick)
	fill(&c.Timing.FreezeTick, timing.FreezeTick)

	if len(c.Players) == 0 {
		c.Players = Default().Players
	}
}

func fullDeck(featureSize, featureCount int) int {
	size := 1
	for range featureCount {
		size *= featureSize
	}
	return size
}

// Validate validates the game configuration
func (c *Config) Validate() error {
	var errs []error
	rule, err := c.Rule()
	if err != nil {
		errs = append(errs, err)
	} else if c.Game.DeckSize > rule.DeckSize() {
		errs = append(errs, fmt.Errorf("deck size %d exceeds the %d distinct cards", c.Game.DeckSize, rule.DeckSize()))
	}

	cfg, err := c.GameConfig()
	if err != nil {
		errs = append(errs, err)
	} else if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(c.Players) == 0 {
		errs = append(errs, errors.New("at least one player must be configured"))
	}
	seen := make(map[string]bool, len(c.Players))
	for _, p := range c.Players {
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("player %q is configured twice", p.Name))
		}
		seen[p.Name] = true
	}
	return errors.Join(errs...)
}

// Rule returns the set rule for the configured card geometry.
func (c *Config) Rule() (*rules.SetRule, error) {
	return rules.NewSetRule(c.Game.FeatureSize, c.Game.FeatureCount)
}

// GameConfig converts the file settings into dealer and player settings.
func (c *Config) GameConfig() (game.Config, error) {
	cfg := game.Config{
		TableSize:       c.Game.TableSize,
		DeckSize:        c.Game.DeckSize,
		Hints:           c.Game.Hints,
		ReshufflePolicy: game.ReshufflePolicy(c.Game.ReshufflePolicy),
	}
	durations := []struct {
		name  string
		value string
		into  *time.Duration
	}{
		{"turn_timeout", c.Timing.TurnTimeout, &cfg.TurnTimeout},
		{"turn_timeout_warning", c.Timing.TurnTimeoutWarning, &cfg.TurnTimeoutWarning},
		{"point_freeze", c.Timing.PointFreeze, &cfg.PointFreeze},
		{"penalty_freeze", c.Timing.PenaltyFreeze, &cfg.PenaltyFreeze},
		{"table_delay", c.Timing.TableDelay, &cfg.TableDelay},
		{"dealer_tick", c.Timing.DealerTick, &cfg.Tick},
		{"freeze_tick", c.Timing.FreezeTick, &cfg.FreezeTick},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return game.Config{}, fmt.Errorf("timing.%s: %w", d.name, err)
		}
		*d.into = parsed
	}
	return cfg, nil
}

// Seats returns the configured players in file order.
func (c *Config) Seats() []game.Seat {
	seats := make([]game.Seat, len(c.Players))
	for i, p := range c.Players {
		seats[i] = game.Seat{Name: p.Name, Human: p.Human}
	}
	return seats
}

// SetPlayers replaces the seats with the given number of humans followed by
// computer players.
func (c *Config) SetPlayers(humans, computers int) {
	c.Players = nil
	for i := range humans {
		c.Players = append(c.Players, PlayerConfig{Name: fmt.Sprintf("Player %d", i+1), Human: true})
	}
	for i := range computers {
		c.Players = append(c.Players, PlayerConfig{Name: fmt.Sprintf("Computer %d", i+1)})
	}
}
