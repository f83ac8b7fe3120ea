// Package results writes the end-of-game summary.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/lox/setgame/internal/game"
)

// Summary is the JSON document written when a game ends.
type Summary struct {
	GameID     string          `json:"game_id"`
	Seed       int64           `json:"seed"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Winners    []string        `json:"winners"`
	Players    []PlayerSummary `json:"players"`
	DeckLeft   int             `json:"deck_left"`
}

// PlayerSummary is one player's final standing.
type PlayerSummary struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Human  bool   `json:"human"`
	Score  int    `json:"score"`
	Winner bool   `json:"winner"`
}

// NewSummary captures the state of a finished game.
func NewSummary(gameID string, seed int64, startedAt, finishedAt time.Time, g *game.Game) Summary {
	winners := g.Dealer.Winners()
	s := Summary{
		GameID:     gameID,
		Seed:       seed,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Winners:    []string{},
		DeckLeft:   len(g.Dealer.Deck()),
	}
	for _, p := range g.Players {
		won := slices.Contains(winners, p.ID())
		if won {
			s.Winners = append(s.Winners, p.Name())
		}
		s.Players = append(s.Players, PlayerSummary{
			ID:     p.ID(),
			Name:   p.Name(),
			Human:  p.Human(),
			Score:  p.Score(),
			Winner: won,
		})
	}
	return s
}

// Write stores the summary as indented JSON. Readers see either the
// previous file or the complete new one.
func Write(filename string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return writeFileAtomic(filename, append(data, '\n'), 0o644)
}

// Read loads a summary written by Write.
func Read(filename string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(filename)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to decode summary %s: %w", filename, err)
	}
	return s, nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
