// Package rules decides which card combinations form a valid set.
//
// The dealer only depends on the Oracle interface. SetRule is the classic
// feature-vector rule, Static is a fixed table used to stage exact scenarios.
package rules

import (
	"fmt"
	"math"
	"slices"
)

// CombinationSize is the number of cards judged together.
const CombinationSize = 3

// Unbounded asks FindCombinations for every combination.
const Unbounded = math.MaxInt

// Oracle finds and tests combinations of card identifiers.
type Oracle interface {
	// FindCombinations returns at most max valid combinations among cards.
	// max == 1 is used as an existence probe.
	FindCombinations(cards []int, max int) [][]int
	// IsValidCombination reports whether exactly these cards form a set.
	IsValidCombination(cards []int) bool
}

// SetRule encodes every card as featureCount digits in base featureSize.
// Three cards form a set when each feature is either the same on all of them
// or different on all of them.
type SetRule struct {
	featureSize  int
	featureCount int
}

// NewSetRule returns the rule for the given card geometry.
func NewSetRule(featureSize, featureCount int) (*SetRule, error) {
	if featureSize < CombinationSize {
		return nil, fmt.Errorf("feature size must be at least %d, got %d", CombinationSize, featureSize)
	}
	if featureCount < 1 {
		return nil, fmt.Errorf("feature count must be positive, got %d", featureCount)
	}
	return &SetRule{featureSize: featureSize, featureCount: featureCount}, nil
}

// DeckSize is the number of distinct cards the geometry allows.
func (r *SetRule) DeckSize() int {
	size := 1
	for range r.featureCount {
		size *= r.featureSize
	}
	return size
}

// FeatureSize returns the number of values per feature.
func (r *SetRule) FeatureSize() int { return r.featureSize }

// Features decodes a card id, least significant feature first.
func (r *SetRule) Features(card int) []int {
	features := make([]int, r.featureCount)
	for i := range features {
		features[i] = card % r.featureSize
		card /= r.featureSize
	}
	return features
}

// IsValidCombination implements Oracle.
func (r *SetRule) IsValidCombination(cards []int) bool {
	if len(cards) != CombinationSize {
		return false
	}
	a, b, c := cards[0], cards[1], cards[2]
	if a == b || b == c || a == c {
		return false
	}
	for range r.featureCount {
		fa, fb, fc := a%r.featureSize, b%r.featureSize, c%r.featureSize
		same := fa == fb && fb == fc
		distinct := fa != fb && fb != fc && fa != fc
		if !same && !distinct {
			return false
		}
		a, b, c = a/r.featureSize, b/r.featureSize, c/r.featureSize
	}
	return true
}

// FindCombinations implements Oracle.
func (r *SetRule) FindCombinations(cards []int, max int) [][]int {
	return findCombinations(cards, max, r.IsValidCombination)
}

// Static is an oracle over an explicit list of valid combinations.
type Static struct {
	valid map[[CombinationSize]int]bool
}

// NewStatic returns an oracle that accepts exactly the given combinations,
// in any card order.
func NewStatic(valid ...[]int) *Static {
	s := &Static{valid: make(map[[CombinationSize]int]bool, len(valid))}
	for _, combination := range valid {
		if key, ok := keyOf(combination); ok {
			s.valid[key] = true
		}
	}
	return s
}

// IsValidCombination implements Oracle.
func (s *Static) IsValidCombination(cards []int) bool {
	key, ok := keyOf(cards)
	return ok && s.valid[key]
}

// FindCombinations implements Oracle.
func (s *Static) FindCombinations(cards []int, max int) [][]int {
	return findCombinations(cards, max, s.IsValidCombination)
}

func keyOf(cards []int) ([CombinationSize]int, bool) {
	var key [CombinationSize]int
	if len(cards) != CombinationSize {
		return key, false
	}
	copy(key[:], cards)
	slices.Sort(key[:])
	return key, true
}

func findCombinations(cards []int, max int, valid func([]int) bool) [][]int {
	var found [][]int
	if max <= 0 {
		return found
	}
	for i := 0; i < len(cards); i++ {
		for j := i + 1; j < len(cards); j++ {
			for k := j + 1; k < len(cards); k++ {
				combination := []int{cards[i], cards[j], cards[k]}
				if !valid(combination) {
					continue
				}
				found = append(found, combination)
				if len(found) >= max {
					return found
				}
			}
		}
	}
	return found
}
