package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classicRule(t *testing.T) *SetRule {
	t.Helper()
	rule, err := NewSetRule(3, 4)
	require.NoError(t, err)
	return rule
}

func TestNewSetRuleRejectsBadGeometry(t *testing.T) {
	_, err := NewSetRule(2, 4)
	assert.Error(t, err)
	_, err = NewSetRule(3, 0)
	assert.Error(t, err)
}

func TestSetRuleDeckSizeAndFeatures(t *testing.T) {
	rule := classicRule(t)
	assert.Equal(t, 81, rule.DeckSize())
	assert.Equal(t, []int{0, 0, 0, 0}, rule.Features(0))
	assert.Equal(t, []int{2, 1, 0, 0}, rule.Features(5))
	assert.Equal(t, []int{2, 2, 2, 2}, rule.Features(80))
}

func TestSetRuleIsValidCombination(t *testing.T) {
	rule := classicRule(t)
	tests := []struct {
		name  string
		cards []int
		want  bool
	}{
		{name: "one feature differs everywhere", cards: []int{0, 1, 2}, want: true},
		{name: "all features differ", cards: []int{0, 40, 80}, want: true},
		{name: "two equal one different", cards: []int{0, 1, 3}, want: false},
		{name: "duplicate card", cards: []int{0, 0, 1}, want: false},
		{name: "too few cards", cards: []int{0, 1}, want: false},
		{name: "order does not matter", cards: []int{80, 0, 40}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rule.IsValidCombination(tt.cards))
		})
	}
}

func TestSetRuleFindCombinations(t *testing.T) {
	rule := classicRule(t)

	all := rule.FindCombinations([]int{0, 1, 2, 3, 6}, Unbounded)
	assert.ElementsMatch(t, [][]int{{0, 1, 2}, {0, 3, 6}}, all)

	probe := rule.FindCombinations([]int{0, 1, 2, 3, 6}, 1)
	assert.Len(t, probe, 1)

	assert.Empty(t, rule.FindCombinations([]int{0, 1, 3, 4}, Unbounded))
	assert.Empty(t, rule.FindCombinations([]int{0, 1, 2}, 0))
}

func TestEveryPairCompletesToExactlyOneSet(t *testing.T) {
	rule := classicRule(t)
	deck := make([]int, rule.DeckSize())
	for i := range deck {
		deck[i] = i
	}
	// 81 cards hold 1080 distinct sets.
	assert.Len(t, rule.FindCombinations(deck, Unbounded), 1080)
}

func TestStatic(t *testing.T) {
	oracle := NewStatic([]int{4, 2, 9})
	assert.True(t, oracle.IsValidCombination([]int{2, 4, 9}))
	assert.True(t, oracle.IsValidCombination([]int{9, 4, 2}))
	assert.False(t, oracle.IsValidCombination([]int{2, 4, 8}))
	assert.False(t, oracle.IsValidCombination([]int{2, 4}))

	assert.Equal(t, [][]int{{2, 4, 9}}, oracle.FindCombinations([]int{2, 4, 7, 9}, Unbounded))
	assert.Empty(t, NewStatic().FindCombinations([]int{1, 2, 3}, 1))
}
