package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/setgame/internal/rules"
)

// symbols[shading][shape]
var symbols = [][]string{
	{"◆", "●", "▲"},
	{"◈", "◉", "◭"},
	{"◇", "○", "△"},
}

// SetCardRenderer draws classic cards (three values per feature, up to four
// features) as count, colour, shape and shading. Other geometries fall back
// to their feature digits.
func SetCardRenderer(rule *rules.SetRule) CardRenderer {
	return func(card int) string {
		features := rule.Features(card)
		if rule.FeatureSize() != 3 || len(features) > 4 {
			return fallbackCard(features)
		}
		for len(features) < 4 {
			features = append(features, 0)
		}
		count, color, shape, shading := features[0], features[1], features[2], features[3]
		face := strings.Repeat(symbols[shading][shape], count+1)
		return lipgloss.NewStyle().Foreground(featureColors[color]).Render(face)
	}
}

func fallbackCard(features []int) string {
	digits := make([]string, len(features))
	for i, f := range features {
		digits[i] = fmt.Sprint(f)
	}
	return strings.Join(digits, "")
}
