package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Static styles for content elements
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262")).
			Width(14).
			Align(lipgloss.Center)

	SelectedCardStyle = CardStyle.
				BorderForeground(lipgloss.Color("#FFD700"))

	EmptySlotStyle = CardStyle.
			Foreground(lipgloss.Color("#626262")).
			BorderStyle(lipgloss.HiddenBorder())

	PlayerInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// featureColors paint the second card feature.
var featureColors = []lipgloss.Color{"#FF6B6B", "#96CEB4", "#7D56F4"}

// playerColors mark each player's tokens.
var playerColors = []lipgloss.Color{"#FFD700", "#4ECDC4", "#FF8C42", "#F78FB3", "#A3CB38", "#74B9FF"}

func playerStyle(player int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(playerColors[player%len(playerColors)]).Bold(true)
}

// DisableColor renders everything as plain text.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
