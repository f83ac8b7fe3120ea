// Package tui is the terminal front-end: it renders the table from display
// events and turns key presses into player actions.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/setgame/internal/display"
)

const (
	refreshInterval = 50 * time.Millisecond
	columns         = 4
)

// KeyReceiver accepts slot selections from the keyboard.
type KeyReceiver interface {
	KeyPressed(slot int) bool
}

// Seat is one player as the view knows it.
type Seat struct {
	Name  string
	Human bool
	// Input is set for human players.
	Input KeyReceiver
}

// CardRenderer draws a card face.
type CardRenderer func(card int) string

// GameOverMsg tells the model the game has finished.
type GameOverMsg struct{}

type tickMsg time.Time

// Model represents the Bubble Tea model for the set game
type Model struct {
	bridge  *Bridge
	seats   []Seat
	keymaps map[int]KeyMap // by player id
	render  CardRenderer
	cancel  context.CancelFunc
	logger  *log.Logger

	state    State
	gameOver bool
	quitting bool
	width    int
}

// NewModel creates the model. cancel is called when the user quits.
func NewModel(bridge *Bridge, seats []Seat, render CardRenderer, cancel context.CancelFunc, logger *log.Logger) *Model {
	if render == nil {
		render = func(card int) string { return fmt.Sprintf("#%d", card) }
	}
	m := &Model{
		bridge:  bridge,
		seats:   seats,
		keymaps: make(map[int]KeyMap),
		render:  render,
		cancel:  cancel,
		logger:  logger.WithPrefix("tui"),
		state:   bridge.Snapshot(),
	}

	humans := 0
	for id, seat := range seats {
		if !seat.Human || seat.Input == nil {
			continue
		}
		km, ok := NewKeyMap(humans, len(m.state.Slots))
		if !ok {
			m.logger.Warn("No key layout left for human player", "player", id, "name", seat.Name)
			continue
		}
		m.keymaps[id] = km
		humans++
	}
	return m
}

// Init starts the refresh ticker
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.state = m.bridge.Snapshot()
		return m, tick()

	case GameOverMsg:
		m.gameOver = true
		m.state = m.bridge.Snapshot()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		if key.Matches(msg, Quit) {
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		if m.gameOver {
			return m, nil
		}
		for id, km := range m.keymaps {
			if slot, ok := km.Slot(msg); ok {
				m.seats[id].Input.KeyPressed(slot)
			}
		}
	}
	return m, nil
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("SET"))
	b.WriteString("  ")
	b.WriteString(m.renderTimer())
	b.WriteString("\n\n")
	b.WriteString(m.renderGrid())
	b.WriteString("\n")
	b.WriteString(m.renderPlayers())
	b.WriteString("\n")
	for _, line := range m.state.Log {
		b.WriteString(InfoStyle.Render(line))
		b.WriteString("\n")
	}
	if m.state.GameOver || m.gameOver {
		b.WriteString("\n")
		b.WriteString(SuccessStyle.Render(m.renderWinners()))
		b.WriteString("\n")
	}
	b.WriteString(InfoStyle.Render("esc to quit"))
	return b.String()
}

func (m *Model) renderTimer() string {
	switch m.state.Timer {
	case TimerCountdown:
		if m.state.Warn {
			return ErrorStyle.Render("reshuffle in " + display.FormatDuration(m.state.Countdown, true))
		}
		return WarningStyle.Render("reshuffle in " + display.FormatDuration(m.state.Countdown, false))
	case TimerElapsed:
		return WarningStyle.Render("elapsed " + display.FormatDuration(m.state.Elapsed, false))
	default:
		return ""
	}
}

func (m *Model) renderGrid() string {
	var rows []string
	var row []string
	for slot, card := range m.state.Slots {
		row = append(row, m.renderSlot(slot, card))
		if len(row) == columns {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) renderSlot(slot, card int) string {
	label := m.slotKeys(slot)
	if card < 0 {
		return EmptySlotStyle.Render(label + "\n\n")
	}
	var marks []string
	for player, tokens := range m.state.Tokens {
		if slot < len(tokens) && tokens[slot] {
			marks = append(marks, playerStyle(player).Render("●"))
		}
	}
	style := CardStyle
	if len(marks) > 0 {
		style = SelectedCardStyle
	}
	return style.Render(label + "\n" + m.render(card) + "\n" + strings.Join(marks, " "))
}

func (m *Model) slotKeys(slot int) string {
	var keys []string
	for id := range m.seats {
		km, ok := m.keymaps[id]
		if !ok || slot >= len(km.Slots) {
			continue
		}
		keys = append(keys, km.Slots[slot].Help().Key)
	}
	if len(keys) == 0 {
		return fmt.Sprintf("%d", slot)
	}
	return strings.Join(keys, " ")
}

func (m *Model) renderPlayers() string {
	var lines []string
	for id, seat := range m.seats {
		kind := "bot"
		if seat.Human {
			kind = "human"
		}
		line := fmt.Sprintf("%s %s (%s): %d", playerStyle(id).Render("●"), seat.Name, kind, m.score(id))
		if id < len(m.state.Frozen) && m.state.Frozen[id] > 0 {
			line += WarningStyle.Render("  frozen " + display.FormatDuration(m.state.Frozen[id], false))
		}
		lines = append(lines, PlayerInfoStyle.Render(line))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *Model) score(id int) int {
	if id < len(m.state.Scores) {
		return m.state.Scores[id]
	}
	return 0
}

func (m *Model) renderWinners() string {
	if len(m.state.Winners) == 0 {
		return "Game over"
	}
	names := make([]string, 0, len(m.state.Winners))
	for _, id := range m.state.Winners {
		if id >= 0 && id < len(m.seats) {
			names = append(names, m.seats[id].Name)
		}
	}
	if len(names) == 1 {
		return "Winner: " + names[0]
	}
	return "It is a tie between " + strings.Join(names, ", ")
}

// NewProgram wraps the model in a full screen program bound to ctx.
func NewProgram(ctx context.Context, m *Model, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	return tea.NewProgram(m, opts...)
}
