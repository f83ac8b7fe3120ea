package display

import (
	"fmt"
	"strings"
	"time"
)

// Formatter renders events as short human readable lines.
type Formatter struct {
	// PlayerName resolves a player id. Nil falls back to "player N".
	PlayerName func(id int) string
	// CardLabel renders a card id. Nil falls back to "#N".
	CardLabel func(card int) string
}

// Format returns a one line description of event.
func (f Formatter) Format(event Event) string {
	switch e := event.(type) {
	case CardPlaced:
		return fmt.Sprintf("slot %d: %s placed", e.Slot, f.card(e.Card))
	case CardRemoved:
		return fmt.Sprintf("slot %d: card removed", e.Slot)
	case TokenPlaced:
		return fmt.Sprintf("%s: token on slot %d", f.player(e.Player), e.Slot)
	case TokenRemoved:
		return fmt.Sprintf("%s: token lifted from slot %d", f.player(e.Player), e.Slot)
	case ScoreChanged:
		return fmt.Sprintf("%s: score %d", f.player(e.Player), e.Score)
	case CountdownChanged:
		if e.Warn {
			return fmt.Sprintf("reshuffle in %s!", FormatDuration(e.Remaining, true))
		}
		return fmt.Sprintf("reshuffle in %s", FormatDuration(e.Remaining, false))
	case ElapsedChanged:
		return fmt.Sprintf("round running for %s", FormatDuration(e.Elapsed, false))
	case FreezeChanged:
		if e.Remaining <= 0 {
			return fmt.Sprintf("%s: unfrozen", f.player(e.Player))
		}
		return fmt.Sprintf("%s: frozen for %s", f.player(e.Player), FormatDuration(e.Remaining, false))
	case WinnersAnnounced:
		names := make([]string, len(e.Players))
		for i, id := range e.Players {
			names[i] = f.player(id)
		}
		if len(names) == 1 {
			return fmt.Sprintf("winner: %s", names[0])
		}
		return fmt.Sprintf("it is a tie between %s", strings.Join(names, ", "))
	default:
		return event.EventType().String()
	}
}

func (f Formatter) player(id int) string {
	if f.PlayerName != nil {
		return f.PlayerName(id)
	}
	return fmt.Sprintf("player %d", id)
}

func (f Formatter) card(card int) string {
	if f.CardLabel != nil {
		return f.CardLabel(card)
	}
	return fmt.Sprintf("#%d", card)
}

// FormatDuration renders whole seconds as m:ss, or s.cc with hundredths when
// precise is set (used inside the warning window).
func FormatDuration(d time.Duration, precise bool) string {
	if d < 0 {
		d = 0
	}
	if precise {
		return fmt.Sprintf("%d.%02d", int(d/time.Second), int(d%time.Second/(10*time.Millisecond)))
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
