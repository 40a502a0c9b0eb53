package spectatorpush

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"agent-arena/internal/events"
)

const (
	colorFound   = 0x5865F2
	colorWin     = 0x3BA55D
	colorDraw    = 0xFEE75C
	shortIDLimit = 12
	footerText   = "agent-arena match feed"
)

// FormatMessage renders an arena event. Event types without a rendering
// report false.
func FormatMessage(ev events.Event) (FormattedMessage, bool) {
	matchShort := shortID(fallback(ev.MatchID, "unknown"), shortIDLimit)
	versus := fmt.Sprintf("%s vs %s", fallback(ev.Player1ID, "?"), fallback(ev.Player2ID, "?"))
	msg := FormattedMessage{
		Timestamp: eventTimestamp(ev.At),
		Footer:    footerText,
	}
	fields := []MessageField{
		{Name: "Player 1", Value: fallback(ev.Player1ID, "-"), Inline: true},
		{Name: "Player 2", Value: fallback(ev.Player2ID, "-"), Inline: true},
		{Name: "Stake", Value: strconv.FormatInt(ev.Stake, 10), Inline: true},
	}

	switch ev.Type {
	case events.TypeMatchFound:
		msg.Title = fmt.Sprintf("Match Found · %s · M:%s", fallback(ev.GameType, "RPS"), matchShort)
		msg.Content = versus
		msg.Description = fmt.Sprintf("%s for %d each.", versus, ev.Stake)
		msg.Color = colorFound
		fields = append(fields, MessageField{Name: "Status", Value: "in_progress", Inline: true})
	case events.TypeMatchSettled:
		msg.Title = fmt.Sprintf("Match Settled · %s · M:%s", fallback(ev.GameType, "RPS"), matchShort)
		pot := ev.Stake * 2
		if ev.IsDraw {
			msg.Content = versus + " drew"
			msg.Description = fmt.Sprintf("%s ended in a draw. Stakes returned less fees.", versus)
			msg.Color = colorDraw
			fields = append(fields, MessageField{Name: "Result", Value: "draw", Inline: true})
		} else {
			msg.Content = fmt.Sprintf("%s won %s", ev.WinnerID, versus)
			msg.Description = fmt.Sprintf("%s takes %d of the %d pot.", ev.WinnerID, pot-ev.HouseFee, pot)
			msg.Color = colorWin
			fields = append(fields, MessageField{Name: "Winner", Value: ev.WinnerID, Inline: true})
		}
		fields = append(fields,
			MessageField{Name: "Pot", Value: strconv.FormatInt(pot, 10), Inline: true},
			MessageField{Name: "House fee", Value: strconv.FormatInt(ev.HouseFee, 10), Inline: true},
		)
	default:
		return FormattedMessage{}, false
	}
	msg.Fields = fields
	return msg, true
}

func panelKey(t PushTarget, ev events.Event) string {
	return targetKey(t) + "|" + ev.MatchID
}

func shortID(v string, n int) string {
	if n <= 0 || len(v) <= n {
		return v
	}
	return v[:n]
}

func eventTimestamp(at time.Time) string {
	if at.IsZero() {
		return ""
	}
	return at.UTC().Format(time.RFC3339)
}

func fallback(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}
