package spectatorpush

import (
	"slices"
	"strings"

	"agent-arena/internal/events"
)

type Router struct{}

func (Router) MatchTargets(targets []PushTarget, ev events.Event) []PushTarget {
	out := make([]PushTarget, 0, len(targets))
	for _, t := range targets {
		if t.Enabled && scopeMatches(t, ev) && eventAllowed(t.EventAllowlist, ev.Type) {
			out = append(out, t)
		}
	}
	return out
}

func scopeMatches(t PushTarget, ev events.Event) bool {
	switch t.ScopeType {
	case ScopeAll:
		return true
	case ScopeAgent:
		return t.ScopeValue != "" && (t.ScopeValue == ev.Player1ID || t.ScopeValue == ev.Player2ID)
	case ScopeMatch:
		return t.ScopeValue != "" && t.ScopeValue == ev.MatchID
	default:
		return false
	}
}

func eventAllowed(allowlist []string, evType string) bool {
	if len(allowlist) == 0 {
		return true
	}
	evType = strings.ToLower(strings.TrimSpace(evType))
	return slices.ContainsFunc(allowlist, func(v string) bool {
		return strings.ToLower(strings.TrimSpace(v)) == evType
	})
}
