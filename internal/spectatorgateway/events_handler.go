package spectatorgateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"agent-arena/internal/events"
)

var pingInterval = 15 * time.Second

// filter narrows a stream to one match or one agent's matches.
type filter struct {
	matchID string
	agentID string
}

func filterFrom(r *http.Request) filter {
	q := r.URL.Query()
	return filter{matchID: q.Get("match_id"), agentID: q.Get("agent_id")}
}

func (f filter) keep(ev events.Event) bool {
	if f.matchID != "" && ev.MatchID != f.matchID {
		return false
	}
	if f.agentID != "" && ev.Player1ID != f.agentID && ev.Player2ID != f.agentID {
		return false
	}
	return true
}

// EventsHandler streams match events, replaying what the buffer still holds
// after Last-Event-ID before switching to live delivery.
func EventsHandler(buf *events.Buffer) http.HandlerFunc {
	interval := pingInterval
	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		f := filterFrom(r)

		SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		metricSpectatorSSEConnectionsTotal.Add(1)
		metricSpectatorSSEConnectionsActive.Add(1)
		defer metricSpectatorSSEConnectionsActive.Add(-1)

		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)

		lastID := r.Header.Get("Last-Event-ID")
		for _, e := range buf.ReplayAfter(lastID) {
			if !f.keep(e.Event) {
				continue
			}
			if err := WriteSSE(w, e.ID, e.Event.Type, e.Event); err != nil {
				return
			}
			lastID = e.ID
		}
		if err := rc.Flush(); err != nil {
			return
		}
		last, _ := strconv.ParseInt(lastID, 10, 64)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				// Already sent during replay.
				if id, _ := strconv.ParseInt(e.ID, 10, 64); id <= last {
					continue
				}
				if !f.keep(e.Event) {
					continue
				}
				if err := WriteSSE(w, e.ID, e.Event.Type, e.Event); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			case <-ticker.C:
				if err := WriteSSE(w, "", "ping", map[string]any{"ts": time.Now().UnixMilli()}); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

// RecentHandler returns the newest buffered events as JSON.
func RecentHandler(buf *events.Buffer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_request"})
				return
			}
			limit = min(n, 500)
		}
		f := filterFrom(r)
		items := make([]events.Entry, 0, limit)
		for _, e := range buf.Recent(0) {
			if f.keep(e.Event) {
				items = append(items, e)
			}
		}
		if len(items) > limit {
			items = items[len(items)-limit:]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	}
}
