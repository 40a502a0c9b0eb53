package httptransport

import (
	"errors"
	"net/http"
	"strings"

	"agent-arena/internal/app"
	"agent-arena/internal/app/matchmaking"
	"agent-arena/internal/app/settlement"

	"github.com/go-chi/chi/v5"
)

type PvPHandlers struct {
	svc *app.Services
}

func NewPvPHandlers(svc *app.Services) *PvPHandlers {
	return &PvPHandlers{svc: svc}
}

type agentBody struct {
	AgentID string `json:"agent_id"`
}

// Join queues the agent and tries one immediate pairing.
func (h *PvPHandlers) Join() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricQueueJoinTotal.Add(1)
		var body matchmaking.JoinRequest
		if !decodeBody(w, r, &body) {
			metricQueueJoinErrors.Add(1)
			return
		}
		if body.GameType == "" {
			body.GameType = "RPS"
		}
		out, err := h.svc.JoinAndMatch(r.Context(), body)
		if err != nil {
			metricQueueJoinErrors.Add(1)
			writeDomainError(w, r, err)
			return
		}
		if out.Match != nil {
			metricFindMatchMatched.Add(1)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *PvPHandlers) Leave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID := r.URL.Query().Get("agent_id")
		if agentID == "" && r.ContentLength != 0 {
			var body agentBody
			if !decodeBody(w, r, &body) {
				return
			}
			agentID = body.AgentID
		}
		if err := h.svc.Matchmaking.Leave(r.Context(), agentID); err != nil {
			writeDomainError(w, r, err)
			return
		}
		metricQueueLeaveTotal.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "agent_id": strings.TrimSpace(agentID), "status": "left"})
	}
}

func (h *PvPHandlers) Queue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Public.GetQueue(r.Context(), r.URL.Query().Get("game_type"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PvPHandlers) Find() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricFindMatchTotal.Add(1)
		var body agentBody
		if !decodeBody(w, r, &body) {
			return
		}
		res, err := h.svc.Matchmaking.FindMatch(r.Context(), body.AgentID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if res.Matched {
			metricFindMatchMatched.Add(1)
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// Resolve settles the match. A match already settled by another caller is
// answered with its stored outcome and status already_settled.
func (h *PvPHandlers) Resolve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricResolveTotal.Add(1)
		matchID := chi.URLParam(r, "match_id")
		res, err := h.svc.Settlement.ResolveMatch(r.Context(), matchID)
		if errors.Is(err, settlement.ErrAlreadySettled) {
			metricResolveAlreadySettled.Add(1)
			res, err = h.svc.Settlement.Settled(r.Context(), matchID)
		}
		if err != nil {
			metricResolveErrors.Add(1)
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *PvPHandlers) Matches() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Public.GetRecentMatches(r.Context(), ParseLimit(r))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PvPHandlers) Match() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Public.GetMatch(r.Context(), chi.URLParam(r, "match_id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PvPHandlers) Verify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Public.VerifyMatch(r.Context(), chi.URLParam(r, "match_id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PvPHandlers) Leaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Public.GetLeaderboard(r.Context(), ParseLimit(r))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
