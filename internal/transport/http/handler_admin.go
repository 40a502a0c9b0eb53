package httptransport

import (
	"net/http"

	"agent-arena/internal/app"
	"agent-arena/internal/app/session"

	"github.com/go-chi/chi/v5"
)

type AdminHandlers struct {
	svc *app.Services
}

func NewAdminHandlers(svc *app.Services) *AdminHandlers {
	return &AdminHandlers{svc: svc}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) CreateSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body session.CreateInput
		if !decodeBody(w, r, &body) {
			return
		}
		resp, err := h.svc.Sessions.Create(r.Context(), body)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func (h *AdminHandlers) GetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Sessions.Get(r.Context(), chi.URLParam(r, "session_id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ActiveSession looks up the agent's open session by ?agent_id=.
func (h *AdminHandlers) ActiveSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Sessions.ActiveByAgent(r.Context(), r.URL.Query().Get("agent_id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *AdminHandlers) Topup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body session.TopupInput
		if !decodeBody(w, r, &body) {
			return
		}
		resp, err := h.svc.Sessions.Topup(r.Context(), body)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *AdminHandlers) CloseSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Sessions.Close(r.Context(), chi.URLParam(r, "session_id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Cleanup runs one janitor sweep on demand.
func (h *AdminHandlers) Cleanup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricAdminCleanupTotal.Add(1)
		rep := h.svc.Matchmaking.Sweep(r.Context(), h.svc.Janitor, h.svc.Settlement)
		writeJSON(w, http.StatusOK, rep)
	}
}

func (h *AdminHandlers) Escrow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Sessions.EscrowHistory(r.Context(), r.URL.Query().Get("agent_id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
