package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agent-arena/internal/app"
	"agent-arena/internal/config"
	"agent-arena/internal/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const adminKey = "admin-key"

func newTestRouter(t *testing.T, autoResolve bool) *chi.Mux {
	t.Helper()
	st := testutil.OpenTestStore(t)
	svc := app.NewServices(st, config.ArenaConfig{
		RatingKFactor:   32,
		RatingFloor:     100,
		HouseFeeRate:    decimal.RequireFromString("0.05"),
		BestOf:          3,
		QueueTTL:        time.Minute,
		AutoResolve:     autoResolve,
		StaleMatchAfter: time.Minute,
		OrphanGrace:     time.Minute,
	}, app.Options{})
	return NewRouter(svc, config.ServerConfig{AdminAPIKey: adminKey, MCPEnabled: true})
}

func do(t *testing.T, h http.Handler, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Key", adminKey)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response (status %d): %v", w.Code, err)
	}
	return out
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d body=%s", w.Code, status, w.Body.String())
	}
	if got := decode(t, w)["error"]; got != code {
		t.Fatalf("error = %v, want %q", got, code)
	}
}

func createSession(t *testing.T, h http.Handler, agentID string, balance int64) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/admin/sessions", map[string]any{"agent_id": agentID, "initial_balance": balance}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", w.Code, w.Body.String())
	}
	id, _ := decode(t, w)["session_id"].(string)
	if id == "" {
		t.Fatal("session_id missing")
	}
	return id
}

func TestHealthAndMCPRoutes(t *testing.T) {
	router := newTestRouter(t, true)
	if w := do(t, router, http.MethodGet, "/healthz", nil, false); w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}
	if w := do(t, router, http.MethodOptions, "/mcp", nil, false); w.Code != http.StatusNoContent {
		t.Fatalf("mcp options = %d", w.Code)
	}
	expectError(t, do(t, router, http.MethodGet, "/nope", nil, false), http.StatusNotFound, "not_found")
}

func TestAdminRoutesRequireKey(t *testing.T) {
	router := newTestRouter(t, true)
	expectError(t, do(t, router, http.MethodPost, "/api/admin/sessions", map[string]any{"agent_id": "a"}, false), http.StatusUnauthorized, "unauthorized")
	if w := do(t, router, http.MethodGet, "/api/admin/debug/vars", nil, true); w.Code != http.StatusOK {
		t.Fatalf("debug vars = %d", w.Code)
	}
}

func TestActiveSessionLookup(t *testing.T) {
	router := newTestRouter(t, true)
	expectError(t, do(t, router, http.MethodGet, "/api/admin/sessions?agent_id=q", nil, true), http.StatusNotFound, "session_not_found")
	id := createSession(t, router, "q", 300)

	w := do(t, router, http.MethodGet, "/api/admin/sessions?agent_id=q", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("lookup = %d %s", w.Code, w.Body.String())
	}
	if got := decode(t, w); got["session_id"] != id || got["balance"] != float64(300) {
		t.Fatalf("session = %v", got)
	}
	expectError(t, do(t, router, http.MethodGet, "/api/admin/sessions", nil, true), http.StatusBadRequest, "invalid_request")
}

func TestJoinResolvesAndReplaysSettlement(t *testing.T) {
	router := newTestRouter(t, true)
	sx := createSession(t, router, "x", 1000)
	sy := createSession(t, router, "y", 1000)

	w := do(t, router, http.MethodPost, "/api/pvp/queue", map[string]any{"agent_id": "x", "session_id": sx, "stake_amount": 100}, false)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "queued" {
		t.Fatalf("join x: %d %s", w.Code, w.Body.String())
	}
	expectError(t,
		do(t, router, http.MethodPost, "/api/pvp/queue", map[string]any{"agent_id": "x", "session_id": sx, "stake_amount": 100}, false),
		http.StatusConflict, "already_queued")

	w = do(t, router, http.MethodPost, "/api/pvp/queue", map[string]any{"agent_id": "y", "session_id": sy, "stake_amount": 100}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("join y: %d %s", w.Code, w.Body.String())
	}
	joined := decode(t, w)
	if joined["status"] != "resolved" {
		t.Fatalf("join y should resolve: %v", joined)
	}
	result, _ := joined["result"].(map[string]any)
	matchID, _ := result["match_id"].(string)
	if matchID == "" || result["status"] != "settled" {
		t.Fatalf("result = %v", result)
	}

	w = do(t, router, http.MethodPost, "/api/pvp/matches/"+matchID+"/resolve", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("second resolve: %d %s", w.Code, w.Body.String())
	}
	again := decode(t, w)
	if again["status"] != "already_settled" || again["house_fee"] != result["house_fee"] {
		t.Fatalf("second resolve = %v", again)
	}

	w = do(t, router, http.MethodGet, "/api/pvp/matches?limit=5", nil, false)
	list := decode(t, w)
	if items, _ := list["items"].([]any); len(items) != 1 || list["limit"] != float64(5) {
		t.Fatalf("matches = %v", list)
	}
	if w := do(t, router, http.MethodGet, "/api/pvp/matches/"+matchID, nil, false); w.Code != http.StatusOK {
		t.Fatalf("get match = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/api/pvp/matches/"+matchID+"/verify", nil, false)
	if v := decode(t, w); v["valid"] != true {
		t.Fatalf("verify = %v", v)
	}
	w = do(t, router, http.MethodGet, "/api/pvp/leaderboard", nil, false)
	if items, _ := decode(t, w)["items"].([]any); len(items) != 2 {
		t.Fatalf("leaderboard items = %d", len(items))
	}
	w = do(t, router, http.MethodGet, "/api/admin/escrow?agent_id=x", nil, true)
	if items, _ := decode(t, w)["items"].([]any); len(items) != 1 {
		t.Fatalf("escrow history = %v", items)
	}
	w = do(t, router, http.MethodGet, "/api/pvp/events/recent?match_id="+matchID, nil, false)
	if items, _ := decode(t, w)["items"].([]any); len(items) != 2 {
		t.Fatalf("feed for match = %v", items)
	}
}

func TestQueueFindAndLeave(t *testing.T) {
	router := newTestRouter(t, false)
	sa := createSession(t, router, "a", 500)
	sb := createSession(t, router, "b", 500)

	do(t, router, http.MethodPost, "/api/pvp/queue", map[string]any{"agent_id": "a", "session_id": sa, "stake_amount": 100}, false)
	w := do(t, router, http.MethodGet, "/api/pvp/queue?game_type=RPS", nil, false)
	if items, _ := decode(t, w)["items"].([]any); len(items) != 1 {
		t.Fatalf("queue = %v", items)
	}

	w = do(t, router, http.MethodPost, "/api/pvp/match/find", map[string]any{"agent_id": "a"}, false)
	if got := decode(t, w); got["matched"] != false {
		t.Fatalf("lonely find = %v", got)
	}

	w = do(t, router, http.MethodPost, "/api/pvp/queue", map[string]any{"agent_id": "b", "session_id": sb, "stake_amount": 100}, false)
	joined := decode(t, w)
	if joined["status"] != "matched" {
		t.Fatalf("join b = %v", joined)
	}
	w = do(t, router, http.MethodPost, "/api/pvp/match/find", map[string]any{"agent_id": "a"}, false)
	if got := decode(t, w); got["matched"] != true || got["opponent_id"] != "b" {
		t.Fatalf("find after pairing = %v", got)
	}
	expectError(t, do(t, router, http.MethodDelete, "/api/pvp/queue?agent_id=a", nil, false), http.StatusNotFound, "not_in_queue")
	expectError(t, do(t, router, http.MethodPost, "/api/admin/sessions/"+sa+"/close", nil, true), http.StatusConflict, "session_busy")

	w = do(t, router, http.MethodPost, "/api/admin/cleanup", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("cleanup = %d", w.Code)
	}
}

func TestLeaveRefundsOverHTTP(t *testing.T) {
	router := newTestRouter(t, true)
	sz := createSession(t, router, "z", 100)
	do(t, router, http.MethodPost, "/api/pvp/queue", map[string]any{"agent_id": "z", "session_id": sz, "stake_amount": 60}, false)

	w := do(t, router, http.MethodDelete, "/api/pvp/queue", map[string]any{"agent_id": "z"}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("leave = %d %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/api/admin/escrow?agent_id=z", nil, true)
	items, _ := decode(t, w)["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["status"] != "refunded" {
		t.Fatalf("escrow = %v", items)
	}
	w = do(t, router, http.MethodPost, "/api/admin/sessions/"+sz+"/close", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("close after leave = %d %s", w.Code, w.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t, true)
	sa := createSession(t, router, "a", 50)

	expectError(t, do(t, router, http.MethodPost, "/api/pvp/queue", "{", false), http.StatusBadRequest, "invalid_json")
	expectError(t, do(t, router, http.MethodPost, "/api/pvp/queue", map[string]any{"agent_id": "a", "session_id": sa, "stake_amount": 80}, false), http.StatusBadRequest, "insufficient_balance")
	expectError(t, do(t, router, http.MethodPost, "/api/pvp/queue", map[string]any{"agent_id": "b", "session_id": sa, "stake_amount": 10}, false), http.StatusBadRequest, "session_mismatch")
	expectError(t, do(t, router, http.MethodPost, "/api/pvp/queue", map[string]any{"agent_id": "a", "session_id": "ses_none", "stake_amount": 10}, false), http.StatusBadRequest, "session_inactive")
	expectError(t, do(t, router, http.MethodPost, "/api/pvp/match/find", map[string]any{"agent_id": "a"}, false), http.StatusNotFound, "not_in_queue")
	expectError(t, do(t, router, http.MethodPost, "/api/pvp/matches/pvp_none/resolve", nil, false), http.StatusNotFound, "match_not_found")
	expectError(t, do(t, router, http.MethodGet, "/api/pvp/matches/pvp_none", nil, false), http.StatusNotFound, "match_not_found")
	expectError(t, do(t, router, http.MethodPost, "/api/admin/sessions", map[string]any{"agent_id": "a", "initial_balance": 1}, true), http.StatusConflict, "session_exists")
	expectError(t, do(t, router, http.MethodPost, "/api/admin/topup", map[string]any{"session_id": "ses_none", "amount": 5}, true), http.StatusNotFound, "session_not_found")
}

func TestMapErrorUnknownIsInternal(t *testing.T) {
	status, code := MapError(http.ErrBodyNotAllowed)
	if status != http.StatusInternalServerError || code != "internal_error" {
		t.Fatalf("MapError = %d %q", status, code)
	}
}
