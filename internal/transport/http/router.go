package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"agent-arena/internal/app"
	"agent-arena/internal/config"
	"agent-arena/internal/mcpserver"
	"agent-arena/internal/spectatorgateway"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func NewRouter(svc *app.Services, cfg config.ServerConfig) *chi.Mux {
	pvp := NewPvPHandlers(svc)
	admin := NewAdminHandlers(svc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", admin.Health())

	if cfg.MCPEnabled {
		mcpSrv := mcpserver.New(svc)
		r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
		})
		r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpSrv.Handler())
		r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpSrv.Handler())
		r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpSrv.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Route("/pvp", func(r chi.Router) {
			r.Post("/queue", pvp.Join())
			r.Delete("/queue", pvp.Leave())
			r.Get("/queue", pvp.Queue())
			r.Post("/match/find", pvp.Find())
			r.Get("/matches", pvp.Matches())
			r.Get("/matches/{match_id}", pvp.Match())
			r.Get("/matches/{match_id}/verify", pvp.Verify())
			r.Post("/matches/{match_id}/resolve", pvp.Resolve())
			r.Get("/leaderboard", pvp.Leaderboard())
			r.Get("/events", spectatorgateway.EventsHandler(svc.Feed))
			r.Get("/events/recent", spectatorgateway.RecentHandler(svc.Feed))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Use(BodyCaptureMiddleware(4096))
			r.Post("/sessions", admin.CreateSession())
			r.Get("/sessions", admin.ActiveSession())
			r.Get("/sessions/{session_id}", admin.GetSession())
			r.Post("/sessions/{session_id}/close", admin.CloseSession())
			r.Post("/topup", admin.Topup())
			r.Post("/cleanup", admin.Cleanup())
			r.Get("/escrow", admin.Escrow())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteHTTPError(w, http.StatusNotFound, "not_found")
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
