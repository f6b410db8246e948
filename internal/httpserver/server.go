// internal/httpserver/server.go
//
// HTTP server wiring for the memory game backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/themes", "/leaderboard".
//   - Game endpoints (optional auth): /game/new, /game/{id}/..., WebSocket at /game/{id}/ws.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Guests own their sessions through the anonymous cookie; signed-in users
//     through their account id.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/auth"
	"github.com/robalobadob/memory/internal/config"
	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/results"
	"github.com/robalobadob/memory/internal/session"
	"github.com/robalobadob/memory/internal/store"
	"github.com/robalobadob/memory/internal/theme"
)

// Deps are the collaborators the server routes to.
type Deps struct {
	Config   config.Config
	Store    store.Store
	Users    *auth.Users
	Results  *results.Store
	Recorder session.Recorder
	Themes   *theme.Catalog
	// Scheduler drives session clocks; nil means wall-clock time.
	Scheduler game.Scheduler
}

// Server bundles router and dependencies.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	store    store.Store
	users    *auth.Users
	results  *results.Store
	recorder session.Recorder
	themes   *theme.Catalog
	sched    game.Scheduler
	tokens   auth.Tokens
	upgrader websocket.Upgrader
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      d.Config,
		store:    d.Store,
		users:    d.Users,
		results:  d.Results,
		recorder: d.Recorder,
		themes:   d.Themes,
		sched:    d.Scheduler,
		tokens: auth.Tokens{
			Secret:     []byte(d.Config.JWTSecret),
			TTL:        daysToTTL(d.Config.JWTExpiresDays),
			CookieName: d.Config.CookieName,
			Secure:     d.Config.Production(),
		},
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger)
	s.r.Use(chimw.Recoverer)
	if d.Config.RequestTimeout > 0 {
		s.r.Use(chimw.Timeout(d.Config.RequestTimeout))
	}
	s.r.Use(jsonContentType)
	s.r.Use(cors(d.Config.ClientOrigin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "memory-go",
			"endpoints": []string{"/health", "/themes", "/leaderboard", "POST /game/new", "/game/{id}", "/game/{id}/ws", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Get("/themes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.themes.All())
	})

	// Game endpoints: OPTIONAL AUTH (guests can play)
	s.mountGame(s.r.With(s.withOptionalAuth()))

	// Leaderboard: public
	s.r.Get("/leaderboard", s.handleLeaderboard)

	// Auth + profile/stats
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.r.ServeHTTP(w, r) }

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.cfg.ClientOrigin {
		return true
	}
	log.Warn().Str("origin", origin).Msg("ws origin rejected")
	return false
}

// ------------------------------- helpers ------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
