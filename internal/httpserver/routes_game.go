// internal/httpserver/routes_game.go
//
// Game routes. One session = one engine; clicks and hover changes may arrive
// over plain HTTP or over the session WebSocket.
//
//   - POST /game/new             → create a session (optional config patch)
//   - GET  /game/{id}            → concealed snapshot
//   - POST /game/{id}/start      → start the countdown without a click
//   - POST /game/{id}/select     → {"position":3}
//   - POST /game/{id}/pointer    → {"over":false}
//   - POST /game/{id}/restart    → optional config patch
//   - GET  /game/{id}/ws         → live events (+ commands)
//   - DELETE /game/{id}          → drop the session

package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/realtime"
	"github.com/robalobadob/memory/internal/session"
	"github.com/robalobadob/memory/internal/store"
	"github.com/robalobadob/memory/internal/theme"
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Get("/game/{id}", s.withSession(s.handleGetGame))
	r.Delete("/game/{id}", s.withSession(s.handleDeleteGame))
	r.Post("/game/{id}/start", s.withSession(s.handleStart))
	r.Post("/game/{id}/select", s.withSession(s.handleSelect))
	r.Post("/game/{id}/pointer", s.withSession(s.handlePointer))
	r.Post("/game/{id}/restart", s.withSession(s.handleRestart))
	r.Get("/game/{id}/ws", s.withSession(s.handleWS))
}

// owner describes the caller: the signed-in user (if any) plus the guest cookie.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) session.Owner {
	o := session.Owner{AnonID: s.tokens.EnsureAnonID(w, r)}
	if me := currentUser(r); me != nil {
		o.UserID = me.ID
	}
	return o
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession loads {id} and rejects callers that do not own it.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		if !sess.Owner.Allows(s.owner(w, r)) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		h(w, r, sess)
	}
}

// configError maps config/theme failures to an error code.
func configError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, "invalid_config")
	case errors.Is(err, theme.ErrUnknown):
		writeError(w, http.StatusBadRequest, "unknown_theme")
	default:
		log.Error().Err(err).Msg("game config")
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var patch session.ConfigPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	cfg := patch.Apply(s.cfg.GameDefaults())

	sess, err := session.New(uuid.NewString(), s.owner(w, r), cfg, session.Options{
		Themes:    s.themes,
		Recorder:  s.recorder,
		Scheduler: s.sched,
		Limits:    session.Limits{MaxCards: s.cfg.MaxCards, MaxTimeLimit: s.cfg.MaxTimeLimit},
	})
	if err != nil {
		configError(w, err)
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := s.store.Delete(r.Context(), sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Start()
	writeJSON(w, http.StatusOK, sess.View())
}

type selectReq struct {
	Position *int `json:"position"`
}

type selectRes struct {
	Applied bool         `json:"applied"`
	State   session.View `json:"state"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req selectReq
	if err := decodeBody(r, &req); err != nil || req.Position == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	applied := sess.Select(*req.Position)
	writeJSON(w, http.StatusOK, selectRes{Applied: applied, State: sess.View()})
}

type pointerReq struct {
	Over *bool `json:"over"`
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req pointerReq
	if err := decodeBody(r, &req); err != nil || req.Over == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sess.Pointer(*req.Over)
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var patch session.ConfigPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if err := sess.Restart(&patch); err != nil {
		configError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// handleWS upgrades to a WebSocket. The first frame is a full snapshot;
// engine events follow in order.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("ws upgrade")
		return
	}
	c := realtime.NewClient(sess.Hub(), conn, sess)
	sess.Attach(c)

	go c.WritePump()
	go c.ReadPump()
}
