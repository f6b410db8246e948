package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/results"
)

const leaderboardLimit = 20

// handleLeaderboard serves GET /leaderboard?date=YYYY-MM-DD&columns=4&rows=4.
// The date defaults to today (UTC); the size filter applies when both are given.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		date = results.DateKey(time.Now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	columns, errC := atoiOptional(q.Get("columns"))
	rows, errR := atoiOptional(q.Get("rows"))
	if errC != nil || errR != nil {
		writeError(w, http.StatusBadRequest, "bad_size")
		return
	}

	rowsOut, err := s.results.Leaderboard(r.Context(), date, columns, rows, leaderboardLimit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "rows": rowsOut})
}

func atoiOptional(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
