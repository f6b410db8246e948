// internal/results/store.go
//
// Persistence for finished and in-progress rounds.
// A round is one dealt board: a session produces a new round on every restart.
//
//   - Start inserts a "playing" row and abandons the session's unfinished rounds.
//   - Finish records won/expired with counters and bumps the owner's stats.
//   - Leaderboard ranks the day's wins by elapsed time, then moves.

package results

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Round statuses.
const (
	StatusPlaying   = "playing"
	StatusWon       = "won"
	StatusExpired   = "expired"
	StatusAbandoned = "abandoned"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// RoundID derives a stable row id from a session and its engine epoch.
func RoundID(sessionID string, epoch uint64) string {
	return fmt.Sprintf("%s-%d", sessionID, epoch)
}

// Round is a rounds row.
type Round struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"sessionId"`
	Epoch       uint64     `json:"epoch"`
	UserID      string     `json:"-"`
	AnonymousID string     `json:"-"`
	Columns     int        `json:"columns"`
	Rows        int        `json:"rows"`
	TimeLimit   int        `json:"timeLimit"`
	Theme       string     `json:"theme"`
	Status      string     `json:"status"`
	Moves       int        `json:"moves"`
	Matches     int        `json:"matches"`
	Elapsed     int        `json:"elapsed"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// Finish is the terminal outcome of a round.
type Finish struct {
	RoundID string
	Status  string // StatusWon | StatusExpired | StatusAbandoned
	Moves   int
	Matches int
	Elapsed int
	At      time.Time
}

// LBRow is one leaderboard entry.
type LBRow struct {
	Player  string `json:"player"`
	Moves   int    `json:"moves"`
	Elapsed int    `json:"elapsed"`
	Columns int    `json:"columns"`
	Rows    int    `json:"rows"`
}

// Store wraps the rounds table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Start records a new round, abandoning any round of the same session still playing.
func (s *Store) Start(ctx context.Context, r Round) error {
	now := r.StartedAt.UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE rounds SET status=?, finished_at=? WHERE session_id=? AND status=?`,
		StatusAbandoned, now, r.SessionID, StatusPlaying,
	); err != nil {
		return fmt.Errorf("abandon rounds: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT OR IGNORE INTO rounds
            (id, session_id, epoch, user_id, anonymous_id, columns, rows, time_limit, theme, status, started_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Epoch, nullable(r.UserID), nullable(r.AnonymousID),
		r.Columns, r.Rows, r.TimeLimit, r.Theme, StatusPlaying, now,
	); err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return tx.Commit()
}

// Finish closes a playing round. Rounds already closed are left alone.
// When a won or expired round belongs to a user, their stats are updated in
// the same transaction; abandoned rounds do not count.
func (s *Store) Finish(ctx context.Context, f Finish) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
        UPDATE rounds SET status=?, moves=?, matches=?, elapsed=?, finished_at=?
        WHERE id=? AND status=?`,
		f.Status, f.Moves, f.Matches, f.Elapsed, f.At.UTC().Format(time.RFC3339), f.RoundID, StatusPlaying,
	)
	if err != nil {
		return fmt.Errorf("finish round: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 || f.Status == StatusAbandoned {
		return tx.Commit()
	}

	var userID sql.NullString
	if err := tx.QueryRowContext(ctx, `SELECT user_id FROM rounds WHERE id=?`, f.RoundID).Scan(&userID); err != nil {
		return fmt.Errorf("round owner: %w", err)
	}
	if userID.Valid && userID.String != "" {
		if err := bumpStats(ctx, tx, userID.String, f.Status == StatusWon, f.Elapsed); err != nil {
			return fmt.Errorf("bump stats: %w", err)
		}
	}
	return tx.Commit()
}

// bumpStats increments games played; updates wins, streak and best time.
func bumpStats(ctx context.Context, tx *sql.Tx, userID string, won bool, elapsed int) error {
	var gp, wins, streak int
	var best sql.NullInt64
	row := tx.QueryRowContext(ctx, `SELECT games_played, wins, streak, best_elapsed FROM users WHERE id=?`, userID)
	if err := row.Scan(&gp, &wins, &streak, &best); err != nil {
		return err
	}
	gp++
	if won {
		wins++
		streak++
		if !best.Valid || int64(elapsed) < best.Int64 {
			best = sql.NullInt64{Int64: int64(elapsed), Valid: true}
		}
	} else {
		streak = 0
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET games_played=?, wins=?, streak=?, best_elapsed=? WHERE id=?`,
		gp, wins, streak, best, userID)
	return err
}

// Leaderboard returns the fastest wins finished on date (YYYY-MM-DD, UTC).
// columns/rows filter by board size when both are positive.
func (s *Store) Leaderboard(ctx context.Context, date string, columns, rows, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
        SELECT COALESCE(u.username, 'guest'), r.moves, r.elapsed, r.columns, r.rows
        FROM rounds r LEFT JOIN users u ON u.id = r.user_id
        WHERE r.status = ? AND substr(r.finished_at, 1, 10) = ?`
	args := []any{StatusWon, date}
	if columns > 0 && rows > 0 {
		q += ` AND r.columns = ? AND r.rows = ?`
		args = append(args, columns, rows)
	}
	q += ` ORDER BY r.elapsed ASC, r.moves ASC, r.finished_at ASC LIMIT ?`
	args = append(args, limit)

	rs, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	out := make([]LBRow, 0, limit)
	for rs.Next() {
		var r LBRow
		if err := rs.Scan(&r.Player, &r.Moves, &r.Elapsed, &r.Columns, &r.Rows); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

// ByUser lists a user's most recent rounds.
func (s *Store) ByUser(ctx context.Context, userID string, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = 50
	}
	rs, err := s.db.QueryContext(ctx, `
        SELECT id, session_id, epoch, columns, rows, time_limit, theme, status,
               moves, matches, elapsed, started_at, COALESCE(finished_at, '')
        FROM rounds WHERE user_id=? ORDER BY started_at DESC, epoch DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	out := []Round{}
	for rs.Next() {
		var (
			r                 Round
			started, finished string
		)
		if err := rs.Scan(&r.ID, &r.SessionID, &r.Epoch, &r.Columns, &r.Rows, &r.TimeLimit, &r.Theme,
			&r.Status, &r.Moves, &r.Matches, &r.Elapsed, &started, &finished); err != nil {
			return nil, err
		}
		r.UserID = userID
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			t, _ := time.Parse(time.RFC3339, finished)
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

// ClaimAnonymous transfers a guest's rounds to a user account.
func (s *Store) ClaimAnonymous(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
