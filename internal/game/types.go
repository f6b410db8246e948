// internal/game/types.go
//
// Core type definitions for the memory game engine.
// Defines:
//   - CardState: hidden / revealed / matched.
//   - Card: one grid cell (position, paired value, state).
//   - Config: grid dimensions, time budget and presentation pass-through.
//   - Phase: timer lifecycle (not started → running → won | expired).
//   - State: a detached copy of everything the engine owns.

package game

import (
	"errors"
	"fmt"
	"math"
)

// CardState is the explicit per-card state; rendering is derived from it.
type CardState string

const (
	CardHidden   CardState = "hidden"
	CardRevealed CardState = "revealed"
	CardMatched  CardState = "matched"
)

// Card is a single grid cell.
type Card struct {
	Position int       `json:"position"` // 0-based index in the grid
	Value    int       `json:"value"`    // 1..N/2, shared by exactly two cards
	State    CardState `json:"state"`
}

// Phase is the timer lifecycle.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseRunning    Phase = "running"
	PhaseWon        Phase = "won"
	PhaseExpired    Phase = "expired"
)

// Terminal reports whether no further ticks or clicks can apply.
func (p Phase) Terminal() bool { return p == PhaseWon || p == PhaseExpired }

// ErrInvalidConfig is returned (wrapped) when a Config cannot produce a pairable grid.
var ErrInvalidConfig = errors.New("invalid config")

// Config describes one game. CardWidth, CardHeight and Theme are not
// interpreted by the engine; they travel with the grid for the presentation layer.
type Config struct {
	Columns          int    `json:"columns"`
	Rows             int    `json:"rows"`
	TimeLimitSeconds int    `json:"timeLimit"`
	CardWidth        string `json:"cardWidth,omitempty"`
	CardHeight       string `json:"cardHeight,omitempty"`
	Theme            string `json:"theme,omitempty"`
}

// Total is the number of cards on the grid.
func (c Config) Total() int { return c.Columns * c.Rows }

// Validate checks the dimensions and time budget.
// Odd totals are rejected: one value would be left without a partner.
func (c Config) Validate() error {
	switch {
	case c.Columns < 1:
		return fmt.Errorf("%w: columns must be >= 1, got %d", ErrInvalidConfig, c.Columns)
	case c.Rows < 1:
		return fmt.Errorf("%w: rows must be >= 1, got %d", ErrInvalidConfig, c.Rows)
	case c.Columns > math.MaxInt/c.Rows || c.Total() <= 0:
		return fmt.Errorf("%w: %dx%d grid is too large", ErrInvalidConfig, c.Columns, c.Rows)
	case c.TimeLimitSeconds <= 0:
		return fmt.Errorf("%w: time limit must be > 0, got %d", ErrInvalidConfig, c.TimeLimitSeconds)
	case c.Total()%2 != 0:
		return fmt.Errorf("%w: %dx%d grid has an odd number of cards", ErrInvalidConfig, c.Columns, c.Rows)
	}
	return nil
}

// State is a snapshot of the engine. It shares no memory with the engine.
type State struct {
	Config    Config `json:"config"`
	Epoch     uint64 `json:"epoch"`
	Cards     []Card `json:"cards"`
	Pending   []int  `json:"pending"`
	Locked    bool   `json:"locked"`
	TimeLimit int    `json:"timeLimit"`
	Remaining int    `json:"remaining"`
	Started   bool   `json:"started"`
	Paused    bool   `json:"paused"`
	Phase     Phase  `json:"phase"`
	Moves     int    `json:"moves"`
	Matches   int    `json:"matches"`
}
