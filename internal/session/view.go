package session

import (
	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/theme"
)

// CardView is a card as the browser sees it: hidden cards carry no value.
type CardView struct {
	Position int            `json:"position"`
	State    game.CardState `json:"state"`
	Value    int            `json:"value,omitempty"`
	Label    string         `json:"label,omitempty"`
}

// View is the client-facing state of a session.
type View struct {
	ID        string      `json:"gameId"`
	Epoch     uint64      `json:"epoch"`
	Config    game.Config `json:"config"`
	Cards     []CardView  `json:"cards"`
	Pending   []int       `json:"pending"`
	Locked    bool        `json:"locked"`
	TimeLimit int         `json:"timeLimit"`
	Remaining int         `json:"remaining"`
	Started   bool        `json:"started"`
	Paused    bool        `json:"paused"`
	Phase     game.Phase  `json:"phase"`
	Moves     int         `json:"moves"`
	Matches   int         `json:"matches"`
}

// Message is one outbound WebSocket frame.
type Message struct {
	Type      string       `json:"type"`
	Epoch     uint64       `json:"epoch,omitempty"`
	Positions []int        `json:"positions,omitempty"`
	Cards     []CardView   `json:"cards,omitempty"`
	Config    *game.Config `json:"config,omitempty"`
	Remaining int          `json:"remaining"`
	Moves     int          `json:"moves,omitempty"`
	Matches   int          `json:"matches,omitempty"`
	Elapsed   int          `json:"elapsed,omitempty"`
	State     *View        `json:"state,omitempty"`
	Error     string       `json:"error,omitempty"`
}

func viewCard(c game.Card, th theme.Theme) CardView {
	v := CardView{Position: c.Position, State: c.State}
	if c.State != game.CardHidden {
		v.Value = c.Value
		v.Label = th.Label(c.Value)
	}
	return v
}

func buildView(id string, s game.State, th theme.Theme) View {
	cards := make([]CardView, len(s.Cards))
	for i, c := range s.Cards {
		cards[i] = viewCard(c, th)
	}
	return View{
		ID:        id,
		Epoch:     s.Epoch,
		Config:    s.Config,
		Cards:     cards,
		Pending:   s.Pending,
		Locked:    s.Locked,
		TimeLimit: s.TimeLimit,
		Remaining: s.Remaining,
		Started:   s.Started,
		Paused:    s.Paused,
		Phase:     s.Phase,
		Moves:     s.Moves,
		Matches:   s.Matches,
	}
}
