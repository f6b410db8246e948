// internal/session/session.go
//
// A Session hosts one engine for one owner and bridges it to the outside:
//   - engine events → concealed WebSocket messages on the session hub;
//   - engine events → round start/finish writes on the results recorder;
//   - HTTP / WebSocket commands → engine operations.
//
// The session never mutates cards itself; everything goes through the engine.

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/realtime"
	"github.com/robalobadob/memory/internal/results"
	"github.com/robalobadob/memory/internal/theme"
)

// ErrBadCommand is returned for malformed inbound commands.
var ErrBadCommand = errors.New("bad command")

// Recorder receives round lifecycle writes. *results.Recorder implements it.
type Recorder interface {
	RoundStarted(results.Round)
	RoundFinished(results.Finish)
}

// Owner identifies who may drive a session: a user, or a guest cookie.
type Owner struct {
	UserID string
	AnonID string
}

// Allows reports whether caller may act on a session owned by o.
func (o Owner) Allows(caller Owner) bool {
	if o.UserID != "" {
		return caller.UserID == o.UserID
	}
	return o.AnonID != "" && caller.AnonID == o.AnonID
}

// ConfigPatch is a partial game.Config; zero fields keep the base value.
type ConfigPatch struct {
	Columns    int    `json:"columns"`
	Rows       int    `json:"rows"`
	TimeLimit  int    `json:"timeLimit"`
	CardWidth  string `json:"cardWidth"`
	CardHeight string `json:"cardHeight"`
	Theme      string `json:"theme"`
}

// Apply overlays the patch on base.
func (p ConfigPatch) Apply(base game.Config) game.Config {
	if p.Columns != 0 {
		base.Columns = p.Columns
	}
	if p.Rows != 0 {
		base.Rows = p.Rows
	}
	if p.TimeLimit != 0 {
		base.TimeLimitSeconds = p.TimeLimit
	}
	if p.CardWidth != "" {
		base.CardWidth = p.CardWidth
	}
	if p.CardHeight != "" {
		base.CardHeight = p.CardHeight
	}
	if p.Theme != "" {
		base.Theme = p.Theme
	}
	return base
}

// Limits caps what clients may ask for. Zero fields are unlimited.
type Limits struct {
	MaxCards     int
	MaxTimeLimit int
}

// Check validates cfg and applies the caps; failures wrap game.ErrInvalidConfig.
func (l Limits) Check(cfg game.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if l.MaxCards > 0 && cfg.Total() > l.MaxCards {
		return fmt.Errorf("%w: %d cards exceeds the limit of %d", game.ErrInvalidConfig, cfg.Total(), l.MaxCards)
	}
	if l.MaxTimeLimit > 0 && cfg.TimeLimitSeconds > l.MaxTimeLimit {
		return fmt.Errorf("%w: time limit %ds exceeds the limit of %ds", game.ErrInvalidConfig, cfg.TimeLimitSeconds, l.MaxTimeLimit)
	}
	return nil
}

// Options are the collaborators of a session.
type Options struct {
	Themes    *theme.Catalog
	Recorder  Recorder       // optional
	Scheduler game.Scheduler // optional, defaults to the wall clock
	Limits    Limits
}

// Session is one hosted game.
type Session struct {
	ID        string
	Owner     Owner
	CreatedAt time.Time

	engine *game.Engine
	hub    *realtime.Hub
	themes *theme.Catalog
	rec    Recorder
	limits Limits

	mu     sync.RWMutex
	theme  theme.Theme
	values []int // card values of the current grid, from grid-ready
}

// New validates cfg, deals the first board and returns the session.
func New(id string, owner Owner, cfg game.Config, opts Options) (*Session, error) {
	if opts.Themes == nil {
		return nil, errors.New("session: theme catalog required")
	}
	s := &Session{
		ID:        id,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
		hub:       realtime.NewHub(id),
		themes:    opts.Themes,
		rec:       opts.Recorder,
		limits:    opts.Limits,
	}
	if err := s.limits.Check(cfg); err != nil {
		return nil, err
	}
	cfg, err := s.resolveTheme(cfg)
	if err != nil {
		return nil, err
	}
	eng, err := game.New(cfg, game.WithListener(s), game.WithScheduler(opts.Scheduler))
	if err != nil {
		return nil, err
	}
	s.engine = eng
	log.Info().Str("session", id).Int("columns", cfg.Columns).Int("rows", cfg.Rows).
		Int("timeLimit", cfg.TimeLimitSeconds).Str("theme", cfg.Theme).Msg("session created")
	return s, nil
}

// Hub is the session's WebSocket fan-out.
func (s *Session) Hub() *realtime.Hub { return s.hub }

// Select forwards a card click. It reports whether the click applied.
func (s *Session) Select(position int) bool { return s.engine.SelectCard(position) }

// Start starts the countdown without a click.
func (s *Session) Start() { s.engine.Start() }

// Pointer forwards hover changes over the board.
func (s *Session) Pointer(over bool) {
	if over {
		s.engine.NotifyPointerEnteredBoard()
	} else {
		s.engine.NotifyPointerLeftBoard()
	}
}

// Restart re-deals the board, optionally with a patched config.
func (s *Session) Restart(patch *ConfigPatch) error {
	cfg := s.engine.Snapshot().Config
	if patch != nil {
		cfg = patch.Apply(cfg)
	}
	if err := s.limits.Check(cfg); err != nil {
		return err
	}
	cfg, err := s.resolveTheme(cfg)
	if err != nil {
		return err
	}
	return s.engine.Restart(&cfg)
}

// View returns the concealed client view.
func (s *Session) View() View {
	st := s.engine.Snapshot()
	s.mu.RLock()
	th := s.theme
	s.mu.RUnlock()
	return buildView(s.ID, st, th)
}

// Attach registers a WebSocket client and sends it a snapshot. Every event
// the client receives afterwards is newer than that snapshot.
func (s *Session) Attach(c *realtime.Client) {
	s.engine.Inspect(func(st game.State) {
		s.mu.RLock()
		view := buildView(s.ID, st, s.theme)
		s.mu.RUnlock()
		c.Register()
		c.Send(Message{Type: "snapshot", Epoch: view.Epoch, Remaining: view.Remaining, State: &view})
	})
}

// Close stops the engine and disconnects every WebSocket client.
// A round still in progress is recorded as abandoned.
func (s *Session) Close() {
	if st, ok := s.engine.Stop(); ok && !st.Phase.Terminal() && s.rec != nil {
		s.rec.RoundFinished(results.Finish{
			RoundID: results.RoundID(s.ID, st.Epoch),
			Status:  results.StatusAbandoned,
			Moves:   st.Moves,
			Matches: st.Matches,
			Elapsed: st.TimeLimit - st.Remaining,
			At:      time.Now(),
		})
	}
	s.hub.Close()
}

// HandleCommand applies a WebSocket command; errors go back to the sender only.
func (s *Session) HandleCommand(c *realtime.Client, cmd realtime.Command) {
	if err := s.apply(cmd); err != nil {
		c.Send(Message{Type: "error", Error: err.Error()})
	}
}

func (s *Session) apply(cmd realtime.Command) error {
	switch cmd.Type {
	case "select":
		if cmd.Position == nil {
			return fmt.Errorf("%w: select needs a position", ErrBadCommand)
		}
		s.Select(*cmd.Position)
	case "pointer":
		if cmd.Over == nil {
			return fmt.Errorf("%w: pointer needs over", ErrBadCommand)
		}
		s.Pointer(*cmd.Over)
	case "start":
		s.Start()
	case "restart":
		var patch *ConfigPatch
		if len(cmd.Config) > 0 {
			patch = &ConfigPatch{}
			if err := json.Unmarshal(cmd.Config, patch); err != nil {
				return fmt.Errorf("%w: %v", ErrBadCommand, err)
			}
		}
		return s.Restart(patch)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrBadCommand, cmd.Type)
	}
	return nil
}

func (s *Session) resolveTheme(cfg game.Config) (game.Config, error) {
	th, err := s.themes.Get(cfg.Theme)
	if err != nil {
		return cfg, err
	}
	cfg.Theme = th.Name
	return cfg, nil
}

// OnEvent runs under the engine lock: it must not call the engine.
func (s *Session) OnEvent(ev game.Event) {
	if ev.Type == game.EventGridReady {
		s.onGridReady(ev)
	}

	s.mu.RLock()
	th := s.theme
	values := s.values
	s.mu.RUnlock()

	msg := Message{
		Type:      string(ev.Type),
		Epoch:     ev.Epoch,
		Positions: ev.Positions,
		Remaining: ev.Remaining,
		Moves:     ev.Moves,
		Matches:   ev.Matches,
		Elapsed:   ev.Elapsed,
	}
	switch ev.Type {
	case game.EventGridReady:
		msg.Config = ev.Config
		msg.Cards = make([]CardView, len(ev.Cards))
		for i, c := range ev.Cards {
			msg.Cards[i] = viewCard(c, th)
		}
	case game.EventCardRevealed, game.EventPairMatched, game.EventPairMismatched:
		state := game.CardRevealed
		if ev.Type == game.EventPairMatched {
			state = game.CardMatched
		}
		for _, p := range ev.Positions {
			if p >= 0 && p < len(values) {
				msg.Cards = append(msg.Cards, viewCard(game.Card{Position: p, Value: values[p], State: state}, th))
			}
		}
	}
	s.hub.Publish(msg)

	if ev.Terminal() {
		s.onTerminal(ev)
	}
}

func (s *Session) onGridReady(ev game.Event) {
	values := make([]int, len(ev.Cards))
	for i, c := range ev.Cards {
		values[i] = c.Value
	}
	var cfg game.Config
	if ev.Config != nil {
		cfg = *ev.Config
	}
	th, err := s.themes.Get(cfg.Theme)
	if err != nil {
		th, _ = s.themes.Get(theme.Default)
	}

	s.mu.Lock()
	s.values = values
	s.theme = th
	s.mu.Unlock()

	if s.rec != nil {
		s.rec.RoundStarted(results.Round{
			ID:          results.RoundID(s.ID, ev.Epoch),
			SessionID:   s.ID,
			Epoch:       ev.Epoch,
			UserID:      s.Owner.UserID,
			AnonymousID: s.Owner.AnonID,
			Columns:     cfg.Columns,
			Rows:        cfg.Rows,
			TimeLimit:   cfg.TimeLimitSeconds,
			Theme:       th.Name,
			StartedAt:   time.Now(),
		})
	}
}

func (s *Session) onTerminal(ev game.Event) {
	status := results.StatusExpired
	if ev.Type == game.EventGameWon {
		status = results.StatusWon
	}
	log.Info().Str("session", s.ID).Uint64("epoch", ev.Epoch).Str("status", status).
		Int("moves", ev.Moves).Int("elapsed", ev.Elapsed).Msg("round finished")
	if s.rec != nil {
		s.rec.RoundFinished(results.Finish{
			RoundID: results.RoundID(s.ID, ev.Epoch),
			Status:  status,
			Moves:   ev.Moves,
			Matches: ev.Matches,
			Elapsed: ev.Elapsed,
			At:      time.Now(),
		})
	}
}
