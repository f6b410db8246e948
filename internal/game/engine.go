// internal/game/engine.go
//
// Core game engine for a single memory (card pairs) board.
// Responsibilities:
//   - Deal a shuffled grid where every value appears exactly twice.
//   - Apply card selections: reveal, compare pairs, lock during the mismatch delay.
//   - Run the countdown: one tick per second while running and not paused.
//   - Track the lifecycle: not started → running → won | expired.
//
// Notes:
//   - All state lives behind one mutex; deferred callbacks (ticks, mismatch
//     resolution) take the same mutex, so they never interleave with a click.
//   - Every deferred callback captures the epoch it was scheduled in and is
//     discarded if the engine has been restarted or the game has ended since.
//   - Events are delivered synchronously, in order, while the lock is held.
package game

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// MismatchDelay is how long a non-matching pair stays face up.
	MismatchDelay = 1000 * time.Millisecond
	// TickInterval is the countdown resolution.
	TickInterval = time.Second
)

// Option customises an Engine at construction.
type Option func(*Engine)

// WithListener sets the event sink. Defaults to discarding events.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listener = l
		}
	}
}

// WithScheduler sets the clock used for ticks and the mismatch delay.
// Defaults to SystemScheduler.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) {
		if s != nil {
			e.sched = s
		}
	}
}

// WithRand sets the random source used to deal the grid.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.intN = r.IntN
		}
	}
}

// Engine owns one board: grid, turn state and timer state.
type Engine struct {
	mu       sync.Mutex
	sched    Scheduler
	listener Listener
	intN     func(int) int

	cfg   Config
	epoch uint64

	cards   []Card
	pending []int
	locked  bool

	remaining int
	stopped   bool
	started   bool
	paused    bool
	phase     Phase
	moves     int
	matches   int

	tickTimer    Timer
	resolveTimer Timer
}

// New validates cfg, deals the first grid and emits grid-ready.
// It returns an error wrapping ErrInvalidConfig for unusable configs.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		sched:    SystemScheduler{},
		listener: nopListener{},
		intN:     defaultIntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.Initialize(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Initialize discards the current game and starts a fresh one with cfg.
// On error the current game is left untouched.
func (e *Engine) Initialize(cfg Config) error {
	return e.Restart(&cfg)
}

// Restart re-deals the board. A nil cfg reuses the current configuration.
// Pending ticks and mismatch resolutions of the previous game never apply.
func (e *Engine) Restart(cfg *Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.cfg
	if cfg != nil {
		next = *cfg
	}
	if err := next.Validate(); err != nil {
		return err
	}
	e.reset(next)
	return nil
}

// Start starts the countdown without revealing a card. No-op once started.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startTimer()
}

// SelectCard handles a click on position. It reports whether the click
// changed the board; ignored clicks emit nothing.
func (e *Engine) SelectCard(position int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.startTimer()

	if e.locked || len(e.pending) >= 2 {
		return false
	}
	if position < 0 || position >= len(e.cards) || e.cards[position].State != CardHidden {
		return false
	}

	e.cards[position].State = CardRevealed
	e.pending = append(e.pending, position)
	e.emit(Event{Type: EventCardRevealed, Positions: []int{position}})

	if len(e.pending) == 2 {
		e.judgePair()
	}
	return true
}

// NotifyPointerEnteredBoard resumes the countdown if it was paused.
func (e *Engine) NotifyPointerEnteredBoard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setPaused(false)
}

// NotifyPointerLeftBoard pauses the countdown. Ignored before the first
// click and after the game has ended.
func (e *Engine) NotifyPointerLeftBoard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setPaused(true)
}

// Stop retires the current game: pending callbacks are invalidated, timers
// stopped and the board locked. It returns the state just before stopping,
// and false if the engine was already stopped. Restart revives the engine.
func (e *Engine) Stop() (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return State{}, false
	}
	st := e.snapshot()
	e.stopTimers()
	e.epoch++
	e.stopped = true
	e.locked = true
	return st, true
}

// Inspect calls f with a snapshot while the engine lock is held, so no event
// is emitted between the snapshot and the end of f. f must not call the engine.
func (e *Engine) Inspect(f func(State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f(e.snapshot())
}

// Snapshot returns a copy of the engine state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// ----------------------------- internals ------------------------------------
// Everything below runs with e.mu held.

func (e *Engine) snapshot() State {
	cards := make([]Card, len(e.cards))
	copy(cards, e.cards)
	pending := make([]int, len(e.pending))
	copy(pending, e.pending)

	return State{
		Config:    e.cfg,
		Epoch:     e.epoch,
		Cards:     cards,
		Pending:   pending,
		Locked:    e.locked,
		TimeLimit: e.cfg.TimeLimitSeconds,
		Remaining: e.remaining,
		Started:   e.started,
		Paused:    e.paused,
		Phase:     e.phase,
		Moves:     e.moves,
		Matches:   e.matches,
	}
}

func (e *Engine) reset(cfg Config) {
	e.stopTimers()
	e.epoch++

	e.cfg = cfg
	e.cards = newGrid(cfg, e.intN)
	e.pending = nil
	e.locked = false

	e.remaining = cfg.TimeLimitSeconds
	e.stopped = false
	e.started = false
	e.paused = false
	e.phase = PhaseNotStarted
	e.moves = 0
	e.matches = 0

	cards := make([]Card, len(e.cards))
	copy(cards, e.cards)
	c := cfg
	e.emit(Event{Type: EventGridReady, Cards: cards, Config: &c})
}

func (e *Engine) startTimer() {
	if e.stopped || e.phase != PhaseNotStarted {
		return
	}
	e.started = true
	e.phase = PhaseRunning
	e.scheduleTick()
}

func (e *Engine) judgePair() {
	a, b := e.pending[0], e.pending[1]
	e.moves++

	if e.cards[a].Value == e.cards[b].Value {
		e.cards[a].State = CardMatched
		e.cards[b].State = CardMatched
		e.matches++
		e.pending = nil
		e.emit(Event{Type: EventPairMatched, Positions: []int{a, b}})
		if e.matches*2 == len(e.cards) {
			e.win()
		}
		return
	}

	e.locked = true
	e.emit(Event{Type: EventPairMismatched, Positions: []int{a, b}})
	epoch := e.epoch
	e.resolveTimer = e.sched.AfterFunc(MismatchDelay, func() { e.resolveMismatch(epoch, a, b) })
}

func (e *Engine) resolveMismatch(epoch uint64, a, b int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(epoch) {
		return
	}
	e.resolveTimer = nil
	e.cards[a].State = CardHidden
	e.cards[b].State = CardHidden
	e.pending = nil
	e.locked = false
	e.emit(Event{Type: EventCardsReset, Positions: []int{a, b}})
}

func (e *Engine) scheduleTick() {
	epoch := e.epoch
	e.tickTimer = e.sched.AfterFunc(TickInterval, func() { e.onTick(epoch) })
}

func (e *Engine) onTick(epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(epoch) {
		return
	}
	e.tickTimer = nil

	if !e.paused {
		e.remaining--
		e.emit(Event{Type: EventTimerTick})
		if e.remaining <= 0 {
			e.remaining = 0
			e.expire()
			return
		}
	}
	e.scheduleTick()
}

func (e *Engine) setPaused(paused bool) {
	if e.stopped || e.phase != PhaseRunning || e.paused == paused {
		return
	}
	e.paused = paused
	if paused {
		e.emit(Event{Type: EventTimerPaused})
	} else {
		e.emit(Event{Type: EventTimerResumed})
	}
}

func (e *Engine) win() {
	e.locked = true
	e.phase = PhaseWon
	e.stopTimers()
	e.emit(e.terminalEvent(EventGameWon))
}

func (e *Engine) expire() {
	e.locked = true
	e.phase = PhaseExpired
	e.stopTimers()
	e.emit(e.terminalEvent(EventTimeExpired))
}

func (e *Engine) terminalEvent(t EventType) Event {
	return Event{
		Type:    t,
		Moves:   e.moves,
		Matches: e.matches,
		Elapsed: e.cfg.TimeLimitSeconds - e.remaining,
	}
}

// current reports whether a callback scheduled in epoch may still apply.
func (e *Engine) current(epoch uint64) bool {
	return epoch == e.epoch && !e.phase.Terminal()
}

func (e *Engine) stopTimers() {
	if e.tickTimer != nil {
		e.tickTimer.Stop()
		e.tickTimer = nil
	}
	if e.resolveTimer != nil {
		e.resolveTimer.Stop()
		e.resolveTimer = nil
	}
}

func (e *Engine) emit(ev Event) {
	ev.Epoch = e.epoch
	ev.Remaining = e.remaining
	e.listener.OnEvent(ev)
}
