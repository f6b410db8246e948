package game

// EventType names an outbound notification.
type EventType string

const (
	EventGridReady      EventType = "grid-ready"
	EventCardRevealed   EventType = "card-revealed"
	EventPairMatched    EventType = "pair-matched"
	EventPairMismatched EventType = "pair-mismatched"
	EventCardsReset     EventType = "cards-reset"
	EventTimerTick      EventType = "timer-tick"
	EventTimerPaused    EventType = "timer-paused"
	EventTimerResumed   EventType = "timer-resumed"
	EventTimeExpired    EventType = "time-expired"
	EventGameWon        EventType = "game-won"
)

// Event is delivered to the Listener in emission order.
// Only the fields relevant to Type are populated.
type Event struct {
	Type      EventType `json:"type"`
	Epoch     uint64    `json:"epoch"`
	Positions []int     `json:"positions,omitempty"`
	Cards     []Card    `json:"cards,omitempty"`  // grid-ready
	Config    *Config   `json:"config,omitempty"` // grid-ready
	Remaining int       `json:"remaining"`
	Moves     int       `json:"moves,omitempty"`   // terminal events
	Matches   int       `json:"matches,omitempty"` // terminal events
	Elapsed   int       `json:"elapsed,omitempty"` // terminal events
}

// Terminal reports whether the event ends the current game.
func (e Event) Terminal() bool { return e.Type == EventGameWon || e.Type == EventTimeExpired }

// Listener observes engine events. OnEvent runs while the engine lock is
// held and must not call back into the Engine.
type Listener interface {
	OnEvent(Event)
}

type nopListener struct{}

func (nopListener) OnEvent(Event) {}
