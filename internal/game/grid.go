package game

import "math/rand/v2"

// dealValues returns total card values, each of 1..total/2 exactly twice,
// in uniformly random order (Fisher–Yates). total must be even.
func dealValues(total int, intN func(int) int) []int {
	values := make([]int, 0, total)
	for v := 1; v <= total/2; v++ {
		values = append(values, v, v)
	}
	for i := len(values) - 1; i > 0; i-- {
		j := intN(i + 1)
		values[i], values[j] = values[j], values[i]
	}
	return values
}

// newGrid builds a hidden grid for cfg.
func newGrid(cfg Config, intN func(int) int) []Card {
	values := dealValues(cfg.Total(), intN)
	cards := make([]Card, len(values))
	for i, v := range values {
		cards[i] = Card{Position: i, Value: v, State: CardHidden}
	}
	return cards
}

// defaultIntN uses the auto-seeded global source.
func defaultIntN(n int) int { return rand.IntN(n) }
