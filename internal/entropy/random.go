// Package entropy provides the deterministic value stream behind every
// stochastic decision in the engine. All randomness flows through a seeded
// Source so a game replays identically from its seed.
package entropy

import (
	"errors"
	"math/rand"
	"sync"
)

// Source is a seeded stream of values in [0, 1). Identical seeds produce
// identical sequences. Safe for concurrent use.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource creates a seeded source.
func NewSource(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Float returns the next value in [0, 1).
func (s *Source) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Intn returns a value in [0, n). Panics if n <= 0, matching math/rand.
func (s *Source) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Option is one candidate for weighted selection.
type Option struct {
	ID     string
	Weight float64
}

// ErrNoOptions is returned when a pick is requested from an empty set.
var ErrNoOptions = errors.New("entropy: no options to pick from")

// WeightedPick selects an option proportionally to weight × bias multiplier.
// A bias of zero leaves the option's base weight untouched; positive bias
// raises its relative frequency, negative bias lowers it. The multiplier is
// floored so no option's effective weight drops below floor × base — every
// option stays selectable even under extreme negative bias.
func WeightedPick(src *Source, options []Option, bias map[string]float64, floor float64) (string, error) {
	if len(options) == 0 {
		return "", ErrNoOptions
	}
	if floor <= 0 {
		floor = 0.01
	}

	weights := make([]float64, len(options))
	total := 0.0
	for i, opt := range options {
		base := opt.Weight
		if base <= 0 {
			base = 1.0
		}
		mul := 1.0 + bias[opt.ID]
		if mul < floor {
			mul = floor
		}
		weights[i] = base * mul
		total += weights[i]
	}

	roll := src.Float() * total
	for i, w := range weights {
		roll -= w
		if roll < 0 {
			return options[i].ID, nil
		}
	}
	// Floating-point edge: roll landed exactly on total.
	return options[len(options)-1].ID, nil
}
