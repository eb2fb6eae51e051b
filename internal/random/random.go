// Package random provides the injectable randomness used by case generation
// and test simulation.
package random

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the randomness provider for the clinic engine.
type Source interface {
	// IntN returns a uniform int in [0, n). Precondition: n > 0.
	IntN(n int) int
	// Float64 returns a uniform float in [0.0, 1.0).
	Float64() float64
}

// lockedSource serialises access to a *rand.Rand so one engine can serve
// several sessions from different goroutines.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// New returns a PCG-backed source seeded with seed.
func New(seed uint64) Source {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewFromTime returns a source seeded from the wall clock.
func NewFromTime() Source {
	return New(uint64(time.Now().UnixNano()))
}

// IntRange returns a uniform integer in [min, max].
// Calling it with min > max is a contract violation and panics.
func IntRange(src Source, min, max int) int {
	if min > max {
		panic(fmt.Sprintf("random: IntRange called with empty range [%d, %d]", min, max))
	}
	return min + src.IntN(max-min+1)
}

// Shuffle returns a uniformly permuted copy of seq. seq is left untouched.
func Shuffle[T any](src Source, seq []T) []T {
	out := make([]T, len(seq))
	copy(out, seq)
	for i := len(out) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Pick returns a uniformly chosen element of seq. seq must not be empty.
func Pick[T any](src Source, seq []T) T {
	return seq[IntRange(src, 0, len(seq)-1)]
}

// Chance reports true with probability p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}
