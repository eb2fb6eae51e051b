package random

import "fmt"

// Scripted replays fixed draws so tests can pin down exact branches.
// IntN consumes Ints in order, Float64 consumes Floats in order. Once a
// script runs dry it falls back to the smallest value (0 and 0.0), which
// keeps shuffles as identity-ish permutations and Chance draws positive.
type Scripted struct {
	Ints   []int
	Floats []float64
}

// NewScripted returns a scripted source.
func NewScripted(ints []int, floats []float64) *Scripted {
	return &Scripted{Ints: ints, Floats: floats}
}

// IntN returns the next scripted int, which must be in [0, n).
func (s *Scripted) IntN(n int) int {
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[0]
	s.Ints = s.Ints[1:]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("random: scripted int %d outside [0, %d)", v, n))
	}
	return v
}

// Float64 returns the next scripted float.
func (s *Scripted) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return v
}

// Fixed always returns the same float and the largest allowed int, the
// opposite corner of Scripted's fallback.
type Fixed struct {
	Float float64
}

func (f Fixed) IntN(n int) int   { return n - 1 }
func (f Fixed) Float64() float64 { return f.Float }
