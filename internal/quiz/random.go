package quiz

import (
	"math/rand/v2"
	"time"
)

// Rand is the source of randomness used for every selection and shuffle.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	// IntN returns a uniform value in [0, n). n is always > 0.
	IntN(n int) int
}

// NewRand returns a Rand seeded from the clock.
func NewRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// shuffle permutes s in place with Fisher-Yates.
func shuffle[T any](rnd Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// shuffled returns a shuffled copy of s, leaving s untouched.
func shuffled[T any](rnd Rand, s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	shuffle(rnd, out)
	return out
}
