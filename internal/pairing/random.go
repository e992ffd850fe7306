package pairing

import "math/rand/v2"

// Random is the source of every random choice the engine makes: the roster
// shuffle and the message template pick. *rand.Rand satisfies it.
type Random interface {
	Shuffle(n int, swap func(i, j int))
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }
func (globalRandom) IntN(n int) int                     { return rand.IntN(n) }

// DefaultRandom uses the process-wide math/rand/v2 source.
func DefaultRandom() Random { return globalRandom{} }
