// Package randutil derives reproducible random sources for the game's actors.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// Stream identifiers keep each actor on its own sequence so that adding a
// player never perturbs how the dealer shuffles.
const (
	StreamBoard  = 1
	StreamDealer = 2
	// StreamPlayer is offset by the player id.
	StreamPlayer = 16
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The two 64-bit seeds required by rand/v2 are derived here so all call sites
// get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Derive returns an independent source for the given stream of a game seed.
// A *rand.Rand is not safe for concurrent use, so every actor owns one.
func Derive(seed int64, stream int) *rand.Rand {
	u := mix(uint64(seed)) ^ mix(uint64(stream)*goldenRatio64)
	return rand.New(rand.NewPCG(u, mix(u+goldenRatio64)))
}

// Seed returns seed unchanged unless it is zero, in which case a time based
// seed is returned so unseeded games still differ between runs.
func Seed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
