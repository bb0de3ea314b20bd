package engine

import "math/rand"

// RNG is the source of randomness for IBD peer selection. It is injectable
// so tests can pin a seed and get a deterministic choice (spec §4.4, §9).
type RNG interface {
	Intn(n int) int
}

// NewSeededRNG returns an RNG seeded deterministically, suitable for tests
// and for any caller that wants reproducible peer selection.
func NewSeededRNG(seed int64) RNG {
	return rand.New(rand.NewSource(seed))
}
