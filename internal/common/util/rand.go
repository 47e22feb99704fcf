package util

import (
	"math/rand"
)

// DeriveSeeds returns n seeds drawn from a source seeded with seed.
// The i-th seed depends only on seed and i, so work seeded this way is reproducible however it's scheduled.
func DeriveSeeds(seed int64, n int) []int64 {
	r := rand.New(rand.NewSource(seed))
	rv := make([]int64, n)
	for i := range rv {
		rv[i] = r.Int63()
	}
	return rv
}

// NewRand returns a *rand.Rand seeded with seed. It is not safe for concurrent use.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
