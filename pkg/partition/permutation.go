package partition

import (
	"math/rand/v2"

	"github.com/cockroachdb/errors"
)

// Permutation maps each output position i to the source position P[i].
type Permutation []int

// NewPermutation draws a uniformly random permutation of [0, n) with an
// unbiased Fisher-Yates shuffle.
func NewPermutation(n int, rng *rand.Rand) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	rng.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}

// NewRand returns a generator for seed. Equal seeds give equal permutations.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomSeed draws a fresh seed.
func RandomSeed() uint64 {
	return rand.Uint64()
}

// Validate checks that p is a bijection over [0, len(p)).
func (p Permutation) Validate() error {
	seen := make([]bool, len(p))
	for i, src := range p {
		if src < 0 || src >= len(p) {
			return errors.Newf("permutation maps %d to %d, outside [0, %d)", i, src, len(p))
		}
		if seen[src] {
			return errors.Newf("permutation maps two positions to %d", src)
		}
		seen[src] = true
	}
	return nil
}

// Inverse returns the permutation that undoes p.
func (p Permutation) Inverse() Permutation {
	inv := make(Permutation, len(p))
	for i, src := range p {
		inv[src] = i
	}
	return inv
}
