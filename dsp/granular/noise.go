package granular

import "math/rand"

// noiseSource is a seedable uniform random source owned by a single engine
// or scheduler instance, so reseeding one instance never disturbs another.
type noiseSource struct {
	rng  *rand.Rand
	seed int64
}

func newNoiseSource(seed int64) *noiseSource {
	return &noiseSource{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// uniform returns a draw in [0, 1).
func (n *noiseSource) uniform() float64 {
	return n.rng.Float64()
}

// bipolar returns a draw in [-1, 1).
func (n *noiseSource) bipolar() float64 {
	return n.rng.Float64()*2 - 1
}

// reseed rewinds the source to a deterministic state.
func (n *noiseSource) reseed(seed int64) {
	n.seed = seed
	n.rng.Seed(seed)
}

// rewind restarts the sequence from the last seed.
func (n *noiseSource) rewind() {
	n.rng.Seed(n.seed)
}
