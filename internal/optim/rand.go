// Package optim provides the derivative-free machinery behind the diagnostics
// fit: a seedable deterministic PRNG and a bounded Nelder–Mead simplex search.
package optim

// Rand is a SplitMix64 generator: a 64-bit counter advanced by a fixed odd
// increment and passed through a mixing function. It is deliberately simple
// and fully specified so fit results are reproducible from a seed alone.
type Rand struct {
	state uint64
}

// NewRand returns a generator seeded with the given value. Equal seeds yield
// equal sequences.
func NewRand(seed int64) *Rand {
	return &Rand{state: uint64(seed)}
}

// Uint64 advances the counter and returns the next mixed value.
func (r *Rand) Uint64() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Float64 returns a uniform value in [0, 1) using the top 53 bits.
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}
