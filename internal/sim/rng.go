package sim

// RNG is a Mulberry32 pseudo-random generator. A given 32-bit seed always
// produces the same sequence of uniform float64 values in [0, 1), which is
// what makes whole simulation runs replayable from a single integer.
type RNG struct {
	state uint32
}

// NewRNG creates a generator seeded with the given value.
func NewRNG(seed uint32) *RNG {
	return &RNG{state: seed}
}

// Float64 returns the next uniform value in [0, 1).
func (r *RNG) Float64() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}
