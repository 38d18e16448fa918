package game

const (
	lcgMultiplier = 16807
	lcgModulus    = 2147483647 // 2^31 - 1
)

// SeqRand is a minimal Lehmer generator used for everything that must be
// reproducible from the world seed: loot rolls, chest placement, spawn
// positions. Cosmetic jitter runs on a second SeqRand stream derived from the
// same seed so it never perturbs the gameplay stream.
type SeqRand struct {
	s int64
}

// NewSeqRand creates a generator from a seed. Zero and negative seeds are
// remapped into the valid state range so the stream never degenerates.
func NewSeqRand(seed int64) *SeqRand {
	seed %= lcgModulus
	if seed < 0 {
		seed += lcgModulus
	}
	if seed == 0 {
		seed = 1
	}
	return &SeqRand{s: seed}
}

// Next advances the state and returns it, in [1, 2^31-2].
func (r *SeqRand) Next() int64 {
	r.s = (r.s * lcgMultiplier) % lcgModulus
	return r.s
}

// Float returns the next value scaled to [0, 1).
func (r *SeqRand) Float() float64 {
	return float64(r.Next()-1) / float64(lcgModulus-1)
}

// Range returns a value in [min, max).
func (r *SeqRand) Range(min, max float64) float64 {
	return min + r.Float()*(max-min)
}

// Intn returns a value in [0, n). n <= 0 returns 0.
func (r *SeqRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Float() * float64(n))
}

// Fork derives an independent stream for a named sub-system, so that e.g.
// opening chests in a different order does not shift horde spawn rolls.
func (r *SeqRand) Fork(tag string) *SeqRand {
	return NewSeqRand(r.s ^ HashID(tag))
}

// HashID folds a string id into an int64 (FNV-1a, truncated positive).
// Combined with the world seed it keys per-entity loot streams.
func HashID(id string) int64 {
	const (
		offset = 1469598103934665603
		prime  = 1099511628211
	)
	h := uint64(offset)
	for i := 0; i < len(id); i++ {
		h ^= uint64(id[i])
		h *= prime
	}
	return int64(h & 0x7fffffffffffffff)
}
