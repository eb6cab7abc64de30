package logic

import "math/rand"

// RandSource implements Random on top of math/rand.
type RandSource struct {
	r *rand.Rand
}

// NewRandSource creates a Random seeded with seed.
func NewRandSource(seed int64) *RandSource {
	return &RandSource{r: rand.New(rand.NewSource(seed))}
}

// Uniform returns an integer in [min, max]. It returns min when max < min.
func (s *RandSource) Uniform(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + s.r.Int63n(max-min+1)
}

// Intn returns an integer in [0, n). It returns 0 when n <= 0.
func (s *RandSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.Intn(n)
}
