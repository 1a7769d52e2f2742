package alloppnet

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// sampler draws every random quantity the package needs from one source,
// so a seeded source gives a reproducible network.
type sampler struct {
	src rand.Source
	rnd *rand.Rand
}

func newSampler(src rand.Source) *sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &sampler{src: src, rnd: rand.New(src)}
}

// exp draws from an exponential distribution with the given rate.
func (s *sampler) exp(rate float64) float64 {
	return distuv.Exponential{Rate: rate, Src: s.src}.Rand()
}

func (s *sampler) intn(n int) int { return s.rnd.IntN(n) }

func (s *sampler) float64() float64 { return s.rnd.Float64() }

// choose returns index i with probability proportional to weights[i].
func (s *sampler) choose(weights []float64) int {
	return int(distuv.NewCategorical(weights, s.src).Rand())
}

// uniformInRange maps u in [0,1) to a point within a window around old,
// clipped to [lo, hi]. The window half-width is w times the range.
func uniformInRange(old, lo, hi, w, u float64) float64 {
	span := w * (hi - lo)
	a := max(lo, old-span)
	b := min(hi, old+span)
	return a + u*(b-a)
}
