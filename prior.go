package alloppnet

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// NetworkPrior is the prior on a network's node times and population sizes.
// A nil population prior contributes nothing.
type NetworkPrior struct {
	// Rate is the per-lineage rate of the exponential waiting times between
	// successive events. Must be > 0.
	Rate float64

	TipPopPrior  PopulationPrior
	RootPopPrior PopulationPrior
	HybPopPrior  PopulationPrior
}

// LogPrior returns the log prior density of net.
//
// Event times are every internal node of the diploid history and the legged
// trees plus one hybridization per legged tree. Taken in increasing order,
// the wait before the i-th of m events is exponential with rate (m-i+1)
// times Rate. Each hybridization beyond the first costs log(7*sqrt(d)),
// d the number of diploid species.
func (p NetworkPrior) LogPrior(net *Network) float64 {
	if p.Rate <= 0 {
		return math.Inf(-1)
	}
	times := net.dh.CollectInternalAndHybHeights(nil)
	for _, tt := range net.tettrees {
		times = tt.CollectInternalHeights(times)
	}
	slices.Sort(times)

	terms := make([]float64, 0, len(times)+4)
	prev := 0.0
	for i, t := range times {
		k := float64(len(times) - i + 1)
		terms = append(terms, math.Log(k*p.Rate)-k*p.Rate*(t-prev))
		prev = t
	}
	if ntt := len(net.tettrees); ntt > 1 {
		terms = append(terms, -float64(ntt-1)*math.Log(7*math.Sqrt(float64(net.DiploidCount()))))
	}
	terms = append(terms,
		popLogPrior(p.TipPopPrior, net.TipPops()),
		popLogPrior(p.RootPopPrior, net.RootPops()),
		popLogPrior(p.HybPopPrior, net.HybPops()),
	)
	if slices.ContainsFunc(terms, func(x float64) bool { return math.IsInf(x, -1) || math.IsNaN(x) }) {
		return math.Inf(-1)
	}
	return floats.Sum(terms)
}

func popLogPrior(prior PopulationPrior, vals []float64) float64 {
	if prior == nil {
		return 0
	}
	lp := 0.0
	for _, v := range vals {
		lp += prior.LogProb(v)
	}
	return lp
}
