package alloppnet

import "math"

// CoalescentLikelihood scores every gene tree of a set of bindings against
// a network.
type CoalescentLikelihood struct {
	bindings *SpeciesBindings
	net      *Network
}

// NewCoalescentLikelihood returns a likelihood over the gene trees of b
// scored against net. It reads net on every call, so it follows edits.
func NewCoalescentLikelihood(b *SpeciesBindings, net *Network) *CoalescentLikelihood {
	return &CoalescentLikelihood{bindings: b, net: net}
}

// LogLikelihood returns the sum of the gene tree log likelihoods, or -Inf
// as soon as one gene tree does not fit.
func (c *CoalescentLikelihood) LogLikelihood() float64 {
	ll := 0.0
	for g := range c.bindings.GeneTreeCount() {
		gl := c.bindings.TreeLogLikelihood(g, c.net)
		if math.IsInf(gl, -1) {
			return gl
		}
		ll += gl
	}
	return ll
}

// GeneLogLikelihoods returns the log likelihood of each gene tree.
func (c *CoalescentLikelihood) GeneLogLikelihoods() []float64 {
	lls := make([]float64, c.bindings.GeneTreeCount())
	for g := range lls {
		lls[g] = c.bindings.TreeLogLikelihood(g, c.net)
	}
	return lls
}
