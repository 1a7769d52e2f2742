package alloppnet

import (
	"math"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// clearCoalescences empties the coalescence lists of every node.
func (m *MulLabTree) clearCoalescences() {
	for i := range m.nodes {
		m.nodes[i].coalHeights = m.nodes[i].coalHeights[:0]
	}
}

// coalescenceIsCompatible reports whether a gene tree node at height h
// whose tips make up union can sit in the MUL-tree: the smallest clade
// holding all of union must be no older than h.
func (m *MulLabTree) coalescenceIsCompatible(h float64, union *bitset.BitSet) bool {
	return m.nodes[locate(m, m.root, union)].height <= h
}

// recordCoalescence adds h to the branch it falls in: above the smallest
// clade holding union and below that clade's next ancestor older than h.
func (m *MulLabTree) recordCoalescence(h float64, union *bitset.BitSet) {
	n := locate(m, m.root, union)
	for m.nodes[n].anc >= 0 && m.nodes[m.nodes[n].anc].height <= h {
		n = m.nodes[n].anc
	}
	m.nodes[n].coalHeights = append(m.nodes[n].coalHeights, h)
}

func (m *MulLabTree) sortCoalescences() {
	for i := range m.nodes {
		slices.Sort(m.nodes[i].coalHeights)
	}
}

// recordLineageCounts sets the number of gene lineages entering each
// branch from below. Coalescences must be recorded first.
func (m *MulLabTree) recordLineageCounts() {
	m.recordSubtreeLineageCounts(m.root)
}

func (m *MulLabTree) recordSubtreeLineageCounts(n int) {
	nd := &m.nodes[n]
	if nd.isLeaf() {
		spsq, _ := singleBit(nd.union)
		nd.nLineages = m.bindings.NLineages(m.bindings.spSeqToSpecies(spsq))
		return
	}
	m.recordSubtreeLineageCounts(nd.lft)
	m.recordSubtreeLineageCounts(nd.rgt)
	c0, c1 := &m.nodes[nd.lft], &m.nodes[nd.rgt]
	nd.nLineages = c0.nLineages - len(c0.coalHeights) + c1.nLineages - len(c1.coalHeights)
}

// logLikelihood returns the log probability of the recorded coalescences.
// The root branch extends to maxGeneTreeHeight.
func (m *MulLabTree) logLikelihood(maxGeneTreeHeight float64) float64 {
	ll := 0.0
	for i := range m.nodes {
		ll += m.branchLL(i, maxGeneTreeHeight)
	}
	return ll
}

// limb is a branch or part of one: coalescences at t[1..k] between t[0]
// and t[k+1], with population tipPop at t[0] varying linearly to rootPop at
// t[k+1], and nLin lineages entering at t[0].
type limb struct {
	t       []float64
	tipPop  float64
	rootPop float64
	nLin    int
}

func (l *limb) begin() float64 { return l.t[0] }
func (l *limb) end() float64 { return l.t[len(l.t)-1] }

func (l *limb) populationAt(x float64) float64 {
	b, e := l.begin(), l.end()
	return ((e-x)*l.tipPop + (x-b)*l.rootPop) / (e - b)
}

func newLimb(start float64, coal []float64, stop, tipPop, rootPop float64, nLin int) limb {
	t := make([]float64, 0, len(coal)+2)
	t = append(t, start)
	t = append(t, coal...)
	t = append(t, stop)
	return limb{t: t, tipPop: tipPop, rootPop: rootPop, nLin: nLin}
}

func (m *MulLabTree) branchLL(n int, maxGeneTreeHeight float64) float64 {
	nd := &m.nodes[n]
	var tipPop float64
	if nd.isLeaf() {
		tipPop = m.tipPopValue(n)
	} else {
		tipPop = m.rootPopValue(nd.lft) + m.rootPopValue(nd.rgt)
	}

	switch {
	case nd.tetraRoot:
		// Since hybridization the branch carries the hybrid population,
		// before it the root population of the leg.
		nsince := 0
		for nsince < len(nd.coalHeights) && nd.coalHeights[nsince] < nd.hybridHeight {
			nsince++
		}
		below := newLimb(nd.height, nd.coalHeights[:nsince], nd.hybridHeight, tipPop, m.hybPopValue(n), nd.nLineages)
		rootPop := m.rootPopValue(n)
		above := newLimb(nd.hybridHeight, nd.coalHeights[nsince:], m.nodes[nd.anc].height, rootPop, rootPop, nd.nLineages-nsince)
		return below.logLike() + above.logLike()
	case nd.anc < 0:
		l := newLimb(nd.height, nd.coalHeights, maxGeneTreeHeight, tipPop, tipPop, nd.nLineages)
		return l.logLike()
	default:
		l := newLimb(nd.height, nd.coalHeights, m.nodes[nd.anc].height, tipPop, m.rootPopValue(n), nd.nLineages)
		return l.logLike()
	}
}

// logLike is the log probability of the limb's coalescences under the
// coalescent with linearly changing population size.
func (l *limb) logLike() float64 {
	ll := 0.0
	k := len(l.t) - 2
	for i := 1; i <= k; i++ {
		ll -= math.Log(l.populationAt(l.t[i]))
	}
	for i := 0; i <= k; i++ {
		pairs := float64((l.nLin - i) * (l.nLin - i - 1) / 2)
		ll -= pairs * l.integral(l.t[i], l.t[i+1])
	}
	return ll
}

// integral returns the integral from t0 to t1 of
// (end-begin)/((end-x)*tipPop + (x-begin)*rootPop) dx.
// A series expansion replaces the closed form when the two populations are
// within 0.1% of each other.
func (l *limb) integral(t0, t1 float64) float64 {
	b, e := l.begin(), l.end()
	d := l.rootPop - l.tipPop
	c := e*l.tipPop - b*l.rootPop
	if math.Abs(d/l.tipPop) > 0.001 {
		return ((e - b) / d) * math.Log((c+d*t1)/(c+d*t0))
	}
	y := d * (t1 - t0) / (c + d*t0)
	ys := 1 - y/2 + y*y*(1.0/3-y/4+y*y*(1.0/5-y/6))
	return ((e - b) * (t1 - t0) / (c + d*t0)) * ys
}
