package alloppnet

import (
	"fmt"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// spsqUnion pairs a node's species-sequence union with its species union,
// the key population indices are shared on.
type spsqUnion struct {
	spsq *bitset.BitSet
	sp   *bitset.BitSet
}

// compareSpsqUnions groups unions with equal species sets together, tips
// first, then by clade size. Within a group the smaller species-sequence
// unions, the two tetraploid roots of a pair, come before the leg join.
func compareSpsqUnions(a, b spsqUnion) int {
	if c := compareByCardinality(a.sp, b.sp); c != 0 {
		return c
	}
	return compareByCardinality(a.spsq, b.spsq)
}

type popIndices struct {
	tip, root, hyb int
}

// fillinPopvals assigns tip, root and hybrid population indices to every
// node. Nodes of the MUL-tree that stand for the same species clade share
// a population. Returns an error wrapping ErrPopulationCount when the
// indices used differ from the vector lengths.
func (m *MulLabTree) fillinPopvals() error {
	unions := make([]spsqUnion, len(m.nodes))
	for i := range m.nodes {
		u := m.nodes[i].union
		unions[i] = spsqUnion{spsq: u, sp: m.bindings.SpSeqUnionToSpUnion(u)}
		m.nodes[i].tipPop = -1
		m.nodes[i].rootPop = -1
		m.nodes[i].hybPop = -1
	}
	slices.SortStableFunc(unions, compareSpsqUnions)

	var next popIndices
	for n0 := 0; n0 < len(unions); {
		n1 := n0 + 1
		for n1 < len(unions) && unions[n1].sp.Equal(unions[n0].sp) {
			n1++
		}
		if err := m.fillinPopvalsForSpUnion(unions[n0:n1], &next); err != nil {
			return err
		}
		n0 = n1
	}
	if next.tip != len(m.pops.tip) || next.root != len(m.pops.root) || next.hyb != m.pops.activeHyb {
		return fmt.Errorf("%w: used tip %d root %d hyb %d, have tip %d root %d hyb %d",
			ErrPopulationCount, next.tip, next.root, next.hyb,
			len(m.pops.tip), len(m.pops.root), m.pops.activeHyb)
	}
	return nil
}

func (m *MulLabTree) fillinPopvalsForSpUnion(group []spsqUnion, next *popIndices) error {
	n := len(group)
	nodeset := make([]int, n)
	for i, u := range group {
		nodeset[i] = locate(m, m.root, u.spsq)
	}
	first := &m.nodes[nodeset[0]]

	// Hybrid populations: the two tetraploid roots of a pair share one.
	if first.tetraRoot {
		if n < 2 || !m.nodes[nodeset[1]].tetraRoot {
			return fmt.Errorf("%w: tetraploid root %d has no partner", ErrPopulationCount, nodeset[0])
		}
		if next.hyb >= m.pops.activeHyb {
			return fmt.Errorf("%w: more than %d hybrid populations", ErrPopulationCount, m.pops.activeHyb)
		}
		m.nodes[nodeset[0]].hybPop = next.hyb
		m.nodes[nodeset[1]].hybPop = next.hyb
		next.hyb++
	}

	// Tip populations: one per species, shared by both copies of a tetraploid.
	ntips := 0
	for _, nn := range nodeset {
		if m.nodes[nn].isLeaf() {
			m.nodes[nn].tipPop = next.tip
			ntips++
		}
	}
	if ntips > 2 {
		return fmt.Errorf("%w: %d tips share one species", ErrPopulationCount, ntips)
	}
	if ntips > 0 {
		if next.tip >= len(m.pops.tip) {
			return fmt.Errorf("%w: more than %d tip populations", ErrPopulationCount, len(m.pops.tip))
		}
		next.tip++
	}

	// Root populations inside a legged tree come in pairs.
	if first.inTetraTree && !first.tetraRoot {
		if n != 2 {
			return fmt.Errorf("%w: %d nodes share a clade inside a tetraploid tree, want 2", ErrPopulationCount, n)
		}
		m.nodes[nodeset[0]].rootPop = next.root
		m.nodes[nodeset[1]].rootPop = next.root
		next.root++
		return m.checkRootIndex(next)
	}

	// Elsewhere a branch shares its root population with its sibling when
	// either of them has only tetraploids below.
	for _, nn := range nodeset {
		nd := &m.nodes[nn]
		if nd.anc < 0 {
			continue
		}
		sib := &m.nodes[sibling(m, nn)]
		if (nd.tetraAncestor || sib.tetraAncestor) && sib.rootPop >= 0 {
			nd.rootPop = sib.rootPop
			continue
		}
		nd.rootPop = next.root
		next.root++
	}
	return m.checkRootIndex(next)
}

func (m *MulLabTree) checkRootIndex(next *popIndices) error {
	if next.root > len(m.pops.root) {
		return fmt.Errorf("%w: more than %d root populations", ErrPopulationCount, len(m.pops.root))
	}
	return nil
}
