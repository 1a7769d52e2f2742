package alloppnet

import (
	"math"
	"math/rand/v2"
	"testing"
)

// assertClose fails the test when got and want differ by more than tol.
func assertClose(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %.15g, want %.15g (tol %g)", name, got, want, tol)
	}
}

func testSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed+1)
}

// fixedLeggedTree returns a caterpillar over taxa: the first two join at
// height 1, each later taxon joins the clade so far one unit higher.
func fixedLeggedTree(taxa ...string) *LeggedTree {
	ntips := len(taxa)
	t := &LeggedTree{nodes: make([]links, 2*ntips-1), leftLeg: -1, rightLeg: -1}
	for i := range t.nodes {
		t.nodes[i] = newLinks(i)
	}
	for i, tx := range taxa {
		t.nodes[i].taxon = tx
		t.nodes[i].height = 0
	}
	prev := 0
	for i := 1; i < ntips; i++ {
		n := ntips + i - 1
		addChildren(t, n, prev, i)
		t.nodes[n].height = float64(i)
		prev = n
	}
	t.root = len(t.nodes) - 1
	return t
}

// dipLeaf is a tip of a hand-built diploid history: a diploid taxon, or a
// foot of tettree tt when tt >= 0.
type dipLeaf struct {
	taxon string
	tt    int
	leg   Leg
}

func dip(taxon string) dipLeaf { return dipLeaf{taxon: taxon, tt: -1} }
func foot(tt int, leg Leg) dipLeaf { return dipLeaf{tt: tt, leg: leg} }

// buildHistory lays out leaves at indices 0..len(leaves)-1 and each join
// after them, in order. Feet sit one unit above their tree's root and each
// join one unit above its higher child. Legs of tettrees are set.
func buildHistory(t *testing.T, leaves []dipLeaf, joins [][2]int, tettrees []*LeggedTree) *DiploidHistory {
	t.Helper()
	h := &DiploidHistory{nodes: make([]dipNode, len(leaves)+len(joins))}
	for i := range h.nodes {
		h.nodes[i] = newDipNode(i)
	}
	for i, lf := range leaves {
		nd := &h.nodes[i]
		if lf.tt < 0 {
			nd.taxon = lf.taxon
			nd.height = 0
			continue
		}
		nd.tettree = lf.tt
		nd.leg = lf.leg
		nd.height = tettrees[lf.tt].RootHeight() + 1
		tettrees[lf.tt].setLeg(lf.leg, i)
	}
	for j, jn := range joins {
		n := len(leaves) + j
		addChildren(h, n, jn[0], jn[1])
		h.nodes[n].height = max(h.nodes[jn[0]].height, h.nodes[jn[1]].height) + 1
	}
	h.root = len(h.nodes) - 1
	if err := h.Check(false); err != nil {
		t.Fatalf("hand-built history invalid: %v", err)
	}
	return h
}

// oneIndividual returns a species with one individual of the right number
// of taxa, named after the species.
func oneIndividual(name string, ploidy int) Species {
	iv := Individual{ID: name + "1"}
	for k := range ploidy / 2 {
		iv.Taxa = append(iv.Taxa, name+"_"+string(rune('A'+k)))
	}
	return Species{Name: name, Ploidy: ploidy, Individuals: []Individual{iv}}
}

func mustBindings(t *testing.T, species []Species, genes []GeneTree, opts BindingsOptions) *SpeciesBindings {
	t.Helper()
	b, err := NewSpeciesBindings(species, genes, opts)
	if err != nil {
		t.Fatalf("NewSpeciesBindings: %v", err)
	}
	return b
}

func testPops(nsp, nhyb, active int) populations {
	return populations{
		tip:       filled(nsp, 0.003),
		root:      filled(2*(nsp-1), 0.001),
		hyb:       filled(nhyb, 0.001),
		activeHyb: active,
	}
}
