package alloppnet

import (
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
)

// geneUnionTree is a gene tree whose nodes carry the union of species
// sequences below them, under one set of sequence assignments. Node indices
// match the gene tree's.
type geneUnionTree struct {
	nodes []links
	root  int
}

func (t *geneUnionTree) size() int { return len(t.nodes) }
func (t *geneUnionTree) at(i int) *links { return &t.nodes[i] }

func (b *SpeciesBindings) geneUnionTree(g int) *geneUnionTree {
	gi := b.genes[g]
	tree := gi.tree
	t := &geneUnionTree{nodes: make([]links, tree.NodeCount()), root: tree.Root()}
	for n := range t.nodes {
		nd := newLinks(n)
		nd.height = tree.Height(n)
		if tree.IsExternal(n) {
			nd.taxon = tree.Taxon(n)
			a := gi.assigns[b.taxonIndex[nd.taxon]]
			nd.union = newUnion(b.SpSeqCount())
			nd.union.Set(uint(b.spsq[a.sp][a.seq]))
		} else {
			nd.lft, nd.rgt = tree.Child(n, 0), tree.Child(n, 1)
		}
		t.nodes[n] = nd
	}
	for n := range t.nodes {
		if !t.nodes[n].isLeaf() {
			t.nodes[t.nodes[n].lft].anc = n
			t.nodes[t.nodes[n].rgt].anc = n
		}
	}
	t.fillUnions(t.root)
	return t
}

func (t *geneUnionTree) fillUnions(n int) {
	nd := &t.nodes[n]
	if nd.isLeaf() {
		return
	}
	t.fillUnions(nd.lft)
	t.fillUnions(nd.rgt)
	nd.union = t.nodes[nd.lft].union.Union(t.nodes[nd.rgt].union)
}

// fitsIn checks the subtree at n bottom-up, children before their parent,
// and stops at the first coalescence below the MUL-tree node it maps to.
func (t *geneUnionTree) fitsIn(m *MulLabTree, n int) bool {
	nd := &t.nodes[n]
	if nd.isLeaf() {
		return true
	}
	if !t.fitsIn(m, nd.lft) || !t.fitsIn(m, nd.rgt) {
		return false
	}
	return m.coalescenceIsCompatible(nd.height, nd.union)
}

func (t *geneUnionTree) recordCoalescences(m *MulLabTree, n int) {
	nd := &t.nodes[n]
	if nd.isLeaf() {
		return
	}
	m.recordCoalescence(nd.height, nd.union)
	t.recordCoalescences(m, nd.lft)
	t.recordCoalescences(m, nd.rgt)
}

// spseqUpperBound lowers bound to the height of any node in the subtree at
// n whose children separate a lineage in left from one in right.
func (t *geneUnionTree) spseqUpperBound(n int, left, right *bitset.BitSet, bound float64) float64 {
	nd := &t.nodes[n]
	if nd.isLeaf() {
		return bound
	}
	u0, u1 := t.nodes[nd.lft].union, t.nodes[nd.rgt].union
	if (left.IntersectionCardinality(u0) > 0 && right.IntersectionCardinality(u1) > 0) ||
		(left.IntersectionCardinality(u1) > 0 && right.IntersectionCardinality(u0) > 0) {
		bound = math.Min(bound, nd.height)
	}
	bound = t.spseqUpperBound(nd.lft, left, right, bound)
	return t.spseqUpperBound(nd.rgt, left, right, bound)
}

func (t *geneUnionTree) asText() string {
	return subtreeText(t, t.root, func(n, indent int) string {
		nd := &t.nodes[n]
		return fmt.Sprintf("%s%s  %s", nodeLabel(nd.taxon, nd.isLeaf(), textNameWidth, indent), formatHeight(nd.height), unionText(nd.union))
	})
}
