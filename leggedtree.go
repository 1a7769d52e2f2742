package alloppnet

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// LeggedTree is the homoploid tree of one group of tetraploid species that
// share a single hybridization. Its two legs are indices of the feet in the
// owning DiploidHistory; -1 until the history sets them.
type LeggedTree struct {
	nodes    []links
	root     int
	leftLeg  int
	rightLeg int
}

func (t *LeggedTree) size() int { return len(t.nodes) }
func (t *LeggedTree) at(i int) *links { return &t.nodes[i] }

// NewLeggedTree returns a random tree over taxa grown by a sequential
// coalescent with the given per-lineage rate. Legs are left unset.
func NewLeggedTree(taxa []string, rate float64, src rand.Source) (*LeggedTree, error) {
	return newRandomLeggedTree(taxa, rate, newSampler(src))
}

func newRandomLeggedTree(taxa []string, rate float64, s *sampler) (*LeggedTree, error) {
	if len(taxa) == 0 {
		return nil, fmt.Errorf("alloppnet: legged tree needs at least one taxon")
	}
	if rate <= 0 {
		return nil, fmt.Errorf("alloppnet: legged tree rate must be > 0, got %f", rate)
	}
	ntips := len(taxa)
	t := &LeggedTree{nodes: make([]links, 2*ntips-1), leftLeg: -1, rightLeg: -1}
	for i := range t.nodes {
		t.nodes[i] = newLinks(i)
	}
	tojoin := make([]int, 0, ntips)
	for i, tx := range taxa {
		t.nodes[i].taxon = tx
		t.nodes[i].height = 0
		tojoin = append(tojoin, i)
	}
	treeHeight := 0.0
	for i := 0; i < ntips-1; i++ {
		num := len(tojoin)
		j := s.intn(num)
		c0 := tojoin[j]
		tojoin = append(tojoin[:j], tojoin[j+1:]...)
		k := s.intn(num - 1)
		c1 := tojoin[k]
		tojoin = append(tojoin[:k], tojoin[k+1:]...)
		n := ntips + i
		addChildren(t, n, c0, c1)
		r := float64(num) * rate
		// 1e-6/r keeps successive join heights distinct.
		t.nodes[n].height = treeHeight + s.exp(r) + 1e-6/r
		treeHeight = t.nodes[n].height
		tojoin = append(tojoin, n)
	}
	t.root = len(t.nodes) - 1
	return t, nil
}

// Clone returns a deep copy.
func (t *LeggedTree) Clone() *LeggedTree {
	c := &LeggedTree{nodes: make([]links, len(t.nodes)), root: t.root, leftLeg: t.leftLeg, rightLeg: t.rightLeg}
	for i := range t.nodes {
		c.nodes[i] = t.nodes[i]
		if t.nodes[i].union != nil {
			c.nodes[i].union = t.nodes[i].union.Clone()
		}
	}
	return c
}

// MergeLeggedTrees joins t1 (left) and t2 (right) under a new root at
// hybHeight. t2 has the more ancient hybridization, so its legs are kept.
func MergeLeggedTrees(t1, t2 *LeggedTree, hybHeight float64) *LeggedTree {
	m := &LeggedTree{
		nodes:    make([]links, 1+len(t1.nodes)+len(t2.nodes)),
		leftLeg:  t2.leftLeg,
		rightLeg: t2.rightLeg,
	}
	next := copyLegSubtree(m.nodes, 0, t1, t1.root)
	lft := next - 1
	next = copyLegSubtree(m.nodes, next, t2, t2.root)
	rgt := next - 1
	m.nodes[next] = newLinks(next)
	m.nodes[next].height = hybHeight
	addChildren(m, next, lft, rgt)
	m.root = next
	return m
}

// ExtractSubtree returns the clade below node n of t as a standalone tree
// with unset legs.
func ExtractSubtree(t *LeggedTree, n int) *LeggedTree {
	ntips := len(SlidableTips(t, n))
	s := &LeggedTree{nodes: make([]links, 2*ntips-1), leftLeg: -1, rightLeg: -1}
	next := copyLegSubtree(s.nodes, 0, t, n)
	s.root = next - 1
	return s
}

// copyLegSubtree copies the subtree of src at n into dst in postorder,
// starting at index next, and returns the next free index.
func copyLegSubtree(dst []links, next int, src *LeggedTree, n int) int {
	nd := &src.nodes[n]
	if nd.isLeaf() {
		dst[next] = nd.copyContent(next)
		return next + 1
	}
	next = copyLegSubtree(dst, next, src, nd.lft)
	lft := next - 1
	next = copyLegSubtree(dst, next, src, nd.rgt)
	rgt := next - 1
	dst[next] = nd.copyContent(next)
	dst[next].lft, dst[next].rgt = lft, rgt
	dst[lft].anc = next
	dst[rgt].anc = next
	return next + 1
}

// SlidableRoot returns the root index.
func (t *LeggedTree) SlidableRoot() int { return t.root }

// SlidableNodeCount returns the number of nodes.
func (t *LeggedTree) SlidableNodeCount() int { return len(t.nodes) }

// SlidableHeight returns the height of node n.
func (t *LeggedTree) SlidableHeight(n int) float64 { return t.nodes[n].height }

// SetSlidableHeight sets the height of node n.
func (t *LeggedTree) SetSlidableHeight(n int, h float64) { t.nodes[n].height = h }

// SlidableTaxon returns the tetraploid species at tip n.
func (t *LeggedTree) SlidableTaxon(n int) string { return t.nodes[n].taxon }

// IsExternalSlidable reports whether n is a tip.
func (t *LeggedTree) IsExternalSlidable(n int) bool { return t.nodes[n].isLeaf() }

// SlidableChild returns child j (0 left, 1 right) of n.
func (t *LeggedTree) SlidableChild(n, j int) int { return slidableChild(t, n, j) }

// ReplaceSlidableRoot makes n the root.
func (t *LeggedTree) ReplaceSlidableRoot(n int) {
	t.root = n
	replaceSlidableRoot(t, n)
}

// ReplaceSlidableChildren gives n the children lft and rgt.
func (t *LeggedTree) ReplaceSlidableChildren(n, lft, rgt int) {
	replaceSlidableChildren(t, n, lft, rgt)
}

// RootHeight returns the height of the root.
func (t *LeggedTree) RootHeight() float64 { return t.nodes[t.root].height }

// TipCount returns the number of tetraploid species in the tree.
func (t *LeggedTree) TipCount() int { return (len(t.nodes) + 1) / 2 }

// InternalNodeCount returns the number of internal nodes.
func (t *LeggedTree) InternalNodeCount() int { return (len(t.nodes) - 1) / 2 }

// SpeciesNames returns the tip taxa in arena order.
func (t *LeggedTree) SpeciesNames() []string {
	names := make([]string, 0, t.TipCount())
	for i := range t.nodes {
		if t.nodes[i].isLeaf() {
			names = append(names, t.nodes[i].taxon)
		}
	}
	return names
}

// CollectInternalHeights appends the heights of the internal nodes to dst.
func (t *LeggedTree) CollectInternalHeights(dst []float64) []float64 {
	for i := range t.nodes {
		if !t.nodes[i].isLeaf() {
			dst = append(dst, t.nodes[i].height)
		}
	}
	return dst
}

// ScaleAllHeights multiplies every internal height by scale and returns how
// many heights changed.
func (t *LeggedTree) ScaleAllHeights(scale float64) int {
	count := 0
	for i := range t.nodes {
		if !t.nodes[i].isLeaf() {
			t.nodes[i].height *= scale
			count++
		}
	}
	return count
}

// LeftLeg returns the diploid history node of the left foot.
func (t *LeggedTree) LeftLeg() int { return t.leftLeg }

// RightLeg returns the diploid history node of the right foot.
func (t *LeggedTree) RightLeg() int { return t.rightLeg }

// SetLeftLeg points the left foot at diploid history node n.
func (t *LeggedTree) SetLeftLeg(n int) { t.leftLeg = n }

// SetRightLeg points the right foot at diploid history node n.
func (t *LeggedTree) SetRightLeg(n int) { t.rightLeg = n }

func (t *LeggedTree) leg(l Leg) int {
	if l == LegRight {
		return t.rightLeg
	}
	return t.leftLeg
}

func (t *LeggedTree) setLeg(l Leg, n int) {
	if l == LegRight {
		t.rightLeg = n
	} else {
		t.leftLeg = n
	}
}

// unionOf returns the species-sequence union of every tip for sequence copy
// seq.
func (t *LeggedTree) unionOf(b *SpeciesBindings, seq int) *bitset.BitSet {
	u := newUnion(b.SpSeqCount())
	for i := range t.nodes {
		if t.nodes[i].isLeaf() {
			u.InPlaceUnion(b.TaxonSeqToTipUnion(t.nodes[i].taxon, seq))
		}
	}
	return u
}

// Check returns an error describing the first structural problem.
func (t *LeggedTree) Check() error {
	if err := checkTopology(t, t.root); err != nil {
		return err
	}
	for i := range t.nodes {
		if t.nodes[i].isLeaf() && t.nodes[i].height != 0 {
			return fmt.Errorf("alloppnet: legged tree tip %d has height %g, want 0", i, t.nodes[i].height)
		}
	}
	return nil
}

// AsText returns a multi-line outline of the tree headed by its index tt.
func (t *LeggedTree) AsText(tt int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tetraploid tree %d     height\n", tt)
	sb.WriteString(subtreeText(t, t.root, func(n, indent int) string {
		nd := &t.nodes[n]
		return nodeLabel(nd.taxon, nd.isLeaf(), textNameWidth, indent) + formatHeight(nd.height)
	}))
	return sb.String()
}
