package alloppnet

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Leg says which parental genome a foot of a legged tree carries.
type Leg int

const (
	LegNone Leg = iota
	LegLeft
	LegRight
)

// String returns "left", "right" or "none".
func (l Leg) String() string {
	switch l {
	case LegLeft:
		return "left"
	case LegRight:
		return "right"
	default:
		return "none"
	}
}

// seq is the sequence copy a leg maps to in the MUL-tree.
func (l Leg) seq() int {
	if l == LegRight {
		return 1
	}
	return 0
}

// dipNode is a diploid history node. Feet (hyb-tips) carry the index of the
// legged tree rooted on them and the leg they represent; every other node
// has tettree -1.
type dipNode struct {
	links
	tettree int
	leg     Leg
}

func newDipNode(nn int) dipNode {
	return dipNode{links: newLinks(nn), tettree: -1}
}

func (d *dipNode) copyAs(nn int) dipNode {
	return dipNode{links: d.links.copyContent(nn), tettree: d.tettree, leg: d.leg}
}

func (d *dipNode) isFoot() bool { return d.isLeaf() && d.tettree >= 0 }

// DiploidHistory is the part of the network before hybridization: a binary
// tree whose tips are diploid species and the paired feet of every legged
// tree.
type DiploidHistory struct {
	nodes []dipNode
	root  int
}

func (h *DiploidHistory) size() int { return len(h.nodes) }
func (h *DiploidHistory) at(i int) *links { return &h.nodes[i].links }

type joining struct {
	n      int
	hasDip bool
}

// NewDiploidHistory returns a random history over the diploid taxa and one
// pair of feet per legged tree, and points each tree's legs at its feet.
// With diploidRootIsRoot both subtrees of the root hold a diploid tip.
func NewDiploidHistory(dipTaxa []string, tettrees []*LeggedTree, diploidRootIsRoot bool, rate float64, src rand.Source) (*DiploidHistory, error) {
	return newRandomDiploidHistory(dipTaxa, tettrees, diploidRootIsRoot, rate, newSampler(src))
}

func newRandomDiploidHistory(dipTaxa []string, tettrees []*LeggedTree, diploidRootIsRoot bool, rate float64, s *sampler) (*DiploidHistory, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("alloppnet: diploid history rate must be > 0, got %f", rate)
	}
	if diploidRootIsRoot && len(dipTaxa) < 2 {
		return nil, fmt.Errorf("alloppnet: diploid root rule needs at least 2 diploids, got %d", len(dipTaxa))
	}
	ntips := len(dipTaxa) + 2*len(tettrees)
	if ntips < 2 {
		return nil, fmt.Errorf("alloppnet: diploid history needs at least 2 tips, got %d", ntips)
	}
	h := &DiploidHistory{nodes: make([]dipNode, 2*ntips-1)}
	for i := range h.nodes {
		h.nodes[i] = newDipNode(i)
	}
	tojoin := make([]joining, 0, ntips)
	next := 0
	for _, tx := range dipTaxa {
		h.nodes[next].taxon = tx
		h.nodes[next].height = 0
		tojoin = append(tojoin, joining{next, true})
		next++
	}
	for tt, tree := range tettrees {
		hh := tree.RootHeight() + s.exp(rate)
		for _, leg := range [2]Leg{LegLeft, LegRight} {
			h.nodes[next].tettree = tt
			h.nodes[next].leg = leg
			h.nodes[next].height = hh
			tree.setLeg(leg, next)
			tojoin = append(tojoin, joining{next, false})
			next++
		}
	}
	for range ntips - 1 {
		num := len(tojoin)
		withDips := 0
		for _, jn := range tojoin {
			if jn.hasDip {
				withDips++
			}
		}
		j := s.intn(num)
		// Joining the last two diploid lineages early would leave the
		// root with a tetraploid-only side.
		if diploidRootIsRoot && num > 2 && withDips == 2 {
			for tojoin[j].hasDip {
				j = s.intn(num)
			}
		}
		c0 := tojoin[j]
		tojoin = append(tojoin[:j], tojoin[j+1:]...)
		k := s.intn(num - 1)
		c1 := tojoin[k]
		tojoin = append(tojoin[:k], tojoin[k+1:]...)
		addChildren(h, next, c0.n, c1.n)
		h.nodes[next].height = max(h.nodes[c0.n].height, h.nodes[c1.n].height) + s.exp(float64(num)*rate)
		tojoin = append(tojoin, joining{next, c0.hasDip || c1.hasDip})
		next++
	}
	h.root = next - 1
	return h, nil
}

// Clone returns a deep copy.
func (h *DiploidHistory) Clone() *DiploidHistory {
	c := &DiploidHistory{nodes: make([]dipNode, len(h.nodes)), root: h.root}
	for i := range h.nodes {
		c.nodes[i] = h.nodes[i]
		if h.nodes[i].union != nil {
			c.nodes[i].union = h.nodes[i].union.Clone()
		}
	}
	return c
}

// rebuild replaces the arena with the tree below root in tmp, renumbered in
// postorder. Unreachable nodes in tmp are dropped. Legs of every legged tree
// whose foot moved are updated.
func (h *DiploidHistory) rebuild(tmp []dipNode, root int, tettrees []*LeggedTree) {
	h.nodes = make([]dipNode, 0, len(tmp))
	h.copySubtree(tmp, root, tettrees)
	h.root = len(h.nodes) - 1
	h.nodes[h.root].anc = -1
}

func (h *DiploidHistory) copySubtree(tmp []dipNode, n int, tettrees []*LeggedTree) {
	src := &tmp[n]
	if src.isLeaf() {
		nn := len(h.nodes)
		h.nodes = append(h.nodes, src.copyAs(nn))
		if src.tettree >= 0 {
			tettrees[src.tettree].setLeg(src.leg, nn)
		}
		return
	}
	h.copySubtree(tmp, src.lft, tettrees)
	lft := len(h.nodes) - 1
	h.copySubtree(tmp, src.rgt, tettrees)
	rgt := len(h.nodes) - 1
	nn := len(h.nodes)
	d := src.copyAs(nn)
	d.lft, d.rgt = lft, rgt
	h.nodes = append(h.nodes, d)
	h.nodes[lft].anc = nn
	h.nodes[rgt].anc = nn
}

func copyDipNodes(nodes []dipNode, extra int) []dipNode {
	tmp := make([]dipNode, len(nodes), len(nodes)+extra)
	copy(tmp, nodes)
	return tmp
}

// replaceChild points the child slot of p that holds old at repl.
func replaceChild(tmp []dipNode, p, old, repl int) {
	if tmp[p].lft == old {
		tmp[p].lft = repl
	} else {
		tmp[p].rgt = repl
	}
	tmp[repl].anc = p
}

// removeTip splices out leaf n and its parent and returns the root, which
// changes when the parent was the root.
func removeTip(tmp []dipNode, n, root int) int {
	p := tmp[n].anc
	sib := tmp[p].lft
	if sib == n {
		sib = tmp[p].rgt
	}
	pp := tmp[p].anc
	if pp < 0 {
		tmp[sib].anc = -1
		return sib
	}
	replaceChild(tmp, pp, p, sib)
	return root
}

// RemoveFeet deletes both feet of tettrees[tt] and collapses their parent
// edges, shrinking the history by four nodes.
func (h *DiploidHistory) RemoveFeet(tettrees []*LeggedTree, tt int) error {
	if tt < 0 || tt >= len(tettrees) {
		return fmt.Errorf("%w: tettree %d out of range [0,%d)", ErrInvalidMove, tt, len(tettrees))
	}
	if len(h.nodes) < 5 {
		return fmt.Errorf("%w: history with %d nodes has no feet to remove", ErrInvalidMove, len(h.nodes))
	}
	tmp := copyDipNodes(h.nodes, 0)
	root := removeTip(tmp, tettrees[tt].leftLeg, h.root)
	root = removeTip(tmp, tettrees[tt].rightLeg, root)
	h.rebuild(tmp, root, tettrees)
	return nil
}

// AddTwoTips inserts a new pair of feet for tettrees[tt1] at tipHeight. The
// left foot joins the branch above the left foot of tettrees[tt2] at
// leftHeight, the right foot the branch above its right foot at
// rightHeight.
func (h *DiploidHistory) AddTwoTips(tettrees []*LeggedTree, tt1, tt2 int, leftHeight, rightHeight, tipHeight float64) error {
	for _, tt := range [2]int{tt1, tt2} {
		if tt < 0 || tt >= len(tettrees) {
			return fmt.Errorf("%w: tettree %d out of range [0,%d)", ErrInvalidMove, tt, len(tettrees))
		}
	}
	lleg := tettrees[tt2].leftLeg
	rleg := tettrees[tt2].rightLeg
	if h.nodes[lleg].anc < 0 || h.nodes[rleg].anc < 0 {
		return fmt.Errorf("%w: feet of tettree %d have no ancestor", ErrInvalidMove, tt2)
	}
	oldn := len(h.nodes)
	tmp := copyDipNodes(h.nodes, 4)
	for _, leg := range [2]Leg{LegLeft, LegRight} {
		f := newDipNode(len(tmp))
		f.height = tipHeight
		f.tettree = tt1
		f.leg = leg
		tmp = append(tmp, f)
	}
	for i, e := range [2]struct {
		foot   int
		height float64
	}{{lleg, leftHeight}, {rleg, rightHeight}} {
		nn := oldn + 2 + i
		d := newDipNode(nn)
		d.height = e.height
		tmp = append(tmp, d)
		replaceChild(tmp, tmp[e.foot].anc, e.foot, nn)
		tmp[nn].lft = oldn + i
		tmp[nn].rgt = e.foot
		tmp[oldn+i].anc = nn
		tmp[e.foot].anc = nn
	}
	h.rebuild(tmp, h.root, tettrees)
	return nil
}

// SlidableRoot returns the root index.
func (h *DiploidHistory) SlidableRoot() int { return h.root }

// SlidableNodeCount returns the number of nodes, feet included.
func (h *DiploidHistory) SlidableNodeCount() int { return len(h.nodes) }

// SlidableHeight returns the height of node n.
func (h *DiploidHistory) SlidableHeight(n int) float64 { return h.nodes[n].height }

// SetSlidableHeight sets the height of node n. Feet must be moved in pairs.
func (h *DiploidHistory) SetSlidableHeight(n int, x float64) { h.nodes[n].height = x }

// SlidableTaxon returns the taxon of tip n.
func (h *DiploidHistory) SlidableTaxon(n int) string { return h.nodes[n].taxon }

// IsExternalSlidable reports whether n is a tip.
func (h *DiploidHistory) IsExternalSlidable(n int) bool { return h.nodes[n].isLeaf() }

// SlidableChild returns child j (0 left, 1 right) of n.
func (h *DiploidHistory) SlidableChild(n, j int) int { return slidableChild(h, n, j) }

// ReplaceSlidableRoot makes n the root.
func (h *DiploidHistory) ReplaceSlidableRoot(n int) {
	h.root = n
	replaceSlidableRoot(h, n)
}

// ReplaceSlidableChildren gives n the children lft and rgt.
func (h *DiploidHistory) ReplaceSlidableChildren(n, lft, rgt int) {
	replaceSlidableChildren(h, n, lft, rgt)
}

// RootHeight returns the height of the root.
func (h *DiploidHistory) RootHeight() float64 { return h.nodes[h.root].height }

// InternalNodeCount returns the number of internal nodes.
func (h *DiploidHistory) InternalNodeCount() int { return (len(h.nodes) - 1) / 2 }

// DiploidTipCount returns the number of tips that are diploid species.
func (h *DiploidHistory) DiploidTipCount() int {
	n := 0
	for i := range h.nodes {
		if h.nodes[i].isLeaf() && h.nodes[i].tettree < 0 {
			n++
		}
	}
	return n
}

// CollectFeet returns the indices of every foot.
func (h *DiploidHistory) CollectFeet() []int {
	var feet []int
	for i := range h.nodes {
		if h.nodes[i].tettree >= 0 {
			feet = append(feet, i)
		}
	}
	return feet
}

// TipIsDiploid reports whether tip n is a diploid species rather than a foot.
func (h *DiploidHistory) TipIsDiploid(n int) bool { return h.nodes[n].tettree < 0 }

// NodeTettree returns the legged tree that foot n belongs to, or -1.
func (h *DiploidHistory) NodeTettree(n int) int { return h.nodes[n].tettree }

// SetNodeTettree tags node n as a foot of legged tree tt.
func (h *DiploidHistory) SetNodeTettree(n, tt int) { h.nodes[n].tettree = tt }

// NodeLeg returns which leg foot n is.
func (h *DiploidHistory) NodeLeg(n int) Leg { return h.nodes[n].leg }

// SetNodeLeg tags node n as the given leg.
func (h *DiploidHistory) SetNodeLeg(n int, leg Leg) { h.nodes[n].leg = leg }

// TettreesShareLegs reports whether the left feet of t1 and t2 hang from the
// same node, and likewise the right feet. Only such trees can merge.
func (h *DiploidHistory) TettreesShareLegs(t1, t2 *LeggedTree) bool {
	return h.nodes[t1.leftLeg].anc == h.nodes[t2.leftLeg].anc &&
		h.nodes[t1.rightLeg].anc == h.nodes[t2.rightLeg].anc
}

// FootAncestorHeights returns the heights of the parent and grandparent of
// the given foot of tt. The grandparent height is +Inf when the parent is
// the root.
func (h *DiploidHistory) FootAncestorHeights(tt *LeggedTree, leg Leg) (anc, ancAnc float64) {
	foot := tt.leg(leg)
	p := h.nodes[foot].anc
	pp := h.nodes[p].anc
	if pp < 0 {
		return h.nodes[p].height, math.Inf(1)
	}
	return h.nodes[p].height, h.nodes[pp].height
}

// AncestorHeight returns the height of n's parent.
func (h *DiploidHistory) AncestorHeight(n int) float64 {
	return h.nodes[h.nodes[n].anc].height
}

// HybHeight returns the hybridization time of tt, the height of its feet.
func (h *DiploidHistory) HybHeight(tt *LeggedTree) float64 {
	return h.nodes[tt.leftLeg].height
}

// SetHybridHeight moves both feet of tt to height x.
func (h *DiploidHistory) SetHybridHeight(tt *LeggedTree, x float64) {
	h.nodes[tt.leftLeg].height = x
	h.nodes[tt.rightLeg].height = x
}

// MoveHybridHeight moves a pair of feet to a new height drawn by u from a
// window around the current one, bounded below by minh and above by the
// lower of the two feet's parents.
func (h *DiploidHistory) MoveHybridHeight(foot1, foot2 int, minh, u float64) {
	maxh := min(h.AncestorHeight(foot1), h.AncestorHeight(foot2))
	x := uniformInRange(h.nodes[foot1].height, minh, maxh, 0.3, u)
	h.nodes[foot1].height = x
	h.nodes[foot2].height = x
}

// ScaleAllHeights multiplies the height of every internal node and foot by
// scale and returns how many heights changed.
func (h *DiploidHistory) ScaleAllHeights(scale float64) int {
	count := 0
	for i := range h.nodes {
		if !h.nodes[i].isLeaf() || h.nodes[i].tettree >= 0 {
			h.nodes[i].height *= scale
			count++
		}
	}
	return count
}

// CollectInternalAndHybHeights appends every internal height and one
// hybridization height per legged tree to dst.
func (h *DiploidHistory) CollectInternalAndHybHeights(dst []float64) []float64 {
	for i := range h.nodes {
		nd := &h.nodes[i]
		if !nd.isLeaf() || (nd.tettree >= 0 && nd.leg == LegLeft) {
			dst = append(dst, nd.height)
		}
	}
	return dst
}

// fillTipUnions sets the union of every tip: a diploid's own bit, or the
// bits of the legged tree's tips for the foot's sequence copy. Internal
// unions follow from the tips.
func (h *DiploidHistory) fillTipUnions(b *SpeciesBindings, tettrees []*LeggedTree) {
	for i := range h.nodes {
		nd := &h.nodes[i]
		switch {
		case nd.isFoot():
			nd.union = tettrees[nd.tettree].unionOf(b, nd.leg.seq())
		case nd.isLeaf():
			nd.union = b.TaxonSeqToTipUnion(nd.taxon, 0)
		}
	}
	fillUnions(h, h.root, b.SpSeqCount())
}

// Check returns an error describing the first way h fails to be a legal
// diploid history.
func (h *DiploidHistory) Check(diploidRootIsRoot bool) error {
	if err := checkTopology(h, h.root); err != nil {
		return err
	}
	footHeight := map[int]float64{}
	for i := range h.nodes {
		nd := &h.nodes[i]
		switch {
		case !nd.isLeaf():
			if nd.tettree >= 0 {
				return fmt.Errorf("alloppnet: internal node %d tagged with tettree %d", i, nd.tettree)
			}
		case nd.tettree >= 0:
			if nd.height <= 0 {
				return fmt.Errorf("alloppnet: foot %d has height %g, want > 0", i, nd.height)
			}
			if nd.leg != LegLeft && nd.leg != LegRight {
				return fmt.Errorf("alloppnet: foot %d has leg %v", i, nd.leg)
			}
			if fh, ok := footHeight[nd.tettree]; ok && fh != nd.height {
				return fmt.Errorf("alloppnet: feet of tettree %d at heights %g and %g", nd.tettree, fh, nd.height)
			}
			footHeight[nd.tettree] = nd.height
		default:
			if nd.height != 0 {
				return fmt.Errorf("alloppnet: diploid tip %d has height %g, want 0", i, nd.height)
			}
		}
	}
	if diploidRootIsRoot {
		r := &h.nodes[h.root]
		if r.isLeaf() || !h.hasDiploidTip(r.lft) || !h.hasDiploidTip(r.rgt) {
			return fmt.Errorf("alloppnet: root of diploid history lacks a diploid tip on both sides")
		}
	}
	return nil
}

// OK reports whether Check passes.
func (h *DiploidHistory) OK(diploidRootIsRoot bool) bool {
	return h.Check(diploidRootIsRoot) == nil
}

func (h *DiploidHistory) hasDiploidTip(n int) bool {
	nd := &h.nodes[n]
	if nd.isLeaf() {
		return nd.tettree < 0
	}
	return h.hasDiploidTip(nd.lft) || h.hasDiploidTip(nd.rgt)
}

func (h *DiploidHistory) tipName(n int) string {
	nd := &h.nodes[n]
	if nd.tettree >= 0 {
		return fmt.Sprintf("tt%dleg%d", nd.tettree, nd.leg.seq())
	}
	return nd.taxon
}

// Newick returns the topology with children in canonical order. Feet are
// named tt<k>leg<0|1>.
func (h *DiploidHistory) Newick() string {
	return uniqueNewick(h, h.root, h.tipName)
}

// AsText returns a multi-line outline of the history.
func (h *DiploidHistory) AsText() string {
	var sb strings.Builder
	sb.WriteString("Diploid history            height\n")
	sb.WriteString(subtreeText(h, h.root, func(n, indent int) string {
		nd := &h.nodes[n]
		s := nodeLabel(h.tipName(n), nd.isLeaf(), textNameWidth, indent) + formatHeight(nd.height)
		if nd.isFoot() {
			s += fmt.Sprintf("  tettree %d %v", nd.tettree, nd.leg)
		}
		return s
	}))
	return sb.String()
}
