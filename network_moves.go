package alloppnet

import (
	"fmt"
	"math"
)

// PopulationPrior is the prior on one population size. The distuv
// distributions (Gamma, LogNormal, Exponential, Uniform) satisfy it.
type PopulationPrior interface {
	LogProb(x float64) float64
	Quantile(p float64) float64
}

// minHybPop is the smallest hybrid population AddHybPopParam draws. Far
// tail quantiles of a Gamma prior round to denormals.
const minHybPop = 1e-10

func (n *Network) checkTettree(tt int) error {
	if tt < 0 || tt >= len(n.tettrees) {
		return fmt.Errorf("%w: tettree %d out of range [0,%d)", ErrInvalidMove, tt, len(n.tettrees))
	}
	return nil
}

// retagFeet points the feet of every legged tree back at its index after
// the tree list changed.
func (n *Network) retagFeet() {
	for k, tt := range n.tettrees {
		n.dh.nodes[tt.leftLeg].tettree = k
		n.dh.nodes[tt.leftLeg].leg = LegLeft
		n.dh.nodes[tt.rightLeg].tettree = k
		n.dh.nodes[tt.rightLeg].leg = LegRight
	}
}

// MergeTettrees joins legged trees tt1 and tt2 into one. Their feet must
// hang from the same pair of diploid history branches. The tree with the
// younger hybridization loses its feet, and its hybridization time becomes
// the height of the merged root. The merged tree takes the index of the
// older one; later indices shift down by one.
func (n *Network) MergeTettrees(tt1, tt2 int) error {
	if err := n.requireEditing(); err != nil {
		return err
	}
	for _, tt := range [2]int{tt1, tt2} {
		if err := n.checkTettree(tt); err != nil {
			return err
		}
	}
	if tt1 == tt2 {
		return fmt.Errorf("%w: cannot merge tettree %d with itself", ErrInvalidMove, tt1)
	}
	if !n.dh.TettreesShareLegs(n.tettrees[tt1], n.tettrees[tt2]) {
		return fmt.Errorf("%w: tettrees %d and %d do not share legs", ErrInvalidMove, tt1, tt2)
	}
	young, old := tt1, tt2
	if n.dh.HybHeight(n.tettrees[young]) > n.dh.HybHeight(n.tettrees[old]) {
		young, old = old, young
	}
	join := n.dh.HybHeight(n.tettrees[young])
	if join == n.dh.HybHeight(n.tettrees[old]) {
		return fmt.Errorf("%w: tettrees %d and %d hybridize at the same time", ErrInvalidMove, tt1, tt2)
	}
	if join <= n.tettrees[old].RootHeight() {
		return fmt.Errorf("%w: merged root at %g not above tettree %d root %g", ErrInvalidMove, join, old, n.tettrees[old].RootHeight())
	}
	if err := n.dh.RemoveFeet(n.tettrees, young); err != nil {
		return err
	}
	merged := MergeLeggedTrees(n.tettrees[young], n.tettrees[old], join)
	kept := make([]*LeggedTree, 0, len(n.tettrees)-1)
	for k, tt := range n.tettrees {
		switch k {
		case young:
		case old:
			kept = append(kept, merged)
		default:
			kept = append(kept, tt)
		}
	}
	n.tettrees = kept
	n.retagFeet()
	n.log.Debug("tettrees merged", "young", young, "old", old, "height", join)
	return nil
}

// SplitTettree detaches child rootChild (0 or 1) of the root of legged
// tree tt as a new legged tree, appended to the list. Its feet hybridize at
// tipHeight and join the branches above tt's left and right feet at
// leftHeight and rightHeight.
func (n *Network) SplitTettree(tt, rootChild int, leftHeight, rightHeight, tipHeight float64) error {
	if err := n.requireEditing(); err != nil {
		return err
	}
	if err := n.checkTettree(tt); err != nil {
		return err
	}
	if rootChild != 0 && rootChild != 1 {
		return fmt.Errorf("%w: root child %d, want 0 or 1", ErrInvalidMove, rootChild)
	}
	tree := n.tettrees[tt]
	if tree.TipCount() < 2 {
		return fmt.Errorf("%w: tettree %d has one tip", ErrInvalidMove, tt)
	}
	sub := tree.SlidableChild(tree.root, rootChild)
	rest := tree.SlidableChild(tree.root, 1-rootChild)
	split := ExtractSubtree(tree, sub)
	remain := ExtractSubtree(tree, rest)
	remain.leftLeg, remain.rightLeg = tree.leftLeg, tree.rightLeg

	footh := n.dh.HybHeight(tree)
	lanc, _ := n.dh.FootAncestorHeights(tree, LegLeft)
	ranc, _ := n.dh.FootAncestorHeights(tree, LegRight)
	switch {
	case tipHeight <= split.RootHeight():
		return fmt.Errorf("%w: hybridization at %g not above split root %g", ErrInvalidMove, tipHeight, split.RootHeight())
	case leftHeight <= max(footh, tipHeight) || leftHeight >= lanc:
		return fmt.Errorf("%w: left join %g outside (%g, %g)", ErrInvalidMove, leftHeight, max(footh, tipHeight), lanc)
	case rightHeight <= max(footh, tipHeight) || rightHeight >= ranc:
		return fmt.Errorf("%w: right join %g outside (%g, %g)", ErrInvalidMove, rightHeight, max(footh, tipHeight), ranc)
	}

	n.tettrees[tt] = remain
	n.tettrees = append(n.tettrees, split)
	if err := n.dh.AddTwoTips(n.tettrees, len(n.tettrees)-1, tt, leftHeight, rightHeight, tipHeight); err != nil {
		return err
	}
	n.retagFeet()
	n.log.Debug("tettree split", "tettree", tt, "new", len(n.tettrees)-1, "height", tipHeight)
	return nil
}

// FlipLegs swaps which foot of legged tree tt is left and which is right,
// and flips the sequence assignments of its species in every gene tree so
// the gene trees still fit.
func (n *Network) FlipLegs(tt int) error {
	if err := n.requireEditing(); err != nil {
		return err
	}
	if err := n.checkTettree(tt); err != nil {
		return err
	}
	tree := n.tettrees[tt]
	l, r := tree.leftLeg, tree.rightLeg
	n.dh.nodes[l].leg = LegRight
	n.dh.nodes[r].leg = LegLeft
	tree.leftLeg, tree.rightLeg = r, l
	for _, name := range tree.SpeciesNames() {
		n.bindings.FlipAssignmentsForAllGenesOneSpecies(n.bindings.speciesIndex[name])
	}
	return nil
}

// MoveHybridHeight moves both feet of legged tree tt to a height drawn by u
// in [0,1) from a window around the current one. The new height stays
// above the tree's root and below both feet's parents.
func (n *Network) MoveHybridHeight(tt int, u float64) error {
	if err := n.requireEditing(); err != nil {
		return err
	}
	if err := n.checkTettree(tt); err != nil {
		return err
	}
	tree := n.tettrees[tt]
	n.dh.MoveHybridHeight(tree.leftLeg, tree.rightLeg, tree.RootHeight(), u)
	return nil
}

// SetHybridHeight moves both feet of legged tree tt to h, which must lie
// above the tree's root and below both feet's parents.
func (n *Network) SetHybridHeight(tt int, h float64) error {
	if err := n.requireEditing(); err != nil {
		return err
	}
	if err := n.checkTettree(tt); err != nil {
		return err
	}
	tree := n.tettrees[tt]
	lo := tree.RootHeight()
	hi := min(n.dh.AncestorHeight(tree.leftLeg), n.dh.AncestorHeight(tree.rightLeg))
	if h <= lo || h >= hi {
		return fmt.Errorf("%w: hybridization height %g outside (%g, %g)", ErrInvalidMove, h, lo, hi)
	}
	n.dh.SetHybridHeight(tree, h)
	return nil
}

// Scale multiplies every node height and every population size by f in
// its own edit, and returns how many values changed.
func (n *Network) Scale(f float64) (int, error) {
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: scale factor %g", ErrInvalidMove, f)
	}
	if err := n.BeginEdit(); err != nil {
		return 0, err
	}
	count := n.scaleHeights(f)
	for i := range n.pops.tip {
		n.pops.tip[i] *= f
	}
	for i := range n.pops.root {
		n.pops.root[i] *= f
	}
	for i := range len(n.tettrees) {
		n.pops.hyb[i] *= f
	}
	count += len(n.pops.tip) + len(n.pops.root) + len(n.tettrees)
	if err := n.EndEdit(); err != nil {
		return count, err
	}
	return count, nil
}

// AddHybPopParam fills the hybrid population slot of the newest legged
// tree, after a split, with prior.Quantile(u) floored at 1e-10, and
// returns the prior log density of the value.
func (n *Network) AddHybPopParam(prior PopulationPrior, u float64) (float64, error) {
	if err := n.requireEditing(); err != nil {
		return 0, err
	}
	i := len(n.tettrees) - 1
	if i < 0 || i >= len(n.pops.hyb) {
		return 0, fmt.Errorf("%w: no hybrid population slot %d", ErrPopulationCount, i)
	}
	v := max(prior.Quantile(u), minHybPop)
	n.pops.hyb[i] = v
	return prior.LogProb(v), nil
}

// RemoveHybPopParam clears the hybrid population slot freed by a merge
// and returns the prior log density of the value it held.
func (n *Network) RemoveHybPopParam(prior PopulationPrior) (float64, error) {
	if err := n.requireEditing(); err != nil {
		return 0, err
	}
	i := len(n.tettrees)
	if i >= len(n.pops.hyb) {
		return 0, fmt.Errorf("%w: no hybrid population slot %d", ErrPopulationCount, i)
	}
	old := n.pops.hyb[i]
	n.pops.hyb[i] = 0
	return prior.LogProb(old), nil
}
