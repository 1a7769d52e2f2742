package alloppnet

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Network is an allopolyploid species network: a diploid history, one
// legged tree per hybridization, and the population sizes of every
// branch. Structural changes happen inside BeginEdit/EndEdit; EndEdit
// rebuilds the MUL-tree that gene trees are scored against.
type Network struct {
	cfg      Config
	bindings *SpeciesBindings
	dh       *DiploidHistory
	tettrees []*LeggedTree
	pops     populations
	mul      *MulLabTree

	editing   bool
	stored    *NetworkSnapshot
	listeners []func()
	log       *slog.Logger
	rnd       *sampler
}

// NewNetwork returns a random initial network over the species in b. The
// network needs at least two diploid and one tetraploid species. Its
// heights are scaled so the oldest node sits just below the lowest gene
// tree node.
func NewNetwork(b *SpeciesBindings, cfg Config) (*Network, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	for s := range b.SpeciesCount() {
		if p := b.species[s].Ploidy; p != 2 && p != 4 {
			return nil, fmt.Errorf("%w: species %q has ploidy %d, network needs 2 or 4", ErrPloidy, b.SpeciesName(s), p)
		}
	}
	dips := b.SpeciesWithPloidy(2)
	tets := b.SpeciesWithPloidy(4)
	if len(dips) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 diploid species, got %d", ErrInvalidConfig, len(dips))
	}
	if len(tets) < 1 {
		return nil, fmt.Errorf("%w: need at least 1 tetraploid species", ErrInvalidConfig)
	}

	n := &Network{
		cfg:      cfg,
		bindings: b,
		log:      cfg.Logger,
		rnd:      newSampler(cfg.Source),
	}
	for _, group := range n.groupTetraploids(tets) {
		tt, err := newRandomLeggedTree(group, 1, n.rnd)
		if err != nil {
			return nil, err
		}
		n.tettrees = append(n.tettrees, tt)
	}
	dh, err := newRandomDiploidHistory(dips, n.tettrees, cfg.DiploidRootIsRoot, 1, n.rnd)
	if err != nil {
		return nil, err
	}
	n.dh = dh

	if minh := b.InitialMinGeneNodeHeight(); minh > 0 {
		maxh := dh.RootHeight()
		for _, tt := range n.tettrees {
			maxh = max(maxh, tt.RootHeight())
		}
		n.scaleHeights(0.99 * minh / maxh)
	}

	nsp := len(dips) + len(tets)
	n.pops = populations{
		tip:  filled(nsp, cfg.InitialTipPop),
		root: filled(2*(nsp-1), cfg.InitialRootPop),
		hyb:  filled(len(tets), cfg.InitialHybPop),
	}
	if err := n.refresh(); err != nil {
		return nil, err
	}
	if cfg.Debug {
		if err := n.Check(); err != nil {
			return nil, err
		}
	}
	n.log.Debug("initial network built",
		"diploids", len(dips), "tetraploids", len(tets), "tettrees", len(n.tettrees))
	return n, nil
}

func filled(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// groupTetraploids partitions the tetraploid species into the groups that
// share a hybridization.
func (n *Network) groupTetraploids(tets []string) [][]string {
	if n.cfg.OneHybridization {
		return [][]string{tets}
	}
	groups := [][]string{{tets[0]}}
	for _, tx := range tets[1:] {
		weights := make([]float64, len(groups)+1)
		for g := range groups {
			weights[g] = float64(len(groups[g]))
		}
		weights[len(groups)] = 1
		g := n.rnd.choose(weights)
		if g == len(groups) {
			groups = append(groups, []string{tx})
		} else {
			groups[g] = append(groups[g], tx)
		}
	}
	return groups
}

// refresh fills the diploid history unions and rebuilds the MUL-tree. Every
// active hybrid population must be positive.
func (n *Network) refresh() error {
	n.pops.activeHyb = len(n.tettrees)
	for i := range n.pops.activeHyb {
		if n.pops.hyb[i] <= 0 {
			return fmt.Errorf("%w: hybrid population %d is %g", ErrPopulationCount, i, n.pops.hyb[i])
		}
	}
	n.dh.fillTipUnions(n.bindings, n.tettrees)
	mul, err := newMulLabTree(n.dh, n.tettrees, n.bindings, &n.pops)
	if err != nil {
		return err
	}
	n.mul = mul
	return nil
}

func (n *Network) notify() {
	for _, fn := range n.listeners {
		fn()
	}
}

// OnChange registers fn to run after every committed edit and restore.
func (n *Network) OnChange(fn func()) {
	n.listeners = append(n.listeners, fn)
}

// BeginEdit opens an edit. Edits do not nest.
func (n *Network) BeginEdit() error {
	if n.editing {
		return ErrEditInProgress
	}
	if n.cfg.Debug {
		if err := n.Check(); err != nil {
			return err
		}
	}
	n.editing = true
	return nil
}

// EndEdit closes the edit and rebuilds the MUL-tree. On error the network
// is unusable until RestoreState.
func (n *Network) EndEdit() error {
	if !n.editing {
		return ErrNotEditing
	}
	n.editing = false
	if err := n.refresh(); err != nil {
		return err
	}
	if n.cfg.Debug {
		if err := n.Check(); err != nil {
			return err
		}
	}
	n.log.Debug("network edit committed", "tettrees", len(n.tettrees), "newick", n.mul.Newick())
	n.notify()
	return nil
}

func (n *Network) requireEditing() error {
	if !n.editing {
		return ErrNotEditing
	}
	return nil
}

// Check returns an error describing the first broken invariant of the
// network: a bad legged tree, a foot whose tags disagree with the legged
// tree pointing at it, a bad diploid history or a bad MUL-tree.
func (n *Network) Check() error {
	for k, tt := range n.tettrees {
		if err := tt.Check(); err != nil {
			return fmt.Errorf("tettree %d: %w", k, err)
		}
		for _, leg := range [2]Leg{LegLeft, LegRight} {
			f := tt.leg(leg)
			if f < 0 || f >= len(n.dh.nodes) {
				return fmt.Errorf("alloppnet: tettree %d %v leg %d out of range", k, leg, f)
			}
			if nd := &n.dh.nodes[f]; nd.tettree != k || nd.leg != leg {
				return fmt.Errorf("alloppnet: tettree %d %v leg points at node tagged tettree %d %v", k, leg, nd.tettree, nd.leg)
			}
		}
		if h := n.dh.HybHeight(tt); h <= tt.RootHeight() {
			return fmt.Errorf("alloppnet: tettree %d hybridizes at %g, below its root at %g", k, h, tt.RootHeight())
		}
	}
	if err := n.dh.Check(n.cfg.DiploidRootIsRoot); err != nil {
		return err
	}
	if len(n.dh.CollectFeet()) != 2*len(n.tettrees) {
		return fmt.Errorf("alloppnet: %d feet for %d tettrees", len(n.dh.CollectFeet()), len(n.tettrees))
	}
	if n.mul != nil {
		if err := n.mul.Check(); err != nil {
			return err
		}
	}
	return nil
}

// NetworkSnapshot is a deep copy of a network's state, as taken by
// StoreState.
type NetworkSnapshot struct {
	dh       *DiploidHistory
	tettrees []*LeggedTree
	pops     populations
}

// Snapshot returns a deep copy of the current diploid history, legged
// trees and population vectors.
func (n *Network) Snapshot() *NetworkSnapshot {
	s := &NetworkSnapshot{dh: n.dh.Clone(), pops: n.pops.clone()}
	for _, tt := range n.tettrees {
		s.tettrees = append(s.tettrees, tt.Clone())
	}
	return s
}

// RestoreSnapshot replaces the network state with a copy of s and
// rebuilds the MUL-tree. An open edit is abandoned.
func (n *Network) RestoreSnapshot(s *NetworkSnapshot) error {
	n.editing = false
	n.dh = s.dh.Clone()
	n.tettrees = make([]*LeggedTree, 0, len(s.tettrees))
	for _, tt := range s.tettrees {
		n.tettrees = append(n.tettrees, tt.Clone())
	}
	n.pops = s.pops.clone()
	if err := n.refresh(); err != nil {
		return err
	}
	n.notify()
	return nil
}

// StoreState saves the network and the bindings' sequence assignments for
// a later RestoreState.
func (n *Network) StoreState() {
	n.stored = n.Snapshot()
	n.bindings.StoreSequenceAssignments()
	n.log.Debug("network state stored")
}

// RestoreState rolls back to the last StoreState.
func (n *Network) RestoreState() error {
	if n.stored == nil {
		return fmt.Errorf("alloppnet: RestoreState without StoreState")
	}
	n.bindings.RestoreSequenceAssignments()
	if err := n.RestoreSnapshot(n.stored); err != nil {
		return err
	}
	n.log.Debug("network state restored")
	return nil
}

// AcceptState drops the stored state.
func (n *Network) AcceptState() {
	n.stored = nil
}

// NetAndGeneTreesCompatible reports whether every gene tree fits in the
// network.
func (n *Network) NetAndGeneTreesCompatible() bool {
	for g := range n.bindings.GeneTreeCount() {
		if !n.bindings.FitsInNetwork(g, n) {
			return false
		}
	}
	return true
}

// TipUnion returns the union of diploid history tip node: its own bit for a
// diploid, or the whole legged tree's bits for the foot's sequence copy.
func (n *Network) TipUnion(node int) *bitset.BitSet {
	nd := &n.dh.nodes[node]
	if nd.tettree < 0 {
		return n.bindings.TaxonSeqToTipUnion(nd.taxon, 0)
	}
	return n.UnionOfTetTree(nd.tettree, nd.leg.seq())
}

// UnionOfTetTree returns the union of every tip of legged tree tt for
// sequence copy seq.
func (n *Network) UnionOfTetTree(tt, seq int) *bitset.BitSet {
	return n.tettrees[tt].unionOf(n.bindings, seq)
}

// Bindings returns the species bindings the network was built for.
func (n *Network) Bindings() *SpeciesBindings { return n.bindings }

// DiploidHistory returns the diploid history. Change it only inside an edit.
func (n *Network) DiploidHistory() *DiploidHistory { return n.dh }

// MulTree returns the MUL-tree built at the last commit.
func (n *Network) MulTree() *MulLabTree { return n.mul }

// TettreeCount returns the number of legged trees, one per hybridization.
func (n *Network) TettreeCount() int { return len(n.tettrees) }

// Tettree returns legged tree tt.
func (n *Network) Tettree(tt int) *LeggedTree { return n.tettrees[tt] }

// DiploidRootIsRoot reports whether diploids must sit on both sides of the root.
func (n *Network) DiploidRootIsRoot() bool { return n.cfg.DiploidRootIsRoot }

// OneHybridization reports whether all tetraploids share one hybridization.
func (n *Network) OneHybridization() bool { return n.cfg.OneHybridization }

// DiploidCount returns the number of diploid species.
func (n *Network) DiploidCount() int { return n.dh.DiploidTipCount() }

// TipPops, RootPops and HybPops return the population vectors. HybPops
// returns only the active slots. Callers must not modify them.
func (n *Network) TipPops() []float64 { return n.pops.tip }
func (n *Network) RootPops() []float64 { return n.pops.root }
func (n *Network) HybPops() []float64 { return n.pops.hyb[:n.pops.activeHyb] }

// HybPopCapacity is the number of hybrid population slots, one per
// tetraploid species.
func (n *Network) HybPopCapacity() int { return len(n.pops.hyb) }

// SetTipPop, SetRootPop and SetHybPop change one population size. They
// take effect on the next likelihood evaluation without an edit.
func (n *Network) SetTipPop(i int, v float64) { n.pops.tip[i] = v }
func (n *Network) SetRootPop(i int, v float64) { n.pops.root[i] = v }
func (n *Network) SetHybPop(i int, v float64) { n.pops.hyb[i] = v }

// Newick returns the MUL-tree topology.
func (n *Network) Newick() string { return n.mul.Newick() }

// AsText dumps the diploid history, every legged tree, the MUL-tree and
// each gene tree with its sequence assignments.
func (n *Network) AsText() string {
	var sb strings.Builder
	sb.WriteString(n.dh.AsText())
	fmt.Fprintf(&sb, "noftettrees %d\n", len(n.tettrees))
	for k, tt := range n.tettrees {
		sb.WriteString(tt.AsText(k))
	}
	sb.WriteString(n.mul.AsText())
	for g := range n.bindings.GeneTreeCount() {
		sb.WriteString(n.bindings.GeneTreeAsText(g))
		sb.WriteString(n.bindings.SeqAssignsAsText(g))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// scaleHeights multiplies every internal and hybridization height and
// returns how many changed.
func (n *Network) scaleHeights(f float64) int {
	count := n.dh.ScaleAllHeights(f)
	for _, tt := range n.tettrees {
		count += tt.ScaleAllHeights(f)
	}
	return count
}
