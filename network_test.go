package alloppnet

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/stat/distuv"
)

// abceSpecies has diploids a and e and tetraploids b and c, one individual
// each.
func abceSpecies() []Species {
	return []Species{oneIndividual("a", 2), oneIndividual("b", 4), oneIndividual("c", 4), oneIndividual("e", 2)}
}

// caterpillarGene joins taxa left to right starting at height base, one
// unit apart.
func caterpillarGene(t *testing.T, base float64, taxa ...string) GeneTree {
	t.Helper()
	g := tip(taxa[0])
	for i, tx := range taxa[1:] {
		g = join(base+float64(i), g, tip(tx))
	}
	return geneTree(t, g)
}

// newTestNetwork wraps a hand-built history in a Network with tip
// populations .003 and every other population .001.
func newTestNetwork(t *testing.T, b *SpeciesBindings, dh *DiploidHistory, tettrees []*LeggedTree) *Network {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Debug = true
	cfg.Source = testSource(1)
	applyDefaults(&cfg)
	nsp := b.SpeciesCount()
	n := &Network{
		cfg:      cfg,
		bindings: b,
		dh:       dh,
		tettrees: tettrees,
		pops:     testPops(nsp, len(b.SpeciesWithPloidy(4)), len(tettrees)),
		log:      cfg.Logger,
		rnd:      newSampler(cfg.Source),
	}
	if err := n.refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := n.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	return n
}

// mergeableNetwork has tettrees {b} hybridizing at 1 and {c} at .5, with
// feet on shared legs: ((a,(tt0L,tt1L)),(e,(tt0R,tt1R))). Gene trees, if
// any, coalesce entirely above the root at 4.
func mergeableNetwork(t *testing.T, ngenes int) *Network {
	t.Helper()
	var genes []GeneTree
	for range ngenes {
		genes = append(genes, caterpillarGene(t, 10, "a_A", "b_A", "c_A", "e_A", "b_B", "c_B"))
	}
	b := mustBindings(t, abceSpecies(), genes, BindingsOptions{MinHeight: 0.001, KeepAssignments: true, Source: testSource(2)})
	tettrees := []*LeggedTree{fixedLeggedTree("b"), fixedLeggedTree("c")}
	dh := buildHistory(t,
		[]dipLeaf{dip("a"), foot(0, LegLeft), foot(0, LegRight), foot(1, LegLeft), foot(1, LegRight), dip("e")},
		[][2]int{{1, 3}, {2, 4}, {0, 6}, {5, 7}, {8, 9}}, tettrees)
	dh.SetHybridHeight(tettrees[1], 0.5)
	return newTestNetwork(t, b, dh, tettrees)
}

func mustEdit(t *testing.T, n *Network, edit func() error) {
	t.Helper()
	if err := n.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if err := edit(); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := n.EndEdit(); err != nil {
		t.Fatalf("EndEdit: %v", err)
	}
}

func TestNewNetwork(t *testing.T) {
	species := []Species{
		oneIndividual("a", 2), oneIndividual("b", 4), oneIndividual("c", 4),
		oneIndividual("d", 4), oneIndividual("e", 2), oneIndividual("f", 2),
	}
	for seed := uint64(1); seed <= 25; seed++ {
		b := mustBindings(t, species, nil, BindingsOptions{})
		cfg := DefaultConfig()
		cfg.Seed = seed
		cfg.Debug = true
		cfg.DiploidRootIsRoot = seed%2 == 0
		net, err := NewNetwork(b, cfg)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if err := net.Check(); err != nil {
			t.Fatalf("seed %d: Check: %v", seed, err)
		}
		ntips := 0
		for tt := range net.TettreeCount() {
			ntips += net.Tettree(tt).TipCount()
		}
		if ntips != 3 {
			t.Errorf("seed %d: legged trees hold %d species, want 3", seed, ntips)
		}
		if net.DiploidCount() != 3 {
			t.Errorf("seed %d: DiploidCount = %d, want 3", seed, net.DiploidCount())
		}
		if len(net.TipPops()) != 6 || len(net.RootPops()) != 10 || len(net.HybPops()) != net.TettreeCount() || net.HybPopCapacity() != 3 {
			t.Errorf("seed %d: population vectors %d/%d/%d of %d", seed,
				len(net.TipPops()), len(net.RootPops()), len(net.HybPops()), net.HybPopCapacity())
		}
		if got := len(net.Tree().Tips()); got != 9 {
			t.Errorf("seed %d: MUL-tree has %d tips, want 9", seed, got)
		}
	}
}

func TestNewNetwork_SameSeedSameNetwork(t *testing.T) {
	build := func() string {
		b := mustBindings(t, abceSpecies(), nil, BindingsOptions{})
		cfg := DefaultConfig()
		cfg.Seed = 99
		net, err := NewNetwork(b, cfg)
		if err != nil {
			t.Fatal(err)
		}
		return net.AsText()
	}
	if diff := cmp.Diff(build(), build()); diff != "" {
		t.Errorf("same seed gave different networks (-first +second):\n%s", diff)
	}
}

func TestNewNetwork_OneHybridization(t *testing.T) {
	species := append(abceSpecies(), oneIndividual("d", 4))
	for seed := uint64(1); seed <= 10; seed++ {
		b := mustBindings(t, species, nil, BindingsOptions{})
		cfg := DefaultConfig()
		cfg.Seed = seed
		cfg.OneHybridization = true
		net, err := NewNetwork(b, cfg)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if !net.OneHybridization() || net.TettreeCount() != 1 || net.Tettree(0).TipCount() != 3 {
			t.Errorf("seed %d: %d legged trees", seed, net.TettreeCount())
		}
	}
}

func TestNewNetwork_ScaledBelowGeneTrees(t *testing.T) {
	for seed := uint64(1); seed <= 10; seed++ {
		genes := []GeneTree{
			caterpillarGene(t, 0.5, "a_A", "b_A", "c_A", "e_A", "b_B", "c_B"),
			caterpillarGene(t, 1, "c_B", "e_A", "b_B", "a_A", "c_A", "b_A"),
		}
		b := mustBindings(t, abceSpecies(), genes, BindingsOptions{MinHeight: 0.01, Source: testSource(seed)})
		cfg := DefaultConfig()
		cfg.Seed = seed
		cfg.Debug = true
		net, err := NewNetwork(b, cfg)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if h := net.DiploidHistory().RootHeight(); h > 0.0099+1e-12 {
			t.Errorf("seed %d: diploid root at %g, want <= .0099", seed, h)
		}
		for tt := range net.TettreeCount() {
			if h := net.Tettree(tt).RootHeight(); h > 0.0099+1e-12 {
				t.Errorf("seed %d: tettree %d root at %g, want <= .0099", seed, tt, h)
			}
		}
		if !net.NetAndGeneTreesCompatible() {
			t.Errorf("seed %d: initial network incompatible with gene trees", seed)
		}
		ll := NewCoalescentLikelihood(b, net).LogLikelihood()
		if math.IsInf(ll, 0) || math.IsNaN(ll) {
			t.Errorf("seed %d: log likelihood %g", seed, ll)
		}
	}
}

func TestNewNetwork_Errors(t *testing.T) {
	tests := []struct {
		name    string
		species []Species
		cfg     func(*Config)
		wantErr error
	}{
		{"hexaploid", append(abceSpecies(), oneIndividual("h", 6)), nil, ErrPloidy},
		{"one diploid", []Species{oneIndividual("a", 2), oneIndividual("b", 4)}, nil, ErrInvalidConfig},
		{"no tetraploid", []Species{oneIndividual("a", 2), oneIndividual("e", 2)}, nil, ErrInvalidConfig},
		{"negative population", abceSpecies(), func(c *Config) { c.InitialRootPop = -1 }, ErrInvalidConfig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := mustBindings(t, tc.species, nil, BindingsOptions{})
			cfg := DefaultConfig()
			if tc.cfg != nil {
				tc.cfg(&cfg)
			}
			if _, err := NewNetwork(b, cfg); !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestNetwork_EditProtocol(t *testing.T) {
	net := mergeableNetwork(t, 0)
	changes := 0
	net.OnChange(func() { changes++ })

	if err := net.EndEdit(); !errors.Is(err, ErrNotEditing) {
		t.Errorf("EndEdit outside an edit: err = %v", err)
	}
	if err := net.FlipLegs(0); !errors.Is(err, ErrNotEditing) {
		t.Errorf("FlipLegs outside an edit: err = %v", err)
	}
	if err := net.MergeTettrees(0, 1); !errors.Is(err, ErrNotEditing) {
		t.Errorf("MergeTettrees outside an edit: err = %v", err)
	}
	if err := net.SetHybridHeight(0, 1.5); !errors.Is(err, ErrNotEditing) {
		t.Errorf("SetHybridHeight outside an edit: err = %v", err)
	}
	if _, err := net.AddHybPopParam(distuv.Gamma{Alpha: 2, Beta: 100}, 0.5); !errors.Is(err, ErrNotEditing) {
		t.Errorf("AddHybPopParam outside an edit: err = %v", err)
	}

	if err := net.BeginEdit(); err != nil {
		t.Fatal(err)
	}
	if err := net.BeginEdit(); !errors.Is(err, ErrEditInProgress) {
		t.Errorf("nested BeginEdit: err = %v", err)
	}
	if err := net.SetHybridHeight(0, 1.5); err != nil {
		t.Fatal(err)
	}
	if changes != 0 {
		t.Error("listener ran before EndEdit")
	}
	if err := net.EndEdit(); err != nil {
		t.Fatal(err)
	}
	if changes != 1 {
		t.Errorf("listener ran %d times, want 1", changes)
	}
	if h := net.DiploidHistory().HybHeight(net.Tettree(0)); h != 1.5 {
		t.Errorf("hybridization height %g, want 1.5", h)
	}
}

func TestNetwork_MergeAndSplit(t *testing.T) {
	net := mergeableNetwork(t, 1)
	prior := distuv.Gamma{Alpha: 2, Beta: 100}
	before := net.Newick()
	if want := "(((b0,c0),a0),((b1,c1),e0))"; before != want {
		t.Fatalf("Newick = %s, want %s", before, want)
	}

	var removed float64
	mustEdit(t, net, func() error {
		if err := net.MergeTettrees(0, 1); err != nil {
			return err
		}
		var err error
		removed, err = net.RemoveHybPopParam(prior)
		return err
	})
	assertClose(t, "removed log density", removed, prior.LogProb(0.001), 1e-12)
	if net.TettreeCount() != 1 || net.Tettree(0).TipCount() != 2 {
		t.Fatalf("after merge: %d legged trees", net.TettreeCount())
	}
	if got := net.Tettree(0).RootHeight(); got != 0.5 {
		t.Errorf("merged root at %g, want the younger hybridization .5", got)
	}
	if got := net.DiploidHistory().HybHeight(net.Tettree(0)); got != 1 {
		t.Errorf("merged tree hybridizes at %g, want the older 1", got)
	}
	if len(net.HybPops()) != 1 || net.pops.hyb[1] != 0 {
		t.Errorf("hybrid populations %v after merge", net.pops.hyb)
	}
	if len(net.DiploidHistory().CollectFeet()) != 2 {
		t.Errorf("%d feet after merge, want 2", len(net.DiploidHistory().CollectFeet()))
	}
	if !net.NetAndGeneTreesCompatible() {
		t.Error("merge made the gene tree incompatible")
	}

	var added float64
	mustEdit(t, net, func() error {
		root := net.Tettree(0).root
		rootChild := 0
		if net.Tettree(0).nodes[net.Tettree(0).nodes[root].lft].taxon != "c" {
			rootChild = 1
		}
		if err := net.SplitTettree(0, rootChild, 2, 2, 0.5); err != nil {
			return err
		}
		var err error
		added, err = net.AddHybPopParam(prior, 0.5)
		return err
	})
	v := prior.Quantile(0.5)
	assertClose(t, "added log density", added, prior.LogProb(v), 1e-12)
	if net.TettreeCount() != 2 {
		t.Fatalf("after split: %d legged trees", net.TettreeCount())
	}
	if diff := cmp.Diff([]string{"c"}, net.Tettree(1).SpeciesNames()); diff != "" {
		t.Errorf("split tree species (-want +got):\n%s", diff)
	}
	if got := net.DiploidHistory().HybHeight(net.Tettree(1)); got != 0.5 {
		t.Errorf("split tree hybridizes at %g, want .5", got)
	}
	if diff := cmp.Diff([]float64{0.001, v}, net.HybPops()); diff != "" {
		t.Errorf("hybrid populations (-want +got):\n%s", diff)
	}
	if !net.DiploidHistory().TettreesShareLegs(net.Tettree(0), net.Tettree(1)) {
		t.Error("split tree's feet do not share legs with the remaining tree")
	}
	if got := net.Newick(); got != before {
		t.Errorf("Newick after merge and split = %s, want %s", got, before)
	}
}

func TestNetwork_MergeErrors(t *testing.T) {
	net := mergeableNetwork(t, 0)
	if err := net.BeginEdit(); err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		name     string
		tt1, tt2 int
	}{
		{"same tree", 0, 0},
		{"out of range", 0, 2},
		{"negative", -1, 0},
	} {
		if err := net.MergeTettrees(tc.tt1, tc.tt2); !errors.Is(err, ErrInvalidMove) {
			t.Errorf("%s: err = %v, want ErrInvalidMove", tc.name, err)
		}
	}
	// Equal hybridization times cannot be ordered.
	net.dh.SetHybridHeight(net.tettrees[1], 1)
	if err := net.MergeTettrees(0, 1); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("equal heights: err = %v, want ErrInvalidMove", err)
	}

	// Feet on different branches.
	b := fiveSpeciesBindings(t)
	h, tettrees := twoHybridizations(t)
	other := newTestNetwork(t, b, h, tettrees)
	if err := other.BeginEdit(); err != nil {
		t.Fatal(err)
	}
	if err := other.MergeTettrees(0, 1); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("unshared legs: err = %v, want ErrInvalidMove", err)
	}
}

func TestNetwork_SplitErrors(t *testing.T) {
	net := mergeableNetwork(t, 0)
	if err := net.BeginEdit(); err != nil {
		t.Fatal(err)
	}
	if err := net.SplitTettree(0, 0, 1.5, 1.5, 0.5); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("single-tip tree: err = %v, want ErrInvalidMove", err)
	}
	if err := net.MergeTettrees(0, 1); err != nil {
		t.Fatal(err)
	}
	// The merged tree's feet are at 1, both under parents at 3.
	tests := []struct {
		name                    string
		rootChild               int
		left, right, hybridized float64
	}{
		{"bad root child", 2, 1.5, 1.5, 0.5},
		{"hybridizes below split root", 0, 1.5, 1.5, 0},
		{"left join below foot", 0, 0.9, 1.5, 0.5},
		{"left join above parent", 0, 3.5, 1.5, 0.5},
		{"right join below new feet", 0, 1.5, 1.2, 1.3},
		{"right join above parent", 1, 1.5, 3, 0.5},
	}
	for _, tc := range tests {
		if err := net.SplitTettree(0, tc.rootChild, tc.left, tc.right, tc.hybridized); !errors.Is(err, ErrInvalidMove) {
			t.Errorf("%s: err = %v, want ErrInvalidMove", tc.name, err)
		}
	}
	if net.TettreeCount() != 1 {
		t.Errorf("failed splits changed the tree count to %d", net.TettreeCount())
	}
}

func TestNetwork_FlipLegs(t *testing.T) {
	net := mergeableNetwork(t, 2)
	lik := NewCoalescentLikelihood(net.Bindings(), net)
	ll := lik.LogLikelihood()
	if math.IsInf(ll, 0) {
		t.Fatalf("initial log likelihood %g", ll)
	}
	newick := net.Newick()
	cols := net.Bindings().ColumnValues()

	mustEdit(t, net, func() error { return net.FlipLegs(0) })
	if net.Newick() == newick {
		t.Error("FlipLegs did not change the MUL-tree")
	}
	assertClose(t, "log likelihood after flip", lik.LogLikelihood(), ll, 1e-9)
	if cmp.Equal(cols, net.Bindings().ColumnValues()) {
		t.Error("FlipLegs did not flip sequence assignments")
	}

	mustEdit(t, net, func() error { return net.FlipLegs(0) })
	if got := net.Newick(); got != newick {
		t.Errorf("flipping twice: Newick %s, want %s", got, newick)
	}
	if diff := cmp.Diff(cols, net.Bindings().ColumnValues()); diff != "" {
		t.Errorf("flipping twice: assignments (-want +got):\n%s", diff)
	}
}

func TestNetwork_MoveHybridHeight(t *testing.T) {
	for _, u := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		net := mergeableNetwork(t, 0)
		mustEdit(t, net, func() error { return net.MoveHybridHeight(0, u) })
		h := net.DiploidHistory().HybHeight(net.Tettree(0))
		if h <= net.Tettree(0).RootHeight() || h >= 2 {
			t.Errorf("u=%g: hybridization moved to %g, outside (0, 2)", u, h)
		}
		if r := net.DiploidHistory().nodes[net.Tettree(0).RightLeg()].height; r != h {
			t.Errorf("u=%g: feet at %g and %g", u, h, r)
		}
	}
}

func TestNetwork_SetHybridHeightBounds(t *testing.T) {
	net := mergeableNetwork(t, 0)
	if err := net.BeginEdit(); err != nil {
		t.Fatal(err)
	}
	for _, h := range []float64{0, -1, 2, 5} {
		if err := net.SetHybridHeight(0, h); !errors.Is(err, ErrInvalidMove) {
			t.Errorf("SetHybridHeight(%g): err = %v, want ErrInvalidMove", h, err)
		}
	}
}

func TestNetwork_Scale(t *testing.T) {
	net := mergeableNetwork(t, 0)
	rootHeight := net.DiploidHistory().RootHeight()

	count, err := net.Scale(2)
	if err != nil {
		t.Fatal(err)
	}
	// 5 internal nodes and 4 feet, then 4 tip, 6 root and 2 hybrid populations.
	if count != 21 {
		t.Errorf("Scale changed %d values, want 21", count)
	}
	if got := net.DiploidHistory().RootHeight(); got != 2*rootHeight {
		t.Errorf("root height %g, want %g", got, 2*rootHeight)
	}
	if diff := cmp.Diff(filled(4, 0.006), net.TipPops()); diff != "" {
		t.Errorf("tip populations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(filled(2, 0.002), net.HybPops()); diff != "" {
		t.Errorf("hybrid populations (-want +got):\n%s", diff)
	}
	for _, f := range []float64{0, -1, math.Inf(1), math.NaN()} {
		if _, err := net.Scale(f); !errors.Is(err, ErrInvalidMove) {
			t.Errorf("Scale(%g): err = %v, want ErrInvalidMove", f, err)
		}
	}
}

func TestNetwork_CompatibilityFollowsHeights(t *testing.T) {
	net := mergeableNetwork(t, 1)
	if !net.NetAndGeneTreesCompatible() {
		t.Fatal("gene tree above the root should fit")
	}
	// (a_A,b_A) coalesce at 10.001; their clade in the network is at 3.
	if _, err := net.Scale(10); err != nil {
		t.Fatal(err)
	}
	if net.NetAndGeneTreesCompatible() {
		t.Error("gene tree still fits after the network grew past it")
	}
	if ll := NewCoalescentLikelihood(net.Bindings(), net).LogLikelihood(); !math.IsInf(ll, -1) {
		t.Errorf("log likelihood %g for an incompatible network, want -Inf", ll)
	}
	if _, err := net.Scale(0.1); err != nil {
		t.Fatal(err)
	}
	if !net.NetAndGeneTreesCompatible() {
		t.Error("gene tree does not fit after scaling back")
	}
}

// snapshotOpts compares snapshots field by field. Unions are derived from
// the topology and rebuilt on every refresh.
var snapshotOpts = cmp.Options{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmp.FilterPath(func(p cmp.Path) bool {
		sf, ok := p.Last().(cmp.StructField)
		return ok && sf.Name() == "union"
	}, cmp.Ignore()),
}

func TestNetwork_StoreRestore(t *testing.T) {
	net := mergeableNetwork(t, 1)
	before := net.Snapshot()
	newick := net.Newick()
	cols := net.Bindings().ColumnValues()
	ll := NewCoalescentLikelihood(net.Bindings(), net).LogLikelihood()

	net.StoreState()
	mustEdit(t, net, func() error {
		for tt := range 2 {
			if err := net.FlipLegs(tt); err != nil {
				return err
			}
		}
		return net.MergeTettrees(0, 1)
	})
	net.SetTipPop(0, 0.5)
	if net.TettreeCount() != 1 {
		t.Fatalf("merge did not happen: %d legged trees", net.TettreeCount())
	}

	if err := net.RestoreState(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, net.Snapshot(), snapshotOpts); diff != "" {
		t.Errorf("restored state differs (-before +after):\n%s", diff)
	}
	if got := net.Newick(); got != newick {
		t.Errorf("Newick %s, want %s", got, newick)
	}
	if diff := cmp.Diff(cols, net.Bindings().ColumnValues()); diff != "" {
		t.Errorf("sequence assignments (-before +after):\n%s", diff)
	}
	assertClose(t, "log likelihood", NewCoalescentLikelihood(net.Bindings(), net).LogLikelihood(), ll, 1e-12)
	if err := net.Check(); err != nil {
		t.Errorf("Check: %v", err)
	}

	net.AcceptState()
	if err := net.RestoreState(); err == nil {
		t.Error("RestoreState after AcceptState: expected an error")
	}
}

func TestNetwork_RestoreAbandonsEdit(t *testing.T) {
	net := mergeableNetwork(t, 0)
	snap := net.Snapshot()
	if err := net.BeginEdit(); err != nil {
		t.Fatal(err)
	}
	if err := net.SetHybridHeight(0, 1.5); err != nil {
		t.Fatal(err)
	}
	if err := net.RestoreSnapshot(snap); err != nil {
		t.Fatal(err)
	}
	if err := net.BeginEdit(); err != nil {
		t.Errorf("BeginEdit after restore: %v", err)
	}
	if h := net.DiploidHistory().HybHeight(net.Tettree(0)); h != 1 {
		t.Errorf("hybridization height %g after restore, want 1", h)
	}
}

func TestNetwork_ZeroHybridPopulationRejected(t *testing.T) {
	net := mergeableNetwork(t, 0)
	net.SetHybPop(1, 0)
	if err := net.BeginEdit(); err != nil {
		t.Fatal(err)
	}
	if err := net.EndEdit(); !errors.Is(err, ErrPopulationCount) {
		t.Errorf("EndEdit with a zero hybrid population: err = %v, want ErrPopulationCount", err)
	}
}

func TestNetwork_Views(t *testing.T) {
	net := mergeableNetwork(t, 1)
	b := net.Bindings()

	for _, f := range net.DiploidHistory().CollectFeet() {
		tt := net.DiploidHistory().NodeTettree(f)
		want := net.UnionOfTetTree(tt, net.DiploidHistory().NodeLeg(f).seq())
		if got := net.TipUnion(f); !got.Equal(want) {
			t.Errorf("TipUnion(%d) = %s, want %s", f, unionText(got), unionText(want))
		}
	}
	if got := net.TipUnion(0); !got.Equal(b.TaxonSeqToTipUnion("a", 0)) {
		t.Errorf("TipUnion(a) = %s", unionText(got))
	}

	txt := net.AsText()
	for _, s := range []string{"Diploid history", "noftettrees 2", "Tetraploid tree 1", "MUL-tree", "Gene tree 0", "Sequence assignments"} {
		if !strings.Contains(txt, s) {
			t.Errorf("AsText lacks %q", s)
		}
	}
	if net.MulTree() == nil || net.DiploidRootIsRoot() {
		t.Error("unexpected accessor values")
	}
}
