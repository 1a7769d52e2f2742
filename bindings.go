package alloppnet

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Individual is one sampled organism. A species of ploidy 2k contributes k
// taxa (sequences) per individual to every gene tree.
type Individual struct {
	ID   string   `yaml:"id"`
	Taxa []string `yaml:"taxa"`
}

// Species is a diploid (ploidy 2) or allopolyploid species.
type Species struct {
	Name        string       `yaml:"name"`
	Ploidy      int          `yaml:"ploidy"`
	Individuals []Individual `yaml:"individuals"`
}

// BindingsOptions controls how gene trees are bound to species.
type BindingsOptions struct {
	// MinHeight is added to every internal gene tree height, and bounds the
	// height of the initial network. Must be > 0 when there are gene trees.
	MinHeight float64

	// KeepAssignments disables the initial random permutation of each
	// individual's sequence assignments.
	KeepAssignments bool

	// Source drives assignment permutations. Default: a randomly seeded PCG.
	Source rand.Source

	// Logger receives debug traces. Default: discard.
	Logger *slog.Logger
}

// seqAssign maps a taxon to one sequence copy of its species.
type seqAssign struct {
	sp  int
	seq int
}

type geneInfo struct {
	tree    GeneTree
	assigns []seqAssign
	stored  []seqAssign
}

type speciesIndiv struct {
	sp, iv int
}

// SpeciesBindings ties taxa in the gene trees to species and to
// species-sequence slots, and owns the per-gene sequence assignments that
// say which parental genome each tetraploid sequence came from.
type SpeciesBindings struct {
	species      []Species
	speciesIndex map[string]int
	taxa         []string
	taxonIndex   map[string]int
	taxonIndiv   map[string]speciesIndiv

	// spsq[sp][seq] is the bit of species sp's sequence copy seq.
	spsq        [][]int
	spsqSpecies []int

	genes     []*geneInfo
	minHeight float64
	rnd       *sampler
	log       *slog.Logger
}

// NewSpeciesBindings validates the species and gene trees and binds them.
// Every gene tree must contain every taxon exactly once.
func NewSpeciesBindings(species []Species, genes []GeneTree, opts BindingsOptions) (*SpeciesBindings, error) {
	if len(species) == 0 {
		return nil, fmt.Errorf("%w: no species", ErrInvalidConfig)
	}
	if opts.MinHeight < 0 || (len(genes) > 0 && opts.MinHeight == 0) {
		return nil, fmt.Errorf("%w: MinHeight must be > 0, got %f", ErrInvalidConfig, opts.MinHeight)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	b := &SpeciesBindings{
		species:      species,
		speciesIndex: make(map[string]int, len(species)),
		taxonIndex:   make(map[string]int),
		taxonIndiv:   make(map[string]speciesIndiv),
		spsq:         make([][]int, len(species)),
		minHeight:    opts.MinHeight,
		rnd:          newSampler(opts.Source),
		log:          log,
	}
	for s, sp := range species {
		if _, dup := b.speciesIndex[sp.Name]; dup || sp.Name == "" {
			return nil, fmt.Errorf("%w: species name %q empty or repeated", ErrInvalidConfig, sp.Name)
		}
		b.speciesIndex[sp.Name] = s
		if sp.Ploidy < 2 || sp.Ploidy%2 != 0 {
			return nil, fmt.Errorf("%w: species %q has ploidy %d", ErrPloidy, sp.Name, sp.Ploidy)
		}
		if len(sp.Individuals) == 0 {
			return nil, fmt.Errorf("%w: species %q has no individuals", ErrInvalidConfig, sp.Name)
		}
		for i, iv := range sp.Individuals {
			if len(iv.Taxa) != sp.Ploidy/2 {
				return nil, fmt.Errorf("%w: individual %q of %q has %d taxa, want %d",
					ErrPloidy, iv.ID, sp.Name, len(iv.Taxa), sp.Ploidy/2)
			}
			for _, tx := range iv.Taxa {
				if _, dup := b.taxonIndex[tx]; dup {
					return nil, fmt.Errorf("%w: taxon %q repeated", ErrInvalidConfig, tx)
				}
				b.taxonIndex[tx] = len(b.taxa)
				b.taxonIndiv[tx] = speciesIndiv{s, i}
				b.taxa = append(b.taxa, tx)
			}
		}
		b.spsq[s] = make([]int, sp.Ploidy/2)
		for q := range b.spsq[s] {
			b.spsq[s][q] = len(b.spsqSpecies)
			b.spsqSpecies = append(b.spsqSpecies, s)
		}
	}
	for g, tree := range genes {
		gi, err := b.bindGene(g, tree, !opts.KeepAssignments)
		if err != nil {
			return nil, err
		}
		b.genes = append(b.genes, gi)
	}
	for _, gi := range b.genes {
		for _, n := range gi.tree.InternalNodes() {
			gi.tree.SetHeight(n, gi.tree.Height(n)+opts.MinHeight)
		}
	}
	return b, nil
}

func (b *SpeciesBindings) bindGene(g int, tree GeneTree, permute bool) (*geneInfo, error) {
	seen := make(map[string]bool, len(b.taxa))
	for n := range tree.NodeCount() {
		if !tree.IsExternal(n) {
			continue
		}
		tx := tree.Taxon(n)
		if _, ok := b.taxonIndex[tx]; !ok {
			return nil, fmt.Errorf("%w: gene tree %d taxon %q", ErrUnknownSpecies, g, tx)
		}
		if seen[tx] {
			return nil, fmt.Errorf("%w: gene tree %d has taxon %q twice", ErrInvalidConfig, g, tx)
		}
		seen[tx] = true
	}
	if len(seen) != len(b.taxa) {
		return nil, fmt.Errorf("%w: gene tree %d has %d of %d taxa", ErrInvalidConfig, g, len(seen), len(b.taxa))
	}
	gi := &geneInfo{
		tree:    tree,
		assigns: make([]seqAssign, len(b.taxa)),
		stored:  make([]seqAssign, len(b.taxa)),
	}
	for s, sp := range b.species {
		for _, iv := range sp.Individuals {
			perm := make([]int, len(iv.Taxa))
			for x := range perm {
				perm[x] = x
			}
			if permute {
				b.rnd.rnd.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
			}
			for x, tx := range iv.Taxa {
				gi.assigns[b.taxonIndex[tx]] = seqAssign{sp: s, seq: perm[x]}
			}
		}
	}
	copy(gi.stored, gi.assigns)
	return gi, nil
}

// SpeciesCount returns the number of species.
func (b *SpeciesBindings) SpeciesCount() int { return len(b.species) }

// SpeciesName returns the name of species sp.
func (b *SpeciesBindings) SpeciesName(sp int) string { return b.species[sp].Name }

// SpSeqCount returns the number of species-sequence slots, the width of
// every union.
func (b *SpeciesBindings) SpSeqCount() int { return len(b.spsqSpecies) }

// GeneTreeCount returns the number of bound gene trees.
func (b *SpeciesBindings) GeneTreeCount() int { return len(b.genes) }

// SpeciesWithPloidy returns the names of the species of the given ploidy,
// in binding order.
func (b *SpeciesBindings) SpeciesWithPloidy(ploidy int) []string {
	var names []string
	for _, sp := range b.species {
		if sp.Ploidy == ploidy {
			names = append(names, sp.Name)
		}
	}
	return names
}

// TaxonSeqToTipUnion returns the union holding only sequence copy seq of
// the named species.
func (b *SpeciesBindings) TaxonSeqToTipUnion(species string, seq int) *bitset.BitSet {
	u := newUnion(b.SpSeqCount())
	if sp, ok := b.speciesIndex[species]; ok && seq < len(b.spsq[sp]) {
		u.Set(uint(b.spsq[sp][seq]))
	}
	return u
}

// SpSeqUnionToSpUnion returns the set of species with at least one sequence
// copy in u.
func (b *SpeciesBindings) SpSeqUnionToSpUnion(u *bitset.BitSet) *bitset.BitSet {
	sp := bitset.New(uint(len(b.species)))
	for i, ok := u.NextSet(0); ok; i, ok = u.NextSet(i + 1) {
		sp.Set(uint(b.spsqSpecies[i]))
	}
	return sp
}

func (b *SpeciesBindings) spSeqToSpecies(spsq int) int { return b.spsqSpecies[spsq] }

// NLineages returns the number of gene lineages species sp contributes to
// each of its tips in the MUL-tree: one per individual.
func (b *SpeciesBindings) NLineages(sp int) int { return len(b.species[sp].Individuals) }

// InitialMinGeneNodeHeight returns the height every gene tree node was
// shifted by. The initial network is scaled to fit below it.
func (b *SpeciesBindings) InitialMinGeneNodeHeight() float64 { return b.minHeight }

// MaxGeneTreeHeight returns the tallest gene tree root, or 999 with no gene
// trees.
func (b *SpeciesBindings) MaxGeneTreeHeight() float64 {
	if len(b.genes) == 0 {
		return 999
	}
	h := 0.0
	for _, gi := range b.genes {
		h = max(h, gi.tree.Height(gi.tree.Root()))
	}
	return h
}

// FitsInNetwork reports whether every coalescence of gene tree g can happen
// in net's MUL-tree under the current sequence assignments.
func (b *SpeciesBindings) FitsInNetwork(g int, net *Network) bool {
	gu := b.geneUnionTree(g)
	fits := gu.fitsIn(net.mul, gu.root)
	if !fits {
		b.log.Debug("gene tree incompatible with network", "gene", g)
	}
	return fits
}

// TreeLogLikelihood returns log P(gene tree g | net), or -Inf when the
// gene tree does not fit.
func (b *SpeciesBindings) TreeLogLikelihood(g int, net *Network) float64 {
	gu := b.geneUnionTree(g)
	m := net.mul
	if !gu.fitsIn(m, gu.root) {
		b.log.Debug("gene tree incompatible with network", "gene", g)
		return math.Inf(-1)
	}
	m.clearCoalescences()
	gu.recordCoalescences(m, gu.root)
	m.sortCoalescences()
	m.recordLineageCounts()
	return m.logLikelihood(b.MaxGeneTreeHeight())
}

// SpSeqUpperBound returns the lowest gene tree node, over all gene trees,
// that splits a lineage in left from one in right. A split of those
// lineages in the network must be at least this old.
func (b *SpeciesBindings) SpSeqUpperBound(left, right *bitset.BitSet) float64 {
	bound := math.MaxFloat64
	for g := range b.genes {
		gu := b.geneUnionTree(g)
		bound = min(bound, gu.spseqUpperBound(gu.root, left, right, bound))
	}
	return bound
}

// flipIndividual swaps the two sequence assignments of a two-copy
// individual. Others are left alone.
func (gi *geneInfo) flipIndividual(b *SpeciesBindings, sp, iv int) {
	taxa := b.species[sp].Individuals[iv].Taxa
	if len(taxa) != 2 {
		return
	}
	for _, tx := range taxa {
		a := &gi.assigns[b.taxonIndex[tx]]
		a.seq = 1 - a.seq
	}
}

// PermuteOneIndividual flips the assignments of one random individual of a
// random species in gene tree g.
func (b *SpeciesBindings) PermuteOneIndividual(g int) {
	sp := b.rnd.intn(len(b.species))
	iv := b.rnd.intn(len(b.species[sp].Individuals))
	b.genes[g].flipIndividual(b, sp, iv)
}

// PermuteSetOfIndivs picks a random internal node of gene tree g and flips
// every individual with exactly one sequence below it.
func (b *SpeciesBindings) PermuteSetOfIndivs(g int) {
	gi := b.genes[g]
	internal := gi.tree.InternalNodes()
	if len(internal) == 0 {
		return
	}
	n := internal[b.rnd.intn(len(internal))]
	count := map[speciesIndiv]int{}
	b.collectIndivs(gi.tree, n, count)
	for spiv, c := range count {
		if c == 1 {
			gi.flipIndividual(b, spiv.sp, spiv.iv)
		}
	}
}

func (b *SpeciesBindings) collectIndivs(t GeneTree, n int, count map[speciesIndiv]int) {
	if t.IsExternal(n) {
		count[b.taxonIndiv[t.Taxon(n)]]++
		return
	}
	b.collectIndivs(t, t.Child(n, 0), count)
	b.collectIndivs(t, t.Child(n, 1), count)
}

// PermuteOneIndividualForOneGene applies PermuteOneIndividual to a random
// gene tree.
func (b *SpeciesBindings) PermuteOneIndividualForOneGene() {
	if len(b.genes) > 0 {
		b.PermuteOneIndividual(b.rnd.intn(len(b.genes)))
	}
}

// PermuteSetOfIndivsForOneGene applies PermuteSetOfIndivs to a random gene
// tree.
func (b *SpeciesBindings) PermuteSetOfIndivsForOneGene() {
	if len(b.genes) > 0 {
		b.PermuteSetOfIndivs(b.rnd.intn(len(b.genes)))
	}
}

// FlipAssignmentsForAllGenesOneSpecies flips every individual of species
// sp in every gene tree. Used together with Network.FlipLegs.
func (b *SpeciesBindings) FlipAssignmentsForAllGenesOneSpecies(sp int) {
	for _, gi := range b.genes {
		for iv := range b.species[sp].Individuals {
			gi.flipIndividual(b, sp, iv)
		}
	}
}

// StoreSequenceAssignments copies every gene tree's sequence assignments
// to a shadow copy.
func (b *SpeciesBindings) StoreSequenceAssignments() {
	for _, gi := range b.genes {
		copy(gi.stored, gi.assigns)
	}
}

// RestoreSequenceAssignments copies the shadow assignments back.
func (b *SpeciesBindings) RestoreSequenceAssignments() {
	for _, gi := range b.genes {
		copy(gi.assigns, gi.stored)
	}
}

// ColumnNames returns one loggable column per gene tree and taxon.
func (b *SpeciesBindings) ColumnNames() []string {
	cols := make([]string, 0, len(b.genes)*len(b.taxa))
	for g := range b.genes {
		for tx := range b.taxa {
			cols = append(cols, "Gene"+strconv.Itoa(g)+"taxon"+strconv.Itoa(tx))
		}
	}
	return cols
}

// ColumnValues returns the current sequence index of every column named by
// ColumnNames.
func (b *SpeciesBindings) ColumnValues() []int {
	vals := make([]int, 0, len(b.genes)*len(b.taxa))
	for _, gi := range b.genes {
		for _, a := range gi.assigns {
			vals = append(vals, a.seq)
		}
	}
	return vals
}

// SeqAssignsAsText lists taxon:sequence pairs of gene tree g, one species
// per line.
func (b *SpeciesBindings) SeqAssignsAsText(g int) string {
	var sb strings.Builder
	sb.WriteString("Sequence assignments\n")
	as := b.genes[g].assigns
	for tx := range as {
		fmt.Fprintf(&sb, "%s:%d", b.taxa[tx], as[tx].seq)
		if tx+1 < len(as) && as[tx].sp != as[tx+1].sp {
			sb.WriteByte('\n')
		} else {
			sb.WriteString("  ")
		}
	}
	return sb.String()
}

// GeneTreeAsText returns an outline of gene tree g with the union of each
// node under the current assignments.
func (b *SpeciesBindings) GeneTreeAsText(g int) string {
	gu := b.geneUnionTree(g)
	return fmt.Sprintf("Gene tree %d                     height             union\n", g) + gu.asText()
}
