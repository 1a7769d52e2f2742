package alloppnet

import (
	"fmt"
	"strconv"
	"strings"
)

// mulNode is a node of the multiply labelled tree. Population fields are
// indices into the network's vectors, -1 when the node has none.
type mulNode struct {
	links
	tetraRoot     bool // root of a spliced legged tree
	inTetraTree   bool // inside a spliced legged tree, tetraploid tips only
	tetraAncestor bool // no diploid tip below
	tetTree       int
	hybridHeight  float64

	tipPop  int
	rootPop int
	hybPop  int

	coalHeights []float64
	nLineages   int
}

func newMulNode(nn int) mulNode {
	return mulNode{
		links:        newLinks(nn),
		tetTree:      -1,
		hybridHeight: -1,
		tipPop:       -1,
		rootPop:      -1,
		hybPop:       -1,
	}
}

// populations is the set of population-size vectors a MUL-tree reads. Only
// the first activeHyb entries of hyb are in use.
type populations struct {
	tip       []float64
	root      []float64
	hyb       []float64
	activeHyb int
}

func (p *populations) clone() populations {
	return populations{
		tip:       append([]float64(nil), p.tip...),
		root:      append([]float64(nil), p.root...),
		hyb:       append([]float64(nil), p.hyb...),
		activeHyb: p.activeHyb,
	}
}

// MulLabTree is the network flattened into a binary tree in which every
// tetraploid species appears twice, once per parental genome. It is
// rebuilt from the diploid history and legged trees after every edit.
type MulLabTree struct {
	nodes    []mulNode
	root     int
	bindings *SpeciesBindings
	pops     *populations
}

func (m *MulLabTree) size() int { return len(m.nodes) }
func (m *MulLabTree) at(i int) *links { return &m.nodes[i].links }

// newMulLabTree flattens dh and tettrees and assigns population indices.
func newMulLabTree(dh *DiploidHistory, tettrees []*LeggedTree, b *SpeciesBindings, pops *populations) (*MulLabTree, error) {
	ntips := dh.DiploidTipCount()
	for _, tt := range tettrees {
		ntips += 2 * tt.TipCount()
	}
	m := &MulLabTree{
		nodes:    make([]mulNode, 0, 2*ntips-1),
		bindings: b,
		pops:     pops,
	}
	m.spliceHistory(dh, dh.root, tettrees)
	if len(m.nodes) != 2*ntips-1 {
		return nil, fmt.Errorf("alloppnet: MUL-tree has %d nodes, want %d", len(m.nodes), 2*ntips-1)
	}
	m.root = len(m.nodes) - 1
	fillUnions(m, m.root, b.SpSeqCount())
	m.fillTetraFlags(m.root)
	if err := m.fillinPopvals(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MulLabTree) push(nd mulNode) int {
	n := len(m.nodes)
	nd.number = n
	m.nodes = append(m.nodes, nd)
	return n
}

func (m *MulLabTree) spliceHistory(dh *DiploidHistory, dn int, tettrees []*LeggedTree) {
	d := &dh.nodes[dn]
	switch {
	case d.isFoot():
		tt := tettrees[d.tettree]
		r := m.spliceLegged(tt, tt.root, d.leg.seq())
		m.nodes[r].tetraRoot = true
		m.nodes[r].hybridHeight = d.height
		m.nodes[r].tetTree = d.tettree
	case d.isLeaf():
		nd := newMulNode(0)
		nd.taxon = d.taxon + "0"
		nd.height = d.height
		nd.union = m.bindings.TaxonSeqToTipUnion(d.taxon, 0)
		m.push(nd)
	default:
		m.spliceHistory(dh, d.lft, tettrees)
		c0 := len(m.nodes) - 1
		m.spliceHistory(dh, d.rgt, tettrees)
		c1 := len(m.nodes) - 1
		nd := newMulNode(0)
		nd.tetraAncestor = true
		nd.height = d.height
		n := m.push(nd)
		addChildren(m, n, c0, c1)
	}
}

// spliceLegged copies the subtree of tt at n for sequence copy seq and
// returns the index of its root.
func (m *MulLabTree) spliceLegged(tt *LeggedTree, n int, seq int) int {
	src := &tt.nodes[n]
	nd := newMulNode(0)
	nd.tetraAncestor = true
	nd.height = src.height
	if src.isLeaf() {
		nd.taxon = src.taxon + strconv.Itoa(seq)
		nd.union = m.bindings.TaxonSeqToTipUnion(src.taxon, seq)
		nd.inTetraTree = true
		return m.push(nd)
	}
	c0 := m.spliceLegged(tt, src.lft, seq)
	c1 := m.spliceLegged(tt, src.rgt, seq)
	p := m.push(nd)
	addChildren(m, p, c0, c1)
	return p
}

// fillTetraFlags derives tetraAncestor and inTetraTree of internal nodes
// from their children. Tip flags must already be set.
func (m *MulLabTree) fillTetraFlags(n int) {
	nd := &m.nodes[n]
	if nd.isLeaf() {
		return
	}
	m.fillTetraFlags(nd.lft)
	m.fillTetraFlags(nd.rgt)
	c0, c1 := &m.nodes[nd.lft], &m.nodes[nd.rgt]
	nd.tetraAncestor = c0.tetraAncestor && c1.tetraAncestor
	nd.inTetraTree = c0.inTetraTree && !c0.tetraRoot && c1.inTetraTree && !c1.tetraRoot
}

func (m *MulLabTree) tipPopValue(n int) float64 { return m.pops.tip[m.nodes[n].tipPop] }
func (m *MulLabTree) rootPopValue(n int) float64 { return m.pops.root[m.nodes[n].rootPop] }
func (m *MulLabTree) hybPopValue(n int) float64 { return m.pops.hyb[m.nodes[n].hybPop] }

// popValue renders a population for text output, or -1 when unassigned.
func popValue(vals []float64, i int) float64 {
	if i < 0 || i >= len(vals) {
		return -1
	}
	return vals[i]
}

// Check returns an error describing the first structural problem. Tips must
// sit at height 0.
func (m *MulLabTree) Check() error {
	if err := checkTopology(m, m.root); err != nil {
		return err
	}
	for i := range m.nodes {
		if m.nodes[i].isLeaf() && m.nodes[i].height != 0 {
			return fmt.Errorf("alloppnet: MUL-tree tip %d has height %g, want 0", i, m.nodes[i].height)
		}
	}
	return nil
}

// Newick returns the topology with children in canonical order.
func (m *MulLabTree) Newick() string {
	return uniqueNewick(m, m.root, func(n int) string { return m.nodes[n].taxon })
}

// AsText returns a multi-line table of every node: height, union, the
// three population indices and values, the tetraploid root flag and
// hybridization height, lineage count and coalescence heights.
func (m *MulLabTree) AsText() string {
	var sb strings.Builder
	sb.WriteString("MUL-tree              height                          union                               []  tippop  []  hybpop  [] rootpop  tetroot   hybhgt nlin coalheights\n")
	sb.WriteString(subtreeText(m, m.root, func(n, indent int) string {
		nd := &m.nodes[n]
		var ln strings.Builder
		ln.WriteString(nodeLabel(nd.taxon, nd.isLeaf(), textNameWidth, indent))
		fmt.Fprintf(&ln, "%s %60s ", formatHeight(nd.height), unionText(nd.union))
		fmt.Fprintf(&ln, "%s %s ", formatIndex(nd.tipPop), formatHeight(popValue(m.pops.tip, nd.tipPop)))
		fmt.Fprintf(&ln, "%s %s ", formatIndex(nd.hybPop), formatHeight(popValue(m.pops.hyb, nd.hybPop)))
		fmt.Fprintf(&ln, "%s %s ", formatIndex(nd.rootPop), formatHeight(popValue(m.pops.root, nd.rootPop)))
		if nd.tetraRoot {
			ln.WriteString("tetroot ")
		} else {
			ln.WriteString("        ")
		}
		fmt.Fprintf(&ln, "%s %3d  ", formatHeight(nd.hybridHeight), nd.nLineages)
		for _, c := range nd.coalHeights {
			ln.WriteString(formatHeight(c))
			ln.WriteByte(',')
		}
		return ln.String()
	}))
	return sb.String()
}
