package alloppnet

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// links holds the fields shared by every node kind. Nodes live in a slice
// owned by their tree and refer to each other by index; -1 means none.
type links struct {
	anc    int
	lft    int
	rgt    int
	number int
	height float64
	taxon  string
	union  *bitset.BitSet
}

func newLinks(nn int) links {
	return links{anc: -1, lft: -1, rgt: -1, number: nn, height: -1}
}

func (l *links) isLeaf() bool { return l.lft < 0 }

// copyContent copies everything except topology into a node numbered nn.
func (l *links) copyContent(nn int) links {
	c := newLinks(nn)
	c.height = l.height
	c.taxon = l.taxon
	if l.union != nil {
		c.union = l.union.Clone()
	}
	return c
}

// arena is the index-addressed view over a tree's node slice that the
// shared algorithms in this file work against.
type arena interface {
	size() int
	at(i int) *links
}

// addChildren links c0 and c1 under n.
func addChildren(a arena, n, c0, c1 int) {
	p := a.at(n)
	p.lft, p.rgt = c0, c1
	a.at(c0).anc = n
	a.at(c1).anc = n
}

// fillUnions sets every internal union in the subtree at n to the union of
// its children. Leaf unions must already be set.
func fillUnions(a arena, n int, nbits int) {
	nd := a.at(n)
	if nd.isLeaf() {
		return
	}
	fillUnions(a, nd.lft, nbits)
	fillUnions(a, nd.rgt, nbits)
	u := newUnion(nbits)
	u.InPlaceUnion(a.at(nd.lft).union)
	u.InPlaceUnion(a.at(nd.rgt).union)
	nd.union = u
}

// locate returns the deepest node in the subtree at n whose union contains
// target.
func locate(a arena, n int, target *bitset.BitSet) int {
	for {
		nd := a.at(n)
		if nd.isLeaf() {
			return n
		}
		switch {
		case a.at(nd.lft).union.IsSuperSet(target):
			n = nd.lft
		case a.at(nd.rgt).union.IsSuperSet(target):
			n = nd.rgt
		default:
			return n
		}
	}
}

// sibling returns the other child of n's ancestor.
func sibling(a arena, n int) int {
	p := a.at(a.at(n).anc)
	if p.lft == n {
		return p.rgt
	}
	return p.lft
}

// checkTopology verifies the structural invariants shared by every tree:
// one root at index root, each other node the child of exactly one node,
// self numbers equal positions, and internal heights strictly above their
// children.
func checkTopology(a arena, root int) error {
	n := a.size()
	if root < 0 || root >= n {
		return fmt.Errorf("alloppnet: root index %d out of range [0,%d)", root, n)
	}
	nroots := 0
	parents := make([]int, n)
	for i := 0; i < n; i++ {
		nd := a.at(i)
		if nd.number != i {
			return fmt.Errorf("alloppnet: node %d numbered %d", i, nd.number)
		}
		if nd.anc < 0 {
			nroots++
		}
		if nd.lft >= 0 {
			parents[nd.lft]++
		}
		if nd.rgt >= 0 {
			parents[nd.rgt]++
		}
	}
	if nroots != 1 {
		return fmt.Errorf("alloppnet: %d roots, want 1", nroots)
	}
	if a.at(root).anc >= 0 {
		return fmt.Errorf("alloppnet: root %d has ancestor %d", root, a.at(root).anc)
	}
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		nd := a.at(i)
		switch {
		case nd.anc < 0 && parents[i] != 0:
			return fmt.Errorf("alloppnet: root node %d is a child of %d nodes", i, parents[i])
		case nd.anc >= 0 && parents[i] != 1:
			return fmt.Errorf("alloppnet: node %d is a child of %d nodes, want 1", i, parents[i])
		}
		if nd.isLeaf() {
			if nd.rgt >= 0 {
				return fmt.Errorf("alloppnet: node %d has a right child but no left child", i)
			}
			continue
		}
		if nd.rgt < 0 {
			return fmt.Errorf("alloppnet: node %d has a left child but no right child", i)
		}
		for _, c := range [2]int{nd.lft, nd.rgt} {
			ch := a.at(c)
			if ch.anc != i {
				return fmt.Errorf("alloppnet: child %d of node %d points to ancestor %d", c, i, ch.anc)
			}
			if nd.height <= ch.height {
				return fmt.Errorf("alloppnet: node %d height %g not above child %d height %g", i, nd.height, c, ch.height)
			}
			uf.union(i, c)
		}
	}
	// A detached cycle can satisfy the per-node parent counts.
	r := uf.find(root)
	for i := 0; i < n; i++ {
		if uf.find(i) != r {
			return fmt.Errorf("alloppnet: node %d is not connected to root %d", i, root)
		}
	}
	return nil
}

// subtreeText draws the subtree at n as an indented outline, one node per
// line, with line supplying the per-node columns.
func subtreeText(a arena, n int, line func(n, indent int) string) string {
	var sb strings.Builder
	writeSubtree(&sb, a, n, nil, 0, "", line)
	return sb.String()
}

func writeSubtree(sb *strings.Builder, a arena, n int, bars []int, depth int, branch string, line func(n, indent int) string) {
	indent := []byte(strings.Repeat("  ", depth))
	for _, y := range bars {
		indent[2*y] = '|'
	}
	if branch != "" {
		copy(indent[len(indent)-len(branch):], branch)
	}
	sb.Write(indent)
	sb.WriteString(line(n, len(indent)))
	sb.WriteByte('\n')
	nd := a.at(n)
	if nd.isLeaf() {
		return
	}
	writeSubtree(sb, a, nd.lft, append(bars, depth), depth+1, "-", line)
	writeSubtree(sb, a, nd.rgt, bars, depth+1, "`-", line)
}

// textNameWidth is the width of the name column in text dumps.
const textNameWidth = 20

// padTo right-pads s with spaces to width w.
func padTo(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

// nodeLabel is the leading column of a text dump: the leaf name or "+".
func nodeLabel(name string, leaf bool, width, indent int) string {
	if !leaf {
		name = "+"
	}
	return padTo(name+" ", width-indent)
}

// uniqueNewick writes the subtree at n with children in lexical order of
// their own Newick strings, so equal topologies give equal strings.
func uniqueNewick(a arena, n int, name func(n int) string) string {
	nd := a.at(n)
	if nd.isLeaf() {
		return name(n)
	}
	kids := []string{uniqueNewick(a, nd.lft, name), uniqueNewick(a, nd.rgt, name)}
	slices.Sort(kids)
	return "(" + kids[0] + "," + kids[1] + ")"
}

// formatHeight renders non-negative values in 8 characters and anything
// negative, which marks an unset value, as blanks.
func formatHeight(x float64) string {
	if x < 0 {
		return "        "
	}
	s := fmt.Sprintf("%8.6f", x)
	if len(s) > 8 {
		s = fmt.Sprintf("%8.2e", x)
	}
	return s
}

// formatIndex renders a non-negative index in 2 characters, blanks otherwise.
func formatIndex(i int) string {
	if i < 0 {
		return "  "
	}
	return fmt.Sprintf("%2d", i)
}
