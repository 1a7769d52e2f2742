package alloppnet

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// TreeNode is one node of a TreeView. Parent, Left and Right are node
// indices, -1 when absent.
type TreeNode struct {
	Taxon  string
	Height float64
	Parent int
	Left   int
	Right  int
}

// TreeView is a read-only copy of a MUL-tree for callers outside the
// package. Tip taxa carry their sequence copy suffix.
type TreeView struct {
	Nodes []TreeNode
	Root  int
}

// Tree returns a view of the current MUL-tree.
func (n *Network) Tree() TreeView {
	m := n.mul
	v := TreeView{Nodes: make([]TreeNode, len(m.nodes)), Root: m.root}
	for i := range m.nodes {
		nd := &m.nodes[i]
		v.Nodes[i] = TreeNode{Taxon: nd.taxon, Height: nd.height, Parent: nd.anc, Left: nd.lft, Right: nd.rgt}
	}
	return v
}

func (v TreeView) isLeaf(n int) bool { return v.Nodes[n].Left < 0 }

// Tips returns the indices of the tips in node order.
func (v TreeView) Tips() []int {
	var tips []int
	for i := range v.Nodes {
		if v.isLeaf(i) {
			tips = append(tips, i)
		}
	}
	return tips
}

// Newick returns the tree with branch lengths, children in stored order.
func (v TreeView) Newick() string {
	var sb strings.Builder
	v.writeNewick(&sb, v.Root)
	sb.WriteByte(';')
	return sb.String()
}

func (v TreeView) writeNewick(sb *strings.Builder, n int) {
	nd := &v.Nodes[n]
	if v.isLeaf(n) {
		sb.WriteString(nd.Taxon)
	} else {
		sb.WriteByte('(')
		v.writeNewick(sb, nd.Left)
		sb.WriteByte(',')
		v.writeNewick(sb, nd.Right)
		sb.WriteByte(')')
	}
	if nd.Parent >= 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(v.Nodes[nd.Parent].Height-nd.Height, 'g', -1, 64))
	}
}

// Linkage returns the tree as a dendrogram in scipy format: one row
// [left, right, height, size] per internal node, youngest first. Tips are
// numbered 0..n-1 in the order of Tips; the cluster made by row i is n+i.
func (v TreeView) Linkage() [][4]float64 {
	tips := v.Tips()
	if len(tips) < 2 {
		return nil
	}
	tipID := make(map[int]int, len(tips))
	for id, n := range tips {
		tipID[n] = id
	}
	var internal []int
	for i := range v.Nodes {
		if !v.isLeaf(i) {
			internal = append(internal, i)
		}
	}
	slices.SortStableFunc(internal, func(a, b int) int {
		return cmp.Compare(v.Nodes[a].Height, v.Nodes[b].Height)
	})

	uf := newUnionFind(len(tips))
	rows := make([][4]float64, 0, len(internal))
	for _, n := range internal {
		l := tipID[v.firstTip(v.Nodes[n].Left)]
		r := tipID[v.firstTip(v.Nodes[n].Right)]
		a, b, size := uf.merge(l, r)
		rows = append(rows, [4]float64{float64(a), float64(b), v.Nodes[n].Height, float64(size)})
	}
	return rows
}

func (v TreeView) firstTip(n int) int {
	for !v.isLeaf(n) {
		n = v.Nodes[n].Left
	}
	return n
}
