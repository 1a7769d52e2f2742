package alloppnet

// SlidableTree is the view that node-slide operators work through. Node
// references are indices into the tree's own arena. Both LeggedTree and
// DiploidHistory implement it.
type SlidableTree interface {
	SlidableRoot() int
	ReplaceSlidableRoot(n int)
	SlidableNodeCount() int
	SlidableHeight(n int) float64
	SetSlidableHeight(n int, h float64)
	SlidableTaxon(n int) string
	IsExternalSlidable(n int) bool
	SlidableChild(n, j int) int
	ReplaceSlidableChildren(n, lft, rgt int)
}

// SlidableTips returns the external nodes of the subtree at n, left to right.
func SlidableTips(t SlidableTree, n int) []int {
	if t.IsExternalSlidable(n) {
		return []int{n}
	}
	return append(SlidableTips(t, t.SlidableChild(n, 0)), SlidableTips(t, t.SlidableChild(n, 1))...)
}

// slidableChild, replaceSlidableChildren and replaceSlidableRoot are shared
// by the arena-backed implementations.
func slidableChild(a arena, n, j int) int {
	if j == 0 {
		return a.at(n).lft
	}
	return a.at(n).rgt
}

func replaceSlidableChildren(a arena, n, lft, rgt int) {
	addChildren(a, n, lft, rgt)
}

func replaceSlidableRoot(a arena, n int) {
	a.at(n).anc = -1
}
