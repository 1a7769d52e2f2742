package alloppnet

// unionFind is a disjoint-set forest with path compression and union by
// size. It holds 2*n - 1 slots so that linkage rows can hand out merged
// cluster IDs n, n+1, ... while leaves keep IDs 0..n-1.
type unionFind struct {
	parent []int
	size   []int
	// nextLabel is the ID for the next merged cluster, starting at n.
	nextLabel int
}

func newUnionFind(n int) *unionFind {
	total := 2*n - 1
	if total < 1 {
		total = 1
	}
	parent := make([]int, total)
	size := make([]int, total)
	for i := range parent {
		parent[i] = -1
	}
	for i := 0; i < n; i++ {
		size[i] = 1
	}
	return &unionFind{
		parent:    parent,
		size:      size,
		nextLabel: n,
	}
}

// find returns the representative of x's set.
func (uf *unionFind) find(x int) int {
	root := x
	for uf.parent[root] != -1 {
		root = uf.parent[root]
	}
	for uf.parent[x] != -1 {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

// union merges the sets of x and y and returns the new representative.
func (uf *unionFind) union(x, y int) int {
	rx := uf.find(x)
	ry := uf.find(y)
	if rx == ry {
		return rx
	}
	if uf.size[rx] < uf.size[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	return rx
}

// merge joins the clusters holding x and y under a fresh label and returns
// the two old cluster IDs and the merged size.
func (uf *unionFind) merge(x, y int) (a, b, size int) {
	a = uf.find(x)
	b = uf.find(y)
	size = uf.size[a] + uf.size[b]
	uf.size[uf.nextLabel] = size
	uf.parent[a] = uf.nextLabel
	uf.parent[b] = uf.nextLabel
	uf.nextLabel++
	return a, b, size
}
