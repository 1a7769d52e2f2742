package alloppnet

import "fmt"

// GeneTree is the read view of a rooted binary gene tree that the
// likelihood works through. Nodes are addressed by index. SetHeight is
// used once, to shift internal heights by the bindings' minimum height.
type GeneTree interface {
	NodeCount() int
	Root() int
	Child(n, i int) int
	IsExternal(n int) bool
	Height(n int) float64
	SetHeight(n int, h float64)
	Taxon(n int) string
	InternalNodes() []int
}

// GeneNode is a nested gene tree description, as read from YAML. Tips have
// a taxon and no children; internal nodes have exactly two children.
type GeneNode struct {
	Taxon    string     `yaml:"taxon,omitempty"`
	Height   float64    `yaml:"height"`
	Children []GeneNode `yaml:"children,omitempty"`
}

type simpleGeneNode struct {
	taxon  string
	height float64
	kids   [2]int
}

// SimpleGeneTree is an arena implementation of GeneTree with nodes stored
// in postorder, so the root is the last node.
type SimpleGeneTree struct {
	nodes []simpleGeneNode
}

// NewSimpleGeneTree flattens a nested description. Every internal node
// must have two children with smaller heights, and every tip a taxon.
func NewSimpleGeneTree(root GeneNode) (*SimpleGeneTree, error) {
	t := &SimpleGeneTree{}
	if _, err := t.add(root); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *SimpleGeneTree) add(g GeneNode) (int, error) {
	switch len(g.Children) {
	case 0:
		if g.Taxon == "" {
			return -1, fmt.Errorf("alloppnet: gene tree tip without taxon")
		}
		t.nodes = append(t.nodes, simpleGeneNode{taxon: g.Taxon, height: g.Height, kids: [2]int{-1, -1}})
		return len(t.nodes) - 1, nil
	case 2:
		c0, err := t.add(g.Children[0])
		if err != nil {
			return -1, err
		}
		c1, err := t.add(g.Children[1])
		if err != nil {
			return -1, err
		}
		if g.Height <= t.nodes[c0].height || g.Height <= t.nodes[c1].height {
			return -1, fmt.Errorf("alloppnet: gene tree node at height %g not above its children", g.Height)
		}
		t.nodes = append(t.nodes, simpleGeneNode{height: g.Height, kids: [2]int{c0, c1}})
		return len(t.nodes) - 1, nil
	default:
		return -1, fmt.Errorf("alloppnet: gene tree node has %d children, want 0 or 2", len(g.Children))
	}
}

// NodeCount returns the number of nodes.
func (t *SimpleGeneTree) NodeCount() int { return len(t.nodes) }

// Root returns the root index, always the last node.
func (t *SimpleGeneTree) Root() int { return len(t.nodes) - 1 }

// Child returns child i of internal node n.
func (t *SimpleGeneTree) Child(n, i int) int { return t.nodes[n].kids[i] }

// IsExternal reports whether n is a tip.
func (t *SimpleGeneTree) IsExternal(n int) bool { return t.nodes[n].kids[0] < 0 }

// Height returns the height of node n.
func (t *SimpleGeneTree) Height(n int) float64 { return t.nodes[n].height }

// SetHeight sets the height of node n.
func (t *SimpleGeneTree) SetHeight(n int, h float64) { t.nodes[n].height = h }

// Taxon returns the taxon of tip n.
func (t *SimpleGeneTree) Taxon(n int) string { return t.nodes[n].taxon }

// InternalNodes returns the internal node indices in postorder.
func (t *SimpleGeneTree) InternalNodes() []int {
	var in []int
	for i := range t.nodes {
		if !t.IsExternal(i) {
			in = append(in, i)
		}
	}
	return in
}
