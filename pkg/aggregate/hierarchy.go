package aggregate

import (
	"github.com/cartopack/cartopack/pkg/errors"
)

// Node is one element of a group's hierarchy tree.
//
// The tree has at most two explicit levels below the root: case nodes and
// category leaves. Members with a null case key become leaves directly
// under the root, with no intermediate case node.
type Node struct {
	// Key labels the node: the group key on the root, the case key on case
	// nodes, the category key on leaves.
	Key string `json:"key"`

	// Case and Category identify the aggregation combination for attribute
	// re-attachment. Case is empty on the root and on null-case leaves.
	Case     string `json:"case,omitempty"`
	Category string `json:"category,omitempty"`

	// Value is the combination sum on leaves and the children's total on
	// internal nodes.
	Value float64 `json:"value"`

	// Count is the number of source records aggregated beneath this node.
	Count int `json:"count"`

	Children []*Node `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Hierarchy is a group's two-level tree, ready for nested packing.
type Hierarchy struct {
	Group Group `json:"group"`
	Root  *Node `json:"root"`

	// DroppedCombos counts (case, category) combinations removed because
	// their summed value was not positive. A symbol with zero or negative
	// area cannot be drawn, so these follow the zero-sum drop rule.
	DroppedCombos int `json:"dropped_combos"`
}

// BuildHierarchy aggregates a group's members into its hierarchy tree.
//
// Members are summed per (case, category) combination in first-seen order.
// Non-positive combination sums are dropped and counted. If nothing
// survives, the group cannot be packed and a data error is returned.
func BuildHierarchy(g Group) (*Hierarchy, error) {
	type combo struct{ cs, cat string }
	var (
		order  []combo
		sums   = map[combo]float64{}
		counts = map[combo]int{}
	)
	for _, m := range g.Members {
		key := combo{m.Case, m.Category}
		if _, seen := sums[key]; !seen {
			order = append(order, key)
		}
		sums[key] += m.Value
		counts[key]++
	}

	root := &Node{Key: g.Key}
	caseNodes := map[string]*Node{}
	dropped := 0

	for _, key := range order {
		if sums[key] <= 0 {
			dropped++
			continue
		}
		leaf := &Node{
			Key:      key.cat,
			Case:     key.cs,
			Category: key.cat,
			Value:    sums[key],
			Count:    counts[key],
		}

		if key.cs == "" {
			// Null-case leaves sit directly under the root.
			root.Children = append(root.Children, leaf)
			continue
		}

		cn, ok := caseNodes[key.cs]
		if !ok {
			cn = &Node{Key: key.cs, Case: key.cs}
			caseNodes[key.cs] = cn
			root.Children = append(root.Children, cn)
		}
		cn.Children = append(cn.Children, leaf)
	}

	if len(root.Children) == 0 {
		return nil, errors.New(errors.ErrCodeZeroSum, "group %q has no positive-valued combinations", g.Key)
	}

	// Roll sums and counts up through case nodes to the root.
	for _, child := range root.Children {
		if !child.IsLeaf() {
			for _, leaf := range child.Children {
				child.Value += leaf.Value
				child.Count += leaf.Count
			}
		}
		root.Value += child.Value
		root.Count += child.Count
	}

	return &Hierarchy{Group: g, Root: root, DroppedCombos: dropped}, nil
}
