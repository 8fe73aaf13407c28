package pack

import (
	"math"

	"github.com/cartopack/cartopack/pkg/aggregate"
	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/geom"
	"github.com/cartopack/cartopack/pkg/layout"
)

// Placed is one circle of a nested arrangement. Offsets are relative to
// the root enclosure center. Roles and levels use the layout vocabulary;
// null-case leaves sit geometrically inside the root but keep the leaf
// level, since their key is a category key.
type Placed struct {
	Offset   geom.Point
	Radius   float64
	Level    int
	Role     layout.Role
	Key      string
	Case     string
	Category string
	Value    float64
	Count    int
}

// PackHierarchy packs a group's hierarchy tree into an enclosure of the
// given radius.
//
// Sizing is area-proportional per level: every child of the root gets a
// relative radius of sqrt(value), the children are flat-packed, and the
// arrangement is scaled to fill the enclosure exactly. Case interiors are
// packed the same way and rescaled to their case circle, so every circle
// stays inside its parent by construction. The returned slice starts with
// the root circle, followed by each root child and its leaves in tree
// order.
func PackHierarchy(root *aggregate.Node, radius float64) ([]Placed, error) {
	if root == nil || len(root.Children) == 0 {
		return nil, errors.New(errors.ErrCodePackFailed, "hierarchy has no children to pack")
	}
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, errors.New(errors.ErrCodePackFailed, "enclosure radius is not a positive finite number: %v", radius)
	}

	// Pack the root level: case circles and null-case leaves together.
	childRadii := make([]float64, len(root.Children))
	for i, child := range root.Children {
		childRadii[i] = math.Sqrt(child.Value)
	}
	arranged, err := Pack(childRadii)
	if err != nil {
		return nil, err
	}
	scale := radius / arranged.Bounding

	placed := []Placed{{
		Radius: radius,
		Level:  layout.LevelRoot,
		Role:   layout.RoleRoot,
		Key:    root.Key,
		Value:  root.Value,
		Count:  root.Count,
	}}

	for i, child := range root.Children {
		childOffset := arranged.Offsets[i].Mul(scale)
		childRadius := childRadii[i] * scale

		if child.IsLeaf() {
			placed = append(placed, Placed{
				Offset:   childOffset,
				Radius:   childRadius,
				Level:    layout.LevelLeaf,
				Role:     layout.RoleCircle,
				Key:      child.Key,
				Case:     child.Case,
				Category: child.Category,
				Value:    child.Value,
				Count:    child.Count,
			})
			continue
		}

		placed = append(placed, Placed{
			Offset: childOffset,
			Radius: childRadius,
			Level:  layout.LevelCase,
			Role:   layout.RoleGroup,
			Key:    child.Key,
			Case:   child.Case,
			Value:  child.Value,
			Count:  child.Count,
		})

		leaves, err := packLeaves(child, childOffset, childRadius)
		if err != nil {
			return nil, err
		}
		placed = append(placed, leaves...)
	}

	if err := verifyContainment(placed, radius); err != nil {
		return nil, err
	}
	return placed, nil
}

// packLeaves packs a case node's leaves inside its circle.
func packLeaves(cn *aggregate.Node, caseOffset geom.Point, caseRadius float64) ([]Placed, error) {
	radii := make([]float64, len(cn.Children))
	for i, leaf := range cn.Children {
		radii[i] = math.Sqrt(leaf.Value)
	}
	arranged, err := Pack(radii)
	if err != nil {
		return nil, err
	}
	scale := caseRadius / arranged.Bounding

	placed := make([]Placed, len(cn.Children))
	for i, leaf := range cn.Children {
		placed[i] = Placed{
			Offset:   caseOffset.Add(arranged.Offsets[i].Mul(scale)),
			Radius:   radii[i] * scale,
			Level:    layout.LevelLeaf,
			Role:     layout.RoleCircle,
			Key:      leaf.Key,
			Case:     leaf.Case,
			Category: leaf.Category,
			Value:    leaf.Value,
			Count:    leaf.Count,
		}
	}
	return placed, nil
}

// verifyContainment checks that every non-root circle lies inside the root
// enclosure. The construction guarantees it; a violation means numerical
// degeneracy, which must surface as a layout error rather than a corrupt
// arrangement.
func verifyContainment(placed []Placed, radius float64) error {
	const tol = 1e-6
	for _, p := range placed[1:] {
		if p.Offset.Norm()+p.Radius > radius*(1+tol)+tol {
			return errors.New(errors.ErrCodeContainment,
				"circle %q exceeds its enclosure: %v + %v > %v", p.Key, p.Offset.Norm(), p.Radius, radius)
		}
	}
	return nil
}
