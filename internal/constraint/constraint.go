// Package constraint computes how children follow a resized parent.
//
// Each axis is handled independently: start-pinned, end-pinned, centered,
// proportionally scaled, or stretched between both edges. Results are rounded
// to whole units and sizes never drop below domain.MinSize.
package constraint

import (
	"math"

	"pagecraft/internal/domain"
)

// Tree is the read/update surface PropagateResize needs. The element store
// implements it; the engine itself never mutates state.
type Tree interface {
	Element(id string) (domain.Element, bool)
	Update(id string, p domain.Patch) bool
}

// ApplyToChild returns the child's new parent-relative geometry after its
// parent changes size from oldParent to newParent.
func ApplyToChild(child domain.Element, oldParent, newParent domain.Size) domain.Rect {
	x, w := axis(child.X, child.Width, oldParent.Width, newParent.Width, horizontalKind(child.Constraints.Horizontal))
	y, h := axis(child.Y, child.Height, oldParent.Height, newParent.Height, verticalKind(child.Constraints.Vertical))
	return domain.Rect{X: x, Y: y, Width: w, Height: h}
}

type kind int

const (
	pinStart kind = iota
	pinEnd
	center
	scale
	stretch
)

func horizontalKind(c domain.HConstraint) kind {
	switch c {
	case domain.HRight:
		return pinEnd
	case domain.HCenter:
		return center
	case domain.HScale:
		return scale
	case domain.HStretch:
		return stretch
	}
	return pinStart
}

func verticalKind(c domain.VConstraint) kind {
	switch c {
	case domain.VBottom:
		return pinEnd
	case domain.VCenter:
		return center
	case domain.VScale:
		return scale
	case domain.VStretch:
		return stretch
	}
	return pinStart
}

// axis resolves one dimension. A zero or negative old parent extent cannot be
// scaled from, so every kind degrades to pinStart in that case.
func axis(start, size, oldP, newP float64, k kind) (float64, float64) {
	if oldP <= 0 {
		k = pinStart
	}
	delta := newP - oldP

	switch k {
	case pinEnd:
		start += delta
	case center:
		offset := (start + size/2) - oldP/2
		start = newP/2 + offset - size/2
	case scale:
		ratio := newP / oldP
		start *= ratio
		size *= ratio
	case stretch:
		size += delta
	}

	return math.Round(start), math.Max(math.Round(size), domain.MinSize)
}

// PropagateResize re-lays out the direct children of parentID after it was
// resized from oldSize to newSize, then recurses into every child whose own
// size changed. Locked children are left alone. It returns the ids it moved
// or resized, in visit order.
func PropagateResize(t Tree, parentID string, oldSize, newSize domain.Size) []string {
	if oldSize == newSize {
		return nil
	}
	parent, ok := t.Element(parentID)
	if !ok {
		return nil
	}

	var changed []string
	for _, cid := range parent.ChildIDs {
		child, ok := t.Element(cid)
		if !ok || child.Locked {
			continue
		}
		next := ApplyToChild(child, oldSize, newSize)
		if next == child.Rect() {
			continue
		}
		if !t.Update(cid, domain.Geometry(next)) {
			continue
		}
		changed = append(changed, cid)

		if next.Size() != child.Size() {
			changed = append(changed, PropagateResize(t, cid, child.Size(), next.Size())...)
		}
	}
	return changed
}
