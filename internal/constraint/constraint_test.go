package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/domain"
)

func child(x, y, w, h float64, hc domain.HConstraint, vc domain.VConstraint) domain.Element {
	return domain.Element{
		X: x, Y: y, Width: w, Height: h,
		Constraints: domain.Constraints{Horizontal: hc, Vertical: vc},
	}
}

func TestApplyToChild_PerKind(t *testing.T) {
	oldP := domain.Size{Width: 400, Height: 300}
	newP := domain.Size{Width: 600, Height: 450}

	tests := []struct {
		name string
		el   domain.Element
		want domain.Rect
	}{
		{"left/top unchanged", child(20, 30, 100, 50, domain.HLeft, domain.VTop), domain.Rect{X: 20, Y: 30, Width: 100, Height: 50}},
		{"right/bottom shift by delta", child(20, 30, 100, 50, domain.HRight, domain.VBottom), domain.Rect{X: 220, Y: 180, Width: 100, Height: 50}},
		{"center keeps offset from center", child(150, 125, 100, 50, domain.HCenter, domain.VCenter), domain.Rect{X: 250, Y: 200, Width: 100, Height: 50}},
		{"scale proportional", child(40, 30, 100, 60, domain.HScale, domain.VScale), domain.Rect{X: 60, Y: 45, Width: 150, Height: 90}},
		{"stretch absorbs delta", child(20, 30, 100, 50, domain.HStretch, domain.VStretch), domain.Rect{X: 20, Y: 30, Width: 300, Height: 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyToChild(tt.el, oldP, newP))
		})
	}
}

func TestApplyToChild_StretchPreservesTrailingDistance(t *testing.T) {
	oldP := domain.Size{Width: 500, Height: 400}
	for _, newW := range []float64{260, 350, 500, 733, 1200} {
		newP := domain.Size{Width: newW, Height: newW * 0.8}
		c := child(40, 25, 300, 200, domain.HStretch, domain.VStretch)
		got := ApplyToChild(c, oldP, newP)

		assert.Equal(t, c.X, got.X)
		assert.Equal(t, oldP.Width-c.X-c.Width, newP.Width-got.X-got.Width, "trailing x at width %v", newW)
		assert.Equal(t, c.Y, got.Y)
		assert.InDelta(t, oldP.Height-c.Y-c.Height, newP.Height-got.Y-got.Height, 0.5)
	}
}

func TestApplyToChild_ScaleRatioWithinRounding(t *testing.T) {
	oldP := domain.Size{Width: 370, Height: 290}
	newP := domain.Size{Width: 911, Height: 123}
	c := child(73, 41, 120, 80, domain.HScale, domain.VScale)
	got := ApplyToChild(c, oldP, newP)

	assert.InDelta(t, c.X/oldP.Width, got.X/newP.Width, 1/newP.Width)
	assert.InDelta(t, c.Y/oldP.Height, got.Y/newP.Height, 1/newP.Height)
}

func TestApplyToChild_ShrinkClampsToMinSize(t *testing.T) {
	c := child(10, 10, 50, 50, domain.HStretch, domain.VStretch)
	got := ApplyToChild(c, domain.Size{Width: 100, Height: 100}, domain.Size{Width: 20, Height: 20})
	assert.Equal(t, domain.MinSize, got.Width)
	assert.Equal(t, domain.MinSize, got.Height)
}

func TestApplyToChild_ZeroParentFallsBackToStart(t *testing.T) {
	c := child(10, 20, 30, 40, domain.HScale, domain.VCenter)
	got := ApplyToChild(c, domain.Size{Width: 0, Height: 0}, domain.Size{Width: 300, Height: 300})
	assert.Equal(t, domain.Rect{X: 10, Y: 20, Width: 30, Height: 40}, got)
}

// memTree is a minimal Tree used to exercise propagation without the store.
type memTree map[string]domain.Element

func (m memTree) Element(id string) (domain.Element, bool) {
	e, ok := m[id]
	return e, ok
}

func (m memTree) Update(id string, p domain.Patch) bool {
	e, ok := m[id]
	if !ok || e.Locked {
		return false
	}
	p.Apply(&e)
	m[id] = e
	return true
}

func TestPropagateResize_RecursesAndSkipsLocked(t *testing.T) {
	tree := memTree{
		"root":   {ID: "root", Width: 400, Height: 400, ChildIDs: []string{"panel", "pinned", "locked"}},
		"panel":  {ID: "panel", ParentID: "root", X: 0, Y: 0, Width: 400, Height: 100, ChildIDs: []string{"leaf"}, Constraints: domain.Constraints{Horizontal: domain.HStretch, Vertical: domain.VTop}},
		"leaf":   {ID: "leaf", ParentID: "panel", X: 350, Y: 10, Width: 40, Height: 40, Constraints: domain.Constraints{Horizontal: domain.HRight, Vertical: domain.VTop}},
		"pinned": {ID: "pinned", ParentID: "root", X: 10, Y: 10, Width: 10, Height: 10, Constraints: domain.DefaultConstraints()},
		"locked": {ID: "locked", ParentID: "root", X: 300, Y: 300, Width: 50, Height: 50, Locked: true, Constraints: domain.Constraints{Horizontal: domain.HRight, Vertical: domain.VBottom}},
	}

	changed := PropagateResize(tree, "root", domain.Size{Width: 400, Height: 400}, domain.Size{Width: 600, Height: 400})

	require.Equal(t, []string{"panel", "leaf"}, changed)
	assert.Equal(t, 600.0, tree["panel"].Width)
	assert.Equal(t, 550.0, tree["leaf"].X)
	assert.Equal(t, 300.0, tree["locked"].X)
	assert.Equal(t, 10.0, tree["pinned"].X)
}

func TestPropagateResize_NoopOnSameSizeOrMissingParent(t *testing.T) {
	tree := memTree{"p": {ID: "p", ChildIDs: []string{"c"}}, "c": {ID: "c", Constraints: domain.Constraints{Horizontal: domain.HRight, Vertical: domain.VTop}}}
	s := domain.Size{Width: 10, Height: 10}
	assert.Empty(t, PropagateResize(tree, "p", s, s))
	assert.Empty(t, PropagateResize(tree, "missing", s, domain.Size{Width: 20, Height: 20}))
}
