package store

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/domain"
	"pagecraft/internal/events"
)

func newTestStore(t *testing.T) (*Store, *events.Recorder) {
	t.Helper()
	n := 0
	s := New(WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("e%d", n)
	}))
	rec := &events.Recorder{}
	s.Events().SubscribeAll(rec.Listen)
	return s, rec
}

func box(x, y, w, h float64) domain.Element {
	return domain.Element{X: x, Y: y, Width: w, Height: h, Style: domain.DefaultStyle(), Constraints: domain.DefaultConstraints()}
}

// checkHierarchy asserts parentId == "" <=> id in rootIds, and that every id
// appears in exactly one container.
func checkHierarchy(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.Validate())
	roots := map[string]bool{}
	for _, id := range s.RootIDs() {
		roots[id] = true
	}
	for _, e := range s.Elements() {
		assert.Equal(t, e.ParentID == "", roots[e.ID], "element %s", e.ID)
	}
}

func TestAdd_RootAndChild(t *testing.T) {
	s, rec := newTestStore(t)

	root := s.Add(box(0, 0, 400, 300), "")
	child := s.Add(box(10, 10, 50, 50), root)

	require.Equal(t, "e1", root)
	require.Equal(t, "e2", child)
	assert.Equal(t, []string{root}, s.RootIDs())
	assert.Equal(t, []string{child}, s.Children(root))

	c, ok := s.Element(child)
	require.True(t, ok)
	assert.Equal(t, root, c.ParentID)
	assert.Equal(t, []events.Topic{events.ElementAdded, events.ElementAdded}, rec.Topics())
	checkHierarchy(t, s)
}

func TestAdd_MissingParentIsNoop(t *testing.T) {
	s, rec := newTestStore(t)
	assert.Empty(t, s.Add(box(0, 0, 10, 10), "nope"))
	assert.Zero(t, s.Len())
	assert.Empty(t, rec.Events)
}

func TestAdd_ClampsSizeAndIgnoresHierarchyFields(t *testing.T) {
	s, _ := newTestStore(t)
	def := box(0, 0, 0, -3)
	def.ID = "forged"
	def.ChildIDs = []string{"ghost"}
	id := s.Add(def, "")

	e, _ := s.Element(id)
	assert.Equal(t, "e1", e.ID)
	assert.Empty(t, e.ChildIDs)
	assert.Equal(t, domain.MinSize, e.Width)
	assert.Equal(t, domain.MinSize, e.Height)
}

func TestElement_ReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.Add(box(0, 0, 10, 10), "")
	e, _ := s.Element(id)
	e.X = 999
	got, _ := s.Element(id)
	assert.Equal(t, 0.0, got.X)
}

func TestUpdate_LockedRejectsAllButUnlock(t *testing.T) {
	s, rec := newTestStore(t)
	id := s.Add(box(0, 0, 10, 10), "")
	require.True(t, s.Update(id, domain.Patch{Locked: domain.Bool(true)}))
	rec.Reset()

	assert.False(t, s.Update(id, domain.MoveTo(5, 5)))
	assert.False(t, s.Update(id, domain.Patch{Locked: domain.Bool(false), X: domain.Float(1)}))
	assert.Empty(t, rec.Events)

	assert.True(t, s.Update(id, domain.Patch{Locked: domain.Bool(false)}))
	assert.True(t, s.Update(id, domain.MoveTo(5, 5)))
	e, _ := s.Element(id)
	assert.Equal(t, 5.0, e.X)
	assert.Equal(t, []events.Topic{events.ElementUpdated, events.ElementUpdated}, rec.Topics())
	assert.Equal(t, []string{id}, rec.Events[1].IDs)
}

func TestUpdate_MissingOrEmptyIsNoop(t *testing.T) {
	s, rec := newTestStore(t)
	id := s.Add(box(0, 0, 10, 10), "")
	rec.Reset()
	assert.False(t, s.Update("missing", domain.MoveTo(1, 1)))
	assert.False(t, s.Update(id, domain.Patch{}))
	assert.Empty(t, rec.Events)
}

func TestRemove_CascadesAndPrunesSelection(t *testing.T) {
	s, rec := newTestStore(t)
	a := s.Add(box(0, 0, 100, 100), "")
	b := s.Add(box(0, 0, 50, 50), a)
	c := s.Add(box(0, 0, 10, 10), b)
	d := s.Add(box(200, 0, 10, 10), "")
	s.SetSelection(c, d)
	rec.Reset()

	require.True(t, s.Remove(a))

	assert.Equal(t, []string{d}, s.RootIDs())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{d}, s.Selection())
	require.Len(t, rec.Events, 2)
	assert.Equal(t, events.SelectionChanged, rec.Events[0].Topic)
	assert.Equal(t, events.ElementRemoved, rec.Events[1].Topic)
	assert.Equal(t, []string{c, b, a}, rec.Events[1].IDs)
	checkHierarchy(t, s)

	rec.Reset()
	assert.False(t, s.Remove(a))
	assert.Empty(t, rec.Events)
}

func TestRemove_RefusesLockedSubtree(t *testing.T) {
	s, rec := newTestStore(t)
	locked := s.Add(box(0, 0, 100, 100), "")
	inner := s.Add(box(0, 0, 10, 10), locked)
	require.True(t, s.Update(locked, domain.Patch{Locked: domain.Bool(true)}))

	parent := s.Add(box(200, 0, 100, 100), "")
	child := s.Add(box(0, 0, 10, 10), parent)
	require.True(t, s.Update(child, domain.Patch{Locked: domain.Bool(true)}))
	rec.Reset()

	assert.False(t, s.Remove(locked))
	assert.False(t, s.Remove(parent), "a locked descendant blocks the cascade")
	assert.Equal(t, 4, s.Len())
	assert.True(t, s.Has(inner))
	assert.True(t, s.Has(child))
	assert.Empty(t, rec.Events)
	checkHierarchy(t, s)

	require.True(t, s.Update(child, domain.Patch{Locked: domain.Bool(false)}))
	assert.True(t, s.Remove(parent))
	assert.False(t, s.Has(child))
	checkHierarchy(t, s)
}

func TestDuplicate_DeepCloneAsNextSibling(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.Add(box(0, 0, 500, 500), "")
	a := s.Add(box(10, 20, 100, 100), p)
	s.Add(box(5, 5, 10, 10), a)
	last := s.Add(box(300, 300, 10, 10), p)

	clone := s.Duplicate(a, 20, 30)

	require.NotEmpty(t, clone)
	assert.Equal(t, []string{a, clone, last}, s.Children(p))
	ce, _ := s.Element(clone)
	assert.Equal(t, 30.0, ce.X)
	assert.Equal(t, 50.0, ce.Y)
	assert.Equal(t, 1, ce.ZIndex)
	require.Len(t, ce.ChildIDs, 1)

	orig, _ := s.Element(a)
	assert.NotEqual(t, orig.ChildIDs[0], ce.ChildIDs[0])
	grand, _ := s.Element(ce.ChildIDs[0])
	assert.Equal(t, clone, grand.ParentID)
	assert.Equal(t, 5.0, grand.X)
	checkHierarchy(t, s)

	assert.Empty(t, s.Duplicate("missing", 0, 0))
}

func TestZOrder(t *testing.T) {
	s, rec := newTestStore(t)
	a := s.Add(box(0, 0, 10, 10), "")
	b := s.Add(box(0, 0, 10, 10), "")
	c := s.Add(box(0, 0, 10, 10), "")
	rec.Reset()

	require.True(t, s.BringToFront(a))
	assert.Equal(t, []string{b, c, a}, s.RootIDs())
	require.True(t, s.SendBackward(a))
	assert.Equal(t, []string{b, a, c}, s.RootIDs())
	require.True(t, s.SendToBack(c))
	assert.Equal(t, []string{c, b, a}, s.RootIDs())
	require.True(t, s.BringForward(c))
	assert.Equal(t, []string{b, c, a}, s.RootIDs())

	assert.False(t, s.BringToFront(a), "already on top")
	assert.False(t, s.SendToBack(b), "already at bottom")
	assert.Len(t, rec.Events, 4)

	for i, id := range s.RootIDs() {
		e, _ := s.Element(id)
		assert.Equal(t, i, e.ZIndex, "zIndex of %s", id)
	}
}

func TestZOrder_StaysInsideContainer(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.Add(box(0, 0, 100, 100), "")
	x := s.Add(box(0, 0, 10, 10), p)
	y := s.Add(box(0, 0, 10, 10), p)
	other := s.Add(box(0, 0, 10, 10), "")

	s.SendToBack(y)
	assert.Equal(t, []string{y, x}, s.Children(p))
	assert.Equal(t, []string{p, other}, s.RootIDs())
}

func TestSelection_ValidatedAgainstExistingIDs(t *testing.T) {
	s, rec := newTestStore(t)
	a := s.Add(box(0, 0, 10, 10), "")
	b := s.Add(box(0, 0, 10, 10), "")
	hidden := s.Add(box(0, 0, 10, 10), "")
	s.Update(hidden, domain.Patch{Hidden: domain.Bool(true)})
	rec.Reset()

	s.SetSelection(a, "ghost", a)
	assert.Equal(t, []string{a}, s.Selection())
	s.AddToSelection(b, "ghost")
	assert.Equal(t, []string{a, b}, s.Selection())
	s.AddToSelection(a)
	s.ToggleSelection(a)
	assert.Equal(t, []string{b}, s.Selection())
	s.ClearSelection()
	s.ClearSelection()
	assert.Empty(t, s.Selection())
	s.SelectAll()
	assert.Equal(t, []string{a, b}, s.Selection())

	for _, topic := range rec.Topics() {
		assert.Equal(t, events.SelectionChanged, topic)
	}
	assert.Len(t, rec.Events, 5)
}

func TestAbsoluteRect_SumsAncestorOffsets(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.Add(box(100, 50, 400, 400), "")
	b := s.Add(box(20, 30, 200, 200), a)
	c := s.Add(box(5, 7, 10, 10), b)

	r, ok := s.AbsoluteRect(c)
	require.True(t, ok)
	assert.Equal(t, domain.Rect{X: 125, Y: 87, Width: 10, Height: 10}, r)

	_, ok = s.AbsoluteRect("missing")
	assert.False(t, ok)
}

func TestHitTest_TopmostVisible(t *testing.T) {
	s, _ := newTestStore(t)
	bottom := s.Add(box(0, 0, 100, 100), "")
	top := s.Add(box(50, 50, 100, 100), "")
	inner := s.Add(box(10, 10, 20, 20), top)

	id, ok := s.HitTest(65, 65)
	require.True(t, ok)
	assert.Equal(t, inner, id)

	id, _ = s.HitTest(55, 55)
	assert.Equal(t, top, id)

	s.Update(top, domain.Patch{Hidden: domain.Bool(true)})
	id, _ = s.HitTest(55, 55)
	assert.Equal(t, bottom, id)

	_, ok = s.HitTest(500, 500)
	assert.False(t, ok)
}

func TestDrawBox_NormalisesAndDiscardsDegenerate(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Empty(t, s.DrawBox(domain.Rect{X: 10, Y: 10, Width: 4, Height: 100}, ""))

	id := s.DrawBox(domain.Rect{X: 110, Y: 90, Width: -100, Height: -40}, "")
	require.NotEmpty(t, id)
	e, _ := s.Element(id)
	assert.Equal(t, domain.Rect{X: 10, Y: 50, Width: 100, Height: 40}, e.Rect())

	child := s.DrawBox(domain.Rect{X: 20, Y: 60, Width: 30, Height: 10}, id)
	c, _ := s.Element(child)
	assert.Equal(t, domain.Rect{X: 10, Y: 10, Width: 30, Height: 10}, c.Rect())
}

func TestResize_PropagatesToChildren(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.Add(box(0, 0, 400, 200), "")
	right := box(350, 10, 40, 40)
	right.Constraints.Horizontal = domain.HRight
	c := s.Add(right, p)

	changed, ok := s.Resize(p, 600, 200)
	require.True(t, ok)
	assert.Equal(t, []string{c}, changed)
	e, _ := s.Element(c)
	assert.Equal(t, 550.0, e.X)

	s.Update(p, domain.Patch{Locked: domain.Bool(true)})
	_, ok = s.Resize(p, 100, 100)
	assert.False(t, ok)
}

func TestReparent_KeepsCanvasPosition(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.Add(box(100, 100, 300, 300), "")
	b := s.Add(box(500, 0, 300, 300), "")
	c := s.Add(box(10, 20, 30, 30), a)

	before, _ := s.AbsoluteRect(c)
	require.True(t, s.Reparent(c, b))
	after, _ := s.AbsoluteRect(c)
	assert.Equal(t, before, after)
	assert.Empty(t, s.Children(a))
	assert.Equal(t, []string{c}, s.Children(b))

	require.True(t, s.Reparent(c, ""))
	assert.Equal(t, []string{a, b, c}, s.RootIDs())

	assert.False(t, s.Reparent(a, a), "into itself")
	s.Reparent(b, a)
	assert.False(t, s.Reparent(a, b), "into own descendant")
	checkHierarchy(t, s)
}

func TestAnnotate_AppliesToLocked(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.Add(box(0, 0, 10, 10), "")
	s.Update(id, domain.Patch{Locked: domain.Bool(true)})

	require.True(t, s.Annotate(id, domain.Semantics{Role: domain.RoleHeader, HTMLTag: "header"}))
	e, _ := s.Element(id)
	assert.Equal(t, domain.RoleHeader, e.Role)
	assert.False(t, s.Annotate("missing", domain.Semantics{}))
}

func TestViewport_Setters(t *testing.T) {
	s, rec := newTestStore(t)

	s.SetZoom(100)
	assert.Equal(t, domain.DefaultMaxZoom, s.Viewport().Zoom)
	s.SetZoom(0)
	assert.Equal(t, domain.DefaultMinZoom, s.Viewport().Zoom)

	s.SetZoom(1)
	s.SetPan(0, 0)
	wx, wy := s.Viewport().ScreenToWorld(200, 100)
	s.ZoomAt(2, 200, 100)
	gx, gy := s.Viewport().ScreenToWorld(200, 100)
	assert.InDelta(t, wx, gx, 1e-9)
	assert.InDelta(t, wy, gy, 1e-9)
	assert.Equal(t, 2.0, s.Viewport().Zoom)

	s.SetTool(domain.ToolDraw)
	s.SetTool("laser")
	assert.Equal(t, domain.ToolDraw, s.Viewport().Tool)

	s.SetGrid(-1, false)
	assert.Equal(t, domain.DefaultGridSize, s.Viewport().GridSize)
	assert.False(t, s.Viewport().GridVisible)

	for _, topic := range rec.Topics() {
		assert.Equal(t, events.ViewportChanged, topic)
	}
}

func TestSnapshotRestore(t *testing.T) {
	s, rec := newTestStore(t)
	a := s.Add(box(0, 0, 10, 10), "")
	s.SetSelection(a)
	snap := s.Snapshot()

	s.Update(a, domain.MoveTo(50, 50))
	s.Add(box(0, 0, 10, 10), "")
	assert.False(t, snap.Equal(s.Snapshot()))

	rec.Reset()
	s.Restore(snap)
	assert.True(t, snap.Equal(s.Snapshot()))
	assert.Equal(t, []events.Topic{events.StateReplaced}, rec.Topics())

	// mutating after restore must not leak into the snapshot
	s.Update(a, domain.MoveTo(1, 1))
	assert.False(t, snap.Equal(s.Snapshot()))
}

func buildSample(t *testing.T, s *Store) {
	t.Helper()
	hdr := box(0, 0, 1200, 80)
	hdr.Name = "Header"
	hdr.Style.Shadow = &domain.Shadow{OffsetY: 2, Blur: 8, Color: "#000000", Alpha: 0.2}
	hdr.Semantics = domain.Semantics{Role: domain.RoleHeader, HTMLTag: "header", CSSClass: "header"}
	h := s.Add(hdr, "")
	logo := box(16, 16, 120, 48)
	logo.Style.Text = "Acme"
	logo.Constraints = domain.Constraints{Horizontal: domain.HLeft, Vertical: domain.VCenter}
	s.Add(logo, h)
	body := s.Add(box(0, 80, 1200, 600), "")
	s.Add(box(40, 40, 300, 400), body)
	s.SetPan(-30, 12.5)
	s.SetZoom(1.5)
}

func TestJSON_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	buildSample(t, s)

	data, err := s.ToJSON()
	require.NoError(t, err)

	loaded := New()
	require.NoError(t, loaded.FromJSON(data))

	opts := cmpopts.EquateEmpty()
	if diff := cmp.Diff(s.Elements(), loaded.Elements(), opts); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, s.RootIDs(), loaded.RootIDs())
	assert.Equal(t, s.Viewport(), loaded.Viewport())
	checkHierarchy(t, loaded)
}

func TestFromJSON_RejectsWholesale(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"version":1,`},
		{"version", `{"version":9,"elements":[],"rootIds":[]}`},
		{"duplicate id", `{"version":1,"elements":[{"id":"a","width":1,"height":1},{"id":"a","width":1,"height":1}],"rootIds":["a"]}`},
		{"root with parent", `{"version":1,"elements":[{"id":"a","parentId":"b","width":1,"height":1},{"id":"b","width":1,"height":1}],"rootIds":["a","b"]}`},
		{"orphan", `{"version":1,"elements":[{"id":"a","width":1,"height":1}],"rootIds":[]}`},
		{"unknown child", `{"version":1,"elements":[{"id":"a","childIds":["x"],"width":1,"height":1}],"rootIds":["a"]}`},
		{"cycle", `{"version":1,"elements":[{"id":"a","parentId":"b","childIds":["b"],"width":1,"height":1},{"id":"b","parentId":"a","childIds":["a"],"width":1,"height":1}],"rootIds":[]}`},
		{"zero width", `{"version":1,"elements":[{"id":"a","width":0,"height":1}],"rootIds":["a"]}`},
		{"bad constraint", `{"version":1,"elements":[{"id":"a","width":1,"height":1,"constraints":{"horizontal":"diagonal","vertical":"top"}}],"rootIds":["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := newTestStore(t)
			keep := s.Add(box(0, 0, 10, 10), "")
			rec.Reset()

			err := s.FromJSON([]byte(tt.json))
			require.Error(t, err)
			if tt.name == "version" {
				assert.ErrorIs(t, err, ErrUnsupportedVersion)
			} else {
				assert.ErrorIs(t, err, ErrInvalidProject)
			}
			assert.Equal(t, []string{keep}, s.RootIDs())
			assert.Empty(t, rec.Events)
		})
	}
}
