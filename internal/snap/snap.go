// Package snap computes magnetic alignment for a rectangle being dragged.
//
// Snap is a pure function: it never touches the element store. Per axis the
// priority is element alignment, then canvas edges and center, then the grid.
// Equal-spacing guides are advisory and never move the rectangle.
package snap

import (
	"cmp"
	"math"
	"slices"

	"pagecraft/internal/domain"
)

// DefaultThreshold is the snap distance in screen pixels.
const DefaultThreshold = 6.0

type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

type GuideKind string

const (
	GuideAlignment GuideKind = "alignment"
	GuideSpacing   GuideKind = "spacing"
	GuideCanvas    GuideKind = "canvas"
)

// Guide is a transient hint for the render layer. Position is the world
// coordinate of the guide line on Axis; Gap is set for spacing guides.
type Guide struct {
	Kind     GuideKind `json:"kind"`
	Axis     Axis      `json:"axis"`
	Position float64   `json:"position"`
	Gap      float64   `json:"gap,omitempty"`
	TargetID string    `json:"targetId,omitempty"`
}

// Candidate is a rectangle the moving one may align to, in the same
// coordinate space as the moving rectangle.
type Candidate struct {
	ID     string
	Rect   domain.Rect
	Hidden bool
}

type Options struct {
	// Threshold in screen pixels; divided by Zoom to get world units.
	Threshold  float64
	Zoom       float64
	GridSize   float64
	SnapToGrid bool
	// Canvas, when set, adds its edges and center as snap targets.
	Canvas *domain.Rect
}

func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Zoom: 1, GridSize: domain.DefaultGridSize}
}

// Result is the corrected top-left corner plus the guides to draw.
type Result struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Guides   []Guide `json:"guides"`
	SnappedX bool    `json:"snappedX"`
	SnappedY bool    `json:"snappedY"`
}

// WorldThreshold converts the pixel threshold to canvas units at the given zoom.
func (o Options) WorldThreshold() float64 {
	z := o.Zoom
	if z <= 0 || math.IsNaN(z) {
		z = 1
	}
	t := o.Threshold
	if t <= 0 {
		t = DefaultThreshold
	}
	return t / z
}

// match is the best alignment found on one axis so far.
type match struct {
	delta    float64
	position float64
	target   string
	ok       bool
}

// offer keeps the first strictly smaller distance below the threshold, so
// the outcome depends only on candidate order, never on map iteration.
func (m *match) offer(from, to, threshold float64, target string) {
	d := to - from
	if math.Abs(d) >= threshold {
		return
	}
	if m.ok && math.Abs(d) >= math.Abs(m.delta) {
		return
	}
	*m = match{delta: d, position: to, target: target, ok: true}
}

// edges returns start, end and center along one axis.
func edges(r domain.Rect, a Axis) (float64, float64, float64) {
	if a == AxisX {
		return r.X, r.Right(), r.CenterX()
	}
	return r.Y, r.Bottom(), r.CenterY()
}

// align evaluates the five cases against one target rectangle: start to
// start, end to end, start to end, end to start and center to center.
func align(m *match, moving, target domain.Rect, a Axis, threshold float64, id string) {
	ms, me, mc := edges(moving, a)
	ts, te, tc := edges(target, a)
	m.offer(ms, ts, threshold, id)
	m.offer(me, te, threshold, id)
	m.offer(ms, te, threshold, id)
	m.offer(me, ts, threshold, id)
	m.offer(mc, tc, threshold, id)
}

// Snap corrects moving against candidates. Candidates whose id is in exclude
// and hidden candidates are ignored.
func Snap(moving domain.Rect, candidates []Candidate, exclude []string, opts Options) Result {
	threshold := opts.WorldThreshold()
	targets := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Hidden || slices.Contains(exclude, c.ID) {
			continue
		}
		targets = append(targets, c)
	}

	res := Result{X: moving.X, Y: moving.Y}
	var mx, my match
	for _, c := range targets {
		align(&mx, moving, c.Rect, AxisX, threshold, c.ID)
		align(&my, moving, c.Rect, AxisY, threshold, c.ID)
	}
	if mx.ok {
		res.X += mx.delta
		res.SnappedX = true
		res.Guides = append(res.Guides, Guide{Kind: GuideAlignment, Axis: AxisX, Position: mx.position, TargetID: mx.target})
	}
	if my.ok {
		res.Y += my.delta
		res.SnappedY = true
		res.Guides = append(res.Guides, Guide{Kind: GuideAlignment, Axis: AxisY, Position: my.position, TargetID: my.target})
	}

	placed := moving
	placed.X, placed.Y = res.X, res.Y
	res.Guides = append(res.Guides, spacing(placed, targets, AxisX, threshold)...)
	res.Guides = append(res.Guides, spacing(placed, targets, AxisY, threshold)...)

	if opts.Canvas != nil {
		canvasSnap(&res, placed, *opts.Canvas, threshold)
	}

	if opts.SnapToGrid && opts.GridSize > 0 {
		if !res.SnappedX {
			res.X = math.Round(res.X/opts.GridSize) * opts.GridSize
		}
		if !res.SnappedY {
			res.Y = math.Round(res.Y/opts.GridSize) * opts.GridSize
		}
	}
	return res
}

// canvasSnap aligns edges and center to the artboard on axes that no element
// alignment claimed.
func canvasSnap(res *Result, placed, canvas domain.Rect, threshold float64) {
	for _, a := range []Axis{AxisX, AxisY} {
		if (a == AxisX && res.SnappedX) || (a == AxisY && res.SnappedY) {
			continue
		}
		var m match
		ms, me, mc := edges(placed, a)
		cs, ce, cc := edges(canvas, a)
		m.offer(ms, cs, threshold, "")
		m.offer(me, ce, threshold, "")
		m.offer(mc, cc, threshold, "")
		if !m.ok {
			continue
		}
		if a == AxisX {
			res.X += m.delta
			res.SnappedX = true
		} else {
			res.Y += m.delta
			res.SnappedY = true
		}
		res.Guides = append(res.Guides, Guide{Kind: GuideCanvas, Axis: a, Position: m.position})
	}
}

// spacing looks for equal gaps along axis a among candidates that overlap
// the moving rectangle on the other axis. Two patterns are reported: the
// moving rectangle centred between its nearest neighbours, and the moving
// rectangle continuing the rhythm of the two nearest neighbours on one side.
func spacing(placed domain.Rect, targets []Candidate, a Axis, threshold float64) []Guide {
	other := AxisY
	if a == AxisY {
		other = AxisX
	}
	ps, pe, _ := edges(placed, a)
	lo, hi, _ := edges(placed, other)

	var before, after []domain.Rect
	for _, c := range targets {
		cs, ce, _ := edges(c.Rect, other)
		if ce <= lo || cs >= hi {
			continue
		}
		ts, te, _ := edges(c.Rect, a)
		switch {
		case te <= ps:
			before = append(before, c.Rect)
		case ts >= pe:
			after = append(after, c.Rect)
		}
	}
	// nearest first; stable so equal distances keep candidate order
	slices.SortStableFunc(before, func(x, y domain.Rect) int {
		_, xe, _ := edges(x, a)
		_, ye, _ := edges(y, a)
		return cmp.Compare(ye, xe)
	})
	slices.SortStableFunc(after, func(x, y domain.Rect) int {
		xs, _, _ := edges(x, a)
		ys, _, _ := edges(y, a)
		return cmp.Compare(xs, ys)
	})

	var guides []Guide
	if len(before) > 0 && len(after) > 0 {
		_, be, _ := edges(before[0], a)
		as, _, _ := edges(after[0], a)
		g1, g2 := ps-be, as-pe
		if math.Abs(g1-g2) < threshold {
			guides = append(guides, Guide{Kind: GuideSpacing, Axis: a, Position: (be + as) / 2, Gap: (g1 + g2) / 2})
		}
	}
	if len(before) > 1 {
		n0s, n0e, _ := edges(before[0], a)
		_, n1e, _ := edges(before[1], a)
		near, far := ps-n0e, n0s-n1e
		if far >= 0 && math.Abs(near-far) < threshold {
			guides = append(guides, Guide{Kind: GuideSpacing, Axis: a, Position: n0e + near/2, Gap: near})
		}
	}
	if len(after) > 1 {
		n0s, n0e, _ := edges(after[0], a)
		n1s, _, _ := edges(after[1], a)
		near, far := n0s-pe, n1s-n0e
		if far >= 0 && math.Abs(near-far) < threshold {
			guides = append(guides, Guide{Kind: GuideSpacing, Axis: a, Position: pe + near/2, Gap: near})
		}
	}
	return guides
}
