package service

import (
	"go.uber.org/zap"

	"pagecraft/internal/domain"
	"pagecraft/internal/snap"
)

// ── Drag gesture ───────────────────────────────────────────

// dragState is the frozen context of one drag. Candidates are the moving
// element's siblings in canvas space; they do not move during the gesture.
type dragState struct {
	id         string
	origin     domain.Rect // canvas-space rect at BeginDrag
	parentX    float64
	parentY    float64
	candidates []snap.Candidate
	canvas     *domain.Rect
}

// BeginDrag opens a move gesture on id. All DragTo calls until EndDrag form
// a single undo step. It reports false for missing or locked elements and
// when another drag is open.
func (s *Session) BeginDrag(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		return false
	}
	el, ok := s.store.Element(id)
	if !ok || el.Locked {
		return false
	}
	abs, _ := s.store.AbsoluteRect(id)
	d := &dragState{id: id, origin: abs}

	siblings := s.store.RootIDs()
	if el.ParentID != "" {
		parent, _ := s.store.AbsoluteRect(el.ParentID)
		d.parentX, d.parentY = parent.X, parent.Y
		d.canvas = &parent
		siblings = s.store.Children(el.ParentID)
	} else if s.editor.CanvasWidth > 0 {
		d.canvas = s.artboard(id)
	}
	for _, sid := range siblings {
		if sid == id {
			continue
		}
		r, _ := s.store.AbsoluteRect(sid)
		sib, _ := s.store.Element(sid)
		d.candidates = append(d.candidates, snap.Candidate{ID: sid, Rect: r, Hidden: sib.Hidden})
	}

	s.history.BeginBatch("move")
	s.drag = d
	s.log.Debug("drag started", zap.String("id", id), zap.Int("candidates", len(d.candidates)))
	return true
}

// artboard is the page area top-level drags snap to: editor.canvas_width
// wide from the origin, reaching down to the lowest other visible root.
func (s *Session) artboard(exclude string) *domain.Rect {
	var bottom float64
	for _, rid := range s.store.RootIDs() {
		e, _ := s.store.Element(rid)
		if rid == exclude || e.Hidden {
			continue
		}
		bottom = max(bottom, e.Rect().Bottom())
	}
	return &domain.Rect{Width: s.editor.CanvasWidth, Height: bottom}
}

// DragTo moves the dragged element so its top-left corner sits at (x, y) in
// canvas space, corrected by snapping when it is enabled. The result holds
// the applied position and the guides to draw.
func (s *Session) DragTo(x, y float64) (snap.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.drag
	if d == nil {
		return snap.Result{}, false
	}
	moving := domain.Rect{X: x, Y: y, Width: d.origin.Width, Height: d.origin.Height}
	res := snap.Result{X: x, Y: y}
	if s.store.Viewport().SnapEnabled {
		opts := s.snapOptions()
		opts.Canvas = d.canvas
		res = snap.Snap(moving, d.candidates, []string{d.id}, opts)
	}
	if s.store.Update(d.id, domain.MoveTo(res.X-d.parentX, res.Y-d.parentY)) {
		s.dirty = true
	}
	return res, true
}

// DragBy moves the dragged element by (dx, dy) from where the drag began.
func (s *Session) DragBy(dx, dy float64) (snap.Result, bool) {
	s.mu.Lock()
	d := s.drag
	s.mu.Unlock()
	if d == nil {
		return snap.Result{}, false
	}
	return s.DragTo(d.origin.X+dx, d.origin.Y+dy)
}

// EndDrag closes the gesture. A drag that ends where it began leaves no undo step.
func (s *Session) EndDrag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return false
	}
	s.endDrag()
	return true
}

func (s *Session) endDrag() {
	s.history.EndBatch()
	s.log.Debug("drag ended", zap.String("id", s.drag.id))
	s.drag = nil
}

// Dragging reports whether a drag gesture is open.
func (s *Session) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag != nil
}
