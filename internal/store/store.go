// Package store owns the element tree of an editing session.
//
// The Store is the single writer of element state: every other component
// reads from it or computes a patch that the Store applies. Each mutation
// completes synchronously and emits its change notification before returning.
// A Store is not safe for concurrent use.
package store

import (
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagecraft/internal/constraint"
	"pagecraft/internal/domain"
	"pagecraft/internal/events"
)

// Store holds elements, z-ordered root ids, selection and viewport.
type Store struct {
	elements  map[string]*domain.Element
	rootIDs   []string
	selection []string
	viewport  domain.Viewport

	minZoom     float64
	maxZoom     float64
	minDrawSize float64

	bus   *events.Dispatcher
	newID func() string
	log   *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default UUID generator. Generated ids must be unique.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l.Named("store") }
}

// WithDispatcher shares an existing dispatcher instead of creating one.
func WithDispatcher(d *events.Dispatcher) Option {
	return func(s *Store) { s.bus = d }
}

// WithZoomLimits overrides the default [0.05, 8] zoom clamp.
func WithZoomLimits(min, max float64) Option {
	return func(s *Store) { s.minZoom, s.maxZoom = min, max }
}

// WithViewport sets the initial viewport.
func WithViewport(v domain.Viewport) Option {
	return func(s *Store) { s.viewport = v }
}

// WithMinDrawSize sets the side below which drawn boxes are discarded.
func WithMinDrawSize(v float64) Option {
	return func(s *Store) { s.minDrawSize = v }
}

// DefaultMinDrawSize is the smallest side a drawn box may have.
const DefaultMinDrawSize = 5.0

func New(opts ...Option) *Store {
	s := &Store{
		elements:    make(map[string]*domain.Element),
		viewport:    domain.DefaultViewport(),
		minZoom:     domain.DefaultMinZoom,
		maxZoom:     domain.DefaultMaxZoom,
		minDrawSize: DefaultMinDrawSize,
		newID:       func() string { return uuid.New().String() },
		log:         zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.bus == nil {
		s.bus = events.NewDispatcher()
	}
	s.viewport.Zoom = domain.ClampZoom(s.viewport.Zoom, s.minZoom, s.maxZoom)
	return s
}

// Events returns the dispatcher change notifications are delivered on.
func (s *Store) Events() *events.Dispatcher { return s.bus }

func (s *Store) emit(topic events.Topic, ids ...string) {
	s.bus.Emit(events.Event{Topic: topic, IDs: ids})
}

// ── Reads ──────────────────────────────────────────────────

// Element returns a copy of the element with the given id.
func (s *Store) Element(id string) (domain.Element, bool) {
	e, ok := s.elements[id]
	if !ok {
		return domain.Element{}, false
	}
	return e.Clone(), true
}

func (s *Store) Has(id string) bool {
	_, ok := s.elements[id]
	return ok
}

func (s *Store) Len() int { return len(s.elements) }

// RootIDs returns the root list in z-order, bottom first.
func (s *Store) RootIDs() []string {
	return append([]string(nil), s.rootIDs...)
}

// Children returns the child ids of id in z-order.
func (s *Store) Children(id string) []string {
	e, ok := s.elements[id]
	if !ok {
		return nil
	}
	return append([]string(nil), e.ChildIDs...)
}

// Walk visits every element depth-first in document order (parents before
// children, siblings bottom to top). Returning false skips the subtree.
func (s *Store) Walk(fn func(e domain.Element, depth int) bool) {
	var visit func(ids []string, depth int)
	visit = func(ids []string, depth int) {
		for _, id := range ids {
			e, ok := s.elements[id]
			if !ok {
				continue
			}
			if fn(e.Clone(), depth) {
				visit(e.ChildIDs, depth+1)
			}
		}
	}
	visit(s.rootIDs, 0)
}

// Elements returns copies of every element in document order.
func (s *Store) Elements() []domain.Element {
	out := make([]domain.Element, 0, len(s.elements))
	s.Walk(func(e domain.Element, _ int) bool {
		out = append(out, e)
		return true
	})
	return out
}

// AbsoluteRect resolves an element's rectangle to canvas space by summing
// the offsets of its ancestors.
func (s *Store) AbsoluteRect(id string) (domain.Rect, bool) {
	e, ok := s.elements[id]
	if !ok {
		return domain.Rect{}, false
	}
	r := e.Rect()
	seen := map[string]bool{id: true}
	for pid := e.ParentID; pid != ""; {
		p, ok := s.elements[pid]
		if !ok || seen[pid] {
			break
		}
		seen[pid] = true
		r.X += p.X
		r.Y += p.Y
		pid = p.ParentID
	}
	return r, true
}

// HitTest returns the topmost visible element containing the canvas point.
func (s *Store) HitTest(x, y float64) (string, bool) {
	var hit func(ids []string, ox, oy float64) string
	hit = func(ids []string, ox, oy float64) string {
		for i := len(ids) - 1; i >= 0; i-- {
			e, ok := s.elements[ids[i]]
			if !ok || e.Hidden {
				continue
			}
			r := e.Rect().Translate(ox, oy)
			if !r.Contains(x, y) {
				continue
			}
			if id := hit(e.ChildIDs, r.X, r.Y); id != "" {
				return id
			}
			return e.ID
		}
		return ""
	}
	id := hit(s.rootIDs, 0, 0)
	return id, id != ""
}

// ── Mutations ──────────────────────────────────────────────

// Add creates an element from def under parentID ("" for the root list) and
// returns its id. The definition's id and hierarchy fields are ignored. It is
// a no-op returning "" when parentID does not exist.
func (s *Store) Add(def domain.Element, parentID string) string {
	if parentID != "" && !s.Has(parentID) {
		return ""
	}
	e := def.Clone()
	e.ID = s.newID()
	e.ParentID = parentID
	e.ChildIDs = nil
	e.Width = math.Max(e.Width, domain.MinSize)
	e.Height = math.Max(e.Height, domain.MinSize)
	if !e.Constraints.Valid() {
		e.Constraints = domain.DefaultConstraints()
	}
	s.elements[e.ID] = &e
	s.attach(e.ID, parentID, -1)

	s.log.Debug("element added", zap.String("id", e.ID), zap.String("parent", parentID))
	s.emit(events.ElementAdded, e.ID)
	return e.ID
}

// DrawBox commits a rectangle drawn with the draw tool. Negative extents are
// normalised; boxes with a side below the minimum draw size are discarded and
// "" is returned.
func (s *Store) DrawBox(r domain.Rect, parentID string) string {
	r = r.Normalize()
	if r.Width < s.minDrawSize || r.Height < s.minDrawSize || !r.Finite() {
		return ""
	}
	if parentID != "" {
		pr, ok := s.AbsoluteRect(parentID)
		if !ok {
			return ""
		}
		r = r.Translate(-pr.X, -pr.Y)
	}
	return s.Add(domain.Element{
		X: math.Round(r.X), Y: math.Round(r.Y),
		Width: math.Round(r.Width), Height: math.Round(r.Height),
		Style:       domain.DefaultStyle(),
		Constraints: domain.DefaultConstraints(),
	}, parentID)
}

// Update merges p into the element. It is a no-op when the id is missing or
// the element is locked, unless the patch only clears the lock.
func (s *Store) Update(id string, p domain.Patch) bool {
	e, ok := s.elements[id]
	if !ok || p.IsEmpty() {
		return false
	}
	if e.Locked && !p.OnlyUnlocks() {
		return false
	}
	p.Apply(e)
	s.log.Debug("element updated", zap.String("id", id))
	s.emit(events.ElementUpdated, id)
	return true
}

// Annotate writes analyzer-derived fields. Unlike Update it also applies to
// locked elements, since semantics are not authored.
func (s *Store) Annotate(id string, sem domain.Semantics) bool {
	e, ok := s.elements[id]
	if !ok {
		return false
	}
	if e.Semantics == sem {
		return true
	}
	e.Semantics = sem
	s.emit(events.ElementUpdated, id)
	return true
}

// Resize sets the element's size and lets its children follow their
// constraints. It returns the ids of descendants that changed.
func (s *Store) Resize(id string, width, height float64) ([]string, bool) {
	e, ok := s.elements[id]
	if !ok || e.Locked {
		return nil, false
	}
	oldSize := e.Size()
	if !s.Update(id, domain.ResizeTo(width, height)) {
		return nil, false
	}
	return constraint.PropagateResize(s, id, oldSize, s.elements[id].Size()), true
}

// Remove deletes the element and all its descendants, detaches it from its
// container and drops removed ids from the selection. It is a no-op for a
// missing id and when the element or any descendant is locked.
func (s *Store) Remove(id string) bool {
	e, ok := s.elements[id]
	if !ok || s.lockedIn(id) {
		return false
	}
	var removed []string
	s.removeSubtree(id, &removed)
	s.detach(id, e.ParentID)

	if s.pruneSelection() {
		s.emit(events.SelectionChanged, s.Selection()...)
	}
	s.log.Debug("element removed", zap.String("id", id), zap.Int("count", len(removed)))
	s.emit(events.ElementRemoved, removed...)
	return true
}

// lockedIn reports whether id or one of its descendants is locked.
func (s *Store) lockedIn(id string) bool {
	e := s.elements[id]
	if e.Locked {
		return true
	}
	for _, cid := range e.ChildIDs {
		if s.lockedIn(cid) {
			return true
		}
	}
	return false
}

// removeSubtree deletes descendants depth-first, then the element itself.
func (s *Store) removeSubtree(id string, removed *[]string) {
	e, ok := s.elements[id]
	if !ok {
		return
	}
	for _, cid := range e.ChildIDs {
		s.removeSubtree(cid, removed)
	}
	delete(s.elements, id)
	*removed = append(*removed, id)
}

// Duplicate deep-clones the subtree rooted at id with fresh ids, offsets the
// clone by (dx, dy) and places it directly above the original in the same
// container. It returns the new root id, or "" if id is missing.
func (s *Store) Duplicate(id string, dx, dy float64) string {
	src, ok := s.elements[id]
	if !ok {
		return ""
	}
	newID := s.cloneSubtree(id, src.ParentID)
	c := s.elements[newID]
	c.X += dx
	c.Y += dy

	siblings := s.siblings(src.ParentID)
	s.attach(newID, src.ParentID, indexOf(siblings, id)+1)

	s.log.Debug("element duplicated", zap.String("source", id), zap.String("clone", newID))
	s.emit(events.ElementAdded, newID)
	return newID
}

func (s *Store) cloneSubtree(id, parentID string) string {
	src := s.elements[id]
	c := src.Clone()
	c.ID = s.newID()
	c.ParentID = parentID
	c.ChildIDs = make([]string, 0, len(src.ChildIDs))
	s.elements[c.ID] = &c
	for _, cid := range src.ChildIDs {
		c.ChildIDs = append(c.ChildIDs, s.cloneSubtree(cid, c.ID))
	}
	s.reindex(c.ChildIDs)
	return c.ID
}

// Reparent moves id into newParentID ("" for the root list), on top of its new
// siblings, keeping its canvas-space position. Moving an element into its own
// subtree, or moving a locked element, is refused.
func (s *Store) Reparent(id, newParentID string) bool {
	e, ok := s.elements[id]
	if !ok || e.Locked || e.ParentID == newParentID {
		return false
	}
	if newParentID != "" {
		if !s.Has(newParentID) || s.isDescendant(newParentID, id) {
			return false
		}
	}
	abs, _ := s.AbsoluteRect(id)
	var origin domain.Rect
	if newParentID != "" {
		origin, _ = s.AbsoluteRect(newParentID)
	}

	s.detach(id, e.ParentID)
	e.ParentID = newParentID
	e.X = abs.X - origin.X
	e.Y = abs.Y - origin.Y
	s.attach(id, newParentID, -1)

	s.emit(events.OrderChanged, id)
	return true
}

// isDescendant reports whether id lies in the subtree rooted at ancestor.
func (s *Store) isDescendant(id, ancestor string) bool {
	for cur := id; cur != ""; {
		if cur == ancestor {
			return true
		}
		e, ok := s.elements[cur]
		if !ok {
			return false
		}
		cur = e.ParentID
	}
	return false
}

// ── Container bookkeeping ──────────────────────────────────

func (s *Store) siblings(parentID string) []string {
	if parentID == "" {
		return s.rootIDs
	}
	if p, ok := s.elements[parentID]; ok {
		return p.ChildIDs
	}
	return nil
}

func (s *Store) setSiblings(parentID string, ids []string) {
	if parentID == "" {
		s.rootIDs = ids
	} else if p, ok := s.elements[parentID]; ok {
		p.ChildIDs = ids
	}
	s.reindex(ids)
}

// attach inserts id into its container at index (-1 appends on top).
func (s *Store) attach(id, parentID string, index int) {
	ids := s.siblings(parentID)
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	next := make([]string, 0, len(ids)+1)
	next = append(next, ids[:index]...)
	next = append(next, id)
	next = append(next, ids[index:]...)
	s.setSiblings(parentID, next)
}

func (s *Store) detach(id, parentID string) {
	ids := s.siblings(parentID)
	i := indexOf(ids, id)
	if i < 0 {
		return
	}
	next := make([]string, 0, len(ids)-1)
	next = append(next, ids[:i]...)
	next = append(next, ids[i+1:]...)
	s.setSiblings(parentID, next)
}

// reindex rewrites ZIndex so it matches each id's position in its list.
func (s *Store) reindex(ids []string) {
	for i, id := range ids {
		if e, ok := s.elements[id]; ok {
			e.ZIndex = i
		}
	}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
