package store

import "pagecraft/internal/events"

// ── Z-order ────────────────────────────────────────────────
//
// Reordering never crosses containers: an element moves only within the
// root list or its parent's child list. Moving an element that is already
// at the requested extreme is a no-op without notification.

func (s *Store) BringToFront(id string) bool {
	return s.reorder(id, func(i, n int) int { return n - 1 })
}

func (s *Store) SendToBack(id string) bool {
	return s.reorder(id, func(int, int) int { return 0 })
}

func (s *Store) BringForward(id string) bool {
	return s.reorder(id, func(i, n int) int { return min(i+1, n-1) })
}

func (s *Store) SendBackward(id string) bool {
	return s.reorder(id, func(i, _ int) int { return max(i-1, 0) })
}

func (s *Store) reorder(id string, target func(i, n int) int) bool {
	e, ok := s.elements[id]
	if !ok || e.Locked {
		return false
	}
	ids := s.siblings(e.ParentID)
	i := indexOf(ids, id)
	if i < 0 {
		return false
	}
	j := target(i, len(ids))
	if j == i {
		return false
	}

	next := make([]string, 0, len(ids))
	next = append(next, ids[:i]...)
	next = append(next, ids[i+1:]...)
	next = append(next[:j], append([]string{id}, next[j:]...)...)
	s.setSiblings(e.ParentID, next)

	s.emit(events.OrderChanged, id)
	return true
}
