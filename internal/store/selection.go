package store

import (
	"slices"

	"pagecraft/internal/domain"
	"pagecraft/internal/events"
)

// ── Selection ──────────────────────────────────────────────

// Selection returns the selected ids in selection order.
func (s *Store) Selection() []string {
	return append([]string(nil), s.selection...)
}

func (s *Store) IsSelected(id string) bool {
	return slices.Contains(s.selection, id)
}

// SetSelection replaces the selection. Unknown and duplicate ids are dropped.
func (s *Store) SetSelection(ids ...string) {
	next := s.validIDs(nil, ids)
	if slices.Equal(next, s.selection) {
		return
	}
	s.selection = next
	s.emit(events.SelectionChanged, s.Selection()...)
}

// AddToSelection appends ids not yet selected.
func (s *Store) AddToSelection(ids ...string) {
	next := s.validIDs(slices.Clone(s.selection), ids)
	if len(next) == len(s.selection) {
		return
	}
	s.selection = next
	s.emit(events.SelectionChanged, s.Selection()...)
}

// ToggleSelection adds id if absent, removes it otherwise.
func (s *Store) ToggleSelection(id string) {
	if i := slices.Index(s.selection, id); i >= 0 {
		s.selection = slices.Delete(slices.Clone(s.selection), i, i+1)
		s.emit(events.SelectionChanged, s.Selection()...)
		return
	}
	s.AddToSelection(id)
}

func (s *Store) ClearSelection() {
	if len(s.selection) == 0 {
		return
	}
	s.selection = nil
	s.emit(events.SelectionChanged)
}

// SelectAll selects every visible, unlocked element in document order.
func (s *Store) SelectAll() {
	var ids []string
	s.Walk(func(e domain.Element, _ int) bool {
		if !e.Hidden && !e.Locked {
			ids = append(ids, e.ID)
		}
		return true
	})
	s.SetSelection(ids...)
}

func (s *Store) validIDs(dst, ids []string) []string {
	for _, id := range ids {
		if s.Has(id) && !slices.Contains(dst, id) {
			dst = append(dst, id)
		}
	}
	return dst
}

// pruneSelection drops ids that no longer exist and reports whether anything changed.
func (s *Store) pruneSelection() bool {
	n := len(s.selection)
	s.selection = slices.DeleteFunc(s.selection, func(id string) bool { return !s.Has(id) })
	return len(s.selection) != n
}
