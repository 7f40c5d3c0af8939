package store

import (
	"reflect"
	"slices"

	"pagecraft/internal/domain"
	"pagecraft/internal/events"
)

// Snapshot is an immutable deep copy of the editable state: elements, root
// order and selection. The viewport is not part of it.
type Snapshot struct {
	elements  map[string]domain.Element
	rootIDs   []string
	selection []string
}

// Len returns the number of elements captured.
func (s Snapshot) Len() int { return len(s.elements) }

// Snapshot captures the current state. Cost is linear in the element count.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		elements:  make(map[string]domain.Element, len(s.elements)),
		rootIDs:   append([]string(nil), s.rootIDs...),
		selection: append([]string(nil), s.selection...),
	}
	for id, e := range s.elements {
		snap.elements[id] = e.Clone()
	}
	return snap
}

// Restore replaces the store internals with snap and emits StateReplaced.
// Snapshots are only produced by Snapshot, so no validation happens here.
func (s *Store) Restore(snap Snapshot) {
	s.replace(snap.elements, snap.rootIDs, snap.selection)
	s.emit(events.StateReplaced)
}

func (s *Store) replace(elements map[string]domain.Element, rootIDs, selection []string) {
	s.elements = make(map[string]*domain.Element, len(elements))
	for id, e := range elements {
		c := e.Clone()
		s.elements[id] = &c
	}
	s.rootIDs = append([]string(nil), rootIDs...)
	s.selection = append([]string(nil), selection...)
}

// Equal reports whether two snapshots hold identical state.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s.elements) != len(o.elements) || !equalIDs(s.rootIDs, o.rootIDs) || !equalIDs(s.selection, o.selection) {
		return false
	}
	for id, a := range s.elements {
		b, ok := o.elements[id]
		if !ok || !elementEqual(a, b) {
			return false
		}
	}
	return true
}

func equalIDs(a, b []string) bool {
	return slices.Equal(a, b)
}

// elementEqual compares deeply, treating nil and empty child lists alike.
func elementEqual(a, b domain.Element) bool {
	if len(a.ChildIDs) == 0 {
		a.ChildIDs = nil
	}
	if len(b.ChildIDs) == 0 {
		b.ChildIDs = nil
	}
	return reflect.DeepEqual(a, b)
}
