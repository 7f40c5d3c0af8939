package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"pagecraft/internal/domain"
	"pagecraft/internal/events"
)

// ProjectVersion is the persisted format version written by ToJSON.
const ProjectVersion = 1

var (
	// ErrInvalidProject wraps the first structural problem found in a project.
	ErrInvalidProject     = errors.New("invalid project")
	ErrUnsupportedVersion = errors.New("unsupported project version")
)

// Project is the persisted form of a session. Elements are listed in
// document order; rootIds carries the root z-order.
type Project struct {
	Version  int              `json:"version"`
	Elements []domain.Element `json:"elements"`
	RootIDs  []string         `json:"rootIds"`
	Zoom     float64          `json:"zoom"`
	PanX     float64          `json:"panX"`
	PanY     float64          `json:"panY"`

	GridSize    float64     `json:"gridSize,omitempty"`
	GridVisible *bool       `json:"gridVisible,omitempty"`
	SnapEnabled *bool       `json:"snapEnabled,omitempty"`
	Tool        domain.Tool `json:"tool,omitempty"`
}

// Project returns the current state in persisted form.
func (s *Store) Project() Project {
	v := s.viewport
	return Project{
		Version:     ProjectVersion,
		Elements:    s.Elements(),
		RootIDs:     s.RootIDs(),
		Zoom:        v.Zoom,
		PanX:        v.PanX,
		PanY:        v.PanY,
		GridSize:    v.GridSize,
		GridVisible: domain.Bool(v.GridVisible),
		SnapEnabled: domain.Bool(v.SnapEnabled),
		Tool:        v.Tool,
	}
}

// ToJSON serialises the project, indented for diff-friendly files.
func (s *Store) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s.Project(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	return data, nil
}

// FromJSON parses and validates data, then replaces the whole state at once.
// On any error the store is left untouched.
func (s *Store) FromJSON(data []byte) error {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	return s.Load(p)
}

// Load validates p and replaces elements, roots, selection and viewport.
func (s *Store) Load(p Project) error {
	if p.Version != ProjectVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.Version)
	}
	elements, err := indexProject(p)
	if err != nil {
		return err
	}
	if err := validateTree(elements, p.RootIDs); err != nil {
		return err
	}

	s.replace(elements, p.RootIDs, nil)
	s.reindex(s.rootIDs)
	for _, e := range s.elements {
		s.reindex(e.ChildIDs)
	}

	v := domain.DefaultViewport()
	v.Zoom = domain.ClampZoom(p.Zoom, s.minZoom, s.maxZoom)
	if p.Zoom == 0 {
		v.Zoom = 1
	}
	v.PanX, v.PanY = p.PanX, p.PanY
	if p.GridSize > 0 {
		v.GridSize = p.GridSize
	}
	if p.GridVisible != nil {
		v.GridVisible = *p.GridVisible
	}
	if p.SnapEnabled != nil {
		v.SnapEnabled = *p.SnapEnabled
	}
	switch p.Tool {
	case domain.ToolSelect, domain.ToolDraw, domain.ToolHand:
		v.Tool = p.Tool
	}
	s.viewport = v

	s.log.Info("project loaded", zap.Int("elements", len(elements)))
	s.emit(events.StateReplaced)
	return nil
}

// Validate checks the live tree against the hierarchy invariants and
// returns the first violation wrapped in ErrInvalidProject.
func (s *Store) Validate() error {
	elements := make(map[string]domain.Element, len(s.elements))
	for id, e := range s.elements {
		if id != e.ID {
			return fmt.Errorf("%w: element stored under %q has id %q", ErrInvalidProject, id, e.ID)
		}
		elements[id] = *e
	}
	if err := validateTree(elements, s.rootIDs); err != nil {
		return err
	}
	for _, id := range s.selection {
		if _, ok := elements[id]; !ok {
			return fmt.Errorf("%w: selection holds unknown id %q", ErrInvalidProject, id)
		}
	}
	return nil
}

func indexProject(p Project) (map[string]domain.Element, error) {
	elements := make(map[string]domain.Element, len(p.Elements))
	for i, e := range p.Elements {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: element %d has no id", ErrInvalidProject, i)
		}
		if _, dup := elements[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidProject, e.ID)
		}
		if e.Constraints == (domain.Constraints{}) {
			e.Constraints = domain.DefaultConstraints()
		}
		if !e.Constraints.Valid() {
			return nil, fmt.Errorf("%w: element %q has unknown constraints %+v", ErrInvalidProject, e.ID, e.Constraints)
		}
		elements[e.ID] = e.Clone()
	}
	return elements, nil
}

// validateTree checks that rootIDs and the child lists partition the id set
// exactly once, that parent links agree with child lists, that the tree is
// acyclic and that every geometry is finite with sides of at least MinSize.
func validateTree(elements map[string]domain.Element, rootIDs []string) error {
	owner := make(map[string]string, len(elements))
	claim := func(id, by string) error {
		if _, ok := elements[id]; !ok {
			return fmt.Errorf("%w: %s lists unknown id %q", ErrInvalidProject, describe(by), id)
		}
		if prev, dup := owner[id]; dup {
			return fmt.Errorf("%w: %q listed by both %s and %s", ErrInvalidProject, id, describe(prev), describe(by))
		}
		owner[id] = by
		return nil
	}

	for _, id := range rootIDs {
		if err := claim(id, ""); err != nil {
			return err
		}
	}
	for _, e := range elements {
		for _, cid := range e.ChildIDs {
			if err := claim(cid, e.ID); err != nil {
				return err
			}
		}
	}

	for id, e := range elements {
		by, listed := owner[id]
		if !listed {
			return fmt.Errorf("%w: %q is in no container", ErrInvalidProject, id)
		}
		if by != e.ParentID {
			return fmt.Errorf("%w: %q has parentId %q but is listed by %s", ErrInvalidProject, id, e.ParentID, describe(by))
		}
		if !e.Rect().Finite() {
			return fmt.Errorf("%w: %q has non-finite geometry", ErrInvalidProject, id)
		}
		if e.Width < domain.MinSize || e.Height < domain.MinSize {
			return fmt.Errorf("%w: %q is %vx%v", ErrInvalidProject, id, e.Width, e.Height)
		}
		if math.IsNaN(e.Style.Opacity) || math.IsNaN(e.Style.FillOpacity) {
			return fmt.Errorf("%w: %q has NaN opacity", ErrInvalidProject, id)
		}
	}

	// Every element is claimed exactly once, so a cycle shows up as a chain
	// of parents that never reaches the root list.
	for id := range elements {
		steps := 0
		for cur := id; cur != ""; cur = elements[cur].ParentID {
			if steps++; steps > len(elements) {
				return fmt.Errorf("%w: cycle through %q", ErrInvalidProject, id)
			}
		}
	}
	return nil
}

func describe(owner string) string {
	if owner == "" {
		return "rootIds"
	}
	return fmt.Sprintf("element %q", owner)
}
