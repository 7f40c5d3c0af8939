package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pagecraft/internal/storage"
)

// ── Persistence ────────────────────────────────────────────

// Save writes the project under name (or the current name when empty) and
// records a revision. The first save of an unnamed session needs a name.
func (s *Session) Save(ctx context.Context, name string) (*storage.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.name = name
	}
	return s.save(ctx, "save")
}

// Rename sets the name the next save writes under.
func (s *Session) Rename(name string) error {
	if name == "" {
		return ErrNoProject
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	return nil
}

// Autosave saves a named, dirty session. It reports whether anything was written.
func (s *Session) Autosave(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty || s.name == "" || s.projects == nil || s.drag != nil {
		return false, nil
	}
	if _, err := s.save(ctx, "autosave"); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) save(ctx context.Context, label string) (*storage.Project, error) {
	if s.projects == nil {
		return nil, ErrNoStorage
	}
	if s.name == "" {
		return nil, ErrNoProject
	}
	data, err := s.store.ToJSON()
	if err != nil {
		return nil, err
	}
	p := &storage.Project{
		ID:           s.projectID,
		Name:         s.name,
		ElementCount: s.store.Len(),
		ProjectJSON:  string(data),
	}
	if s.projectID != "" {
		if prev, err := s.projects.Get(s.projectID); err == nil {
			p.CreatedAt = prev.CreatedAt
		}
	}
	if err := s.projects.Save(p); err != nil {
		return nil, err
	}
	if _, err := s.revisions.Push(p.ID, label, p.ProjectJSON); err != nil {
		return nil, fmt.Errorf("record revision: %w", err)
	}
	s.projectID = p.ID
	s.dirty = false

	s.log.Info("project saved",
		zap.String("project", p.Name),
		zap.String("id", p.ID),
		zap.String("label", label),
		zap.Int("elements", p.ElementCount))
	s.emitter.Emit(ctx, EventProjectSaved, p.ID)
	return p, nil
}

// Open loads a saved project by id or, failing that, by name. History is cleared.
func (s *Session) Open(ctx context.Context, ref string) (*storage.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projects == nil {
		return nil, ErrNoStorage
	}
	p, err := s.projects.Get(ref)
	if errors.Is(err, storage.ErrNotFound) {
		p, err = s.projects.FindByName(ref)
	}
	if err != nil {
		return nil, err
	}
	if s.drag != nil {
		s.endDrag()
	}
	if err := s.store.FromJSON([]byte(p.ProjectJSON)); err != nil {
		return nil, fmt.Errorf("open project %s: %w", p.Name, err)
	}
	s.history.Clear()
	s.projectID, s.name = p.ID, p.Name
	s.dirty = false

	s.log.Info("project opened", zap.String("project", p.Name), zap.String("id", p.ID))
	s.emitter.Emit(ctx, EventProjectOpened, p.ID)
	return p, nil
}

// Projects lists saved projects.
func (s *Session) Projects() ([]storage.Project, error) {
	if s.projects == nil {
		return nil, ErrNoStorage
	}
	return s.projects.List()
}

// Revisions lists the saved revisions of the open project, newest first.
func (s *Session) Revisions() ([]storage.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revisions == nil {
		return nil, ErrNoStorage
	}
	if s.projectID == "" {
		return nil, ErrNoProject
	}
	return s.revisions.List(s.projectID)
}

// RestoreRevision replaces the state with a saved revision of the open
// project. Unlike Open it is an undoable gesture.
func (s *Session) RestoreRevision(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revisions == nil {
		return ErrNoStorage
	}
	rev, err := s.revisions.Get(id)
	if err != nil {
		return err
	}
	if rev.ProjectID != s.projectID {
		return fmt.Errorf("revision %d belongs to another project: %w", id, storage.ErrNotFound)
	}
	var loadErr error
	s.gesture("restore revision", func() bool {
		loadErr = s.store.FromJSON([]byte(rev.ProjectJSON))
		return loadErr == nil
	})
	return loadErr
}
