package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Project is a saved page project. ProjectJSON holds the document written by
// store.ToJSON; listings leave it empty.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ElementCount int       `json:"elementCount"`
	ProjectJSON  string    `json:"projectJson,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProjectStore persists projects in SQLite.
type ProjectStore struct {
	db *DB
}

func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Save inserts p or overwrites the row with the same ID. An empty ID gets a
// fresh one.
func (s *ProjectStore) Save(p *Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.conn.Exec(
		`INSERT INTO projects (id, name, element_count, project_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			element_count = excluded.element_count,
			project_json = excluded.project_json,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.ElementCount, p.ProjectJSON, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

func (s *ProjectStore) Get(id string) (*Project, error) {
	p := &Project{}
	err := s.db.conn.QueryRow(
		`SELECT id, name, element_count, project_json, created_at, updated_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.ElementCount, &p.ProjectJSON, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// FindByName returns the most recently updated project called name.
func (s *ProjectStore) FindByName(name string) (*Project, error) {
	var id string
	err := s.db.conn.QueryRow(
		`SELECT id FROM projects WHERE name = ? ORDER BY updated_at DESC LIMIT 1`, name,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find project %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	return s.Get(id)
}

// List returns every project without its document, most recently updated first.
func (s *ProjectStore) List() ([]Project, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, name, element_count, created_at, updated_at FROM projects ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.ElementCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Delete removes a project together with its revisions.
func (s *ProjectStore) Delete(id string) error {
	if _, err := s.db.conn.Exec(`DELETE FROM revisions WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	res, err := s.db.conn.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete project %s: %w", id, ErrNotFound)
	}
	return nil
}
