package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultKeepRevisions bounds the revisions kept per project.
const DefaultKeepRevisions = 40

// Revision is one saved state of a project.
type Revision struct {
	ID          int64     `json:"id"`
	ProjectID   string    `json:"projectId"`
	Label       string    `json:"label"`
	ProjectJSON string    `json:"projectJson,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RevisionStore keeps a bounded, append-only list of revisions per project.
type RevisionStore struct {
	db   *DB
	keep int
}

// NewRevisionStore keeps at most keep revisions per project; keep < 1 means
// DefaultKeepRevisions.
func NewRevisionStore(db *DB, keep int) *RevisionStore {
	if keep < 1 {
		keep = DefaultKeepRevisions
	}
	return &RevisionStore{db: db, keep: keep}
}

// Push records a revision and drops the oldest ones beyond the limit.
func (s *RevisionStore) Push(projectID, label, projectJSON string) (*Revision, error) {
	now := time.Now()
	res, err := s.db.conn.Exec(
		`INSERT INTO revisions (project_id, label, project_json, created_at) VALUES (?, ?, ?, ?)`,
		projectID, label, projectJSON, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert revision: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("revision id: %w", err)
	}

	if err := s.prune(projectID); err != nil {
		return nil, err
	}

	return &Revision{
		ID:          id,
		ProjectID:   projectID,
		Label:       label,
		ProjectJSON: projectJSON,
		CreatedAt:   now,
	}, nil
}

// List returns the revisions of a project without their documents, newest first.
func (s *RevisionStore) List(projectID string) ([]Revision, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, project_id, label, created_at FROM revisions
		 WHERE project_id = ? ORDER BY id DESC`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Label, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

func (s *RevisionStore) Get(id int64) (*Revision, error) {
	return s.one(`SELECT id, project_id, label, project_json, created_at FROM revisions WHERE id = ?`, id)
}

// Latest returns the newest revision of a project.
func (s *RevisionStore) Latest(projectID string) (*Revision, error) {
	return s.one(
		`SELECT id, project_id, label, project_json, created_at FROM revisions
		 WHERE project_id = ? ORDER BY id DESC LIMIT 1`, projectID,
	)
}

func (s *RevisionStore) one(query string, arg any) (*Revision, error) {
	r := &Revision{}
	err := s.db.conn.QueryRow(query, arg).Scan(&r.ID, &r.ProjectID, &r.Label, &r.ProjectJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get revision: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return r, nil
}

// Clear removes every revision of a project.
func (s *RevisionStore) Clear(projectID string) error {
	_, err := s.db.conn.Exec(`DELETE FROM revisions WHERE project_id = ?`, projectID)
	return err
}

// prune removes the oldest revisions when the count exceeds the limit.
func (s *RevisionStore) prune(projectID string) error {
	var count int
	if err := s.db.conn.QueryRow(`SELECT COUNT(*) FROM revisions WHERE project_id = ?`, projectID).Scan(&count); err != nil {
		return fmt.Errorf("count revisions: %w", err)
	}
	if count <= s.keep {
		return nil
	}

	// Collect ids first and close the cursor before writing.
	rows, err := s.db.conn.Query(
		`SELECT id FROM revisions WHERE project_id = ? ORDER BY id ASC LIMIT ?`,
		projectID, count-s.keep,
	)
	if err != nil {
		return fmt.Errorf("select old revisions: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan revision id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := s.db.conn.Exec(`DELETE FROM revisions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete revision %d: %w", id, err)
		}
	}
	return nil
}
