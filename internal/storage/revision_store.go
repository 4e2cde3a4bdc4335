package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stylecanvas/internal/domain"
)

// Revision is one committed document generation.
type Revision struct {
	ID           string    `json:"id"`
	DocumentPath string    `json:"documentPath"`
	Version      int       `json:"version"`
	UpdatedFrom  string    `json:"updatedFrom"`
	ChangeType   string    `json:"changeType"`
	SnapshotJSON string    `json:"snapshotJson"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RevisionStore keeps document history in SQLite so any committed generation
// can be inspected or restored.
type RevisionStore struct {
	db    *DB
	limit int
}

// NewRevisionStore creates a RevisionStore pruned to limit entries per
// document (0 means the default of 100).
func NewRevisionStore(db *DB, limit int) *RevisionStore {
	if limit <= 0 {
		limit = 100
	}
	return &RevisionStore{db: db, limit: limit}
}

// Push records a snapshot of the document as a new revision.
func (s *RevisionStore) Push(documentPath string, doc *domain.CanvasDocument) (*Revision, error) {
	snapshot, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	rev := &Revision{
		ID:           uuid.New().String(),
		DocumentPath: documentPath,
		Version:      doc.Meta.Version,
		UpdatedFrom:  string(doc.Meta.UpdatedFrom),
		ChangeType:   doc.Meta.ChangeType,
		SnapshotJSON: string(snapshot),
		CreatedAt:    time.Now(),
	}

	_, err = s.db.Conn().Exec(
		`INSERT INTO revisions (id, document_path, version, updated_from, change_type, snapshot_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.DocumentPath, rev.Version, rev.UpdatedFrom, rev.ChangeType, rev.SnapshotJSON, rev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert revision: %w", err)
	}

	s.pruneIfNeeded(documentPath)
	return rev, nil
}

// List returns the most recent revisions for a document, newest first.
func (s *RevisionStore) List(documentPath string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Conn().Query(
		`SELECT id, document_path, version, updated_from, change_type, snapshot_json, created_at
		 FROM revisions WHERE document_path = ? ORDER BY created_at DESC LIMIT ?`,
		documentPath, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.DocumentPath, &r.Version, &r.UpdatedFrom, &r.ChangeType, &r.SnapshotJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// Get loads one revision and decodes its snapshot.
func (s *RevisionStore) Get(id string) (*Revision, *domain.CanvasDocument, error) {
	var r Revision
	err := s.db.Conn().QueryRow(
		`SELECT id, document_path, version, updated_from, change_type, snapshot_json, created_at
		 FROM revisions WHERE id = ?`, id,
	).Scan(&r.ID, &r.DocumentPath, &r.Version, &r.UpdatedFrom, &r.ChangeType, &r.SnapshotJSON, &r.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("load revision %s: %w", id, err)
	}

	var doc domain.CanvasDocument
	if err := json.Unmarshal([]byte(r.SnapshotJSON), &doc); err != nil {
		return nil, nil, fmt.Errorf("decode revision snapshot: %w", err)
	}
	return &r, &doc, nil
}

// pruneIfNeeded drops the oldest revisions beyond the per-document limit.
func (s *RevisionStore) pruneIfNeeded(documentPath string) {
	s.db.Conn().Exec(
		`DELETE FROM revisions WHERE document_path = ? AND id NOT IN (
			SELECT id FROM revisions WHERE document_path = ?
			ORDER BY created_at DESC LIMIT ?
		)`,
		documentPath, documentPath, s.limit,
	)
}
