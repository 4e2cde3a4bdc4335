package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"stylecanvas/internal/domain"
)

// DocumentStore persists the canvas document as pretty-printed JSON.
// A structurally invalid file on load is backed up and replaced by a minimal
// default document rather than failing startup.
type DocumentStore struct {
	path string
}

// NewDocumentStore creates a store for the document at path.
func NewDocumentStore(path string) *DocumentStore {
	return &DocumentStore{path: path}
}

// Path returns the document file path.
func (s *DocumentStore) Path() string { return s.path }

// Load reads the persisted document. A missing file yields a fresh default
// document; a corrupt or invalid one is moved aside first.
func (s *DocumentStore) Load() (*domain.CanvasDocument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewCanvasDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", s.path, err)
	}

	var doc domain.CanvasDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.backupCorrupt(data, err)
		return domain.NewCanvasDocument(), nil
	}
	if err := doc.Validate(); err != nil {
		s.backupCorrupt(data, err)
		return domain.NewCanvasDocument(), nil
	}
	return &doc, nil
}

// Save writes the document with two-space indentation, preserving element
// insertion order (the document's slice order is the file order).
func (s *DocumentStore) Save(doc *domain.CanvasDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create document directory: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write document %s: %w", s.path, err)
	}
	return nil
}

// backupCorrupt moves the unreadable content aside so the user can recover
// it manually.
func (s *DocumentStore) backupCorrupt(data []byte, cause error) {
	backup := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().Format("20060102-150405"))
	if err := os.WriteFile(backup, data, 0644); err != nil {
		log.Printf("storage: failed to back up corrupt document: %v", err)
		return
	}
	log.Printf("storage: document %s invalid (%v), backed up to %s and starting from default", s.path, cause, backup)
}
