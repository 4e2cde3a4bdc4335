package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stylecanvas/internal/domain"
	"stylecanvas/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// DocumentStore tests
// ─────────────────────────────────────────────────────────────

func TestDocumentStore_LoadMissingReturnsDefault(t *testing.T) {
	store := storage.NewDocumentStore(filepath.Join(t.TempDir(), "doc.json"))
	doc, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Elements) != 0 || len(doc.Layers) != 1 {
		t.Errorf("expected fresh default document, got %+v", doc)
	}
}

func TestDocumentStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	store := storage.NewDocumentStore(path)

	doc := domain.NewCanvasDocument()
	doc.Elements = []domain.CanvasElement{
		{ID: "a", Kind: domain.KindRectangle, SourceSelector: ".a",
			Size: domain.Size{Width: 10, Height: 20}},
		{ID: "b", Kind: domain.KindCircle, SourceSelector: ".b",
			Size: domain.Size{Width: 30, Height: 30}},
	}
	if err := store.Save(doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	back, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(back.Elements) != 2 {
		t.Fatalf("got %d elements, want 2", len(back.Elements))
	}
	// Insertion order is the file order.
	if back.Elements[0].ID != "a" || back.Elements[1].ID != "b" {
		t.Errorf("element order lost: %q, %q", back.Elements[0].ID, back.Elements[1].ID)
	}
}

func TestDocumentStore_SaveIsPrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	store := storage.NewDocumentStore(path)
	if err := store.Save(domain.NewCanvasDocument()); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"canvas\"") {
		t.Errorf("expected two-space indentation:\n%s", data)
	}
}

// A corrupt document is backed up and replaced with a default instead of
// failing startup.
func TestDocumentStore_CorruptFileBackedUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	store := storage.NewDocumentStore(path)
	doc, err := store.Load()
	if err != nil {
		t.Fatalf("load should recover, got %v", err)
	}
	if len(doc.Layers) != 1 {
		t.Errorf("expected default document, got %+v", doc)
	}

	backups, _ := filepath.Glob(path + ".corrupt-*")
	if len(backups) != 1 {
		t.Errorf("expected one backup file, found %v", backups)
	}
}

// Structurally valid JSON that breaks document invariants is treated the same
// as unparseable content.
func TestDocumentStore_InvalidDocumentBackedUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	bad := `{"canvas":{},"layers":[{"id":"l"}],"elements":[{"id":"x"},{"id":"x"}]}`
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}

	store := storage.NewDocumentStore(path)
	doc, err := store.Load()
	if err != nil {
		t.Fatalf("load should recover, got %v", err)
	}
	if len(doc.Elements) != 0 {
		t.Errorf("expected default document, got %d elements", len(doc.Elements))
	}
	backups, _ := filepath.Glob(path + ".corrupt-*")
	if len(backups) != 1 {
		t.Errorf("expected one backup file, found %v", backups)
	}
}
