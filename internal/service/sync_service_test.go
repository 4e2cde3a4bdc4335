package service_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stylecanvas/internal/domain"
	"stylecanvas/internal/service"
	"stylecanvas/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// SyncService tests
// These drive translation directly via TranslateFile instead of running the
// watcher, so no debounce timing is involved.
// ─────────────────────────────────────────────────────────────

func newTestService(t *testing.T) (*service.SyncService, *service.MockBroadcaster, string) {
	t.Helper()
	dir := t.TempDir()
	cssPath := filepath.Join(dir, "styles.css")

	cfg := service.DefaultConfig()
	cfg.DefaultStylesheet = cssPath
	cfg.MaxRetries = 0

	mock := &service.MockBroadcaster{}
	docStore := storage.NewDocumentStore(filepath.Join(dir, "doc.json"))
	svc, err := service.NewSyncService(cfg, docStore, nil, mock, []string{cssPath})
	if err != nil {
		t.Fatalf("new sync service: %v", err)
	}
	return svc, mock, cssPath
}

func writeCSS(t *testing.T, path, text string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestTranslateFile_CreatesElements(t *testing.T) {
	svc, mock, cssPath := newTestService(t)
	writeCSS(t, cssPath, `.box { width: 100px; height: 50px; background: red; }`)

	if err := svc.TranslateFile(cssPath); err != nil {
		t.Fatalf("translate: %v", err)
	}

	doc := svc.DesignData()
	if len(doc.Elements) != 1 {
		t.Fatalf("got %d elements, want 1", len(doc.Elements))
	}
	el := doc.Elements[0]
	if el.Kind != domain.KindRectangle {
		t.Errorf("kind = %q", el.Kind)
	}
	if el.Size.Width != 100 || el.Size.Height != 50 {
		t.Errorf("size = %+v", el.Size)
	}
	if el.Style["fill"] != "red" {
		t.Errorf("fill = %v", el.Style["fill"])
	}
	if el.SourceSelector != ".box" || el.SourceFile != cssPath {
		t.Errorf("provenance = %q / %q", el.SourceSelector, el.SourceFile)
	}
	if doc.Meta.UpdatedFrom != domain.OriginCSS {
		t.Errorf("updatedFrom = %q", doc.Meta.UpdatedFrom)
	}
	if doc.Meta.Version != 2 {
		t.Errorf("version = %d, want 2", doc.Meta.Version)
	}
	if mock.CountType(service.MsgCanvasUpdatedFromCSS) != 1 {
		t.Errorf("broadcasts = %d, want 1", mock.CountType(service.MsgCanvasUpdatedFromCSS))
	}
	if st := svc.State(cssPath); st != service.StateIdle {
		t.Errorf("state = %q, want idle after translation", st)
	}
}

// Re-translating identical content must not commit or broadcast anything.
func TestTranslateFile_UnchangedContentIsSilent(t *testing.T) {
	svc, mock, cssPath := newTestService(t)
	writeCSS(t, cssPath, `.box { width: 100px; height: 50px; background: red; }`)

	if err := svc.TranslateFile(cssPath); err != nil {
		t.Fatal(err)
	}
	version := svc.DesignData().Meta.Version

	if err := svc.TranslateFile(cssPath); err != nil {
		t.Fatal(err)
	}
	if got := svc.DesignData().Meta.Version; got != version {
		t.Errorf("version bumped on no-op translate: %d -> %d", version, got)
	}
	if mock.CountType(service.MsgCanvasUpdatedFromCSS) != 1 {
		t.Errorf("broadcasts = %d, want 1", mock.CountType(service.MsgCanvasUpdatedFromCSS))
	}
}

// A canvas-side move survives a CSS edit: matched selectors keep their ID,
// position, and layer.
func TestTranslateFile_PreservesPositionAndID(t *testing.T) {
	svc, _, cssPath := newTestService(t)
	writeCSS(t, cssPath, `.box { width: 100px; height: 50px; background: red; }`)
	if err := svc.TranslateFile(cssPath); err != nil {
		t.Fatal(err)
	}

	original := svc.DesignData().Elements[0]
	moved := service.ShapePatch{ID: original.ID, Position: &domain.Position{X: 200, Y: 300}}
	if _, err := svc.ApplyShapeUpdated(moved); err != nil {
		t.Fatalf("move: %v", err)
	}

	writeCSS(t, cssPath, `.box { width: 100px; height: 50px; background: blue; }`)
	if err := svc.TranslateFile(cssPath); err != nil {
		t.Fatal(err)
	}

	el := svc.DesignData().Elements[0]
	if el.ID != original.ID {
		t.Errorf("id changed: %q -> %q", original.ID, el.ID)
	}
	if el.Position.X != 200 || el.Position.Y != 300 {
		t.Errorf("position lost: %+v", el.Position)
	}
	if el.Style["fill"] != "blue" {
		t.Errorf("fill = %v, want blue", el.Style["fill"])
	}
}

func TestTranslateFile_RemovedRuleDestroysElement(t *testing.T) {
	svc, _, cssPath := newTestService(t)
	writeCSS(t, cssPath, `.box { width: 100px; background: red; }`)
	if err := svc.TranslateFile(cssPath); err != nil {
		t.Fatal(err)
	}

	writeCSS(t, cssPath, `.other { width: 10px; }`)
	if err := svc.TranslateFile(cssPath); err != nil {
		t.Fatal(err)
	}

	doc := svc.DesignData()
	if len(doc.Elements) != 1 || doc.Elements[0].SourceSelector != ".other" {
		t.Errorf("elements = %+v", doc.Elements)
	}
}

func TestTranslateFile_MalformedFragmentStillTranslates(t *testing.T) {
	svc, mock, cssPath := newTestService(t)
	writeCSS(t, cssPath, `
		.ok { background: blue; }
		.broken { color: red;
	`)
	if err := svc.TranslateFile(cssPath); err != nil {
		t.Fatal(err)
	}

	if mock.CountType(service.MsgCSSParseError) != 1 {
		t.Errorf("parse error broadcasts = %d, want 1", mock.CountType(service.MsgCSSParseError))
	}
	doc := svc.DesignData()
	if len(doc.Elements) != 1 || doc.Elements[0].SourceSelector != ".ok" {
		t.Errorf("elements = %+v", doc.Elements)
	}
}

func TestTranslateFile_SizeCap(t *testing.T) {
	dir := t.TempDir()
	cssPath := filepath.Join(dir, "styles.css")
	cfg := service.DefaultConfig()
	cfg.MaxFileSize = 16
	cfg.MaxRetries = 0
	mock := &service.MockBroadcaster{}
	svc, err := service.NewSyncService(cfg,
		storage.NewDocumentStore(filepath.Join(dir, "doc.json")), nil, mock, []string{cssPath})
	if err != nil {
		t.Fatal(err)
	}

	writeCSS(t, cssPath, `.box { width: 100px; background: red; }`)
	if err := svc.TranslateFile(cssPath); err == nil {
		t.Fatal("expected size cap error")
	}
	if mock.CountType(service.MsgCSSParseError) != 1 {
		t.Errorf("error broadcasts = %d, want 1", mock.CountType(service.MsgCSSParseError))
	}
	if len(svc.DesignData().Elements) != 0 {
		t.Error("oversized file must not translate")
	}
}

func TestTranslateFile_MissingFile(t *testing.T) {
	svc, mock, cssPath := newTestService(t)
	if err := svc.TranslateFile(cssPath); err == nil {
		t.Fatal("expected error for missing file")
	}
	if mock.CountType(service.MsgCSSParseError) != 1 {
		t.Errorf("error broadcasts = %d", mock.CountType(service.MsgCSSParseError))
	}
}

// ── canvas → CSS ───────────────────────────────────────────

func TestApplyShapeDrawn_WritesStylesheet(t *testing.T) {
	svc, mock, cssPath := newTestService(t)

	created, err := svc.ApplyShapeDrawn(domain.CanvasElement{
		Kind:  domain.KindCircle,
		Size:  domain.Size{Width: 40, Height: 40},
		Style: map[string]any{"fill": "#0000ff"},
	})
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if created.ID == "" || created.SourceSelector == "" {
		t.Errorf("missing identity: %+v", created)
	}
	if created.SourceFile != cssPath {
		t.Errorf("sourceFile = %q, want default stylesheet", created.SourceFile)
	}

	data, err := os.ReadFile(cssPath)
	if err != nil {
		t.Fatalf("stylesheet not written: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, created.SourceSelector+" {") {
		t.Errorf("stylesheet missing rule:\n%s", text)
	}
	if !strings.Contains(text, "border-radius: 50%;") {
		t.Errorf("circle rule missing radius:\n%s", text)
	}
	if mock.CountType(service.MsgCanvasShapeDrawn) != 1 {
		t.Errorf("draw broadcasts = %d", mock.CountType(service.MsgCanvasShapeDrawn))
	}
}

// Relative stylesheet paths are canonicalized up front, so a drawn shape and
// the watch-driven translation of its own file key the same document slots
// instead of splitting one element into two.
func TestApplyShapeDrawn_RelativePathsCanonicalized(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := service.DefaultConfig() // DefaultStylesheet stays the relative "canvas.css"
	cfg.MaxRetries = 0
	mock := &service.MockBroadcaster{}
	docStore := storage.NewDocumentStore("doc.json")
	svc, err := service.NewSyncService(cfg, docStore, nil, mock, []string{"canvas.css"})
	if err != nil {
		t.Fatal(err)
	}

	created, err := svc.ApplyShapeDrawn(domain.CanvasElement{
		Kind: domain.KindRectangle,
		Size: domain.Size{Width: 10, Height: 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(created.SourceFile) {
		t.Errorf("sourceFile = %q, want absolute", created.SourceFile)
	}

	if err := svc.TranslateFile("canvas.css"); err != nil {
		t.Fatal(err)
	}
	doc := svc.DesignData()
	if len(doc.Elements) != 1 {
		t.Fatalf("got %d elements after cycle, want 1: %+v", len(doc.Elements), doc.Elements)
	}
	if doc.Elements[0].ID != created.ID {
		t.Errorf("id changed across cycle: %q -> %q", created.ID, doc.Elements[0].ID)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("document invalid after cycle: %v", err)
	}
}

// Moving an element to the origin is a real update, not an omitted field.
func TestApplyShapeUpdated_MoveToOrigin(t *testing.T) {
	svc, _, cssPath := newTestService(t)
	writeCSS(t, cssPath, `.box { width: 100px; background: red; }`)
	if err := svc.TranslateFile(cssPath); err != nil {
		t.Fatal(err)
	}

	id := svc.DesignData().Elements[0].ID
	updated, err := svc.ApplyShapeUpdated(service.ShapePatch{
		ID:       id,
		Position: &domain.Position{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Position != (domain.Position{}) {
		t.Errorf("position = %+v, want origin", updated.Position)
	}
	if got := svc.DesignData().Elements[0].Position; got != (domain.Position{}) {
		t.Errorf("persisted position = %+v, want origin", got)
	}
}

func TestApplyShapeDrawn_DuplicateSelectorRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	el := domain.CanvasElement{
		Kind:           domain.KindRectangle,
		Size:           domain.Size{Width: 10, Height: 10},
		SourceSelector: ".box",
	}
	if _, err := svc.ApplyShapeDrawn(el); err != nil {
		t.Fatal(err)
	}
	el.ID = ""
	if _, err := svc.ApplyShapeDrawn(el); err == nil {
		t.Error("expected duplicate selector error")
	}
}

func TestApplyShapeDeleted_RewritesStylesheet(t *testing.T) {
	svc, mock, cssPath := newTestService(t)
	created, err := svc.ApplyShapeDrawn(domain.CanvasElement{
		Kind: domain.KindRectangle,
		Size: domain.Size{Width: 10, Height: 10},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ApplyShapeDeleted(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(svc.DesignData().Elements) != 0 {
		t.Error("element not removed")
	}
	data, _ := os.ReadFile(cssPath)
	if strings.TrimSpace(string(data)) != "" {
		t.Errorf("stylesheet should be empty after delete:\n%s", data)
	}
	if mock.CountType(service.MsgCanvasShapeDeleted) != 1 {
		t.Errorf("delete broadcasts = %d", mock.CountType(service.MsgCanvasShapeDeleted))
	}

	if err := svc.ApplyShapeDeleted("no-such-id"); err == nil {
		t.Error("expected error for unknown element")
	}
}

// A canvas-born rectangle generates CSS that re-translates to the same
// element: the cycle converges instead of ping-ponging.
func TestCanvasToCSSCycleIsStable(t *testing.T) {
	svc, mock, cssPath := newTestService(t)
	if _, err := svc.ApplyShapeDrawn(domain.CanvasElement{
		Kind:  domain.KindRectangle,
		Size:  domain.Size{Width: 80, Height: 60},
		Style: map[string]any{"fill": "#ff0000"},
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.TranslateFile(cssPath); err != nil {
		t.Fatal(err)
	}
	if got := mock.CountType(service.MsgCanvasUpdatedFromCSS); got != 0 {
		t.Errorf("stable cycle produced %d update broadcasts", got)
	}
}

// A stylesheet write performed by the coordinator itself must not come back
// around through the watcher as a translation. The drawn circle carries no
// explicit border-radius, so its own generated CSS would register a modified
// diff — and broadcast — if the echo were ever processed.
func TestStart_SelfWriteEchoIsSuppressed(t *testing.T) {
	dir := t.TempDir()
	cssPath := filepath.Join(dir, "styles.css")

	cfg := service.DefaultConfig()
	cfg.DefaultStylesheet = cssPath
	cfg.DebounceWindow = 50 * time.Millisecond
	cfg.MaxRetries = 0

	mock := &service.MockBroadcaster{}
	docStore := storage.NewDocumentStore(filepath.Join(dir, "doc.json"))
	svc, err := service.NewSyncService(cfg, docStore, nil, mock, []string{cssPath})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer svc.Stop(ctx)

	if _, err := svc.ApplyShapeDrawn(domain.CanvasElement{
		Kind:  domain.KindCircle,
		Size:  domain.Size{Width: 40, Height: 40},
		Style: map[string]any{"fill": "#00ff00"},
	}); err != nil {
		t.Fatal(err)
	}

	time.Sleep(500 * time.Millisecond)
	if got := mock.CountType(service.MsgCanvasUpdatedFromCSS); got != 0 {
		t.Errorf("self-write echoed into %d update broadcast(s)", got)
	}

	// The watch pipeline itself is live: an external edit still translates.
	writeCSS(t, cssPath, `.external { width: 30px; background: teal; }`)
	waitFor(t, 3*time.Second, func() bool {
		return mock.CountType(service.MsgCanvasUpdatedFromCSS) >= 1
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

// ── observer protocol ──────────────────────────────────────

func TestHandleMessage_UnknownTypeGetsError(t *testing.T) {
	svc, _, _ := newTestService(t)
	reply := svc.HandleMessage(service.Message{Type: "BOGUS"})
	if reply == nil || reply.Type != service.MsgError {
		t.Fatalf("reply = %+v, want ERROR", reply)
	}
}

func TestHandleMessage_RequestDesignData(t *testing.T) {
	svc, _, _ := newTestService(t)
	reply := svc.HandleMessage(service.Message{Type: service.MsgRequestDesignData})
	if reply == nil || reply.Type != service.MsgDesignDataResponse {
		t.Fatalf("reply = %+v", reply)
	}
	if _, ok := reply.Payload["designData"]; !ok {
		t.Error("missing designData payload")
	}
}

func TestHandleMessage_ShapeDrawnEnvelope(t *testing.T) {
	svc, _, _ := newTestService(t)
	reply := svc.HandleMessage(service.Message{
		Type: service.MsgCanvasShapeDrawn,
		Payload: map[string]any{
			"element": map[string]any{
				"kind": "rectangle",
				"size": map[string]any{"width": 10.0, "height": 10.0},
			},
		},
	})
	if reply != nil {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if len(svc.DesignData().Elements) != 1 {
		t.Error("element not created from envelope")
	}
}

func TestHandleMessage_DeleteWithoutIDGetsError(t *testing.T) {
	svc, _, _ := newTestService(t)
	reply := svc.HandleMessage(service.Message{Type: service.MsgCanvasShapeDeleted})
	if reply == nil || reply.Type != service.MsgError {
		t.Fatalf("reply = %+v, want ERROR", reply)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := service.DefaultConfig()
	if cfg.DebounceWindow <= 0 || cfg.MaxFileSize <= 0 || cfg.MaxRetries <= 0 {
		t.Errorf("implausible defaults: %+v", cfg)
	}
}
