package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"stylecanvas/internal/css"
	"stylecanvas/internal/diff"
	"stylecanvas/internal/domain"
	"stylecanvas/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Sync Service — the CSS ↔ canvas synchronization coordinator
// ─────────────────────────────────────────────────────────────

// Config tunes the coordinator. Remote deployments get a wider debounce
// window and a lower file-size cap, since watch events and reads are both
// slower there.
type Config struct {
	// DebounceWindow coalesces rapid change events per file.
	DebounceWindow time.Duration
	// MaxFileSize bounds how much stylesheet text one translation reads.
	MaxFileSize int64
	// Remote widens DebounceWindow (x4) and quarters MaxFileSize.
	Remote bool
	// MaxRetries bounds transient file-access retries.
	MaxRetries int
	// RetryBackoff is the base of the exponential backoff between retries.
	RetryBackoff time.Duration
	// DefaultStylesheet receives rules for canvas-born elements that have no
	// source file yet.
	DefaultStylesheet string
}

// DefaultConfig returns sensible defaults for a local deployment.
func DefaultConfig() Config {
	return Config{
		DebounceWindow:    300 * time.Millisecond,
		MaxFileSize:       1 << 20, // 1 MiB of CSS is already suspicious
		MaxRetries:        3,
		RetryBackoff:      200 * time.Millisecond,
		DefaultStylesheet: "canvas.css",
	}
}

// FileState is the per-stylesheet position in the coordinator's state
// machine: idle → changed → translating → writing-or-broadcasting → idle.
type FileState string

const (
	StateIdle        FileState = "idle"
	StateChanged     FileState = "changed"
	StateTranslating FileState = "translating"
	StateWriting     FileState = "writing-or-broadcasting"
)

// SyncService owns the authoritative canvas document, watches stylesheet
// files, and propagates changes in both directions without echo loops. All
// document mutation is serialized behind its mutex; observer broadcast
// happens outside it and never blocks.
type SyncService struct {
	cfg         Config
	docStore    *storage.DocumentStore
	revisions   *storage.RevisionStore // optional
	broadcaster Broadcaster            // optional
	now         func() time.Time

	mu  sync.Mutex
	doc *domain.CanvasDocument

	// echo guard: counts of writes this coordinator performed per path whose
	// watch events are still outstanding
	pendingMu         sync.Mutex
	pendingSelfWrites map[string]int

	// state machine bookkeeping
	stateMu sync.Mutex
	states  map[string]FileState

	// watcher lifecycle
	watchPaths  []string
	watcher     *fsnotify.Watcher
	watchCancel context.CancelFunc
	events      chan string
	debouncers  map[string]func(func())
	running     runningTranslationsGuard
	wg          sync.WaitGroup
}

// NewSyncService creates a coordinator for the given stylesheet paths.
// revisions and broadcaster may be nil.
func NewSyncService(
	cfg Config,
	docStore *storage.DocumentStore,
	revisions *storage.RevisionStore,
	broadcaster Broadcaster,
	watchPaths []string,
) (*SyncService, error) {
	if cfg.Remote {
		cfg.DebounceWindow *= 4
		cfg.MaxFileSize /= 4
	}

	doc, err := docStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	abs := make([]string, 0, len(watchPaths))
	for _, p := range watchPaths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve watch path %q: %w", p, err)
		}
		abs = append(abs, a)
	}

	// Elements, self-write marks, and watch events all key by path, so every
	// path the coordinator handles must be in the same canonical form.
	if cfg.DefaultStylesheet != "" {
		a, err := filepath.Abs(cfg.DefaultStylesheet)
		if err != nil {
			return nil, fmt.Errorf("resolve default stylesheet %q: %w", cfg.DefaultStylesheet, err)
		}
		cfg.DefaultStylesheet = a
	}

	return &SyncService{
		cfg:               cfg,
		docStore:          docStore,
		revisions:         revisions,
		broadcaster:       broadcaster,
		now:               time.Now,
		doc:               doc,
		pendingSelfWrites: map[string]int{},
		states:            map[string]FileState{},
		watchPaths:        abs,
		events:            make(chan string, 64),
		debouncers:        map[string]func(func()){},
	}, nil
}

// SetBroadcaster installs the observer fan-out. Called once during wiring,
// before Start; the hub needs the coordinator to exist first.
func (s *SyncService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Start begins watching and translating. It performs one initial translation
// pass per watched file so the document reflects the stylesheets on disk.
func (s *SyncService) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	s.watcher = watcher

	watchedDirs := map[string]bool{}
	for _, p := range s.watchPaths {
		dir := filepath.Dir(p)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				return fmt.Errorf("watch dir %q: %w", dir, err)
			}
			watchedDirs[dir] = true
		}
		s.setState(p, StateIdle)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel

	s.wg.Add(2)
	go s.watchLoop(watchCtx, watcher)
	go s.runLoop(watchCtx)

	for _, p := range s.watchPaths {
		if _, err := os.Stat(p); err == nil {
			select {
			case s.events <- p:
			default:
			}
		}
	}

	log.Printf("sync: watching %d stylesheet(s), debounce %s", len(s.watchPaths), s.cfg.DebounceWindow)
	return nil
}

// Stop tears the coordinator down: watcher closed, pending debounces
// abandoned, in-flight translations allowed to finish.
func (s *SyncService) Stop(ctx context.Context) {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.running.WaitAll(ctx)
	log.Printf("sync: stopped")
}

// watchLoop turns raw filesystem notifications into debounced entries on the
// single inbound event channel. A new event for a file with a pending
// debounce cancels and reschedules it rather than queueing twice.
func (s *SyncService) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			path, err := filepath.Abs(event.Name)
			if err != nil || !s.isWatched(path) {
				continue
			}
			s.setState(path, StateChanged)
			// The echo check runs when the debounce fires, not per raw event:
			// one write can surface as a Create plus a Write, and both must
			// count against the same self-write mark.
			s.debounced(path)(func() {
				if s.consumeSelfWrite(path) {
					log.Printf("sync: dropped echo for %s", path)
					s.setState(path, StateIdle)
					return
				}
				select {
				case s.events <- path:
				case <-ctx.Done():
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("sync: watcher error: %v", err)
		}
	}
}

// runLoop is the single consumer of the inbound event channel. One loop per
// coordinator keeps the state machine transitions explicit and serial.
func (s *SyncService) runLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-s.events:
			s.translateFile(path)
		}
	}
}

func (s *SyncService) debounced(path string) func(func()) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	d, ok := s.debouncers[path]
	if !ok {
		d = debounce.New(s.cfg.DebounceWindow)
		s.debouncers[path] = d
	}
	return d
}

func (s *SyncService) isWatched(path string) bool {
	for _, p := range s.watchPaths {
		if p == path {
			return true
		}
	}
	return false
}

// ── echo guard ─────────────────────────────────────────────

// markSelfWrite records that the coordinator is about to write path, so the
// watch event the write triggers is recognized and dropped.
func (s *SyncService) markSelfWrite(path string) {
	s.pendingMu.Lock()
	s.pendingSelfWrites[path]++
	s.pendingMu.Unlock()
}

// consumeSelfWrite reports whether the coalesced change burst for path is
// attributable to a write of our own. Unattributable bursts re-translate:
// re-translation of unchanged content is idempotent, a missed real change
// is not.
func (s *SyncService) consumeSelfWrite(path string) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if s.pendingSelfWrites[path] > 0 {
		s.pendingSelfWrites[path]--
		return true
	}
	return false
}

// ── state machine ──────────────────────────────────────────

func (s *SyncService) setState(path string, st FileState) {
	s.stateMu.Lock()
	s.states[path] = st
	s.stateMu.Unlock()
}

// State returns the current state-machine position for path.
func (s *SyncService) State(path string) FileState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if st, ok := s.states[path]; ok {
		return st
	}
	return StateIdle
}

// ── CSS → canvas ───────────────────────────────────────────

// TranslateFile runs one full translation pass for a stylesheet path. It is
// exported for the initial sync and for callers that bypass the watcher
// (tests, recovery tooling).
func (s *SyncService) TranslateFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", path, err)
	}
	return s.translateFile(abs)
}

func (s *SyncService) translateFile(path string) error {
	if !s.running.TryLock(path) {
		// A pass is in flight; the debouncer will deliver another event if
		// the file keeps changing.
		return nil
	}
	defer s.running.Unlock(path)
	defer s.setState(path, StateIdle)

	s.setState(path, StateTranslating)

	text, err := s.readBounded(path)
	if err != nil {
		log.Printf("sync: read %s: %v", path, err)
		s.broadcast(Message{Type: MsgCSSParseError, Payload: map[string]any{
			"error":    err.Error(),
			"filePath": path,
		}})
		return err
	}

	result := css.Parse(text, path)
	for _, w := range result.Warnings {
		log.Printf("css: %s: %s (%q)", path, w.Reason, w.Fragment)
	}
	if len(result.Warnings) > 0 {
		s.broadcast(Message{Type: MsgCSSParseError, Payload: map[string]any{
			"error":    fmt.Sprintf("%d fragment(s) skipped", len(result.Warnings)),
			"filePath": path,
			"warnings": result.Warnings,
		}})
	}

	incoming := elementsFromRules(result.Rules)

	s.mu.Lock()
	previous := s.elementsForFileLocked(path)
	changes := diff.Diff(previous, incoming)
	if !changes.HasChanges() {
		s.mu.Unlock()
		log.Printf("sync: %s unchanged (%d element(s))", path, len(changes.Unchanged))
		return nil
	}

	s.setState(path, StateWriting)
	merged := mergeElements(s.doc.Elements, incoming, path, s.now())
	candidate := s.commitCandidateLocked(merged, domain.OriginCSS, changeType(changes))

	if err := s.docStore.Save(candidate); err != nil {
		// Nothing committed: in-memory document still matches the last good
		// persisted generation.
		s.mu.Unlock()
		log.Printf("sync: persist after %s failed: %v", path, err)
		return err
	}
	s.doc = candidate
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if s.revisions != nil {
		if _, err := s.revisions.Push(s.docStore.Path(), snapshot); err != nil {
			log.Printf("sync: revision push failed: %v", err)
		}
	}

	s.broadcast(Message{Type: MsgCanvasUpdatedFromCSS, Payload: map[string]any{
		"canvasData": snapshot,
		"changeInfo": map[string]any{
			"sourceFile": path,
			"summary":    changes.Summary(),
			"modified":   changes.Modified,
			"added":      changes.Added,
			"removed":    changes.Removed,
		},
	}})

	sum := changes.Summary()
	log.Printf("sync: %s translated: +%d ~%d -%d", path, sum["added"], sum["modified"], sum["removed"])
	return nil
}

// readBounded reads a stylesheet within the size cap, retrying transient
// failures with exponential backoff. Permission errors are reported
// immediately; retrying them never helps.
func (s *SyncService) readBounded(path string) (string, error) {
	var data []byte
	err := s.withRetry("read "+path, func() error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() > s.cfg.MaxFileSize {
			return fmt.Errorf("%s is %d bytes, over the %d byte translation cap", path, info.Size(), s.cfg.MaxFileSize)
		}
		data, err = os.ReadFile(path)
		return err
	})
	return string(data), err
}

func (s *SyncService) withRetry(op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.cfg.RetryBackoff << (attempt - 1))
			log.Printf("sync: retrying %s (attempt %d/%d)", op, attempt, s.cfg.MaxRetries)
		}
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
	}
	return fmt.Errorf("%s: retries exhausted: %w", op, err)
}

// isTransient classifies file-access failures. Permission and disk-full
// problems need a human; everything else gets the bounded retry.
func isTransient(err error) bool {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrNotExist) {
		return false
	}
	if errors.Is(err, syscall.ENOSPC) {
		return false
	}
	return true
}

// elementsFromRules translates parsed rules, deduplicating by selector:
// the later rule wins, matching the cascade for equal specificity.
func elementsFromRules(rules []domain.StyleRule) []domain.CanvasElement {
	bySelector := map[string]int{}
	var out []domain.CanvasElement
	for _, rule := range rules {
		el := css.RuleToElement(rule)
		if i, seen := bySelector[el.SourceSelector]; seen {
			out[i] = el
			continue
		}
		bySelector[el.SourceSelector] = len(out)
		out = append(out, el)
	}
	return out
}

// mergeElements produces the next element list: elements from other files
// keep their slots, matched selectors keep their ID, position, and layer,
// removed selectors drop out, and new selectors append in rule order.
func mergeElements(existing, incoming []domain.CanvasElement, sourceFile string, now time.Time) []domain.CanvasElement {
	incomingByKey := make(map[string]*domain.CanvasElement, len(incoming))
	for i := range incoming {
		incomingByKey[incoming[i].Key()] = &incoming[i]
	}

	merged := make([]domain.CanvasElement, 0, len(existing)+len(incoming))
	used := map[string]bool{}
	for _, el := range existing {
		if el.SourceFile != sourceFile {
			merged = append(merged, el)
			continue
		}
		in, ok := incomingByKey[el.Key()]
		if !ok {
			continue // rule disappeared: element destroyed
		}
		used[el.Key()] = true
		next := *in
		next.ID = el.ID
		next.Position = el.Position
		next.Layer = el.Layer
		next.LastUpdated = now
		merged = append(merged, next)
	}

	placed := 0
	for i := range incoming {
		el := incoming[i]
		if used[el.Key()] {
			continue
		}
		if el.Position == (domain.Position{}) {
			// Stagger brand-new elements so they don't pile up at the origin.
			el.Position = domain.Position{
				X: 40 + float64(placed)*24,
				Y: 40 + float64(placed)*24,
			}
		}
		el.LastUpdated = now
		merged = append(merged, el)
		placed++
	}
	return merged
}

// commitCandidateLocked builds the next document generation without touching
// the current one, so a failed persist leaves memory consistent.
func (s *SyncService) commitCandidateLocked(elements []domain.CanvasElement, origin domain.ChangeOrigin, change string) *domain.CanvasDocument {
	next := *s.doc
	next.Elements = elements
	next.Meta = domain.DocumentMeta{
		Version:     s.doc.Meta.Version + 1,
		LastUpdated: s.now(),
		UpdatedFrom: origin,
		ChangeType:  change,
	}
	return &next
}

func (s *SyncService) snapshotLocked() *domain.CanvasDocument {
	snap := *s.doc
	snap.Elements = make([]domain.CanvasElement, len(s.doc.Elements))
	copy(snap.Elements, s.doc.Elements)
	return &snap
}

func (s *SyncService) elementsForFileLocked(path string) []domain.CanvasElement {
	var out []domain.CanvasElement
	for _, el := range s.doc.Elements {
		if el.SourceFile == path {
			out = append(out, el)
		}
	}
	return out
}

func changeType(changes *diff.Result) string {
	sum := changes.Summary()
	return fmt.Sprintf("css:+%d~%d-%d", sum["added"], sum["modified"], sum["removed"])
}

func (s *SyncService) broadcast(msg Message) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(msg)
	}
}

// ── canvas → CSS ───────────────────────────────────────────

// ApplyShapeDrawn adds a canvas-born element to the document and writes its
// rule to the element's stylesheet. Missing IDs and provenance are filled in.
func (s *SyncService) ApplyShapeDrawn(el domain.CanvasElement) (*domain.CanvasElement, error) {
	if el.ID == "" {
		el.ID = uuid.New().String()
	}
	if el.Kind == "" {
		el.Kind = domain.KindRectangle
	}
	if el.SourceSelector == "" {
		el.SourceSelector = "." + css.SelectorID(el.ID)
	}
	if el.SourceFile == "" {
		el.SourceFile = s.cfg.DefaultStylesheet
	} else {
		abs, err := filepath.Abs(el.SourceFile)
		if err != nil {
			return nil, fmt.Errorf("resolve source file %q: %w", el.SourceFile, err)
		}
		el.SourceFile = abs
	}
	el.LastUpdated = s.now()

	s.mu.Lock()
	if existing := s.doc.FindBySelector(el.SourceSelector); existing != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("selector %s already maps to element %s", el.SourceSelector, existing.ID)
	}
	elements := append(s.snapshotLocked().Elements, el)
	err := s.commitCanvasLocked(elements, "canvas:draw", el.SourceFile)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.broadcast(Message{Type: MsgCanvasShapeDrawn, Payload: map[string]any{"element": el}})
	return &el, nil
}

// ShapePatch is a partial canvas-side update. Nil position and size mean
// "leave unchanged", so moving an element to the origin stays expressible.
type ShapePatch struct {
	ID       string             `json:"id"`
	Kind     domain.ElementKind `json:"kind,omitempty"`
	Position *domain.Position   `json:"position,omitempty"`
	Size     *domain.Size       `json:"size,omitempty"`
	Style    map[string]any     `json:"style,omitempty"`
}

// ApplyShapeUpdated merges a canvas-side patch into an existing element.
// Style keys overwrite individually.
func (s *SyncService) ApplyShapeUpdated(patch ShapePatch) (*domain.CanvasElement, error) {
	s.mu.Lock()
	target := s.doc.FindByID(patch.ID)
	if target == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("element %s not found", patch.ID)
	}

	var updated domain.CanvasElement
	elements := s.snapshotLocked().Elements
	for i := range elements {
		if elements[i].ID != patch.ID {
			continue
		}
		el := &elements[i]
		if patch.Kind != "" {
			el.Kind = patch.Kind
		}
		if patch.Position != nil {
			el.Position = *patch.Position
		}
		if patch.Size != nil {
			el.Size = *patch.Size
		}
		for k, v := range patch.Style {
			if el.Style == nil {
				el.Style = map[string]any{}
			}
			el.Style[k] = v
		}
		el.LastUpdated = s.now()
		updated = *el
		break
	}

	err := s.commitCanvasLocked(elements, "canvas:update", target.SourceFile)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.broadcast(Message{Type: MsgCanvasShapeUpdated, Payload: map[string]any{"element": updated}})
	return &updated, nil
}

// ApplyShapeDeleted removes an element and rewrites its stylesheet without
// the corresponding rule.
func (s *SyncService) ApplyShapeDeleted(elementID string) error {
	s.mu.Lock()
	target := s.doc.FindByID(elementID)
	if target == nil {
		s.mu.Unlock()
		return fmt.Errorf("element %s not found", elementID)
	}
	sourceFile := target.SourceFile

	elements := make([]domain.CanvasElement, 0, len(s.doc.Elements))
	for _, el := range s.doc.Elements {
		if el.ID != elementID {
			elements = append(elements, el)
		}
	}
	err := s.commitCanvasLocked(elements, "canvas:delete", sourceFile)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.broadcast(Message{Type: MsgCanvasShapeDeleted, Payload: map[string]any{"elementId": elementID}})
	return nil
}

// commitCanvasLocked persists a canvas-origin generation and rewrites the
// stylesheet the mutation touched. Caller holds s.mu.
func (s *SyncService) commitCanvasLocked(elements []domain.CanvasElement, change, sourceFile string) error {
	candidate := s.commitCandidateLocked(elements, domain.OriginCanvas, change)
	if err := s.docStore.Save(candidate); err != nil {
		return fmt.Errorf("persist document: %w", err)
	}
	s.doc = candidate

	if sourceFile != "" {
		if err := s.writeStylesheetLocked(sourceFile); err != nil {
			log.Printf("sync: stylesheet write for %s failed: %v", sourceFile, err)
			return err
		}
	}

	if s.revisions != nil {
		if _, err := s.revisions.Push(s.docStore.Path(), s.snapshotLocked()); err != nil {
			log.Printf("sync: revision push failed: %v", err)
		}
	}
	return nil
}

// writeStylesheetLocked regenerates the full stylesheet for one file from
// the document and writes it, marking the write so its watch event is
// recognized as an echo.
func (s *SyncService) writeStylesheetLocked(path string) error {
	text := css.Stylesheet(s.elementsForFileLocked(path))
	s.markSelfWrite(path)
	err := s.withRetry("write "+path, func() error {
		return os.WriteFile(path, []byte(text), 0644)
	})
	if err != nil {
		// The write never happened, so no echo is coming.
		s.consumeSelfWrite(path)
		return err
	}
	return nil
}

// ── observer protocol ──────────────────────────────────────

// DesignData returns a snapshot of the authoritative document.
func (s *SyncService) DesignData() *domain.CanvasDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// HandleMessage processes one inbound observer message and returns the
// direct reply, or nil when the message only triggers broadcasts. Unknown
// message types always get an ERROR reply.
func (s *SyncService) HandleMessage(msg Message) *Message {
	switch msg.Type {
	case MsgCanvasShapeDrawn:
		el, err := elementFromPayload(msg.Payload, "element")
		if err == nil {
			_, err = s.ApplyShapeDrawn(*el)
		}
		return errorReplyIf(err)
	case MsgCanvasShapeUpdated:
		patch, err := patchFromPayload(msg.Payload, "element")
		if err == nil {
			_, err = s.ApplyShapeUpdated(*patch)
		}
		return errorReplyIf(err)
	case MsgCanvasShapeDeleted:
		id, _ := msg.Payload["elementId"].(string)
		if id == "" {
			return errorReply("elementId is required")
		}
		return errorReplyIf(s.ApplyShapeDeleted(id))
	case MsgRequestDesignData:
		return &Message{Type: MsgDesignDataResponse, Payload: map[string]any{
			"designData": s.DesignData(),
		}}
	default:
		return errorReply(fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func elementFromPayload(payload map[string]any, key string) (*domain.CanvasElement, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("%s is required", key)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", key, err)
	}
	var el domain.CanvasElement
	if err := json.Unmarshal(data, &el); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", key, err)
	}
	return &el, nil
}

func patchFromPayload(payload map[string]any, key string) (*ShapePatch, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("%s is required", key)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", key, err)
	}
	var patch ShapePatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", key, err)
	}
	return &patch, nil
}

func errorReply(text string) *Message {
	return &Message{Type: MsgError, Payload: map[string]any{"error": text}}
}

func errorReplyIf(err error) *Message {
	if err == nil {
		return nil
	}
	return errorReply(err.Error())
}
