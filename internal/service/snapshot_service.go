package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"stylecanvas/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Snapshot Service — scheduled document snapshots into history
// ─────────────────────────────────────────────────────────────

// SnapshotService periodically records the authoritative document into the
// revision store, independent of change-driven revisions. It gives the
// history a floor even when a session produces no CSS or canvas edits that
// happen to commit.
type SnapshotService struct {
	sync      *SyncService
	revisions *storage.RevisionStore
	docPath   string
	cron      *cron.Cron

	mu          sync.Mutex
	lastVersion int
}

// NewSnapshotService creates a snapshot scheduler. revisions must be non-nil;
// callers that run without history simply never construct one.
func NewSnapshotService(syncSvc *SyncService, revisions *storage.RevisionStore, docPath string) *SnapshotService {
	return &SnapshotService{
		sync:        syncSvc,
		revisions:   revisions,
		docPath:     docPath,
		lastVersion: -1,
	}
}

// Start begins snapshotting on the given cron schedule (e.g. "@every 15m").
func (s *SnapshotService) Start(schedule string) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, s.snapshot); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	log.Printf("snapshot: scheduled %q", schedule)
	return nil
}

// Stop halts the scheduler and waits for a running snapshot to finish.
func (s *SnapshotService) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	log.Printf("snapshot: stopped")
}

func (s *SnapshotService) snapshot() {
	doc := s.sync.DesignData()

	s.mu.Lock()
	unchanged := doc.Meta.Version == s.lastVersion
	if !unchanged {
		s.lastVersion = doc.Meta.Version
	}
	s.mu.Unlock()
	if unchanged {
		return // nothing committed since the last snapshot
	}

	if _, err := s.revisions.Push(s.docPath, doc); err != nil {
		log.Printf("snapshot: push failed: %v", err)
		return
	}
	log.Printf("snapshot: recorded version %d", doc.Meta.Version)
}
