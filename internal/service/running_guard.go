package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// runningTranslationsGuard — prevents concurrent translation of one file
// ─────────────────────────────────────────────────────────────

// runningTranslationsGuard ensures only one translation pass per stylesheet
// path runs at a time, and lets shutdown wait for in-flight passes so a
// write-or-broadcast phase is never interrupted mid-commit.
type runningTranslationsGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock attempts to mark path as translating. Returns true if successful.
// Returns false if a pass for the path is already in flight.
func (g *runningTranslationsGuard) TryLock(path string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[path]; ok {
		return false // already translating
	}
	g.running[path] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock marks the path as no longer translating. Must be called after
// TryLock returns true.
func (g *runningTranslationsGuard) Unlock(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, path)
	g.wg.Done()
}

// WaitAll blocks until all in-flight translations finish or ctx is cancelled.
func (g *runningTranslationsGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
