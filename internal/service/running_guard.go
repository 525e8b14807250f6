package service

import (
	"context"
	"sync"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = runningSyncGuard

// ─────────────────────────────────────────────────────────────
// runningSyncGuard — at most one sync in flight per binder
// ─────────────────────────────────────────────────────────────

// runningSyncGuard serializes reconciliation per binder. A second sync or
// revert for a binder that already has one outstanding is rejected, never
// interleaved, so two batches cannot race on the same slot addresses.
type runningSyncGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock attempts to mark binderID as reconciling. Returns true if successful.
// Returns false if a sync for the binder is already in flight.
func (g *runningSyncGuard) TryLock(binderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[binderID]; ok {
		return false // already in flight
	}
	g.running[binderID] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock marks the binder's sync as finished. Must be called after TryLock returns true.
func (g *runningSyncGuard) Unlock(binderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, binderID)
	g.wg.Done()
}

// WaitAll blocks until all in-flight syncs complete or ctx is cancelled.
func (g *runningSyncGuard) WaitAll(ctx context.Context) {
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
