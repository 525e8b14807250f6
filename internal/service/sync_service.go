package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/remote"
	"github.com/biroman/pkmnbindrnew-sub000/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Sync Service — reconciles the ledger against the remote store
// ─────────────────────────────────────────────────────────────

// ErrSyncInFlight rejects a sync or revert for a binder that already has
// one outstanding.
var ErrSyncInFlight = errors.New("a sync for this binder is already in flight")

// SyncError wraps a remote-side failure. The ledger is left intact so a
// caller-initiated retry is safe.
type SyncError struct {
	Cause error
}

func (e *SyncError) Error() string { return fmt.Sprintf("sync failed: %v", e.Cause) }
func (e *SyncError) Unwrap() error { return e.Cause }

// RevertError wraps a failure while discarding queued changes.
type RevertError struct {
	Cause error
}

func (e *RevertError) Error() string { return fmt.Sprintf("revert failed: %v", e.Cause) }
func (e *RevertError) Unwrap() error { return e.Cause }

// SyncService pushes queued changes to the remote store and adopts the
// state it returns as the new local snapshot. Syncs are serialized per
// binder and throttled by the save gate.
type SyncService struct {
	binders   *storage.BinderStore
	snapshots *storage.SnapshotStore
	ledger    *storage.LedgerStore
	runs      *storage.SyncRunStore
	remote    remote.Store
	gate      *SaveGate
	emitter   EventEmitter
	cache     Invalidator
	logger    hclog.Logger

	runningSyncs runningSyncGuard
	cronSched    *cron.Cron
}

// NewSyncService creates a SyncService.
func NewSyncService(
	binders *storage.BinderStore,
	snapshots *storage.SnapshotStore,
	ledger *storage.LedgerStore,
	runs *storage.SyncRunStore,
	remoteStore remote.Store,
	gate *SaveGate,
	emitter EventEmitter,
	cache Invalidator,
	logger hclog.Logger,
) *SyncService {
	return &SyncService{
		binders:   binders,
		snapshots: snapshots,
		ledger:    ledger,
		runs:      runs,
		remote:    remoteStore,
		gate:      gate,
		emitter:   emitter,
		cache:     cache,
		logger:    logger,
	}
}

// ── Reconciliation ─────────────────────────────────────────

// SyncToRemote pushes the binder's queued changes as one batch, adopts the
// returned state as the new snapshot and clears the ledger. With nothing
// queued it just refreshes the snapshot. A failed push changes nothing
// locally.
func (s *SyncService) SyncToRemote(ctx context.Context, binderID string) (*domain.BinderSnapshot, error) {
	if !s.runningSyncs.TryLock(binderID) {
		return nil, ErrSyncInFlight
	}
	defer s.runningSyncs.Unlock(binderID)

	binder, err := s.binders.GetBinder(binderID)
	if err != nil {
		return nil, fmt.Errorf("load binder: %w", err)
	}
	changes, err := s.ledger.ListChanges(binderID)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	if len(changes) == 0 {
		return s.refresh(ctx, binder)
	}

	start := time.Now()
	var snap *domain.BinderSnapshot
	err = s.gate.TryCommit(func() error {
		writeCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		var werr error
		snap, werr = s.remote.WriteBinderBatch(writeCtx, binder, changes)
		return werr
	})

	var cooling *CoolingError
	var limited *RateLimitedError
	if errors.As(err, &cooling) || errors.As(err, &limited) {
		// Rejected locally; the remote store was never called.
		return nil, err
	}
	if err != nil {
		s.recordRun(binderID, start, 0, err)
		s.logger.Error("sync failed", "binder", binderID, "error", err)
		return nil, &SyncError{Cause: err}
	}

	if err := s.snapshots.PutSnapshot(snap); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	if err := s.ledger.ClearChanges(binderID); err != nil {
		return nil, fmt.Errorf("clear ledger: %w", err)
	}
	s.recordRun(binderID, start, len(changes), nil)

	s.cache.MarkStale(ctx, StaleKeysFor(binder))
	s.emitter.Emit(ctx, "binder:synced", map[string]any{
		"binderId":       binderID,
		"changesApplied": len(changes),
		"version":        snap.Version,
	})
	s.logger.Info("sync complete", "binder", binderID, "changes", len(changes), "version", snap.Version)
	return snap, nil
}

// RevertToRemote discards every queued change, restoring the binder to the
// last synced snapshot. The remote store is not contacted.
func (s *SyncService) RevertToRemote(ctx context.Context, binderID string) error {
	if !s.runningSyncs.TryLock(binderID) {
		return ErrSyncInFlight
	}
	defer s.runningSyncs.Unlock(binderID)

	binder, err := s.binders.GetBinder(binderID)
	if err != nil {
		return &RevertError{Cause: err}
	}
	if err := s.ledger.ClearChanges(binderID); err != nil {
		return &RevertError{Cause: err}
	}
	s.cache.MarkStale(ctx, StaleKeysFor(binder))
	s.emitter.Emit(ctx, "binder:reverted", map[string]string{"binderId": binderID})
	return nil
}

// Pull refreshes the local snapshot from the remote store without pushing
// anything. Refused while changes are queued: they were validated against
// the snapshot being replaced.
func (s *SyncService) Pull(ctx context.Context, binderID string) (*domain.BinderSnapshot, error) {
	if !s.runningSyncs.TryLock(binderID) {
		return nil, ErrSyncInFlight
	}
	defer s.runningSyncs.Unlock(binderID)

	binder, err := s.binders.GetBinder(binderID)
	if err != nil {
		return nil, fmt.Errorf("load binder: %w", err)
	}
	n, err := s.ledger.CountChanges(binderID)
	if err != nil {
		return nil, fmt.Errorf("count changes: %w", err)
	}
	if n > 0 {
		return nil, fmt.Errorf("binder has %d queued changes; sync or revert before pulling", n)
	}
	return s.refresh(ctx, binder)
}

// refresh adopts the remote state without writing anything. Caller holds
// the binder's sync lock.
func (s *SyncService) refresh(ctx context.Context, binder *domain.Binder) (*domain.BinderSnapshot, error) {
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	snap, err := s.remote.ReadBinder(readCtx, binder.ID)
	if errors.Is(err, remote.ErrBinderNotFound) {
		// Nothing committed yet; the binder starts empty.
		return &domain.BinderSnapshot{
			BinderID:   binder.ID,
			GridSize:   binder.GridSize,
			PageCount:  binder.PageCount,
			Placements: []domain.CardPlacement{},
		}, nil
	}
	if err != nil {
		return nil, &SyncError{Cause: err}
	}
	if err := s.snapshots.PutSnapshot(snap); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	s.cache.MarkStale(ctx, StaleKeysFor(binder))
	return snap, nil
}

// ListRuns returns the binder's most recent sync attempts.
func (s *SyncService) ListRuns(binderID string) ([]domain.SyncRun, error) {
	return s.runs.ListSyncRuns(binderID, 50)
}

// GateState reports the save gate's current phase.
func (s *SyncService) GateState() GateState {
	return s.gate.State()
}

func (s *SyncService) recordRun(binderID string, start time.Time, applied int, runErr error) {
	run := &domain.SyncRun{
		BinderID:       binderID,
		StartedAt:      start,
		FinishedAt:     time.Now(),
		Status:         "success",
		ChangesApplied: applied,
	}
	if runErr != nil {
		run.Status = "error"
		run.Error = runErr.Error()
	}
	if err := s.runs.CreateSyncRun(run); err != nil {
		s.logger.Warn("record sync run", "binder", binderID, "error", err)
	}
}

// ── Auto-sync scheduling ───────────────────────────────────

// SetAutoSyncCron sets or clears the binder's sync schedule and rebuilds
// the scheduler.
func (s *SyncService) SetAutoSyncCron(ctx context.Context, binderID, expr string) error {
	if expr != "" {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", expr, err)
		}
	}
	binder, err := s.binders.GetBinder(binderID)
	if err != nil {
		return err
	}
	binder.AutoSyncCron = expr
	if err := s.binders.UpdateBinder(binder); err != nil {
		return err
	}
	s.cache.MarkStale(ctx, []string{PreferencesKey(binderID)})
	s.RestartAutoSync(ctx)
	return nil
}

// RestartAutoSync tears down the scheduler and rebuilds it from every
// binder carrying a cron expression.
func (s *SyncService) RestartAutoSync(ctx context.Context) {
	s.stopScheduler()

	binders, err := s.binders.ListScheduledBinders()
	if err != nil {
		s.logger.Error("auto-sync: list binders", "error", err)
		return
	}
	if len(binders) == 0 {
		return
	}

	c := cron.New()
	scheduled := 0
	for _, b := range binders {
		id := b.ID
		_, err := c.AddFunc(b.AutoSyncCron, func() {
			s.logger.Debug("auto-sync: running", "binder", id)
			if _, err := s.SyncToRemote(ctx, id); err != nil {
				s.logger.Warn("auto-sync failed", "binder", id, "error", err)
			}
		})
		if err != nil {
			s.logger.Warn("auto-sync: invalid cron expression", "binder", b.ID, "expr", b.AutoSyncCron, "error", err)
			continue
		}
		scheduled++
	}
	if scheduled == 0 {
		return
	}
	c.Start()
	s.cronSched = c
	s.logger.Info("auto-sync: scheduled", "binders", scheduled)
}

// WaitRunning blocks until in-flight syncs finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *SyncService) WaitRunning(ctx context.Context) {
	s.runningSyncs.WaitAll(ctx)
}

// Stop tears down the scheduler.
func (s *SyncService) Stop() {
	s.stopScheduler()
}

func (s *SyncService) stopScheduler() {
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
