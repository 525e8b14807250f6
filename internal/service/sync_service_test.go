package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/remote"
	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

// ─────────────────────────────────────────────────────────────
// SyncService tests — reconciliation against a fake remote
// ─────────────────────────────────────────────────────────────

// fakeRemote is an in-memory remote.Store. Writes apply the batch to the
// held state and bump the version; entered/release let a test hold a write
// open to provoke concurrent syncs.
type fakeRemote struct {
	mu      sync.Mutex
	state   map[string]*domain.BinderSnapshot
	writes  int
	failErr error

	entered chan struct{}
	release chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{state: make(map[string]*domain.BinderSnapshot)}
}

func (r *fakeRemote) ReadBinder(_ context.Context, binderID string) (*domain.BinderSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.state[binderID]
	if !ok {
		return nil, remote.ErrBinderNotFound
	}
	return snap.Clone(), nil
}

func (r *fakeRemote) WriteBinderBatch(_ context.Context, binder *domain.Binder, changes []domain.PendingChange) (*domain.BinderSnapshot, error) {
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	r.writes++

	prev := r.state[binder.ID]
	var placements []domain.CardPlacement
	var version int64
	if prev != nil {
		placements = append(placements, prev.Placements...)
		version = prev.Version
	}
	for _, ch := range changes {
		switch ch.Kind {
		case domain.ChangeAdd:
			placements = append(placements, domain.CardPlacement{
				CardID:     ch.CardID,
				PageNumber: ch.Slot.PageNumber,
				SlotInPage: ch.Slot.SlotInPage,
				Origin:     domain.OriginRemote,
			})
		case domain.ChangeRemove:
			for i, p := range placements {
				if p.CardID == ch.CardID {
					placements = append(placements[:i], placements[i+1:]...)
					break
				}
			}
		case domain.ChangeMove:
			for i := range placements {
				if placements[i].CardID == ch.CardID {
					placements[i].PageNumber = ch.ToSlot.PageNumber
					placements[i].SlotInPage = ch.ToSlot.SlotInPage
				}
			}
		}
	}

	snap := &domain.BinderSnapshot{
		BinderID:   binder.ID,
		GridSize:   binder.GridSize,
		PageCount:  binder.PageCount,
		Placements: placements,
		Version:    version + 1,
		SyncedAt:   time.Now(),
	}
	r.state[binder.ID] = snap
	return snap.Clone(), nil
}

func (r *fakeRemote) Ping(context.Context) error  { return nil }
func (r *fakeRemote) Close(context.Context) error { return nil }

func (r *fakeRemote) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// newSync wires a SyncService over the env's stores.
func (e *env) newSync(remoteStore remote.Store, gate *service.SaveGate) *service.SyncService {
	if gate == nil {
		gate = service.NewSaveGate(service.SaveGateConfig{Enforce: false})
	}
	return service.NewSyncService(e.binders, e.snapshots, e.ledgerDB, e.runs, remoteStore,
		gate, e.emitter, e.cache, hclog.NewNullLogger())
}

func TestSync_SuccessClearsLedgerAndAdoptsSnapshot(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	fr := newFakeRemote()
	sync := e.newSync(fr, nil)

	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeAdd})
	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-b", Kind: domain.ChangeAdd})

	snap, err := sync.SyncToRemote(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(snap.Placements) != 2 || snap.Version != 1 {
		t.Fatalf("expected 2 placements at version 1, got %d at %d", len(snap.Placements), snap.Version)
	}

	changes, err := e.ledger.List(b.ID)
	if err != nil {
		t.Fatalf("list changes: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("ledger must be empty after a successful sync, got %d entries", len(changes))
	}

	stored, err := e.snapshots.GetSnapshot(b.ID)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if stored == nil || stored.Version != 1 || len(stored.Placements) != 2 {
		t.Errorf("stored snapshot must match the remote reply, got %+v", stored)
	}

	runs, err := sync.ListRuns(b.ID)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "success" || runs[0].ChangesApplied != 2 {
		t.Errorf("expected one successful run applying 2 changes, got %+v", runs)
	}
	if !e.cache.Seen("binder:" + b.ID + ":cards") {
		t.Error("sync must invalidate the binder card list")
	}
}

func TestSync_FailureLeavesLedgerIntact(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	fr := newFakeRemote()
	fr.failErr = errors.New("connection reset")
	sync := e.newSync(fr, nil)

	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeAdd})

	_, err := sync.SyncToRemote(context.Background(), b.ID)
	var syncErr *service.SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected SyncError, got %v", err)
	}

	changes, _ := e.ledger.List(b.ID)
	if len(changes) != 1 {
		t.Errorf("failed sync must leave the ledger intact, got %d entries", len(changes))
	}
	snap, _ := e.snapshots.GetSnapshot(b.ID)
	if snap != nil {
		t.Errorf("failed sync must not store a snapshot, got %+v", snap)
	}

	runs, _ := sync.ListRuns(b.ID)
	if len(runs) != 1 || runs[0].Status != "error" {
		t.Errorf("expected one failed run on record, got %+v", runs)
	}
}

func TestSync_ConcurrentSecondCallRejected(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	fr := newFakeRemote()
	fr.entered = make(chan struct{})
	fr.release = make(chan struct{})
	sync := e.newSync(fr, nil)

	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeAdd})

	firstDone := make(chan error, 1)
	go func() {
		_, err := sync.SyncToRemote(context.Background(), b.ID)
		firstDone <- err
	}()
	<-fr.entered // first sync is inside the remote write

	_, err := sync.SyncToRemote(context.Background(), b.ID)
	if !errors.Is(err, service.ErrSyncInFlight) {
		t.Fatalf("expected ErrSyncInFlight, got %v", err)
	}

	close(fr.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	if n := fr.writeCount(); n != 1 {
		t.Errorf("expected exactly one remote write, got %d", n)
	}
}

func TestSync_CoolingRejectsWithoutRemoteCall(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	fr := newFakeRemote()
	clock := newFakeClock()
	gate := gateWithClock(service.SaveGateConfig{
		PerMinute: 100,
		PerHour:   1000,
		Cooldown:  20 * time.Second,
		Enforce:   true,
	}, clock)
	sync := e.newSync(fr, gate)

	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeAdd})
	if _, err := sync.SyncToRemote(context.Background(), b.ID); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	clock.Advance(5 * time.Second)
	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-b", Kind: domain.ChangeAdd})

	_, err := sync.SyncToRemote(context.Background(), b.ID)
	var cooling *service.CoolingError
	if !errors.As(err, &cooling) {
		t.Fatalf("expected CoolingError, got %v", err)
	}
	if n := fr.writeCount(); n != 1 {
		t.Errorf("gated sync must not reach the remote store, writes = %d", n)
	}
	if changes, _ := e.ledger.List(b.ID); len(changes) != 1 {
		t.Errorf("gated sync must leave the ledger intact, got %d entries", len(changes))
	}
	if runs, _ := sync.ListRuns(b.ID); len(runs) != 1 {
		t.Errorf("a locally rejected attempt must not record a run, got %d", len(runs))
	}
}

func TestRevert_DiscardsQueuedChanges(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	e.seedSnapshot(t, b, []domain.CardPlacement{
		{CardID: "card-a", PageNumber: 1, SlotInPage: 1, Origin: domain.OriginRemote},
	})
	sync := e.newSync(newFakeRemote(), nil)

	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-b", Kind: domain.ChangeAdd})
	record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeMove,
		ToSlot: &domain.SlotRef{PageNumber: 1, SlotInPage: 9},
	})

	if err := sync.RevertToRemote(context.Background(), b.ID); err != nil {
		t.Fatalf("revert: %v", err)
	}

	changes, _ := e.ledger.List(b.ID)
	if len(changes) != 0 {
		t.Fatalf("revert must empty the ledger, got %d entries", len(changes))
	}

	// The snapshot is untouched; the binder reads exactly as last synced.
	snap, err := e.snapshots.GetSnapshot(b.ID)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if len(snap.Placements) != 1 || snap.Placements[0].CardID != "card-a" || snap.Placements[0].SlotInPage != 1 {
		t.Errorf("revert must leave the snapshot as-is, got %+v", snap.Placements)
	}
}

func TestPull_RefusedWhileChangesQueued(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	sync := e.newSync(newFakeRemote(), nil)

	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeAdd})

	if _, err := sync.Pull(context.Background(), b.ID); err == nil {
		t.Fatal("pull with queued changes must be refused")
	}
}

func TestPull_AdoptsRemoteState(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	fr := newFakeRemote()
	fr.state[b.ID] = &domain.BinderSnapshot{
		BinderID:  b.ID,
		GridSize:  b.GridSize,
		PageCount: b.PageCount,
		Placements: []domain.CardPlacement{
			{CardID: "card-x", PageNumber: 1, SlotInPage: 3, Origin: domain.OriginRemote},
		},
		Version: 7,
	}
	sync := e.newSync(fr, nil)

	snap, err := sync.Pull(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if snap.Version != 7 || len(snap.Placements) != 1 {
		t.Fatalf("expected remote state at version 7, got %+v", snap)
	}
	stored, _ := e.snapshots.GetSnapshot(b.ID)
	if stored == nil || stored.Version != 7 {
		t.Errorf("pull must store the adopted snapshot, got %+v", stored)
	}
}

func TestSync_NothingQueuedRefreshes(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	fr := newFakeRemote()
	sync := e.newSync(fr, nil)

	// The remote has never seen the binder: sync yields an empty snapshot
	// without consuming a gate attempt or writing anything.
	snap, err := sync.SyncToRemote(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("sync with empty ledger: %v", err)
	}
	if len(snap.Placements) != 0 {
		t.Errorf("expected empty placements, got %+v", snap.Placements)
	}
	if n := fr.writeCount(); n != 0 {
		t.Errorf("nothing to push, writes = %d", n)
	}
}
