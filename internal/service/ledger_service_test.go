package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/layout"
	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
	"github.com/biroman/pkmnbindrnew-sub000/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// LedgerService tests — coalescing over a real SQLite ledger
// ─────────────────────────────────────────────────────────────

// env wires the services against a throwaway SQLite database.
type env struct {
	db        *storage.DB
	binders   *storage.BinderStore
	cards     *storage.CardStore
	snapshots *storage.SnapshotStore
	ledgerDB  *storage.LedgerStore
	runs      *storage.SyncRunStore

	emitter *service.MockEmitter
	cache   *service.MockInvalidator

	binderSvc *service.BinderService
	ledger    *service.LedgerService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	e := &env{
		db:        db,
		binders:   storage.NewBinderStore(db),
		cards:     storage.NewCardStore(db),
		snapshots: storage.NewSnapshotStore(db),
		ledgerDB:  storage.NewLedgerStore(db),
		runs:      storage.NewSyncRunStore(db),
		emitter:   &service.MockEmitter{},
		cache:     &service.MockInvalidator{},
	}
	e.binderSvc = service.NewBinderService(e.binders, e.cards, e.snapshots, e.ledgerDB, e.emitter, e.cache)
	e.ledger = service.NewLedgerService(e.ledgerDB, e.binders, e.snapshots, e.emitter, e.cache)
	return e
}

// newBinder persists a binder fixture.
func (e *env) newBinder(t *testing.T, gridSize string, pageCount int) *domain.Binder {
	t.Helper()
	b, err := e.binderSvc.CreateBinder(context.Background(), service.CreateBinderInput{
		OwnerID:   "owner-1",
		Name:      "Test Binder",
		GridSize:  gridSize,
		PageCount: pageCount,
	})
	if err != nil {
		t.Fatalf("create binder: %v", err)
	}
	return b
}

// seedSnapshot installs a fake last-synced state.
func (e *env) seedSnapshot(t *testing.T, b *domain.Binder, placements []domain.CardPlacement) {
	t.Helper()
	err := e.snapshots.PutSnapshot(&domain.BinderSnapshot{
		BinderID:   b.ID,
		GridSize:   b.GridSize,
		PageCount:  b.PageCount,
		Placements: placements,
		Version:    1,
	})
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

func record(t *testing.T, e *env, input service.RecordChangeInput) *domain.PendingChange {
	t.Helper()
	ch, err := e.ledger.Record(context.Background(), input)
	if err != nil {
		t.Fatalf("record %s for %s: %v", input.Kind, input.CardID, err)
	}
	return ch
}

func TestRecord_AddAssignsFirstFreeSlot(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	e.seedSnapshot(t, b, []domain.CardPlacement{
		{CardID: "remote-1", PageNumber: 1, SlotInPage: 1, Origin: domain.OriginRemote},
	})

	ch := record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeAdd})
	if ch.Slot == nil || ch.Slot.PageNumber != 1 || ch.Slot.SlotInPage != 2 {
		t.Fatalf("expected first free slot page 1 slot 2, got %+v", ch.Slot)
	}
	if !e.cache.Seen("binder:" + b.ID + ":cards") {
		t.Error("recording a change must invalidate the binder card list")
	}
}

func TestRecord_AddThenRemoveCancels(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)

	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeAdd})
	ch := record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeRemove})
	if ch != nil {
		t.Fatalf("remove after uncommitted add should cancel out, got %+v", ch)
	}

	changes, err := e.ledger.List(b.ID)
	if err != nil {
		t.Fatalf("list changes: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected empty ledger, got %d entries", len(changes))
	}
}

func TestRecord_AddAlreadyPlacedRejected(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	e.seedSnapshot(t, b, []domain.CardPlacement{
		{CardID: "card-a", PageNumber: 1, SlotInPage: 1, Origin: domain.OriginRemote},
	})

	_, err := e.ledger.Record(context.Background(), service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeAdd,
	})
	if !errors.Is(err, service.ErrCardAlreadyPlaced) {
		t.Fatalf("expected ErrCardAlreadyPlaced, got %v", err)
	}
}

func TestRecord_MoveReplacesDestination(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	e.seedSnapshot(t, b, []domain.CardPlacement{
		{CardID: "card-a", PageNumber: 1, SlotInPage: 1, Origin: domain.OriginRemote},
	})

	first := record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeMove,
		ToSlot: &domain.SlotRef{PageNumber: 1, SlotInPage: 5},
	})
	second := record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeMove,
		ToSlot: &domain.SlotRef{PageNumber: 1, SlotInPage: 9},
	})

	if second.Seq != first.Seq {
		t.Errorf("coalesced move must keep its original seq: %d != %d", second.Seq, first.Seq)
	}
	changes, _ := e.ledger.List(b.ID)
	if len(changes) != 1 {
		t.Fatalf("expected 1 coalesced move, got %d entries", len(changes))
	}
	if changes[0].FromSlot.SlotInPage != 1 || changes[0].ToSlot.SlotInPage != 9 {
		t.Errorf("expected net move 1 -> 9, got %+v -> %+v", changes[0].FromSlot, changes[0].ToSlot)
	}
}

func TestRecord_MoveBackToOriginCancels(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	e.seedSnapshot(t, b, []domain.CardPlacement{
		{CardID: "card-a", PageNumber: 1, SlotInPage: 1, Origin: domain.OriginRemote},
	})

	record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeMove,
		ToSlot: &domain.SlotRef{PageNumber: 1, SlotInPage: 5},
	})
	ch := record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeMove,
		ToSlot: &domain.SlotRef{PageNumber: 1, SlotInPage: 1},
	})
	if ch != nil {
		t.Fatalf("move back to origin should cancel the entry, got %+v", ch)
	}
	changes, _ := e.ledger.List(b.ID)
	if len(changes) != 0 {
		t.Fatalf("expected empty ledger, got %d entries", len(changes))
	}
}

func TestRecord_MoveCollisionRejected(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	e.seedSnapshot(t, b, []domain.CardPlacement{
		{CardID: "card-a", PageNumber: 1, SlotInPage: 1, Origin: domain.OriginRemote},
		{CardID: "card-b", PageNumber: 1, SlotInPage: 2, Origin: domain.OriginRemote},
	})

	_, err := e.ledger.Record(context.Background(), service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeMove,
		ToSlot: &domain.SlotRef{PageNumber: 1, SlotInPage: 2},
	})
	var collision *layout.SlotCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected SlotCollisionError, got %v", err)
	}
}

func TestRecord_UpdateMergesFields(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	e.seedSnapshot(t, b, []domain.CardPlacement{
		{CardID: "card-a", PageNumber: 1, SlotInPage: 1, Origin: domain.OriginRemote},
	})

	record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeUpdate,
		Fields: map[string]any{"condition": "mint", "graded": true},
	})
	record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeUpdate,
		Fields: map[string]any{"condition": "played"},
	})

	changes, _ := e.ledger.List(b.ID)
	if len(changes) != 1 {
		t.Fatalf("expected 1 merged update, got %d entries", len(changes))
	}
	if changes[0].Fields["condition"] != "played" {
		t.Errorf("last writer must win per field, got %v", changes[0].Fields["condition"])
	}
	if changes[0].Fields["graded"] != true {
		t.Errorf("earlier fields must survive the merge, got %v", changes[0].Fields["graded"])
	}
}

func TestRecord_AddIntoFreedSlot(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	e.seedSnapshot(t, b, []domain.CardPlacement{
		{CardID: "card-a", PageNumber: 1, SlotInPage: 1, Origin: domain.OriginRemote},
	})

	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeRemove})

	// The freed slot is reusable against effective occupancy even though
	// the ledger still holds the remove for the same address.
	ch := record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-b", Kind: domain.ChangeAdd,
		Slot: &domain.SlotRef{PageNumber: 1, SlotInPage: 1},
	})
	if ch == nil || ch.Slot.SlotInPage != 1 {
		t.Fatalf("expected add into freed slot 1, got %+v", ch)
	}
}

func TestRecord_RemoveDropsQueuedFollowups(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	e.seedSnapshot(t, b, []domain.CardPlacement{
		{CardID: "card-a", PageNumber: 1, SlotInPage: 1, Origin: domain.OriginRemote},
	})

	record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeMove,
		ToSlot: &domain.SlotRef{PageNumber: 1, SlotInPage: 4},
	})
	record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeUpdate,
		Fields: map[string]any{"condition": "mint"},
	})
	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeRemove})

	changes, _ := e.ledger.List(b.ID)
	if len(changes) != 1 || changes[0].Kind != domain.ChangeRemove {
		t.Fatalf("expected only the remove to survive, got %+v", changes)
	}
}

func TestRecord_FillBinderThenOverflow(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)

	cards := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9"}
	for i, id := range cards {
		ch := record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: id, Kind: domain.ChangeAdd})
		if ch.Slot.PageNumber != 1 || ch.Slot.SlotInPage != i+1 {
			t.Fatalf("card %s: expected page 1 slot %d, got %+v", id, i+1, ch.Slot)
		}
	}

	_, err := e.ledger.Record(context.Background(), service.RecordChangeInput{
		BinderID: b.ID, CardID: "c10", Kind: domain.ChangeAdd,
	})
	var capErr *layout.InsufficientCapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected InsufficientCapacityError, got %v", err)
	}
	if capErr.Shortfall() != 1 {
		t.Errorf("expected shortfall 1, got %d", capErr.Shortfall())
	}
}

func TestSummarize_CountsPerKind(t *testing.T) {
	e := newEnv(t)
	b := e.newBinder(t, "3x3", 1)
	e.seedSnapshot(t, b, []domain.CardPlacement{
		{CardID: "card-a", PageNumber: 1, SlotInPage: 1, Origin: domain.OriginRemote},
		{CardID: "card-b", PageNumber: 1, SlotInPage: 2, Origin: domain.OriginRemote},
	})

	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-c", Kind: domain.ChangeAdd})
	record(t, e, service.RecordChangeInput{BinderID: b.ID, CardID: "card-a", Kind: domain.ChangeRemove})
	record(t, e, service.RecordChangeInput{
		BinderID: b.ID, CardID: "card-b", Kind: domain.ChangeMove,
		ToSlot: &domain.SlotRef{PageNumber: 1, SlotInPage: 9},
	})

	sum, err := e.ledger.Summarize(b.ID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	want := domain.ChangeSummary{AddedCount: 1, RemovedCount: 1, MovedCount: 1}
	if *sum != want {
		t.Errorf("summary mismatch: got %+v, want %+v", *sum, want)
	}
	if sum.Total() != 3 {
		t.Errorf("expected total 3, got %d", sum.Total())
	}
}
