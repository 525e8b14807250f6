package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/layout"
	"github.com/biroman/pkmnbindrnew-sub000/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Ledger Service — uncommitted local edits, coalesced per card
// ─────────────────────────────────────────────────────────────

var (
	// ErrCardNotPlaced rejects a remove, move or update for a card with
	// no effective placement in the binder.
	ErrCardNotPlaced = errors.New("card is not placed in this binder")

	// ErrCardAlreadyPlaced rejects an add for a card that already has an
	// effective placement in the binder.
	ErrCardAlreadyPlaced = errors.New("card is already placed in this binder")
)

// LedgerService owns the pending-change ledger. Every recorded change is
// validated against the effective layout (snapshot plus earlier pending
// changes) and coalesced against the card's existing entries before it is
// persisted, so the ledger always holds the net edit per card.
type LedgerService struct {
	ledger    *storage.LedgerStore
	binders   *storage.BinderStore
	snapshots *storage.SnapshotStore
	emitter   EventEmitter
	cache     Invalidator
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(
	ledger *storage.LedgerStore,
	binders *storage.BinderStore,
	snapshots *storage.SnapshotStore,
	emitter EventEmitter,
	cache Invalidator,
) *LedgerService {
	return &LedgerService{
		ledger:    ledger,
		binders:   binders,
		snapshots: snapshots,
		emitter:   emitter,
		cache:     cache,
	}
}

// RecordChangeInput describes one edit to queue.
type RecordChangeInput struct {
	BinderID string            `json:"binderId"`
	CardID   string            `json:"cardId"`
	Kind     domain.ChangeKind `json:"kind"`

	// Slot is an optional placement hint for add; nil lets the allocator
	// pick the first free slot.
	Slot *domain.SlotRef `json:"slot,omitempty"`

	// ToSlot is the move destination.
	ToSlot *domain.SlotRef `json:"toSlot,omitempty"`

	// Fields holds the changed card fields for update.
	Fields map[string]any `json:"fields,omitempty"`
}

// Record validates, coalesces and persists one change. A change that
// cancels out against an existing entry (remove after an uncommitted add,
// move back to the origin slot) returns nil without queueing anything.
func (s *LedgerService) Record(ctx context.Context, input RecordChangeInput) (*domain.PendingChange, error) {
	binder, err := s.binders.GetBinder(input.BinderID)
	if err != nil {
		return nil, fmt.Errorf("load binder: %w", err)
	}
	grid, err := layout.ParseGridSize(binder.GridSize)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.GetSnapshot(binder.ID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	changes, err := s.ledger.ListChanges(binder.ID)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	occ, err := newOccupancy(grid, binder.PageCount, snap, changes)
	if err != nil {
		return nil, err
	}

	var ch *domain.PendingChange
	switch input.Kind {
	case domain.ChangeAdd:
		ch, err = s.recordAdd(binder, occ, input)
	case domain.ChangeRemove:
		ch, err = s.recordRemove(binder, snap, occ, input)
	case domain.ChangeMove:
		ch, err = s.recordMove(binder, occ, input)
	case domain.ChangeUpdate:
		ch, err = s.recordUpdate(binder, occ, input)
	default:
		return nil, fmt.Errorf("unknown change kind: %q", input.Kind)
	}
	if err != nil {
		return nil, err
	}

	s.cache.MarkStale(ctx, StaleKeysFor(binder))
	s.emitter.Emit(ctx, "binder:changed", map[string]string{"binderId": binder.ID})
	return ch, nil
}

func (s *LedgerService) recordAdd(binder *domain.Binder, occ *occupancy, input RecordChangeInput) (*domain.PendingChange, error) {
	if _, placed := occ.byCard[input.CardID]; placed {
		return nil, ErrCardAlreadyPlaced
	}

	var slot domain.SlotRef
	if input.Slot != nil {
		if err := occ.checkFree(*input.Slot); err != nil {
			return nil, err
		}
		slot = *input.Slot
	} else {
		addrs, err := layout.FindAvailableSlots(1, occ.grid, binder.PageCount, occ.occupiedSet(), 0)
		if err != nil {
			return nil, err
		}
		slot = domain.SlotRef{PageNumber: addrs[0].PageNumber, SlotInPage: addrs[0].SlotInPage}
	}

	ch := &domain.PendingChange{
		ID:        uuid.New().String(),
		BinderID:  binder.ID,
		CardID:    input.CardID,
		Kind:      domain.ChangeAdd,
		Slot:      &slot,
		CreatedAt: time.Now(),
	}
	if err := s.ledger.InsertChange(ch); err != nil {
		return nil, fmt.Errorf("queue add: %w", err)
	}
	return ch, nil
}

func (s *LedgerService) recordRemove(binder *domain.Binder, snap *domain.BinderSnapshot, occ *occupancy, input RecordChangeInput) (*domain.PendingChange, error) {
	pendingAdd, err := s.ledger.GetChange(binder.ID, input.CardID, domain.ChangeAdd)
	if err != nil {
		return nil, err
	}
	if pendingAdd != nil {
		// The remote store never saw this card; cancel the add instead
		// of queueing a remove of nothing. Queued follow-ups die with it.
		for _, kind := range []domain.ChangeKind{domain.ChangeAdd, domain.ChangeMove, domain.ChangeUpdate} {
			if err := s.ledger.DeleteChange(binder.ID, input.CardID, kind); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	if _, placed := occ.byCard[input.CardID]; !placed {
		return nil, ErrCardNotPlaced
	}

	// The card lives in the snapshot. Queued moves and updates are moot
	// once it is removed.
	for _, kind := range []domain.ChangeKind{domain.ChangeMove, domain.ChangeUpdate} {
		if err := s.ledger.DeleteChange(binder.ID, input.CardID, kind); err != nil {
			return nil, err
		}
	}

	slot := snapshotSlot(snap, input.CardID)
	ch := &domain.PendingChange{
		ID:        uuid.New().String(),
		BinderID:  binder.ID,
		CardID:    input.CardID,
		Kind:      domain.ChangeRemove,
		Slot:      &slot,
		CreatedAt: time.Now(),
	}
	if err := s.ledger.InsertChange(ch); err != nil {
		return nil, fmt.Errorf("queue remove: %w", err)
	}
	return ch, nil
}

func (s *LedgerService) recordMove(binder *domain.Binder, occ *occupancy, input RecordChangeInput) (*domain.PendingChange, error) {
	if input.ToSlot == nil {
		return nil, fmt.Errorf("move requires a destination slot")
	}
	current, placed := occ.byCard[input.CardID]
	if !placed {
		return nil, ErrCardNotPlaced
	}
	to := *input.ToSlot
	holder, err := occ.holder(to)
	if err != nil {
		return nil, err
	}
	if holder != "" && holder != input.CardID {
		return nil, &layout.SlotCollisionError{Address: layout.SlotAddress{PageNumber: to.PageNumber, SlotInPage: to.SlotInPage}}
	}

	// A queued add just changes its target; the remote store will only
	// ever see the final slot.
	pendingAdd, err := s.ledger.GetChange(binder.ID, input.CardID, domain.ChangeAdd)
	if err != nil {
		return nil, err
	}
	if pendingAdd != nil {
		if to == *pendingAdd.Slot {
			return pendingAdd, nil
		}
		pendingAdd.Slot = &to
		if err := s.ledger.UpdateChange(pendingAdd); err != nil {
			return nil, err
		}
		return pendingAdd, nil
	}

	existing, err := s.ledger.GetChange(binder.ID, input.CardID, domain.ChangeMove)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Only the net displacement matters: replace the destination,
		// and drop the entry entirely when it lands back on the origin.
		if to == *existing.FromSlot {
			if err := s.ledger.DeleteChange(binder.ID, input.CardID, domain.ChangeMove); err != nil {
				return nil, err
			}
			return nil, nil
		}
		existing.ToSlot = &to
		if err := s.ledger.UpdateChange(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if to == current {
		return nil, nil
	}
	from := current
	ch := &domain.PendingChange{
		ID:        uuid.New().String(),
		BinderID:  binder.ID,
		CardID:    input.CardID,
		Kind:      domain.ChangeMove,
		FromSlot:  &from,
		ToSlot:    &to,
		CreatedAt: time.Now(),
	}
	if err := s.ledger.InsertChange(ch); err != nil {
		return nil, fmt.Errorf("queue move: %w", err)
	}
	return ch, nil
}

func (s *LedgerService) recordUpdate(binder *domain.Binder, occ *occupancy, input RecordChangeInput) (*domain.PendingChange, error) {
	if len(input.Fields) == 0 {
		return nil, fmt.Errorf("update requires at least one field")
	}
	if _, placed := occ.byCard[input.CardID]; !placed {
		return nil, ErrCardNotPlaced
	}

	existing, err := s.ledger.GetChange(binder.ID, input.CardID, domain.ChangeUpdate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Merge field-level, last writer wins.
		for k, v := range input.Fields {
			existing.Fields[k] = v
		}
		if err := s.ledger.UpdateChange(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	fields := make(map[string]any, len(input.Fields))
	for k, v := range input.Fields {
		fields[k] = v
	}
	ch := &domain.PendingChange{
		ID:        uuid.New().String(),
		BinderID:  binder.ID,
		CardID:    input.CardID,
		Kind:      domain.ChangeUpdate,
		Fields:    fields,
		CreatedAt: time.Now(),
	}
	if err := s.ledger.InsertChange(ch); err != nil {
		return nil, fmt.Errorf("queue update: %w", err)
	}
	return ch, nil
}

// List returns the binder's queued changes in apply order.
func (s *LedgerService) List(binderID string) ([]domain.PendingChange, error) {
	return s.ledger.ListChanges(binderID)
}

// Summarize counts the queued changes per kind.
func (s *LedgerService) Summarize(binderID string) (*domain.ChangeSummary, error) {
	changes, err := s.ledger.ListChanges(binderID)
	if err != nil {
		return nil, err
	}
	sum := &domain.ChangeSummary{}
	for _, ch := range changes {
		switch ch.Kind {
		case domain.ChangeAdd:
			sum.AddedCount++
		case domain.ChangeRemove:
			sum.RemovedCount++
		case domain.ChangeMove:
			sum.MovedCount++
		case domain.ChangeUpdate:
			sum.UpdatedCount++
		}
	}
	return sum, nil
}

// Clear drops every queued change for the binder.
func (s *LedgerService) Clear(binderID string) error {
	return s.ledger.ClearChanges(binderID)
}

// snapshotSlot finds the card's committed slot in the snapshot.
func snapshotSlot(snap *domain.BinderSnapshot, cardID string) domain.SlotRef {
	if snap == nil {
		return domain.SlotRef{}
	}
	for _, p := range snap.Placements {
		if p.CardID == cardID {
			return domain.SlotRef{PageNumber: p.PageNumber, SlotInPage: p.SlotInPage}
		}
	}
	return domain.SlotRef{}
}
