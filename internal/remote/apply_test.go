package remote

import (
	"errors"
	"testing"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/layout"
)

func slot(page, slotInPage int) *domain.SlotRef {
	return &domain.SlotRef{PageNumber: page, SlotInPage: slotInPage}
}

func TestApplyChanges_AddRemoveMove(t *testing.T) {
	base := []placementRecord{
		{CardID: "a", PageNumber: 1, SlotInPage: 1},
		{CardID: "b", PageNumber: 1, SlotInPage: 2},
	}
	changes := []domain.PendingChange{
		{Kind: domain.ChangeAdd, CardID: "c", Slot: slot(1, 3), Seq: 1},
		{Kind: domain.ChangeRemove, CardID: "a", Slot: slot(1, 1), Seq: 2},
		{Kind: domain.ChangeMove, CardID: "b", FromSlot: slot(1, 2), ToSlot: slot(1, 1), Seq: 3},
	}

	out, err := applyChanges(base, changes)
	if err != nil {
		t.Fatalf("applyChanges: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d placements, want 2", len(out))
	}
	// Sorted by slot: b moved into slot 1, c added at slot 3.
	if out[0].CardID != "b" || out[0].SlotInPage != 1 {
		t.Errorf("placement 0 = %s@%d, want b@1", out[0].CardID, out[0].SlotInPage)
	}
	if out[1].CardID != "c" || out[1].SlotInPage != 3 {
		t.Errorf("placement 1 = %s@%d, want c@3", out[1].CardID, out[1].SlotInPage)
	}
}

func TestApplyChanges_MoveIntoFreedSlot(t *testing.T) {
	// A remove earlier in the batch frees the slot a later move targets.
	base := []placementRecord{
		{CardID: "a", PageNumber: 1, SlotInPage: 1},
		{CardID: "b", PageNumber: 2, SlotInPage: 4},
	}
	changes := []domain.PendingChange{
		{Kind: domain.ChangeRemove, CardID: "a", Slot: slot(1, 1), Seq: 1},
		{Kind: domain.ChangeMove, CardID: "b", FromSlot: slot(2, 4), ToSlot: slot(1, 1), Seq: 2},
	}
	out, err := applyChanges(base, changes)
	if err != nil {
		t.Fatalf("applyChanges: %v", err)
	}
	if len(out) != 1 || out[0].CardID != "b" || out[0].PageNumber != 1 || out[0].SlotInPage != 1 {
		t.Fatalf("got %+v, want b at page 1 slot 1", out)
	}
}

func TestApplyChanges_SlotCollisionRejectsBatch(t *testing.T) {
	base := []placementRecord{
		{CardID: "a", PageNumber: 1, SlotInPage: 1},
	}
	changes := []domain.PendingChange{
		{Kind: domain.ChangeAdd, CardID: "b", Slot: slot(1, 2), Seq: 1},
		{Kind: domain.ChangeAdd, CardID: "c", Slot: slot(1, 1), Seq: 2}, // occupied by a
	}
	_, err := applyChanges(base, changes)
	var collErr *layout.SlotCollisionError
	if !errors.As(err, &collErr) {
		t.Fatalf("want SlotCollisionError, got %v", err)
	}
	if collErr.Address.PageNumber != 1 || collErr.Address.SlotInPage != 1 {
		t.Errorf("collision at %+v, want page 1 slot 1", collErr.Address)
	}
}

func TestApplyChanges_UpdateMergesFields(t *testing.T) {
	base := []placementRecord{
		{CardID: "a", PageNumber: 1, SlotInPage: 1, Fields: map[string]any{"condition": "mint", "notes": "first print"}},
	}
	changes := []domain.PendingChange{
		{Kind: domain.ChangeUpdate, CardID: "a", Fields: map[string]any{"condition": "played"}, Seq: 1},
	}
	out, err := applyChanges(base, changes)
	if err != nil {
		t.Fatalf("applyChanges: %v", err)
	}
	if out[0].Fields["condition"] != "played" {
		t.Errorf("condition = %v, want played", out[0].Fields["condition"])
	}
	if out[0].Fields["notes"] != "first print" {
		t.Errorf("notes = %v, want untouched", out[0].Fields["notes"])
	}
}

func TestApplyChanges_RemoveUnplacedCard(t *testing.T) {
	_, err := applyChanges(nil, []domain.PendingChange{
		{Kind: domain.ChangeRemove, CardID: "ghost", Slot: slot(1, 1), Seq: 1},
	})
	if err == nil {
		t.Fatal("expected error removing a card that is not placed")
	}
}

func TestApplyChanges_EmptyBatchKeepsState(t *testing.T) {
	base := []placementRecord{
		{CardID: "a", PageNumber: 1, SlotInPage: 2},
	}
	out, err := applyChanges(base, nil)
	if err != nil {
		t.Fatalf("applyChanges: %v", err)
	}
	if len(out) != 1 || out[0].CardID != "a" {
		t.Fatalf("got %+v, want base placements unchanged", out)
	}
}
