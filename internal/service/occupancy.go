package service

import (
	"fmt"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/layout"
)

// ─────────────────────────────────────────────────────────────
// occupancy — snapshot with the pending ledger replayed over it
// ─────────────────────────────────────────────────────────────

// occupancy is the effective layout of a binder: the last synced snapshot
// with every pending change applied in sequence order. All slot validation
// happens against this view, never against the snapshot or the ledger alone.
type occupancy struct {
	grid      layout.GridSize
	pageCount int
	slots     map[int]string                    // overall slot -> card id
	byCard    map[string]domain.SlotRef         // card id -> effective slot
	origin    map[string]domain.PlacementOrigin // card id -> where the placement came from
}

// newOccupancy replays changes over the snapshot. snap may be nil for a
// binder that has never synced.
func newOccupancy(grid layout.GridSize, pageCount int, snap *domain.BinderSnapshot, changes []domain.PendingChange) (*occupancy, error) {
	o := &occupancy{
		grid:      grid,
		pageCount: pageCount,
		slots:     make(map[int]string),
		byCard:    make(map[string]domain.SlotRef),
		origin:    make(map[string]domain.PlacementOrigin),
	}
	if snap != nil {
		for _, p := range snap.Placements {
			ref := domain.SlotRef{PageNumber: p.PageNumber, SlotInPage: p.SlotInPage}
			if err := o.place(p.CardID, ref, domain.OriginRemote); err != nil {
				return nil, fmt.Errorf("snapshot placement %s: %w", p.CardID, err)
			}
		}
	}
	for i := range changes {
		ch := &changes[i]
		if ref := ch.Frees(); ref != nil {
			o.free(*ref)
		}
		if ch.Kind == domain.ChangeRemove {
			delete(o.byCard, ch.CardID)
			delete(o.origin, ch.CardID)
		}
		if ref := ch.Occupies(); ref != nil {
			origin := o.origin[ch.CardID]
			if ch.Kind == domain.ChangeAdd {
				origin = domain.OriginLocal
			}
			if err := o.place(ch.CardID, *ref, origin); err != nil {
				return nil, fmt.Errorf("pending %s for %s: %w", ch.Kind, ch.CardID, err)
			}
		}
	}
	return o, nil
}

// overall converts ref to an overall slot number, checking it lies inside
// the binder.
func (o *occupancy) overall(ref domain.SlotRef) (int, error) {
	addr := layout.SlotAddress{PageNumber: ref.PageNumber, SlotInPage: ref.SlotInPage}
	n, err := layout.ToOverallSlot(addr, o.grid)
	if err != nil {
		return 0, err
	}
	if ref.PageNumber > layout.PhysicalPages(o.pageCount) {
		return 0, fmt.Errorf("page %d is beyond the binder's last page: %w", ref.PageNumber, layout.ErrSlotOutOfRange)
	}
	return n, nil
}

func (o *occupancy) place(cardID string, ref domain.SlotRef, origin domain.PlacementOrigin) error {
	n, err := o.overall(ref)
	if err != nil {
		return err
	}
	if holder, taken := o.slots[n]; taken && holder != cardID {
		return &layout.SlotCollisionError{Address: layout.SlotAddress{PageNumber: ref.PageNumber, SlotInPage: ref.SlotInPage}}
	}
	o.slots[n] = cardID
	o.byCard[cardID] = ref
	o.origin[cardID] = origin
	return nil
}

func (o *occupancy) free(ref domain.SlotRef) {
	if n, err := o.overall(ref); err == nil {
		delete(o.slots, n)
	}
}

// checkFree returns a SlotCollisionError when ref is already held.
func (o *occupancy) checkFree(ref domain.SlotRef) error {
	n, err := o.overall(ref)
	if err != nil {
		return err
	}
	if _, taken := o.slots[n]; taken {
		return &layout.SlotCollisionError{Address: layout.SlotAddress{PageNumber: ref.PageNumber, SlotInPage: ref.SlotInPage}}
	}
	return nil
}

// holder returns the card occupying ref, or "" when it is free.
func (o *occupancy) holder(ref domain.SlotRef) (string, error) {
	n, err := o.overall(ref)
	if err != nil {
		return "", err
	}
	return o.slots[n], nil
}

// occupiedSet returns the overall slot numbers in use, for the allocator.
func (o *occupancy) occupiedSet() map[int]bool {
	set := make(map[int]bool, len(o.slots))
	for n := range o.slots {
		set[n] = true
	}
	return set
}

// placements returns the effective layout as a placement list in slot order.
func (o *occupancy) placements() []domain.CardPlacement {
	out := make([]domain.CardPlacement, 0, len(o.byCard))
	for cardID, ref := range o.byCard {
		out = append(out, domain.CardPlacement{
			CardID:     cardID,
			PageNumber: ref.PageNumber,
			SlotInPage: ref.SlotInPage,
			Origin:     o.origin[cardID],
		})
	}
	layout.SortBySlot(out)
	return out
}
