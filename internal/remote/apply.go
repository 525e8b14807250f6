package remote

import (
	"fmt"
	"sort"
	"time"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/layout"
)

// placementRecord is the remote-side representation of one placed card.
// Fields carries card annotations accumulated from update changes; it stays
// remote-side and is not part of the snapshot handed back to the core.
type placementRecord struct {
	CardID     string         `bson:"cardId" json:"cardId"`
	PageNumber int            `bson:"pageNumber" json:"pageNumber"`
	SlotInPage int            `bson:"slotInPage" json:"slotInPage"`
	Fields     map[string]any `bson:"fields,omitempty" json:"fields,omitempty"`
}

type slotKey struct {
	page, slot int
}

// applyChanges replays a pending-change batch onto the committed placement
// set, in the order given. Any violation rejects the whole batch; callers
// must not persist a partial result.
func applyChanges(placements []placementRecord, changes []domain.PendingChange) ([]placementRecord, error) {
	byCard := make(map[string]placementRecord, len(placements))
	bySlot := make(map[slotKey]string, len(placements))
	for _, p := range placements {
		byCard[p.CardID] = p
		bySlot[slotKey{p.PageNumber, p.SlotInPage}] = p.CardID
	}

	for _, ch := range changes {
		switch ch.Kind {
		case domain.ChangeAdd:
			if ch.Slot == nil {
				return nil, fmt.Errorf("add %s: no slot assigned", ch.CardID)
			}
			if _, ok := byCard[ch.CardID]; ok {
				return nil, fmt.Errorf("add %s: card already placed", ch.CardID)
			}
			key := slotKey{ch.Slot.PageNumber, ch.Slot.SlotInPage}
			if _, taken := bySlot[key]; taken {
				return nil, &layout.SlotCollisionError{Address: layout.SlotAddress{
					PageNumber: key.page, SlotInPage: key.slot,
				}}
			}
			p := placementRecord{CardID: ch.CardID, PageNumber: key.page, SlotInPage: key.slot}
			byCard[ch.CardID] = p
			bySlot[key] = ch.CardID

		case domain.ChangeRemove:
			p, ok := byCard[ch.CardID]
			if !ok {
				return nil, fmt.Errorf("remove %s: card not placed", ch.CardID)
			}
			delete(byCard, ch.CardID)
			delete(bySlot, slotKey{p.PageNumber, p.SlotInPage})

		case domain.ChangeMove:
			p, ok := byCard[ch.CardID]
			if !ok {
				return nil, fmt.Errorf("move %s: card not placed", ch.CardID)
			}
			if ch.ToSlot == nil {
				return nil, fmt.Errorf("move %s: no destination slot", ch.CardID)
			}
			delete(bySlot, slotKey{p.PageNumber, p.SlotInPage})
			key := slotKey{ch.ToSlot.PageNumber, ch.ToSlot.SlotInPage}
			if _, taken := bySlot[key]; taken {
				return nil, &layout.SlotCollisionError{Address: layout.SlotAddress{
					PageNumber: key.page, SlotInPage: key.slot,
				}}
			}
			p.PageNumber = key.page
			p.SlotInPage = key.slot
			byCard[ch.CardID] = p
			bySlot[key] = ch.CardID

		case domain.ChangeUpdate:
			p, ok := byCard[ch.CardID]
			if !ok {
				return nil, fmt.Errorf("update %s: card not placed", ch.CardID)
			}
			if p.Fields == nil {
				p.Fields = make(map[string]any, len(ch.Fields))
			}
			for k, v := range ch.Fields {
				p.Fields[k] = v
			}
			byCard[ch.CardID] = p

		default:
			return nil, fmt.Errorf("unknown change kind %q", ch.Kind)
		}
	}

	out := make([]placementRecord, 0, len(byCard))
	for _, p := range byCard {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PageNumber != out[j].PageNumber {
			return out[i].PageNumber < out[j].PageNumber
		}
		return out[i].SlotInPage < out[j].SlotInPage
	})
	return out, nil
}

// toSnapshot converts remote placement records into the snapshot handed back
// to the core. Everything the remote store returns is origin remote.
func toSnapshot(binderID, gridSize string, pageCount int, version int64, placements []placementRecord) *domain.BinderSnapshot {
	snap := &domain.BinderSnapshot{
		BinderID:   binderID,
		GridSize:   gridSize,
		PageCount:  pageCount,
		Version:    version,
		SyncedAt:   time.Now(),
		Placements: make([]domain.CardPlacement, 0, len(placements)),
	}
	for _, p := range placements {
		snap.Placements = append(snap.Placements, domain.CardPlacement{
			CardID:     p.CardID,
			PageNumber: p.PageNumber,
			SlotInPage: p.SlotInPage,
			Origin:     domain.OriginRemote,
		})
	}
	return snap
}
