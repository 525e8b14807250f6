package layout

import (
	"sort"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

// SortBySlot orders placements by (PageNumber, SlotInPage), which is the
// same as ascending overall slot order for any grid.
func SortBySlot(cards []domain.CardPlacement) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].PageNumber != cards[j].PageNumber {
			return cards[i].PageNumber < cards[j].PageNumber
		}
		return cards[i].SlotInPage < cards[j].SlotInPage
	})
}

// RemoveDerivedVariants strips synthesized variant placements and renumbers
// the survivors from slot 1, preserving their relative order. Because
// ApplyReverseHoloLayout also numbers from slot 1, running this on its
// output restores the pre-derivation layout exactly.
func RemoveDerivedVariants(cards []domain.CardPlacement, g GridSize) ([]domain.CardPlacement, error) {
	if !g.valid() {
		return nil, &InvalidGridTokenError{Token: g.String()}
	}
	spp := g.SlotsPerPage()
	out := make([]domain.CardPlacement, 0, len(cards))
	next := 1
	for _, c := range cards {
		if c.IsDerivedVariant {
			continue
		}
		c.PageNumber = (next-1)/spp + 1
		c.SlotInPage = (next-1)%spp + 1
		out = append(out, c)
		next++
	}
	return out, nil
}

// ApplyReverseHoloLayout expands an ordered card sequence so that every
// eligible card is immediately followed by its reverse holo variant, with
// all slot numbers reassigned from 1 and page rollover following the slot
// indexer. Existing derived entries are stripped first, so reapplying the
// layout never compounds variants. The input order is the display order;
// callers sort sparse placements with SortBySlot beforehand.
func ApplyReverseHoloLayout(cards []domain.CardPlacement, eligible func(domain.CardPlacement) bool, g GridSize) ([]domain.CardPlacement, error) {
	base, err := RemoveDerivedVariants(cards, g)
	if err != nil {
		return nil, err
	}
	spp := g.SlotsPerPage()
	out := make([]domain.CardPlacement, 0, len(base)*2)
	next := 1
	for _, c := range base {
		c.PageNumber = (next-1)/spp + 1
		c.SlotInPage = (next-1)%spp + 1
		out = append(out, c)
		next++

		if !eligible(c) {
			continue
		}
		v := c
		v.IsDerivedVariant = true
		v.SourceCardID = c.CardID
		v.PageNumber = (next-1)/spp + 1
		v.SlotInPage = (next-1)%spp + 1
		out = append(out, v)
		next++
	}
	return out, nil
}
