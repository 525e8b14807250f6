package layout

import (
	"reflect"
	"testing"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

// seq builds a contiguous display sequence of non-derived placements
// starting at slot 1.
func seq(g GridSize, cardIDs ...string) []domain.CardPlacement {
	spp := g.SlotsPerPage()
	out := make([]domain.CardPlacement, len(cardIDs))
	for i, id := range cardIDs {
		out[i] = domain.CardPlacement{
			CardID:     id,
			PageNumber: i/spp + 1,
			SlotInPage: i%spp + 1,
			Origin:     domain.OriginRemote,
		}
	}
	return out
}

func eligibleSet(ids ...string) func(domain.CardPlacement) bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(p domain.CardPlacement) bool { return set[p.CardID] }
}

func TestApplyReverseHoloLayout_InsertsAfterEligible(t *testing.T) {
	// 2x2 grid, five cards, the ones in positions 1 and 3 are eligible.
	g := GridSize{Columns: 2, Rows: 2}
	cards := seq(g, "a", "b", "c", "d", "e")

	out, err := ApplyReverseHoloLayout(cards, eligibleSet("a", "c"), g)
	if err != nil {
		t.Fatalf("ApplyReverseHoloLayout: %v", err)
	}
	if len(out) != 7 {
		t.Fatalf("got %d entries, want 7", len(out))
	}

	type entry struct {
		cardID  string
		derived bool
		overall int
	}
	want := []entry{
		{"a", false, 1},
		{"a", true, 2},
		{"b", false, 3},
		{"c", false, 4},
		{"c", true, 5},
		{"d", false, 6},
		{"e", false, 7},
	}
	for i, w := range want {
		got := out[i]
		n, err := ToOverallSlot(SlotAddress{got.PageNumber, got.SlotInPage}, g)
		if err != nil {
			t.Fatalf("entry %d: %v", i, err)
		}
		if got.CardID != w.cardID || got.IsDerivedVariant != w.derived || n != w.overall {
			t.Errorf("entry %d = %s derived=%v @%d, want %s derived=%v @%d",
				i, got.CardID, got.IsDerivedVariant, n, w.cardID, w.derived, w.overall)
		}
		if w.derived && got.SourceCardID != w.cardID {
			t.Errorf("entry %d: variant sourceCardId = %q, want %q", i, got.SourceCardID, w.cardID)
		}
	}

	// Page rollover recomputed: slot 5 lives on page 2 of the 2x2 grid.
	if out[4].PageNumber != 2 || out[4].SlotInPage != 1 {
		t.Errorf("entry 5 at page %d slot %d, want page 2 slot 1", out[4].PageNumber, out[4].SlotInPage)
	}
}

func TestRemoveDerivedVariants_IsExactInverse(t *testing.T) {
	g := GridSize{Columns: 2, Rows: 2}
	cards := seq(g, "a", "b", "c", "d", "e")

	expanded, err := ApplyReverseHoloLayout(cards, eligibleSet("a", "c", "e"), g)
	if err != nil {
		t.Fatalf("ApplyReverseHoloLayout: %v", err)
	}
	restored, err := RemoveDerivedVariants(expanded, g)
	if err != nil {
		t.Fatalf("RemoveDerivedVariants: %v", err)
	}
	if !reflect.DeepEqual(restored, cards) {
		t.Errorf("restored layout differs:\n got %+v\nwant %+v", restored, cards)
	}
}

func TestApplyReverseHoloLayout_Idempotent(t *testing.T) {
	g := GridSize{Columns: 3, Rows: 3}
	cards := seq(g, "a", "b", "c", "d")
	eligible := eligibleSet("b", "d")

	once, err := ApplyReverseHoloLayout(cards, eligible, g)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	twice, err := ApplyReverseHoloLayout(once, eligible, g)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("reapplying compounded variants:\n got %+v\nwant %+v", twice, once)
	}
}

func TestApplyReverseHoloLayout_NoEligible(t *testing.T) {
	g := GridSize{Columns: 2, Rows: 2}
	cards := seq(g, "a", "b", "c")
	out, err := ApplyReverseHoloLayout(cards, func(domain.CardPlacement) bool { return false }, g)
	if err != nil {
		t.Fatalf("ApplyReverseHoloLayout: %v", err)
	}
	if !reflect.DeepEqual(out, cards) {
		t.Errorf("layout changed with no eligible cards:\n got %+v\nwant %+v", out, cards)
	}
}

func TestApplyReverseHoloLayout_AllEligible(t *testing.T) {
	g := GridSize{Columns: 1, Rows: 1} // one slot per page, every card rolls over
	cards := seq(g, "a", "b")
	out, err := ApplyReverseHoloLayout(cards, func(domain.CardPlacement) bool { return true }, g)
	if err != nil {
		t.Fatalf("ApplyReverseHoloLayout: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("got %d entries, want 4", len(out))
	}
	for i, p := range out {
		if p.PageNumber != i+1 || p.SlotInPage != 1 {
			t.Errorf("entry %d at page %d slot %d, want page %d slot 1", i, p.PageNumber, p.SlotInPage, i+1)
		}
	}
}

func TestSortBySlot(t *testing.T) {
	cards := []domain.CardPlacement{
		{CardID: "c", PageNumber: 2, SlotInPage: 1},
		{CardID: "a", PageNumber: 1, SlotInPage: 1},
		{CardID: "b", PageNumber: 1, SlotInPage: 3},
	}
	SortBySlot(cards)
	got := []string{cards[0].CardID, cards[1].CardID, cards[2].CardID}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
