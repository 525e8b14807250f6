package layout

import "fmt"

// SlotAddress names one slot by physical page number and 1-based position
// within that page. Physical page 1 stands alone as a single right-hand
// page; pages 2 and up come in left/right pairs forming spreads.
type SlotAddress struct {
	PageNumber int `json:"pageNumber"`
	SlotInPage int `json:"slotInPage"`
}

// ToSlotAddress converts a 1-based overall slot number into a SlotAddress.
// Overall slot numbers increase with (PageNumber, SlotInPage) lexicographic
// order with no gaps, so this is the exact inverse of ToOverallSlot.
func ToSlotAddress(overall int, g GridSize) (SlotAddress, error) {
	if !g.valid() {
		return SlotAddress{}, &InvalidGridTokenError{Token: g.String()}
	}
	if overall < 1 {
		return SlotAddress{}, fmt.Errorf("overall slot %d: %w", overall, ErrSlotOutOfRange)
	}
	spp := g.SlotsPerPage()
	return SlotAddress{
		PageNumber: (overall-1)/spp + 1,
		SlotInPage: (overall-1)%spp + 1,
	}, nil
}

// ToOverallSlot converts a SlotAddress back to its overall slot number.
func ToOverallSlot(a SlotAddress, g GridSize) (int, error) {
	if !g.valid() {
		return 0, &InvalidGridTokenError{Token: g.String()}
	}
	spp := g.SlotsPerPage()
	if a.PageNumber < 1 || a.SlotInPage < 1 || a.SlotInPage > spp {
		return 0, fmt.Errorf("page %d slot %d: %w", a.PageNumber, a.SlotInPage, ErrSlotOutOfRange)
	}
	return (a.PageNumber-1)*spp + a.SlotInPage, nil
}

// PhysicalPages returns how many single-sided pages a binder with pageCount
// user-visible pages exposes. Page 1 contributes one side, every later page
// contributes two.
func PhysicalPages(pageCount int) int {
	if pageCount < 1 {
		return 0
	}
	return 2*pageCount - 1
}

// ComputeSlots returns the total slot capacity of a binder.
func ComputeSlots(g GridSize, pageCount int) int {
	return g.SlotsPerPage() * PhysicalPages(pageCount)
}

// SpreadForPage returns the user-visible page index that shows the given
// physical page: physical page 1 is page 1 alone; physical pages 2 and 3
// form page 2, and so on.
func SpreadForPage(pageNumber int) int {
	if pageNumber < 1 {
		return 0
	}
	return pageNumber/2 + 1
}

// IsLeftPage reports whether a physical page renders on the left side of its
// spread. Physical page 1 always renders on the right.
func IsLeftPage(pageNumber int) bool {
	return pageNumber >= 2 && pageNumber%2 == 0
}
