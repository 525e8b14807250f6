package layout

// FindAvailableSlots collects count free slot addresses by scanning in
// ascending overall-slot order, starting at startHint (any value below 1
// starts at slot 1). occupied is keyed by overall slot number. The result is
// strictly ascending and identical on every call for identical inputs. When
// the scan exhausts the binder before count slots are found, the error is an
// InsufficientCapacityError carrying the exact shortfall.
func FindAvailableSlots(count int, g GridSize, pageCount int, occupied map[int]bool, startHint int) ([]SlotAddress, error) {
	if !g.valid() {
		return nil, &InvalidGridTokenError{Token: g.String()}
	}
	if count <= 0 {
		return []SlotAddress{}, nil
	}
	maxSlot := ComputeSlots(g, pageCount)
	start := startHint
	if start < 1 {
		start = 1
	}

	found := make([]SlotAddress, 0, count)
	for n := start; n <= maxSlot && len(found) < count; n++ {
		if occupied[n] {
			continue
		}
		addr, err := ToSlotAddress(n, g)
		if err != nil {
			return nil, err
		}
		found = append(found, addr)
	}
	if len(found) < count {
		return nil, &InsufficientCapacityError{Requested: count, Found: len(found)}
	}
	return found, nil
}

// PagesNeededFor returns how many pages must be added for extra more slots
// to fit. Every added page is a full two-sided spread.
func PagesNeededFor(extra int, g GridSize) int {
	if extra <= 0 || !g.valid() {
		return 0
	}
	perPage := 2 * g.SlotsPerPage()
	return (extra + perPage - 1) / perPage
}
