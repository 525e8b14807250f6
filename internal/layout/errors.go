package layout

import (
	"errors"
	"fmt"
)

// ErrSlotOutOfRange reports a slot number or address outside the addressable
// range of the binder.
var ErrSlotOutOfRange = errors.New("slot out of range")

// InvalidGridTokenError reports a grid-size token that is not of the form
// "<columns>x<rows>" with both dimensions at least 1.
type InvalidGridTokenError struct {
	Token string
}

func (e *InvalidGridTokenError) Error() string {
	return fmt.Sprintf("invalid grid size token %q", e.Token)
}

// InsufficientCapacityError reports an allocation the binder could not fully
// satisfy. Shortfall is how many requested slots were left unplaced.
type InsufficientCapacityError struct {
	Requested int
	Found     int
}

func (e *InsufficientCapacityError) Shortfall() int {
	return e.Requested - e.Found
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: requested %d free slots, found %d (short %d)",
		e.Requested, e.Found, e.Shortfall())
}

// SlotCollisionError reports a placement targeting an already occupied slot.
type SlotCollisionError struct {
	Address SlotAddress
}

func (e *SlotCollisionError) Error() string {
	return fmt.Sprintf("slot collision at page %d slot %d", e.Address.PageNumber, e.Address.SlotInPage)
}
