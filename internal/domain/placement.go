package domain

// PlacementOrigin marks which side of the sync boundary a placement came from.
type PlacementOrigin string

const (
	OriginLocal  PlacementOrigin = "local"  // uncommitted, backed by a pending change
	OriginRemote PlacementOrigin = "remote" // part of the last-known remote snapshot
)

// CardPlacement pins one card (or a derived variant of one) to a slot.
// At most one placement owns a given (PageNumber, SlotInPage) at a time,
// across the union of remote and local placements.
type CardPlacement struct {
	CardID           string          `json:"cardId"`
	PageNumber       int             `json:"pageNumber"`
	SlotInPage       int             `json:"slotInPage"`
	Origin           PlacementOrigin `json:"origin"`
	IsDerivedVariant bool            `json:"isDerivedVariant"`
	SourceCardID     string          `json:"sourceCardId,omitempty"` // set only on derived variants
}
