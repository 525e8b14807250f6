package domain

import "time"

// ChangeKind tags an uncommitted local mutation.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeRemove ChangeKind = "remove"
	ChangeMove   ChangeKind = "move"
	ChangeUpdate ChangeKind = "update"
)

// SlotRef names one slot position inside a binder.
type SlotRef struct {
	PageNumber int `json:"pageNumber"`
	SlotInPage int `json:"slotInPage"`
}

// PendingChange is one uncommitted local edit, keyed by (BinderID, CardID,
// Kind). Seq orders changes within a binder and only ever grows; coalescing
// mutates an existing entry but keeps its Seq.
//
// Payload fields by kind:
//   - add:    Slot is the assigned (or hinted) target slot
//   - remove: Slot is the slot being freed
//   - move:   FromSlot and ToSlot
//   - update: Fields holds the changed card fields, merged last-writer-wins
type PendingChange struct {
	ID        string         `json:"id"`
	BinderID  string         `json:"binderId"`
	CardID    string         `json:"cardId"`
	Kind      ChangeKind     `json:"kind"`
	Seq       int64          `json:"seq"`
	Slot      *SlotRef       `json:"slot,omitempty"`
	FromSlot  *SlotRef       `json:"fromSlot,omitempty"`
	ToSlot    *SlotRef       `json:"toSlot,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Occupies returns the slot this change claims, or nil.
func (c *PendingChange) Occupies() *SlotRef {
	switch c.Kind {
	case ChangeAdd:
		return c.Slot
	case ChangeMove:
		return c.ToSlot
	}
	return nil
}

// Frees returns the slot this change releases, or nil.
func (c *PendingChange) Frees() *SlotRef {
	switch c.Kind {
	case ChangeRemove:
		return c.Slot
	case ChangeMove:
		return c.FromSlot
	}
	return nil
}

// ChangeSummary counts uncommitted changes per kind for one binder.
type ChangeSummary struct {
	AddedCount   int `json:"addedCount"`
	RemovedCount int `json:"removedCount"`
	MovedCount   int `json:"movedCount"`
	UpdatedCount int `json:"updatedCount"`
}

// Total returns the number of uncommitted changes across all kinds.
func (s ChangeSummary) Total() int {
	return s.AddedCount + s.RemovedCount + s.MovedCount + s.UpdatedCount
}

// LedgerStore persists the pending-change ledger. ListChanges returns
// entries in ascending Seq order.
type LedgerStore interface {
	InsertChange(ch *PendingChange) error
	UpdateChange(ch *PendingChange) error
	GetChange(binderID, cardID string, kind ChangeKind) (*PendingChange, error)
	DeleteChange(binderID, cardID string, kind ChangeKind) error
	ListChanges(binderID string) ([]PendingChange, error)
	ClearChanges(binderID string) error
	CountChanges(binderID string) (int, error)
}
