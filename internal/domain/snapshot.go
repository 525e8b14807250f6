package domain

import "time"

// BinderSnapshot is the last-known-good remote state of one binder.
// The sync service replaces it wholesale on every successful pull or push;
// nothing ever mutates it in place.
type BinderSnapshot struct {
	BinderID   string          `json:"binderId"`
	GridSize   string          `json:"gridSize"`
	PageCount  int             `json:"pageCount"`
	Placements []CardPlacement `json:"placements"`
	Version    int64           `json:"version"` // remote write counter, used for optimistic concurrency
	SyncedAt   time.Time       `json:"syncedAt"`
}

// Clone returns a deep copy so callers can hand out snapshot state without
// exposing the stored slice.
func (s *BinderSnapshot) Clone() *BinderSnapshot {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Placements = make([]CardPlacement, len(s.Placements))
	copy(clone.Placements, s.Placements)
	return &clone
}

// SnapshotStore persists one snapshot per binder.
type SnapshotStore interface {
	GetSnapshot(binderID string) (*BinderSnapshot, error)
	PutSnapshot(snap *BinderSnapshot) error
	DeleteSnapshot(binderID string) error
}
