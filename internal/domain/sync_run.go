package domain

import "time"

// SyncRun is a historical record of one attempt to reconcile a binder with
// the remote store.
type SyncRun struct {
	ID             string    `json:"id"`
	BinderID       string    `json:"binderId"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	Status         string    `json:"status"` // "success" | "error"
	ChangesApplied int       `json:"changesApplied"`
	Error          string    `json:"error,omitempty"`
}

type SyncRunStore interface {
	CreateSyncRun(run *SyncRun) error
	ListSyncRuns(binderID string, limit int) ([]SyncRun, error)
}
