package storage

import (
	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"

	"github.com/google/uuid"
)

// SyncRunStore implements domain.SyncRunStore using SQLite.
type SyncRunStore struct {
	db *DB
}

func NewSyncRunStore(db *DB) *SyncRunStore {
	return &SyncRunStore{db: db}
}

func (s *SyncRunStore) CreateSyncRun(run *domain.SyncRun) error {
	run.ID = uuid.New().String()
	_, err := s.db.conn.Exec(
		`INSERT INTO sync_runs (id, binder_id, started_at, finished_at, status, changes_applied, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.BinderID, run.StartedAt, run.FinishedAt, run.Status, run.ChangesApplied, run.Error,
	)
	return err
}

func (s *SyncRunStore) ListSyncRuns(binderID string, limit int) ([]domain.SyncRun, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, binder_id, started_at, finished_at, status, changes_applied, error
		 FROM sync_runs WHERE binder_id = ? ORDER BY started_at DESC LIMIT ?`,
		binderID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		var r domain.SyncRun
		if err := rows.Scan(&r.ID, &r.BinderID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.ChangesApplied, &r.Error); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
