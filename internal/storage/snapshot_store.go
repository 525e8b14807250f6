package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using SQLite. Placements are
// stored as one JSON blob per binder so a snapshot can only ever be replaced
// wholesale, never patched row by row.
type SnapshotStore struct {
	db *DB
}

func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// GetSnapshot returns the stored snapshot, or nil when the binder has never
// been pulled.
func (s *SnapshotStore) GetSnapshot(binderID string) (*domain.BinderSnapshot, error) {
	snap := &domain.BinderSnapshot{BinderID: binderID}
	var placements string
	err := s.db.conn.QueryRow(
		`SELECT grid_size, page_count, placements_json, version, synced_at
		 FROM snapshots WHERE binder_id = ?`, binderID,
	).Scan(&snap.GridSize, &snap.PageCount, &placements, &snap.Version, &snap.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(placements), &snap.Placements); err != nil {
		return nil, fmt.Errorf("decode snapshot placements: %w", err)
	}
	return snap, nil
}

func (s *SnapshotStore) PutSnapshot(snap *domain.BinderSnapshot) error {
	placements, err := json.Marshal(snap.Placements)
	if err != nil {
		return fmt.Errorf("encode snapshot placements: %w", err)
	}
	_, err = s.db.conn.Exec(
		`INSERT INTO snapshots (binder_id, grid_size, page_count, placements_json, version, synced_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(binder_id) DO UPDATE SET
		 grid_size=excluded.grid_size, page_count=excluded.page_count,
		 placements_json=excluded.placements_json, version=excluded.version, synced_at=excluded.synced_at`,
		snap.BinderID, snap.GridSize, snap.PageCount, string(placements), snap.Version, snap.SyncedAt,
	)
	return err
}

func (s *SnapshotStore) DeleteSnapshot(binderID string) error {
	_, err := s.db.conn.Exec(`DELETE FROM snapshots WHERE binder_id = ?`, binderID)
	return err
}
