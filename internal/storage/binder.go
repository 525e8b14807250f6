package storage

import (
	"fmt"
	"time"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

// BinderStore implements domain.BinderStore using SQLite.
type BinderStore struct {
	db *DB
}

func NewBinderStore(db *DB) *BinderStore {
	return &BinderStore{db: db}
}

func (s *BinderStore) CreateBinder(b *domain.Binder) error {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	_, err := s.db.conn.Exec(
		`INSERT INTO binders (id, owner_id, name, grid_size, page_count, reverse_holo_enabled,
		 auto_sync_cron, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.Name, b.GridSize, b.PageCount, b.ReverseHoloEnabled,
		b.AutoSyncCron, b.SortOrder, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (s *BinderStore) GetBinder(id string) (*domain.Binder, error) {
	b := &domain.Binder{}
	err := s.db.conn.QueryRow(
		`SELECT id, owner_id, name, grid_size, page_count, reverse_holo_enabled,
		 auto_sync_cron, sort_order, created_at, updated_at
		 FROM binders WHERE id = ?`, id,
	).Scan(&b.ID, &b.OwnerID, &b.Name, &b.GridSize, &b.PageCount, &b.ReverseHoloEnabled,
		&b.AutoSyncCron, &b.SortOrder, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get binder: %w", err)
	}
	return b, nil
}

func (s *BinderStore) ListBinders(ownerID string) ([]domain.Binder, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, owner_id, name, grid_size, page_count, reverse_holo_enabled,
		 auto_sync_cron, sort_order, created_at, updated_at
		 FROM binders WHERE owner_id = ? ORDER BY sort_order ASC, created_at ASC`, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var binders []domain.Binder
	for rows.Next() {
		var b domain.Binder
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.GridSize, &b.PageCount, &b.ReverseHoloEnabled,
			&b.AutoSyncCron, &b.SortOrder, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		binders = append(binders, b)
	}
	return binders, rows.Err()
}

func (s *BinderStore) UpdateBinder(b *domain.Binder) error {
	b.UpdatedAt = time.Now()
	_, err := s.db.conn.Exec(
		`UPDATE binders SET name=?, grid_size=?, page_count=?, reverse_holo_enabled=?,
		 auto_sync_cron=?, sort_order=?, updated_at=? WHERE id=?`,
		b.Name, b.GridSize, b.PageCount, b.ReverseHoloEnabled,
		b.AutoSyncCron, b.SortOrder, b.UpdatedAt, b.ID,
	)
	return err
}

func (s *BinderStore) DeleteBinder(id string) error {
	// Ledger, snapshot and run history go with the binder.
	if _, err := s.db.conn.Exec(`DELETE FROM pending_changes WHERE binder_id = ?`, id); err != nil {
		return err
	}
	if _, err := s.db.conn.Exec(`DELETE FROM snapshots WHERE binder_id = ?`, id); err != nil {
		return err
	}
	if _, err := s.db.conn.Exec(`DELETE FROM sync_runs WHERE binder_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.conn.Exec(`DELETE FROM binders WHERE id = ?`, id)
	return err
}

func (s *BinderStore) CountBinders(ownerID string) (int, error) {
	var n int
	err := s.db.conn.QueryRow(`SELECT COUNT(*) FROM binders WHERE owner_id = ?`, ownerID).Scan(&n)
	return n, err
}

// ListScheduledBinders returns every binder with an auto-sync schedule,
// across all owners. Used to rebuild the sync scheduler.
func (s *BinderStore) ListScheduledBinders() ([]domain.Binder, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, owner_id, name, grid_size, page_count, reverse_holo_enabled,
		 auto_sync_cron, sort_order, created_at, updated_at
		 FROM binders WHERE auto_sync_cron != '' ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var binders []domain.Binder
	for rows.Next() {
		var b domain.Binder
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.GridSize, &b.PageCount, &b.ReverseHoloEnabled,
			&b.AutoSyncCron, &b.SortOrder, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		binders = append(binders, b)
	}
	return binders, rows.Err()
}

// ReorderBinders rewrites sort_order to match the given id order.
func (s *BinderStore) ReorderBinders(ownerID string, binderIDs []string) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE binders SET sort_order = ? WHERE id = ? AND owner_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, id := range binderIDs {
		if _, err := stmt.Exec(i+1, id, ownerID); err != nil {
			return fmt.Errorf("reorder binder %s: %w", id, err)
		}
	}

	return tx.Commit()
}
