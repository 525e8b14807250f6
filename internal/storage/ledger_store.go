package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

// LedgerStore implements domain.LedgerStore using SQLite. Slot references
// and update fields are stored as JSON columns; seq is assigned on insert
// and only ever grows within a binder.
type LedgerStore struct {
	db *DB
}

func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

func (s *LedgerStore) InsertChange(ch *domain.PendingChange) error {
	slot, from, to, fields, err := encodeChangePayload(ch)
	if err != nil {
		return err
	}
	// Single writer connection, so MAX(seq)+1 cannot race.
	err = s.db.conn.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM pending_changes WHERE binder_id = ?`, ch.BinderID,
	).Scan(&ch.Seq)
	if err != nil {
		return fmt.Errorf("next seq: %w", err)
	}
	_, err = s.db.conn.Exec(
		`INSERT INTO pending_changes (id, binder_id, card_id, kind, seq, slot_json, from_slot_json, to_slot_json, fields_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.BinderID, ch.CardID, ch.Kind, ch.Seq, slot, from, to, fields, ch.CreatedAt,
	)
	return err
}

// UpdateChange rewrites the payload of an existing entry. Seq is kept, so a
// coalesced change holds its original position in the apply order.
func (s *LedgerStore) UpdateChange(ch *domain.PendingChange) error {
	slot, from, to, fields, err := encodeChangePayload(ch)
	if err != nil {
		return err
	}
	_, err = s.db.conn.Exec(
		`UPDATE pending_changes SET slot_json=?, from_slot_json=?, to_slot_json=?, fields_json=?
		 WHERE binder_id=? AND card_id=? AND kind=?`,
		slot, from, to, fields, ch.BinderID, ch.CardID, ch.Kind,
	)
	return err
}

func (s *LedgerStore) GetChange(binderID, cardID string, kind domain.ChangeKind) (*domain.PendingChange, error) {
	row := s.db.conn.QueryRow(
		`SELECT id, binder_id, card_id, kind, seq, slot_json, from_slot_json, to_slot_json, fields_json, created_at
		 FROM pending_changes WHERE binder_id=? AND card_id=? AND kind=?`,
		binderID, cardID, kind,
	)
	ch, err := scanChange(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending change: %w", err)
	}
	return ch, nil
}

func (s *LedgerStore) DeleteChange(binderID, cardID string, kind domain.ChangeKind) error {
	_, err := s.db.conn.Exec(
		`DELETE FROM pending_changes WHERE binder_id=? AND card_id=? AND kind=?`,
		binderID, cardID, kind,
	)
	return err
}

func (s *LedgerStore) ListChanges(binderID string) ([]domain.PendingChange, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, binder_id, card_id, kind, seq, slot_json, from_slot_json, to_slot_json, fields_json, created_at
		 FROM pending_changes WHERE binder_id = ? ORDER BY seq ASC`, binderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []domain.PendingChange
	for rows.Next() {
		ch, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *ch)
	}
	return changes, rows.Err()
}

func (s *LedgerStore) ClearChanges(binderID string) error {
	_, err := s.db.conn.Exec(`DELETE FROM pending_changes WHERE binder_id = ?`, binderID)
	return err
}

func (s *LedgerStore) CountChanges(binderID string) (int, error) {
	var n int
	err := s.db.conn.QueryRow(`SELECT COUNT(*) FROM pending_changes WHERE binder_id = ?`, binderID).Scan(&n)
	return n, err
}

// ── JSON payload encoding ──────────────────────────────────

func encodeChangePayload(ch *domain.PendingChange) (slot, from, to, fields string, err error) {
	if ch.Slot != nil {
		b, err := json.Marshal(ch.Slot)
		if err != nil {
			return "", "", "", "", fmt.Errorf("encode slot: %w", err)
		}
		slot = string(b)
	}
	if ch.FromSlot != nil {
		b, err := json.Marshal(ch.FromSlot)
		if err != nil {
			return "", "", "", "", fmt.Errorf("encode from slot: %w", err)
		}
		from = string(b)
	}
	if ch.ToSlot != nil {
		b, err := json.Marshal(ch.ToSlot)
		if err != nil {
			return "", "", "", "", fmt.Errorf("encode to slot: %w", err)
		}
		to = string(b)
	}
	if ch.Fields != nil {
		b, err := json.Marshal(ch.Fields)
		if err != nil {
			return "", "", "", "", fmt.Errorf("encode fields: %w", err)
		}
		fields = string(b)
	}
	return slot, from, to, fields, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChange(row rowScanner) (*domain.PendingChange, error) {
	ch := &domain.PendingChange{}
	var slot, from, to, fields string
	if err := row.Scan(&ch.ID, &ch.BinderID, &ch.CardID, &ch.Kind, &ch.Seq,
		&slot, &from, &to, &fields, &ch.CreatedAt); err != nil {
		return nil, err
	}
	if slot != "" {
		ch.Slot = &domain.SlotRef{}
		if err := json.Unmarshal([]byte(slot), ch.Slot); err != nil {
			return nil, fmt.Errorf("decode slot: %w", err)
		}
	}
	if from != "" {
		ch.FromSlot = &domain.SlotRef{}
		if err := json.Unmarshal([]byte(from), ch.FromSlot); err != nil {
			return nil, fmt.Errorf("decode from slot: %w", err)
		}
	}
	if to != "" {
		ch.ToSlot = &domain.SlotRef{}
		if err := json.Unmarshal([]byte(to), ch.ToSlot); err != nil {
			return nil, fmt.Errorf("decode to slot: %w", err)
		}
	}
	if fields != "" {
		if err := json.Unmarshal([]byte(fields), &ch.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}
	return ch, nil
}
