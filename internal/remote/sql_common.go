package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

// sqlStore is the shared Store implementation for Postgres and MySQL. Both
// keep a binders table with a version counter and a placements table with a
// unique slot key; a write batch runs in a single transaction that replaces
// the binder's placements wholesale.
type sqlStore struct {
	driverName string
	db         *sql.DB
}

func newSQLStore(driverName, dsn string, schema []string) (*sqlStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	s := &sqlStore{driverName: driverName, db: db}
	if err := s.ensureSchema(schema); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) ensureSchema(schema []string) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure remote schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $N for the Postgres driver.
func (s *sqlStore) rebind(query string) string {
	if s.driverName != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) ReadBinder(ctx context.Context, binderID string) (*domain.BinderSnapshot, error) {
	var gridSize string
	var pageCount int
	var version int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT grid_size, page_count, version FROM binders WHERE id = ?`), binderID,
	).Scan(&gridSize, &pageCount, &version)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("read binder %s: %w", binderID, ErrBinderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read binder %s: %w", binderID, err)
	}

	placements, err := s.loadPlacements(ctx, s.db, binderID)
	if err != nil {
		return nil, err
	}
	return toSnapshot(binderID, gridSize, pageCount, version, placements), nil
}

// querier covers both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *sqlStore) loadPlacements(ctx context.Context, q querier, binderID string) ([]placementRecord, error) {
	rows, err := q.QueryContext(ctx,
		s.rebind(`SELECT card_id, page_number, slot_in_page, fields_json
		 FROM binder_placements WHERE binder_id = ? ORDER BY page_number, slot_in_page`), binderID,
	)
	if err != nil {
		return nil, fmt.Errorf("load placements: %w", err)
	}
	defer rows.Close()

	var placements []placementRecord
	for rows.Next() {
		var p placementRecord
		var fields sql.NullString
		if err := rows.Scan(&p.CardID, &p.PageNumber, &p.SlotInPage, &fields); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &p.Fields); err != nil {
				return nil, fmt.Errorf("decode placement fields: %w", err)
			}
		}
		placements = append(placements, p)
	}
	return placements, rows.Err()
}

func (s *sqlStore) WriteBinderBatch(ctx context.Context, binder *domain.Binder, changes []domain.PendingChange) (*domain.BinderSnapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT version FROM binders WHERE id = ?`), binder.ID,
	).Scan(&version)
	isNew := err == sql.ErrNoRows
	if err != nil && !isNew {
		return nil, fmt.Errorf("load binder %s: %w", binder.ID, err)
	}

	var placements []placementRecord
	if !isNew {
		if placements, err = s.loadPlacements(ctx, tx, binder.ID); err != nil {
			return nil, err
		}
	}

	next, err := applyChanges(placements, changes)
	if err != nil {
		return nil, fmt.Errorf("apply batch: %w", err)
	}
	nextVersion := version + 1

	if isNew {
		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO binders (id, grid_size, page_count, version, updated_at) VALUES (?, ?, ?, ?, ?)`),
			binder.ID, binder.GridSize, binder.PageCount, nextVersion, time.Now(),
		)
		if err != nil {
			return nil, fmt.Errorf("insert binder %s: %w", binder.ID, err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			s.rebind(`UPDATE binders SET grid_size = ?, page_count = ?, version = ?, updated_at = ? WHERE id = ? AND version = ?`),
			binder.GridSize, binder.PageCount, nextVersion, time.Now(), binder.ID, version,
		)
		if err != nil {
			return nil, fmt.Errorf("update binder %s: %w", binder.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, fmt.Errorf("write binder %s: %w", binder.ID, ErrVersionConflict)
		}
	}

	// Replace the placement set wholesale; the unique slot key backs up the
	// in-memory collision checks.
	if _, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM binder_placements WHERE binder_id = ?`), binder.ID,
	); err != nil {
		return nil, fmt.Errorf("clear placements: %w", err)
	}
	for _, p := range next {
		fields := ""
		if p.Fields != nil {
			b, err := json.Marshal(p.Fields)
			if err != nil {
				return nil, fmt.Errorf("encode placement fields: %w", err)
			}
			fields = string(b)
		}
		if _, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO binder_placements (binder_id, card_id, page_number, slot_in_page, fields_json)
			 VALUES (?, ?, ?, ?, ?)`),
			binder.ID, p.CardID, p.PageNumber, p.SlotInPage, fields,
		); err != nil {
			return nil, fmt.Errorf("insert placement %s: %w", p.CardID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return toSnapshot(binder.ID, binder.GridSize, binder.PageCount, nextVersion, next), nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close(ctx context.Context) error {
	return s.db.Close()
}
