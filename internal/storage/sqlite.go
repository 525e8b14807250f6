package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection.
type DB struct {
	conn    *sql.DB
	dataDir string // root directory for card-list import drops
}

// New creates a new DB, opening (or creating) the SQLite file at dbPath.
// dataDir is the root directory watched for card-list import drops.
func New(dbPath, dataDir string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; limit to a single connection to prevent SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, dataDir: dataDir}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DataDir returns the root data directory.
func (db *DB) DataDir() string {
	return db.dataDir
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS binders (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			grid_size TEXT NOT NULL DEFAULT '3x3',
			page_count INTEGER NOT NULL DEFAULT 1,
			reverse_holo_enabled INTEGER NOT NULL DEFAULT 0,
			auto_sync_cron TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_binders_owner ON binders(owner_id)`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			set_code TEXT NOT NULL DEFAULT '',
			number TEXT NOT NULL DEFAULT '',
			rarity TEXT NOT NULL DEFAULT 'common',
			image_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		// Last-known remote state, one row per binder, replaced wholesale
		`CREATE TABLE IF NOT EXISTS snapshots (
			binder_id TEXT PRIMARY KEY REFERENCES binders(id),
			grid_size TEXT NOT NULL,
			page_count INTEGER NOT NULL,
			placements_json TEXT NOT NULL DEFAULT '[]',
			version INTEGER NOT NULL DEFAULT 0,
			synced_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		// Pending-change ledger: one row per (binder, card, kind), seq orders rows within a binder
		`CREATE TABLE IF NOT EXISTS pending_changes (
			id TEXT PRIMARY KEY,
			binder_id TEXT NOT NULL REFERENCES binders(id),
			card_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			seq INTEGER NOT NULL,
			slot_json TEXT NOT NULL DEFAULT '',
			from_slot_json TEXT NOT NULL DEFAULT '',
			to_slot_json TEXT NOT NULL DEFAULT '',
			fields_json TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_changes_key ON pending_changes(binder_id, card_id, kind)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_changes_binder ON pending_changes(binder_id, seq)`,
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id TEXT PRIMARY KEY,
			binder_id TEXT NOT NULL REFERENCES binders(id),
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			status TEXT NOT NULL,
			changes_applied INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_binder ON sync_runs(binder_id, started_at)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			// ALTER TABLE fails if column already exists; safe to ignore
			if strings.Contains(m, "ALTER TABLE") && strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", m[:40], err)
		}
	}

	return nil
}
