package remote

import (
	"fmt"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"

	_ "github.com/lib/pq"
)

// buildPostgresDSN constructs a Postgres connection string from a RemoteConfig.
func buildPostgresDSN(cfg domain.RemoteConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.Username, cfg.Password, cfg.Database, sslMode,
	)
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS binders (
		id VARCHAR(64) PRIMARY KEY,
		grid_size VARCHAR(16) NOT NULL,
		page_count INTEGER NOT NULL,
		version BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS binder_placements (
		binder_id VARCHAR(64) NOT NULL REFERENCES binders(id),
		card_id VARCHAR(64) NOT NULL,
		page_number INTEGER NOT NULL,
		slot_in_page INTEGER NOT NULL,
		fields_json TEXT,
		PRIMARY KEY (binder_id, card_id),
		UNIQUE (binder_id, page_number, slot_in_page)
	)`,
}
