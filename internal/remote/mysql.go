package remote

import (
	"fmt"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// buildMySQLDSN constructs a MySQL DSN from a RemoteConfig.
func buildMySQLDSN(cfg domain.RemoteConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.Username, cfg.Password, cfg.Host, port, cfg.Database,
	)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS binders (
		id VARCHAR(64) PRIMARY KEY,
		grid_size VARCHAR(16) NOT NULL,
		page_count INT NOT NULL,
		version BIGINT NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS binder_placements (
		binder_id VARCHAR(64) NOT NULL,
		card_id VARCHAR(64) NOT NULL,
		page_number INT NOT NULL,
		slot_in_page INT NOT NULL,
		fields_json TEXT,
		PRIMARY KEY (binder_id, card_id),
		UNIQUE KEY uniq_binder_slot (binder_id, page_number, slot_in_page),
		FOREIGN KEY (binder_id) REFERENCES binders(id)
	)`,
}
