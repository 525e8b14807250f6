// Package remote implements the durable-store boundary the sync reconciler
// pushes binder batches through. A Store holds the committed state of every
// binder; the local ledger is reconciled against it and the post-write state
// it returns becomes the new local snapshot.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

var (
	// ErrBinderNotFound reports a read of a binder the remote store has
	// never seen.
	ErrBinderNotFound = errors.New("binder not found in remote store")

	// ErrVersionConflict reports a write that lost an optimistic
	// concurrency race; nothing was written.
	ErrVersionConflict = errors.New("remote version conflict")
)

// Store abstracts interaction with the remote durable store.
type Store interface {
	// ReadBinder returns the committed state of a binder.
	ReadBinder(ctx context.Context, binderID string) (*domain.BinderSnapshot, error)

	// WriteBinderBatch applies the changes in Seq order as one logical
	// transaction and returns the authoritative post-write state. A
	// rejected batch writes nothing. Binder metadata (grid size, page
	// count) is upserted from the local binder on every write.
	WriteBinderBatch(ctx context.Context, binder *domain.Binder, changes []domain.PendingChange) (*domain.BinderSnapshot, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// New creates a Store for the configured driver.
func New(cfg domain.RemoteConfig) (Store, error) {
	switch cfg.Driver {
	case domain.RemoteDriverMongo:
		return newMongoStore(cfg)
	case domain.RemoteDriverPostgres:
		return newSQLStore("postgres", buildPostgresDSN(cfg), postgresSchema)
	case domain.RemoteDriverMySQL:
		return newSQLStore("mysql", buildMySQLDSN(cfg), mysqlSchema)
	default:
		return nil, fmt.Errorf("unsupported remote driver: %s", cfg.Driver)
	}
}
