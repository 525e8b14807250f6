// Package app assembles the binder core: storage, services, the remote
// store boundary, the HTTP/websocket surface and the MCP server, wired
// from one Options struct.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/biroman/pkmnbindrnew-sub000/internal/cache"
	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/httpapi"
	mcpserver "github.com/biroman/pkmnbindrnew-sub000/internal/mcp"
	"github.com/biroman/pkmnbindrnew-sub000/internal/remote"
	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
	"github.com/biroman/pkmnbindrnew-sub000/internal/storage"
)

// Options carries the assembled configuration into the wiring layer.
type Options struct {
	DBPath   string
	DataDir  string
	HTTPAddr string

	// RedisAddr enables the redis-backed cache invalidator; empty means
	// invalidation signals are dropped.
	RedisAddr string

	// Remote configures the durable store; an empty driver leaves sync
	// unavailable but every local operation working.
	Remote domain.RemoteConfig

	Gate service.SaveGateConfig

	Logger hclog.Logger
}

// App owns every long-lived component of the binder core.
type App struct {
	logger hclog.Logger
	opts   Options

	db     *storage.DB
	remote remote.Store
	redis  *cache.Redis
	hub    *httpapi.Hub

	Binders *service.BinderService
	Cards   *service.CardService
	Ledger  *service.LedgerService
	Sync    *service.SyncService

	watcher *importWatcher
}

// New wires stores and services from opts. Close releases everything.
func New(opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	db, err := storage.New(opts.DBPath, opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &App{logger: logger, opts: opts, db: db}

	binderStore := storage.NewBinderStore(db)
	cardStore := storage.NewCardStore(db)
	snapshotStore := storage.NewSnapshotStore(db)
	ledgerStore := storage.NewLedgerStore(db)
	runStore := storage.NewSyncRunStore(db)

	var invalidator service.Invalidator = service.NopInvalidator{}
	if opts.RedisAddr != "" {
		redisCache, err := cache.NewRedis(opts.RedisAddr, logger.Named("cache"))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = redisCache
		invalidator = redisCache
	}

	if opts.Remote.Driver != "" {
		remoteStore, err := remote.New(opts.Remote)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect remote store: %w", err)
		}
		a.remote = remoteStore
	} else {
		a.remote = noRemote{}
	}

	a.hub = httpapi.NewHub(logger.Named("hub"))
	gate := service.NewSaveGate(opts.Gate)

	a.Binders = service.NewBinderService(binderStore, cardStore, snapshotStore, ledgerStore, a.hub, invalidator)
	a.Cards = service.NewCardService(cardStore, a.hub)
	a.Ledger = service.NewLedgerService(ledgerStore, binderStore, snapshotStore, a.hub, invalidator)
	a.Sync = service.NewSyncService(binderStore, snapshotStore, ledgerStore, runStore, a.remote,
		gate, a.hub, invalidator, logger.Named("sync"))

	a.watcher = newImportWatcher(a.Cards, filepath.Join(opts.DataDir, "imports"), logger.Named("import"))

	return a, nil
}

// Serve runs the HTTP surface, the import watcher and the auto-sync
// scheduler until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	go a.hub.Run()

	if err := a.watcher.Start(ctx); err != nil {
		a.logger.Warn("import watcher unavailable", "error", err)
	}
	a.Sync.RestartAutoSync(ctx)

	srv := httpapi.New(a.opts.HTTPAddr, httpapi.Deps{
		Binders: a.Binders,
		Cards:   a.Cards,
		Ledger:  a.Ledger,
		Sync:    a.Sync,
		Hub:     a.hub,
		Logger:  a.logger.Named("http"),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.Sync.WaitRunning(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

// ServeMCP runs the app as an MCP server on stdin/stdout.
func (a *App) ServeMCP() error {
	go a.hub.Run()
	return mcpserver.New(mcpserver.Deps{
		Binders: a.Binders,
		Cards:   a.Cards,
		Ledger:  a.Ledger,
		Sync:    a.Sync,
	}).ServeStdio()
}

// Close releases every held resource. Safe to call on a partially built app.
func (a *App) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.Sync != nil {
		a.Sync.Stop()
	}
	if a.hub != nil {
		a.hub.Stop()
	}
	if a.remote != nil {
		if err := a.remote.Close(context.Background()); err != nil {
			a.logger.Warn("close remote store", "error", err)
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// ErrNoRemote reports an operation that needs the remote store when none
// is configured.
var ErrNoRemote = errors.New("no remote store configured (set the remote driver)")

// noRemote keeps local operations working when no remote is configured.
type noRemote struct{}

func (noRemote) ReadBinder(context.Context, string) (*domain.BinderSnapshot, error) {
	return nil, ErrNoRemote
}

func (noRemote) WriteBinderBatch(context.Context, *domain.Binder, []domain.PendingChange) (*domain.BinderSnapshot, error) {
	return nil, ErrNoRemote
}

func (noRemote) Ping(context.Context) error  { return ErrNoRemote }
func (noRemote) Close(context.Context) error { return nil }
