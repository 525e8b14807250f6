package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/biroman/pkmnbindrnew-sub000/internal/importer"
	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

// importWatcher watches a drop directory for card-list files. A dropped
// json or csv file is parsed into the catalog once writes to it settle;
// processed files are renamed with a ".done" suffix so restarts do not
// re-import them.
type importWatcher struct {
	cards  *service.CardService
	dir    string
	logger hclog.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newImportWatcher(cards *service.CardService, dir string, logger hclog.Logger) *importWatcher {
	return &importWatcher{
		cards:  cards,
		dir:    dir,
		logger: logger,
		timers: make(map[string]*time.Timer),
	}
}

// Start creates the drop directory and begins watching it.
func (w *importWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create import directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.loop(watchCtx)

	w.logger.Info("watching for card-list drops", "dir", w.dir)
	return nil
}

// Stop tears the watcher down.
func (w *importWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *importWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, err := importer.ForPath(event.Name); err != nil {
				continue
			}
			w.debounce(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// debounce resets the file's settle timer. Editors and copies fire many
// write events; the import runs once writes stop for half a second.
func (w *importWatcher) debounce(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(500*time.Millisecond, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.process(ctx, path)
	})
}

func (w *importWatcher) process(ctx context.Context, path string) {
	result, err := w.cards.ImportFile(ctx, path)
	if err != nil {
		w.logger.Error("import failed", "file", filepath.Base(path), "error", err)
		return
	}
	if err := os.Rename(path, path+".done"); err != nil {
		w.logger.Warn("mark import processed", "file", filepath.Base(path), "error", err)
	}
	w.logger.Info("imported card list",
		"file", filepath.Base(path), "format", result.Format,
		"created", result.Created, "updated", result.Updated)
}
