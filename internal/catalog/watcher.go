package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Invalidator drops a cached document.
type Invalidator interface {
	Invalidate(name string)
}

// Watcher evicts documents from the cache when their files change.
type Watcher struct {
	dir     string
	cache   Invalidator
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewWatcher starts watching dir. Call Run to process events.
func NewWatcher(dir string, cache Invalidator, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating catalog watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &Watcher{dir: dir, cache: cache, watcher: w, logger: logger}, nil
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	w.logger.Info("watching catalog directory", slog.String("dir", w.dir))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("catalog watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close stops watching. It is safe to call after Run has returned.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !strings.HasSuffix(ev.Name, ".json") {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	name := strings.TrimSuffix(filepath.Base(ev.Name), ".json")
	if !ValidName(name) {
		return
	}
	w.logger.Debug("catalog file changed",
		slog.String("document", name),
		slog.String("op", ev.Op.String()),
	)
	w.cache.Invalidate(name)
}
