package catalog

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates a Dir's listing when documents are added, removed
// or renamed.
type Watcher struct {
	dir      *Dir
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	callback func()
}

// NewWatcher watches dir. callback, if not nil, runs after each
// invalidation.
func NewWatcher(dir *Dir, logger *slog.Logger, callback func()) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir.Path); err != nil {
		watcher.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		watcher:  watcher,
		logger:   logger,
		callback: callback,
	}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.logger.Debug("catalog changed", "path", event.Name, "op", event.Op.String())
	w.dir.Invalidate()
	if w.callback != nil {
		w.callback()
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
