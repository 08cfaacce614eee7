package notes

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch calls fn whenever the file at path is written, created or renamed
// into place. The parent directory is watched so editors that replace the
// file atomically are still observed. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, log *zap.Logger, fn func()) error {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %q: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				log.Debug("notes file changed", zap.String("op", ev.Op.String()))
				fn()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("notes watcher error", zap.Error(err))
		}
	}
}
