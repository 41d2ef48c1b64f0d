package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path into lib whenever it changes, until ctx ends. The parent directory is
// watched so editors that save by rename are still observed.
func Watch(ctx context.Context, path string, lib *Library, debounce time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create pattern watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %q: %w", dir, err)
	}

	target := filepath.Clean(path)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("pattern watcher error", "error", err.Error())
		case <-timer.C:
			if err := Reload(path, lib); err != nil {
				logger.Error("pattern reload failed", "path", path, "error", err.Error())
				continue
			}
			logger.Info("patterns reloaded", "path", path, "count", lib.Len())
		}
	}
}

// Reload loads path and installs its rules as the library's user patterns.
func Reload(path string, lib *Library) error {
	list, err := LoadFile(path)
	if err != nil {
		return err
	}
	return lib.SetUserPatterns(list)
}
