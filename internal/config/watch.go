package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 100 * time.Millisecond

// Watch reloads the configuration whenever one of the config files changes
// and sends the result on the returned channel. The channel is closed when
// ctx is done. Reload failures are logged and skipped.
func Watch(ctx context.Context, workingDir string, debug bool) (<-chan *Config, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	paths := ConfigPaths(workingDir)
	var dirs []string
	for _, p := range paths {
		dir := filepath.Dir(p)
		if slices.Contains(dirs, dir) {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs = append(dirs, dir)
	}
	slog.Debug("Watching configuration", "dirs", dirs)

	out := make(chan *Config, 1)
	go func() {
		defer close(out)
		defer w.Close()

		timer := time.NewTimer(reloadDelay)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if slices.Contains(paths, ev.Name) {
					timer.Reset(reloadDelay)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("Config watcher error", "error", err)
			case <-timer.C:
				cfg, err := Load(workingDir, debug)
				if err != nil {
					slog.Warn("Failed to reload configuration", "error", err)
					continue
				}
				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
