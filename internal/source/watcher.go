package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 150 * time.Millisecond

// Watcher reports filesystem changes under a root directory. Bursts of events
// are coalesced into a single notification.
type Watcher struct {
	root     string
	opts     Options
	debounce time.Duration

	fsw     *fsnotify.Watcher
	changes chan struct{}

	closeOnce sync.Once
}

// NewWatcher watches root and every directory below it that a scan with the
// same options would enter.
func NewWatcher(root string, opts Options, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("source: create watcher: %w", err)
	}
	w := &Watcher{
		root:     root,
		opts:     opts,
		debounce: debounce,
		fsw:      fsw,
		changes:  make(chan struct{}, 1),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Changes delivers one value per settled burst of filesystem events. It is
// closed once the watcher stops.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run forwards events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changes)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						slog.Warn("Failed to watch new directory", "path", ev.Name, "error", err)
					}
				}
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("Filesystem watcher error", "error", err)
		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}
	if !w.opts.Hidden {
		for part := range strings.SplitSeq(filepath.ToSlash(rel), "/") {
			if strings.HasPrefix(part, ".") && part != "." {
				return false
			}
		}
	}
	return true
}

func (w *Watcher) addTree(dir string) error {
	ignorer := compileIgnore(w.root, w.opts.Ignore)

	var (
		mu   sync.Mutex
		dirs = []string{dir}
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || p == dir {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if skipDir(rel, d.Name(), strings.Count(rel, "/"), w.opts, ignorer) {
			return filepath.SkipDir
		}
		mu.Lock()
		dirs = append(dirs, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("source: walk %s: %w", dir, err)
	}
	for _, d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			return fmt.Errorf("source: watch %s: %w", d, err)
		}
	}
	slog.Debug("Watching directories", "root", dir, "count", len(dirs))
	return nil
}
