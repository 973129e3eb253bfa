// Package source produces list items from the filesystem.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/zeebo/xxh3"
)

// Entry is a single file under the scanned root.
type Entry struct {
	// Path is slash separated and relative to the root. It is the entry's id.
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	Depth   int
	// Fingerprint changes whenever the path, size or modification time do.
	Fingerprint uint64
}

// ID returns the key used by the collection.
func ID(e Entry) string {
	return e.Path
}

// Equal compares entries by fingerprint.
func Equal(a, b Entry) bool {
	return a.Fingerprint == b.Fingerprint
}

// Options narrows a scan.
type Options struct {
	// Include keeps only files matching one of these doublestar patterns.
	Include []string
	// Ignore holds extra gitignore lines applied on top of the root .gitignore.
	Ignore []string
	// Hidden includes dot files and dot directories.
	Hidden bool
	// MaxDepth limits how many directory levels below the root are entered.
	// Zero means unlimited.
	MaxDepth int
}

var commonIgnorePatterns = []string{
	".git",
	"node_modules",
	"vendor",
	"__pycache__",
	"*.swp",
	".DS_Store",
}

// ErrNotDir is returned when the scan root is not a directory.
var ErrNotDir = errors.New("source: root is not a directory")

// Scan walks root and returns every matching file sorted by path.
func Scan(ctx context.Context, root string, opts Options) ([]Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDir, root)
	}
	for _, pattern := range opts.Include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("source: invalid include pattern %q", pattern)
		}
	}

	ignorer := compileIgnore(root, opts.Ignore)

	var (
		mu      sync.Mutex
		entries []Entry
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("Skipping unreadable path", "path", p, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		depth := strings.Count(rel, "/")

		if d.IsDir() {
			if skipDir(rel, d.Name(), depth, opts, ignorer) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !opts.Hidden && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if ignorer.MatchesPath(rel) || !included(rel, opts.Include) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}

		e := newEntry(rel, fi.Size(), fi.ModTime(), depth)
		mu.Lock()
		entries = append(entries, e)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: walk %s: %w", root, err)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Path, b.Path)
	})
	slog.Debug("Scanned directory", "root", root, "entries", len(entries))
	return entries, nil
}

func newEntry(rel string, size int64, modTime time.Time, depth int) Entry {
	var sb strings.Builder
	sb.WriteString(rel)
	sb.WriteByte(0)
	sb.WriteString(strconv.FormatInt(size, 10))
	sb.WriteByte(0)
	sb.WriteString(strconv.FormatInt(modTime.UnixNano(), 10))
	return Entry{
		Path:        rel,
		Name:        path.Base(rel),
		Size:        size,
		ModTime:     modTime,
		Depth:       depth,
		Fingerprint: xxh3.HashString(sb.String()),
	}
}

func skipDir(rel, name string, depth int, opts Options, ignorer *ignore.GitIgnore) bool {
	if !opts.Hidden && strings.HasPrefix(name, ".") {
		return true
	}
	if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
		return true
	}
	return ignorer.MatchesPath(rel) || ignorer.MatchesPath(rel+"/")
}

func included(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func compileIgnore(root string, extra []string) *ignore.GitIgnore {
	lines := slices.Clone(commonIgnorePatterns)
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	lines = append(lines, extra...)
	return ignore.CompileIgnoreLines(lines...)
}
