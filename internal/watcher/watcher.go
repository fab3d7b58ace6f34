package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const forwardOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Event is a change to one tracked log file.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher reports changes to a fixed set of log files. It watches their
// parent directories, so a file rotated away and recreated under the same
// name shows up as a Create on the tracked path.
type Watcher struct {
	Events chan Event

	fsw    *fsnotify.Watcher
	logger *zap.Logger

	mu      sync.RWMutex
	tracked map[string]struct{}
	dirs    map[string]struct{}
}

// New resolves the glob patterns once and tracks every matching file.
// A pattern that fails to expand, or a directory that cannot be watched,
// is logged and skipped.
func New(patterns []string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		Events:  make(chan Event, 256),
		fsw:     fsw,
		logger:  logger,
		tracked: make(map[string]struct{}),
		dirs:    make(map[string]struct{}),
	}

	for _, path := range resolve(patterns, logger) {
		if err := w.track(path); err != nil {
			logger.Warn("cannot watch log", zap.String("path", path), zap.Error(err))
		}
	}
	return w, nil
}

// Start forwards events for tracked files until the context is cancelled or
// the underlying watcher fails. Events is closed on return.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&forwardOps == 0 || !w.isTracked(ev.Name) {
				continue
			}
			select {
			case w.Events <- Event{Path: ev.Name, Op: ev.Op}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// Close releases the OS watch without starting. Start closes it itself.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Paths returns the tracked files as sorted absolute paths.
func (w *Watcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.tracked))
	for p := range w.tracked {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ReWatch tracks path again after rotation, re-adding its directory if the
// directory itself was removed and recreated.
func (w *Watcher) ReWatch(path string) error {
	w.mu.Lock()
	delete(w.dirs, filepath.Dir(path))
	w.mu.Unlock()
	return w.track(path)
}

func (w *Watcher) track(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(path)
	if _, ok := w.dirs[dir]; !ok {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = struct{}{}
	}
	w.tracked[path] = struct{}{}
	return nil
}

func (w *Watcher) isTracked(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.tracked[filepath.Clean(path)]
	return ok
}

// resolve expands recursive globs such as logs/**/*.log into unique
// absolute file paths.
func resolve(patterns []string, logger *zap.Logger) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
		if err != nil {
			logger.Warn("failed to expand pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				continue
			}
			if _, dup := seen[abs]; dup {
				continue
			}
			seen[abs] = struct{}{}
			out = append(out, abs)
		}
	}
	return out
}
