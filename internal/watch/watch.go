// Package watch reports debounced changes to a set of files.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is given.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches the directories of tracked files and reports changes to
// those files in batches, once no event arrived for the debounce period.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

// New creates a Watcher. A zero debounce means DefaultDebounce.
func New(debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		fsw:      fsw,
		logger:   logger,
		debounce: debounce,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}, nil
}

// Track replaces the set of files of interest. Directories no longer needed
// stay watched; their events are ignored.
func (w *Watcher) Track(paths []string) error {
	files := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		files[abs] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.files = files
	for f := range files {
		dir := filepath.Dir(f)
		if w.dirs[dir] {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
		w.logger.Debug("Watching directory.", "path", dir)
	}
	return nil
}

func (w *Watcher) tracked(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs]
}

// Run delivers batches of changed files to onChange until ctx is done or
// the watcher is closed. onChange runs on the Run goroutine and may call
// Track.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if !w.tracked(event.Name) {
				continue
			}
			w.logger.Debug("File change detected.", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error.", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			pending = make(map[string]bool)
			onChange(changed)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
