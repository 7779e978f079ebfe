// Package watcher triggers index refreshes when watched roots change on
// disk. It is caller-side plumbing around the synchronous index API:
// filesystem events are debounced per root and each quiet period ends
// with one Refresh call.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/findx/pkg/findx/logging"
	"github.com/jamesainslie/findx/pkg/findx/types"
)

// DefaultDebounce is how long a root must stay quiet after an event
// before a refresh fires.
const DefaultDebounce = 2 * time.Second

// RefreshFunc performs the refresh for a root that changed.
type RefreshFunc func(ctx context.Context, root string) (types.RefreshStats, error)

// Watcher watches indexed roots and schedules refreshes on change.
type Watcher struct {
	fsw      *fsnotify.Watcher
	refresh  RefreshFunc
	debounce time.Duration

	mu     sync.Mutex
	dirs   map[string]string // watched dir -> owning root
	timers map[string]*time.Timer
	closed bool
}

// New creates a Watcher that calls refresh for changed roots.
// A debounce of zero uses DefaultDebounce.
func New(refresh RefreshFunc, debounce time.Duration) (*Watcher, error) {
	if refresh == nil {
		return nil, errors.New("refresh func cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsw:      fsw,
		refresh:  refresh,
		debounce: debounce,
		dirs:     make(map[string]string),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Watch starts watching root recursively. Watches are added to the root
// and every subdirectory; symlinks are skipped to avoid loops.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path, absRoot)
		}
		return nil
	})
}

// addWatch registers one directory under its owning root.
func (w *Watcher) addWatch(path, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if _, ok := w.dirs[path]; ok {
		return nil
	}

	if err := w.fsw.Add(path); err != nil {
		logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.dirs[path] = root
	return nil
}

// Run processes filesystem events until ctx is done or the watcher is
// closed. Each event resets its root's debounce timer; when the timer
// fires, the refresh callback runs once for that root.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.Get("watcher")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}

// handleEvent maps an event to its owning root and reschedules that
// root's refresh.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	root := w.ownerOf(event.Name)
	if root == "" {
		return
	}

	// New directories join the watch set immediately so nested changes
	// are not missed while the refresh is pending.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			_ = w.addWatch(event.Name, root)
		}
	}

	w.scheduleRefresh(ctx, root)
}

// ownerOf returns the watched root containing path, or "".
func (w *Watcher) ownerOf(path string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(path)
	if root, ok := w.dirs[dir]; ok {
		return root
	}
	if root, ok := w.dirs[path]; ok {
		return root
	}
	return ""
}

// scheduleRefresh resets the debounce timer for root.
func (w *Watcher) scheduleRefresh(ctx context.Context, root string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if timer, ok := w.timers[root]; ok {
		timer.Reset(w.debounce)
		return
	}

	w.timers[root] = time.AfterFunc(w.debounce, func() {
		log := logging.Get("watcher")
		stats, err := w.refresh(ctx, root)
		if err != nil {
			log.Error("refresh failed", "root", root, "error", err)
			return
		}
		log.Info("refreshed after change",
			"root", root,
			"added", stats.Added,
			"removed", stats.Removed,
			"changed", stats.Changed)
	})
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	for _, timer := range w.timers {
		timer.Stop()
	}
	return w.fsw.Close()
}
