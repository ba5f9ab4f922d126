// Package monitor reports sentinel files appearing and disappearing under
// watched directories. It is an operator aid; detection never depends on it.
package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/peterM/HangFixer/internal/logging"
)

// DefaultDebounce coalesces the burst of events a single write produces.
const DefaultDebounce = 50 * time.Millisecond

// Change is one observed sentinel transition.
type Change struct {
	Path  string
	Armed bool // true when the sentinel now exists
	At    time.Time
}

// Watcher watches directories for files with the sentinel extension.
type Watcher struct {
	watcher   *fsnotify.Watcher
	extension string
	debounce  time.Duration
	logger    *logging.Logger

	onChange func(Change)

	// Directories to skip when watching recursively
	ignoreDirs []string

	mu       sync.RWMutex
	dirs     map[string]struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Watcher for files ending in extension.
func New(extension string, logger *logging.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Watcher{
		watcher:    watcher,
		extension:  extension,
		debounce:   DefaultDebounce,
		logger:     logger,
		ignoreDirs: []string{".git", ".vs", "node_modules", "bin", "obj"},
		dirs:       make(map[string]struct{}),
		stopCh:     make(chan struct{}),
	}, nil
}

// SetChangeCallback sets the callback for sentinel transitions. It is called
// from the watch goroutine.
func (w *Watcher) SetChangeCallback(cb func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = cb
}

// Add watches dir, and every subdirectory when recursive is set.
func (w *Watcher) Add(dir string, recursive bool) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("watch directory does not exist: %s", dir)
		}
		return fmt.Errorf("failed to stat watch directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path is not a directory: %s", dir)
	}

	if !recursive {
		return w.addDir(dir)
	}

	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignored(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.addDir(path); err != nil {
			w.logger.Warn("failed to watch directory", "dir", path, "error", err.Error())
		}
		return nil
	})
}

func (w *Watcher) addDir(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.mu.Lock()
	w.dirs[dir] = struct{}{}
	w.mu.Unlock()
	return nil
}

func (w *Watcher) ignored(name string) bool {
	for _, ignore := range w.ignoreDirs {
		if name == ignore {
			return true
		}
	}
	return false
}

// Dirs returns the watched directories, sorted.
func (w *Watcher) Dirs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) isSentinel(path string) bool {
	return strings.EqualFold(filepath.Ext(path), w.extension)
}

func (w *Watcher) watchLoop() {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	// Last event per path wins; the file is stat'ed when the burst settles.
	pending := make(map[string]struct{})

	for {
		select {
		case <-w.stopCh:
			debounceTimer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.isSentinel(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]struct{})
			sort.Strings(paths)

			for _, p := range paths {
				w.emit(p)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err.Error())
		}
	}
}

func (w *Watcher) emit(path string) {
	_, err := os.Stat(path)
	change := Change{Path: path, Armed: err == nil, At: time.Now()}

	w.mu.RLock()
	cb := w.onChange
	w.mu.RUnlock()

	w.logger.Debug("sentinel change", "sentinel", path, "armed", change.Armed)
	if cb != nil {
		cb(change)
	}
}
