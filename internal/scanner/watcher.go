package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces editor save bursts into one reindex.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches skill roots recursively and reports changed paths in
// debounced batches. Rapid events for the same path within the window
// collapse into one entry.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	batches chan []string
}

// NewWatcher creates a watcher. A non-positive debounce uses the default.
func NewWatcher(debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]struct{}),
		batches:  make(chan []string, 4),
	}, nil
}

// Batches returns the channel of debounced change batches. Closed when the
// watcher stops.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Watch begins watching the given directories recursively and blocks until
// the context is cancelled. Directories that do not exist are skipped.
func (w *Watcher) Watch(ctx context.Context, dirs []string) error {
	for _, dir := range dirs {
		if err := w.addRecursive(dir); err != nil {
			w.logger.Warn("watch_root_failed",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
		}
	}

	defer close(w.batches)
	defer func() { _ = w.fsw.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	// New directories must be added for recursive coverage.
	if ev.Op.Has(fsnotify.Create) {
		if err := w.addRecursive(ev.Name); err == nil {
			w.logger.Debug("watch_dir_added", slog.String("dir", ev.Name))
		}
	}

	if !strings.EqualFold(filepath.Ext(ev.Name), skillExt) {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[ev.Name] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	} else {
		w.timer.Reset(w.debounce)
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	select {
	case w.batches <- paths:
	default:
		w.logger.Warn("watch_batch_dropped", slog.Int("paths", len(paths)))
	}
}

// addRecursive registers dir and every subdirectory. Non-directories are
// ignored silently; fsnotify watches the parent for file events.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if _, skip := skippedDirs[name]; skip {
			return filepath.SkipDir
		}
		if path != dir && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}
