// internal/watch/watch.go
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"diffwrite/internal/tree"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 200 * time.Millisecond

// Options configures a Watcher
type Options struct {
	// Debounce is how long the source must be quiet before a resync.
	Debounce time.Duration
	// OnSync receives the result of every sync, including the initial one.
	OnSync func(*tree.Summary, error)
	Logger *zap.Logger
}

// Watcher re-runs a tree sync whenever the source tree changes. Syncs run
// one at a time on the goroutine that called Run.
type Watcher struct {
	sync     *tree.Synchronizer
	src, dst string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onSync   func(*tree.Summary, error)
	logger   *zap.Logger
}

// New creates a Watcher for src. Call Run to start it; Run closes the
// underlying fsnotify watcher on return.
func New(s *tree.Synchronizer, src, dst string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.OnSync == nil {
		opts.OnSync = func(*tree.Summary, error) {}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	return &Watcher{
		sync:     s,
		src:      src,
		dst:      dst,
		watcher:  fsw,
		debounce: opts.Debounce,
		onSync:   opts.OnSync,
		logger:   opts.Logger,
	}, nil
}

// Run performs an initial sync, then resyncs after every burst of source
// events until ctx is done. Sync failures are reported through OnSync and
// do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addTree(w.src); err != nil {
		return err
	}
	w.runSync()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		case <-timer.C:
			w.runSync()
		}
	}
}

// handleEvent reports whether the event should trigger a resync.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.ignored(event.Name) {
		return false
	}

	w.logger.Debug("source event", zap.String("path", event.Name), zap.String("op", event.Op.String()))

	if event.Op.Has(fsnotify.Create) {
		// New directories need their own watch; errors here mean the
		// directory vanished again or is not a directory.
		if err := w.addTree(event.Name); err != nil {
			w.logger.Debug("not watching new path", zap.String("path", event.Name), zap.Error(err))
		}
	}
	return true
}

func (w *Watcher) runSync() {
	summary, err := w.sync.Sync(w.src, w.dst)
	if err != nil {
		w.logger.Warn("sync failed", zap.Error(err))
	} else if summary.Changed() {
		w.logger.Info("synced changes", zap.Int("written", summary.Written), zap.String("run_id", summary.RunID))
	}
	w.onSync(summary, err)
}

// addTree registers root and every non-ignored directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.src && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
}

func (w *Watcher) ignored(p string) bool {
	rel, err := filepath.Rel(w.src, p)
	if err != nil || rel == "." {
		return false
	}
	return w.sync.Ignored(filepath.ToSlash(rel))
}
