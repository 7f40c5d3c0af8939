package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────
// Watcher: rerun a job when a project file changes
// ─────────────────────────────────────────────────────────────

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls its job after a file is written or replaced, once the writes
// have settled. Runs never overlap; a change that settles mid-run is retried
// one debounce later.
type Watcher struct {
	path     string
	job      func(ctx context.Context) error
	debounce time.Duration
	log      *zap.Logger
	guard    runningGuard
}

func NewWatcher(path string, job func(ctx context.Context) error, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{path: path, job: job, debounce: DefaultDebounce, log: log.Named("watcher")}
}

// SetDebounce overrides DefaultDebounce. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run watches until ctx is done. The parent directory is watched rather than
// the file so editors that save by rename keep being noticed.
func (w *Watcher) Run(ctx context.Context) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("watch %q: %w", w.path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch dir %q: %w", filepath.Dir(abs), err)
	}
	w.log.Info("watching", zap.String("path", abs))

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		// Let an in-flight run finish; it sees the cancelled ctx.
		w.guard.WaitAll(context.Background())
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if name, _ := filepath.Abs(event.Name); name != abs {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() { w.fire(ctx, abs) })
			mu.Unlock()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) fire(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if !w.guard.TryLock(path) {
		w.log.Debug("run in progress, change deferred", zap.String("path", path))
		time.AfterFunc(w.debounce, func() { w.fire(ctx, path) })
		return
	}
	defer w.guard.Unlock(path)
	w.log.Info("file changed", zap.String("path", path))
	if err := w.job(ctx); err != nil {
		w.log.Warn("job failed", zap.String("path", path), zap.Error(err))
	}
}
