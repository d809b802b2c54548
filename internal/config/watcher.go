package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a configuration file and delivers freshly loaded, typed
// snapshots to registered handlers after a debounce window. The loader runs
// on every change so handlers never see stale data.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	loader   func(path string) (T, error)
	logger   *slog.Logger

	mu       sync.Mutex
	handlers []func(T)
	fsw      *fsnotify.Watcher
	cancel   context.CancelFunc
}

// NewWatcher creates a watcher for path. The default debounce is 1.5 s to
// ride out editors that write files in several bursts.
func NewWatcher[T any](path string, loader func(string) (T, error), logger *slog.Logger) *Watcher[T] {
	return &Watcher[T]{
		path:     path,
		debounce: 1500 * time.Millisecond,
		loader:   loader,
		logger:   logger,
	}
}

// SetDebounce overrides the debounce window. Call before Start.
func (w *Watcher[T]) SetDebounce(d time.Duration) { w.debounce = d }

// OnReload registers a handler invoked with each fresh snapshot.
func (w *Watcher[T]) OnReload(handler func(T)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start begins watching. It fails if the file cannot be watched.
func (w *Watcher[T]) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.fsw = fsw
	w.cancel = cancel

	w.logger.Info("config watcher started", "path", w.path)
	go w.run(ctx)
	return nil
}

// Stop stops watching and releases the underlying fsnotify watcher.
func (w *Watcher[T]) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher[T]) run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Writes and creates both matter: some editors replace the file.
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) reload() {
	snapshot, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", "error", err)
		return
	}

	w.mu.Lock()
	handlers := append([]func(T){}, w.handlers...)
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.path)
	for _, h := range handlers {
		h(snapshot)
	}
}
