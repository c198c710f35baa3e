// Package watch re-inspects the dataset whenever its files change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"potiondb/internal/integrity"
	"potiondb/internal/store"
)

// DefaultSettle is how long the files must stay quiet before a reload.
const DefaultSettle = 300 * time.Millisecond

// Handler receives the report of every settled batch of changes, or the
// error that prevented loading the dataset.
type Handler func(rep integrity.Report, err error)

// Watcher watches the data files of a store and calls a Handler after
// each burst of writes.
type Watcher struct {
	// Settle overrides DefaultSettle when set before Start.
	Settle time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	st      store.Store
	files   map[string]bool
	dirs    []string
	handle  Handler
	log     *zap.Logger
	pending bool
	last    time.Time
	reloads int
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New returns a watcher for paths, reloading through st.
func New(st store.Store, paths []string, handle Handler, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		fsw:    fsw,
		st:     st,
		files:  make(map[string]bool),
		handle: handle,
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = true
		// Commits replace files by rename, so watch the directories.
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Start begins watching. It is non-blocking; events are handled in a
// goroutine until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	if w.Settle <= 0 {
		w.Settle = DefaultSettle
	}
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.log.Debug("watching directory", zap.String("dir", dir))
	}
	go w.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.fsw.Close(); err != nil {
		w.log.Error("closing watcher", zap.Error(err))
	}
}

// Reloads returns how many settled batches were handled.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.Settle / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", zap.Error(err))
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !w.files[filepath.Clean(ev.Name)] {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.log.Debug("data file changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
	w.mu.Lock()
	w.pending = true
	w.last = time.Now()
	w.mu.Unlock()
}

// flush reloads once the pending batch has been quiet for Settle.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if !w.pending || time.Since(w.last) < w.Settle {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.reloads++
	w.mu.Unlock()

	ds, err := w.st.Load(ctx)
	if err != nil {
		w.log.Warn("reload failed", zap.Error(err))
		w.handle(integrity.Report{}, err)
		return
	}
	rep := integrity.Inspect(ds)
	w.log.Info("dataset reloaded", zap.Bool("clean", rep.Clean()))
	w.handle(rep, nil)
}
