// Package watch notices when files backing open buffers change on disk.
//
// A Watcher observes the directory of each watched file, so atomic saves
// that rename a new file over the old one are seen as well. Bursts of
// events for one file are coalesced; when the burst settles the file's
// block is invalidated and topic.FileChanged is published.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/bytestorm/internal/engine/block"
	"github.com/dshills/bytestorm/internal/event"
	"github.com/dshills/bytestorm/internal/event/topic"
)

// DefaultDebounce is the default coalescing window.
const DefaultDebounce = 50 * time.Millisecond

// Errors returned by the watcher.
var (
	// ErrClosed indicates the watcher has been closed.
	ErrClosed = errors.New("watcher closed")

	// ErrNotWatching indicates the path is not being watched.
	ErrNotWatching = errors.New("path not being watched")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Stats contains watcher counters.
type Stats struct {
	WatchedFiles int
	Events       int64
	Published    int64
	Errors       int64
}

// Watcher invalidates file blocks and publishes change events.
type Watcher struct {
	mu sync.Mutex

	fsw    *fsnotify.Watcher
	store  *block.Store
	bus    *event.Bus
	logger *zap.Logger
	delay  time.Duration

	// files counts Watch calls per absolute path; dirs counts watched
	// files per directory.
	files   map[string]int
	dirs    map[string]int
	pending map[string]*time.Timer

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup

	events    atomic.Int64
	published atomic.Int64
	errors    atomic.Int64
}

// New creates a watcher that invalidates blocks in store and publishes to
// bus.
func New(store *block.Store, bus *event.Bus, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		store:   store,
		bus:     bus,
		logger:  zap.NewNop(),
		delay:   DefaultDebounce,
		files:   make(map[string]int),
		dirs:    make(map[string]int),
		pending: make(map[string]*time.Timer),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Watch starts watching the file at path. Calls are counted; each needs a
// matching Unwatch.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.files[abs] > 0 {
		w.files[abs]++
		return nil
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[abs] = 1
	return nil
}

// Unwatch drops one Watch of path.
func (w *Watcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.files[abs] == 0 {
		return ErrNotWatching
	}
	w.files[abs]--
	if w.files[abs] > 0 {
		return nil
	}
	delete(w.files, abs)
	if t, ok := w.pending[abs]; ok {
		t.Stop()
		delete(w.pending, abs)
	}

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		return w.fsw.Remove(dir)
	}
	return nil
}

// IsWatching reports whether path is being watched.
func (w *Watcher) IsWatching(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs] > 0
}

// Stats returns watcher counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	n := len(w.files)
	w.mu.Unlock()
	return Stats{
		WatchedFiles: n,
		Events:       w.events.Load(),
		Published:    w.published.Load(),
		Errors:       w.errors.Load(),
	}
}

// Close stops the watcher. Pending notifications are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

// Flush fires all pending notifications immediately.
func (w *Watcher) Flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path, t := range w.pending {
		t.Stop()
		paths = append(paths, path)
	}
	w.mu.Unlock()

	for _, path := range paths {
		w.fire(path)
	}
}

// Pending returns the number of notifications waiting on the window.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.errors.Add(1)
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// handle schedules a notification for events on watched files. Repeated
// events within the window push the notification back.
func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.files[path] == 0 {
		return
	}
	w.events.Add(1)

	if t, ok := w.pending[path]; ok {
		t.Reset(w.delay)
		return
	}
	w.pending[path] = time.AfterFunc(w.delay, func() { w.fire(path) })
}

// fire invalidates the block for path and publishes the change.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if _, ok := w.pending[path]; !ok || w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	if fb, ok := w.store.Lookup(path); ok {
		fb.Invalidate()
	}

	_, err := os.Stat(path)
	removed := errors.Is(err, os.ErrNotExist)

	w.logger.Debug("file changed", zap.String("path", path), zap.Bool("removed", removed))
	if w.bus == nil {
		return
	}
	ev := event.NewEvent(topic.FileChanged, event.FileChanged{Path: path, Removed: removed}, "watch")
	if err := w.bus.Publish(context.Background(), ev); err != nil {
		w.logger.Debug("publish failed", zap.Error(err))
		return
	}
	w.published.Add(1)
}
