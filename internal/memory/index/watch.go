package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"codenerd/internal/memory"
)

// Watcher keeps an Indexer's store synchronized with the memory tree as
// documents change on disk, debouncing rapid successive writes to the same
// file.
//
// Grounded on internal/core/mangle_watcher.go's shape: fsnotify.Watcher plus
// a debounce map drained on a ticker, stopCh/doneCh for clean shutdown.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	indexer     *Indexer
	paths       memory.Paths
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for diagnostics.
type WatcherStats struct {
	FilesIndexed int
	FilesRemoved int
	Errors       int
}

// NewWatcher builds a Watcher over every directory ix's indexer scans.
func NewWatcher(ix *Indexer, paths memory.Paths) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		indexer:     ix,
		paths:       paths,
		debounceMap: make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the memory tree in a background goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.paths.Dirs() {
		if err := w.addRecursive(dir); err != nil {
			continue
		}
	}

	go w.run(ctx)
	return nil
}

// Stop halts the watcher and waits for its goroutine to exit.
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
	w.watcher.Close()
}

// addRecursive adds dir and every subdirectory beneath it to the underlying
// fsnotify watcher, which only supports non-recursive watches natively.
func (w *Watcher) addRecursive(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addRecursive(event.Name)
			return
		}
	}
	if !strings.HasSuffix(event.Name, ".md") {
		return
	}

	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, t := range w.debounceMap {
		if now.Sub(t) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.reindexOrRemove(ctx, path)
	}
}

func (w *Watcher) reindexOrRemove(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		ns, err := w.indexer.namespaceFromPath(path)
		if err == nil {
			_, err = w.indexer.store.Delete(ctx, ns, filepath.Base(path))
		}
		w.mu.Lock()
		if err != nil {
			w.stats.Errors++
		} else {
			w.stats.FilesRemoved++
		}
		w.mu.Unlock()
		return
	}

	if err := w.indexer.IndexDoc(ctx, path); err != nil {
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}
	w.mu.Lock()
	w.stats.FilesIndexed++
	w.mu.Unlock()
}

// Stats returns a snapshot of the watcher's activity counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
