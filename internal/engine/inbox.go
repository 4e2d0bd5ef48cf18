package engine

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/daybook-app/daybook/internal/store"
)

// InboxWatcher watches a drop directory for exported dataset files and
// imports them into the store. Dropping a file into the inbox is the
// offline-friendly way to move a dataset between machines: the import is
// all-or-nothing through the store's normal validation, and a successfully
// imported file is renamed with an ".imported" suffix so it is not processed
// twice.
type InboxWatcher struct {
	store   *store.Store
	dir     string
	logger  *log.Logger
	watcher *fsnotify.Watcher

	// Pending files are debounced so a file still being written is not
	// imported half-finished.
	debounce time.Duration
	pending  map[string]time.Time
	mu       sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewInboxWatcher creates a watcher for the given directory, creating it if
// needed.
func NewInboxWatcher(st *store.Store, dir string, debounce time.Duration, logger *log.Logger) (*InboxWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create inbox directory: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[inbox] ", log.LstdFlags)
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &InboxWatcher{
		store:    st,
		dir:      dir,
		logger:   logger,
		watcher:  watcher,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Any dataset files already sitting in the inbox are
// queued immediately.
func (w *InboxWatcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch inbox directory %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read inbox directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.queue(filepath.Join(w.dir, entry.Name()))
	}

	w.wg.Add(2)
	go w.watchEvents()
	go w.processPending()

	w.logger.Printf("Watching inbox: %s", w.dir)
	return nil
}

// Stop stops watching and waits for the goroutines to exit.
func (w *InboxWatcher) Stop() error {
	close(w.done)
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.wg.Wait()
	return nil
}

func (w *InboxWatcher) watchEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.queue(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("Watcher error: %v", err)
		}
	}
}

// queue adds a candidate file to the debounce queue. Non-dataset files and
// already-imported files are ignored.
func (w *InboxWatcher) queue(path string) {
	if filepath.Ext(path) != ".json" || strings.HasSuffix(path, ".imported") {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *InboxWatcher) processPending() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.importSettled()
		}
	}
}

// importSettled imports files that have been quiet for a full debounce
// window.
func (w *InboxWatcher) importSettled() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, queuedAt := range w.pending {
		if now.Sub(queuedAt) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		if err := w.importFile(path); err != nil {
			w.logger.Printf("Failed to import %s: %v", filepath.Base(path), err)
		}
	}
}

// importFile runs one inbox file through the store's all-or-nothing import.
// A file that fails validation is left in place untouched.
func (w *InboxWatcher) importFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read inbox file: %w", err)
	}

	if err := w.store.Import(data); err != nil {
		return err
	}

	if err := os.Rename(path, path+".imported"); err != nil {
		return fmt.Errorf("failed to archive imported file: %w", err)
	}

	w.logger.Printf("Imported dataset from %s", filepath.Base(path))
	return nil
}
