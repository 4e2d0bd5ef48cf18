package engine

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/daybook-app/daybook/internal/schema"
	"github.com/daybook-app/daybook/internal/store"
)

func newInbox(t *testing.T, st *store.Store) (*InboxWatcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := NewInboxWatcher(st, dir, 20*time.Millisecond, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewInboxWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w, dir
}

// exportedDataset builds a one-entry dataset through a scratch store.
func exportedDataset(t *testing.T) []byte {
	t.Helper()
	scratch := store.New(nil, nil)
	if _, err := scratch.AddEntry(store.AddEntryParams{Type: schema.EntryFood, ItemID: "f1", Date: "2024-02-01"}); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	data, err := scratch.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	return data
}

func TestInboxImportsAndArchivesValidFile(t *testing.T) {
	st := store.New(nil, nil)
	_, dir := newInbox(t, st)

	path := filepath.Join(dir, "laptop-export.json")
	if err := os.WriteFile(path, exportedDataset(t), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	waitFor(t, "import", func() bool { return len(st.Snapshot().Entries) == 1 })

	if _, err := os.Stat(path + ".imported"); err != nil {
		t.Errorf("imported file was not archived: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original file should be gone after archive")
	}
}

func TestInboxLeavesInvalidFileAndStoreUntouched(t *testing.T) {
	st := store.New(nil, nil)
	snapBefore := st.Snapshot()
	_, dir := newInbox(t, st)

	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Give the watcher several debounce windows to (incorrectly) act.
	time.Sleep(150 * time.Millisecond)

	if st.Snapshot() != snapBefore {
		t.Error("invalid import must leave the store unchanged")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("invalid file must stay in place: %v", err)
	}
	if _, err := os.Stat(path + ".imported"); !os.IsNotExist(err) {
		t.Error("invalid file must not be archived")
	}
}

func TestInboxIgnoresNonDatasetFiles(t *testing.T) {
	st := store.New(nil, nil)
	_, dir := newInbox(t, st)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("non-dataset file must be left alone: %v", err)
	}
}

func TestInboxQueuesPreexistingFiles(t *testing.T) {
	st := store.New(nil, nil)
	dir := t.TempDir()

	path := filepath.Join(dir, "waiting.json")
	if err := os.WriteFile(path, exportedDataset(t), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	w, err := NewInboxWatcher(st, dir, 20*time.Millisecond, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewInboxWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	waitFor(t, "pre-existing file import", func() bool { return len(st.Snapshot().Entries) == 1 })
}

func TestDaemonTriggersSyncOnStoreMutation(t *testing.T) {
	st := store.New(nil, nil)
	pusher := &fakePusher{configured: true}

	d, err := NewDaemon(st, pusher, &DaemonConfig{
		SyncInterval: time.Hour,
		Logger:       log.New(io.Discard, "", 0),
	}, nil)
	if err != nil {
		t.Fatalf("NewDaemon failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	// Initial trigger pushes once; a mutation should push again.
	waitFor(t, "initial push", func() bool { return pusher.pushCount() >= 1 })

	if _, err := st.AddEntry(store.AddEntryParams{Type: schema.EntryFood, ItemID: "f1", Date: "2024-01-15"}); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	waitFor(t, "mutation-triggered push", func() bool { return pusher.pushCount() >= 2 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("daemon exited with error: %v", err)
	}
}

// recordingBroadcaster collects daemon events so tests can assert on them.
type recordingBroadcaster struct {
	mu           sync.Mutex
	storeChanges []map[schema.Kind]int
	statuses     []Status
	completions  int
}

func (b *recordingBroadcaster) StatusChanged(status Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, status)
}

func (b *recordingBroadcaster) StoreChanged(counts map[schema.Kind]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storeChanges = append(b.storeChanges, counts)
}

func (b *recordingBroadcaster) SyncComplete(duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completions++
}

func (b *recordingBroadcaster) storeChangeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.storeChanges)
}

func (b *recordingBroadcaster) lastStoreChange() map[schema.Kind]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.storeChanges) == 0 {
		return nil
	}
	return b.storeChanges[len(b.storeChanges)-1]
}

func TestDaemonWithBroadcasterCompletesMutations(t *testing.T) {
	st := store.New(nil, nil)
	pusher := &fakePusher{configured: true}
	bc := &recordingBroadcaster{}

	d, err := NewDaemon(st, pusher, &DaemonConfig{
		SyncInterval: time.Hour,
		Logger:       log.New(io.Discard, "", 0),
	}, bc)
	if err != nil {
		t.Fatalf("NewDaemon failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()
	waitFor(t, "initial push", func() bool { return pusher.pushCount() >= 1 })

	// The daemon's store listener takes a snapshot for the broadcaster, so a
	// mutation must complete even with the broadcaster attached.
	added := make(chan error, 1)
	go func() {
		_, err := st.AddEntry(store.AddEntryParams{Type: schema.EntryFood, ItemID: "f1", Date: "2024-01-15"})
		added <- err
	}()
	select {
	case err := <-added:
		if err != nil {
			t.Fatalf("AddEntry failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AddEntry did not return with a broadcaster attached")
	}

	waitFor(t, "broadcast of store change", func() bool { return bc.storeChangeCount() >= 1 })
	if counts := bc.lastStoreChange(); counts[schema.KindEntries] != 1 {
		t.Errorf("broadcast counts = %v, want 1 entry", counts)
	}
	waitFor(t, "mutation-triggered push", func() bool { return pusher.pushCount() >= 2 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("daemon exited with error: %v", err)
	}
}
