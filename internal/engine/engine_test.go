package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/daybook-app/daybook/internal/schema"
	"github.com/daybook-app/daybook/internal/store"
)

func quietConfig() *Config {
	return &Config{Logger: log.New(io.Discard, "", 0)}
}

// fakePusher records pushes and can fail, block, or report unconfigured.
type fakePusher struct {
	mu         sync.Mutex
	configured bool
	err        error

	pushes     int
	dataset    *schema.Dataset
	tombstones schema.Tombstones

	// gate, when non-nil, blocks each push until released.
	started chan struct{}
	release chan struct{}
}

func (f *fakePusher) Configured() bool { return f.configured }

func (f *fakePusher) Push(ctx context.Context, d *schema.Dataset, t schema.Tombstones) error {
	f.mu.Lock()
	f.pushes++
	f.dataset = d
	f.tombstones = t.Clone()
	started := f.started
	release := f.release
	err := f.err
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-release
	}
	return err
}

func (f *fakePusher) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushes
}

// statusRecorder collects status transitions.
type statusRecorder struct {
	mu     sync.Mutex
	states []Status
}

func (r *statusRecorder) record(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *statusRecorder) snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.states...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSuccessfulCycleClearsCarriedTombstones(t *testing.T) {
	st := store.New(nil, nil)
	e, _ := st.AddEntry(store.AddEntryParams{Type: schema.EntryFood, ItemID: "f1", Date: "2024-01-15"})
	st.DeleteEntry(e.ID)

	pusher := &fakePusher{configured: true}
	eng := New(st, pusher, quietConfig())

	rec := &statusRecorder{}
	eng.SubscribeStatus(rec.record)

	if err := eng.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	if pusher.pushCount() != 1 {
		t.Fatalf("expected 1 push, got %d", pusher.pushCount())
	}
	if !pusher.tombstones[schema.KindEntries][e.ID] {
		t.Error("push did not carry the tombstone")
	}
	if st.Tombstones().Total() != 0 {
		t.Error("confirmed tombstones not cleared")
	}
	if got := rec.snapshot(); len(got) != 2 || got[0] != StatusSyncing || got[1] != StatusIdle {
		t.Errorf("expected transitions [syncing idle], got %v", got)
	}
	if eng.Status() != StatusIdle {
		t.Errorf("expected idle, got %s", eng.Status())
	}
}

func TestFailedCyclePreservesEverything(t *testing.T) {
	st := store.New(nil, nil)
	e, _ := st.AddEntry(store.AddEntryParams{Type: schema.EntryFood, ItemID: "f1", Date: "2024-01-15"})
	st.DeleteEntry(e.ID)
	tombstonesBefore := st.Tombstones()
	snapBefore := st.Snapshot()

	pusher := &fakePusher{configured: true, err: errors.New("document service unavailable")}
	eng := New(st, pusher, quietConfig())

	if err := eng.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected cycle error")
	}

	if eng.Status() != StatusError {
		t.Errorf("expected error status, got %s", eng.Status())
	}
	if eng.LastError() == nil {
		t.Error("LastError should report the failure")
	}
	if st.Snapshot() != snapBefore {
		t.Error("failed push must not touch the dataset")
	}
	after := st.Tombstones()
	if after.Total() != tombstonesBefore.Total() || !after[schema.KindEntries][e.ID] {
		t.Error("failed push must leave tombstones untouched")
	}
}

func TestErrorClearsAfterNextSuccessfulCycle(t *testing.T) {
	st := store.New(nil, nil)
	pusher := &fakePusher{configured: true, err: errors.New("boom")}
	eng := New(st, pusher, quietConfig())

	_ = eng.SyncOnce(context.Background())
	if eng.Status() != StatusError {
		t.Fatalf("setup: expected error, got %s", eng.Status())
	}

	pusher.mu.Lock()
	pusher.err = nil
	pusher.mu.Unlock()

	if err := eng.SyncOnce(context.Background()); err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if eng.Status() != StatusIdle {
		t.Errorf("expected idle after recovery, got %s", eng.Status())
	}
	if eng.LastError() != nil {
		t.Errorf("LastError should clear on success, got %v", eng.LastError())
	}
}

func TestUnconfiguredRemoteStaysIdle(t *testing.T) {
	st := store.New(nil, nil)
	pusher := &fakePusher{configured: false}
	eng := New(st, pusher, quietConfig())

	rec := &statusRecorder{}
	eng.SubscribeStatus(rec.record)

	e, _ := st.AddEntry(store.AddEntryParams{Type: schema.EntryFood, ItemID: "f1", Date: "2024-01-15"})
	st.DeleteEntry(e.ID)

	if err := eng.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	if pusher.pushCount() != 0 {
		t.Error("unconfigured remote must never be pushed to")
	}
	if eng.Status() != StatusIdle {
		t.Errorf("engine must never leave idle, got %s", eng.Status())
	}
	if len(rec.snapshot()) != 0 {
		t.Errorf("no transitions expected, got %v", rec.snapshot())
	}
	if st.Tombstones().Total() != 1 {
		t.Error("tombstones must accumulate locally")
	}
}

func TestBurstOfTriggersCoalescesToOneCycle(t *testing.T) {
	st := store.New(nil, nil)
	pusher := &fakePusher{configured: true}
	eng := New(st, pusher, quietConfig())

	rec := &statusRecorder{}
	eng.SubscribeStatus(rec.record)

	// Two triggers in immediate succession, before the loop runs: the
	// second is absorbed by the one-slot channel.
	eng.Trigger()
	eng.Trigger()

	ctx, cancel := context.WithCancel(context.Background())
	eng.Start(ctx)

	waitFor(t, "first push", func() bool { return pusher.pushCount() >= 1 })
	// Give the loop a chance to (incorrectly) run a second cycle.
	time.Sleep(50 * time.Millisecond)

	cancel()
	eng.Wait()

	if got := pusher.pushCount(); got != 1 {
		t.Errorf("burst must coalesce to exactly one push, got %d", got)
	}
	if got := rec.snapshot(); len(got) != 2 || got[0] != StatusSyncing || got[1] != StatusIdle {
		t.Errorf("expected exactly one syncing->idle transition pair, got %v", got)
	}
}

func TestTriggerDuringCycleRunsNextCycle(t *testing.T) {
	st := store.New(nil, nil)
	pusher := &fakePusher{
		configured: true,
		started:    make(chan struct{}, 2),
		release:    make(chan struct{}),
	}
	eng := New(st, pusher, quietConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	eng.Trigger()
	<-pusher.started // first cycle now in flight

	// A trigger arriving mid-cycle must not start a concurrent cycle,
	// but must schedule the next one.
	eng.Trigger()
	if got := pusher.pushCount(); got != 1 {
		t.Fatalf("expected 1 in-flight push, got %d", got)
	}

	pusher.release <- struct{}{}
	<-pusher.started // second cycle picked up the queued trigger
	pusher.release <- struct{}{}

	waitFor(t, "second cycle to finish", func() bool { return eng.Status() == StatusIdle })
	if got := pusher.pushCount(); got != 2 {
		t.Errorf("expected 2 pushes total, got %d", got)
	}
}

func TestMutationDuringFlightObservedByNextCycle(t *testing.T) {
	st := store.New(nil, nil)
	pusher := &fakePusher{
		configured: true,
		started:    make(chan struct{}, 2),
		release:    make(chan struct{}),
	}
	eng := New(st, pusher, quietConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	eng.Trigger()
	<-pusher.started

	// Mutate while the push is in flight; the in-flight cycle works from
	// its snapshot and must not see this.
	if _, err := st.AddEntry(store.AddEntryParams{Type: schema.EntryFood, ItemID: "late", Date: "2024-03-01"}); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	eng.Trigger()
	pusher.release <- struct{}{}

	<-pusher.started
	pusher.mu.Lock()
	secondSawLate := len(pusher.dataset.Entries) == 1
	pusher.mu.Unlock()
	pusher.release <- struct{}{}

	if !secondSawLate {
		t.Error("next cycle did not observe the mid-flight mutation")
	}
}

func TestTombstonesAddedMidFlightSurviveClear(t *testing.T) {
	st := store.New(nil, nil)
	e1, _ := st.AddEntry(store.AddEntryParams{Type: schema.EntryFood, ItemID: "f1", Date: "2024-01-15"})
	e2, _ := st.AddEntry(store.AddEntryParams{Type: schema.EntryFood, ItemID: "f1", Date: "2024-01-16"})
	st.DeleteEntry(e1.ID)

	pusher := &fakePusher{
		configured: true,
		started:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	eng := New(st, pusher, quietConfig())

	done := make(chan error, 1)
	go func() { done <- eng.SyncOnce(context.Background()) }()

	<-pusher.started
	// Delete while the push is in flight: this tombstone was not carried
	// by the running cycle and must survive its clear.
	st.DeleteEntry(e2.ID)
	pusher.release <- struct{}{}

	if err := <-done; err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	ts := st.Tombstones()
	if ts[schema.KindEntries][e1.ID] {
		t.Error("carried tombstone should be cleared")
	}
	if !ts[schema.KindEntries][e2.ID] {
		t.Error("mid-flight tombstone was wrongly cleared")
	}
}
