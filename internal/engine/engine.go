// Package engine orchestrates push cycles between the local store and the
// remote document, and owns the sync status state machine.
//
// The engine exposes a three-state status: idle -> syncing -> (idle|error).
// Exactly one cycle is ever in flight; the run loop goroutine owns the
// status flag, and triggers arriving mid-cycle are coalesced into the next
// cycle through a one-slot channel rather than launching a second concurrent
// cycle. Store mutations happening while a cycle awaits the network are
// simply observed by the following cycle.
//
// A failed cycle changes nothing: tombstones stay put (nothing was
// confirmed), the dataset stays put (a failed push never partially applies),
// and the status moves to error until a later cycle succeeds. When no remote
// is configured the engine never leaves idle and tombstones accumulate
// locally.
package engine

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/daybook-app/daybook/internal/schema"
	"github.com/daybook-app/daybook/internal/store"
)

// Status is the externally observable sync phase.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
)

// Pusher is the remote surface the engine drives; *remote.Client implements
// it.
type Pusher interface {
	Configured() bool
	Push(ctx context.Context, dataset *schema.Dataset, tombstones schema.Tombstones) error
}

// Config holds engine configuration.
type Config struct {
	// Interval is how often a periodic cycle fires. Zero disables the
	// timer; cycles then run only on Trigger.
	Interval time.Duration

	// Logger for engine activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval: 5 * time.Minute,
		Logger:   log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Engine drives sync cycles.
type Engine struct {
	store  *store.Store
	remote Pusher
	config *Config

	// trigger carries at most one pending request; extra triggers while a
	// cycle is queued or in flight are absorbed.
	trigger chan struct{}

	mu        sync.Mutex
	status    Status
	lastError error
	lastSync  time.Time

	nextListener int
	listeners    map[int]func(Status)
	order        []int

	wg sync.WaitGroup
}

// New creates an engine for the given store and remote.
func New(st *store.Store, remote Pusher, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Engine{
		store:     st,
		remote:    remote,
		config:    config,
		trigger:   make(chan struct{}, 1),
		status:    StatusIdle,
		listeners: make(map[int]func(Status)),
	}
}

// Status returns the current sync phase.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastError returns the error from the most recent failed cycle, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

// LastSync returns when the last successful cycle completed.
func (e *Engine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// SubscribeStatus registers a listener invoked on every status transition.
// The returned function removes the listener.
func (e *Engine) SubscribeStatus(listener func(Status)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextListener
	e.nextListener++
	e.listeners[id] = listener
	e.order = append(e.order, id)

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
		for i, v := range e.order {
			if v == id {
				e.order = append(e.order[:i], e.order[i+1:]...)
				break
			}
		}
	}
}

func (e *Engine) setStatus(s Status, err error) {
	e.mu.Lock()
	changed := e.status != s
	e.status = s
	e.lastError = err
	if s == StatusIdle && err == nil {
		e.lastSync = time.Now()
	}
	var fns []func(Status)
	if changed {
		for _, id := range e.order {
			if fn, ok := e.listeners[id]; ok {
				fns = append(fns, fn)
			}
		}
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Trigger requests a sync cycle. Non-blocking: a trigger that arrives while
// one is already pending or a cycle is in flight is coalesced, relying on
// the eventual next cycle to pick up newer state.
func (e *Engine) Trigger() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Start runs the engine loop until ctx is cancelled. Cycles fire on Trigger
// and, when configured, on the periodic interval.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go e.run(ctx)
}

// Wait blocks until the engine loop has exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	var tick <-chan time.Time
	if e.config.Interval > 0 {
		ticker := time.NewTicker(e.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.trigger:
			e.runCycle(ctx)
		case <-tick:
			e.runCycle(ctx)
		}
	}
}

// SyncOnce performs a single cycle synchronously. Used by the CLI's manual
// sync command; the daemon path goes through Trigger and the run loop.
func (e *Engine) SyncOnce(ctx context.Context) error {
	return e.runCycle(ctx)
}

// runCycle executes one push cycle. Only ever called from the run loop
// goroutine or a synchronous SyncOnce, so cycles never overlap.
func (e *Engine) runCycle(ctx context.Context) error {
	if e.remote == nil || !e.remote.Configured() {
		// Nothing to sync against; stay idle and let tombstones
		// accumulate locally.
		return nil
	}

	e.setStatus(StatusSyncing, nil)

	// The cycle works from a snapshot taken at its start. Mutations that
	// land while the push is in flight belong to the next cycle.
	dataset := e.store.Snapshot()
	tombstones := e.store.Tombstones()

	if err := e.remote.Push(ctx, dataset, tombstones); err != nil {
		e.config.Logger.Printf("Sync failed: %v", err)
		e.setStatus(StatusError, err)
		return err
	}

	// The write incorporated exactly the tombstones carried into this
	// push; clear those and nothing newer.
	for _, kind := range schema.Kinds {
		e.store.ClearTombstones(kind, tombstones.IDs(kind))
	}

	e.config.Logger.Printf("Sync complete: %d records, %d deletions confirmed",
		totalRecords(dataset), tombstones.Total())
	e.setStatus(StatusIdle, nil)
	return nil
}

func totalRecords(d *schema.Dataset) int {
	n := 0
	for _, count := range d.Counts() {
		n += count
	}
	return n
}
