package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/daybook-app/daybook/internal/schema"
	"github.com/daybook-app/daybook/internal/store"
)

// Broadcaster receives daemon events for external observers. The dashboard
// server implements this; a nil broadcaster disables it.
type Broadcaster interface {
	StatusChanged(status Status)
	StoreChanged(counts map[schema.Kind]int)
	SyncComplete(duration time.Duration)
}

// DaemonConfig holds configuration for the sync daemon.
type DaemonConfig struct {
	// SyncInterval is how often a periodic sync cycle fires.
	SyncInterval time.Duration

	// InboxDir, when set, enables the inbox import watcher.
	InboxDir string

	// InboxDebounce is how long an inbox file must be quiet before import.
	InboxDebounce time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultDaemonConfig returns sensible defaults.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		SyncInterval:  5 * time.Minute,
		InboxDebounce: 200 * time.Millisecond,
		Logger:        log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon wires the store, the sync engine, the inbox watcher, and an
// optional broadcaster into one long-running process.
//
// Wiring: every store mutation triggers the engine (coalesced) and notifies
// the broadcaster; every engine status transition notifies the broadcaster.
type Daemon struct {
	store       *store.Store
	engine      *Engine
	config      *DaemonConfig
	broadcaster Broadcaster

	inbox       *InboxWatcher
	unsubscribe []func()
}

// NewDaemon creates a daemon around an existing store and remote pusher.
func NewDaemon(st *store.Store, remote Pusher, config *DaemonConfig, broadcaster Broadcaster) (*Daemon, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil {
		config = DefaultDaemonConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	eng := New(st, remote, &Config{
		Interval: config.SyncInterval,
		Logger:   config.Logger,
	})

	d := &Daemon{
		store:       st,
		engine:      eng,
		config:      config,
		broadcaster: broadcaster,
	}

	if config.InboxDir != "" {
		inbox, err := NewInboxWatcher(st, config.InboxDir, config.InboxDebounce, config.Logger)
		if err != nil {
			return nil, err
		}
		d.inbox = inbox
	}

	return d, nil
}

// Engine returns the daemon's sync engine.
func (d *Daemon) Engine() *Engine {
	return d.engine
}

// Start runs the daemon until ctx is cancelled, then shuts down cleanly.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	unsubStore := d.store.Subscribe(func() {
		d.engine.Trigger()
		if d.broadcaster != nil {
			d.broadcaster.StoreChanged(d.store.Snapshot().Counts())
		}
	})
	d.unsubscribe = append(d.unsubscribe, unsubStore)

	start := time.Now()
	unsubStatus := d.engine.SubscribeStatus(func(s Status) {
		if d.broadcaster == nil {
			return
		}
		d.broadcaster.StatusChanged(s)
		switch s {
		case StatusSyncing:
			start = time.Now()
		case StatusIdle:
			d.broadcaster.SyncComplete(time.Since(start))
		}
	})
	d.unsubscribe = append(d.unsubscribe, unsubStatus)

	d.engine.Start(ctx)

	if d.inbox != nil {
		if err := d.inbox.Start(); err != nil {
			return fmt.Errorf("failed to start inbox watcher: %w", err)
		}
	}

	// Kick off an initial cycle so pending offline work syncs promptly.
	d.engine.Trigger()

	<-ctx.Done()
	d.config.Logger.Println("Shutdown signal received")
	return d.stop()
}

func (d *Daemon) stop() error {
	d.config.Logger.Println("Stopping daemon")

	for _, unsub := range d.unsubscribe {
		unsub()
	}
	d.unsubscribe = nil

	if d.inbox != nil {
		if err := d.inbox.Stop(); err != nil {
			d.config.Logger.Printf("Error stopping inbox watcher: %v", err)
		}
	}

	d.engine.Wait()
	d.config.Logger.Println("Daemon stopped")
	return nil
}
