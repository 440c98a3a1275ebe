package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/ports"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// FlushInterval is how often pending snapshots are pushed when no
	// enqueue wakes the loop (default: 2s)
	FlushInterval time.Duration

	// WriteTimeout bounds a single remote write (default: 10s)
	WriteTimeout time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		FlushInterval: 2 * time.Second,
		WriteTimeout:  10 * time.Second,
	}
}

// SyncProcessor writes ledger snapshots to the remote store in the
// background. Only the latest pending snapshot of each user is kept; a
// failed write is logged and dropped, the next mutation carries the state
// forward.
type SyncProcessor struct {
	remote ports.RemoteStore
	config SyncProcessorConfig

	pendingMu sync.Mutex
	pending   map[string]*ledger.Ledger
	wake      chan struct{}

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(remote ports.RemoteStore, config SyncProcessorConfig) *SyncProcessor {
	defaults := DefaultSyncProcessorConfig()
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaults.FlushInterval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	return &SyncProcessor{
		remote:  remote,
		config:  config,
		pending: make(map[string]*ledger.Ledger),
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue schedules l to be written for userID, replacing any snapshot
// still pending for that user. l must not be mutated afterwards.
func (p *SyncProcessor) Enqueue(userID string, l *ledger.Ledger) {
	if p.remote == nil || userID == "" || l == nil {
		return
	}
	p.pendingMu.Lock()
	p.pending[userID] = l
	p.pendingMu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of users with an unwritten snapshot.
func (p *SyncProcessor) Pending() int {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return len(p.pending)
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		log.FieldComponent, log.ComponentSync,
		"flush_interval", p.config.FlushInterval)

	return nil
}

// Stop gracefully stops the processor and waits for the final flush.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully", log.FieldComponent, log.ComponentSync)
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out", log.FieldComponent, log.ComponentSync)
		return ctx.Err()
	}
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop is the main processing loop
func (p *SyncProcessor) runLoop(ctx context.Context) {
	p.mu.Lock()
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()
	defer close(doneCh)

	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			// Detached from ctx so a cancelled parent still gets the last write out.
			p.Flush(context.WithoutCancel(ctx))
			return
		case <-ctx.Done():
			return
		case <-p.wake:
			p.Flush(ctx)
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush writes every pending snapshot now and returns how many writes
// succeeded.
func (p *SyncProcessor) Flush(ctx context.Context) int {
	p.pendingMu.Lock()
	batch := p.pending
	p.pending = make(map[string]*ledger.Ledger)
	p.pendingMu.Unlock()

	written := 0
	for userID, l := range batch {
		if err := p.write(ctx, userID, l); err != nil {
			slog.WarnContext(ctx, "Remote write failed",
				log.FieldComponent, log.ComponentSync,
				log.FieldUserID, userID,
				log.FieldError, err)
			continue
		}
		written++
	}
	if written > 0 {
		slog.DebugContext(ctx, "Remote snapshots written",
			log.FieldComponent, log.ComponentSync, "count", written)
	}
	return written
}

func (p *SyncProcessor) write(ctx context.Context, userID string, l *ledger.Ledger) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.WriteTimeout)
	defer cancel()
	if err := p.remote.Write(ctx, userID, l); err != nil {
		return fmt.Errorf("write snapshot for %s: %w", userID, err)
	}
	return nil
}
