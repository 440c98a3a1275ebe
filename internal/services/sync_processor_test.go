package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/ports"
)

// recordingRemote counts writes per user and can be told to fail.
type recordingRemote struct {
	mu     sync.Mutex
	writes map[string][]*ledger.Ledger
	fail   bool
}

func newRecordingRemote() *recordingRemote {
	return &recordingRemote{writes: make(map[string][]*ledger.Ledger)}
}

func (r *recordingRemote) Subscribe(context.Context, string, ports.SnapshotHandler) (ports.Unsubscribe, error) {
	return func() {}, nil
}

func (r *recordingRemote) Write(_ context.Context, userID string, l *ledger.Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("remote unavailable")
	}
	r.writes[userID] = append(r.writes[userID], l)
	return nil
}

func (r *recordingRemote) count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.writes[userID])
}

func TestNewSyncProcessor(t *testing.T) {
	processor := NewSyncProcessor(nil, SyncProcessorConfig{})

	if processor == nil {
		t.Fatal("NewSyncProcessor should return non-nil processor")
	}
	if processor.config != DefaultSyncProcessorConfig() {
		t.Errorf("zero config should take defaults, got %+v", processor.config)
	}
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.FlushInterval != 2*time.Second {
		t.Errorf("expected FlushInterval 2s, got %v", config.FlushInterval)
	}
	if config.WriteTimeout != 10*time.Second {
		t.Errorf("expected WriteTimeout 10s, got %v", config.WriteTimeout)
	}
}

func TestSyncProcessorConfig_CustomValues(t *testing.T) {
	config := SyncProcessorConfig{
		FlushInterval: 5 * time.Second,
		WriteTimeout:  time.Second,
	}

	processor := NewSyncProcessor(nil, config)

	if processor.config.FlushInterval != 5*time.Second {
		t.Errorf("expected custom FlushInterval 5s, got %v", processor.config.FlushInterval)
	}
	if processor.config.WriteTimeout != time.Second {
		t.Errorf("expected custom WriteTimeout 1s, got %v", processor.config.WriteTimeout)
	}
}

func TestSyncProcessor_IsRunning(t *testing.T) {
	processor := NewSyncProcessor(newRecordingRemote(), DefaultSyncProcessorConfig())

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_StartTwice(t *testing.T) {
	processor := NewSyncProcessor(newRecordingRemote(), DefaultSyncProcessorConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	defer processor.Stop(ctx)

	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(newRecordingRemote(), DefaultSyncProcessorConfig())

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestSyncProcessor_EnqueueCoalesces(t *testing.T) {
	remote := newRecordingRemote()
	processor := NewSyncProcessor(remote, DefaultSyncProcessorConfig())

	first, second := ledger.New(), ledger.New()
	if _, err := second.CreateCategory(core.MonthlyPeriod(march), "Latest", core.AmountFromInt(1)); err != nil {
		t.Fatal(err)
	}
	processor.Enqueue("alice", first)
	processor.Enqueue("alice", second)
	processor.Enqueue("bob", ledger.New())
	processor.Enqueue("", ledger.New())

	if got := processor.Pending(); got != 2 {
		t.Fatalf("expected 2 pending users, got %d", got)
	}
	if got := processor.Flush(context.Background()); got != 2 {
		t.Errorf("expected 2 writes, got %d", got)
	}
	if remote.count("alice") != 1 {
		t.Fatalf("expected one write for alice, got %d", remote.count("alice"))
	}
	if cats := remote.writes["alice"][0].Categories(core.MonthlyPeriod(march)); len(cats) != 1 || cats[0].Name != "Latest" {
		t.Errorf("expected latest snapshot, got %+v", cats)
	}
	if processor.Pending() != 0 {
		t.Error("flush should drain pending snapshots")
	}
}

func TestSyncProcessor_FailedWriteIsDropped(t *testing.T) {
	remote := newRecordingRemote()
	remote.fail = true
	processor := NewSyncProcessor(remote, DefaultSyncProcessorConfig())

	processor.Enqueue("alice", ledger.New())
	if got := processor.Flush(context.Background()); got != 0 {
		t.Errorf("expected no successful write, got %d", got)
	}
	if processor.Pending() != 0 {
		t.Error("failed writes are not retried")
	}
}

func TestSyncProcessor_NilRemoteIgnoresEnqueue(t *testing.T) {
	processor := NewSyncProcessor(nil, DefaultSyncProcessorConfig())
	processor.Enqueue("alice", ledger.New())
	if processor.Pending() != 0 {
		t.Error("expected nothing pending without a remote")
	}
}

func TestSyncProcessor_RunLoopWritesAndFlushesOnStop(t *testing.T) {
	remote := newRecordingRemote()
	processor := NewSyncProcessor(remote, SyncProcessorConfig{FlushInterval: time.Hour})

	ctx := context.Background()
	if err := processor.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	processor.Enqueue("alice", ledger.New())
	deadline := time.Now().Add(2 * time.Second)
	for remote.count("alice") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if remote.count("alice") != 1 {
		t.Fatalf("expected enqueue to wake the loop, got %d writes", remote.count("alice"))
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	processor.Enqueue("bob", ledger.New())
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if remote.count("bob") != 1 {
		t.Errorf("expected pending snapshot to be flushed on stop, got %d", remote.count("bob"))
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after stop")
	}
}
