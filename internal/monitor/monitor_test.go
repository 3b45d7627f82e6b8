// Copyright 2025 James Ross
package monitor

import (
	"testing"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/coordinator"
	"github.com/flyingrobots/go-log-distributor/internal/task"
	"go.uber.org/zap"
)

const testTimeout = 15 * time.Millisecond

func TestScanOnceRequeuesExpiredTask(t *testing.T) {
	coord := coordinator.New(zap.NewNop(), 30*time.Second, false)
	coord.Submit(task.NewRecord("x", "info", "test", time.Time{}, nil))
	coord.GetWork("c1")

	time.Sleep(2 * testTimeout)

	m := New(coord, time.Hour, testTimeout, 3, zap.NewNop())
	m.scanOnce()

	stats := coord.Stats()
	if stats.QueueDepth != 1 || stats.InFlight != 0 || stats.Retries != 1 {
		t.Fatalf("expected task requeued once, got %+v", stats)
	}
}

func TestScanOnceFailsTaskAfterMaxRetries(t *testing.T) {
	coord := coordinator.New(zap.NewNop(), 30*time.Second, false)
	coord.Submit(task.NewRecord("x", "info", "test", time.Time{}, nil))

	m := New(coord, time.Hour, testTimeout, 1, zap.NewNop())
	for i := 0; i < 2; i++ {
		coord.GetWork("c1")
		time.Sleep(2 * testTimeout)
		m.scanOnce()
	}

	stats := coord.Stats()
	if stats.Failed != 1 || stats.QueueDepth != 0 || stats.InFlight != 0 {
		t.Fatalf("expected task failed after exhausting retries, got %+v", stats)
	}
}

func TestScanOnceIgnoresFreshTask(t *testing.T) {
	coord := coordinator.New(zap.NewNop(), 30*time.Second, false)
	coord.Submit(task.NewRecord("x", "info", "test", time.Time{}, nil))
	coord.GetWork("c1")

	m := New(coord, time.Hour, time.Minute, 3, zap.NewNop())
	m.scanOnce()

	stats := coord.Stats()
	if stats.InFlight != 1 || stats.Retries != 0 {
		t.Fatalf("expected fresh task left alone, got %+v", stats)
	}
}
