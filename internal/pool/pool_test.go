// Copyright 2025 James Ross
package pool

import (
	"context"
	"testing"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/config"
	"go.uber.org/zap"
)

func TestSpawnAndRetireRespectsMinSize(t *testing.T) {
	p := New(testConsumerConfig(), testCBConfig(), zap.NewNop())
	defer p.StopAll()

	p.Spawn(context.Background())
	p.Spawn(context.Background())
	p.Spawn(context.Background())

	if got := p.Size(); got != 3 {
		t.Fatalf("expected pool size 3, got %d", got)
	}

	p.Retire(5, 1)
	if got := p.Size(); got != 1 {
		t.Fatalf("expected retire to stop at min_size=1, got %d", got)
	}
}

func TestRetireArchivesCounters(t *testing.T) {
	p := New(testConsumerConfig(), testCBConfig(), zap.NewNop())
	p.Spawn(context.Background())
	p.Spawn(context.Background())

	p.Retire(1, 0)
	time.Sleep(5 * time.Millisecond)

	before, beforeF := p.ArchivedCounters()
	p.Retire(1, 0)
	after, afterF := p.ArchivedCounters()

	if after < before || afterF < beforeF {
		t.Fatalf("expected archived counters to be monotonically non-decreasing, got before=(%d,%d) after=(%d,%d)", before, beforeF, after, afterF)
	}
	if p.Size() != 0 {
		t.Fatalf("expected empty pool after retiring both members, got %d", p.Size())
	}
}

func testCBConfig() config.CircuitBreaker {
	return config.CircuitBreaker{
		FailureThreshold: 0.5,
		Window:           time.Minute,
		CooldownPeriod:   time.Second,
		MinSamples:       1000,
	}
}
