// Copyright 2025 James Ross
package pool

import (
	"context"
	"sync"

	"github.com/flyingrobots/go-log-distributor/internal/config"
	"github.com/flyingrobots/go-log-distributor/internal/consumer"
	"github.com/flyingrobots/go-log-distributor/internal/obs"
	"go.uber.org/zap"
)

type member struct {
	c      *consumer.Consumer
	cancel context.CancelFunc
	done   chan struct{}
}

// Pool owns a set of running consumer runtimes and the all-time counters
// of everyone the autoscaler has ever retired. It does not decide when to
// scale; Autoscaler drives Spawn/Retire from the coordinator's metrics
// feed.
type Pool struct {
	mu      sync.Mutex
	members []*member // order of addition; last element is most recently spawned

	cfg   config.Consumer
	cbCfg config.CircuitBreaker
	log   *zap.Logger

	archivedProcessed int64
	archivedFailed    int64
}

func New(cfg config.Consumer, cbCfg config.CircuitBreaker, log *zap.Logger) *Pool {
	return &Pool{cfg: cfg, cbCfg: cbCfg, log: log}
}

// Size returns the current number of running consumers.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.members)
}

// Spawn starts one new consumer runtime and adds it to the pool.
func (p *Pool) Spawn(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := consumer.New(p.cfg, p.cbCfg, p.log)
	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Run(cctx); err != nil {
			p.log.Warn("consumer runtime exited with error", obs.String("consumer_id", c.ID()), obs.Err(err))
		}
	}()

	p.members = append(p.members, &member{c: c, cancel: cancel, done: done})
	obs.ConsumerPoolSize.Set(float64(len(p.members)))
	p.log.Info("consumer spawned", obs.String("consumer_id", c.ID()), obs.Int("pool_size", len(p.members)))
}

// Retire stops the n most recently spawned consumers (LIFO), archiving
// their local processed/failed counters before dropping them. It never
// retires below minSize.
func (p *Pool) Retire(n, minSize int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < n && len(p.members) > minSize; i++ {
		last := len(p.members) - 1
		m := p.members[last]
		p.members = p.members[:last]

		m.cancel()
		<-m.done

		processed, failed := m.c.Counters()
		p.archivedProcessed += processed
		p.archivedFailed += failed

		p.log.Info("consumer retired", obs.String("consumer_id", m.c.ID()), obs.Int("pool_size", len(p.members)))
	}
	obs.ConsumerPoolSize.Set(float64(len(p.members)))
}

// StopAll retires every consumer, for shutdown.
func (p *Pool) StopAll() {
	p.Retire(len(p.members), 0)
}

// ArchivedCounters returns the summed processed/failed counts of every
// consumer the pool has ever retired. Combined with each live consumer's
// own counters, this preserves the stats-never-shrink invariant across
// scale-down events.
func (p *Pool) ArchivedCounters() (processed, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.archivedProcessed, p.archivedFailed
}
