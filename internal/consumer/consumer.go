// Copyright 2025 James Ross
package consumer

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/breaker"
	"github.com/flyingrobots/go-log-distributor/internal/config"
	"github.com/flyingrobots/go-log-distributor/internal/obs"
	"github.com/flyingrobots/go-log-distributor/internal/task"
	"github.com/flyingrobots/go-log-distributor/internal/transport/httpapi"
	"go.uber.org/zap"
)

// Concurrency converts a [0.05, 1.0] weight into a worker pool size:
// max(1, floor(weight*10)).
func Concurrency(weight float64) int {
	n := int(math.Floor(weight * 10))
	if n < 1 {
		n = 1
	}
	return n
}

// Consumer runs one polling runtime: it pulls work from the coordinator
// (see Run for when it waits poll_interval), bounds in-flight processing to
// Concurrency(weight), sends periodic heartbeats for whatever it is
// currently processing, and reports terminal status exactly once per task.
// get_work calls to the coordinator are gated by a circuit breaker so a
// struggling coordinator doesn't pile up blocked goroutines on this side;
// status reports are sent whatever the breaker's state.
type Consumer struct {
	id     string
	client *httpapi.Client
	cb     *breaker.CircuitBreaker
	cfg    config.Consumer
	log    *zap.Logger

	sem chan struct{}

	mu        sync.Mutex
	processed int64
	failed    int64
}

// New returns a Consumer with a fresh, host-qualified id.
func New(cfg config.Consumer, cbCfg config.CircuitBreaker, log *zap.Logger) *Consumer {
	host, _ := os.Hostname()
	id := fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
	concurrency := Concurrency(cfg.Weight)
	return &Consumer{
		id:     id,
		client: httpapi.NewClient(cfg.CoordinatorURL, cfg.RequestTimeout),
		cb:     breaker.New(cbCfg.Window, cbCfg.CooldownPeriod, cbCfg.FailureThreshold, cbCfg.MinSamples),
		cfg:    cfg,
		log:    log.With(obs.String("consumer_id", id)),
		sem:    make(chan struct{}, concurrency),
	}
}

// ID returns the consumer's assigned identity, as reported to the
// coordinator on every get_work/status call.
func (c *Consumer) ID() string { return c.id }

// Run polls until ctx is cancelled, processing tasks with bounded
// concurrency. It returns when ctx is done and in-flight tasks have
// finished their current step.
//
// A consumer with a free slot pulls again immediately after a successful
// dispatch, with no sleep — poll_interval only throttles the idle and
// saturated cases (empty backlog, all slots busy, a failed get_work call,
// or a breaker-tripped coordinator). This is what makes concurrency, not polling frequency,
// the knob that sets each consumer's share of the work: a consumer with
// more slots free simply completes more pull/dispatch cycles per second.
func (c *Consumer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go c.reportBreakerState(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !c.cb.Allow() {
			if !sleepCtx(ctx, c.cfg.PollInterval) {
				return nil
			}
			continue
		}

		select {
		case c.sem <- struct{}{}:
		default:
			// Saturated: every slot is busy, wait for poll_interval before
			// checking again rather than spinning.
			if !sleepCtx(ctx, c.cfg.PollInterval) {
				return nil
			}
			continue
		}

		work, err := c.client.GetWork(ctx, c.id)
		if err != nil {
			c.log.Warn("get_work failed", obs.Err(err))
			c.cb.Record(false)
			<-c.sem
			if !sleepCtx(ctx, c.cfg.PollInterval) {
				return nil
			}
			continue
		}
		c.cb.Record(true)
		if !work.HasWork {
			<-c.sem
			if !sleepCtx(ctx, c.cfg.PollInterval) {
				return nil
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-c.sem }()
			c.process(ctx, work.TaskID, work.Payload)
		}()
		// Dispatched with a slot to spare: loop back to step 1 immediately.
	}
}

// sleepCtx sleeps d, returning early with false if ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (c *Consumer) process(ctx context.Context, taskID string, rec task.Record) {
	ctx, span := obs.ContextWithTaskSpan(ctx, "consumer", taskID, 0)
	defer span.End()

	start := time.Now()
	c.heartbeatWhileProcessing(ctx, taskID, c.cfg.ProcessingDelay)
	obs.TaskProcessingDuration.Observe(time.Since(start).Seconds())

	success := !strings.Contains(strings.ToLower(rec.Message), "fail")
	if ctx.Err() != nil {
		success = false
	}

	c.mu.Lock()
	if success {
		c.processed++
	} else {
		c.failed++
	}
	c.mu.Unlock()

	status := task.Completed
	reason := ""
	if !success {
		status = task.Failed
		reason = "simulated failure"
	}

	if err := c.client.Status(ctx, c.id, taskID, status, reason); err != nil {
		c.log.Warn("status report failed", obs.String("task_id", taskID), obs.Err(err))
		obs.RecordError(ctx, err)
		return
	}
	obs.SetSpanSuccess(ctx)
}

// heartbeatWhileProcessing sends an initial heartbeat, then simulates work
// for delay, sending a further heartbeat at heartbeat_interval so the
// coordinator doesn't requeue the task out from under it.
func (c *Consumer) heartbeatWhileProcessing(ctx context.Context, taskID string, delay time.Duration) {
	if err := c.client.Status(ctx, c.id, taskID, task.InProgress, ""); err != nil {
		c.log.Debug("heartbeat failed", obs.String("task_id", taskID), obs.Err(err))
	}
	if delay <= 0 {
		return
	}
	hbInterval := c.cfg.HeartbeatInterval
	if hbInterval <= 0 || hbInterval > delay {
		hbInterval = delay
	}

	deadline := time.Now().Add(delay)
	ticker := time.NewTicker(hbInterval)
	defer ticker.Stop()

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.client.Status(ctx, c.id, taskID, task.InProgress, ""); err != nil {
				c.log.Debug("heartbeat failed", obs.String("task_id", taskID), obs.Err(err))
			}
		case <-time.After(remaining):
			return
		}
	}
}

func (c *Consumer) reportBreakerState(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	prev := breaker.Closed
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := c.cb.State()
			switch state {
			case breaker.Closed:
				obs.CircuitBreakerState.Set(0)
			case breaker.HalfOpen:
				obs.CircuitBreakerState.Set(1)
			case breaker.Open:
				obs.CircuitBreakerState.Set(2)
			}
			if prev != state && state == breaker.Open {
				obs.CircuitBreakerTrips.Inc()
			}
			prev = state
		}
	}
}

// Counters returns this consumer's local processed/failed tallies, used
// by the pool to archive a retired consumer's contribution.
func (c *Consumer) Counters() (processed, failed int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processed, c.failed
}
