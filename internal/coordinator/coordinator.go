// Copyright 2025 James Ross
package coordinator

import (
	"fmt"
	"sync"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/backlog"
	"github.com/flyingrobots/go-log-distributor/internal/obs"
	"github.com/flyingrobots/go-log-distributor/internal/task"
	"go.uber.org/zap"
)

// Coordinator owns the backlog, in-flight table, payload store, and
// all-time counters behind a single coarse lock. The expected contention
// pattern — many short-held operations, no I/O under the lock — makes one
// mutex sufficient up to the throughput targets this system is built for.
type Coordinator struct {
	mu sync.Mutex

	log *zap.Logger

	backlog *backlog.Backlog
	// tasks is the persistent registry of every non-terminal task's
	// metadata (Retries, CreatedAt, ...), keyed by id. Entries survive a
	// requeue — only inFlight membership changes when a task moves between
	// the backlog and an assignment — so Retries and CreatedAt accumulate
	// correctly across repeated reassignment instead of resetting.
	tasks    map[string]*task.Task
	inFlight map[string]*task.Task
	payload  map[string]task.Record

	completed    int64
	failed       int64
	retriesTotal int64
	submitted    int64

	perConsumer map[string]*consumerCounters
	failures    *failureRing

	// lastSeen tracks the most recent get_work call per consumer id. The
	// coordinator never requires consumer registration, so "active
	// consumers" for the metrics feed is approximated as the count of ids
	// seen within activeWindow — a signal derived from traffic rather than
	// an explicit membership list.
	lastSeen     map[string]time.Time
	activeWindow time.Duration

	// debugDuplicates panics on a duplicate backlog insert instead of
	// logging and ignoring it. Only set in debug builds.
	debugDuplicates bool
}

type consumerCounters struct {
	processed int64
	failed    int64
}

// New returns an empty Coordinator ready to serve submit/get_work/status.
// activeWindow bounds how recently a consumer must have called get_work to
// count toward metrics()'s active_consumers.
func New(log *zap.Logger, activeWindow time.Duration, debugDuplicates bool) *Coordinator {
	return &Coordinator{
		log:             log,
		backlog:         backlog.New(),
		tasks:           make(map[string]*task.Task),
		inFlight:        make(map[string]*task.Task),
		payload:         make(map[string]task.Record),
		perConsumer:     make(map[string]*consumerCounters),
		failures:        newFailureRing(50),
		lastSeen:        make(map[string]time.Time),
		activeWindow:    activeWindow,
		debugDuplicates: debugDuplicates,
	}
}

// Submit places a new task at the backlog tail and stores its payload.
// Returns only after the placement invariant holds for the new task.
func (c *Coordinator) Submit(rec task.Record) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	tk := task.New()
	c.tasks[tk.ID] = tk
	c.payload[tk.ID] = rec
	if !c.backlog.PushTail(tk.ID) {
		// Never happens: New() ids are fresh uuids. Guard anyway so the
		// debug-build contract has somewhere to live.
		if c.debugDuplicates {
			panic(fmt.Sprintf("coordinator: duplicate task id %s on submit", tk.ID))
		}
		c.log.Error("duplicate task id on submit, dropping", obs.String("task_id", tk.ID))
	}
	c.submitted++
	return tk.ID
}

// GetWorkResult is what get_work hands back to a polling consumer.
type GetWorkResult struct {
	HasWork bool
	TaskID  string
	Payload task.Record
}

// GetWork pops the backlog head (if any), assigns it to consumerID, and
// moves it into the in-flight table. At-most-one consumer can hold any
// given task id between assignment and its next terminal or requeue event,
// because the pop-and-assign happens atomically under the coordinator lock.
func (c *Coordinator) GetWork(consumerID string) GetWorkResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSeen[consumerID] = time.Now()

	id, ok := c.backlog.PopHead()
	if !ok {
		return GetWorkResult{HasWork: false}
	}

	tk, ok := c.tasks[id]
	if !ok {
		// Never happens: every backlog id has a registry entry from Submit
		// (fresh) or CheckAndRequeue (retried). Guard anyway rather than
		// panic on an internal inconsistency.
		return GetWorkResult{HasWork: false}
	}
	tk.Assign(consumerID, time.Now())
	c.inFlight[id] = tk

	return GetWorkResult{HasWork: true, TaskID: id, Payload: c.payload[id]}
}

// Status applies a consumer's status report. IN_PROGRESS refreshes the
// heartbeat for the owning assignee only; COMPLETED/FAILED are idempotent
// terminal transitions — a second terminal report for the same id is a
// no-op, preserving at-least-once semantics without double counting.
func (c *Coordinator) Status(consumerID, taskID string, status task.State, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch status {
	case task.InProgress:
		if tk, ok := c.inFlight[taskID]; ok {
			tk.Heartbeat(consumerID, time.Now())
		}
		// Unknown or already-requeued/terminal task id: silent no-op.
	case task.Completed:
		c.terminal(taskID, consumerID, false, "")
	case task.Failed:
		c.terminal(taskID, consumerID, true, reason)
	}
}

// terminal removes the task from the in-flight table if still present and
// bumps counters, crediting the reporting consumer. Called with the lock
// held. A terminal report names the task id only, with no assignee
// condition: a late-but-genuine report from a consumer that held the task
// before a silent reassignment still finalizes it, the same as a report
// from whichever consumer currently holds it. If the task already reached
// a terminal state or was already requeued, this is a pure no-op on the
// coordinator side — the at-least-once tradeoff means the reporting
// consumer's own local counters (owned by the consumer runtime, not the
// coordinator) still reflect the work it did, but no coordinator counter
// moves twice for the same task id.
func (c *Coordinator) terminal(taskID, consumerID string, isFailure bool, reason string) {
	_, present := c.inFlight[taskID]
	if !present {
		return
	}
	delete(c.inFlight, taskID)
	delete(c.tasks, taskID)
	delete(c.payload, taskID)

	cc := c.counters(consumerID)
	if isFailure {
		c.failed++
		cc.failed++
		c.failures.add(taskID, reason)
	} else {
		c.completed++
		cc.processed++
	}
}

func (c *Coordinator) counters(consumerID string) *consumerCounters {
	cc, ok := c.perConsumer[consumerID]
	if !ok {
		cc = &consumerCounters{}
		c.perConsumer[consumerID] = cc
	}
	return cc
}
