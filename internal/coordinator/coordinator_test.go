package coordinator

import (
	"testing"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/task"
	"go.uber.org/zap"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	return New(zap.NewNop(), 30*time.Second, false)
}

func rec(msg string) task.Record {
	return task.NewRecord(msg, "info", "test", time.Time{}, nil)
}

func TestSubmitThenGetWorkAssignsExactlyOnce(t *testing.T) {
	c := newTestCoordinator(t)
	id := c.Submit(rec("hello"))

	r1 := c.GetWork("consumer-a")
	if !r1.HasWork || r1.TaskID != id {
		t.Fatalf("expected task %s to be assigned, got %+v", id, r1)
	}

	r2 := c.GetWork("consumer-b")
	if r2.HasWork {
		t.Fatalf("expected no more work, got %+v", r2)
	}

	stats := c.Stats()
	if stats.QueueDepth != 0 || stats.InFlight != 1 {
		t.Fatalf("expected queue_depth=0 in_flight=1, got %+v", stats)
	}
}

func TestStatusCompletedIsIdempotent(t *testing.T) {
	c := newTestCoordinator(t)
	id := c.Submit(rec("x"))
	c.GetWork("c1")

	c.Status("c1", id, task.Completed, "")
	c.Status("c1", id, task.Completed, "")

	stats := c.Stats()
	if stats.Completed != 1 {
		t.Fatalf("expected completed=1 after duplicate terminal report, got %d", stats.Completed)
	}
	if stats.InFlight != 0 || stats.QueueDepth != 0 {
		t.Fatalf("expected task fully drained, got %+v", stats)
	}
}

func TestStaleHeartbeatFromNonOwnerIsDropped(t *testing.T) {
	c := newTestCoordinator(t)
	id := c.Submit(rec("x"))
	c.GetWork("c1")

	// A status update from a consumer that never owned the task is a no-op.
	c.Status("ghost", id, task.InProgress, "")

	tk := c.inFlight[id]
	if tk.Assignee != "c1" {
		t.Fatalf("expected assignee unchanged, got %q", tk.Assignee)
	}
}

func TestRequeueAfterTimeoutGoesToHeadWithIncrementedRetries(t *testing.T) {
	c := newTestCoordinator(t)
	id := c.Submit(rec("x"))
	c.GetWork("c1")

	// Force expiry by back-dating the heartbeat.
	c.mu.Lock()
	c.inFlight[id].LastHeartbeat = time.Now().Add(-time.Hour)
	c.mu.Unlock()

	outcome := c.CheckAndRequeue(id, 30*time.Second, 3)
	if outcome != Requeued {
		t.Fatalf("expected Requeued, got %v", outcome)
	}

	stats := c.Stats()
	if stats.QueueDepth != 1 || stats.InFlight != 0 || stats.Retries != 1 {
		t.Fatalf("unexpected stats after requeue: %+v", stats)
	}

	// Requeued task is delivered before any fresh submission.
	fresh := c.Submit(rec("fresh"))
	r := c.GetWork("c2")
	if r.TaskID != id {
		t.Fatalf("expected retried task %s to be delivered ahead of fresh task %s, got %s", id, fresh, r.TaskID)
	}
}

func TestMaxRetriesExhaustedMovesToFailed(t *testing.T) {
	c := newTestCoordinator(t)
	id := c.Submit(rec("x"))

	// max_retries=3 allows three requeues; the fourth timeout exhausts it.
	for i := 0; i < 4; i++ {
		c.GetWork("c1")
		c.mu.Lock()
		c.inFlight[id].LastHeartbeat = time.Now().Add(-time.Hour)
		c.mu.Unlock()
		outcome := c.CheckAndRequeue(id, 30*time.Second, 3)
		if i < 3 {
			if outcome != Requeued {
				t.Fatalf("iteration %d: expected Requeued, got %v", i, outcome)
			}
		} else {
			if outcome != Exhausted {
				t.Fatalf("iteration %d: expected Exhausted, got %v", i, outcome)
			}
		}
	}

	stats := c.Stats()
	if stats.Completed != 0 || stats.Failed != 1 {
		t.Fatalf("expected completed=0 failed=1, got %+v", stats)
	}
	if _, ok := c.payload[id]; ok {
		t.Fatal("expected payload dropped after retry exhaustion")
	}
}

func TestAccountingInvariant(t *testing.T) {
	c := newTestCoordinator(t)
	ids := make([]string, 5)
	for i := range ids {
		ids[i] = c.Submit(rec("x"))
	}

	// Two complete, one fails terminally, two stay queued.
	for i := 0; i < 3; i++ {
		c.GetWork("c1")
	}
	stats := c.Stats()
	inFlightIDs := make([]string, 0)
	for id := range c.inFlight {
		inFlightIDs = append(inFlightIDs, id)
	}
	c.Status("c1", inFlightIDs[0], task.Completed, "")
	c.Status("c1", inFlightIDs[1], task.Completed, "")
	c.Status("c1", inFlightIDs[2], task.Failed, "boom")

	stats = c.Stats()
	emitted := stats.Completed + stats.Failed + int64(stats.QueueDepth) + int64(stats.InFlight)
	if emitted != 5 {
		t.Fatalf("accounting invariant violated: emitted=%d want 5 (stats=%+v)", emitted, stats)
	}
}
