package task

import (
	"testing"
	"time"
)

func TestNewIsQueuedWithID(t *testing.T) {
	tk := New()
	if tk.State != Queued {
		t.Fatalf("expected Queued, got %s", tk.State)
	}
	if tk.ID == "" {
		t.Fatal("expected non-empty id")
	}
	if tk.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestAssignThenHeartbeat(t *testing.T) {
	tk := New()
	now := time.Now()
	tk.Assign("c1", now)
	if tk.State != InProgress || tk.Assignee != "c1" {
		t.Fatalf("unexpected state after assign: %+v", tk)
	}

	later := now.Add(time.Second)
	if !tk.Heartbeat("c1", later) {
		t.Fatal("expected heartbeat from owning consumer to succeed")
	}
	if !tk.LastHeartbeat.Equal(later) {
		t.Fatalf("expected last_heartbeat updated to %v, got %v", later, tk.LastHeartbeat)
	}

	if tk.Heartbeat("c2", later.Add(time.Second)) {
		t.Fatal("expected heartbeat from a non-owning consumer to be rejected")
	}
}

func TestExpired(t *testing.T) {
	tk := New()
	now := time.Now()
	tk.Assign("c1", now)
	if tk.Expired(now.Add(10*time.Second), 30*time.Second) {
		t.Fatal("should not be expired before timeout")
	}
	if !tk.Expired(now.Add(31*time.Second), 30*time.Second) {
		t.Fatal("should be expired after timeout")
	}
}

func TestRequeuePreservesIdentityIncrementsRetries(t *testing.T) {
	tk := New()
	id := tk.ID
	tk.Assign("c1", time.Now())
	tk.Requeue()
	if tk.ID != id {
		t.Fatal("requeue must preserve task identity")
	}
	if tk.Retries != 1 {
		t.Fatalf("expected retries=1, got %d", tk.Retries)
	}
	if tk.State != Queued || tk.Assignee != "" {
		t.Fatalf("requeue should reset to QUEUED with no assignee, got %+v", tk)
	}
}
