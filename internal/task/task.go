// Copyright 2025 James Ross
package task

import (
	"time"

	"github.com/google/uuid"
)

// State is one of the four lifecycle states a Task moves through.
type State string

const (
	Queued     State = "QUEUED"
	InProgress State = "IN_PROGRESS"
	Completed  State = "COMPLETED"
	Failed     State = "FAILED"
)

// Task is the coordinator's handle on one unit of work. It never carries
// the payload itself; that lives in the payload store keyed by ID so the
// backlog stays light.
type Task struct {
	ID            string
	State         State
	Assignee      string
	AssignedAt    time.Time
	LastHeartbeat time.Time
	Retries       int
	CreatedAt     time.Time
}

// New creates a Task in state QUEUED, ready for backlog insertion.
func New() *Task {
	return &Task{
		ID:        uuid.NewString(),
		State:     Queued,
		CreatedAt: time.Now().UTC(),
	}
}

// Assign transitions the task to IN_PROGRESS under the given assignee,
// stamping assigned_at and last_heartbeat to now.
func (t *Task) Assign(consumerID string, now time.Time) {
	t.State = InProgress
	t.Assignee = consumerID
	t.AssignedAt = now
	t.LastHeartbeat = now
}

// Heartbeat refreshes last_heartbeat if the reporting consumer still owns
// the task. Returns false if the update was dropped as stale.
func (t *Task) Heartbeat(consumerID string, now time.Time) bool {
	if t.Assignee != consumerID {
		return false
	}
	t.LastHeartbeat = now
	return true
}

// Expired reports whether the task has gone quiet longer than timeout.
func (t *Task) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(t.LastHeartbeat) > timeout
}

// Requeue resets a timed-out task back to QUEUED, incrementing retries.
func (t *Task) Requeue() {
	t.State = Queued
	t.Assignee = ""
	t.AssignedAt = time.Time{}
	t.LastHeartbeat = time.Time{}
	t.Retries++
}
