// Copyright 2025 James Ross
package monitor

import (
	"context"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/coordinator"
	"github.com/flyingrobots/go-log-distributor/internal/obs"
	"go.uber.org/zap"
)

// Monitor periodically scans the coordinator's in-flight table for tasks
// whose heartbeat has expired and requeues or fails them. Grounded on
// reaper.Reaper's ticker-and-scan shape: each tick snapshots the ids to
// check, then re-validates every one under the coordinator's lock.
type Monitor struct {
	coord      *coordinator.Coordinator
	interval   time.Duration
	timeout    time.Duration
	maxRetries int
	log        *zap.Logger
}

func New(coord *coordinator.Coordinator, interval, timeout time.Duration, maxRetries int, log *zap.Logger) *Monitor {
	return &Monitor{coord: coord, interval: interval, timeout: timeout, maxRetries: maxRetries, log: log}
}

// Run blocks, scanning on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.scanOnce()
		}
	}
}

func (m *Monitor) scanOnce() {
	for _, id := range m.coord.SnapshotInFlightIDs() {
		switch m.coord.CheckAndRequeue(id, m.timeout, m.maxRetries) {
		case coordinator.Requeued:
			obs.TasksRetried.Inc()
			obs.MonitorRecovered.Inc()
			m.log.Warn("requeued task after heartbeat timeout", obs.String("task_id", id))
		case coordinator.Exhausted:
			obs.TasksFailed.Inc()
			m.log.Warn("task exhausted retries, marked failed", obs.String("task_id", id))
		case coordinator.NotExpired:
			// nothing to do
		}
	}
}
