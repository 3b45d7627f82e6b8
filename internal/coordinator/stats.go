// Copyright 2025 James Ross
package coordinator

import "time"

// ConsumerStats is one consumer's all-time processed/failed counts, as
// last reported via status().
type ConsumerStats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// StatsSnapshot answers stats(). Each field is individually consistent;
// there is no cross-field atomicity guarantee across the snapshot as a whole.
type StatsSnapshot struct {
	QueueDepth   int                      `json:"queue_depth"`
	InFlight     int                      `json:"in_flight"`
	Completed    int64                    `json:"completed"`
	Failed       int64                    `json:"failed"`
	Retries      int64                    `json:"retries"`
	Submitted    int64                    `json:"submitted"`
	PerConsumer  map[string]ConsumerStats `json:"per_consumer"`
	RecentErrors []FailureRecord          `json:"recent_errors,omitempty"`
}

// Stats returns a read-only snapshot of coordinator-side counters.
func (c *Coordinator) Stats() StatsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	per := make(map[string]ConsumerStats, len(c.perConsumer))
	for id, cc := range c.perConsumer {
		per[id] = ConsumerStats{Processed: cc.processed, Failed: cc.failed}
	}

	return StatsSnapshot{
		QueueDepth:   c.backlog.Len(),
		InFlight:     len(c.inFlight),
		Completed:    c.completed,
		Failed:       c.failed,
		Retries:      c.retriesTotal,
		Submitted:    c.submitted,
		PerConsumer:  per,
		RecentErrors: c.failures.snapshot(),
	}
}

// MetricsSnapshot answers metrics(), the feed for the autoscaler.
type MetricsSnapshot struct {
	QueueDepth      int     `json:"queue_depth"`
	InFlight        int     `json:"in_flight"`
	ActiveConsumers int     `json:"active_consumers"`
	Backpressure    float64 `json:"backpressure"`
}

// Metrics computes backpressure = queue_depth / max(1, active_consumers).
// active_consumers counts distinct consumer ids seen via get_work within
// the coordinator's activeWindow — the coordinator never requires
// registration, so this is the closest honest signal it can offer.
func (c *Coordinator) Metrics() MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	depth := c.backlog.Len()
	inFlight := len(c.inFlight)

	now := time.Now()
	active := 0
	for _, seen := range c.lastSeen {
		if now.Sub(seen) <= c.activeWindow {
			active++
		}
	}

	denom := active
	if denom < 1 {
		denom = 1
	}
	return MetricsSnapshot{
		QueueDepth:      depth,
		InFlight:        inFlight,
		ActiveConsumers: active,
		Backpressure:    float64(depth) / float64(denom),
	}
}
