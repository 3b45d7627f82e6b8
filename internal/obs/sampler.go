// Copyright 2025 James Ross
package obs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sample is one tick's worth of coordinator-side gauges.
type Sample struct {
	QueueDepth      int
	InFlight        int
	ActiveConsumers int
	Backpressure    float64
}

// StartMetricsSampler polls fetch on the given interval and publishes the
// result to the queue_depth/in_flight_tasks/active_consumers/backpressure
// gauges. fetch is a callback rather than a direct dependency on the
// coordinator package so obs stays a leaf package with no import back onto
// the domain it instruments.
func StartMetricsSampler(ctx context.Context, interval time.Duration, fetch func() Sample, log *zap.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := fetch()
				QueueDepth.Set(float64(s.QueueDepth))
				InFlightTasks.Set(float64(s.InFlight))
				ActiveConsumers.Set(float64(s.ActiveConsumers))
				Backpressure.Set(s.Backpressure)
				log.Debug("metrics sample",
					Int("queue_depth", s.QueueDepth),
					Int("in_flight", s.InFlight),
					Int("active_consumers", s.ActiveConsumers),
				)
			}
		}
	}()
}
