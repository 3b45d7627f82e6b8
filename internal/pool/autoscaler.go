// Copyright 2025 James Ross
package pool

import (
	"context"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/config"
	"github.com/flyingrobots/go-log-distributor/internal/obs"
	"go.uber.org/zap"
)

// Autoscaler drives Pool.Spawn/Retire from a backpressure signal using a
// threshold + cooldown + hysteresis control loop: no queueing-theory
// forecasting, just "is backpressure above/below a line, and has enough
// time passed since the last move." This keeps scale decisions exactly
// reproducible from a given backpressure trace.
type Autoscaler struct {
	pool  *Pool
	cfg   config.Pool
	fetch func(context.Context) (float64, error)
	log   *zap.Logger

	lastAction time.Time
}

// NewAutoscaler builds an Autoscaler. fetch returns the coordinator's
// current backpressure (queue_depth / max(1, active_consumers)).
func NewAutoscaler(p *Pool, cfg config.Pool, fetch func(context.Context) (float64, error), log *zap.Logger) *Autoscaler {
	return &Autoscaler{pool: p, cfg: cfg, fetch: fetch, log: log}
}

// Run evaluates backpressure every eval_interval until ctx is cancelled.
func (a *Autoscaler) Run(ctx context.Context) {
	for a.pool.Size() < a.cfg.MinSize {
		a.pool.Spawn(ctx)
	}

	ticker := time.NewTicker(a.cfg.EvalInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.evaluate(ctx)
		}
	}
}

func (a *Autoscaler) evaluate(ctx context.Context) {
	backpressure, err := a.fetch(ctx)
	if err != nil {
		a.log.Warn("autoscaler metrics fetch failed", obs.Err(err))
		return
	}

	if time.Since(a.lastAction) < a.cfg.Cooldown {
		return
	}

	size := a.pool.Size()
	switch {
	case backpressure >= a.cfg.ScaleUpThreshold && size < a.cfg.MaxSize:
		target := size + a.cfg.ScaleUpStep
		if target > a.cfg.MaxSize {
			target = a.cfg.MaxSize
		}
		for a.pool.Size() < target {
			a.pool.Spawn(ctx)
		}
		obs.AutoscalerScaleUps.Inc()
		a.lastAction = time.Now()
		a.log.Info("autoscaler scaled up", obs.Int("pool_size", a.pool.Size()), zap.Float64("backpressure", backpressure))

	case backpressure <= a.cfg.ScaleDownThreshold && size > a.cfg.MinSize:
		a.pool.Retire(a.cfg.ScaleDownStep, a.cfg.MinSize)
		obs.AutoscalerScaleDowns.Inc()
		a.lastAction = time.Now()
		a.log.Info("autoscaler scaled down", obs.Int("pool_size", a.pool.Size()), zap.Float64("backpressure", backpressure))
	}
}
