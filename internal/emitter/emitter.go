// Copyright 2025 James Ross
package emitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/flyingrobots/go-log-distributor/internal/config"
	"github.com/flyingrobots/go-log-distributor/internal/obs"
	"github.com/flyingrobots/go-log-distributor/internal/task"
	"github.com/flyingrobots/go-log-distributor/internal/transport/httpapi"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Emitter is a thin demo CLI: it walks a directory tree and submits one
// task per matched file, rate limited to simulate a real log-producing
// workload. It is not part of the coordinator/consumer core; it exists to
// exercise submit() without a second real system on hand.
type Emitter struct {
	cfg     config.Emitter
	client  *httpapi.Client
	log     *zap.Logger
	limiter *rate.Limiter
}

func New(cfg config.Emitter, client *httpapi.Client, log *zap.Logger) *Emitter {
	var limiter *rate.Limiter
	if cfg.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitPerSec)
	}
	return &Emitter{cfg: cfg, client: client, log: log, limiter: limiter}
}

// Run walks cfg.ScanDir once, submitting a task per matched file, and
// returns when the walk completes or ctx is cancelled.
func (e *Emitter) Run(ctx context.Context) error {
	root := e.cfg.ScanDir
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve scan_dir: %w", err)
	}

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if !e.matches(rel) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		abs := filepath.Join(absRoot, rel)
		fi, statErr := os.Stat(path)
		var size int64
		if statErr == nil {
			size = fi.Size()
		}

		rec := task.Record{
			Message: fmt.Sprintf("file observed: %s", rel),
			Level:   "info",
			Source:  e.cfg.Source,
			Metadata: map[string]any{
				"path": abs,
				"size": size,
			},
		}

		id, err := e.client.Submit(ctx, rec)
		if err != nil {
			e.log.Warn("submit failed", obs.String("path", abs), obs.Err(err))
			return nil
		}
		e.log.Info("submitted task", obs.String("task_id", id), obs.String("path", abs))
		return nil
	})
}

func (e *Emitter) matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	include := len(e.cfg.IncludeGlobs) == 0
	for _, g := range e.cfg.IncludeGlobs {
		if ok, _ := doublestar.Match(g, rel); ok {
			include = true
			break
		}
	}
	if !include {
		return false
	}
	for _, g := range e.cfg.ExcludeGlobs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return false
		}
	}
	return true
}
