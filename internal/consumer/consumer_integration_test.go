// Copyright 2025 James Ross
package consumer

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/config"
	"github.com/flyingrobots/go-log-distributor/internal/coordinator"
	"github.com/flyingrobots/go-log-distributor/internal/task"
	"github.com/flyingrobots/go-log-distributor/internal/transport/httpapi"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConsumerCompletesSubmittedTask(t *testing.T) {
	coord := coordinator.New(zap.NewNop(), 30*time.Second, false)
	srv := httpapi.NewServer(coord, zap.NewNop(), 0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	id := coord.Submit(task.NewRecord("hello", "info", "test", time.Time{}, nil))

	cfg := config.Consumer{
		CoordinatorURL:    ts.URL,
		Weight:            0.5,
		PollInterval:      5 * time.Millisecond,
		HeartbeatInterval: 20 * time.Millisecond,
		ProcessingDelay:   10 * time.Millisecond,
		RequestTimeout:    time.Second,
	}
	cbCfg := config.CircuitBreaker{FailureThreshold: 0.5, Window: time.Minute, CooldownPeriod: time.Second, MinSamples: 100}

	c := New(cfg, cbCfg, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return coord.Stats().Completed == 1
	}, 400*time.Millisecond, 5*time.Millisecond, "expected task %s to complete", id)

	cancel()
	<-done
}

func TestConsumerReportsFailureForFailMessage(t *testing.T) {
	coord := coordinator.New(zap.NewNop(), 30*time.Second, false)
	srv := httpapi.NewServer(coord, zap.NewNop(), 0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	coord.Submit(task.NewRecord("please fail this one", "info", "test", time.Time{}, nil))

	cfg := config.Consumer{
		CoordinatorURL:    ts.URL,
		Weight:            0.5,
		PollInterval:      5 * time.Millisecond,
		HeartbeatInterval: 20 * time.Millisecond,
		ProcessingDelay:   5 * time.Millisecond,
		RequestTimeout:    time.Second,
	}
	cbCfg := config.CircuitBreaker{FailureThreshold: 0.5, Window: time.Minute, CooldownPeriod: time.Second, MinSamples: 100}

	c := New(cfg, cbCfg, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return coord.Stats().Failed == 1
	}, 400*time.Millisecond, 5*time.Millisecond, "expected failing task to be reported FAILED")

	cancel()
	<-done
}
