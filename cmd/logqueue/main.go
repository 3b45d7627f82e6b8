// Copyright 2025 James Ross
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/config"
	"github.com/flyingrobots/go-log-distributor/internal/consumer"
	"github.com/flyingrobots/go-log-distributor/internal/coordinator"
	"github.com/flyingrobots/go-log-distributor/internal/emitter"
	"github.com/flyingrobots/go-log-distributor/internal/monitor"
	"github.com/flyingrobots/go-log-distributor/internal/obs"
	"github.com/flyingrobots/go-log-distributor/internal/pool"
	"github.com/flyingrobots/go-log-distributor/internal/transport/httpapi"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	var role, configPath, adminCmd string
	var showVersion bool
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&role, "role", "all", "Role to run: coordinator|consumer|emitter|all|admin")
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.StringVar(&adminCmd, "admin-cmd", "stats", "Admin command: stats|metrics")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if role == "admin" {
		runAdmin(cfg, logger, adminCmd)
		return
	}

	tp, err := obs.MaybeInitTracing(cfg)
	if err != nil {
		logger.Warn("tracing init failed", obs.Err(err))
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", obs.String("signal", sig.String()))
		cancel()
		select {
		case sig2 := <-sigCh:
			logger.Warn("second signal received, exiting immediately", obs.String("signal", sig2.String()))
			os.Exit(1)
		case <-time.After(5 * time.Second):
		}
	}()

	switch role {
	case "coordinator":
		runCoordinator(ctx, cfg, logger)
		<-ctx.Done()
	case "consumer":
		runConsumer(ctx, cfg, logger)
	case "emitter":
		runEmitterOnce(ctx, cfg, logger)
	case "all":
		runAll(ctx, cfg, logger)
	default:
		logger.Fatal("unknown role", obs.String("role", role))
	}
}

// runCoordinator serves submit/get_work/status/stats/metrics over HTTP and
// runs the monitor loop that requeues tasks whose heartbeat has expired.
func runCoordinator(ctx context.Context, cfg *config.Config, logger *zap.Logger) *coordinator.Coordinator {
	coord := coordinator.New(logger, cfg.Coordinator.ActiveWindow, cfg.Coordinator.DebugDuplicates)

	srv := httpapi.NewServer(coord, logger, cfg.Coordinator.Port)
	srv.Start()
	go func() { <-ctx.Done(); _ = srv.Shutdown() }()

	mon := monitor.New(coord, cfg.Coordinator.MonitorInterval, cfg.Coordinator.TaskTimeout, cfg.Coordinator.MaxRetries, logger)
	go mon.Run(ctx)

	readyCheck := func(context.Context) error { return nil }
	obsSrv := obs.StartHTTPServer(cfg, readyCheck)
	go func() { <-ctx.Done(); _ = obsSrv.Close() }()

	obs.StartMetricsSampler(ctx, cfg.Observability.SampleInterval, func() obs.Sample {
		m := coord.Metrics()
		return obs.Sample{QueueDepth: m.QueueDepth, InFlight: m.InFlight, ActiveConsumers: m.ActiveConsumers, Backpressure: m.Backpressure}
	}, logger)

	logger.Info("coordinator listening", obs.Int("port", cfg.Coordinator.Port))
	return coord
}

// runConsumer runs a single consumer runtime polling a (possibly remote)
// coordinator over HTTP.
func runConsumer(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	c := consumer.New(cfg.Consumer, cfg.CircuitBreaker, logger)
	logger.Info("consumer starting", obs.String("consumer_id", c.ID()), obs.String("coordinator_url", cfg.Consumer.CoordinatorURL))
	if err := c.Run(ctx); err != nil {
		logger.Fatal("consumer error", obs.Err(err))
	}
}

// runEmitterOnce walks emitter.scan_dir exactly once and exits.
func runEmitterOnce(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	client := httpapi.NewClient(cfg.Emitter.CoordinatorURL, 5*time.Second)
	e := emitter.New(cfg.Emitter, client, logger)
	if err := e.Run(ctx); err != nil {
		logger.Fatal("emitter error", obs.Err(err))
	}
}

// runAll runs a coordinator, an autoscaled consumer pool pointed at it,
// and a one-shot emitter pass, all in a single process. Useful for local
// development and end-to-end scenario testing.
func runAll(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	coord := runCoordinator(ctx, cfg, logger)
	localURL := fmt.Sprintf("http://localhost:%d", cfg.Coordinator.Port)

	consumerCfg := cfg.Consumer
	consumerCfg.CoordinatorURL = localURL

	p := pool.New(consumerCfg, cfg.CircuitBreaker, logger)
	go func() { <-ctx.Done(); p.StopAll() }()

	a := pool.NewAutoscaler(p, cfg.Pool, func(ctx context.Context) (float64, error) {
		m := coord.Metrics()
		return m.Backpressure, nil
	}, logger)
	go a.Run(ctx)

	emitterCfg := cfg.Emitter
	emitterCfg.CoordinatorURL = localURL
	client := httpapi.NewClient(localURL, 5*time.Second)
	e := emitter.New(emitterCfg, client, logger)
	go func() {
		if err := e.Run(ctx); err != nil {
			logger.Warn("emitter error", obs.Err(err))
		}
	}()

	<-ctx.Done()
}

func runAdmin(cfg *config.Config, logger *zap.Logger, cmd string) {
	client := httpapi.NewClient(cfg.Consumer.CoordinatorURL, 5*time.Second)
	ctx := context.Background()

	switch cmd {
	case "stats":
		res, err := client.Stats(ctx)
		if err != nil {
			logger.Fatal("admin stats error", obs.Err(err))
		}
		b, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(b))
	case "metrics":
		res, err := client.Metrics(ctx)
		if err != nil {
			logger.Fatal("admin metrics error", obs.Err(err))
		}
		b, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(b))
	default:
		logger.Fatal("unknown admin command", obs.String("cmd", cmd))
	}
}
