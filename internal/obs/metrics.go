// Copyright 2025 James Ross
package obs

import (
	"fmt"
	"net/http"

	"github.com/flyingrobots/go-log-distributor/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TasksSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasks_submitted_total",
		Help: "Total number of tasks submitted to the backlog",
	})
	TasksCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasks_completed_total",
		Help: "Total number of tasks reported COMPLETED",
	})
	TasksFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasks_failed_total",
		Help: "Total number of tasks that reached a terminal FAILED state",
	})
	TasksRetried = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasks_retried_total",
		Help: "Total number of times a task was requeued after a heartbeat timeout",
	})
	TaskProcessingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "task_processing_duration_seconds",
		Help:    "Histogram of task processing durations observed by consumers",
		Buckets: prometheus.DefBuckets,
	})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "queue_depth",
		Help: "Current number of tasks waiting in the backlog",
	})
	InFlightTasks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "in_flight_tasks",
		Help: "Current number of tasks assigned to a consumer",
	})
	ActiveConsumers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_consumers",
		Help: "Number of consumer ids seen via get_work within the active window",
	})
	Backpressure = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backpressure",
		Help: "queue_depth divided by max(1, active_consumers)",
	})
	CircuitBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "0 Closed, 1 HalfOpen, 2 Open",
	})
	CircuitBreakerTrips = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "circuit_breaker_trips_total",
		Help: "Count of times the consumer's breaker transitioned to Open",
	})
	MonitorRecovered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monitor_recovered_total",
		Help: "Total number of tasks requeued by the monitor loop after a heartbeat timeout",
	})
	ConsumerPoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "consumer_pool_size",
		Help: "Current number of consumer runtimes managed by the autoscaler",
	})
	AutoscalerScaleUps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoscaler_scale_ups_total",
		Help: "Total number of autoscaler scale-up decisions",
	})
	AutoscalerScaleDowns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoscaler_scale_downs_total",
		Help: "Total number of autoscaler scale-down decisions",
	})
)

func init() {
	prometheus.MustRegister(
		TasksSubmitted, TasksCompleted, TasksFailed, TasksRetried, TaskProcessingDuration,
		QueueDepth, InFlightTasks, ActiveConsumers, Backpressure,
		CircuitBreakerState, CircuitBreakerTrips, MonitorRecovered,
		ConsumerPoolSize, AutoscalerScaleUps, AutoscalerScaleDowns,
	)
}

// StartMetricsServer exposes /metrics and returns a server for controlled
// shutdown. Retained for compatibility; StartHTTPServer also registers
// health endpoints and is preferred for new callers.
func StartMetricsServer(cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Observability.MetricsPort), Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
