// Copyright 2025 James Ross
package httpapi

import "github.com/flyingrobots/go-log-distributor/internal/task"

// SubmitRequest is the body of POST /submit.
type SubmitRequest struct {
	Message  string         `json:"message"`
	Level    string         `json:"level"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SubmitResponse is the body of POST /submit's reply.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
}

// GetWorkRequest is the body of POST /get_work.
type GetWorkRequest struct {
	ConsumerID string `json:"consumer_id"`
}

// GetWorkResponse is the body of POST /get_work's reply. HasWork is false
// and TaskID/Payload are zero when the backlog is empty.
type GetWorkResponse struct {
	HasWork bool        `json:"has_work"`
	TaskID  string      `json:"task_id,omitempty"`
	Payload task.Record `json:"payload,omitempty"`
}

// StatusRequest is the body of POST /status.
type StatusRequest struct {
	ConsumerID string `json:"consumer_id"`
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	QueueDepth   int                                `json:"queue_depth"`
	InFlight     int                                 `json:"in_flight"`
	Completed    int64                               `json:"completed"`
	Failed       int64                               `json:"failed"`
	Retries      int64                                `json:"retries"`
	Submitted    int64                                `json:"submitted"`
	PerConsumer  map[string]ConsumerStatsResponse     `json:"per_consumer"`
	RecentErrors []FailureResponse                    `json:"recent_errors,omitempty"`
}

type ConsumerStatsResponse struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

type FailureResponse struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
	At     string `json:"at"`
}

// MetricsResponse is the body of GET /metrics (the JSON business endpoint,
// distinct from the Prometheus /metrics served on observability.metrics_port).
type MetricsResponse struct {
	QueueDepth      int     `json:"queue_depth"`
	InFlight        int     `json:"in_flight"`
	ActiveConsumers int     `json:"active_consumers"`
	Backpressure    float64 `json:"backpressure"`
}

// ErrorResponse is the body written by writeError.
type ErrorResponse struct {
	Error string `json:"error"`
}
