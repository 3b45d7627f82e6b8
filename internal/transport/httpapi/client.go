// Copyright 2025 James Ross
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/task"
)

// Client is the consumer/emitter-side HTTP client for the coordinator's
// submit/get_work/status endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client bound to baseURL with the given per-request
// timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Submit posts a new task to the coordinator's backlog.
func (c *Client) Submit(ctx context.Context, rec task.Record) (string, error) {
	var out SubmitResponse
	err := c.post(ctx, "/submit", SubmitRequest{
		Message:  rec.Message,
		Level:    rec.Level,
		Source:   rec.Source,
		Metadata: rec.Metadata,
	}, &out)
	return out.TaskID, err
}

// GetWork polls the coordinator for the next task, if any.
func (c *Client) GetWork(ctx context.Context, consumerID string) (GetWorkResponse, error) {
	var out GetWorkResponse
	err := c.post(ctx, "/get_work", GetWorkRequest{ConsumerID: consumerID}, &out)
	return out, err
}

// Status reports a task's status to the coordinator.
func (c *Client) Status(ctx context.Context, consumerID, taskID string, status task.State, reason string) error {
	return c.post(ctx, "/status", StatusRequest{
		ConsumerID: consumerID,
		TaskID:     taskID,
		Status:     string(status),
		Reason:     reason,
	}, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Metrics fetches the coordinator's JSON metrics feed (the autoscaler's
// input), distinct from the Prometheus /metrics endpoint.
func (c *Client) Metrics(ctx context.Context) (MetricsResponse, error) {
	var out MetricsResponse
	err := c.get(ctx, "/metrics", &out)
	return out, err
}

// Stats fetches the coordinator's all-time counters, for the admin CLI.
func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	var out StatsResponse
	err := c.get(ctx, "/stats", &out)
	return out, err
}
