// Copyright 2025 James Ross
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/obs"
	"github.com/flyingrobots/go-log-distributor/internal/task"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, span := obs.StartSubmitSpan(r.Context(), req.Source)
	defer span.End()

	rec := task.NewRecord(req.Message, req.Level, req.Source, time.Time{}, req.Metadata)
	id := s.coord.Submit(rec)
	obs.TasksSubmitted.Inc()
	obs.SetSpanSuccess(ctx)

	writeJSON(w, http.StatusOK, SubmitResponse{TaskID: id})
}

func (s *Server) handleGetWork(w http.ResponseWriter, r *http.Request) {
	var req GetWorkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConsumerID == "" {
		writeError(w, http.StatusBadRequest, "consumer_id is required")
		return
	}

	_, span := obs.StartGetWorkSpan(r.Context(), req.ConsumerID)
	defer span.End()

	res := s.coord.GetWork(req.ConsumerID)
	writeJSON(w, http.StatusOK, GetWorkResponse{HasWork: res.HasWork, TaskID: res.TaskID, Payload: res.Payload})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConsumerID == "" || req.TaskID == "" {
		writeError(w, http.StatusBadRequest, "consumer_id and task_id are required")
		return
	}

	state := task.State(req.Status)
	switch state {
	case task.InProgress, task.Completed, task.Failed:
	default:
		writeError(w, http.StatusBadRequest, "status must be IN_PROGRESS, COMPLETED, or FAILED")
		return
	}

	s.coord.Status(req.ConsumerID, req.TaskID, state, req.Reason)
	switch state {
	case task.Completed:
		obs.TasksCompleted.Inc()
	case task.Failed:
		obs.TasksFailed.Inc()
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.coord.Stats()

	per := make(map[string]ConsumerStatsResponse, len(snap.PerConsumer))
	for id, cs := range snap.PerConsumer {
		per[id] = ConsumerStatsResponse{Processed: cs.Processed, Failed: cs.Failed}
	}
	errs := make([]FailureResponse, len(snap.RecentErrors))
	for i, f := range snap.RecentErrors {
		errs[i] = FailureResponse{TaskID: f.TaskID, Reason: f.Reason, At: f.At.Format(time.RFC3339Nano)}
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		QueueDepth:   snap.QueueDepth,
		InFlight:     snap.InFlight,
		Completed:    snap.Completed,
		Failed:       snap.Failed,
		Retries:      snap.Retries,
		Submitted:    snap.Submitted,
		PerConsumer:  per,
		RecentErrors: errs,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.coord.Metrics()
	writeJSON(w, http.StatusOK, MetricsResponse{
		QueueDepth:      m.QueueDepth,
		InFlight:        m.InFlight,
		ActiveConsumers: m.ActiveConsumers,
		Backpressure:    m.Backpressure,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
