// Copyright 2025 James Ross
package httpapi

import (
	"net/http"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/obs"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type requestIDKey struct{}

// withRequestID stamps every request with a uuid, echoed back as
// X-Request-ID, so log lines for one call can be correlated end to end.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// withLogging records method, path, status and latency for every request.
func withLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				obs.String("method", r.Method),
				obs.String("path", r.URL.Path),
				obs.Int("status", sw.status),
				obs.String("request_id", w.Header().Get("X-Request-ID")),
				zap.Duration("latency", time.Since(start)),
			)
		})
	}
}

// withRecover turns a panicking handler into a 500 instead of crashing the
// whole coordinator process.
func withRecover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic in handler", zap.Any("recover", rec))
					writeError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
