// Copyright 2025 James Ross
package emitter

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flyingrobots/go-log-distributor/internal/config"
	"github.com/flyingrobots/go-log-distributor/internal/coordinator"
	"github.com/flyingrobots/go-log-distributor/internal/transport/httpapi"
	"go.uber.org/zap"
)

func TestRunSubmitsMatchedFilesOnly(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.log"), "hello")
	mustWrite(t, filepath.Join(dir, "b.tmp"), "ignored")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(dir, "sub", "c.log"), "nested")

	coord := coordinator.New(zap.NewNop(), 30*time.Second, false)
	srv := httpapi.NewServer(coord, zap.NewNop(), 0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := httpapi.NewClient(ts.URL, time.Second)
	cfg := config.Emitter{
		ScanDir:      dir,
		IncludeGlobs: []string{"**/*.log"},
		ExcludeGlobs: []string{"**/*.tmp"},
		Source:       "test-emitter",
	}
	e := New(cfg, client, zap.NewNop())

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	stats := coord.Stats()
	if stats.Submitted != 2 {
		t.Fatalf("expected 2 submitted tasks (a.log, sub/c.log), got %d", stats.Submitted)
	}
}

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}
