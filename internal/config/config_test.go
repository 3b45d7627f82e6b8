// Copyright 2025 James Ross
package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("CONSUMER_WEIGHT")
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Coordinator.Port != 8000 {
		t.Fatalf("expected default coordinator port 8000, got %d", cfg.Coordinator.Port)
	}
	if cfg.Consumer.Weight != 0.5 {
		t.Fatalf("expected default consumer weight 0.5, got %v", cfg.Consumer.Weight)
	}
}

func TestValidateFails(t *testing.T) {
	cfg := defaultConfig()
	cfg.Coordinator.Port = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for coordinator.port out of range")
	}
	cfg = defaultConfig()
	cfg.Consumer.Weight = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for consumer.weight > 1.0")
	}
	cfg = defaultConfig()
	cfg.Pool.ScaleDownThreshold = cfg.Pool.ScaleUpThreshold
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for scale_down_threshold >= scale_up_threshold")
	}
}
