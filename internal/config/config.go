// Copyright 2025 James Ross
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Coordinator holds the settings for the coordinator role: its HTTP port,
// the monitor loop's scan cadence, and the task-lifecycle timeouts that
// apply to every submitted task.
type Coordinator struct {
	Port            int           `mapstructure:"port"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	TaskTimeout     time.Duration `mapstructure:"task_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	ActiveWindow    time.Duration `mapstructure:"active_window"`
	DebugDuplicates bool          `mapstructure:"debug_duplicates"`
}

// Consumer holds the settings one consumer runtime uses to poll the
// coordinator, size its worker pool from its weight, and report progress.
type Consumer struct {
	CoordinatorURL    string        `mapstructure:"coordinator_url"`
	Weight            float64       `mapstructure:"weight"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ProcessingDelay   time.Duration `mapstructure:"processing_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

// Pool holds the autoscaler's threshold/cooldown/hysteresis parameters.
type Pool struct {
	MinSize            int           `mapstructure:"min_size"`
	MaxSize            int           `mapstructure:"max_size"`
	ScaleUpThreshold   float64       `mapstructure:"scale_up_threshold"`
	ScaleDownThreshold float64       `mapstructure:"scale_down_threshold"`
	ScaleUpStep        int           `mapstructure:"scale_up_step"`
	ScaleDownStep      int           `mapstructure:"scale_down_step"`
	Cooldown           time.Duration `mapstructure:"cooldown"`
	EvalInterval       time.Duration `mapstructure:"eval_interval"`
	DefaultWeight      float64       `mapstructure:"default_weight"`
}

// Emitter holds the settings for the thin demo CLI that walks a directory
// tree and submits one task per matched file.
type Emitter struct {
	CoordinatorURL  string   `mapstructure:"coordinator_url"`
	ScanDir         string   `mapstructure:"scan_dir"`
	IncludeGlobs    []string `mapstructure:"include_globs"`
	ExcludeGlobs    []string `mapstructure:"exclude_globs"`
	RateLimitPerSec int      `mapstructure:"rate_limit_per_sec"`
	Source          string   `mapstructure:"source"`
}

type CircuitBreaker struct {
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	Window           time.Duration `mapstructure:"window"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
	MinSamples       int           `mapstructure:"min_samples"`
}

type TracingConfig struct {
	Enabled            bool              `mapstructure:"enabled"`
	Endpoint           string            `mapstructure:"endpoint"`
	Environment        string            `mapstructure:"environment"`
	SamplingRate       float64           `mapstructure:"sampling_rate"`
	BatchTimeout       time.Duration     `mapstructure:"batch_timeout"`
	MaxExportBatchSize int               `mapstructure:"max_export_batch_size"`
	Headers            map[string]string `mapstructure:"headers"`
	Insecure           bool              `mapstructure:"insecure"`
}

type ObservabilityConfig struct {
	MetricsPort    int           `mapstructure:"metrics_port"`
	LogLevel       string        `mapstructure:"log_level"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
}

type Config struct {
	Coordinator    Coordinator         `mapstructure:"coordinator"`
	Consumer       Consumer            `mapstructure:"consumer"`
	Pool           Pool                `mapstructure:"pool"`
	Emitter        Emitter             `mapstructure:"emitter"`
	CircuitBreaker CircuitBreaker      `mapstructure:"circuit_breaker"`
	Observability  ObservabilityConfig `mapstructure:"observability"`
}

func defaultConfig() *Config {
	return &Config{
		Coordinator: Coordinator{
			Port:            8000,
			MonitorInterval: 5 * time.Second,
			TaskTimeout:     30 * time.Second,
			MaxRetries:      3,
			ActiveWindow:    30 * time.Second,
			DebugDuplicates: false,
		},
		Consumer: Consumer{
			CoordinatorURL:    "http://localhost:8000",
			Weight:            0.5,
			PollInterval:      500 * time.Millisecond,
			HeartbeatInterval: 5 * time.Second,
			ProcessingDelay:   0,
			RequestTimeout:    3 * time.Second,
		},
		Pool: Pool{
			MinSize:            1,
			MaxSize:            10,
			ScaleUpThreshold:   5.0,
			ScaleDownThreshold: 1.0,
			ScaleUpStep:        1,
			ScaleDownStep:      1,
			Cooldown:           15 * time.Second,
			EvalInterval:       5 * time.Second,
			DefaultWeight:      0.5,
		},
		Emitter: Emitter{
			CoordinatorURL:  "http://localhost:8000",
			ScanDir:         "./data",
			IncludeGlobs:    []string{"**/*.log"},
			ExcludeGlobs:    []string{"**/*.tmp"},
			RateLimitPerSec: 50,
			Source:          "emitter",
		},
		CircuitBreaker: CircuitBreaker{
			FailureThreshold: 0.5,
			Window:           1 * time.Minute,
			CooldownPeriod:   30 * time.Second,
			MinSamples:       20,
		},
		Observability: ObservabilityConfig{
			MetricsPort:    9090,
			LogLevel:       "info",
			Tracing:        TracingConfig{Enabled: false},
			SampleInterval: 2 * time.Second,
		},
	}
}

// Load reads configuration from a YAML file, overridden by environment
// variables (dots replaced with underscores, e.g. CONSUMER_WEIGHT).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("coordinator.port", def.Coordinator.Port)
	v.SetDefault("coordinator.monitor_interval", def.Coordinator.MonitorInterval)
	v.SetDefault("coordinator.task_timeout", def.Coordinator.TaskTimeout)
	v.SetDefault("coordinator.max_retries", def.Coordinator.MaxRetries)
	v.SetDefault("coordinator.active_window", def.Coordinator.ActiveWindow)
	v.SetDefault("coordinator.debug_duplicates", def.Coordinator.DebugDuplicates)

	v.SetDefault("consumer.coordinator_url", def.Consumer.CoordinatorURL)
	v.SetDefault("consumer.weight", def.Consumer.Weight)
	v.SetDefault("consumer.poll_interval", def.Consumer.PollInterval)
	v.SetDefault("consumer.heartbeat_interval", def.Consumer.HeartbeatInterval)
	v.SetDefault("consumer.processing_delay", def.Consumer.ProcessingDelay)
	v.SetDefault("consumer.request_timeout", def.Consumer.RequestTimeout)

	v.SetDefault("pool.min_size", def.Pool.MinSize)
	v.SetDefault("pool.max_size", def.Pool.MaxSize)
	v.SetDefault("pool.scale_up_threshold", def.Pool.ScaleUpThreshold)
	v.SetDefault("pool.scale_down_threshold", def.Pool.ScaleDownThreshold)
	v.SetDefault("pool.scale_up_step", def.Pool.ScaleUpStep)
	v.SetDefault("pool.scale_down_step", def.Pool.ScaleDownStep)
	v.SetDefault("pool.cooldown", def.Pool.Cooldown)
	v.SetDefault("pool.eval_interval", def.Pool.EvalInterval)
	v.SetDefault("pool.default_weight", def.Pool.DefaultWeight)

	v.SetDefault("emitter.coordinator_url", def.Emitter.CoordinatorURL)
	v.SetDefault("emitter.scan_dir", def.Emitter.ScanDir)
	v.SetDefault("emitter.include_globs", def.Emitter.IncludeGlobs)
	v.SetDefault("emitter.exclude_globs", def.Emitter.ExcludeGlobs)
	v.SetDefault("emitter.rate_limit_per_sec", def.Emitter.RateLimitPerSec)
	v.SetDefault("emitter.source", def.Emitter.Source)

	v.SetDefault("circuit_breaker.failure_threshold", def.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.window", def.CircuitBreaker.Window)
	v.SetDefault("circuit_breaker.cooldown_period", def.CircuitBreaker.CooldownPeriod)
	v.SetDefault("circuit_breaker.min_samples", def.CircuitBreaker.MinSamples)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)
	v.SetDefault("observability.tracing.enabled", def.Observability.Tracing.Enabled)
	v.SetDefault("observability.tracing.endpoint", def.Observability.Tracing.Endpoint)
	v.SetDefault("observability.sample_interval", def.Observability.SampleInterval)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config constraints and returns an error on invalid settings.
func Validate(cfg *Config) error {
	if cfg.Coordinator.Port <= 0 || cfg.Coordinator.Port > 65535 {
		return fmt.Errorf("coordinator.port must be 1..65535")
	}
	if cfg.Coordinator.MaxRetries < 0 {
		return fmt.Errorf("coordinator.max_retries must be >= 0")
	}
	if cfg.Coordinator.TaskTimeout < time.Second {
		return fmt.Errorf("coordinator.task_timeout must be >= 1s")
	}
	if cfg.Consumer.Weight < 0.05 || cfg.Consumer.Weight > 1.0 {
		return fmt.Errorf("consumer.weight must be within [0.05, 1.0]")
	}
	if cfg.Consumer.PollInterval <= 0 {
		return fmt.Errorf("consumer.poll_interval must be > 0")
	}
	if cfg.Pool.MinSize < 1 || cfg.Pool.MaxSize < cfg.Pool.MinSize {
		return fmt.Errorf("pool.min_size must be >= 1 and <= pool.max_size")
	}
	if cfg.Pool.ScaleDownThreshold >= cfg.Pool.ScaleUpThreshold {
		return fmt.Errorf("pool.scale_down_threshold must be < pool.scale_up_threshold")
	}
	if cfg.Emitter.RateLimitPerSec < 0 {
		return fmt.Errorf("emitter.rate_limit_per_sec must be >= 0")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	return nil
}
