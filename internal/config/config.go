// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultModel    string `yaml:"default_model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent provider calls
}

// PipelineConfig centralizes every tunable of the generation pipeline. All
// call sites read these named values; nothing is hardcoded per route.
type PipelineConfig struct {
	MaxUnitTokens  int           `yaml:"max_unit_tokens"`  // planner size bound per work unit
	Workers        int           `yaml:"workers"`          // concurrent independent jobs
	MaxAttempts    int           `yaml:"max_attempts"`     // attempts per work unit, including the first
	ReportChars    int           `yaml:"report_chars"`     // min accumulated chars between progress events
	OverallTimeout time.Duration `yaml:"overall_timeout"`  // absolute cap per attempt
	StallTimeout   time.Duration `yaml:"stall_timeout"`    // rolling silence cap per attempt
	BackoffBase    time.Duration `yaml:"backoff_base"`     // exponential backoff base unit
	BackoffCap     time.Duration `yaml:"backoff_cap"`      // ceiling for any computed delay
	RateLimitFloor time.Duration `yaml:"rate_limit_floor"` // used when no retry-after hint
	StallRetryWait time.Duration `yaml:"stall_retry_wait"` // fast retry after a stall/timeout
	InterUnitDelay time.Duration `yaml:"inter_unit_delay"` // pause between sequential units
	Heartbeat      time.Duration `yaml:"heartbeat"`        // relay heartbeat interval
}

type JanitorConfig struct {
	Interval     time.Duration `yaml:"interval"`
	StaleAfter   time.Duration `yaml:"stale_after"`
	JobRetention time.Duration `yaml:"job_retention"`
}

type LimitsConfig struct {
	SubmissionsPerMinute int           `yaml:"submissions_per_minute"` // per owner
	DocumentLockTTL      time.Duration `yaml:"document_lock_ttl"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Janitor  JanitorConfig  `yaml:"janitor"`
	Limits   LimitsConfig   `yaml:"limits"`
	Security SecurityConfig `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	// Dev mode runs the scripted streamer without a provider key.
	if !dev && cfg.AI.OpenAIKey == "" && cfg.AI.GeminiKey == "" {
		return nil, errors.New("ai.openai_key or ai.gemini_key is required")
	}
	if cfg.Pipeline.StallTimeout >= cfg.Pipeline.OverallTimeout {
		return nil, errors.New("pipeline.stall_timeout must be below pipeline.overall_timeout")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 8192
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 8
	}

	p := &cfg.Pipeline
	if p.MaxUnitTokens <= 0 {
		p.MaxUnitTokens = 8000
	}
	if p.Workers <= 0 {
		p.Workers = 4
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 4
	}
	if p.ReportChars <= 0 {
		p.ReportChars = 500
	}
	if p.OverallTimeout <= 0 {
		p.OverallTimeout = 300 * time.Second
	}
	if p.StallTimeout <= 0 {
		p.StallTimeout = 90 * time.Second
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = 2 * time.Second
	}
	if p.BackoffCap <= 0 {
		p.BackoffCap = 60 * time.Second
	}
	if p.RateLimitFloor <= 0 {
		p.RateLimitFloor = 15 * time.Second
	}
	if p.StallRetryWait <= 0 {
		p.StallRetryWait = 2 * time.Second
	}
	if p.InterUnitDelay <= 0 {
		p.InterUnitDelay = 1500 * time.Millisecond
	}
	if p.Heartbeat <= 0 {
		p.Heartbeat = 8 * time.Second
	}

	if cfg.Janitor.Interval <= 0 {
		cfg.Janitor.Interval = time.Minute
	}
	if cfg.Janitor.StaleAfter <= 0 {
		cfg.Janitor.StaleAfter = 30 * time.Minute
	}
	if cfg.Janitor.JobRetention <= 0 {
		cfg.Janitor.JobRetention = 7 * 24 * time.Hour
	}

	if cfg.Limits.SubmissionsPerMinute <= 0 {
		cfg.Limits.SubmissionsPerMinute = 6
	}
	if cfg.Limits.DocumentLockTTL <= 0 {
		cfg.Limits.DocumentLockTTL = 10 * time.Minute
	}
}
