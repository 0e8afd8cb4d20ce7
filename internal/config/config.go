// Package config loads issuepilot settings from a YAML file and the
// environment, and builds the per-component configurations from them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/issuepilot/issuepilot/internal/ai"
	"github.com/issuepilot/issuepilot/internal/cost"
	"github.com/issuepilot/issuepilot/internal/deduplication"
	"github.com/issuepilot/issuepilot/internal/recovery"
	"github.com/issuepilot/issuepilot/internal/tracker"
)

// DefaultPath is the config file read when no path is given
const DefaultPath = "issuepilot.yaml"

// Config is the top-level configuration file
type Config struct {
	AI      AIConfig      `yaml:"ai"`
	Gateway GatewayConfig `yaml:"gateway"`
	Dedup   DedupConfig   `yaml:"dedup"`
	Retry   RetryConfig   `yaml:"retry"`
	Budget  BudgetConfig  `yaml:"budget"`
	Log     LogConfig     `yaml:"log"`
}

// AIConfig configures the generation service client
type AIConfig struct {
	APIKey             string `yaml:"api_key,omitempty"` // usually left empty in favor of ANTHROPIC_API_KEY
	BaseURL            string `yaml:"base_url,omitempty"`
	Model              string `yaml:"model"`
	Timeout            string `yaml:"timeout"` // e.g., "60s"
	MaxConcurrentCalls int    `yaml:"max_concurrent_calls"`
}

// GatewayConfig configures the tracker gateway client
type GatewayConfig struct {
	URL               string  `yaml:"url"`
	Token             string  `yaml:"token,omitempty"`
	Timeout           string  `yaml:"timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxResults        int     `yaml:"max_results"`
}

// DedupConfig mirrors deduplication.Config in file form
type DedupConfig struct {
	SimilarityThreshold     float64 `yaml:"similarity_threshold"`
	HighSimilarityThreshold float64 `yaml:"high_similarity_threshold"`
	MaxCandidates           int     `yaml:"max_candidates"`
	BatchSize               int     `yaml:"batch_size"`
	BatchDelay              string  `yaml:"batch_delay"`
	MaxRetries              int     `yaml:"max_retries"`
}

// RetryConfig configures the interactive retry controller
type RetryConfig struct {
	MaxRetries     int    `yaml:"max_retries"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
}

// BudgetConfig caps generation service usage per window
type BudgetConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MaxTokensPerHour int64   `yaml:"max_tokens_per_hour"` // 0 = unlimited
	MaxCostPerHour   float64 `yaml:"max_cost_per_hour"`   // USD, 0 = unlimited
	AlertThreshold   float64 `yaml:"alert_threshold"`
	ResetInterval    string  `yaml:"reset_interval"`
	InputTokenCost   float64 `yaml:"input_token_cost"`  // USD per 1M tokens
	OutputTokenCost  float64 `yaml:"output_token_cost"` // USD per 1M tokens
}

// LogConfig configures logging
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	d := deduplication.DefaultConfig()
	b := cost.DefaultConfig()
	return &Config{
		AI: AIConfig{
			Model:              ai.DefaultModel,
			Timeout:            "60s",
			MaxConcurrentCalls: 3,
		},
		Gateway: GatewayConfig{
			Timeout:           "30s",
			RequestsPerSecond: 5,
			Burst:             2,
			MaxResults:        20,
		},
		Dedup: DedupConfig{
			SimilarityThreshold:     d.SimilarityThreshold,
			HighSimilarityThreshold: d.HighSimilarityThreshold,
			MaxCandidates:           d.MaxCandidates,
			BatchSize:               d.BatchSize,
			BatchDelay:              d.BatchDelay.String(),
			MaxRetries:              d.MaxRetries,
		},
		Retry: RetryConfig{
			MaxRetries:     3,
			InitialBackoff: "1s",
			MaxBackoff:     "5s",
		},
		Budget: BudgetConfig{
			Enabled:          b.Enabled,
			MaxTokensPerHour: b.MaxTokensPerHour,
			MaxCostPerHour:   b.MaxCostPerHour,
			AlertThreshold:   b.AlertThreshold,
			ResetInterval:    b.ResetInterval.String(),
			InputTokenCost:   b.InputTokenCost,
			OutputTokenCost:  b.OutputTokenCost,
		},
		Log: LogConfig{
			File:  "issuepilot.log",
			Level: "info",
		},
	}
}

// LoadConfig reads path over the defaults and applies environment
// overrides. An empty path reads DefaultPath if it exists.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	case !explicit && errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SaveDefaultConfig writes the default configuration to a file
func SaveDefaultConfig(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables:
//   - ANTHROPIC_API_KEY: generation service key
//   - ISSUEPILOT_AI_MODEL, ISSUEPILOT_AI_BASE_URL
//   - ISSUEPILOT_GATEWAY_URL, ISSUEPILOT_GATEWAY_TOKEN
//   - ISSUEPILOT_MAX_RETRIES: interactive retry budget
//   - ISSUEPILOT_LOG_FILE, ISSUEPILOT_LOG_LEVEL
//
// The ISSUEPILOT_DEDUP_* variables are applied by DeduplicationConfig.
func (c *Config) applyEnv() error {
	setString("ANTHROPIC_API_KEY", &c.AI.APIKey)
	setString("ISSUEPILOT_AI_MODEL", &c.AI.Model)
	setString("ISSUEPILOT_AI_BASE_URL", &c.AI.BaseURL)
	setString("ISSUEPILOT_GATEWAY_URL", &c.Gateway.URL)
	setString("ISSUEPILOT_GATEWAY_TOKEN", &c.Gateway.Token)
	setString("ISSUEPILOT_LOG_FILE", &c.Log.File)
	setString("ISSUEPILOT_LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("ISSUEPILOT_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid value for ISSUEPILOT_MAX_RETRIES: %w", err)
		}
		c.Retry.MaxRetries = n
	}
	return nil
}

func setString(key string, dest *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dest = v
	}
}

// Validate checks if the configuration has valid values. Component
// settings are checked by building them.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gateway.URL) == "" {
		return fmt.Errorf("gateway.url is required (or set ISSUEPILOT_GATEWAY_URL)")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if _, err := c.AIClientConfig(nil); err != nil {
		return err
	}
	if _, err := c.TrackerConfig(nil); err != nil {
		return err
	}
	if _, err := c.ControllerConfig(); err != nil {
		return err
	}
	dedup, err := c.DeduplicationConfig()
	if err != nil {
		return err
	}
	if c.Gateway.MaxResults > dedup.MaxCandidates {
		return fmt.Errorf("gateway.max_results (%d) cannot exceed dedup.max_candidates (%d)",
			c.Gateway.MaxResults, dedup.MaxCandidates)
	}
	if _, err := c.BudgetConfig(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// AIClientConfig builds the generation client configuration
func (c *Config) AIClientConfig(logger *slog.Logger) (ai.Config, error) {
	cfg := ai.DefaultConfig()
	cfg.APIKey = c.AI.APIKey
	cfg.BaseURL = c.AI.BaseURL
	cfg.Logger = logger
	if c.AI.Model != "" {
		cfg.Model = c.AI.Model
	}
	if c.AI.MaxConcurrentCalls < 0 {
		return cfg, fmt.Errorf("ai.max_concurrent_calls cannot be negative (got %d)", c.AI.MaxConcurrentCalls)
	}
	cfg.MaxConcurrentCalls = c.AI.MaxConcurrentCalls
	if err := parseDuration("ai.timeout", c.AI.Timeout, &cfg.Timeout); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TrackerConfig builds the gateway client configuration
func (c *Config) TrackerConfig(logger *slog.Logger) (tracker.Config, error) {
	cfg := tracker.Config{
		BaseURL:           c.Gateway.URL,
		Token:             c.Gateway.Token,
		RequestsPerSecond: c.Gateway.RequestsPerSecond,
		Burst:             c.Gateway.Burst,
		Logger:            logger,
	}
	if c.Gateway.RequestsPerSecond < 0 {
		return cfg, fmt.Errorf("gateway.requests_per_second cannot be negative (got %v)", c.Gateway.RequestsPerSecond)
	}
	if c.Gateway.MaxResults < 0 || c.Gateway.MaxResults > 100 {
		return cfg, fmt.Errorf("gateway.max_results must be between 0 and 100 (got %d)", c.Gateway.MaxResults)
	}
	if err := parseDuration("gateway.timeout", c.Gateway.Timeout, &cfg.Timeout); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ControllerConfig builds the retry controller configuration
func (c *Config) ControllerConfig() (recovery.ControllerConfig, error) {
	cfg := recovery.DefaultControllerConfig()
	cfg.MaxRetries = c.Retry.MaxRetries
	if err := parseDuration("retry.initial_backoff", c.Retry.InitialBackoff, &cfg.InitialBackoff); err != nil {
		return cfg, err
	}
	if err := parseDuration("retry.max_backoff", c.Retry.MaxBackoff, &cfg.MaxBackoff); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("retry: %w", err)
	}
	return cfg, nil
}

// DeduplicationConfig builds the duplicate analysis configuration,
// with ISSUEPILOT_DEDUP_* variables taking precedence over the file
func (c *Config) DeduplicationConfig() (deduplication.Config, error) {
	cfg := deduplication.Config{
		SimilarityThreshold:     c.Dedup.SimilarityThreshold,
		HighSimilarityThreshold: c.Dedup.HighSimilarityThreshold,
		MaxCandidates:           c.Dedup.MaxCandidates,
		BatchSize:               c.Dedup.BatchSize,
		MaxRetries:              c.Dedup.MaxRetries,
	}
	if err := parseDuration("dedup.batch_delay", c.Dedup.BatchDelay, &cfg.BatchDelay); err != nil {
		return cfg, err
	}
	return deduplication.ApplyEnv(cfg)
}

// BudgetConfig builds the generation usage budget configuration
func (c *Config) BudgetConfig() (cost.Config, error) {
	cfg := cost.Config{
		Enabled:          c.Budget.Enabled,
		MaxTokensPerHour: c.Budget.MaxTokensPerHour,
		MaxCostPerHour:   c.Budget.MaxCostPerHour,
		AlertThreshold:   c.Budget.AlertThreshold,
		ResetInterval:    cost.DefaultConfig().ResetInterval,
		InputTokenCost:   c.Budget.InputTokenCost,
		OutputTokenCost:  c.Budget.OutputTokenCost,
	}
	if err := parseDuration("budget.reset_interval", c.Budget.ResetInterval, &cfg.ResetInterval); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("budget: %w", err)
	}
	return cfg, nil
}

// parseDuration leaves dest unchanged when value is empty
func parseDuration(field, value string, dest *time.Duration) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return fmt.Errorf("%s cannot be negative (got %v)", field, d)
	}
	*dest = d
	return nil
}
