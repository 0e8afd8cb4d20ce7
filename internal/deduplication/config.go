package deduplication

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/issuepilot/issuepilot/internal/similarity"
)

// Config holds configuration for duplicate analysis
type Config struct {
	// SimilarityThreshold is the score a match must exceed to be reported
	// as a potential duplicate. The comparison is strict: a match scoring
	// exactly the threshold is not reported.
	// Default: 0.6
	SimilarityThreshold float64

	// HighSimilarityThreshold splits reported matches into the high band
	// (score above it) and the medium band (everything else).
	// Default: 0.8
	HighSimilarityThreshold float64

	// MaxCandidates caps how many search hits are scored.
	// Default: 20
	MaxCandidates int

	// BatchSize is the number of candidates per scoring call
	// Default: 5
	BatchSize int

	// BatchDelay is the pause between scoring calls
	// Default: 500ms
	BatchDelay time.Duration

	// MaxRetries bounds the user-confirmed retries per scoring call
	// Default: 3
	MaxRetries int
}

// DefaultConfig returns the default duplicate analysis configuration
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:     0.6,
		HighSimilarityThreshold: 0.8,
		MaxCandidates:           20,
		BatchSize:               5,
		BatchDelay:              500 * time.Millisecond,
		MaxRetries:              3,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.SimilarityThreshold < 0.0 || c.SimilarityThreshold > 1.0 {
		return fmt.Errorf("similarity_threshold must be between 0.0 and 1.0 (got %.2f)",
			c.SimilarityThreshold)
	}
	if c.HighSimilarityThreshold < 0.0 || c.HighSimilarityThreshold > 1.0 {
		return fmt.Errorf("high_similarity_threshold must be between 0.0 and 1.0 (got %.2f)",
			c.HighSimilarityThreshold)
	}
	if c.HighSimilarityThreshold < c.SimilarityThreshold {
		return fmt.Errorf("high_similarity_threshold (%.2f) cannot be below similarity_threshold (%.2f)",
			c.HighSimilarityThreshold, c.SimilarityThreshold)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive (got %d)", c.MaxCandidates)
	}
	if c.MaxCandidates > 100 {
		return fmt.Errorf("max_candidates too large (got %d, max 100)", c.MaxCandidates)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive (got %d)", c.BatchSize)
	}
	if c.BatchSize > 20 {
		return fmt.Errorf("batch_size too large (got %d, max 20)", c.BatchSize)
	}
	if c.BatchDelay < 0 {
		return fmt.Errorf("batch_delay cannot be negative (got %v)", c.BatchDelay)
	}
	if c.BatchDelay > 10*time.Second {
		return fmt.Errorf("batch_delay too large (got %v, max 10s)", c.BatchDelay)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative (got %d)", c.MaxRetries)
	}
	if c.MaxRetries > 10 {
		return fmt.Errorf("max_retries too large (got %d, max 10)", c.MaxRetries)
	}
	return nil
}

// ScorerConfig returns the scoring settings carried by this config
func (c Config) ScorerConfig() similarity.Config {
	return similarity.Config{
		BatchSize:  c.BatchSize,
		BatchDelay: c.BatchDelay,
		MaxRetries: c.MaxRetries,
	}
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Threshold: %.2f, High: %.2f, MaxCandidates: %d, BatchSize: %d, "+
			"BatchDelay: %v, MaxRetries: %d}",
		c.SimilarityThreshold, c.HighSimilarityThreshold, c.MaxCandidates, c.BatchSize,
		c.BatchDelay, c.MaxRetries,
	)
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - ISSUEPILOT_DEDUP_SIMILARITY_THRESHOLD: Score a match must exceed (default: 0.6)
//   - ISSUEPILOT_DEDUP_HIGH_THRESHOLD: Score above which a match is high similarity (default: 0.8)
//   - ISSUEPILOT_DEDUP_MAX_CANDIDATES: Maximum number of search hits to score (default: 20)
//   - ISSUEPILOT_DEDUP_BATCH_SIZE: Candidates per scoring call (default: 5)
//   - ISSUEPILOT_DEDUP_BATCH_DELAY_MS: Milliseconds between scoring calls (default: 500)
//   - ISSUEPILOT_DEDUP_MAX_RETRIES: Retries per scoring call (default: 3)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	return ApplyEnv(DefaultConfig())
}

// ApplyEnv overlays the ISSUEPILOT_DEDUP_* variables on cfg and validates the result
func ApplyEnv(cfg Config) (Config, error) {
	if err := parseEnvFloat("ISSUEPILOT_DEDUP_SIMILARITY_THRESHOLD", &cfg.SimilarityThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("ISSUEPILOT_DEDUP_HIGH_THRESHOLD", &cfg.HighSimilarityThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("ISSUEPILOT_DEDUP_MAX_CANDIDATES", &cfg.MaxCandidates); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("ISSUEPILOT_DEDUP_BATCH_SIZE", &cfg.BatchSize); err != nil {
		return cfg, err
	}
	if err := parseEnvDuration("ISSUEPILOT_DEDUP_BATCH_DELAY_MS", &cfg.BatchDelay, time.Millisecond); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("ISSUEPILOT_DEDUP_MAX_RETRIES", &cfg.MaxRetries); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}

func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration reads an integer count of unit from key
func parseEnvDuration(key string, dest *time.Duration, unit time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * unit
	return nil
}
