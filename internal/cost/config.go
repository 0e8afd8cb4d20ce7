package cost

import (
	"fmt"
	"time"
)

// Config holds generation usage budgeting configuration
type Config struct {
	// Enabled controls whether budgeting is active
	// Default: true
	Enabled bool

	// MaxTokensPerHour is the maximum number of tokens (input + output) per window
	// 0 = unlimited
	// Default: 200000
	MaxTokensPerHour int64

	// MaxCostPerHour is the maximum cost in USD per window
	// 0.0 = unlimited
	// Default: 2.00
	MaxCostPerHour float64

	// AlertThreshold is the share of the budget that triggers a warning
	// Default: 0.80
	AlertThreshold float64

	// ResetInterval is the length of the budget window
	// Default: 1 hour
	ResetInterval time.Duration

	// InputTokenCost and OutputTokenCost are USD per 1M tokens
	InputTokenCost  float64
	OutputTokenCost float64
}

// DefaultConfig returns default budgeting configuration
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		MaxTokensPerHour: 200000,
		MaxCostPerHour:   2.00,
		AlertThreshold:   0.80,
		ResetInterval:    time.Hour,
		InputTokenCost:   3.00,  // Claude Sonnet 4.5
		OutputTokenCost:  15.00, // Claude Sonnet 4.5
	}
}

// Validate checks that the configuration has safe and reasonable values
func (c Config) Validate() error {
	if c.MaxTokensPerHour < 0 {
		return fmt.Errorf("max_tokens_per_hour must be non-negative, got %d", c.MaxTokensPerHour)
	}
	if c.MaxCostPerHour < 0 {
		return fmt.Errorf("max_cost_per_hour must be non-negative, got %.2f", c.MaxCostPerHour)
	}
	if c.AlertThreshold <= 0 || c.AlertThreshold > 1.0 {
		return fmt.Errorf("alert_threshold must be between 0 and 1, got %.2f", c.AlertThreshold)
	}
	if c.ResetInterval <= 0 {
		return fmt.Errorf("reset_interval must be positive, got %v", c.ResetInterval)
	}
	if c.InputTokenCost < 0 {
		return fmt.Errorf("input_token_cost must be non-negative, got %.2f", c.InputTokenCost)
	}
	if c.OutputTokenCost < 0 {
		return fmt.Errorf("output_token_cost must be non-negative, got %.2f", c.OutputTokenCost)
	}
	return nil
}
