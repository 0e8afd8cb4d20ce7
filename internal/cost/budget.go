// Package cost tracks generation service token usage for a session and
// stops calls once the hourly budget is spent.
package cost

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// BudgetStatus represents the current budget state
type BudgetStatus int

const (
	// BudgetHealthy indicates normal operation - under budget limits
	BudgetHealthy BudgetStatus = iota
	// BudgetWarning indicates approaching budget limits
	BudgetWarning
	// BudgetExceeded indicates budget limits have been exceeded
	BudgetExceeded
)

// String returns a human-readable string representation of the budget status
func (s BudgetStatus) String() string {
	switch s {
	case BudgetHealthy:
		return "HEALTHY"
	case BudgetWarning:
		return "WARNING"
	case BudgetExceeded:
		return "EXCEEDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Tracker records token usage and enforces the hourly budget
type Tracker struct {
	config Config
	logger *slog.Logger
	now    func() time.Time

	mu               sync.Mutex
	windowStart      time.Time
	hourlyTokens     int64
	hourlyCost       float64
	totalTokens      int64
	totalCost        float64
	calls            int
	operationTokens  map[string]int64
	warningLogged    bool
	exceededReported bool
}

// NewTracker creates a usage tracker
func NewTracker(cfg Config, logger *slog.Logger) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		config:          cfg,
		logger:          logger,
		now:             time.Now,
		operationTokens: make(map[string]int64),
	}
	t.windowStart = t.now()
	return t, nil
}

// RecordUsage adds the tokens of one call and returns the new status
func (t *Tracker) RecordUsage(operation string, inputTokens, outputTokens int64) BudgetStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkAndResetWindow()

	tokens := inputTokens + outputTokens
	cost := t.calculateCost(inputTokens, outputTokens)
	t.hourlyTokens += tokens
	t.hourlyCost += cost
	t.totalTokens += tokens
	t.totalCost += cost
	t.calls++
	if operation != "" {
		t.operationTokens[operation] += tokens
	}

	status := t.statusLocked()
	switch {
	case status == BudgetWarning && !t.warningLogged:
		t.warningLogged = true
		t.logger.Warn("generation budget nearly spent",
			"hourly_tokens", t.hourlyTokens, "max_tokens", t.config.MaxTokensPerHour,
			"hourly_cost", t.hourlyCost, "max_cost", t.config.MaxCostPerHour)
	case status == BudgetExceeded && !t.exceededReported:
		t.exceededReported = true
		t.logger.Error("generation budget exceeded",
			"hourly_tokens", t.hourlyTokens, "hourly_cost", t.hourlyCost)
	}
	return status
}

// CanProceed reports whether another call fits in the budget, and if
// not, which limit was hit
func (t *Tracker) CanProceed() (bool, string) {
	if !t.config.Enabled {
		return true, ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkAndResetWindow()
	if t.tokenLimitExceeded() {
		return false, fmt.Sprintf("hourly token budget exceeded (%d/%d tokens used)",
			t.hourlyTokens, t.config.MaxTokensPerHour)
	}
	if t.costLimitExceeded() {
		return false, fmt.Sprintf("hourly cost budget exceeded ($%.2f/$%.2f used)",
			t.hourlyCost, t.config.MaxCostPerHour)
	}
	return true, ""
}

// Stats returns current usage statistics
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkAndResetWindow()
	ops := make(map[string]int64, len(t.operationTokens))
	for k, v := range t.operationTokens {
		ops[k] = v
	}
	return Stats{
		Status:          t.statusLocked(),
		Calls:           t.calls,
		HourlyTokens:    t.hourlyTokens,
		HourlyCost:      t.hourlyCost,
		TotalTokens:     t.totalTokens,
		TotalCost:       t.totalCost,
		WindowStart:     t.windowStart,
		OperationTokens: ops,
	}
}

// Stats contains usage statistics
type Stats struct {
	Status          BudgetStatus
	Calls           int
	HourlyTokens    int64
	HourlyCost      float64
	TotalTokens     int64
	TotalCost       float64
	WindowStart     time.Time
	OperationTokens map[string]int64
}

func (t *Tracker) statusLocked() BudgetStatus {
	if !t.config.Enabled {
		return BudgetHealthy
	}
	if t.tokenLimitExceeded() || t.costLimitExceeded() {
		return BudgetExceeded
	}
	if t.config.MaxTokensPerHour > 0 &&
		float64(t.hourlyTokens)/float64(t.config.MaxTokensPerHour) >= t.config.AlertThreshold {
		return BudgetWarning
	}
	if t.config.MaxCostPerHour > 0 && t.hourlyCost/t.config.MaxCostPerHour >= t.config.AlertThreshold {
		return BudgetWarning
	}
	return BudgetHealthy
}

func (t *Tracker) tokenLimitExceeded() bool {
	return t.config.MaxTokensPerHour > 0 && t.hourlyTokens >= t.config.MaxTokensPerHour
}

func (t *Tracker) costLimitExceeded() bool {
	return t.config.MaxCostPerHour > 0 && t.hourlyCost >= t.config.MaxCostPerHour
}

// calculateCost calculates the cost in USD for given token usage
func (t *Tracker) calculateCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) * t.config.InputTokenCost / 1_000_000
	outputCost := float64(outputTokens) * t.config.OutputTokenCost / 1_000_000
	return inputCost + outputCost
}

// checkAndResetWindow starts a new window once the current one expired.
// MUST be called with mu held.
func (t *Tracker) checkAndResetWindow() {
	now := t.now()
	if now.Sub(t.windowStart) >= t.config.ResetInterval {
		t.hourlyTokens = 0
		t.hourlyCost = 0
		t.windowStart = now
		t.warningLogged = false
		t.exceededReported = false
	}
}
