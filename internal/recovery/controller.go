package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Prompter is the interactive capability the controller needs. The REPL
// implements it against the terminal; tests use a scripted fake.
type Prompter interface {
	// ShowError presents a classified error and its remediation hints
	ShowError(e *AppError, hints []string)

	// ConfirmRetry asks whether to retry. attempt is the 1-based retry
	// number that would be made, out of maxRetries.
	ConfirmRetry(ctx context.Context, e *AppError, attempt, maxRetries int) (bool, error)

	// Countdown is called about once per second while waiting to retry
	Countdown(remaining time.Duration)
}

// RetryState tracks retry attempts per operation label for one session.
// Labels are a namespace: reusing one label for unrelated operations
// shares its budget.
type RetryState struct {
	mu       sync.Mutex
	attempts map[string]int
}

// NewRetryState creates an empty retry state
func NewRetryState() *RetryState {
	return &RetryState{attempts: make(map[string]int)}
}

// Attempts returns the retries already made for a label
func (s *RetryState) Attempts(label string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[label]
}

func (s *RetryState) increment(label string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[label]++
	return s.attempts[label]
}

// Reset clears the counter for a label
func (s *RetryState) Reset(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, label)
}

// ControllerConfig holds retry controller settings
type ControllerConfig struct {
	MaxRetries     int           // Retries allowed per label (default: 3)
	InitialBackoff time.Duration // First retry delay (default: 1s)
	MaxBackoff     time.Duration // Delay cap (default: 5s)
}

// DefaultControllerConfig returns the default retry controller configuration
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     5 * time.Second,
	}
}

// Validate checks if the configuration has valid values
func (c ControllerConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative (got %d)", c.MaxRetries)
	}
	if c.MaxRetries > 10 {
		return fmt.Errorf("max_retries too large (got %d, max 10)", c.MaxRetries)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive (got %v)", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff (%v) must be >= initial_backoff (%v)", c.MaxBackoff, c.InitialBackoff)
	}
	return nil
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Controller decides whether a failed operation should be retried
type Controller struct {
	state    *RetryState
	prompter Prompter
	config   ControllerConfig
	sleep    SleepFunc
	logger   *slog.Logger
}

// Option customizes a Controller
type Option func(*Controller)

// WithSleep replaces the wait used between retries
func WithSleep(fn SleepFunc) Option {
	return func(c *Controller) { c.sleep = fn }
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithState shares an existing retry state
func WithState(state *RetryState) Option {
	return func(c *Controller) { c.state = state }
}

// NewController creates a retry controller for one session
func NewController(prompter Prompter, cfg ControllerConfig, opts ...Option) (*Controller, error) {
	if prompter == nil {
		return nil, fmt.Errorf("prompter is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	c := &Controller{
		state:    NewRetryState(),
		prompter: prompter,
		config:   cfg,
		sleep:    sleepContext,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MaxRetries returns the per-label retry budget
func (c *Controller) MaxRetries() int {
	return c.config.MaxRetries
}

// State exposes the retry counters (for status output and tests)
func (c *Controller) State() *RetryState {
	return c.state
}

// Handle classifies err, shows it to the user and decides whether the
// caller should retry. It returns true only after the user confirmed and
// the backoff delay has elapsed. On decline, exhaustion or a
// non-retryable error the label's counter is cleared.
func (c *Controller) Handle(ctx context.Context, err error, label string) bool {
	appErr := Classify(err)
	if appErr == nil {
		return false
	}

	c.prompter.ShowError(appErr, Hints(appErr))

	if !appErr.Retryable {
		c.logger.Warn("operation failed with non-retryable error",
			"operation", label, "kind", appErr.Kind.String(), "error", appErr.Message)
		c.state.Reset(label)
		return false
	}

	attempts := c.state.Attempts(label)
	if attempts >= c.config.MaxRetries {
		c.logger.Warn("retry budget exhausted",
			"operation", label, "attempts", attempts, "max", c.config.MaxRetries)
		c.state.Reset(label)
		return false
	}

	ok, promptErr := c.prompter.ConfirmRetry(ctx, appErr, attempts+1, c.config.MaxRetries)
	if promptErr != nil || !ok {
		if promptErr != nil {
			c.logger.Debug("retry prompt failed", "operation", label, "error", promptErr)
		}
		c.state.Reset(label)
		return false
	}

	attempt := c.state.increment(label)
	delay := c.Delay(attempt)
	c.logger.Info("retrying operation",
		"operation", label, "attempt", attempt, "max", c.config.MaxRetries, "delay", delay)

	if err := c.wait(ctx, delay); err != nil {
		c.state.Reset(label)
		return false
	}
	return true
}

// ResetRetryCount clears the attempt counter for a label. Callers must call
// it after an operation ultimately succeeds.
func (c *Controller) ResetRetryCount(label string) {
	c.state.Reset(label)
}

// Delay returns the wait before the given 1-based retry attempt:
// InitialBackoff doubled per attempt, capped at MaxBackoff.
func (c *Controller) Delay(attempt int) time.Duration {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialBackoff
	bo.MaxInterval = c.config.MaxBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()

	delay := c.config.InitialBackoff
	for i := 0; i < attempt; i++ {
		delay = bo.NextBackOff()
	}
	return delay
}

// wait sleeps for delay in one-second steps, reporting the countdown
func (c *Controller) wait(ctx context.Context, delay time.Duration) error {
	for remaining := delay; remaining > 0; {
		c.prompter.Countdown(remaining)
		step := time.Second
		if remaining < step {
			step = remaining
		}
		if err := c.sleep(ctx, step); err != nil {
			return err
		}
		remaining -= step
	}
	return nil
}
