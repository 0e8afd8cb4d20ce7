// Package ai talks to the text-generation service. Callers treat it as a
// black box that maps a prompt to a completion.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/issuepilot/issuepilot/internal/cost"
	"github.com/issuepilot/issuepilot/internal/recovery"
	"golang.org/x/sync/semaphore"
)

// DefaultModel is used when no model is configured
const DefaultModel = "claude-sonnet-4-5-20250929"

// ErrBudgetExceeded is wrapped by calls refused because the usage budget is spent
var ErrBudgetExceeded = errors.New("generation budget exceeded")

// Request is one generation call
type Request struct {
	Operation   string  // Label for logs, e.g. "keyword_extraction"
	System      string  // System instruction
	Prompt      string  // User message
	MaxTokens   int     // Output bound (default: 1024)
	Temperature float64 // Sampling temperature
}

// Generator maps a request to a completion
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Config holds generation client configuration
type Config struct {
	APIKey  string        // Anthropic API key (if empty, reads ANTHROPIC_API_KEY)
	BaseURL string        // Optional API base URL override
	Model   string        // Model to use (default: DefaultModel)
	Timeout time.Duration // Per-call timeout (default: 60s)

	MaxConcurrentCalls int // 0 = unlimited

	// Circuit breaker; FailureThreshold 0 disables it
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration

	Budget *cost.Tracker // Optional usage budget; nil = unlimited

	Logger *slog.Logger
}

// DefaultConfig returns the default generation client configuration
func DefaultConfig() Config {
	return Config{
		Model:              DefaultModel,
		Timeout:            60 * time.Second,
		MaxConcurrentCalls: 3,
		FailureThreshold:   5,
		SuccessThreshold:   2,
		OpenTimeout:        30 * time.Second,
	}
}

// Client calls the Anthropic Messages API. It does not retry on its own:
// retries are the caller's decision through the recovery controller.
// A spent budget fails calls immediately with a non-retryable error.
type Client struct {
	client         *anthropic.Client
	model          string
	timeout        time.Duration
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
	budget         *cost.Tracker
	logger         *slog.Logger
}

var _ Generator = (*Client)(nil)

// NewClient creates a generation client
func NewClient(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	var breaker *CircuitBreaker
	if cfg.FailureThreshold > 0 {
		breaker = NewCircuitBreaker(cfg.FailureThreshold, cfg.SuccessThreshold, cfg.OpenTimeout, logger)
	}

	var sem *semaphore.Weighted
	if cfg.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentCalls))
	}

	return &Client{
		client:         &client,
		model:          model,
		timeout:        timeout,
		circuitBreaker: breaker,
		concurrencySem: sem,
		budget:         cfg.Budget,
		logger:         logger,
	}, nil
}

// Generate sends one message and returns the concatenated text blocks
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.budget != nil {
		if ok, reason := c.budget.CanProceed(); !ok {
			return "", &recovery.AppError{
				Kind:      recovery.KindGenerationService,
				Message:   fmt.Sprintf("%s: %s", req.Operation, reason),
				Retryable: false,
				Err:       ErrBudgetExceeded,
			}
		}
	}

	if c.concurrencySem != nil {
		if err := c.concurrencySem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("failed to acquire generation slot for %s: %w", req.Operation, err)
		}
		defer c.concurrencySem.Release(1)
	}

	if c.circuitBreaker != nil {
		if err := c.circuitBreaker.Allow(); err != nil {
			// Retrying inside the open window cannot succeed
			return "", &recovery.AppError{
				Kind:      recovery.KindGenerationService,
				Message:   fmt.Sprintf("%s: %v", req.Operation, err),
				Retryable: false,
				Err:       err,
			}
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	startTime := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		if c.circuitBreaker != nil {
			c.circuitBreaker.RecordFailure()
		}
		return "", fmt.Errorf("anthropic API call failed (%s): %w", req.Operation, err)
	}
	if c.circuitBreaker != nil {
		c.circuitBreaker.RecordSuccess()
	}

	if c.budget != nil {
		c.budget.RecordUsage(req.Operation, response.Usage.InputTokens, response.Usage.OutputTokens)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	c.logger.Debug("generation call",
		"operation", req.Operation,
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens,
		"duration", time.Since(startTime))

	return text.String(), nil
}
