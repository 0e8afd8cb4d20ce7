// Package similarity rates existing issues against a new one using the
// generation service, in small batches.
package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/issuepilot/issuepilot/internal/ai"
	"github.com/issuepilot/issuepilot/internal/recovery"
	"github.com/issuepilot/issuepilot/internal/types"
)

// Placeholder results for comparisons that could not be scored. The score
// is low but non-zero so these survive the positive filter yet never reach
// the duplicate threshold.
const (
	FallbackScore        = 0.1
	ReasonAnalysisFailed = "Analysis failed"
	ReasonUnavailable    = "Unable to perform detailed analysis."
)

// RetryLabel is the recovery label used for batch scoring calls
const RetryLabel = "similarity_batch"

// Config holds scorer settings
type Config struct {
	BatchSize  int           // Candidates per generation call (default: 5)
	BatchDelay time.Duration // Pause between batches (default: 500ms)
	MaxRetries int           // Retries per batch through the recovery controller
}

// DefaultConfig returns the default scorer configuration
func DefaultConfig() Config {
	return Config{
		BatchSize:  5,
		BatchDelay: 500 * time.Millisecond,
		MaxRetries: 3,
	}
}

// BatchOutcome is the explicit result variant of one batch
type BatchOutcome int

const (
	// BatchScored means the reply was parsed; individual entries may still be placeholders
	BatchScored BatchOutcome = iota
	// BatchDegraded means the call failed or the reply was unparsable
	BatchDegraded
)

func (o BatchOutcome) String() string {
	if o == BatchScored {
		return "scored"
	}
	return "degraded"
}

// BatchReport describes how one batch was handled
type BatchReport struct {
	Index   int // 0-based batch number
	Size    int
	Outcome BatchOutcome
	Err     error // call or parse failure for degraded batches
}

// Scorer produces SimilarityResults for candidate issues
type Scorer struct {
	generator  ai.Generator
	controller *recovery.Controller
	config     Config
	sleep      recovery.SleepFunc
	logger     *slog.Logger
}

// Option customizes a Scorer
type Option func(*Scorer)

// WithController routes every batch call through the retry controller
func WithController(c *recovery.Controller) Option {
	return func(s *Scorer) { s.controller = c }
}

// WithSleep replaces the inter-batch wait
func WithSleep(fn recovery.SleepFunc) Option {
	return func(s *Scorer) { s.sleep = fn }
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScorer creates a scorer
func NewScorer(generator ai.Generator, cfg Config, opts ...Option) (*Scorer, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch_size must be positive (got %d)", cfg.BatchSize)
	}
	if cfg.BatchDelay < 0 {
		return nil, fmt.Errorf("batch_delay cannot be negative (got %v)", cfg.BatchDelay)
	}
	s := &Scorer{
		generator: generator,
		config:    cfg,
		sleep:     sleepContext,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

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

// Score rates every candidate against the new issue. Results with a
// positive similarity are returned highest first; ties keep batch order.
// Score never fails: unscorable comparisons get placeholder results.
func (s *Scorer) Score(ctx context.Context, issue types.NewIssue, candidates []types.CandidateIssue) []types.SimilarityResult {
	results, _ := s.ScoreBatches(ctx, issue, candidates)
	return results
}

// ScoreBatches is Score plus a report per batch
func (s *Scorer) ScoreBatches(ctx context.Context, issue types.NewIssue, candidates []types.CandidateIssue) ([]types.SimilarityResult, []BatchReport) {
	all := make([]types.SimilarityResult, 0, len(candidates))
	var reports []BatchReport

	for start, batchIndex := 0, 0; start < len(candidates); start, batchIndex = start+s.config.BatchSize, batchIndex+1 {
		end := start + s.config.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		if start > 0 && s.config.BatchDelay > 0 {
			if err := s.sleep(ctx, s.config.BatchDelay); err != nil {
				results := degraded(batch, ReasonUnavailable)
				all = append(all, results...)
				reports = append(reports, BatchReport{Index: batchIndex, Size: len(batch), Outcome: BatchDegraded, Err: err})
				continue
			}
		}

		results, report := s.scoreBatch(ctx, issue, batch, batchIndex)
		all = append(all, results...)
		reports = append(reports, report)
	}

	positive := all[:0]
	for _, r := range all {
		if r.Similarity > 0 {
			positive = append(positive, r)
		}
	}
	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].Similarity > positive[j].Similarity
	})
	return positive, reports
}

func (s *Scorer) scoreBatch(ctx context.Context, issue types.NewIssue, batch []types.CandidateIssue, batchIndex int) ([]types.SimilarityResult, BatchReport) {
	report := BatchReport{Index: batchIndex, Size: len(batch)}

	req := ai.Request{
		Operation:   "similarity_batch",
		System:      systemPrompt,
		Prompt:      buildBatchPrompt(issue, batch),
		MaxTokens:   maxTokensFor(len(batch)),
		Temperature: 0.1,
	}
	reply, err := recovery.Do(ctx, s.controller, RetryLabel, s.config.MaxRetries, func(ctx context.Context) (string, error) {
		return s.generator.Generate(ctx, req)
	})
	if err != nil {
		s.logger.Warn("similarity batch failed, using placeholder scores",
			"batch", batchIndex, "size", len(batch), "error", err)
		report.Outcome, report.Err = BatchDegraded, err
		return degraded(batch, ReasonUnavailable), report
	}

	entries, ok := ParseReply(reply)
	if !ok {
		s.logger.Warn("similarity reply unparsable, using placeholder scores",
			"batch", batchIndex, "preview", preview(reply))
		report.Outcome, report.Err = BatchDegraded, fmt.Errorf("unparsable similarity reply")
		return degraded(batch, ReasonUnavailable), report
	}

	byIndex := make(map[int]ScoredEntry, len(entries))
	for _, e := range entries {
		if _, dup := byIndex[e.Index]; !dup {
			byIndex[e.Index] = e
		}
	}

	results := make([]types.SimilarityResult, 0, len(batch))
	for i, candidate := range batch {
		entry, found := byIndex[i+1]
		if !found || entry.Similarity == nil {
			results = append(results, types.NewSimilarityResult(candidate, FallbackScore, ReasonAnalysisFailed))
			continue
		}
		reason := entry.Reason
		if reason == "" {
			reason = "No rationale provided"
		}
		results = append(results, types.NewSimilarityResult(candidate, *entry.Similarity, reason))
	}

	report.Outcome = BatchScored
	return results, report
}

func degraded(batch []types.CandidateIssue, reason string) []types.SimilarityResult {
	results := make([]types.SimilarityResult, len(batch))
	for i, c := range batch {
		results[i] = types.NewSimilarityResult(c, FallbackScore, reason)
	}
	return results
}

// maxTokensFor sizes the reply budget: about 100 tokens per entry plus overhead
func maxTokensFor(n int) int {
	tokens := n*120 + 200
	if tokens < 500 {
		tokens = 500
	}
	return tokens
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
