package deduplication

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/issuepilot/issuepilot/internal/search"
	"github.com/issuepilot/issuepilot/internal/types"
)

// CandidateSearcher finds existing issues that may match a new one
type CandidateSearcher interface {
	Search(ctx context.Context, projectKey, title, description string) search.Result
}

// SimilarityScorer rates candidates against a new issue
type SimilarityScorer interface {
	Score(ctx context.Context, issue types.NewIssue, candidates []types.CandidateIssue) []types.SimilarityResult
}

// Deduplicator runs duplicate checks for new issues.
//
// Example usage:
//
//	dedup, err := NewDeduplicator(searcher, scorer, DefaultConfig(), logger)
//	if err != nil {
//	    return fmt.Errorf("failed to create deduplicator: %w", err)
//	}
//	analysis := dedup.CheckForDuplicates(ctx, "APP", title, description)
//	if analysis.HasPotentialDuplicates {
//	    // hand the analysis to the user before creating anything
//	}
type Deduplicator struct {
	searcher CandidateSearcher
	scorer   SimilarityScorer
	config   Config
	logger   *slog.Logger
}

// NewDeduplicator creates a deduplicator.
//
// Returns an error if either dependency is nil or if config validation fails.
func NewDeduplicator(searcher CandidateSearcher, scorer SimilarityScorer, config Config, logger *slog.Logger) (*Deduplicator, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher cannot be nil")
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{
		searcher: searcher,
		scorer:   scorer,
		config:   config,
		logger:   logger,
	}, nil
}

// Config returns the active configuration
func (d *Deduplicator) Config() Config {
	return d.config
}

// CheckForDuplicates searches the project for issues resembling the new
// one and scores them. It always returns a valid analysis.
func (d *Deduplicator) CheckForDuplicates(ctx context.Context, projectKey, title, description string) (analysis *types.DuplicateAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("duplicate check panicked, allowing creation",
				"project", projectKey, "panic", r)
			analysis = failedAnalysis()
		}
	}()

	found := d.searcher.Search(ctx, projectKey, title, description)
	d.logger.Debug("duplicate candidates found",
		"project", projectKey,
		"count", len(found.Issues),
		"outcome", found.Outcome.String(),
		"keywords", found.Keywords)

	if len(found.Issues) == 0 {
		return &types.DuplicateAnalysis{
			HasPotentialDuplicates: false,
			SimilarIssues:          []types.SimilarityResult{},
			Recommendations:        []string{RecommendationNoCandidates},
		}
	}

	candidates := found.Issues
	if len(candidates) > d.config.MaxCandidates {
		d.logger.Warn("search returned more candidates than will be scored",
			"found", len(candidates),
			"max_candidates", d.config.MaxCandidates,
			"dropped", len(candidates)-d.config.MaxCandidates)
		candidates = candidates[:d.config.MaxCandidates]
	}

	issue := types.NewIssue{ProjectKey: projectKey, Title: title, Description: description}
	scored := d.scorer.Score(ctx, issue, candidates)

	significant := make([]types.SimilarityResult, 0, len(scored))
	for _, r := range scored {
		if r.Similarity > d.config.SimilarityThreshold {
			significant = append(significant, r)
		}
	}
	sort.SliceStable(significant, func(i, j int) bool {
		return significant[i].Similarity > significant[j].Similarity
	})

	d.logger.Info("duplicate check complete",
		"project", projectKey,
		"candidates", len(candidates),
		"scored", len(scored),
		"significant", len(significant))

	return &types.DuplicateAnalysis{
		HasPotentialDuplicates: len(significant) > 0,
		SimilarIssues:          significant,
		Recommendations:        Recommendations(significant, d.config.HighSimilarityThreshold),
	}
}

func failedAnalysis() *types.DuplicateAnalysis {
	return &types.DuplicateAnalysis{
		HasPotentialDuplicates: false,
		SimilarIssues:          []types.SimilarityResult{},
		Recommendations:        []string{RecommendationCheckFailed},
	}
}
