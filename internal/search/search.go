// Package search finds existing tracker issues that may duplicate a new one.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/issuepilot/issuepilot/internal/ai"
	"github.com/issuepilot/issuepilot/internal/tracker"
	"github.com/issuepilot/issuepilot/internal/types"
)

// Outcome tells which search path produced a Result
type Outcome int

const (
	// OutcomePrimary means the keyword query succeeded
	OutcomePrimary Outcome = iota
	// OutcomeFallback means the keyword query failed and the title-word query succeeded
	OutcomeFallback
	// OutcomeFailed means both queries failed; Issues is empty
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePrimary:
		return "primary"
	case OutcomeFallback:
		return "fallback"
	default:
		return "failed"
	}
}

// Result is the outcome of one candidate search
type Result struct {
	Issues   []types.CandidateIssue
	Outcome  Outcome
	Keywords []string
}

const fallbackTitleWords = 3

// Searcher queries the tracker for duplicate candidates
type Searcher struct {
	gateway    tracker.Gateway
	generator  ai.Generator
	maxResults int
	logger     *slog.Logger
}

// NewSearcher creates a Searcher. generator may be nil, in which case
// keywords always come from the local heuristic.
func NewSearcher(gateway tracker.Gateway, generator ai.Generator, maxResults int, logger *slog.Logger) *Searcher {
	if maxResults <= 0 {
		maxResults = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		gateway:    gateway,
		generator:  generator,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Search returns candidate issues for a new issue. It never fails: when
// the keyword query errors it retries with the first title words in the
// free-text dialect, and when that errors too it returns an empty result.
func (s *Searcher) Search(ctx context.Context, projectKey, title, description string) Result {
	keywords := s.ExtractKeywords(ctx, title, description)

	issues, err := s.gateway.Search(ctx, tracker.SearchRequest{
		ProjectKey: projectKey,
		Query:      tracker.TextMatchJQL(projectKey, keywords),
		Dialect:    tracker.DialectJQL,
		Fields:     tracker.DefaultFields,
		MaxResults: s.maxResults,
	})
	if err == nil {
		return Result{Issues: issues, Outcome: OutcomePrimary, Keywords: keywords}
	}
	s.logger.Warn("keyword search failed, falling back to title words",
		"project", projectKey, "error", err)

	words := strings.Fields(title)
	if len(words) > fallbackTitleWords {
		words = words[:fallbackTitleWords]
	}
	if len(words) == 0 {
		return Result{Outcome: OutcomeFailed, Keywords: keywords}
	}

	issues, err = s.gateway.Search(ctx, tracker.SearchRequest{
		ProjectKey: projectKey,
		Query:      strings.Join(words, " "),
		Dialect:    tracker.DialectText,
		Fields:     tracker.DefaultFields,
		MaxResults: s.maxResults,
	})
	if err != nil {
		s.logger.Warn("fallback search failed, continuing without candidates",
			"project", projectKey, "error", err)
		return Result{Outcome: OutcomeFailed, Keywords: keywords}
	}
	return Result{Issues: issues, Outcome: OutcomeFallback, Keywords: keywords}
}
