package main

import (
	"fmt"

	"github.com/issuepilot/issuepilot/internal/ai"
	"github.com/issuepilot/issuepilot/internal/cost"
	"github.com/issuepilot/issuepilot/internal/creation"
	"github.com/issuepilot/issuepilot/internal/deduplication"
	"github.com/issuepilot/issuepilot/internal/recovery"
	"github.com/issuepilot/issuepilot/internal/repl"
	"github.com/issuepilot/issuepilot/internal/search"
	"github.com/issuepilot/issuepilot/internal/similarity"
	"github.com/issuepilot/issuepilot/internal/tracker"
)

// app holds the components of one session. Each session gets its own
// retry controller, and with it its own retry counters.
type app struct {
	console    *repl.Console
	controller *recovery.Controller
	gateway    *tracker.Client
	generator  ai.Generator
	budget     *cost.Tracker
	searcher   *search.Searcher
	dedup      *deduplication.Deduplicator
	workflow   *creation.Workflow
}

// newApp wires the components from the loaded configuration. With
// requireAI false a missing API key is tolerated and keyword extraction
// falls back to the local heuristic; duplicate checks are unavailable.
func newApp(console *repl.Console, requireAI bool) (*app, error) {
	a := &app{console: console}

	controllerCfg, err := cfg.ControllerConfig()
	if err != nil {
		return nil, err
	}
	a.controller, err = recovery.NewController(console, controllerCfg, recovery.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create retry controller: %w", err)
	}

	trackerCfg, err := cfg.TrackerConfig(logger)
	if err != nil {
		return nil, err
	}
	a.gateway, err = tracker.NewClient(trackerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway client: %w", err)
	}

	budgetCfg, err := cfg.BudgetConfig()
	if err != nil {
		return nil, err
	}
	a.budget, err = cost.NewTracker(budgetCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create usage budget: %w", err)
	}

	aiCfg, err := cfg.AIClientConfig(logger)
	if err != nil {
		return nil, err
	}
	aiCfg.Budget = a.budget
	client, err := ai.NewClient(aiCfg)
	switch {
	case err == nil:
		a.generator = client
	case requireAI:
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	default:
		logger.Warn("AI client unavailable, using heuristic keywords", "error", err)
	}

	a.searcher = search.NewSearcher(a.gateway, a.generator, cfg.Gateway.MaxResults, logger)
	if a.generator == nil {
		return a, nil
	}

	dedupCfg, err := cfg.DeduplicationConfig()
	if err != nil {
		return nil, err
	}
	scorer, err := similarity.NewScorer(a.generator, dedupCfg.ScorerConfig(),
		similarity.WithController(a.controller),
		similarity.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}
	a.dedup, err = deduplication.NewDeduplicator(a.searcher, scorer, dedupCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create deduplicator: %w", err)
	}
	a.workflow, err = creation.NewWorkflow(a.dedup, a.gateway, console,
		creation.WithController(a.controller),
		creation.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}
	return a, nil
}
