// Package creation files new issues after a duplicate check and the
// user's decision on any matches.
package creation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/issuepilot/issuepilot/internal/recovery"
	"github.com/issuepilot/issuepilot/internal/types"
)

// RetryLabel is the recovery label used for create-issue calls
const RetryLabel = "create_issue"

// Outcome is how a creation attempt ended
type Outcome int

const (
	// OutcomeCreated means the gateway accepted the issue
	OutcomeCreated Outcome = iota
	// OutcomeCancelled means the user chose not to create the issue
	OutcomeCancelled
	// OutcomeRestart means the user wants to start over with a more specific description
	OutcomeRestart
	// OutcomeFailed means validation or the create call failed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeRestart:
		return "restart"
	default:
		return "failed"
	}
}

// DuplicateChecker analyzes a new issue against existing ones
type DuplicateChecker interface {
	CheckForDuplicates(ctx context.Context, projectKey, title, description string) *types.DuplicateAnalysis
}

// IssueCreator submits a draft to the tracker
type IssueCreator interface {
	CreateIssue(ctx context.Context, draft types.IssueDraft) (*types.CreateResult, error)
}

// Presenter shows a duplicate analysis to the user and collects a decision
type Presenter interface {
	// Present renders the analysis and returns one of the four decisions
	Present(ctx context.Context, draft types.IssueDraft, analysis *types.DuplicateAnalysis) (types.Decision, error)
	// ConfirmAfterReview shows each match in detail and asks again
	ConfirmAfterReview(ctx context.Context, draft types.IssueDraft, analysis *types.DuplicateAnalysis) (bool, error)
}

// Workflow runs the duplicate check and creates the issue
type Workflow struct {
	checker    DuplicateChecker
	creator    IssueCreator
	presenter  Presenter
	controller *recovery.Controller
	maxRetries int
	logger     *slog.Logger
}

// Option customizes a Workflow
type Option func(*Workflow)

// WithController routes the create call through the retry controller
func WithController(c *recovery.Controller) Option {
	return func(w *Workflow) {
		w.controller = c
		if c != nil {
			w.maxRetries = c.MaxRetries()
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorkflow creates a creation workflow
func NewWorkflow(checker DuplicateChecker, creator IssueCreator, presenter Presenter, opts ...Option) (*Workflow, error) {
	if checker == nil {
		return nil, fmt.Errorf("duplicate checker cannot be nil")
	}
	if creator == nil {
		return nil, fmt.Errorf("issue creator cannot be nil")
	}
	if presenter == nil {
		return nil, fmt.Errorf("presenter cannot be nil")
	}
	w := &Workflow{
		checker:   checker,
		creator:   creator,
		presenter: presenter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Create validates the draft, checks for duplicates and, if the user
// agrees, submits it. The presenter is only consulted when the analysis
// reports potential duplicates. Validation failures are returned as
// recovery.KindValidation errors.
func (w *Workflow) Create(ctx context.Context, draft types.IssueDraft) (Outcome, *types.CreateResult, error) {
	draft = draft.WithDefaults()
	if err := draft.Validate(); err != nil {
		return OutcomeFailed, nil, recovery.NewValidationError(err.Error())
	}

	analysis := w.checker.CheckForDuplicates(ctx, draft.ProjectKey, draft.Summary, draft.Description)

	if analysis != nil && analysis.HasPotentialDuplicates {
		decision, err := w.presenter.Present(ctx, draft, analysis)
		if err != nil {
			return OutcomeFailed, nil, fmt.Errorf("duplicate decision: %w", err)
		}
		proceed, outcome, err := w.resolve(ctx, decision, draft, analysis)
		if err != nil {
			return OutcomeFailed, nil, err
		}
		if !proceed {
			w.logger.Info("issue creation stopped after duplicate review",
				"project", draft.ProjectKey, "decision", string(decision), "outcome", outcome.String())
			return outcome, nil, nil
		}
	}

	result, err := recovery.Do(ctx, w.controller, RetryLabel, w.maxRetries, func(ctx context.Context) (*types.CreateResult, error) {
		res, err := w.creator.CreateIssue(ctx, draft)
		if err != nil {
			return nil, err
		}
		if !res.Success {
			return nil, fmt.Errorf("gateway rejected issue: %s", res.Message)
		}
		return res, nil
	})
	if err != nil {
		return OutcomeFailed, nil, err
	}

	w.logger.Info("issue created", "project", draft.ProjectKey, "key", result.Key)
	return OutcomeCreated, result, nil
}

// resolve maps a decision to the proceed signal. When proceed is false
// the outcome says why.
func (w *Workflow) resolve(ctx context.Context, decision types.Decision, draft types.IssueDraft, analysis *types.DuplicateAnalysis) (bool, Outcome, error) {
	switch decision {
	case types.DecisionProceed:
		return true, OutcomeCreated, nil
	case types.DecisionProceedAfterReview:
		ok, err := w.presenter.ConfirmAfterReview(ctx, draft, analysis)
		if err != nil {
			return false, OutcomeFailed, fmt.Errorf("review confirmation: %w", err)
		}
		if !ok {
			return false, OutcomeCancelled, nil
		}
		return true, OutcomeCreated, nil
	case types.DecisionCancel:
		return false, OutcomeCancelled, nil
	case types.DecisionRestart:
		return false, OutcomeRestart, nil
	default:
		return false, OutcomeFailed, fmt.Errorf("invalid decision %q", decision)
	}
}
