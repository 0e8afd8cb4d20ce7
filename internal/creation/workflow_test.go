package creation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/issuepilot/issuepilot/internal/recovery"
	"github.com/issuepilot/issuepilot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	analysis *types.DuplicateAnalysis
	calls    int
}

func (f *fakeChecker) CheckForDuplicates(ctx context.Context, projectKey, title, description string) *types.DuplicateAnalysis {
	f.calls++
	return f.analysis
}

type fakeCreator struct {
	errs   []error
	calls  int
	drafts []types.IssueDraft
}

func (f *fakeCreator) CreateIssue(ctx context.Context, draft types.IssueDraft) (*types.CreateResult, error) {
	f.drafts = append(f.drafts, draft)
	f.calls++
	if len(f.errs) >= f.calls && f.errs[f.calls-1] != nil {
		return nil, f.errs[f.calls-1]
	}
	return &types.CreateResult{Success: true, Key: "APP-42", Message: "created"}, nil
}

type fakePresenter struct {
	decision  types.Decision
	confirm   bool
	presented int
	reviewed  int
}

func (f *fakePresenter) Present(ctx context.Context, draft types.IssueDraft, analysis *types.DuplicateAnalysis) (types.Decision, error) {
	f.presented++
	return f.decision, nil
}

func (f *fakePresenter) ConfirmAfterReview(ctx context.Context, draft types.IssueDraft, analysis *types.DuplicateAnalysis) (bool, error) {
	f.reviewed++
	return f.confirm, nil
}

type yesPrompter struct{ asked int }

func (p *yesPrompter) ShowError(*recovery.AppError, []string) {}
func (p *yesPrompter) ConfirmRetry(context.Context, *recovery.AppError, int, int) (bool, error) {
	p.asked++
	return true, nil
}
func (p *yesPrompter) Countdown(time.Duration) {}

var draft = types.IssueDraft{ProjectKey: "APP", Summary: "Login fails on Safari", Description: "SSO loop"}

func duplicates() *types.DuplicateAnalysis {
	return &types.DuplicateAnalysis{
		HasPotentialDuplicates: true,
		SimilarIssues:          []types.SimilarityResult{{Key: "APP-1", Similarity: 0.9}},
		Recommendations:        []string{"Review the similar issues listed above."},
	}
}

func clean() *types.DuplicateAnalysis {
	return &types.DuplicateAnalysis{Recommendations: []string{"Safe to proceed."}}
}

func TestCreateWithoutDuplicatesSkipsPresenter(t *testing.T) {
	creator := &fakeCreator{}
	presenter := &fakePresenter{}
	w, err := NewWorkflow(&fakeChecker{analysis: clean()}, creator, presenter)
	require.NoError(t, err)

	outcome, result, err := w.Create(context.Background(), draft)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, "APP-42", result.Key)
	assert.Equal(t, 0, presenter.presented)
	require.Len(t, creator.drafts, 1)
	assert.Equal(t, types.DefaultIssueType, creator.drafts[0].IssueType)
	assert.Equal(t, types.DefaultPriority, creator.drafts[0].Priority)
}

func TestCreateDecisions(t *testing.T) {
	tests := []struct {
		name        string
		decision    types.Decision
		confirm     bool
		wantOutcome Outcome
		wantCreates int
		wantReviews int
	}{
		{"proceed anyway", types.DecisionProceed, false, OutcomeCreated, 1, 0},
		{"review then confirm", types.DecisionProceedAfterReview, true, OutcomeCreated, 1, 1},
		{"review then decline", types.DecisionProceedAfterReview, false, OutcomeCancelled, 0, 1},
		{"cancel", types.DecisionCancel, false, OutcomeCancelled, 0, 0},
		{"restart", types.DecisionRestart, false, OutcomeRestart, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &fakeCreator{}
			presenter := &fakePresenter{decision: tt.decision, confirm: tt.confirm}
			w, err := NewWorkflow(&fakeChecker{analysis: duplicates()}, creator, presenter)
			require.NoError(t, err)

			outcome, _, err := w.Create(context.Background(), draft)

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, outcome)
			assert.Equal(t, tt.wantCreates, creator.calls)
			assert.Equal(t, tt.wantReviews, presenter.reviewed)
			assert.Equal(t, 1, presenter.presented)
		})
	}
}

func TestCreateInvalidDecision(t *testing.T) {
	w, err := NewWorkflow(&fakeChecker{analysis: duplicates()}, &fakeCreator{}, &fakePresenter{decision: "maybe"})
	require.NoError(t, err)

	outcome, _, err := w.Create(context.Background(), draft)

	assert.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
}

func TestCreateValidationError(t *testing.T) {
	checker := &fakeChecker{analysis: clean()}
	w, err := NewWorkflow(checker, &fakeCreator{}, &fakePresenter{})
	require.NoError(t, err)

	outcome, _, err := w.Create(context.Background(), types.IssueDraft{ProjectKey: "APP"})

	assert.Equal(t, OutcomeFailed, outcome)
	var appErr *recovery.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, recovery.KindValidation, appErr.Kind)
	assert.False(t, appErr.Retryable)
	assert.Equal(t, 0, checker.calls)
}

func TestCreateRetriesThroughController(t *testing.T) {
	prompter := &yesPrompter{}
	controller, err := recovery.NewController(prompter, recovery.DefaultControllerConfig(),
		recovery.WithSleep(func(context.Context, time.Duration) error { return nil }))
	require.NoError(t, err)

	creator := &fakeCreator{errs: []error{errors.New("gateway returned 404: project not found")}}
	w, err := NewWorkflow(&fakeChecker{analysis: clean()}, creator, &fakePresenter{}, WithController(controller))
	require.NoError(t, err)

	outcome, result, err := w.Create(context.Background(), draft)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, "APP-42", result.Key)
	assert.Equal(t, 2, creator.calls)
	assert.Equal(t, 1, prompter.asked)
	assert.Equal(t, 0, controller.State().Attempts(RetryLabel))
}

func TestCreateNonRetryableFailurePropagates(t *testing.T) {
	prompter := &yesPrompter{}
	controller, err := recovery.NewController(prompter, recovery.DefaultControllerConfig(),
		recovery.WithSleep(func(context.Context, time.Duration) error { return nil }))
	require.NoError(t, err)

	cause := errors.New("gateway returned 401: unauthorized")
	creator := &fakeCreator{errs: []error{cause}}
	w, err := NewWorkflow(&fakeChecker{analysis: clean()}, creator, &fakePresenter{}, WithController(controller))
	require.NoError(t, err)

	outcome, _, err := w.Create(context.Background(), draft)

	assert.Equal(t, OutcomeFailed, outcome)
	assert.Same(t, cause, err)
	assert.Equal(t, 1, creator.calls)
	assert.Equal(t, 0, prompter.asked)
}

func TestNewWorkflowRequiresDependencies(t *testing.T) {
	_, err := NewWorkflow(nil, &fakeCreator{}, &fakePresenter{})
	assert.Error(t, err)
	_, err = NewWorkflow(&fakeChecker{}, nil, &fakePresenter{})
	assert.Error(t, err)
	_, err = NewWorkflow(&fakeChecker{}, &fakeCreator{}, nil)
	assert.Error(t, err)
}
