package similarity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/issuepilot/issuepilot/internal/ai"
	"github.com/issuepilot/issuepilot/internal/recovery"
	"github.com/issuepilot/issuepilot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var newIssue = types.NewIssue{ProjectKey: "APP", Title: "Login fails on Safari", Description: "SSO redirect loops"}

func candidates(n int) []types.CandidateIssue {
	out := make([]types.CandidateIssue, n)
	for i := range out {
		out[i] = types.CandidateIssue{
			Key:     fmt.Sprintf("APP-%d", i+1),
			Summary: fmt.Sprintf("Existing issue %d", i+1),
			Status:  "Open",
		}
	}
	return out
}

// replyFor builds a well-formed reply giving every entry the same score
func replyFor(n int, similarity float64) string {
	entries := make([]string, n)
	for i := range entries {
		entries[i] = fmt.Sprintf(`{"index": %d, "similarity": %g, "reason": "match %d"}`, i+1, similarity, i+1)
	}
	return `{"results": [` + strings.Join(entries, ",") + `]}`
}

type scriptedGenerator struct {
	calls   int
	replies []func(req ai.Request) (string, error)
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, req ai.Request) (string, error) {
	g.prompts = append(g.prompts, req.Prompt)
	fn := g.replies[g.calls]
	g.calls++
	return fn(req)
}

func fixed(reply string) func(ai.Request) (string, error) {
	return func(ai.Request) (string, error) { return reply, nil }
}

func failing(msg string) func(ai.Request) (string, error) {
	return func(ai.Request) (string, error) { return "", errors.New(msg) }
}

func newTestScorer(t *testing.T, g ai.Generator, opts ...Option) (*Scorer, *[]time.Duration) {
	t.Helper()
	var slept []time.Duration
	opts = append([]Option{WithSleep(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})}, opts...)
	s, err := NewScorer(g, DefaultConfig(), opts...)
	require.NoError(t, err)
	return s, &slept
}

func TestScoreSecondBatchFails(t *testing.T) {
	g := &scriptedGenerator{replies: []func(ai.Request) (string, error){
		fixed(replyFor(5, 0.75)),
		failing("anthropic API call failed: overloaded"),
	}}
	s, slept := newTestScorer(t, g)

	results, reports := s.ScoreBatches(context.Background(), newIssue, candidates(7))

	require.Len(t, results, 7)
	for _, r := range results[:5] {
		assert.Equal(t, 0.75, r.Similarity)
		assert.True(t, strings.HasPrefix(r.Reason, "match"))
	}
	for _, r := range results[5:] {
		assert.Equal(t, FallbackScore, r.Similarity)
		assert.Equal(t, ReasonUnavailable, r.Reason)
	}
	assert.Equal(t, "APP-6", results[5].Key)
	assert.Equal(t, "APP-7", results[6].Key)

	require.Len(t, reports, 2)
	assert.Equal(t, BatchScored, reports[0].Outcome)
	assert.Equal(t, BatchDegraded, reports[1].Outcome)
	assert.Equal(t, 2, reports[1].Size)

	// One delay between the two batches, none before or after
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *slept)
}

func TestScoreDelayOnlyBetweenBatches(t *testing.T) {
	g := &scriptedGenerator{replies: []func(ai.Request) (string, error){
		fixed(replyFor(5, 0.5)), fixed(replyFor(5, 0.5)), fixed(replyFor(1, 0.5)),
	}}
	s, slept := newTestScorer(t, g)

	s.Score(context.Background(), newIssue, candidates(11))

	assert.Equal(t, 3, g.calls)
	assert.Len(t, *slept, 2)

	g = &scriptedGenerator{replies: []func(ai.Request) (string, error){fixed(replyFor(3, 0.5))}}
	s, slept = newTestScorer(t, g)
	s.Score(context.Background(), newIssue, candidates(3))
	assert.Empty(t, *slept)
}

func TestScoreClampsAndFallsBackPerEntry(t *testing.T) {
	reply := "```json\n" + `{"results": [
		{"index": 1, "similarity": 1.7, "reason": "identical"},
		{"index": 2, "similarity": -0.3, "reason": "nothing alike"},
		{"index": 3, "reason": "forgot the score"},
		{"index": 4, "similarity": "0.65", "reason": "stringly typed"},
		{"index": 9, "similarity": 0.99, "reason": "no such candidate"},
		{"similarity": 0.9, "reason": "no index"}
	]}` + "\n```"
	g := &scriptedGenerator{replies: []func(ai.Request) (string, error){fixed(reply)}}
	s, _ := newTestScorer(t, g)

	results := s.Score(context.Background(), newIssue, candidates(5))

	byKey := map[string]types.SimilarityResult{}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 0.0)
		assert.LessOrEqual(t, r.Similarity, 1.0)
		byKey[r.Key] = r
	}

	assert.Equal(t, 1.0, byKey["APP-1"].Similarity)
	assert.NotContains(t, byKey, "APP-2", "zero similarity is filtered out")
	assert.Equal(t, FallbackScore, byKey["APP-3"].Similarity)
	assert.Equal(t, ReasonAnalysisFailed, byKey["APP-3"].Reason)
	assert.Equal(t, 0.65, byKey["APP-4"].Similarity)
	assert.Equal(t, ReasonAnalysisFailed, byKey["APP-5"].Reason)

	assert.Equal(t, "APP-1", results[0].Key)
	assert.Equal(t, "APP-4", results[1].Key)
}

func TestScoreUnparsableReplyDegradesBatch(t *testing.T) {
	g := &scriptedGenerator{replies: []func(ai.Request) (string, error){
		fixed("These all look unrelated to me."),
	}}
	s, _ := newTestScorer(t, g)

	results, reports := s.ScoreBatches(context.Background(), newIssue, candidates(3))

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, FallbackScore, r.Similarity)
		assert.Equal(t, ReasonUnavailable, r.Reason)
	}
	assert.Equal(t, BatchDegraded, reports[0].Outcome)
}

func TestScoreNonFiniteScoresGetPlaceholder(t *testing.T) {
	reply := `{"results": [
		{"index": 1, "similarity": "Infinity", "reason": "x"},
		{"index": 2, "similarity": "NaN", "reason": "x"},
		{"index": 3, "similarity": "1e400", "reason": "x"}
	]}`
	g := &scriptedGenerator{replies: []func(ai.Request) (string, error){fixed(reply)}}
	s, _ := newTestScorer(t, g)

	results := s.Score(context.Background(), newIssue, candidates(3))

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, FallbackScore, r.Similarity, r.Key)
		assert.Equal(t, ReasonAnalysisFailed, r.Reason, r.Key)
	}
}

func TestScoreSortIsStableOnTies(t *testing.T) {
	reply := `[
		{"index": 1, "similarity": 0.4, "reason": "a"},
		{"index": 2, "similarity": 0.8, "reason": "b"},
		{"index": 3, "similarity": 0.4, "reason": "c"},
		{"index": 4, "similarity": 0.8, "reason": "d"}
	]`
	g := &scriptedGenerator{replies: []func(ai.Request) (string, error){fixed(reply)}}
	s, _ := newTestScorer(t, g)

	results := s.Score(context.Background(), newIssue, candidates(4))

	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.Key
	}
	assert.Equal(t, []string{"APP-2", "APP-4", "APP-1", "APP-3"}, keys)
}

func TestScoreNoCandidates(t *testing.T) {
	g := &scriptedGenerator{}
	s, _ := newTestScorer(t, g)

	assert.Empty(t, s.Score(context.Background(), newIssue, nil))
	assert.Equal(t, 0, g.calls)
}

func TestScorePromptNumbersCandidates(t *testing.T) {
	g := &scriptedGenerator{replies: []func(ai.Request) (string, error){fixed(replyFor(2, 0.2))}}
	s, _ := newTestScorer(t, g)

	s.Score(context.Background(), newIssue, candidates(2))

	require.Len(t, g.prompts, 1)
	assert.Contains(t, g.prompts[0], "[1] APP-1")
	assert.Contains(t, g.prompts[0], "[2] APP-2")
	assert.Contains(t, g.prompts[0], "Login fails on Safari")
	assert.Contains(t, g.prompts[0], "0.7-0.89")
}

type acceptingPrompter struct{ prompts int }

func (p *acceptingPrompter) ShowError(*recovery.AppError, []string) {}
func (p *acceptingPrompter) ConfirmRetry(context.Context, *recovery.AppError, int, int) (bool, error) {
	p.prompts++
	return true, nil
}
func (p *acceptingPrompter) Countdown(time.Duration) {}

func TestScoreRetriesBatchThroughController(t *testing.T) {
	p := &acceptingPrompter{}
	controller, err := recovery.NewController(p, recovery.DefaultControllerConfig(),
		recovery.WithSleep(func(context.Context, time.Duration) error { return nil }))
	require.NoError(t, err)

	g := &scriptedGenerator{replies: []func(ai.Request) (string, error){
		failing("anthropic API call failed: overloaded"),
		fixed(replyFor(2, 0.9)),
	}}
	s, _ := newTestScorer(t, g, WithController(controller))

	results := s.Score(context.Background(), newIssue, candidates(2))

	assert.Equal(t, 1, p.prompts)
	require.Len(t, results, 2)
	assert.Equal(t, 0.9, results[0].Similarity)
	assert.Equal(t, 0, controller.State().Attempts(RetryLabel))
}

func TestParseReply(t *testing.T) {
	entries, ok := ParseReply(`{"results": [{"index": 2, "similarity": null, "reason": " x "}]}`)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Index)
	assert.Nil(t, entries[0].Similarity)
	assert.Equal(t, "x", entries[0].Reason)

	entries, ok = ParseReply(`{"results": [
		{"index": 1, "similarity": "Infinity"},
		{"index": 2, "similarity": "NaN"},
		{"index": 3, "similarity": "1e400"},
		{"index": 4, "similarity": "-Inf"}
	]}`)
	require.True(t, ok)
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.Nil(t, e.Similarity, "index %d", e.Index)
	}

	_, ok = ParseReply(`{"verdict": "duplicates"}`)
	assert.False(t, ok)

	_, ok = ParseReply("")
	assert.False(t, ok)
}

func TestNewScorerValidation(t *testing.T) {
	_, err := NewScorer(nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.BatchSize = 0
	_, err = NewScorer(ai.GeneratorFunc(func(context.Context, ai.Request) (string, error) { return "", nil }), cfg)
	assert.Error(t, err)
}
