package search

import (
	"context"
	"errors"
	"testing"

	"github.com/issuepilot/issuepilot/internal/ai"
	"github.com/issuepilot/issuepilot/internal/tracker"
	"github.com/issuepilot/issuepilot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway answers searches per dialect
type fakeGateway struct {
	jqlIssues  []types.CandidateIssue
	jqlErr     error
	textIssues []types.CandidateIssue
	textErr    error
	requests   []tracker.SearchRequest
}

func (g *fakeGateway) Search(ctx context.Context, req tracker.SearchRequest) ([]types.CandidateIssue, error) {
	g.requests = append(g.requests, req)
	if req.Dialect == tracker.DialectText {
		return g.textIssues, g.textErr
	}
	return g.jqlIssues, g.jqlErr
}

func (g *fakeGateway) CreateIssue(ctx context.Context, draft types.IssueDraft) (*types.CreateResult, error) {
	return nil, errors.New("not supported")
}

func failingGenerator() ai.Generator {
	return ai.GeneratorFunc(func(ctx context.Context, req ai.Request) (string, error) {
		return "", errors.New("anthropic API call failed: overloaded")
	})
}

func replyGenerator(reply string) ai.Generator {
	return ai.GeneratorFunc(func(ctx context.Context, req ai.Request) (string, error) {
		return reply, nil
	})
}

func TestHeuristicKeywords(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        []string
	}{
		{"punctuation stripped", "Login fails!!!", "", []string{"login", "fails"}},
		{"short and numeric dropped", "API 500 on v2 users 2024", "", []string{"users"}},
		{"capped at five", "alpha bravo charlie delta echoes foxtrot", "golf", []string{"alpha", "bravo", "charlie", "delta", "echoes"}},
		{"description included", "Crash", "Segfault when saving", []string{"crash", "segfault", "when", "saving"}},
		{"nothing qualifies", "a b !!! 12345", "", []string{"issue"}},
		{"repeats kept in order", "Sync sync SYNC broken", "", []string{"sync", "sync", "sync", "broken"}},
		{"repeats count toward five", "sync sync sync sync sync sync", "", []string{"sync", "sync", "sync", "sync", "sync"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeuristicKeywords(tt.title, tt.description))
		})
	}
}

func TestExtractKeywordsFallsBackOnGenerationFailure(t *testing.T) {
	s := NewSearcher(&fakeGateway{}, failingGenerator(), 0, nil)

	got := s.ExtractKeywords(context.Background(), "Login fails!!!", "")

	assert.Equal(t, []string{"login", "fails"}, got)
	for _, kw := range got {
		assert.Greater(t, len(kw), 3)
	}
}

func TestExtractKeywordsFromModel(t *testing.T) {
	s := NewSearcher(&fakeGateway{}, replyGenerator("```json\n[\"SSO\", \"login\", \"sso\", \" \", \"okta\"]\n```"), 0, nil)

	assert.Equal(t, []string{"sso", "login", "okta"}, s.ExtractKeywords(context.Background(), "Login fails", ""))
}

func TestExtractKeywordsUnparsableReply(t *testing.T) {
	s := NewSearcher(&fakeGateway{}, replyGenerator("I think the keywords are login and sso"), 0, nil)
	assert.Equal(t, []string{"login", "fails"}, s.ExtractKeywords(context.Background(), "Login fails", ""))

	s = NewSearcher(&fakeGateway{}, replyGenerator("[]"), 0, nil)
	assert.Equal(t, []string{"login", "fails"}, s.ExtractKeywords(context.Background(), "Login fails", ""))
}

func TestSearchPrimary(t *testing.T) {
	gw := &fakeGateway{jqlIssues: []types.CandidateIssue{{Key: "APP-1", Summary: "Login broken"}}}
	s := NewSearcher(gw, nil, 15, nil)

	res := s.Search(context.Background(), "APP", "Login fails", "")

	assert.Equal(t, OutcomePrimary, res.Outcome)
	require.Len(t, res.Issues, 1)
	require.Len(t, gw.requests, 1)
	assert.Equal(t, `project = "APP" AND (text ~ "login" OR text ~ "fails") ORDER BY updated DESC`, gw.requests[0].Query)
	assert.Equal(t, 15, gw.requests[0].MaxResults)
}

func TestSearchFallsBackToTitleWords(t *testing.T) {
	gw := &fakeGateway{
		jqlErr:     errors.New("gateway returned 400: bad jql"),
		textIssues: []types.CandidateIssue{{Key: "APP-3"}},
	}
	s := NewSearcher(gw, nil, 0, nil)

	res := s.Search(context.Background(), "APP", "Checkout page   crashes on submit", "")

	assert.Equal(t, OutcomeFallback, res.Outcome)
	require.Len(t, gw.requests, 2)
	assert.Equal(t, tracker.DialectText, gw.requests[1].Dialect)
	assert.Equal(t, "Checkout page crashes", gw.requests[1].Query)
	assert.Equal(t, "APP", gw.requests[1].ProjectKey)
	assert.Len(t, res.Issues, 1)
}

func TestSearchBothPathsFail(t *testing.T) {
	gw := &fakeGateway{jqlErr: errors.New("connection refused"), textErr: errors.New("connection refused")}
	s := NewSearcher(gw, failingGenerator(), 0, nil)

	res := s.Search(context.Background(), "APP", "Checkout crashes", "")

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Empty(t, res.Issues)
}

func TestSearchEmptyTitleSkipsFallback(t *testing.T) {
	gw := &fakeGateway{jqlErr: errors.New("boom")}
	s := NewSearcher(gw, nil, 0, nil)

	res := s.Search(context.Background(), "APP", "   ", "")

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Len(t, gw.requests, 1)
}
