package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/issuepilot/issuepilot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{BaseURL: srv.URL + "/", Token: "secret", RequestsPerSecond: 100, Burst: 10})
	require.NoError(t, err)
	return client
}

func TestSearchJQLDialect(t *testing.T) {
	var payload map[string]any
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &payload))
		_, _ = io.WriteString(w, `{"issues": [
			{"key": "APP-1", "fields": {"summary": "Login fails", "description": "SSO broken",
			  "status": {"name": "Open"}, "priority": {"name": "High"}}},
			{"key": "APP-2", "fields": {"summary": "Logout slow", "status": {"name": "Done"}}},
			{"fields": {"summary": "no key, skipped"}}
		]}`)
	})

	issues, err := client.Search(context.Background(), SearchRequest{
		Query:      `project = "APP"`,
		Dialect:    DialectJQL,
		MaxResults: 10,
	})

	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, types.CandidateIssue{
		Key: "APP-1", Summary: "Login fails", Description: "SSO broken", Status: "Open", Priority: "High",
	}, issues[0])
	assert.Equal(t, "", issues[1].Priority)
	assert.Equal(t, `project = "APP"`, payload["jql"])
	assert.EqualValues(t, 10, payload["maxResults"])
	assert.NotContains(t, payload, "text")
}

func TestSearchTextDialectFlatShape(t *testing.T) {
	var payload map[string]any
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &payload))
		_, _ = io.WriteString(w, `[{"key": "APP-9", "summary": "Login page", "status": "In Progress", "priority": "Low"}]`)
	})

	issues, err := client.Search(context.Background(), SearchRequest{
		ProjectKey: "APP",
		Query:      "login page broken",
		Dialect:    DialectText,
	})

	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "In Progress", issues[0].Status)
	assert.Equal(t, "login page broken", payload["text"])
	assert.Equal(t, "APP", payload["project"])
	assert.EqualValues(t, 20, payload["maxResults"])
}

func TestSearchHTTPError(t *testing.T) {
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": "bad jql"}`)
	})

	_, err := client.Search(context.Background(), SearchRequest{Query: "???"})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 400, httpErr.StatusCode())
	assert.Contains(t, err.Error(), "gateway returned 400")
}

func TestSearchMalformedBody(t *testing.T) {
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total": 3}`)
	})
	_, err := client.Search(context.Background(), SearchRequest{Query: "x"})
	assert.ErrorContains(t, err, "no issues list")
}

func TestDecodeIssuesNestedAndDocumentDescription(t *testing.T) {
	body := []byte(`{"data": {"issues": [{"key": "OPS-3", "fields": {
		"summary": "Disk full",
		"description": {"type": "doc", "content": [
			{"type": "paragraph", "content": [{"type": "text", "text": "Node 4"}, {"type": "text", "text": "ran out"}]}
		]}}}]}}`)

	issues, err := decodeIssues(body)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Node 4 ran out", issues[0].Description)

	_, err = decodeIssues([]byte("not json"))
	assert.Error(t, err)
}

func TestCreateIssue(t *testing.T) {
	var payload struct {
		Fields map[string]any `json:"fields"`
	}
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/issues", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &payload))
		_, _ = io.WriteString(w, `{"success": true, "key": "APP-42"}`)
	})

	result, err := client.CreateIssue(context.Background(), types.IssueDraft{
		ProjectKey: "APP",
		Summary:    "Login fails on Safari",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "APP-42", result.Key)
	assert.Equal(t, "Login fails on Safari", payload.Fields["summary"])
	assert.Equal(t, map[string]any{"name": "Task"}, payload.Fields["issuetype"])
	assert.Equal(t, map[string]any{"name": "Medium"}, payload.Fields["priority"])
	assert.NotContains(t, payload.Fields, "assignee")
}

func TestDecodeCreateResult(t *testing.T) {
	r, err := decodeCreateResult([]byte(`{"success": false, "error": "project archived"}`))
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "project archived", r.Message)

	r, err = decodeCreateResult([]byte(`{"key": "APP-7"}`))
	require.NoError(t, err)
	assert.True(t, r.Success)
}

func TestTextMatchJQL(t *testing.T) {
	assert.Equal(t,
		`project = "APP" AND (text ~ "login" OR text ~ "sso") ORDER BY updated DESC`,
		TextMatchJQL("APP", []string{"login", " ", "sso"}))
	assert.Equal(t, `project = "APP" ORDER BY updated DESC`, TextMatchJQL("APP", nil))
	assert.Equal(t, `"say \"hi\" \\o/"`, QuoteJQL(`say "hi" \o/`))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}
