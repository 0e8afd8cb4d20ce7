// Package tracker is the HTTP client for the issue-tracker automation
// gateway. The gateway fronts Jira; its contract is consumed here, not
// reimplemented.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/issuepilot/issuepilot/internal/types"
	"golang.org/x/time/rate"
)

// Dialect selects how the gateway interprets a search query
type Dialect int

const (
	// DialectJQL is a full structured query
	DialectJQL Dialect = iota
	// DialectText is a simplified free-text query
	DialectText
)

func (d Dialect) String() string {
	if d == DialectText {
		return "text"
	}
	return "jql"
}

// DefaultFields are the issue fields requested from search
var DefaultFields = []string{"key", "summary", "description", "status", "priority"}

// SearchRequest is one call to the gateway search endpoint
type SearchRequest struct {
	ProjectKey string // Used by the text dialect to scope results
	Query      string
	Dialect    Dialect
	Fields     []string
	MaxResults int
}

// Gateway is the subset of the tracker gateway the assistant consumes
type Gateway interface {
	Search(ctx context.Context, req SearchRequest) ([]types.CandidateIssue, error)
	CreateIssue(ctx context.Context, draft types.IssueDraft) (*types.CreateResult, error)
}

// HTTPError is returned for non-2xx gateway responses
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("gateway returned %d", e.Status)
	}
	return fmt.Sprintf("gateway returned %d: %s", e.Status, body)
}

// StatusCode exposes the HTTP status to the error classifier
func (e *HTTPError) StatusCode() int {
	return e.Status
}

// Config holds gateway client configuration
type Config struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration // default: 30s
	RequestsPerSecond float64       // 0 = unlimited
	Burst             int           // default: 1
	Logger            *slog.Logger
}

// Client talks to the gateway over HTTP
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ Gateway = (*Client)(nil)

const maxResponseBytes = 4 << 20

// NewClient creates a gateway client
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// Search runs a query in either dialect and returns the matching issues
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]types.CandidateIssue, error) {
	fields := req.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	payload := map[string]any{
		"fields":     fields,
		"maxResults": maxResults,
	}
	switch req.Dialect {
	case DialectText:
		payload["text"] = req.Query
		if req.ProjectKey != "" {
			payload["project"] = req.ProjectKey
		}
	default:
		payload["jql"] = req.Query
	}

	body, err := c.post(ctx, "/search", payload)
	if err != nil {
		return nil, fmt.Errorf("search (%s): %w", req.Dialect, err)
	}

	issues, err := decodeIssues(body)
	if err != nil {
		return nil, fmt.Errorf("search (%s): %w", req.Dialect, err)
	}
	c.logger.Debug("gateway search", "dialect", req.Dialect.String(), "query", req.Query, "results", len(issues))
	return issues, nil
}

// CreateIssue files a new issue
func (c *Client) CreateIssue(ctx context.Context, draft types.IssueDraft) (*types.CreateResult, error) {
	draft = draft.WithDefaults()
	fields := map[string]any{
		"project":     map[string]string{"key": draft.ProjectKey},
		"issuetype":   map[string]string{"name": draft.IssueType},
		"summary":     draft.Summary,
		"description": draft.Description,
		"priority":    map[string]string{"name": draft.Priority},
	}
	if draft.Assignee != "" {
		fields["assignee"] = map[string]string{"name": draft.Assignee}
	}

	body, err := c.post(ctx, "/issues", map[string]any{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	result, err := decodeCreateResult(body)
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	return result, nil
}

// post sends a JSON body and returns the raw response body
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
