package types

import (
	"fmt"
	"strings"
)

// CandidateIssue is a read-only snapshot of an existing tracker issue
// returned by the gateway search endpoint.
type CandidateIssue struct {
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority,omitempty"`
}

// NewIssue is the issue the user is about to file, as seen by the duplicate checker
type NewIssue struct {
	ProjectKey  string `json:"project_key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// SimilarityResult is the scored comparison of one candidate against a new issue.
// Similarity is always within [0, 1].
type SimilarityResult struct {
	Key         string  `json:"key"`
	Summary     string  `json:"summary"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority,omitempty"`
	Similarity  float64 `json:"similarity"`
	Reason      string  `json:"reason"`
}

// NewSimilarityResult copies the candidate fields and clamps the score
func NewSimilarityResult(c CandidateIssue, similarity float64, reason string) SimilarityResult {
	return SimilarityResult{
		Key:         c.Key,
		Summary:     c.Summary,
		Description: c.Description,
		Status:      c.Status,
		Priority:    c.Priority,
		Similarity:  ClampScore(similarity),
		Reason:      reason,
	}
}

// ClampScore bounds a similarity score to [0, 1]. NaN maps to 0.
func ClampScore(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DuplicateAnalysis is the verdict of one duplicate check. It is built fresh
// for every check and never stored.
type DuplicateAnalysis struct {
	// HasPotentialDuplicates is true iff SimilarIssues is non-empty
	HasPotentialDuplicates bool `json:"has_potential_duplicates"`

	// SimilarIssues holds significant matches, highest similarity first
	SimilarIssues []SimilarityResult `json:"similar_issues"`

	// Recommendations are human-readable next steps, in display order
	Recommendations []string `json:"recommendations"`
}

// Validate checks the internal consistency of the analysis
func (a *DuplicateAnalysis) Validate() error {
	if a.HasPotentialDuplicates != (len(a.SimilarIssues) > 0) {
		return fmt.Errorf("has_potential_duplicates (%t) does not match similar_issues length (%d)",
			a.HasPotentialDuplicates, len(a.SimilarIssues))
	}
	for i, r := range a.SimilarIssues {
		if r.Similarity < 0 || r.Similarity > 1 {
			return fmt.Errorf("similar_issues[%d] similarity out of range: %.2f", i, r.Similarity)
		}
		if i > 0 && r.Similarity > a.SimilarIssues[i-1].Similarity {
			return fmt.Errorf("similar_issues not sorted descending at index %d", i)
		}
	}
	return nil
}

// IssueDraft carries the fields sent to the gateway create-issue endpoint
type IssueDraft struct {
	ProjectKey  string `json:"project_key"`
	IssueType   string `json:"issue_type"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Assignee    string `json:"assignee,omitempty"`
}

// Default issue fields used when the caller leaves them blank
const (
	DefaultIssueType = "Task"
	DefaultPriority  = "Medium"
)

// WithDefaults fills in the issue type and priority when they are empty
func (d IssueDraft) WithDefaults() IssueDraft {
	if strings.TrimSpace(d.IssueType) == "" {
		d.IssueType = DefaultIssueType
	}
	if strings.TrimSpace(d.Priority) == "" {
		d.Priority = DefaultPriority
	}
	return d
}

// Validate checks if the draft has the fields the gateway requires
func (d *IssueDraft) Validate() error {
	if strings.TrimSpace(d.ProjectKey) == "" {
		return fmt.Errorf("project key is required")
	}
	if strings.TrimSpace(d.Summary) == "" {
		return fmt.Errorf("summary is required")
	}
	if len(d.Summary) > 255 {
		return fmt.Errorf("summary must be 255 characters or less (got %d)", len(d.Summary))
	}
	return nil
}

// CreateResult is the gateway's answer to a create-issue request
type CreateResult struct {
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message,omitempty"`
}

// Decision is the user's answer after reviewing potential duplicates
type Decision string

const (
	DecisionProceed            Decision = "proceed"
	DecisionProceedAfterReview Decision = "review"
	DecisionCancel             Decision = "cancel"
	DecisionRestart            Decision = "restart"
)

// IsValid checks if the decision value is valid
func (d Decision) IsValid() bool {
	switch d {
	case DecisionProceed, DecisionProceedAfterReview, DecisionCancel, DecisionRestart:
		return true
	}
	return false
}
