package types

import (
	"math"
	"strings"
	"testing"
)

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewSimilarityResult(t *testing.T) {
	c := CandidateIssue{Key: "APP-1", Summary: "Login loop", Status: "Open", Priority: "High", Description: "d"}
	r := NewSimilarityResult(c, 1.3, "same")
	if r.Key != "APP-1" || r.Summary != "Login loop" || r.Priority != "High" || r.Description != "d" {
		t.Errorf("candidate fields not copied: %+v", r)
	}
	if r.Similarity != 1 {
		t.Errorf("Similarity = %v, want 1", r.Similarity)
	}
}

func TestDuplicateAnalysisValidate(t *testing.T) {
	tests := []struct {
		name     string
		analysis DuplicateAnalysis
		wantErr  bool
	}{
		{"empty", DuplicateAnalysis{Recommendations: []string{"none"}}, false},
		{"sorted", DuplicateAnalysis{
			HasPotentialDuplicates: true,
			SimilarIssues:          []SimilarityResult{{Similarity: 0.9}, {Similarity: 0.9}, {Similarity: 0.7}},
		}, false},
		{"flag without issues", DuplicateAnalysis{HasPotentialDuplicates: true}, true},
		{"issues without flag", DuplicateAnalysis{SimilarIssues: []SimilarityResult{{Similarity: 0.7}}}, true},
		{"unsorted", DuplicateAnalysis{
			HasPotentialDuplicates: true,
			SimilarIssues:          []SimilarityResult{{Similarity: 0.7}, {Similarity: 0.9}},
		}, true},
		{"out of range", DuplicateAnalysis{
			HasPotentialDuplicates: true,
			SimilarIssues:          []SimilarityResult{{Similarity: 1.2}},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.analysis.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIssueDraftDefaultsAndValidate(t *testing.T) {
	d := IssueDraft{ProjectKey: "APP", Summary: "Crash on save"}.WithDefaults()
	if d.IssueType != DefaultIssueType || d.Priority != DefaultPriority {
		t.Errorf("defaults not applied: %+v", d)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	kept := IssueDraft{IssueType: "Bug", Priority: "High"}.WithDefaults()
	if kept.IssueType != "Bug" || kept.Priority != "High" {
		t.Errorf("explicit values overwritten: %+v", kept)
	}

	for _, bad := range []IssueDraft{
		{Summary: "no project"},
		{ProjectKey: "APP", Summary: "   "},
		{ProjectKey: "APP", Summary: strings.Repeat("x", 256)},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", bad)
		}
	}
}

func TestDecisionIsValid(t *testing.T) {
	for _, d := range []Decision{DecisionProceed, DecisionProceedAfterReview, DecisionCancel, DecisionRestart} {
		if !d.IsValid() {
			t.Errorf("%q should be valid", d)
		}
	}
	if Decision("maybe").IsValid() {
		t.Error("unknown decision should be invalid")
	}
}
