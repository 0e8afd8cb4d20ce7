package deduplication

import (
	"fmt"
	"strings"

	"github.com/issuepilot/issuepilot/internal/types"
)

// Fixed recommendation lines
const (
	RecommendationNoCandidates = "No existing issues matched the search. Safe to proceed with creating this issue."
	RecommendationNoDuplicates = "No significant duplicates found. Safe to proceed with creating this issue."
	RecommendationCheckFailed  = "Duplicate check could not be completed. Consider searching the project manually before creating this issue."
	RecommendationReview       = "Review the similar issues listed above before deciding whether to create a new one."
)

// Band headers. Each opens its block of guidance.
const (
	HighSimilarityHeader = "High similarity"
	RelatedIssuesHeader  = "Related issues"
)

// Recommendations builds user guidance for the significant matches.
// Matches scoring above high form the high band; the rest are related.
// The high block comes first and the review prompt always comes last.
func Recommendations(significant []types.SimilarityResult, high float64) []string {
	if len(significant) == 0 {
		return []string{RecommendationNoDuplicates}
	}

	var highBand, mediumBand []types.SimilarityResult
	for _, r := range significant {
		if r.Similarity > high {
			highBand = append(highBand, r)
		} else {
			mediumBand = append(mediumBand, r)
		}
	}

	var recs []string
	if len(highBand) > 0 {
		first := highBand[0].Key
		recs = append(recs,
			fmt.Sprintf("%s: %s closely %s this one and may be a duplicate (%s).",
				HighSimilarityHeader, countIssues(len(highBand)), verb(len(highBand), "matches", "match"), keys(highBand)),
			fmt.Sprintf("Consider updating %s instead of creating a new issue.", first),
			fmt.Sprintf("Add a comment to %s with any new details.", first),
			fmt.Sprintf("If this is a distinct piece of work, create a sub-task under %s.", first),
		)
	}
	if len(mediumBand) > 0 {
		recs = append(recs,
			fmt.Sprintf("%s: %s %s similar ground (%s).",
				RelatedIssuesHeader, countIssues(len(mediumBand)), verb(len(mediumBand), "covers", "cover"), keys(mediumBand)),
			"Link the new issue to the related ones if you proceed.",
			"Cross-reference them in the description for context.",
		)
	}
	return append(recs, RecommendationReview)
}

func countIssues(n int) string {
	if n == 1 {
		return "1 issue"
	}
	return fmt.Sprintf("%d issues", n)
}

func verb(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func keys(results []types.SimilarityResult) string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Key
	}
	return strings.Join(out, ", ")
}
