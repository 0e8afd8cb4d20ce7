// Package deduplication decides whether a new issue likely duplicates
// existing tracker issues.
//
// # Overview
//
// A check runs in four steps:
//
//  1. Candidate search: keyword query against the project, with a
//     title-word fallback (package search)
//  2. Scoring: each candidate is rated against the new issue in small
//     batches (package similarity)
//  3. Thresholding: only matches scoring above SimilarityThreshold are
//     kept, highest first
//  4. Recommendations: banded guidance for the user
//
// # Failure Handling
//
// CheckForDuplicates never returns an error. A failed search yields an
// empty candidate set, a failed scoring batch yields placeholder scores
// that sit below the threshold, and anything unexpected (including a
// panic) yields a verdict with HasPotentialDuplicates=false and a single
// cautionary recommendation.
//
// # Bands
//
// Matches above HighSimilarityThreshold (default 0.8) are reported as
// high similarity and the user is steered toward updating, commenting on,
// or sub-tasking the existing issue. Other reported matches are related
// issues, for which linking is suggested.
//
// # Configuration
//
// See Config and ConfigFromEnv. Both thresholds are configuration values
// with the defaults 0.6 and 0.8.
package deduplication
