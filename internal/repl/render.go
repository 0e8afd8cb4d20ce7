package repl

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/issuepilot/issuepilot/internal/cost"
	"github.com/issuepilot/issuepilot/internal/search"
	"github.com/issuepilot/issuepilot/internal/types"
)

// RenderAnalysis prints the matches and recommendations of a duplicate check
func RenderAnalysis(w io.Writer, analysis *types.DuplicateAnalysis) {
	if analysis == nil {
		return
	}
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintln(w)
	if !analysis.HasPotentialDuplicates {
		for _, rec := range analysis.Recommendations {
			fmt.Fprintf(w, "%s %s\n", green("✓"), rec)
		}
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "%s\n", cyan(fmt.Sprintf("Similar issues (%d)", len(analysis.SimilarIssues))))
	for _, r := range analysis.SimilarIssues {
		fmt.Fprintf(w, "  %s %s %s\n", scoreBadge(r.Similarity), bold(r.Key), r.Summary)
		if r.Status != "" {
			fmt.Fprintf(w, "      %s\n", statusLine(r))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n", yellow("Recommendations:"))
	for _, rec := range analysis.Recommendations {
		fmt.Fprintf(w, "   • %s\n", rec)
	}
	fmt.Fprintln(w)
}

// RenderDetails prints each match with its description and rationale
func RenderDetails(w io.Writer, analysis *types.DuplicateAnalysis) {
	if analysis == nil {
		return
	}
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, r := range analysis.SimilarIssues {
		fmt.Fprintf(w, "\n%s\n", cyan(strings.Repeat("─", 60)))
		fmt.Fprintf(w, "%s %s  %s\n", bold(r.Key), r.Summary, scoreBadge(r.Similarity))
		fmt.Fprintf(w, "%s %s\n", gray("Status:"), statusLine(r))
		if desc := strings.TrimSpace(r.Description); desc != "" {
			fmt.Fprintf(w, "%s\n%s\n", gray("Description:"), desc)
		}
		fmt.Fprintf(w, "%s %s\n", gray("Why:"), r.Reason)
	}
	fmt.Fprintln(w)
}

// RenderSearch prints raw search candidates
func RenderSearch(w io.Writer, result search.Result) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	switch result.Outcome {
	case search.OutcomeFallback:
		fmt.Fprintf(w, "%s keyword search failed, showing title-word matches\n", yellow("Note:"))
	case search.OutcomeFailed:
		fmt.Fprintf(w, "%s search is unavailable right now\n", yellow("Note:"))
	}
	if len(result.Keywords) > 0 {
		fmt.Fprintf(w, "%s %s\n", gray("Keywords:"), strings.Join(result.Keywords, ", "))
	}
	if len(result.Issues) == 0 {
		fmt.Fprintln(w, "No matching issues.")
		return
	}
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "  %s %s %s\n", bold(issue.Key), issue.Summary, gray("["+orDash(issue.Status)+"]"))
	}
}

// RenderUsage prints the session's generation service usage
func RenderUsage(w io.Writer, stats cost.Stats) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	status := stats.Status.String()
	switch stats.Status {
	case cost.BudgetWarning:
		status = color.YellowString(status)
	case cost.BudgetExceeded:
		status = color.RedString(status)
	default:
		status = color.GreenString(status)
	}

	fmt.Fprintf(w, "\n%s\n", cyan("Generation usage"))
	fmt.Fprintf(w, "  Budget:      %s\n", status)
	fmt.Fprintf(w, "  Calls:       %d\n", stats.Calls)
	fmt.Fprintf(w, "  This window: %d tokens ($%.4f)\n", stats.HourlyTokens, stats.HourlyCost)
	fmt.Fprintf(w, "  Session:     %d tokens ($%.4f)\n", stats.TotalTokens, stats.TotalCost)

	ops := make([]string, 0, len(stats.OperationTokens))
	for op := range stats.OperationTokens {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(w, "    %-20s %d tokens\n", op, stats.OperationTokens[op])
	}
	fmt.Fprintln(w)
}

func scoreBadge(similarity float64) string {
	pct := fmt.Sprintf("%3.0f%%", similarity*100)
	switch {
	case similarity > 0.8:
		return color.New(color.FgRed, color.Bold).Sprint(pct)
	case similarity > 0.6:
		return color.New(color.FgYellow).Sprint(pct)
	default:
		return color.New(color.FgHiBlack).Sprint(pct)
	}
}

func statusLine(r types.SimilarityResult) string {
	if r.Priority == "" {
		return orDash(r.Status)
	}
	return fmt.Sprintf("%s, %s priority", orDash(r.Status), r.Priority)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
