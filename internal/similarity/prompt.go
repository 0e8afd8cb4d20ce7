package similarity

import (
	"fmt"
	"strings"

	"github.com/issuepilot/issuepilot/internal/types"
)

const systemPrompt = `You compare issue tracker tickets for duplicates. ` +
	`You answer with raw JSON only, never wrapped in markdown code fences.`

// maxDescriptionChars keeps prompts bounded when tickets carry long descriptions
const maxDescriptionChars = 500

func buildBatchPrompt(issue types.NewIssue, batch []types.CandidateIssue) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are checking whether a NEW issue duplicates any EXISTING issues.

NEW ISSUE:
Title: %s
Description: %s

EXISTING ISSUES:
`, issue.Title, orNone(clip(issue.Description)))

	for i, c := range batch {
		fmt.Fprintf(&b, `
[%d] %s
    Summary: %s
    Status: %s
    Description: %s
`, i+1, c.Key, c.Summary, orNone(c.Status), orNone(clip(c.Description)))
	}

	b.WriteString(`
TASK:
Rate how similar EACH existing issue is to the NEW issue on a scale from 0.0 to 1.0.

SCORING RUBRIC:
- 0.9-1.0: Near-identical, the same problem or request
- 0.7-0.89: Very similar, likely a duplicate
- 0.5-0.69: Related but distinct
- 0.3-0.49: Some overlap
- 0.0-0.29: Different issues

Consider the underlying problem, not just shared words.

OUTPUT FORMAT (JSON only):
{
  "results": [
    {"index": 1, "similarity": 0.0, "reason": "One short sentence"}
  ]
}

Include exactly one entry per existing issue, using the bracketed number as "index".`)

	return b.String()
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxDescriptionChars {
		return s
	}
	return strings.TrimSpace(string(runes[:maxDescriptionChars])) + "..."
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
