package tracker

import (
	"fmt"
	"strings"
)

// QuoteJQL wraps a value in double quotes, escaping backslashes and quotes
func QuoteJQL(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

// TextMatchJQL builds a project-scoped query matching any keyword:
//
//	project = "KEY" AND (text ~ "a" OR text ~ "b") ORDER BY updated DESC
func TextMatchJQL(projectKey string, keywords []string) string {
	clauses := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		clauses = append(clauses, "text ~ "+QuoteJQL(kw))
	}

	query := "project = " + QuoteJQL(projectKey)
	if len(clauses) > 0 {
		query += fmt.Sprintf(" AND (%s)", strings.Join(clauses, " OR "))
	}
	return query + " ORDER BY updated DESC"
}
