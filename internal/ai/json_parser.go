package ai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Models wrap JSON in fences, add trailing commas, comments and prose.
// These patterns are compiled once.
var (
	codeFenceStartRegex = regexp.MustCompile(`(?s)^` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}\s*$`)
	codeFenceAnyRegex   = regexp.MustCompile(`(?s)` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}`)

	trailingCommaRegex     = regexp.MustCompile(`,(\s*[}\]])`)
	unquotedKeyRegex       = regexp.MustCompile(`([{,]\s*)([a-zA-Z_$][a-zA-Z0-9_$]*)\s*:`)
	singleLineCommentRegex = regexp.MustCompile(`(?m)^\s*//.*$`)
	multiLineCommentRegex  = regexp.MustCompile(`(?s)/\*.*?\*/`)

	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex  = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// maxReplySize bounds how much model output we try to decode
const maxReplySize = 1 << 20

// ParseResult is the outcome of decoding a model reply. A failed parse is
// an expected outcome, not an exceptional one.
type ParseResult[T any] struct {
	Success bool
	Data    T
	Error   string
}

// Parse decodes a model reply into T, trying progressively more lenient
// strategies: the raw text, the text without code fences, the text with
// common JSON mistakes fixed, and finally the first JSON value embedded
// in surrounding prose.
//
// context is used only to label errors and log lines.
func Parse[T any](text string, context string) ParseResult[T] {
	if len(text) > maxReplySize {
		return parseError[T](context, fmt.Sprintf("input exceeds size limit (%d > %d bytes)", len(text), maxReplySize))
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return parseError[T](context, "empty input")
	}

	withoutFences := removeCodeFences(trimmed)
	cleaned := cleanupJSON(withoutFences)
	candidates := []string{trimmed, withoutFences, cleaned, extractJSON(cleaned)}

	var firstErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		var data T
		err := json.Unmarshal([]byte(candidate), &data)
		if err == nil {
			return ParseResult[T]{Success: true, Data: data}
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	slog.Debug("model reply is not valid JSON",
		"context", context,
		"error", firstErr,
		"preview", truncate(text, 100))

	return parseError[T](context, "all JSON parsing strategies failed")
}

// removeCodeFences strips markdown code fences, wherever they appear
func removeCodeFences(text string) string {
	cleaned := codeFenceStartRegex.ReplaceAllString(text, "$1")
	if cleaned == text {
		if m := codeFenceAnyRegex.FindStringSubmatch(text); m != nil {
			cleaned = m[1]
		}
	}
	if len(cleaned) >= 2 && strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") {
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	return strings.TrimSpace(cleaned)
}

// cleanupJSON fixes trailing commas, unquoted keys and comments.
// Single quotes are left alone: converting them would corrupt apostrophes
// inside valid strings.
func cleanupJSON(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = trailingCommaRegex.ReplaceAllString(cleaned, "$1")
	cleaned = unquotedKeyRegex.ReplaceAllString(cleaned, `$1"$2":`)
	cleaned = singleLineCommentRegex.ReplaceAllString(cleaned, "")
	cleaned = multiLineCommentRegex.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// extractJSON returns the outermost object or array in mixed content, or ""
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	switch trimmed[0] {
	case '[':
		if match := arrayRegex.FindString(trimmed); match != "" {
			return match
		}
	case '{':
		if match := objectRegex.FindString(trimmed); match != "" {
			return match
		}
	}

	// Whichever opener comes first wins
	objIdx := strings.Index(trimmed, "{")
	arrIdx := strings.Index(trimmed, "[")
	if arrIdx >= 0 && (objIdx < 0 || arrIdx < objIdx) {
		return arrayRegex.FindString(trimmed)
	}
	if objIdx >= 0 {
		return objectRegex.FindString(trimmed)
	}
	return ""
}

func parseError[T any](context, message string) ParseResult[T] {
	if context != "" {
		message = context + ": " + message
	}
	return ParseResult[T]{Success: false, Error: message}
}

// truncate shortens s to maxLen bytes for log previews
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
