package search

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/issuepilot/issuepilot/internal/ai"
)

const (
	maxKeywords     = 5
	minKeywordRunes = 4
	defaultKeyword  = "issue"
)

const keywordSystemPrompt = `You extract search keywords from issue tracker tickets. ` +
	`You respond with a JSON array of strings and nothing else.`

// ExtractKeywords asks the generation service for 3-5 search keywords and
// falls back to HeuristicKeywords when the call fails or the reply is not
// a usable JSON array. It never returns an empty slice.
func (s *Searcher) ExtractKeywords(ctx context.Context, title, description string) []string {
	if s.generator == nil {
		return HeuristicKeywords(title, description)
	}

	reply, err := s.generator.Generate(ctx, ai.Request{
		Operation:   "keyword_extraction",
		System:      keywordSystemPrompt,
		Prompt:      buildKeywordPrompt(title, description),
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		s.logger.Warn("keyword extraction failed, using heuristic", "error", err)
		return HeuristicKeywords(title, description)
	}

	parsed := ai.Parse[[]string](reply, "keyword extraction reply")
	if !parsed.Success {
		s.logger.Warn("keyword reply unparsable, using heuristic", "error", parsed.Error)
		return HeuristicKeywords(title, description)
	}

	keywords := normalizeKeywords(parsed.Data)
	if len(keywords) == 0 {
		return HeuristicKeywords(title, description)
	}
	return keywords
}

func buildKeywordPrompt(title, description string) string {
	return fmt.Sprintf(`Extract 3 to 5 keywords that would find existing tickets about the same problem.

Title: %s
Description: %s

Prefer component names, error messages and domain nouns. Avoid generic words like "bug", "issue" or "problem".

Respond with ONLY a JSON array, for example: ["login", "sso", "timeout"]`, title, description)
}

// normalizeKeywords trims, lower-cases and de-duplicates model keywords,
// keeping at most five
func normalizeKeywords(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	keywords := make([]string, 0, maxKeywords)
	for _, kw := range raw {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// HeuristicKeywords derives keywords locally: lower-case title and
// description, split on anything that is not a letter or digit, keep
// tokens longer than three characters that are not purely numeric, and
// take the first five. Returns ["issue"] when nothing qualifies.
func HeuristicKeywords(title, description string) []string {
	text := strings.ToLower(title + " " + description)
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	keywords := make([]string, 0, maxKeywords)
	for _, tok := range tokens {
		if len([]rune(tok)) < minKeywordRunes || isNumeric(tok) {
			continue
		}
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}

	if len(keywords) == 0 {
		return []string{defaultKeyword}
	}
	return keywords
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
