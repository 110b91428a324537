package pii

import (
	"regexp"
)

// baseMatcher provides common functionality for pattern matchers
type baseMatcher struct {
	id      string
	piiType PIIType
	pattern *regexp.Regexp
}

// ID returns the pattern identifier
func (m *baseMatcher) ID() string { return m.id }

// Type returns the PII type
func (m *baseMatcher) Type() PIIType { return m.piiType }

// findAllMatches finds all regex matches and returns Match structs with
// the given fixed confidence.
func (m *baseMatcher) findAllMatches(content string, contextWindow int, confidence float64) []Match {
	if m.pattern == nil {
		return nil
	}

	var matches []Match
	indices := m.pattern.FindAllStringIndex(content, -1)

	for _, idx := range indices {
		start, end := idx[0], idx[1]
		matches = append(matches, Match{
			Value:      content[start:end],
			Start:      start,
			End:        end,
			Context:    extractContext(content, start, end, contextWindow),
			Confidence: confidence,
		})
	}

	return matches
}

// extractContext extracts surrounding context for a match
func extractContext(content string, start, end, windowSize int) string {
	contextStart := start - windowSize
	if contextStart < 0 {
		contextStart = 0
	}

	contextEnd := end + windowSize
	if contextEnd > len(content) {
		contextEnd = len(content)
	}

	return content[contextStart:contextEnd]
}

// countDigits counts decimal digits in a string.
func countDigits(s string) int {
	count := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			count++
		}
	}
	return count
}

// digitsOf strips everything but decimal digits.
func digitsOf(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
