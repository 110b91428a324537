package pii

import (
	"strings"
	"unicode"
)

// knownFirstNames is a small seed set of common US given names. The
// detector only fires when a token from this set is followed by a
// plausible surname, which keeps false positives manageable without a
// full dictionary.
var knownFirstNames = map[string]struct{}{
	"james": {}, "john": {}, "robert": {}, "michael": {}, "william": {},
	"david": {}, "richard": {}, "joseph": {}, "thomas": {}, "charles": {},
	"mary": {}, "patricia": {}, "jennifer": {}, "linda": {}, "elizabeth": {},
	"barbara": {}, "susan": {}, "jessica": {}, "sarah": {}, "karen": {},
	"daniel": {}, "matthew": {}, "anthony": {}, "mark": {}, "donald": {},
	"steven": {}, "paul": {}, "andrew": {}, "joshua": {}, "kenneth": {},
	"nancy": {}, "lisa": {}, "betty": {}, "margaret": {}, "sandra": {},
	"ashley": {}, "kimberly": {}, "emily": {}, "donna": {}, "michelle": {},
	"maria": {}, "carlos": {}, "jose": {}, "juan": {}, "luis": {},
	"ana": {}, "sofia": {}, "wei": {}, "ming": {}, "priya": {},
}

// knownLastNames covers the most common US surnames. A following token
// outside this set still counts when it is simply capitalized.
var knownLastNames = map[string]struct{}{
	"smith": {}, "johnson": {}, "williams": {}, "brown": {}, "jones": {},
	"garcia": {}, "miller": {}, "davis": {}, "rodriguez": {}, "martinez": {},
	"hernandez": {}, "lopez": {}, "gonzalez": {}, "wilson": {}, "anderson": {},
	"thomas": {}, "taylor": {}, "moore": {}, "jackson": {}, "martin": {},
	"lee": {}, "perez": {}, "thompson": {}, "white": {}, "harris": {},
	"sanchez": {}, "clark": {}, "ramirez": {}, "lewis": {}, "robinson": {},
	"walker": {}, "young": {}, "allen": {}, "king": {}, "wright": {},
	"nguyen": {}, "kim": {}, "chen": {}, "patel": {}, "singh": {},
}

// NameMatcher detects personal names by scanning whitespace-delimited
// token bigrams against a known-name set
type NameMatcher struct {
	id         string
	firstNames map[string]struct{}
	lastNames  map[string]struct{}
}

// NewNameMatcher creates a new heuristic name matcher
func NewNameMatcher() *NameMatcher {
	return &NameMatcher{
		id:         "pii-name",
		firstNames: knownFirstNames,
		lastNames:  knownLastNames,
	}
}

// ID returns the matcher identifier
func (m *NameMatcher) ID() string { return m.id }

// Type returns the PII type this matcher detects
func (m *NameMatcher) Type() PIIType { return TypeName }

// Match scans token bigrams and flags a pair as a name when the first
// token is a known first name and the second is either a known surname
// or simply capitalized.
func (m *NameMatcher) Match(content string) []Match {
	tokens := tokenize(content)
	var matches []Match

	for i := 0; i+1 < len(tokens); i++ {
		first := tokens[i]
		second := tokens[i+1]

		// Punctuation after the first token breaks the bigram
		if trailingPunctLen(first.value) > 0 {
			continue
		}
		if _, ok := m.firstNames[strings.ToLower(first.value)]; !ok {
			continue
		}

		surname := trimTokenPunct(second.value)
		if !m.isSurnameCandidate(surname) {
			continue
		}

		start := first.start
		end := second.start + len(second.value) - trailingPunctLen(second.value)
		matches = append(matches, Match{
			Value:      content[start:end],
			Start:      start,
			End:        end,
			Context:    extractContext(content, start, end, matcherContextWindow),
			Confidence: confName,
		})
	}

	return matches
}

// isSurnameCandidate accepts known surnames and capitalized tokens
func (m *NameMatcher) isSurnameCandidate(token string) bool {
	if token == "" {
		return false
	}
	if _, ok := m.lastNames[strings.ToLower(token)]; ok {
		return true
	}

	runes := []rune(token)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLetter(r) && r != '\'' && r != '-' {
			return false
		}
	}
	return true
}

// token is a whitespace-delimited slice of the input with its offset
type token struct {
	value string
	start int
}

// tokenize splits content on whitespace, preserving byte offsets
func tokenize(content string) []token {
	var tokens []token
	start := -1
	for i, r := range content {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{value: content[start:i], start: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{value: content[start:], start: start})
	}
	return tokens
}

// trimTokenPunct strips trailing punctuation such as commas and periods
func trimTokenPunct(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '\'' && r != '-'
	})
}

// trailingPunctLen reports how many trailing bytes trimTokenPunct would remove
func trailingPunctLen(s string) int {
	return len(s) - len(trimTokenPunct(s))
}
