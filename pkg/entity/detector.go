// Package entity provides pluggable entity recognition over
// de-identified document text.
package entity

import (
	"regexp"
	"strings"

	"github.com/schoolsafe/docpipeline/pkg/pii"
	"github.com/schoolsafe/docpipeline/pkg/types"
)

// Detector extracts people, organizations, and dates from text. The
// built-in implementation is a capitalization heuristic; a real NER
// backend can be substituted without touching pipeline orchestration.
type Detector interface {
	DetectEntities(text string) types.Entities
}

// orgSuffixes marks a capitalized phrase as an organization
var orgSuffixes = []string{
	"Inc", "LLC", "Corp", "Corporation", "Company",
	"University", "College", "School", "District", "Academy",
	"Institute", "Department", "Board", "Foundation", "Association",
}

// heuristicDetector is the built-in toy detector
type heuristicDetector struct {
	nameMatcher *pii.NameMatcher
	orgPattern  *regexp.Regexp
	datePattern *regexp.Regexp
}

// NewDetector creates the built-in heuristic detector
func NewDetector() Detector {
	return &heuristicDetector{
		nameMatcher: pii.NewNameMatcher(),
		orgPattern: regexp.MustCompile(
			`\b(?:[A-Z][a-zA-Z&'-]+\s+){1,4}(?:` + strings.Join(orgSuffixes, "|") + `)\b`,
		),
		datePattern: regexp.MustCompile(
			`\b\d{1,2}/\d{1,2}/\d{2,4}\b` +
				`|\b\d{4}-\d{2}-\d{2}\b` +
				`|\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`,
		),
	}
}

// DetectEntities runs all heuristics over text. Each list is
// deduplicated and preserves first-occurrence order.
func (d *heuristicDetector) DetectEntities(text string) types.Entities {
	return types.Entities{
		People:        d.detectPeople(text),
		Organizations: dedupe(d.orgPattern.FindAllString(text, -1)),
		Dates:         dedupe(d.datePattern.FindAllString(text, -1)),
	}
}

// detectPeople reuses the PII name heuristic
func (d *heuristicDetector) detectPeople(text string) []string {
	matches := d.nameMatcher.Match(text)
	people := make([]string, 0, len(matches))
	for _, m := range matches {
		people = append(people, m.Value)
	}
	return dedupe(people)
}

// dedupe removes duplicates, preserving first-occurrence order
func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
