package pii

import (
	"sort"
)

// Redact replaces each finding in content with its per-type placeholder
// token. Findings are applied in descending start-offset order so
// earlier replacements are unaffected by the length changes later ones
// introduce; finding offsets always describe the original text.
func Redact(content string, findings []Finding) string {
	if len(findings) == 0 {
		return content
	}

	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})

	result := content
	for _, finding := range sorted {
		if finding.Start < 0 || finding.End > len(content) || finding.Start >= finding.End {
			continue
		}
		result = result[:finding.Start] + PlaceholderFor(finding.Type) + result[finding.End:]
	}

	return result
}
