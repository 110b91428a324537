package pii

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

// defaultScanner implements the Scanner interface
type defaultScanner struct {
	registry Registry
	config   *ScanConfig
}

// NewScanner creates a scanner with the built-in matcher set and
// default configuration
func NewScanner() Scanner {
	return NewScannerWithRegistry(NewDefaultRegistry())
}

// NewScannerWithRegistry creates a scanner with a custom registry
func NewScannerWithRegistry(registry Registry) Scanner {
	return &defaultScanner{
		registry: registry,
		config:   DefaultScanConfig(),
	}
}

// NewScannerWithConfig creates a scanner with custom configuration
func NewScannerWithConfig(config *ScanConfig) Scanner {
	if config == nil {
		config = DefaultScanConfig()
	}
	return &defaultScanner{
		registry: NewDefaultRegistry(),
		config:   config,
	}
}

// Scan runs every registered matcher over text, filters false
// positives, and returns findings together with the redacted text.
// Finding offsets describe the original text, not the redacted one.
func (s *defaultScanner) Scan(text string) *ScanResult {
	var findings []Finding

	for _, matcher := range s.registry.All() {
		for _, match := range matcher.Match(text) {
			findings = append(findings, s.createFinding(match, matcher, text))
		}
	}

	findings = s.filterFalsePositives(findings)
	findings = resolveOverlaps(findings)

	sort.Slice(findings, func(i, j int) bool {
		return findings[i].Start < findings[j].Start
	})

	result := &ScanResult{
		HasPII:   len(findings) > 0,
		Findings: findings,
		Summary:  buildSummary(findings),
	}

	if len(findings) > 0 {
		total := 0.0
		for _, f := range findings {
			total += f.Confidence
		}
		result.Confidence = math.Round(total/float64(len(findings))*100) / 100
		result.RedactedText = Redact(text, findings)
	} else {
		result.RedactedText = text
	}

	return result
}

// SupportedTypes returns the PII types the registered matchers detect
func (s *defaultScanner) SupportedTypes() []PIIType {
	matchers := s.registry.All()
	seen := make(map[PIIType]struct{}, len(matchers))
	types := make([]PIIType, 0, len(matchers))
	for _, m := range matchers {
		if _, ok := seen[m.Type()]; ok {
			continue
		}
		seen[m.Type()] = struct{}{}
		types = append(types, m.Type())
	}
	return types
}

// createFinding builds a Finding from a Match, re-extracting context
// with the configured window
func (s *defaultScanner) createFinding(match Match, matcher Matcher, text string) Finding {
	contextWindow := s.config.ContextWindow
	if contextWindow <= 0 {
		contextWindow = 30
	}

	// IDs are positional rather than random so scans stay deterministic
	return Finding{
		ID:         fmt.Sprintf("%s-%d-%d", matcher.Type(), match.Start, match.End),
		Type:       matcher.Type(),
		Value:      match.Value,
		Start:      match.Start,
		End:        match.End,
		Confidence: match.Confidence,
		Context:    extractContext(text, match.Start, match.End, contextWindow),
		Severity:   SeverityFor(matcher.Type()),
	}
}

// filterFalsePositives discards well-known placeholder values and
// low-confidence findings before redaction
func (s *defaultScanner) filterFalsePositives(findings []Finding) []Finding {
	kept := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Confidence <= s.config.MinConfidence {
			continue
		}
		if s.isExcluded(f) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// isExcluded applies the per-type exclusion lists
func (s *defaultScanner) isExcluded(f Finding) bool {
	switch f.Type {
	case TypeSSN:
		digits := digitsOf(f.Value)
		for _, excluded := range s.config.ExcludedSSNs {
			if digits == digitsOf(excluded) {
				return true
			}
		}
	case TypePhoneNumber:
		digits := digitsOf(f.Value)
		for _, area := range s.config.ExcludedAreaCodes {
			if strings.HasPrefix(digits, area) {
				return true
			}
		}
	case TypeEmail:
		lower := strings.ToLower(f.Value)
		for _, domain := range s.config.ExcludedEmailDomains {
			if strings.Contains(lower, strings.ToLower(domain)) {
				return true
			}
		}
	}
	return false
}

// resolveOverlaps drops findings whose span overlaps a kept finding,
// preferring higher confidence and then longer spans. Overlapping
// spans would otherwise corrupt offset-based redaction.
func resolveOverlaps(findings []Finding) []Finding {
	if len(findings) < 2 {
		return findings
	}

	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return (sorted[i].End - sorted[i].Start) > (sorted[j].End - sorted[j].Start)
	})

	kept := make([]Finding, 0, len(sorted))
	for _, candidate := range sorted {
		overlaps := false
		for _, existing := range kept {
			if candidate.Start < existing.End && existing.Start < candidate.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// buildSummary aggregates finding counts by type
func buildSummary(findings []Finding) Summary {
	summary := Summary{
		TotalFindings: len(findings),
	}
	seen := make(map[PIIType]struct{})
	for _, f := range findings {
		if _, ok := seen[f.Type]; !ok {
			seen[f.Type] = struct{}{}
			summary.TypesFound = append(summary.TypesFound, f.Type)
		}
		if f.Severity == types.SeverityCritical {
			summary.CriticalFindings++
		}
	}
	return summary
}
