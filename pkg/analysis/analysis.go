// Package analysis provides gap analysis and policy redlining against
// matched compliance frameworks.
package analysis

import (
	"context"
	"strings"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

// GapAnalyzer compares de-identified document text against framework
// requirements and reports what is missing
type GapAnalyzer interface {
	Analyze(ctx context.Context, text string, frameworks []string, entities types.Entities) ([]types.GapAnalysis, error)
}

// PolicyRedliner proposes concrete text changes addressing gap findings
type PolicyRedliner interface {
	GenerateRedlines(ctx context.Context, text string, frameworks []string, gaps []types.GapAnalysis) ([]types.Redline, error)
}

// Requirement is one framework obligation checked by the built-in
// analyzer. A document that never mentions any of the signal keywords
// is reported as a gap.
type Requirement struct {
	Framework   string
	Section     string
	Requirement string
	Keywords    []string
	RiskLevel   types.Severity
	Remediation string
	Suggested   string
}

// defaultRequirements is the built-in obligation table
func defaultRequirements() []Requirement {
	return []Requirement{
		{
			Framework:   "FERPA",
			Section:     "Records Access",
			Requirement: "Parents and eligible students must be able to inspect education records",
			Keywords:    []string{"inspect", "access to records", "review records"},
			RiskLevel:   types.SeverityHigh,
			Remediation: "Add a records-access procedure naming the custodian and response deadline",
			Suggested:   "Parents and eligible students may inspect and review education records within 45 days of a request.",
		},
		{
			Framework:   "FERPA",
			Section:     "Directory Information",
			Requirement: "Directory information disclosures require prior notice and an opt-out window",
			Keywords:    []string{"directory information", "opt out", "opt-out"},
			RiskLevel:   types.SeverityMedium,
			Remediation: "Publish the directory-information categories and an annual opt-out notice",
			Suggested:   "The institution designates the following directory information and provides an annual opportunity to opt out of its disclosure.",
		},
		{
			Framework:   "COPPA",
			Section:     "Parental Consent",
			Requirement: "Verifiable parental consent before collecting personal information from children under 13",
			Keywords:    []string{"parental consent", "verifiable consent"},
			RiskLevel:   types.SeverityCritical,
			Remediation: "Add a verifiable parental-consent workflow before any data collection",
			Suggested:   "Personal information is not collected from children under 13 without verifiable parental consent.",
		},
		{
			Framework:   "PPRA",
			Section:     "Surveys",
			Requirement: "Parents may opt students out of protected-information surveys",
			Keywords:    []string{"survey", "opt out", "opt-out"},
			RiskLevel:   types.SeverityMedium,
			Remediation: "Add survey notice and opt-out language covering protected information categories",
			Suggested:   "Parents will be notified before any protected-information survey and may opt their student out.",
		},
		{
			Framework:   "HIPAA",
			Section:     "Safeguards",
			Requirement: "Administrative, physical, and technical safeguards for protected health information",
			Keywords:    []string{"safeguard", "encryption", "access control"},
			RiskLevel:   types.SeverityCritical,
			Remediation: "Document the safeguards applied to health records and who may access them",
			Suggested:   "Protected health information is secured with administrative, physical, and technical safeguards, including role-based access control.",
		},
		{
			Framework:   "GDPR",
			Section:     "Data Subject Rights",
			Requirement: "Procedures for access, rectification, and erasure requests",
			Keywords:    []string{"erasure", "rectification", "data subject request"},
			RiskLevel:   types.SeverityHigh,
			Remediation: "Define the intake and response process for data subject requests",
			Suggested:   "Data subjects may request access, rectification, or erasure of their personal data; requests are answered within one month.",
		},
		{
			Framework:   "CCPA",
			Section:     "Consumer Rights",
			Requirement: "Notice of the right to know and to opt out of sale of personal information",
			Keywords:    []string{"do not sell", "right to know", "opt out"},
			RiskLevel:   types.SeverityMedium,
			Remediation: "Add the CCPA consumer-rights notice and request channels",
			Suggested:   "California consumers may request disclosure of collected personal information and may direct the institution not to sell it.",
		},
	}
}

// requirementAnalyzer is the built-in table-driven gap analyzer
type requirementAnalyzer struct {
	requirements []Requirement
}

// NewGapAnalyzer creates an analyzer with the built-in obligation table
func NewGapAnalyzer() GapAnalyzer {
	return &requirementAnalyzer{requirements: defaultRequirements()}
}

// NewGapAnalyzerWithRequirements creates an analyzer with a custom table
func NewGapAnalyzerWithRequirements(reqs []Requirement) GapAnalyzer {
	return &requirementAnalyzer{requirements: reqs}
}

// Analyze reports a gap for each matched framework's requirement whose
// signal keywords never appear in the text. Output order follows the
// framework list, then the table, so persisted child rows are stable.
func (a *requirementAnalyzer) Analyze(ctx context.Context, text string, frameworks []string, entities types.Entities) ([]types.GapAnalysis, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	lower := strings.ToLower(text)
	var gaps []types.GapAnalysis

	for _, fw := range frameworks {
		for _, req := range a.requirements {
			if req.Framework != fw {
				continue
			}
			if containsAny(lower, req.Keywords) {
				continue
			}
			gaps = append(gaps, types.GapAnalysis{
				Section:      req.Section,
				Requirement:  req.Requirement,
				CurrentState: "not addressed in document",
				Gap:          "no language covering: " + req.Requirement,
				RiskLevel:    req.RiskLevel,
				Remediation:  req.Remediation,
				Framework:    fw,
			})
		}
	}

	return gaps, nil
}

// containsAny reports whether any keyword appears in the text
func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// templateRedliner is the built-in redliner: one suggested clause per
// gap, drawn from the same obligation table
type templateRedliner struct {
	requirements []Requirement
}

// NewPolicyRedliner creates a redliner with the built-in clause table
func NewPolicyRedliner() PolicyRedliner {
	return &templateRedliner{requirements: defaultRequirements()}
}

// GenerateRedlines proposes one clause insertion per gap finding
func (r *templateRedliner) GenerateRedlines(ctx context.Context, text string, frameworks []string, gaps []types.GapAnalysis) ([]types.Redline, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var redlines []types.Redline
	for _, gap := range gaps {
		suggested := r.suggestedClause(gap)
		if suggested == "" {
			continue
		}
		redlines = append(redlines, types.Redline{
			Section:         gap.Section,
			OriginalText:    "",
			SuggestedText:   suggested,
			Rationale:       gap.Gap,
			Framework:       gap.Framework,
			ConfidenceScore: confidenceForRisk(gap.RiskLevel),
		})
	}
	return redlines, nil
}

// suggestedClause looks up the template clause for a gap
func (r *templateRedliner) suggestedClause(gap types.GapAnalysis) string {
	for _, req := range r.requirements {
		if req.Framework == gap.Framework && req.Section == gap.Section {
			return req.Suggested
		}
	}
	return ""
}

// confidenceForRisk scores template suggestions by the risk they close
func confidenceForRisk(risk types.Severity) float64 {
	switch risk {
	case types.SeverityCritical:
		return 0.8
	case types.SeverityHigh:
		return 0.7
	default:
		return 0.6
	}
}
