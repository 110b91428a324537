// Package frameworks scores compliance framework applicability against
// document content.
package frameworks

import (
	"context"
	"sort"
	"strings"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

// Framework names returned by the mapper
const (
	FERPA = "FERPA"
	COPPA = "COPPA"
	PPRA  = "PPRA"
	HIPAA = "HIPAA"
	GDPR  = "GDPR"
	CCPA  = "CCPA"
)

// Mapper scores compliance frameworks against document text and
// returns applicable framework names ordered by descending
// applicability confidence. The confidence itself stays internal.
type Mapper interface {
	MapFrameworks(ctx context.Context, text string, docType types.DocumentType, institutionType string) ([]string, error)
}

// Rule is one framework's scoring table. Keyword hits accumulate
// weight; institution and document types contribute a base score so
// core frameworks apply even to documents that never name them.
type Rule struct {
	Framework        string
	Keywords         map[string]float64
	InstitutionBoost map[string]float64
	DocTypeBoost     map[types.DocumentType]float64
	Threshold        float64
}

// defaultRules is the built-in scoring table for the education sector
func defaultRules() []Rule {
	return []Rule{
		{
			Framework: FERPA,
			Keywords: map[string]float64{
				"ferpa": 3, "education record": 2, "student record": 2,
				"directory information": 2, "parental consent": 1, "transcript": 1,
			},
			InstitutionBoost: map[string]float64{
				"k12": 2, "district": 2, "higher_ed": 2,
			},
			DocTypeBoost: map[types.DocumentType]float64{
				types.DocumentTypePolicy:   1,
				types.DocumentTypeHandbook: 1,
			},
			Threshold: 1,
		},
		{
			Framework: COPPA,
			Keywords: map[string]float64{
				"coppa": 3, "under 13": 2, "children's online": 2,
				"parental consent": 1, "child": 0.5,
			},
			InstitutionBoost: map[string]float64{
				"k12": 1, "district": 1,
			},
			Threshold: 1.5,
		},
		{
			Framework: PPRA,
			Keywords: map[string]float64{
				"ppra": 3, "survey": 1.5, "protected information survey": 3,
				"opt out": 1, "political affiliation": 2,
			},
			InstitutionBoost: map[string]float64{
				"k12": 0.5, "district": 0.5,
			},
			Threshold: 1.5,
		},
		{
			Framework: HIPAA,
			Keywords: map[string]float64{
				"hipaa": 3, "protected health information": 3, "phi": 1,
				"medical record": 2, "health plan": 1.5, "immunization": 1,
			},
			Threshold: 2,
		},
		{
			Framework: GDPR,
			Keywords: map[string]float64{
				"gdpr": 3, "data subject": 2, "right to erasure": 2,
				"data controller": 2, "data processor": 1.5, "lawful basis": 2,
			},
			Threshold: 2,
		},
		{
			Framework: CCPA,
			Keywords: map[string]float64{
				"ccpa": 3, "california consumer": 3, "do not sell": 2,
				"consumer privacy": 1.5,
			},
			Threshold: 2,
		},
	}
}

// keywordMapper is the built-in rule-table mapper
type keywordMapper struct {
	rules []Rule
}

// NewMapper creates a mapper with the built-in education-sector rules
func NewMapper() Mapper {
	return &keywordMapper{rules: defaultRules()}
}

// NewMapperWithRules creates a mapper with a custom rule table
func NewMapperWithRules(rules []Rule) Mapper {
	return &keywordMapper{rules: rules}
}

// MapFrameworks scores each framework and returns those at or above
// their threshold, ordered by descending score then name.
func (m *keywordMapper) MapFrameworks(ctx context.Context, text string, docType types.DocumentType, institutionType string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	lower := strings.ToLower(text)

	type scored struct {
		name  string
		score float64
	}
	var applicable []scored

	for _, r := range m.rules {
		score := 0.0
		for keyword, weight := range r.Keywords {
			score += weight * float64(strings.Count(lower, keyword))
		}
		score += r.InstitutionBoost[strings.ToLower(institutionType)]
		score += r.DocTypeBoost[docType]

		if score >= r.Threshold {
			applicable = append(applicable, scored{name: r.Framework, score: score})
		}
	}

	sort.Slice(applicable, func(i, j int) bool {
		if applicable[i].score != applicable[j].score {
			return applicable[i].score > applicable[j].score
		}
		return applicable[i].name < applicable[j].name
	})

	names := make([]string, 0, len(applicable))
	for _, s := range applicable {
		names = append(names, s.name)
	}
	return names, nil
}
