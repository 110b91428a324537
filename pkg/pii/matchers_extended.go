package pii

import (
	"regexp"
	"strings"
)

// PassportMatcher detects passport numbers near a "passport" keyword
type PassportMatcher struct {
	baseMatcher
	contextPattern *regexp.Regexp
}

// NewPassportMatcher creates a new passport matcher
func NewPassportMatcher() *PassportMatcher {
	return &PassportMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-passport",
			piiType: TypePassport,
			pattern: regexp.MustCompile(`\b[A-Z]{1,2}[0-9]{6,9}\b`),
		},
		contextPattern: regexp.MustCompile(`(?i)passport`),
	}
}

// Match finds passport number matches. The bare pattern is too generic
// on its own, so matches without a nearby keyword are discarded.
func (m *PassportMatcher) Match(content string) []Match {
	matches := m.findAllMatches(content, matcherContextWindow, 0.9)
	valid := make([]Match, 0, len(matches))
	for _, match := range matches {
		if m.contextPattern.MatchString(match.Context) {
			valid = append(valid, match)
		}
	}
	return valid
}

// DriversLicenseMatcher detects driver's license numbers
type DriversLicenseMatcher struct {
	baseMatcher
	contextPattern *regexp.Regexp
}

// NewDriversLicenseMatcher creates a new driver's license matcher
func NewDriversLicenseMatcher() *DriversLicenseMatcher {
	return &DriversLicenseMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-drivers-license",
			piiType: TypeDriversLicense,
			// Letter-plus-digits covers most state formats
			pattern: regexp.MustCompile(`\b[A-Z][0-9]{5,14}\b`),
		},
		contextPattern: regexp.MustCompile(`(?i)(?:license|licence|\bdl\b|driver)`),
	}
}

// Match finds driver's license matches with a context keyword nearby
func (m *DriversLicenseMatcher) Match(content string) []Match {
	matches := m.findAllMatches(content, matcherContextWindow, 0.85)
	valid := make([]Match, 0, len(matches))
	for _, match := range matches {
		if m.contextPattern.MatchString(match.Context) {
			valid = append(valid, match)
		}
	}
	return valid
}

// AddressMatcher detects US street addresses
type AddressMatcher struct {
	baseMatcher
}

// NewAddressMatcher creates a new street address matcher
func NewAddressMatcher() *AddressMatcher {
	return &AddressMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-address",
			piiType: TypeAddress,
			pattern: regexp.MustCompile(
				`(?i)\b\d{1,5}\s+[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*\s+` +
					`(?:St|Street|Ave|Avenue|Blvd|Boulevard|Dr|Drive|Rd|Road|Ln|Lane|Way|Ct|Court|Pl|Place|Cir|Circle)\b`,
			),
		},
	}
}

// Match finds address matches, scoring longer addresses higher
func (m *AddressMatcher) Match(content string) []Match {
	matches := m.findAllMatches(content, matcherContextWindow, 0.65)
	for i := range matches {
		if len(strings.Fields(matches[i].Value)) >= 4 {
			matches[i].Confidence = 0.8
		}
	}
	return matches
}

// MedicalRecordMatcher detects medical record numbers with explicit labels
type MedicalRecordMatcher struct {
	baseMatcher
}

// NewMedicalRecordMatcher creates a new medical record number matcher
func NewMedicalRecordMatcher() *MedicalRecordMatcher {
	return &MedicalRecordMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-mrn",
			piiType: TypeMedicalRecord,
			pattern: regexp.MustCompile(`(?i)(?:MRN|MR#|Medical\s*Record|Med\s*Rec)[\s#:]*[A-Z0-9]{6,12}\b`),
		},
	}
}

// Match finds medical record number matches
func (m *MedicalRecordMatcher) Match(content string) []Match {
	matches := m.findAllMatches(content, matcherContextWindow, 0.9)
	for i := range matches {
		lower := strings.ToLower(matches[i].Value)
		if strings.HasPrefix(lower, "mrn") || strings.HasPrefix(lower, "mr#") {
			matches[i].Confidence = 0.95
		}
	}
	return matches
}
