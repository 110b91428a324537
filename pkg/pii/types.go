// Package pii provides detection and redaction of personally
// identifiable information in extracted document text.
package pii

import (
	"github.com/schoolsafe/docpipeline/pkg/types"
)

// PIIType represents different types of personally identifiable information
type PIIType string

const (
	TypeSSN            PIIType = "ssn"
	TypeCreditCard     PIIType = "credit_card"
	TypeEmail          PIIType = "email"
	TypePhoneNumber    PIIType = "phone_number"
	TypeStudentID      PIIType = "student_id"
	TypeBankAccount    PIIType = "bank_account"
	TypeRoutingNumber  PIIType = "routing_number"
	TypeDateOfBirth    PIIType = "date_of_birth"
	TypeName           PIIType = "name"
	TypeAddress        PIIType = "address"
	TypeDriversLicense PIIType = "drivers_license"
	TypePassport       PIIType = "passport"
	TypeMedicalRecord  PIIType = "medical_record_number"
)

// SeverityFor returns the fixed severity for a PII type.
func SeverityFor(t PIIType) types.Severity {
	switch t {
	case TypeSSN, TypeCreditCard, TypeBankAccount, TypeMedicalRecord:
		return types.SeverityCritical
	case TypeStudentID, TypeDateOfBirth, TypeDriversLicense, TypePassport:
		return types.SeverityHigh
	case TypeEmail, TypePhoneNumber, TypeName, TypeAddress:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

// placeholders maps each PII type to its fixed redaction token.
var placeholders = map[PIIType]string{
	TypeSSN:            "[SSN REDACTED]",
	TypeCreditCard:     "[CREDIT CARD REDACTED]",
	TypeEmail:          "[EMAIL REDACTED]",
	TypePhoneNumber:    "[PHONE REDACTED]",
	TypeStudentID:      "[STUDENT ID REDACTED]",
	TypeBankAccount:    "[BANK ACCOUNT REDACTED]",
	TypeRoutingNumber:  "[ROUTING NUMBER REDACTED]",
	TypeDateOfBirth:    "[DOB REDACTED]",
	TypeName:           "[NAME REDACTED]",
	TypeAddress:        "[ADDRESS REDACTED]",
	TypeDriversLicense: "[LICENSE REDACTED]",
	TypePassport:       "[PASSPORT REDACTED]",
	TypeMedicalRecord:  "[MRN REDACTED]",
}

// PlaceholderFor returns the redaction token for a PII type.
func PlaceholderFor(t PIIType) string {
	if p, ok := placeholders[t]; ok {
		return p
	}
	return "[PII REDACTED]"
}

// Match represents a raw pattern match before filtering
type Match struct {
	Value      string  `json:"value"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Context    string  `json:"context"`
	Confidence float64 `json:"confidence"`
}

// Finding represents a detected PII instance. Start and End are byte
// offsets into the original text, even when redacted text is returned.
type Finding struct {
	ID         string         `json:"id"`
	Type       PIIType        `json:"type"`
	Value      string         `json:"value"`
	Start      int            `json:"start"`
	End        int            `json:"end"`
	Confidence float64        `json:"confidence"`
	Context    string         `json:"context"`
	Severity   types.Severity `json:"severity"`
}

// Summary aggregates a scan's findings.
type Summary struct {
	TotalFindings    int       `json:"total_findings"`
	CriticalFindings int       `json:"critical_findings"`
	TypesFound       []PIIType `json:"types_found"`
}

// ScanResult contains the results of a PII scan. HasPII is true iff the
// filtered finding list is non-empty; Confidence is the arithmetic mean
// of surviving findings' confidence rounded to two decimals, 0 when no
// findings survive.
type ScanResult struct {
	HasPII       bool      `json:"has_pii"`
	Confidence   float64   `json:"confidence"`
	Findings     []Finding `json:"findings"`
	RedactedText string    `json:"redacted_text,omitempty"`
	Summary      Summary   `json:"summary"`
}

// ScanConfig is the immutable configuration a scanner is constructed
// with. The false-positive tables are data so they can be extended and
// tested independently of scan orchestration.
type ScanConfig struct {
	// MinConfidence is the exclusive lower bound: findings with
	// confidence less than or equal to it are discarded.
	MinConfidence float64 `yaml:"min_confidence"`

	// ContextWindow is how many bytes of surrounding text are captured
	// around each finding.
	ContextWindow int `yaml:"context_window"`

	// ExcludedSSNs lists placeholder SSNs that are never real.
	ExcludedSSNs []string `yaml:"excluded_ssns"`

	// ExcludedAreaCodes lists phone area codes reserved for fiction.
	ExcludedAreaCodes []string `yaml:"excluded_area_codes"`

	// ExcludedEmailDomains lists documentation-only email domains.
	ExcludedEmailDomains []string `yaml:"excluded_email_domains"`
}

// DefaultScanConfig returns the default scan configuration.
func DefaultScanConfig() *ScanConfig {
	return &ScanConfig{
		MinConfidence:        0.6,
		ContextWindow:        30,
		ExcludedSSNs:         []string{"000-00-0000"},
		ExcludedAreaCodes:    []string{"555"},
		ExcludedEmailDomains: []string{"example.com"},
	}
}
