package pii

import (
	"reflect"
	"strings"
	"testing"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner == nil {
		t.Fatal("NewScanner returned nil")
	}
	if len(scanner.SupportedTypes()) == 0 {
		t.Error("Expected default scanner to support at least one PII type")
	}
}

func TestScanFormattedSSN(t *testing.T) {
	scanner := NewScanner()

	result := scanner.Scan("Employee SSN: 123-45-6789 on file.")

	if !result.HasPII {
		t.Fatal("Expected HasPII to be true")
	}
	if len(result.Findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(result.Findings))
	}

	f := result.Findings[0]
	if f.Type != TypeSSN {
		t.Errorf("Expected type %q, got %q", TypeSSN, f.Type)
	}
	if f.Confidence != 0.95 {
		t.Errorf("Expected confidence 0.95, got %v", f.Confidence)
	}
	if f.Severity != types.SeverityCritical {
		t.Errorf("Expected critical severity, got %q", f.Severity)
	}
	if result.RedactedText != "Employee [SSN REDACTED] on file." {
		t.Errorf("Unexpected redacted text %q", result.RedactedText)
	}
}

func TestScanFalsePositiveFiltering(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "Placeholder SSN",
			content: "SSN: 000-00-0000",
		},
		{
			name:    "Fictional area code",
			content: "call 555-123-4567",
		},
		{
			name:    "Documentation email domain",
			content: "email test@example.com",
		},
		{
			name:    "All three together",
			content: "SSN: 000-00-0000, call 555-123-4567, email test@example.com",
		},
		{
			name:    "Luhn failure at confidence cutoff",
			content: "Card: 4532015112830367",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scanner.Scan(tt.content)
			if result.HasPII {
				t.Errorf("Expected no PII, got findings %+v", result.Findings)
			}
			if result.Confidence != 0 {
				t.Errorf("Expected confidence 0, got %v", result.Confidence)
			}
			if result.RedactedText != tt.content {
				t.Errorf("Expected text unchanged, got %q", result.RedactedText)
			}
		})
	}
}

func TestScanConfidenceIsMeanRounded(t *testing.T) {
	scanner := NewScanner()

	// SSN at 0.95 and email at 0.9 average to 0.925, rounded to 0.93
	result := scanner.Scan("SSN 123-45-6789, mail jdoe@school.edu")

	if len(result.Findings) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(result.Findings))
	}
	if result.Confidence != 0.93 {
		t.Errorf("Expected confidence 0.93, got %v", result.Confidence)
	}
}

func TestScanFindingsSortedByOffset(t *testing.T) {
	scanner := NewScanner()

	// Registry runs the SSN matcher before the email matcher; output
	// order must follow text position regardless
	result := scanner.Scan("mail jdoe@school.edu ssn 123-45-6789")

	if len(result.Findings) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(result.Findings))
	}
	if result.Findings[0].Type != TypeEmail {
		t.Errorf("Expected first finding to be email, got %q", result.Findings[0].Type)
	}
	if result.Findings[1].Type != TypeSSN {
		t.Errorf("Expected second finding to be ssn, got %q", result.Findings[1].Type)
	}
	if result.Findings[0].Start >= result.Findings[1].Start {
		t.Error("Findings not sorted by ascending start offset")
	}
}

func TestScanOffsetsDescribeOriginalText(t *testing.T) {
	scanner := NewScanner()
	text := "SSN 123-45-6789, mail jdoe@school.edu, card 4532015112830366"

	result := scanner.Scan(text)

	if len(result.Findings) != 3 {
		t.Fatalf("Expected 3 findings, got %d", len(result.Findings))
	}
	for _, f := range result.Findings {
		if text[f.Start:f.End] != f.Value {
			t.Errorf("Offsets [%d:%d] yield %q, want %q", f.Start, f.End, text[f.Start:f.End], f.Value)
		}
	}

	// Redacted length differs from the original by exactly the
	// per-finding placeholder/value deltas
	wantLen := len(text)
	for _, f := range result.Findings {
		wantLen += len(PlaceholderFor(f.Type)) - len(f.Value)
	}
	if len(result.RedactedText) != wantLen {
		t.Errorf("Expected redacted length %d, got %d", wantLen, len(result.RedactedText))
	}
	for _, f := range result.Findings {
		if strings.Contains(result.RedactedText, f.Value) {
			t.Errorf("Redacted text still contains %q", f.Value)
		}
	}
}

func TestScanOverlapResolution(t *testing.T) {
	scanner := NewScanner()

	// The labeled bank account span contains a bare ten-digit run the
	// phone matcher also flags; only the higher-confidence finding may
	// survive or redaction offsets would collide
	result := scanner.Scan("Account #: 1234567890 on record")

	if len(result.Findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(result.Findings))
	}
	if result.Findings[0].Type != TypeBankAccount {
		t.Errorf("Expected bank_account to win, got %q", result.Findings[0].Type)
	}
	if result.RedactedText != "[BANK ACCOUNT REDACTED] on record" {
		t.Errorf("Unexpected redacted text %q", result.RedactedText)
	}
}

func TestScanNameHeuristic(t *testing.T) {
	scanner := NewScanner()

	result := scanner.Scan("Contact Maria Garcia for details.")

	if len(result.Findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(result.Findings))
	}
	f := result.Findings[0]
	if f.Type != TypeName || f.Value != "Maria Garcia" {
		t.Errorf("Unexpected finding %+v", f)
	}
	if f.Severity != types.SeverityMedium {
		t.Errorf("Expected medium severity, got %q", f.Severity)
	}
	if result.RedactedText != "Contact [NAME REDACTED] for details." {
		t.Errorf("Unexpected redacted text %q", result.RedactedText)
	}
}

func TestScanSummary(t *testing.T) {
	scanner := NewScanner()

	result := scanner.Scan("SSN 123-45-6789 and SSN 234-56-7890, mail jdoe@school.edu")

	if result.Summary.TotalFindings != 3 {
		t.Errorf("Expected 3 total findings, got %d", result.Summary.TotalFindings)
	}
	if result.Summary.CriticalFindings != 2 {
		t.Errorf("Expected 2 critical findings, got %d", result.Summary.CriticalFindings)
	}
	want := []PIIType{TypeSSN, TypeEmail}
	if !reflect.DeepEqual(result.Summary.TypesFound, want) {
		t.Errorf("Expected types %v, got %v", want, result.Summary.TypesFound)
	}
}

func TestScanDeterministic(t *testing.T) {
	scanner := NewScanner()
	text := "SSN 123-45-6789, mail jdoe@school.edu, Student ID: 707123"

	first := scanner.Scan(text)
	second := scanner.Scan(text)

	if !reflect.DeepEqual(first, second) {
		t.Error("Repeated scans of the same text produced different results")
	}
}

func TestScanEmptyText(t *testing.T) {
	scanner := NewScanner()

	result := scanner.Scan("")

	if result.HasPII {
		t.Error("Expected no PII in empty text")
	}
	if result.Confidence != 0 {
		t.Errorf("Expected confidence 0, got %v", result.Confidence)
	}
	if result.RedactedText != "" {
		t.Errorf("Expected empty redacted text, got %q", result.RedactedText)
	}
}

func TestScannerWithCustomConfig(t *testing.T) {
	config := DefaultScanConfig()
	config.ExcludedEmailDomains = append(config.ExcludedEmailDomains, "test.internal")
	scanner := NewScannerWithConfig(config)

	result := scanner.Scan("mail jdoe@test.internal")

	if result.HasPII {
		t.Errorf("Expected excluded domain to be filtered, got %+v", result.Findings)
	}
}

func TestRegistryReplacePreservesOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewSSNMatcher())
	registry.Register(NewEmailMatcher())

	// Re-registering the SSN matcher must keep its original position
	registry.Register(NewSSNMatcher())

	all := registry.All()
	if len(all) != 2 {
		t.Fatalf("Expected 2 matchers, got %d", len(all))
	}
	if all[0].ID() != "pii-ssn" || all[1].ID() != "pii-email" {
		t.Errorf("Unexpected order: %q, %q", all[0].ID(), all[1].ID())
	}

	if _, ok := registry.Get("pii-ssn"); !ok {
		t.Error("Expected to find pii-ssn in registry")
	}
	if _, ok := registry.Get("missing"); ok {
		t.Error("Did not expect to find missing matcher")
	}
}
