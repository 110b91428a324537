package threat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

func TestScanCleanBuffer(t *testing.T) {
	scanner := NewScanner(nil)
	result := scanner.Scan(context.Background(), []byte("An ordinary district policy document about attendance."))

	if result.Infected {
		t.Errorf("clean buffer flagged infected: %+v", result.Detections)
	}
	if len(result.Detections) != 0 {
		t.Errorf("expected no detections, got %d", len(result.Detections))
	}
	if result.SHA256 == "" {
		t.Error("expected SHA-256 hash to be set")
	}
}

func TestScanKnownBadHash(t *testing.T) {
	payload := []byte("malicious payload")
	sum := sha256.Sum256(payload)

	sigs := DefaultSignatureSet()
	sigs.KnownBadHashes[hex.EncodeToString(sum[:])] = "EICAR-Test"

	scanner := NewScanner(sigs)
	result := scanner.Scan(context.Background(), payload)

	if !result.Infected {
		t.Fatal("known-bad hash not flagged infected")
	}
	if len(result.Detections) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(result.Detections))
	}
	d := result.Detections[0]
	if d.Name != "Known Malware" || d.Severity != types.SeverityCritical || d.Action != ActionBlock {
		t.Errorf("unexpected detection: %+v", d)
	}
}

func TestScanContentPatterns(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		detections int
		infected   bool
	}{
		{
			name:       "embedded script tag",
			content:    "policy text <script>alert(1)</script> more text",
			detections: 1,
			infected:   false,
		},
		{
			name:       "multiple patterns union",
			content:    `<?php eval($_GET["x"]); system("ls"); ?>`,
			detections: 3, // eval(, system(, <?php
			infected:   false,
		},
		{
			name:       "no patterns",
			content:    "plain handbook text",
			detections: 0,
			infected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := NewScanner(nil)
			result := scanner.Scan(context.Background(), []byte(tt.content))

			if len(result.Detections) != tt.detections {
				t.Errorf("expected %d detections, got %d: %+v", tt.detections, len(result.Detections), result.Detections)
			}
			if result.Infected != tt.infected {
				t.Errorf("expected infected=%v, got %v", tt.infected, result.Infected)
			}
			for _, d := range result.Detections {
				if d.Name != "Suspicious Content" || d.Severity != types.SeverityMedium {
					t.Errorf("unexpected detection: %+v", d)
				}
			}
		})
	}
}

func TestScanContentPatternsRespectHeadSize(t *testing.T) {
	// The pattern sits past the scanned head, so it must not match.
	content := strings.Repeat("a", defaultHeadSize) + "<script>"
	scanner := NewScanner(nil)
	result := scanner.Scan(context.Background(), []byte(content))

	if len(result.Detections) != 0 {
		t.Errorf("pattern beyond head size should not match, got %+v", result.Detections)
	}
}

func TestScanDeclaredTypeMismatch(t *testing.T) {
	scanner := NewScanner(nil)

	t.Run("pdf without magic", func(t *testing.T) {
		result := scanner.ScanNamed(context.Background(), []byte("not a pdf at all"), "handbook.pdf")
		if want := 1; len(result.Detections) != want {
			t.Fatalf("expected %d detection, got %d", want, len(result.Detections))
		}
		d := result.Detections[0]
		if d.Name != "Malformed PDF" || d.Severity != types.SeverityMedium {
			t.Errorf("unexpected detection: %+v", d)
		}
		if result.Infected {
			t.Error("medium-only result must not be infected")
		}
	})

	t.Run("genuine pdf header", func(t *testing.T) {
		result := scanner.ScanNamed(context.Background(), []byte("%PDF-1.7 rest of file"), "handbook.pdf")
		if len(result.Detections) != 0 {
			t.Errorf("expected no detections, got %+v", result.Detections)
		}
	})
}

func TestScanEmbeddedExecutable(t *testing.T) {
	scanner := NewScanner(nil)
	buf := append([]byte("%PDF-1.4 some content "), 0x7f, 'E', 'L', 'F')
	result := scanner.ScanNamed(context.Background(), buf, "report.pdf")

	if !result.Infected {
		t.Fatal("embedded executable must flag the result infected")
	}
	found := false
	for _, d := range result.Detections {
		if d.Name == "Embedded Executable" {
			found = true
			if d.Severity != types.SeverityHigh || d.Action != ActionBlock {
				t.Errorf("unexpected detection: %+v", d)
			}
		}
	}
	if !found {
		t.Errorf("no Embedded Executable detection in %+v", result.Detections)
	}
}

func TestScanMacroIndicators(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{
			name:     "three distinct indicators",
			content:  "vbaProject.bin Module1 Auto_Open",
			expected: true,
		},
		{
			name:     "two indicators below threshold",
			content:  "vbaProject.bin Module1",
			expected: false,
		},
		{
			name:     "repeated indicator counts once",
			content:  "Module1 Module1 Module1",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := NewScanner(nil)
			result := scanner.Scan(context.Background(), []byte(tt.content))

			found := false
			for _, d := range result.Detections {
				if d.Name == "Macro Heavy Document" {
					found = true
				}
			}
			if found != tt.expected {
				t.Errorf("expected macro detection=%v, got %v (%+v)", tt.expected, found, result.Detections)
			}
		})
	}
}

// failingEngine simulates an unreachable AV daemon.
type failingEngine struct{}

func (failingEngine) Name() string { return "clamd" }
func (failingEngine) Scan(context.Context, []byte) ([]Detection, error) {
	return nil, errors.New("connection refused")
}

func TestScanExternalEngineUnavailable(t *testing.T) {
	scanner := NewScanner(nil, WithExternalEngine(failingEngine{}))
	result := scanner.Scan(context.Background(), []byte("plain text document"))

	if len(result.Detections) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(result.Detections))
	}
	d := result.Detections[0]
	if d.Name != "External Scanner Error" || d.Severity != types.SeverityMedium {
		t.Errorf("unexpected detection: %+v", d)
	}
	if result.Infected {
		t.Error("external engine unavailability alone must not flag infected")
	}
}

// unionEngine returns a fixed detection to verify external findings merge.
type unionEngine struct{}

func (unionEngine) Name() string { return "clamd" }
func (unionEngine) Scan(context.Context, []byte) ([]Detection, error) {
	return []Detection{{
		Name:     "Eicar-Signature",
		Category: CategoryExternal,
		Severity: types.SeverityCritical,
		Action:   ActionBlock,
	}}, nil
}

func TestScanExternalEngineFindingsUnioned(t *testing.T) {
	scanner := NewScanner(nil, WithExternalEngine(unionEngine{}))
	result := scanner.Scan(context.Background(), []byte("eval( suspicious"))

	if !result.Infected {
		t.Fatal("critical external finding must flag infected")
	}
	if len(result.Detections) != 2 {
		t.Errorf("expected pattern + external detections, got %+v", result.Detections)
	}
}

func TestScanFailClosed(t *testing.T) {
	scanner := NewScanner(nil, withStructuralAnalyzer(func([]byte, string) []Detection {
		panic("signature table corrupted")
	}))

	result := scanner.Scan(context.Background(), []byte("any content"))

	if !result.Infected {
		t.Fatal("internal scan failure must fail closed as infected")
	}
	if len(result.Detections) != 1 {
		t.Fatalf("expected exactly one synthetic detection, got %d", len(result.Detections))
	}
	d := result.Detections[0]
	if d.Name != "Scan Error" || d.Severity != types.SeverityHigh {
		t.Errorf("unexpected synthetic detection: %+v", d)
	}
	if result.SHA256 == "" {
		t.Error("fail-closed result must still carry the file hash")
	}
}

func TestInfectedRequiresHighOrCritical(t *testing.T) {
	// Medium-only detections from several layers must leave infected=false.
	scanner := NewScanner(nil)
	result := scanner.ScanNamed(context.Background(), []byte("<script> eval( vbaProject.bin macros/ Module1"), "doc.pdf")

	if result.Infected {
		t.Errorf("medium-only detections must not infect: %+v", result.Detections)
	}
	if len(result.Detections) < 3 {
		t.Errorf("expected several medium detections, got %+v", result.Detections)
	}
	if max := result.MaxSeverity(); max != types.SeverityMedium {
		t.Errorf("expected max severity medium, got %s", max)
	}
}

func TestSummaryHidesDetectionNames(t *testing.T) {
	scanner := NewScanner(nil)
	result := scanner.Scan(context.Background(), []byte("exec( system("))

	sum := result.Summary()
	if sum[CategorySuspicious] != 2 {
		t.Errorf("expected 2 suspicious-content entries, got %+v", sum)
	}
}
