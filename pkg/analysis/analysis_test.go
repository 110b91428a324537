package analysis

import (
	"context"
	"testing"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

func TestAnalyzeReportsMissingRequirements(t *testing.T) {
	analyzer := NewGapAnalyzer()

	// The text covers records access but says nothing about directory
	// information, so exactly one FERPA gap remains
	text := "Parents may inspect and review education records on request."

	gaps, err := analyzer.Analyze(context.Background(), text, []string{"FERPA"}, types.Entities{})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("Expected 1 gap, got %d: %+v", len(gaps), gaps)
	}
	gap := gaps[0]
	if gap.Framework != "FERPA" || gap.Section != "Directory Information" {
		t.Errorf("Unexpected gap %+v", gap)
	}
	if gap.RiskLevel != types.SeverityMedium {
		t.Errorf("Expected medium risk, got %q", gap.RiskLevel)
	}
}

func TestAnalyzeOnlyMatchedFrameworks(t *testing.T) {
	analyzer := NewGapAnalyzer()

	gaps, err := analyzer.Analyze(context.Background(), "bare text", []string{"COPPA"}, types.Entities{})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	for _, gap := range gaps {
		if gap.Framework != "COPPA" {
			t.Errorf("Gap for unmatched framework: %+v", gap)
		}
	}
	if len(gaps) == 0 {
		t.Error("Expected COPPA gaps for text with no consent language")
	}
}

func TestAnalyzeNoFrameworks(t *testing.T) {
	analyzer := NewGapAnalyzer()

	gaps, err := analyzer.Analyze(context.Background(), "anything", nil, types.Entities{})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(gaps) != 0 {
		t.Errorf("Expected no gaps without frameworks, got %d", len(gaps))
	}
}

func TestGenerateRedlinesFromGaps(t *testing.T) {
	analyzer := NewGapAnalyzer()
	redliner := NewPolicyRedliner()

	gaps, err := analyzer.Analyze(context.Background(), "bare text", []string{"FERPA", "COPPA"}, types.Entities{})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	redlines, err := redliner.GenerateRedlines(context.Background(), "bare text", []string{"FERPA", "COPPA"}, gaps)
	if err != nil {
		t.Fatalf("GenerateRedlines returned error: %v", err)
	}
	if len(redlines) != len(gaps) {
		t.Fatalf("Expected %d redlines, got %d", len(gaps), len(redlines))
	}

	for i, rl := range redlines {
		if rl.SuggestedText == "" {
			t.Errorf("Redline %d has empty suggestion", i)
		}
		if rl.Framework != gaps[i].Framework {
			t.Errorf("Redline %d framework %q does not match gap %q", i, rl.Framework, gaps[i].Framework)
		}
		if rl.ConfidenceScore <= 0 || rl.ConfidenceScore > 1 {
			t.Errorf("Redline %d confidence %v out of range", i, rl.ConfidenceScore)
		}
	}

	// The COPPA consent gap is critical so its suggestion scores highest
	for _, rl := range redlines {
		if rl.Framework == "COPPA" && rl.ConfidenceScore != 0.8 {
			t.Errorf("Expected confidence 0.8 for critical gap, got %v", rl.ConfidenceScore)
		}
	}
}

func TestGenerateRedlinesEmptyGaps(t *testing.T) {
	redliner := NewPolicyRedliner()

	redlines, err := redliner.GenerateRedlines(context.Background(), "text", []string{"FERPA"}, nil)
	if err != nil {
		t.Fatalf("GenerateRedlines returned error: %v", err)
	}
	if len(redlines) != 0 {
		t.Errorf("Expected no redlines, got %d", len(redlines))
	}
}
