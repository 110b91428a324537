package artifact

import (
	"context"
	"strings"
	"testing"

	"github.com/schoolsafe/docpipeline/pkg/blob"
	"github.com/schoolsafe/docpipeline/pkg/types"
)

func testRequest() Request {
	return Request{
		Upload: &types.DocumentUpload{
			ID:           "upload-1",
			FileName:     "handbook.txt",
			DocumentType: types.DocumentTypeHandbook,
			PIIDetected:  true,
		},
		Result: &types.ProcessingResult{
			ID:         "result-1",
			UploadID:   "upload-1",
			Frameworks: []string{"FERPA"},
			GapAnalyses: []types.GapAnalysis{
				{
					Section:     "Directory Information",
					Requirement: "Opt-out notice",
					Gap:         "no opt-out language",
					RiskLevel:   types.SeverityMedium,
					Remediation: "add notice",
					Framework:   "FERPA",
				},
			},
			Redlines: []types.Redline{
				{
					Section:         "Directory Information",
					SuggestedText:   "Annual opt-out notice text.",
					Rationale:       "no opt-out language",
					Framework:       "FERPA",
					ConfidenceScore: 0.6,
				},
			},
		},
		Institution: &types.Institution{
			ID:   "inst-1",
			Name: "Springfield USD",
			Type: "district",
		},
	}
}

func TestGenerateAll(t *testing.T) {
	store, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore returned error: %v", err)
	}
	generator := NewGenerator(store)

	artifacts, err := generator.GenerateAll(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("GenerateAll returned error: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("Expected 2 artifacts, got %d", len(artifacts))
	}

	report := artifacts[0]
	if report.Type != "compliance_report" || report.Format != "md" {
		t.Errorf("Unexpected report artifact %+v", report)
	}
	if report.FileSize <= 0 {
		t.Error("Expected positive report file size")
	}

	data, err := store.Get(context.Background(), "artifacts/upload-1/compliance-report.md")
	if err != nil {
		t.Fatalf("Reading stored report: %v", err)
	}
	content := string(data)
	for _, want := range []string{"Springfield USD", "FERPA", "Directory Information", "redacted before analysis"} {
		if !strings.Contains(content, want) {
			t.Errorf("Report missing %q", want)
		}
	}

	gaps := artifacts[1]
	if gaps.Type != "gap_summary" || gaps.Format != "json" {
		t.Errorf("Unexpected gap artifact %+v", gaps)
	}
	if gaps.Metadata["gap_count"] != "1" || gaps.Metadata["redline_count"] != "1" {
		t.Errorf("Unexpected gap metadata %v", gaps.Metadata)
	}
}

func TestGenerateAllMissingInputs(t *testing.T) {
	store, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore returned error: %v", err)
	}
	generator := NewGenerator(store)

	if _, err := generator.GenerateAll(context.Background(), Request{}); err == nil {
		t.Error("Expected error for empty request")
	}
}
