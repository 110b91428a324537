// Package artifact produces output files from a completed processing
// run: compliance reports, gap summaries, and similar deliverables.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/schoolsafe/docpipeline/pkg/blob"
	"github.com/schoolsafe/docpipeline/pkg/types"
)

// Request carries everything the generator needs about one run
type Request struct {
	Upload      *types.DocumentUpload
	Result      *types.ProcessingResult
	Institution *types.Institution
}

// Generator turns a processing result into stored output files. The
// returned artifacts carry storage URLs but no IDs; the caller assigns
// IDs when persisting them as child records.
type Generator interface {
	GenerateAll(ctx context.Context, req Request) ([]types.GeneratedArtifact, error)
}

// reportGenerator writes a markdown compliance report and a JSON gap
// export to blob storage
type reportGenerator struct {
	store blob.Store
}

// NewGenerator creates the built-in report generator
func NewGenerator(store blob.Store) Generator {
	return &reportGenerator{store: store}
}

// GenerateAll produces the standard artifact set for one run
func (g *reportGenerator) GenerateAll(ctx context.Context, req Request) ([]types.GeneratedArtifact, error) {
	if req.Upload == nil || req.Result == nil || req.Institution == nil {
		return nil, fmt.Errorf("artifact generation requires upload, result, and institution")
	}

	report := renderReport(req)
	reportURL, err := g.store.Put(ctx, artifactKey(req.Upload.ID, "compliance-report.md"), []byte(report))
	if err != nil {
		return nil, fmt.Errorf("storing compliance report: %w", err)
	}

	gapExport, err := json.MarshalIndent(struct {
		UploadID    string              `json:"upload_id"`
		Frameworks  []string            `json:"frameworks"`
		GapAnalyses []types.GapAnalysis `json:"gap_analyses"`
		Redlines    []types.Redline     `json:"redlines"`
	}{
		UploadID:    req.Upload.ID,
		Frameworks:  req.Result.Frameworks,
		GapAnalyses: req.Result.GapAnalyses,
		Redlines:    req.Result.Redlines,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding gap export: %w", err)
	}
	gapURL, err := g.store.Put(ctx, artifactKey(req.Upload.ID, "gap-summary.json"), gapExport)
	if err != nil {
		return nil, fmt.Errorf("storing gap summary: %w", err)
	}

	return []types.GeneratedArtifact{
		{
			Type:        "compliance_report",
			Format:      "md",
			Title:       "Compliance Report: " + req.Upload.FileName,
			Description: fmt.Sprintf("Framework compliance report for %s", req.Institution.Name),
			StorageURL:  reportURL,
			FileSize:    int64(len(report)),
			Metadata: map[string]string{
				"institution_type": req.Institution.Type,
				"document_type":    string(req.Upload.DocumentType),
			},
		},
		{
			Type:        "gap_summary",
			Format:      "json",
			Title:       "Gap Analysis Export: " + req.Upload.FileName,
			Description: "Machine-readable gap analysis and redline data",
			StorageURL:  gapURL,
			FileSize:    int64(len(gapExport)),
			Metadata: map[string]string{
				"gap_count":     fmt.Sprintf("%d", len(req.Result.GapAnalyses)),
				"redline_count": fmt.Sprintf("%d", len(req.Result.Redlines)),
			},
		},
	}, nil
}

// artifactKey builds the blob key for one artifact file
func artifactKey(uploadID, name string) string {
	return "artifacts/" + uploadID + "/" + name
}

// renderReport builds the human-readable compliance report
func renderReport(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Compliance Report\n\n")
	fmt.Fprintf(&b, "Institution: %s (%s)\n", req.Institution.Name, req.Institution.Type)
	fmt.Fprintf(&b, "Document: %s (%s)\n", req.Upload.FileName, req.Upload.DocumentType)
	fmt.Fprintf(&b, "Processing time: %s\n\n", req.Result.ProcessingTime)

	fmt.Fprintf(&b, "## Applicable Frameworks\n\n")
	if len(req.Result.Frameworks) == 0 {
		b.WriteString("None identified.\n\n")
	} else {
		for _, fw := range req.Result.Frameworks {
			fmt.Fprintf(&b, "- %s\n", fw)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Gap Analysis (%d findings)\n\n", len(req.Result.GapAnalyses))
	for _, gap := range req.Result.GapAnalyses {
		fmt.Fprintf(&b, "### %s — %s [%s]\n\n", gap.Framework, gap.Section, gap.RiskLevel)
		fmt.Fprintf(&b, "Requirement: %s\n\n", gap.Requirement)
		fmt.Fprintf(&b, "Gap: %s\n\n", gap.Gap)
		fmt.Fprintf(&b, "Remediation: %s\n\n", gap.Remediation)
	}

	fmt.Fprintf(&b, "## Suggested Redlines (%d)\n\n", len(req.Result.Redlines))
	for _, rl := range req.Result.Redlines {
		fmt.Fprintf(&b, "### %s — %s\n\n", rl.Framework, rl.Section)
		fmt.Fprintf(&b, "Suggested: %s\n\n", rl.SuggestedText)
		fmt.Fprintf(&b, "Rationale: %s\n\n", rl.Rationale)
	}

	if req.Upload.PIIDetected {
		b.WriteString("Note: personally identifiable information was detected and redacted before analysis.\n")
	}

	return b.String()
}
