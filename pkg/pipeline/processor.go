// Package pipeline orchestrates the eight-stage document processing run:
// virus scan, text extraction, PII detection, entity recognition,
// framework mapping, gap analysis, policy redlining, and artifact
// generation.
package pipeline

import (
	"context"
	"time"

	"github.com/schoolsafe/docpipeline/pkg/receipt"
	"github.com/schoolsafe/docpipeline/pkg/types"
)

// Processor drives one upload through the full pipeline
type Processor interface {
	// Process runs all stages for one upload. Stage failures are
	// reported in the returned result, not as an error; the error
	// return is reserved for context cancellation and for inputs the
	// processor cannot do bookkeeping for (unknown upload id).
	Process(ctx context.Context, pc ProcessingContext) (*ProcessResult, error)
}

// ProcessingContext identifies the upload to process
type ProcessingContext struct {
	UploadID string
}

// ProcessResult is the structured outcome of one run. Failure is a
// data value here: Success false with FailedStage and Error set.
type ProcessResult struct {
	Success        bool                       `json:"success"`
	UploadID       string                     `json:"upload_id"`
	FailedStage    StageName                  `json:"failed_stage,omitempty"`
	Error          string                     `json:"error,omitempty"`
	Stages         []ProcessingStage          `json:"stages"`
	Result         *types.ProcessingResult    `json:"result,omitempty"`
	Artifacts      []types.GeneratedArtifact  `json:"artifacts,omitempty"`
	Receipt        *receipt.ProcessingReceipt `json:"receipt,omitempty"`
	ProcessingTime time.Duration              `json:"processing_time"`
}
