// Package quarantine decides and executes the disposition of scanned files.
package quarantine

import (
	"context"

	"github.com/schoolsafe/docpipeline/pkg/threat"
)

// Disposition is the handling decision for a scanned upload
type Disposition string

const (
	// DispositionAllow lets the upload continue through the pipeline.
	DispositionAllow Disposition = "allow"

	// DispositionQuarantine isolates the stored file and fails the run.
	DispositionQuarantine Disposition = "quarantine"

	// DispositionBlock fails the run and isolates the stored file
	// under the quarantine prefix for forensic review.
	DispositionBlock Disposition = "block"
)

// Engine determines and executes the disposition for a scan result
type Engine interface {
	// Evaluate decides the disposition for a scan result
	Evaluate(ctx context.Context, req EvaluateRequest) (*Decision, error)

	// Execute carries out a quarantine or block decision against the
	// stored file. Allow decisions are a no-op.
	Execute(ctx context.Context, decision *Decision) (*ExecuteResult, error)
}

// EvaluateRequest contains inputs for disposition evaluation
type EvaluateRequest struct {
	UploadID   string
	FileName   string
	StorageKey string
	ScanResult *threat.ScanResult
}

// Decision describes the chosen disposition and why. Reason and
// CategoryCounts carry only detection categories and counts, never
// signature names, so they are safe to surface to uploaders.
type Decision struct {
	UploadID       string
	StorageKey     string
	Disposition    Disposition
	Reason         string
	ThreatNames    []string
	CategoryCounts map[threat.Category]int
}

// ExecuteResult reports what Execute did with the stored file
type ExecuteResult struct {
	Disposition   Disposition
	QuarantineKey string
	FileRemoved   bool
}
