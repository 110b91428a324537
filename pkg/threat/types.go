// Package threat provides malware and security-risk scanning for raw
// uploaded file buffers using hash lookups, content-pattern matching,
// and file-structure heuristics.
package threat

import (
	"time"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

// Category classifies the detection layer that produced a finding
type Category string

const (
	CategoryMalware    Category = "malware"
	CategorySuspicious Category = "suspicious_content"
	CategoryStructural Category = "structural"
	CategoryScanError  Category = "scan_error"
	CategoryExternal   Category = "external_engine"
)

// Action is the recommended handling for a detection
type Action string

const (
	ActionBlock      Action = "block"
	ActionQuarantine Action = "quarantine"
	ActionMonitor    Action = "monitor"
)

// Detection represents a single threat finding within a scanned buffer
type Detection struct {
	Name        string         `json:"name"`
	Category    Category       `json:"category"`
	Severity    types.Severity `json:"severity"`
	Description string         `json:"description"`
	Action      Action         `json:"action"`
}

// ScanResult contains the outcome of scanning one file buffer. A result
// is infected iff at least one detection has severity high or critical.
// Results are computed fresh per scan; the hash is used only for
// known-bad matching, never as a skip-scan optimization.
type ScanResult struct {
	Infected     bool          `json:"infected"`
	Engine       string        `json:"engine"`
	ScanDuration time.Duration `json:"scan_duration"`
	SHA256       string        `json:"sha256"`
	Detections   []Detection   `json:"detections"`
}

// MaxSeverity returns the highest severity across all detections, or
// empty when the result is clean.
func (r *ScanResult) MaxSeverity() types.Severity {
	var max types.Severity
	for _, d := range r.Detections {
		if d.Severity.Value() > max.Value() {
			max = d.Severity
		}
	}
	return max
}

// Summary returns per-category detection counts without exposing
// detection names. This is the only shape surfaced to uploaders;
// detection names are reserved for administrators and audit records.
func (r *ScanResult) Summary() map[Category]int {
	if len(r.Detections) == 0 {
		return nil
	}
	sum := make(map[Category]int, len(r.Detections))
	for _, d := range r.Detections {
		sum[d.Category]++
	}
	return sum
}
