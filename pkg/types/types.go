// Package types provides shared types used across docpipeline packages.
// This package breaks circular dependencies between pipeline, store,
// analysis, and stream packages.
package types

import (
	"time"
)

// Severity represents the severity level of a detection or finding
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Value returns numeric value for severity comparison
func (s Severity) Value() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// DocumentType categorizes an uploaded institutional document
type DocumentType string

const (
	DocumentTypePolicy   DocumentType = "policy"
	DocumentTypeHandbook DocumentType = "handbook"
	DocumentTypeContract DocumentType = "contract"
)

// UploadStatus is the coarse upload state machine surfaced to the rest
// of the platform: UPLOADED -> PROCESSING -> COMPLETE, or FAILED at any
// point.
type UploadStatus string

const (
	UploadStatusUploaded   UploadStatus = "UPLOADED"
	UploadStatusProcessing UploadStatus = "PROCESSING"
	UploadStatusComplete   UploadStatus = "COMPLETE"
	UploadStatusFailed     UploadStatus = "FAILED"
)

// String returns the string representation of the UploadStatus.
func (s UploadStatus) String() string { return string(s) }

// DocumentUpload is the persisted upload row the pipeline reads and
// updates. Fields outside the pipeline's contract live in the owning
// platform's schema and are not modeled here.
type DocumentUpload struct {
	ID             string       `json:"id"`
	InstitutionID  string       `json:"institution_id"`
	UploadedByID   string       `json:"uploaded_by_id"`
	FileName       string       `json:"file_name"`
	FilePath       string       `json:"file_path"`
	DocumentType   DocumentType `json:"document_type"`
	Status         UploadStatus `json:"status"`
	PIIDetected    bool         `json:"pii_detected"`
	PIIRedactedURL string       `json:"pii_redacted_url,omitempty"`
	ProcessedAt    *time.Time   `json:"processed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Institution describes the owning institution, used by the framework
// mapping stage to select applicable compliance regimes.
type Institution struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     string            `json:"type"` // "k12", "higher_ed", "district"
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Entities holds the output of entity recognition over de-identified
// document text.
type Entities struct {
	People        []string `json:"people,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
	Dates         []string `json:"dates,omitempty"`
}

// GapAnalysis is one structured compliance gap finding produced by the
// gap analyzer collaborator.
type GapAnalysis struct {
	Section      string   `json:"section"`
	Requirement  string   `json:"requirement"`
	CurrentState string   `json:"current_state"`
	Gap          string   `json:"gap"`
	RiskLevel    Severity `json:"risk_level"`
	Remediation  string   `json:"remediation"`
	Framework    string   `json:"framework"`
}

// Redline is one suggested policy edit produced by the redliner
// collaborator.
type Redline struct {
	Section         string  `json:"section"`
	OriginalText    string  `json:"original_text"`
	SuggestedText   string  `json:"suggested_text"`
	Rationale       string  `json:"rationale"`
	Framework       string  `json:"framework"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// ProcessingResult is the durable record of one pipeline run. An upload
// has at most one ProcessingResult; re-processing upserts by upload id.
type ProcessingResult struct {
	ID                string        `json:"id"`
	UploadID          string        `json:"upload_id"`
	ExtractedTextHash string        `json:"extracted_text_hash"`
	Entities          Entities      `json:"entities"`
	Frameworks        []string      `json:"frameworks"`
	GapAnalyses       []GapAnalysis `json:"gap_analyses,omitempty"`
	Redlines          []Redline     `json:"redlines,omitempty"`
	ProcessingTime    time.Duration `json:"processing_time"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// GeneratedArtifact is one output file produced by the artifact
// generation stage, persisted as a child of a ProcessingResult.
type GeneratedArtifact struct {
	ID          string            `json:"id"`
	ResultID    string            `json:"result_id"`
	Type        string            `json:"type"`   // "compliance_report", "redacted_document", "gap_summary"
	Format      string            `json:"format"` // "pdf", "json", "txt"
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	StorageURL  string            `json:"storage_url"`
	FileSize    int64             `json:"file_size"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
