// Package store persists uploads, processing results, and generated
// artifacts for the document pipeline.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// UploadUpdate carries the upload fields the pipeline may change. Nil
// fields are left untouched.
type UploadUpdate struct {
	Status         *types.UploadStatus
	ProcessedAt    *time.Time
	PIIDetected    *bool
	PIIRedactedURL *string
}

// Store is the persistence contract the pipeline depends on. Upserts
// are keyed by upload id so re-processing the same upload never
// duplicates its result row.
type Store interface {
	// GetUpload fetches one upload row by id
	GetUpload(ctx context.Context, id string) (*types.DocumentUpload, error)

	// UpdateUpload applies the non-nil fields of update to the upload
	UpdateUpload(ctx context.Context, id string, update UploadUpdate) error

	// UpsertProcessingResult creates or replaces the upload's result
	// row, keyed by result.UploadID. The result's ID, CreatedAt, and
	// UpdatedAt fields are populated on return.
	UpsertProcessingResult(ctx context.Context, result *types.ProcessingResult) error

	// CreateArtifact persists one generated artifact as a child of its
	// processing result, populating ID and CreatedAt.
	CreateArtifact(ctx context.Context, artifact *types.GeneratedArtifact) error

	// GetInstitution fetches one institution row by id
	GetInstitution(ctx context.Context, id string) (*types.Institution, error)
}
