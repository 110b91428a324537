package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

var _ Store = (*postgresStore)(nil)

// postgresStore is the PostgreSQL-backed Store. Gap analyses, redlines,
// entities, and artifact metadata are stored as JSONB so the analytical
// payload can evolve without migrations.
type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given connection pool
func NewPostgresStore(pool *pgxpool.Pool) *postgresStore {
	return &postgresStore{pool: pool}
}

// GetUpload fetches one upload row by id
func (s *postgresStore) GetUpload(ctx context.Context, id string) (*types.DocumentUpload, error) {
	const query = `
		SELECT id, institution_id, uploaded_by_id, file_name, file_path,
		       document_type, status, pii_detected, pii_redacted_url,
		       processed_at, created_at
		FROM document_upload
		WHERE id = $1`

	var (
		upload      types.DocumentUpload
		redactedURL *string
		processedAt *time.Time
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&upload.ID, &upload.InstitutionID, &upload.UploadedByID,
		&upload.FileName, &upload.FilePath, &upload.DocumentType,
		&upload.Status, &upload.PIIDetected, &redactedURL,
		&processedAt, &upload.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("upload %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("querying upload %s: %w", id, err)
	}
	if redactedURL != nil {
		upload.PIIRedactedURL = *redactedURL
	}
	upload.ProcessedAt = processedAt
	return &upload, nil
}

// UpdateUpload applies the non-nil fields of update
func (s *postgresStore) UpdateUpload(ctx context.Context, id string, update UploadUpdate) error {
	const query = `
		UPDATE document_upload
		SET status           = COALESCE($2, status),
		    processed_at     = COALESCE($3, processed_at),
		    pii_detected     = COALESCE($4, pii_detected),
		    pii_redacted_url = COALESCE($5, pii_redacted_url)
		WHERE id = $1`

	var status *string
	if update.Status != nil {
		v := string(*update.Status)
		status = &v
	}

	tag, err := s.pool.Exec(ctx, query, id, status, update.ProcessedAt, update.PIIDetected, update.PIIRedactedURL)
	if err != nil {
		return fmt.Errorf("updating upload %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upload %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertProcessingResult creates or replaces the result keyed by upload
// id, so concurrent re-processing can never duplicate rows
func (s *postgresStore) UpsertProcessingResult(ctx context.Context, result *types.ProcessingResult) error {
	if result.UploadID == "" {
		return fmt.Errorf("processing result missing upload id")
	}

	entities, err := json.Marshal(result.Entities)
	if err != nil {
		return fmt.Errorf("encoding entities: %w", err)
	}
	gaps, err := json.Marshal(result.GapAnalyses)
	if err != nil {
		return fmt.Errorf("encoding gap analyses: %w", err)
	}
	redlines, err := json.Marshal(result.Redlines)
	if err != nil {
		return fmt.Errorf("encoding redlines: %w", err)
	}

	const query = `
		INSERT INTO processing_result
			(id, upload_id, extracted_text_hash, entities, frameworks,
			 gap_analyses, redlines, processing_time_ms, error_message,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (upload_id) DO UPDATE
		SET extracted_text_hash = EXCLUDED.extracted_text_hash,
		    entities            = EXCLUDED.entities,
		    frameworks          = EXCLUDED.frameworks,
		    gap_analyses        = EXCLUDED.gap_analyses,
		    redlines            = EXCLUDED.redlines,
		    processing_time_ms  = EXCLUDED.processing_time_ms,
		    error_message       = EXCLUDED.error_message,
		    updated_at          = now()
		RETURNING id, created_at, updated_at`

	newID := uuid.New().String()
	err = s.pool.QueryRow(ctx, query,
		newID, result.UploadID, result.ExtractedTextHash, entities,
		result.Frameworks, gaps, redlines,
		result.ProcessingTime.Milliseconds(), nullable(result.ErrorMessage),
	).Scan(&result.ID, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting processing result for upload %s: %w", result.UploadID, err)
	}
	return nil
}

// CreateArtifact persists one artifact as a child of its result
func (s *postgresStore) CreateArtifact(ctx context.Context, artifact *types.GeneratedArtifact) error {
	if artifact.ResultID == "" {
		return fmt.Errorf("artifact missing result id")
	}

	metadata, err := json.Marshal(artifact.Metadata)
	if err != nil {
		return fmt.Errorf("encoding artifact metadata: %w", err)
	}

	const query = `
		INSERT INTO generated_artifact
			(id, result_id, type, format, title, description,
			 storage_url, file_size, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING created_at`

	artifact.ID = uuid.New().String()
	err = s.pool.QueryRow(ctx, query,
		artifact.ID, artifact.ResultID, artifact.Type, artifact.Format,
		artifact.Title, nullable(artifact.Description),
		artifact.StorageURL, artifact.FileSize, metadata,
	).Scan(&artifact.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating artifact for result %s: %w", artifact.ResultID, err)
	}
	return nil
}

// GetInstitution fetches one institution row by id
func (s *postgresStore) GetInstitution(ctx context.Context, id string) (*types.Institution, error) {
	const query = `
		SELECT id, name, type, metadata
		FROM institution
		WHERE id = $1`

	var (
		inst     types.Institution
		metadata []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(&inst.ID, &inst.Name, &inst.Type, &metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("institution %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("querying institution %s: %w", id, err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &inst.Metadata); err != nil {
			return nil, fmt.Errorf("decoding institution metadata: %w", err)
		}
	}
	return &inst, nil
}

// nullable maps empty strings to SQL NULL
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
