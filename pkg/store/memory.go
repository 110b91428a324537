package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

// memoryStore is an in-memory Store for tests and local development
type memoryStore struct {
	mu           sync.RWMutex
	uploads      map[string]*types.DocumentUpload
	institutions map[string]*types.Institution
	results      map[string]*types.ProcessingResult // keyed by upload id
	artifacts    map[string][]*types.GeneratedArtifact
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *memoryStore {
	return &memoryStore{
		uploads:      make(map[string]*types.DocumentUpload),
		institutions: make(map[string]*types.Institution),
		results:      make(map[string]*types.ProcessingResult),
		artifacts:    make(map[string][]*types.GeneratedArtifact),
	}
}

// SeedUpload inserts an upload row, for test setup
func (s *memoryStore) SeedUpload(upload *types.DocumentUpload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *upload
	s.uploads[upload.ID] = &cp
}

// SeedInstitution inserts an institution row, for test setup
func (s *memoryStore) SeedInstitution(inst *types.Institution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inst
	s.institutions[inst.ID] = &cp
}

// GetUpload fetches one upload row by id
func (s *memoryStore) GetUpload(ctx context.Context, id string) (*types.DocumentUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	upload, ok := s.uploads[id]
	if !ok {
		return nil, fmt.Errorf("upload %s: %w", id, ErrNotFound)
	}
	cp := *upload
	return &cp, nil
}

// UpdateUpload applies the non-nil fields of update
func (s *memoryStore) UpdateUpload(ctx context.Context, id string, update UploadUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	upload, ok := s.uploads[id]
	if !ok {
		return fmt.Errorf("upload %s: %w", id, ErrNotFound)
	}
	if update.Status != nil {
		upload.Status = *update.Status
	}
	if update.ProcessedAt != nil {
		upload.ProcessedAt = update.ProcessedAt
	}
	if update.PIIDetected != nil {
		upload.PIIDetected = *update.PIIDetected
	}
	if update.PIIRedactedURL != nil {
		upload.PIIRedactedURL = *update.PIIRedactedURL
	}
	return nil
}

// UpsertProcessingResult creates or replaces the result keyed by upload id
func (s *memoryStore) UpsertProcessingResult(ctx context.Context, result *types.ProcessingResult) error {
	if result.UploadID == "" {
		return fmt.Errorf("processing result missing upload id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.results[result.UploadID]; ok {
		result.ID = existing.ID
		result.CreatedAt = existing.CreatedAt
	} else {
		result.ID = uuid.New().String()
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	cp := *result
	s.results[result.UploadID] = &cp
	return nil
}

// GetProcessingResult fetches the result for an upload, for test assertions
func (s *memoryStore) GetProcessingResult(uploadID string) (*types.ProcessingResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[uploadID]
	if !ok {
		return nil, false
	}
	cp := *result
	return &cp, true
}

// CreateArtifact persists one artifact as a child of its result
func (s *memoryStore) CreateArtifact(ctx context.Context, artifact *types.GeneratedArtifact) error {
	if artifact.ResultID == "" {
		return fmt.Errorf("artifact missing result id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	artifact.ID = uuid.New().String()
	artifact.CreatedAt = time.Now().UTC()

	cp := *artifact
	s.artifacts[artifact.ResultID] = append(s.artifacts[artifact.ResultID], &cp)
	return nil
}

// ArtifactsForResult lists artifacts persisted for a result, for test assertions
func (s *memoryStore) ArtifactsForResult(resultID string) []*types.GeneratedArtifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.artifacts[resultID]
	out := make([]*types.GeneratedArtifact, 0, len(stored))
	for _, a := range stored {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// GetInstitution fetches one institution row by id
func (s *memoryStore) GetInstitution(ctx context.Context, id string) (*types.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.institutions[id]
	if !ok {
		return nil, fmt.Errorf("institution %s: %w", id, ErrNotFound)
	}
	cp := *inst
	return &cp, nil
}
