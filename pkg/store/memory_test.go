package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

func seedStore() *memoryStore {
	s := NewMemoryStore()
	s.SeedInstitution(&types.Institution{ID: "inst-1", Name: "Springfield USD", Type: "district"})
	s.SeedUpload(&types.DocumentUpload{
		ID:            "upload-1",
		InstitutionID: "inst-1",
		FileName:      "policy.txt",
		FilePath:      "/data/policy.txt",
		DocumentType:  types.DocumentTypePolicy,
		Status:        types.UploadStatusUploaded,
	})
	return s
}

func TestMemoryStoreGetUpload(t *testing.T) {
	s := seedStore()
	ctx := context.Background()

	upload, err := s.GetUpload(ctx, "upload-1")
	if err != nil {
		t.Fatalf("GetUpload returned error: %v", err)
	}
	if upload.FileName != "policy.txt" {
		t.Errorf("Unexpected upload %+v", upload)
	}

	if _, err := s.GetUpload(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUpdateUpload(t *testing.T) {
	s := seedStore()
	ctx := context.Background()

	status := types.UploadStatusProcessing
	detected := true
	url := "file:///blobs/redacted.txt"
	now := time.Now().UTC()

	err := s.UpdateUpload(ctx, "upload-1", UploadUpdate{
		Status:         &status,
		ProcessedAt:    &now,
		PIIDetected:    &detected,
		PIIRedactedURL: &url,
	})
	if err != nil {
		t.Fatalf("UpdateUpload returned error: %v", err)
	}

	upload, err := s.GetUpload(ctx, "upload-1")
	if err != nil {
		t.Fatalf("GetUpload returned error: %v", err)
	}
	if upload.Status != types.UploadStatusProcessing || !upload.PIIDetected {
		t.Errorf("Update not applied: %+v", upload)
	}
	if upload.PIIRedactedURL != url || upload.ProcessedAt == nil {
		t.Errorf("Update not applied: %+v", upload)
	}

	// Partial update leaves other fields alone
	complete := types.UploadStatusComplete
	if err := s.UpdateUpload(ctx, "upload-1", UploadUpdate{Status: &complete}); err != nil {
		t.Fatalf("UpdateUpload returned error: %v", err)
	}
	upload, _ = s.GetUpload(ctx, "upload-1")
	if !upload.PIIDetected || upload.Status != types.UploadStatusComplete {
		t.Errorf("Partial update clobbered fields: %+v", upload)
	}

	if err := s.UpdateUpload(ctx, "missing", UploadUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUpsertProcessingResult(t *testing.T) {
	s := seedStore()
	ctx := context.Background()

	first := &types.ProcessingResult{
		UploadID:          "upload-1",
		ExtractedTextHash: "aaa",
		Frameworks:        []string{"FERPA"},
	}
	if err := s.UpsertProcessingResult(ctx, first); err != nil {
		t.Fatalf("UpsertProcessingResult returned error: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() || first.UpdatedAt.IsZero() {
		t.Errorf("Expected populated bookkeeping fields, got %+v", first)
	}

	// Re-processing the same upload replaces the row, keeping its id
	second := &types.ProcessingResult{
		UploadID:          "upload-1",
		ExtractedTextHash: "bbb",
		Frameworks:        []string{"FERPA", "COPPA"},
	}
	if err := s.UpsertProcessingResult(ctx, second); err != nil {
		t.Fatalf("UpsertProcessingResult returned error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Upsert changed result id: %q vs %q", second.ID, first.ID)
	}

	stored, ok := s.GetProcessingResult("upload-1")
	if !ok {
		t.Fatal("Expected stored result")
	}
	if stored.ExtractedTextHash != "bbb" || len(stored.Frameworks) != 2 {
		t.Errorf("Upsert did not replace fields: %+v", stored)
	}

	if err := s.UpsertProcessingResult(ctx, &types.ProcessingResult{}); err == nil {
		t.Error("Expected error for missing upload id")
	}
}

func TestMemoryStoreCreateArtifact(t *testing.T) {
	s := seedStore()
	ctx := context.Background()

	artifact := &types.GeneratedArtifact{
		ResultID:   "result-1",
		Type:       "compliance_report",
		Format:     "md",
		Title:      "Report",
		StorageURL: "file:///blobs/report.md",
	}
	if err := s.CreateArtifact(ctx, artifact); err != nil {
		t.Fatalf("CreateArtifact returned error: %v", err)
	}
	if artifact.ID == "" || artifact.CreatedAt.IsZero() {
		t.Errorf("Expected populated bookkeeping fields, got %+v", artifact)
	}

	stored := s.ArtifactsForResult("result-1")
	if len(stored) != 1 || stored[0].Title != "Report" {
		t.Errorf("Unexpected stored artifacts %+v", stored)
	}

	if err := s.CreateArtifact(ctx, &types.GeneratedArtifact{}); err == nil {
		t.Error("Expected error for missing result id")
	}
}

func TestMemoryStoreGetInstitution(t *testing.T) {
	s := seedStore()

	inst, err := s.GetInstitution(context.Background(), "inst-1")
	if err != nil {
		t.Fatalf("GetInstitution returned error: %v", err)
	}
	if inst.Type != "district" {
		t.Errorf("Unexpected institution %+v", inst)
	}

	if _, err := s.GetInstitution(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
