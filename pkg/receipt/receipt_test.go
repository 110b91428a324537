package receipt

import (
	"context"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer([]byte("test-signing-key"))
	ctx := context.Background()

	r, err := issuer.Issue(ctx, IssueRequest{
		UploadID:          "upload-1",
		ResultID:          "result-1",
		ExtractedTextHash: "abc123",
		Success:           true,
		CompletedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if r.ID == "" {
		t.Error("expected receipt ID to be set")
	}
	if r.Signature == "" {
		t.Error("expected receipt to be signed")
	}

	if err := issuer.Verify(ctx, r); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	issuer := NewIssuer([]byte("test-signing-key"))
	ctx := context.Background()

	r, err := issuer.Issue(ctx, IssueRequest{
		UploadID:    "upload-1",
		ResultID:    "result-1",
		Success:     true,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *ProcessingReceipt)
	}{
		{"changed upload", func(r *ProcessingReceipt) { r.UploadID = "upload-2" }},
		{"changed outcome", func(r *ProcessingReceipt) { r.Success = false }},
		{"changed hash", func(r *ProcessingReceipt) { r.ExtractedTextHash = "deadbeef" }},
		{"cleared signature", func(r *ProcessingReceipt) { r.Signature = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			copied := *r
			tt.mutate(&copied)
			if err := issuer.Verify(ctx, &copied); err == nil {
				t.Error("expected verification to fail for tampered receipt")
			}
		})
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	ctx := context.Background()
	issuer := NewIssuer([]byte("key-a"))
	other := NewIssuer([]byte("key-b"))

	r, err := issuer.Issue(ctx, IssueRequest{
		UploadID:    "upload-1",
		ResultID:    "result-1",
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if err := other.Verify(ctx, r); err == nil {
		t.Error("expected verification with a different key to fail")
	}
}

func TestIssueValidatesRequest(t *testing.T) {
	issuer := NewIssuer([]byte("k"))
	ctx := context.Background()

	if _, err := issuer.Issue(ctx, IssueRequest{ResultID: "r"}); err == nil {
		t.Error("expected error for missing upload ID")
	}
	if _, err := issuer.Issue(ctx, IssueRequest{UploadID: "u"}); err == nil {
		t.Error("expected error for missing result ID")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	issuer := NewIssuer([]byte("test-signing-key"))
	ctx := context.Background()

	r, err := issuer.Issue(ctx, IssueRequest{
		UploadID:          "upload-1",
		ResultID:          "result-1",
		ExtractedTextHash: "abc123",
		Success:           true,
		CompletedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	encoded, err := EncodeReceipt(r)
	if err != nil {
		t.Fatalf("EncodeReceipt() error = %v", err)
	}

	decoded, err := DecodeReceipt(encoded)
	if err != nil {
		t.Fatalf("DecodeReceipt() error = %v", err)
	}

	if decoded.UploadID != r.UploadID || decoded.Signature != r.Signature {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, r)
	}
	if err := issuer.Verify(ctx, decoded); err != nil {
		t.Errorf("Verify() after round trip error = %v", err)
	}
}

func TestDecodeReceiptErrors(t *testing.T) {
	if _, err := DecodeReceipt(""); err == nil {
		t.Error("expected error for empty string")
	}
	if _, err := DecodeReceipt("not base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}
