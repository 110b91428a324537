// Package receipt issues signed processing receipts for completed pipeline runs.
package receipt

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProcessingReceipt is a tamper-evident record that a document completed the
// pipeline. Institutions present the receipt during audits to prove a file
// was scanned and processed as reported.
type ProcessingReceipt struct {
	ID                string    `json:"id"`
	UploadID          string    `json:"upload_id"`
	ResultID          string    `json:"result_id"`
	ExtractedTextHash string    `json:"extracted_text_hash"`
	Success           bool      `json:"success"`
	CompletedAt       time.Time `json:"completed_at"`
	Signature         string    `json:"signature"`
}

// IssueRequest contains inputs for issuing a receipt.
type IssueRequest struct {
	UploadID          string
	ResultID          string
	ExtractedTextHash string
	Success           bool
	CompletedAt       time.Time
}

// Issuer creates and verifies processing receipts.
type Issuer interface {
	// Issue creates a signed receipt for a completed pipeline run
	Issue(ctx context.Context, req IssueRequest) (*ProcessingReceipt, error)

	// Verify checks a receipt's signature and required fields
	Verify(ctx context.Context, r *ProcessingReceipt) error
}

// Signer signs receipts using HMAC
type Signer interface {
	// Sign creates HMAC signature for a receipt
	Sign(r *ProcessingReceipt) (string, error)

	// Verify verifies a receipt signature
	Verify(r *ProcessingReceipt) error
}

// newReceiptID returns a fresh receipt identifier.
func newReceiptID() string {
	return uuid.New().String()
}
