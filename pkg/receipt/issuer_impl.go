package receipt

import (
	"context"
	"fmt"
	"time"
)

// defaultIssuer implements the Issuer interface using an HMAC signer.
type defaultIssuer struct {
	signer Signer
}

// NewIssuer creates a receipt issuer signing with the given key.
func NewIssuer(key []byte) Issuer {
	return &defaultIssuer{signer: NewHMACSigner(key)}
}

// NewIssuerWithSigner creates a receipt issuer with a custom signer.
func NewIssuerWithSigner(signer Signer) Issuer {
	return &defaultIssuer{signer: signer}
}

// Issue creates a signed receipt for a completed pipeline run.
func (i *defaultIssuer) Issue(ctx context.Context, req IssueRequest) (*ProcessingReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.UploadID == "" {
		return nil, fmt.Errorf("upload ID is required")
	}
	if req.ResultID == "" {
		return nil, fmt.Errorf("result ID is required")
	}

	completedAt := req.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	r := &ProcessingReceipt{
		ID:                newReceiptID(),
		UploadID:          req.UploadID,
		ResultID:          req.ResultID,
		ExtractedTextHash: req.ExtractedTextHash,
		Success:           req.Success,
		CompletedAt:       completedAt,
	}

	sig, err := i.signer.Sign(r)
	if err != nil {
		return nil, fmt.Errorf("failed to sign receipt: %w", err)
	}
	r.Signature = sig

	return r, nil
}

// Verify checks a receipt's signature and required fields.
func (i *defaultIssuer) Verify(ctx context.Context, r *ProcessingReceipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("receipt is nil")
	}
	if r.ID == "" || r.UploadID == "" || r.ResultID == "" {
		return fmt.Errorf("receipt is missing required fields")
	}
	if r.Signature == "" {
		return fmt.Errorf("receipt is unsigned")
	}

	return i.signer.Verify(r)
}

var _ Issuer = (*defaultIssuer)(nil)
