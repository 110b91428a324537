package receipt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// hmacSigner implements the Signer interface using HMAC-SHA256.
type hmacSigner struct {
	key []byte
}

// NewHMACSigner creates a new HMAC-SHA256 signer with the given key.
func NewHMACSigner(key []byte) Signer {
	return &hmacSigner{key: key}
}

// Sign creates an HMAC-SHA256 signature for the receipt.
// It builds a canonical string from the receipt fields and computes the HMAC.
func (s *hmacSigner) Sign(r *ProcessingReceipt) (string, error) {
	if r == nil {
		return "", fmt.Errorf("receipt is nil")
	}

	canonical := buildCanonicalString(r)

	mac := hmac.New(sha256.New, s.key)
	if _, err := mac.Write([]byte(canonical)); err != nil {
		return "", fmt.Errorf("failed to compute HMAC: %w", err)
	}

	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify verifies the receipt signature using constant-time comparison.
func (s *hmacSigner) Verify(r *ProcessingReceipt) error {
	if r == nil {
		return fmt.Errorf("receipt is nil")
	}

	expected, err := s.Sign(r)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	expectedBytes, err := hex.DecodeString(expected)
	if err != nil {
		return fmt.Errorf("failed to decode expected signature: %w", err)
	}

	actualBytes, err := hex.DecodeString(r.Signature)
	if err != nil {
		return fmt.Errorf("failed to decode receipt signature: %w", err)
	}

	if !hmac.Equal(expectedBytes, actualBytes) {
		return fmt.Errorf("receipt signature verification failed")
	}

	return nil
}

// buildCanonicalString creates a deterministic string from receipt fields
// for HMAC computation. Format:
// id|upload_id|result_id|extracted_text_hash|success|completed_at_unix
func buildCanonicalString(r *ProcessingReceipt) string {
	return fmt.Sprintf("%s|%s|%s|%s|%t|%d",
		r.ID,
		r.UploadID,
		r.ResultID,
		r.ExtractedTextHash,
		r.Success,
		r.CompletedAt.Unix(),
	)
}
