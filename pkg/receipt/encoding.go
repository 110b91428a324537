package receipt

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncodeReceipt serializes a receipt to a base64-encoded JSON string suitable
// for storage alongside the upload record or return via an API response.
func EncodeReceipt(r *ProcessingReceipt) (string, error) {
	if r == nil {
		return "", fmt.Errorf("receipt is nil")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal receipt: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeReceipt deserializes a receipt from a base64-encoded JSON string.
func DecodeReceipt(s string) (*ProcessingReceipt, error) {
	if s == "" {
		return nil, fmt.Errorf("receipt string is empty")
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 receipt: %w", err)
	}

	var r ProcessingReceipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
	}

	return &r, nil
}
