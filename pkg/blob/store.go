// Package blob stores pipeline artifacts (redacted text, generated
// reports) and returns stable URLs for persisted records.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists named blobs and returns a URL the persistence layer
// records. Implementations may be local disk or object storage.
type Store interface {
	// Put writes data under key and returns its URL
	Put(ctx context.Context, key string, data []byte) (string, error)

	// Get reads the blob stored under key
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob stored under key
	Delete(ctx context.Context, key string) error
}

// fsStore keeps blobs on the local filesystem under a base directory
type fsStore struct {
	baseDir string
}

// NewFSStore creates a filesystem-backed store rooted at baseDir
func NewFSStore(baseDir string) (Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating blob directory %s: %w", baseDir, err)
	}
	return &fsStore{baseDir: baseDir}, nil
}

// Put writes data under key and returns a file:// URL
func (s *fsStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("creating blob subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("writing blob %s: %w", key, err)
	}
	return "file://" + path, nil
}

// Get reads the blob stored under key
func (s *fsStore) Get(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the blob stored under key
func (s *fsStore) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting blob %s: %w", key, err)
	}
	return nil
}

// resolve maps a key to a path, refusing traversal outside the base
func (s *fsStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty blob key")
	}
	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
