// Package extract converts stored document files into plain text for
// downstream scanning and analysis.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrUnsupportedFormat is returned when no extractor handles the file's
// format. Callers treat this as a hard failure, distinct from a file
// that extracts to little or no text.
var ErrUnsupportedFormat = fmt.Errorf("unsupported document format")

// Extractor converts a stored file into plain text
type Extractor interface {
	// Extract reads the file at path and returns its textual content.
	// An error means extraction itself failed; short or empty text is
	// a valid result the caller must judge.
	Extract(ctx context.Context, path string) (*Result, error)

	// Supports reports whether this extractor handles the file format
	Supports(path string) bool
}

// Result contains extraction output
type Result struct {
	Text           string        `json:"text"`
	OriginalSize   int           `json:"original_size"`
	ExtractedSize  int           `json:"extracted_size"`
	Format         string        `json:"format"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// plainTextExtractor handles formats that are already text on disk
type plainTextExtractor struct {
	extensions map[string]struct{}
}

// NewPlainTextExtractor creates an extractor for plain-text formats
func NewPlainTextExtractor() Extractor {
	return &plainTextExtractor{
		extensions: map[string]struct{}{
			".txt": {}, ".md": {}, ".csv": {}, ".html": {}, ".rtf": {},
		},
	}
}

// Supports reports whether the file extension is a plain-text format
func (e *plainTextExtractor) Supports(path string) bool {
	_, ok := e.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract reads the file and normalizes it to valid UTF-8
func (e *plainTextExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !e.Supports(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", path, err)
	}

	text := sanitize(raw)

	return &Result{
		Text:           text,
		OriginalSize:   len(raw),
		ExtractedSize:  len(text),
		Format:         strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		ProcessingTime: time.Since(start),
	}, nil
}

// sanitize strips null bytes and replaces invalid UTF-8 sequences so
// downstream offset arithmetic stays byte-accurate
func sanitize(raw []byte) string {
	cleaned := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b != 0 {
			cleaned = append(cleaned, b)
		}
	}
	if utf8.Valid(cleaned) {
		return string(cleaned)
	}
	return strings.ToValidUTF8(string(cleaned), "�")
}

// multiExtractor dispatches to the first extractor supporting the file
type multiExtractor struct {
	extractors []Extractor
}

// NewMultiExtractor creates an extractor that tries each of the given
// extractors in order
func NewMultiExtractor(extractors ...Extractor) Extractor {
	return &multiExtractor{extractors: extractors}
}

// Supports reports whether any registered extractor handles the format
func (e *multiExtractor) Supports(path string) bool {
	for _, ex := range e.extractors {
		if ex.Supports(path) {
			return true
		}
	}
	return false
}

// Extract dispatches to the first extractor supporting the file format
func (e *multiExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	for _, ex := range e.extractors {
		if ex.Supports(path) {
			return ex.Extract(ctx, path)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}
