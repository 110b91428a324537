package quarantine

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/schoolsafe/docpipeline/pkg/blob"
	"github.com/schoolsafe/docpipeline/pkg/threat"
	"github.com/schoolsafe/docpipeline/pkg/types"
)

// defaultEngine is the standard implementation of the Engine interface.
// It moves quarantined files into a dedicated key prefix within the same
// blob store so they stay retrievable for incident review but are no
// longer reachable under their original key.
type defaultEngine struct {
	blobs  blob.Store
	prefix string
}

// defaultPrefix is where isolated files land when no prefix is configured.
const defaultPrefix = "quarantine"

// NewEngine creates a disposition engine backed by the given blob store.
func NewEngine(blobs blob.Store) Engine {
	return NewEngineWithPrefix(blobs, defaultPrefix)
}

// NewEngineWithPrefix creates a disposition engine that isolates files
// under the given storage prefix. An empty prefix falls back to the
// default.
func NewEngineWithPrefix(blobs blob.Store, prefix string) Engine {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &defaultEngine{blobs: blobs, prefix: prefix}
}

// Evaluate decides the disposition for a scan result.
// Critical detections that carry a block action are blocked outright;
// any other infected result is quarantined; clean results are allowed.
func (e *defaultEngine) Evaluate(ctx context.Context, req EvaluateRequest) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.ScanResult == nil {
		return nil, fmt.Errorf("scan result is nil")
	}

	decision := &Decision{
		UploadID:       req.UploadID,
		StorageKey:     req.StorageKey,
		Disposition:    DispositionAllow,
		CategoryCounts: req.ScanResult.Summary(),
	}

	if !req.ScanResult.Infected {
		return decision, nil
	}

	decision.ThreatNames = threatNames(req.ScanResult)
	decision.Disposition = DispositionQuarantine
	if shouldBlock(req.ScanResult) {
		decision.Disposition = DispositionBlock
	}
	decision.Reason = buildReason(decision.CategoryCounts)

	return decision, nil
}

// Execute carries out the decision against the stored file.
func (e *defaultEngine) Execute(ctx context.Context, decision *Decision) (*ExecuteResult, error) {
	if decision == nil {
		return nil, fmt.Errorf("decision is nil")
	}

	result := &ExecuteResult{Disposition: decision.Disposition}

	switch decision.Disposition {
	case DispositionAllow:
		return result, nil

	case DispositionQuarantine, DispositionBlock:
		// Blocked files are isolated the same way quarantined ones are:
		// the original is moved, never destroyed, so it stays available
		// for forensic review.
		data, err := e.blobs.Get(ctx, decision.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read file for quarantine: %w", err)
		}

		qKey := path.Join(e.prefix, decision.UploadID, path.Base(decision.StorageKey))
		if _, err := e.blobs.Put(ctx, qKey, data); err != nil {
			return nil, fmt.Errorf("failed to write quarantined file: %w", err)
		}
		if err := e.blobs.Delete(ctx, decision.StorageKey); err != nil {
			return nil, fmt.Errorf("failed to remove original file: %w", err)
		}

		result.QuarantineKey = qKey
		result.FileRemoved = true
		return result, nil

	default:
		return nil, fmt.Errorf("unknown disposition: %s", decision.Disposition)
	}
}

// shouldBlock reports whether any detection calls for an outright block
// at critical severity.
func shouldBlock(sr *threat.ScanResult) bool {
	for _, d := range sr.Detections {
		if d.Action == threat.ActionBlock && d.Severity == types.SeverityCritical {
			return true
		}
	}
	return false
}

// threatNames returns the distinct detection names, sorted. These are
// persisted for administrators and auditors, not returned to uploaders.
func threatNames(sr *threat.ScanResult) []string {
	seen := make(map[string]struct{}, len(sr.Detections))
	names := make([]string, 0, len(sr.Detections))
	for _, d := range sr.Detections {
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// buildReason renders a category-only summary such as
// "malware: 2, structural: 1".
func buildReason(counts map[threat.Category]int) string {
	if len(counts) == 0 {
		return ""
	}

	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)

	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, fmt.Sprintf("%s: %d", c, counts[threat.Category(c)]))
	}
	return strings.Join(parts, ", ")
}

var _ Engine = (*defaultEngine)(nil)
