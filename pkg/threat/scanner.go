package threat

import (
	"context"
)

// Scanner is the main interface for threat scanning. Scan never returns
// an error: an internal scan failure is converted into a synthetic
// high-severity "Scan Error" detection with the result flagged infected
// (fail-closed), because unscannable content is treated as unsafe
// content.
type Scanner interface {
	// Scan inspects a raw file buffer with no declared file name.
	Scan(ctx context.Context, buf []byte) *ScanResult

	// ScanNamed inspects a raw file buffer, using the declared file name
	// for structural header checks (e.g. a .pdf that lacks PDF magic).
	ScanNamed(ctx context.Context, buf []byte, fileName string) *ScanResult

	// SupportedSignatures reports how many signatures are loaded per
	// detection layer, for diagnostics.
	SupportedSignatures() SignatureCounts
}

// ExternalEngine is the hook for an out-of-process AV daemon. Its
// findings are unioned into the scan result; its unavailability yields
// a medium "External Scanner Error" detection rather than blocking the
// pipeline.
type ExternalEngine interface {
	// Name identifies the engine in results and logs.
	Name() string

	// Scan runs the external engine over the buffer.
	Scan(ctx context.Context, buf []byte) ([]Detection, error)
}

// SignatureCounts reports loaded signature totals per layer.
type SignatureCounts struct {
	KnownBadHashes    int `json:"known_bad_hashes"`
	ContentPatterns   int `json:"content_patterns"`
	ExecutableMagics  int `json:"executable_magics"`
	MacroIndicators   int `json:"macro_indicators"`
	DeclaredTypeRules int `json:"declared_type_rules"`
}
