package pii

// Scanner is the main interface for PII scanning. Scan is a pure
// function of its text input: equal input yields equal output,
// including finding order.
type Scanner interface {
	// Scan detects PII in the given text, applies false-positive
	// filtering, and produces a redacted copy when findings survive.
	Scan(text string) *ScanResult

	// SupportedTypes lists the PII types the scanner can detect, in
	// registry order.
	SupportedTypes() []PIIType
}

// Matcher detects one class of PII pattern. Each matcher reports its
// own per-match confidence; severity is fixed per type and applied by
// the scanner.
type Matcher interface {
	// ID returns the pattern identifier.
	ID() string

	// Type returns the PII type this matcher detects.
	Type() PIIType

	// Match finds all instances of this pattern in content.
	Match(content string) []Match
}

// Registry manages matchers in deterministic registration order.
type Registry interface {
	// Register appends a matcher. Registering a duplicate ID replaces
	// the earlier entry in place, preserving order.
	Register(m Matcher)

	// Get returns a matcher by ID.
	Get(id string) (Matcher, bool)

	// All returns all matchers in registration order.
	All() []Matcher
}
