package threat

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/schoolsafe/docpipeline/pkg/logging"
	"github.com/schoolsafe/docpipeline/pkg/types"
)

// defaultHeadSize is how much of the buffer is decoded as text for
// content pattern matching.
const defaultHeadSize = 10 * 1024

// structuralAnalyzer inspects file structure and returns detections.
// Swappable for test doubles that exercise the fail-closed path.
type structuralAnalyzer func(buf []byte, fileName string) []Detection

// defaultScanner implements the Scanner interface. All detection layers
// run unconditionally and their findings are unioned; a single file may
// carry multiple simultaneous findings at different severities.
type defaultScanner struct {
	sigs     *SignatureSet
	external ExternalEngine
	engineID string
	headSize int
	analyze  structuralAnalyzer
	log      logging.Logger
}

// Option is a functional option for configuring a defaultScanner.
type Option func(*defaultScanner)

// WithExternalEngine attaches an out-of-process AV engine hook.
func WithExternalEngine(e ExternalEngine) Option {
	return func(s *defaultScanner) { s.external = e }
}

// WithHeadSize overrides how many leading bytes are pattern-matched as text.
func WithHeadSize(n int) Option {
	return func(s *defaultScanner) {
		if n > 0 {
			s.headSize = n
		}
	}
}

// WithLogger sets the logger used for quarantine-audit messages.
func WithLogger(l logging.Logger) Option {
	return func(s *defaultScanner) {
		if l != nil {
			s.log = l
		}
	}
}

// withStructuralAnalyzer swaps the structural analysis layer; used by
// tests to force internal failures.
func withStructuralAnalyzer(fn structuralAnalyzer) Option {
	return func(s *defaultScanner) { s.analyze = fn }
}

// NewScanner creates a scanner over the given signature catalog. A nil
// catalog uses the built-in defaults.
func NewScanner(sigs *SignatureSet, opts ...Option) Scanner {
	if sigs == nil {
		sigs = DefaultSignatureSet()
	}
	s := &defaultScanner{
		sigs:     sigs,
		engineID: "docpipeline-heuristic/1.0",
		headSize: defaultHeadSize,
		log:      logging.Nop{},
	}
	s.analyze = s.analyzeStructure
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan inspects a raw file buffer with no declared file name.
func (s *defaultScanner) Scan(ctx context.Context, buf []byte) *ScanResult {
	return s.ScanNamed(ctx, buf, "")
}

// ScanNamed inspects a raw file buffer. It never returns an error: any
// internal failure produces a synthetic Scan Error detection and an
// infected verdict.
func (s *defaultScanner) ScanNamed(ctx context.Context, buf []byte, fileName string) (result *ScanResult) {
	start := time.Now()

	sum := sha256.Sum256(buf)
	fileHash := hex.EncodeToString(sum[:])

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("threat scan internal failure, failing closed: %v", r)
			result = s.failClosed(fileHash, time.Since(start), fmt.Sprintf("%v", r))
		}
	}()

	var detections []Detection
	detections = append(detections, s.matchKnownHash(fileHash)...)
	detections = append(detections, s.matchContentPatterns(buf)...)
	detections = append(detections, s.analyze(buf, fileName)...)
	detections = append(detections, s.runExternalEngine(ctx, buf)...)

	infected := false
	for _, d := range detections {
		if d.Severity.Value() >= types.SeverityHigh.Value() {
			infected = true
			break
		}
	}

	if infected {
		// Quarantine is an auditable side effect; the original file is
		// never deleted here.
		s.log.Warn("buffer %s flagged infected with %d detection(s)", fileHash[:12], len(detections))
	}

	return &ScanResult{
		Infected:     infected,
		Engine:       s.engineID,
		ScanDuration: time.Since(start),
		SHA256:       fileHash,
		Detections:   detections,
	}
}

// SupportedSignatures reports loaded signature totals per layer.
func (s *defaultScanner) SupportedSignatures() SignatureCounts {
	return SignatureCounts{
		KnownBadHashes:    len(s.sigs.KnownBadHashes),
		ContentPatterns:   len(s.sigs.ContentPatterns),
		ExecutableMagics:  len(s.sigs.ExecutableMagics),
		MacroIndicators:   len(s.sigs.MacroIndicators),
		DeclaredTypeRules: len(s.sigs.DeclaredTypes),
	}
}

// matchKnownHash checks the whole-buffer digest against the known-bad set.
func (s *defaultScanner) matchKnownHash(fileHash string) []Detection {
	name, ok := s.sigs.KnownBadHashes[strings.ToLower(fileHash)]
	if !ok {
		return nil
	}
	return []Detection{{
		Name:        "Known Malware",
		Category:    CategoryMalware,
		Severity:    types.SeverityCritical,
		Description: fmt.Sprintf("File hash matches known malware signature %q", name),
		Action:      ActionBlock,
	}}
}

// matchContentPatterns decodes the head of the buffer as text and tests
// it against every suspicious content pattern. Patterns are unioned,
// not exclusive.
func (s *defaultScanner) matchContentPatterns(buf []byte) []Detection {
	head := buf
	if len(head) > s.headSize {
		head = head[:s.headSize]
	}
	text := strings.ToLower(string(head))

	var detections []Detection
	for _, p := range s.sigs.ContentPatterns {
		if !strings.Contains(text, strings.ToLower(p.Substring)) {
			continue
		}
		detections = append(detections, Detection{
			Name:        "Suspicious Content",
			Category:    CategorySuspicious,
			Severity:    types.SeverityMedium,
			Description: p.Description,
			Action:      ActionQuarantine,
		})
	}
	return detections
}

// analyzeStructure runs the declared-type, embedded-executable, and
// macro-indicator heuristics.
func (s *defaultScanner) analyzeStructure(buf []byte, fileName string) []Detection {
	var detections []Detection

	if fileName != "" {
		ext := strings.ToLower(filepath.Ext(fileName))
		for _, rule := range s.sigs.DeclaredTypes {
			if ext != rule.Extension {
				continue
			}
			if !bytes.HasPrefix(buf, []byte(rule.Prefix)) {
				detections = append(detections, Detection{
					Name:        rule.Name,
					Category:    CategoryStructural,
					Severity:    types.SeverityMedium,
					Description: fmt.Sprintf("Content declared as %s but lacks the %q header", rule.Extension, rule.Prefix),
					Action:      ActionQuarantine,
				})
			}
		}
	}

	for _, sig := range s.sigs.ExecutableMagics {
		if len(sig.Magic) == 0 {
			continue
		}
		// Offset zero would be the file's own type; any occurrence past
		// that still counts as embedded.
		if bytes.Contains(buf, sig.Magic) {
			detections = append(detections, Detection{
				Name:        "Embedded Executable",
				Category:    CategoryStructural,
				Severity:    types.SeverityHigh,
				Description: fmt.Sprintf("Buffer contains a %s signature", sig.Name),
				Action:      ActionBlock,
			})
			break
		}
	}

	distinct := 0
	for _, indicator := range s.sigs.MacroIndicators {
		if bytes.Contains(buf, []byte(indicator)) {
			distinct++
		}
	}
	if s.sigs.MacroThreshold > 0 && distinct >= s.sigs.MacroThreshold {
		detections = append(detections, Detection{
			Name:        "Macro Heavy Document",
			Category:    CategoryStructural,
			Severity:    types.SeverityMedium,
			Description: fmt.Sprintf("Document contains %d distinct macro indicators", distinct),
			Action:      ActionQuarantine,
		})
	}

	return detections
}

// runExternalEngine unions in findings from the configured AV daemon.
// Engine unavailability is itself recorded as a medium finding instead
// of blocking the pipeline; see DESIGN.md for the fail-open decision on
// this layer.
func (s *defaultScanner) runExternalEngine(ctx context.Context, buf []byte) []Detection {
	if s.external == nil {
		return nil
	}

	found, err := s.external.Scan(ctx, buf)
	if err != nil {
		s.log.Warn("external engine %s unavailable: %v", s.external.Name(), err)
		return []Detection{{
			Name:        "External Scanner Error",
			Category:    CategoryExternal,
			Severity:    types.SeverityMedium,
			Description: fmt.Sprintf("External engine %s failed: %v", s.external.Name(), err),
			Action:      ActionMonitor,
		}}
	}
	return found
}

// failClosed builds the synthetic result used when scanning itself
// fails: exactly one high-severity Scan Error detection, infected=true.
func (s *defaultScanner) failClosed(fileHash string, elapsed time.Duration, cause string) *ScanResult {
	return &ScanResult{
		Infected:     true,
		Engine:       s.engineID,
		ScanDuration: elapsed,
		SHA256:       fileHash,
		Detections: []Detection{{
			Name:        "Scan Error",
			Category:    CategoryScanError,
			Severity:    types.SeverityHigh,
			Description: fmt.Sprintf("Scanning failed and the file is treated as unsafe: %s", cause),
			Action:      ActionQuarantine,
		}},
	}
}
