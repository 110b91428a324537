package threat

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ContentPattern is one suspicious text pattern tested against the
// decoded head of a buffer. Patterns are unioned: every pattern that
// matches produces its own detection.
type ContentPattern struct {
	ID          string `yaml:"id"`
	Substring   string `yaml:"substring"`
	Description string `yaml:"description"`
}

// BinarySignature is a magic-byte sequence identifying an embedded
// executable anywhere in a buffer.
type BinarySignature struct {
	Name  string `yaml:"name"`
	Magic []byte `yaml:"-"`

	// MagicHex carries the magic bytes in signature files.
	MagicHex string `yaml:"magic_hex,omitempty"`
}

// DeclaredTypeRule ties a declared file extension to the magic prefix
// genuine files of that type must start with.
type DeclaredTypeRule struct {
	Extension string `yaml:"extension"`
	Prefix    string `yaml:"prefix"`
	Name      string `yaml:"name"`
}

// SignatureSet is the immutable signature catalog a scanner is
// constructed with. Catalogs are data, not code: they can be extended
// and tested independently of the scan orchestration.
type SignatureSet struct {
	// KnownBadHashes maps lowercase SHA-256 hex digests to threat names.
	KnownBadHashes map[string]string `yaml:"known_bad_hashes"`

	ContentPatterns  []ContentPattern   `yaml:"content_patterns"`
	ExecutableMagics []BinarySignature  `yaml:"executable_magics"`
	MacroIndicators  []string           `yaml:"macro_indicators"`
	DeclaredTypes    []DeclaredTypeRule `yaml:"declared_types"`

	// MacroThreshold is the number of distinct macro indicators that
	// together flag a macro-heavy document.
	MacroThreshold int `yaml:"macro_threshold"`
}

// DefaultSignatureSet returns the built-in signature catalog.
func DefaultSignatureSet() *SignatureSet {
	return &SignatureSet{
		KnownBadHashes: map[string]string{},
		ContentPatterns: []ContentPattern{
			{ID: "embedded-script", Substring: "<script", Description: "Embedded script tag in document content"},
			{ID: "eval-call", Substring: "eval(", Description: "Dynamic code evaluation call"},
			{ID: "exec-call", Substring: "exec(", Description: "Process execution call"},
			{ID: "system-call", Substring: "system(", Description: "Shell command invocation"},
			{ID: "php-delimiter", Substring: "<?php", Description: "PHP code delimiter"},
			{ID: "asp-delimiter", Substring: "<%", Description: "ASP code delimiter"},
		},
		ExecutableMagics: []BinarySignature{
			{Name: "PE executable", Magic: []byte{'M', 'Z'}},
			{Name: "ELF executable", Magic: []byte{0x7f, 'E', 'L', 'F'}},
			{Name: "Mach-O 32-bit executable", Magic: []byte{0xfe, 0xed, 0xfa, 0xce}},
			{Name: "Mach-O 64-bit executable", Magic: []byte{0xfe, 0xed, 0xfa, 0xcf}},
		},
		MacroIndicators: []string{
			"vbaProject.bin",
			"macros/",
			"Module1",
			"ThisDocument",
			"Auto_Open",
			"Document_Open",
		},
		DeclaredTypes: []DeclaredTypeRule{
			{Extension: ".pdf", Prefix: "%PDF", Name: "Malformed PDF"},
		},
		MacroThreshold: 3,
	}
}

// LoadSignatureSet reads a YAML signature catalog and merges it over the
// defaults, so deployments only list additions such as known-bad hashes.
func LoadSignatureSet(path string) (*SignatureSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signature file %s: %w", path, err)
	}

	var loaded SignatureSet
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing signature file %s: %w", path, err)
	}
	if err := loaded.decodeMagics(); err != nil {
		return nil, fmt.Errorf("signature file %s: %w", path, err)
	}

	sigs := DefaultSignatureSet()
	for h, name := range loaded.KnownBadHashes {
		sigs.KnownBadHashes[strings.ToLower(h)] = name
	}
	sigs.ContentPatterns = append(sigs.ContentPatterns, loaded.ContentPatterns...)
	sigs.ExecutableMagics = append(sigs.ExecutableMagics, loaded.ExecutableMagics...)
	sigs.MacroIndicators = append(sigs.MacroIndicators, loaded.MacroIndicators...)
	sigs.DeclaredTypes = append(sigs.DeclaredTypes, loaded.DeclaredTypes...)
	if loaded.MacroThreshold > 0 {
		sigs.MacroThreshold = loaded.MacroThreshold
	}
	return sigs, nil
}

// decodeMagics converts MagicHex fields from signature files into bytes.
func (s *SignatureSet) decodeMagics() error {
	for i := range s.ExecutableMagics {
		sig := &s.ExecutableMagics[i]
		if sig.MagicHex == "" {
			continue
		}
		decoded, err := decodeHex(sig.MagicHex)
		if err != nil {
			return fmt.Errorf("executable magic %q: %w", sig.Name, err)
		}
		sig.Magic = decoded
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string %q", s)
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		hi, ok1 := hexVal(s[i])
		lo, ok2 := hexVal(s[i+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("invalid hex string %q", s)
		}
		out[i/2] = hi<<4 | lo
	}
	return out, nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}
