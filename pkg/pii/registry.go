package pii

import (
	"sync"
)

// matcherRegistry manages all PII matchers. Registration order is
// preserved so scan output is deterministic across runs.
type matcherRegistry struct {
	mu      sync.RWMutex
	ordered []Matcher
	byID    map[string]int
}

// NewRegistry creates an empty matcher registry
func NewRegistry() Registry {
	return &matcherRegistry{
		byID: make(map[string]int),
	}
}

// NewDefaultRegistry creates a registry with all built-in matchers
func NewDefaultRegistry() Registry {
	registry := NewRegistry()

	registry.Register(NewSSNMatcher())
	registry.Register(NewCreditCardMatcher())
	registry.Register(NewEmailMatcher())
	registry.Register(NewPhoneMatcher())
	registry.Register(NewStudentIDMatcher())
	registry.Register(NewBankAccountMatcher())
	registry.Register(NewRoutingNumberMatcher())
	registry.Register(NewDateOfBirthMatcher())
	registry.Register(NewNameMatcher())
	registry.Register(NewPassportMatcher())
	registry.Register(NewDriversLicenseMatcher())
	registry.Register(NewAddressMatcher())
	registry.Register(NewMedicalRecordMatcher())

	return registry
}

// Register adds a matcher. A matcher with an already-registered ID
// replaces the original in place, keeping its position in the order.
func (r *matcherRegistry) Register(matcher Matcher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := matcher.ID()
	if idx, ok := r.byID[id]; ok {
		r.ordered[idx] = matcher
		return
	}

	r.byID[id] = len(r.ordered)
	r.ordered = append(r.ordered, matcher)
}

// Get returns a matcher by ID
func (r *matcherRegistry) Get(id string) (Matcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.ordered[idx], true
}

// All returns all registered matchers in registration order
func (r *matcherRegistry) All() []Matcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Matcher, len(r.ordered))
	copy(result, r.ordered)
	return result
}
