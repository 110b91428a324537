package pii

import (
	"regexp"
	"strings"
)

// matcherContextWindow is the preliminary context captured at match
// time; the scanner re-extracts context per its configured window when
// building findings.
const matcherContextWindow = 50

// Base confidences per detection format.
const (
	confSSNFormatted     = 0.95
	confSSNUnformatted   = 0.7
	confEmail            = 0.9
	confPhoneFormatted   = 0.9
	confPhoneUnformatted = 0.7
	confCreditCardLuhn   = 0.95
	confCreditCardNoLuhn = 0.6
	confLabelAnchored    = 0.9
	confDateOfBirth      = 0.85
	confName             = 0.7
)

// SSNMatcher detects Social Security Numbers
type SSNMatcher struct {
	baseMatcher
}

// NewSSNMatcher creates a new SSN matcher
func NewSSNMatcher() *SSNMatcher {
	return &SSNMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-ssn",
			piiType: TypeSSN,
			pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b|\b\d{9}\b`),
		},
	}
}

// Match finds all SSN matches in content. Formatted SSNs score higher
// than bare nine-digit runs.
func (m *SSNMatcher) Match(content string) []Match {
	matches := m.findAllMatches(content, matcherContextWindow, confSSNUnformatted)
	for i := range matches {
		if strings.Contains(matches[i].Value, "-") {
			matches[i].Confidence = confSSNFormatted
		}
	}
	return matches
}

// EmailMatcher detects email addresses
type EmailMatcher struct {
	baseMatcher
}

// NewEmailMatcher creates a new email matcher
func NewEmailMatcher() *EmailMatcher {
	return &EmailMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-email",
			piiType: TypeEmail,
			pattern: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		},
	}
}

// Match finds all email matches in content
func (m *EmailMatcher) Match(content string) []Match {
	return m.findAllMatches(content, matcherContextWindow, confEmail)
}

// PhoneMatcher detects US phone numbers
type PhoneMatcher struct {
	baseMatcher
}

// NewPhoneMatcher creates a new phone number matcher
func NewPhoneMatcher() *PhoneMatcher {
	return &PhoneMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-phone",
			piiType: TypePhoneNumber,
			pattern: regexp.MustCompile(
				`\b(?:\(\d{3}\)\s?|\d{3}[-.\s])\d{3}[-.\s]\d{4}\b|\b\d{10}\b`,
			),
		},
	}
}

// Match finds all phone matches in content. Formatted numbers score
// higher than bare ten-digit runs.
func (m *PhoneMatcher) Match(content string) []Match {
	matches := m.findAllMatches(content, matcherContextWindow, confPhoneUnformatted)
	for i := range matches {
		if countDigits(matches[i].Value) != len(matches[i].Value) {
			matches[i].Confidence = confPhoneFormatted
		}
	}
	return matches
}

// CreditCardMatcher detects credit card numbers
type CreditCardMatcher struct {
	baseMatcher
}

// NewCreditCardMatcher creates a new credit card matcher
func NewCreditCardMatcher() *CreditCardMatcher {
	return &CreditCardMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-credit-card",
			piiType: TypeCreditCard,
			pattern: regexp.MustCompile(`\b(?:\d{4}[-\s]){3}\d{4}\b|\b\d{15,16}\b`),
		},
	}
}

// Match finds all credit card matches in content. Numbers passing the
// Luhn checksum are near-certain; failures score at the filter cutoff
// and are discarded downstream.
func (m *CreditCardMatcher) Match(content string) []Match {
	matches := m.findAllMatches(content, matcherContextWindow, confCreditCardNoLuhn)
	for i := range matches {
		if IsValidCreditCard(matches[i].Value) {
			matches[i].Confidence = confCreditCardLuhn
		}
	}
	return matches
}

// IsValidCreditCard validates a candidate card number with the Luhn
// checksum: strip non-digits, iterate from the rightmost digit doubling
// every second digit (subtracting 9 from doubled values above 9), and
// require the sum to be divisible by 10.
func IsValidCreditCard(cc string) bool {
	clean := digitsOf(cc)
	if len(clean) < 13 || len(clean) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(clean) - 1; i >= 0; i-- {
		n := int(clean[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}

	return sum%10 == 0
}

// labeledMatcher detects numbers anchored to an identifying label, such
// as "Student ID: 123456".
type labeledMatcher struct {
	baseMatcher
}

// Match finds all label-anchored matches in content
func (m *labeledMatcher) Match(content string) []Match {
	return m.findAllMatches(content, matcherContextWindow, confLabelAnchored)
}

// NewStudentIDMatcher creates a matcher for labeled student identifiers
func NewStudentIDMatcher() Matcher {
	return &labeledMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-student-id",
			piiType: TypeStudentID,
			pattern: regexp.MustCompile(`(?i)\bstudent\s*(?:id|number)[\s#:]*\d{5,10}\b`),
		},
	}
}

// NewBankAccountMatcher creates a matcher for labeled bank account numbers
func NewBankAccountMatcher() Matcher {
	return &labeledMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-bank-account",
			piiType: TypeBankAccount,
			pattern: regexp.MustCompile(`(?i)\b(?:account|acct)\s*(?:no|number|#)?[\s#:]*\d{8,17}\b`),
		},
	}
}

// NewRoutingNumberMatcher creates a matcher for labeled routing numbers
func NewRoutingNumberMatcher() Matcher {
	return &labeledMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-routing-number",
			piiType: TypeRoutingNumber,
			pattern: regexp.MustCompile(`(?i)\b(?:routing|aba|rtn)\s*(?:no|number|#)?[\s#:]*\d{9}\b`),
		},
	}
}

// DateOfBirthMatcher detects dates in slash, ISO, or spelled-out form
type DateOfBirthMatcher struct {
	baseMatcher
}

// NewDateOfBirthMatcher creates a new date of birth matcher
func NewDateOfBirthMatcher() *DateOfBirthMatcher {
	return &DateOfBirthMatcher{
		baseMatcher: baseMatcher{
			id:      "pii-dob",
			piiType: TypeDateOfBirth,
			pattern: regexp.MustCompile(
				`\b\d{1,2}/\d{1,2}/\d{2,4}\b` +
					`|\b\d{4}-\d{2}-\d{2}\b` +
					`|\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`,
			),
		},
	}
}

// Match finds all date matches in content
func (m *DateOfBirthMatcher) Match(content string) []Match {
	return m.findAllMatches(content, matcherContextWindow, confDateOfBirth)
}
