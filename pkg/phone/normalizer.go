package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is the region used when a number carries no country code.
// The import sources this CRM deals with are Egyptian brokerages.
const DefaultRegion = "EG"

// egyptMobilePrefixes are the valid operator prefixes for 11-digit
// Egyptian mobile numbers (01X...).
var egyptMobilePrefixes = []string{"010", "011", "012", "015"}

// Normalize converts a raw phone string to E.164, repairing the quirks
// seen in Egyptian spreadsheet exports: local 01X numbers, missing
// country codes, Arabic-Indic digits and digit-reversed cells. The
// function is idempotent: a value already in +20 E.164 form passes
// through unchanged.
func Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("phone number cannot be empty")
	}

	s := digitsOf(raw)
	if s == "" {
		return "", fmt.Errorf("phone number has no digits: %q", raw)
	}

	hasPlus := strings.HasPrefix(strings.TrimSpace(raw), "+")

	switch {
	case hasPlus:
		// Already international, just re-validate below.
		s = "+" + s
	case strings.HasPrefix(s, "0020"):
		// Dial-out prefix form: 0020 10 1234 5678.
		s = "+" + s[2:]
	case strings.HasPrefix(s, "20") && len(s) == 12:
		// Country code without the plus: 201012345678.
		s = "+" + s
	case strings.HasPrefix(s, "01") && len(s) == 11:
		// Local Egyptian mobile: 01012345678.
		s = "+2" + s
	case strings.HasPrefix(s, "1") && len(s) == 10 && hasMobilePrefix("0"+s):
		// Local mobile with the leading zero lost by the spreadsheet.
		s = "+20" + s
	case len(s) == 11 && !strings.HasPrefix(s, "01"):
		// Some exports reverse the digits of the cell. If the reversed
		// string is a plausible local mobile, repair it. This heuristic
		// is tuned to 11-digit Egyptian mobiles and nothing else.
		if rev := reverse(s); strings.HasPrefix(rev, "01") && hasMobilePrefix(rev) {
			s = "+2" + rev
		} else {
			s = "+" + s
		}
	default:
		// Unknown shape; let the parser decide with the default region.
	}

	parsed, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("failed to parse phone number %q: %w", raw, err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number: %q", raw)
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// Clean is the lenient variant used by bulk import: it returns the
// normalized number, or "" when the value cannot be repaired. Rows with
// an empty cleaned phone are skipped by the importer, not errored.
func Clean(raw string) string {
	normalized, err := Normalize(raw)
	if err != nil {
		return ""
	}
	return normalized
}

// IsValid reports whether a phone value passes persistence validation:
// normalizable and at least 10 characters of significant number.
func IsValid(raw string) bool {
	normalized, err := Normalize(raw)
	if err != nil {
		return false
	}
	return len(strings.TrimPrefix(normalized, "+")) >= 10
}

// digitsOf strips everything but digits, translating Arabic-Indic
// digits to ASCII on the way.
func digitsOf(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩': // ٠١٢٣٤٥٦٧٨٩
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹': // extended Arabic-Indic
			b.WriteRune('0' + (r - '۰'))
		}
	}
	return b.String()
}

func hasMobilePrefix(s string) bool {
	for _, p := range egyptMobilePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
