package validator

import (
	"strings"
)

// maxAddressHexLen is the full address width in hex characters. Shorter forms
// with leading zeros stripped are accepted and normalized by callers.
const maxAddressHexLen = 64

// IsValidAddress reports whether s is a well-formed account address:
// 0x-prefixed hex, at most 64 hex characters.
func IsValidAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") {
		return false
	}
	hex := s[2:]
	if len(hex) == 0 || len(hex) > maxAddressHexLen {
		return false
	}
	for _, r := range hex {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// NormalizeAddress lowercases an address so comparisons are byte-wise.
func NormalizeAddress(s string) string {
	return strings.ToLower(s)
}

// IsValidEmail does a light structural check: one @ with something on both
// sides and a dot in the domain. Deliverability is someone else's problem.
func IsValidEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	if strings.IndexByte(s[at+1:], '@') != -1 {
		return false
	}
	domain := s[at+1:]
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// IsValidSuinsName reports whether s looks like a SuiNS name: a non-empty
// label with the .sui suffix.
func IsValidSuinsName(s string) bool {
	const suffix = ".sui"
	if !strings.HasSuffix(s, suffix) {
		return false
	}
	label := s[:len(s)-len(suffix)]
	return label != "" && !strings.Contains(label, " ")
}
