// Package phone normalizes phone numbers into join keys. Records arrive with
// and without country-code prefixes ("+91 98765 43210", "09876543210",
// "9876543210"), so cross-record matching always compares the trailing ten
// digits.
package phone

import (
	"strings"
	"unicode"
)

// KeyLength is the number of trailing digits that identify a subscriber.
const KeyLength = 10

// Digits strips every non-digit character from s.
func Digits(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Key reduces a phone string to its last ten digits. Inputs with fewer than
// ten digits return the full digit string; empty input yields an empty key,
// which matches nothing.
func Key(s string) string {
	digits := Digits(s)
	if len(digits) <= KeyLength {
		return digits
	}
	return digits[len(digits)-KeyLength:]
}

// SameSubscriber reports whether two phone strings normalize to the same
// non-empty key.
func SameSubscriber(a, b string) bool {
	ka := Key(a)
	return ka != "" && ka == Key(b)
}

// Keys normalizes a set of phone strings, dropping empties and duplicates
// while preserving first-seen order.
func Keys(phones []string) []string {
	seen := make(map[string]struct{}, len(phones))
	keys := make([]string, 0, len(phones))
	for _, p := range phones {
		k := Key(p)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
