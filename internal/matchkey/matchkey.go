// Package matchkey canonicalizes material and handling-unit identifiers so
// that values exported by different SAP tables compare equal.
package matchkey

import "strings"

// Normalize returns the match key for a raw identifier.
//
// Whitespace is trimmed and letters are upper-cased. Numeric values lose
// decimal artifacts ("12.0" -> "12") and leading zeros ("0012" -> "12").
// Applying Normalize to its own output is a no-op.
func Normalize(raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))

	if strings.Contains(v, ".") && isDigits(strings.ReplaceAll(v, ".", "")) {
		v = strings.TrimRight(v, "0")
		v = strings.TrimRight(v, ".")
	}

	if isDigits(v) {
		v = strings.TrimLeft(v, "0")
		if v == "" {
			v = "0"
		}
	}

	return v
}

// IsBlank reports whether a raw cell carries no identifier. Spreadsheet
// exports write missing values as NaN/None, so those count as blank too.
func IsBlank(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "NAN", "NONE", "NULL", "<NA>", "NAT":
		return true
	}
	return false
}

// Set is a set of match keys.
type Set map[string]struct{}

// NewSet normalizes and collects the given raw identifiers, skipping blanks.
func NewSet(raw ...string) Set {
	s := make(Set, len(raw))
	for _, r := range raw {
		s.Add(r)
	}
	return s
}

// Add normalizes raw and inserts it unless it is blank.
func (s Set) Add(raw string) {
	if IsBlank(raw) {
		return
	}
	s[Normalize(raw)] = struct{}{}
}

// Has reports whether the normalized form of raw is in the set.
func (s Set) Has(raw string) bool {
	if IsBlank(raw) {
		return false
	}
	_, ok := s[Normalize(raw)]
	return ok
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
